package warehouse

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemorySource is a Source backed by slices. Errs maps a production table
// name (customers, products, transactions, transaction_items) to an error
// returned when that table is read.
type MemorySource struct {
	CustomerRows []Customer
	ProductRows  []Product
	TxnRows      []Transaction
	ItemRows     []TransactionItem
	Errs         map[string]error
}

func (s *MemorySource) fail(table string) error {
	if err, ok := s.Errs[table]; ok {
		return err
	}
	return nil
}

// Customers returns the customer rows.
func (s *MemorySource) Customers(ctx context.Context) ([]Customer, error) {
	if err := s.fail("customers"); err != nil {
		return nil, err
	}
	return slices.Clone(s.CustomerRows), nil
}

// Products returns the product rows.
func (s *MemorySource) Products(ctx context.Context) ([]Product, error) {
	if err := s.fail("products"); err != nil {
		return nil, err
	}
	return slices.Clone(s.ProductRows), nil
}

// Transactions returns the transaction rows.
func (s *MemorySource) Transactions(ctx context.Context) ([]Transaction, error) {
	if err := s.fail("transactions"); err != nil {
		return nil, err
	}
	return slices.Clone(s.TxnRows), nil
}

// TransactionItems returns the line item rows.
func (s *MemorySource) TransactionItems(ctx context.Context) ([]TransactionItem, error) {
	if err := s.fail("transaction_items"); err != nil {
		return nil, err
	}
	return slices.Clone(s.ItemRows), nil
}

// TransactionDateRange returns the min and max transaction date.
func (s *MemorySource) TransactionDateRange(ctx context.Context) (DateRange, error) {
	if err := s.fail("transactions"); err != nil {
		return DateRange{}, err
	}
	var dr DateRange
	for _, t := range s.TxnRows {
		d := civilDate(t.TransactionDate)
		if !dr.Valid {
			dr = DateRange{Start: d, End: d, Valid: true}
			continue
		}
		if d.Before(dr.Start) {
			dr.Start = d
		}
		if d.After(dr.End) {
			dr.End = d
		}
	}
	return dr, nil
}

// MemoryStore is a Store kept in process memory. A Replace call for a table
// listed in FailReplace returns that error and leaves the table untouched.
type MemoryStore struct {
	mu sync.Mutex

	Dates              []DimDate
	PaymentMethods     []DimPaymentMethod
	Customers          []DimCustomer
	Products           []DimProduct
	Facts              []FactSale
	Daily              []DailySales
	Monthly            []MonthlySales
	Categories         []CategorySales
	ProductPerformance []ProductPerformance
	CustomerMetrics    []CustomerMetrics

	FailReplace map[string]error
	// ReadErr, when set, is returned by every read.
	ReadErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{FailReplace: make(map[string]error)}
}

func replace[T any](ctx context.Context, s *MemoryStore, table string, dst *[]T, rows []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.FailReplace[table]; ok {
		return fmt.Errorf("failed to replace %s: %w", table, err)
	}
	*dst = slices.Clone(rows)
	return nil
}

func read[T any](ctx context.Context, s *MemoryStore, src *[]T) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return slices.Clone(*src), nil
}

// ReplaceDimDate replaces the date dimension.
func (s *MemoryStore) ReplaceDimDate(ctx context.Context, rows []DimDate) error {
	return replace(ctx, s, TableDimDate, &s.Dates, rows)
}

// ReplaceDimPaymentMethods replaces the payment method dimension.
func (s *MemoryStore) ReplaceDimPaymentMethods(ctx context.Context, rows []DimPaymentMethod) error {
	return replace(ctx, s, TableDimPaymentMethod, &s.PaymentMethods, rows)
}

// ReplaceDimCustomers replaces the customer dimension.
func (s *MemoryStore) ReplaceDimCustomers(ctx context.Context, rows []DimCustomer) error {
	return replace(ctx, s, TableDimCustomers, &s.Customers, rows)
}

// ReplaceDimProducts replaces the product dimension.
func (s *MemoryStore) ReplaceDimProducts(ctx context.Context, rows []DimProduct) error {
	return replace(ctx, s, TableDimProducts, &s.Products, rows)
}

// ReplaceFactSales replaces the fact table.
func (s *MemoryStore) ReplaceFactSales(ctx context.Context, rows []FactSale) error {
	return replace(ctx, s, TableFactSales, &s.Facts, rows)
}

// ReplaceDailySales replaces the daily rollup.
func (s *MemoryStore) ReplaceDailySales(ctx context.Context, rows []DailySales) error {
	return replace(ctx, s, TableAggDailySales, &s.Daily, rows)
}

// ReplaceMonthlySales replaces the monthly rollup.
func (s *MemoryStore) ReplaceMonthlySales(ctx context.Context, rows []MonthlySales) error {
	return replace(ctx, s, TableAggMonthlySales, &s.Monthly, rows)
}

// ReplaceCategorySales replaces the category rollup.
func (s *MemoryStore) ReplaceCategorySales(ctx context.Context, rows []CategorySales) error {
	return replace(ctx, s, TableAggCategorySales, &s.Categories, rows)
}

// ReplaceProductPerformance replaces the product performance rollup.
func (s *MemoryStore) ReplaceProductPerformance(ctx context.Context, rows []ProductPerformance) error {
	return replace(ctx, s, TableAggProductPerf, &s.ProductPerformance, rows)
}

// ReplaceCustomerMetrics replaces the customer metrics rollup.
func (s *MemoryStore) ReplaceCustomerMetrics(ctx context.Context, rows []CustomerMetrics) error {
	return replace(ctx, s, TableAggCustomerMetrics, &s.CustomerMetrics, rows)
}

// DimDates returns a copy of the date dimension.
func (s *MemoryStore) DimDates(ctx context.Context) ([]DimDate, error) {
	return read(ctx, s, &s.Dates)
}

// DimPaymentMethods returns a copy of the payment method dimension.
func (s *MemoryStore) DimPaymentMethods(ctx context.Context) ([]DimPaymentMethod, error) {
	return read(ctx, s, &s.PaymentMethods)
}

// DimCustomers returns a copy of the customer dimension.
func (s *MemoryStore) DimCustomers(ctx context.Context) ([]DimCustomer, error) {
	return read(ctx, s, &s.Customers)
}

// DimProducts returns a copy of the product dimension.
func (s *MemoryStore) DimProducts(ctx context.Context) ([]DimProduct, error) {
	return read(ctx, s, &s.Products)
}

// FactSales returns a copy of the fact table.
func (s *MemoryStore) FactSales(ctx context.Context) ([]FactSale, error) {
	return read(ctx, s, &s.Facts)
}

// Counts returns the row count of every table.
func (s *MemoryStore) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		TableDimDate:            len(s.Dates),
		TableDimPaymentMethod:   len(s.PaymentMethods),
		TableDimCustomers:       len(s.Customers),
		TableDimProducts:        len(s.Products),
		TableFactSales:          len(s.Facts),
		TableAggDailySales:      len(s.Daily),
		TableAggMonthlySales:    len(s.Monthly),
		TableAggCategorySales:   len(s.Categories),
		TableAggProductPerf:     len(s.ProductPerformance),
		TableAggCustomerMetrics: len(s.CustomerMetrics),
	}
}

// ensure the in-memory types satisfy the interfaces
var (
	_ Source = (*MemorySource)(nil)
	_ Store  = (*MemoryStore)(nil)
)
