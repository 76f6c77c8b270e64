//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// Store writes and reads the warehouse namespace.
type Store struct {
	db     DB
	schema string
}

// NewStore creates a Store over the named warehouse schema.
func NewStore(db DB, schema string) *Store {
	return &Store{db: db, schema: schema}
}

func (s *Store) table(name string) string {
	return quoteIdent(s.schema, name)
}

// replace truncates a table and bulk loads rows with COPY in a single
// transaction. Any failure rolls back, leaving the previous content.
func (s *Store) replace(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+s.table(table)); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", table, err)
	}

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{s.schema, table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy into %s: %w", table, err)
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("failed to copy into %s: wrote %d of %d rows", table, n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}

	logging.Debug().
		Str("table", table).
		Int("rows", len(rows)).
		Msg("Replaced table")
	return nil
}

// ReplaceDimDate reloads dim_date.
func (s *Store) ReplaceDimDate(ctx context.Context, rows []warehouse.DimDate) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.DateKey, r.FullDate, r.Year, r.Quarter, r.Month, r.Day,
			r.MonthName, r.DayName, r.WeekOfYear, r.IsWeekend}
	}
	return s.replace(ctx, warehouse.TableDimDate, []string{
		"date_key", "full_date", "year", "quarter", "month", "day",
		"month_name", "day_name", "week_of_year", "is_weekend",
	}, data)
}

// ReplaceDimPaymentMethods reloads dim_payment_method.
func (s *Store) ReplaceDimPaymentMethods(ctx context.Context, rows []warehouse.DimPaymentMethod) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.PaymentMethodKey, r.Name, r.Type}
	}
	return s.replace(ctx, warehouse.TableDimPaymentMethod, []string{
		"payment_method_key", "payment_method_name", "payment_type",
	}, data)
}

// ReplaceDimCustomers reloads dim_customers.
func (s *Store) ReplaceDimCustomers(ctx context.Context, rows []warehouse.DimCustomer) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.CustomerKey, r.CustomerID, r.FullName, r.Email, r.City, r.State,
			r.Country, r.AgeGroup, r.CustomerSegment, r.RegistrationDate,
			r.EffectiveDate, r.EndDate, r.IsCurrent}
	}
	return s.replace(ctx, warehouse.TableDimCustomers, []string{
		"customer_key", "customer_id", "full_name", "email", "city", "state",
		"country", "age_group", "customer_segment", "registration_date",
		"effective_date", "end_date", "is_current",
	}, data)
}

// ReplaceDimProducts reloads dim_products.
func (s *Store) ReplaceDimProducts(ctx context.Context, rows []warehouse.DimProduct) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.ProductKey, r.ProductID, r.ProductName, r.Category, r.SubCategory,
			r.Brand, numeric(r.Price), r.PriceRange, r.EffectiveDate, r.EndDate, r.IsCurrent}
	}
	return s.replace(ctx, warehouse.TableDimProducts, []string{
		"product_key", "product_id", "product_name", "category", "sub_category",
		"brand", "price", "price_range", "effective_date", "end_date", "is_current",
	}, data)
}

// ReplaceFactSales reloads fact_sales.
func (s *Store) ReplaceFactSales(ctx context.Context, rows []warehouse.FactSale) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.SalesKey, r.DateKey, r.CustomerKey, r.ProductKey, r.PaymentMethodKey,
			r.TransactionID, r.ItemID, r.Quantity, numeric(r.UnitPrice),
			numeric(r.DiscountAmount), numeric(r.LineTotal), numeric(r.Profit), r.CreatedAt}
	}
	return s.replace(ctx, warehouse.TableFactSales, []string{
		"sales_key", "date_key", "customer_key", "product_key", "payment_method_key",
		"transaction_id", "item_id", "quantity", "unit_price",
		"discount_amount", "line_total", "profit", "created_at",
	}, data)
}

var measureColumns = []string{
	"total_transactions", "total_quantity", "total_sales", "total_profit", "unique_customers",
}

func measureValues(m warehouse.SalesMeasures) []any {
	return []any{m.TotalTransactions, m.TotalQuantity, numeric(m.TotalSales),
		numeric(m.TotalProfit), m.UniqueCustomers}
}

// ReplaceDailySales reloads agg_sales_daily.
func (s *Store) ReplaceDailySales(ctx context.Context, rows []warehouse.DailySales) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = append([]any{r.DateKey}, measureValues(r.SalesMeasures)...)
	}
	return s.replace(ctx, warehouse.TableAggDailySales,
		append([]string{"date_key"}, measureColumns...), data)
}

// ReplaceMonthlySales reloads agg_sales_monthly.
func (s *Store) ReplaceMonthlySales(ctx context.Context, rows []warehouse.MonthlySales) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = append([]any{r.Year, r.Month}, measureValues(r.SalesMeasures)...)
	}
	return s.replace(ctx, warehouse.TableAggMonthlySales,
		append([]string{"year", "month"}, measureColumns...), data)
}

// ReplaceCategorySales reloads agg_sales_category.
func (s *Store) ReplaceCategorySales(ctx context.Context, rows []warehouse.CategorySales) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = append([]any{r.Category}, measureValues(r.SalesMeasures)...)
	}
	return s.replace(ctx, warehouse.TableAggCategorySales,
		append([]string{"category"}, measureColumns...), data)
}

// ReplaceProductPerformance reloads agg_product_performance.
func (s *Store) ReplaceProductPerformance(ctx context.Context, rows []warehouse.ProductPerformance) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.ProductKey, r.TotalQuantity, numeric(r.TotalSales),
			numeric(r.TotalProfit), numeric(r.AvgDiscountPercentage)}
	}
	return s.replace(ctx, warehouse.TableAggProductPerf, []string{
		"product_key", "total_quantity", "total_sales", "total_profit", "avg_discount_percentage",
	}, data)
}

// ReplaceCustomerMetrics reloads agg_customer_metrics.
func (s *Store) ReplaceCustomerMetrics(ctx context.Context, rows []warehouse.CustomerMetrics) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.CustomerKey, r.TotalTransactions, numeric(r.TotalSpent),
			numeric(r.AvgOrderValue), r.LastPurchaseDate}
	}
	return s.replace(ctx, warehouse.TableAggCustomerMetrics, []string{
		"customer_key", "total_transactions", "total_spent", "avg_order_value", "last_purchase_date",
	}, data)
}

// DimDates reads dim_date ordered by key.
func (s *Store) DimDates(ctx context.Context) ([]warehouse.DimDate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT date_key, full_date, year, quarter, month, day,
               month_name, day_name, week_of_year, is_weekend
        FROM `+s.table(warehouse.TableDimDate)+`
        ORDER BY date_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dim_date: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.DimDate, error) {
		var d warehouse.DimDate
		err := row.Scan(&d.DateKey, &d.FullDate, &d.Year, &d.Quarter, &d.Month, &d.Day,
			&d.MonthName, &d.DayName, &d.WeekOfYear, &d.IsWeekend)
		return d, err
	})
}

// DimPaymentMethods reads dim_payment_method ordered by key.
func (s *Store) DimPaymentMethods(ctx context.Context) ([]warehouse.DimPaymentMethod, error) {
	rows, err := s.db.Query(ctx, `
        SELECT payment_method_key, payment_method_name, payment_type
        FROM `+s.table(warehouse.TableDimPaymentMethod)+`
        ORDER BY payment_method_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dim_payment_method: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.DimPaymentMethod, error) {
		var pm warehouse.DimPaymentMethod
		err := row.Scan(&pm.PaymentMethodKey, &pm.Name, &pm.Type)
		return pm, err
	})
}

// DimCustomers reads every customer version ordered by key.
func (s *Store) DimCustomers(ctx context.Context) ([]warehouse.DimCustomer, error) {
	rows, err := s.db.Query(ctx, `
        SELECT customer_key, customer_id, COALESCE(full_name, ''), COALESCE(email, ''),
               COALESCE(city, ''), COALESCE(state, ''), COALESCE(country, ''),
               COALESCE(age_group, ''), COALESCE(customer_segment, ''), registration_date,
               effective_date, end_date, is_current
        FROM `+s.table(warehouse.TableDimCustomers)+`
        ORDER BY customer_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dim_customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.DimCustomer, error) {
		var c warehouse.DimCustomer
		err := row.Scan(&c.CustomerKey, &c.CustomerID, &c.FullName, &c.Email,
			&c.City, &c.State, &c.Country, &c.AgeGroup, &c.CustomerSegment, &c.RegistrationDate,
			&c.EffectiveDate, &c.EndDate, &c.IsCurrent)
		return c, err
	})
}

// DimProducts reads every product version ordered by key.
func (s *Store) DimProducts(ctx context.Context) ([]warehouse.DimProduct, error) {
	rows, err := s.db.Query(ctx, `
        SELECT product_key, product_id, COALESCE(product_name, ''), COALESCE(category, ''),
               COALESCE(sub_category, ''), COALESCE(brand, ''), price, COALESCE(price_range, ''),
               effective_date, end_date, is_current
        FROM `+s.table(warehouse.TableDimProducts)+`
        ORDER BY product_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dim_products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.DimProduct, error) {
		var p warehouse.DimProduct
		var price pgtype.Numeric
		err := row.Scan(&p.ProductKey, &p.ProductID, &p.ProductName, &p.Category,
			&p.SubCategory, &p.Brand, &price, &p.PriceRange,
			&p.EffectiveDate, &p.EndDate, &p.IsCurrent)
		p.Price = toDecimal(price)
		return p, err
	})
}

// FactSales reads fact_sales ordered by key.
func (s *Store) FactSales(ctx context.Context) ([]warehouse.FactSale, error) {
	rows, err := s.db.Query(ctx, `
        SELECT sales_key, date_key, customer_key, product_key, payment_method_key,
               transaction_id, item_id, quantity, unit_price,
               discount_amount, line_total, profit, created_at
        FROM `+s.table(warehouse.TableFactSales)+`
        ORDER BY sales_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fact_sales: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.FactSale, error) {
		var f warehouse.FactSale
		var unitPrice, discount, lineTotal, profit pgtype.Numeric
		var createdAt *time.Time
		err := row.Scan(&f.SalesKey, &f.DateKey, &f.CustomerKey, &f.ProductKey, &f.PaymentMethodKey,
			&f.TransactionID, &f.ItemID, &f.Quantity, &unitPrice,
			&discount, &lineTotal, &profit, &createdAt)
		f.UnitPrice = toDecimal(unitPrice)
		f.DiscountAmount = toDecimal(discount)
		f.LineTotal = toDecimal(lineTotal)
		f.Profit = toDecimal(profit)
		if createdAt != nil {
			f.CreatedAt = *createdAt
		}
		return f, err
	})
}

var _ warehouse.Store = (*Store)(nil)
