package warehouse

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// Exclusions counts line items left out of fact_sales. A row is counted
// once, under the first unresolved key in customer, product, date, payment
// method order.
type Exclusions struct {
	OrphanItems          int64 `json:"orphan_items"`
	MissingCustomer      int64 `json:"missing_customer"`
	MissingProduct       int64 `json:"missing_product"`
	MissingDate          int64 `json:"missing_date"`
	MissingPaymentMethod int64 `json:"missing_payment_method"`
}

// KeyMisses is the number of rows dropped for an unresolved dimension key.
func (e Exclusions) KeyMisses() int64 {
	return e.MissingCustomer + e.MissingProduct + e.MissingDate + e.MissingPaymentMethod
}

// Total is every excluded row, orphans included.
func (e Exclusions) Total() int64 {
	return e.OrphanItems + e.KeyMisses()
}

// FactInput is everything the fact builder joins.
type FactInput struct {
	Items          []TransactionItem
	Transactions   []Transaction
	Products       []Product
	Customers      []DimCustomer
	DimProducts    []DimProduct
	PaymentMethods []DimPaymentMethod
	Dates          []DimDate
}

// KeyMissError describes the first unresolved key under the fail policy.
// It unwraps to ErrDimensionKeyMiss.
type KeyMissError struct {
	Dimension string
	Value     string
	ItemID    string
}

func (e *KeyMissError) Error() string {
	return fmt.Sprintf("item %s: no current %s for %q", e.ItemID, e.Dimension, e.Value)
}

func (e *KeyMissError) Unwrap() error {
	return ErrDimensionKeyMiss
}

// FactRows joins line items to their transaction and the current dimension
// rows and derives the measures. Output is ordered by transaction and item
// id and keyed 1..n. With KeyMissFail the first unresolved key is returned
// as a *KeyMissError.
func FactRows(in FactInput, policy KeyMissPolicy) ([]FactSale, Exclusions, error) {
	var ex Exclusions

	txns := make(map[string]*Transaction, len(in.Transactions))
	for i := range in.Transactions {
		t := &in.Transactions[i]
		if _, ok := txns[t.TransactionID]; !ok {
			txns[t.TransactionID] = t
		}
	}
	costs := make(map[string]decimal.Decimal, len(in.Products))
	for _, p := range in.Products {
		if _, ok := costs[p.ProductID]; !ok {
			costs[p.ProductID] = p.Cost
		}
	}
	customerKeys := make(map[string]int64, len(in.Customers))
	for _, c := range in.Customers {
		if c.IsCurrent {
			customerKeys[c.CustomerID] = c.CustomerKey
		}
	}
	productKeys := make(map[string]int64, len(in.DimProducts))
	for _, p := range in.DimProducts {
		if p.IsCurrent {
			productKeys[p.ProductID] = p.ProductKey
		}
	}
	paymentKeys := make(map[string]int64, len(in.PaymentMethods))
	for _, pm := range in.PaymentMethods {
		paymentKeys[pm.Name] = pm.PaymentMethodKey
	}
	dates := make(map[int]bool, len(in.Dates))
	for _, d := range in.Dates {
		dates[d.DateKey] = true
	}

	rows := make([]FactSale, 0, len(in.Items))
	for _, item := range in.Items {
		txn, ok := txns[item.TransactionID]
		if !ok {
			ex.OrphanItems++
			continue
		}

		miss := func(counter *int64, dimension, value string) error {
			if policy == KeyMissFail {
				return &KeyMissError{Dimension: dimension, Value: value, ItemID: item.ItemID}
			}
			*counter++
			return nil
		}

		customerKey, ok := customerKeys[txn.CustomerID]
		if !ok {
			if err := miss(&ex.MissingCustomer, "customer", txn.CustomerID); err != nil {
				return nil, ex, err
			}
			continue
		}
		productKey, ok := productKeys[item.ProductID]
		if !ok {
			if err := miss(&ex.MissingProduct, "product", item.ProductID); err != nil {
				return nil, ex, err
			}
			continue
		}
		cost, ok := costs[item.ProductID]
		if !ok {
			if err := miss(&ex.MissingProduct, "product", item.ProductID); err != nil {
				return nil, ex, err
			}
			continue
		}
		dateKey := DateKey(txn.TransactionDate)
		if !dates[dateKey] {
			if err := miss(&ex.MissingDate, "date", fmt.Sprint(dateKey)); err != nil {
				return nil, ex, err
			}
			continue
		}
		var paymentKey *int64
		if txn.PaymentMethod != nil && *txn.PaymentMethod != "" {
			key, ok := paymentKeys[*txn.PaymentMethod]
			if !ok {
				if err := miss(&ex.MissingPaymentMethod, "payment method", *txn.PaymentMethod); err != nil {
					return nil, ex, err
				}
				continue
			}
			paymentKey = &key
		}

		lineTotal := LineTotal(item.UnitPrice, item.Quantity)
		discount := decimal.Zero
		if item.DiscountPercentage != nil {
			discount = DiscountAmount(lineTotal, *item.DiscountPercentage)
		}

		rows = append(rows, FactSale{
			DateKey:          dateKey,
			CustomerKey:      customerKey,
			ProductKey:       productKey,
			PaymentMethodKey: paymentKey,
			TransactionID:    item.TransactionID,
			ItemID:           item.ItemID,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			DiscountAmount:   discount,
			LineTotal:        lineTotal,
			Profit:           Profit(lineTotal, cost, item.Quantity),
			CreatedAt:        txn.CreatedAt,
		})
	}

	slices.SortStableFunc(rows, func(a, b FactSale) int {
		return cmp.Or(
			cmp.Compare(a.TransactionID, b.TransactionID),
			cmp.Compare(a.ItemID, b.ItemID),
		)
	})
	for i := range rows {
		rows[i].SalesKey = int64(i + 1)
	}
	return rows, ex, nil
}

// BuildFactSales rebuilds fact_sales from the source and the current
// dimension tables.
func (b *Builder) BuildFactSales(ctx context.Context) (int64, Exclusions, error) {
	var in FactInput
	var err error

	if in.Items, err = b.source.TransactionItems(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}
	if in.Transactions, err = b.source.Transactions(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}
	if in.Products, err = b.source.Products(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}
	if in.Customers, err = b.store.DimCustomers(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}
	if in.DimProducts, err = b.store.DimProducts(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}
	if in.PaymentMethods, err = b.store.DimPaymentMethods(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}
	if in.Dates, err = b.store.DimDates(ctx); err != nil {
		return 0, Exclusions{}, newBuildError(TableFactSales, StageFact, ErrSourceUnavailable, err)
	}

	rows, ex, err := FactRows(in, b.opts.KeyMissPolicy)
	if err != nil {
		return 0, ex, newBuildError(TableFactSales, StageFact, ErrDimensionKeyMiss, err)
	}

	if ex.Total() > 0 {
		logging.Warn().
			Str("table", TableFactSales).
			Int64("orphan_items", ex.OrphanItems).
			Int64("missing_customer", ex.MissingCustomer).
			Int64("missing_product", ex.MissingProduct).
			Int64("missing_date", ex.MissingDate).
			Int64("missing_payment_method", ex.MissingPaymentMethod).
			Msg("Excluded line items from fact table")
	}

	if err := b.store.ReplaceFactSales(ctx, rows); err != nil {
		return 0, ex, newBuildError(TableFactSales, StageFact, ErrReplaceFailed, err)
	}

	logging.Info().
		Str("table", TableFactSales).
		Int("rows", len(rows)).
		Int("source_rows", len(in.Items)).
		Msg("Built fact table")
	return int64(len(rows)), ex, nil
}
