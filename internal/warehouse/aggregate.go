package warehouse

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// errNoProductDimension is returned by the category rollup when there are
// facts to attribute but no product dimension to attribute them to.
var errNoProductDimension = errors.New("product dimension is empty")

// accumulator collects SalesMeasures for one group.
type accumulator struct {
	transactions map[string]struct{}
	customers    map[int64]struct{}
	quantity     int64
	sales        decimal.Decimal
	profit       decimal.Decimal
}

func newAccumulator() *accumulator {
	return &accumulator{
		transactions: make(map[string]struct{}),
		customers:    make(map[int64]struct{}),
	}
}

func (a *accumulator) add(f *FactSale) {
	a.transactions[f.TransactionID] = struct{}{}
	a.customers[f.CustomerKey] = struct{}{}
	a.quantity += int64(f.Quantity)
	a.sales = a.sales.Add(f.LineTotal)
	a.profit = a.profit.Add(f.Profit)
}

func (a *accumulator) measures() SalesMeasures {
	return SalesMeasures{
		TotalTransactions: int64(len(a.transactions)),
		TotalQuantity:     a.quantity,
		TotalSales:        RoundMoney(a.sales),
		TotalProfit:       RoundMoney(a.profit),
		UniqueCustomers:   int64(len(a.customers)),
	}
}

// rollup groups facts by key and returns the groups sorted by key.
func rollup[K cmp.Ordered](facts []FactSale, key func(*FactSale) (K, bool)) ([]K, map[K]*accumulator) {
	groups := make(map[K]*accumulator)
	var keys []K
	for i := range facts {
		k, ok := key(&facts[i])
		if !ok {
			continue
		}
		acc, exists := groups[k]
		if !exists {
			acc = newAccumulator()
			groups[k] = acc
			keys = append(keys, k)
		}
		acc.add(&facts[i])
	}
	slices.Sort(keys)
	return keys, groups
}

// DailyRollup sums facts per date_key.
func DailyRollup(facts []FactSale) []DailySales {
	keys, groups := rollup(facts, func(f *FactSale) (int, bool) { return f.DateKey, true })
	rows := make([]DailySales, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, DailySales{DateKey: k, SalesMeasures: groups[k].measures()})
	}
	return rows
}

// MonthlyRollup sums facts per calendar month.
func MonthlyRollup(facts []FactSale) []MonthlySales {
	keys, groups := rollup(facts, func(f *FactSale) (int, bool) { return f.DateKey / 100, true })
	rows := make([]MonthlySales, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, MonthlySales{Year: k / 100, Month: k % 100, SalesMeasures: groups[k].measures()})
	}
	return rows
}

// CategoryRollup sums facts per product category. Facts whose product key
// is absent from the dimension are not attributed. It fails when there are
// facts but the product dimension is empty.
func CategoryRollup(facts []FactSale, products []DimProduct) ([]CategorySales, error) {
	if len(facts) > 0 && len(products) == 0 {
		return nil, errNoProductDimension
	}
	categories := make(map[int64]string, len(products))
	for _, p := range products {
		categories[p.ProductKey] = p.Category
	}
	keys, groups := rollup(facts, func(f *FactSale) (string, bool) {
		c, ok := categories[f.ProductKey]
		return c, ok
	})
	rows := make([]CategorySales, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, CategorySales{Category: k, SalesMeasures: groups[k].measures()})
	}
	return rows, nil
}

// ProductPerformanceRollup sums facts per product key. The average discount
// percentage is taken over lines with a non-zero gross amount.
func ProductPerformanceRollup(facts []FactSale) []ProductPerformance {
	type perf struct {
		quantity    int64
		sales       decimal.Decimal
		profit      decimal.Decimal
		discountSum decimal.Decimal
		discounted  int64
	}
	groups := make(map[int64]*perf)
	var keys []int64
	for i := range facts {
		f := &facts[i]
		p, ok := groups[f.ProductKey]
		if !ok {
			p = &perf{}
			groups[f.ProductKey] = p
			keys = append(keys, f.ProductKey)
		}
		p.quantity += int64(f.Quantity)
		p.sales = p.sales.Add(f.LineTotal)
		p.profit = p.profit.Add(f.Profit)
		if gross := f.UnitPrice.Mul(decimal.NewFromInt(int64(f.Quantity))); !gross.IsZero() {
			p.discountSum = p.discountSum.Add(f.DiscountAmount.Div(gross).Mul(hundred))
			p.discounted++
		}
	}
	slices.Sort(keys)

	rows := make([]ProductPerformance, 0, len(keys))
	for _, k := range keys {
		p := groups[k]
		avg := decimal.Zero
		if p.discounted > 0 {
			avg = RoundMoney(p.discountSum.Div(decimal.NewFromInt(p.discounted)))
		}
		rows = append(rows, ProductPerformance{
			ProductKey:            k,
			TotalQuantity:         p.quantity,
			TotalSales:            RoundMoney(p.sales),
			TotalProfit:           RoundMoney(p.profit),
			AvgDiscountPercentage: avg,
		})
	}
	return rows
}

// CustomerMetricsRollup sums facts per customer key. The average order
// value is total spent over distinct transactions.
func CustomerMetricsRollup(facts []FactSale) []CustomerMetrics {
	type metrics struct {
		transactions map[string]struct{}
		spent        decimal.Decimal
		lastDateKey  int
	}
	groups := make(map[int64]*metrics)
	var keys []int64
	for i := range facts {
		f := &facts[i]
		m, ok := groups[f.CustomerKey]
		if !ok {
			m = &metrics{transactions: make(map[string]struct{})}
			groups[f.CustomerKey] = m
			keys = append(keys, f.CustomerKey)
		}
		m.transactions[f.TransactionID] = struct{}{}
		m.spent = m.spent.Add(f.LineTotal)
		m.lastDateKey = max(m.lastDateKey, f.DateKey)
	}
	slices.Sort(keys)

	rows := make([]CustomerMetrics, 0, len(keys))
	for _, k := range keys {
		m := groups[k]
		n := int64(len(m.transactions))
		rows = append(rows, CustomerMetrics{
			CustomerKey:       k,
			TotalTransactions: n,
			TotalSpent:        RoundMoney(m.spent),
			AvgOrderValue:     RoundMoney(m.spent.Div(decimal.NewFromInt(n))),
			LastPurchaseDate:  DateFromKey(m.lastDateKey),
		})
	}
	return rows
}

// AggregateResult is the outcome of one rollup table.
type AggregateResult struct {
	Table    string
	Rows     int64
	Duration time.Duration
	Err      error
}

// BuildAggregates rebuilds every rollup from the current fact table. Each
// rollup commits independently; a failure in one does not stop the others.
// The returned error is non-nil only when the fact table itself cannot be
// read, in which case no rollup runs.
func (b *Builder) BuildAggregates(ctx context.Context) ([]AggregateResult, error) {
	facts, err := b.store.FactSales(ctx)
	if err != nil {
		return nil, newBuildError(TableFactSales, StageAggregate, ErrAggregateFailed, err)
	}

	steps := []struct {
		table string
		run   func() (int, error)
	}{
		{TableAggDailySales, func() (int, error) {
			rows := DailyRollup(facts)
			return len(rows), b.store.ReplaceDailySales(ctx, rows)
		}},
		{TableAggMonthlySales, func() (int, error) {
			rows := MonthlyRollup(facts)
			return len(rows), b.store.ReplaceMonthlySales(ctx, rows)
		}},
		{TableAggCategorySales, func() (int, error) {
			products, err := b.store.DimProducts(ctx)
			if err != nil {
				return 0, err
			}
			rows, err := CategoryRollup(facts, products)
			if err != nil {
				return 0, err
			}
			return len(rows), b.store.ReplaceCategorySales(ctx, rows)
		}},
		{TableAggProductPerf, func() (int, error) {
			rows := ProductPerformanceRollup(facts)
			return len(rows), b.store.ReplaceProductPerformance(ctx, rows)
		}},
		{TableAggCustomerMetrics, func() (int, error) {
			rows := CustomerMetricsRollup(facts)
			return len(rows), b.store.ReplaceCustomerMetrics(ctx, rows)
		}},
	}

	results := make([]AggregateResult, 0, len(steps))
	for _, step := range steps {
		start := time.Now()
		var n int
		err := ctx.Err()
		if err == nil {
			n, err = step.run()
		}
		res := AggregateResult{Table: step.table, Duration: time.Since(start)}
		if err != nil {
			res.Err = newBuildError(step.table, StageAggregate, ErrAggregateFailed, err)
			logging.Error().
				Err(err).
				Str("table", step.table).
				Msg("Aggregate failed")
		} else {
			res.Rows = int64(n)
			logging.Info().
				Str("table", step.table).
				Int("rows", n).
				Msg("Built aggregate")
		}
		results = append(results, res)
	}
	return results, nil
}
