package warehouse

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrchestratorRunSmallDataset(t *testing.T) {
	store := NewMemoryStore()
	o := NewOrchestrator(smallSource(), store, Options{Now: fixedClock(date(2024, 2, 1))})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Status != RunSuccess {
		t.Fatalf("Expected status success, got %s", summary.Status)
	}
	if summary.RunID == "" {
		t.Error("Expected a run id")
	}
	if summary.HistoryMode != HistorySnapshot {
		t.Errorf("Expected default history mode snapshot, got %s", summary.HistoryMode)
	}
	if len(summary.Tables) != len(BuildOrder) {
		t.Fatalf("Expected %d table results, got %d", len(BuildOrder), len(summary.Tables))
	}
	for i, table := range BuildOrder {
		if summary.Tables[i].Table != table {
			t.Errorf("Expected %s at position %d, got %s", table, i, summary.Tables[i].Table)
		}
	}

	expected := map[string]int64{
		TableDimDate:            2,
		TableDimPaymentMethod:   6,
		TableDimCustomers:       3,
		TableDimProducts:        2,
		TableFactSales:          5,
		TableAggDailySales:      2,
		TableAggMonthlySales:    1,
		TableAggCategorySales:   2,
		TableAggProductPerf:     2,
		TableAggCustomerMetrics: 3,
	}
	if got := summary.RowsWritten(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected rows written %v, got %v", expected, got)
	}
	if summary.DateRange == nil || DateKey(summary.DateRange.Start) != 20240106 || DateKey(summary.DateRange.End) != 20240107 {
		t.Errorf("Expected date range 2024-01-06..2024-01-07, got %+v", summary.DateRange)
	}
}

func TestOrchestratorRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	o := NewOrchestrator(smallSource(), store, Options{Now: fixedClock(date(2024, 2, 1))})

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	first := struct {
		Customers          []DimCustomer
		Facts              []FactSale
		Daily              []DailySales
		Monthly            []MonthlySales
		Categories         []CategorySales
		ProductPerformance []ProductPerformance
		CustomerMetrics    []CustomerMetrics
	}{store.Customers, store.Facts, store.Daily, store.Monthly, store.Categories, store.ProductPerformance, store.CustomerMetrics}

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Customers, store.Customers) {
		t.Error("Expected customer dimension to be identical after a rebuild")
	}
	if !reflect.DeepEqual(first.Facts, store.Facts) {
		t.Error("Expected fact table to be identical after a rebuild")
	}
	if !reflect.DeepEqual(first.Daily, store.Daily) {
		t.Error("Expected daily rollup to be identical after a rebuild")
	}
	if !reflect.DeepEqual(first.Categories, store.Categories) {
		t.Error("Expected category rollup to be identical after a rebuild")
	}
	if !reflect.DeepEqual(first.Monthly, store.Monthly) {
		t.Error("Expected monthly rollup to be identical after a rebuild")
	}
	if !reflect.DeepEqual(first.ProductPerformance, store.ProductPerformance) {
		t.Error("Expected product performance rollup to be identical after a rebuild")
	}
	if !reflect.DeepEqual(first.CustomerMetrics, store.CustomerMetrics) {
		t.Error("Expected customer metrics rollup to be identical after a rebuild")
	}
	if len(first.Monthly) == 0 || len(first.ProductPerformance) == 0 || len(first.CustomerMetrics) == 0 {
		t.Error("Expected every rollup to be populated")
	}
}

func TestOrchestratorThreeDayScenario(t *testing.T) {
	src := smallSource()
	days := []int{1, 1, 2, 3, 3}
	for i := range src.TxnRows {
		src.TxnRows[i].TransactionDate = date(2024, 1, days[i])
	}
	src.ItemRows = append(src.ItemRows, TransactionItem{
		ItemID: "ITEM00006", TransactionID: "TXN00005", ProductID: "PROD0099", Quantity: 1, UnitPrice: dec("12.00"),
	})

	store := NewMemoryStore()
	summary, err := NewOrchestrator(src, store, Options{Now: fixedClock(date(2024, 2, 1))}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Status != RunSuccess {
		t.Fatalf("Expected status success, got %s", summary.Status)
	}

	if len(store.Dates) != 3 {
		t.Errorf("Expected 3 date rows, got %d", len(store.Dates))
	}
	if len(store.Facts) != 5 {
		t.Errorf("Expected 5 facts, got %d", len(store.Facts))
	}
	if summary.Exclusions.MissingProduct != 1 {
		t.Errorf("Expected 1 missing product exclusion, got %d", summary.Exclusions.MissingProduct)
	}
	if summary.Exclusions.Total() != 1 {
		t.Errorf("Expected 1 exclusion in total, got %d", summary.Exclusions.Total())
	}
	if len(store.Daily) > 3 {
		t.Errorf("Expected at most 3 daily rows, got %d", len(store.Daily))
	}

	factSum := decimal.Zero
	for _, f := range store.Facts {
		factSum = factSum.Add(f.LineTotal)
	}
	dailySum := decimal.Zero
	for _, d := range store.Daily {
		dailySum = dailySum.Add(d.TotalSales)
	}
	if !factSum.Equal(dailySum) {
		t.Errorf("Expected daily sales %s to equal fact sales %s", dailySum, factSum)
	}
}

func TestOrchestratorSourceUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	src := smallSource()
	src.Errs = map[string]error{"customers": boom}

	summary, err := NewOrchestrator(src, NewMemoryStore(), Options{}).Run(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
	if summary.Status != RunFailed {
		t.Errorf("Expected status failed, got %s", summary.Status)
	}

	res, ok := summary.Table(TableDimCustomers)
	if !ok || res.Status != TableFailed || res.Error == "" {
		t.Errorf("Expected dim_customers to be reported failed, got %+v", res)
	}
	for _, table := range []string{TableDimProducts, TableFactSales, TableAggDailySales} {
		res, _ := summary.Table(table)
		if res.Status != TableSkipped {
			t.Errorf("Expected %s to be skipped, got %s", table, res.Status)
		}
	}
}

func TestOrchestratorReplaceFailureKeepsPreviousTable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	opts := Options{Now: fixedClock(date(2024, 2, 1))}

	if _, err := NewOrchestrator(smallSource(), store, opts).Run(ctx); err != nil {
		t.Fatalf("Initial run failed: %v", err)
	}
	previous := store.Facts

	src := smallSource()
	src.ItemRows = src.ItemRows[:2]
	store.FailReplace[TableFactSales] = errors.New("could not serialize access")

	summary, err := NewOrchestrator(src, store, opts).Run(ctx)
	if !errors.Is(err, ErrReplaceFailed) {
		t.Fatalf("Expected ErrReplaceFailed, got %v", err)
	}
	var be *BuildError
	if !errors.As(err, &be) || be.Table != TableFactSales {
		t.Errorf("Expected failure attributed to %s, got %v", TableFactSales, err)
	}
	if summary.Status != RunFailed {
		t.Errorf("Expected status failed, got %s", summary.Status)
	}
	if !reflect.DeepEqual(previous, store.Facts) {
		t.Error("Expected fact table to keep its previous content")
	}
}

func TestOrchestratorPartialOnAggregateFailure(t *testing.T) {
	store := NewMemoryStore()
	store.FailReplace[TableAggCategorySales] = errors.New("relation is locked")

	summary, err := NewOrchestrator(smallSource(), store, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected partial run to return no error, got %v", err)
	}
	if summary.Status != RunPartial {
		t.Fatalf("Expected status partial, got %s", summary.Status)
	}
	res, _ := summary.Table(TableAggCategorySales)
	if res.Status != TableFailed {
		t.Errorf("Expected category rollup to fail, got %s", res.Status)
	}
	res, _ = summary.Table(TableAggCustomerMetrics)
	if res.Status != TableSuccess {
		t.Errorf("Expected customer metrics to succeed, got %s", res.Status)
	}
	if len(store.Daily) == 0 || len(store.Monthly) == 0 {
		t.Error("Expected the other rollups to be committed")
	}
}

func TestOrchestratorKeyMissFail(t *testing.T) {
	src := smallSource()
	src.ItemRows = append(src.ItemRows, TransactionItem{
		ItemID: "ITEM00009", TransactionID: "TXN00001", ProductID: "PROD9999",
		Quantity: 1, UnitPrice: dec("1.00"),
	})

	summary, err := NewOrchestrator(src, NewMemoryStore(), Options{KeyMissPolicy: KeyMissFail}).Run(context.Background())
	if !errors.Is(err, ErrDimensionKeyMiss) {
		t.Fatalf("Expected ErrDimensionKeyMiss, got %v", err)
	}
	if summary.Status != RunFailed {
		t.Errorf("Expected status failed, got %s", summary.Status)
	}

	summary, err = NewOrchestrator(src, NewMemoryStore(), Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected drop policy to succeed, got %v", err)
	}
	if summary.Exclusions.MissingProduct != 1 {
		t.Errorf("Expected 1 missing product exclusion, got %+v", summary.Exclusions)
	}
}

func TestOrchestratorEmptySource(t *testing.T) {
	summary, err := NewOrchestrator(&MemorySource{}, NewMemoryStore(), Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Status != RunSuccess {
		t.Errorf("Expected status success, got %s", summary.Status)
	}
	if summary.DateRange != nil {
		t.Errorf("Expected no date range, got %+v", summary.DateRange)
	}
	if rows := summary.RowsWritten()[TableFactSales]; rows != 0 {
		t.Errorf("Expected 0 facts, got %d", rows)
	}
}

func TestOrchestratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewOrchestrator(smallSource(), NewMemoryStore(), Options{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if summary.Status != RunFailed {
		t.Errorf("Expected status failed, got %s", summary.Status)
	}
}

func TestOrchestratorTrueSCD2KeepsFactKeysCurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	src := smallSource()

	opts := Options{HistoryMode: HistoryTrueSCD2, Now: fixedClock(date(2024, 2, 1))}
	if _, err := NewOrchestrator(src, store, opts).Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	src.ProductRows[0].Price = dec("55.00")
	opts.Now = fixedClock(date(2024, 3, 1))
	summary, err := NewOrchestrator(src, store, opts).Run(ctx)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if summary.HistoryMode != HistoryTrueSCD2 {
		t.Errorf("Expected history mode true_scd2, got %s", summary.HistoryMode)
	}
	if len(store.Products) != 3 {
		t.Fatalf("Expected 3 product versions, got %d", len(store.Products))
	}
	for _, f := range store.Facts {
		if f.ProductKey == 1 {
			t.Error("Expected facts to reference the new current product version")
		}
	}
}
