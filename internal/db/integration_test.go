//go:build integration

// Integration tests for the PostgreSQL source, store and readers.
// Run with: go test -tags=integration ./internal/db/...
// Set PGEDGE_TEST_CONN to override the connection string.

package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/testutil"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

var testSchemas = db.Schemas{Production: "production", Warehouse: "warehouse"}

const seedSQL = `
INSERT INTO production.customers (customer_id, first_name, last_name, email, city, state, country, age_group, registration_date) VALUES
    ('CUST0001', 'Ada', 'Lovelace', 'ada@example.com', 'Austin', 'TX', 'USA', '26-35', '2023-05-01'),
    ('CUST0002', 'Alan', 'Turing', 'alan@example.com', 'Boston', 'MA', 'USA', '36-45', '2023-06-01');

INSERT INTO production.products (product_id, product_name, category, sub_category, brand, price, cost) VALUES
    ('PROD0001', 'Kettle', 'Home & Kitchen', 'Appliances', 'Acme', 40.00, 25.00),
    ('PROD0002', 'Headphones', 'Electronics', 'Audio', 'Sonic', 150.00, 90.00);

INSERT INTO production.transactions (transaction_id, customer_id, transaction_date, payment_method) VALUES
    ('TXN00001', 'CUST0001', '2024-01-06', 'Credit Card'),
    ('TXN00002', 'CUST0002', '2024-01-07', NULL),
    ('TXN00003', 'CUST0009', '2024-01-07', 'UPI');

INSERT INTO production.transaction_items (item_id, transaction_id, product_id, quantity, unit_price, discount_percentage) VALUES
    ('ITEM00001', 'TXN00001', 'PROD0001', 2, 40.00, 10.00),
    ('ITEM00002', 'TXN00001', 'PROD0002', 1, 150.00, NULL),
    ('ITEM00003', 'TXN00002', 'PROD0002', 1, 150.00, 3.00),
    ('ITEM00004', 'TXN00003', 'PROD0001', 1, 40.00, 0),
    ('ITEM00005', 'TXN09999', 'PROD0001', 1, 40.00, 0);
`

func setup(t *testing.T) (context.Context, db.DB) {
	t.Helper()
	pool := testutil.SetupTestDB(t, "db")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	if err := db.CreateSchema(ctx, pool, testSchemas, false); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	if _, err := pool.Exec(ctx, seedSQL); err != nil {
		t.Fatalf("Failed to seed production data: %v", err)
	}
	return ctx, pool
}

func TestSourceReads(t *testing.T) {
	ctx, conn := setup(t)
	src := db.NewSource(conn, testSchemas.Production)

	customers, err := src.Customers(ctx)
	if err != nil {
		t.Fatalf("Failed to read customers: %v", err)
	}
	if len(customers) != 2 || customers[0].CustomerID != "CUST0001" {
		t.Errorf("Expected 2 customers starting with CUST0001, got %+v", customers)
	}

	items, err := src.TransactionItems(ctx)
	if err != nil {
		t.Fatalf("Failed to read items: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(items))
	}
	if items[1].DiscountPercentage != nil {
		t.Errorf("Expected nil discount for ITEM00002, got %v", items[1].DiscountPercentage)
	}
	if !items[0].UnitPrice.Equal(decimal.RequireFromString("40")) {
		t.Errorf("Expected unit price 40, got %s", items[0].UnitPrice)
	}

	dr, err := src.TransactionDateRange(ctx)
	if err != nil {
		t.Fatalf("Failed to read date range: %v", err)
	}
	if !dr.Valid || warehouse.DateKey(dr.Start) != 20240106 || warehouse.DateKey(dr.End) != 20240107 {
		t.Errorf("Expected range 20240106..20240107, got %+v", dr)
	}
}

func TestBuildAgainstPostgres(t *testing.T) {
	ctx, conn := setup(t)
	src := db.NewSource(conn, testSchemas.Production)
	store := db.NewStore(conn, testSchemas.Warehouse)

	orch := warehouse.NewOrchestrator(src, store, warehouse.Options{})
	summary, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if summary.Status != warehouse.RunSuccess {
		t.Fatalf("Expected success, got %s: %+v", summary.Status, summary.Tables)
	}

	rows := summary.RowsWritten()
	if rows[warehouse.TableFactSales] != 3 {
		t.Errorf("Expected 3 fact rows, got %d", rows[warehouse.TableFactSales])
	}
	if summary.Exclusions.OrphanItems != 1 || summary.Exclusions.MissingCustomer != 1 {
		t.Errorf("Expected 1 orphan and 1 missing customer, got %+v", summary.Exclusions)
	}

	facts, err := store.FactSales(ctx)
	if err != nil {
		t.Fatalf("Failed to read facts: %v", err)
	}
	total := decimal.Zero
	for _, f := range facts {
		total = total.Add(f.LineTotal)
	}
	if !total.Equal(decimal.RequireFromString("380.00")) {
		t.Errorf("Expected fact total 380.00, got %s", total)
	}

	// A second build must produce the same warehouse.
	again, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Second build failed: %v", err)
	}
	for table, n := range rows {
		if again.RowsWritten()[table] != n {
			t.Errorf("Expected %s to have %d rows on rebuild, got %d", table, n, again.RowsWritten()[table])
		}
	}

	history := db.NewRunHistory(conn, testSchemas.Warehouse)
	if err := history.SaveRun(ctx, summary); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if err := history.SaveRun(ctx, again); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	latest, err := history.LatestRun(ctx)
	if err != nil {
		t.Fatalf("Failed to read latest run: %v", err)
	}
	if latest.RunID != again.RunID {
		t.Errorf("Expected latest run %s, got %s", again.RunID, latest.RunID)
	}
	if latest.DateRange == nil || !latest.DateRange.Valid {
		t.Errorf("Expected the stored run to keep its date range, got %+v", latest.DateRange)
	}
	runs, err := history.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(runs))
	}

	analytics := db.NewAnalytics(conn, testSchemas.Warehouse)
	sum, err := analytics.Summary(ctx)
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	if sum.TotalTransactions != 2 || !sum.TotalRevenue.Equal(decimal.RequireFromString("380.00")) {
		t.Errorf("Expected 2 transactions and 380.00 revenue, got %+v", sum)
	}

	top, err := analytics.TopProducts(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to read top products: %v", err)
	}
	if len(top) != 1 || top[0].ProductID != "PROD0002" {
		t.Errorf("Expected PROD0002 as top product, got %+v", top)
	}

	daily, err := analytics.DailySales(ctx,
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Failed to read daily sales: %v", err)
	}
	if len(daily) != 1 || daily[0].Date != "2024-01-07" {
		t.Errorf("Expected one day 2024-01-07, got %+v", daily)
	}
}

func TestLatestRunEmpty(t *testing.T) {
	ctx, conn := setup(t)
	_, err := db.NewRunHistory(conn, testSchemas.Warehouse).LatestRun(ctx)
	if !errors.Is(err, db.ErrNoRuns) {
		t.Errorf("Expected ErrNoRuns, got %v", err)
	}
}

func TestMetadata(t *testing.T) {
	ctx, conn := setup(t)

	if err := db.SaveMetadata(ctx, conn, testSchemas.Production, map[string]string{db.MetaCustomers: "2"}); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}
	meta, err := db.GetAllMetadata(ctx, conn, testSchemas.Production)
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if meta[db.MetaCustomers] != "2" {
		t.Errorf("Expected customers '2', got %q", meta[db.MetaCustomers])
	}
	if meta[db.MetaVersion] == "" || meta[db.MetaSeededAt] == "" {
		t.Errorf("Expected version and seeded_at, got %v", meta)
	}
}
