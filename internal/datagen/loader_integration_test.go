//go:build integration

package datagen_test

import (
	"context"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/datagen"
	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/testutil"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

func TestSeedAndBuild(t *testing.T) {
	pool := testutil.SetupTestDB(t, "seed")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	schemas := db.Schemas{Production: "production", Warehouse: "warehouse"}
	if err := db.CreateSchema(ctx, pool, schemas, false); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	ds, err := datagen.Generate(datagen.Params{
		Customers:    40,
		Products:     15,
		Transactions: 300,
		Start:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Seed:         42,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	loader := datagen.NewLoader(pool, schemas.Production, datagen.BatchInsertConfig{BatchSize: 100, ProgressInterval: 100})
	written, err := loader.Load(ctx, ds, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if written[db.TableTransactionItems] != int64(len(ds.Items)) {
		t.Errorf("Expected %d items written, got %d", len(ds.Items), written[db.TableTransactionItems])
	}

	// Loading again without truncate collides on primary keys.
	if _, err := loader.Load(ctx, ds, false); err == nil {
		t.Error("Expected duplicate load to fail")
	}
	// With truncate it replaces the data.
	if _, err := loader.Load(ctx, ds, true); err != nil {
		t.Fatalf("Truncating load failed: %v", err)
	}

	summary, err := warehouse.NewOrchestrator(
		db.NewSource(pool, schemas.Production),
		db.NewStore(pool, schemas.Warehouse),
		warehouse.Options{},
	).Run(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if summary.Status != warehouse.RunSuccess {
		t.Fatalf("Expected success, got %s", summary.Status)
	}
	if summary.Exclusions.Total() != 0 {
		t.Errorf("Expected no exclusions for generated data, got %+v", summary.Exclusions)
	}
	if got := summary.RowsWritten()[warehouse.TableFactSales]; got != int64(len(ds.Items)) {
		t.Errorf("Expected %d fact rows, got %d", len(ds.Items), got)
	}
	if got := summary.RowsWritten()[warehouse.TableDimPaymentMethod]; got != int64(len(datagen.PaymentMethods)) {
		t.Errorf("Expected %d payment methods, got %d", len(datagen.PaymentMethods), got)
	}
}
