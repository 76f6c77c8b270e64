//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

var (
	buildHistoryMode   string
	buildKeyMissPolicy string
	buildDryRun        bool
	buildReport        string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the warehouse from the production schema",
	Long: `Rebuild every warehouse table from the production schema: the date,
payment method, customer and product dimensions, fact_sales, and the
daily, monthly, category, product performance and customer metrics
aggregates. Each table is replaced in its own transaction.

The command exits non-zero when a dimension or the fact table fails. A
failed aggregate leaves the run partial and is reported as a warning.

History modes:
  snapshot  - dimensions hold the current source state (default)
  true_scd2 - changed customers and products get a new version

Example:
  pgedge-salesmart build
  pgedge-salesmart build --history-mode true_scd2 --report run.json
  pgedge-salesmart build --dry-run`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildHistoryMode, "history-mode", "",
		"dimension history mode: snapshot or true_scd2")
	buildCmd.Flags().StringVar(&buildKeyMissPolicy, "key-miss-policy", "",
		"unresolved fact keys: drop or fail")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false,
		"build into memory and print the summary without writing the warehouse")
	buildCmd.Flags().StringVar(&buildReport, "report", "",
		"write the JSON run summary to this file")
}

func runBuild(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if buildHistoryMode != "" {
		cfg.Warehouse.HistoryMode = buildHistoryMode
	}
	if buildKeyMissPolicy != "" {
		cfg.Warehouse.KeyMissPolicy = buildKeyMissPolicy
	}
	if buildReport != "" {
		cfg.Warehouse.ReportPath = buildReport
	}

	if err := cfg.ValidateBuild(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	s := schemas()
	source := db.NewSource(pool, s.Production)

	var store warehouse.Store = db.NewStore(pool, s.Warehouse)
	if buildDryRun {
		store, err = dryRunStore(ctx, store)
		if err != nil {
			return err
		}
	}

	summary, runErr := warehouse.NewOrchestrator(source, store, cfg.WarehouseOptions()).Run(ctx)

	if !buildDryRun {
		// Record the outcome even when the run was cancelled.
		saveCtx := context.WithoutCancel(ctx)
		if err := db.NewRunHistory(pool, s.Warehouse).SaveRun(saveCtx, summary); err != nil {
			logging.Error().Err(err).Str("run_id", summary.RunID).Msg("Failed to record run")
		}
	}

	if cfg.Warehouse.ReportPath != "" {
		if err := writeReport(cfg.Warehouse.ReportPath, summary); err != nil {
			logging.Error().Err(err).Str("path", cfg.Warehouse.ReportPath).Msg("Failed to write report")
		}
	}

	printSummary(os.Stdout, summary, buildDryRun)

	switch summary.Status {
	case warehouse.RunFailed:
		return fmt.Errorf("warehouse build failed: %w", runErr)
	case warehouse.RunPartial:
		logging.Warn().Str("run_id", summary.RunID).Msg("Warehouse build was partial; some aggregates failed")
	}
	return nil
}

// dryRunStore returns an in-memory store primed with the current customer
// and product dimensions so true_scd2 merges see the real history.
func dryRunStore(ctx context.Context, real warehouse.Store) (*warehouse.MemoryStore, error) {
	mem := warehouse.NewMemoryStore()
	if cfg.Warehouse.HistoryMode != string(warehouse.HistoryTrueSCD2) {
		return mem, nil
	}

	customers, err := real.DimCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer dimension: %w", err)
	}
	products, err := real.DimProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read product dimension: %w", err)
	}
	if err := mem.ReplaceDimCustomers(ctx, customers); err != nil {
		return nil, err
	}
	if err := mem.ReplaceDimProducts(ctx, products); err != nil {
		return nil, err
	}
	return mem, nil
}
