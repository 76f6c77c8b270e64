package cli

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent warehouse builds",
	Long: `List the most recent warehouse builds recorded in etl_runs, newest
first.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if runsLimit < 1 {
		return fmt.Errorf("limit must be at least 1")
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	runs, err := db.NewRunHistory(pool, cfg.Warehouse.WarehouseSchema).ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		pterm.Info.Println("No warehouse builds recorded yet")
		return nil
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(runsTable(runs)).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, table)
	return nil
}
