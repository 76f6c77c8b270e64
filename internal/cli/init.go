package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the production and warehouse schemas",
	Long: `Create the production and warehouse schemas, their tables and the
etl_runs history table. Existing objects are left in place unless
--drop-existing is given.

Example:
  pgedge-salesmart init --connection "postgres://..."`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop both schemas and all their data before creating them")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
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
	if err := db.CreateSchema(ctx, pool, s, initDropExisting); err != nil {
		return err
	}

	logging.Info().
		Str("production", s.Production).
		Str("warehouse", s.Warehouse).
		Msg("Schema initialization complete")
	return nil
}
