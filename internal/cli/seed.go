package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/datagen"
	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

var (
	seedCustomers    int
	seedProducts     int
	seedTransactions int
	seedStartDate    string
	seedEndDate      string
	seedSeed         uint64
	seedTruncate     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the production schema with synthetic data",
	Long: `Generate customers, products, transactions and line items and load
them into the production schema with COPY. The same seed always produces
the same data set.

Example:
  pgedge-salesmart seed --customers 1000 --products 200 --transactions 5000 --truncate`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCustomers, "customers", 0, "number of customers")
	seedCmd.Flags().IntVar(&seedProducts, "products", 0, "number of products")
	seedCmd.Flags().IntVar(&seedTransactions, "transactions", 0, "number of transactions")
	seedCmd.Flags().StringVar(&seedStartDate, "start-date", "", "first transaction date (YYYY-MM-DD)")
	seedCmd.Flags().StringVar(&seedEndDate, "end-date", "", "last transaction date (YYYY-MM-DD)")
	seedCmd.Flags().Uint64Var(&seedSeed, "seed", 0, "random seed")
	seedCmd.Flags().BoolVar(&seedTruncate, "truncate", false, "empty the production tables first")
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if seedCustomers > 0 {
		cfg.Seed.Customers = seedCustomers
	}
	if seedProducts > 0 {
		cfg.Seed.Products = seedProducts
	}
	if cmd.Flags().Changed("transactions") {
		cfg.Seed.Transactions = seedTransactions
	}
	if seedStartDate != "" {
		cfg.Seed.StartDate = seedStartDate
	}
	if seedEndDate != "" {
		cfg.Seed.EndDate = seedEndDate
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed.Seed = seedSeed
	}
	if seedTruncate {
		cfg.Seed.Truncate = true
	}

	if err := cfg.ValidateSeed(); err != nil {
		return err
	}
	start, end, err := cfg.Seed.DateRange()
	if err != nil {
		return err
	}

	ds, err := datagen.Generate(datagen.Params{
		Customers:    cfg.Seed.Customers,
		Products:     cfg.Seed.Products,
		Transactions: cfg.Seed.Transactions,
		Start:        start,
		End:          end,
		Seed:         cfg.Seed.Seed,
	})
	if err != nil {
		return err
	}

	logging.Info().
		Int("customers", len(ds.Customers)).
		Int("products", len(ds.Products)).
		Int("transactions", len(ds.Transactions)).
		Int("items", len(ds.Items)).
		Uint64("seed", cfg.Seed.Seed).
		Msg("Generated data set")

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	production := cfg.Warehouse.SourceSchema
	exists, err := db.SchemaExists(ctx, pool, production)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("schema %q does not exist; run 'pgedge-salesmart init' first", production)
	}

	loader := datagen.NewLoader(pool, production, datagen.DefaultBatchConfig())
	if _, err := loader.Load(ctx, ds, cfg.Seed.Truncate); err != nil {
		return err
	}

	if err := db.SaveMetadata(ctx, pool, production, ds.Metadata(cfg.Seed.Seed, start, end)); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().Str("schema", production).Msg("Seeding complete")
	return nil
}
