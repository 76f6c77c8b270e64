package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/api"
	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

const shutdownTimeout = 10 * time.Second

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve warehouse analytics over HTTP",
	Long: `Serve read-only JSON endpoints over the warehouse:

  GET /health
  GET /analytics/summary
  GET /analytics/top-products?limit=10
  GET /analytics/monthly-trend
  GET /analytics/category-summary
  GET /analytics/daily-sales?start=2024-01-01&end=2024-01-31
  GET /runs/latest
  GET /runs?limit=20

Example:
  pgedge-salesmart serve --listen :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.ConnectWithMaxConns(ctx, cfg.Connection, cfg.Serve.MaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	schema := cfg.Warehouse.WarehouseSchema
	router := api.NewRouter(
		db.NewAnalytics(pool, schema),
		db.NewRunHistory(pool, schema),
		pool,
		cfg.Serve.QueryTimeout,
	)

	srv := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("listen", cfg.Serve.Listen).Msg("Serving analytics API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logging.Info().Msg("Shutting down analytics API")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
