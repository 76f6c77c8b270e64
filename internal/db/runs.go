//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// ErrNoRuns is returned by LatestRun when no build has been recorded.
var ErrNoRuns = errors.New("no warehouse runs recorded")

// RunHistory records warehouse build summaries in etl_runs.
type RunHistory struct {
	db     DB
	schema string
}

// NewRunHistory creates a RunHistory in the named warehouse schema.
func NewRunHistory(db DB, schema string) *RunHistory {
	return &RunHistory{db: db, schema: schema}
}

// SaveRun inserts or updates the summary of a build.
func (h *RunHistory) SaveRun(ctx context.Context, summary *warehouse.RunSummary) error {
	_, err := h.db.Exec(ctx, `
        INSERT INTO `+quoteIdent(h.schema, TableEtlRuns)+` (run_id, started_at, finished_at, status, summary)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (run_id) DO UPDATE SET
            finished_at = EXCLUDED.finished_at,
            status      = EXCLUDED.status,
            summary     = EXCLUDED.summary
    `, summary.RunID, summary.StartedAt, summary.FinishedAt, string(summary.Status), summary)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", summary.RunID, err)
	}

	logging.Debug().
		Str("run_id", summary.RunID).
		Str("status", string(summary.Status)).
		Msg("Saved run summary")
	return nil
}

// ListRuns returns up to limit summaries, newest first.
func (h *RunHistory) ListRuns(ctx context.Context, limit int) ([]warehouse.RunSummary, error) {
	rows, err := h.db.Query(ctx, `
        SELECT summary FROM `+quoteIdent(h.schema, TableEtlRuns)+`
        ORDER BY started_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.RunSummary, error) {
		var s warehouse.RunSummary
		err := row.Scan(&s)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent summary, or ErrNoRuns.
func (h *RunHistory) LatestRun(ctx context.Context) (*warehouse.RunSummary, error) {
	var s warehouse.RunSummary
	err := h.db.QueryRow(ctx, `
        SELECT summary FROM `+quoteIdent(h.schema, TableEtlRuns)+`
        ORDER BY started_at DESC
        LIMIT 1
    `).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return &s, nil
}
