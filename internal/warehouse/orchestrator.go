//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// RunStatus is the overall outcome of a build.
type RunStatus string

const (
	// RunSuccess means every table was rebuilt.
	RunSuccess RunStatus = "success"
	// RunPartial means dimensions and facts were rebuilt but at least one
	// aggregate failed.
	RunPartial RunStatus = "partial"
	// RunFailed means a dimension or the fact table failed and the build
	// was aborted.
	RunFailed RunStatus = "failed"
)

// TableStatus is the outcome of one table.
type TableStatus string

// Table outcomes.
const (
	TableSuccess TableStatus = "success"
	TableFailed  TableStatus = "failed"
	TableSkipped TableStatus = "skipped"
)

// TableResult records what happened to one warehouse table.
type TableResult struct {
	Table       string      `json:"table"`
	Stage       Stage       `json:"stage"`
	Status      TableStatus `json:"status"`
	RowsWritten int64       `json:"rows_written"`
	DurationMs  int64       `json:"duration_ms"`
	Error       string      `json:"error,omitempty"`
}

// RunSummary is the structured result of a warehouse build.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Status      RunStatus     `json:"status"`
	HistoryMode HistoryMode   `json:"history_mode"`
	DateRange   *DateRange    `json:"date_range,omitempty"`
	Tables      []TableResult `json:"tables"`
	Exclusions  Exclusions    `json:"exclusions"`
}

// RowsWritten maps each successfully built table to its row count.
func (s *RunSummary) RowsWritten() map[string]int64 {
	out := make(map[string]int64, len(s.Tables))
	for _, t := range s.Tables {
		if t.Status == TableSuccess {
			out[t.Table] = t.RowsWritten
		}
	}
	return out
}

// Table returns the result for the named table.
func (s *RunSummary) Table(name string) (TableResult, bool) {
	for _, t := range s.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableResult{}, false
}

// BuildOrder lists the warehouse tables in the order they are rebuilt.
var BuildOrder = []string{
	TableDimDate,
	TableDimPaymentMethod,
	TableDimCustomers,
	TableDimProducts,
	TableFactSales,
	TableAggDailySales,
	TableAggMonthlySales,
	TableAggCategorySales,
	TableAggProductPerf,
	TableAggCustomerMetrics,
}

// Orchestrator sequences the builders for one warehouse build.
type Orchestrator struct {
	builder *Builder
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(source Source, store Store, opts Options) *Orchestrator {
	return &Orchestrator{builder: NewBuilder(source, store, opts)}
}

// Run rebuilds the warehouse. The summary is always returned. The error is
// the fatal failure when the status is RunFailed; partial runs return nil
// and carry their aggregate failures in the summary.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	b := o.builder
	summary := &RunSummary{
		RunID:       uuid.NewString(),
		StartedAt:   b.opts.Now(),
		HistoryMode: b.opts.HistoryMode,
	}
	log := logging.With("run_id", summary.RunID)
	log.Info().
		Str("history_mode", string(b.opts.HistoryMode)).
		Str("key_miss_policy", string(b.opts.KeyMissPolicy)).
		Msg("Starting warehouse build")

	record := func(table string, stage Stage, start time.Time, rows int64, err error) {
		res := TableResult{
			Table:      table,
			Stage:      stage,
			Status:     TableSuccess,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			res.Status = TableFailed
			res.Error = err.Error()
		} else {
			res.RowsWritten = rows
		}
		summary.Tables = append(summary.Tables, res)
	}

	finish := func(status RunStatus, err error) (*RunSummary, error) {
		// Anything not yet recorded never ran.
		for _, table := range BuildOrder[len(summary.Tables):] {
			summary.Tables = append(summary.Tables, TableResult{
				Table:  table,
				Stage:  stageOf(table),
				Status: TableSkipped,
			})
		}
		summary.Status = status
		summary.FinishedAt = b.opts.Now()

		event := log.Info()
		if status != RunSuccess {
			event = log.Warn().Err(err)
		}
		event.
			Str("status", string(status)).
			Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
			Int64("excluded", summary.Exclusions.Total()).
			Msg("Finished warehouse build")

		if status != RunFailed {
			return summary, nil
		}
		return summary, err
	}

	dimensions := []struct {
		table string
		run   func() (int64, error)
	}{
		{TableDimDate, func() (int64, error) {
			dr, err := b.source.TransactionDateRange(ctx)
			if err != nil {
				return 0, newBuildError(TableDimDate, StageDimension, ErrSourceUnavailable, err)
			}
			if dr.Valid {
				summary.DateRange = &dr
			}
			return b.BuildDimDate(ctx, dr)
		}},
		{TableDimPaymentMethod, func() (int64, error) { return b.BuildDimPaymentMethod(ctx) }},
		{TableDimCustomers, func() (int64, error) { return b.BuildDimCustomers(ctx) }},
		{TableDimProducts, func() (int64, error) { return b.BuildDimProducts(ctx) }},
	}

	for _, dim := range dimensions {
		if err := ctx.Err(); err != nil {
			return finish(RunFailed, fmt.Errorf("warehouse build cancelled: %w", err))
		}
		start := time.Now()
		rows, err := dim.run()
		record(dim.table, StageDimension, start, rows, err)
		if err != nil {
			return finish(RunFailed, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return finish(RunFailed, fmt.Errorf("warehouse build cancelled: %w", err))
	}
	start := time.Now()
	rows, ex, err := b.BuildFactSales(ctx)
	summary.Exclusions = ex
	record(TableFactSales, StageFact, start, rows, err)
	if err != nil {
		return finish(RunFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return finish(RunFailed, fmt.Errorf("warehouse build cancelled: %w", err))
	}
	results, err := b.BuildAggregates(ctx)
	if err != nil {
		for _, table := range BuildOrder[len(summary.Tables):] {
			record(table, StageAggregate, time.Now(), 0, err)
		}
		return finish(RunPartial, err)
	}

	var aggErrs []error
	for _, res := range results {
		summary.Tables = append(summary.Tables, aggregateTableResult(res))
		if res.Err != nil {
			aggErrs = append(aggErrs, res.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return finish(RunFailed, fmt.Errorf("warehouse build cancelled: %w", err))
	}
	if len(aggErrs) > 0 {
		return finish(RunPartial, errors.Join(aggErrs...))
	}
	return finish(RunSuccess, nil)
}

func aggregateTableResult(res AggregateResult) TableResult {
	tr := TableResult{
		Table:       res.Table,
		Stage:       StageAggregate,
		Status:      TableSuccess,
		RowsWritten: res.Rows,
		DurationMs:  res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		tr.Status = TableFailed
		tr.RowsWritten = 0
		tr.Error = res.Err.Error()
	}
	return tr
}

func stageOf(table string) Stage {
	switch table {
	case TableDimDate, TableDimPaymentMethod, TableDimCustomers, TableDimProducts:
		return StageDimension
	case TableFactSales:
		return StageFact
	default:
		return StageAggregate
	}
}
