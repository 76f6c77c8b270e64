//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package api serves the warehouse analytics and run history over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// Route paths.
const (
	HealthPath    = "/health"
	AnalyticsPath = "/analytics"
	RunsPath      = "/runs"
)

// Reader answers the analytics queries.
type Reader interface {
	Summary(ctx context.Context) (db.SalesSummary, error)
	TopProducts(ctx context.Context, limit int) ([]db.TopProduct, error)
	MonthlyTrend(ctx context.Context) ([]db.MonthlyTrend, error)
	CategorySummary(ctx context.Context) ([]db.CategorySummary, error)
	DailySales(ctx context.Context, start, end time.Time) ([]db.DailySales, error)
}

// RunReader answers the run history queries.
type RunReader interface {
	LatestRun(ctx context.Context) (*warehouse.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]warehouse.RunSummary, error)
}

// Pinger checks database connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the HTTP handler. Every request's context is bounded by
// queryTimeout.
func NewRouter(reader Reader, runs RunReader, pinger Pinger, queryTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, requestLogger, middleware.Recoverer)
	if queryTimeout > 0 {
		r.Use(middleware.Timeout(queryTimeout))
	}

	h := &Handler{reader: reader, runs: runs, pinger: pinger}

	r.Get(HealthPath, h.Health)

	r.Route(AnalyticsPath, func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/top-products", h.TopProducts)
		r.Get("/monthly-trend", h.MonthlyTrend)
		r.Get("/category-summary", h.CategorySummary)
		r.Get("/daily-sales", h.DailySales)
	})

	r.Route(RunsPath, func(r chi.Router) {
		r.Get("/", h.ListRuns)
		r.Get("/latest", h.LatestRun)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// requestLogger logs every request through the global zerolog logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			event := logging.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = logging.Error()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request")
		}()
		next.ServeHTTP(ww, r)
	})
}
