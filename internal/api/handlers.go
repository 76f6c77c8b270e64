package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

const (
	defaultTopProducts = 10
	maxLimit           = 100
	defaultRuns        = 20
)

// Handler serves the API endpoints.
type Handler struct {
	reader Reader
	runs   RunReader
	pinger Pinger
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// serverError logs the cause and hides it from the client.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// queryLimit parses ?limit=, applying def when absent.
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, errors.New("limit must be an integer between 1 and 100")
	}
	return n, nil
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			logging.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Summary serves the headline totals.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.reader.Summary(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// TopProducts serves the best sellers by revenue.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultTopProducts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := h.reader.TopProducts(r.Context(), limit)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// MonthlyTrend serves sales by month.
func (h *Handler) MonthlyTrend(w http.ResponseWriter, r *http.Request) {
	months, err := h.reader.MonthlyTrend(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(months))
}

// CategorySummary serves sales by category.
func (h *Handler) CategorySummary(w http.ResponseWriter, r *http.Request) {
	categories, err := h.reader.CategorySummary(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

// DailySales serves sales per day between ?start= and ?end= (YYYY-MM-DD,
// both required, inclusive).
func (h *Handler) DailySales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse(time.DateOnly, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be a date in YYYY-MM-DD format")
		return
	}
	end, err := time.Parse(time.DateOnly, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be a date in YYYY-MM-DD format")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	days, err := h.reader.DailySales(r.Context(), start, end)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(days))
}

// LatestRun serves the most recent build summary.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.LatestRun(r.Context())
	if errors.Is(err, db.ErrNoRuns) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRuns serves recent build summaries, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultRuns)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(runs))
}

// nonNil makes empty results encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
