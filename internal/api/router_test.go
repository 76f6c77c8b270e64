package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

type fakeReader struct {
	err        error
	gotLimit   int
	gotStart   time.Time
	gotEnd     time.Time
	topProduct []db.TopProduct
}

func (f *fakeReader) Summary(context.Context) (db.SalesSummary, error) {
	return db.SalesSummary{
		TotalTransactions: 5,
		TotalRevenue:      decimal.RequireFromString("535.47"),
	}, f.err
}

func (f *fakeReader) TopProducts(_ context.Context, limit int) ([]db.TopProduct, error) {
	f.gotLimit = limit
	return f.topProduct, f.err
}

func (f *fakeReader) MonthlyTrend(context.Context) ([]db.MonthlyTrend, error) {
	return []db.MonthlyTrend{{Year: 2024, Month: 1, TotalTransactions: 5}}, f.err
}

func (f *fakeReader) CategorySummary(context.Context) ([]db.CategorySummary, error) {
	return nil, f.err
}

func (f *fakeReader) DailySales(_ context.Context, start, end time.Time) ([]db.DailySales, error) {
	f.gotStart, f.gotEnd = start, end
	return []db.DailySales{{Date: "2024-01-06", DateKey: 20240106}}, f.err
}

type fakeRuns struct {
	runs []warehouse.RunSummary
	err  error
}

func (f *fakeRuns) LatestRun(context.Context) (*warehouse.RunSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.runs) == 0 {
		return nil, db.ErrNoRuns
	}
	return &f.runs[0], nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]warehouse.RunSummary, error) {
	return f.runs[:min(limit, len(f.runs))], f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		pinger   Pinger
		expected int
	}{
		{"no pinger", nil, http.StatusOK},
		{"reachable", fakePinger{}, http.StatusOK},
		{"unreachable", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeReader{}, &fakeRuns{}, tt.pinger, time.Second)
			rec := serve(t, r, "/health")
			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %q", ct)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	r := NewRouter(&fakeReader{}, &fakeRuns{}, nil, time.Second)
	rec := serve(t, r, "/analytics/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["total_revenue"] != "535.47" {
		t.Errorf("Expected total_revenue \"535.47\", got %v", body["total_revenue"])
	}
	if body["total_transactions"] != float64(5) {
		t.Errorf("Expected total_transactions 5, got %v", body["total_transactions"])
	}
}

func TestTopProductsLimit(t *testing.T) {
	tests := []struct {
		query         string
		expectedCode  int
		expectedLimit int
	}{
		{"", http.StatusOK, 10},
		{"?limit=3", http.StatusOK, 3},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=101", http.StatusBadRequest, 0},
		{"?limit=ten", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			reader := &fakeReader{}
			r := NewRouter(reader, &fakeRuns{}, nil, time.Second)
			rec := serve(t, r, "/analytics/top-products"+tt.query)
			if rec.Code != tt.expectedCode {
				t.Fatalf("Expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if reader.gotLimit != tt.expectedLimit {
				t.Errorf("Expected limit %d, got %d", tt.expectedLimit, reader.gotLimit)
			}
			if tt.expectedCode == http.StatusOK && rec.Body.String() != "[]\n" {
				t.Errorf("Expected empty JSON array, got %q", rec.Body.String())
			}
			if tt.expectedCode == http.StatusBadRequest {
				if decode[errorResponse](t, rec).Error == "" {
					t.Error("Expected an error message")
				}
			}
		})
	}
}

func TestDailySales(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		expectedCode int
	}{
		{"valid", "?start=2024-01-01&end=2024-01-31", http.StatusOK},
		{"single day", "?start=2024-01-06&end=2024-01-06", http.StatusOK},
		{"missing start", "?end=2024-01-31", http.StatusBadRequest},
		{"bad end", "?start=2024-01-01&end=31/01/2024", http.StatusBadRequest},
		{"reversed", "?start=2024-02-01&end=2024-01-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{}
			r := NewRouter(reader, &fakeRuns{}, nil, time.Second)
			rec := serve(t, r, "/analytics/daily-sales"+tt.query)
			if rec.Code != tt.expectedCode {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedCode, rec.Code, rec.Body.String())
			}
		})
	}

	reader := &fakeReader{}
	serve(t, NewRouter(reader, &fakeRuns{}, nil, time.Second), "/analytics/daily-sales?start=2024-01-01&end=2024-01-31")
	if warehouse.DateKey(reader.gotStart) != 20240101 || warehouse.DateKey(reader.gotEnd) != 20240131 {
		t.Errorf("Expected 20240101..20240131, got %d..%d",
			warehouse.DateKey(reader.gotStart), warehouse.DateKey(reader.gotEnd))
	}
}

func TestReaderFailureHidesCause(t *testing.T) {
	r := NewRouter(&fakeReader{err: errors.New("relation does not exist")}, &fakeRuns{}, nil, time.Second)
	for _, path := range []string{"/analytics/summary", "/analytics/monthly-trend", "/analytics/category-summary"} {
		rec := serve(t, r, path)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected status 500, got %d", path, rec.Code)
		}
		if msg := decode[errorResponse](t, rec).Error; msg != "internal error" {
			t.Errorf("%s: expected 'internal error', got %q", path, msg)
		}
	}
}

func TestRuns(t *testing.T) {
	runs := &fakeRuns{runs: []warehouse.RunSummary{
		{RunID: "b", Status: warehouse.RunPartial},
		{RunID: "a", Status: warehouse.RunSuccess},
	}}
	r := NewRouter(&fakeReader{}, runs, nil, time.Second)

	rec := serve(t, r, "/runs/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	latest := decode[warehouse.RunSummary](t, rec)
	if latest.RunID != "b" || latest.Status != warehouse.RunPartial {
		t.Errorf("Expected run b partial, got %s %s", latest.RunID, latest.Status)
	}

	rec = serve(t, r, "/runs?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if list := decode[[]warehouse.RunSummary](t, rec); len(list) != 1 {
		t.Errorf("Expected 1 run, got %d", len(list))
	}
}

func TestLatestRunNotFound(t *testing.T) {
	r := NewRouter(&fakeReader{}, &fakeRuns{}, nil, time.Second)
	rec := serve(t, r, "/runs/latest")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	r := NewRouter(&fakeReader{}, &fakeRuns{}, nil, time.Second)
	rec := serve(t, r, "/analytics/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
	if decode[errorResponse](t, rec).Error != "not found" {
		t.Errorf("Expected JSON not found error, got %q", rec.Body.String())
	}
}
