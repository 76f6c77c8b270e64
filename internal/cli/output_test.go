package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

func testSummary() *warehouse.RunSummary {
	start := time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)
	return &warehouse.RunSummary{
		RunID:       "7f1c",
		StartedAt:   start,
		FinishedAt:  start.Add(1500 * time.Millisecond),
		Status:      warehouse.RunPartial,
		HistoryMode: warehouse.HistorySnapshot,
		DateRange: &warehouse.DateRange{
			Start: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
			Valid: true,
		},
		Tables: []warehouse.TableResult{
			{Table: warehouse.TableFactSales, Stage: warehouse.StageFact, Status: warehouse.TableSuccess, RowsWritten: 5},
			{Table: warehouse.TableAggCategorySales, Stage: warehouse.StageAggregate, Status: warehouse.TableFailed,
				Error: "no product dimension"},
		},
		Exclusions: warehouse.Exclusions{MissingProduct: 2},
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	if err := writeReport(path, testSummary()); err != nil {
		t.Fatalf("writeReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var got warehouse.RunSummary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if got.RunID != "7f1c" || got.Status != warehouse.RunPartial {
		t.Errorf("Expected run 7f1c partial, got %s %s", got.RunID, got.Status)
	}
	if got.Exclusions.MissingProduct != 2 {
		t.Errorf("Expected 2 missing products, got %d", got.Exclusions.MissingProduct)
	}
	if len(got.Tables) != 2 || got.Tables[1].Error != "no product dimension" {
		t.Errorf("Expected table errors to survive, got %+v", got.Tables)
	}
	if got.DateRange == nil || !got.DateRange.Valid {
		t.Errorf("Expected a valid date range to be read back, got %+v", got.DateRange)
	}
}

func TestStatusStyle(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{string(warehouse.RunSuccess), pterm.FgGreen.Sprint("success")},
		{string(warehouse.TableSuccess), pterm.FgGreen.Sprint("success")},
		{string(warehouse.RunPartial), pterm.FgYellow.Sprint("partial")},
		{string(warehouse.TableSkipped), pterm.FgYellow.Sprint("skipped")},
		{string(warehouse.RunFailed), pterm.FgRed.Sprint("failed")},
		{"unknown", pterm.FgRed.Sprint("unknown")},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := statusStyle(tt.status); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSummaryTable(t *testing.T) {
	data := summaryTable(testSummary())
	if len(data) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(data))
	}
	if data[1][0] != warehouse.TableFactSales || data[1][3] != "5" {
		t.Errorf("Unexpected fact row %v", data[1])
	}
	if !strings.Contains(data[2][2], "failed") {
		t.Errorf("Expected failed status, got %q", data[2][2])
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, testSummary(), true)
	out := buf.String()
	for _, want := range []string{"7f1c", "dry run", "2024-01-06", "agg_sales_category", "2 line items excluded"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestRunsTable(t *testing.T) {
	data := runsTable([]warehouse.RunSummary{*testSummary()})
	if len(data) != 2 {
		t.Fatalf("Expected header plus 1 row, got %d", len(data))
	}
	row := data[1]
	if row[4] != "5" || row[5] != "2" || row[6] != "1" {
		t.Errorf("Expected facts 5, excluded 2, failed 1, got %v", row)
	}
}
