package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// writeReport writes the run summary as indented JSON.
func writeReport(path string, summary *warehouse.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// statusStyle colours a run or table status. Run and table outcomes share
// the success value.
func statusStyle(status string) string {
	switch status {
	case string(warehouse.RunSuccess):
		return pterm.FgGreen.Sprint(status)
	case string(warehouse.RunPartial), string(warehouse.TableSkipped):
		return pterm.FgYellow.Sprint(status)
	default:
		return pterm.FgRed.Sprint(status)
	}
}

// summaryTable lays out one row per warehouse table.
func summaryTable(summary *warehouse.RunSummary) pterm.TableData {
	data := pterm.TableData{{"Table", "Stage", "Status", "Rows", "Duration (ms)", "Error"}}
	for _, t := range summary.Tables {
		data = append(data, []string{
			t.Table,
			string(t.Stage),
			statusStyle(string(t.Status)),
			strconv.FormatInt(t.RowsWritten, 10),
			strconv.FormatInt(t.DurationMs, 10),
			t.Error,
		})
	}
	return data
}

func exclusionTable(e warehouse.Exclusions) pterm.TableData {
	return pterm.TableData{
		{"Reason", "Items"},
		{"orphan item", strconv.FormatInt(e.OrphanItems, 10)},
		{"missing customer", strconv.FormatInt(e.MissingCustomer, 10)},
		{"missing product", strconv.FormatInt(e.MissingProduct, 10)},
		{"missing date", strconv.FormatInt(e.MissingDate, 10)},
		{"missing payment method", strconv.FormatInt(e.MissingPaymentMethod, 10)},
	}
}

func printSummary(w io.Writer, summary *warehouse.RunSummary, dryRun bool) {
	title := fmt.Sprintf("Run %s (%s)", summary.RunID, statusStyle(string(summary.Status)))
	if dryRun {
		title += " dry run, nothing written"
	}
	fmt.Fprintln(w, pterm.DefaultSection.Sprint(title))

	if summary.DateRange != nil && summary.DateRange.Valid {
		fmt.Fprintf(w, "Dates %s to %s, history mode %s, took %s\n\n",
			summary.DateRange.Start.Format(time.DateOnly),
			summary.DateRange.End.Format(time.DateOnly),
			summary.HistoryMode,
			summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	}

	table, _ := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(summaryTable(summary)).
		Srender()
	fmt.Fprintln(w, table)

	if summary.Exclusions.Total() > 0 {
		excl, _ := pterm.DefaultTable.WithHasHeader().WithData(exclusionTable(summary.Exclusions)).Srender()
		fmt.Fprintln(w, pterm.FgYellow.Sprintf("%d line items excluded from fact_sales", summary.Exclusions.Total()))
		fmt.Fprintln(w, excl)
	}
}

// runsTable lays out one row per recorded build.
func runsTable(runs []warehouse.RunSummary) pterm.TableData {
	data := pterm.TableData{{"Run", "Started", "Status", "History", "Facts", "Excluded", "Failed tables"}}
	for _, r := range runs {
		failed := 0
		for _, t := range r.Tables {
			if t.Status == warehouse.TableFailed {
				failed++
			}
		}
		data = append(data, []string{
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			statusStyle(string(r.Status)),
			string(r.HistoryMode),
			strconv.FormatInt(r.RowsWritten()[warehouse.TableFactSales], 10),
			strconv.FormatInt(r.Exclusions.Total(), 10),
			strconv.Itoa(failed),
		})
	}
	return data
}
