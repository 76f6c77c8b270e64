package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitLevel(t *testing.T) {
	defer Init(DefaultConfig())

	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Init(Config{Level: tt.level, Output: &bytes.Buffer{}})
			if Logger.GetLevel() != tt.expected {
				t.Errorf("Expected level %s, got %s", tt.expected, Logger.GetLevel())
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})

	Debug().Msg("Hidden")
	log := With("run_id", "abc")
	log.Info().Int64("rows", 3).Msg("Replaced table")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got error: %v", err)
	}
	if entry["message"] != "Replaced table" {
		t.Errorf("Expected message 'Replaced table', got %v", entry["message"])
	}
	if entry["run_id"] != "abc" {
		t.Errorf("Expected run_id 'abc', got %v", entry["run_id"])
	}
	if entry["rows"] != float64(3) {
		t.Errorf("Expected rows 3, got %v", entry["rows"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("Expected a time field")
	}
}

func TestPrettyOutput(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "info", Pretty: true, Output: &buf})
	Warn().Str("table", "fact_sales").Msg("Excluded items")

	out := buf.String()
	if !strings.Contains(out, "Excluded items") || !strings.Contains(out, "fact_sales") {
		t.Errorf("Expected console output with message and field, got %q", out)
	}
}
