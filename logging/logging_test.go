package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewWritesJSON(t *testing.T) {
	l, err := New("warn", t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Info("filtered out")
	l.Warn("route calculation failed", slog.String("destination", "13.09,80.28"))
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(l.LogFile)
	if err != nil {
		t.Fatalf("Log file missing: %v", err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("Log line is not JSON: %q", scanner.Text())
		}
		records = append(records, rec)
	}

	// Startup info lines are below warn and are filtered too.
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d: %v", len(records), records)
	}
	if records[0]["msg"] != "route calculation failed" || records[0]["destination"] != "13.09,80.28" {
		t.Errorf("Unexpected record %v", records[0])
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("loud", t.TempDir()); err == nil {
		t.Error("Expected an error for an invalid level")
	}
}
