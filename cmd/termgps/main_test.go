package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-termgps/config"
)

const replayGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>drive</name><trkseg>
    <trkpt lat="13.0800" lon="80.2700"></trkpt>
    <trkpt lat="13.0810" lon="80.2700"></trkpt>
  </trkseg></trk>
</gpx>`

// Test version variables
func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if Commit == "" {
		t.Error("Commit should have a default value")
	}
	if BuildDate == "" {
		t.Error("BuildDate should have a default value")
	}
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-version"}, &stdout, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != Commit {
		t.Errorf("Expected commit %q for a dev build, got %q", Commit, stdout.String())
	}
}

func TestRunBadFlags(t *testing.T) {
	if err := run(context.Background(), []string{"-no-such-flag"}, io.Discard, io.Discard); err == nil {
		t.Error("Expected an error for an unknown flag")
	}
	if err := run(context.Background(), []string{"-h"}, io.Discard, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Expected flag.ErrHelp, got %v", err)
	}
	args := []string{"-baud", "0", "-log-dir", t.TempDir()}
	if err := run(context.Background(), args, io.Discard, io.Discard); !errors.Is(err, config.ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
}

func TestApplyFlagsOnlyExplicit(t *testing.T) {
	var opts options
	flagged := config.Default()
	fs := newFlagSet(&opts, &flagged, io.Discard)
	if err := fs.Parse([]string{"-serial", "/dev/ttyACM0", "-interval", "2s"}); err != nil {
		t.Fatal(err)
	}

	s := config.Default()
	s.Location.BaudRate = 4800
	s.WebAddr = ":9000"
	applyFlags(fs, flagged, &s)

	if s.Location.SerialPort != "/dev/ttyACM0" {
		t.Errorf("Expected serial port from flag, got %q", s.Location.SerialPort)
	}
	if s.Nav.RefreshInterval != 2*time.Second {
		t.Errorf("Expected 2s interval from flag, got %v", s.Nav.RefreshInterval)
	}
	if s.Location.BaudRate != 4800 || s.WebAddr != ":9000" {
		t.Errorf("Unset flags must not override settings, got %+v", s)
	}
}

func TestRunWithReplay(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "drive.gpx")
	if err := os.WriteFile(track, []byte(replayGPX), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	args := []string{
		"-replay", track,
		"-ip-fallback=false",
		"-dest", "13.0900,80.2700",
		"-record", filepath.Join(dir, "out.gpx"),
		"-places", filepath.Join(dir, "places.db"),
		"-log-dir", dir,
	}
	if err := run(ctx, args, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr.String())
	}

	if !strings.Contains(stdout.String(), "13.08000, 80.27000") {
		t.Errorf("Expected a status line for the first replayed fix, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Route: 2 steps") {
		t.Errorf("Expected the route summary, got %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "termgps.slog")); err != nil {
		t.Errorf("Expected a log file: %v", err)
	}
}
