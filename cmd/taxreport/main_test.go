package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/config"
	"github.com/titancoder666/polymarket-tax-engine/internal/logging"
	"github.com/titancoder666/polymarket-tax-engine/internal/report"
)

func TestParseFlags(t *testing.T) {
	t.Run("defaults to every format and year", func(t *testing.T) {
		opts, err := parseFlags([]string{"--csv", "trades.csv"})
		if err != nil {
			t.Fatalf("parseFlags() returned unexpected error: %v", err)
		}
		if opts.year != 0 || len(opts.formats) != len(report.Formats) || opts.outDir != "." {
			t.Errorf("Unexpected defaults %+v", opts)
		}
	})

	t.Run("accepts a list of formats", func(t *testing.T) {
		opts, err := parseFlags([]string{"--csv", "t.csv", "--format", "form8949,schedule-d", "--year", "2024"})
		if err != nil {
			t.Fatalf("parseFlags() returned unexpected error: %v", err)
		}
		if len(opts.formats) != 2 || opts.formats[1] != report.FormatScheduleD || opts.year != 2024 {
			t.Errorf("Unexpected options %+v", opts)
		}
	})

	t.Run("quiet flag silences logging", func(t *testing.T) {
		opts, err := parseFlags([]string{"--csv", "t.csv", "-q"})
		if err != nil {
			t.Fatalf("parseFlags() returned unexpected error: %v", err)
		}
		if !opts.quiet {
			t.Error("Expected quiet to be set")
		}
	})

	t.Run("requires exactly one source", func(t *testing.T) {
		if _, err := parseFlags(nil); err == nil {
			t.Error("Expected error without a source")
		}
		if _, err := parseFlags([]string{"--csv", "a.csv", "--wallet", "0x1"}); err == nil {
			t.Error("Expected error with two sources")
		}
	})

	t.Run("rejects unknown formats and years", func(t *testing.T) {
		if _, err := parseFlags([]string{"--csv", "a.csv", "--format", "pdf"}); !errors.Is(err, apperrors.ErrInvalidFormat) {
			t.Errorf("Expected ErrInvalidFormat, got %v", err)
		}
		if _, err := parseFlags([]string{"--csv", "a.csv", "--year", "1999"}); !errors.Is(err, apperrors.ErrInvalidYear) {
			t.Errorf("Expected ErrInvalidYear, got %v", err)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("writes reports for a CSV", func(t *testing.T) {
		dir := t.TempDir()
		csvPath := filepath.Join(dir, "trades.csv")
		content := "Date,Market,Type,Price,Qty\n2024-01-15,Rain,Buy,0.40,100\n2024-03-01,Rain,Sell,0.70,100\n"
		if err := os.WriteFile(csvPath, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write CSV: %v", err)
		}

		opts := options{
			csvPath: csvPath,
			year:    2024,
			outDir:  filepath.Join(dir, "out"),
			formats: []report.Format{report.FormatForm8949, report.FormatScheduleD},
		}
		written, err := run(context.Background(), opts, &config.Config{}, logging.Discard())
		if err != nil {
			t.Fatalf("run() returned unexpected error: %v", err)
		}
		if len(written) != 2 {
			t.Fatalf("Expected 2 files, got %v", written)
		}
		if filepath.Base(written[0]) != "2024_form8949.csv" {
			t.Errorf("Expected 2024_form8949.csv, got %s", filepath.Base(written[0]))
		}

		data, err := os.ReadFile(written[0])
		if err != nil {
			t.Fatalf("Failed to read report: %v", err)
		}
		if !strings.Contains(string(data), "Short-term") {
			t.Errorf("Expected a short-term lot, got %q", data)
		}
	})

	t.Run("returns an error for a missing CSV", func(t *testing.T) {
		opts := options{csvPath: filepath.Join(t.TempDir(), "missing.csv"), outDir: t.TempDir()}
		if _, err := run(context.Background(), opts, &config.Config{}, logging.Discard()); err == nil {
			t.Error("Expected error for a missing file")
		}
	})
}
