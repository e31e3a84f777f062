// Command taxreport writes tax reports for a Polymarket wallet or an exported
// transaction CSV without running the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/titancoder666/polymarket-tax-engine/internal/config"
	"github.com/titancoder666/polymarket-tax-engine/internal/csvimport"
	"github.com/titancoder666/polymarket-tax-engine/internal/logging"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
	"github.com/titancoder666/polymarket-tax-engine/internal/polymarket"
	"github.com/titancoder666/polymarket-tax-engine/internal/report"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
	"github.com/titancoder666/polymarket-tax-engine/internal/validation"
)

type options struct {
	wallet   string
	csvPath  string
	year     int
	outDir   string
	formats  []report.Format
	logLevel string
	quiet    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New(opts.logLevel, "text")
	if opts.quiet {
		logger = logging.Discard()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	written, err := run(ctx, opts, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Report generation failed")
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

func parseFlags(args []string) (options, error) {
	fs := pflag.NewFlagSet("taxreport", pflag.ContinueOnError)
	wallet := fs.String("wallet", "", "wallet address (0x followed by 40 hex characters)")
	csvPath := fs.String("csv", "", "path to an exported transaction CSV")
	year := fs.String("year", "all", "tax year to report, or \"all\"")
	outDir := fs.StringP("out", "o", ".", "directory to write reports into")
	formats := fs.StringSlice("format", []string{"all"}, "report formats: all, "+joinFormats())
	logLevel := fs.String("log-level", "info", "log level")
	quiet := fs.BoolP("quiet", "q", false, "suppress log output")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if (*wallet == "") == (*csvPath == "") {
		return options{}, errors.New("exactly one of --wallet or --csv is required")
	}

	parsedYear, err := validation.ParseYear(*year)
	if err != nil {
		return options{}, err
	}

	parsedFormats, err := parseFormats(*formats)
	if err != nil {
		return options{}, err
	}

	return options{
		wallet:   *wallet,
		csvPath:  *csvPath,
		year:     parsedYear,
		outDir:   *outDir,
		formats:  parsedFormats,
		logLevel: *logLevel,
		quiet:    *quiet,
	}, nil
}

func parseFormats(names []string) ([]report.Format, error) {
	var formats []report.Format
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return report.Formats, nil
		}
		f, err := report.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

func joinFormats() string {
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// run loads the transactions, calculates them and writes one file per format.
// It returns the paths written.
func run(ctx context.Context, opts options, cfg *config.Config, logger *logrus.Logger) ([]string, error) {
	transactions, err := loadTransactions(ctx, opts, cfg, logger)
	if err != nil {
		return nil, err
	}

	taxService := service.NewTaxService(nil, cfg.Cache.ReportTTL)
	calc := taxService.Calculate(transactions, opts.year)

	logger.WithFields(logrus.Fields{
		"transactions": calc.TransactionCount,
		"lots":         len(calc.Lots),
		"netTotal":     calc.Summary.NetTotal.StringFixed(2),
	}).Info("Calculated tax lots")

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	label := "all"
	if opts.year != 0 {
		label = strconv.Itoa(opts.year)
	}

	written := make([]string, 0, len(opts.formats))
	for _, format := range opts.formats {
		content, err := taxService.Render(format, calc)
		if err != nil {
			return written, err
		}
		path := filepath.Join(opts.outDir, label+"_"+format.Filename())
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func loadTransactions(ctx context.Context, opts options, cfg *config.Config, logger *logrus.Logger) ([]model.Transaction, error) {
	if opts.csvPath != "" {
		data, err := os.ReadFile(opts.csvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", opts.csvPath, err)
		}
		return csvimport.ParseBytes(data)
	}

	wallet, err := validation.ValidateWallet(opts.wallet)
	if err != nil {
		return nil, err
	}

	fetcher := polymarket.NewFetcher(
		polymarket.NewDataClient(cfg.Polymarket.BaseURL, cfg.Polymarket.RequestTimeout),
		polymarket.Options{
			PageSize:   cfg.Polymarket.PageSize,
			MaxOffset:  cfg.Polymarket.MaxOffset,
			MaxWindows: cfg.Polymarket.MaxWindows,
			PageDelay:  cfg.Polymarket.PageDelay,
		},
		logger,
	)

	history, err := fetcher.FetchHistory(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return history.Transactions, nil
}
