// Command profile prints descriptive statistics of a Parquet dataset
// produced by the ingest command.
//
// The report covers row and column counts, per-year row counts, null
// rates, numeric summaries with percentiles, the most frequent values of
// the usual DVF categorical columns, and a derived price-per-square-meter
// distribution.
//
// Usage:
//
//	profile [-config config.yaml] [-in data/all_years.parquet]
//	        [-report report.txt] [-sample 1000000] [-top 10]
//
// Without -report the report goes to standard output. A report path ending
// in .gz, .xz, or .zst is compressed accordingly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	refrance "github.com/biondi-s/re-france"
	"github.com/biondi-s/re-france/profile"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		inPath     = flag.String("in", "", "Parquet dataset to profile")
		reportPath = flag.String("report", "", "write the report to this file instead of stdout")
		sampleSize = flag.Int("sample", 0, "max values kept per numeric column for percentiles, 0 keeps all")
		topK       = flag.Int("top", 0, "values reported per categorical column")
	)
	flag.Parse()

	cfg, err := refrance.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *inPath != "" {
		cfg.Profile.InputPath = *inPath
	}
	if *reportPath != "" {
		cfg.Profile.ReportPath = *reportPath
	}
	if *sampleSize > 0 {
		cfg.Profile.SampleSize = *sampleSize
	}
	if *topK > 0 {
		cfg.Profile.TopK = *topK
	}

	logger := refrance.NewLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := profile.Analyze(ctx, cfg.Profile.InputPath, profile.Options{
		SampleSize: cfg.Profile.SampleSize,
		TopK:       cfg.Profile.TopK,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("profiling failed", slog.Any("error", err))
		return 1
	}

	if cfg.Profile.ReportPath != "" {
		if err := report.WriteFile(cfg.Profile.ReportPath); err != nil {
			logger.Error("failed to write report", slog.Any("error", err))
			return 1
		}
		logger.Info("report written", slog.String("path", cfg.Profile.ReportPath))
		return 0
	}
	if err := report.Render(os.Stdout); err != nil {
		logger.Error("failed to render report", slog.Any("error", err))
		return 1
	}
	return 0
}
