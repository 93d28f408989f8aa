// Command ingest consolidates yearly DVF partition files into a single
// Parquet dataset.
//
// Partitions are discovered in the data directory by their year-prefixed
// file names (2020full.csv, 2021full.csv.gz, ...), streamed in bounded
// chunks, reconciled into one canonical schema, and written to a single
// Snappy-compressed Parquet file with a synthetic year column. The
// finished artifact can optionally be exported to a SQLite database.
//
// Usage:
//
//	ingest [-config config.yaml] [-data-dir data] [-out data/all_years.parquet]
//	       [-suffix full] [-chunk-size 100000] [-strict] [-sqlite out.db]
//
// Exit codes distinguish failure kinds: 2 no partitions found, 3 malformed
// partition name, 4 unreadable partition, 5 schema conflict, 6 write
// failure, 1 anything else.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	refrance "github.com/biondi-s/re-france"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		dataDir    = flag.String("data-dir", "", "directory holding yearly partition files")
		outPath    = flag.String("out", "", "destination Parquet file")
		suffix     = flag.String("suffix", "", "partition file-name suffix after the year")
		chunkSize  = flag.Int("chunk-size", 0, "rows per batch")
		yearColumn = flag.String("year-column", "", "name of the synthetic year column")
		strict     = flag.Bool("strict", false, "fail on malformed partition names")
		sqlitePath = flag.String("sqlite", "", "also export the artifact to this SQLite database")
	)
	flag.Parse()

	cfg, err := refrance.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	applyFlags(cfg, *dataDir, *outPath, *suffix, *chunkSize, *yearColumn, *strict)

	logger := refrance.NewLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := cfg.PipelineOptions()
	opts.Logger = logger

	pipeline := refrance.New(opts)
	summary, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("ingestion failed", slog.Any("error", err))
		return exitCode(err)
	}

	if summary.OutputPath == "" {
		logger.Warn("all partitions were header-only, no artifact produced")
		return 0
	}

	if *sqlitePath != "" {
		rows, err := refrance.ExportSQLite(ctx, summary.OutputPath, *sqlitePath, refrance.DefaultExportTable)
		if err != nil {
			logger.Error("sqlite export failed", slog.Any("error", err))
			return 1
		}
		logger.Info("exported to sqlite",
			slog.String("path", *sqlitePath),
			slog.Int64("rows", rows))
	}
	return 0
}

// applyFlags lets command-line flags win over config file and environment.
func applyFlags(cfg *refrance.Config, dataDir, outPath, suffix string, chunkSize int, yearColumn string, strict bool) {
	if dataDir != "" {
		cfg.Ingest.DataDir = dataDir
	}
	if outPath != "" {
		cfg.Ingest.OutputPath = outPath
	}
	if suffix != "" {
		cfg.Ingest.Suffix = suffix
	}
	if chunkSize > 0 {
		cfg.Ingest.ChunkSize = chunkSize
	}
	if yearColumn != "" {
		cfg.Ingest.YearColumn = yearColumn
	}
	if strict {
		cfg.Ingest.Strict = true
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, refrance.ErrNoPartitionsFound):
		return 2
	case errors.Is(err, refrance.ErrMalformedPartitionName):
		return 3
	case errors.Is(err, refrance.ErrUnreadablePartition):
		return 4
	case errors.Is(err, refrance.ErrSchemaConflict):
		return 5
	case errors.Is(err, refrance.ErrWriteFailure):
		return 6
	default:
		return 1
	}
}
