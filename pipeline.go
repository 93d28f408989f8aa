package refrance

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is the lifecycle phase of one pipeline run.
type State int32

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = iota
	// StateDiscovering means partitions are being located and headers read.
	StateDiscovering
	// StateStreaming means rows are flowing into the artifact.
	StateStreaming
	// StateFinalizing means the artifact is being closed and renamed.
	StateFinalizing
	// StateDone means the run finished successfully.
	StateDone
	// StateFailed means the run aborted; no artifact was produced.
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Pipeline. Zero values fall back to defaults.
type Options struct {
	// DataDir is the directory holding the yearly partition files.
	DataDir string
	// OutputPath is the destination of the Parquet artifact.
	OutputPath string
	// Suffix is the partition file-name suffix after the year token.
	// Defaults to DefaultPartitionSuffix.
	Suffix string
	// ChunkSize is the number of rows per batch. Defaults to
	// DefaultRowsPerChunk when not positive.
	ChunkSize int
	// YearColumn is the name of the synthetic partition-key column.
	// Defaults to DefaultYearColumn.
	YearColumn string
	// Strict makes a malformed year token fatal instead of skipped.
	Strict bool
	// Concurrency bounds the parallel header pre-pass. Defaults to
	// GOMAXPROCS.
	Concurrency int
	// Logger receives progress events. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Summary describes one completed run.
type Summary struct {
	// Partitions lists the ingested partitions in processing order.
	Partitions []Partition
	// Skipped lists file names that matched the suffix but carried a
	// malformed year token (lenient mode only).
	Skipped []string
	// Columns is the canonical data column order of the artifact, without
	// the year column.
	Columns []string
	// Rows is the total number of rows written.
	Rows int64
	// RowsPerYear maps each partition year to its row count.
	RowsPerYear map[int]int64
	// OutputPath is the finished artifact path, empty when every partition
	// was header-only and no artifact was produced.
	OutputPath string
	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Pipeline ingests yearly partition files into one Parquet artifact. A
// Pipeline runs once; create a new one for each run. State is readable
// from other goroutines while Run executes.
type Pipeline struct {
	opts  Options
	log   *slog.Logger
	state atomic.Int32
}

// New creates a Pipeline with the given options.
func New(opts Options) *Pipeline {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.OutputPath == "" {
		opts.OutputPath = "data/all_years.parquet"
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultPartitionSuffix
	}
	if opts.YearColumn == "" {
		opts.YearColumn = DefaultYearColumn
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{opts: opts, log: logger}
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
	p.log.Debug("state changed", slog.String("state", s.String()))
}

// Run executes discovery, schema reconciliation, streaming, and
// finalization. On any error the run stops, the in-progress artifact is
// discarded, and the destination path is left untouched. Partitions are
// processed in file-name order, so output row order is deterministic for a
// given input directory.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if p.State() != StateIdle {
		return nil, fmt.Errorf("refrance: pipeline has already run (state %s)", p.State())
	}
	start := time.Now()

	summary, err := p.run(ctx)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}
	summary.Duration = time.Since(start)
	p.setState(StateDone)
	p.log.Info("ingestion finished",
		slog.Int64("rows", summary.Rows),
		slog.Int("partitions", len(summary.Partitions)),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context) (*Summary, error) {
	p.setState(StateDiscovering)

	parts, skipped, err := DiscoverPartitions(p.opts.DataDir, p.opts.Suffix, p.opts.Strict)
	if err != nil {
		return nil, err
	}
	for _, name := range skipped {
		p.log.Warn("skipping file with malformed year token", slog.String("file", name))
	}
	p.log.Info("discovered partitions",
		slog.Int("count", len(parts)),
		slog.String("dir", p.opts.DataDir))

	reconciler, headers, err := p.discoverSchema(ctx, parts)
	if err != nil {
		return nil, err
	}
	p.log.Info("reconciled schema", slog.Int("columns", reconciler.Width()))

	p.setState(StateStreaming)

	var (
		writer      *ParquetWriter
		chunkSize   = NewChunkSize(p.opts.ChunkSize)
		schema      = reconciler.ArrowSchema()
		rowsPerYear = make(map[int]int64, len(parts))
	)
	defer func() {
		if writer != nil {
			writer.Abort()
		}
	}()

	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		proj := reconciler.Projection(headers[i])
		partStart := time.Now()
		var partRows int64

		err := readPartitionChunks(ctx, part, chunkSize, func(batch *Batch) error {
			// The writer exists only once there is a row to write, so an
			// all-header-only input produces no artifact at all.
			if writer == nil {
				w, err := NewParquetWriter(p.opts.OutputPath, schema)
				if err != nil {
					return err
				}
				writer = w
			}
			if !batch.Columns.equal(headers[i]) {
				// The file changed between the header pre-pass and now.
				proj = reconciler.Projection(batch.Columns)
				headers[i] = batch.Columns
			}
			if err := writer.WriteBatch(batch, proj); err != nil {
				return err
			}
			partRows += int64(len(batch.Records))
			return nil
		})
		if err != nil {
			return nil, err
		}

		rowsPerYear[part.Year] += partRows
		p.log.Info("ingested partition",
			slog.String("partition", part.Name()),
			slog.Int("year", part.Year),
			slog.Int64("rows", partRows),
			slog.Duration("duration", time.Since(partStart)))
	}

	p.setState(StateFinalizing)

	summary := &Summary{
		Partitions:  parts,
		Skipped:     skipped,
		Columns:     reconciler.Columns(),
		RowsPerYear: rowsPerYear,
	}
	if writer == nil {
		p.log.Info("no rows in any partition, no artifact produced")
		return summary, nil
	}

	summary.Rows = writer.Rows()
	if err := writer.Close(); err != nil {
		writer = nil
		return nil, err
	}
	summary.OutputPath = writer.Path()
	writer = nil
	return summary, nil
}

// discoverSchema reads every partition header concurrently, then folds
// them into the Reconciler in partition order so the canonical column
// order does not depend on goroutine scheduling.
func (p *Pipeline) discoverSchema(ctx context.Context, parts []Partition) (*Reconciler, []Header, error) {
	headers := make([]Header, len(parts))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Concurrency)
	for i, part := range parts {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			header, err := readPartitionHeader(part)
			if err != nil {
				return err
			}
			headers[i] = header
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	reconciler := NewReconciler(p.opts.YearColumn)
	for i, part := range parts {
		if err := reconciler.Observe(part, headers[i]); err != nil {
			return nil, nil, err
		}
	}
	return reconciler, headers, nil
}
