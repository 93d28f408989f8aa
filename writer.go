package refrance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
)

// tmpArtifactSuffix marks the in-progress output file. The final path only
// ever receives a complete artifact, via rename.
const tmpArtifactSuffix = ".tmp"

// ParquetWriter streams row batches into a single Parquet artifact. All
// writes go to a temporary sibling file; Close renames it into place and
// Abort removes it, so a failed run never leaves a truncated artifact at
// the destination. Not safe for concurrent use.
type ParquetWriter struct {
	path    string
	tmpPath string
	schema  *arrow.Schema
	alloc   memory.Allocator
	file    *os.File
	writer  *pqarrow.FileWriter
	rows    int64
	closed  bool
}

// NewParquetWriter creates the temporary output file and the Parquet
// writer over it. Columns are Snappy-compressed. The destination directory
// is created if missing.
func NewParquetWriter(path string, schema *arrow.Schema) (*ParquetWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("%w: failed to create output directory %s: %v", ErrWriteFailure, dir, err)
		}
	}

	tmpPath := path + tmpArtifactSuffix
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %v", ErrWriteFailure, tmpPath, err)
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	writer, err := pqarrow.NewFileWriter(schema, file, props, pqarrow.DefaultWriterProps())
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: failed to create parquet writer for %s: %v", ErrWriteFailure, path, err)
	}

	return &ParquetWriter{
		path:    path,
		tmpPath: tmpPath,
		schema:  schema,
		alloc:   memory.DefaultAllocator,
		file:    file,
		writer:  writer,
	}, nil
}

// WriteBatch appends one batch as a Parquet row group. proj maps each data
// column of the output schema to its position in the batch header, -1 for
// columns the partition does not carry. Absent columns and empty cells
// become nulls; the partition year fills the final column of every row.
func (w *ParquetWriter) WriteBatch(batch *Batch, proj []int) error {
	if w.closed {
		return errWriterClosed
	}
	if len(batch.Records) == 0 {
		return nil
	}
	if len(proj) != len(w.schema.Fields())-1 {
		return fmt.Errorf("%w: projection has %d columns, schema has %d data columns", ErrWriteFailure, len(proj), len(w.schema.Fields())-1)
	}

	builder := array.NewRecordBuilder(w.alloc, w.schema)
	defer builder.Release()

	for i, pos := range proj {
		col := builder.Field(i).(*array.StringBuilder)
		col.Reserve(len(batch.Records))
		for _, rec := range batch.Records {
			if pos < 0 || pos >= len(rec) || rec[pos] == "" {
				col.AppendNull()
				continue
			}
			col.Append(rec[pos])
		}
	}

	yearCol := builder.Field(len(proj)).(*array.Int64Builder)
	yearCol.Reserve(len(batch.Records))
	for range batch.Records {
		yearCol.Append(int64(batch.Partition.Year))
	}

	record := builder.NewRecord()
	defer record.Release()

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailure, w.path, err)
	}
	w.rows += int64(len(batch.Records))
	return nil
}

// Close finalizes the artifact and moves it to the destination path.
// Calling Close again is a no-op. On failure the temporary file is removed
// and no artifact appears at the destination.
func (w *ParquetWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.discard()
		return fmt.Errorf("%w: failed to finalize %s: %v", ErrWriteFailure, w.path, err)
	}
	if err := w.file.Close(); err != nil {
		w.discard()
		return fmt.Errorf("%w: failed to close %s: %v", ErrWriteFailure, w.tmpPath, err)
	}
	w.file = nil
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		w.discard()
		return fmt.Errorf("%w: failed to move artifact into place: %v", ErrWriteFailure, err)
	}
	return nil
}

// Abort discards the in-progress artifact. Safe to call multiple times and
// after Close, where it does nothing.
func (w *ParquetWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	_ = w.writer.Close()
	w.discard()
}

// Rows returns the number of rows written so far.
func (w *ParquetWriter) Rows() int64 {
	return w.rows
}

// Path returns the destination path of the artifact.
func (w *ParquetWriter) Path() string {
	return w.path
}

func (w *ParquetWriter) discard() {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	_ = os.Remove(w.tmpPath)
}
