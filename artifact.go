package refrance

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
)

// ReadArtifactChunks streams the rows of a finished Parquet artifact to fn
// in record batches of at most chunkSize rows. A non-positive chunkSize
// falls back to DefaultRowsPerChunk. The record passed to fn is only valid
// for the duration of the call.
func ReadArtifactChunks(ctx context.Context, path string, chunkSize int, fn func(arrow.Record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	pqReader, err := pqfile.NewParquetReader(file)
	if err != nil {
		return fmt.Errorf("failed to create parquet reader for %s: %w", path, err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return fmt.Errorf("failed to create arrow reader for %s: %w", path, err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to read table from %s: %w", path, err)
	}
	defer table.Release()

	if chunkSize <= 0 {
		chunkSize = DefaultRowsPerChunk
	}
	tableReader := array.NewTableReader(table, int64(chunkSize))
	defer tableReader.Release()

	for tableReader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(tableReader.Record()); err != nil {
			return err
		}
	}
	if err := tableReader.Err(); err != nil {
		return fmt.Errorf("error reading records from %s: %w", path, err)
	}
	return nil
}
