package refrance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// Batch is a bounded group of records drawn from exactly one partition.
// Columns is the partition's own header; projection onto the canonical
// schema happens downstream.
type Batch struct {
	// Partition is the source of every record in the batch.
	Partition Partition
	// Columns is the partition header, read once per partition.
	Columns Header
	// Records holds at most the configured chunk size of rows.
	Records []Record
}

// chunkFunc receives successive batches from one partition in file order.
type chunkFunc func(*Batch) error

// File format delimiters.
const (
	csvDelimiter = ','
	tsvDelimiter = '\t'
)

// readPartitionChunks opens one partition and streams its rows to fn in
// batches of at most size rows. Every value stays raw text. A requested
// cancellation is honored at batch boundaries. Structural problems (missing
// file, corrupt compression, inconsistent row width) are reported as
// ErrUnreadablePartition; duplicate header names as ErrSchemaConflict.
func readPartitionChunks(ctx context.Context, p Partition, size ChunkSize, fn chunkFunc) error {
	reader, closer, err := openPartition(p)
	if err != nil {
		return err
	}
	defer closer()

	switch detectFileType(p.Path) {
	case FileTypeCSV:
		return readDelimitedChunks(ctx, p, reader, csvDelimiter, size, fn)
	case FileTypeTSV:
		return readDelimitedChunks(ctx, p, reader, tsvDelimiter, size, fn)
	case FileTypeXLSX:
		return readXLSXChunks(ctx, p, reader, size, fn)
	default:
		return fmt.Errorf("%w: %s: unsupported file type", ErrUnreadablePartition, p.Path)
	}
}

// readPartitionHeader reads only the column-name declaration of one
// partition. Used by the schema-discovery pre-pass.
func readPartitionHeader(p Partition) (Header, error) {
	reader, closer, err := openPartition(p)
	if err != nil {
		return nil, err
	}
	defer closer()

	var row []string
	switch detectFileType(p.Path) {
	case FileTypeCSV, FileTypeTSV:
		csvReader := csv.NewReader(reader)
		if detectFileType(p.Path) == FileTypeTSV {
			csvReader.Comma = tsvDelimiter
		}
		row, err = csvReader.Read()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: failed to read header: %v", ErrUnreadablePartition, p.Path, err)
		}
	case FileTypeXLSX:
		row, err = readXLSXHeader(p, reader)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s: unsupported file type", ErrUnreadablePartition, p.Path)
	}

	if err := validateColumnNames(row); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path, err)
	}
	return newHeader(row), nil
}

// openPartition opens the partition file and layers decompression on top.
// The returned close function releases both.
func openPartition(p Partition) (io.Reader, func() error, error) {
	file, err := os.Open(p.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}
	if info.Size() == 0 {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%w: %s: file is empty", ErrUnreadablePartition, p.Path)
	}

	reader, decCloser, err := NewDecompressingReader(file, DetectCompressionType(p.Path))
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}

	closer := func() error {
		decErr := decCloser()
		if closeErr := file.Close(); closeErr != nil && decErr == nil {
			decErr = closeErr
		}
		return decErr
	}
	return reader, closer, nil
}

// readDelimitedChunks streams a CSV or TSV body in batches. The csv reader
// pins the field count to the header width, so a corrupted row surfaces as
// a parse error rather than a silently skipped record.
func readDelimitedChunks(ctx context.Context, p Partition, reader io.Reader, delimiter rune, size ChunkSize, fn chunkFunc) error {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter

	headerRow, err := csvReader.Read()
	if err != nil {
		return fmt.Errorf("%w: %s: failed to read header: %v", ErrUnreadablePartition, p.Path, err)
	}
	if err := validateColumnNames(headerRow); err != nil {
		return fmt.Errorf("%s: %w", p.Path, err)
	}
	header := newHeader(headerRow)

	chunkSize := size.Int()
	var chunk []Record
	for {
		row, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
		}
		chunk = append(chunk, newRecord(row))

		if len(chunk) >= chunkSize {
			if err := emitChunk(ctx, p, header, chunk, fn); err != nil {
				return err
			}
			chunk = nil
		}
	}

	if len(chunk) > 0 {
		return emitChunk(ctx, p, header, chunk, fn)
	}
	return ctx.Err()
}

// readXLSXChunks streams the first sheet of an XLSX body in batches. Rows
// shorter than the header are padded with empty cells because excelize
// drops trailing blanks; rows longer than the header are structural errors.
func readXLSXChunks(ctx context.Context, p Partition, reader io.Reader, size ChunkSize, fn chunkFunc) error {
	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}
	defer func() {
		_ = workbook.Close()
	}()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("%w: %s: no sheets found", ErrUnreadablePartition, p.Path)
	}
	iter, err := workbook.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}
	defer iter.Close()

	var (
		header Header
		first  = true
		chunk  []Record
	)
	chunkSize := size.Int()

	for iter.Next() {
		row, err := iter.Columns()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
		}

		// Skip leading empty rows.
		if first && len(row) == 0 {
			continue
		}
		if first {
			if err := validateColumnNames(row); err != nil {
				return fmt.Errorf("%s: %w", p.Path, err)
			}
			header = newHeader(row)
			first = false
			continue
		}

		if len(row) > len(header) {
			return fmt.Errorf("%w: %s: row has %d fields, header has %d", ErrUnreadablePartition, p.Path, len(row), len(header))
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		chunk = append(chunk, newRecord(row))

		if len(chunk) >= chunkSize {
			if err := emitChunk(ctx, p, header, chunk, fn); err != nil {
				return err
			}
			chunk = nil
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}

	if first {
		return fmt.Errorf("%w: %s: sheet %s is empty", ErrUnreadablePartition, p.Path, sheets[0])
	}
	if len(chunk) > 0 {
		return emitChunk(ctx, p, header, chunk, fn)
	}
	return ctx.Err()
}

// readXLSXHeader reads the first non-empty row of the first sheet.
func readXLSXHeader(p Partition, reader io.Reader) ([]string, error) {
	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}
	defer func() {
		_ = workbook.Close()
	}()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s: no sheets found", ErrUnreadablePartition, p.Path)
	}
	iter, err := workbook.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
	}
	defer iter.Close()

	for iter.Next() {
		row, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePartition, p.Path, err)
		}
		if len(row) > 0 {
			return row, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: sheet %s is empty", ErrUnreadablePartition, p.Path, sheets[0])
}

// emitChunk hands one batch to fn, honoring cancellation at the boundary.
func emitChunk(ctx context.Context, p Partition, header Header, records []Record, fn chunkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&Batch{Partition: p, Columns: header, Records: records})
}
