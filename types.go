package refrance

import (
	"fmt"
	"strconv"
	"strings"
)

// Processing constants (rows-based).
const (
	// DefaultRowsPerChunk is the default number of rows per batch. It caps
	// peak memory at O(chunk size × schema width) regardless of input size.
	DefaultRowsPerChunk = 100_000
	// MinChunkSize is the minimum allowed rows per batch.
	MinChunkSize = 1
)

// DefaultYearColumn is the name of the synthetic partition-key column.
const DefaultYearColumn = "year"

// ChunkSize represents a batch size with validation.
type ChunkSize int

// NewChunkSize creates a new ChunkSize, falling back to the default when
// the given size is not positive.
func NewChunkSize(size int) ChunkSize {
	if size < MinChunkSize {
		return ChunkSize(DefaultRowsPerChunk)
	}
	return ChunkSize(size)
}

// Int returns the int value of ChunkSize.
func (cs ChunkSize) Int() int {
	return int(cs)
}

// String returns the string representation of ChunkSize.
func (cs ChunkSize) String() string {
	return strconv.Itoa(int(cs))
}

// Header is the ordered column-name declaration of one partition.
type Header []string

// newHeader creates a new Header.
func newHeader(h []string) Header {
	return Header(h)
}

// equal compares headers position by position.
func (h Header) equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// Record is one row of a partition as raw text fields. Typing is deferred;
// the empty string is treated as a null downstream.
type Record []string

// newRecord creates a new Record.
func newRecord(r []string) Record {
	return Record(r)
}

// validateColumnNames checks for duplicate column names within one header.
// Comparison is case-sensitive.
func validateColumnNames(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		trimmed := strings.TrimSpace(col)
		if seen[trimmed] {
			return fmt.Errorf("%w: duplicate column name %q", ErrSchemaConflict, col)
		}
		seen[trimmed] = true
	}
	return nil
}
