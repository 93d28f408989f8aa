package refrance

import "errors"

// Error kinds reported by the ingestion pipeline. All of them are fatal for
// the run except ErrMalformedPartitionName, which is only fatal in strict
// mode; callers distinguish kinds with errors.Is.
var (
	// ErrNoPartitionsFound indicates that the data directory holds no file
	// matching the yearly naming convention. Nothing to ingest.
	ErrNoPartitionsFound = errors.New("refrance: no partitions found")

	// ErrMalformedPartitionName indicates a file that matches the yearly
	// glob but whose year token is not a four-digit number.
	ErrMalformedPartitionName = errors.New("refrance: malformed partition name")

	// ErrUnreadablePartition indicates a partition that cannot be opened or
	// parsed (missing file, corrupt compression, inconsistent row width).
	// Partial-partition ingestion is not supported, so this aborts the run.
	ErrUnreadablePartition = errors.New("refrance: unreadable partition")

	// ErrSchemaConflict indicates a column name that cannot be reconciled,
	// such as a duplicate name within one header or a source column that
	// collides with the synthetic year column.
	ErrSchemaConflict = errors.New("refrance: schema conflict")

	// ErrWriteFailure indicates that the Parquet artifact could not be
	// written or finalized.
	ErrWriteFailure = errors.New("refrance: write failure")

	// errWriterClosed is returned when a batch is written after Close.
	errWriterClosed = errors.New("refrance: writer is already closed")
)
