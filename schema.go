package refrance

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
)

// Reconciler merges per-partition headers into one canonical column set.
// Columns are unified by name in first-observed order; a column missing
// from a partition is simply null for that partition's rows. All data
// columns are nullable text because typing is deferred to readers of the
// artifact. The synthetic partition-key column is appended last.
type Reconciler struct {
	yearColumn string
	columns    []string
	index      map[string]int
}

// NewReconciler creates a Reconciler with the given partition-key column
// name. An empty name falls back to DefaultYearColumn.
func NewReconciler(yearColumn string) *Reconciler {
	if yearColumn == "" {
		yearColumn = DefaultYearColumn
	}
	return &Reconciler{
		yearColumn: yearColumn,
		index:      make(map[string]int),
	}
}

// Observe folds one partition header into the canonical column set. New
// names are appended, known names keep their position. A data column that
// collides with the partition-key column name is an ErrSchemaConflict
// because the synthetic column would silently shadow it.
func (r *Reconciler) Observe(p Partition, header Header) error {
	if err := validateColumnNames(header); err != nil {
		return fmt.Errorf("%s: %w", p.Path, err)
	}
	for _, col := range header {
		if col == r.yearColumn {
			return fmt.Errorf("%w: %s: column %q collides with the partition-key column", ErrSchemaConflict, p.Path, col)
		}
		if _, ok := r.index[col]; ok {
			continue
		}
		r.index[col] = len(r.columns)
		r.columns = append(r.columns, col)
	}
	return nil
}

// Columns returns the canonical data columns in first-observed order,
// without the partition-key column.
func (r *Reconciler) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Width returns the number of canonical data columns.
func (r *Reconciler) Width() int {
	return len(r.columns)
}

// YearColumn returns the partition-key column name.
func (r *Reconciler) YearColumn() string {
	return r.yearColumn
}

// ArrowSchema builds the output schema: every data column as nullable
// utf8 and the partition-key column as non-nullable int64, appended last.
func (r *Reconciler) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(r.columns)+1)
	for _, col := range r.columns {
		fields = append(fields, arrow.Field{
			Name:     col,
			Type:     arrow.BinaryTypes.String,
			Nullable: true,
		})
	}
	fields = append(fields, arrow.Field{
		Name:     r.yearColumn,
		Type:     arrow.PrimitiveTypes.Int64,
		Nullable: false,
	})
	return arrow.NewSchema(fields, nil)
}

// Projection maps each canonical data column to its position in the given
// partition header, or -1 when the partition does not carry the column.
func (r *Reconciler) Projection(header Header) []int {
	positions := make(map[string]int, len(header))
	for i, col := range header {
		positions[col] = i
	}
	proj := make([]int, len(r.columns))
	for i, col := range r.columns {
		if pos, ok := positions[col]; ok {
			proj[i] = pos
		} else {
			proj[i] = -1
		}
	}
	return proj
}
