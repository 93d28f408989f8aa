package refrance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	// SQLite driver (registers as "sqlite").
	_ "modernc.org/sqlite"
)

// DefaultExportTable is the table name ExportSQLite uses when none is
// given.
const DefaultExportTable = "transactions"

// ExportSQLite loads a finished Parquet artifact into a SQLite database
// file for ad-hoc SQL. Text columns map to TEXT, the year column to
// INTEGER; nulls are preserved. The table must not already exist. Returns
// the number of rows inserted.
func ExportSQLite(ctx context.Context, artifactPath, dbPath, tableName string) (int64, error) {
	if tableName == "" {
		tableName = DefaultExportTable
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	defer func() {
		_ = db.Close()
	}()

	var exists int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		tableName).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check table existence: %w", err)
	}
	if exists > 0 {
		return 0, fmt.Errorf("table %q already exists in %s", tableName, dbPath)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		stmt  *sql.Stmt
		total int64
	)
	err = ReadArtifactChunks(ctx, artifactPath, DefaultRowsPerChunk, func(rec arrow.Record) error {
		if stmt == nil {
			if err := createExportTable(ctx, tx, tableName, rec.Schema()); err != nil {
				return err
			}
			prepared, err := prepareExportInsert(ctx, tx, tableName, int(rec.NumCols()))
			if err != nil {
				return err
			}
			stmt = prepared
		}

		for row := range int(rec.NumRows()) {
			values := make([]any, rec.NumCols())
			for col := range int(rec.NumCols()) {
				values[col] = sqliteCell(rec.Column(col), row)
			}
			if _, err := stmt.ExecContext(ctx, values...); err != nil {
				return fmt.Errorf("failed to insert row: %w", err)
			}
		}
		total += rec.NumRows()
		return nil
	})
	if stmt != nil {
		_ = stmt.Close()
	}
	if err != nil {
		return 0, err
	}
	if stmt == nil {
		return 0, fmt.Errorf("artifact %s holds no rows", artifactPath)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return total, nil
}

// createExportTable creates the destination table from the artifact schema.
func createExportTable(ctx context.Context, tx *sql.Tx, tableName string, schema *arrow.Schema) error {
	columns := make([]string, 0, schema.NumFields())
	for _, field := range schema.Fields() {
		sqlType := "TEXT"
		if field.Type.ID() == arrow.INT64 {
			sqlType = "INTEGER"
		}
		columns = append(columns, fmt.Sprintf(`"%s" %s`, field.Name, sqlType))
	}
	query := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, tableName, strings.Join(columns, ", "))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %q: %w", tableName, err)
	}
	return nil
}

// prepareExportInsert prepares the positional insert statement.
func prepareExportInsert(ctx context.Context, tx *sql.Tx, tableName string, width int) (*sql.Stmt, error) {
	placeholders := make([]string, width)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf(`INSERT INTO "%s" VALUES (%s)`, tableName, strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	return stmt, nil
}

// sqliteCell converts one arrow cell to a driver value, nil for nulls.
func sqliteCell(col arrow.Array, row int) any {
	if col.IsNull(row) {
		return nil
	}
	switch arr := col.(type) {
	case *array.String:
		return arr.Value(row)
	case *array.Int64:
		return arr.Value(row)
	default:
		return col.ValueStr(row)
	}
}
