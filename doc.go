// Package refrance consolidates yearly DVF (Demandes de valeurs foncières)
// transaction files into a single Parquet dataset.
//
// Input files live in one directory and are named with a four-digit year
// followed by a fixed suffix, for example 2020full.csv, 2021full.csv.
// Each file is a flat table with a header row; column sets may differ
// between years. The pipeline streams every partition in bounded-size
// chunks, reconciles the differing headers into one canonical column
// order, tags every row with its source year, and appends the result to a
// Snappy-compressed Parquet file. Every cell is kept as nullable text so
// that no value is coerced on ingest; typed interpretation belongs to the
// profiling pass (see the profile subpackage) or a later explicit cast.
//
// Basic usage:
//
//	p := refrance.New(refrance.Options{
//		DataDir:    "data",
//		OutputPath: "data/all_years.parquet",
//	})
//	summary, err := p.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("wrote %d rows\n", summary.Rows)
//
// Supported partition bodies are CSV, TSV, and XLSX, optionally compressed
// with gzip, bzip2, xz, or zstd. The finished artifact can
// additionally be loaded into a SQLite database file with ExportSQLite for
// ad-hoc SQL.
package refrance
