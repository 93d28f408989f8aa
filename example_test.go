package refrance_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	refrance "github.com/biondi-s/re-france"
)

// ExampleNew ingests two yearly partitions with differing column sets into
// one Parquet artifact. The 2021 file introduces an extra column; 2020 rows
// carry a null there.
func ExampleNew() {
	dir, err := os.MkdirTemp("", "refrance-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	files := map[string]string{
		"2020full.csv": "id,price\n1,100000\n2,250000\n",
		"2021full.csv": "id,price,area\n3,300000,52\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			log.Fatal(err)
		}
	}

	p := refrance.New(refrance.Options{
		DataDir:    dir,
		OutputPath: filepath.Join(dir, "all_years.parquet"),
	})
	summary, err := p.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("rows: %d\n", summary.Rows)
	fmt.Printf("columns: %v\n", summary.Columns)
	fmt.Printf("rows per year: 2020=%d 2021=%d\n", summary.RowsPerYear[2020], summary.RowsPerYear[2021])
	// Output:
	// rows: 3
	// columns: [id price area]
	// rows per year: 2020=2 2021=1
}

// ExampleExportSQLite loads a finished artifact into a SQLite database file
// for ad-hoc SQL.
func ExampleExportSQLite() {
	dir, err := os.MkdirTemp("", "refrance-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "2020full.csv"), []byte("id,price\n1,100000\n"), 0o600); err != nil {
		log.Fatal(err)
	}

	artifact := filepath.Join(dir, "all_years.parquet")
	p := refrance.New(refrance.Options{DataDir: dir, OutputPath: artifact})
	if _, err := p.Run(context.Background()); err != nil {
		log.Fatal(err)
	}

	rows, err := refrance.ExportSQLite(context.Background(), artifact, filepath.Join(dir, "dvf.db"), "transactions")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("exported rows: %d\n", rows)
	// Output:
	// exported rows: 1
}
