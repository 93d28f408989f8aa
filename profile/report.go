package profile

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	refrance "github.com/biondi-s/re-france"
)

// ColumnKind classifies a column by the values it holds.
type ColumnKind string

const (
	// KindText marks a column treated as free text.
	KindText ColumnKind = "text"
	// KindNumeric marks a column whose values are predominantly numbers.
	KindNumeric ColumnKind = "numeric"
)

// ColumnProfile describes one column of the dataset.
type ColumnProfile struct {
	Name     string
	Kind     ColumnKind
	Nulls    int64
	NullRate float64
}

// NumericSummary holds descriptive statistics of one numeric column.
// Percentiles come from a deterministic sample when Sampled is true.
type NumericSummary struct {
	Column  string
	Count   int64
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
	P25     float64
	P50     float64
	P75     float64
	P90     float64
	P99     float64
	Sampled bool
}

// ValueCount is one value of a categorical column with its frequency.
type ValueCount struct {
	Value string
	Count int64
}

// CategoricalSummary holds the most frequent values of one column.
type CategoricalSummary struct {
	Column   string
	Distinct int64
	Top      []ValueCount
}

// Report is the full profile of one dataset.
type Report struct {
	Path         string
	Rows         int64
	Columns      []ColumnProfile
	Missing      []ColumnProfile
	RowsPerYear  map[int64]int64
	Numeric      []NumericSummary
	Categoricals []CategoricalSummary
	PricePerM2   *NumericSummary
	GeneratedAt  time.Time
}

// Render writes the report as aligned plain text.
func (r *Report) Render(w io.Writer) error {
	fmt.Fprintf(w, "dataset profile: %s\n", r.Path)
	fmt.Fprintf(w, "generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "rows: %d  columns: %d\n", r.Rows, len(r.Columns))

	if len(r.RowsPerYear) > 0 {
		fmt.Fprintf(w, "\nrows per year\n")
		years := make([]int64, 0, len(r.RowsPerYear))
		for year := range r.RowsPerYear {
			years = append(years, year)
		}
		sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
		tw := newTabWriter(w)
		for _, year := range years {
			fmt.Fprintf(tw, "  %d\t%d\n", year, r.RowsPerYear[year])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Columns) > 0 {
		fmt.Fprintf(w, "\ncolumns\n")
		tw := newTabWriter(w)
		fmt.Fprintf(tw, "  name\tkind\tnulls\tnull%%\n")
		for _, col := range r.Columns {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%.2f\n", col.Name, col.Kind, col.Nulls, col.NullRate*100)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "\nmost missing values\n")
		tw := newTabWriter(w)
		for _, col := range r.Missing {
			fmt.Fprintf(tw, "  %s\t%d\t%.2f%%\n", col.Name, col.Nulls, col.NullRate*100)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Numeric) > 0 {
		fmt.Fprintf(w, "\nnumeric summary\n")
		tw := newTabWriter(w)
		fmt.Fprintf(tw, "  column\tcount\tmean\tstd\tmin\tp25\tp50\tp75\tp90\tp99\tmax\n")
		for _, num := range r.Numeric {
			writeNumericRow(tw, num)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, cat := range r.Categoricals {
		fmt.Fprintf(w, "\ntop values: %s (%d distinct)\n", cat.Column, cat.Distinct)
		tw := newTabWriter(w)
		for _, vc := range cat.Top {
			fmt.Fprintf(tw, "  %s\t%d\n", vc.Value, vc.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if r.PricePerM2 != nil {
		fmt.Fprintf(w, "\nprice per square meter\n")
		tw := newTabWriter(w)
		fmt.Fprintf(tw, "  column\tcount\tmean\tstd\tmin\tp25\tp50\tp75\tp90\tp99\tmax\n")
		writeNumericRow(tw, *r.PricePerM2)
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile renders the report to path, compressing the output when the
// path carries a known compression extension.
func (r *Report) WriteFile(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	writer, closeFunc, err := refrance.NewCompressingWriter(file, refrance.DetectCompressionType(path))
	if err != nil {
		return err
	}
	if err := r.Render(writer); err != nil {
		return err
	}
	return closeFunc()
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeNumericRow(w io.Writer, num NumericSummary) {
	marker := ""
	if num.Sampled {
		marker = "~"
	}
	fmt.Fprintf(w, "  %s\t%d\t%.2f\t%.2f\t%.2f\t%s%.2f\t%s%.2f\t%s%.2f\t%s%.2f\t%s%.2f\t%.2f\n",
		num.Column, num.Count, num.Mean, num.Std, num.Min,
		marker, num.P25, marker, num.P50, marker, num.P75,
		marker, num.P90, marker, num.P99, num.Max)
}
