package profile

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	refrance "github.com/biondi-s/re-france"
)

func buildArtifact(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	outPath := filepath.Join(dir, "all_years.parquet")
	_, err := refrance.New(refrance.Options{DataDir: dir, OutputPath: outPath}).Run(context.Background())
	require.NoError(t, err)
	return outPath
}

func dvfArtifact(t *testing.T) string {
	t.Helper()
	return buildArtifact(t, map[string]string{
		"2020full.csv": "valeur_fonciere,surface_reelle_bati,nature_mutation\n" +
			"100000,50,Vente\n" +
			"200000,100,Vente\n" +
			",80,Echange\n",
		"2021full.csv": "valeur_fonciere,surface_reelle_bati,nature_mutation\n" +
			"300000,75,Vente\n",
	})
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	t.Run("shape and year counts", func(t *testing.T) {
		t.Parallel()
		report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
		require.NoError(t, err)

		assert.Equal(t, int64(4), report.Rows)
		assert.Len(t, report.Columns, 4)
		assert.Equal(t, map[int64]int64{2020: 3, 2021: 1}, report.RowsPerYear)
	})

	t.Run("column classification and null rates", func(t *testing.T) {
		t.Parallel()
		report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
		require.NoError(t, err)

		byName := make(map[string]ColumnProfile)
		for _, col := range report.Columns {
			byName[col.Name] = col
		}

		assert.Equal(t, KindNumeric, byName["valeur_fonciere"].Kind)
		assert.Equal(t, KindNumeric, byName["surface_reelle_bati"].Kind)
		assert.Equal(t, KindText, byName["nature_mutation"].Kind)
		assert.Equal(t, KindNumeric, byName["year"].Kind)

		assert.Equal(t, int64(1), byName["valeur_fonciere"].Nulls)
		assert.InDelta(t, 0.25, byName["valeur_fonciere"].NullRate, 1e-9)
		assert.Zero(t, byName["year"].Nulls)

		require.Len(t, report.Missing, 1)
		assert.Equal(t, "valeur_fonciere", report.Missing[0].Name)
	})

	t.Run("numeric summary", func(t *testing.T) {
		t.Parallel()
		report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
		require.NoError(t, err)

		var prices *NumericSummary
		for i := range report.Numeric {
			if report.Numeric[i].Column == "valeur_fonciere" {
				prices = &report.Numeric[i]
			}
		}
		require.NotNil(t, prices)
		assert.Equal(t, int64(3), prices.Count, "nulls are excluded")
		assert.InDelta(t, 200000, prices.Mean, 1e-6)
		assert.InDelta(t, 100000, prices.Min, 1e-6)
		assert.InDelta(t, 300000, prices.Max, 1e-6)
		assert.InDelta(t, 200000, prices.P50, 1e-6)
		assert.False(t, prices.Sampled)
	})

	t.Run("categorical top values", func(t *testing.T) {
		t.Parallel()
		report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
		require.NoError(t, err)

		require.Len(t, report.Categoricals, 1)
		cat := report.Categoricals[0]
		assert.Equal(t, "nature_mutation", cat.Column)
		assert.Equal(t, int64(2), cat.Distinct)
		require.NotEmpty(t, cat.Top)
		assert.Equal(t, ValueCount{Value: "Vente", Count: 3}, cat.Top[0])
	})

	t.Run("price per square meter", func(t *testing.T) {
		t.Parallel()
		report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
		require.NoError(t, err)

		require.NotNil(t, report.PricePerM2)
		// Rows with a null price do not contribute.
		assert.Equal(t, int64(3), report.PricePerM2.Count)
		assert.InDelta(t, 2000, report.PricePerM2.Min, 1e-6)
		assert.InDelta(t, 4000, report.PricePerM2.Max, 1e-6)
	})

	t.Run("sampling keeps the report deterministic", func(t *testing.T) {
		t.Parallel()
		artifact := dvfArtifact(t)

		first, err := Analyze(context.Background(), artifact, Options{SampleSize: 2})
		require.NoError(t, err)
		second, err := Analyze(context.Background(), artifact, Options{SampleSize: 2})
		require.NoError(t, err)

		require.Len(t, second.Numeric, len(first.Numeric))
		for i := range first.Numeric {
			assert.Equal(t, first.Numeric[i], second.Numeric[i])
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		t.Parallel()
		_, err := Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"), Options{})
		require.Error(t, err)
	})
}

func TestReport_Render(t *testing.T) {
	t.Parallel()

	report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "rows: 4")
	assert.Contains(t, out, "rows per year")
	assert.Contains(t, out, "2020")
	assert.Contains(t, out, "valeur_fonciere")
	assert.Contains(t, out, "top values: nature_mutation")
	assert.Contains(t, out, "price per square meter")
}

func TestReport_WriteFile(t *testing.T) {
	t.Parallel()

	report, err := Analyze(context.Background(), dvfArtifact(t), Options{})
	require.NoError(t, err)

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "report.txt")
		require.NoError(t, report.WriteFile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "rows: 4")
	})

	t.Run("gzip compressed", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "report.txt.gz")
		require.NoError(t, report.WriteFile(path))

		file, err := os.Open(path)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, file.Close())
		}()
		reader, closeFunc, err := refrance.NewDecompressingReader(file, refrance.CompressionGZ)
		require.NoError(t, err)
		data := make([]byte, 64)
		n, _ := reader.Read(data)
		require.NoError(t, closeFunc())
		assert.Contains(t, string(data[:n]), "dataset profile")
	})
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{name: "integer", input: "100", expected: 100, ok: true},
		{name: "decimal point", input: "1234.56", expected: 1234.56, ok: true},
		{name: "comma decimal separator", input: "1234,56", expected: 1234.56, ok: true},
		{name: "surrounding whitespace", input: " 42 ", expected: 42, ok: true},
		{name: "empty", input: "", ok: false},
		{name: "text", input: "Vente", ok: false},
		{name: "mixed", input: "12a", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, ok := parseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, v, 1e-9)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	values := []float64{10, 20, 30, 40, 50}

	assert.InDelta(t, 30, percentile(values, 50), 1e-9)
	assert.InDelta(t, 20, percentile(values, 25), 1e-9)
	assert.InDelta(t, 10, percentile(values, 0), 1e-9)
	assert.InDelta(t, 50, percentile(values, 100), 1e-9)
	assert.InDelta(t, 46, percentile(values, 90), 1e-9)
	assert.True(t, math.IsNaN(percentile(nil, 50)))
}

func TestStrideSampler(t *testing.T) {
	t.Parallel()

	t.Run("unbounded keeps everything", func(t *testing.T) {
		t.Parallel()
		s := newStrideSampler(0)
		for i := range 100 {
			s.add(float64(i))
		}
		assert.Len(t, s.values, 100)
		assert.False(t, s.truncated())
	})

	t.Run("bounded stays within twice the cap", func(t *testing.T) {
		t.Parallel()
		s := newStrideSampler(10)
		for i := range 10000 {
			s.add(float64(i))
		}
		assert.LessOrEqual(t, len(s.values), 20)
		assert.GreaterOrEqual(t, len(s.values), 5)
		assert.True(t, s.truncated())
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		a, b := newStrideSampler(16), newStrideSampler(16)
		for i := range 1000 {
			a.add(float64(i))
			b.add(float64(i))
		}
		assert.Equal(t, a.values, b.values)
	})
}

func TestWelford(t *testing.T) {
	t.Parallel()

	var w welford
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.add(v)
	}
	assert.Equal(t, int64(8), w.n)
	assert.InDelta(t, 5, w.meanValue(), 1e-9)
	assert.InDelta(t, 2, w.min, 1e-9)
	assert.InDelta(t, 9, w.max, 1e-9)
	// Sample standard deviation of the classic example.
	assert.InDelta(t, 2.1380899, w.stddev(), 1e-6)
}
