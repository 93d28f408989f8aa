// Package profile computes descriptive statistics over a Parquet dataset
// produced by the ingestion pipeline. Values stay text in the artifact, so
// the analyzer classifies each column as numeric or categorical from the
// data itself and reports null rates, per-year row counts, numeric
// summaries with percentiles, top value counts, and a derived
// price-per-square-meter distribution when the dataset carries the usual
// DVF price and surface columns.
package profile

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	refrance "github.com/biondi-s/re-france"
)

// minNumericConfidence is the fraction of non-null values that must parse
// as numbers for a column to be summarized numerically.
const minNumericConfidence = 0.8

// nullDisplay stands in for null cells in value-count tables.
const nullDisplay = "(null)"

// DefaultTopK is the number of values reported per categorical column.
const DefaultTopK = 10

// categoricalColumns are the DVF columns whose value distribution is
// reported when present in the dataset.
var categoricalColumns = []string{
	"nature_mutation",
	"type_local",
	"code_departement",
	"code_commune",
	"code_postal",
}

// priceColumns and surfaceColumns drive the derived price-per-square-meter
// metric; the first name present in the schema wins.
var (
	priceColumns   = []string{"valeur_fonciere", "prix"}
	surfaceColumns = []string{"surface_reelle_bati", "surface", "surface_terrain"}
)

// Options configures Analyze. Zero values fall back to defaults.
type Options struct {
	// SampleSize caps the number of values retained per numeric column for
	// percentile estimation. Zero keeps every value. Sampling is
	// deterministic, so repeated runs over the same artifact produce the
	// same report.
	SampleSize int
	// TopK is the number of values reported per categorical column.
	// Defaults to DefaultTopK.
	TopK int
	// ChunkSize is the number of rows read per batch. Defaults to the
	// ingestion default.
	ChunkSize int
	// Logger receives progress events. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Analyze reads the artifact at path in bounded chunks and computes its
// profile. The pass is single and streaming; memory is bounded by the
// chunk size, the categorical cardinalities, and the numeric samples.
func Analyze(ctx context.Context, path string, opts Options) (*Report, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var acc *accumulator
	start := time.Now()
	err := refrance.ReadArtifactChunks(ctx, path, opts.ChunkSize, func(rec arrow.Record) error {
		if acc == nil {
			acc = newAccumulator(rec.Schema(), opts)
		}
		acc.observe(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if acc == nil {
		// ReadArtifactChunks yields no records only for a zero-row table.
		return &Report{Path: path, GeneratedAt: time.Now()}, nil
	}

	report := acc.report(path)
	logger.Info("profiled dataset",
		slog.String("path", path),
		slog.Int64("rows", report.Rows),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

// columnStats accumulates per-column facts during the streaming pass.
type columnStats struct {
	name    string
	isYear  bool
	nulls   int64
	nonNull int64
	parsed  int64
	num     welford
	sample  *strideSampler
	top     map[string]int64
}

type accumulator struct {
	opts    Options
	schema  *arrow.Schema
	columns []*columnStats
	rows    int64
	years   map[int64]int64

	priceIdx   int
	surfaceIdx int
	ppm2       welford
	ppm2Sample *strideSampler
}

func newAccumulator(schema *arrow.Schema, opts Options) *accumulator {
	acc := &accumulator{
		opts:       opts,
		schema:     schema,
		years:      make(map[int64]int64),
		priceIdx:   -1,
		surfaceIdx: -1,
		ppm2Sample: newStrideSampler(opts.SampleSize),
	}

	yearIdx := schema.NumFields() - 1
	for i, field := range schema.Fields() {
		stats := &columnStats{
			name:   field.Name,
			isYear: i == yearIdx && field.Type.ID() == arrow.INT64,
			sample: newStrideSampler(opts.SampleSize),
		}
		if isCategorical(field.Name) {
			stats.top = make(map[string]int64)
		}
		acc.columns = append(acc.columns, stats)
	}

	acc.priceIdx = firstPresent(schema, priceColumns)
	acc.surfaceIdx = firstPresent(schema, surfaceColumns)
	return acc
}

func firstPresent(schema *arrow.Schema, names []string) int {
	for _, name := range names {
		if indices := schema.FieldIndices(name); len(indices) > 0 {
			return indices[0]
		}
	}
	return -1
}

func isCategorical(name string) bool {
	for _, col := range categoricalColumns {
		if col == name {
			return true
		}
	}
	return false
}

func (acc *accumulator) observe(rec arrow.Record) {
	numRows := int(rec.NumRows())
	acc.rows += int64(numRows)

	for i, stats := range acc.columns {
		col := rec.Column(i)
		switch arr := col.(type) {
		case *array.Int64:
			acc.observeYears(arr, stats)
		case *array.String:
			acc.observeText(arr, stats)
		}
	}

	acc.observePricePerM2(rec, numRows)
}

func (acc *accumulator) observeYears(arr *array.Int64, stats *columnStats) {
	for row := range arr.Len() {
		if arr.IsNull(row) {
			stats.nulls++
			continue
		}
		v := arr.Value(row)
		stats.nonNull++
		stats.parsed++
		stats.num.add(float64(v))
		stats.sample.add(float64(v))
		if stats.isYear {
			acc.years[v]++
		}
	}
}

func (acc *accumulator) observeText(arr *array.String, stats *columnStats) {
	for row := range arr.Len() {
		if arr.IsNull(row) {
			stats.nulls++
			if stats.top != nil {
				stats.top[nullDisplay]++
			}
			continue
		}
		value := arr.Value(row)
		stats.nonNull++
		if stats.top != nil {
			stats.top[value]++
		}
		if v, ok := parseNumber(value); ok {
			stats.parsed++
			stats.num.add(v)
			stats.sample.add(v)
		}
	}
}

func (acc *accumulator) observePricePerM2(rec arrow.Record, numRows int) {
	if acc.priceIdx < 0 || acc.surfaceIdx < 0 {
		return
	}
	priceCol, ok := rec.Column(acc.priceIdx).(*array.String)
	if !ok {
		return
	}
	surfaceCol, ok := rec.Column(acc.surfaceIdx).(*array.String)
	if !ok {
		return
	}
	for row := range numRows {
		if priceCol.IsNull(row) || surfaceCol.IsNull(row) {
			continue
		}
		price, ok := parseNumber(priceCol.Value(row))
		if !ok {
			continue
		}
		surface, ok := parseNumber(surfaceCol.Value(row))
		if !ok || surface <= 0 {
			continue
		}
		ratio := price / surface
		acc.ppm2.add(ratio)
		acc.ppm2Sample.add(ratio)
	}
}

func (acc *accumulator) report(path string) *Report {
	report := &Report{
		Path:        path,
		Rows:        acc.rows,
		RowsPerYear: acc.years,
		GeneratedAt: time.Now(),
	}

	for _, stats := range acc.columns {
		kind := KindText
		numeric := stats.nonNull > 0 &&
			float64(stats.parsed)/float64(stats.nonNull) >= minNumericConfidence
		if numeric {
			kind = KindNumeric
		}

		col := ColumnProfile{
			Name:     stats.name,
			Kind:     kind,
			Nulls:    stats.nulls,
			NullRate: rate(stats.nulls, acc.rows),
		}
		report.Columns = append(report.Columns, col)

		if numeric {
			report.Numeric = append(report.Numeric, numericSummary(stats.name, &stats.num, stats.sample))
		}
		if stats.top != nil {
			report.Categoricals = append(report.Categoricals, CategoricalSummary{
				Column:   stats.name,
				Distinct: int64(len(stats.top)),
				Top:      topValues(stats.top, acc.opts.TopK),
			})
		}
	}

	for _, col := range report.Columns {
		if col.Nulls > 0 {
			report.Missing = append(report.Missing, col)
		}
	}
	sort.Slice(report.Missing, func(i, j int) bool {
		if report.Missing[i].Nulls != report.Missing[j].Nulls {
			return report.Missing[i].Nulls > report.Missing[j].Nulls
		}
		return report.Missing[i].Name < report.Missing[j].Name
	})
	if len(report.Missing) > acc.opts.TopK {
		report.Missing = report.Missing[:acc.opts.TopK]
	}

	if acc.ppm2.n > 0 {
		summary := numericSummary("price_per_m2", &acc.ppm2, acc.ppm2Sample)
		report.PricePerM2 = &summary
	}
	return report
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func numericSummary(name string, w *welford, sample *strideSampler) NumericSummary {
	values := sample.sorted()
	return NumericSummary{
		Column:  name,
		Count:   w.n,
		Mean:    w.meanValue(),
		Std:     w.stddev(),
		Min:     w.min,
		Max:     w.max,
		P25:     percentile(values, 25),
		P50:     percentile(values, 50),
		P75:     percentile(values, 75),
		P90:     percentile(values, 90),
		P99:     percentile(values, 99),
		Sampled: sample.truncated(),
	}
}

func topValues(counts map[string]int64, k int) []ValueCount {
	all := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		all = append(all, ValueCount{Value: value, Count: count})
	}
	// Ties break on value so the ordering is stable across runs.
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Value < all[j].Value
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// parseNumber parses a cell as a float, accepting the comma decimal
// separator used in French exports.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.ContainsRune(s, ',') && !strings.ContainsRune(s, '.') {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// welford accumulates mean and variance in one pass.
type welford struct {
	n        int64
	mean     float64
	m2       float64
	min, max float64
}

func (w *welford) add(v float64) {
	w.n++
	if w.n == 1 {
		w.min, w.max = v, v
	} else {
		if v < w.min {
			w.min = v
		}
		if v > w.max {
			w.max = v
		}
	}
	delta := v - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (v - w.mean)
}

func (w *welford) meanValue() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.mean
}

func (w *welford) stddev() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// strideSampler keeps a bounded, deterministic subset of a value stream.
// When the buffer fills it discards every other retained value and doubles
// its stride, so the kept values stay evenly spread over the stream
// regardless of its length.
type strideSampler struct {
	max    int
	stride int64
	seen   int64
	values []float64
}

func newStrideSampler(max int) *strideSampler {
	return &strideSampler{max: max, stride: 1}
}

func (s *strideSampler) add(v float64) {
	defer func() { s.seen++ }()
	if s.max <= 0 {
		s.values = append(s.values, v)
		return
	}
	if s.seen%s.stride != 0 {
		return
	}
	if len(s.values) >= s.max {
		kept := s.values[:0]
		for i := 0; i < len(s.values); i += 2 {
			kept = append(kept, s.values[i])
		}
		s.values = kept
		s.stride *= 2
		if s.seen%s.stride != 0 {
			return
		}
	}
	s.values = append(s.values, v)
}

// truncated reports whether any value was discarded.
func (s *strideSampler) truncated() bool {
	return s.max > 0 && s.seen > int64(len(s.values))
}

// sorted returns the retained values in ascending order.
func (s *strideSampler) sorted() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	sort.Float64s(out)
	return out
}

// percentile computes the p-th percentile of sorted values with linear
// interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
