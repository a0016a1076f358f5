// Package quality computes data-quality diagnostics for a table.
package quality

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/vegasq/medframe/table"
)

// NumericSummary describes one numeric column. Mean and StdDev are rounded to
// two decimals and are nil when undefined; Min and Max keep the column type.
type NumericSummary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"stddev"`
	Min    any      `json:"min"`
	Max    any      `json:"max"`
}

// Report is an immutable snapshot of a table's quality metrics.
type Report struct {
	TotalRecords int `json:"total_records"`
	TotalColumns int `json:"total_columns"`
	// Columns lists column names in schema order.
	Columns                []string                  `json:"columns"`
	MissingValues          map[string]int            `json:"missing_values"`
	CompletenessPercentage float64                   `json:"completeness_percentage"`
	DuplicateRows          int                       `json:"duplicate_rows"`
	ColumnTypes            map[string]string         `json:"column_types"`
	NumericSummary         map[string]NumericSummary `json:"numeric_summary"`
}

// MissingCells sums the null counts of all columns.
func (r Report) MissingCells() int {
	n := 0
	for _, c := range r.MissingValues {
		n += c
	}
	return n
}

// Assess computes the quality report of t. It does not modify t.
func Assess(t *table.Table) Report {
	s := t.Schema()
	r := Report{
		TotalRecords:   t.Len(),
		TotalColumns:   t.Width(),
		Columns:        s.Names(),
		MissingValues:  make(map[string]int, t.Width()),
		ColumnTypes:    make(map[string]string, t.Width()),
		NumericSummary: make(map[string]NumericSummary),
		DuplicateRows:  t.Len() - t.DistinctCount(),
	}

	nulls := make([]int, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			if v == nil {
				nulls[j]++
			}
		}
	}
	for j, f := range s.Fields() {
		r.MissingValues[f.Name] = nulls[j]
		r.ColumnTypes[f.Name] = f.Type.String()
	}

	r.CompletenessPercentage = 100
	if cells := t.Len() * t.Width(); cells > 0 {
		missing := r.MissingCells()
		r.CompletenessPercentage = round2(float64(cells-missing) / float64(cells) * 100)
		// Only a table without nulls reads as complete.
		if missing > 0 && r.CompletenessPercentage >= 100 {
			r.CompletenessPercentage = 99.99
		}
	}

	for j, f := range s.Fields() {
		if f.Type.Numeric() {
			r.NumericSummary[f.Name] = summarize(t, j)
		}
	}
	return r
}

func summarize(t *table.Table, col int) NumericSummary {
	var ns NumericSummary
	xs := make([]float64, 0, t.Len())
	var minIdx, maxIdx int
	for i := 0; i < t.Len(); i++ {
		x, ok := table.AsFloat(t.Row(i)[col])
		if !ok {
			continue
		}
		if len(xs) == 0 || x < xs[minIdx] {
			minIdx = len(xs)
			ns.Min = t.Row(i)[col]
		}
		if len(xs) == 0 || x > xs[maxIdx] {
			maxIdx = len(xs)
			ns.Max = t.Row(i)[col]
		}
		xs = append(xs, x)
	}
	ns.Count = len(xs)

	if len(xs) > 0 {
		mean := round2(stat.Mean(xs, nil))
		ns.Mean = &mean
	}
	if len(xs) > 1 {
		sd := round2(stat.StdDev(xs, nil))
		ns.StdDev = &sd
	}
	return ns
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
