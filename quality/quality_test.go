package quality

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vegasq/medframe/table"
)

func sample(t *testing.T, rows []table.Row) *table.Table {
	t.Helper()
	s := table.MustSchema(
		table.Field{Name: "age", Type: table.Int},
		table.Field{Name: "score", Type: table.Float},
		table.Field{Name: "finding", Type: table.String},
	)
	tbl, err := table.New(s, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	return tbl
}

func TestAssess(t *testing.T) {
	tbl := sample(t, []table.Row{
		{30, 1.0, "COVID-19"},
		{30, 1.0, "COVID-19"},
		{60, nil, "Pneumonia"},
		{nil, 4.0, nil},
	})
	r := Assess(tbl)

	if r.TotalRecords != 4 || r.TotalColumns != 3 {
		t.Errorf("totals = %d x %d, want 4 x 3", r.TotalRecords, r.TotalColumns)
	}
	if r.DuplicateRows != 1 {
		t.Errorf("DuplicateRows = %d, want 1", r.DuplicateRows)
	}
	want := map[string]int{"age": 1, "score": 1, "finding": 1}
	for c, n := range want {
		if r.MissingValues[c] != n {
			t.Errorf("MissingValues[%s] = %d, want %d", c, r.MissingValues[c], n)
		}
	}
	// (12 - 3) / 12 = 75%
	if r.CompletenessPercentage != 75 {
		t.Errorf("CompletenessPercentage = %v, want 75", r.CompletenessPercentage)
	}
	if r.ColumnTypes["age"] != "int" || r.ColumnTypes["finding"] != "string" {
		t.Errorf("ColumnTypes = %v", r.ColumnTypes)
	}
	if _, ok := r.NumericSummary["finding"]; ok {
		t.Errorf("string column must not have a numeric summary")
	}

	age := r.NumericSummary["age"]
	if age.Count != 3 || *age.Mean != 40 || age.Min != int64(30) || age.Max != int64(60) {
		t.Errorf("age summary = %+v", age)
	}
	// sample stddev of 30, 30, 60 = 17.3205...
	if age.StdDev == nil || *age.StdDev != 17.32 {
		t.Errorf("age stddev = %v, want 17.32", age.StdDev)
	}
	if score := r.NumericSummary["score"]; score.Min != 1.0 || score.Max != 4.0 {
		t.Errorf("score summary = %+v", score)
	}
}

func TestAssess_EdgeCases(t *testing.T) {
	r := Assess(sample(t, nil))
	if r.CompletenessPercentage != 100 {
		t.Errorf("empty table completeness = %v, want 100", r.CompletenessPercentage)
	}
	if s := r.NumericSummary["age"]; s.Count != 0 || s.Mean != nil || s.StdDev != nil || s.Min != nil {
		t.Errorf("empty summary = %+v", s)
	}

	r = Assess(sample(t, []table.Row{{5, nil, "x"}}))
	if s := r.NumericSummary["age"]; s.StdDev != nil || *s.Mean != 5 {
		t.Errorf("single value summary = %+v, want mean 5 and no stddev", s)
	}
	if r.CompletenessPercentage != 66.67 {
		t.Errorf("CompletenessPercentage = %v, want 66.67", r.CompletenessPercentage)
	}
}

func TestAssess_CompletenessNeverRoundsUpToFull(t *testing.T) {
	s := table.MustSchema(table.Field{Name: "age", Type: table.Int})
	rows := make([]table.Row, 30000)
	for i := range rows {
		rows[i] = table.Row{int64(i % 90)}
	}
	rows[123] = table.Row{nil}
	tbl, err := table.New(s, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}

	r := Assess(tbl)
	if r.MissingCells() != 1 {
		t.Fatalf("MissingCells() = %d, want 1", r.MissingCells())
	}
	if r.CompletenessPercentage != 99.99 {
		t.Errorf("CompletenessPercentage = %v, want 99.99", r.CompletenessPercentage)
	}

	rows[123] = table.Row{int64(1)}
	if tbl, err = table.New(s, rows); err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	if r := Assess(tbl); r.CompletenessPercentage != 100 {
		t.Errorf("CompletenessPercentage without nulls = %v, want 100", r.CompletenessPercentage)
	}
}

func TestFormat(t *testing.T) {
	r := Assess(sample(t, []table.Row{{30, nil, "COVID-19"}, {40, 2.0, "Pneumonia"}}))
	var buf bytes.Buffer
	if err := Format(&buf, r); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"DATA QUALITY ASSESSMENT REPORT", "83.33%", "score", "50.00%", "35.00", "7.07"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() output missing %q:\n%s", want, out)
		}
	}
}
