package missing

import (
	"context"
	"errors"
	"testing"

	"github.com/vegasq/medframe/table"
)

func patients(t *testing.T, rows []table.Row) *table.Table {
	t.Helper()
	s := table.MustSchema(
		table.Field{Name: "age", Type: table.Int},
		table.Field{Name: "weight", Type: table.Float},
		table.Field{Name: "sex", Type: table.String},
		table.Field{Name: "finding", Type: table.String},
	)
	tbl, err := table.New(s, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	return tbl
}

func TestHandle_ThresholdKeepsEqualFraction(t *testing.T) {
	tbl := patients(t, []table.Row{
		{1, 1.0, "M", "x"},   // 0/4
		{nil, 1.0, "M", "x"}, // 1/4
		{nil, nil, "M", "x"}, // 2/4 == threshold, kept
		{nil, nil, nil, "x"}, // 3/4, dropped
	})

	out, report, err := New(nil).Handle(context.Background(), tbl, Options{DropThreshold: Threshold(0.5)})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if out.Len() != 3 || report.ThresholdDropped != 1 {
		t.Errorf("Len() = %d, ThresholdDropped = %d; want 3, 1", out.Len(), report.ThresholdDropped)
	}
	if out.Width() != tbl.Width() {
		t.Errorf("Handle() changed the column count")
	}
}

func TestHandle_InvalidThreshold(t *testing.T) {
	tbl := patients(t, nil)
	for _, th := range []float64{-0.1, 1.5} {
		_, _, err := New(nil).Handle(context.Background(), tbl, Options{DropThreshold: Threshold(th)})
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %v: error = %v, want ErrInvalidThreshold", th, err)
		}
	}
}

func TestHandle_Strategies(t *testing.T) {
	rows := []table.Row{
		{1, 1.0, "M", nil},
		{1, 2.0, "F", "x"},
		{2, 4.0, "M", "x"},
		{3, nil, "F", "x"},
		{nil, 10.0, nil, "x"},
	}
	tests := []struct {
		strategy   Strategy
		wantAge    any
		wantWeight any
	}{
		{Mode, int64(1), 1.0},
		{Median, int64(1), 3.0}, // ages [1 1 2 3] -> 1.5 truncated
		{Mean, int64(1), 4.25},  // ages mean 1.75 truncated
		{Zero, int64(0), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			out, report, err := New(nil).Handle(context.Background(), patients(t, rows), Options{Strategy: tt.strategy})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := out.Row(4)[0]; got != tt.wantAge {
				t.Errorf("imputed age = %#v, want %#v", got, tt.wantAge)
			}
			if got := out.Row(3)[1]; got != tt.wantWeight {
				t.Errorf("imputed weight = %#v, want %#v", got, tt.wantWeight)
			}
			if out.Row(4)[2] != nil || out.Row(0)[3] != nil {
				t.Errorf("string columns must not be imputed")
			}
			if report.Imputed["age"] != 1 || report.Imputed["weight"] != 1 {
				t.Errorf("Imputed = %v", report.Imputed)
			}
		})
	}
}

func TestHandle_ModeOfOneOneTwoThree(t *testing.T) {
	if got := mode([]float64{1, 1, 2, 3}); got != 1 {
		t.Errorf("mode([1 1 2 3]) = %v, want 1", got)
	}
	if got := mode([]float64{2, 1, 1, 2}); got != 2 {
		t.Errorf("mode tie = %v, want first occurring value 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median = %v, want 2.5", got)
	}
}

func TestHandle_FillOverridesStrategy(t *testing.T) {
	tbl := patients(t, []table.Row{
		{nil, nil, nil, nil},
		{40, 80.0, "M", "x"},
	})
	opts := Options{
		Fill:     map[string]any{"age": 33.9, "finding": "No Finding"},
		Strategy: Median,
	}
	out, report, err := New(nil).Handle(context.Background(), tbl, opts)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := out.Row(0)[0]; got != int64(33) {
		t.Errorf("filled age = %#v, want int64(33)", got)
	}
	if got := out.Row(0)[1]; got != 80.0 {
		t.Errorf("strategy weight = %#v, want 80", got)
	}
	if got := out.Row(0)[3]; got != "No Finding" {
		t.Errorf("filled finding = %#v", got)
	}
	if _, ok := report.Imputed["age"]; ok {
		t.Errorf("strategy must skip explicitly filled columns")
	}
	if report.Filled["age"] != 1 || report.Filled["finding"] != 1 {
		t.Errorf("Filled = %v", report.Filled)
	}
}

func TestHandle_Drop(t *testing.T) {
	tbl := patients(t, []table.Row{
		{nil, 1.0, "M", "x"},
		{1, 1.0, "M", "x"},
		{1, 1.0, nil, "x"},
	})
	out, report, err := New(nil).Handle(context.Background(), tbl, Options{
		Strategy: Drop,
		Fill:     map[string]any{"age": 0},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if out.Len() != 2 || report.StrategyDropped != 1 {
		t.Errorf("Len() = %d, StrategyDropped = %d; want 2, 1", out.Len(), report.StrategyDropped)
	}
}

func TestHandle_AllNullColumnStaysUnfilled(t *testing.T) {
	tbl := patients(t, []table.Row{{nil, 1.0, "M", "x"}, {nil, nil, "F", "x"}})
	out, report, err := New(nil).Handle(context.Background(), tbl, Options{Strategy: Mean})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if n, _ := out.NullCount("age"); n != 2 {
		t.Errorf("age nulls = %d, want 2", n)
	}
	if _, ok := report.Statistics["age"]; ok {
		t.Errorf("no statistic should be recorded for an all-null column")
	}
	if report.Statistics["weight"] != 1.0 {
		t.Errorf("weight statistic = %v, want 1", report.Statistics["weight"])
	}
}

func TestHandle_FillErrors(t *testing.T) {
	tbl := patients(t, nil)
	tests := []struct {
		fill    map[string]any
		wantErr error
	}{
		{map[string]any{"height": 1}, table.ErrColumnNotFound},
		{map[string]any{"age": "unknown"}, table.ErrTypeMismatch},
	}
	for _, tt := range tests {
		_, _, err := New(nil).Handle(context.Background(), tbl, Options{Fill: tt.fill})
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Handle(%v) error = %v, want %v", tt.fill, err, tt.wantErr)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": None, "MEDIAN": Median, "mode": Mode, "drop": Drop} {
		if got, err := ParseStrategy(in); err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseStrategy("interpolate"); err == nil {
		t.Errorf("ParseStrategy(interpolate) expected error")
	}
}
