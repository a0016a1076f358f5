package agegroup

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/vegasq/medframe/table"
)

func TestCategorize_Boundaries(t *testing.T) {
	tests := []struct {
		age  float64
		want Band
	}{
		{-1, Junior},
		{0, Junior},
		{29, Junior},
		{29.99, Junior},
		{30, Middle},
		{59, Middle},
		{59.5, Middle},
		{60, Senior},
		{120, Senior},
		{math.Inf(1), Senior},
		{math.NaN(), Undefined},
	}
	for _, tt := range tests {
		if got := Categorize(tt.age); got != tt.want {
			t.Errorf("Categorize(%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestCategorize_Monotonic(t *testing.T) {
	prev := Categorize(-10)
	for age := -10.0; age <= 130; age += 0.5 {
		b := Categorize(age)
		if b < prev {
			t.Fatalf("Categorize(%v) = %v after %v", age, b, prev)
		}
		prev = b
	}
}

func TestCategorizeValue(t *testing.T) {
	tests := []struct {
		in     any
		want   Band
		wantOK bool
	}{
		{int64(45), Middle, true},
		{70.0, Senior, true},
		{nil, Undefined, false},
		{"45", Undefined, false},
		{math.NaN(), Undefined, false},
	}
	for _, tt := range tests {
		got, ok := CategorizeValue(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CategorizeValue(%#v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestApply(t *testing.T) {
	s := table.MustSchema(table.Field{Name: "age", Type: table.Int}, table.Field{Name: "sex", Type: table.String})
	tbl, err := table.New(s, []table.Row{{25, "M"}, {45, "F"}, {70, "M"}, {nil, "F"}})
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}

	out, err := Apply(context.Background(), tbl, "age", "age_group")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []any{"Junior", "Middle", "Senior", nil}
	for i, w := range want {
		if got, _ := out.Value(i, "age_group"); got != w {
			t.Errorf("row %d age_group = %v, want %v", i, got, w)
		}
	}

	if _, err := Apply(context.Background(), tbl, "sex", "g"); !errors.Is(err, table.ErrTypeMismatch) {
		t.Errorf("Apply(sex) error = %v, want ErrTypeMismatch", err)
	}
	if _, err := Apply(context.Background(), tbl, "years", "g"); !errors.Is(err, table.ErrColumnNotFound) {
		t.Errorf("Apply(years) error = %v, want ErrColumnNotFound", err)
	}
}
