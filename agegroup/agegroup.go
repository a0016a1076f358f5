// Package agegroup assigns patients to age bands.
//
// Bands are half-open: Junior below 30, Middle from 30 up to 60, Senior from
// 60 on. Undefined ages (null, NaN, non-numeric) have no band.
package agegroup

import (
	"context"
	"fmt"
	"math"

	"github.com/vegasq/medframe/table"
)

// Band is an age group. The zero value is Undefined and bands order as
// Junior < Middle < Senior.
type Band int

const (
	Undefined Band = iota
	Junior
	Middle
	Senior
)

// Band boundaries in years.
const (
	MiddleFrom = 30
	SeniorFrom = 60
)

// String returns the band label; Undefined is the empty string.
func (b Band) String() string {
	switch b {
	case Junior:
		return "Junior"
	case Middle:
		return "Middle"
	case Senior:
		return "Senior"
	default:
		return ""
	}
}

// Categorize returns the band of a defined age. NaN is Undefined.
func Categorize(age float64) Band {
	switch {
	case math.IsNaN(age):
		return Undefined
	case age < MiddleFrom:
		return Junior
	case age < SeniorFrom:
		return Middle
	default:
		return Senior
	}
}

// CategorizeValue categorizes a table cell. It reports false for null and
// non-numeric values.
func CategorizeValue(v any) (Band, bool) {
	age, ok := table.AsFloat(v)
	if !ok {
		return Undefined, false
	}
	b := Categorize(age)
	return b, b != Undefined
}

// Apply returns t with a String column outColumn holding the band of
// ageColumn per row; undefined ages give null.
//
// The age column must be numeric, otherwise the error wraps
// table.ErrTypeMismatch.
func Apply(ctx context.Context, t *table.Table, ageColumn, outColumn string) (*table.Table, error) {
	idx, f, err := t.Schema().Lookup(ageColumn)
	if err != nil {
		return nil, fmt.Errorf("age group: %w", err)
	}
	if !f.Type.Numeric() {
		return nil, fmt.Errorf("age group: column %q is %s: %w", ageColumn, f.Type, table.ErrTypeMismatch)
	}

	return t.Derive(ctx, table.Field{Name: outColumn, Type: table.String}, func(r table.Row) (any, error) {
		b, ok := CategorizeValue(r[idx])
		if !ok {
			return nil, nil
		}
		return b.String(), nil
	})
}
