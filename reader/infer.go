package reader

import "github.com/vegasq/medframe/table"

// inferenceOrder lists candidate types from most to least specific. String
// always succeeds and is the fallback.
var inferenceOrder = []table.Type{table.Int, table.Float, table.Bool, table.Date}

// inferColumn picks the most specific type every non-null cell of column j
// converts to. A column without non-null cells is String.
func inferColumn(records [][]string, j int, nullValue string) table.Type {
	candidates := make([]bool, len(inferenceOrder))
	for i := range candidates {
		candidates[i] = true
	}

	seen := false
	for _, rec := range records {
		if j >= len(rec) || isNull(rec[j], nullValue) {
			continue
		}
		seen = true
		remaining := false
		for i, typ := range inferenceOrder {
			if !candidates[i] {
				continue
			}
			if _, err := table.Convert(rec[j], typ); err != nil {
				candidates[i] = false
				continue
			}
			remaining = true
		}
		if !remaining {
			return table.String
		}
	}
	if !seen {
		return table.String
	}
	for i, ok := range candidates {
		if ok {
			return inferenceOrder[i]
		}
	}
	return table.String
}

// widen returns the narrowest type holding values of both a and b.
func widen(a, b table.Type) table.Type {
	switch {
	case a == b:
		return a
	case a.Numeric() && b.Numeric():
		return table.Float
	default:
		return table.String
	}
}
