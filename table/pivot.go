package table

import (
	"fmt"
	"sort"
)

// Pivot reshapes a long cross-tab into a wide one.
//
// The result has one row per distinct value of index (first-seen order), a
// String column named after index holding those values, and one Float column
// per distinct value of columns (sorted). Cells hold the values column; pairs
// absent from the input are null and repeated pairs are summed.
func (t *Table) Pivot(index, columns, values string) (*Table, error) {
	ii, _, err := t.schema.Lookup(index)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}
	ci, _, err := t.schema.Lookup(columns)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}
	vi, vf, err := t.schema.Lookup(values)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}
	if !vf.Type.Numeric() {
		return nil, fmt.Errorf("pivot: values column %q is %s: %w", values, vf.Type, ErrTypeMismatch)
	}

	var rowKeys []string
	rowPos := make(map[string]int)
	colSet := make(map[string]struct{})
	cells := make(map[[2]string]float64)
	for _, r := range t.rows {
		rk := FormatValue(r[ii])
		ck := FormatValue(r[ci])
		if _, ok := rowPos[rk]; !ok {
			rowPos[rk] = len(rowKeys)
			rowKeys = append(rowKeys, rk)
		}
		colSet[ck] = struct{}{}
		v, ok := AsFloat(r[vi])
		if !ok {
			continue
		}
		cells[[2]string{rk, ck}] += v
	}

	colKeys := make([]string, 0, len(colSet))
	for k := range colSet {
		colKeys = append(colKeys, k)
	}
	sort.Strings(colKeys)

	fields := make([]Field, 0, len(colKeys)+1)
	fields = append(fields, Field{Name: index, Type: String})
	for _, k := range colKeys {
		name := k
		if name == "" || name == index {
			name = "_" + name
		}
		fields = append(fields, Field{Name: name, Type: Float})
	}
	schema, err := NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}

	rows := make([]Row, len(rowKeys))
	for i, rk := range rowKeys {
		row := make(Row, len(fields))
		row[0] = rk
		for j, ck := range colKeys {
			if v, ok := cells[[2]string{rk, ck}]; ok {
				row[j+1] = v
			}
		}
		rows[i] = row
	}
	return wrap(schema, rows), nil
}
