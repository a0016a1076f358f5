package table

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when an operation names a column the
	// schema does not contain.
	ErrColumnNotFound = errors.New("column not found")

	// ErrTypeMismatch is returned when a value or column has the wrong type
	// for an operation.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrSchemaMismatch is returned when two tables, or a table and its
	// rows, disagree on shape.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Row is a positional set of cell values; nil is null.
type Row []any

// Table is an immutable, ordered collection of rows sharing a schema.
type Table struct {
	schema Schema
	rows   []Row
}

// New builds a table, converting every cell to its column type.
//
// Returns an error wrapping ErrSchemaMismatch if a row has the wrong width, or
// ErrTypeMismatch if a cell cannot be converted.
func New(schema Schema, rows []Row) (*Table, error) {
	out := make([]Row, len(rows))
	for i, r := range rows {
		if len(r) != schema.Len() {
			return nil, fmt.Errorf("row %d has %d values, schema has %d columns: %w", i, len(r), schema.Len(), ErrSchemaMismatch)
		}
		row := make(Row, len(r))
		for j, v := range r {
			cv, err := Convert(v, schema.fields[j].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, schema.fields[j].Name, err)
			}
			row[j] = cv
		}
		out[i] = row
	}
	return &Table{schema: schema, rows: out}, nil
}

// Empty returns a table with the given schema and no rows.
func Empty(schema Schema) *Table {
	return &Table{schema: schema}
}

// wrap builds a table from rows that are already normalised.
func wrap(schema Schema, rows []Row) *Table {
	return &Table{schema: schema, rows: rows}
}

// Schema returns the table schema.
func (t *Table) Schema() Schema { return t.schema }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return t.schema.Len() }

// Row returns the i-th row. The row is shared and must not be modified.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Value returns the cell at row i in the named column.
func (t *Table) Value(i int, column string) (any, error) {
	idx, _, err := t.schema.Lookup(column)
	if err != nil {
		return nil, err
	}
	return t.rows[i][idx], nil
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]any, error) {
	idx, _, err := t.schema.Lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Floats returns the non-null values of a numeric column as float64, in row
// order.
func (t *Table) Floats(name string) ([]float64, error) {
	idx, f, err := t.schema.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !f.Type.Numeric() {
		return nil, fmt.Errorf("column %q is %s, not numeric: %w", name, f.Type, ErrTypeMismatch)
	}
	out := make([]float64, 0, len(t.rows))
	for _, r := range t.rows {
		if v, ok := AsFloat(r[idx]); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// NullCount returns the number of null cells in the named column.
func (t *Table) NullCount(name string) (int, error) {
	idx, _, err := t.schema.Lookup(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range t.rows {
		if r[idx] == nil {
			n++
		}
	}
	return n, nil
}

// Filter returns the rows for which keep reports true, together with the
// number of rows removed.
func (t *Table) Filter(keep func(Row) bool) (*Table, int) {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return wrap(t.schema, out), len(t.rows) - len(out)
}

// Update rewrites the cells of one column. fn receives the current value and
// returns the replacement and whether it differs; only changed rows are
// copied. The replacement is converted to the column type.
//
// Returns the new table and the number of changed cells.
func (t *Table) Update(column string, fn func(any) (any, bool)) (*Table, int, error) {
	idx, f, err := t.schema.Lookup(column)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Row, len(t.rows))
	changed := 0
	for i, r := range t.rows {
		nv, ok := fn(r[idx])
		if !ok {
			out[i] = r
			continue
		}
		cv, err := Convert(nv, f.Type)
		if err != nil {
			return nil, 0, fmt.Errorf("update %q row %d: %w", column, i, err)
		}
		row := make(Row, len(r))
		copy(row, r)
		row[idx] = cv
		out[i] = row
		changed++
	}
	return wrap(t.schema, out), changed, nil
}

// Concat appends the rows of o. Both tables must have equal schemas.
func (t *Table) Concat(o *Table) (*Table, error) {
	if !t.schema.Equal(o.schema) {
		return nil, fmt.Errorf("concat [%s] with [%s]: %w", t.schema, o.schema, ErrSchemaMismatch)
	}
	rows := make([]Row, 0, len(t.rows)+len(o.rows))
	rows = append(rows, t.rows...)
	rows = append(rows, o.rows...)
	return wrap(t.schema, rows), nil
}

// Head returns at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t
	}
	return wrap(t.schema, t.rows[:n:n])
}

// Maps returns the rows as column-name keyed maps.
func (t *Table) Maps() []map[string]interface{} {
	out := make([]map[string]interface{}, len(t.rows))
	for i, r := range t.rows {
		m := make(map[string]interface{}, len(r))
		for j, v := range r {
			m[t.schema.fields[j].Name] = v
		}
		out[i] = m
	}
	return out
}
