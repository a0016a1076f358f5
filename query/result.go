package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vegasq/medframe/table"
)

// Execute runs sql and materialises at most limit rows; limit <= 0 means no
// limit. Column types come from declared column types where the engine
// reports them and are otherwise inferred from the returned values. Computed
// columns of an empty result have neither and are String.
func (s *Session) Execute(ctx context.Context, sql string, limit int) (*table.Table, error) {
	start := time.Now()
	rows, err := s.Stream(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var data [][]any
	for rows.Next() {
		data = append(data, rows.Values())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t, err := buildTable(rows.Columns(), rows.declared, data)
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	s.logger.Debug("executed query",
		zap.String("sql", compact(sql)),
		zap.Int("rows", t.Len()),
		zap.Duration("took", time.Since(start)))
	return t, nil
}

// Stream runs sql and returns a cursor over at most limit rows; limit <= 0
// means no limit. The caller must Close the cursor.
func (s *Session) Stream(ctx context.Context, sql string, limit int) (*Rows, error) {
	if err := s.acquireCursor(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx, sql)
	if err != nil {
		s.releaseCursor()
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		s.releaseCursor()
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}
	declared := make([]string, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			declared[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	return &Rows{rows: rows, release: s.releaseCursor, columns: cols, declared: declared, limit: limit}, nil
}

// Rows is a forward-only cursor over a query result. An open cursor blocks
// Register and Drop on its session; iterate to the end or Close it.
type Rows struct {
	rows     *sqlx.Rows
	release  func()
	columns  []string
	declared []string
	limit    int
	n        int
	current  []any
	err      error
	closed   bool
}

// Next advances to the next row. It returns false at the end of the result,
// once the row limit is reached, or on error.
func (r *Rows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if r.limit > 0 && r.n >= r.limit {
		_ = r.Close()
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Err()
		_ = r.Close()
		return false
	}
	vals, err := r.rows.SliceScan()
	if err != nil {
		r.err = fmt.Errorf("sqlite: scan: %w", err)
		_ = r.Close()
		return false
	}
	for i, v := range vals {
		vals[i] = normalize(v)
	}
	r.current = vals
	r.n++
	return true
}

// Values returns the current row. The slice is owned by the caller.
func (r *Rows) Values() []any { return r.current }

// Row returns the current row keyed by column name.
func (r *Rows) Row() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.current[i]
	}
	return m
}

// Columns returns the result column names.
func (r *Rows) Columns() []string { return r.columns }

// Err returns the error, if any, that ended iteration.
func (r *Rows) Err() error { return r.err }

// Close releases the cursor. It is safe to call Close multiple times.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.rows.Close()
	r.release()
	return err
}

func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

// buildTable derives a schema for a query result and converts the rows.
func buildTable(columns, declared []string, data [][]any) (*table.Table, error) {
	fields := make([]table.Field, len(columns))
	seen := make(map[string]int, len(columns))
	for j, c := range columns {
		name := c
		if n := seen[c]; n > 0 {
			name = fmt.Sprintf("%s_%d", c, n)
		}
		seen[c]++

		typ, ok := declaredType(declared[j])
		if !ok {
			typ = inferType(data, j)
		}
		fields[j] = table.Field{Name: name, Type: typ}
	}
	schema, err := table.NewSchema(fields...)
	if err != nil {
		return nil, err
	}

	rows := make([]table.Row, len(data))
	for i, vals := range data {
		row := make(table.Row, len(vals))
		for j, v := range vals {
			if fields[j].Type == table.Bool {
				if n, ok := v.(int64); ok {
					v = n != 0
				}
			}
			row[j] = v
		}
		rows[i] = row
	}
	return table.New(schema, rows)
}

func declaredType(decl string) (table.Type, bool) {
	switch decl {
	case "INTEGER", "INT", "BIGINT":
		return table.Int, true
	case "REAL", "FLOAT", "DOUBLE":
		return table.Float, true
	case "TEXT", "VARCHAR":
		return table.String, true
	case "BOOLEAN", "BOOL":
		return table.Bool, true
	case "DATE":
		return table.Date, true
	default:
		return table.String, false
	}
}

// inferType picks a column type from the non-null values of column j. Mixed
// integers and floats widen to Float; any other mix is String.
func inferType(data [][]any, j int) table.Type {
	var typ table.Type
	seen := false
	for _, vals := range data {
		var t table.Type
		switch vals[j].(type) {
		case nil:
			continue
		case int64:
			t = table.Int
		case float64:
			t = table.Float
		case bool:
			t = table.Bool
		case time.Time:
			t = table.Date
		default:
			t = table.String
		}
		switch {
		case !seen:
			typ, seen = t, true
		case typ == t:
		case typ.Numeric() && t.Numeric():
			typ = table.Float
		default:
			return table.String
		}
	}
	return typ
}

func compact(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
