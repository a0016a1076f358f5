package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/medframe/table"
)

// ParquetReader reads a parquet file row by row.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type ParquetReader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewParquetReader opens and validates the parquet file at path.
//
// Example:
//
//	r, err := reader.NewParquetReader("scans.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func NewParquetReader(path string) (*ParquetReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &ParquetReader{file: file, pqFile: pqFile}, nil
}

// Schema returns the parquet file schema.
func (r *ParquetReader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// NumRows returns the row count recorded in the file footer.
func (r *ParquetReader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// TableSchema maps the top-level parquet columns to a table schema.
func (r *ParquetReader) TableSchema() (table.Schema, error) {
	fields := r.Schema().Fields()
	out := make([]table.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, table.Field{Name: f.Name(), Type: columnType(f)})
	}
	return table.NewSchema(out...)
}

// ReadTable reads every row into a table. A non-nil schema is applied by
// conversion, matching columns by name; otherwise the file schema is used.
func (r *ParquetReader) ReadTable(schema *table.Schema) (*table.Table, error) {
	fileSchema, err := r.TableSchema()
	if err != nil {
		return nil, err
	}
	target := fileSchema
	if schema != nil {
		target = *schema
	}

	pr := parquet.NewReader(r.pqFile)
	defer func() { _ = pr.Close() }()

	rows := make([]table.Row, 0, r.NumRows())
	for {
		m := make(map[string]interface{})
		if err := pr.Read(&m); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows), err)
		}

		row := make(table.Row, target.Len())
		for i, f := range target.Fields() {
			v, err := parquetValue(m[f.Name], f.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", len(rows), f.Name, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return table.New(target, rows)
}

// Close closes the underlying file. It is safe to call Close multiple times.
func (r *ParquetReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func loadParquet(path string, opts Options) (*table.Table, error) {
	r, err := NewParquetReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.ReadTable(opts.Schema)
}

// columnType maps a parquet column to the table type used for it. Groups and
// unrecognised physical types are read as strings.
func columnType(f parquet.Field) table.Type {
	switch getUserFriendlyType(f) {
	case "INT32", "INT64":
		return table.Int
	case "FLOAT32", "FLOAT64":
		return table.Float
	case "BOOLEAN":
		return table.Bool
	case "DATE":
		return table.Date
	default:
		return table.String
	}
}

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// parquetValue normalises a decoded parquet value. DATE columns arrive as days
// since the Unix epoch and nested values are kept as JSON text.
func parquetValue(v any, t table.Type) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int32:
		if t == table.Date {
			return epoch.AddDate(0, 0, int(val)), nil
		}
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to encode nested value: %w", err)
		}
		return table.Convert(string(b), t)
	}
	return table.Convert(v, t)
}
