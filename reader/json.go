package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vegasq/medframe/table"
)

// maxLineSize bounds a single JSON record.
const maxLineSize = 16 << 20

func loadJSON(path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadJSONLines(f, opts)
}

// ReadJSONLines parses one JSON object per line. Blank lines are skipped.
//
// Without opts.Schema the columns are the union of all keys in sorted order;
// integral numbers are Int, other numbers Float, nested objects and arrays are
// kept as JSON text. A line that is not an object, or a value that does not
// fit the schema, is malformed and handled according to opts.Mode.
func ReadJSONLines(r io.Reader, opts Options) (*table.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var objects []map[string]any
	var lines []int
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		obj, err := decodeObject(line)
		if err != nil {
			switch opts.Mode {
			case DropMalformed:
				continue
			case FailFast:
				return nil, fmt.Errorf("line %d: %v: %w", lineNo, err, ErrMalformedRow)
			}
			obj = nil
		}
		objects = append(objects, obj)
		lines = append(lines, lineNo)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read json lines: %w", err)
	}

	var schema table.Schema
	if opts.Schema != nil {
		schema = *opts.Schema
	} else {
		var err error
		if schema, err = inferJSONSchema(objects); err != nil {
			return nil, err
		}
	}

	rows := make([]table.Row, 0, len(objects))
	for i, obj := range objects {
		row := make(table.Row, schema.Len())
		bad := false
		for j, f := range schema.Fields() {
			v, err := jsonValue(obj[f.Name], f.Type)
			if err != nil {
				bad = true
				continue
			}
			row[j] = v
		}
		if bad {
			switch opts.Mode {
			case DropMalformed:
				continue
			case FailFast:
				return nil, fmt.Errorf("line %d: record does not match schema [%s]: %w", lines[i], schema, ErrMalformedRow)
			}
		}
		rows = append(rows, row)
	}
	return table.New(schema, rows)
}

func decodeObject(line []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid json object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("invalid json object: null")
	}
	return obj, nil
}

func inferJSONSchema(objects []map[string]any) (table.Schema, error) {
	types := make(map[string]table.Type)
	for _, obj := range objects {
		for k, v := range obj {
			typ, ok := jsonType(v)
			if !ok {
				if _, known := types[k]; !known {
					types[k] = -1
				}
				continue
			}
			if prev, known := types[k]; known && prev >= 0 {
				typ = widen(prev, typ)
			}
			types[k] = typ
		}
	}

	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]table.Field, len(names))
	for i, k := range names {
		typ := types[k]
		if typ < 0 {
			typ = table.String
		}
		fields[i] = table.Field{Name: k, Type: typ}
	}
	schema, err := table.NewSchema(fields...)
	if err != nil {
		return table.Schema{}, fmt.Errorf("invalid json keys: %w", err)
	}
	return schema, nil
}

// jsonType reports the column type of a decoded value; false for null.
func jsonType(v any) (table.Type, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		if _, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return table.Int, true
		}
		return table.Float, true
	case bool:
		return table.Bool, true
	default:
		return table.String, true
	}
}

func jsonValue(v any, t table.Type) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if t == table.Int {
			if i, err := val.Int64(); err == nil {
				return i, nil
			}
			f, err := val.Float64()
			if err != nil {
				return nil, err
			}
			return table.Convert(f, t)
		}
		return table.Convert(val.String(), t)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return table.Convert(string(b), t)
	default:
		return table.Convert(val, t)
	}
}
