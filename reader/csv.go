package reader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vegasq/medframe/table"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

func loadDelimited(path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadDelimited(f, opts)
}

// ReadDelimited parses delimited text from r according to opts.
//
// Cells are trimmed of trailing whitespace; empty cells and opts.NullValue are
// null. Column types come from opts.Schema when set, otherwise they are
// inferred from the data unless inference is disabled.
func ReadDelimited(r io.Reader, opts Options) (*table.Table, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 64*1024))
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var header []string
	var records [][]string
	var lines []int
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse delimited text: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 {
				rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
			}
			if !opts.NoHeader {
				header = trimAll(rec)
				continue
			}
		}
		line, _ := cr.FieldPos(0)
		records = append(records, trimAll(rec))
		lines = append(lines, line)
	}

	schema, err := delimitedSchema(header, records, opts)
	if err != nil {
		return nil, err
	}

	width := schema.Len()
	rows := make([]table.Row, 0, len(records))
	for i, rec := range records {
		row, bad := parseRecord(rec, schema, opts.NullValue)
		if len(rec) != width {
			bad = true
		}
		if bad {
			switch opts.Mode {
			case DropMalformed:
				continue
			case FailFast:
				return nil, fmt.Errorf("line %d: expected %d typed fields, got %q: %w", lines[i], width, rec, ErrMalformedRow)
			}
		}
		rows = append(rows, row)
	}
	return table.New(schema, rows)
}

// parseRecord converts one record against schema. Missing cells are null and
// extra cells are ignored; bad reports whether any cell failed to parse.
func parseRecord(rec []string, schema table.Schema, nullValue string) (table.Row, bool) {
	row := make(table.Row, schema.Len())
	bad := false
	for j := 0; j < schema.Len() && j < len(rec); j++ {
		cell := rec[j]
		if isNull(cell, nullValue) {
			continue
		}
		v, err := table.Convert(cell, schema.Field(j).Type)
		if err != nil {
			bad = true
			continue
		}
		row[j] = v
	}
	return row, bad
}

func delimitedSchema(header []string, records [][]string, opts Options) (table.Schema, error) {
	if opts.Schema != nil {
		return *opts.Schema, nil
	}

	width := len(header)
	if header == nil {
		for _, rec := range records {
			width = max(width, len(rec))
		}
	}

	fields := make([]table.Field, width)
	for j := range fields {
		name := fmt.Sprintf("_c%d", j)
		if header != nil && header[j] != "" {
			name = header[j]
		}
		typ := table.String
		if !opts.DisableInference {
			typ = inferColumn(records, j, opts.NullValue)
		}
		fields[j] = table.Field{Name: name, Type: typ}
	}
	schema, err := table.NewSchema(fields...)
	if err != nil {
		return table.Schema{}, fmt.Errorf("invalid header: %w", err)
	}
	return schema, nil
}

func trimAll(rec []string) []string {
	for i, s := range rec {
		rec[i] = strings.TrimRight(s, " \t\r")
	}
	return rec
}

func isNull(cell, nullValue string) bool {
	return cell == "" || (nullValue != "" && cell == nullValue)
}
