package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/medframe/internal/config"
	"github.com/vegasq/medframe/output"
	"github.com/vegasq/medframe/reader"
	"github.com/vegasq/medframe/table"
)

var (
	parquetSchemaColumns = table.MustSchema(
		table.Field{Name: "name", Type: table.String},
		table.Field{Name: "type", Type: table.String},
		table.Field{Name: "physical_type", Type: table.String},
		table.Field{Name: "logical_type", Type: table.String},
		table.Field{Name: "table_type", Type: table.String},
		table.Field{Name: "required", Type: table.Bool},
		table.Field{Name: "optional", Type: table.Bool},
		table.Field{Name: "repeated", Type: table.Bool},
	)
	loadedSchemaColumns = table.MustSchema(
		table.Field{Name: "name", Type: table.String},
		table.Field{Name: "type", Type: table.String},
		table.Field{Name: "nulls", Type: table.Int},
	)
)

// describe writes the column layout of the input instead of running the
// pipeline. Parquet files report their physical schema; other formats are
// loaded and report the inferred column types.
func describe(w io.Writer, in config.Input, format string, limit int) error {
	opts, err := in.ReaderOptions()
	if err != nil {
		return err
	}

	var t *table.Table
	if opts.Format == reader.FormatParquet {
		t, err = describeParquet(in.Path)
	} else {
		t, err = describeLoaded(in.Path, opts)
	}
	if err != nil {
		return err
	}
	if limit > 0 {
		t = t.Head(limit)
	}

	f, err := output.New(format, w)
	if err != nil {
		return err
	}
	return f.Format(t)
}

func describeParquet(pattern string) (*table.Table, error) {
	// For glob patterns, use the first match
	path := pattern
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern %s: %w", pattern, reader.ErrNotFound)
		}
		path = matches[0]
		if len(matches) > 1 {
			fmt.Fprintf(os.Stderr, "# Showing schema from: %s (%d files matched)\n", path, len(matches))
		}
	}

	infos, err := reader.DescribeParquet(path)
	if err != nil {
		return nil, err
	}
	rows := make([]table.Row, len(infos))
	for i, f := range infos {
		rows[i] = table.Row{f.Name, f.Type, f.PhysicalType, f.LogicalType, f.TableType, f.Required, f.Optional, f.Repeated}
	}
	return table.New(parquetSchemaColumns, rows)
}

func describeLoaded(path string, opts reader.Options) (*table.Table, error) {
	loaded, err := reader.Load(path, opts)
	if err != nil {
		return nil, err
	}
	fields := loaded.Schema().Fields()
	rows := make([]table.Row, len(fields))
	for i, f := range fields {
		nulls, err := loaded.NullCount(f.Name)
		if err != nil {
			return nil, err
		}
		rows[i] = table.Row{f.Name, f.Type.String(), int64(nulls)}
	}
	return table.New(loadedSchemaColumns, rows)
}
