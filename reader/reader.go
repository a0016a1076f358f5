package reader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vegasq/medframe/table"
)

var (
	// ErrNotFound is returned when the input path, or every file a glob
	// pattern could match, does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrUnsupportedFormat is returned for format tags the loader does not
	// recognise.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrMalformedRow is returned in FailFast mode when a record cannot be
	// parsed against the schema.
	ErrMalformedRow = errors.New("malformed row")
)

// Format tags accepted by Load.
const (
	FormatCSV     = "csv"
	FormatTSV     = "tsv"
	FormatParquet = "parquet"
	FormatJSON    = "json"
	FormatJSONL   = "jsonl"
)

// Mode selects how malformed records are handled.
type Mode int

const (
	// Permissive keeps malformed records: missing cells and cells that fail
	// to parse become null, extra cells are dropped.
	Permissive Mode = iota
	// DropMalformed skips malformed records.
	DropMalformed
	// FailFast aborts the load at the first malformed record.
	FailFast
)

// ParseMode maps PERMISSIVE, DROPMALFORMED and FAILFAST (any case) to a Mode.
// The empty string is Permissive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PERMISSIVE":
		return Permissive, nil
	case "DROPMALFORMED", "DROP_MALFORMED":
		return DropMalformed, nil
	case "FAILFAST", "FAIL_FAST":
		return FailFast, nil
	default:
		return Permissive, fmt.Errorf("unknown read mode %q", s)
	}
}

// Options configures Load.
type Options struct {
	// Format is one of the Format* tags. Empty means csv.
	Format string

	// Schema, when non-nil, takes precedence over type inference. For
	// delimited text the columns are matched by position.
	Schema *table.Schema

	// NoHeader marks delimited text without a header line; columns are then
	// named _c0, _c1, ...
	NoHeader bool

	// Delimiter overrides the field separator of delimited text.
	Delimiter rune

	// DisableInference reads every delimited column as String when no
	// Schema is given.
	DisableInference bool

	// NullValue is an extra cell text read as null. Empty cells are always
	// null.
	NullValue string

	// Mode selects malformed-record handling.
	Mode Mode
}

// Load reads the file (or every file matching a glob pattern) at path into a
// table.
//
// Returns an error wrapping ErrNotFound before any read if nothing exists at
// path, and ErrUnsupportedFormat for unknown format tags. Files matched by a
// pattern are read in lexical order and must share a schema.
func Load(path string, opts Options) (*table.Table, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatCSV
	}

	var load func(string, Options) (*table.Table, error)
	switch format {
	case FormatCSV:
		load = loadDelimited
	case FormatTSV:
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
		load = loadDelimited
	case FormatParquet:
		load = loadParquet
	case FormatJSON, FormatJSONL:
		load = loadJSON
	default:
		return nil, fmt.Errorf("%q: %w", opts.Format, ErrUnsupportedFormat)
	}

	files, err := resolve(path)
	if err != nil {
		return nil, err
	}

	var out *table.Table
	for _, f := range files {
		t, err := load(f, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		if out == nil {
			out = t
			continue
		}
		if out, err = out.Concat(t); err != nil {
			return nil, fmt.Errorf("failed to combine %s: %w", f, err)
		}
	}
	return out, nil
}

// resolve expands a glob pattern, or checks a plain path for existence.
func resolve(pattern string) ([]string, error) {
	if !isGlob(pattern) {
		if _, err := os.Stat(pattern); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", pattern, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		return []string{pattern}, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern %s: %w", pattern, ErrNotFound)
	}
	sort.Strings(matches)
	return matches, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
