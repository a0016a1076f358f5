package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/medframe/table"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to write a table in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes t in the formatter's specific format
	Format(t *table.Table) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// New returns the formatter registered under name: json (or jsonl), csv,
// or table.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "table", "text":
		return NewTableFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want json, csv or table)", name)
	}
}
