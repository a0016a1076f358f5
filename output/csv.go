package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/medframe/table"
)

// CSVFormatter outputs tables as CSV with a header row in schema order.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the header and every row of t. Nulls are empty fields.
func (c *CSVFormatter) Format(t *table.Table) error {
	csvWriter := csv.NewWriter(c.writer)

	if err := csvWriter.Write(t.Schema().Names()); err != nil {
		return err
	}

	record := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			record[j] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a cell to its CSV field.
func formatValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return table.FormatValue(v)
	}
	// Sanitize against CSV injection by prefixing characters that could
	// trigger formula execution in spreadsheet applications.
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@', '\t', '\r', '\n', '|':
			return "'" + strings.ReplaceAll(s, "'", "''")
		}
	}
	return s
}
