package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/medframe/table"
)

// TableFormatter renders tables as aligned text for terminals.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new text table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format writes t as a bordered text table. Nulls render as NULL.
func (f *TableFormatter) Format(t *table.Table) error {
	tw := tablewriter.NewWriter(f.writer)
	tw.SetHeader(t.Schema().Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	rows := make([][]string, t.Len())
	for i := range rows {
		r := t.Row(i)
		cells := make([]string, len(r))
		for j, v := range r {
			if v == nil {
				cells[j] = "NULL"
				continue
			}
			cells[j] = table.FormatValue(v)
		}
		rows[i] = cells
	}
	tw.AppendBulk(rows)
	tw.Render()
	return nil
}
