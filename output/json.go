package output

import (
	"bufio"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/vegasq/medframe/table"
)

// JSONFormatter outputs tables as JSON Lines with keys in schema order.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row. Dates are "YYYY-MM-DD" strings and
// nulls are JSON null.
func (j *JSONFormatter) Format(t *table.Table) error {
	names := t.Schema().Names()
	keys := make([][]byte, len(names))
	for i, n := range names {
		k, err := json.Marshal(n)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	w := bufio.NewWriter(j.writer)
	for i := 0; i < t.Len(); i++ {
		_ = w.WriteByte('{')
		for c, v := range t.Row(i) {
			if c > 0 {
				_ = w.WriteByte(',')
			}
			_, _ = w.Write(keys[c])
			_ = w.WriteByte(':')
			if d, ok := v.(time.Time); ok {
				v = d.Format(table.DateLayout)
			}
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			_, _ = w.Write(b)
		}
		_, _ = w.WriteString("}\n")
	}
	return w.Flush()
}
