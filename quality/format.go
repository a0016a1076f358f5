package quality

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/medframe/table"
)

// Format writes a human-readable rendering of r to w.
func Format(w io.Writer, r Report) error {
	rule := strings.Repeat("=", 60)
	if _, err := fmt.Fprintf(w, "%s\nDATA QUALITY ASSESSMENT REPORT\n%s\n\n", rule, rule); err != nil {
		return err
	}

	totals := tablewriter.NewWriter(w)
	totals.SetHeader([]string{"Metric", "Value"})
	totals.SetAlignment(tablewriter.ALIGN_LEFT)
	totals.AppendBulk([][]string{
		{"Total records", strconv.Itoa(r.TotalRecords)},
		{"Total columns", strconv.Itoa(r.TotalColumns)},
		{"Completeness", strconv.FormatFloat(r.CompletenessPercentage, 'f', 2, 64) + "%"},
		{"Duplicate rows", strconv.Itoa(r.DuplicateRows)},
	})
	totals.Render()

	var missing [][]string
	for _, c := range r.Columns {
		n := r.MissingValues[c]
		if n == 0 {
			continue
		}
		pct := 0.0
		if r.TotalRecords > 0 {
			pct = float64(n) / float64(r.TotalRecords) * 100
		}
		missing = append(missing, []string{c, r.ColumnTypes[c], strconv.Itoa(n), fmt.Sprintf("%.2f%%", pct)})
	}
	if len(missing) > 0 {
		if _, err := fmt.Fprintln(w, "\nMissing values by column"); err != nil {
			return err
		}
		tw := tablewriter.NewWriter(w)
		tw.SetHeader([]string{"Column", "Type", "Missing", "Percent"})
		tw.AppendBulk(missing)
		tw.Render()
	}

	var numeric [][]string
	for _, c := range r.Columns {
		ns, ok := r.NumericSummary[c]
		if !ok {
			continue
		}
		numeric = append(numeric, []string{
			c,
			strconv.Itoa(ns.Count),
			optional(ns.Mean),
			optional(ns.StdDev),
			table.FormatValue(ns.Min),
			table.FormatValue(ns.Max),
		})
	}
	if len(numeric) > 0 {
		if _, err := fmt.Fprintln(w, "\nNumeric column statistics"); err != nil {
			return err
		}
		tw := tablewriter.NewWriter(w)
		tw.SetHeader([]string{"Column", "Count", "Mean", "Std Dev", "Min", "Max"})
		tw.AppendBulk(numeric)
		tw.Render()
	}

	_, err := fmt.Fprintf(w, "\n%s\n", rule)
	return err
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
