package chart

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/vegasq/medframe/table"
)

var counts = message.NewPrinter(language.English)

// Bar draws one bar per row: x names the category column and y the numeric
// height column. Each bar is labelled with its value. Rows with a null
// height are skipped.
func Bar(t *table.Table, x, y string, s Style) (*Chart, error) {
	xi, _, err := column(t, x)
	if err != nil {
		return nil, err
	}
	yi, err := numericColumn(t, y)
	if err != nil {
		return nil, err
	}
	col, err := s.seriesColor()
	if err != nil {
		return nil, err
	}

	var (
		names  []string
		values plotter.Values
	)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		v, ok := table.AsFloat(r[yi])
		if !ok {
			continue
		}
		names = append(names, table.FormatValue(r[xi]))
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, ErrEmpty
	}

	w, h := s.size(12, 6)
	p := newPlot(s, x, y)

	barWidth := vg.Length(w) * vg.Inch * 0.6 / vg.Length(len(values))
	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	bars.Color = s.fill(col)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	rotateXTicks(p, s.rotation(45))

	xys := make(plotter.XYs, len(values))
	labels := make([]string, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
		labels[i] = barLabel(v)
	}
	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = text.XCenter
	}
	p.Add(annotations)

	// Headroom for the value labels.
	if p.Y.Max > 0 {
		p.Y.Max *= 1.1
	}
	return newChart(p, w, h), nil
}

// barLabel renders whole numbers with thousands separators.
func barLabel(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return counts.Sprintf("%d", int64(v))
	}
	return counts.Sprintf("%.2f", v)
}
