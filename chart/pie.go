package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/vegasq/medframe/table"
)

// Pie draws one slice per row with a positive value, starting at twelve
// o'clock and running counter-clockwise. Slices carry their label outside
// the rim and their share inside it.
func Pie(t *table.Table, labels, values string, s Style) (*Chart, error) {
	li, _, err := column(t, labels)
	if err != nil {
		return nil, err
	}
	vi, err := numericColumn(t, values)
	if err != nil {
		return nil, err
	}

	w := &wedges{}
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		v, ok := table.AsFloat(r[vi])
		if !ok || v <= 0 {
			continue
		}
		w.labels = append(w.labels, table.FormatValue(r[li]))
		w.values = append(w.values, v)
		w.total += v
	}
	if len(w.values) == 0 {
		return nil, ErrEmpty
	}
	if w.colors, err = s.colors(len(w.values)); err != nil {
		return nil, err
	}

	width, height := s.size(10, 8)
	p := plot.New()
	p.Title.Text = s.Title
	p.HideAxes()
	w.text = p.Legend.TextStyle
	w.text.XAlign = text.XCenter
	w.text.YAlign = text.YCenter
	p.Add(w)
	return newChart(p, width, height), nil
}

type wedges struct {
	labels []string
	values []float64
	colors []color.Color
	total  float64
	text   text.Style
}

// Plot implements plot.Plotter.
func (w *wedges) Plot(c draw.Canvas, _ *plot.Plot) {
	center := c.Center()
	radius := 0.8 * min(c.Max.X-c.Min.X, c.Max.Y-c.Min.Y) / 2

	start := math.Pi / 2
	for i, v := range w.values {
		share := v / w.total
		sweep := 2 * math.Pi * share

		var path vg.Path
		path.Move(center)
		path.Arc(center, radius, start, sweep)
		path.Close()
		c.SetColor(w.colors[i])
		c.Fill(path)

		mid := start + sweep/2
		c.FillText(w.text, polar(center, 1.12*radius, mid), w.labels[i])
		c.FillText(w.text, polar(center, 0.6*radius, mid), fmt.Sprintf("%.1f%%", 100*share))
		start += sweep
	}
}

func polar(center vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: center.X + r*vg.Length(math.Cos(angle)),
		Y: center.Y + r*vg.Length(math.Sin(angle)),
	}
}
