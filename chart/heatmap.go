package chart

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"

	"github.com/vegasq/medframe/table"
)

// Heatmap draws a wide cross-tab such as the output of table.Pivot. The first
// column labels the rows and every other column must be numeric; each holds
// one heatmap column. Null cells count as zero. The first row is drawn at the
// top.
func Heatmap(t *table.Table, s Style) (*Chart, error) {
	if t.Width() < 2 || t.Len() == 0 {
		return nil, ErrEmpty
	}
	fields := t.Schema().Fields()
	for _, f := range fields[1:] {
		if !f.Type.Numeric() {
			return nil, fmt.Errorf("chart: heatmap column %q is %s: %w", f.Name, f.Type, table.ErrTypeMismatch)
		}
	}
	pal, err := s.gradient()
	if err != nil {
		return nil, err
	}

	g := grid{t: t}
	w, h := s.size(12, 8)
	p := newPlot(s, "", "")
	hm := plotter.NewHeatMap(g, pal)
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	cols, rows := g.Dims()
	xTicks := make([]plot.Tick, cols)
	for c := 0; c < cols; c++ {
		xTicks[c] = plot.Tick{Value: g.X(c), Label: fields[c+1].Name}
	}
	yTicks := make([]plot.Tick, rows)
	for r := 0; r < rows; r++ {
		yTicks[r] = plot.Tick{Value: g.Y(r), Label: table.FormatValue(t.Row(r)[0])}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	rotateXTicks(p, s.rotation(0))

	if s.Annotate {
		var (
			xys    plotter.XYs
			labels []string
		)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				xys = append(xys, plotter.XY{X: g.X(c), Y: g.Y(r)})
				labels = append(labels, strconv.FormatFloat(g.Z(c, r), 'f', -1, 64))
			}
		}
		cells, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return nil, fmt.Errorf("chart: %w", err)
		}
		for i := range cells.TextStyle {
			cells.TextStyle[i].XAlign = text.XCenter
			cells.TextStyle[i].YAlign = text.YCenter
		}
		p.Add(cells)
	}
	return newChart(p, w, h), nil
}

// grid adapts a wide table to plotter.GridXYZ.
type grid struct {
	t *table.Table
}

func (g grid) Dims() (c, r int) { return g.t.Width() - 1, g.t.Len() }

func (g grid) Z(c, r int) float64 {
	v, _ := table.AsFloat(g.t.Row(r)[c+1])
	return v
}

func (g grid) X(c int) float64 { return float64(c) }

func (g grid) Y(r int) float64 { return float64(g.t.Len() - 1 - r) }
