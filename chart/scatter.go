package chart

import (
	"fmt"
	"image/color"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/vegasq/medframe/table"
)

// group is one hue level with its points, in first-seen order.
type group struct {
	name string
	xys  plotter.XYs
}

// collect reads (x, y) pairs grouped by the hue column. An empty hue puts
// every point in one unnamed group. Rows with a null coordinate are skipped.
// Date x values are plotted as Unix seconds.
func collect(t *table.Table, x, y, hue string) ([]group, bool, error) {
	xi, xf, err := column(t, x)
	if err != nil {
		return nil, false, err
	}
	if !xf.Type.Numeric() && xf.Type != table.Date {
		return nil, false, fmt.Errorf("chart: column %q is %s: %w", x, xf.Type, table.ErrTypeMismatch)
	}
	yi, err := numericColumn(t, y)
	if err != nil {
		return nil, false, err
	}
	hi := -1
	if hue != "" {
		if hi, _, err = column(t, hue); err != nil {
			return nil, false, err
		}
	}

	var groups []group
	pos := make(map[string]int)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		var xv float64
		var ok bool
		if d, isDate := r[xi].(time.Time); isDate {
			xv, ok = float64(d.Unix()), true
		} else {
			xv, ok = table.AsFloat(r[xi])
		}
		yv, yok := table.AsFloat(r[yi])
		if !ok || !yok {
			continue
		}
		key := ""
		if hi >= 0 {
			key = table.FormatValue(r[hi])
		}
		g, seen := pos[key]
		if !seen {
			g = len(groups)
			pos[key] = g
			groups = append(groups, group{name: key})
		}
		groups[g].xys = append(groups[g].xys, plotter.XY{X: xv, Y: yv})
	}
	if len(groups) == 0 {
		return nil, false, ErrEmpty
	}
	return groups, xf.Type == table.Date, nil
}

// Scatter plots y against x, coloured by the optional hue column.
func Scatter(t *table.Table, x, y, hue string, s Style) (*Chart, error) {
	groups, isDate, err := collect(t, x, y, hue)
	if err != nil {
		return nil, err
	}
	colors, err := groupColors(s, len(groups), hue)
	if err != nil {
		return nil, err
	}
	shape, err := glyph(s.Marker)
	if err != nil {
		return nil, err
	}
	if s.Alpha == 0 {
		s.Alpha = 0.6
	}

	w, h := s.size(10, 6)
	p := newPlot(s, x, y)
	for i, g := range groups {
		sc, err := plotter.NewScatter(g.xys)
		if err != nil {
			return nil, fmt.Errorf("chart: %w", err)
		}
		sc.GlyphStyle.Color = s.fill(colors[i])
		sc.GlyphStyle.Shape = shape
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		if hue != "" {
			p.Legend.Add(g.name, sc)
		}
	}
	if isDate {
		p.X.Tick.Marker = plot.TimeTicks{Format: table.DateLayout}
	}
	rotateXTicks(p, s.rotation(0))
	return newChart(p, w, h), nil
}

// Line draws y against x with one line per hue level. Points are joined in
// ascending x order and marked with Style.Marker; Date x columns get date
// ticks.
func Line(t *table.Table, x, y, hue string, s Style) (*Chart, error) {
	groups, isDate, err := collect(t, x, y, hue)
	if err != nil {
		return nil, err
	}
	colors, err := groupColors(s, len(groups), hue)
	if err != nil {
		return nil, err
	}

	w, h := s.size(12, 6)
	p := newPlot(s, x, y)
	for i, g := range groups {
		sort.SliceStable(g.xys, func(a, b int) bool { return g.xys[a].X < g.xys[b].X })

		line, err := plotter.NewLine(g.xys)
		if err != nil {
			return nil, fmt.Errorf("chart: %w", err)
		}
		line.LineStyle.Color = colors[i]
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)

		if s.Marker != "" {
			shape, err := glyph(s.Marker)
			if err != nil {
				return nil, err
			}
			pts, err := plotter.NewScatter(g.xys)
			if err != nil {
				return nil, fmt.Errorf("chart: %w", err)
			}
			pts.GlyphStyle.Color = colors[i]
			pts.GlyphStyle.Shape = shape
			p.Add(pts)
		}
		if hue != "" {
			p.Legend.Add(g.name, line)
		}
	}
	if isDate {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	}
	rotateXTicks(p, s.rotation(0))
	return newChart(p, w, h), nil
}

// groupColors uses Style.Color for an ungrouped series and the palette for
// hue levels.
func groupColors(s Style, n int, hue string) ([]color.Color, error) {
	if hue == "" {
		c, err := s.seriesColor()
		if err != nil {
			return nil, err
		}
		return []color.Color{c}, nil
	}
	return s.colors(n)
}
