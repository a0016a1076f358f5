package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/vegasq/medframe/internal/metrics"
	"github.com/vegasq/medframe/table"
)

var (
	// ErrReleased is returned when a chart is used after Save or Close.
	ErrReleased = errors.New("chart already released")

	// ErrEmpty is returned when the input has no plottable rows.
	ErrEmpty = errors.New("no data to plot")
)

// DefaultDPI is used by Save when dpi is not positive.
const DefaultDPI = 300

// Chart is a rendered figure waiting to be saved.
type Chart struct {
	plot   *plot.Plot
	width  vg.Length
	height vg.Length
}

func newChart(p *plot.Plot, w, h float64) *Chart {
	return &Chart{plot: p, width: vg.Length(w) * vg.Inch, height: vg.Length(h) * vg.Inch}
}

// Size returns the figure size in inches.
func (c *Chart) Size() (w, h float64) {
	return float64(c.width / vg.Inch), float64(c.height / vg.Inch)
}

// Save writes the chart to path and releases it. The format follows the
// extension: png, jpg/jpeg and tif/tiff are rasterised at dpi; svg, pdf and
// eps are vector output.
func (c *Chart) Save(path string, dpi int) (err error) {
	if c.plot == nil {
		return ErrReleased
	}
	defer c.Close()

	start := time.Now()
	defer func() { metrics.RecordStep("chart_save", err, time.Since(start)) }()

	if dpi <= 0 {
		dpi = DefaultDPI
	}
	w, err := c.writerTo(strings.ToLower(filepath.Ext(path)), dpi)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if _, err := w.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("chart: write %s: %w", path, err)
	}
	return f.Close()
}

func (c *Chart) writerTo(ext string, dpi int) (io.WriterTo, error) {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		canvas := vgimg.NewWith(vgimg.UseWH(c.width, c.height), vgimg.UseDPI(dpi))
		c.plot.Draw(draw.New(canvas))
		switch ext {
		case ".png":
			return vgimg.PngCanvas{Canvas: canvas}, nil
		case ".jpg", ".jpeg":
			return vgimg.JpegCanvas{Canvas: canvas}, nil
		default:
			return vgimg.TiffCanvas{Canvas: canvas}, nil
		}
	case ".svg", ".pdf", ".eps":
		w, err := c.plot.WriterTo(c.width, c.height, ext[1:])
		if err != nil {
			return nil, fmt.Errorf("chart: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("chart: unsupported image format %q", ext)
	}
}

// Close releases the chart without saving it.
func (c *Chart) Close() {
	c.plot = nil
}

// newPlot applies the shared title and axis labels. Empty axis labels fall
// back to the column names.
func newPlot(s Style, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = s.XLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = x
	}
	p.Y.Label.Text = s.YLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = y
	}
	return p
}

func rotateXTicks(p *plot.Plot, degrees float64) {
	if degrees == 0 {
		return
	}
	p.X.Tick.Label.Rotation = degrees * math.Pi / 180
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
}

// numericColumn returns the index of a numeric column.
func numericColumn(t *table.Table, name string) (int, error) {
	i, f, err := t.Schema().Lookup(name)
	if err != nil {
		return -1, fmt.Errorf("chart: %w", err)
	}
	if !f.Type.Numeric() {
		return -1, fmt.Errorf("chart: column %q is %s, not numeric: %w", name, f.Type, table.ErrTypeMismatch)
	}
	return i, nil
}

func column(t *table.Table, name string) (int, table.Field, error) {
	i, f, err := t.Schema().Lookup(name)
	if err != nil {
		return -1, f, fmt.Errorf("chart: %w", err)
	}
	return i, f, nil
}
