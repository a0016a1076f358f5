package chart

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg/draw"
)

// Style holds the cosmetic parameters shared by every chart kind. Zero values
// select the per-kind defaults.
type Style struct {
	Title  string
	XLabel string
	YLabel string

	// Width and Height are in inches.
	Width  float64
	Height float64

	// Color is a hex triplet ("#1f77b4", "#abc") or an SVG colour name
	// ("steelblue"). It applies to single-series charts.
	Color string

	// Palette names a ColorBrewer palette ("Set1", "YlOrRd", ...). Hue groups,
	// pie slices and heatmap cells draw their colours from it.
	Palette string

	// Alpha is the fill opacity in (0, 1]; zero means opaque.
	Alpha float64

	// Rotation is the x tick label angle in degrees. Nil selects the chart
	// default (45 for bars, 0 otherwise); use Degrees to set it.
	Rotation *float64

	// Marker is the point glyph: circle, ring, square, box, triangle, cross
	// or plus. Empty draws lines without markers.
	Marker string

	// Annotate writes cell values onto heatmaps.
	Annotate bool
}

// size returns the figure size, falling back to the kind's default.
func (s Style) size(defW, defH float64) (float64, float64) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = defW
	}
	if h <= 0 {
		h = defH
	}
	return w, h
}

func (s Style) fill(c color.Color) color.Color {
	if s.Alpha <= 0 || s.Alpha >= 1 {
		return c
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(s.Alpha * 255)
	return n
}

// ParseColor resolves a hex triplet or an SVG colour name.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 || !strings.HasPrefix(s, "#") {
		return nil, fmt.Errorf("chart: unknown colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("chart: unknown colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// seriesColor is the colour of a single-series chart.
func (s Style) seriesColor() (color.Color, error) {
	if s.Color == "" {
		return plotutil.Color(0), nil
	}
	return ParseColor(s.Color)
}

// colors returns n colours for categorical groups. Without a palette the
// plotutil defaults are cycled.
func (s Style) colors(n int) ([]color.Color, error) {
	base := plotutil.DefaultColors
	if s.Palette != "" {
		p, err := brewerPalette(brewer.TypeAny, s.Palette, n)
		if err != nil {
			return nil, err
		}
		base = p.Colors()
	}
	out := make([]color.Color, n)
	for i := range out {
		out[i] = s.fill(base[i%len(base)])
	}
	return out, nil
}

// gradient returns the continuous palette for heatmaps.
func (s Style) gradient() (palette.Palette, error) {
	name := s.Palette
	if name == "" {
		name = "YlOrRd"
	}
	return brewerPalette(brewer.TypeAny, name, 9)
}

// brewerPalette returns the largest variant of the named palette holding at
// most n colours. Brewer palettes come in 3 to 12 colour variants.
func brewerPalette(typ brewer.PaletteType, name string, n int) (palette.Palette, error) {
	if n < 3 {
		n = 3
	}
	if n > 12 {
		n = 12
	}
	for k := n; k >= 3; k-- {
		if p, err := brewer.GetPalette(typ, name, k); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("chart: unknown palette %q", name)
}

func glyph(name string) (draw.GlyphDrawer, error) {
	switch strings.ToLower(name) {
	case "", "o", "circle":
		return draw.CircleGlyph{}, nil
	case "ring":
		return draw.RingGlyph{}, nil
	case "s", "square":
		return draw.SquareGlyph{}, nil
	case "box":
		return draw.BoxGlyph{}, nil
	case "^", "triangle":
		return draw.TriangleGlyph{}, nil
	case "x", "cross":
		return draw.CrossGlyph{}, nil
	case "+", "plus":
		return draw.PlusGlyph{}, nil
	default:
		return nil, fmt.Errorf("chart: unknown marker %q", name)
	}
}

// Degrees returns a pointer to d, for Style.Rotation.
func Degrees(d float64) *float64 { return &d }

// rotation returns the configured tick angle, or def when none is set.
func (s Style) rotation(def float64) float64 {
	if s.Rotation == nil {
		return def
	}
	return *s.Rotation
}
