package chart

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/vegasq/medframe/table"
)

func summary(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(table.MustSchema(
		table.Field{Name: "finding", Type: table.String},
		table.Field{Name: "patient_count", Type: table.Int},
		table.Field{Name: "avg_age", Type: table.Float},
		table.Field{Name: "sex", Type: table.String},
		table.Field{Name: "date", Type: table.Date},
	), []table.Row{
		{"COVID-19", 1200, 52.5, "M", "2020-03-01"},
		{"Pneumonia", 300, 61.0, "F", "2020-04-01"},
		{"No Finding", 150, 40.2, "M", "2020-05-01"},
		{"Tuberculosis", nil, nil, "F", "2020-06-01"},
	})
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	return tbl
}

func saveAndCheck(t *testing.T, c *Chart, name string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := c.Save(path, 72); err != nil {
		t.Fatalf("Save(%s) error = %v", name, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	if len(data) == 0 {
		t.Fatalf("%s is empty", name)
	}
	return data
}

func TestCharts_Render(t *testing.T) {
	tbl := summary(t)
	pivot, err := tbl.Pivot("finding", "sex", "patient_count")
	if err != nil {
		t.Fatalf("Pivot() error = %v", err)
	}

	tests := []struct {
		name  string
		build func() (*Chart, error)
	}{
		{"bar", func() (*Chart, error) {
			return Bar(tbl, "finding", "patient_count", Style{Title: "Diagnoses", Color: "skyblue"})
		}},
		{"pie", func() (*Chart, error) { return Pie(tbl, "finding", "patient_count", Style{Palette: "Set2"}) }},
		{"scatter", func() (*Chart, error) { return Scatter(tbl, "avg_age", "patient_count", "sex", Style{Marker: "triangle"}) }},
		{"line", func() (*Chart, error) { return Line(tbl, "date", "patient_count", "", Style{Marker: "o"}) }},
		{"heatmap", func() (*Chart, error) { return Heatmap(pivot, Style{Annotate: true}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build()
			if err != nil {
				t.Fatalf("%s() error = %v", tt.name, err)
			}
			png := saveAndCheck(t, c, tt.name+".png")
			if !bytes.HasPrefix(png, []byte("\x89PNG")) {
				t.Errorf("%s.png does not start with the PNG signature", tt.name)
			}

			c, err = tt.build()
			if err != nil {
				t.Fatalf("%s() error = %v", tt.name, err)
			}
			svg := saveAndCheck(t, c, tt.name+".svg")
			if !bytes.Contains(svg, []byte("<svg")) {
				t.Errorf("%s.svg is not an SVG document", tt.name)
			}
		})
	}
}

func TestChart_Release(t *testing.T) {
	c, err := Bar(summary(t), "finding", "patient_count", Style{})
	if err != nil {
		t.Fatalf("Bar() error = %v", err)
	}
	dir := t.TempDir()
	if err := c.Save(filepath.Join(dir, "a.png"), 0); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := c.Save(filepath.Join(dir, "b.png"), 0); !errors.Is(err, ErrReleased) {
		t.Errorf("second Save() error = %v, want ErrReleased", err)
	}

	c, _ = Bar(summary(t), "finding", "patient_count", Style{})
	c.Close()
	if err := c.Save(filepath.Join(dir, "c.png"), 0); !errors.Is(err, ErrReleased) {
		t.Errorf("Save() after Close error = %v, want ErrReleased", err)
	}

	c, _ = Bar(summary(t), "finding", "patient_count", Style{})
	if err := c.Save(filepath.Join(dir, "d.bmp"), 0); err == nil {
		t.Errorf("Save() with unsupported extension expected error")
	}
}

func TestCharts_Errors(t *testing.T) {
	tbl := summary(t)
	empty := table.Empty(tbl.Schema())

	tests := []struct {
		name    string
		build   func() (*Chart, error)
		wantErr error
	}{
		{"missing column", func() (*Chart, error) { return Bar(tbl, "diagnosis", "patient_count", Style{}) }, table.ErrColumnNotFound},
		{"non-numeric height", func() (*Chart, error) { return Bar(tbl, "finding", "sex", Style{}) }, table.ErrTypeMismatch},
		{"empty bar", func() (*Chart, error) { return Bar(empty, "finding", "patient_count", Style{}) }, ErrEmpty},
		{"empty pie", func() (*Chart, error) { return Pie(empty, "finding", "patient_count", Style{}) }, ErrEmpty},
		{"string x", func() (*Chart, error) { return Scatter(tbl, "finding", "patient_count", "", Style{}) }, table.ErrTypeMismatch},
		{"missing hue", func() (*Chart, error) { return Line(tbl, "date", "patient_count", "view", Style{}) }, table.ErrColumnNotFound},
		{"narrow heatmap", func() (*Chart, error) { return Heatmap(empty, Style{}) }, ErrEmpty},
		{"string heatmap cells", func() (*Chart, error) { return Heatmap(tbl, Style{}) }, table.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Pie(tbl, "finding", "patient_count", Style{Palette: "NoSuchPalette"}); err == nil {
		t.Errorf("Pie() with unknown palette expected error")
	}
	if _, err := Scatter(tbl, "avg_age", "patient_count", "", Style{Marker: "star"}); err == nil {
		t.Errorf("Scatter() with unknown marker expected error")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ff8000", color.RGBA{R: 0xff, G: 0x80, A: 0xff}, false},
		{"#0f0", color.RGBA{G: 0xff, A: 0xff}, false},
		{"SkyBlue", color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}, false},
		{"ff8000", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
		{"blurple", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && color.RGBAModel.Convert(got) != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStyleDefaults(t *testing.T) {
	c, err := Pie(summary(t), "finding", "patient_count", Style{})
	if err != nil {
		t.Fatalf("Pie() error = %v", err)
	}
	if w, h := c.Size(); w != 10 || h != 8 {
		t.Errorf("pie size = %vx%v, want 10x8", w, h)
	}
	c, _ = Bar(summary(t), "finding", "patient_count", Style{Width: 4, Height: 3})
	if w, h := c.Size(); w != 4 || h != 3 {
		t.Errorf("bar size = %vx%v, want 4x3", w, h)
	}

	faded := Style{Alpha: 0.5}.fill(color.RGBA{R: 0xff, A: 0xff})
	if n := color.NRGBAModel.Convert(faded).(color.NRGBA); n.A != 127 || n.R != 0xff {
		t.Errorf("fill() = %+v", n)
	}
}

func TestBar_Rotation(t *testing.T) {
	tests := []struct {
		name     string
		rotation *float64
		want     float64
	}{
		{"default", nil, 45},
		{"horizontal", Degrees(0), 0},
		{"custom", Degrees(90), 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Bar(summary(t), "finding", "patient_count", Style{Rotation: tt.rotation})
			if err != nil {
				t.Fatalf("Bar() error = %v", err)
			}
			defer c.Close()
			if got := c.plot.X.Tick.Label.Rotation * 180 / math.Pi; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("tick rotation = %v degrees, want %v", got, tt.want)
			}
		})
	}
}

func TestBarLabel(t *testing.T) {
	for in, want := range map[float64]string{1234: "1,234", 7: "7", 2.5: "2.50"} {
		if got := barLabel(in); got != want {
			t.Errorf("barLabel(%v) = %q, want %q", in, got, want)
		}
	}
}
