package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/vegasq/medframe/chart"
	"github.com/vegasq/medframe/clean"
	"github.com/vegasq/medframe/missing"
	"github.com/vegasq/medframe/reader"
	"github.com/vegasq/medframe/table"
)

// Pipeline describes one analysis run. Sections run in field order and every
// section except Input is optional.
//
// Example (trimmed):
//
//	{
//	  "job":     "covid-metadata",
//	  "input":   { "path": "data/metadata.csv", "mode": "dropMalformed" },
//	  "clean":   { "remove_duplicates": true,
//	               "outliers": [ { "column": "age", "lower": 0, "upper": 120 } ] },
//	  "missing": { "strategy": "median" },
//	  "age_group": { "column": "age", "output": "age_group" },
//	  "sql":     { "standard": true },
//	  "charts":  [ { "kind": "bar", "query": "diagnosis_summary",
//	                 "x": "finding", "y": "patient_count", "output": "diagnoses.png" } ]
//	}
type Pipeline struct {
	// Job labels the run in logs and metrics.
	Job string `json:"job"`

	Input    Input       `json:"input"`
	Clean    Clean       `json:"clean"`
	Missing  Missing     `json:"missing"`
	AgeGroup AgeGroup    `json:"age_group"`
	SQL      SQL         `json:"sql"`
	Charts   []ChartSpec `json:"charts"`
}

// Input configures the loader.
type Input struct {
	Path   string `json:"path"`
	Format string `json:"format"`

	// Mode is permissive, dropMalformed or failFast.
	Mode string `json:"mode"`

	// Schema, when present, replaces type inference.
	Schema []FieldSpec `json:"schema"`

	NoHeader         bool   `json:"no_header"`
	Delimiter        string `json:"delimiter"`
	DisableInference bool   `json:"disable_inference"`
	NullValue        string `json:"null_value"`
}

// FieldSpec is one column of an explicit schema.
type FieldSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Clean configures the cleaner.
type Clean struct {
	RemoveDuplicates bool              `json:"remove_duplicates"`
	Outliers         []clean.Bound     `json:"outliers"`
	Standardize      []StandardizeSpec `json:"standardize"`
}

// StandardizeSpec is an ordered rule list for one column.
type StandardizeSpec struct {
	Column string     `json:"column"`
	Rules  []RuleSpec `json:"rules"`
}

// RuleSpec is one replacement rule. Match is exact (the default), contains,
// prefix or regex; contains and prefix ignore case.
type RuleSpec struct {
	Match       string `json:"match"`
	Value       string `json:"value"`
	Replacement string `json:"replacement"`
}

// Missing configures the missing-value handler.
type Missing struct {
	DropThreshold *float64       `json:"drop_threshold"`
	Fill          map[string]any `json:"fill"`
	Strategy      string         `json:"strategy"`
}

// AgeGroup configures the age categorizer. It runs when Output is set.
type AgeGroup struct {
	Column string `json:"column"`
	Output string `json:"output"`
}

// SQL configures the query stage.
type SQL struct {
	// Table overrides the registration name from Settings.
	Table string `json:"table"`

	// Standard runs the five standard analytics.
	Standard bool `json:"standard"`

	Queries []NamedQuery `json:"queries"`
}

// NamedQuery is an ad-hoc query whose result charts can refer to by name.
type NamedQuery struct {
	Name  string `json:"name"`
	SQL   string `json:"sql"`
	Limit int    `json:"limit"`
}

// ChartSpec renders one query result. Column selectors depend on Kind:
// bar, scatter and line use X and Y (Hue optional for scatter and line), pie
// uses Labels and Values, heatmap uses Pivot or a query that is already wide.
type ChartSpec struct {
	Kind  string `json:"kind"`
	Query string `json:"query"`

	X      string `json:"x"`
	Y      string `json:"y"`
	Hue    string `json:"hue"`
	Labels string `json:"labels"`
	Values string `json:"values"`

	Pivot *PivotSpec `json:"pivot"`

	// Output is the image path; relative paths resolve against the output
	// directory.
	Output string `json:"output"`
	DPI    int    `json:"dpi"`

	// Options holds cosmetics: title, xlabel, ylabel, width, height, color,
	// palette, alpha, rotation, marker, annotate.
	Options Options `json:"options"`
}

// PivotSpec reshapes a long result into a heatmap grid.
type PivotSpec struct {
	Index   string `json:"index"`
	Columns string `json:"columns"`
	Values  string `json:"values"`
}

// LoadPipeline decodes a pipeline file. Unknown fields are rejected.
func LoadPipeline(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline %s: %w", path, err)
	}
	return &p, nil
}

// ReaderOptions converts the input section.
func (in Input) ReaderOptions() (reader.Options, error) {
	mode, err := reader.ParseMode(in.Mode)
	if err != nil {
		return reader.Options{}, err
	}
	opts := reader.Options{
		Format:           in.format(),
		NoHeader:         in.NoHeader,
		DisableInference: in.DisableInference,
		NullValue:        in.NullValue,
		Mode:             mode,
	}
	if in.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(in.Delimiter)
		if size != len(in.Delimiter) {
			return reader.Options{}, fmt.Errorf("delimiter %q must be a single character", in.Delimiter)
		}
		opts.Delimiter = r
	}
	if len(in.Schema) > 0 {
		fields := make([]table.Field, len(in.Schema))
		for i, fs := range in.Schema {
			typ, err := table.ParseType(fs.Type)
			if err != nil {
				return reader.Options{}, fmt.Errorf("schema column %q: %w", fs.Name, err)
			}
			fields[i] = table.Field{Name: fs.Name, Type: typ}
		}
		schema, err := table.NewSchema(fields...)
		if err != nil {
			return reader.Options{}, err
		}
		opts.Schema = &schema
	}
	return opts, nil
}

// format returns the configured format, or the one implied by the file
// extension.
func (in Input) format() string {
	if in.Format != "" {
		return strings.ToLower(in.Format)
	}
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(in.Path), ".")); ext {
	case reader.FormatTSV, reader.FormatParquet, reader.FormatJSON, reader.FormatJSONL:
		return ext
	case "ndjson":
		return reader.FormatJSONL
	default:
		return reader.FormatCSV
	}
}

// CleanOptions converts the clean section.
func (c Clean) CleanOptions() (clean.Options, error) {
	opts := clean.Options{
		RemoveDuplicates: c.RemoveDuplicates,
		Outliers:         c.Outliers,
	}
	for _, spec := range c.Standardize {
		cr := clean.ColumnRules{Column: spec.Column}
		for _, rs := range spec.Rules {
			rule, err := rs.Rule()
			if err != nil {
				return clean.Options{}, fmt.Errorf("standardize %q: %w", spec.Column, err)
			}
			cr.Rules = append(cr.Rules, rule)
		}
		opts.Standardize = append(opts.Standardize, cr)
	}
	return opts, nil
}

// Rule converts one rule spec.
func (rs RuleSpec) Rule() (clean.Rule, error) {
	switch strings.ToLower(rs.Match) {
	case "", "exact":
		return clean.Exact(rs.Value, rs.Replacement), nil
	case "contains":
		return clean.Predicate(clean.ContainsFold(rs.Value), rs.Replacement), nil
	case "prefix":
		return clean.Predicate(clean.HasPrefixFold(rs.Value), rs.Replacement), nil
	case "regex":
		match, err := clean.MatchRegexp(rs.Value)
		if err != nil {
			return clean.Rule{}, err
		}
		return clean.Predicate(match, rs.Replacement), nil
	default:
		return clean.Rule{}, fmt.Errorf("unknown rule match %q", rs.Match)
	}
}

// MissingOptions converts the missing section.
func (m Missing) MissingOptions() (missing.Options, error) {
	strategy, err := missing.ParseStrategy(m.Strategy)
	if err != nil {
		return missing.Options{}, err
	}
	return missing.Options{
		DropThreshold: m.DropThreshold,
		Fill:          m.Fill,
		Strategy:      strategy,
	}, nil
}

// Style converts the chart cosmetics.
func (c ChartSpec) Style() chart.Style {
	o := c.Options
	return chart.Style{
		Title:    o.String("title", ""),
		XLabel:   o.String("xlabel", ""),
		YLabel:   o.String("ylabel", ""),
		Width:    o.Float("width", 0),
		Height:   o.Float("height", 0),
		Color:    o.String("color", ""),
		Palette:  o.String("palette", ""),
		Alpha:    o.Float("alpha", 0),
		Rotation: rotation(o),
		Marker:   o.String("marker", ""),
		Annotate: o.Bool("annotate", false),
	}
}

func rotation(o Options) *float64 {
	if !o.Has("rotation") {
		return nil
	}
	return chart.Degrees(o.Float("rotation", 0))
}
