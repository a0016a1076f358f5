package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vegasq/medframe/chart"
	"github.com/vegasq/medframe/query"
	"github.com/vegasq/medframe/reader"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "clean.outliers[1].upper").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as an
// error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Errors returns only the issues with SeverityError.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			out = append(out, iss)
		}
	}
	return out
}

var (
	chartKinds = map[string]struct{}{
		"bar": {}, "pie": {}, "scatter": {}, "line": {}, "heatmap": {},
	}
	imageExts = map[string]struct{}{
		".png": {}, ".jpg": {}, ".jpeg": {}, ".tif": {}, ".tiff": {},
		".svg": {}, ".pdf": {}, ".eps": {},
	}
)

// ValidatePipeline performs static validation of a Pipeline. It never
// mutates p; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; runs will be labelled \"medframe\"",
		})
	}
	issues = append(issues, validateInput(p.Input)...)
	issues = append(issues, validateClean(p.Clean)...)
	issues = append(issues, validateMissing(p.Missing)...)
	issues = append(issues, validateSQL(p.SQL)...)
	issues = append(issues, validateCharts(p)...)
	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue
	if strings.TrimSpace(in.Path) == "" {
		issues = append(issues, Issue{SeverityError, "input.path", "input.path must not be empty"})
	}
	switch in.format() {
	case reader.FormatCSV, reader.FormatTSV, reader.FormatParquet, reader.FormatJSON, reader.FormatJSONL:
	default:
		issues = append(issues, Issue{SeverityError, "input.format", fmt.Sprintf("unsupported format %q", in.Format)})
	}
	if _, err := in.ReaderOptions(); err != nil {
		issues = append(issues, Issue{SeverityError, "input", err.Error()})
	}
	if len(in.Schema) > 0 && in.DisableInference {
		issues = append(issues, Issue{SeverityWarning, "input.disable_inference", "ignored when a schema is given"})
	}
	return issues
}

func validateClean(c Clean) []Issue {
	var issues []Issue
	for i, b := range c.Outliers {
		path := fmt.Sprintf("clean.outliers[%d]", i)
		if strings.TrimSpace(b.Column) == "" {
			issues = append(issues, Issue{SeverityError, path + ".column", "column must not be empty"})
		}
		if b.Lower > b.Upper {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("lower %g is above upper %g", b.Lower, b.Upper)})
		}
	}
	for i, spec := range c.Standardize {
		path := fmt.Sprintf("clean.standardize[%d]", i)
		if strings.TrimSpace(spec.Column) == "" {
			issues = append(issues, Issue{SeverityError, path + ".column", "column must not be empty"})
		}
		if len(spec.Rules) == 0 {
			issues = append(issues, Issue{SeverityWarning, path + ".rules", "no rules; the column is left unchanged"})
		}
		for j, rs := range spec.Rules {
			if _, err := rs.Rule(); err != nil {
				issues = append(issues, Issue{SeverityError, fmt.Sprintf("%s.rules[%d]", path, j), err.Error()})
			}
		}
	}
	return issues
}

func validateMissing(m Missing) []Issue {
	var issues []Issue
	if t := m.DropThreshold; t != nil && (*t < 0 || *t > 1) {
		issues = append(issues, Issue{SeverityError, "missing.drop_threshold", fmt.Sprintf("%g is outside [0, 1]", *t)})
	}
	if _, err := m.MissingOptions(); err != nil {
		issues = append(issues, Issue{SeverityError, "missing.strategy", err.Error()})
	}
	return issues
}

func validateSQL(s SQL) []Issue {
	var issues []Issue
	if s.Table != "" && !query.ValidName(s.Table) {
		issues = append(issues, Issue{SeverityError, "sql.table", fmt.Sprintf("%q is not a valid table name", s.Table)})
	}
	seen := make(map[string]bool)
	for i, q := range s.Queries {
		path := fmt.Sprintf("sql.queries[%d]", i)
		switch {
		case strings.TrimSpace(q.Name) == "":
			issues = append(issues, Issue{SeverityError, path + ".name", "name must not be empty"})
		case seen[q.Name]:
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate query name %q", q.Name)})
		case isStandard(q.Name):
			issues = append(issues, Issue{SeverityWarning, path + ".name", fmt.Sprintf("%q shadows a standard query", q.Name)})
		}
		seen[q.Name] = true
		if strings.TrimSpace(q.SQL) == "" {
			issues = append(issues, Issue{SeverityError, path + ".sql", "sql must not be empty"})
		}
		if q.Limit < 0 {
			issues = append(issues, Issue{SeverityError, path + ".limit", "limit must not be negative"})
		}
	}
	return issues
}

func validateCharts(p Pipeline) []Issue {
	available := make(map[string]bool)
	if p.SQL.Standard {
		for _, name := range query.StandardNames {
			available[name] = true
		}
	}
	for _, q := range p.SQL.Queries {
		available[q.Name] = true
	}

	var issues []Issue
	outputs := make(map[string]int)
	for i, c := range p.Charts {
		path := fmt.Sprintf("charts[%d]", i)
		add := func(field, msg string) {
			issues = append(issues, Issue{SeverityError, path + field, msg})
		}

		kind := strings.ToLower(c.Kind)
		if _, ok := chartKinds[kind]; !ok {
			add(".kind", fmt.Sprintf("unknown chart kind %q", c.Kind))
		}
		if !available[c.Query] {
			add(".query", fmt.Sprintf("query %q is not produced by the sql section", c.Query))
		}

		switch kind {
		case "bar", "scatter", "line":
			if c.X == "" || c.Y == "" {
				add("", kind+" charts need x and y")
			}
		case "pie":
			if c.Labels == "" || c.Values == "" {
				add("", "pie charts need labels and values")
			}
		case "heatmap":
			if pv := c.Pivot; pv != nil && (pv.Index == "" || pv.Columns == "" || pv.Values == "") {
				add(".pivot", "pivot needs index, columns and values")
			}
		}

		if c.Output == "" {
			add(".output", "output must not be empty")
		} else if _, ok := imageExts[strings.ToLower(filepath.Ext(c.Output))]; !ok {
			add(".output", fmt.Sprintf("unsupported image type %q", filepath.Ext(c.Output)))
		}
		if prev, dup := outputs[c.Output]; dup && c.Output != "" {
			issues = append(issues, Issue{SeverityWarning, path + ".output", fmt.Sprintf("overwrites charts[%d]", prev)})
		}
		outputs[c.Output] = i

		if c.DPI < 0 {
			add(".dpi", "dpi must not be negative")
		}
		if col := c.Options.String("color", ""); col != "" {
			if _, err := chart.ParseColor(col); err != nil {
				add(".options.color", err.Error())
			}
		}
		if a := c.Options.Float("alpha", 0); a < 0 || a > 1 {
			add(".options.alpha", fmt.Sprintf("%g is outside [0, 1]", a))
		}
	}
	return issues
}

func isStandard(name string) bool {
	for _, n := range query.StandardNames {
		if n == name {
			return true
		}
	}
	return false
}
