package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/vegasq/medframe/agegroup"
	"github.com/vegasq/medframe/chart"
	"github.com/vegasq/medframe/clean"
	"github.com/vegasq/medframe/internal/config"
	"github.com/vegasq/medframe/internal/logging"
	"github.com/vegasq/medframe/internal/metrics"
	"github.com/vegasq/medframe/internal/metrics/promfile"
	"github.com/vegasq/medframe/missing"
	"github.com/vegasq/medframe/output"
	"github.com/vegasq/medframe/quality"
	"github.com/vegasq/medframe/query"
	"github.com/vegasq/medframe/reader"
	"github.com/vegasq/medframe/table"
)

const defaultJob = "medframe"

var (
	headline = color.New(color.FgCyan, color.Bold)
	success  = color.New(color.FgGreen)
	warning  = color.New(color.FgYellow)
)

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	settings, err := config.LoadSettings(envFiles...)
	if err != nil {
		return err
	}
	if o.verbose {
		settings.LogLevel = "debug"
	}
	logger, err := logging.New(settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p, err := pipelineFor(o, logger)
	if err != nil {
		return err
	}

	if o.schema {
		return describe(stdout, p.Input, o.format, o.limit)
	}

	if settings.MetricsFile != "" {
		backend, err := promfile.NewBackend(settings.MetricsFile, promfile.WithPushgateway(settings.Pushgateway, p.Job))
		if err != nil {
			return err
		}
		prev := metrics.SetBackend(backend)
		defer func() {
			if err := metrics.Flush(); err != nil {
				logger.Warn("failed to flush metrics", zap.Error(err))
			}
			metrics.SetBackend(prev)
		}()
	}

	r := newRunner(*settings, logger, stderr)
	out, err := r.run(ctx, *p, o.query)
	if err != nil {
		return err
	}
	return printResults(stdout, stderr, out, o.format, o.limit)
}

// pipelineFor loads the pipeline file, or builds the default pipeline for a
// bare input argument. A positional input overrides input.path.
func pipelineFor(o *options, logger *zap.Logger) (*config.Pipeline, error) {
	var p *config.Pipeline
	if o.configPath != "" {
		loaded, err := config.LoadPipeline(o.configPath)
		if err != nil {
			return nil, err
		}
		p = loaded
	} else {
		p = &config.Pipeline{
			Job:   defaultJob,
			Clean: config.Clean{RemoveDuplicates: true},
			// Standard analytics assume the imaging metadata columns; an
			// ad-hoc query stands on its own.
			SQL: config.SQL{Standard: o.query == ""},
		}
	}
	if o.input != "" {
		p.Input.Path = o.input
	}
	if p.Job == "" {
		p.Job = defaultJob
	}

	issues := config.ValidatePipeline(*p)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			logger.Warn("pipeline warning", zap.String("path", iss.Path), zap.String("message", iss.Message))
		}
	}
	if errs := config.Errors(issues); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, iss := range errs {
			joined[i] = iss
		}
		return nil, fmt.Errorf("invalid pipeline: %w", errors.Join(joined...))
	}
	return p, nil
}

// outcome is everything one pipeline run produced.
type outcome struct {
	Raw   *table.Table
	Final *table.Table

	Clean   clean.Report
	Missing missing.Report

	// RawQuality describes the table as loaded, Quality after cleaning and
	// imputation.
	RawQuality quality.Report
	Quality    quality.Report

	// Results holds query results by name; Order lists the names in the
	// order they ran.
	Results map[string]*table.Table
	Order   []string

	Charts []string
	Adhoc  *table.Table
}

type runner struct {
	settings config.Settings
	logger   *zap.Logger
	report   io.Writer
}

func newRunner(settings config.Settings, logger *zap.Logger, report io.Writer) *runner {
	if report == nil {
		report = io.Discard
	}
	return &runner{settings: settings, logger: logging.OrNop(logger), report: report}
}

// step runs fn and records it as a pipeline step.
func (r *runner) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *runner) run(ctx context.Context, p config.Pipeline, adhoc string) (*outcome, error) {
	out := &outcome{Results: make(map[string]*table.Table)}
	log := r.logger.With(zap.String("job", p.Job))

	err := r.step("load", func() error {
		opts, err := p.Input.ReaderOptions()
		if err != nil {
			return err
		}
		out.Raw, err = reader.Load(p.Input.Path, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRows("loaded", out.Raw.Len())
	log.Info("loaded input", zap.String("path", p.Input.Path), zap.Int("rows", out.Raw.Len()), zap.Int("columns", out.Raw.Width()))
	success.Fprintf(r.report, "Loaded %d rows, %d columns from %s\n", out.Raw.Len(), out.Raw.Width(), p.Input.Path)

	t := out.Raw
	out.RawQuality = quality.Assess(t)

	err = r.step("clean", func() error {
		opts, err := p.Clean.CleanOptions()
		if err != nil {
			return err
		}
		t, out.Clean, err = clean.New(r.logger).Clean(ctx, t, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	success.Fprintf(r.report, "Cleaned: %d duplicates, %d outliers removed\n", out.Clean.Duplicates, out.Clean.OutliersRemoved())

	err = r.step("missing", func() error {
		opts, err := p.Missing.MissingOptions()
		if err != nil {
			return err
		}
		t, out.Missing, err = missing.New(r.logger).Handle(ctx, t, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out.Quality = quality.Assess(t)
	metrics.RecordStep("quality", nil, time.Since(start))
	if err := quality.Format(r.report, out.Quality); err != nil {
		return nil, err
	}

	if p.AgeGroup.Output != "" {
		col := p.AgeGroup.Column
		if col == "" {
			col = "age"
		}
		err = r.step("age_group", func() error {
			var err error
			t, err = agegroup.Apply(ctx, t, col, p.AgeGroup.Output)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	out.Final = t

	if err := r.query(ctx, p, adhoc, out); err != nil {
		return nil, err
	}
	if err := r.charts(p, out); err != nil {
		return nil, err
	}
	log.Info("pipeline finished", zap.Int("rows", out.Final.Len()), zap.Int("results", len(out.Order)), zap.Int("charts", len(out.Charts)))
	return out, nil
}

func (r *runner) query(ctx context.Context, p config.Pipeline, adhoc string, out *outcome) error {
	if !p.SQL.Standard && len(p.SQL.Queries) == 0 && adhoc == "" {
		return nil
	}
	name := p.SQL.Table
	if name == "" {
		name = r.settings.Table
	}

	sess, err := query.NewSession(ctx, query.WithLogger(r.logger))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	if err := r.step("register", func() error {
		return sess.Register(ctx, name, out.Final, false)
	}); err != nil {
		return err
	}

	if p.SQL.Standard {
		results, err := sess.RunStandard(ctx, name)
		if err != nil {
			return err
		}
		for _, n := range query.StandardNames {
			out.Results[n] = results[n]
			out.Order = append(out.Order, n)
		}
	}
	for _, q := range p.SQL.Queries {
		var res *table.Table
		if err := r.step("sql_"+q.Name, func() error {
			var err error
			res, err = sess.Execute(ctx, q.SQL, q.Limit)
			return err
		}); err != nil {
			return err
		}
		if _, seen := out.Results[q.Name]; !seen {
			out.Order = append(out.Order, q.Name)
		}
		out.Results[q.Name] = res
	}
	if adhoc != "" {
		out.Adhoc, err = sess.Execute(ctx, adhoc, 0)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
	}
	return nil
}

func (r *runner) charts(p config.Pipeline, out *outcome) error {
	for i, spec := range p.Charts {
		res, ok := out.Results[spec.Query]
		if !ok {
			return fmt.Errorf("charts[%d]: no result named %q", i, spec.Query)
		}
		c, err := renderChart(res, spec)
		if err != nil {
			return fmt.Errorf("charts[%d]: %w", i, err)
		}

		path := spec.Output
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.settings.OutputDir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			c.Close()
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		dpi := spec.DPI
		if dpi == 0 {
			dpi = r.settings.DPI
		}
		if err := c.Save(path, dpi); err != nil {
			return fmt.Errorf("charts[%d]: %w", i, err)
		}
		r.logger.Info("saved chart", zap.String("kind", spec.Kind), zap.String("path", path))
		success.Fprintf(r.report, "Chart saved to: %s\n", path)
		out.Charts = append(out.Charts, path)
	}
	return nil
}

func renderChart(t *table.Table, spec config.ChartSpec) (*chart.Chart, error) {
	s := spec.Style()
	switch strings.ToLower(spec.Kind) {
	case "bar":
		return chart.Bar(t, spec.X, spec.Y, s)
	case "pie":
		return chart.Pie(t, spec.Labels, spec.Values, s)
	case "scatter":
		return chart.Scatter(t, spec.X, spec.Y, spec.Hue, s)
	case "line":
		return chart.Line(t, spec.X, spec.Y, spec.Hue, s)
	case "heatmap":
		if pv := spec.Pivot; pv != nil {
			wide, err := t.Pivot(pv.Index, pv.Columns, pv.Values)
			if err != nil {
				return nil, err
			}
			t = wide
		}
		return chart.Heatmap(t, s)
	default:
		return nil, fmt.Errorf("unknown chart kind %q", spec.Kind)
	}
}

// printResults writes the ad-hoc result when there is one, otherwise every
// named result, to stdout. Headings go to stderr so machine formats stay
// parseable.
func printResults(stdout, stderr io.Writer, out *outcome, format string, limit int) error {
	f, err := output.New(format, stdout)
	if err != nil {
		return err
	}
	clip := func(t *table.Table) *table.Table {
		if limit > 0 {
			return t.Head(limit)
		}
		return t
	}

	if out.Adhoc != nil {
		return f.Format(clip(out.Adhoc))
	}
	for _, name := range out.Order {
		res := out.Results[name]
		headline.Fprintf(stderr, "\n%s (%d rows)\n", name, res.Len())
		if res.Len() == 0 {
			warning.Fprintln(stderr, "no rows")
			continue
		}
		if err := f.Format(clip(res)); err != nil {
			return fmt.Errorf("failed to format %s: %w", name, err)
		}
	}
	return nil
}
