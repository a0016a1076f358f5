// Package missing drops sparse rows and imputes null cells.
package missing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/vegasq/medframe/internal/logging"
	"github.com/vegasq/medframe/internal/metrics"
	"github.com/vegasq/medframe/table"
)

// ErrInvalidThreshold is returned for a drop threshold outside [0, 1].
var ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")

// Strategy is the global policy for nulls not covered by explicit fills.
type Strategy int

const (
	None Strategy = iota
	Drop
	Zero
	Median
	Mean
	Mode
)

var strategyNames = map[Strategy]string{
	None:   "none",
	Drop:   "drop",
	Zero:   "zero",
	Median: "median",
	Mean:   "mean",
	Mode:   "mode",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a configuration name to a Strategy. The empty string is
// None.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return None, fmt.Errorf("unknown missing-value strategy %q", name)
}

// Threshold returns a pointer to v, for Options.DropThreshold.
func Threshold(v float64) *float64 { return &v }

// Options selects the imputation steps, applied in field order.
type Options struct {
	// DropThreshold, when set, drops rows whose fraction of null columns is
	// strictly greater than the threshold.
	DropThreshold *float64

	// Fill maps column names to replacement values for their nulls. Columns
	// listed here are skipped by Strategy.
	Fill map[string]any

	Strategy Strategy
}

// Report summarises what Handle changed.
type Report struct {
	ThresholdDropped int            `json:"threshold_dropped"`
	Filled           map[string]int `json:"filled,omitempty"`
	StrategyDropped  int            `json:"strategy_dropped"`
	Imputed          map[string]int `json:"imputed,omitempty"`
	// Statistics holds the value used per imputed column.
	Statistics map[string]any `json:"statistics,omitempty"`
}

// Handler applies missing-value policies.
type Handler struct {
	logger *zap.Logger
}

// New returns a Handler logging through logger; nil disables logging.
func New(logger *zap.Logger) *Handler {
	return &Handler{logger: logging.OrNop(logger).Named("missing")}
}

// Handle applies opts to t.
//
// Fill values are converted to the column type; numeric fills into Int
// columns are truncated toward zero. Strategy statistics are computed per
// numeric column over its non-null values after the threshold drop and
// fills; a column without non-null values is left unfilled.
func (h *Handler) Handle(ctx context.Context, t *table.Table, opts Options) (*table.Table, Report, error) {
	report := Report{
		Filled:     make(map[string]int),
		Imputed:    make(map[string]int),
		Statistics: make(map[string]any),
	}

	if th := opts.DropThreshold; th != nil && (math.IsNaN(*th) || *th < 0 || *th > 1) {
		return nil, report, fmt.Errorf("drop threshold %v: %w", *th, ErrInvalidThreshold)
	}
	fills, err := convertFills(t.Schema(), opts.Fill)
	if err != nil {
		return nil, report, err
	}

	out := t
	if th := opts.DropThreshold; th != nil && out.Width() > 0 {
		width := float64(out.Width())
		var removed int
		out, removed = out.Filter(func(r table.Row) bool {
			return float64(nullsIn(r))/width <= *th
		})
		report.ThresholdDropped = removed
		metrics.RecordRows("threshold_dropped", removed)
		h.logger.Info("dropped sparse rows", zap.Float64("threshold", *th), zap.Int("removed", removed))
	}

	names := make([]string, 0, len(fills))
	for name := range fills {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		n, err := fillNulls(&out, name, fills[name])
		if err != nil {
			return nil, report, err
		}
		report.Filled[name] = n
		metrics.RecordRows("filled", n)
		h.logger.Info("filled nulls", zap.String("column", name), zap.Any("value", fills[name]), zap.Int("filled", n))
	}

	switch opts.Strategy {
	case None:
	case Drop:
		var removed int
		out, removed = out.Filter(func(r table.Row) bool { return nullsIn(r) == 0 })
		report.StrategyDropped = removed
		metrics.RecordRows("strategy_dropped", removed)
		h.logger.Info("dropped rows with nulls", zap.Int("removed", removed))
	case Zero, Median, Mean, Mode:
		for _, f := range out.Schema().Fields() {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
			if _, covered := fills[f.Name]; covered || !f.Type.Numeric() {
				continue
			}
			value, ok, err := statistic(out, f.Name, opts.Strategy)
			if err != nil {
				return nil, report, err
			}
			if !ok {
				h.logger.Warn("no statistic for column, leaving nulls", zap.String("column", f.Name), zap.Stringer("strategy", opts.Strategy))
				continue
			}
			cv, err := table.Convert(value, f.Type)
			if err != nil {
				return nil, report, fmt.Errorf("impute %q: %w", f.Name, err)
			}
			n, err := fillNulls(&out, f.Name, cv)
			if err != nil {
				return nil, report, err
			}
			report.Statistics[f.Name] = cv
			report.Imputed[f.Name] = n
			metrics.RecordRows("imputed", n)
			h.logger.Info("imputed nulls",
				zap.String("column", f.Name),
				zap.Stringer("strategy", opts.Strategy),
				zap.Any("value", cv),
				zap.Int("imputed", n))
		}
	default:
		return nil, report, fmt.Errorf("unknown missing-value strategy %d", int(opts.Strategy))
	}

	return out, report, nil
}

func convertFills(s table.Schema, fill map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fill))
	for name, v := range fill {
		_, f, err := s.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("fill: %w", err)
		}
		cv, err := table.Convert(v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("fill %q: %w", name, err)
		}
		out[name] = cv
	}
	return out, nil
}

func fillNulls(t **table.Table, column string, value any) (int, error) {
	if value == nil {
		return 0, nil
	}
	out, n, err := (*t).Update(column, func(v any) (any, bool) {
		if v != nil {
			return v, false
		}
		return value, true
	})
	if err != nil {
		return 0, fmt.Errorf("fill %q: %w", column, err)
	}
	*t = out
	return n, nil
}

func nullsIn(r table.Row) int {
	n := 0
	for _, v := range r {
		if v == nil {
			n++
		}
	}
	return n
}

// statistic computes the fill value of one numeric column. ok is false when
// the column has no non-null values.
func statistic(t *table.Table, column string, s Strategy) (float64, bool, error) {
	if s == Zero {
		return 0, true, nil
	}
	xs, err := t.Floats(column)
	if err != nil {
		return 0, false, err
	}
	if len(xs) == 0 {
		return 0, false, nil
	}
	switch s {
	case Mean:
		return stat.Mean(xs, nil), true, nil
	case Median:
		return median(xs), true, nil
	case Mode:
		return mode(xs), true, nil
	default:
		return 0, false, fmt.Errorf("strategy %s has no statistic", s)
	}
}

// median averages the two middle values of an even-length sample.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// mode returns the most frequent value; ties go to the value that occurs
// first in row order.
func mode(xs []float64) float64 {
	counts := make(map[float64]int, len(xs))
	maxCount := 0
	for _, x := range xs {
		counts[x]++
		maxCount = max(maxCount, counts[x])
	}
	for _, x := range xs {
		if counts[x] == maxCount {
			return x
		}
	}
	return xs[0]
}
