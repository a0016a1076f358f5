// Package clean removes duplicate rows, filters numeric outliers and
// standardises category labels of a table.
package clean

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vegasq/medframe/internal/logging"
	"github.com/vegasq/medframe/internal/metrics"
	"github.com/vegasq/medframe/table"
)

// Bound keeps rows whose Column value lies in [Lower, Upper].
type Bound struct {
	Column string  `json:"column"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// ColumnRules is an ordered rule list for one String column.
type ColumnRules struct {
	Column string
	Rules  []Rule
}

// Options selects the cleaning steps. Steps run in field order and every
// step is optional.
type Options struct {
	RemoveDuplicates bool
	Outliers         []Bound
	Standardize      []ColumnRules
}

// OutlierCount is the number of rows one bound removed.
type OutlierCount struct {
	Column  string `json:"column"`
	Removed int    `json:"removed"`
}

// Report summarises what Clean changed.
type Report struct {
	Duplicates int            `json:"duplicates"`
	Outliers   []OutlierCount `json:"outliers,omitempty"`
	Replaced   map[string]int `json:"replaced,omitempty"`
}

// OutliersRemoved sums the rows removed by all bounds.
func (r Report) OutliersRemoved() int {
	n := 0
	for _, o := range r.Outliers {
		n += o.Removed
	}
	return n
}

// Cleaner applies cleaning steps to tables.
type Cleaner struct {
	logger *zap.Logger
}

// New returns a Cleaner logging through logger; nil disables logging.
func New(logger *zap.Logger) *Cleaner {
	return &Cleaner{logger: logging.OrNop(logger).Named("clean")}
}

// Clean applies opts to t and returns the cleaned table.
//
// Bounds apply in slice order, so a row removed by an earlier bound is not
// counted by a later one; null values fall outside every bound. Rules apply
// in order per column and later rules see the output of earlier ones; null
// cells never match.
//
// Every referenced column is checked before any step runs. A missing column
// returns an error wrapping table.ErrColumnNotFound; a bound on a non-numeric
// column or rules on a non-String column wrap table.ErrTypeMismatch.
func (c *Cleaner) Clean(ctx context.Context, t *table.Table, opts Options) (*table.Table, Report, error) {
	report := Report{Replaced: make(map[string]int)}
	if err := validate(t.Schema(), opts); err != nil {
		return nil, report, err
	}

	out := t
	if opts.RemoveDuplicates {
		var removed int
		out, removed = out.Distinct()
		report.Duplicates = removed
		metrics.RecordRows("duplicates", removed)
		c.logger.Info("removed duplicate rows", zap.Int("removed", removed), zap.Int("remaining", out.Len()))
	}

	for _, b := range opts.Outliers {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		idx, _ := out.Schema().Index(b.Column)
		var removed int
		out, removed = out.Filter(func(r table.Row) bool {
			v, ok := table.AsFloat(r[idx])
			return ok && v >= b.Lower && v <= b.Upper
		})
		report.Outliers = append(report.Outliers, OutlierCount{Column: b.Column, Removed: removed})
		metrics.RecordRows("outliers", removed)
		c.logger.Info("removed outliers",
			zap.String("column", b.Column),
			zap.Float64("lower", b.Lower),
			zap.Float64("upper", b.Upper),
			zap.Int("removed", removed))
	}

	for _, cr := range opts.Standardize {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		var changed int
		var err error
		out, changed, err = out.Update(cr.Column, func(v any) (any, bool) {
			s, ok := v.(string)
			if !ok {
				return v, false
			}
			orig := s
			for _, rule := range cr.Rules {
				if rule.Matches(s) {
					s = rule.Replacement
				}
			}
			return s, s != orig
		})
		if err != nil {
			return nil, report, fmt.Errorf("standardize %q: %w", cr.Column, err)
		}
		report.Replaced[cr.Column] += changed
		metrics.RecordRows("standardized", changed)
		c.logger.Info("standardized values",
			zap.String("column", cr.Column),
			zap.Int("rules", len(cr.Rules)),
			zap.Int("changed", changed))
	}

	return out, report, nil
}

func validate(s table.Schema, opts Options) error {
	for _, b := range opts.Outliers {
		_, f, err := s.Lookup(b.Column)
		if err != nil {
			return fmt.Errorf("outlier bound: %w", err)
		}
		if !f.Type.Numeric() {
			return fmt.Errorf("outlier bound on %q: column is %s: %w", b.Column, f.Type, table.ErrTypeMismatch)
		}
	}
	for _, cr := range opts.Standardize {
		_, f, err := s.Lookup(cr.Column)
		if err != nil {
			return fmt.Errorf("standardize: %w", err)
		}
		if f.Type != table.String {
			return fmt.Errorf("standardize %q: column is %s: %w", cr.Column, f.Type, table.ErrTypeMismatch)
		}
		for i, r := range cr.Rules {
			if r.kind == rulePredicate && r.match == nil {
				return fmt.Errorf("standardize %q: rule %d has no predicate", cr.Column, i)
			}
		}
	}
	return nil
}
