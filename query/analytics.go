package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vegasq/medframe/internal/metrics"
	"github.com/vegasq/medframe/table"
)

// ErrUnknownQuery is returned by RunNamed for names outside StandardNames.
var ErrUnknownQuery = errors.New("unknown standard query")

// Names of the standard analytics queries, in execution order.
const (
	DiagnosisSummary    = "diagnosis_summary"
	GenderDiagnosis     = "gender_diagnosis"
	TopAgesPerDiagnosis = "top_ages_per_diagnosis"
	TemporalTrends      = "temporal_trends"
	ViewDiagnosis       = "view_diagnosis"
)

// StandardNames lists the standard analytics in execution order.
var StandardNames = []string{
	DiagnosisSummary,
	GenderDiagnosis,
	TopAgesPerDiagnosis,
	TemporalTrends,
	ViewDiagnosis,
}

// Named is a query with a stable name.
type Named struct {
	Name string
	SQL  string
}

// The templates expect a table with finding, age, sex, date and view
// columns. %[1]s is the quoted table name.
var templates = map[string]string{
	DiagnosisSummary: `
SELECT finding,
       COUNT(*) AS patient_count,
       AVG(age) AS avg_age,
       MIN(age) AS min_age,
       MAX(age) AS max_age
FROM %[1]s
GROUP BY finding
ORDER BY patient_count DESC, finding`,

	GenderDiagnosis: `
SELECT sex,
       finding,
       COUNT(*) AS count
FROM %[1]s
GROUP BY sex, finding
ORDER BY sex, finding`,

	TopAgesPerDiagnosis: `
SELECT finding, age, patient_count
FROM (
    SELECT finding,
           age,
           COUNT(*) AS patient_count,
           ROW_NUMBER() OVER (PARTITION BY finding ORDER BY COUNT(*) DESC, age) AS rn
    FROM %[1]s
    GROUP BY finding, age
)
WHERE rn <= 5
ORDER BY finding, patient_count DESC, age`,

	TemporalTrends: `
SELECT finding,
       CAST(strftime('%%Y', date) AS INTEGER) AS year,
       CAST(strftime('%%m', date) AS INTEGER) AS month,
       COUNT(*) AS count
FROM %[1]s
WHERE date IS NOT NULL
GROUP BY finding, year, month
ORDER BY finding, year, month`,

	ViewDiagnosis: `
SELECT "view",
       finding,
       COUNT(*) AS count
FROM %[1]s
GROUP BY "view", finding
ORDER BY "view", finding`,
}

// StandardQueries renders the standard analytics for tableName, in
// execution order.
func StandardQueries(tableName string) ([]Named, error) {
	if !ValidName(tableName) {
		return nil, fmt.Errorf("%q: %w", tableName, ErrInvalidName)
	}
	out := make([]Named, len(StandardNames))
	for i, name := range StandardNames {
		out[i] = Named{Name: name, SQL: fmt.Sprintf(templates[name], quoteIdent(tableName))}
	}
	return out, nil
}

// RunNamed runs one standard query against tableName.
func (s *Session) RunNamed(ctx context.Context, tableName, name string) (*table.Table, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownQuery)
	}
	if !ValidName(tableName) {
		return nil, fmt.Errorf("%q: %w", tableName, ErrInvalidName)
	}

	start := time.Now()
	t, err := s.Execute(ctx, fmt.Sprintf(tmpl, quoteIdent(tableName)), 0)
	metrics.RecordStep("sql_"+name, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s.logger.Info("ran standard query", zap.String("query", name), zap.Int("rows", t.Len()))
	return t, nil
}

// RunStandard runs every standard query against tableName and returns the
// results keyed by query name. The first failing query aborts the run.
func (s *Session) RunStandard(ctx context.Context, tableName string) (map[string]*table.Table, error) {
	results := make(map[string]*table.Table, len(StandardNames))
	for _, name := range StandardNames {
		t, err := s.RunNamed(ctx, tableName, name)
		if err != nil {
			return nil, err
		}
		results[name] = t
	}
	return results, nil
}
