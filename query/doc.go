// Package query exposes tables to SQL through a session-scoped catalog.
//
// A Session owns a private in-memory SQLite database (modernc.org/sqlite,
// accessed through github.com/jmoiron/sqlx). Tables registered with
// Register become SQL tables of that database; Execute and Stream run
// arbitrary SQLite SQL against them. Sessions never share tables, and
// closing a session discards its catalog.
//
// # Basic Usage
//
//	s, err := query.NewSession(ctx, query.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Register(ctx, "patients", t, true); err != nil {
//	    log.Fatal(err)
//	}
//	counts, err := s.Execute(ctx, "SELECT finding, COUNT(*) AS n FROM patients GROUP BY finding", 0)
//
// # Standard Analytics
//
// RunStandard runs the five canned aggregations (diagnosis_summary,
// gender_diagnosis, top_ages_per_diagnosis, temporal_trends,
// view_diagnosis) against a table with finding, age, sex, date and view
// columns:
//
//	results, err := s.RunStandard(ctx, "patients")
//	summary := results[query.DiagnosisSummary]
//
// # Type Mapping
//
// Column types are declared as TEXT, INTEGER, REAL, BOOLEAN and DATE. Dates
// are stored as ISO 8601 text so that SQLite date functions such as
// strftime apply. Result columns that keep a declared type map back to the
// same column type; computed columns take the type of their values.
package query
