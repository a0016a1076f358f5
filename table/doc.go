// Package table provides the in-memory record table that every stage of the
// medframe pipeline consumes and produces.
//
// A Table is an ordered set of rows sharing a typed Schema. Tables are treated
// as values: Filter, Distinct, Update, Derive and friends never modify the
// receiver, they return a new Table. Rows that a transformation leaves
// untouched are shared between the old and the new Table, so callers must not
// mutate a Row obtained from a Table.
//
// # Basic Usage
//
// Building a table by hand:
//
//	schema := table.MustSchema(
//	    table.Field{Name: "age", Type: table.Int},
//	    table.Field{Name: "finding", Type: table.String},
//	)
//	t, err := table.New(schema, []table.Row{
//	    {int64(45), "COVID-19"},
//	    {nil, "Pneumonia"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Filtering and counting in a single pass:
//
//	adults, removed := t.Filter(func(r table.Row) bool {
//	    age, ok := r[0].(int64)
//	    return ok && age >= 18
//	})
//
// # Values
//
// Cell values are normalised on the way in to one Go type per column type:
//
//	String -> string
//	Int    -> int64
//	Float  -> float64
//	Bool   -> bool
//	Date   -> time.Time (UTC midnight)
//
// A nil cell is null. Convert performs the same normalisation for a single
// value and is what loaders and imputers use to coerce user supplied values.
package table
