// Package output writes query results and cleaned tables in the formats the
// command line offers.
//
// # Supported Formats
//
//   - JSON Lines: one JSON object per row, keys in schema order
//   - CSV: comma-separated values with a header row
//   - Table: aligned text for terminals
//
// # Basic Usage
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
//
// # Type Handling
//
// Dates render as YYYY-MM-DD in every format. Nulls are empty CSV fields,
// JSON null, and NULL in text tables. String cells starting with a
// spreadsheet formula character are quoted in CSV output.
package output
