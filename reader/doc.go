// Package reader loads tabular files into a table.Table.
//
// Supported formats are delimited text (csv, tsv), Apache Parquet and JSON
// Lines. A path may be a glob pattern; matching files are read in lexical
// order and concatenated, so they must share a schema.
//
// # Basic Usage
//
// Loading a CSV file with type inference:
//
//	t, err := reader.Load("metadata.csv", reader.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(t.Schema())
//
// Loading every parquet partition of a directory:
//
//	t, err := reader.Load("scans/*.parquet", reader.Options{Format: reader.FormatParquet})
//
// Applying an explicit schema and dropping malformed lines:
//
//	schema := table.MustSchema(
//	    table.Field{Name: "age", Type: table.Int},
//	    table.Field{Name: "finding", Type: table.String},
//	)
//	t, err := reader.Load("metadata.csv", reader.Options{
//	    Schema: &schema,
//	    Mode:   reader.DropMalformed,
//	})
//
// # Type Inference
//
// Delimited columns are inferred from their non-null cells, trying Int, Float,
// Bool and Date (2006-01-02, 2006/01/02, 01/02/2006) in that order and falling
// back to String. JSON columns take their type from the JSON values.
//
// # Schema Introspection
//
// DescribeParquet lists the leaf columns of a parquet file together with
// their physical and logical types:
//
//	infos, err := reader.DescribeParquet("scans.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s\n", info.Name, info.Type)
//	}
//
// Parquet access goes through github.com/parquet-go/parquet-go.
package reader
