package reader

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// SchemaInfo describes one leaf column of a parquet file.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	TableType    string `json:"table_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// DescribeParquet returns metadata for every leaf column of the parquet file
// at path. Nested fields use dot notation ("scan.view"). TableType is the
// column type Load assigns to the top-level column the leaf belongs to.
func DescribeParquet(path string) ([]SchemaInfo, error) {
	r, err := NewParquetReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	var infos []SchemaInfo
	for _, f := range r.Schema().Fields() {
		top := columnType(f).String()
		infos = describeField(infos, f, "", false, top)
	}
	return infos, nil
}

// describeField appends the leaves under f, propagating repetition of any
// ancestor to its children.
func describeField(infos []SchemaInfo, f parquet.Field, prefix string, parentRepeated bool, top string) []SchemaInfo {
	name := f.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || f.Repeated()

	if children := f.Fields(); len(children) > 0 {
		for _, child := range children {
			infos = describeField(infos, child, name, repeated, top)
		}
		return infos
	}

	return append(infos, SchemaInfo{
		Name:         name,
		Type:         getUserFriendlyType(f),
		PhysicalType: physicalType(f),
		LogicalType:  logicalType(f),
		TableType:    top,
		Required:     f.Required(),
		Optional:     f.Optional(),
		Repeated:     repeated,
	})
}

var physicalNames = map[parquet.Kind]string{
	parquet.Boolean:           "BOOLEAN",
	parquet.Int32:             "INT32",
	parquet.Int64:             "INT64",
	parquet.Int96:             "INT96",
	parquet.Float:             "FLOAT",
	parquet.Double:            "DOUBLE",
	parquet.ByteArray:         "BYTE_ARRAY",
	parquet.FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
}

func physicalType(f parquet.Field) string {
	if f.Type() == nil || len(f.Fields()) > 0 {
		return "GROUP"
	}
	if name, ok := physicalNames[f.Type().Kind()]; ok {
		return name
	}
	return "UNKNOWN"
}

func logicalType(f parquet.Field) string {
	if f.Type() == nil || len(f.Fields()) > 0 {
		return ""
	}
	lt := f.Type().LogicalType()
	if lt == nil {
		return ""
	}
	return lt.String()
}

// getUserFriendlyType collapses physical and logical types into one name. The
// logical type wins where it is more specific than the physical one.
func getUserFriendlyType(f parquet.Field) string {
	if f.Type() == nil || len(f.Fields()) > 0 {
		return "GROUP"
	}

	switch lt := logicalType(f); {
	case lt == "STRING" || lt == "UTF8":
		return "STRING"
	case lt == "DATE", lt == "ENUM", lt == "UUID", lt == "JSON", lt == "BSON":
		return lt
	case strings.HasPrefix(lt, "TIMESTAMP"):
		return "TIMESTAMP"
	case strings.HasPrefix(lt, "TIME"):
		return "TIME"
	case strings.HasPrefix(lt, "DECIMAL"):
		return "DECIMAL"
	}

	switch f.Type().Kind() {
	case parquet.Float:
		return "FLOAT32"
	case parquet.Double:
		return "FLOAT64"
	default:
		return physicalType(f)
	}
}
