package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is the semantic type of a column.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	Date
)

// DateLayout is the canonical text form of a Date value.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when a string is converted to a Date.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// String returns the lower-case name of the type.
func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Numeric reports whether values of the type are numbers.
func (t Type) Numeric() bool {
	return t == Int || t == Float
}

// ParseType maps a type name, as found in configuration files, to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text", "varchar":
		return String, nil
	case "int", "integer", "long", "bigint", "int64", "int32":
		return Int, nil
	case "float", "double", "real", "number", "float64", "float32":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "date":
		return Date, nil
	default:
		return String, fmt.Errorf("unknown column type %q", s)
	}
}

// Convert normalises v to the Go representation of t.
//
// nil converts to nil for every type. Strings are parsed, numbers are widened,
// and floats converted to Int are truncated toward zero. Values that cannot be
// represented return an error wrapping ErrTypeMismatch.
func Convert(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case String:
		return toString(v), nil
	case Int:
		return toInt(v)
	case Float:
		return toFloat(v)
	case Bool:
		return toBool(v)
	case Date:
		return toDate(v)
	default:
		return nil, fmt.Errorf("convert %T to %s: %w", v, t, ErrTypeMismatch)
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(DateLayout)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

func toInt(v any) (any, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("convert %d to int: overflow: %w", val, ErrTypeMismatch)
		}
		return int64(val), nil
	case float32:
		return floatToInt(float64(val))
	case float64:
		return floatToInt(val)
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		return nil, fmt.Errorf("convert %q to int: %w", val, ErrTypeMismatch)
	default:
		return nil, fmt.Errorf("convert %T to int: %w", v, ErrTypeMismatch)
	}
}

func floatToInt(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("convert %v to int: %w", f, ErrTypeMismatch)
	}
	return int64(math.Trunc(f)), nil
}

func toFloat(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		s := strings.TrimSpace(val)
		if !strings.ContainsAny(s, "0123456789") {
			return nil, fmt.Errorf("convert %q to float: %w", val, ErrTypeMismatch)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("convert %q to float: %w", val, ErrTypeMismatch)
	default:
		return nil, fmt.Errorf("convert %T to float: %w", v, ErrTypeMismatch)
	}
}

func toBool(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, fmt.Errorf("convert %v to bool: %w", v, ErrTypeMismatch)
}

func toDate(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return truncateDay(val), nil
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return truncateDay(ts), nil
			}
		}
		return nil, fmt.Errorf("convert %q to date: %w", val, ErrTypeMismatch)
	default:
		return nil, fmt.Errorf("convert %T to date: %w", v, ErrTypeMismatch)
	}
}

func truncateDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatValue renders a cell for human consumption. Nulls render as the
// empty string and dates use DateLayout.
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	return toString(v)
}

// AsFloat returns a numeric cell as float64. It reports false for nulls and
// non-numeric values.
func AsFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case float32:
		return float64(val), true
	default:
		return 0, false
	}
}
