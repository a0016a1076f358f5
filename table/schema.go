package table

import (
	"fmt"
	"strings"
)

// Field is a named, typed column. Every column is nullable.
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Schema is an ordered list of uniquely named fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields. Names must be non-empty and unique.
func NewSchema(fields ...Field) (Schema, error) {
	s := Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return Schema{}, fmt.Errorf("schema: column %d has an empty name", len(s.fields))
		}
		if _, dup := s.index[f.Name]; dup {
			return Schema{}, fmt.Errorf("schema: duplicate column %q", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on invalid input. It is meant for
// static schemas and tests.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.fields) }

// Field returns the i-th field.
func (s Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the fields in column order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named column.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Lookup returns the position and field of the named column, or an error
// wrapping ErrColumnNotFound.
func (s Schema) Lookup(name string) (int, Field, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, Field{}, fmt.Errorf("%q: %w", name, ErrColumnNotFound)
	}
	return i, s.fields[i], nil
}

// Equal reports whether both schemas have the same fields in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// With returns a new schema with f appended.
func (s Schema) With(f Field) (Schema, error) {
	return NewSchema(append(s.Fields(), f)...)
}

// String renders the schema as "name:type, ...".
func (s Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return strings.Join(parts, ", ")
}
