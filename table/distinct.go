package table

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/zeebo/xxh3"
)

// Distinct drops rows that duplicate an earlier row across all columns and
// returns the number of rows dropped. The first occurrence of every row is
// kept and row order is preserved.
func (t *Table) Distinct() (*Table, int) {
	seen := newRowSet(len(t.rows))
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if seen.add(r) {
			out = append(out, r)
		}
	}
	return wrap(t.schema, out), len(t.rows) - len(out)
}

// DistinctCount returns the number of distinct rows.
func (t *Table) DistinctCount() int {
	seen := newRowSet(len(t.rows))
	n := 0
	for _, r := range t.rows {
		if seen.add(r) {
			n++
		}
	}
	return n
}

// rowSet buckets rows by xxh3 hash and resolves collisions by comparing
// values.
type rowSet struct {
	buckets map[uint64][]Row
	buf     []byte
}

func newRowSet(capacity int) *rowSet {
	return &rowSet{buckets: make(map[uint64][]Row, capacity)}
}

// add reports whether r was not yet in the set.
func (s *rowSet) add(r Row) bool {
	s.buf = appendRow(s.buf[:0], r)
	h := xxh3.Hash(s.buf)
	for _, other := range s.buckets[h] {
		if rowsEqual(r, other) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], r)
	return true
}

const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagString
	tagBool
	tagDate
	tagOther
)

func appendRow(b []byte, r Row) []byte {
	for _, v := range r {
		b = appendValue(b, v)
	}
	return b
}

func appendValue(b []byte, v any) []byte {
	switch val := v.(type) {
	case nil:
		return append(b, tagNull)
	case int64:
		b = append(b, tagInt)
		return binary.LittleEndian.AppendUint64(b, uint64(val))
	case float64:
		b = append(b, tagFloat)
		return binary.LittleEndian.AppendUint64(b, canonicalBits(val))
	case string:
		b = append(b, tagString)
		b = binary.AppendUvarint(b, uint64(len(val)))
		return append(b, val...)
	case bool:
		b = append(b, tagBool)
		if val {
			return append(b, 1)
		}
		return append(b, 0)
	case time.Time:
		b = append(b, tagDate)
		return binary.LittleEndian.AppendUint64(b, uint64(val.UnixNano()))
	default:
		s := toString(val)
		b = append(b, tagOther)
		b = binary.AppendUvarint(b, uint64(len(s)))
		return append(b, s...)
	}
}

// canonicalBits maps -0 to 0 and every NaN to one payload so equal floats
// hash equally.
func canonicalBits(f float64) uint64 {
	switch {
	case f == 0:
		return 0
	case math.IsNaN(f):
		return math.Float64bits(math.NaN())
	default:
		return math.Float64bits(f)
	}
}

func rowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// valuesEqual treats null as equal to null and NaN as equal to NaN, matching
// grouping semantics rather than SQL comparison.
func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		return av == bv || (math.IsNaN(av) && math.IsNaN(bv))
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case int64, string, bool:
		return a == b
	default:
		return b != nil && toString(a) == toString(b)
	}
}
