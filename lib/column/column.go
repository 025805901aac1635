// Package column provides the polymorphic type/column abstraction a
// columnar engine needs: a tagged variant of concrete types with
// dispatch at the boundary, not deep class hierarchies.
//
// lib/mtable mostly calls the Column interface; it asserts concrete
// types only where a column's role fixes its type (the date column,
// the sign column, array columns). Kind lets callers (primary-key
// tuple comparison, schema validation) dispatch on a column's type
// without a type assertion.
package column

import (
	"fmt"
	"sort"

	"github.com/mergetable/mergetable/lib/encoding"
)

// Kind identifies the concrete representation of a Column.
type Kind byte

const (
	KindInt64 Kind = iota
	KindFloat64
	KindString
	KindDate
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "Int64"
	case KindFloat64:
		return "Float64"
	case KindString:
		return "String"
	case KindDate:
		return "Date"
	case KindArray:
		return "Array"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type fully describes a column's shape: its Kind, and for KindArray
// the type of the elements.
type Type struct {
	Kind   Kind
	Nested *Type // non-nil only when Kind == KindArray
}

// Column is the capability set every concrete column type implements:
// createColumn / getDefault / serializeBinary / deserializeBinary /
// serializeOffsets / deserializeOffsets, modeled here as one Go
// interface plus the ArrayColumn extension for the offset streams.
type Column interface {
	// Type returns the column's declared type.
	Type() Type

	// Len returns the number of rows currently held in memory.
	Len() int

	// AppendDefault appends n rows holding the type's default value.
	// Absent columns on an older part are read back this way,
	// materialized as a full column of n rows.
	AppendDefault(n int)

	// AppendRowFrom appends row i of src (which must have the same
	// Type) to the end of this column.
	AppendRowFrom(src Column, i int)

	// Less reports whether row i sorts before row j. Used both for
	// sorting a block by the primary key and for primary-index tuple
	// comparisons.
	Less(i, j int) bool

	// Swap exchanges rows i and j in place.
	Swap(i, j int)

	// SerializeRow appends the raw (uncompressed) encoding of row i
	// to dst and returns the extended slice.
	SerializeRow(dst []byte, i int) []byte

	// DeserializeRow decodes one row from the front of src, appends
	// it to the column, and returns the remaining tail of src.
	DeserializeRow(src []byte) ([]byte, error)

	// Clone returns a new, empty column of the same Type.
	Clone() Column
}

// ArrayColumn is implemented by columns of KindArray. Its nested
// values are stored flattened across all rows; the per-row element
// counts are read back via a "sizeK" stream: sizes are written first,
// then values, so the number of values to read from the nested column
// equals the last cumulative size in the requested range.
type ArrayColumn interface {
	Column

	// Nested returns the flattened column holding every element of
	// every row, in row order.
	Nested() Column

	// CumulativeSize returns the total element count across rows
	// [0, i], i.e. the offset one past the end of row i's elements.
	CumulativeSize(i int) uint64
}

// NewColumn constructs an empty column for the given type.
func NewColumn(t Type) Column {
	switch t.Kind {
	case KindInt64:
		return &Int64Column{}
	case KindFloat64:
		return &Float64Column{}
	case KindString:
		return &StringColumn{}
	case KindDate:
		return &DateColumn{}
	case KindArray:
		if t.Nested == nil {
			panic("column: array type requires Nested")
		}
		return &Array{nested: NewColumn(*t.Nested), nestedType: *t.Nested}
	default:
		panic(fmt.Sprintf("column: unsupported kind %v", t.Kind))
	}
}

// ---- Int64Column ----

// Int64Column stores 64-bit signed integers.
type Int64Column struct {
	Values []int64
}

func (c *Int64Column) Type() Type   { return Type{Kind: KindInt64} }
func (c *Int64Column) Len() int     { return len(c.Values) }
func (c *Int64Column) AppendDefault(n int) {
	for i := 0; i < n; i++ {
		c.Values = append(c.Values, 0)
	}
}
func (c *Int64Column) AppendRowFrom(src Column, i int) {
	s := src.(*Int64Column)
	c.Values = append(c.Values, s.Values[i])
}
func (c *Int64Column) Less(i, j int) bool { return c.Values[i] < c.Values[j] }
func (c *Int64Column) Swap(i, j int)      { c.Values[i], c.Values[j] = c.Values[j], c.Values[i] }
func (c *Int64Column) SerializeRow(dst []byte, i int) []byte {
	return encoding.MarshalInt64(dst, c.Values[i])
}
func (c *Int64Column) DeserializeRow(src []byte) ([]byte, error) {
	if len(src) < 8 {
		return src, fmt.Errorf("column: short Int64 row, got %d bytes", len(src))
	}
	c.Values = append(c.Values, encoding.UnmarshalInt64(src))
	return src[8:], nil
}
func (c *Int64Column) Clone() Column { return &Int64Column{} }

// ---- Float64Column ----

// Float64Column stores IEEE-754 double-precision floats.
type Float64Column struct {
	Values []float64
}

func (c *Float64Column) Type() Type { return Type{Kind: KindFloat64} }
func (c *Float64Column) Len() int   { return len(c.Values) }
func (c *Float64Column) AppendDefault(n int) {
	for i := 0; i < n; i++ {
		c.Values = append(c.Values, 0)
	}
}
func (c *Float64Column) AppendRowFrom(src Column, i int) {
	s := src.(*Float64Column)
	c.Values = append(c.Values, s.Values[i])
}
func (c *Float64Column) Less(i, j int) bool { return c.Values[i] < c.Values[j] }
func (c *Float64Column) Swap(i, j int)      { c.Values[i], c.Values[j] = c.Values[j], c.Values[i] }
func (c *Float64Column) SerializeRow(dst []byte, i int) []byte {
	return encoding.MarshalFloat64(dst, c.Values[i])
}
func (c *Float64Column) DeserializeRow(src []byte) ([]byte, error) {
	if len(src) < 8 {
		return src, fmt.Errorf("column: short Float64 row, got %d bytes", len(src))
	}
	c.Values = append(c.Values, encoding.UnmarshalFloat64(src))
	return src[8:], nil
}
func (c *Float64Column) Clone() Column { return &Float64Column{} }

// ---- StringColumn ----

// StringColumn stores variable-length UTF-8 strings.
type StringColumn struct {
	Values []string
}

func (c *StringColumn) Type() Type { return Type{Kind: KindString} }
func (c *StringColumn) Len() int   { return len(c.Values) }
func (c *StringColumn) AppendDefault(n int) {
	for i := 0; i < n; i++ {
		c.Values = append(c.Values, "")
	}
}
func (c *StringColumn) AppendRowFrom(src Column, i int) {
	s := src.(*StringColumn)
	c.Values = append(c.Values, s.Values[i])
}
func (c *StringColumn) Less(i, j int) bool { return c.Values[i] < c.Values[j] }
func (c *StringColumn) Swap(i, j int)      { c.Values[i], c.Values[j] = c.Values[j], c.Values[i] }
func (c *StringColumn) SerializeRow(dst []byte, i int) []byte {
	return encoding.MarshalBytes(dst, []byte(c.Values[i]))
}
func (c *StringColumn) DeserializeRow(src []byte) ([]byte, error) {
	tail, b, err := encoding.UnmarshalBytes(src)
	if err != nil {
		return src, fmt.Errorf("column: cannot unmarshal String row: %w", err)
	}
	c.Values = append(c.Values, string(b))
	return tail, nil
}
func (c *StringColumn) Clone() Column { return &StringColumn{} }

// ---- DateColumn ----

// DateColumn stores day numbers since 1970-01-01, as int32.
type DateColumn struct {
	Values []int32
}

func (c *DateColumn) Type() Type { return Type{Kind: KindDate} }
func (c *DateColumn) Len() int   { return len(c.Values) }
func (c *DateColumn) AppendDefault(n int) {
	for i := 0; i < n; i++ {
		c.Values = append(c.Values, 0)
	}
}
func (c *DateColumn) AppendRowFrom(src Column, i int) {
	s := src.(*DateColumn)
	c.Values = append(c.Values, s.Values[i])
}
func (c *DateColumn) Less(i, j int) bool { return c.Values[i] < c.Values[j] }
func (c *DateColumn) Swap(i, j int)      { c.Values[i], c.Values[j] = c.Values[j], c.Values[i] }
func (c *DateColumn) SerializeRow(dst []byte, i int) []byte {
	return encoding.MarshalInt32(dst, c.Values[i])
}
func (c *DateColumn) DeserializeRow(src []byte) ([]byte, error) {
	if len(src) < 4 {
		return src, fmt.Errorf("column: short Date row, got %d bytes", len(src))
	}
	c.Values = append(c.Values, encoding.UnmarshalInt32(src))
	return src[4:], nil
}
func (c *DateColumn) Clone() Column { return &DateColumn{} }

// ---- Array ----

// Array stores a variable number of elements per row. Elements from
// every row are concatenated into nested, in row order; offsets[i]
// holds the cumulative element count through row i.
type Array struct {
	nested     Column
	nestedType Type
	offsets    []uint64 // len(offsets) == Len(); offsets[i] is cumulative count through row i
}

func (a *Array) Type() Type { return Type{Kind: KindArray, Nested: &a.nestedType} }
func (a *Array) Len() int   { return len(a.offsets) }
func (a *Array) Nested() Column { return a.nested }
func (a *Array) CumulativeSize(i int) uint64 { return a.offsets[i] }

// AppendElements appends one row consisting of the given elements.
func (a *Array) AppendElements(elems Column) {
	for i := 0; i < elems.Len(); i++ {
		a.nested.AppendRowFrom(elems, i)
	}
	prev := uint64(0)
	if len(a.offsets) > 0 {
		prev = a.offsets[len(a.offsets)-1]
	}
	a.offsets = append(a.offsets, prev+uint64(elems.Len()))
}

func (a *Array) AppendDefault(n int) {
	prev := uint64(0)
	if len(a.offsets) > 0 {
		prev = a.offsets[len(a.offsets)-1]
	}
	for i := 0; i < n; i++ {
		a.offsets = append(a.offsets, prev)
	}
}

func (a *Array) AppendRowFrom(src Column, i int) {
	s := src.(*Array)
	lo := uint64(0)
	if i > 0 {
		lo = s.offsets[i-1]
	}
	hi := s.offsets[i]
	for k := lo; k < hi; k++ {
		a.nested.AppendRowFrom(s.nested, int(k))
	}
	prev := uint64(0)
	if len(a.offsets) > 0 {
		prev = a.offsets[len(a.offsets)-1]
	}
	a.offsets = append(a.offsets, prev+(hi-lo))
}

// Less compares arrays lexicographically by element, then by length.
func (a *Array) Less(i, j int) bool {
	li, lj := a.rowBounds(i), a.rowBounds(j)
	n := li[1] - li[0]
	if m := lj[1] - lj[0]; m < n {
		n = m
	}
	for k := uint64(0); k < n; k++ {
		if a.nested.Less(int(li[0]+k), int(lj[0]+k)) {
			return true
		}
		if a.nested.Less(int(lj[0]+k), int(li[0]+k)) {
			return false
		}
	}
	return (li[1] - li[0]) < (lj[1] - lj[0])
}

func (a *Array) rowBounds(i int) [2]uint64 {
	lo := uint64(0)
	if i > 0 {
		lo = a.offsets[i-1]
	}
	return [2]uint64{lo, a.offsets[i]}
}

func (a *Array) Swap(i, j int) {
	// Arrays are never reordered row-by-row in place: sorting code
	// swaps via a permutation pass instead (see SortByPermutation),
	// since element ranges have unequal length.
	panic("column: Array.Swap is unsupported; use SortByPermutation")
}

func (a *Array) SerializeRow(dst []byte, i int) []byte {
	panic("column: Array has no single-row encoding; use its size stream and Nested()")
}

func (a *Array) DeserializeRow(src []byte) ([]byte, error) {
	panic("column: Array has no single-row encoding; use its size stream and Nested()")
}

func (a *Array) Clone() Column {
	return &Array{nested: a.nested.Clone(), nestedType: a.nestedType}
}

// SortByPermutation reorders every column in cols according to perm,
// where perm[i] is the source row that should land at destination row
// i. It builds fresh columns via Clone+AppendRowFrom rather than
// swapping in place, since Array columns cannot be swapped in place.
func SortByPermutation(cols []Column, perm []int) []Column {
	out := make([]Column, len(cols))
	for ci, c := range cols {
		nc := c.Clone()
		for _, srcRow := range perm {
			nc.AppendRowFrom(c, srcRow)
		}
		out[ci] = nc
	}
	return out
}

// SortPermutation returns the permutation that sorts rows [0, n) by
// the given key columns (in order), i.e. a stable sort comparable to
// sort.Stable, lexicographic over keyCols.
func SortPermutation(n int, keyCols []Column) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		i, j := perm[a], perm[b]
		for _, c := range keyCols {
			if c.Less(i, j) {
				return true
			}
			if c.Less(j, i) {
				return false
			}
		}
		return false
	})
	return perm
}
