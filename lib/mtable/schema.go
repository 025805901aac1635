package mtable

import (
	"github.com/mergetable/mergetable/lib/calendar"
	"github.com/mergetable/mergetable/lib/column"
)

// ColumnDef names and types one column of a Schema.
type ColumnDef struct {
	Name string
	Type column.Type
}

// Schema describes a table: its columns, the column that partitions
// parts by month, and the primary-key column order.
//
// Schema migration is additive-only; Engine.AddColumn appends a
// column in place rather than versioning the schema.
type Schema struct {
	Columns    []ColumnDef
	DateColumn string
	PrimaryKey []string // column names, in sort-key order

	// SignColumn, if non-empty, names the column a collapsing merge
	// uses to cancel +1/-1 row pairs sharing a primary key.
	SignColumn string

	Calendar calendar.Calendar
}

// ColumnIndex returns the position of name in s.Columns, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnDefByName returns the ColumnDef named name, if present.
func (s *Schema) ColumnDefByName(name string) (ColumnDef, bool) {
	idx := s.ColumnIndex(name)
	if idx < 0 {
		return ColumnDef{}, false
	}
	return s.Columns[idx], true
}

// AddColumn appends def to the schema. Existing parts are untouched;
// they simply lack def's files on disk, which PartReader treats as
// legal.
func (s *Schema) AddColumn(def ColumnDef) {
	s.Columns = append(s.Columns, def)
}

// primaryKeyIndexes resolves s.PrimaryKey to column indexes.
func (s *Schema) primaryKeyIndexes() ([]int, error) {
	idxs := make([]int, len(s.PrimaryKey))
	for i, name := range s.PrimaryKey {
		idx := s.ColumnIndex(name)
		if idx < 0 {
			return nil, newErr(KindLogical, "primary key column %q not found in schema", name)
		}
		idxs[i] = idx
	}
	return idxs, nil
}

func (s *Schema) dateColumnIndex() (int, error) {
	idx := s.ColumnIndex(s.DateColumn)
	if idx < 0 {
		return 0, newErr(KindLogical, "date column %q not found in schema", s.DateColumn)
	}
	return idx, nil
}
