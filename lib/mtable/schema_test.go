package mtable

import (
	"github.com/mergetable/mergetable/lib/calendar"
	"github.com/mergetable/mergetable/lib/column"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Columns: []ColumnDef{
			{Name: "id", Type: column.Type{Kind: column.KindInt64}},
			{Name: "ts", Type: column.Type{Kind: column.KindDate}},
			{Name: "value", Type: column.Type{Kind: column.KindFloat64}},
		},
		DateColumn: "ts",
		PrimaryKey: []string{"id", "ts"},
		Calendar:   calendar.Gregorian{},
	}
}

func TestSchemaColumnIndex(t *testing.T) {
	s := testSchema()
	if idx := s.ColumnIndex("value"); idx != 2 {
		t.Fatalf("ColumnIndex(value) = %d, want 2", idx)
	}
	if idx := s.ColumnIndex("missing"); idx != -1 {
		t.Fatalf("ColumnIndex(missing) = %d, want -1", idx)
	}
}

func TestSchemaAddColumnIsAppendOnly(t *testing.T) {
	s := testSchema()
	before := len(s.Columns)
	s.AddColumn(ColumnDef{Name: "extra", Type: column.Type{Kind: column.KindString}})
	if len(s.Columns) != before+1 {
		t.Fatalf("AddColumn did not append; len = %d", len(s.Columns))
	}
	def, ok := s.ColumnDefByName("extra")
	if !ok || def.Type.Kind != column.KindString {
		t.Fatal("AddColumn did not register the new column correctly")
	}
}

func TestSchemaPrimaryKeyIndexes(t *testing.T) {
	s := testSchema()
	idxs, err := s.primaryKeyIndexes()
	if err != nil {
		t.Fatalf("primaryKeyIndexes: %v", err)
	}
	if len(idxs) != 2 || idxs[0] != 0 || idxs[1] != 1 {
		t.Fatalf("got %v, want [0 1]", idxs)
	}
}

func TestSchemaPrimaryKeyIndexesMissingColumn(t *testing.T) {
	s := testSchema()
	s.PrimaryKey = []string{"nonexistent"}
	if _, err := s.primaryKeyIndexes(); err == nil {
		t.Fatal("expected error for missing primary key column")
	}
}

func TestSchemaDateColumnIndex(t *testing.T) {
	s := testSchema()
	idx, err := s.dateColumnIndex()
	if err != nil {
		t.Fatalf("dateColumnIndex: %v", err)
	}
	if idx != 1 {
		t.Fatalf("got %d, want 1", idx)
	}
}
