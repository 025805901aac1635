package mtable

import (
	"errors"
	"testing"

	"github.com/mergetable/mergetable/lib/column"
)

func writeOnePart(t *testing.T, schema *Schema, granularity int) (*Part, Config) {
	t.Helper()
	w, cfg := newTestWriter(t, schema, granularity)
	block := blockOf(schema,
		[]int64{1, 2, 3, 4, 5},
		[]int32{
			ymdToDayNumber(2024, 3, 1), ymdToDayNumber(2024, 3, 2), ymdToDayNumber(2024, 3, 3),
			ymdToDayNumber(2024, 3, 4), ymdToDayNumber(2024, 3, 5),
		},
		[]float64{1, 2, 3, 4, 5})
	parts, err := w.Write(block)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return parts[0], cfg
}

func TestPartReaderReadAll(t *testing.T) {
	schema := testSchema()
	part, cfg := writeOnePart(t, schema, 2)

	r := OpenPartReader(part, schema, cfg)
	block, err := r.ReadAll([]string{"id", "value"})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if block.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", block.Len())
	}
}

func TestPartReaderReadMarkRangeSubset(t *testing.T) {
	schema := testSchema()
	part, cfg := writeOnePart(t, schema, 2) // marks: [0,2) [2,4) [4,5)

	r := OpenPartReader(part, schema, cfg)
	block, err := r.ReadMarkRange([]string{"id"}, 1, 2)
	if err != nil {
		t.Fatalf("ReadMarkRange: %v", err)
	}
	ids := block.Columns[0].(*column.Int64Column).Values
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 4 {
		t.Fatalf("got %v, want [3 4]", ids)
	}
}

func TestPartReaderReadMarkRangeEmpty(t *testing.T) {
	schema := testSchema()
	part, cfg := writeOnePart(t, schema, 2)
	r := OpenPartReader(part, schema, cfg)
	block, err := r.ReadMarkRange([]string{"id"}, 1, 1)
	if err != nil {
		t.Fatalf("ReadMarkRange: %v", err)
	}
	if block.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", block.Len())
	}
}

func TestPartReaderReadMarkRangeOutOfBounds(t *testing.T) {
	schema := testSchema()
	part, cfg := writeOnePart(t, schema, 2)
	r := OpenPartReader(part, schema, cfg)
	if _, err := r.ReadMarkRange([]string{"id"}, 0, 100); err == nil {
		t.Fatal("expected error for out-of-bounds mark range")
	}
}

func TestPartReaderMissingColumnReadsAsDefault(t *testing.T) {
	schema := testSchema()
	part, cfg := writeOnePart(t, schema, 2)

	extended := &Schema{
		Columns:    append(append([]ColumnDef{}, schema.Columns...), ColumnDef{Name: "tag", Type: column.Type{Kind: column.KindString}}),
		DateColumn: schema.DateColumn,
		PrimaryKey: schema.PrimaryKey,
		Calendar:   schema.Calendar,
	}
	r := OpenPartReader(part, extended, cfg)
	block, err := r.ReadAll([]string{"id", "tag"})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	tags := block.Columns[1].(*column.StringColumn).Values
	for _, v := range tags {
		if v != "" {
			t.Fatalf("expected default empty string for missing column, got %q", v)
		}
	}
}

func TestPartReaderAllColumnsMissing(t *testing.T) {
	schema := testSchema()
	part, cfg := writeOnePart(t, schema, 2)

	extended := &Schema{
		Columns:    []ColumnDef{{Name: "brandnew", Type: column.Type{Kind: column.KindInt64}}},
		DateColumn: schema.DateColumn,
		PrimaryKey: schema.PrimaryKey,
		Calendar:   schema.Calendar,
	}
	r := OpenPartReader(part, extended, cfg)
	if _, err := r.ReadAll([]string{"brandnew"}); !errors.Is(err, ErrAllColumnsMissing) {
		t.Fatalf("expected ErrAllColumnsMissing, got %v", err)
	}
}
