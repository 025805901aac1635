package mtable

import (
	"testing"

	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/predicate"
)

func TestRangePrunerSelectParts(t *testing.T) {
	rp := NewRangePruner(testSchema(), DefaultConfig(""))
	parts := []*Part{
		{leftDate: 1, rightDate: 10, name: "a"},
		{leftDate: 20, rightDate: 30, name: "b"},
		{leftDate: 5, rightDate: 25, name: "c"},
	}
	selected := rp.SelectParts(parts, 15, 22)
	names := namesOf(selected)
	if len(names) != 2 || names[0] != "b" || names[1] != "c" {
		t.Fatalf("got %v, want [b c] (order preserved from input)", names)
	}
}

func TestRangePrunerPruneMarksAlwaysTrueReturnsFullRange(t *testing.T) {
	rp := NewRangePruner(testSchema(), DefaultConfig(""))
	p := &Part{size: 7}
	ranges, err := rp.PruneMarks(p, predicate.Always{})
	if err != nil {
		t.Fatalf("PruneMarks: %v", err)
	}
	if len(ranges) != 1 || ranges[0] != (markRange{Start: 0, End: 7}) {
		t.Fatalf("got %v, want [{0 7}]", ranges)
	}
}

func TestRangePrunerPruneMarksWithKeyRange(t *testing.T) {
	schema := testSchema()
	w, cfg := newTestWriter(t, schema, 2)

	block := blockOf(schema,
		[]int64{1, 2, 3, 4, 5, 6},
		[]int32{
			ymdToDayNumber(2024, 3, 1), ymdToDayNumber(2024, 3, 1), ymdToDayNumber(2024, 3, 1),
			ymdToDayNumber(2024, 3, 1), ymdToDayNumber(2024, 3, 1), ymdToDayNumber(2024, 3, 1),
		},
		[]float64{1, 2, 3, 4, 5, 6})
	parts, err := w.Write(block)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	part := parts[0] // marks: [0,2)={1,2} [2,4)={3,4} [4,6)={5,6}

	rp := NewRangePruner(schema, cfg)
	pred := predicate.Range{Lo: predicate.Value{Int64: 4, Valid: true}, Hi: predicate.Value{Int64: 5, Valid: true}}
	ranges, err := rp.PruneMarks(part, pred)
	if err != nil {
		t.Fatalf("PruneMarks: %v", err)
	}
	if len(ranges) == 0 {
		t.Fatal("expected at least one surviving mark range")
	}
	// Every surviving range must cover mark 1 or 2 (rows 3-4 and 5-6);
	// mark 0 (rows 1-2) must never appear since its tuple range [1,3) can't
	// reach key 4.
	for _, r := range ranges {
		if r.Start == 0 {
			t.Fatal("mark 0 should have been pruned: its key range cannot satisfy [4,5]")
		}
	}
}

func TestRangePrunerScanEndToEnd(t *testing.T) {
	schema := testSchema()
	w, cfg := newTestWriter(t, schema, 2)

	block := blockOf(schema,
		[]int64{1, 2, 3, 4},
		[]int32{
			ymdToDayNumber(2024, 3, 1), ymdToDayNumber(2024, 3, 1),
			ymdToDayNumber(2024, 4, 1), ymdToDayNumber(2024, 4, 1),
		},
		[]float64{1, 2, 3, 4})
	parts, err := w.Write(block)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	rp := NewRangePruner(schema, cfg)
	marDay := ymdToDayNumber(2024, 3, 1)
	out, err := rp.Scan(parts, []string{"id"}, marDay, marDay, predicate.Always{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (only march rows)", out.Len())
	}
	ids := out.Columns[0].(*column.Int64Column).Values
	if ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("got %v, want [1 2]", ids)
	}
}
