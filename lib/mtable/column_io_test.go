package mtable

import (
	"reflect"
	"testing"

	"github.com/mergetable/mergetable/lib/column"
)

func TestRowBoundaries(t *testing.T) {
	cases := []struct {
		n, granularity int
		want           []int
	}{
		{0, 10, []int{0}},
		{5, 10, []int{5}},
		{10, 10, []int{10}},
		{25, 10, []int{10, 20, 25}},
	}
	for _, c := range cases {
		got := rowBoundaries(c.n, c.granularity)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("rowBoundaries(%d, %d) = %v, want %v", c.n, c.granularity, got, c.want)
		}
	}
}

func TestWriteReadScalarColumnRoundTrip(t *testing.T) {
	dir := t.TempDir()
	col := &column.Int64Column{Values: []int64{1, 2, 3, 4, 5, 6, 7}}
	boundaries := rowBoundaries(col.Len(), 3) // marks: [0,3) [3,6) [6,7)

	if err := writeColumnFiles(dir, "id", col, boundaries, 0, 3); err != nil {
		t.Fatalf("writeColumnFiles: %v", err)
	}

	got, err := readColumnRange(dir, "id", column.Type{Kind: column.KindInt64}, 0, len(boundaries), 0)
	if err != nil {
		t.Fatalf("readColumnRange: %v", err)
	}
	gotInt := got.(*column.Int64Column)
	if !reflect.DeepEqual(gotInt.Values, col.Values) {
		t.Fatalf("got %v, want %v", gotInt.Values, col.Values)
	}
}

func TestReadColumnRangePartialMarks(t *testing.T) {
	dir := t.TempDir()
	col := &column.Int64Column{Values: []int64{10, 20, 30, 40, 50, 60}}
	boundaries := rowBoundaries(col.Len(), 2) // marks: [0,2) [2,4) [4,6)

	if err := writeColumnFiles(dir, "v", col, boundaries, 0, 3); err != nil {
		t.Fatalf("writeColumnFiles: %v", err)
	}

	got, err := readColumnRange(dir, "v", column.Type{Kind: column.KindInt64}, 1, 2, 0)
	if err != nil {
		t.Fatalf("readColumnRange: %v", err)
	}
	gotInt := got.(*column.Int64Column)
	if !reflect.DeepEqual(gotInt.Values, []int64{30, 40}) {
		t.Fatalf("got %v, want [30 40]", gotInt.Values)
	}
}

func TestWriteReadArrayColumnRoundTrip(t *testing.T) {
	dir := t.TempDir()
	arr := column.NewColumn(column.Type{Kind: column.KindArray, Nested: &column.Type{Kind: column.KindInt64}}).(*column.Array)
	arr.AppendElements(&column.Int64Column{Values: []int64{1, 2, 3}})
	arr.AppendElements(&column.Int64Column{Values: []int64{}})
	arr.AppendElements(&column.Int64Column{Values: []int64{4}})

	boundaries := rowBoundaries(arr.Len(), 2) // marks: [0,2) [2,3)
	typ := column.Type{Kind: column.KindArray, Nested: &column.Type{Kind: column.KindInt64}}
	if err := writeColumnFiles(dir, "tags", arr, boundaries, 0, 3); err != nil {
		t.Fatalf("writeColumnFiles: %v", err)
	}

	got, err := readColumnRange(dir, "tags", typ, 0, len(boundaries), 0)
	if err != nil {
		t.Fatalf("readColumnRange: %v", err)
	}
	gotArr := got.(*column.Array)
	if gotArr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", gotArr.Len())
	}
	nested := gotArr.Nested().(*column.Int64Column)
	if !reflect.DeepEqual(nested.Values, []int64{1, 2, 3, 4}) {
		t.Fatalf("nested values = %v", nested.Values)
	}
}
