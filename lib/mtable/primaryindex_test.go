package mtable

import (
	"testing"

	"github.com/mergetable/mergetable/lib/column"
)

func TestBuildAndReadPrimaryIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	block := &Block{
		Schema: testSchema(),
		Columns: []column.Column{
			&column.Int64Column{Values: []int64{1, 2, 3, 4, 5}},
			&column.DateColumn{Values: []int32{100, 100, 101, 101, 102}},
			&column.Float64Column{Values: []float64{0, 0, 0, 0, 0}},
		},
	}
	boundaries := rowBoundaries(block.Len(), 2) // marks: [0,2) [2,4) [4,5)

	data, err := buildPrimaryIndex(block, []int{0}, boundaries)
	if err != nil {
		t.Fatalf("buildPrimaryIndex: %v", err)
	}
	if err := writePrimaryIndex(dir, data); err != nil {
		t.Fatalf("writePrimaryIndex: %v", err)
	}

	pi, err := readPrimaryIndex(dir, 1)
	if err != nil {
		t.Fatalf("readPrimaryIndex: %v", err)
	}
	if pi.markCount() != len(boundaries) {
		t.Fatalf("markCount() = %d, want %d", pi.markCount(), len(boundaries))
	}

	want := []int64{1, 3, 5} // first row's key of each granule
	for i, w := range want {
		tup := pi.tuple(i)
		if len(tup) != 1 || tup[0].Int64 != w || !tup[0].Valid {
			t.Fatalf("tuple(%d) = %+v, want key %d", i, tup, w)
		}
	}
}

func TestKeyValueAsInt64UnsupportedType(t *testing.T) {
	c := &column.StringColumn{Values: []string{"x"}}
	if _, err := keyValueAsInt64(c, 0); err == nil {
		t.Fatal("expected error for unsupported key column type")
	}
}

func TestReadPrimaryIndexRejectsMisalignedData(t *testing.T) {
	dir := t.TempDir()
	if err := writePrimaryIndex(dir, make([]byte, 5)); err != nil {
		t.Fatalf("writePrimaryIndex: %v", err)
	}
	if _, err := readPrimaryIndex(dir, 1); err == nil {
		t.Fatal("expected error for primary index size not a multiple of key width")
	}
}
