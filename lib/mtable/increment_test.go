package mtable

import "testing"

func TestIncrementAllocatorAllocatesDisjointRanges(t *testing.T) {
	dir := t.TempDir()
	ia, err := openIncrementAllocator(dir)
	if err != nil {
		t.Fatalf("openIncrementAllocator: %v", err)
	}

	first := ia.allocate(3)
	second := ia.allocate(5)
	if first != 1 {
		t.Fatalf("first allocation = %d, want 1", first)
	}
	if second != first+3 {
		t.Fatalf("second allocation = %d, want %d", second, first+3)
	}
}

func TestIncrementAllocatorPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ia, err := openIncrementAllocator(dir)
	if err != nil {
		t.Fatalf("openIncrementAllocator: %v", err)
	}
	ia.allocate(10)

	reopened, err := openIncrementAllocator(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.allocate(1)
	if got != 11 {
		t.Fatalf("allocate after reopen = %d, want 11", got)
	}
}
