package mtable

import (
	"container/heap"
	"sort"

	"github.com/mergetable/mergetable/lib/column"
)

// mergeCursor walks one source block's rows in order; mergeBlocks pops
// the globally smallest current row across all cursors at each step,
// giving a streaming k-way merge.
type mergeCursor struct {
	block *Block
	row   int
	key   []int64
}

func (mc *mergeCursor) exhausted() bool { return mc.row >= mc.block.Len() }

func keyTuple(block *Block, keyIdxs []int, row int) ([]int64, error) {
	t := make([]int64, len(keyIdxs))
	for i, ci := range keyIdxs {
		v, err := keyValueAsInt64(block.Columns[ci], row)
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	return t, nil
}

func lessKeyTuple(a, b []int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func equalKeyTuple(a, b []int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// cursorHeap is a min-heap of mergeCursor ordered by primary key,
// breaking ties by source order to keep the merge stable.
type cursorHeap struct {
	cursors []*mergeCursor
	srcIdx  []int
}

func (h *cursorHeap) Len() int { return len(h.cursors) }
func (h *cursorHeap) Less(i, j int) bool {
	if lessKeyTuple(h.cursors[i].key, h.cursors[j].key) {
		return true
	}
	if lessKeyTuple(h.cursors[j].key, h.cursors[i].key) {
		return false
	}
	return h.srcIdx[i] < h.srcIdx[j]
}
func (h *cursorHeap) Swap(i, j int) {
	h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i]
	h.srcIdx[i], h.srcIdx[j] = h.srcIdx[j], h.srcIdx[i]
}
func (h *cursorHeap) Push(x any) {
	e := x.(heapEntry)
	h.cursors = append(h.cursors, e.cursor)
	h.srcIdx = append(h.srcIdx, e.srcIdx)
}
func (h *cursorHeap) Pop() any {
	n := len(h.cursors)
	c, s := h.cursors[n-1], h.srcIdx[n-1]
	h.cursors = h.cursors[:n-1]
	h.srcIdx = h.srcIdx[:n-1]
	return heapEntry{cursor: c, srcIdx: s}
}

type heapEntry struct {
	cursor *mergeCursor
	srcIdx int
}

// mergeBlocks performs a k-way streaming merge of blocks (each
// already sorted by keyIdxs) into a single block sorted by keyIdxs.
// All blocks must share the same schema.
func mergeBlocks(blocks []*Block, schema *Schema, keyIdxs []int) (*Block, error) {
	h := &cursorHeap{}
	for si, b := range blocks {
		if b.Len() == 0 {
			continue
		}
		k, err := keyTuple(b, keyIdxs, 0)
		if err != nil {
			return nil, err
		}
		mc := &mergeCursor{block: b, row: 0, key: k}
		heap.Push(h, heapEntry{cursor: mc, srcIdx: si})
	}

	out := NewBlock(schema)
	for h.Len() > 0 {
		e := heap.Pop(h).(heapEntry)
		mc := e.cursor
		out.AppendRowFrom(mc.block, mc.row)
		mc.row++
		if !mc.exhausted() {
			k, err := keyTuple(mc.block, keyIdxs, mc.row)
			if err != nil {
				return nil, err
			}
			mc.key = k
			heap.Push(h, heapEntry{cursor: mc, srcIdx: e.srcIdx})
		}
	}
	return out, nil
}

// collapseMerged rewrites a key-sorted merged block under the
// collapsing-merge rule: within each run of rows sharing a primary
// key, a +1 row and a -1 row cancel each other out; whatever rows
// remain after cancellation (the net insertions or net deletions) are
// kept, in their original relative order.
func collapseMerged(block *Block, schema *Schema, keyIdxs []int) (*Block, error) {
	signIdx := schema.ColumnIndex(schema.SignColumn)
	if signIdx < 0 {
		return block, nil
	}
	signCol, ok := block.Columns[signIdx].(*column.Int64Column)
	if !ok {
		return nil, newErr(KindLogical, "sign column %q must be Int64", schema.SignColumn)
	}

	out := NewBlock(schema)
	n := block.Len()
	i := 0
	for i < n {
		j := i
		key, err := keyTuple(block, keyIdxs, i)
		if err != nil {
			return nil, err
		}
		for j < n {
			k2, err := keyTuple(block, keyIdxs, j)
			if err != nil {
				return nil, err
			}
			if !equalKeyTuple(key, k2) {
				break
			}
			j++
		}
		appendCollapsedGroup(out, block, signCol, i, j)
		i = j
	}
	return out, nil
}

// appendCollapsedGroup cancels +1/-1 pairs within rows [lo, hi) of
// src sharing one primary key, appending whatever rows remain.
func appendCollapsedGroup(out, src *Block, signCol *column.Int64Column, lo, hi int) {
	var positives, negatives []int
	for r := lo; r < hi; r++ {
		if signCol.Values[r] > 0 {
			positives = append(positives, r)
		} else {
			negatives = append(negatives, r)
		}
	}
	cancel := len(positives)
	if len(negatives) < cancel {
		cancel = len(negatives)
	}
	positives = positives[cancel:]
	negatives = negatives[cancel:]

	remaining := make([]int, 0, len(positives)+len(negatives))
	remaining = append(remaining, positives...)
	remaining = append(remaining, negatives...)
	sort.Ints(remaining)
	for _, r := range remaining {
		out.AppendRowFrom(src, r)
	}
}
