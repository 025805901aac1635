package mtable

import (
	"os"
	"path/filepath"

	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/encoding"
	"github.com/mergetable/mergetable/lib/fs"
	"github.com/mergetable/mergetable/lib/predicate"
)

const primaryIndexFileName = "primary.idx"

func keyValueAsInt64(col column.Column, row int) (int64, error) {
	switch c := col.(type) {
	case *column.Int64Column:
		return c.Values[row], nil
	case *column.DateColumn:
		return int64(c.Values[row]), nil
	default:
		return 0, newErr(KindNotImplemented, "primary key column of type %v is not supported", col.Type().Kind)
	}
}

// buildPrimaryIndex derives the dense, one-tuple-per-mark primary
// index from a fully sorted block and its granule boundaries: tuple i
// holds the key values of granule i's first row.
func buildPrimaryIndex(block *Block, keyCols []int, boundaries []int) ([]byte, error) {
	var buf []byte
	rowStart := 0
	for _, rowEnd := range boundaries {
		if rowEnd <= rowStart {
			rowStart = rowEnd
			continue
		}
		for _, ci := range keyCols {
			v, err := keyValueAsInt64(block.Columns[ci], rowStart)
			if err != nil {
				return nil, err
			}
			buf = encoding.MarshalInt64(buf, v)
		}
		rowStart = rowEnd
	}
	return buf, nil
}

func writePrimaryIndex(dir string, data []byte) error {
	fs.MustWriteSync(filepath.Join(dir, primaryIndexFileName), data)
	return nil
}

// primaryIndex is the in-memory, fully-loaded dense tuple array read
// back from primary.idx. Being uncompressed and small (one tuple per
// mark, not per row) it is always read in full and kept
// memory-resident.
type primaryIndex struct {
	numKeys int
	tuples  [][]int64 // tuples[markIdx][keyIdx]
}

func readPrimaryIndex(dir string, numKeys int) (*primaryIndex, error) {
	path := filepath.Join(dir, primaryIndexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(KindIO, err, "cannot read %q", path)
	}
	width := numKeys * 8
	if numKeys == 0 || len(data)%width != 0 {
		return nil, newErr(KindLogical, "primary index %q has size %d, not a multiple of %d", path, len(data), width)
	}
	n := len(data) / width
	tuples := make([][]int64, n)
	off := 0
	for i := 0; i < n; i++ {
		tup := make([]int64, numKeys)
		for k := 0; k < numKeys; k++ {
			tup[k] = encoding.UnmarshalInt64(data[off : off+8])
			off += 8
		}
		tuples[i] = tup
	}
	return &primaryIndex{numKeys: numKeys, tuples: tuples}, nil
}

// markCount returns how many marks this index covers.
func (pi *primaryIndex) markCount() int { return len(pi.tuples) }

// tuple converts mark idx's key tuple into a predicate.Tuple.
func (pi *primaryIndex) tuple(idx int) predicate.Tuple {
	t := make(predicate.Tuple, pi.numKeys)
	for k, v := range pi.tuples[idx] {
		t[k] = predicate.Value{Int64: v, Valid: true}
	}
	return t
}
