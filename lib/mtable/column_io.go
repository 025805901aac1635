package mtable

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mergetable/mergetable/lib/bytesutil"
	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/encoding"
	"github.com/mergetable/mergetable/lib/fs"
)

var bbPool bytesutil.Pool

// rowBoundaries returns the exclusive end-row index of each granule
// for a column of n rows under the given index granularity: mark i
// covers rows [i*granularity, min((i+1)*granularity, n)).
func rowBoundaries(n, granularity int) []int {
	if granularity <= 0 {
		granularity = 1
	}
	var b []int
	for start := 0; start < n; start += granularity {
		end := start + granularity
		if end > n {
			end = n
		}
		b = append(b, end)
	}
	if len(b) == 0 {
		b = []int{0}
	}
	return b
}

// writeColumnFiles serializes col to dir under baseName, writing one
// values file (baseName.bin/.mrk) for scalar columns, or one size
// stream per nesting level (baseName.sizeK.bin/.mrk) plus a
// recursively-written values file for Array columns.
//
// boundaries gives the exclusive end-row index of every granule in
// col; level is the nesting depth (0 for a top-level column).
func writeColumnFiles(dir, baseName string, col column.Column, boundaries []int, level int, compLevel int) error {
	arr, isArray := col.(column.ArrayColumn)
	if !isArray {
		return writeLeafValues(dir, baseName, col, boundaries, compLevel)
	}

	sizeValues := make([]uint64, col.Len())
	for i := 0; i < col.Len(); i++ {
		sizeValues[i] = arr.CumulativeSize(i)
	}
	sizeName := fmt.Sprintf("%s.size%d", baseName, level)
	if err := writeUint64Stream(dir, sizeName, sizeValues, boundaries, compLevel); err != nil {
		return err
	}

	nestedBoundaries := make([]int, len(boundaries))
	for i, b := range boundaries {
		if b == 0 {
			nestedBoundaries[i] = 0
			continue
		}
		nestedBoundaries[i] = int(arr.CumulativeSize(b - 1))
	}
	return writeColumnFiles(dir, baseName, arr.Nested(), nestedBoundaries, level+1, compLevel)
}

// writeLeafValues writes the serialized-row stream of a scalar column
// in granules aligned to boundaries, one compressed block per granule.
func writeLeafValues(dir, baseName string, col column.Column, boundaries []int, compLevel int) error {
	binPath := filepath.Join(dir, baseName+".bin")
	f, err := os.Create(binPath)
	if err != nil {
		return wrapErr(KindIO, err, "cannot create %q", binPath)
	}
	defer f.Close()

	plainBB := bbPool.Get()
	compBB := bbPool.Get()
	defer func() { bbPool.Put(plainBB); bbPool.Put(compBB) }()

	var mb marksBuf
	var blockOffset uint64
	rowStart := 0
	for _, rowEnd := range boundaries {
		plainBB.Reset()
		for i := rowStart; i < rowEnd; i++ {
			plainBB.B = col.SerializeRow(plainBB.B, i)
		}
		rowStart = rowEnd

		compBB.Reset()
		compBB.B = encoding.CompressLevel(compBB.B, plainBB.B, compLevel)
		if _, err := f.Write(compBB.B); err != nil {
			return wrapErr(KindIO, err, "cannot write %q", binPath)
		}
		mb.append(mark{plainByteCount: uint64(len(plainBB.B)), compressedBlockOffset: blockOffset})
		blockOffset += uint64(len(compBB.B))
	}

	mrkPath := filepath.Join(dir, baseName+".mrk")
	fs.MustWriteSync(mrkPath, mb.buf)
	return f.Sync()
}

// writeUint64Stream writes a stream of raw uint64 values (an array
// column's cumulative-size stream) using the same granule/mark layout
// as a leaf values file.
func writeUint64Stream(dir, baseName string, values []uint64, boundaries []int, compLevel int) error {
	binPath := filepath.Join(dir, baseName+".bin")
	f, err := os.Create(binPath)
	if err != nil {
		return wrapErr(KindIO, err, "cannot create %q", binPath)
	}
	defer f.Close()

	plainBB := bbPool.Get()
	compBB := bbPool.Get()
	defer func() { bbPool.Put(plainBB); bbPool.Put(compBB) }()

	var mb marksBuf
	var blockOffset uint64
	rowStart := 0
	for _, rowEnd := range boundaries {
		plainBB.Reset()
		for i := rowStart; i < rowEnd; i++ {
			plainBB.B = encoding.MarshalUint64(plainBB.B, values[i])
		}
		rowStart = rowEnd

		compBB.Reset()
		compBB.B = encoding.CompressLevel(compBB.B, plainBB.B, compLevel)
		if _, err := f.Write(compBB.B); err != nil {
			return wrapErr(KindIO, err, "cannot write %q", binPath)
		}
		mb.append(mark{plainByteCount: uint64(len(plainBB.B)), compressedBlockOffset: blockOffset})
		blockOffset += uint64(len(compBB.B))
	}

	mrkPath := filepath.Join(dir, baseName+".mrk")
	fs.MustWriteSync(mrkPath, mb.buf)
	return f.Sync()
}

// columnReader lazily opens a column's .bin/.mrk pair and decodes one
// granule at a time on demand: columns are opened lazily, only those
// actually requested by a read.
type columnReader struct {
	dir      string
	baseName string
	marks    []mark

	f       *os.File
	plainBB *bytesutil.ByteBuffer
	compBB  *bytesutil.ByteBuffer
}

func openColumnReader(dir, baseName string) (*columnReader, error) {
	mrkPath := filepath.Join(dir, baseName+".mrk")
	data, err := os.ReadFile(mrkPath)
	if err != nil {
		return nil, wrapErr(KindIO, err, "cannot read %q", mrkPath)
	}
	marks, err := readMarks(data)
	if err != nil {
		return nil, wrapErr(KindIO, err, "corrupt mark file %q", mrkPath)
	}
	binPath := filepath.Join(dir, baseName+".bin")
	f, err := os.Open(binPath)
	if err != nil {
		return nil, wrapErr(KindIO, err, "cannot open %q", binPath)
	}
	return &columnReader{
		dir: dir, baseName: baseName, marks: marks, f: f,
		plainBB: &bytesutil.ByteBuffer{}, compBB: &bytesutil.ByteBuffer{},
	}, nil
}

func (cr *columnReader) Close() error {
	return cr.f.Close()
}

func (cr *columnReader) MarkCount() int {
	return len(cr.marks)
}

// readGranule decompresses granule idx and returns its plain bytes.
//
// Each mark's compressedBlockOffset is the .bin byte offset its block
// starts at; the block's compressed length is therefore the gap to
// the next mark's offset, or to end-of-file for the last granule.
func (cr *columnReader) readGranule(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(cr.marks) {
		return nil, newErr(KindLogical, "granule %d out of range [0,%d) in %q", idx, len(cr.marks), cr.baseName)
	}
	start := int64(cr.marks[idx].compressedBlockOffset)
	var end int64
	if idx+1 < len(cr.marks) {
		end = int64(cr.marks[idx+1].compressedBlockOffset)
	} else {
		fi, err := cr.f.Stat()
		if err != nil {
			return nil, wrapErr(KindIO, err, "cannot stat %q", cr.baseName)
		}
		end = fi.Size()
	}

	cr.compBB.Reset()
	cr.compBB.B = append(cr.compBB.B, make([]byte, end-start)...)
	if err := fs.ReadFileAt(cr.f, cr.compBB.B, start); err != nil {
		return nil, wrapErr(KindIO, err, "cannot read compressed block %d of %q", idx, cr.baseName)
	}
	cr.plainBB.Reset()
	out, err := encoding.Decompress(cr.plainBB.B, cr.compBB.B)
	if err != nil {
		return nil, wrapErr(KindIO, err, "cannot decompress block %d of %q", idx, cr.baseName)
	}
	cr.plainBB.B = out
	if uint64(len(out)) != cr.marks[idx].plainByteCount {
		return nil, newErr(KindLogical, "block %d of %q decompressed to %d bytes, mark says %d", idx, cr.baseName, len(out), cr.marks[idx].plainByteCount)
	}
	return out, nil
}

// readColumnRange reconstructs a Column of type typ holding exactly
// the rows covered by marks [markStart, markEnd) of the on-disk
// column named baseName. Range pruning always selects whole marks, so
// partial-granule row slicing is never needed here.
func readColumnRange(dir, baseName string, typ column.Type, markStart, markEnd int, level int) (column.Column, error) {
	if typ.Kind != column.KindArray {
		return readScalarRange(dir, baseName, typ, markStart, markEnd)
	}

	sizeName := fmt.Sprintf("%s.size%d", baseName, level)
	sizes, err := readUint64Range(dir, sizeName, markStart, markEnd)
	if err != nil {
		return nil, err
	}
	baseline, err := uint64StreamLastValue(dir, sizeName, markStart-1)
	if err != nil {
		return nil, err
	}

	nested, err := readColumnRange(dir, baseName, *typ.Nested, markStart, markEnd, level+1)
	if err != nil {
		return nil, err
	}

	arr := column.NewColumn(typ).(*column.Array)
	prev := baseline
	consumed := 0
	for _, cum := range sizes {
		n := int(cum - prev)
		elems := nested.Clone()
		for k := 0; k < n; k++ {
			elems.AppendRowFrom(nested, consumed+k)
		}
		arr.AppendElements(elems)
		consumed += n
		prev = cum
	}
	return arr, nil
}

func readScalarRange(dir, baseName string, typ column.Type, markStart, markEnd int) (column.Column, error) {
	cr, err := openColumnReader(dir, baseName)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	col := column.NewColumn(typ)
	for idx := markStart; idx < markEnd; idx++ {
		data, err := cr.readGranule(idx)
		if err != nil {
			return nil, err
		}
		for len(data) > 0 {
			data, err = col.DeserializeRow(data)
			if err != nil {
				return nil, wrapErr(KindIO, err, "corrupt granule %d of %q", idx, baseName)
			}
		}
	}
	return col, nil
}

// readUint64Range decodes marks [markStart, markEnd) of a raw uint64
// stream (an array column's size file) into a flat slice.
func readUint64Range(dir, baseName string, markStart, markEnd int) ([]uint64, error) {
	cr, err := openColumnReader(dir, baseName)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	var out []uint64
	for idx := markStart; idx < markEnd; idx++ {
		data, err := cr.readGranule(idx)
		if err != nil {
			return nil, err
		}
		for len(data) >= 8 {
			out = append(out, encoding.UnmarshalUint64(data[:8]))
			data = data[8:]
		}
	}
	return out, nil
}

// uint64StreamLastValue returns the last value of granule markIdx in
// a size stream, or 0 if markIdx < 0 (the size stream starts at
// cumulative offset zero).
func uint64StreamLastValue(dir, baseName string, markIdx int) (uint64, error) {
	if markIdx < 0 {
		return 0, nil
	}
	vals, err := readUint64Range(dir, baseName, markIdx, markIdx+1)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, nil
	}
	return vals[len(vals)-1], nil
}
