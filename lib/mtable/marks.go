package mtable

import "github.com/mergetable/mergetable/lib/encoding"

// mark is one record of a .mrk file: the plain (decompressed) byte
// size of a granule's encoded rows, and the byte offset of the
// compressed block holding it within the column's .bin file.
//
// Every mark in this implementation addresses a distinct compressed
// block (one granule, one block): the offset within the decompressed
// block that some designs track separately is therefore always zero
// here and is not stored, since a reader never needs to seek inside a
// block — it decompresses the whole thing and reads from the start.
type mark struct {
	plainByteCount        uint64
	compressedBlockOffset uint64
}

func (m mark) marshal(dst []byte) []byte {
	dst = encoding.MarshalUint64(dst, m.plainByteCount)
	dst = encoding.MarshalUint64(dst, m.compressedBlockOffset)
	return dst
}

func unmarshalMark(src []byte) mark {
	return mark{
		plainByteCount:        encoding.UnmarshalUint64(src[0:8]),
		compressedBlockOffset: encoding.UnmarshalUint64(src[8:16]),
	}
}

// marksBuf accumulates mark records before a single write to the
// .mrk file, mirroring how column data is buffered before the
// matching .bin write.
type marksBuf struct {
	buf []byte
}

func (mb *marksBuf) append(m mark) {
	mb.buf = m.marshal(mb.buf)
}

func (mb *marksBuf) count() int64 {
	return int64(len(mb.buf) / markSize)
}

func readMarks(data []byte) ([]mark, error) {
	if len(data)%markSize != 0 {
		return nil, newErr(KindLogical, "mark data has size %d, not a multiple of %d", len(data), markSize)
	}
	n := len(data) / markSize
	out := make([]mark, n)
	for i := 0; i < n; i++ {
		out[i] = unmarshalMark(data[i*markSize : (i+1)*markSize])
	}
	return out, nil
}
