// Package encoding provides the fixed-width and varint binary
// marshaling primitives the column and mark codecs are built on, plus
// a zstd block compressor, for lib/mtable and lib/column to build on.
package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MarshalUint32 appends little-endian u to dst.
func MarshalUint32(dst []byte, u uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], u)
	return append(dst, tmp[:]...)
}

// UnmarshalUint32 reads a little-endian uint32 from the front of src.
func UnmarshalUint32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// MarshalUint64 appends little-endian u to dst.
//
// Mark records are two back-to-back values produced by this
// function: it is the fixed-width wire format for ".mrk" files.
func MarshalUint64(dst []byte, u uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], u)
	return append(dst, tmp[:]...)
}

// UnmarshalUint64 reads a little-endian uint64 from the front of src.
func UnmarshalUint64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// MarshalInt64 appends little-endian zig-zag encoded v to dst.
func MarshalInt64(dst []byte, v int64) []byte {
	return MarshalUint64(dst, zigzagEncode64(v))
}

// UnmarshalInt64 reads a little-endian zig-zag encoded int64.
func UnmarshalInt64(src []byte) int64 {
	return zigzagDecode64(UnmarshalUint64(src))
}

// MarshalInt32 appends little-endian zig-zag encoded v to dst.
func MarshalInt32(dst []byte, v int32) []byte {
	u := (uint32(v) << 1) ^ uint32(v>>31)
	return MarshalUint32(dst, u)
}

// UnmarshalInt32 reads a little-endian zig-zag encoded int32.
func UnmarshalInt32(src []byte) int32 {
	u := UnmarshalUint32(src)
	return int32(u>>1) ^ (int32(u<<31) >> 31)
}

// MarshalFloat64 appends the IEEE-754 bits of f to dst.
func MarshalFloat64(dst []byte, f float64) []byte {
	return MarshalUint64(dst, math.Float64bits(f))
}

// UnmarshalFloat64 reads an IEEE-754 float64 from the front of src.
func UnmarshalFloat64(src []byte) float64 {
	return math.Float64frombits(UnmarshalUint64(src))
}

func zigzagEncode64(v int64) uint64 {
	return (uint64(v) << 1) ^ uint64(v>>63)
}

func zigzagDecode64(u uint64) int64 {
	return int64(u>>1) ^ (int64(u<<63) >> 63)
}

// MarshalVarUint64 appends a varint-encoded u to dst.
func MarshalVarUint64(dst []byte, u uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], u)
	return append(dst, tmp[:n]...)
}

// UnmarshalVarUint64 reads a varint-encoded uint64, returning the
// value and the remaining tail of src.
func UnmarshalVarUint64(src []byte) ([]byte, uint64, error) {
	u, n := binary.Uvarint(src)
	if n <= 0 {
		return src, 0, fmt.Errorf("cannot unmarshal varuint64 from %d bytes", len(src))
	}
	return src[n:], u, nil
}

// MarshalBytes appends a length-prefixed b to dst.
func MarshalBytes(dst, b []byte) []byte {
	dst = MarshalVarUint64(dst, uint64(len(b)))
	return append(dst, b...)
}

// UnmarshalBytes reads a length-prefixed byte slice, returning it and
// the remaining tail of src. The returned slice aliases src.
func UnmarshalBytes(src []byte) ([]byte, []byte, error) {
	tail, n, err := UnmarshalVarUint64(src)
	if err != nil {
		return src, nil, fmt.Errorf("cannot unmarshal bytes length: %w", err)
	}
	if uint64(len(tail)) < n {
		return src, nil, fmt.Errorf("too short src for reading %d bytes; got %d bytes", n, len(tail))
	}
	return tail[n:], tail[:n], nil
}
