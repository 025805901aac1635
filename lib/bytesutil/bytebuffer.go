// Package bytesutil provides pooled byte buffers reused by the ingest
// and merge hot paths to cut GC pressure.
package bytesutil

import (
	"io"
	"sync"
)

// ByteBuffer is a growable byte buffer that can be pooled.
type ByteBuffer struct {
	B []byte
}

// Reset truncates bb to zero length without releasing capacity.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the number of bytes currently stored in bb.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// MustWrite appends p to bb.
func (bb *ByteBuffer) MustWrite(p []byte) {
	bb.B = append(bb.B, p...)
}

// Write implements io.Writer.
func (bb *ByteBuffer) Write(p []byte) (int, error) {
	bb.MustWrite(p)
	return len(p), nil
}

// WriteTo implements io.WriterTo.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// Bytes returns the contents written so far.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Pool is a sync.Pool of ByteBuffer, typed to avoid the caller
// re-asserting interface{} at every call site.
type Pool struct {
	p sync.Pool
}

// Get returns a reset ByteBuffer from the pool.
func (bp *Pool) Get() *ByteBuffer {
	v := bp.p.Get()
	if v == nil {
		return &ByteBuffer{}
	}
	return v.(*ByteBuffer)
}

// Put returns bb to the pool after resetting it.
func (bp *Pool) Put(bb *ByteBuffer) {
	bb.Reset()
	bp.p.Put(bb)
}
