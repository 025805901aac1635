package encoding

import (
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
)

// A single shared decoder and a small per-level encoder cache, since
// creating a zstd.Encoder is comparatively expensive and column block
// compression reuses the same handful of levels repeatedly.

var decoder = mustNewDecoder()

func mustNewDecoder() *zstd.Decoder {
	d, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	encodersMu sync.Mutex
	encoders   atomic.Value // map[int]*zstd.Encoder
)

func init() {
	encoders.Store(make(map[int]*zstd.Encoder))
}

// CompressLevel appends the zstd compression of src to dst at the
// given level and returns the extended dst.
func CompressLevel(dst, src []byte, level int) []byte {
	e := getEncoder(level)
	return e.EncodeAll(src, dst)
}

// Decompress appends the zstd decompression of src to dst and returns
// the extended dst.
func Decompress(dst, src []byte) ([]byte, error) {
	return decoder.DecodeAll(src, dst)
}

func getEncoder(level int) *zstd.Encoder {
	m := encoders.Load().(map[int]*zstd.Encoder)
	if e := m[level]; e != nil {
		return e
	}

	encodersMu.Lock()
	defer encodersMu.Unlock()
	m = encoders.Load().(map[int]*zstd.Encoder)
	if e := m[level]; e != nil {
		return e
	}
	e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		panic(err)
	}
	m2 := make(map[int]*zstd.Encoder, len(m)+1)
	for k, v := range m {
		m2[k] = v
	}
	m2[level] = e
	encoders.Store(m2)
	return e
}
