package encoding

import (
	"reflect"
	"testing"
)

func TestMarshalUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 63, 123456789} {
		buf := MarshalUint64(nil, v)
		if len(buf) != 8 {
			t.Fatalf("MarshalUint64(%d) len = %d, want 8", v, len(buf))
		}
		if got := UnmarshalUint64(buf); got != v {
			t.Fatalf("UnmarshalUint64 = %d, want %d", got, v)
		}
	}
}

func TestMarshalInt64ZigzagRoundTrip(t *testing.T) {
	for _, v := range []int64{0, -1, 1, -(1 << 40), 1 << 40, -9223372036854775808} {
		buf := MarshalInt64(nil, v)
		if got := UnmarshalInt64(buf); got != v {
			t.Fatalf("UnmarshalInt64(%d) = %d", v, got)
		}
	}
}

func TestMarshalInt32ZigzagRoundTrip(t *testing.T) {
	for _, v := range []int32{0, -1, 1, -2147483648, 2147483647} {
		buf := MarshalInt32(nil, v)
		if got := UnmarshalInt32(buf); got != v {
			t.Fatalf("UnmarshalInt32(%d) = %d", v, got)
		}
	}
}

func TestMarshalFloat64RoundTrip(t *testing.T) {
	for _, v := range []float64{0, -1.5, 3.14159, 1e300} {
		buf := MarshalFloat64(nil, v)
		if got := UnmarshalFloat64(buf); got != v {
			t.Fatalf("UnmarshalFloat64(%v) = %v", v, got)
		}
	}
}

func TestMarshalVarUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 127, 128, 1 << 32} {
		buf := MarshalVarUint64(nil, v)
		tail, got, err := UnmarshalVarUint64(buf)
		if err != nil {
			t.Fatalf("UnmarshalVarUint64(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("got %d, want %d", got, v)
		}
		if len(tail) != 0 {
			t.Fatalf("leftover tail: %d bytes", len(tail))
		}
	}
}

func TestUnmarshalVarUint64TooShort(t *testing.T) {
	if _, _, err := UnmarshalVarUint64(nil); err == nil {
		t.Fatal("expected error unmarshaling from empty src")
	}
}

func TestMarshalBytesRoundTrip(t *testing.T) {
	var buf []byte
	buf = MarshalBytes(buf, []byte("hello"))
	buf = MarshalBytes(buf, []byte(""))
	buf = MarshalBytes(buf, []byte("world"))

	tail := buf
	var got [][]byte
	for i := 0; i < 3; i++ {
		var b []byte
		var err error
		tail, b, err = UnmarshalBytes(tail)
		if err != nil {
			t.Fatalf("UnmarshalBytes(%d): %v", i, err)
		}
		got = append(got, append([]byte{}, b...))
	}
	want := [][]byte{[]byte("hello"), []byte(""), []byte("world")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(tail) != 0 {
		t.Fatalf("leftover tail: %d bytes", len(tail))
	}
}

func TestUnmarshalBytesTooShort(t *testing.T) {
	buf := MarshalVarUint64(nil, 10)
	if _, _, err := UnmarshalBytes(buf); err == nil {
		t.Fatal("expected error when declared length exceeds remaining bytes")
	}
}
