package snapshot

import (
	"errors"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var w writer
	w.u8(0xAB)
	w.u16(0x1234)
	w.u32(0xDEADBEEF)
	w.u64(1 << 40)
	w.i64(-42)
	w.f64(3.5)
	w.bool(true)
	w.str("hello")

	r := newReader(w.bytes())
	if v, err := r.u8(); err != nil || v != 0xAB {
		t.Fatalf("u8 = %v, %v", v, err)
	}
	if v, err := r.u16(); err != nil || v != 0x1234 {
		t.Fatalf("u16 = %v, %v", v, err)
	}
	if v, err := r.u32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("u32 = %v, %v", v, err)
	}
	if v, err := r.u64(); err != nil || v != 1<<40 {
		t.Fatalf("u64 = %v, %v", v, err)
	}
	if v, err := r.i64(); err != nil || v != -42 {
		t.Fatalf("i64 = %v, %v", v, err)
	}
	if v, err := r.f64(); err != nil || v != 3.5 {
		t.Fatalf("f64 = %v, %v", v, err)
	}
	if v, err := r.bool(); err != nil || !v {
		t.Fatalf("bool = %v, %v", v, err)
	}
	if v, err := r.str(); err != nil || v != "hello" {
		t.Fatalf("str = %q, %v", v, err)
	}
	if r.remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", r.remaining())
	}
}

func TestReaderRejectsTruncatedStream(t *testing.T) {
	r := newReader([]byte{1, 2, 3})
	if _, err := r.u64(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("u64 on 3 bytes: got %v, want ErrCorrupt", err)
	}
}

// A length prefix larger than the remaining stream is rejected, not used to
// slice past the buffer.
func TestReaderRejectsOversizedLengthPrefix(t *testing.T) {
	var w writer
	w.u32(0xFFFFFFFF)
	r := newReader(w.bytes())
	if _, err := r.str(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("oversized str length: got %v, want ErrCorrupt", err)
	}
}

func TestSectionFraming(t *testing.T) {
	var body writer
	body.str("payload")

	var w writer
	writeSection(&w, secHeap, body.bytes())

	r := newReader(w.bytes())
	tag, b, err := r.section()
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	if tag != secHeap {
		t.Fatalf("tag = %d, want secHeap", tag)
	}
	inner := newReader(b)
	if s, err := inner.str(); err != nil || s != "payload" {
		t.Fatalf("section body = %q, %v", s, err)
	}
}

func TestSectionRejectsTruncatedBody(t *testing.T) {
	var w writer
	writeSection(&w, secNamespace, []byte{1, 2, 3, 4})
	stream := w.bytes()

	r := newReader(stream[:len(stream)-2])
	if _, _, err := r.section(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("truncated section: got %v, want ErrCorrupt", err)
	}
}
