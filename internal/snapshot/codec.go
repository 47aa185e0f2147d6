// Package snapshot implements the binary codec for a paused RunProgress:
// Dump serializes a suspended run's heap, interned strings, namespace, and
// position stack to a compact self-describing byte stream; Load rebuilds
// one, refusing anything it cannot validate rather than trusting offsets.
// The stream is self-describing (magic header plus version) and every ID
// referenced by the loaded state is validated to lie within the loaded heap
// extent. Encoded with encoding/binary in explicit length-prefixed sections.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// magic identifies a Monty snapshot stream; version gates forward
// compatibility. Both are refused outright on mismatch.
var magic = [4]byte{'M', 'N', 'T', 'Y'}

const formatVersion uint16 = 1

// ErrCorrupt is returned (never a panic) for any truncated, malformed, or
// magic/version-mismatched byte sequence.
var ErrCorrupt = errors.New("snapshot: corrupt or incompatible data")

// ErrInvalidReference is returned when a structurally valid snapshot
// references a HeapId outside the loaded heap's extent or a tombstoned
// slot; Load returns it before handing back any State.
var ErrInvalidReference = errors.New("snapshot: reference outside heap extent")

// corrupt wraps an underlying cause with ErrCorrupt so callers can
// errors.Is(err, snapshot.ErrCorrupt) while still seeing the detail via
// Error().
func corrupt(reason string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%s: %w: %s", reason, ErrCorrupt, cause.Error())
	}
	return fmt.Errorf("%s: %w", reason, ErrCorrupt)
}

// sectionTag discriminates the fixed section order a stream is written in.
type sectionTag uint8

const (
	secHeap sectionTag = iota
	secInterns
	secNamespace
	secPosition
	secPending
	secMeta
)

// reader is a bounds-checked cursor over a snapshot byte stream: every
// read method returns ErrCorrupt (via corrupt()) instead of panicking on
// underrun, so a hand-crafted or bit-flipped byte sequence can never crash
// the host.
type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, corrupt("truncated stream", nil)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) i64() (int64, error) {
	u, err := r.u64()
	return int64(u), err
}

func (r *reader) f64() (float64, error) {
	u, err := r.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// str reads a uint32 length prefix followed by that many raw bytes.
func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) bool() (bool, error) {
	b, err := r.u8()
	return b != 0, err
}

// writer accumulates a snapshot stream. It never fails (bytes.Buffer never
// errors on Write for an in-memory sink), so its methods don't return error.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u16(v uint16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u64(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }
func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }
func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}
func (w *writer) bytesRaw(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }

// section writes a length-prefixed block so Load can skip sections it
// doesn't recognize in a future version without mis-parsing the rest of
// the stream.
func writeSection(w *writer, tag sectionTag, body []byte) {
	w.u8(uint8(tag))
	w.u32(uint32(len(body)))
	w.buf.Write(body)
}

func (r *reader) section() (sectionTag, []byte, error) {
	tag, err := r.u8()
	if err != nil {
		return 0, nil, err
	}
	n, err := r.u32()
	if err != nil {
		return 0, nil, err
	}
	body, err := r.bytes(int(n))
	if err != nil {
		return 0, nil, err
	}
	return sectionTag(tag), body, nil
}
