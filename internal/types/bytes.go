package types

import (
	"fmt"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// Bytes is Monty's immutable byte-string type.
type Bytes struct {
	data []byte
}

// NewBytes builds a Bytes from a raw byte slice (copied, to preserve
// immutability even if the caller mutates its slice afterward).
func NewBytes(b []byte) *Bytes {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Bytes{data: cp}
}

func (b *Bytes) Value() []byte { return b.data }

func (b *Bytes) Type() value.TypeTag   { return value.TypeBytes }
func (b *Bytes) EstimateSize() uintptr { return uintptr(16 + len(b.data)) }
func (b *Bytes) Len() (int, bool)      { return len(b.data), true }

func (b *Bytes) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	idx, err := normalizeIndex(key, len(b.data), "bytes")
	if err != nil {
		return value.None, err
	}
	return value.NewInt(int64(b.data[idx])), nil
}

func (b *Bytes) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'bytes' object does not support item assignment")
}

func (b *Bytes) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'bytes' object doesn't support item deletion")
}

type bytesIterator struct {
	data []byte
	pos  int
}

func (it *bytesIterator) Next(h *value.Heap) (value.Value, bool, error) {
	if it.pos >= len(it.data) {
		return value.None, false, nil
	}
	v := int64(it.data[it.pos])
	it.pos++
	return value.NewInt(v), true, nil
}

func (b *Bytes) Iter(h *value.Heap) (value.Iterator, error) {
	return &bytesIterator{data: b.data}, nil
}

func (b *Bytes) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	ob, ok := other.(*Bytes)
	if !ok || len(b.data) != len(ob.data) {
		return false
	}
	for i := range b.data {
		if b.data[i] != ob.data[i] {
			return false
		}
	}
	return true
}

func (b *Bytes) Bool(h *value.Heap) bool { return len(b.data) > 0 }

func (b *Bytes) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart(fmt.Sprintf("b%q", string(b.data)))}
}

func (b *Bytes) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'bytes' object has no attribute '%s'", name)
}

func (b *Bytes) DecRefChildren(stack *[]value.HeapId) {}
func (b *Bytes) ContainsRefs() bool                   { return false }

// Concat returns a new Bytes containing b followed by other.
func (b *Bytes) Concat(other *Bytes) *Bytes {
	out := make([]byte, 0, len(b.data)+len(other.data))
	out = append(out, b.data...)
	out = append(out, other.data...)
	return &Bytes{data: out}
}

// Repeat returns a new Bytes containing b repeated n times.
func (b *Bytes) Repeat(n int64) *Bytes {
	if n <= 0 {
		return &Bytes{}
	}
	out := make([]byte, 0, int64(len(b.data))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, b.data...)
	}
	return &Bytes{data: out}
}
