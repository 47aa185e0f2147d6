package types

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// Tuple is Monty's immutable sequence type. containsRefs is computed once
// at construction, since a tuple's contents never change afterward.
type Tuple struct {
	items        []value.Value
	containsRefs bool
}

// NewTuple builds a Tuple, computing containsRefs from items.
func NewTuple(items []value.Value) *Tuple {
	return &Tuple{items: items, containsRefs: anyRef(items)}
}

func (t *Tuple) Items() []value.Value { return t.items }

func (t *Tuple) Type() value.TypeTag   { return value.TypeTuple }
func (t *Tuple) EstimateSize() uintptr { return uintptr(24 + len(t.items)*24) }
func (t *Tuple) Len() (int, bool)      { return len(t.items), true }

func (t *Tuple) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	idx, err := normalizeIndex(key, len(t.items), "tuple")
	if err != nil {
		return value.None, err
	}
	return h.CloneValue(t.items[idx]), nil
}

func (t *Tuple) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'tuple' object does not support item assignment")
}

func (t *Tuple) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'tuple' object doesn't support item deletion")
}

type sliceIterator struct {
	h     *value.Heap
	items []value.Value
	pos   int
}

func (it *sliceIterator) Next(h *value.Heap) (value.Value, bool, error) {
	if it.pos >= len(it.items) {
		return value.None, false, nil
	}
	v := h.CloneValue(it.items[it.pos])
	it.pos++
	return v, true, nil
}

func (t *Tuple) Iter(h *value.Heap) (value.Iterator, error) {
	return &sliceIterator{h: h, items: t.items}, nil
}

func (t *Tuple) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	ot, ok := other.(*Tuple)
	if !ok || len(t.items) != len(ot.items) {
		return false
	}
	for i := range t.items {
		*pending = append(*pending, value.ValuePair{A: t.items[i], B: ot.items[i]})
	}
	return true
}

func (t *Tuple) Bool(h *value.Heap) bool { return len(t.items) > 0 }

func (t *Tuple) ReprParts(h *value.Heap) []value.ReprPart {
	return seqParts("(", ")", t.items, len(t.items) == 1)
}

func (t *Tuple) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'tuple' object has no attribute '%s'", name)
}

func (t *Tuple) DecRefChildren(stack *[]value.HeapId) { pushRefs(t.items, stack) }
func (t *Tuple) ContainsRefs() bool                    { return t.containsRefs }
