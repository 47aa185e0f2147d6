package types

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// IteratorObj is the heap-resident wrapper around a value.Iterator,
// allocated when user code materializes an iterator with the `iter()`
// builtin so it can be held in a variable across statements (a bare
// value.Iterator returned from a container's Iter() method is normally
// only used transiently inside a `for` loop and never itself heap
// allocated).
type IteratorObj struct {
	it value.Iterator
}

// NewIteratorObj wraps it for heap storage.
func NewIteratorObj(it value.Iterator) *IteratorObj { return &IteratorObj{it: it} }

// Next delegates to the wrapped iterator.
func (o *IteratorObj) Next(h *value.Heap) (value.Value, bool, error) { return o.it.Next(h) }

func (o *IteratorObj) Type() value.TypeTag   { return value.TypeIterator }
func (o *IteratorObj) EstimateSize() uintptr { return 32 }
func (o *IteratorObj) Len() (int, bool)      { return 0, false }

func (o *IteratorObj) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.TypeError, "'iterator' object is not subscriptable")
}
func (o *IteratorObj) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'iterator' object does not support item assignment")
}
func (o *IteratorObj) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'iterator' object doesn't support item deletion")
}

func (o *IteratorObj) Iter(h *value.Heap) (value.Iterator, error) { return o, nil }

func (o *IteratorObj) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	return o == other
}
func (o *IteratorObj) Bool(h *value.Heap) bool { return true }

func (o *IteratorObj) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart("<iterator>")}
}

func (o *IteratorObj) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'iterator' object has no attribute '%s'", name)
}

func (o *IteratorObj) DecRefChildren(stack *[]value.HeapId) {}
func (o *IteratorObj) ContainsRefs() bool                    { return false }

// RangeIterator walks 0..size without allocating the heap (a Range is
// always a primitive value, never heap-resident).
type RangeIterator struct {
	size int64
	pos  int64
}

// NewRangeIterator builds an iterator over 0..size.
func NewRangeIterator(size int64) *RangeIterator { return &RangeIterator{size: size} }

func (r *RangeIterator) Next(h *value.Heap) (value.Value, bool, error) {
	if r.pos >= r.size {
		return value.None, false, nil
	}
	v := value.NewInt(r.pos)
	r.pos++
	return v, true, nil
}
