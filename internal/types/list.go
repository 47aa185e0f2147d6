package types

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// List is Monty's mutable sequence type. Unlike Tuple, containsRefs is
// recomputed whenever the contents change, since mutation can add or
// remove the last Ref element.
type List struct {
	items        []value.Value
	containsRefs bool
}

// NewList builds a List from items, taking ownership of the slice.
func NewList(items []value.Value) *List {
	return &List{items: items, containsRefs: anyRef(items)}
}

func (l *List) Items() []value.Value { return l.items }

func (l *List) Type() value.TypeTag   { return value.TypeList }
func (l *List) EstimateSize() uintptr { return uintptr(24 + len(l.items)*24) }
func (l *List) Len() (int, bool)      { return len(l.items), true }

func (l *List) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	idx, err := normalizeIndex(key, len(l.items), "list")
	if err != nil {
		return value.None, err
	}
	return h.CloneValue(l.items[idx]), nil
}

func (l *List) SetItem(h *value.Heap, key, val value.Value) error {
	idx, err := normalizeIndex(key, len(l.items), "list")
	if err != nil {
		return err
	}
	old := l.items[idx]
	l.items[idx] = val
	h.DropValue(old)
	l.recomputeContainsRefs()
	return nil
}

func (l *List) DelItem(h *value.Heap, key value.Value) error {
	idx, err := normalizeIndex(key, len(l.items), "list")
	if err != nil {
		return err
	}
	h.DropValue(l.items[idx])
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.recomputeContainsRefs()
	return nil
}

// Append adds val to the end of the list. The caller must have already
// accounted for val's refcount (e.g. via h.CloneValue at the call site).
func (l *List) Append(val value.Value) {
	l.items = append(l.items, val)
	if val.IsRef() {
		l.containsRefs = true
	}
}

func (l *List) recomputeContainsRefs() {
	l.containsRefs = anyRef(l.items)
}

func (l *List) Iter(h *value.Heap) (value.Iterator, error) {
	// Snapshot the current item slice: list iteration is still "lazy" in
	// the sense of not eagerly cloning every element, but must not observe
	// appends made to the list during iteration (matches a sequence
	// iterator taken over a fixed-length view).
	snapshot := make([]value.Value, len(l.items))
	copy(snapshot, l.items)
	return &sliceIterator{h: h, items: snapshot}, nil
}

func (l *List) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	ol, ok := other.(*List)
	if !ok || len(l.items) != len(ol.items) {
		return false
	}
	for i := range l.items {
		*pending = append(*pending, value.ValuePair{A: l.items[i], B: ol.items[i]})
	}
	return true
}

func (l *List) Bool(h *value.Heap) bool { return len(l.items) > 0 }

func (l *List) ReprParts(h *value.Heap) []value.ReprPart {
	return seqParts("[", "]", l.items, false)
}

func (l *List) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "append":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "append() takes exactly one argument (%d given)", len(args))
		}
		l.Append(h.CloneValue(args[0]))
		return value.None, nil
	case "pop":
		if len(l.items) == 0 {
			return value.None, excno.Newf(excno.IndexError, "pop from empty list")
		}
		last := l.items[len(l.items)-1]
		l.items = l.items[:len(l.items)-1]
		l.recomputeContainsRefs()
		return last, nil
	default:
		return value.None, excno.Newf(excno.AttributeError, "'list' object has no attribute '%s'", name)
	}
}

func (l *List) DecRefChildren(stack *[]value.HeapId) { pushRefs(l.items, stack) }
func (l *List) ContainsRefs() bool                    { return l.containsRefs }
