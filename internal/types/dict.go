package types

import (
	"fmt"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

type dictEntry struct {
	key value.Value
	val value.Value
}

// Dict is Monty's mutable hash map, preserving insertion order on
// iteration. Keys must be hashable:
// None, Bool, Int, Float (unified under one numeric bucket, so 1 == True
// == 1.0 as keys) or Str; any other Ref key is unhashable.
type Dict struct {
	entries      []dictEntry
	index        map[string]int
	containsRefs bool
}

// NewDict builds an empty Dict.
func NewDict() *Dict {
	return &Dict{index: map[string]int{}}
}

func (d *Dict) Type() value.TypeTag   { return value.TypeDict }
func (d *Dict) EstimateSize() uintptr { return uintptr(32 + len(d.entries)*48) }
func (d *Dict) Len() (int, bool)      { return len(d.entries), true }

func hashKey(h *value.Heap, key value.Value) (string, error) {
	switch key.Kind() {
	case value.KindNone:
		return "n", nil
	case value.KindBool, value.KindInt, value.KindFloat:
		f, _ := key.AsFloat()
		return fmt.Sprintf("f:%v", f), nil
	case value.KindRef:
		data, err := h.Get(key.HeapId())
		if err != nil {
			return "", err
		}
		if s, ok := data.(*Str); ok {
			return "s:" + s.Value(), nil
		}
		return "", excno.Newf(excno.TypeError, "unhashable type: '%s'", data.Type())
	default:
		return "", excno.Newf(excno.TypeError, "unhashable type")
	}
}

func (d *Dict) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	hk, err := hashKey(h, key)
	if err != nil {
		return value.None, err
	}
	i, ok := d.index[hk]
	if !ok {
		return value.None, excno.Newf(excno.KeyError, "%s", value.Repr(h, key))
	}
	return h.CloneValue(d.entries[i].val), nil
}

func (d *Dict) Get(h *value.Heap, key, fallback value.Value) value.Value {
	hk, err := hashKey(h, key)
	if err != nil {
		return fallback
	}
	if i, ok := d.index[hk]; ok {
		return h.CloneValue(d.entries[i].val)
	}
	return fallback
}

// SetItem stores val under key, taking ownership of val (the caller must
// have already cloned it if retaining a reference elsewhere). If key names
// an existing entry, its old value is dropped and replaced; otherwise a
// clone of key is retained for storage.
func (d *Dict) SetItem(h *value.Heap, key, val value.Value) error {
	hk, err := hashKey(h, key)
	if err != nil {
		return err
	}
	if i, ok := d.index[hk]; ok {
		h.DropValue(d.entries[i].val)
		d.entries[i].val = val
	} else {
		d.index[hk] = len(d.entries)
		d.entries = append(d.entries, dictEntry{key: h.CloneValue(key), val: val})
	}
	d.recomputeContainsRefs()
	return nil
}

func (d *Dict) DelItem(h *value.Heap, key value.Value) error {
	hk, err := hashKey(h, key)
	if err != nil {
		return err
	}
	i, ok := d.index[hk]
	if !ok {
		return excno.Newf(excno.KeyError, "%s", value.Repr(h, key))
	}
	h.DropValue(d.entries[i].key)
	h.DropValue(d.entries[i].val)
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, hk)
	for k, idx := range d.index {
		if idx > i {
			d.index[k] = idx - 1
		}
	}
	d.recomputeContainsRefs()
	return nil
}

func (d *Dict) recomputeContainsRefs() {
	for _, e := range d.entries {
		if e.key.IsRef() || e.val.IsRef() {
			d.containsRefs = true
			return
		}
	}
	d.containsRefs = false
}

type dictKeyIterator struct {
	h    *value.Heap
	keys []value.Value
	pos  int
}

func (it *dictKeyIterator) Next(h *value.Heap) (value.Value, bool, error) {
	if it.pos >= len(it.keys) {
		return value.None, false, nil
	}
	v := h.CloneValue(it.keys[it.pos])
	it.pos++
	return v, true, nil
}

func (d *Dict) Iter(h *value.Heap) (value.Iterator, error) {
	keys := make([]value.Value, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return &dictKeyIterator{h: h, keys: keys}, nil
}

// Eq matches entries by hashed key (keys are hashable and therefore never
// themselves nested containers), deferring only the values to the caller's
// pending stack.
func (d *Dict) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	od, ok := other.(*Dict)
	if !ok || len(d.entries) != len(od.entries) {
		return false
	}
	for _, e := range d.entries {
		hk, err := hashKey(h, e.key)
		if err != nil {
			return false
		}
		oi, ok := od.index[hk]
		if !ok {
			return false
		}
		*pending = append(*pending, value.ValuePair{A: e.val, B: od.entries[oi].val})
	}
	return true
}

func (d *Dict) Bool(h *value.Heap) bool { return len(d.entries) > 0 }

func (d *Dict) ReprParts(h *value.Heap) []value.ReprPart {
	parts := make([]value.ReprPart, 0, 2+len(d.entries)*4)
	parts = append(parts, value.LitPart("{"))
	for i, e := range d.entries {
		if i > 0 {
			parts = append(parts, value.LitPart(", "))
		}
		parts = append(parts, value.ChildPart(e.key), value.LitPart(": "), value.ChildPart(e.val))
	}
	parts = append(parts, value.LitPart("}"))
	return parts
}

func (d *Dict) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "get":
		if len(args) == 0 || len(args) > 2 {
			return value.None, excno.Newf(excno.TypeError, "get() takes one or two arguments")
		}
		fallback := value.None
		if len(args) == 2 {
			fallback = args[1]
		}
		return d.Get(h, args[0], fallback), nil
	default:
		return value.None, excno.Newf(excno.AttributeError, "'dict' object has no attribute '%s'", name)
	}
}

func (d *Dict) DecRefChildren(stack *[]value.HeapId) {
	for _, e := range d.entries {
		if e.key.IsRef() {
			*stack = append(*stack, e.key.HeapId())
		}
		if e.val.IsRef() {
			*stack = append(*stack, e.val.HeapId())
		}
	}
}

func (d *Dict) ContainsRefs() bool { return d.containsRefs }

// DictEntry is a single key/value pair, exposed in insertion order; dict
// iteration order is observable, so a snapshot encoder needs this ordering
// preserved rather than reconstructible from a Go map.
type DictEntry struct {
	Key value.Value
	Val value.Value
}

// Entries returns a snapshot of d's key/value pairs in insertion order. The
// caller does not take ownership of the returned Values; it must clone
// anything it retains beyond d's own lifetime (e.g. for encoding into a
// snapshot stream).
func (d *Dict) Entries() []DictEntry {
	out := make([]DictEntry, len(d.entries))
	for i, e := range d.entries {
		out[i] = DictEntry{Key: e.key, Val: e.val}
	}
	return out
}

// RestoreDict rebuilds a Dict from previously-encoded entries, in the order
// given. Used by internal/snapshot to reconstruct a Dict's hash index without
// re-running SetItem's clone/replace bookkeeping.
func RestoreDict(h *value.Heap, entries []DictEntry) (*Dict, error) {
	d := NewDict()
	for _, e := range entries {
		hk, err := hashKey(h, e.Key)
		if err != nil {
			return nil, err
		}
		d.index[hk] = len(d.entries)
		d.entries = append(d.entries, dictEntry{key: e.Key, val: e.Val})
	}
	d.recomputeContainsRefs()
	return d, nil
}
