package types

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// Instance is an object of a Class: a heap id pointing at its Class plus its
// own attribute dict. Attribute lookup falls back to the class's method
// table when not found on the instance itself.
type Instance struct {
	classID value.HeapId
	attrs   map[string]value.Value
}

// NewInstance builds an Instance bound to classID with an empty attr dict.
func NewInstance(classID value.HeapId) *Instance {
	return &Instance{classID: classID, attrs: map[string]value.Value{}}
}

func (i *Instance) ClassID() value.HeapId { return i.classID }

// GetAttr resolves name on the instance dict first, then the class's method
// table. Returned Values are already cloned for the caller to own.
func (i *Instance) GetAttr(h *value.Heap, name string) (value.Value, error) {
	if v, ok := i.attrs[name]; ok {
		return h.CloneValue(v), nil
	}
	data, err := h.Get(i.classID)
	if err != nil {
		return value.None, err
	}
	cls, ok := data.(*Class)
	if !ok {
		return value.None, excno.AsRuntimeError(excno.InvalidHeapId, "instance class id does not reference a Class")
	}
	if v, ok := cls.Method(name); ok {
		return h.CloneValue(v), nil
	}
	return value.None, excno.Newf(excno.AttributeError, "'%s' object has no attribute '%s'", cls.Name(), name)
}

// SetAttr stores val under name, taking ownership of val and dropping
// whatever value.Value previously lived there.
func (i *Instance) SetAttr(h *value.Heap, name string, val value.Value) {
	if old, ok := i.attrs[name]; ok {
		h.DropValue(old)
	}
	i.attrs[name] = val
}

func (i *Instance) Type() value.TypeTag   { return value.TypeInstance }
func (i *Instance) EstimateSize() uintptr { return uintptr(32 + len(i.attrs)*32) }
func (i *Instance) Len() (int, bool)      { return 0, false }

func (i *Instance) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.TypeError, "'instance' object is not subscriptable")
}
func (i *Instance) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'instance' object does not support item assignment")
}
func (i *Instance) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'instance' object doesn't support item deletion")
}

func (i *Instance) Iter(h *value.Heap) (value.Iterator, error) {
	return nil, notIterableErr(value.TypeInstance)
}

func (i *Instance) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	oi, ok := other.(*Instance)
	return ok && oi == i
}
func (i *Instance) Bool(h *value.Heap) bool { return true }

func (i *Instance) ReprParts(h *value.Heap) []value.ReprPart {
	name := "object"
	if data, err := h.Get(i.classID); err == nil {
		if cls, ok := data.(*Class); ok {
			name = cls.Name()
		}
	}
	return []value.ReprPart{value.LitPart("<" + name + " instance>")}
}

// CallAttr is unused for user-defined method dispatch (see Class.CallAttr);
// kept only to satisfy value.HeapData.
func (i *Instance) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'instance' object has no attribute '%s'", name)
}

func (i *Instance) DecRefChildren(stack *[]value.HeapId) {
	*stack = append(*stack, i.classID)
	for _, v := range i.attrs {
		if v.IsRef() {
			*stack = append(*stack, v.HeapId())
		}
	}
}
func (i *Instance) ContainsRefs() bool { return true }

// Attrs returns i's attribute dict. The caller does not take ownership of
// the returned Values, used by internal/snapshot to walk and encode every
// instance attribute without reaching into the unexported field.
func (i *Instance) Attrs() map[string]value.Value { return i.attrs }
