package types

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// Class is a minimal class object: a name and a flat method table. There is
// no MRO, no base classes, and no metaclasses: the accepted subset is
// single-level, attribute-dict classes only.
type Class struct {
	name    string
	methods map[string]value.Value // name -> Ref(Function)
}

// NewClass builds a Class with the given method table, taking ownership of
// the map (and the refcounts of its Values).
func NewClass(name string, methods map[string]value.Value) *Class {
	return &Class{name: name, methods: methods}
}

func (c *Class) Name() string { return c.name }

// Method looks up a method by name on the class itself (not an instance).
func (c *Class) Method(name string) (value.Value, bool) {
	v, ok := c.methods[name]
	return v, ok
}

func (c *Class) Type() value.TypeTag   { return value.TypeClass }
func (c *Class) EstimateSize() uintptr { return uintptr(32 + len(c.methods)*32) }
func (c *Class) Len() (int, bool)      { return 0, false }

func (c *Class) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.TypeError, "'class' object is not subscriptable")
}
func (c *Class) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'class' object does not support item assignment")
}
func (c *Class) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'class' object doesn't support item deletion")
}

func (c *Class) Iter(h *value.Heap) (value.Iterator, error) {
	return nil, notIterableErr(value.TypeClass)
}

func (c *Class) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	oc, ok := other.(*Class)
	return ok && oc == c
}
func (c *Class) Bool(h *value.Heap) bool { return true }

func (c *Class) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart("<class '" + c.name + "'>")}
}

// CallAttr is unused for user-defined method dispatch: invoking a method
// body requires the evaluator, which type-asserts *Class/*Instance directly
// rather than going through this generic hook (see internal/eval's call
// protocol). It exists only to satisfy value.HeapData.
func (c *Class) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'class' object has no attribute '%s'", name)
}

func (c *Class) DecRefChildren(stack *[]value.HeapId) {
	for _, v := range c.methods {
		if v.IsRef() {
			*stack = append(*stack, v.HeapId())
		}
	}
}
func (c *Class) ContainsRefs() bool { return len(c.methods) > 0 }

// Methods returns c's method table. The caller does not take ownership of
// the returned Values, used by internal/snapshot to walk and encode every
// bound method Ref without reaching into the unexported field.
func (c *Class) Methods() map[string]value.Value { return c.methods }
