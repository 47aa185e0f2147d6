package types

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// Function is the heap payload for a compiled user function. It holds a
// pointer into the immutable, already-compiled program (never copied,
// never part of a snapshot) plus the
// default-argument values evaluated once at def time, since Defaults on the
// ast.FuncDef are unevaluated expressions shared by every call.
type Function struct {
	def      *ast.FuncDef
	defaults []value.Value
}

// NewFunction builds a Function from its compiled definition and the
// default values evaluated at definition time, in parameter order,
// right-aligned against def.Params (trailing parameters get defaults first,
// matching Python's own rule).
func NewFunction(def *ast.FuncDef, defaults []value.Value) *Function {
	return &Function{def: def, defaults: defaults}
}

func (f *Function) Def() *ast.FuncDef      { return f.def }
func (f *Function) Defaults() []value.Value { return f.defaults }
func (f *Function) Name() string            { return f.def.Name }
func (f *Function) IsGenerator() bool       { return f.def.IsGenerator }

func (f *Function) Type() value.TypeTag   { return value.TypeFunction }
func (f *Function) EstimateSize() uintptr { return uintptr(48 + len(f.defaults)*24) }
func (f *Function) Len() (int, bool)      { return 0, false }

func (f *Function) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.TypeError, "'function' object is not subscriptable")
}
func (f *Function) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'function' object does not support item assignment")
}
func (f *Function) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'function' object doesn't support item deletion")
}

func (f *Function) Iter(h *value.Heap) (value.Iterator, error) {
	return nil, notIterableErr(value.TypeFunction)
}

func (f *Function) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	of, ok := other.(*Function)
	return ok && of.def == f.def
}
func (f *Function) Bool(h *value.Heap) bool { return true }

func (f *Function) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart("<function " + f.def.Name + ">")}
}

func (f *Function) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'function' object has no attribute '%s'", name)
}

func (f *Function) DecRefChildren(stack *[]value.HeapId) { pushRefs(f.defaults, stack) }
func (f *Function) ContainsRefs() bool                    { return anyRef(f.defaults) }
