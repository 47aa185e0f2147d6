package frame

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/eval"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/position"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

// CallUser implements eval.Caller: it resolves name against the program's
// flat function list, binds arguments into a fresh child frame's namespace,
// and either runs the call immediately or, for a generator function, parks
// it as a types.FrameObj without executing a single statement (mirroring
// Python's own "calling a generator function builds an iterator" rule).
func (f *Frame) CallUser(name string, args []value.Value, kwargs []eval.KwArg) (value.Value, *eval.PendingCall, error) {
	def := f.lookupFunc(name)
	if def == nil {
		return value.None, nil, excno.Newf(excno.NameError, "name '%s' is not defined", name)
	}
	if def.IsGenerator {
		return f.startGenerator(def, args, kwargs)
	}
	return f.invoke(def, args, kwargs)
}

func (f *Frame) lookupFunc(name string) *ast.FuncDef {
	for _, def := range f.prog.Funcs {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// bindParams allocates a namespace vector of def.NumSlots and fills its
// parameter slots from args/kwargs, positional-then-keyword. An omitted
// parameter that has a default is bound to None; its default expression is
// not evaluated. Extra slots beyond the params stay value.None, matching a
// freshly zeroed local namespace.
func bindParams(def *ast.FuncDef, args []value.Value, kwargs []eval.KwArg, h *value.Heap) ([]value.Value, error) {
	ns := make([]value.Value, def.NumSlots)
	nreq := len(def.Params) - len(def.Defaults)
	if len(args) > len(def.Params) {
		return nil, excno.Newf(excno.TypeError, "%s() takes at most %d arguments (%d given)", def.Name, len(def.Params), len(args))
	}
	filled := make([]bool, len(def.Params))
	for i, a := range args {
		ns[def.Params[i].Slot] = h.CloneValue(a)
		filled[i] = true
	}
	for _, kw := range kwargs {
		idx := -1
		for i, p := range def.Params {
			if p.Name == kw.Name {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, excno.Newf(excno.TypeError, "%s() got an unexpected keyword argument '%s'", def.Name, kw.Name)
		}
		if filled[idx] {
			return nil, excno.Newf(excno.TypeError, "%s() got multiple values for argument '%s'", def.Name, kw.Name)
		}
		ns[def.Params[idx].Slot] = h.CloneValue(kw.Value)
		filled[idx] = true
	}
	for i := 0; i < len(def.Params); i++ {
		if filled[i] {
			continue
		}
		if i < nreq {
			return nil, excno.Newf(excno.TypeError, "%s() missing required argument '%s'", def.Name, def.Params[i].Name)
		}
		ns[def.Params[i].Slot] = value.None // the default expression is not evaluated; the slot holds None
	}
	return ns, nil
}

// invoke runs def synchronously as a brand-new child frame, charging one
// unit of recursion depth for the call's duration.
func (f *Frame) invoke(def *ast.FuncDef, args []value.Value, kwargs []eval.KwArg) (value.Value, *eval.PendingCall, error) {
	ns, err := bindParams(def, args, kwargs, f.heap)
	if err != nil {
		return value.None, nil, err
	}
	if err := f.tracker.ChargeFrame(); err != nil {
		dropNS(f.heap, ns)
		return value.None, nil, excno.FromError(err)
	}
	defer f.tracker.ReleaseFrame()

	child := &Frame{
		heap:    f.heap,
		prog:    f.prog,
		ns:      ns,
		name:    def.Name,
		tracker: f.tracker,
		// Nested user-function calls never suspend (see the RuntimeError
		// below), so the child frame has nothing to resume; it must not
		// share f.pos, which belongs to the module-level resume stack.
		pos:   position.NoopTracker{},
		print: f.print,
	}
	v, pc, err := child.Run(def.Body)
	dropNS(f.heap, ns)
	if pc != nil {
		return value.None, nil, excno.Newf(excno.RuntimeError, "external/OS calls or a module-level yield are not supported inside a nested function call")
	}
	return v, nil, err
}

func dropNS(h *value.Heap, ns []value.Value) {
	for _, v := range ns {
		h.DropValue(v)
	}
}

// CallMethod implements eval.Caller: an *types.Instance dispatches through
// its class's method table (binding receiver as the method's first
// parameter); any other heap object dispatches through its native
// value.HeapData.CallAttr.
func (f *Frame) CallMethod(receiver value.Value, name string, args []value.Value) (value.Value, *eval.PendingCall, error) {
	if !receiver.IsRef() {
		return value.None, nil, excno.Newf(excno.AttributeError, "'%s' object has no attribute '%s'", receiver.Kind(), name)
	}
	data, err := f.heap.Get(receiver.HeapId())
	if err != nil {
		return value.None, nil, err
	}
	if inst, ok := data.(*types.Instance); ok {
		methodVal, err := inst.GetAttr(f.heap, name)
		if err != nil {
			return value.None, nil, err
		}
		defer f.heap.DropValue(methodVal)
		if !methodVal.IsRef() {
			return value.None, nil, excno.Newf(excno.TypeError, "'%s' object is not callable", name)
		}
		fnData, err := f.heap.Get(methodVal.HeapId())
		if err != nil {
			return value.None, nil, err
		}
		fn, ok := fnData.(*types.Function)
		if !ok {
			return value.None, nil, excno.Newf(excno.TypeError, "'%s' object is not callable", name)
		}
		boundArgs := append([]value.Value{receiver}, args...)
		if fn.IsGenerator() {
			return f.startGenerator(fn.Def(), boundArgs, nil)
		}
		return f.invoke(fn.Def(), boundArgs, nil)
	}
	v, err := data.CallAttr(f.heap, name, args)
	return v, nil, err
}
