package eval

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

func evalCall(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	// obj.method(...): the callee itself is an attribute expression whose
	// receiver must be evaluated first.
	if e.Callee.Kind == ast.EAttr && e.CallTarget != ast.CallOS {
		return evalMethodCall(env, e)
	}

	args, pc, err := evalArgs(env, e.Args)
	if err != nil || pc != nil {
		return value.None, pc, err
	}
	kwargs, pc, err := evalKwargs(env, e.Kwargs)
	if err != nil || pc != nil {
		dropAll2(env.Heap, args)
		return value.None, pc, err
	}

	switch e.CallTarget {
	case ast.CallBuiltin:
		v, err := callBuiltin(env, e.CallName, args, kwargs)
		dropAll2(env.Heap, args)
		return v, nil, err
	case ast.CallExternal:
		if v, ok := memoized(env); ok {
			dropAll2(env.Heap, args)
			return v, nil, nil
		}
		return value.None, &PendingCall{IsOS: false, Name: e.CallName, Args: args, Kwargs: kwargs}, nil
	case ast.CallOS:
		if v, ok := memoized(env); ok {
			dropAll2(env.Heap, args)
			return v, nil, nil
		}
		return value.None, &PendingCall{IsOS: true, Name: e.CallName, Args: args, Kwargs: kwargs}, nil
	case ast.CallUser:
		v, pc, err := env.Caller.CallUser(e.CallName, args, kwargs)
		dropAll2(env.Heap, args)
		return v, pc, err
	}
	return value.None, nil, excno.Newf(excno.RuntimeError, "unresolved call target for '%s'", e.CallName)
}

// memoized returns the next already-resolved external/OS call result for
// this statement's replay, if one is pending.
func memoized(env *Env) (value.Value, bool) {
	if env.MemoIdx == nil || *env.MemoIdx >= len(env.CallMemo) {
		return value.None, false
	}
	v := env.CallMemo[*env.MemoIdx]
	*env.MemoIdx++
	return env.Heap.CloneValue(v), true
}

func evalMethodCall(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	recv, pc, err := EvalExpr(env, e.Callee.Object)
	if err != nil || pc != nil {
		return value.None, pc, err
	}
	args, pc, err := evalArgs(env, e.Args)
	if err != nil || pc != nil {
		env.Heap.DropValue(recv)
		return value.None, pc, err
	}
	v, pc, err := env.Caller.CallMethod(recv, attrName(env, e.Callee.Attr, e.Callee.AttrID), args)
	env.Heap.DropValue(recv)
	dropAll2(env.Heap, args)
	return v, pc, err
}

func evalArgs(env *Env, exprs []*ast.Expr) ([]value.Value, *PendingCall, error) {
	args := make([]value.Value, 0, len(exprs))
	for _, a := range exprs {
		v, pc, err := EvalExpr(env, a)
		if err != nil || pc != nil {
			dropAll2(env.Heap, args)
			return nil, pc, err
		}
		args = append(args, v)
	}
	return args, nil, nil
}

func evalKwargs(env *Env, exprs []ast.KwArg) ([]KwArg, *PendingCall, error) {
	kwargs := make([]KwArg, 0, len(exprs))
	for _, kw := range exprs {
		v, pc, err := EvalExpr(env, kw.Value)
		if err != nil || pc != nil {
			for _, k := range kwargs {
				env.Heap.DropValue(k.Value)
			}
			return nil, pc, err
		}
		kwargs = append(kwargs, KwArg{Name: kw.Name, Value: v})
	}
	return kwargs, nil, nil
}

func dropAll2(h *value.Heap, vs []value.Value) {
	for _, v := range vs {
		h.DropValue(v)
	}
}

// callBuiltin implements the handful of builtins internal/compile's
// builtinNames table reserves. Each builtin borrows the args it's handed
// (evalCall drops them afterwards) and clones whatever it returns or
// stores, never aliasing caller-owned heap values back out.
func callBuiltin(env *Env, name string, args []value.Value, kwargs []KwArg) (value.Value, error) {
	switch name {
	case "len":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "len() takes exactly one argument")
		}
		return builtinLen(env.Heap, args[0])
	case "print":
		return builtinPrint(env, args)
	case "range":
		if len(args) != 1 || args[0].Kind() != value.KindInt {
			return value.None, excno.Newf(excno.TypeError, "range() expects a single integer argument")
		}
		return value.NewRange(args[0].Int()), nil
	case "iter":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "iter() takes exactly one argument")
		}
		return builtinIter(env.Heap, args[0])
	case "int":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "int() takes exactly one argument")
		}
		return builtinInt(args[0])
	case "float":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "float() takes exactly one argument")
		}
		f, ok := args[0].AsFloat()
		if !ok {
			return value.None, excno.Newf(excno.TypeError, "float() argument must be numeric")
		}
		return value.NewFloat(f), nil
	case "bool":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "bool() takes exactly one argument")
		}
		b, err := Truthy(env.Heap, args[0])
		if err != nil {
			return value.None, err
		}
		return value.NewBool(b), nil
	case "str":
		if len(args) != 1 {
			return value.None, excno.Newf(excno.TypeError, "str() takes exactly one argument")
		}
		return allocHeap(env.Heap, types.NewStr(displayString(env.Heap, args[0])))
	case "list":
		if len(args) > 1 {
			return value.None, excno.Newf(excno.TypeError, "list() takes at most one argument")
		}
		if len(args) == 0 {
			return allocHeap(env.Heap, types.NewList(nil))
		}
		return builtinSeq(env.Heap, args[0], false)
	case "tuple":
		if len(args) > 1 {
			return value.None, excno.Newf(excno.TypeError, "tuple() takes at most one argument")
		}
		if len(args) == 0 {
			return allocHeap(env.Heap, types.NewTuple(nil))
		}
		return builtinSeq(env.Heap, args[0], true)
	case "dict":
		if len(args) > 1 {
			return value.None, excno.Newf(excno.TypeError, "dict() takes at most one argument")
		}
		if len(args) == 0 {
			return allocHeap(env.Heap, types.NewDict())
		}
		return builtinDict(env.Heap, args[0])
	}
	if excType, ok := excno.TypeByName(name); ok {
		return callExceptionCtor(env, excType, args)
	}
	return value.None, excno.Newf(excno.NameError, "name '%s' is not defined", name)
}

// callExceptionCtor builds an Exception object for a direct call to one of
// the user-visible exception type names, e.g. `ValueError('bad input')`.
// The frame attaching this object to a traceback (raise) or catching it
// (except) fills in Frame/Cause afterward; a bare constructor call just
// produces the bare payload, as in `e = ValueError('x'); raise e`.
func callExceptionCtor(env *Env, excType excno.Type, args []value.Value) (value.Value, error) {
	if len(args) > 1 {
		return value.None, excno.Newf(excno.TypeError, "%s() takes at most one argument", excType)
	}
	msg := ""
	if len(args) == 1 {
		msg = displayString(env.Heap, args[0])
	}
	return allocHeap(env.Heap, excno.New(excType, msg))
}

func builtinPrint(env *Env, args []value.Value) (value.Value, error) {
	if env.Print == nil {
		return value.None, nil
	}
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += displayString(env.Heap, a)
	}
	env.Print(s)
	return value.None, nil
}

// displayString renders a value the way `print` shows it: unlike repr(), a
// top-level string prints its raw content, not a quoted literal.
func displayString(h *value.Heap, v value.Value) string {
	if v.IsRef() {
		if data, err := h.Get(v.HeapId()); err == nil {
			switch d := data.(type) {
			case *types.Str:
				return d.Value()
			case *excno.Exception:
				// str(exc) is its message alone, not "Kind(message)";
				// that longer form is what repr()/ReprParts renders.
				return d.Message
			}
		}
	}
	return value.Repr(h, v)
}

func builtinLen(h *value.Heap, v value.Value) (value.Value, error) {
	if !v.IsRef() {
		return value.None, excno.Newf(excno.TypeError, "object of type '%s' has no len()", v.Kind())
	}
	data, err := h.Get(v.HeapId())
	if err != nil {
		return value.None, err
	}
	n, ok := data.Len()
	if !ok {
		return value.None, excno.Newf(excno.TypeError, "object of type '%s' has no len()", data.Type())
	}
	return value.NewInt(int64(n)), nil
}

func builtinIter(h *value.Heap, v value.Value) (value.Value, error) {
	it, err := iteratorOf(h, v)
	if err != nil {
		return value.None, err
	}
	return allocHeap(h, types.NewIteratorObj(it))
}

// iteratorOf resolves v to a value.Iterator: a Range primitive gets its own
// counting iterator, anything else must be a heap object whose Iter
// succeeds.
func iteratorOf(h *value.Heap, v value.Value) (value.Iterator, error) {
	if v.Kind() == value.KindRange {
		return types.NewRangeIterator(v.RangeSize()), nil
	}
	if !v.IsRef() {
		return nil, excno.Newf(excno.TypeError, "'%s' object is not iterable", v.Kind())
	}
	data, err := h.Get(v.HeapId())
	if err != nil {
		return nil, err
	}
	return data.Iter(h)
}

// builtinSeq drains an iterable into a fresh List or Tuple. Elements the
// iterator hands out are already owned by the collector; if the final
// allocation is rejected, every collected element ref rolls back before the
// error surfaces, like every other fallible bulk allocation.
func builtinSeq(h *value.Heap, iterable value.Value, asTuple bool) (value.Value, error) {
	it, err := iteratorOf(h, iterable)
	if err != nil {
		return value.None, err
	}
	var items []value.Value
	for {
		v, ok, err := it.Next(h)
		if err != nil {
			dropAll2(h, items)
			return value.None, err
		}
		if !ok {
			break
		}
		items = append(items, v)
	}
	return allocCollected(h, items, asTuple)
}

func allocCollected(h *value.Heap, items []value.Value, asTuple bool) (value.Value, error) {
	var data value.HeapData
	if asTuple {
		data = types.NewTuple(items)
	} else {
		data = types.NewList(items)
	}
	return allocItemsHeap(h, data, items)
}

// builtinDict shallow-copies a dict. The accepted subset has no
// iterable-of-pairs form; anything but a dict argument is a TypeError.
func builtinDict(h *value.Heap, src value.Value) (value.Value, error) {
	if !src.IsRef() {
		return value.None, excno.Newf(excno.TypeError, "dict() argument must be a dict, not '%s'", src.Kind())
	}
	data, err := h.Get(src.HeapId())
	if err != nil {
		return value.None, err
	}
	sd, ok := data.(*types.Dict)
	if !ok {
		return value.None, excno.Newf(excno.TypeError, "dict() argument must be a dict, not '%s'", data.Type())
	}
	d := types.NewDict()
	var rollback []value.HeapId
	for _, e := range sd.Entries() {
		k := h.CloneValue(e.Key)
		v := h.CloneValue(e.Val)
		if err := d.SetItem(h, k, v); err != nil {
			h.DropValue(k)
			h.DropValue(v)
			dropAll(h, rollback)
			return value.None, err
		}
		h.DropValue(k) // SetItem clones the key for storage
		if e.Key.IsRef() {
			rollback = append(rollback, e.Key.HeapId())
		}
		if e.Val.IsRef() {
			rollback = append(rollback, e.Val.HeapId())
		}
	}
	id, err := h.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) {
		return d, rollback, nil
	})
	if err != nil {
		return value.None, err
	}
	return value.NewRef(id), nil
}

func builtinInt(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return v, nil
	case value.KindBool:
		if v.Bool() {
			return value.NewInt(1), nil
		}
		return value.NewInt(0), nil
	case value.KindFloat:
		return value.NewInt(int64(v.Float())), nil
	}
	return value.None, excno.Newf(excno.TypeError, "int() argument must be numeric")
}
