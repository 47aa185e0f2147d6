// Package eval implements expression evaluation: walking an ast.Expr tree
// against a frame's namespace and the heap, producing a value.Value or a
// typed exception. It never owns control flow (loops, if/while, try);
// that's internal/frame's job, which calls back into EvalExpr for every
// expression it needs evaluated.
package eval

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/intern"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

// PendingCall is produced when evaluation reaches a call the evaluator
// itself cannot resolve: a host-supplied external function, or a call into
// the sandboxed os.* namespace. internal/frame turns this into a
// suspend.Exit at the points the protocol supports suspension (see that
// package's CallInfo). internal/frame also builds one directly (bypassing
// evalCall) for a module-level `yield` statement, setting IsYield instead
// of IsOS; see frame.go's NYield handling.
type PendingCall struct {
	IsOS    bool
	IsYield bool
	Name    string
	Args    []value.Value
	Kwargs  []KwArg
}

// KwArg mirrors ast.KwArg but with an evaluated Value.
type KwArg struct {
	Name  string
	Value value.Value
}

// Caller lets EvalExpr dispatch a user-function or bound-method call back
// up to whatever owns frame construction (internal/frame), without eval
// importing that package; frame implements Caller and passes itself down
// through every recursive EvalExpr call, avoiding an eval<->frame import
// cycle.
type Caller interface {
	// CallUser invokes the user function named name with the given
	// positional args and kwargs (source order preserved). A non-nil
	// PendingCall return means the callee itself suspended on an
	// external/OS call.
	CallUser(name string, args []value.Value, kwargs []KwArg) (value.Value, *PendingCall, error)

	// CallMethod invokes a method on a heap object by HeapId: either a
	// *types.Instance (dispatches to its class's Function, binding self)
	// or any other HeapData (dispatches to its native CallAttr).
	CallMethod(receiver value.Value, name string, args []value.Value) (value.Value, *PendingCall, error)
}

// Env bundles everything EvalExpr needs besides the expression itself.
type Env struct {
	Heap    *value.Heap
	NS      []value.Value
	Prog    *ast.Program
	Interns *intern.Table
	Caller  Caller
	// Print receives `print(...)`'s formatted output. internal/monty wires
	// this to the host-supplied PrintSink (see that package's print.go).
	Print func(string)

	// CallMemo holds, in encounter order, the already-resolved results of
	// external/OS calls this statement previously suspended on; MemoIdx is
	// the shared cursor into it. A statement resuming after a suspend is
	// re-evaluated from its start (position tracking only has
	// statement-level granularity, not sub-expression granularity), so any
	// external/OS call reached before MemoIdx reaches len(CallMemo) returns
	// its memoized result instead of asking the host again. Nil/0 during a
	// normal, non-resuming evaluation.
	CallMemo []value.Value
	MemoIdx  *int
}

// EvalExpr evaluates e against env, returning either a Value, a
// PendingCall (from an External/OS call reached anywhere inside e; one
// reached inside a nested user-function call is turned into a
// RuntimeError by internal/frame's invoke), or an error.
func EvalExpr(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	switch e.Kind {
	case ast.EConst:
		if e.Attr != "" { // string literal marker, see internal/compile's parseAtom
			id, err := env.Heap.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) {
				return types.NewStr(e.Attr), nil, nil
			})
			if err != nil {
				return value.None, nil, err
			}
			return value.NewRef(id), nil, nil
		}
		return e.Const, nil, nil

	case ast.EIdent:
		return env.Heap.CloneValue(env.NS[e.Ident.Slot]), nil, nil

	case ast.EBinOp:
		left, pc, err := EvalExpr(env, e.Left)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		right, pc, err := EvalExpr(env, e.Right)
		if err != nil || pc != nil {
			env.Heap.DropValue(left)
			return value.None, pc, err
		}
		v, err := BinOp(env.Heap, e.Op, left, right)
		env.Heap.DropValue(left)
		env.Heap.DropValue(right)
		return v, nil, err

	case ast.ECompare:
		left, pc, err := EvalExpr(env, e.Left)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		right, pc, err := EvalExpr(env, e.Right)
		if err != nil || pc != nil {
			env.Heap.DropValue(left)
			return value.None, pc, err
		}
		v, err := Compare(env.Heap, e.Op, left, right)
		env.Heap.DropValue(left)
		env.Heap.DropValue(right)
		return v, nil, err

	case ast.EUnaryNeg:
		operand, pc, err := EvalExpr(env, e.Operand)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		v, err := Negate(operand)
		env.Heap.DropValue(operand)
		return v, nil, err

	case ast.ENot:
		operand, pc, err := EvalExpr(env, e.Operand)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		b, err := Truthy(env.Heap, operand)
		env.Heap.DropValue(operand)
		if err != nil {
			return value.None, nil, err
		}
		return value.NewBool(!b), nil, nil

	case ast.EBoolOp:
		return evalBoolOp(env, e)

	case ast.ECall:
		return evalCall(env, e)

	case ast.EIndex:
		obj, pc, err := EvalExpr(env, e.Object)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		key, pc, err := EvalExpr(env, e.Key)
		if err != nil || pc != nil {
			env.Heap.DropValue(obj)
			return value.None, pc, err
		}
		v, err := getItem(env.Heap, obj, key)
		env.Heap.DropValue(obj)
		env.Heap.DropValue(key)
		return v, nil, err

	case ast.EAttr:
		obj, pc, err := EvalExpr(env, e.Object)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		v, err := getAttr(env.Heap, obj, attrName(env, e.Attr, e.AttrID))
		env.Heap.DropValue(obj)
		return v, nil, err

	case ast.EList:
		return evalList(env, e)
	case ast.ETuple:
		return evalTuple(env, e)
	case ast.EDict:
		return evalDict(env, e)
	}
	return value.None, nil, excno.AsRuntimeError(excno.CorruptSnapshot, "unknown expression kind")
}

func evalBoolOp(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	var last value.Value = value.NewBool(e.BoolOp == ast.BoolAnd)
	for i, operand := range e.Operands {
		v, pc, err := EvalExpr(env, operand)
		if err != nil || pc != nil {
			return value.None, pc, err
		}
		if i > 0 {
			env.Heap.DropValue(last)
		}
		last = v
		truth, err := Truthy(env.Heap, v)
		if err != nil {
			env.Heap.DropValue(v)
			return value.None, nil, err
		}
		if e.BoolOp == ast.BoolAnd && !truth {
			return last, nil, nil
		}
		if e.BoolOp == ast.BoolOr && truth {
			return last, nil, nil
		}
	}
	return last, nil, nil
}

func evalList(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	items := make([]value.Value, 0, len(e.Elems))
	for _, el := range e.Elems {
		v, pc, err := EvalExpr(env, el)
		if err != nil || pc != nil {
			for _, it := range items {
				env.Heap.DropValue(it)
			}
			return value.None, pc, err
		}
		items = append(items, v)
	}
	id, err := env.Heap.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) {
		return types.NewList(items), refIDs(items), nil
	})
	if err != nil {
		return value.None, nil, err
	}
	return value.NewRef(id), nil, nil
}

func evalTuple(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	items := make([]value.Value, 0, len(e.Elems))
	for _, el := range e.Elems {
		v, pc, err := EvalExpr(env, el)
		if err != nil || pc != nil {
			for _, it := range items {
				env.Heap.DropValue(it)
			}
			return value.None, pc, err
		}
		items = append(items, v)
	}
	id, err := env.Heap.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) {
		return types.NewTuple(items), refIDs(items), nil
	})
	if err != nil {
		return value.None, nil, err
	}
	return value.NewRef(id), nil, nil
}

func evalDict(env *Env, e *ast.Expr) (value.Value, *PendingCall, error) {
	d := types.NewDict()
	var rollback []value.HeapId
	for i := range e.Keys {
		k, pc, err := EvalExpr(env, e.Keys[i])
		if err != nil || pc != nil {
			dropAll(env.Heap, rollback)
			return value.None, pc, err
		}
		v, pc, err := EvalExpr(env, e.Vals[i])
		if err != nil || pc != nil {
			env.Heap.DropValue(k)
			dropAll(env.Heap, rollback)
			return value.None, pc, err
		}
		if err := d.SetItem(env.Heap, k, v); err != nil {
			env.Heap.DropValue(k)
			env.Heap.DropValue(v)
			dropAll(env.Heap, rollback)
			return value.None, nil, err
		}
		env.Heap.DropValue(k) // SetItem clones the key for storage
		if k.IsRef() {
			rollback = append(rollback, k.HeapId())
		}
		if v.IsRef() {
			rollback = append(rollback, v.HeapId())
		}
	}
	id, err := env.Heap.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) {
		return d, rollback, nil
	})
	if err != nil {
		return value.None, nil, err
	}
	return value.NewRef(id), nil, nil
}

func dropAll(h *value.Heap, ids []value.HeapId) {
	for _, id := range ids {
		h.DecRef(id)
	}
}

func refIDs(items []value.Value) []value.HeapId {
	var ids []value.HeapId
	for _, v := range items {
		if v.IsRef() {
			ids = append(ids, v.HeapId())
		}
	}
	return ids
}

// Truthy implements the language's boolean coercion: None and zero numerics
// are false, heap objects defer to their Bool method.
func Truthy(h *value.Heap, v value.Value) (bool, error) {
	switch v.Kind() {
	case value.KindNone:
		return false, nil
	case value.KindBool:
		return v.Bool(), nil
	case value.KindInt:
		return v.Int() != 0, nil
	case value.KindFloat:
		return v.Float() != 0, nil
	case value.KindRange:
		return v.RangeSize() != 0, nil
	case value.KindRef:
		data, err := h.Get(v.HeapId())
		if err != nil {
			return false, err
		}
		return data.Bool(h), nil
	}
	return false, nil
}

func getItem(h *value.Heap, obj, key value.Value) (value.Value, error) {
	if !obj.IsRef() {
		return value.None, excno.Newf(excno.TypeError, "'%s' object is not subscriptable", obj.Kind())
	}
	data, err := h.Get(obj.HeapId())
	if err != nil {
		return value.None, err
	}
	return data.GetItem(h, key)
}

// attrName resolves an attribute/method name through env.Interns by its
// interned id, falling back to the raw parsed string if the table is
// unavailable or the id was never assigned (e.g. a hand-built *ast.Expr in
// a test that skipped internal/compile's Resolve pass).
func attrName(env *Env, raw string, id intern.StringId) string {
	if env.Interns == nil {
		return raw
	}
	if s, ok := env.Interns.Lookup(id); ok {
		return s
	}
	return raw
}

func getAttr(h *value.Heap, obj value.Value, name string) (value.Value, error) {
	if !obj.IsRef() {
		return value.None, excno.Newf(excno.AttributeError, "'%s' object has no attribute '%s'", obj.Kind(), name)
	}
	data, err := h.Get(obj.HeapId())
	if err != nil {
		return value.None, err
	}
	if inst, ok := data.(*types.Instance); ok {
		return inst.GetAttr(h, name)
	}
	if cls, ok := data.(*types.Class); ok {
		if v, ok := cls.Method(name); ok {
			return h.CloneValue(v), nil
		}
		return value.None, excno.Newf(excno.AttributeError, "'class' object has no attribute '%s'", name)
	}
	return value.None, excno.Newf(excno.AttributeError, "'%s' object has no attribute '%s'", data.Type(), name)
}
