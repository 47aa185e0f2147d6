package eval

import (
	"testing"

	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/limits"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

func newHeap() *value.Heap { return value.NewHeap(limits.Unlimited{}) }

func excType(t *testing.T, err error) excno.Type {
	t.Helper()
	exc, ok := err.(*excno.Exception)
	if !ok {
		t.Fatalf("error %v is not an *excno.Exception", err)
	}
	return exc.ExcType
}

func TestBinOpIntArithmetic(t *testing.T) {
	h := newHeap()
	v, err := BinOp(h, ast.OpAdd, value.NewInt(1), value.NewInt(2))
	if err != nil {
		t.Fatalf("1+2: %v", err)
	}
	if v.Kind() != value.KindInt || v.Int() != 3 {
		t.Fatalf("1+2 = %v, want Int(3)", v)
	}
	v, err = BinOp(h, ast.OpMul, value.NewInt(6), value.NewInt(7))
	if err != nil {
		t.Fatalf("6*7: %v", err)
	}
	if v.Int() != 42 {
		t.Fatalf("6*7 = %v, want 42", v)
	}
}

func TestBinOpIntFloatPromotion(t *testing.T) {
	h := newHeap()
	v, err := BinOp(h, ast.OpAdd, value.NewInt(1), value.NewFloat(2.5))
	if err != nil {
		t.Fatalf("1+2.5: %v", err)
	}
	if v.Kind() != value.KindFloat || v.Float() != 3.5 {
		t.Fatalf("1+2.5 = %v, want Float(3.5)", v)
	}
}

// True division always yields a float, even on exact integer operands.
func TestBinOpTrueDivIsFloat(t *testing.T) {
	h := newHeap()
	v, err := BinOp(h, ast.OpDiv, value.NewInt(4), value.NewInt(2))
	if err != nil {
		t.Fatalf("4/2: %v", err)
	}
	if v.Kind() != value.KindFloat || v.Float() != 2 {
		t.Fatalf("4/2 = %v, want Float(2)", v)
	}
}

// Floor division and modulo round toward negative infinity, not zero.
func TestBinOpFloorDivModNegatives(t *testing.T) {
	h := newHeap()
	v, err := BinOp(h, ast.OpFloorDiv, value.NewInt(-7), value.NewInt(2))
	if err != nil {
		t.Fatalf("-7//2: %v", err)
	}
	if v.Int() != -4 {
		t.Fatalf("-7//2 = %v, want -4", v)
	}
	v, err = BinOp(h, ast.OpMod, value.NewInt(-7), value.NewInt(2))
	if err != nil {
		t.Fatalf("-7%%2: %v", err)
	}
	if v.Int() != 1 {
		t.Fatalf("-7%%2 = %v, want 1", v)
	}
}

func TestBinOpZeroDivision(t *testing.T) {
	h := newHeap()
	for _, op := range []ast.Operator{ast.OpDiv, ast.OpFloorDiv, ast.OpMod} {
		_, err := BinOp(h, op, value.NewInt(1), value.NewInt(0))
		if err == nil || excType(t, err) != excno.ZeroDivisionError {
			t.Fatalf("1 %s 0: got %v, want ZeroDivisionError", op, err)
		}
	}
}

func TestBinOpMatMulTypeError(t *testing.T) {
	h := newHeap()
	_, err := BinOp(h, ast.OpMatMul, value.NewInt(1), value.NewInt(2))
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("1 @ 2: got %v, want TypeError", err)
	}
}

func TestBinOpStrConcat(t *testing.T) {
	h := newHeap()
	a, _ := h.Allocate(types.NewStr("foo"))
	b, _ := h.Allocate(types.NewStr("bar"))
	v, err := BinOp(h, ast.OpAdd, value.NewRef(a), value.NewRef(b))
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	data, _ := h.Get(v.HeapId())
	if data.(*types.Str).Value() != "foobar" {
		t.Fatalf("concat = %q, want foobar", data.(*types.Str).Value())
	}
}

func TestBinOpStrPlusIntTypeError(t *testing.T) {
	h := newHeap()
	a, _ := h.Allocate(types.NewStr("foo"))
	_, err := BinOp(h, ast.OpAdd, value.NewRef(a), value.NewInt(1))
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("str+int: got %v, want TypeError", err)
	}
}

// Repeating a list clones each element per copy: the shared inner object's
// refcount grows by the repetition count.
func TestBinOpListRepeatClonesElements(t *testing.T) {
	h := newHeap()
	inner, _ := h.Allocate(types.NewStr("x"))
	listID, _ := h.Allocate(types.NewList([]value.Value{value.NewRef(inner)}))

	v, err := BinOp(h, ast.OpMul, value.NewRef(listID), value.NewInt(3))
	if err != nil {
		t.Fatalf("list*3: %v", err)
	}
	data, _ := h.Get(v.HeapId())
	if n, _ := data.Len(); n != 3 {
		t.Fatalf("len(list*3) = %d, want 3", n)
	}
	// 1 (the source list's handle, transferred from the allocator) + 3
	// (one clone per copy in the product).
	if got := h.RefCount(inner); got != 4 {
		t.Fatalf("inner refcount = %d, want 4", got)
	}
}

func TestBinOpRepeatNonPositiveIsEmpty(t *testing.T) {
	h := newHeap()
	listID, _ := h.Allocate(types.NewList([]value.Value{value.NewInt(1)}))
	v, err := BinOp(h, ast.OpMul, value.NewInt(0), value.NewRef(listID))
	if err != nil {
		t.Fatalf("0*list: %v", err)
	}
	data, _ := h.Get(v.HeapId())
	if n, _ := data.Len(); n != 0 {
		t.Fatalf("len(0*list) = %d, want 0", n)
	}
}

func TestCompareMembership(t *testing.T) {
	h := newHeap()
	listID, _ := h.Allocate(types.NewList([]value.Value{value.NewInt(1), value.NewInt(2)}))
	v, err := Compare(h, ast.OpIn, value.NewInt(2), value.NewRef(listID))
	if err != nil {
		t.Fatalf("2 in list: %v", err)
	}
	if !v.Bool() {
		t.Fatal("2 in [1, 2] must be true")
	}
	v, err = Compare(h, ast.OpNotIn, value.NewInt(3), value.NewRef(listID))
	if err != nil {
		t.Fatalf("3 not in list: %v", err)
	}
	if !v.Bool() {
		t.Fatal("3 not in [1, 2] must be true")
	}
}

func TestCompareStringOrdering(t *testing.T) {
	h := newHeap()
	a, _ := h.Allocate(types.NewStr("apple"))
	b, _ := h.Allocate(types.NewStr("banana"))
	v, err := Compare(h, ast.OpLt, value.NewRef(a), value.NewRef(b))
	if err != nil {
		t.Fatalf("str <: %v", err)
	}
	if !v.Bool() {
		t.Fatal(`"apple" < "banana" must be true`)
	}
}

// Ordering across unrelated types is a TypeError, not a silent false.
func TestCompareMixedOrderingTypeError(t *testing.T) {
	h := newHeap()
	a, _ := h.Allocate(types.NewStr("a"))
	_, err := Compare(h, ast.OpLt, value.NewInt(1), value.NewRef(a))
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("1 < str: got %v, want TypeError", err)
	}
}

func TestCompareEqualityNeverErrors(t *testing.T) {
	h := newHeap()
	a, _ := h.Allocate(types.NewStr("a"))
	v, err := Compare(h, ast.OpEq, value.NewInt(1), value.NewRef(a))
	if err != nil {
		t.Fatalf("cross-type ==: %v", err)
	}
	if v.Bool() {
		t.Fatal("1 == str must be false")
	}
}

func TestNegate(t *testing.T) {
	v, err := Negate(value.NewInt(5))
	if err != nil {
		t.Fatalf("-5: %v", err)
	}
	if v.Int() != -5 {
		t.Fatalf("-5 = %v", v)
	}
	v, err = Negate(value.NewBool(true))
	if err != nil {
		t.Fatalf("-True: %v", err)
	}
	if v.Kind() != value.KindInt || v.Int() != -1 {
		t.Fatalf("-True = %v, want Int(-1)", v)
	}
	if _, err := Negate(value.None); err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("-None: got %v, want TypeError", err)
	}
}

func TestTruthy(t *testing.T) {
	h := newHeap()
	cases := []struct {
		v    value.Value
		want bool
	}{
		{value.None, false},
		{value.NewInt(0), false},
		{value.NewInt(-1), true},
		{value.NewFloat(0), false},
		{value.NewBool(true), true},
		{value.NewRange(0), false},
		{value.NewRange(3), true},
	}
	for _, c := range cases {
		got, err := Truthy(h, c.v)
		if err != nil {
			t.Fatalf("truthy(%v): %v", c.v, err)
		}
		if got != c.want {
			t.Errorf("truthy(%v) = %t, want %t", c.v, got, c.want)
		}
	}

	empty, _ := h.Allocate(types.NewList(nil))
	full, _ := h.Allocate(types.NewList([]value.Value{value.NewInt(1)}))
	if got, _ := Truthy(h, value.NewRef(empty)); got {
		t.Error("empty list must be falsy")
	}
	if got, _ := Truthy(h, value.NewRef(full)); !got {
		t.Error("non-empty list must be truthy")
	}
}
