package types

import (
	"strings"
	"testing"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/limits"
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

func TestListNegativeIndex(t *testing.T) {
	h := newHeap()
	l := NewList([]value.Value{value.NewInt(10), value.NewInt(20), value.NewInt(30)})
	v, err := l.GetItem(h, value.NewInt(-1))
	if err != nil {
		t.Fatalf("getitem: %v", err)
	}
	if v.Int() != 30 {
		t.Fatalf("l[-1] = %v, want 30", v)
	}
}

func TestListIndexOutOfRange(t *testing.T) {
	h := newHeap()
	l := NewList([]value.Value{value.NewInt(1)})
	_, err := l.GetItem(h, value.NewInt(5))
	if err == nil || excType(t, err) != excno.IndexError {
		t.Fatalf("got %v, want IndexError", err)
	}
	_, err = l.GetItem(h, value.NewInt(-2))
	if err == nil || excType(t, err) != excno.IndexError {
		t.Fatalf("got %v, want IndexError for -2 on len-1 list", err)
	}
}

func TestStrNonIntegerIndexTypeError(t *testing.T) {
	h := newHeap()
	s := NewStr("abc")
	_, err := s.GetItem(h, value.NewFloat(1.5))
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("got %v, want TypeError", err)
	}
}

func TestTupleRejectsMutation(t *testing.T) {
	h := newHeap()
	tup := NewTuple([]value.Value{value.NewInt(1)})
	if err := tup.SetItem(h, value.NewInt(0), value.NewInt(2)); err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("setitem on tuple: got %v, want TypeError", err)
	}
	if err := tup.DelItem(h, value.NewInt(0)); err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("delitem on tuple: got %v, want TypeError", err)
	}
}

// Bool, Int, and Float keys share one numeric bucket: d[1], d[True], and
// d[1.0] all name the same entry.
func TestDictNumericKeyUnification(t *testing.T) {
	h := newHeap()
	d := NewDict()
	if err := d.SetItem(h, value.NewInt(1), value.NewInt(100)); err != nil {
		t.Fatalf("setitem: %v", err)
	}
	v, err := d.GetItem(h, value.NewBool(true))
	if err != nil {
		t.Fatalf("d[True]: %v", err)
	}
	if v.Int() != 100 {
		t.Fatalf("d[True] = %v, want 100", v)
	}
	v, err = d.GetItem(h, value.NewFloat(1.0))
	if err != nil {
		t.Fatalf("d[1.0]: %v", err)
	}
	if v.Int() != 100 {
		t.Fatalf("d[1.0] = %v, want 100", v)
	}
	if n, _ := d.Len(); n != 1 {
		t.Fatalf("len = %d, want 1 (all three keys unify)", n)
	}
}

func TestDictMissingKeyIsKeyError(t *testing.T) {
	h := newHeap()
	d := NewDict()
	_, err := d.GetItem(h, value.NewInt(9))
	if err == nil || excType(t, err) != excno.KeyError {
		t.Fatalf("got %v, want KeyError", err)
	}
}

func TestDictUnhashableKey(t *testing.T) {
	h := newHeap()
	id, err := h.Allocate(NewList(nil))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	d := NewDict()
	if err := d.SetItem(h, value.NewRef(id), value.NewInt(1)); err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("got %v, want TypeError for a list key", err)
	}
}

// Deleting a middle entry keeps every later key resolvable: the hash index
// shifts down with the entry slice.
func TestDictDelItemReindexes(t *testing.T) {
	h := newHeap()
	d := NewDict()
	for i := int64(0); i < 3; i++ {
		if err := d.SetItem(h, value.NewInt(i), value.NewInt(i*10)); err != nil {
			t.Fatalf("setitem %d: %v", i, err)
		}
	}
	if err := d.DelItem(h, value.NewInt(1)); err != nil {
		t.Fatalf("delitem: %v", err)
	}
	v, err := d.GetItem(h, value.NewInt(2))
	if err != nil {
		t.Fatalf("d[2] after del: %v", err)
	}
	if v.Int() != 20 {
		t.Fatalf("d[2] = %v, want 20", v)
	}
	if n, _ := d.Len(); n != 2 {
		t.Fatalf("len = %d, want 2", n)
	}
}

func TestListContainsRefsTracksMutation(t *testing.T) {
	h := newHeap()
	l := NewList([]value.Value{value.NewInt(1)})
	if l.ContainsRefs() {
		t.Fatal("int-only list must report ContainsRefs false")
	}
	id, _ := h.Allocate(NewStr("x"))
	if err := l.SetItem(h, value.NewInt(0), value.NewRef(id)); err != nil {
		t.Fatalf("setitem: %v", err)
	}
	if !l.ContainsRefs() {
		t.Fatal("list holding a Ref must report ContainsRefs true")
	}
	if err := l.DelItem(h, value.NewInt(0)); err != nil {
		t.Fatalf("delitem: %v", err)
	}
	if l.ContainsRefs() {
		t.Fatal("emptied list must report ContainsRefs false again")
	}
}

// A list containing itself prints an ellipsis marker instead of recursing.
func TestSelfReferentialListRepr(t *testing.T) {
	h := newHeap()
	id, err := h.Allocate(NewList(nil))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	data, _ := h.Get(id)
	l := data.(*List)
	l.Append(h.CloneValue(value.NewRef(id)))

	got := value.Repr(h, value.NewRef(id))
	if got != "[...]" {
		t.Fatalf("repr = %q, want %q", got, "[...]")
	}
}

func TestSingleElementTupleRepr(t *testing.T) {
	h := newHeap()
	id, err := h.Allocate(NewTuple([]value.Value{value.NewInt(1)}))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := value.Repr(h, value.NewRef(id)); got != "(1,)" {
		t.Fatalf("repr = %q, want %q", got, "(1,)")
	}
}

// Repr and equality both walk explicit work stacks, so a structure nested
// far deeper than any native call stack could survive still renders and
// compares without overflowing the host stack.
func TestDeeplyNestedReprAndEq(t *testing.T) {
	h := newHeap()
	const depth = 200000
	build := func() value.Value {
		cur := value.NewInt(1)
		for i := 0; i < depth; i++ {
			id, err := h.Allocate(NewList([]value.Value{cur}))
			if err != nil {
				t.Fatalf("allocate at depth %d: %v", i, err)
			}
			cur = value.NewRef(id)
		}
		return cur
	}
	a := build()
	b := build()

	if !ValuesEqual(h, a, b) {
		t.Fatal("identical deep structures must compare equal")
	}

	got := value.Repr(h, a)
	if len(got) != depth*2+1 {
		t.Fatalf("repr length = %d, want %d", len(got), depth*2+1)
	}
	if !strings.HasPrefix(got, "[[") || !strings.HasSuffix(got, "]]") {
		t.Fatalf("repr = %q...%q, want nested list brackets", got[:4], got[len(got)-4:])
	}
}

// Comparing two distinct cyclic lists terminates, treating the in-progress
// pair as equal, instead of regenerating the same obligation forever.
func TestCyclicListEqualityTerminates(t *testing.T) {
	h := newHeap()
	mk := func() value.Value {
		id, err := h.Allocate(NewList(nil))
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		data, _ := h.Get(id)
		data.(*List).Append(h.CloneValue(value.NewRef(id)))
		return value.NewRef(id)
	}
	a, b := mk(), mk()
	if !ValuesEqual(h, a, b) {
		t.Fatal("structurally identical cycles must compare equal")
	}
}

func TestStrUpperLowerMethods(t *testing.T) {
	h := newHeap()
	s := NewStr("Hi")
	v, err := s.CallAttr(h, "upper", nil)
	if err != nil {
		t.Fatalf("upper: %v", err)
	}
	data, _ := h.Get(v.HeapId())
	if data.(*Str).Value() != "HI" {
		t.Fatalf("upper = %q, want HI", data.(*Str).Value())
	}
	v, err = s.CallAttr(h, "lower", nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	data, _ = h.Get(v.HeapId())
	if data.(*Str).Value() != "hi" {
		t.Fatalf("lower = %q, want hi", data.(*Str).Value())
	}
	if _, err := s.CallAttr(h, "nope", nil); err == nil || excType(t, err) != excno.AttributeError {
		t.Fatalf("got %v, want AttributeError", err)
	}
}

func TestListAppendPopMethods(t *testing.T) {
	h := newHeap()
	l := NewList(nil)
	if _, err := l.CallAttr(h, "append", []value.Value{value.NewInt(7)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	v, err := l.CallAttr(h, "pop", nil)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if v.Int() != 7 {
		t.Fatalf("pop = %v, want 7", v)
	}
	if _, err := l.CallAttr(h, "pop", nil); err == nil || excType(t, err) != excno.IndexError {
		t.Fatalf("pop on empty list: got %v, want IndexError", err)
	}
}

func TestValuesEqualCrossTypeNumerics(t *testing.T) {
	h := newHeap()
	if !ValuesEqual(h, value.NewInt(1), value.NewFloat(1.0)) {
		t.Error("1 == 1.0 must hold")
	}
	if !ValuesEqual(h, value.NewBool(true), value.NewInt(1)) {
		t.Error("True == 1 must hold")
	}
	if ValuesEqual(h, value.None, value.NewInt(0)) {
		t.Error("None must not equal 0")
	}
	id, _ := h.Allocate(NewStr("a"))
	if ValuesEqual(h, value.NewRef(id), value.NewInt(1)) {
		t.Error("a Ref must never equal a primitive")
	}

	id2, _ := h.Allocate(NewStr("a"))
	if !ValuesEqual(h, value.NewRef(id), value.NewRef(id2)) {
		t.Error("distinct Str refs with equal content must compare equal")
	}
}

// List iteration walks a snapshot of the contents: appends made while
// iterating are not observed.
func TestListIterIgnoresConcurrentAppend(t *testing.T) {
	h := newHeap()
	l := NewList([]value.Value{value.NewInt(1), value.NewInt(2)})
	it, err := l.Iter(h)
	if err != nil {
		t.Fatalf("iter: %v", err)
	}
	var seen []int64
	for {
		v, ok, err := it.Next(h)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		seen = append(seen, v.Int())
		l.Append(value.NewInt(99))
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("iterated %v, want [1 2]", seen)
	}
}
