package eval

import (
	"testing"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

func TestBuiltinSeqDrainsRange(t *testing.T) {
	h := newHeap()
	v, err := builtinSeq(h, value.NewRange(4), false)
	if err != nil {
		t.Fatalf("list(range(4)): %v", err)
	}
	data, _ := h.Get(v.HeapId())
	l, ok := data.(*types.List)
	if !ok {
		t.Fatalf("got %T, want *types.List", data)
	}
	if n, _ := l.Len(); n != 4 {
		t.Fatalf("len = %d, want 4", n)
	}
	if l.Items()[3].Int() != 3 {
		t.Fatalf("last element = %v, want 3", l.Items()[3])
	}
}

func TestBuiltinSeqTupleFromList(t *testing.T) {
	h := newHeap()
	listID, _ := h.Allocate(types.NewList([]value.Value{value.NewInt(1), value.NewInt(2)}))
	v, err := builtinSeq(h, value.NewRef(listID), true)
	if err != nil {
		t.Fatalf("tuple(list): %v", err)
	}
	data, _ := h.Get(v.HeapId())
	tup, ok := data.(*types.Tuple)
	if !ok {
		t.Fatalf("got %T, want *types.Tuple", data)
	}
	if n, _ := tup.Len(); n != 2 {
		t.Fatalf("len = %d, want 2", n)
	}
}

func TestBuiltinSeqNonIterable(t *testing.T) {
	h := newHeap()
	_, err := builtinSeq(h, value.NewInt(1), false)
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("list(1): got %v, want TypeError", err)
	}
}

// dict(d) is a shallow copy: mutating the copy never shows through the
// source.
func TestBuiltinDictCopyIsIndependent(t *testing.T) {
	h := newHeap()
	src := types.NewDict()
	if err := src.SetItem(h, value.NewInt(1), value.NewInt(10)); err != nil {
		t.Fatalf("setitem: %v", err)
	}
	srcID, _ := h.Allocate(src)

	v, err := builtinDict(h, value.NewRef(srcID))
	if err != nil {
		t.Fatalf("dict(d): %v", err)
	}
	data, _ := h.Get(v.HeapId())
	cp, ok := data.(*types.Dict)
	if !ok {
		t.Fatalf("got %T, want *types.Dict", data)
	}
	if err := cp.SetItem(h, value.NewInt(1), value.NewInt(99)); err != nil {
		t.Fatalf("setitem on copy: %v", err)
	}
	orig, err := src.GetItem(h, value.NewInt(1))
	if err != nil {
		t.Fatalf("getitem on source: %v", err)
	}
	if orig.Int() != 10 {
		t.Fatalf("source value = %v, want 10 (copy must be independent)", orig)
	}
}

func TestBuiltinDictRejectsNonDict(t *testing.T) {
	h := newHeap()
	listID, _ := h.Allocate(types.NewList(nil))
	_, err := builtinDict(h, value.NewRef(listID))
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("dict(list): got %v, want TypeError", err)
	}
	_, err = builtinDict(h, value.NewInt(1))
	if err == nil || excType(t, err) != excno.TypeError {
		t.Fatalf("dict(1): got %v, want TypeError", err)
	}
}
