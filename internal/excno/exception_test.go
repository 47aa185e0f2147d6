package excno

import (
	"strings"
	"testing"

	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/value"
)

func TestNewExceptionHasNoCauseOrFrame(t *testing.T) {
	e := New(ValueError, "bad input")
	if !e.Cause.IsNone() {
		t.Errorf("Cause = %v, want None", e.Cause)
	}
	if e.Frame != nil {
		t.Errorf("Frame = %+v, want nil", e.Frame)
	}
	if e.ContainsRefs() {
		t.Error("a fresh exception with no cause must not contain refs")
	}
}

func TestWithFrameAndWithCauseDoNotMutateOriginal(t *testing.T) {
	orig := New(ValueError, "e")
	frame := NewStackFrame(ast.CodeRange{Line: 3}, "<module>", nil)

	framed := orig.WithFrame(frame)
	if orig.Frame != nil {
		t.Fatal("WithFrame must not mutate the receiver")
	}
	if framed.Frame != frame {
		t.Fatal("WithFrame must attach the given frame to the copy")
	}

	caused := orig.WithCause(value.NewRef(7))
	if !orig.Cause.IsNone() {
		t.Fatal("WithCause must not mutate the receiver")
	}
	if caused.Cause.HeapId() != 7 {
		t.Fatalf("caused.Cause = %v, want Ref(7)", caused.Cause)
	}
	if !caused.ContainsRefs() {
		t.Error("an exception with a Ref cause must report ContainsRefs() true")
	}
}

func TestExceptionDecRefChildrenPushesCauseOnly(t *testing.T) {
	e := New(TypeError, "t").WithCause(value.NewRef(42))
	var stack []value.HeapId
	e.DecRefChildren(&stack)
	if len(stack) != 1 || stack[0] != 42 {
		t.Fatalf("DecRefChildren pushed %v, want [42]", stack)
	}

	var noCauseStack []value.HeapId
	New(TypeError, "t").DecRefChildren(&noCauseStack)
	if len(noCauseStack) != 0 {
		t.Fatalf("an exception with no cause must push nothing, got %v", noCauseStack)
	}
}

func TestExceptionEqComparesKindAndMessage(t *testing.T) {
	a := New(ValueError, "boom")
	b := New(ValueError, "boom")
	c := New(TypeError, "boom")
	d := New(ValueError, "different")

	var pending []value.ValuePair
	if !a.Eq(nil, b, &pending) {
		t.Error("same kind and message should compare equal")
	}
	if a.Eq(nil, c, &pending) {
		t.Error("different kind should not compare equal")
	}
	if a.Eq(nil, d, &pending) {
		t.Error("different message should not compare equal")
	}
	if len(pending) != 0 {
		t.Errorf("exception equality must not defer child pairs, got %v", pending)
	}
}

func TestExceptionReprIncludesKindAndMessage(t *testing.T) {
	e := New(KeyError, "missing")
	parts := e.ReprParts(nil)
	if len(parts) != 1 || parts[0].IsChild {
		t.Fatalf("ReprParts = %+v, want a single literal part", parts)
	}
	got := parts[0].Lit
	if !strings.Contains(got, "KeyError") || !strings.Contains(got, "missing") {
		t.Fatalf("repr = %q, want it to mention KeyError and the message", got)
	}
}

func TestExceptionCallAttrIsAttributeError(t *testing.T) {
	e := New(ValueError, "e")
	_, err := e.CallAttr(nil, "nonexistent", nil)
	exc, ok := err.(*Exception)
	if !ok || exc.ExcType != AttributeError {
		t.Fatalf("CallAttr error = %v, want AttributeError", err)
	}
}
