package excno

import "testing"

func TestTypeStringRoundTripsThroughByName(t *testing.T) {
	types := []Type{
		TypeError, ValueError, NameError, AttributeError, IndexError, KeyError,
		ZeroDivisionError, StopIteration, MemoryError, AllocationError,
		RecursionError, NotImplementedError, RuntimeError,
	}
	for _, want := range types {
		name := want.String()
		got, ok := TypeByName(name)
		if !ok {
			t.Errorf("TypeByName(%q) not found", name)
			continue
		}
		if got != want {
			t.Errorf("TypeByName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsExceptionNameRejectsUnknown(t *testing.T) {
	if IsExceptionName("InvalidHeapId") {
		t.Error("internal-only error kinds must not be constructible by user code")
	}
	if IsExceptionName("Banana") {
		t.Error("unrelated identifiers must not be classified as exception constructors")
	}
	if !IsExceptionName("ValueError") {
		t.Error("ValueError must be a constructible exception name")
	}
}

func TestUnknownTypeStringFallsBackToException(t *testing.T) {
	var bogus Type = 255
	if bogus.String() != "Exception" {
		t.Errorf("out-of-range Type.String() = %q, want \"Exception\"", bogus.String())
	}
}
