package excno

import (
	"errors"
	"fmt"

	"github.com/RayVR/monty/internal/limits"
	"github.com/RayVR/monty/internal/value"
)

// InternalKind enumerates error kinds that must never reach user code
// directly: they indicate either an interpreter bug or
// untrusted-snapshot tampering, and always surface as a RuntimeError with a
// diagnostic message rather than their own exception type.
type InternalKind uint8

const (
	InvalidHeapId InternalKind = iota
	CorruptSnapshot
	BudgetExhausted
)

func (k InternalKind) String() string {
	switch k {
	case InvalidHeapId:
		return "invalid heap id"
	case CorruptSnapshot:
		return "corrupt snapshot"
	case BudgetExhausted:
		return "budget exhausted"
	default:
		return "internal error"
	}
}

// AsRuntimeError wraps an internal failure as the single user-visible
// RuntimeError diagnostic used for InvalidHeapId/CorruptSnapshot/
// BudgetExhausted.
func AsRuntimeError(kind InternalKind, detail string) *Exception {
	return New(RuntimeError, fmt.Sprintf("internal error: %s: %s", kind, detail))
}

// FromError converts any error escaping internal/value or internal/limits
// into the typed Exception users see, instead of a bare
// Go error leaving the interpreter as an opaque failure. Already-typed
// Exceptions pass through unchanged. This is the single place that
// translates a resource-tracker charge failure into its corresponding
// exception kind (MemoryError/AllocationError/RecursionError), and an
// invalid-heap-id failure into the internal RuntimeError diagnostic -
// every error path through internal/frame's attachFrame runs through it, so
// no non-Exception error can reach a host as a naked Go error.
func FromError(err error) *Exception {
	if err == nil {
		return nil
	}
	if exc, ok := err.(*Exception); ok {
		return exc
	}
	switch {
	case errors.Is(err, limits.ErrMemory):
		return New(MemoryError, err.Error())
	case errors.Is(err, limits.ErrAllocation):
		return New(AllocationError, err.Error())
	case errors.Is(err, limits.ErrRecursion):
		return New(RecursionError, err.Error())
	case errors.Is(err, limits.ErrInstruction):
		return AsRuntimeError(BudgetExhausted, err.Error())
	}
	var heapErr *value.HeapError
	if errors.As(err, &heapErr) {
		return AsRuntimeError(InvalidHeapId, err.Error())
	}
	return New(RuntimeError, err.Error())
}
