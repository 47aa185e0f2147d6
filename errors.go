package monty

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// CompileError wraps a failure to compile source into a Run. The CLI
// maps it to exit code 3.
type CompileError struct {
	Filename string
	Message  string
}

func (e *CompileError) Error() string {
	return e.Filename + ": " + e.Message
}

func newCompileError(filename string, err error) *CompileError {
	return &CompileError{Filename: filename, Message: err.Error()}
}

// Exception is the host-facing mirror of an uncaught excno.Exception: a
// typed exception kind, message, and formatted traceback.
type Exception struct {
	Kind       string
	Message    string
	Traceback  string
}

func (e *Exception) Error() string {
	return e.Kind + ": " + e.Message
}

// newException builds the host-facing Exception, resolving exc's cause
// chain (raise X from Y) against h so an uncaught exception's
// Traceback actually prints "The above exception was the direct cause of
// the following exception:" when Y escaped as a heap-resident Ref cause.
// h may be nil when no heap is available (e.g. a compile-time failure).
func newException(exc *excno.Exception, h *value.Heap) *Exception {
	return &Exception{
		Kind:      exc.ExcType.String(),
		Message:   exc.Message,
		Traceback: excno.FormatTraceback(exc, h),
	}
}

// asException converts an arbitrary internal error into the host-facing
// Exception shape, routing it through excno.FromError first so a bare
// resource-tracker or heap error becomes its typed exception kind rather
// than leaking a Go error type across the public boundary. h is the heap
// the failing run was using, needed to resolve a chained cause.
func asException(err error, h *value.Heap) *Exception {
	if err == nil {
		return nil
	}
	return newException(excno.FromError(err), h)
}
