package excno

import (
	"fmt"

	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/value"
)

// StackFrame is one entry of an exception's traceback: the source range the
// raise (or the propagating call) occurred at, the enclosing function's
// name, and a link to the caller's own StackFrame.
type StackFrame struct {
	Range      ast.CodeRange
	FrameName  string
	Parent     *StackFrame
}

// NewStackFrame builds a StackFrame linking to parent.
func NewStackFrame(r ast.CodeRange, frameName string, parent *StackFrame) *StackFrame {
	return &StackFrame{Range: r, FrameName: frameName, Parent: parent}
}

// Exception is the heap-resident payload for a raised (or caught) user
// exception. It implements value.HeapData so it can be stored in the
// arena, referenced, and refcounted like any other object.
type Exception struct {
	ExcType Type
	Message string
	Frame   *StackFrame
	// Cause is the exception from `raise X from Y`; value.None if absent.
	// Kept as a Value (possibly a heap Ref) so refcounting stays uniform
	// with every other container-of-values type.
	Cause value.Value
}

// New builds an uncaught Exception with no frame/cause attached yet.
func New(excType Type, message string) *Exception {
	return &Exception{ExcType: excType, Message: message, Cause: value.None}
}

// WithFrame returns a copy of e with its traceback frame attached; used by
// raise and by propagating calls to tag the innermost frame.
func (e *Exception) WithFrame(frame *StackFrame) *Exception {
	cp := *e
	cp.Frame = frame
	return &cp
}

// WithCause returns a copy of e with cause recorded, for `raise X from Y`.
func (e *Exception) WithCause(cause value.Value) *Exception {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.ExcType, e.Message)
}

// --- value.HeapData ---

func (e *Exception) Type() value.TypeTag    { return value.TypeException }
func (e *Exception) EstimateSize() uintptr  { return uintptr(64 + len(e.Message)) }
func (e *Exception) Len() (int, bool)       { return 0, false }

func (e *Exception) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	return value.None, TypeError.newf("'%s' object is not subscriptable", e.ExcType)
}

func (e *Exception) SetItem(h *value.Heap, key, val value.Value) error {
	return TypeError.newf("'%s' object does not support item assignment", e.ExcType)
}

func (e *Exception) DelItem(h *value.Heap, key value.Value) error {
	return TypeError.newf("'%s' object does not support item deletion", e.ExcType)
}

func (e *Exception) Iter(h *value.Heap) (value.Iterator, error) {
	return nil, TypeError.newf("'%s' object is not iterable", e.ExcType)
}

func (e *Exception) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	oe, ok := other.(*Exception)
	if !ok {
		return false
	}
	return e.ExcType == oe.ExcType && e.Message == oe.Message
}

func (e *Exception) Bool(h *value.Heap) bool { return true }

func (e *Exception) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart(fmt.Sprintf("%s(%q)", e.ExcType, e.Message))}
}

func (e *Exception) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, AttributeError.newf("'%s' object has no attribute '%s'", e.ExcType, name)
}

func (e *Exception) DecRefChildren(stack *[]value.HeapId) {
	if e.Cause.IsRef() {
		*stack = append(*stack, e.Cause.HeapId())
	}
}

func (e *Exception) ContainsRefs() bool { return e.Cause.IsRef() }

// newf is a convenience used both internally and by internal/types to
// build a *Exception without also attaching a frame (the caller's raise
// site or call site attaches one via WithFrame).
func (t Type) newf(format string, args ...interface{}) *Exception {
	return New(t, fmt.Sprintf(format, args...))
}

// Newf is the exported form of newf, used by internal/types and
// internal/eval to construct typed exceptions at the point of failure.
func Newf(t Type, format string, args ...interface{}) *Exception {
	return t.newf(format, args...)
}
