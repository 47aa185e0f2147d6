package excno

import (
	"fmt"
	"strings"

	"github.com/RayVR/monty/internal/value"
)

// FormatTraceback renders e's traceback outermost-frame-first, recursing
// into e.Cause first (if present) so the chained cause prints before the
// effect, exactly as CPython orders "The above exception was the direct
// cause of the following exception:". h resolves a heap-allocated Cause
// (raise X from Y transfers Y in as a Ref) back into the *Exception it
// points at; h may be nil when e is known to never carry a Ref cause.
func FormatTraceback(e *Exception, h *value.Heap) string {
	var b strings.Builder

	if cause := resolveCause(e, h); cause != nil {
		b.WriteString(FormatTraceback(cause, h))
		b.WriteString("\nThe above exception was the direct cause of the following exception:\n\n")
	}

	b.WriteString("Traceback (most recent call last):\n")
	frames := collectFrames(e.Frame)
	for _, f := range frames {
		fmt.Fprintf(&b, "  File %q, line %d, in %s\n", "<string>", f.Range.Line, f.FrameName)
	}
	fmt.Fprintf(&b, "%s: %s", e.ExcType, e.Message)
	return b.String()
}

// resolveCause looks up the *Exception behind e.Cause, or nil if e has no
// cause (or h is unavailable to resolve a heap-resident one).
func resolveCause(e *Exception, h *value.Heap) *Exception {
	if !e.Cause.IsRef() || h == nil {
		return nil
	}
	data, err := h.Get(e.Cause.HeapId())
	if err != nil {
		return nil
	}
	cause, ok := data.(*Exception)
	if !ok {
		return nil
	}
	return cause
}

// collectFrames walks the StackFrame parent chain and reverses it so the
// result is outermost-first for display.
func collectFrames(f *StackFrame) []*StackFrame {
	var frames []*StackFrame
	for cur := f; cur != nil; cur = cur.Parent {
		frames = append(frames, cur)
	}
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}
