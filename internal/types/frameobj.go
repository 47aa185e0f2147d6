package types

import (
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// GeneratorState is the contract a suspended generator call frame must
// satisfy to be wrapped as a heap-resident Frame object. internal/frame
// implements this interface on its frame type; it is declared here (rather
// than imported from internal/frame) so internal/types never depends on
// internal/frame, keeping the import graph acyclic.
type GeneratorState interface {
	// Resume continues execution from the last yield point (or from the
	// top, on first call) and runs until the next `yield`, a `return`, or
	// the frame falling off its body. ok is false once the generator is
	// exhausted; subsequent calls after ok==false also return ok==false.
	Resume(h *value.Heap) (val value.Value, ok bool, err error)

	// ReleaseRefs returns every heap Ref presently live in the paused
	// frame's namespace, so the arena can dec_ref them when the FrameObj
	// wrapping this generator is itself reclaimed.
	ReleaseRefs() []value.HeapId

	// Close abandons the generator if it is parked mid-body, so a
	// generator the host never drives to exhaustion doesn't leave
	// anything running in the background.
	Close()
}

// FrameObj is the heap payload for a generator call: calling a function
// whose body contains `yield` does not run the body, it allocates a FrameObj
// wrapping the function's (not yet started) execution state and returns that
// as the call's result. Iterating the FrameObj drives the generator forward.
type FrameObj struct {
	gen     GeneratorState
	funcRef string // function name, for repr only
	done    bool
}

// NewFrameObj wraps a generator's paused execution state.
func NewFrameObj(gen GeneratorState, funcName string) *FrameObj {
	return &FrameObj{gen: gen, funcRef: funcName}
}

func (f *FrameObj) Type() value.TypeTag   { return value.TypeFrame }
func (f *FrameObj) EstimateSize() uintptr { return 64 }
func (f *FrameObj) Len() (int, bool)      { return 0, false }

func (f *FrameObj) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.TypeError, "'generator' object is not subscriptable")
}
func (f *FrameObj) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'generator' object does not support item assignment")
}
func (f *FrameObj) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'generator' object doesn't support item deletion")
}

// Next implements value.Iterator directly on the FrameObj, so a generator's
// heap id doubles as its own iterator: `for x in gen_call():` never needs to
// allocate a second heap object.
func (f *FrameObj) Next(h *value.Heap) (value.Value, bool, error) {
	if f.done {
		return value.None, false, nil
	}
	val, ok, err := f.gen.Resume(h)
	if err != nil || !ok {
		f.done = true
	}
	return val, ok, err
}

func (f *FrameObj) Iter(h *value.Heap) (value.Iterator, error) { return f, nil }

func (f *FrameObj) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	return f == other
}
func (f *FrameObj) Bool(h *value.Heap) bool { return true }

func (f *FrameObj) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart("<generator object " + f.funcRef + ">")}
}

func (f *FrameObj) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	return value.None, excno.Newf(excno.AttributeError, "'generator' object has no attribute '%s'", name)
}

// DecRefChildren releases whatever heap Refs the generator's paused
// namespace still holds and abandons its goroutine if it never ran to
// exhaustion, since this is only called once - when the arena is tombstoning
// this slot for good.
func (f *FrameObj) DecRefChildren(stack *[]value.HeapId) {
	f.gen.Close()
	*stack = append(*stack, f.gen.ReleaseRefs()...)
}

// ContainsRefs is conservatively always true: a generator's namespace
// mutates on every yield, so (unlike an immutable container) there is no
// cheap construction-time bound to cache instead.
func (f *FrameObj) ContainsRefs() bool { return true }
