package frame

import (
	"errors"
	"testing"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// countingTracker charges memory/allocation freely until the Nth
// allocation (1-indexed), which it rejects. Used to land a resource
// failure at an exact, deterministic point in a sequence of allocations.
type countingTracker struct {
	allocs   int
	failAt   int
}

var errBudget = errors.New("test budget exhausted")

func (t *countingTracker) ChargeMemory(uintptr) error { return nil }

func (t *countingTracker) ChargeAllocation() error {
	t.allocs++
	if t.allocs == t.failAt {
		return errBudget
	}
	return nil
}

// allocException must roll back a cause's transferred refcount when its own
// allocation fails, or a `raise X from Y` caught under a tight resource
// budget leaks the cause object's heap slot permanently.
func TestAllocExceptionRollsBackCauseRefOnFailure(t *testing.T) {
	tracker := &countingTracker{failAt: 2}
	h := value.NewHeap(tracker)

	causeID, err := h.Allocate(excno.New(excno.TypeError, "cause"))
	if err != nil {
		t.Fatalf("allocating the cause: %v", err)
	}
	if h.RefCount(causeID) != 1 {
		t.Fatalf("fresh cause refcount = %d, want 1", h.RefCount(causeID))
	}

	// exc.Cause takes over the cause's single owning reference without a
	// fresh IncRef, matching internal/frame's raise handling.
	exc := excno.New(excno.ValueError, "effect").WithCause(value.NewRef(causeID))

	_, allocErr := allocException(h, exc)
	if allocErr == nil {
		t.Fatal("expected the second allocation to fail")
	}
	if h.Valid(causeID) {
		t.Fatal("cause's heap slot must be reclaimed once its transferred ref rolls back")
	}
	if got := h.LiveRefcountSum(); got != 0 {
		t.Fatalf("heap refcount sum after rollback = %d, want 0 (no leak)", got)
	}
}

// When the exception being re-allocated has no cause, rollback must be a
// no-op: nothing should be decremented.
func TestAllocExceptionWithoutCauseSkipsRollback(t *testing.T) {
	tracker := &countingTracker{failAt: 1}
	h := value.NewHeap(tracker)

	exc := excno.New(excno.ValueError, "effect")
	_, allocErr := allocException(h, exc)
	if allocErr == nil {
		t.Fatal("expected the allocation to fail")
	}
	if got := h.LiveRefcountSum(); got != 0 {
		t.Fatalf("heap refcount sum = %d, want 0", got)
	}
	if got := h.LiveCount(); got != 0 {
		t.Fatalf("heap live count = %d, want 0 (failed allocation must not leave a slot)", got)
	}
}

// The success path: allocException must actually place the full exc
// (frame + cause included) on the heap and return a usable Ref.
func TestAllocExceptionSuccessPreservesCause(t *testing.T) {
	h := value.NewHeap(&countingTracker{failAt: 0})

	causeID, err := h.Allocate(excno.New(excno.TypeError, "cause"))
	if err != nil {
		t.Fatalf("allocating the cause: %v", err)
	}
	exc := excno.New(excno.ValueError, "effect").WithCause(value.NewRef(causeID))

	v, allocErr := allocException(h, exc)
	if allocErr != nil {
		t.Fatalf("allocException: %v", allocErr)
	}
	data, err := h.Get(v.HeapId())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stored, ok := data.(*excno.Exception)
	if !ok {
		t.Fatalf("stored data = %T, want *excno.Exception", data)
	}
	if !stored.Cause.IsRef() || stored.Cause.HeapId() != causeID {
		t.Fatalf("stored.Cause = %v, want Ref(%d)", stored.Cause, causeID)
	}
	if !h.Valid(causeID) {
		t.Fatal("cause must still be alive on the success path")
	}
}
