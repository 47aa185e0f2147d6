package value

import "testing"

// stubData is a minimal HeapData for exercising the arena in isolation
// from internal/types.
type stubData struct {
	children []HeapId
	size     uintptr
}

func (s *stubData) Type() TypeTag        { return TypeStr }
func (s *stubData) EstimateSize() uintptr { return s.size }
func (s *stubData) Len() (int, bool)     { return 0, false }
func (s *stubData) GetItem(*Heap, Value) (Value, error) { return None, nil }
func (s *stubData) SetItem(*Heap, Value, Value) error   { return nil }
func (s *stubData) DelItem(*Heap, Value) error          { return nil }
func (s *stubData) Iter(*Heap) (Iterator, error)          { return nil, nil }
func (s *stubData) Eq(*Heap, HeapData, *[]ValuePair) bool { return false }
func (s *stubData) Bool(*Heap) bool                       { return true }
func (s *stubData) ReprParts(*Heap) []ReprPart            { return nil }
func (s *stubData) CallAttr(*Heap, string, []Value) (Value, error) { return None, nil }
func (s *stubData) DecRefChildren(stack *[]HeapId)                 { *stack = append(*stack, s.children...) }
func (s *stubData) ContainsRefs() bool                              { return len(s.children) > 0 }

type unlimitedTracker struct{}

func (unlimitedTracker) ChargeMemory(uintptr) error { return nil }
func (unlimitedTracker) ChargeAllocation() error    { return nil }

func TestAllocateAssignsSequentialIds(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	id1, err := h.Allocate(&stubData{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	id2, err := h.Allocate(&stubData{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if id1 != 0 || id2 != 1 {
		t.Fatalf("ids = %d, %d, want 0, 1", id1, id2)
	}
	if h.RefCount(id1) != 1 {
		t.Errorf("fresh refcount = %d, want 1", h.RefCount(id1))
	}
}

func TestDecRefTombstonesAtZero(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	id, _ := h.Allocate(&stubData{})
	h.DecRef(id)
	if h.Valid(id) {
		t.Fatal("slot should be tombstoned after refcount hits zero")
	}
	if _, err := h.Get(id); err == nil {
		t.Fatal("Get on tombstoned id should error")
	}
}

func TestDecRefChainReclaimsChildrenIteratively(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	leaf, _ := h.Allocate(&stubData{})
	root, _ := h.Allocate(&stubData{children: []HeapId{leaf}})
	// leaf's single reference from Allocate is the one root holds.

	h.DecRef(root)
	if h.Valid(root) {
		t.Fatal("root should be reclaimed")
	}
	if h.Valid(leaf) {
		t.Fatal("leaf should be reclaimed once root's reference drops")
	}
}

func TestIncRefKeepsSharedValueAlive(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	id, _ := h.Allocate(&stubData{})
	h.IncRef(id)
	h.DecRef(id)
	if !h.Valid(id) {
		t.Fatal("object with an outstanding reference must survive one DecRef")
	}
	h.DecRef(id)
	if h.Valid(id) {
		t.Fatal("object should be reclaimed after the matching second DecRef")
	}
}

func TestTransactionalAllocateRollsBackOnFailure(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	child, _ := h.Allocate(&stubData{})
	h.IncRef(child) // simulate the child ref the failing build already took

	baseline := h.LiveRefcountSum()
	_, err := h.TransactionalAllocate(func() (HeapData, []HeapId, error) {
		return nil, []HeapId{child}, errFail
	})
	if err == nil {
		t.Fatal("expected the build error to propagate")
	}
	if got := h.LiveRefcountSum(); got != baseline-1 {
		t.Fatalf("refcount sum after rollback = %d, want %d (child ref undone)", got, baseline-1)
	}
}

var errFail = &HeapError{Op: "test-fail"}

func TestDropValueOnNonRefIsNoop(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	h.DropValue(NewInt(3))
	h.DropValue(None)
	if h.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", h.LiveCount())
	}
}

func TestCloneValueIncrementsRefForRefOnly(t *testing.T) {
	h := NewHeap(unlimitedTracker{})
	id, _ := h.Allocate(&stubData{})
	ref := NewRef(id)

	cloned := h.CloneValue(ref)
	if cloned.HeapId() != id {
		t.Fatalf("CloneValue changed the id")
	}
	if h.RefCount(id) != 2 {
		t.Fatalf("RefCount() = %d, want 2 after clone", h.RefCount(id))
	}

	h.CloneValue(NewInt(5))
	if h.LiveCount() != 1 {
		t.Errorf("cloning a non-Ref value must not allocate")
	}
}
