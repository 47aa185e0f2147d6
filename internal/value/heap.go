package value

import "fmt"

// TypeTag discriminates the payload kind of a heap slot.
type TypeTag uint8

const (
	TypeStr TypeTag = iota
	TypeBytes
	TypeList
	TypeTuple
	TypeDict
	TypeException
	TypeFunction
	TypeFrame
	TypeIterator
	TypeClass
	TypeInstance
)

func (t TypeTag) String() string {
	names := [...]string{"str", "bytes", "list", "tuple", "dict", "Exception",
		"function", "frame", "iterator", "class", "instance"}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// Iterator produces a lazy, non-restartable sequence of Values.
type Iterator interface {
	// Next returns the next value, or ok=false once exhausted.
	Next(h *Heap) (v Value, ok bool, err error)
}

// ValuePair is one pending equality obligation: two Values that must
// compare equal for the overall comparison to hold. HeapData.Eq appends
// its element pairs here instead of recursing, so the driver
// (internal/types' valuesEqual) can walk arbitrarily deep structures on an
// explicit heap-allocated stack, the same way DecRef walks reclamation.
type ValuePair struct {
	A, B Value
}

// HeapData is the capability set every arena-resident object implements.
// SetItem/DelItem are no-ops returning a type error on immutable types.
// Eq and ReprParts are deliberately non-recursive: each compares or renders
// only the receiver's own shallow structure, handing child Values back to
// their iterative drivers (valuesEqual, ReprValue) so adversarially deep
// object graphs can never overflow the host stack.
type HeapData interface {
	Type() TypeTag
	EstimateSize() uintptr
	Len() (int, bool)
	GetItem(h *Heap, key Value) (Value, error)
	SetItem(h *Heap, key, val Value) error
	DelItem(h *Heap, key Value) error
	Iter(h *Heap) (Iterator, error)
	Eq(h *Heap, other HeapData, pending *[]ValuePair) bool
	Bool(h *Heap) bool
	ReprParts(h *Heap) []ReprPart
	CallAttr(h *Heap, name string, args []Value) (Value, error)
	DecRefChildren(stack *[]HeapId)
	ContainsRefs() bool
}

// HeapError reports a failed heap operation that is not itself a user
// exception (invalid/tombstoned identifiers).
type HeapError struct {
	Op string
	Id HeapId
}

func (e *HeapError) Error() string {
	return fmt.Sprintf("monty: invalid heap id %d (%s)", e.Id, e.Op)
}

// ResourceTracker is the subset of internal/limits.Tracker the heap needs,
// declared locally to avoid an import cycle (internal/limits charges pure
// counters and has no dependency on value).
type ResourceTracker interface {
	ChargeMemory(n uintptr) error
	ChargeAllocation() error
}

type heapObject struct {
	refcount uint32
	data     HeapData
}

// Heap is the arena of HeapData objects backing every Ref in a run.
// Ids are monotonically assigned and never reused; a tombstoned slot is nil.
type Heap struct {
	slots   []*heapObject
	tracker ResourceTracker
}

// NewHeap creates an empty heap charging allocations against tracker.
func NewHeap(tracker ResourceTracker) *Heap {
	return &Heap{tracker: tracker}
}

// Allocate places data on the arena with refcount 1, charging the tracker
// for its estimated size first. Returns an error (never panics) if the
// charge is rejected.
func (h *Heap) Allocate(data HeapData) (HeapId, error) {
	if err := h.tracker.ChargeMemory(data.EstimateSize()); err != nil {
		return 0, err
	}
	if err := h.tracker.ChargeAllocation(); err != nil {
		return 0, err
	}
	id := HeapId(len(h.slots))
	h.slots = append(h.slots, &heapObject{refcount: 1, data: data})
	return id, nil
}

// TransactionalAllocate runs build (which may have already incremented
// child refcounts), then allocates its result. If the allocation fails,
// every id in the rollback slice returned by build is dec_ref'd before the
// error surfaces, so a resource-exhaustion path never leaks refcounts.
func (h *Heap) TransactionalAllocate(build func() (HeapData, []HeapId, error)) (HeapId, error) {
	data, rollback, err := build()
	if err != nil {
		for _, id := range rollback {
			h.DecRef(id)
		}
		return 0, err
	}
	id, err := h.Allocate(data)
	if err != nil {
		for _, rid := range rollback {
			h.DecRef(rid)
		}
		return 0, err
	}
	return id, nil
}

// IncRef increments the refcount of id. A tombstoned or out-of-range id is
// silently ignored: it can only arise from an internal bug, never from
// untrusted input, since every live Ref is validated at snapshot load time.
func (h *Heap) IncRef(id HeapId) {
	if obj := h.slot(id); obj != nil {
		obj.refcount++
	}
}

// DecRef decrements the refcount of id, tombstoning and reclaiming the slot
// (and iteratively its children) once it reaches zero. Uses an explicit
// work stack so an adversarially deep object graph cannot overflow the
// host stack.
func (h *Heap) DecRef(id HeapId) {
	stack := []HeapId{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj := h.slot(cur)
		if obj == nil {
			continue
		}
		if obj.refcount > 1 {
			obj.refcount--
			continue
		}
		h.slots[cur] = nil
		if obj.data.ContainsRefs() {
			obj.data.DecRefChildren(&stack)
		}
	}
}

func (h *Heap) slot(id HeapId) *heapObject {
	if int(id) < 0 || int(id) >= len(h.slots) {
		return nil
	}
	return h.slots[id]
}

// Get returns the data stored at id, or a HeapError on an invalid/tombstoned id.
func (h *Heap) Get(id HeapId) (HeapData, error) {
	obj := h.slot(id)
	if obj == nil {
		return nil, &HeapError{Op: "get", Id: id}
	}
	return obj.data, nil
}

// GetMut returns a mutable view of the data at id. Since HeapData is always
// stored by reference (pointer receiver implementations), this is identical
// to Get; it exists so call sites read as mutating vs. read-only access.
func (h *Heap) GetMut(id HeapId) (HeapData, error) {
	return h.Get(id)
}

// RefCount returns the current refcount of id, or 0 if tombstoned/invalid.
func (h *Heap) RefCount(id HeapId) uint32 {
	if obj := h.slot(id); obj != nil {
		return obj.refcount
	}
	return 0
}

// Valid reports whether id names a live, non-tombstoned slot.
func (h *Heap) Valid(id HeapId) bool {
	return h.slot(id) != nil
}

// Len returns the number of slots ever allocated (including tombstones),
// i.e. the exclusive upper bound on valid HeapIds.
func (h *Heap) Len() int { return len(h.slots) }

// Clear drains the arena between runs of a persistent executor.
func (h *Heap) Clear() {
	h.slots = nil
}

// LiveRefcountSum totals the refcount of every non-tombstoned slot;
// property test S1/S2's "no slot leaks a refcount" check sums this before
// and after a run's Progress is dropped.
func (h *Heap) LiveRefcountSum() uint64 {
	var total uint64
	for _, obj := range h.slots {
		if obj != nil {
			total += uint64(obj.refcount)
		}
	}
	return total
}

// LiveCount reports the number of non-tombstoned slots.
func (h *Heap) LiveCount() int {
	n := 0
	for _, obj := range h.slots {
		if obj != nil {
			n++
		}
	}
	return n
}

// Tracker exposes the heap's resource tracker to callers (evaluator,
// snapshot loader) that need to charge non-allocation costs.
func (h *Heap) Tracker() ResourceTracker { return h.tracker }

// RestoreObject appends data at the next sequential id with the given
// refcount, without charging the tracker. Used when reconstructing a heap
// from a snapshot, where the budget already spent on these allocations is
// restored separately (see limits.RestoreLimited) rather than re-charged.
// The caller must restore ids in the exact order they were originally
// allocated so the returned id matches the one recorded in the snapshot.
func (h *Heap) RestoreObject(data HeapData, refcount uint32) HeapId {
	id := HeapId(len(h.slots))
	h.slots = append(h.slots, &heapObject{refcount: refcount, data: data})
	return id
}

// RestoreTombstone appends a dead slot at the next sequential id, preserving
// the original id numbering of a heap that had already reclaimed objects by
// the time it was dumped.
func (h *Heap) RestoreTombstone() HeapId {
	id := HeapId(len(h.slots))
	h.slots = append(h.slots, nil)
	return id
}

// CloneValue increments the refcount of v if it is a Ref, returning v
// unchanged otherwise. This is the Go mirror of Value::clone requiring a
// heap to maintain the refcount invariant.
func (h *Heap) CloneValue(v Value) Value {
	if v.kind == KindRef {
		h.IncRef(v.id)
	}
	return v
}

// DropValue decrements the refcount of v if it is a Ref; a no-op otherwise.
func (h *Heap) DropValue(v Value) {
	if v.kind == KindRef {
		h.DecRef(v.id)
	}
}
