// Package types implements Monty's type protocol: the per-type operations
// (len, getitem, setitem, iter, eq, bool, repr, call_attr, dec_ref_children)
// for every HeapData variant: Str, Bytes, List, Tuple,
// Dict, Function, Frame, Iterator, Class, Instance (Exception lives in
// internal/excno, since it is also the carrier for the exception-kind
// machinery that package owns).
package types

import (
	"fmt"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// normalizeIndex applies Python-style negative indexing and bounds-checks
// against length, returning IndexError (or KeyError via the caller) on a
// miss.
func normalizeIndex(key value.Value, length int, typeName string) (int, error) {
	if key.Kind() != value.KindInt && key.Kind() != value.KindBool {
		return 0, excno.Newf(excno.TypeError, "%s indices must be integers, not %s", typeName, key.Kind())
	}
	idx := key.Int()
	if key.Kind() == value.KindBool {
		idx = 0
		if key.Bool() {
			idx = 1
		}
	}
	if idx < 0 {
		idx += int64(length)
	}
	if idx < 0 || idx >= int64(length) {
		return 0, excno.Newf(excno.IndexError, "%s index out of range", typeName)
	}
	return int(idx), nil
}

// seqParts flattens a sequence's repr into literal/child parts for the
// iterative renderer in value.ReprValue: `open` item, item... `close`, with
// an optional trailing comma for the single-element tuple form.
func seqParts(open, close string, items []value.Value, trailingComma bool) []value.ReprPart {
	parts := make([]value.ReprPart, 0, 2+len(items)*2)
	parts = append(parts, value.LitPart(open))
	for i, item := range items {
		if i > 0 {
			parts = append(parts, value.LitPart(", "))
		}
		parts = append(parts, value.ChildPart(item))
	}
	if trailingComma {
		parts = append(parts, value.LitPart(","))
	}
	parts = append(parts, value.LitPart(close))
	return parts
}

// anyRef reports whether any value in items is a Ref, used to compute the
// containsRefs optimization flag at construction time for immutable
// containers.
func anyRef(items []value.Value) bool {
	for _, v := range items {
		if v.IsRef() {
			return true
		}
	}
	return false
}

func pushRefs(items []value.Value, stack *[]value.HeapId) {
	for _, v := range items {
		if v.IsRef() {
			*stack = append(*stack, v.HeapId())
		}
	}
}

func notIterableErr(typeName fmt.Stringer) error {
	return excno.Newf(excno.TypeError, "'%s' object is not iterable", typeName)
}

// valuesEqual implements cross-type numeric promotion
// (Int <-> Bool <-> Float) for primitives, and delegates to HeapData.Eq for
// Refs (only when both sides are Refs; a Ref is never equal to a
// primitive in this language subset, matching Python's own container vs.
// scalar inequality).
// ValuesEqual exports valuesEqual for internal/eval's `==`/`!=` operators.
func ValuesEqual(h *value.Heap, a, b value.Value) bool { return valuesEqual(h, a, b) }

// valuesEqual walks the comparison on an explicit work stack of pending
// pairs, like Heap.DecRef walks reclamation: HeapData.Eq compares only the
// receiver's shallow structure and appends element pairs here, so an
// adversarially deep structure cannot overflow the host stack. The seen set
// makes cyclic comparisons terminate: a pair already in progress further up
// the graph is taken as equal (any genuine mismatch inside the cycle still
// surfaces through some other pending pair).
func valuesEqual(h *value.Heap, a, b value.Value) bool {
	pending := []value.ValuePair{{A: a, B: b}}
	var seen map[[2]value.HeapId]bool
	for len(pending) > 0 {
		p := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		a, b := p.A, p.B

		if a.Kind() == value.KindRef || b.Kind() == value.KindRef {
			if a.Kind() != value.KindRef || b.Kind() != value.KindRef {
				return false
			}
			if a.HeapId() == b.HeapId() {
				continue
			}
			key := [2]value.HeapId{a.HeapId(), b.HeapId()}
			if seen[key] {
				continue
			}
			if seen == nil {
				seen = map[[2]value.HeapId]bool{}
			}
			seen[key] = true
			da, errA := h.Get(a.HeapId())
			db, errB := h.Get(b.HeapId())
			if errA != nil || errB != nil {
				return false
			}
			if da.Type() != db.Type() {
				return false
			}
			if !da.Eq(h, db, &pending) {
				return false
			}
			continue
		}
		if a.Kind() == value.KindNone || b.Kind() == value.KindNone {
			if a.Kind() != b.Kind() {
				return false
			}
			continue
		}
		if a.IsNumeric() && b.IsNumeric() {
			af, _ := a.AsFloat()
			bf, _ := b.AsFloat()
			if af != bf {
				return false
			}
			continue
		}
		return false
	}
	return true
}
