// This file implements the higher-level codec built on top of codec.go's
// byte primitives: the Snapshot/Pending DTOs, per-value-kind and
// per-HeapData-kind encode/decode, and the Dump/Load entrypoints.
//
// A snapshot is deliberately self-contained: it carries the original source
// text, filename, and external-function-name list alongside the heap,
// namespace, and position state, so Load can hand a caller everything
// needed to recompile the program and resume it without requiring the
// caller to have kept the *ast.Program around separately. Recompiling is
// deterministic:
// running the same source through the same compiler with the same external
// names always assigns the same slots and function table, so a Function
// value can be re-bound to the freshly compiled ast.FuncDef by name alone.
package snapshot

import (
	"fmt"

	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/limits"
	"github.com/RayVR/monty/internal/position"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

// Pending describes a suspended call still awaiting a host reply, mirroring
// internal/suspend.CallInfo plus the yield/OS discriminators carried on
// internal/eval.PendingCall.
type Pending struct {
	IsOS    bool
	IsYield bool
	Name    string
	Args    []value.Value
	Kwargs  []KwArg
	CallID  uint64
}

// KwArg is a single keyword argument in source call order.
type KwArg struct {
	Name  string
	Value value.Value
}

// State is everything needed to dump or reconstruct a paused RunProgress.
// It intentionally has no dependency on internal/frame or internal/suspend
// (the monty package, which depends on all three, is the glue that
// translates between them and this DTO).
type State struct {
	Source        string
	Filename      string
	ExternalNames []string
	ModuleName    string
	Interns       []string // the compiled program's interned attribute-name table, in id order

	Limits       limits.ResourceLimits
	Memory       uintptr
	Allocations  uint64
	Instructions uint64
	FrameDepth   int
	NextCallID   uint64

	Heap      *value.Heap
	Namespace []value.Value
	Position  []position.Position
	Pending   *Pending // nil if the run completed (snapshotting a finished run is rejected, see Dump)
}

// ResolveFunc looks up a compiled function by name against the program
// Load's caller recompiled from State.Source, supplied by the caller of
// Load rather than imported here, so this package never depends on
// internal/compile.
type ResolveFunc func(name string) (*ast.FuncDef, bool)

// Dump serializes s to a self-contained byte stream.
func Dump(s *State) ([]byte, error) {
	if s.Pending == nil {
		return nil, fmt.Errorf("snapshot: cannot dump a run that already completed")
	}
	w := &writer{}
	w.buf.Write(magic[:])
	w.u16(formatVersion)

	meta := encodeMeta(s)
	writeSection(w, secMeta, meta)
	writeSection(w, secInterns, encodeInterns(s.Interns))

	heapBody, err := encodeHeap(s.Heap)
	if err != nil {
		return nil, err
	}
	writeSection(w, secHeap, heapBody)

	writeSection(w, secNamespace, encodeValues(s.Namespace))
	writeSection(w, secPosition, encodePositionStack(s.Position))
	writeSection(w, secPending, encodePending(s.Pending))

	return w.bytes(), nil
}

// PeekMeta decodes only the magic/version header and meta section of a
// snapshot stream, returning the embedded source/filename/external-name
// list a caller needs to recompile the program before calling Load with a
// ResolveFunc bound to that compiled result (see monty.LoadProgress).
// Never panics: malformed input returns ErrCorrupt.
func PeekMeta(b []byte) (st *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			st = nil
			err = corrupt("panic during meta peek", fmt.Errorf("%v", r))
		}
	}()
	r := newReader(b)
	magicBytes, rerr := r.bytes(4)
	if rerr != nil {
		return nil, rerr
	}
	if [4]byte{magicBytes[0], magicBytes[1], magicBytes[2], magicBytes[3]} != magic {
		return nil, corrupt("bad magic", nil)
	}
	version, rerr := r.u16()
	if rerr != nil {
		return nil, rerr
	}
	if version != formatVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", version), nil)
	}
	for r.remaining() > 0 {
		tag, body, serr := r.section()
		if serr != nil {
			return nil, serr
		}
		if tag == secMeta {
			return decodeMeta(body)
		}
	}
	return nil, corrupt("missing meta section", nil)
}

// Load parses a byte stream produced by Dump, validating every heap
// reference it encounters rather than trusting offsets; resolveFunc is
// consulted once the caller has recompiled State.Source to bind each
// snapshotted Function back to its ast.FuncDef. Load never panics: a
// deferred recover backstops any invariant violation in the decode path
// (e.g. a malformed length implying a slice index this code didn't
// anticipate) and turns it into ErrCorrupt instead of crashing the host.
func Load(b []byte, resolveFunc ResolveFunc) (st *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			st = nil
			err = corrupt("panic during decode", fmt.Errorf("%v", r))
		}
	}()

	r := newReader(b)
	magicBytes, rerr := r.bytes(4)
	if rerr != nil {
		return nil, rerr
	}
	if [4]byte{magicBytes[0], magicBytes[1], magicBytes[2], magicBytes[3]} != magic {
		return nil, corrupt("bad magic", nil)
	}
	version, rerr := r.u16()
	if rerr != nil {
		return nil, rerr
	}
	if version != formatVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", version), nil)
	}

	sections := map[sectionTag][]byte{}
	for r.remaining() > 0 {
		tag, body, serr := r.section()
		if serr != nil {
			return nil, serr
		}
		sections[tag] = body
	}

	metaBody, ok := sections[secMeta]
	if !ok {
		return nil, corrupt("missing meta section", nil)
	}
	state, err := decodeMeta(metaBody)
	if err != nil {
		return nil, err
	}

	internsBody, ok := sections[secInterns]
	if !ok {
		return nil, corrupt("missing interns section", nil)
	}
	interns, err := decodeInterns(internsBody)
	if err != nil {
		return nil, err
	}
	state.Interns = interns

	heapBody, ok := sections[secHeap]
	if !ok {
		return nil, corrupt("missing heap section", nil)
	}
	heap, err := decodeHeap(heapBody, state.Limits, resolveFunc)
	if err != nil {
		return nil, err
	}
	state.Heap = heap
	var children []value.HeapId
	for i := 0; i < heap.Len(); i++ {
		data, gerr := heap.Get(value.HeapId(i))
		if gerr != nil {
			continue
		}
		children = children[:0]
		data.DecRefChildren(&children)
		for _, c := range children {
			if !heap.Valid(c) {
				return nil, ErrInvalidReference
			}
		}
	}

	nsBody, ok := sections[secNamespace]
	if !ok {
		return nil, corrupt("missing namespace section", nil)
	}
	ns, err := decodeValues(newReader(nsBody))
	if err != nil {
		return nil, err
	}
	if err := validateRefs(heap, ns); err != nil {
		return nil, err
	}
	state.Namespace = ns

	posBody, ok := sections[secPosition]
	if !ok {
		return nil, corrupt("missing position section", nil)
	}
	pos, err := decodePositionStack(posBody)
	if err != nil {
		return nil, err
	}
	state.Position = pos

	pendingBody, ok := sections[secPending]
	if !ok {
		return nil, corrupt("missing pending section", nil)
	}
	pending, err := decodePending(pendingBody)
	if err != nil {
		return nil, err
	}
	if err := validateRefs(heap, pending.Args); err != nil {
		return nil, err
	}
	for _, kw := range pending.Kwargs {
		if kw.Value.IsRef() && !heap.Valid(kw.Value.HeapId()) {
			return nil, ErrInvalidReference
		}
	}
	state.Pending = pending

	return state, nil
}

func validateRefs(h *value.Heap, vs []value.Value) error {
	for _, v := range vs {
		if v.IsRef() && !h.Valid(v.HeapId()) {
			return ErrInvalidReference
		}
	}
	return nil
}

// --- meta section: source, filename, external names, module name, limits, tracker totals, next call id ---

func encodeMeta(s *State) []byte {
	w := &writer{}
	w.str(s.Source)
	w.str(s.Filename)
	w.u32(uint32(len(s.ExternalNames)))
	for _, n := range s.ExternalNames {
		w.str(n)
	}
	w.str(s.ModuleName)
	w.u64(uint64(s.Limits.MaxMemory))
	w.u64(s.Limits.MaxAllocations)
	w.u64(s.Limits.MaxInstructions)
	w.u64(uint64(s.Limits.MaxFrames))
	w.u64(uint64(s.Memory))
	w.u64(s.Allocations)
	w.u64(s.Instructions)
	w.u64(uint64(s.FrameDepth))
	w.u64(s.NextCallID)
	return w.bytes()
}

func decodeMeta(b []byte) (*State, error) {
	r := newReader(b)
	src, err := r.str()
	if err != nil {
		return nil, err
	}
	filename, err := r.str()
	if err != nil {
		return nil, err
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	var names []string
	for i := uint32(0); i < n; i++ {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	moduleName, err := r.str()
	if err != nil {
		return nil, err
	}
	maxMemory, err := r.u64()
	if err != nil {
		return nil, err
	}
	maxAllocations, err := r.u64()
	if err != nil {
		return nil, err
	}
	maxInstructions, err := r.u64()
	if err != nil {
		return nil, err
	}
	maxFrames, err := r.u64()
	if err != nil {
		return nil, err
	}
	memory, err := r.u64()
	if err != nil {
		return nil, err
	}
	allocations, err := r.u64()
	if err != nil {
		return nil, err
	}
	instructions, err := r.u64()
	if err != nil {
		return nil, err
	}
	frameDepth, err := r.u64()
	if err != nil {
		return nil, err
	}
	nextCallID, err := r.u64()
	if err != nil {
		return nil, err
	}
	return &State{
		Source:        src,
		Filename:      filename,
		ExternalNames: names,
		ModuleName:    moduleName,
		Limits: limits.ResourceLimits{
			MaxMemory:       uintptr(maxMemory),
			MaxAllocations:  maxAllocations,
			MaxInstructions: maxInstructions,
			MaxFrames:       int(maxFrames),
		},
		Memory:       uintptr(memory),
		Allocations:  allocations,
		Instructions: instructions,
		FrameDepth:   int(frameDepth),
		NextCallID:   nextCallID,
	}, nil
}

// --- interned attribute-name table, in id order ---

func encodeInterns(strs []string) []byte {
	w := &writer{}
	w.u32(uint32(len(strs)))
	for _, s := range strs {
		w.str(s)
	}
	return w.bytes()
}

func decodeInterns(b []byte) ([]string, error) {
	r := newReader(b)
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	var out []string
	for i := uint32(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// --- value encoding: primitives are tagged inline; Refs carry only the id,
// validated against the heap extent once the heap section has been decoded ---

type valueTag uint8

const (
	vTagNone valueTag = iota
	vTagBool
	vTagInt
	vTagFloat
	vTagRange
	vTagRef
)

func encodeValue(w *writer, v value.Value) {
	switch v.Kind() {
	case value.KindNone:
		w.u8(uint8(vTagNone))
	case value.KindBool:
		w.u8(uint8(vTagBool))
		w.bool(v.Bool())
	case value.KindInt:
		w.u8(uint8(vTagInt))
		w.i64(v.Int())
	case value.KindFloat:
		w.u8(uint8(vTagFloat))
		w.f64(v.Float())
	case value.KindRange:
		w.u8(uint8(vTagRange))
		w.i64(v.RangeSize())
	case value.KindRef:
		w.u8(uint8(vTagRef))
		w.u64(uint64(v.HeapId()))
	}
}

func decodeValueFrom(r *reader) (value.Value, error) {
	tag, err := r.u8()
	if err != nil {
		return value.None, err
	}
	switch valueTag(tag) {
	case vTagNone:
		return value.None, nil
	case vTagBool:
		b, err := r.bool()
		if err != nil {
			return value.None, err
		}
		return value.NewBool(b), nil
	case vTagInt:
		i, err := r.i64()
		if err != nil {
			return value.None, err
		}
		return value.NewInt(i), nil
	case vTagFloat:
		f, err := r.f64()
		if err != nil {
			return value.None, err
		}
		return value.NewFloat(f), nil
	case vTagRange:
		n, err := r.i64()
		if err != nil {
			return value.None, err
		}
		return value.NewRange(n), nil
	case vTagRef:
		id, err := r.u64()
		if err != nil {
			return value.None, err
		}
		return value.NewRef(value.HeapId(id)), nil
	}
	return value.None, corrupt("unknown value tag", nil)
}

func encodeValues(vs []value.Value) []byte {
	w := &writer{}
	w.u32(uint32(len(vs)))
	for _, v := range vs {
		encodeValue(w, v)
	}
	return w.bytes()
}

func decodeValues(r *reader) ([]value.Value, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for i := uint32(0); i < n; i++ {
		v, err := decodeValueFrom(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// --- position stack ---

func encodePositionStack(stack []position.Position) []byte {
	w := &writer{}
	w.u32(uint32(len(stack)))
	for _, p := range stack {
		w.i64(int64(p.Index))
		if p.ClauseState == nil {
			w.bool(false)
			continue
		}
		w.bool(true)
		cs := p.ClauseState
		w.u8(uint8(cs.Kind))
		w.bool(cs.IfBranchTaken)
		w.i64(int64(cs.NextIndex))
		w.i64(int64(cs.HandlerIndex))
	}
	return w.bytes()
}

func decodePositionStack(b []byte) ([]position.Position, error) {
	r := newReader(b)
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	var out []position.Position
	for i := uint32(0); i < n; i++ {
		idx, err := r.i64()
		if err != nil {
			return nil, err
		}
		has, err := r.bool()
		if err != nil {
			return nil, err
		}
		p := position.Position{Index: int(idx)}
		if has {
			kind, err := r.u8()
			if err != nil {
				return nil, err
			}
			ifTaken, err := r.bool()
			if err != nil {
				return nil, err
			}
			nextIdx, err := r.i64()
			if err != nil {
				return nil, err
			}
			handlerIdx, err := r.i64()
			if err != nil {
				return nil, err
			}
			cs := position.ClauseState{
				Kind:          position.ClauseKind(kind),
				IfBranchTaken: ifTaken,
				NextIndex:     int(nextIdx),
				HandlerIndex:  int(handlerIdx),
			}
			p.ClauseState = &cs
		}
		out = append(out, p)
	}
	return out, nil
}

// --- pending call ---

func encodePending(p *Pending) []byte {
	w := &writer{}
	w.bool(p.IsOS)
	w.bool(p.IsYield)
	w.str(p.Name)
	w.buf.Write(encodeValues(p.Args))
	w.u32(uint32(len(p.Kwargs)))
	for _, kw := range p.Kwargs {
		w.str(kw.Name)
		encodeValue(w, kw.Value)
	}
	w.u64(p.CallID)
	return w.bytes()
}

func decodePending(b []byte) (*Pending, error) {
	r := newReader(b)
	isOS, err := r.bool()
	if err != nil {
		return nil, err
	}
	isYield, err := r.bool()
	if err != nil {
		return nil, err
	}
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	args, err := decodeValues(r)
	if err != nil {
		return nil, err
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	var kwargs []KwArg
	for i := uint32(0); i < n; i++ {
		kn, err := r.str()
		if err != nil {
			return nil, err
		}
		kv, err := decodeValueFrom(r)
		if err != nil {
			return nil, err
		}
		kwargs = append(kwargs, KwArg{Name: kn, Value: kv})
	}
	callID, err := r.u64()
	if err != nil {
		return nil, err
	}
	return &Pending{IsOS: isOS, IsYield: isYield, Name: name, Args: args, Kwargs: kwargs, CallID: callID}, nil
}

// --- heap: one entry per slot in id order, a live/tombstone flag, then a
// type tag and its payload for live slots ---

func encodeHeap(h *value.Heap) ([]byte, error) {
	w := &writer{}
	n := h.Len()
	w.u32(uint32(n))
	for id := 0; id < n; id++ {
		hid := value.HeapId(id)
		if !h.Valid(hid) {
			w.bool(false)
			continue
		}
		w.bool(true)
		w.u32(h.RefCount(hid))
		data, err := h.Get(hid)
		if err != nil {
			return nil, err
		}
		if err := encodeHeapData(w, data); err != nil {
			return nil, fmt.Errorf("snapshot: heap id %d: %w", id, err)
		}
	}
	return w.bytes(), nil
}

func decodeHeap(b []byte, lim limits.ResourceLimits, resolveFunc ResolveFunc) (*value.Heap, error) {
	r := newReader(b)
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	// The decoded heap's own tracker is a fresh Unlimited: restoring slots
	// never re-charges a budget already accounted for in secMeta's totals
	// (see limits.RestoreLimited, applied by the monty package once this
	// heap and the restored tracker are both in hand).
	h := value.NewHeap(limits.Unlimited{})
	for i := uint32(0); i < n; i++ {
		live, err := r.bool()
		if err != nil {
			return nil, err
		}
		if !live {
			h.RestoreTombstone()
			continue
		}
		refcount, err := r.u32()
		if err != nil {
			return nil, err
		}
		data, err := decodeHeapData(r, h, resolveFunc)
		if err != nil {
			return nil, err
		}
		h.RestoreObject(data, refcount)
	}
	return h, nil
}

type heapTag uint8

const (
	hTagStr heapTag = iota
	hTagBytes
	hTagList
	hTagTuple
	hTagDict
	hTagException
	hTagFunction
	hTagClass
	hTagInstance
)

func encodeHeapData(w *writer, data value.HeapData) error {
	switch v := data.(type) {
	case *types.Str:
		w.u8(uint8(hTagStr))
		w.str(v.Value())
	case *types.Bytes:
		w.u8(uint8(hTagBytes))
		w.bytesRaw(v.Value())
	case *types.List:
		w.u8(uint8(hTagList))
		w.buf.Write(encodeValues(v.Items()))
	case *types.Tuple:
		w.u8(uint8(hTagTuple))
		w.buf.Write(encodeValues(v.Items()))
	case *types.Dict:
		w.u8(uint8(hTagDict))
		entries := v.Entries()
		w.u32(uint32(len(entries)))
		for _, e := range entries {
			encodeValue(w, e.Key)
			encodeValue(w, e.Val)
		}
	case *excno.Exception:
		w.u8(uint8(hTagException))
		encodeException(w, v)
	case *types.Function:
		w.u8(uint8(hTagFunction))
		w.str(v.Name())
		w.buf.Write(encodeValues(v.Defaults()))
	case *types.Class:
		w.u8(uint8(hTagClass))
		w.str(v.Name())
		methods := v.Methods()
		w.u32(uint32(len(methods)))
		// map iteration order is randomized by Go; sort for deterministic
		// output so two dumps of an unmodified class produce identical bytes.
		for _, name := range sortedKeys(methods) {
			w.str(name)
			encodeValue(w, methods[name])
		}
	case *types.Instance:
		w.u8(uint8(hTagInstance))
		w.u64(uint64(v.ClassID()))
		attrs := v.Attrs()
		w.u32(uint32(len(attrs)))
		for _, name := range sortedKeys(attrs) {
			w.str(name)
			encodeValue(w, attrs[name])
		}
	case *types.FrameObj:
		return fmt.Errorf("generator objects cannot be snapshotted")
	case *types.IteratorObj:
		return fmt.Errorf("bare iterator objects cannot be snapshotted (no serializable cursor state)")
	default:
		return fmt.Errorf("unrecognized heap object type %T", data)
	}
	return nil
}

func decodeHeapData(r *reader, h *value.Heap, resolveFunc ResolveFunc) (value.HeapData, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch heapTag(tag) {
	case hTagStr:
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		return types.NewStr(s), nil
	case hTagBytes:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return nil, err
		}
		return types.NewBytes(b), nil
	case hTagList:
		items, err := decodeValues(r)
		if err != nil {
			return nil, err
		}
		return types.NewList(items), nil
	case hTagTuple:
		items, err := decodeValues(r)
		if err != nil {
			return nil, err
		}
		return types.NewTuple(items), nil
	case hTagDict:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		var entries []types.DictEntry
		for i := uint32(0); i < n; i++ {
			k, err := decodeValueFrom(r)
			if err != nil {
				return nil, err
			}
			v, err := decodeValueFrom(r)
			if err != nil {
				return nil, err
			}
			entries = append(entries, types.DictEntry{Key: k, Val: v})
		}
		return types.RestoreDict(h, entries)
	case hTagException:
		return decodeException(r)
	case hTagFunction:
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		defaults, err := decodeValues(r)
		if err != nil {
			return nil, err
		}
		def, ok := resolveFunc(name)
		if !ok {
			return nil, corrupt(fmt.Sprintf("unresolved function %q", name), nil)
		}
		return types.NewFunction(def, defaults), nil
	case hTagClass:
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		methods := make(map[string]value.Value)
		for i := uint32(0); i < n; i++ {
			mn, err := r.str()
			if err != nil {
				return nil, err
			}
			mv, err := decodeValueFrom(r)
			if err != nil {
				return nil, err
			}
			methods[mn] = mv
		}
		return types.NewClass(name, methods), nil
	case hTagInstance:
		classID, err := r.u64()
		if err != nil {
			return nil, err
		}
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		inst := types.NewInstance(value.HeapId(classID))
		for i := uint32(0); i < n; i++ {
			an, err := r.str()
			if err != nil {
				return nil, err
			}
			av, err := decodeValueFrom(r)
			if err != nil {
				return nil, err
			}
			inst.SetAttr(h, an, av)
		}
		return inst, nil
	}
	return nil, corrupt("unknown heap object tag", nil)
}

func sortedKeys(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// --- exception + stack frame chain ---

func encodeException(w *writer, e *excno.Exception) {
	w.u8(uint8(e.ExcType))
	w.str(e.Message)
	encodeValue(w, e.Cause)
	encodeStackFrame(w, e.Frame)
}

func encodeStackFrame(w *writer, sf *excno.StackFrame) {
	if sf == nil {
		w.bool(false)
		return
	}
	w.bool(true)
	w.i64(int64(sf.Range.Line))
	w.i64(int64(sf.Range.Col))
	w.i64(int64(sf.Range.EndLine))
	w.i64(int64(sf.Range.EndCol))
	w.str(sf.FrameName)
	encodeStackFrame(w, sf.Parent)
}

func decodeException(r *reader) (*excno.Exception, error) {
	t, err := r.u8()
	if err != nil {
		return nil, err
	}
	msg, err := r.str()
	if err != nil {
		return nil, err
	}
	cause, err := decodeValueFrom(r)
	if err != nil {
		return nil, err
	}
	frame, err := decodeStackFrame(r)
	if err != nil {
		return nil, err
	}
	exc := excno.New(excno.Type(t), msg)
	exc = exc.WithCause(cause)
	if frame != nil {
		exc = exc.WithFrame(frame)
	}
	return exc, nil
}

func decodeStackFrame(r *reader) (*excno.StackFrame, error) {
	has, err := r.bool()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	line, err := r.i64()
	if err != nil {
		return nil, err
	}
	col, err := r.i64()
	if err != nil {
		return nil, err
	}
	endLine, err := r.i64()
	if err != nil {
		return nil, err
	}
	endCol, err := r.i64()
	if err != nil {
		return nil, err
	}
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	parent, err := decodeStackFrame(r)
	if err != nil {
		return nil, err
	}
	rng := ast.CodeRange{Line: int(line), Col: int(col), EndLine: int(endLine), EndCol: int(endCol)}
	return excno.NewStackFrame(rng, name, parent), nil
}
