package monty

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/frame"
	"github.com/RayVR/monty/internal/limits"
	"github.com/RayVR/monty/internal/snapshot"
	"github.com/RayVR/monty/internal/suspend"
	"github.com/RayVR/monty/internal/value"
)

// KwArg is a single keyword argument surfaced on a suspended call, in
// source evaluation order.
type KwArg struct {
	Name  string
	Value MontyObject
}

// RunProgress is a suspended (or completed) run: the continuation a host
// holds between a suspension and the matching Resume. The zero value is
// not usable; obtain one from Run.Start or LoadProgress.
type RunProgress struct {
	run     *Run
	heap    *value.Heap
	tracker Tracker
	print   PrintSink
	frame   *frame.Frame
	callIDs *suspend.CallIDSource

	exit suspend.Exit
	resu *suspend.Resume
	done bool
	err  *Exception
}

// drive runs (or resumes) the frame forward until it completes or hits the
// next suspension, recording the resulting Exit/Resume pair on p. reply is
// nil on the very first call (Start); a non-nil reply is appended to the
// frame's call memo ahead of re-running the same (replayed) statement, per
// internal/frame's resume contract.
func (p *RunProgress) drive(reply *value.Value) (*RunProgress, *Exception) {
	if reply != nil {
		p.frame.AppendCallMemo(*reply)
	}
	v, pc, err := p.frame.Run(p.run.prog.Top)
	if err != nil {
		p.done = true
		p.err = asException(err, p.heap)
		dropNamespace(p.heap, p.frame.Namespace())
		return p, p.err
	}
	if pc == nil {
		p.done = true
		p.exit = suspend.Complete(v)
		dropNamespace(p.heap, p.frame.Namespace())
		return p, nil
	}
	if p.callIDs == nil {
		p.callIDs = &suspend.CallIDSource{}
	}
	callID := p.callIDs.Next()
	resu := suspend.NewResume(callID)
	kwargs := make([]suspend.KwArg, len(pc.Kwargs))
	for i, kw := range pc.Kwargs {
		kwargs[i] = suspend.KwArg{Name: kw.Name, Value: kw.Value}
	}
	info := suspend.CallInfo{Name: pc.Name, Args: pc.Args, Kwargs: kwargs, CallID: callID}
	switch {
	case pc.IsYield:
		p.exit = suspend.Yield(pc.Args[0], resu)
	case pc.IsOS:
		p.exit = suspend.OsCall(info, resu)
	default:
		p.exit = suspend.FunctionCall(info, resu)
	}
	p.resu = resu
	return p, nil
}

// Done reports whether the run has completed (normally or with an
// uncaught exception) and has nothing left to resume.
func (p *RunProgress) Done() bool { return p.done }

// Result returns the run's completion value; ok is false if the run is
// still suspended or ended with an exception.
func (p *RunProgress) Result() (MontyObject, bool) {
	if !p.done || p.err != nil || p.exit.Kind != suspend.ExitComplete {
		return None, false
	}
	obj, convErr := fromValue(p.heap, p.exit.Value)
	if convErr != nil {
		return None, false
	}
	return obj, true
}

// Err returns the uncaught exception that ended the run, or nil if it
// completed normally or is still suspended.
func (p *RunProgress) Err() *Exception { return p.err }

// IntoFunctionCall reports the pending external-function call this
// progress is paused on, if any. ok is false for an OS call, a yield, a
// completed run, or a failed run; callers that want every suspension
// kind should inspect ExitKind/Pending instead.
func (p *RunProgress) IntoFunctionCall() (name string, args []MontyObject, kwargs []KwArg, callID uint64, ok bool) {
	if p.done || p.exit.Kind != suspend.ExitFunctionCall {
		return "", nil, nil, 0, false
	}
	return p.pendingParts()
}

// ExitKind reports which kind of suspension (or completion) this progress
// is currently in: Complete, FunctionCall, OsCall, or Yield.
func (p *RunProgress) ExitKind() suspend.ExitKind { return p.exit.Kind }

// Pending reports the full pending-call shape for any suspension kind
// (FunctionCall, OsCall, or Yield), unlike IntoFunctionCall which only
// answers for the FunctionCall case.
func (p *RunProgress) Pending() (name string, args []MontyObject, kwargs []KwArg, callID uint64, ok bool) {
	if p.done || p.exit.Kind == suspend.ExitComplete {
		return "", nil, nil, 0, false
	}
	return p.pendingParts()
}

func (p *RunProgress) pendingParts() (name string, args []MontyObject, kwargs []KwArg, callID uint64, ok bool) {
	if p.exit.Kind == suspend.ExitYield {
		obj, err := fromValue(p.heap, p.exit.Value)
		if err != nil {
			return "", nil, nil, 0, false
		}
		return "<yield>", []MontyObject{obj}, nil, p.exit.Resume.CallID(), true
	}
	args = make([]MontyObject, 0, len(p.exit.Call.Args))
	for _, v := range p.exit.Call.Args {
		o, err := fromValue(p.heap, v)
		if err != nil {
			return "", nil, nil, 0, false
		}
		args = append(args, o)
	}
	kwargs = make([]KwArg, 0, len(p.exit.Call.Kwargs))
	for _, kw := range p.exit.Call.Kwargs {
		o, err := fromValue(p.heap, kw.Value)
		if err != nil {
			return "", nil, nil, 0, false
		}
		kwargs = append(kwargs, KwArg{Name: kw.Name, Value: o})
	}
	return p.exit.Call.Name, args, kwargs, p.exit.Resume.CallID(), true
}

// Resume supplies the host's reply to the pending external/OS call or
// yield and continues execution, returning the next RunProgress. A
// Resume value is single-use: calling it twice, or on an already-completed
// progress, fails deterministically rather than re-running the frame.
func (p *RunProgress) Resume(reply MontyObject) (*RunProgress, error) {
	if p.done {
		return nil, errAlreadyDone
	}
	if err := p.resu.Consume(); err != nil {
		return nil, err
	}
	v, err := toValue(p.heap, reply)
	if err != nil {
		return nil, err
	}
	progress, excErr := p.drive(&v)
	if excErr != nil {
		return progress, excErr
	}
	return progress, nil
}

var errAlreadyDone = &suspend.ErrAlreadyConsumed{}

// Stats snapshots a suspended run's resource-tracker and heap counters,
// for a host's live monitoring surface (e.g. the montyctl watch TUI) to
// poll between Resume calls without reaching into internal packages.
// Limits is the zero ResourceLimits when the run uses Unlimited.
type Stats struct {
	Memory       uintptr
	Allocations  uint64
	Instructions uint64
	FrameDepth   int
	Limits       ResourceLimits
	HeapLive     int
	HeapRefSum   uint64
}

// Stats reports p's current resource usage. Safe to call at any time,
// including after Done.
func (p *RunProgress) Stats() Stats {
	st := Stats{
		HeapLive:   p.heap.LiveCount(),
		HeapRefSum: p.heap.LiveRefcountSum(),
	}
	if lt, ok := p.tracker.(*limits.Limited); ok {
		st.Memory = lt.Memory()
		st.Allocations = lt.Allocations()
		st.Instructions = lt.Instructions()
		st.FrameDepth = lt.FrameDepth()
		st.Limits = lt.Limits()
	}
	return st
}

// FrameName reports the name of the frame p is currently executing,
// module-level "<module>" unless and until the interpreter grows nested
// resumable frames.
func (p *RunProgress) FrameName() string { return p.frame.Name() }

// Dump serializes a suspended (not yet completed) progress into a
// self-contained byte stream. Dumping a completed or failed progress is
// rejected; there is nothing left to resume.
func (p *RunProgress) Dump() ([]byte, error) {
	if p.done {
		return nil, excno.Newf(excno.RuntimeError, "cannot dump a completed run")
	}
	st := &snapshot.State{
		Source:        p.run.source,
		Filename:      p.run.filename,
		ExternalNames: p.run.externalNames,
		ModuleName:    p.frame.Name(),
		Interns:       p.run.prog.Interns.All(),
		Heap:          p.heap,
		Namespace:     p.frame.Namespace(),
		Position:      p.frame.PositionStack(),
		Pending:       encodePending(p),
	}
	if lt, ok := p.tracker.(*limits.Limited); ok {
		st.Limits = lt.Limits()
		st.Memory = lt.Memory()
		st.Allocations = lt.Allocations()
		st.Instructions = lt.Instructions()
		st.FrameDepth = lt.FrameDepth()
	}
	if p.callIDs != nil {
		st.NextCallID = p.callIDs.Peek()
	}
	return snapshot.Dump(st)
}

func encodePending(p *RunProgress) *snapshot.Pending {
	kwargs := make([]snapshot.KwArg, len(p.exit.Call.Kwargs))
	for i, kw := range p.exit.Call.Kwargs {
		kwargs[i] = snapshot.KwArg{Name: kw.Name, Value: kw.Value}
	}
	switch p.exit.Kind {
	case suspend.ExitYield:
		return &snapshot.Pending{IsYield: true, Args: []value.Value{p.exit.Value}, CallID: p.exit.Resume.CallID()}
	default:
		return &snapshot.Pending{
			IsOS:   p.exit.Kind == suspend.ExitOsCall,
			Name:   p.exit.Call.Name,
			Args:   p.exit.Call.Args,
			Kwargs: kwargs,
			CallID: p.exit.Resume.CallID(),
		}
	}
}

// LoadProgress deserializes a previously-dumped progress, recompiling its
// embedded source so the restored frame's function table re-binds by name.
// Any corrupted, truncated, or structurally invalid byte sequence returns
// an error rather than panicking. The
// restored progress prints through a DiscardPrint sink; use
// LoadProgressWithPrint to wire a real one.
func LoadProgress(b []byte) (*RunProgress, error) {
	return LoadProgressWithPrint(b, DiscardPrint{})
}

// LoadProgressWithPrint is LoadProgress with an explicit print sink wired
// for the restored run's subsequent `print(...)` calls, since a print
// capability cannot itself be serialized.
func LoadProgressWithPrint(b []byte, print PrintSink) (p *RunProgress, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, excno.Newf(excno.RuntimeError, "internal error: snapshot load panicked")
		}
	}()

	meta, err := snapshot.PeekMeta(b)
	if err != nil {
		return nil, err
	}
	run, cerr := New(meta.Source, meta.Filename, meta.ExternalNames)
	if cerr != nil {
		return nil, cerr
	}

	st, err := snapshot.Load(b, func(name string) (*ast.FuncDef, bool) {
		for _, def := range run.prog.Funcs {
			if def.Name == name {
				return def, true
			}
		}
		return nil, false
	})
	if err != nil {
		return nil, err
	}
	if !sameInterns(st.Interns, run.prog.Interns.All()) {
		return nil, excno.Newf(excno.RuntimeError, "snapshot: interned string table does not match the recompiled program")
	}

	tracker := restoreTracker(st)
	f := frame.RestoreModule(st.Heap, run.prog, tracker, printFunc(print), st.Namespace, st.Position)

	prog := &RunProgress{
		run:     run,
		heap:    st.Heap,
		tracker: tracker,
		print:   print,
		frame:   f,
		callIDs: suspend.RestoreCallIDSource(st.NextCallID),
	}
	if st.Pending == nil {
		return nil, excno.Newf(excno.RuntimeError, "snapshot has no pending suspension to resume")
	}
	prog.restorePending(st.Pending)
	return prog, nil
}

// sameInterns reports whether a and b hold the same strings in the same
// order. Recompiling deterministically from the same source must produce
// the same table, so any mismatch means the dumped stream was tampered
// with or doesn't belong to this source.
func sameInterns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func restoreTracker(st *snapshot.State) Tracker {
	zero := limits.ResourceLimits{}
	if st.Limits == zero {
		return limits.Unlimited{}
	}
	return limits.RestoreLimited(st.Limits, st.Memory, st.Allocations, st.Instructions, st.FrameDepth)
}

func (p *RunProgress) restorePending(pend *snapshot.Pending) {
	resu := suspend.NewResume(pend.CallID)
	kwargs := make([]suspend.KwArg, len(pend.Kwargs))
	for i, kw := range pend.Kwargs {
		kwargs[i] = suspend.KwArg{Name: kw.Name, Value: kw.Value}
	}
	if pend.IsYield {
		p.exit = suspend.Yield(pend.Args[0], resu)
	} else {
		info := suspend.CallInfo{Name: pend.Name, Args: pend.Args, Kwargs: kwargs, CallID: pend.CallID}
		if pend.IsOS {
			p.exit = suspend.OsCall(info, resu)
		} else {
			p.exit = suspend.FunctionCall(info, resu)
		}
	}
	p.resu = resu
}
