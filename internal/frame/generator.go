package frame

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/eval"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/position"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

// generatorFrame drives a generator function's body on its own goroutine,
// handing control back and forth with the consumer through unbuffered
// channels so exactly one side ever touches the shared heap at a time: the
// single-threaded-cooperative guarantee the execution model requires,
// implemented
// with a goroutine only because Go has no primitive for suspending a call
// stack mid-function otherwise. At most one of the two goroutines ever
// runs past its next channel operation, so this is not the "true
// concurrent execution" the Non-goals rule out.
type generatorFrame struct {
	child    *Frame
	body     []ast.Node
	yieldCh  chan genMsg   // child -> consumer
	resumeCh chan struct{} // consumer -> child
	started  bool
	finished bool
	closing  bool
}

type genMsgKind int

const (
	genYield genMsgKind = iota
	genReturn
	genError
	genPending // a PendingCall escaped a generator body - unsupported scope limitation
)

type genMsg struct {
	kind genMsgKind
	val  value.Value
	err  error
}

// startGenerator implements the "calling a generator function builds an
// iterator without running a single statement" rule: it binds parameters
// into a fresh child frame exactly like invoke, but parks that frame behind
// a types.FrameObj instead of running it.
func (f *Frame) startGenerator(def *ast.FuncDef, args []value.Value, kwargs []eval.KwArg) (value.Value, *eval.PendingCall, error) {
	ns, err := bindParams(def, args, kwargs, f.heap)
	if err != nil {
		return value.None, nil, err
	}
	child := &Frame{
		heap:    f.heap,
		prog:    f.prog,
		ns:      ns,
		name:    def.Name,
		tracker: f.tracker,
		// A generator body never suspends on an external/OS call (see
		// genPending below), so it has nothing to resume; it must not
		// share f.pos with the frame that started it.
		pos:   position.NoopTracker{},
		print: f.print,
	}
	g := &generatorFrame{
		child:    child,
		body:     def.Body,
		yieldCh:  make(chan genMsg),
		resumeCh: make(chan struct{}),
	}
	child.yieldFn = g.yieldFromBody

	id, err := f.heap.Allocate(types.NewFrameObj(g, def.Name))
	if err != nil {
		dropNS(f.heap, ns)
		return value.None, nil, err
	}
	return value.NewRef(id), nil, nil
}

// yieldFromBody is installed as the generator's child frame's yield hook
// (see Frame.yieldFn): it hands v to whichever goroutine is parked in
// Resume, then blocks until resumed or closed.
func (g *generatorFrame) yieldFromBody(v value.Value) error {
	g.yieldCh <- genMsg{kind: genYield, val: v}
	if _, ok := <-g.resumeCh; !ok {
		return excno.Newf(excno.RuntimeError, "generator abandoned before completion")
	}
	return nil
}

// Resume implements types.GeneratorState: it starts the body's goroutine on
// first call, or wakes it past its last yield on subsequent calls, then
// blocks for the next yield/return/error.
func (g *generatorFrame) Resume(h *value.Heap) (value.Value, bool, error) {
	if g.finished {
		return value.None, false, nil
	}
	if !g.started {
		g.started = true
		go g.run()
	} else {
		g.resumeCh <- struct{}{}
	}
	msg := <-g.yieldCh
	switch msg.kind {
	case genYield:
		return msg.val, true, nil
	case genReturn:
		g.finished = true
		h.DropValue(msg.val)
		return value.None, false, nil
	case genError:
		g.finished = true
		return value.None, false, msg.err
	default: // genPending
		g.finished = true
		return value.None, false, excno.Newf(excno.RuntimeError, "external/OS calls are not supported inside a generator body")
	}
}

func (g *generatorFrame) run() {
	v, pc, err := g.child.Run(g.body)
	if g.closing {
		return // abandoned: nobody is listening on yieldCh anymore
	}
	switch {
	case err != nil:
		g.yieldCh <- genMsg{kind: genError, err: err}
	case pc != nil:
		g.yieldCh <- genMsg{kind: genPending}
	default:
		g.yieldCh <- genMsg{kind: genReturn, val: v}
	}
}

// ReleaseRefs implements types.GeneratorState: it reports every heap Ref
// presently live in the paused frame's namespace, so the heap can dec_ref
// them when the generator's FrameObj is itself reclaimed - whether that is
// right after normal exhaustion or much later, if the generator is
// abandoned mid-iteration while still referenced.
func (g *generatorFrame) ReleaseRefs() []value.HeapId {
	var ids []value.HeapId
	for _, v := range g.child.ns {
		if v.IsRef() {
			ids = append(ids, v.HeapId())
		}
	}
	return ids
}

// Close implements types.GeneratorState: if the body's goroutine is parked
// mid-yield, wake it with a closed channel so it unwinds instead of
// leaking, and suppress its final send (nobody will ever call Resume
// again). A no-op if the generator never started or already finished.
func (g *generatorFrame) Close() {
	if g.finished || !g.started || g.closing {
		return
	}
	g.closing = true
	close(g.resumeCh)
}
