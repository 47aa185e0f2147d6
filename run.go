package monty

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/frame"
	"github.com/RayVR/monty/internal/value"
)

// Run is a compiled program ready to execute. It is immutable and
// reusable: the same Run can be driven by many independent Run/Start
// calls, each getting its own heap and tracker, fully isolated from the
// others.
type Run struct {
	prog          *ast.Program
	source        string
	filename      string
	externalNames []string
}

// New compiles source into a Run. externalNames is the set of identifiers
// that, when called, suspend the interpreter with a FunctionCall exit
// instead of raising NameError.
func New(source, filename string, externalNames []string) (*Run, *CompileError) {
	return NewWithOptions(source, filename, Options{ExternalNames: externalNames})
}

func printFunc(sink PrintSink) func(string) {
	if sink == nil {
		return nil
	}
	return sink.Print
}

// Run executes r to completion against a fresh heap, with no suspension
// support: a program that reaches an external/OS call or a module-level
// yield fails with a RuntimeError rather than pausing. Any Tracker,
// including a Limited one, may be passed here.
func (r *Run) Run(args []MontyObject, tracker Tracker, print PrintSink) (MontyObject, *Exception) {
	h := value.NewHeap(tracker)
	ns, err := bindModuleArgs(h, r.prog, args)
	if err != nil {
		return None, asException(err, h)
	}
	f := frame.New(h, r.prog, tracker, printFunc(print))
	f.SeedNamespace(ns)

	v, pc, err := f.Run(r.prog.Top)
	if err != nil {
		dropNamespace(h, f.Namespace())
		return None, asException(err, h)
	}
	if pc != nil {
		dropNamespace(h, f.Namespace())
		return None, asException(excno.Newf(excno.RuntimeError, "program suspended on an external/OS call or yield; use Start to support suspension"), h)
	}
	result, convErr := fromValue(h, v)
	h.DropValue(v)
	dropNamespace(h, f.Namespace())
	if convErr != nil {
		return None, asException(convErr, h)
	}
	return result, nil
}

// Start executes r against a fresh heap, returning a RunProgress the
// moment it completes or suspends on an external/OS call or yield.
func (r *Run) Start(args []MontyObject, tracker Tracker, print PrintSink) (*RunProgress, *Exception) {
	h := value.NewHeap(tracker)
	ns, err := bindModuleArgs(h, r.prog, args)
	if err != nil {
		return nil, asException(err, h)
	}
	f := frame.NewResumable(h, r.prog, tracker, printFunc(print))
	f.SeedNamespace(ns)

	p := &RunProgress{run: r, heap: h, tracker: tracker, print: print, frame: f}
	return p.drive(nil)
}

// bindModuleArgs allocates args onto h and returns a namespace slice sized
// for the module frame with the leading slots filled positionally; this
// implementation's accepted language subset passes a module's arguments as
// plain positional locals (there is no module-level parameter list to bind
// by name), consistent with Run/Start sharing one entrypoint shape.
func bindModuleArgs(h *value.Heap, prog *ast.Program, args []MontyObject) ([]value.Value, error) {
	ns := make([]value.Value, prog.NumSlots)
	if len(args) > len(ns) {
		return nil, excno.Newf(excno.TypeError, "too many arguments for module-level run (got %d, have %d slots)", len(args), len(ns))
	}
	for i, a := range args {
		v, err := toValue(h, a)
		if err != nil {
			dropNamespace(h, ns)
			return nil, err
		}
		ns[i] = v
	}
	return ns, nil
}

func dropNamespace(h *value.Heap, ns []value.Value) {
	for _, v := range ns {
		h.DropValue(v)
	}
}
