package monty

import (
	"bytes"
	"strings"
	"testing"
)

// The simplest whole-program path: one arithmetic expression whose value
// becomes the run's result.
func TestRunArithmetic(t *testing.T) {
	run, cerr := New("1 + 2", "arith.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindInt || result.Int() != 3 {
		t.Fatalf("got %v, want Int(3)", result)
	}
}

// A loop building a string and measuring its length under no limits.
func TestRunLoopAndLen(t *testing.T) {
	const src = "v=''\nfor i in range(1000):\n  if i%13==0: v+='x'\nlen(v)"
	run, cerr := New(src, "loop.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindInt || result.Int() != 77 {
		t.Fatalf("got %v, want Int(77)", result)
	}
}

// A memory-bounded run fails with MemoryError rather than allocating past
// its budget.
func TestRunMemoryExhaustion(t *testing.T) {
	const src = "x=['hello world']\ny=x*10000"
	run, cerr := New(src, "mem.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	tracker := Limited(ResourceLimits{MaxMemory: 1000})
	_, exc := run.Run(nil, tracker, DiscardPrint{})
	if exc == nil {
		t.Fatal("expected a MemoryError, got none")
	}
	if exc.Kind != "MemoryError" {
		t.Fatalf("got %s, want MemoryError", exc.Kind)
	}
}

// The matrix-multiply operator is unsupported but fails cleanly with a
// typed error rather than panicking.
func TestRunMatMulTypeError(t *testing.T) {
	run, cerr := New("1 @ 2", "matmul.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	_, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc == nil || exc.Kind != "TypeError" {
		t.Fatalf("got %v, want TypeError", exc)
	}
}

// `@=` is rejected at compile time, not at runtime.
func TestCompileMatMulAssignRejected(t *testing.T) {
	_, cerr := New("x=1\nx @= 2", "matmul-assign.mt", nil)
	if cerr == nil {
		t.Fatal("expected a compile error for `@=`")
	}
}

// A caught exception retains its `raise ... from ...` cause chain.
func TestRunExceptionCauseChain(t *testing.T) {
	const src = "try:\n  raise ValueError('e') from TypeError('c')\nexcept ValueError as e: str(e)"
	run, cerr := New(src, "cause.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindStr || result.Str() != "e" {
		t.Fatalf("got %v, want Str(\"e\")", result)
	}
}

// A `raise X from Y` that escapes the run entirely must still format the
// chained cause in the host-facing Traceback.
func TestRunUncaughtExceptionCauseChain(t *testing.T) {
	const src = "raise ValueError('effect') from TypeError('cause')"
	run, cerr := New(src, "cause-uncaught.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	_, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc == nil {
		t.Fatal("expected the raise to escape uncaught")
	}
	if exc.Kind != "ValueError" {
		t.Fatalf("got %s, want ValueError", exc.Kind)
	}
	const wantChain = "The above exception was the direct cause of the following exception:"
	if !strings.Contains(exc.Traceback, wantChain) {
		t.Fatalf("traceback = %q, want it to contain %q", exc.Traceback, wantChain)
	}
	if !strings.Contains(exc.Traceback, "TypeError: cause") {
		t.Fatalf("traceback = %q, want it to mention the cause's own kind/message", exc.Traceback)
	}
}

// An external call suspends the run; resuming with a value completes it.
func TestStartResumeExternalCall(t *testing.T) {
	run, cerr := New("func(1)", "external.mt", []string{"func"})
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	prog, exc := run.Start(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("start: %v", exc)
	}
	if prog.Done() {
		t.Fatal("expected a suspended progress")
	}
	name, args, _, _, ok := prog.IntoFunctionCall()
	if !ok || name != "func" || len(args) != 1 || args[0].Int() != 1 {
		t.Fatalf("unexpected pending call: name=%q args=%v ok=%v", name, args, ok)
	}

	prog, err := prog.Resume(NewInt(7))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !prog.Done() {
		t.Fatal("expected the run to complete after resume")
	}
	result, ok := prog.Result()
	if !ok || result.Kind() != KindInt || result.Int() != 7 {
		t.Fatalf("got %v, want Int(7)", result)
	}
}

// A corrupted dump never panics LoadProgress, and a bit-flipped stream
// either fails to load or fails on the first subsequent resume.
func TestDumpLoadCorruption(t *testing.T) {
	run, cerr := New("func(1)", "corrupt.mt", []string{"func"})
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	prog, exc := run.Start(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("start: %v", exc)
	}
	good, err := prog.Dump()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}

	for i := range good {
		corrupt := append([]byte(nil), good...)
		corrupt[i] ^= 0xFF

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("load panicked at byte %d: %v", i, r)
				}
			}()
			loaded, loadErr := LoadProgress(corrupt)
			if loadErr != nil {
				return
			}
			if _, resumeErr := loaded.Resume(NewInt(7)); resumeErr != nil {
				return
			}
			// A corrupted stream that loads AND resumes without error is
			// only acceptable if it happens to decode to the same bytes
			// (e.g. flipping a bit inside padding the encoder never
			// reads back out).
		}()
	}
}

// Round-tripping a suspended progress through Dump/Load and resuming it
// produces the same terminal outcome as resuming the original directly.
func TestDumpLoadResumeEquivalence(t *testing.T) {
	run, cerr := New("func(1)", "equiv.mt", []string{"func"})
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	prog, exc := run.Start(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("start: %v", exc)
	}
	dumped, err := prog.Dump()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}

	direct, err := prog.Resume(NewInt(7))
	if err != nil {
		t.Fatalf("direct resume: %v", err)
	}
	directResult, _ := direct.Result()

	loaded, err := LoadProgress(dumped)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	viaLoad, err := loaded.Resume(NewInt(7))
	if err != nil {
		t.Fatalf("resume after load: %v", err)
	}
	loadResult, _ := viaLoad.Result()

	if directResult.Int() != loadResult.Int() {
		t.Fatalf("direct=%v load=%v, want equal", directResult, loadResult)
	}
}

// No successful run leaves a nonzero refcount sum on its heap.
func TestNoRefcountLeakOnSuccess(t *testing.T) {
	run, cerr := New("x=['hello world']\ny=x*3\nlen(y)", "leak.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	prog, exc := run.Start(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("start: %v", exc)
	}
	if !prog.Done() {
		t.Fatal("expected the run to complete without suspending")
	}
	if got := prog.Stats().HeapRefSum; got != 0 {
		t.Fatalf("heap refcount sum after completion = %d, want 0", got)
	}
}

// A resource-exhausted run leaves the same refcount sum it started with
// (zero): the failed allocation's partial work is fully unwound.
func TestNoRefcountLeakOnResourceExhaustion(t *testing.T) {
	run, cerr := New("x=['hello world']\ny=x*10000", "leak2.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	prog, exc := run.Start(nil, Limited(ResourceLimits{MaxMemory: 1000}), DiscardPrint{})
	if exc == nil {
		t.Fatal("expected a resource-exhaustion exception")
	}
	if !IsResourceExhausted(exc) {
		t.Fatalf("got %v, want a resource-exhausted exception", exc)
	}
	if got := prog.Stats().HeapRefSum; got != 0 {
		t.Fatalf("heap refcount sum after exhaustion = %d, want 0", got)
	}
}

// A method call (`"hi".upper()`) routes its receiver's method name through
// internal/compile's interned attribute table end to end: Resolve interns
// the EAttr callee's name into AttrID, and internal/eval resolves it back
// to the string CallMethod dispatches on.
func TestRunMethodCallUsesInternedAttrName(t *testing.T) {
	run, cerr := New("\"hi\".upper()", "interned.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindStr || result.Str() != "HI" {
		t.Fatalf("got %v, want Str(\"HI\")", result)
	}
}

// NewWithOptions with a DebugAST writer dumps the compiled tree there and
// still produces a working Run.
func TestNewWithOptionsDebugAST(t *testing.T) {
	var buf bytes.Buffer
	run, cerr := NewWithOptions("x=1\nif x:\n  x+1", "debug.mt", Options{DebugAST: &buf})
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	if buf.Len() == 0 {
		t.Fatal("expected an AST outline on the DebugAST writer")
	}
	if !strings.Contains(buf.String(), "if ") {
		t.Fatalf("outline %q does not mention the if statement", buf.String())
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindInt || result.Int() != 2 {
		t.Fatalf("got %v, want Int(2)", result)
	}
}

// The conversion builtins materialize iterables: list(range(n)) drains a
// range, tuple(x) freezes a list, and indexing the result works like any
// literal-built sequence.
func TestConversionBuiltins(t *testing.T) {
	const src = "x=list(range(3))\ny=tuple(x)\ny[2]"
	run, cerr := New(src, "convert.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindInt || result.Int() != 2 {
		t.Fatalf("got %v, want Int(2)", result)
	}
}

// dict(d) copies: writes to the copy never show through the original.
func TestDictBuiltinCopies(t *testing.T) {
	const src = "d={'a': 1}\ne=dict(d)\ne['a']=2\nd['a']"
	run, cerr := New(src, "dictcopy.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	result, exc := run.Run(nil, Unlimited(), DiscardPrint{})
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	if result.Kind() != KindInt || result.Int() != 1 {
		t.Fatalf("got %v, want Int(1)", result)
	}
}

func TestCollectPrint(t *testing.T) {
	run, cerr := New("print('hi')\nprint(1, 2)", "print.mt", nil)
	if cerr != nil {
		t.Fatalf("compile: %v", cerr)
	}
	print := &CollectPrint{}
	_, exc := run.Run(nil, Unlimited(), print)
	if exc != nil {
		t.Fatalf("run: %v", exc)
	}
	want := []string{"hi", "1 2"}
	if len(print.Lines) != len(want) {
		t.Fatalf("got %v, want %v", print.Lines, want)
	}
	for i := range want {
		if print.Lines[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, print.Lines[i], want[i])
		}
	}
}
