// Package suspend implements the suspension/resumption protocol: a frame
// that hits a call to a function the host controls (a user-supplied
// external function, or an os.* call) doesn't run it; it produces an Exit
// describing the pending call and hands control back to the host, which
// eventually supplies a return value through a Resume to continue exactly
// where it left off.
package suspend

import "github.com/RayVR/monty/internal/value"

// ExitKind discriminates why a Run paused or finished.
type ExitKind int

const (
	// ExitComplete means the program (or function call) ran to completion;
	// the carried Value is the result.
	ExitComplete ExitKind = iota
	// ExitFunctionCall means execution paused on a call to a host-supplied
	// external function. The host resolves it and calls Resume.
	ExitFunctionCall
	// ExitOsCall means execution paused on a call into the sandboxed os.*
	// namespace (e.g. os.getenv). Distinct from ExitFunctionCall so hosts
	// that only want to intercept their own external functions, not OS
	// shims, can tell the two apart.
	ExitOsCall
	// ExitYield means a module-level `yield` statement suspended the run,
	// handing the yielded value to the host exactly like an external call
	// does. A generator function's own `yield` never reaches here; it is
	// consumed internally by internal/types.FrameObj without ever
	// suspending the outermost run.
	ExitYield
)

func (k ExitKind) String() string {
	switch k {
	case ExitComplete:
		return "Complete"
	case ExitFunctionCall:
		return "FunctionCall"
	case ExitOsCall:
		return "OsCall"
	case ExitYield:
		return "Yield"
	default:
		return "Unknown"
	}
}

// KwArg is a single keyword argument, preserved in source call order;
// never collapsed into a map, since source order is observable (e.g. by a
// host function that inspects kwargs positionally for error messages).
type KwArg struct {
	Name  string
	Value value.Value
}

// CallInfo describes a paused call: which function, the evaluated
// positional and keyword arguments, and a monotonically increasing id
// distinguishing this pause from any other pending or past call in the same
// run (used to guard against a stale Resume being replayed after the frame
// has already moved past it).
type CallInfo struct {
	Name    string
	Args    []value.Value
	Kwargs  []KwArg
	CallID  uint64
}

// Exit is the result of driving a frame forward: either it completed with a
// value, or it paused on a function/OS call/yield that the host must
// resolve via Resume.
type Exit struct {
	Kind  ExitKind
	Value value.Value // valid when Kind == ExitComplete or ExitYield
	Call  CallInfo     // valid when Kind == ExitFunctionCall or ExitOsCall
	Resume *Resume     // nil when Kind == ExitComplete
}

// Complete builds an Exit for a finished run.
func Complete(v value.Value) Exit {
	return Exit{Kind: ExitComplete, Value: v}
}

// FunctionCall builds an Exit for a paused external call.
func FunctionCall(call CallInfo, r *Resume) Exit {
	return Exit{Kind: ExitFunctionCall, Call: call, Resume: r}
}

// OsCall builds an Exit for a paused os.* call.
func OsCall(call CallInfo, r *Resume) Exit {
	return Exit{Kind: ExitOsCall, Call: call, Resume: r}
}

// Yield builds an Exit for a module-level yield suspension.
func Yield(v value.Value, r *Resume) Exit {
	return Exit{Kind: ExitYield, Value: v, Resume: r}
}
