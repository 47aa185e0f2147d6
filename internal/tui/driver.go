package tui

import (
	"fmt"

	"github.com/RayVR/monty"
)

// Snapshot is one step of a driven run, published over a channel so the
// bubbletea Update loop never touches the RunProgress (and its heap)
// directly from a different goroutine.
type Snapshot struct {
	Step    int
	Frame   string
	Pending string
	Stats   monty.Stats
	Prints  []string
	Done    bool
	Result  string
	Err     string
}

// Drive steps prog to completion, auto-answering every suspension with
// None, and publishes a Snapshot after each step on out. It closes out
// when the run finishes. There is no real host on the other end of a
// suspended call in this mode: montyctl watch is an observability demo,
// not a general embedding harness: a FunctionCall/OsCall suspension is
// answered by whatever host calls Resume, and here that host is this loop.
func Drive(prog *monty.RunProgress, prints *monty.CollectPrint, out chan<- Snapshot) {
	defer close(out)
	step := 0
	for {
		step++
		snap := snapshotOf(prog, prints, step)
		out <- snap
		if snap.Done {
			return
		}

		reply := monty.None
		next, err := prog.Resume(reply)
		if err != nil {
			out <- Snapshot{Step: step + 1, Done: true, Err: err.Error()}
			return
		}
		prog = next
	}
}

func snapshotOf(prog *monty.RunProgress, prints *monty.CollectPrint, step int) Snapshot {
	snap := Snapshot{
		Step:   step,
		Frame:  prog.FrameName(),
		Stats:  prog.Stats(),
		Prints: append([]string(nil), prints.Lines...),
	}
	if prog.Done() {
		snap.Done = true
		if exc := prog.Err(); exc != nil {
			snap.Err = exc.Error()
		} else if result, ok := prog.Result(); ok {
			snap.Result = result.String()
		}
		return snap
	}
	if name, args, kwargs, callID, ok := prog.Pending(); ok {
		snap.Pending = fmt.Sprintf("%s(%s)%s  [call %d]", name, joinArgs(args), joinKwargs(kwargs), callID)
	}
	return snap
}

func joinArgs(args []monty.MontyObject) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s
}

func joinKwargs(kwargs []monty.KwArg) string {
	if len(kwargs) == 0 {
		return ""
	}
	s := ""
	for _, kw := range kwargs {
		s += ", " + kw.Name + "=" + kw.Value.String()
	}
	return s
}
