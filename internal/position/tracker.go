// Package position implements the position tracker used to resume a frame
// mid-statement after a suspension: a stack of Position values, one per
// nesting level of control flow currently being unwound, recording both the
// index of the next node to execute and enough clause state (which branch
// of an if, which iteration of a for) to resume exactly where execution left
// off.
package position

// ClauseKind discriminates the variants of ClauseState.
type ClauseKind int

const (
	ClauseNone ClauseKind = iota
	ClauseIf
	ClauseFor
	ClauseWhile
	ClauseTry
)

// ClauseState records how to resume inside nested control flow.
type ClauseState struct {
	Kind ClauseKind

	// If: whether the condition was met - true resumes the if branch, false
	// resumes the else branch.
	IfBranchTaken bool

	// For/While: index of the next element/iteration to resume from.
	NextIndex int

	// Try: index of the except handler currently executing, or -1 if still
	// in the try body / about to run Finally.
	HandlerIndex int
}

// IfState builds a ClauseState for resuming an if/else.
func IfState(branchTaken bool) ClauseState {
	return ClauseState{Kind: ClauseIf, IfBranchTaken: branchTaken}
}

// ForState builds a ClauseState for resuming a for loop at nextIndex.
func ForState(nextIndex int) ClauseState {
	return ClauseState{Kind: ClauseFor, NextIndex: nextIndex}
}

// WhileState builds a ClauseState for resuming a while loop.
func WhileState() ClauseState {
	return ClauseState{Kind: ClauseWhile}
}

// TryState builds a ClauseState for resuming inside a try/except/finally.
func TryState(handlerIndex int) ClauseState {
	return ClauseState{Kind: ClauseTry, HandlerIndex: handlerIndex}
}

// Position is a single stack level: the index of the next node to execute
// within its enclosing node array, plus optional clause state for resuming
// nested control flow.
type Position struct {
	Index       int
	ClauseState *ClauseState
}

// Tracker is the position-tracking contract a frame consults on every
// statement boundary. NoopTracker discards everything (used for a plain,
// non-resumable run); RecordingTracker maintains the real stack used to
// reconstruct execution state across a suspend/resume cycle or a snapshot
// round trip.
type Tracker interface {
	// Next pops and returns the next Position to resume from, or the zero
	// Position if the stack is empty (start from the top of the body).
	Next() Position

	// Record pushes a Position for the given node index, attaching (and
	// clearing) any pending clause state set via SetClauseState.
	Record(index int)

	// SetClauseState stashes clause state to be attached to the next Record
	// call.
	SetClauseState(cs ClauseState)

	// ClearReturnValues reports whether suspended return values must be
	// cleared between runs; true only when position is actually tracked,
	// since a NoopTracker never resumes and has nothing to clear.
	ClearReturnValues() bool
}

// NoopTracker is used for a single-shot run with no suspension support: a
// call to monty.Run.Run never needs to resume, so tracking positions would
// be pure overhead.
type NoopTracker struct{}

func (NoopTracker) Next() Position             { return Position{} }
func (NoopTracker) Record(index int)           {}
func (NoopTracker) SetClauseState(cs ClauseState) {}
func (NoopTracker) ClearReturnValues() bool    { return false }

// RecordingTracker is the real position tracker: a stack of Positions, with
// an increment-on-next-record flag used when resuming a frame that was
// interrupted by a completed, already-consumed suspension (the interrupted
// statement must be skipped, not re-executed).
type RecordingTracker struct {
	stack       []Position
	clauseState *ClauseState
	incr        bool
}

// NewRecordingTracker builds an empty RecordingTracker.
func NewRecordingTracker() *RecordingTracker {
	return &RecordingTracker{}
}

// FromStack rebuilds a RecordingTracker from a previously-recorded stack,
// used when resuming a frame restored from a snapshot.
func FromStack(stack []Position) *RecordingTracker {
	cp := make([]Position, len(stack))
	copy(cp, stack)
	return &RecordingTracker{stack: cp}
}

// Stack returns the current position stack, for snapshot encoding. The
// caller must not mutate the returned slice.
func (t *RecordingTracker) Stack() []Position { return t.stack }

// SkipNextRecord arranges for the next Record call to record one index past
// the one given, used after consuming a suspension whose originating
// statement must not be re-executed on resume.
func (t *RecordingTracker) SkipNextRecord() { t.incr = true }

func (t *RecordingTracker) Next() Position {
	if len(t.stack) == 0 {
		return Position{}
	}
	top := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return top
}

func (t *RecordingTracker) Record(index int) {
	if t.incr {
		t.incr = false
		index++
	}
	t.stack = append(t.stack, Position{Index: index, ClauseState: t.clauseState})
	t.clauseState = nil
}

func (t *RecordingTracker) SetClauseState(cs ClauseState) {
	c := cs
	t.clauseState = &c
}

func (t *RecordingTracker) ClearReturnValues() bool { return true }
