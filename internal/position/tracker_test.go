package position

import "testing"

func TestNoopTrackerDiscardsEverything(t *testing.T) {
	var tr NoopTracker
	tr.SetClauseState(IfState(true))
	tr.Record(5)
	if got := tr.Next(); got != (Position{}) {
		t.Fatalf("NoopTracker.Next() = %+v, want zero Position", got)
	}
	if tr.ClearReturnValues() {
		t.Fatal("NoopTracker must never ask callers to clear return values")
	}
}

func TestRecordingTrackerStackIsLIFO(t *testing.T) {
	tr := NewRecordingTracker()
	tr.Record(1)
	tr.Record(2)
	tr.Record(3)

	if got := tr.Next(); got.Index != 3 {
		t.Fatalf("first pop = %d, want 3", got.Index)
	}
	if got := tr.Next(); got.Index != 2 {
		t.Fatalf("second pop = %d, want 2", got.Index)
	}
	if got := tr.Next(); got.Index != 1 {
		t.Fatalf("third pop = %d, want 1", got.Index)
	}
	if got := tr.Next(); got != (Position{}) {
		t.Fatalf("pop past empty = %+v, want zero Position", got)
	}
}

func TestRecordingTrackerAttachesClauseState(t *testing.T) {
	tr := NewRecordingTracker()
	tr.SetClauseState(ForState(4))
	tr.Record(10)

	pos := tr.Next()
	if pos.Index != 10 {
		t.Fatalf("Index = %d, want 10", pos.Index)
	}
	if pos.ClauseState == nil || pos.ClauseState.Kind != ClauseFor || pos.ClauseState.NextIndex != 4 {
		t.Fatalf("ClauseState = %+v, want For(4)", pos.ClauseState)
	}
}

func TestRecordingTrackerClauseStateDoesNotLeakToNextRecord(t *testing.T) {
	tr := NewRecordingTracker()
	tr.SetClauseState(IfState(true))
	tr.Record(1)
	tr.Record(2) // no SetClauseState call before this one

	top := tr.Next()
	if top.ClauseState != nil {
		t.Fatalf("second Record must not inherit the first's clause state, got %+v", top.ClauseState)
	}
}

func TestSkipNextRecordIncrementsIndexOnce(t *testing.T) {
	tr := NewRecordingTracker()
	tr.SkipNextRecord()
	tr.Record(5) // skip applies here: recorded as 6
	tr.Record(7) // one-shot: not affected by the earlier skip

	if got := tr.Next(); got.Index != 7 {
		t.Fatalf("second record's index = %d, want 7 (unaffected by the one-shot skip)", got.Index)
	}
	if got := tr.Next(); got.Index != 6 {
		t.Fatalf("first record's index = %d, want 6 (5 incremented once by SkipNextRecord)", got.Index)
	}
}

func TestFromStackCopiesRatherThanAliases(t *testing.T) {
	orig := []Position{{Index: 1}, {Index: 2}}
	tr := FromStack(orig)
	orig[0].Index = 99

	if got := tr.Stack()[0].Index; got != 1 {
		t.Fatalf("FromStack aliased the caller's slice: got %d, want 1", got)
	}
}
