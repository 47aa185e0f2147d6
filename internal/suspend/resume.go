package suspend

import "sync/atomic"

// CallIDSource issues monotonically increasing call ids, the same
// atomic-counter idiom the reference Go interpreter uses for its per-frame
// run ids (interp.runid/setrunid): a plain uint64 bumped with
// atomic.AddUint64 rather than a mutex, since the only operation is an
// increment-and-read.
type CallIDSource struct {
	next uint64
}

// Next returns the next call id, starting at 1 (0 is reserved to mean "no
// pending call").
func (s *CallIDSource) Next() uint64 {
	return atomic.AddUint64(&s.next, 1)
}

// RestoreCallIDSource rebuilds a CallIDSource that continues issuing ids
// after last, used when resuming a run from a snapshot so a restored run
// never reissues a call id a prior Resume might still reference.
func RestoreCallIDSource(last uint64) *CallIDSource {
	return &CallIDSource{next: last}
}

// Peek reports the id the next call to Next will issue, without consuming
// it, used when dumping a snapshot so the restored source's NextCallID
// picks up exactly where this run left off.
func (s *CallIDSource) Peek() uint64 {
	return atomic.LoadUint64(&s.next) + 1
}

// Resume is the single-use continuation a host calls to supply the return
// value of a paused function/OS call. Once consumed, further calls to
// Consume fail rather than silently re-running the frame, guarding against
// a host that (accidentally or adversarially) replays a stale Resume after
// the run has already moved past that call id.
type Resume struct {
	callID   uint64
	consumed uint32 // atomic flag, 0 = unconsumed, 1 = consumed
}

// NewResume builds a Resume gated on callID.
func NewResume(callID uint64) *Resume {
	return &Resume{callID: callID}
}

// CallID returns the call id this Resume answers.
func (r *Resume) CallID() uint64 { return r.callID }

// ErrAlreadyConsumed is returned by Consume when the Resume has already been
// used.
type ErrAlreadyConsumed struct{ CallID uint64 }

func (e *ErrAlreadyConsumed) Error() string {
	return "suspend: resume for call id already consumed"
}

// ErrStaleCallID is returned when the supplied callID doesn't match what the
// frame is actually paused on (e.g. a Resume built for an earlier call,
// replayed after the run advanced past it).
type ErrStaleCallID struct {
	Expected, Got uint64
}

func (e *ErrStaleCallID) Error() string {
	return "suspend: resume call id does not match the pending call"
}

// Consume marks r as used via a compare-and-swap, returning
// ErrAlreadyConsumed if it was already consumed. Callers must check the
// error before using the Resume's value.
func (r *Resume) Consume() error {
	if !atomic.CompareAndSwapUint32(&r.consumed, 0, 1) {
		return &ErrAlreadyConsumed{CallID: r.callID}
	}
	return nil
}

// CheckCallID validates that r answers the call the frame is actually
// paused on.
func CheckCallID(r *Resume, pending uint64) error {
	if r.callID != pending {
		return &ErrStaleCallID{Expected: pending, Got: r.callID}
	}
	return nil
}
