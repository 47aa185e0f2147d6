package suspend

import (
	"errors"
	"testing"
)

func TestCallIDSourceStartsAtOne(t *testing.T) {
	var s CallIDSource
	if got := s.Next(); got != 1 {
		t.Fatalf("first id = %d, want 1 (0 is reserved)", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("second id = %d, want 2", got)
	}
}

func TestCallIDSourcePeekDoesNotConsume(t *testing.T) {
	var s CallIDSource
	s.Next()
	if got := s.Peek(); got != 2 {
		t.Fatalf("peek = %d, want 2", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("next after peek = %d, want 2 (peek must not consume)", got)
	}
}

func TestRestoreCallIDSourceContinues(t *testing.T) {
	s := RestoreCallIDSource(7)
	if got := s.Next(); got != 8 {
		t.Fatalf("restored next = %d, want 8", got)
	}
}

// A Resume is single-use: the second Consume fails deterministically.
func TestResumeConsumeOnce(t *testing.T) {
	r := NewResume(3)
	if err := r.Consume(); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	err := r.Consume()
	if err == nil {
		t.Fatal("second consume must fail")
	}
	var consumed *ErrAlreadyConsumed
	if !errors.As(err, &consumed) {
		t.Fatalf("got %T, want *ErrAlreadyConsumed", err)
	}
	if consumed.CallID != 3 {
		t.Fatalf("consumed.CallID = %d, want 3", consumed.CallID)
	}
}

func TestCheckCallIDMismatch(t *testing.T) {
	r := NewResume(5)
	if err := CheckCallID(r, 5); err != nil {
		t.Fatalf("matching id: %v", err)
	}
	err := CheckCallID(r, 6)
	if err == nil {
		t.Fatal("stale id must be rejected")
	}
	var stale *ErrStaleCallID
	if !errors.As(err, &stale) {
		t.Fatalf("got %T, want *ErrStaleCallID", err)
	}
	if stale.Expected != 6 || stale.Got != 5 {
		t.Fatalf("stale = %+v, want Expected=6 Got=5", stale)
	}
}
