package limits

import "testing"

func TestUnlimitedNeverRejects(t *testing.T) {
	u := Unlimited{}
	if err := u.ChargeMemory(1 << 40); err != nil {
		t.Errorf("ChargeMemory: %v", err)
	}
	if err := u.ChargeAllocation(); err != nil {
		t.Errorf("ChargeAllocation: %v", err)
	}
	if err := u.ChargeInstruction(); err != nil {
		t.Errorf("ChargeInstruction: %v", err)
	}
	if err := u.ChargeFrame(); err != nil {
		t.Errorf("ChargeFrame: %v", err)
	}
}

func TestLimitedRejectsOverMemory(t *testing.T) {
	tr := NewLimited(ResourceLimits{MaxMemory: 100})
	if err := tr.ChargeMemory(60); err != nil {
		t.Fatalf("first charge: %v", err)
	}
	if err := tr.ChargeMemory(60); err != ErrMemory {
		t.Fatalf("got %v, want ErrMemory", err)
	}
	if tr.Memory() != 60 {
		t.Errorf("Memory() = %d, want 60 (rejected charge must not apply)", tr.Memory())
	}
}

func TestLimitedZeroMeansUnbounded(t *testing.T) {
	tr := NewLimited(ResourceLimits{MaxMemory: 100})
	for i := 0; i < 1000; i++ {
		if err := tr.ChargeAllocation(); err != nil {
			t.Fatalf("ChargeAllocation with MaxAllocations=0 should never fail, got %v", err)
		}
	}
}

func TestLimitedFrameDepth(t *testing.T) {
	tr := NewLimited(ResourceLimits{MaxFrames: 2})
	if err := tr.ChargeFrame(); err != nil {
		t.Fatalf("1st ChargeFrame: %v", err)
	}
	if err := tr.ChargeFrame(); err != nil {
		t.Fatalf("2nd ChargeFrame: %v", err)
	}
	if err := tr.ChargeFrame(); err != ErrRecursion {
		t.Fatalf("3rd ChargeFrame = %v, want ErrRecursion", err)
	}
	tr.ReleaseFrame()
	if err := tr.ChargeFrame(); err != nil {
		t.Fatalf("ChargeFrame after release: %v", err)
	}
	if got := tr.FrameDepth(); got != 2 {
		t.Errorf("FrameDepth() = %d, want 2", got)
	}
}

func TestReleaseFrameNeverGoesNegative(t *testing.T) {
	tr := NewLimited(ResourceLimits{})
	tr.ReleaseFrame()
	tr.ReleaseFrame()
	if tr.FrameDepth() != 0 {
		t.Errorf("FrameDepth() = %d, want 0", tr.FrameDepth())
	}
}

func TestRestoreLimitedPreservesTotals(t *testing.T) {
	tr := RestoreLimited(ResourceLimits{MaxMemory: 1000}, 400, 7, 12, 3)
	if tr.Memory() != 400 || tr.Allocations() != 7 || tr.Instructions() != 12 || tr.FrameDepth() != 3 {
		t.Fatalf("restored totals mismatch: %+v", tr)
	}
	if err := tr.ChargeMemory(700); err != ErrMemory {
		t.Fatalf("charge past restored baseline = %v, want ErrMemory", err)
	}
}
