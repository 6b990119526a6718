package hsm

import (
	"testing"

	"github.com/rvcore/coresbi/sbierr"
)

func TestLegalLifecycle(t *testing.T) {
	var h HartState
	if err := Start(&h); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.Load() != Starting {
		t.Fatal("expected Starting after Start")
	}
	if err := ConfirmStarted(&h); err != nil {
		t.Fatalf("ConfirmStarted: %v", err)
	}
	if err := Stop(&h); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := ConfirmStopped(&h); err != nil {
		t.Fatalf("ConfirmStopped: %v", err)
	}
	if h.Load() != Stopped {
		t.Fatal("expected Stopped at the end of the lifecycle")
	}
}

func TestStartingAlreadyStartedHartReturnsAlreadyStarted(t *testing.T) {
	var h HartState
	if err := Start(&h); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ConfirmStarted(&h); err != nil {
		t.Fatalf("ConfirmStarted: %v", err)
	}
	if err := Start(&h); err != sbierr.ErrAlreadyStarted {
		t.Fatalf("Start on a STARTED hart = %v, want ErrAlreadyStarted", err)
	}
}

func TestSuspendResume(t *testing.T) {
	var h HartState
	Start(&h)
	ConfirmStarted(&h)
	if err := Suspend(&h); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if h.Load() != SuspendPending {
		t.Fatal("expected SuspendPending")
	}
	if err := ConfirmSuspended(&h); err != nil {
		t.Fatalf("ConfirmSuspended: %v", err)
	}
	if h.Load() != Suspended {
		t.Fatal("expected Suspended")
	}
	if err := BeginResume(&h); err != nil {
		t.Fatalf("BeginResume: %v", err)
	}
	if h.Load() != ResumePending {
		t.Fatal("expected ResumePending")
	}
	if err := ConfirmResumed(&h); err != nil {
		t.Fatalf("ConfirmResumed: %v", err)
	}
	if h.Load() != Started {
		t.Fatal("expected Started after ConfirmResumed")
	}
}

func TestIllegalEdgePanics(t *testing.T) {
	var h HartState
	defer func() {
		if recover() == nil {
			t.Fatal("expected Stop on a STOPPED hart to panic (not a legal edge)")
		}
	}()
	Stop(&h)
}

func TestWaitUntilLeavesStopped(t *testing.T) {
	var h HartState
	go func() {
		Start(&h)
	}()

	calls := 0
	got := WaitUntilLeavesStopped(&h, func() { calls++ })
	if got == Stopped {
		t.Fatal("WaitUntilLeavesStopped returned while still Stopped")
	}
}
