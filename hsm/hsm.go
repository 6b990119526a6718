// Package hsm implements the HART state machine of spec.md §3/§4.3:
// the seven-state STOPPED/STARTING/STARTED/STOPPING/SUSPEND-PENDING/
// SUSPENDED/RESUME-PENDING protocol that lets a guest hot-plug and
// suspend/resume a HART through SBI HSM calls. Every transition is a
// single compare-and-swap, ported from the teacher's rlock-free-CAS
// style (kernel/sync's atomic primitives) and grounded on
// lib/sbi/sbi_hsm.c's arch_atomic_cmpxchg calls.
package hsm

import (
	"sync/atomic"

	"github.com/rvcore/coresbi/sbierr"
)

// State is one HART's HSM state.
type State int32

const (
	Stopped State = iota
	Starting
	Started
	Stopping
	SuspendPending
	Suspended
	ResumePending
)

// HartState is one HART's HSM state cell. The zero value is Stopped,
// matching a HART that has never been started.
type HartState struct {
	state int32
}

// Load reads the current state.
func (h *HartState) Load() State { return State(atomic.LoadInt32(&h.state)) }

// legalEdges is the exhaustive set of CAS transitions spec.md §4.3
// permits. Anything not in this table is a protocol bug regardless of
// the HART's actual current state.
var legalEdges = map[[2]State]sbierr.Code{
	{Stopped, Starting}:         sbierr.ErrAlreadyStarted,
	{Starting, Started}:         sbierr.ErrAlreadyStarted,
	{Started, Stopping}:         sbierr.ErrAlreadyStopped,
	{Stopping, Stopped}:         sbierr.ErrAlreadyStopped,
	{Started, SuspendPending}:   sbierr.ErrAlreadyStarted,
	{SuspendPending, Suspended}: sbierr.ErrAlreadyStopped,
	{Suspended, ResumePending}:  sbierr.ErrAlreadyStarted,
	{ResumePending, Started}:    sbierr.ErrAlreadyStarted,
}

// transition attempts the CAS from->to. If the edge isn't one of
// legalEdges at all, that's a caller bug (it would never be issued by
// correct HSM code) and panics unconditionally. If the edge is legal
// but the HART's actual state doesn't match from, the only sanctioned
// outcomes are "it's already at to", or, for STOPPED->STARTING, "it's
// already STARTED" (both return the edge's ALREADY_* code); anything
// else is also a protocol bug.
func transition(h *HartState, from, to State) error {
	alreadyCode, legal := legalEdges[[2]State{from, to}]
	if !legal {
		panic("hsm: transition not in the legal edge set")
	}

	if atomic.CompareAndSwapInt32(&h.state, int32(from), int32(to)) {
		return nil
	}

	if cur := h.Load(); cur == to || (to == Starting && cur == Started) {
		return alreadyCode
	}
	panic("hsm: transition attempted from an unexpected state")
}

// Start begins the STOPPED->STARTING edge (spec.md §4.3 "Start
// sequencing"): the caller is expected to have already validated
// start_addr against its own domain and written next_addr/next_arg1
// into the target's scratch before calling this.
func Start(h *HartState) error { return transition(h, Stopped, Starting) }

// ConfirmStarted completes the first-start handshake, STARTING->STARTED,
// invoked by the target HART itself once it reaches warmboot_addr.
func ConfirmStarted(h *HartState) error { return transition(h, Starting, Started) }

// Stop begins STARTED->STOPPING, called by a HART on itself in
// response to hart_stop.
func Stop(h *HartState) error { return transition(h, Started, Stopping) }

// ConfirmStopped completes STOPPING->STOPPED in the exit path.
func ConfirmStopped(h *HartState) error { return transition(h, Stopping, Stopped) }

// Suspend begins STARTED->SUSPEND-PENDING, called by a HART on itself
// in response to hart_suspend.
func Suspend(h *HartState) error { return transition(h, Started, SuspendPending) }

// ConfirmSuspended completes SUSPEND-PENDING->SUSPENDED once the HART
// has actually idled (WFI or platform-specific retentive/non-retentive
// suspend) rather than merely having been asked to.
func ConfirmSuspended(h *HartState) error { return transition(h, SuspendPending, Suspended) }

// BeginResume starts the wake handshake, SUSPENDED->RESUME-PENDING,
// triggered by the resume interrupt/IPI that pulls the HART out of
// its suspended state.
func BeginResume(h *HartState) error { return transition(h, Suspended, ResumePending) }

// ConfirmResumed completes the resume handshake, RESUME-PENDING->STARTED,
// invoked by the target HART itself once it reaches resume_addr —
// the suspend-path counterpart to ConfirmStarted.
func ConfirmResumed(h *HartState) error { return transition(h, ResumePending, Started) }

// WaitUntilLeavesStopped busy-waits (the WFI-equivalent on this
// build) until h's state is no longer Stopped, per spec.md §4.3: "On
// re-entry from warmboot, a HART in STOPPED busy-waits... until its
// state leaves STOPPED." wfi is called once per spin iteration so a
// test double can inject a yield/sleep instead of a tight spin.
func WaitUntilLeavesStopped(h *HartState, wfi func()) State {
	for {
		if s := h.Load(); s != Stopped {
			return s
		}
		if wfi != nil {
			wfi()
		}
	}
}
