// Package timer implements the TIME extension's single operation,
// set_timer: arm (or disarm) the next timer interrupt for the calling
// HART. Grounded on lib/sbi/sbi_hart.h's platform_ops timer hooks and
// shaped, like ipi.HardwareSignal, as a small struct of optional
// function hooks rather than a global interface, so it is host-
// testable without a platform package.
package timer

// Ops are the timer half of spec.md §6's platform_ops: Value reads the
// free-running mtime-equivalent counter, EventStart arms the next
// timer interrupt at a given absolute time, EventStop disarms it. Each
// hook is optional; a nil hook is a no-op.
type Ops struct {
	Value      func() uint64
	EventStart func(next uint64)
	EventStop  func()
}

// NoNextEvent is the sentinel set_timer argument requesting that the
// timer interrupt be masked rather than rearmed (a HART parking
// itself with no pending deadline).
const NoNextEvent = ^uint64(0)

// SetTimer implements set_timer(next_event): stop any currently armed
// event before (re)starting it, mirroring sbi_timer_event_start's
// disable-then-arm sequence so a stale compare value can never fire
// between the stop and the new arm.
func SetTimer(ops Ops, next uint64) {
	if ops.EventStop != nil {
		ops.EventStop()
	}
	if next == NoNextEvent {
		return
	}
	if ops.EventStart != nil {
		ops.EventStart(next)
	}
}

// Value reads the current timer value, or 0 if the platform exposes
// no counter.
func Value(ops Ops) uint64 {
	if ops.Value == nil {
		return 0
	}
	return ops.Value()
}

// Pending reports whether now has reached or passed deadline, the
// condition under which a correctly armed timer interrupt has already
// fired. Only the tests call it; the trap engine does not.
func Pending(now, deadline uint64) bool {
	return deadline != NoNextEvent && now >= deadline
}
