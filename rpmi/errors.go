package rpmi

import "errors"

// ErrFull is returned by Send when the queue has no free slot.
var ErrFull = errors.New("rpmi: queue full")

// ErrTimeout is returned when a send or receive exhausts its retry
// budget without making progress (spec.md §4.4 "Timeouts").
var ErrTimeout = errors.New("rpmi: timed out")

// ErrAmbiguousMatch is returned to a tokenless receiver when the slot
// it would otherwise have matched (by servicegroup/service/type) is
// also the specific token a concurrently-waiting tokened receiver is
// blocked on. See SPEC_FULL.md §E: rather than guess an ordering
// between the two waiters, the tokenless call loses and must retry.
var ErrAmbiguousMatch = errors.New("rpmi: ambiguous match with a pending tokened receive")

// ErrPayloadTooLarge is returned when a transfer's payload would not
// fit in one slot.
var ErrPayloadTooLarge = errors.New("rpmi: payload exceeds slot capacity")
