package ipi

import (
	"github.com/rvcore/coresbi/fifo"
	"github.com/rvcore/coresbi/rlock"
	"github.com/rvcore/coresbi/scratch"
)

// Built-in event indices, assigned once at cold boot by RegisterBuiltins.
var (
	SModeRelayEvent   uint32
	HaltEvent         uint32
	TLBShootdownEvent uint32
)

// TlbFifo is a Go object, not a flat byte buffer, so it doesn't fit
// scratch's bump-allocated byte arena (meant for data an assembly
// trampoline can also address by raw offset, like the event bitmap).
// It lives in this small side table instead, one entry per HART,
// built once at cold boot alongside the scratch table itself.
var (
	tlbQueuesMu rlock.Spinlock
	tlbQueues   = map[*scratch.Scratch]*fifo.TlbFifo{}
)

// ResetTLBQueuesForTest discards every HART's TLB fifo. Test-only.
func ResetTLBQueuesForTest() {
	tlbQueuesMu.Acquire()
	tlbQueues = map[*scratch.Scratch]*fifo.TlbFifo{}
	tlbQueuesMu.Release()
}

func tlbQueue(s *scratch.Scratch) *fifo.TlbFifo {
	tlbQueuesMu.Acquire()
	defer tlbQueuesMu.Release()
	q, ok := tlbQueues[s]
	if !ok {
		q = &fifo.TlbFifo{}
		tlbQueues[s] = q
	}
	return q
}

// RegisterBuiltins installs the three built-in event kinds spec.md
// §4.3 names: smode-relay (sets mip.SSIP on the receiver), halt
// (enters the exit path), and TLB-shootdown (drains the per-HART
// fifo). setSSIP, haltHart and flush are platform/trap hooks supplied
// by the boot sequence.
func RegisterBuiltins(setSSIP func(*scratch.Scratch), haltHart func(*scratch.Scratch), flush func(*scratch.Scratch, fifo.TlbInfo)) error {
	var err error
	SModeRelayEvent, err = Register(&EventOps{
		Process: func(local *scratch.Scratch) {
			if setSSIP != nil {
				setSSIP(local)
			}
		},
	})
	if err != nil {
		return err
	}

	HaltEvent, err = Register(&EventOps{
		Process: func(local *scratch.Scratch) {
			if haltHart != nil {
				haltHart(local)
			}
		},
	})
	if err != nil {
		return err
	}

	TLBShootdownEvent, err = Register(&EventOps{
		Update: func(local, remote *scratch.Scratch, data interface{}) error {
			info, ok := data.(fifo.TlbInfo)
			if !ok {
				return nil
			}
			tlbQueue(remote).Enqueue(info)
			return nil
		},
		Process: func(local *scratch.Scratch) {
			tlbQueue(local).Drain(func(info fifo.TlbInfo) {
				if flush != nil {
					flush(local, info)
				}
			})
		},
	})
	return err
}
