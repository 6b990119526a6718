// Package fifo implements the single-producer-multi-consumer queue of
// pending TLB shootdown requests described in spec.md §4.3. It is kept
// as its own package (mirroring spec.md §2's "Atomics, locks, bitmaps,
// FIFO" primitives group) because every HART owns exactly one of these
// and the IPI package only needs to enqueue/drain it.
package fifo

import "github.com/rvcore/coresbi/rlock"

// FlushType enumerates the kind of TLB maintenance a TlbInfo entry
// requests.
type FlushType int

const (
	// FlushVMA requests sfence.vma for [Start, Start+Size).
	FlushVMA FlushType = iota
	// FlushVMAAsid requests sfence.vma for [Start, Start+Size) and ASID.
	FlushVMAAsid
	// FlushGVMA requests hfence.gvma (guest physical address space).
	FlushGVMA
	// FlushGVMAVmid requests hfence.gvma for a specific VMID.
	FlushGVMAVmid
	// FlushVVMA requests hfence.vvma (guest virtual address space).
	FlushVVMA
	// FlushVVMAAsid requests hfence.vvma for a specific ASID.
	FlushVVMAAsid
)

// FlushMaxSize is the sentinel size that requests an unqualified,
// full-address-space fence rather than a per-page loop.
const FlushMaxSize = ^uint64(0)

// TlbInfo describes one pending TLB maintenance request.
type TlbInfo struct {
	Type  FlushType
	Start uint64
	Size  uint64
	Asid  uint64
}

// sameScope reports whether two entries address the same ASID/VMID
// scope and are therefore eligible for coalescing.
func (t TlbInfo) sameScope(o TlbInfo) bool {
	return t.Type == o.Type && t.Asid == o.Asid
}

// nestableWith reports whether t's range can be coalesced into o's
// range (or vice versa) without overflushing an address that neither
// entry asked to flush beyond what the union already implies.
func (t TlbInfo) nestableWith(o TlbInfo) (union TlbInfo, ok bool) {
	if !t.sameScope(o) {
		return TlbInfo{}, false
	}
	if t.Size == FlushMaxSize || o.Size == FlushMaxSize {
		union = t
		union.Size = FlushMaxSize
		return union, true
	}

	tEnd := t.Start + t.Size
	oEnd := o.Start + o.Size
	// Nestable iff one range fully contains the other, or the two are
	// contiguous/overlapping so their union is still a single range.
	lo := t.Start
	if o.Start < lo {
		lo = o.Start
	}
	hi := tEnd
	if oEnd > hi {
		hi = oEnd
	}
	if lo == t.Start && hi == tEnd {
		return t, true // t already covers o
	}
	if lo == o.Start && hi == oEnd {
		return o, true // o already covers t
	}
	if t.Start <= oEnd && o.Start <= tEnd {
		union = t
		union.Start = lo
		union.Size = hi - lo
		return union, true
	}
	return TlbInfo{}, false
}

// depth bounds how many distinct entries a single HART's TLB fifo will
// hold before a later Enqueue simply upgrades the queue to a full
// flush; coalescing keeps real workloads well under this.
const depth = 32

// TlbFifo is the per-HART queue of pending TLB shootdown requests. The
// zero value is an empty queue.
type TlbFifo struct {
	mu      rlock.Spinlock
	entries [depth]TlbInfo
	count   int
}

// Enqueue adds a new shootdown request, coalescing it into the last
// queued entry when the two describe the same ASID scope and their
// ranges are nestable (spec.md §4.3). A full SFENCE.VMA request
// (Size >= FlushMaxSize) resets the queue to hold just that entry.
func (q *TlbFifo) Enqueue(info TlbInfo) {
	q.mu.Acquire()
	defer q.mu.Release()

	if info.Size >= FlushMaxSize {
		q.entries[0] = info
		q.count = 1
		return
	}

	if q.count > 0 {
		last := &q.entries[q.count-1]
		if union, ok := last.nestableWith(info); ok {
			*last = union
			return
		}
	}

	if q.count == depth {
		// Queue exhausted: collapse to a single full-address-space
		// request of the same scope as the newest entry rather than
		// drop information silently.
		q.entries[0] = TlbInfo{Type: info.Type, Asid: info.Asid, Size: FlushMaxSize}
		q.count = 1
		return
	}

	q.entries[q.count] = info
	q.count++
}

// Drain removes every queued entry, invoking fn for each in FIFO order,
// and returns the queue to empty. fn is expected to issue the precise
// fence instruction sequence for the entry (spec.md §4.3).
func (q *TlbFifo) Drain(fn func(TlbInfo)) {
	q.mu.Acquire()
	n := q.count
	var buf [depth]TlbInfo
	copy(buf[:n], q.entries[:n])
	q.count = 0
	q.mu.Release()

	for i := 0; i < n; i++ {
		fn(buf[i])
	}
}

// Len reports the number of currently queued (possibly coalesced)
// entries. It exists for tests and diagnostics only.
func (q *TlbFifo) Len() int {
	q.mu.Acquire()
	defer q.mu.Release()
	return q.count
}
