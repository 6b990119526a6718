// Package scratch implements the per-HART state block described in
// spec.md §3 ("Per-HART state") and §6 ("Scratch layout"): a fixed
// header of machine words reachable from M-mode via mscratch, plus
// named per-HART regions (Alloc) that every other subsystem (HSM,
// IPI, domain, MPXY...) uses to find its own per-HART data without a
// global hash map.
//
// It is the RISC-V analogue of the teacher's HART-index registry
// (kernel/hal plus the scratch pointer convention implied throughout
// kernel/kmain) generalized from "one CPU" to "N HARTs, looked up by
// dense index".
package scratch

import (
	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/rlock"
	"github.com/rvcore/coresbi/sbierr"
)

// InvalidHartIndex is the sentinel returned for an unknown HART id or
// out-of-range index, per spec.md §3.
const InvalidHartIndex = ^uint32(0)

// Options bits stored in the scratch header.
const (
	OptionEnableSBIHartExt uint64 = 1 << iota
)

// Scratch is one HART's fixed-header state block. Field order matches
// spec.md §6 (fixed offsets consumed by assembly trampolines): firmware
// base/size, R/W-section offset, heap offset/size, next-boot-stage
// fields, warmboot entry, platform-ops pointer, current trap-context
// pointer, options bitmap. The unexported fields after HartIndex hold
// the named regions Alloc hands out.
type Scratch struct {
	FwStart      uintptr
	FwSize       uintptr
	FwRWOffset   uintptr
	FwHeapOffset uintptr
	FwHeapSize   uintptr

	NextArg1 uintptr
	NextAddr uintptr
	NextMode uint64

	WarmbootAddr uintptr
	PlatformAddr uintptr

	// TrapContext is a back-pointer to the innermost saved trap frame
	// for this HART (spec.md §3, "Trap context... form a per-HART
	// stack"). Owned and mutated by package trap.
	TrapContext uintptr

	Options uint64

	// HartIndex is this HART's dense index, filled in at registration
	// time so code holding only a *Scratch can still find its own
	// index (used by hsm/ipi to address themselves).
	HartIndex uint32

	extraMu   rlock.Spinlock
	extra     map[string][]byte
	nextAlloc uint32
}

// table is the process-wide HART registry: physical hartid -> index,
// and index -> *Scratch. It is built once at cold boot (spec.md §5:
// "Domain registration, extension registration, and scratch-offset
// allocation happen only on the cold-boot HART") and is read-only
// thereafter.
type table struct {
	mu        rlock.Spinlock
	hartids   []uint64
	scratches []*Scratch
	assigned  bitmap.Bitmap64
	built     bool
}

var global table

// ResetForTest discards the HART index table so a test can call Init
// again with a different HART set. It must never be called by firmware
// code — only the cold-boot HART calls Init, exactly once, for the
// lifetime of a real boot.
func ResetForTest() {
	global = table{}
}

// Init constructs the HART index table from the list of enabled
// physical HART ids, in the order given. It must run exactly once, on
// the cold-boot HART, before any other HART is released from warm
// boot. Calling it twice is a protocol bug.
func Init(hartids []uint64) {
	global.mu.Acquire()
	defer global.mu.Release()

	if global.built {
		panic("scratch: Init called twice")
	}

	global.hartids = append([]uint64(nil), hartids...)
	global.scratches = make([]*Scratch, len(hartids))
	for i := range global.scratches {
		s := &Scratch{HartIndex: uint32(i), extra: make(map[string][]byte)}
		global.scratches[i] = s
		global.assigned.Set(uint(i))
	}
	global.built = true
}

// HartCount returns the number of enabled HARTs.
func HartCount() int {
	global.mu.Acquire()
	defer global.mu.Release()
	return len(global.hartids)
}

// IndexForHartID maps a physical hartid to its dense index, or
// InvalidHartIndex if hartid is not one of the enabled HARTs.
func IndexForHartID(hartid uint64) uint32 {
	global.mu.Acquire()
	defer global.mu.Release()
	for i, id := range global.hartids {
		if id == hartid {
			return uint32(i)
		}
	}
	return InvalidHartIndex
}

// HartIDForIndex maps a dense index back to a physical hartid, or
// returns (0, false) if index is out of range.
func HartIDForIndex(index uint32) (uint64, bool) {
	global.mu.Acquire()
	defer global.mu.Release()
	if int(index) >= len(global.hartids) {
		return 0, false
	}
	return global.hartids[index], true
}

// ForIndex returns the scratch block for a dense HART index, or nil if
// index is out of range.
func ForIndex(index uint32) *Scratch {
	global.mu.Acquire()
	defer global.mu.Release()
	if int(index) >= len(global.scratches) {
		return nil
	}
	return global.scratches[index]
}

// ForHartID is a convenience wrapper combining IndexForHartID and
// ForIndex.
func ForHartID(hartid uint64) *Scratch {
	idx := IndexForHartID(hartid)
	if idx == InvalidHartIndex {
		return nil
	}
	return ForIndex(idx)
}

// Each calls fn once per registered HART's scratch block, in index
// order.
func Each(fn func(*Scratch)) {
	global.mu.Acquire()
	snapshot := append([]*Scratch(nil), global.scratches...)
	global.mu.Release()
	for _, s := range snapshot {
		fn(s)
	}
}

// Alloc returns the named region of size bytes for this HART,
// allocating it on first use. Allocations are keyed by name, so a
// second Alloc with the same name and size returns the same backing
// slice, and one with a different size fails with ErrInvalidParam.
// After Free, the name is allocated afresh: the new slice does not
// reuse the freed one's storage.
func (s *Scratch) Alloc(name string, size int) ([]byte, error) {
	s.extraMu.Acquire()
	defer s.extraMu.Release()

	if existing, ok := s.extra[name]; ok {
		if len(existing) != size {
			return nil, sbierr.ErrInvalidParam
		}
		return existing, nil
	}

	buf := make([]byte, size)
	s.extra[name] = buf
	s.nextAlloc++
	return buf, nil
}

// Lookup returns a previously allocated named region, or (nil, false).
func (s *Scratch) Lookup(name string) ([]byte, bool) {
	s.extraMu.Acquire()
	defer s.extraMu.Release()
	b, ok := s.extra[name]
	return b, ok
}

// Free releases a named region so a later Alloc with the same name can
// choose a different size. It does not need to be called on a stable,
// already-running firmware; it exists for the idempotence law's
// "free, then reallocate" half and for orderly HSM stop paths that
// hand a HART's scratch back to a STOPPED state.
func (s *Scratch) Free(name string) {
	s.extraMu.Acquire()
	defer s.extraMu.Release()
	delete(s.extra, name)
}
