// Package ipi implements the inter-processor interrupt fabric of
// spec.md §4.3: a fixed registry of *event kinds*, each with an
// (update, process) callback pair, dispatched through the hardware
// software-interrupt bit. Grounded on lib/sbi/sbi_ipi.c's
// ipi_ops_array/sbi_ipi_send_many/sbi_ipi_raw_send.
package ipi

import (
	"unsafe"

	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/sbierr"
	"github.com/rvcore/coresbi/scratch"
)

// maxEvents bounds the event registry, matching SBI_IPI_EVENT_MAX's
// role of a small fixed table sized generously for every built-in and
// platform-specific event kind this firmware will ever register.
const maxEvents = 32

// EventOps is the callback pair an event kind registers at cold boot.
// Update posts per-event data into the remote HART's scratch under
// whatever lock that data needs (it may be nil); Process runs on the
// receiving HART once its bit is found set.
type EventOps struct {
	Update  func(local, remote *scratch.Scratch, data interface{}) error
	Process func(local *scratch.Scratch)
}

var registry [maxEvents]*EventOps
var registryCount int

// ResetRegistryForTest clears every registered event. Test-only.
func ResetRegistryForTest() {
	registry = [maxEvents]*EventOps{}
	registryCount = 0
}

// Register installs ops as a new event kind and returns its index, or
// an error if the registry is full.
func Register(ops *EventOps) (uint32, error) {
	if registryCount >= maxEvents {
		return 0, sbierr.ErrNoSpace
	}
	idx := uint32(registryCount)
	registry[idx] = ops
	registryCount++
	return idx, nil
}

// eventBitmapName is the scratch-allocated name for a HART's pending
// IPI event bitmap (spec.md §4.3's "atomically set the event bit in
// the remote's event bitmap").
const eventBitmapName = "ipi.events"

func eventBitmap(s *scratch.Scratch) *bitmap.Bitmap64 {
	buf, ok := s.Lookup(eventBitmapName)
	if !ok {
		var err error
		buf, err = s.Alloc(eventBitmapName, 8)
		if err != nil {
			panic("ipi: failed to allocate event bitmap: " + err.Error())
		}
	}
	return (*bitmap.Bitmap64)(unsafe.Pointer(&buf[0]))
}

// HardwareSignal's Raise and Clear are supplied by the platform/trap
// wiring that owns the real mip.MSIP bit; ipi only manipulates the
// software model (the event bitmap) and calls these to touch hardware.
type HardwareSignal struct {
	Raise func(target *scratch.Scratch)
	Clear func()
}

// SendMany implements spec.md §4.3's ipi_send_many: for each HART in
// targets, call ops.Update (if present) against the remote's scratch,
// atomically set the event bit, and raise the remote's software
// interrupt. sync, if non-nil, is called once after every target has
// been posted (the original's optional post-send barrier).
func SendMany(local *scratch.Scratch, targets []*scratch.Scratch, event uint32, data interface{}, hw HardwareSignal, sync func()) error {
	if event >= maxEvents || registry[event] == nil {
		return sbierr.ErrInvalidParam
	}
	ops := registry[event]

	for _, remote := range targets {
		if ops.Update != nil {
			if err := ops.Update(local, remote, data); err != nil {
				return err
			}
		}
		eventBitmap(remote).Set(uint(event))
		if hw.Raise != nil {
			hw.Raise(remote)
		}
	}
	if sync != nil {
		sync()
	}
	return nil
}

// HandleSoftwareInterrupt is the receiver-side half: atomically
// exchange the event bitmap with zero, invoke Process for each set
// bit in ascending order, then clear the hardware pending bit last
// (spec.md §4.3).
func HandleSoftwareInterrupt(local *scratch.Scratch, clearHardwarePending func()) {
	pending := eventBitmap(local).ExchangeZero()
	bitmap.Iterate(pending, func(bit uint) {
		ops := registry[bit]
		if ops != nil && ops.Process != nil {
			ops.Process(local)
		}
	})
	if clearHardwarePending != nil {
		clearHardwarePending()
	}
}
