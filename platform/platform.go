// Package platform implements spec.md §6's "Platform operations": a
// process-wide Ops structure that boot receives in Config.Platform.
// scratch.Scratch has a PlatformAddr field, but nothing in this module
// stores the Ops pointer there. Every hook is optional; each exported wrapper
// below is the Go analogue of the teacher's corresponding static
// inline sbi_platform_* null-check wrapper in
// include/sbi/sbi_platform.h (original_source), so callers never test
// a hook for nil themselves.
package platform

import "github.com/rvcore/coresbi/fifo"

// VendorExtResult is what a vendor-extension provider hook returns:
// whether it claims the call and, if so, the (code, value) pair to
// place in a0/a1.
type VendorExtResult struct {
	Claimed bool
	Code    int64
	Value   uint64
}

// Ops is the full set of platform hooks spec.md §6 names. coldBoot
// flags (passed to EarlyInit/FinalInit/IrqchipInit) distinguish the
// HART that runs cold-boot-only setup (domain/extension registration,
// scratch-offset allocation) from every other HART's warm entry.
type Ops struct {
	EarlyInit   func(coldBoot bool) error
	FinalInit   func(coldBoot bool) error
	IrqchipInit func(coldBoot bool) error

	ConsolePutc func(ch byte)
	ConsoleGetc func() (byte, bool)

	IPISend  func(targetHart uint32)
	IPIClear func()

	TimerValue      func() uint64
	TimerEventStart func(next uint64)
	TimerEventStop  func()

	SystemReboot   func() error
	SystemShutdown func() error

	TLBFlush func(info fifo.TlbInfo)

	VendorExtCheck    func(extID int64) bool
	VendorExtProvider func(extID, funcID int64, args [6]uint64) VendorExtResult
}

func (o *Ops) EarlyInitOrNil(coldBoot bool) error {
	if o == nil || o.EarlyInit == nil {
		return nil
	}
	return o.EarlyInit(coldBoot)
}

func (o *Ops) FinalInitOrNil(coldBoot bool) error {
	if o == nil || o.FinalInit == nil {
		return nil
	}
	return o.FinalInit(coldBoot)
}

func (o *Ops) IrqchipInitOrNil(coldBoot bool) error {
	if o == nil || o.IrqchipInit == nil {
		return nil
	}
	return o.IrqchipInit(coldBoot)
}

func (o *Ops) ConsolePutcOrNil(ch byte) {
	if o == nil || o.ConsolePutc == nil {
		return
	}
	o.ConsolePutc(ch)
}

// ConsoleGetcOrNil returns (0, false) if no hook is wired.
func (o *Ops) ConsoleGetcOrNil() (byte, bool) {
	if o == nil || o.ConsoleGetc == nil {
		return 0, false
	}
	return o.ConsoleGetc()
}

func (o *Ops) IPISendOrNil(targetHart uint32) {
	if o == nil || o.IPISend == nil {
		return
	}
	o.IPISend(targetHart)
}

func (o *Ops) IPIClearOrNil() {
	if o == nil || o.IPIClear == nil {
		return
	}
	o.IPIClear()
}

func (o *Ops) TimerValueOrNil() uint64 {
	if o == nil || o.TimerValue == nil {
		return 0
	}
	return o.TimerValue()
}

func (o *Ops) TimerEventStartOrNil(next uint64) {
	if o == nil || o.TimerEventStart == nil {
		return
	}
	o.TimerEventStart(next)
}

func (o *Ops) TimerEventStopOrNil() {
	if o == nil || o.TimerEventStop == nil {
		return
	}
	o.TimerEventStop()
}

func (o *Ops) SystemRebootOrNil() error {
	if o == nil || o.SystemReboot == nil {
		return nil
	}
	return o.SystemReboot()
}

func (o *Ops) SystemShutdownOrNil() error {
	if o == nil || o.SystemShutdown == nil {
		return nil
	}
	return o.SystemShutdown()
}

func (o *Ops) TLBFlushOrNil(info fifo.TlbInfo) {
	if o == nil || o.TLBFlush == nil {
		return
	}
	o.TLBFlush(info)
}

// VendorExtCheckOrNil reports whether extID is a recognized vendor
// extension id; false if no hook is wired (no vendor extensions).
func (o *Ops) VendorExtCheckOrNil(extID int64) bool {
	if o == nil || o.VendorExtCheck == nil {
		return false
	}
	return o.VendorExtCheck(extID)
}

// VendorExtProviderOrNil dispatches to the vendor-extension provider
// hook, returning an unclaimed result if none is wired.
func (o *Ops) VendorExtProviderOrNil(extID, funcID int64, args [6]uint64) VendorExtResult {
	if o == nil || o.VendorExtProvider == nil {
		return VendorExtResult{}
	}
	return o.VendorExtProvider(extID, funcID, args)
}
