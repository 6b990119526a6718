package trap

import (
	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/scratch"
)

// Emulator is implemented by the instruction-emulation families in
// package emulate. TryEmulate attempts to service a synchronous fault
// without involving S-mode; it reports whether it recognized and
// handled the instruction, and whether mepc should advance by the
// decoded instruction length (the caller still owns advancing mepc,
// since only the emulator knows the instruction's length).
type Emulator interface {
	TryEmulate(ctx *Context) (handled bool, advance uint64, err error)
}

// EcallDispatcher is implemented by package ext's extension table.
type EcallDispatcher interface {
	Dispatch(ctx *Context) (errCode int64, value uint64)
}

// Hooks bundles every external collaborator the engine dispatches to.
// All fields are optional except the ones the classifier cannot do
// without (there is no sensible default for "what handles a timer
// interrupt").
type Hooks struct {
	Timer    func(s *scratch.Scratch)
	IPI      func(s *scratch.Scratch)
	External func(s *scratch.Scratch)

	Emulators []Emulator
	Ecall     EcallDispatcher

	// Fatal is invoked when nothing above can service the trap. The
	// default (set by Init) dumps registers and halts; tests override
	// it to observe the decision without actually halting the process.
	Fatal func(s *scratch.Scratch, ctx *Context)
}

var hooks Hooks

// Init installs the engine's collaborators. It is expected to run once
// per cold/warm boot path, before interrupts are enabled.
func Init(h Hooks) {
	if h.Fatal == nil {
		h.Fatal = defaultFatal
	}
	hooks = h
}

// Handle is the M-mode trap entry point's Go-level continuation: by
// the time it is called, mcause/mepc/mstatus/mtval(2)/mtinst have
// already been captured into ctx by the assembly trampoline and ctx
// has been Push'd onto s's context stack.
func Handle(s *scratch.Scratch, ctx *Context) {
	if IsInterrupt(ctx.Info.Cause) {
		handleInterrupt(s, ctx)
		return
	}

	code := ExceptionCode(ctx.Info.Cause)

	if IsEcall(code) {
		handleEcall(s, ctx)
		return
	}

	for _, em := range hooks.Emulators {
		handled, advance, err := em.TryEmulate(ctx)
		if !handled {
			continue
		}
		if err != nil {
			// The emulator decided this belongs to S-mode (e.g. the
			// unprivileged fetch itself faulted); it has already
			// populated ctx.Info with the inner fault's cause/tval.
			Redirect(s, ctx)
			return
		}
		ctx.Mepc += advance
		return
	}

	if delegated(ctx) {
		Redirect(s, ctx)
		return
	}

	hooks.Fatal(s, ctx)
}

func handleInterrupt(s *scratch.Scratch, ctx *Context) {
	switch ExceptionCode(ctx.Info.Cause) {
	case CauseMachineTimerInterrupt:
		if hooks.Timer != nil {
			hooks.Timer(s)
			return
		}
	case CauseMachineSoftwareInterrupt:
		if hooks.IPI != nil {
			hooks.IPI(s)
			return
		}
	case CauseMachineExternalInterrupt:
		if hooks.External != nil {
			hooks.External(s)
			return
		}
	}
	hooks.Fatal(s, ctx)
}

func handleEcall(s *scratch.Scratch, ctx *Context) {
	if hooks.Ecall == nil {
		hooks.Fatal(s, ctx)
		return
	}
	errCode, value := hooks.Ecall.Dispatch(ctx)
	ctx.Regs.SetA(0, uint64(errCode))
	ctx.Regs.SetA(1, value)
	ctx.Mepc += 4
}

// delegated reports whether the trapped cause is one medeleg (or, for
// a trap taken while executing virtualized guest code, hedeleg)
// assigns to S-mode, per spec.md §4.1.
func delegated(ctx *Context) bool {
	code := ExceptionCode(ctx.Info.Cause)
	if code >= 64 {
		return false
	}
	if ctx.VMode {
		return csr.Read(csr.Hedeleg)&(1<<code) != 0
	}
	return csr.Read(csr.Medeleg)&(1<<code) != 0
}
