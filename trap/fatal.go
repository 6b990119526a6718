package trap

import (
	"io"

	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/kfmt"
	"github.com/rvcore/coresbi/scratch"
)

// ConsoleWriter is where the fatal path dumps diagnostics. It defaults
// to io.Discard so tests and hosted tools never write to stdout by
// accident; boot.ColdBoot points it at the platform console.
var ConsoleWriter io.Writer = io.Discard

// HaltFn halts the HART after a fatal dump. It is a package variable
// (not a direct csr/asm call) for the same reason the teacher's
// kernel/panic.go keeps cpuHaltFn mockable: tests need to observe that
// a fatal trap was declared without actually stopping the test binary.
var HaltFn = func() {}

func defaultFatal(s *scratch.Scratch, ctx *Context) {
	Dump(ConsoleWriter, s, ctx)
	HaltFn()
}

// Dump writes a full register and trap-context-chain dump, mirroring
// the teacher's kernel.Panic output shape (banner, cause, halt notice)
// but for the richer RISC-V trap-context stack of spec.md §3.
func Dump(w io.Writer, s *scratch.Scratch, ctx *Context) {
	kfmt.Fprintf(w, "\n-----------------------------------\n")
	kfmt.Fprintf(w, "unhandled M-mode trap on hart %d\n", s.HartIndex)
	kfmt.Fprintf(w, "mcause = %x mepc = %x mtval = %x\n", ctx.Info.Cause, ctx.Mepc, ctx.Info.Tval)
	kfmt.Fprintf(w, "mstatus = %x prior-priv = %d\n", ctx.Mstatus, uint64(ctx.Prior))

	for i, r := range ctx.Regs.GPR {
		kfmt.Fprintf(w, "x%d = %x ", i+1, r)
		if i%4 == 3 {
			kfmt.Fprintf(w, "\n")
		}
	}
	kfmt.Fprintf(w, "\n")

	chain := Chain(s)
	if len(chain) > 1 {
		kfmt.Fprintf(w, "nested trap contexts: %d\n", len(chain))
		for depth, c := range chain[1:] {
			kfmt.Fprintf(w, "  [%d] mcause = %x mepc = %x\n", depth+1, c.Info.Cause, c.Mepc)
		}
	}

	kfmt.Fprintf(w, "*** hart halted ***\n")
	kfmt.Fprintf(w, "-----------------------------------\n")
}

// ReadCurrentMode recovers the privilege mode a trap occurred in from
// the mstatus snapshot captured at entry, used by the assembly
// trampoline when building a Context.
func ReadCurrentMode(mstatus uint64) PriorPriv {
	switch mstatus & csr.MppMask {
	case csr.MppU:
		return PrivU
	case csr.MppS:
		return PrivS
	default:
		return PrivM
	}
}
