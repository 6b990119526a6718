package trap

import (
	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/scratch"
)

// mstatusMPELP is the zicfilp "expected landing pad" bit in mstatus; cleared
// on every redirect per spec.md §4.1.
const mstatusMPELP = uint64(1) << 41

// Redirect delivers ctx's trap to the delegated S-mode (or, if ctx was
// taken from virtualized guest code and the cause is in hedeleg, to
// VS-mode), per spec.md §4.1:
//
//   - picks the target mode (VS if coming from V-mode and the cause is
//     set in hedeleg; otherwise HS/S)
//   - writes (v)scause, (v)sepc, (v)stval, and when the H extension
//     applies, htval/htinst and sets MPV
//   - computes the new mstatus: clear SIE, set SPIE to previous SIE,
//     set SPP to previous privilege, clear MPP then set to S
//   - clears mpelp (zicfilp) if present
//   - sets mepc to (v)stvec
//
// The caller (the assembly mret trampoline) resumes execution in the
// delegated mode; Redirect itself never transfers control.
func Redirect(s *scratch.Scratch, ctx *Context) {
	code := ExceptionCode(ctx.Info.Cause)
	toVS := ctx.VMode && code < 64 && csr.Read(csr.Hedeleg)&(1<<code) != 0

	if toVS {
		csr.Write(csr.Vscause, ctx.Info.Cause)
		csr.Write(csr.Vsepc, ctx.Mepc)
		csr.Write(csr.Vstval, ctx.Info.Tval)
	} else {
		csr.Write(csr.Scause, ctx.Info.Cause)
		csr.Write(csr.Sepc, ctx.Mepc)
		csr.Write(csr.Stval, ctx.Info.Tval)
	}

	if ctx.Info.GVA {
		csr.Write(csr.Htval, ctx.Info.Tval2)
		csr.Write(csr.Htinst, ctx.Info.Tinst)
	}

	mstatus := ctx.Mstatus
	if ctx.Info.GVA {
		mstatus |= csr.MstatusMPV
	}
	mstatus &^= csr.MstatusSIE
	if ctx.Mstatus&csr.MstatusSIE != 0 {
		mstatus |= csr.MstatusSPIE
	} else {
		mstatus &^= csr.MstatusSPIE
	}
	if ctx.Prior == PrivS {
		mstatus |= csr.MstatusSPP
	} else {
		mstatus &^= csr.MstatusSPP
	}
	mstatus &^= csr.MppMask
	mstatus |= csr.MppS
	mstatus &^= mstatusMPELP
	csr.Write(csr.Mstatus, mstatus)

	if toVS {
		ctx.Mepc = csr.Read(csr.Vstvec)
	} else {
		ctx.Mepc = csr.Read(csr.Stvec)
	}
}
