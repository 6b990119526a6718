// Package emulate implements the three instruction-emulation families
// of spec.md §4.1: misaligned load/store, illegal-atomic decomposition,
// and vector load/store fixup. Each is ported from the matching
// original_source file (sbi_trap_ldst.c, sbi_illegal_atomic.c,
// sbi_trap_v_ldst.c) in the teacher's own idiom: a decode step that
// only inspects bits (no allocation) followed by a byte-at-a-time
// access loop through package csr's unprivileged-access guard.
package emulate

import (
	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/trap"
)

// insnWidth classifies a decoded load/store by access width and
// sign-extension.
type insnWidth struct {
	bytes  int
	signed bool
}

// widthFromFunct3 classifies the I-type/S-type load or store encoded
// in funct3 (bits 14:12). Compressed (16-bit) encodings are expanded
// by the hardware/compiler before this ever runs, matching the
// original's assumption that mtinst already holds the 32-bit form when
// available.
func widthFromFunct3(funct3 uint32) (insnWidth, bool) {
	switch funct3 {
	case 0b000:
		return insnWidth{1, true}, true // lb/sb
	case 0b001:
		return insnWidth{2, true}, true // lh/sh
	case 0b010:
		return insnWidth{4, true}, true // lw/sw
	case 0b011:
		return insnWidth{8, false}, true // ld/sd
	case 0b100:
		return insnWidth{1, false}, true // lbu
	case 0b101:
		return insnWidth{2, false}, true // lhu
	case 0b110:
		return insnWidth{4, false}, true // lwu
	}
	return insnWidth{}, false
}

// Misaligned emulates a misaligned load or store that trapped with
// CauseLoadAddressMisaligned / CauseStoreAMOAddressMisaligned. It
// fetches the faulting instruction through an unprivileged Guard (so a
// recursive fault on the fetch itself surfaces as a redirect rather
// than corrupting state), decodes the access width, and issues `len`
// single-byte unprivileged accesses to assemble (or scatter) the
// value.
type Misaligned struct{}

func (Misaligned) TryEmulate(ctx *trap.Context) (handled bool, advance uint64, err error) {
	code := trap.ExceptionCode(ctx.Info.Cause)
	if code != trap.CauseLoadAddressMisaligned && code != trap.CauseStoreAMOAddressMisaligned {
		return false, 0, nil
	}

	insn, faultErr := fetchInstruction(ctx)
	if faultErr != nil {
		populateInnerFault(ctx, faultErr)
		return true, 0, faultErr
	}

	isLoad := code == trap.CauseLoadAddressMisaligned
	funct3 := (insn >> 12) & 0x7
	width, ok := widthFromFunct3(funct3)
	if !ok {
		return false, 0, nil
	}

	addr := ctx.Info.Tval
	guard := csr.NewGuard(isLoad)
	defer guard.Close()

	if isLoad {
		rd := int((insn >> 7) & 0x1f)
		var value uint64
		for i := 0; i < width.bytes; i++ {
			b, faultErr := csr.Load8(uintptr(addr) + uintptr(i))
			if faultErr != nil {
				fixupTinst(ctx, i)
				populateInnerFault(ctx, faultErr)
				return true, 0, faultErr
			}
			value |= uint64(b) << (8 * i)
		}
		if width.signed && width.bytes < 8 {
			shift := uint(64 - width.bytes*8)
			value = uint64(int64(value<<shift) >> shift)
		}
		if rd != 0 {
			ctx.Regs.GPR[rd-1] = value
		}
	} else {
		rs2 := int((insn >> 20) & 0x1f)
		var value uint64
		if rs2 != 0 {
			value = ctx.Regs.GPR[rs2-1]
		}
		for i := 0; i < width.bytes; i++ {
			b := byte(value >> (8 * i))
			if faultErr := csr.Store8(uintptr(addr)+uintptr(i), b); faultErr != nil {
				fixupTinst(ctx, i)
				populateInnerFault(ctx, faultErr)
				return true, 0, faultErr
			}
		}
	}

	return true, 4, nil
}

// fixupTinst records the byte offset at which a multi-byte emulated
// access faulted, per spec.md §4.1: "on inner fault, fix up the
// trapped-instruction field (tinst) with the byte offset".
func fixupTinst(ctx *trap.Context, byteOffset int) {
	ctx.Info.Tinst = (ctx.Info.Tinst &^ 0xff) | uint64(byteOffset)
}

func populateInnerFault(ctx *trap.Context, faultErr *csr.FaultError) {
	if faultErr.Store {
		ctx.Info.Cause = trap.CauseStoreAMOAccessFault
	} else {
		ctx.Info.Cause = trap.CauseLoadAccessFault
	}
	ctx.Info.Tval = uint64(faultErr.Addr)
}

// fetchInstruction reads the 32-bit instruction word at ctx.Mepc
// through an unprivileged load, per spec.md §4.1 ("Fetch the faulting
// instruction using the unprivileged-access helper").
func fetchInstruction(ctx *trap.Context) (uint32, *csr.FaultError) {
	guard := csr.NewGuard(true)
	defer guard.Close()
	return csr.Load32(uintptr(ctx.Mepc))
}
