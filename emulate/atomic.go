package emulate

import (
	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/trap"
)

// AmoOp identifies the RMW operation an AMO instruction performs,
// decoded from the funct5 field (instruction bits 31:27).
type AmoOp int

const (
	AmoAdd AmoOp = iota
	AmoSwap
	AmoXor
	AmoOr
	AmoAnd
	AmoMin
	AmoMax
	AmoMinU
	AmoMaxU
)

func decodeAmoOp(funct5 uint32) (AmoOp, bool) {
	switch funct5 {
	case 0b00000:
		return AmoAdd, true
	case 0b00001:
		return AmoSwap, true
	case 0b00100:
		return AmoXor, true
	case 0b01000:
		return AmoOr, true
	case 0b01100:
		return AmoAnd, true
	case 0b10000:
		return AmoMin, true
	case 0b10100:
		return AmoMax, true
	case 0b11000:
		return AmoMinU, true
	case 0b11100:
		return AmoMaxU, true
	}
	return 0, false
}

func applyAmoOp(op AmoOp, old, operand int64, signedWidth bool) int64 {
	switch op {
	case AmoAdd:
		return old + operand
	case AmoSwap:
		return operand
	case AmoXor:
		return old ^ operand
	case AmoOr:
		return old | operand
	case AmoAnd:
		return old & operand
	case AmoMin:
		if old < operand {
			return old
		}
		return operand
	case AmoMax:
		if old > operand {
			return old
		}
		return operand
	case AmoMinU:
		if uint64(old) < uint64(operand) {
			return old
		}
		return operand
	case AmoMaxU:
		if uint64(old) > uint64(operand) {
			return old
		}
		return operand
	}
	return old
}

// maxLRSCRetries bounds the LR/SC retry loop. Real hardware retries
// until the reservation succeeds or an interrupt preempts the HART;
// a bound here only guards the emulation path against looping forever
// on a host/test double that never grants the reservation.
const maxLRSCRetries = 1000

// IllegalAtomic emulates an AMO instruction on a core that implements
// Zalrsc but not the full A extension, per spec.md §4.1: decompose
// into an LR.{W,D} / compute / SC.{W,D}.rl loop, retrying on SC
// failure, and redirect to S-mode if the LR (or a later SC) itself
// faults.
type IllegalAtomic struct {
	// Load performs the LR half at addr. Store performs the SC half,
	// reporting whether the reservation was still held. The real
	// firmware implements these with the lr.w/sc.w instructions
	// directly against the reservation set; tests substitute a
	// software model (e.g. one that can be told to fail the first SC
	// to exercise the retry loop).
	Load  func(addr uintptr, width int) (val int64, fault *csr.FaultError)
	Store func(addr uintptr, width int, val int64) (scOK bool, fault *csr.FaultError)
}

func (e IllegalAtomic) TryEmulate(ctx *trap.Context) (handled bool, advance uint64, err error) {
	if trap.ExceptionCode(ctx.Info.Cause) != trap.CauseIllegalInstruction {
		return false, 0, nil
	}

	insn, faultErr := fetchInstruction(ctx)
	if faultErr != nil {
		populateInnerFault(ctx, faultErr)
		return true, 0, faultErr
	}

	const amoOpcode = 0b0101111
	if insn&0x7f != amoOpcode {
		return false, 0, nil
	}

	funct3 := (insn >> 12) & 0x7
	funct5 := (insn >> 27) & 0x1f

	op, ok := decodeAmoOp(funct5)
	if !ok {
		return false, 0, nil
	}

	var width int
	switch funct3 {
	case 0b010:
		width = 4
	case 0b011:
		width = 8
	default:
		return false, 0, nil
	}

	rd := int((insn >> 7) & 0x1f)
	rs1 := int((insn >> 15) & 0x1f)
	rs2 := int((insn >> 20) & 0x1f)

	var addr uint64
	if rs1 != 0 {
		addr = ctx.Regs.GPR[rs1-1]
	}
	var operand int64
	if rs2 != 0 {
		operand = int64(ctx.Regs.GPR[rs2-1])
	}

	load, store := e.Load, e.Store
	if load == nil {
		load = defaultLoad
	}
	if store == nil {
		store = defaultStore
	}

	var preVal int64
	for attempt := 0; attempt < maxLRSCRetries; attempt++ {
		old, fault := load(uintptr(addr), width)
		if fault != nil {
			populateInnerFault(ctx, fault)
			return true, 0, fault
		}
		newVal := applyAmoOp(op, old, operand, true)
		scOK, fault := store(uintptr(addr), width, newVal)
		if fault != nil {
			populateInnerFault(ctx, fault)
			return true, 0, fault
		}
		if scOK {
			preVal = old
			break
		}
	}

	if rd != 0 {
		if width == 4 {
			ctx.Regs.GPR[rd-1] = uint64(uint32(preVal))
		} else {
			ctx.Regs.GPR[rd-1] = uint64(preVal)
		}
	}

	return true, 4, nil
}

// defaultLoad/defaultStore are the single-HART software model of the
// LR/SC pair used when no test double is supplied: a guarded
// unprivileged load, and a guarded unprivileged store that always
// succeeds (there is no real contention to fail the reservation
// against on one thread of emulation).
func defaultLoad(addr uintptr, width int) (int64, *csr.FaultError) {
	guard := csr.NewGuard(true)
	defer guard.Close()

	if width == 4 {
		v, fault := csr.Load32(addr)
		return int64(int32(v)), fault
	}
	v, fault := csr.Load64(addr)
	return int64(v), fault
}

func defaultStore(addr uintptr, width int, val int64) (bool, *csr.FaultError) {
	guard := csr.NewGuard(false)
	defer guard.Close()

	var fault *csr.FaultError
	if width == 4 {
		fault = csr.Store32(addr, uint32(val))
	} else {
		fault = csr.Store64(addr, uint64(val))
	}
	return fault == nil, fault
}
