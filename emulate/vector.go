package emulate

import (
	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/trap"
)

// VectorElementIO is supplied by the caller (the platform code that
// owns the vector register file) so this package only has to decode
// the trapping instruction and drive the per-element iteration;
// moving bytes in and out of a specific vector register is someone
// else's concern, the same split emulate/atomic.go makes between
// decoding an AMO and performing its Load/Store halves.
type VectorElementIO interface {
	// Active reports whether element i participates: always true for
	// an unmasked instruction (vm==1), otherwise bit i of v0.
	Active(elem int) bool
	// LoadElement/StoreElement move eew bytes between the vector
	// register file and addr through the unprivileged-access guard,
	// returning a fault if the underlying byte access trapped.
	LoadElement(elem int, addr uintptr, eew int) *csr.FaultError
	StoreElement(elem int, addr uintptr, eew int) *csr.FaultError
}

// VectorLoadStore emulates a misaligned unit-stride vl*.v/vs*.v access
// per spec.md §4.1 family 3: iterate the active elements from vstart
// to vl, honoring the mask and fault-only-first semantics, performing
// byte-granular unprivileged accesses and restoring vl/vstart on exit.
type VectorLoadStore struct {
	IO VectorElementIO
}

func vectorEEW(funct3 uint32) (int, bool) {
	switch funct3 {
	case 0b000:
		return 1, true
	case 0b101:
		return 2, true
	case 0b110:
		return 4, true
	case 0b111:
		return 8, true
	}
	return 0, false
}

func (e VectorLoadStore) TryEmulate(ctx *trap.Context) (handled bool, advance uint64, err error) {
	code := trap.ExceptionCode(ctx.Info.Cause)
	if code != trap.CauseLoadAddressMisaligned && code != trap.CauseStoreAMOAddressMisaligned {
		return false, 0, nil
	}
	if e.IO == nil {
		return false, 0, nil
	}

	insn, faultErr := fetchInstruction(ctx)
	if faultErr != nil {
		populateInnerFault(ctx, faultErr)
		return true, 0, faultErr
	}

	const opcodeLoad = 0b0000111
	const opcodeStore = 0b0100111
	opcode := insn & 0x7f
	isLoad := opcode == opcodeLoad
	if !isLoad && opcode != opcodeStore {
		return false, 0, nil
	}

	mop := (insn >> 26) & 0x3
	if mop != 0b00 {
		// Only unit-stride addressing is modeled; strided/indexed
		// vector accesses are not emulated here.
		return false, 0, nil
	}

	funct3 := (insn >> 12) & 0x7
	eew, ok := vectorEEW(funct3)
	if !ok {
		return false, 0, nil
	}

	vm := (insn >> 25) & 0x1
	lumop := (insn >> 20) & 0x1f
	faultOnlyFirst := isLoad && lumop == 0b10000

	vl := csr.Read(csr.Vl)
	vstart := csr.Read(csr.Vstart)

	baseAddr := uintptr(ctx.Info.Tval) - uintptr(vstart)*uintptr(eew)

	completed := 0
	for elem := int(vstart); elem < int(vl); elem++ {
		if vm == 0 && !e.IO.Active(elem) {
			continue
		}

		addr := baseAddr + uintptr(elem)*uintptr(eew)
		var accessFault *csr.FaultError
		if isLoad {
			accessFault = e.IO.LoadElement(elem, addr, eew)
		} else {
			accessFault = e.IO.StoreElement(elem, addr, eew)
		}

		if accessFault != nil {
			if faultOnlyFirst && completed > 0 {
				csr.Write(csr.Vl, uint64(elem))
				csr.Write(csr.Vstart, 0)
				return true, 4, nil
			}
			csr.Write(csr.Vstart, uint64(elem))
			populateInnerFault(ctx, accessFault)
			return true, 0, accessFault
		}
		completed++
	}

	csr.Write(csr.Vstart, 0)
	return true, 4, nil
}
