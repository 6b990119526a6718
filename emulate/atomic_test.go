package emulate

import (
	"testing"
	"unsafe"

	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/trap"
)

// encodeAmoWord builds an AMO-opcode instruction word carrying exactly
// the fields IllegalAtomic inspects.
func encodeAmoWord(funct5, funct3, rd, rs1, rs2 uint32) uint32 {
	const amoOpcode = 0b0101111
	return amoOpcode | (rd << 7) | (funct3 << 12) | (rs1 << 15) | (rs2 << 20) | (funct5 << 27)
}

// amoWord is the memory word the AMO tests operate on. It is a package
// variable because the emulator only receives its address as a
// uintptr: a local can sit on the goroutine stack, which moves when
// the stack grows and leaves that address pointing at the old copy.
var amoWord int32

func TestIllegalAtomicAmoAddReturnsPreAddValue(t *testing.T) {
	csr.ResetSim()

	var insn = encodeAmoWord(0b00000, 0b010, 12, 10, 11) // amoadd.w x12, x11, (x10)
	word := &amoWord
	*word = 5

	ctx := &trap.Context{Info: trap.Info{Cause: trap.CauseIllegalInstruction}, Mepc: uint64(uintptr(unsafe.Pointer(&insn)))}
	ctx.Regs.GPR[9] = uint64(uintptr(unsafe.Pointer(word))) // x10
	ctx.Regs.GPR[10] = 7                                     // x11, the operand

	handled, advance, err := IllegalAtomic{}.TryEmulate(ctx)
	if err != nil {
		t.Fatalf("TryEmulate: %v", err)
	}
	if !handled || advance != 4 {
		t.Fatalf("handled=%v advance=%d", handled, advance)
	}
	if got := int32(ctx.Regs.GPR[11]); got != 5 {
		t.Fatalf("rd = %d, want pre-add value 5", got)
	}
	if *word != 12 {
		t.Fatalf("memory = %d, want 12 (5+7)", *word)
	}
}

func TestIllegalAtomicRetriesOnStoreConditionalFailure(t *testing.T) {
	csr.ResetSim()

	var insn = encodeAmoWord(0b00001, 0b010, 12, 10, 11) // amoswap.w
	word := &amoWord
	*word = 1

	ctx := &trap.Context{Info: trap.Info{Cause: trap.CauseIllegalInstruction}, Mepc: uint64(uintptr(unsafe.Pointer(&insn)))}
	ctx.Regs.GPR[9] = uint64(uintptr(unsafe.Pointer(word)))
	ctx.Regs.GPR[10] = 99

	failuresLeft := 2
	em := IllegalAtomic{
		Load: defaultLoad,
		Store: func(addr uintptr, width int, val int64) (bool, *csr.FaultError) {
			if failuresLeft > 0 {
				failuresLeft--
				return false, nil
			}
			return defaultStore(addr, width, val)
		},
	}

	handled, _, err := em.TryEmulate(ctx)
	if err != nil {
		t.Fatalf("TryEmulate: %v", err)
	}
	if !handled {
		t.Fatal("expected the retry loop to eventually succeed")
	}
	if *word != 99 {
		t.Fatalf("memory = %d, want 99 after a successful swap", *word)
	}
	if failuresLeft != 0 {
		t.Fatalf("failuresLeft = %d, want 0 (store should have been retried)", failuresLeft)
	}
}

func TestIllegalAtomicRedirectsOnInnerLoadFault(t *testing.T) {
	csr.ResetSim()

	var insn = encodeAmoWord(0b00000, 0b010, 12, 10, 11)

	ctx := &trap.Context{Info: trap.Info{Cause: trap.CauseIllegalInstruction}, Mepc: uint64(uintptr(unsafe.Pointer(&insn)))}
	ctx.Regs.GPR[9] = 0 // x10 = nil, the load must fault

	handled, _, err := IllegalAtomic{}.TryEmulate(ctx)
	if !handled {
		t.Fatal("expected the fault to be handled (turned into a redirect), not ignored")
	}
	if err == nil {
		t.Fatal("expected a fault error from the inner load")
	}
	if got := trap.ExceptionCode(ctx.Info.Cause); got != trap.CauseLoadAccessFault {
		t.Fatalf("ctx.Info.Cause = %d, want CauseLoadAccessFault", got)
	}
}

func TestIllegalAtomicIgnoresNonAmoOpcode(t *testing.T) {
	csr.ResetSim()
	var insn uint32 = 0x13 // addi x0, x0, 0 — not an AMO opcode
	ctx := &trap.Context{Info: trap.Info{Cause: trap.CauseIllegalInstruction}, Mepc: uint64(uintptr(unsafe.Pointer(&insn)))}

	handled, _, err := IllegalAtomic{}.TryEmulate(ctx)
	if handled || err != nil {
		t.Fatalf("expected no-op for a non-AMO opcode, got handled=%v err=%v", handled, err)
	}
}
