package emulate

import (
	"testing"
	"unsafe"

	"github.com/rvcore/coresbi/csr"
	"github.com/rvcore/coresbi/trap"
)

// encodeLoadStoreWord builds a minimal I-type load word carrying just
// the fields TryEmulate inspects for a load: funct3 and the rd index
// (bits 11:7). The opcode is left zero, since Misaligned never checks
// it. A store names its source register in rs2 (bits 24:20) instead.
func encodeLoadStoreWord(funct3 uint32, reg uint32) uint32 {
	return (reg << 7) | (funct3 << 12)
}

func TestMisalignedLoadSignExtends(t *testing.T) {
	csr.ResetSim()

	var insn uint32 = encodeLoadStoreWord(0b010, 10) // lw x10, ...
	var buf [8]byte
	buf[0] = 0xfd
	buf[1] = 0xff
	buf[2] = 0xff
	buf[3] = 0xff // little-endian -3 as a 32-bit value

	ctx := &trap.Context{
		Info: trap.Info{Cause: trap.CauseLoadAddressMisaligned, Tval: uint64(uintptr(unsafe.Pointer(&buf[0])))},
		Mepc: uint64(uintptr(unsafe.Pointer(&insn))),
	}

	handled, advance, err := Misaligned{}.TryEmulate(ctx)
	if err != nil {
		t.Fatalf("TryEmulate: %v", err)
	}
	if !handled {
		t.Fatal("expected Misaligned to handle a misaligned lw")
	}
	if advance != 4 {
		t.Fatalf("advance = %d, want 4", advance)
	}
	if got := int64(ctx.Regs.GPR[9]); got != -3 {
		t.Fatalf("x10 = %d, want -3 (sign-extended 32-bit -3)", got)
	}
}

// storeBuf is the store test's destination. It is a package variable
// because the emulator only receives its address as a uintptr: a local
// array can sit on the goroutine stack, which moves when the stack
// grows and leaves that address pointing at the old copy.
var storeBuf [8]byte

func TestMisalignedStoreScattersBytes(t *testing.T) {
	csr.ResetSim()

	var insn uint32 = (11 << 20) | (0b010 << 12) // sw x11, ... (rs2 = x11)
	buf := &storeBuf

	ctx := &trap.Context{
		Info: trap.Info{Cause: trap.CauseStoreAMOAddressMisaligned, Tval: uint64(uintptr(unsafe.Pointer(&buf[0])))},
		Mepc: uint64(uintptr(unsafe.Pointer(&insn))),
	}
	ctx.Regs.GPR[10] = 0x11223344 // x11

	handled, advance, err := Misaligned{}.TryEmulate(ctx)
	if err != nil {
		t.Fatalf("TryEmulate: %v", err)
	}
	if !handled || advance != 4 {
		t.Fatalf("handled=%v advance=%d", handled, advance)
	}
	if buf[0] != 0x44 || buf[1] != 0x33 || buf[2] != 0x22 || buf[3] != 0x11 {
		t.Fatalf("buf = % x, want little-endian 0x11223344", buf)
	}
}

func TestMisalignedIgnoresUnrelatedCause(t *testing.T) {
	ctx := &trap.Context{Info: trap.Info{Cause: trap.CauseIllegalInstruction}}
	handled, _, err := Misaligned{}.TryEmulate(ctx)
	if handled || err != nil {
		t.Fatalf("expected no-op for an unrelated cause, got handled=%v err=%v", handled, err)
	}
}
