// Package csr isolates every privileged-instruction access behind a
// single module, per spec.md §9 ("Inline assembly for CSR access":
// isolate behind a single privileged-instruction module; all other
// code refers to CSRs by symbolic handle). It plays the role the
// teacher's kernel/cpu package plays for amd64 control registers:
// asm-stub function declarations with no Go body, implemented in a
// companion .s file per architecture.
package csr

// Register identifies a machine-mode CSR by its symbolic name rather
// than its numeric encoding, so call sites never hard-code a CSR
// address.
type Register uint32

// The subset of M-mode CSRs the trap engine, PMP driver and HSM touch.
// Numeric values match the RISC-V privileged spec encoding.
const (
	Mstatus   Register = 0x300
	Misa      Register = 0x301
	Medeleg   Register = 0x302
	Mideleg   Register = 0x303
	Mie       Register = 0x304
	Mtvec     Register = 0x305
	Mscratch  Register = 0x340
	Mepc      Register = 0x341
	Mcause    Register = 0x342
	Mtval     Register = 0x343
	Mip       Register = 0x344
	Mtval2    Register = 0x34A
	Mtinst    Register = 0x34B
	Mseccfg   Register = 0x747
	Pmpcfg0   Register = 0x3A0
	Pmpaddr0  Register = 0x3B0
	Hedeleg   Register = 0x602
	Hideleg   Register = 0x603
	Htval     Register = 0x643
	Htinst    Register = 0x64A
	Hstatus   Register = 0x600
	Vsstatus  Register = 0x200
	Vsepc     Register = 0x241
	Vscause   Register = 0x242
	Vstval    Register = 0x243
	Vstvec    Register = 0x205
	Stvec     Register = 0x105
	Sepc      Register = 0x141
	Scause    Register = 0x142
	Stval     Register = 0x143
	Vstart    Register = 0x008
	Vtype     Register = 0xC21
	Vl        Register = 0xC20
)

// mstatus bit positions used by the trap engine (spec.md §4.1).
const (
	MstatusSIE  = 1 << 1
	MstatusMIE  = 1 << 3
	MstatusSPIE = 1 << 5
	MstatusSPP  = 1 << 8
	MstatusMPP0 = 1 << 11
	MstatusMPP1 = 1 << 12
	MstatusMPRV = 1 << 17
	MstatusMXR  = 1 << 19
	MstatusMPV  = 1 << 39

	MppMask = MstatusMPP0 | MstatusMPP1
	MppU    = 0
	MppS    = 1 << 11
	MppM    = MppMask
)

// Read, Write, SetBits and ClearBits are declared per build target:
// csr_riscv64.go pairs no-body declarations with csr_riscv64.s on real
// hardware, csr_sim.go backs them with an in-memory register file
// everywhere else (see its doc comment).
