// Package pmp implements the RISC-V Physical Memory Protection driver
// of spec.md §4.2: NA4/NAPOT address encoding, pmpcfgN/pmpaddrN
// read/write, and (when available) the Smepmp two-pass configuration.
// It is ported from the teacher's kernel/cpu register-access style
// (csr.Read/Write instead of a direct CSR instruction, grounded on
// lib/sbi/riscv_asm.c's pmp_set/pmp_get) generalized to the dynamic
// pmpcfg/pmpaddr CSR numbers PMP indices require.
package pmp

import "github.com/rvcore/coresbi/csr"

// Prot bits, at their hardware pmpcfg positions: R/W/X in bits 0-2 and
// L in bit 7.
const (
	ProtR Prot = 1 << iota
	ProtW
	ProtX
	ProtL Prot = 1 << 7 // locked: entry (and, on some modes, the one below) cannot be modified until reset
)

// Prot is the R/W/X/L permission bits of a PMP config byte.
type Prot uint8

// Address-matching mode, the A field of a pmpcfg byte (bits 4:3).
const (
	AOff   = 0 << 3
	ATOR   = 1 << 3
	ANA4   = 2 << 3
	ANAPOT = 3 << 3
)

// Shift is log2 of the minimum PMP granule (4 bytes): pmpaddr encodes
// addr>>Shift.
const Shift = 2

// MSECCFG bits (Smepmp), per the privileged spec.
const (
	MseccfgMML  = 1 << 0
	MseccfgMMWP = 1 << 1
	MseccfgRLB  = 1 << 2
)

// pmpcfgCSR/pmpcfgShift/pmpaddrCSR mirror riscv_asm.c's pmp_set: on
// rv64, eight 8-bit cfg fields pack into each 64-bit pmpcfgN CSR
// (pmpcfg0 holding entries 0-7, pmpcfg2 holding 8-15, ...), while
// pmpaddrN is one CSR per entry.
func pmpcfgCSR(n uint) csr.Register {
	return csr.Register(uint32(csr.Pmpcfg0) + uint32(n>>3)*2)
}

func pmpcfgShift(n uint) uint {
	return (n & 7) << 3
}

func pmpaddrCSR(n uint) csr.Register {
	return csr.Register(uint32(csr.Pmpaddr0) + uint32(n))
}

// Encode computes the pmpaddr CSR value for a region [base, base +
// 2^order) per spec.md §4.2: NA4 when order == log2(4) == Shift,
// NAPOT otherwise, and a full-XLEN region ("order == 64") encodes as
// all-ones regardless of base.
func Encode(base uint64, order uint) (addr uint64, mode uint8) {
	if order == 64 {
		return ^uint64(0), ANAPOT
	}
	if order == Shift {
		return base >> Shift, ANA4
	}
	addrMask := (uint64(1) << (order - Shift)) - 1
	return (base >> Shift &^ addrMask) | (addrMask >> 1), ANAPOT
}

// Decode recovers (base, order) from a pmpaddr value and A-field mode.
// It is the inverse of Encode, used by Get and by tests that want to
// assert on what Set actually programmed.
func Decode(pmpaddr uint64, mode uint8) (base uint64, order uint) {
	switch mode {
	case ANA4:
		return pmpaddr << Shift, Shift
	case ANAPOT:
		if pmpaddr == ^uint64(0) {
			return 0, 64
		}
		// Encode forces the low (order-Shift-1) bits of pmpaddr to 1
		// and leaves the bit above them 0, so order is the count of
		// pmpaddr's own trailing one bits, plus one for the bit
		// Encode clears, plus Shift for the granule already folded in.
		n := pmpaddr
		o := uint(0)
		for n&1 != 0 {
			o++
			n >>= 1
		}
		order := o + 1 + Shift
		mask := (uint64(1) << (order - Shift)) - 1
		return (pmpaddr &^ mask) << Shift, order
	default:
		return 0, 0
	}
}

// Set programs PMP entry n to cover [base, base+2^order) with the
// given protection bits.
func Set(n uint, prot Prot, base uint64, order uint) {
	pmpaddr, mode := Encode(base, order)
	csr.Write(pmpaddrCSR(n), pmpaddr)

	cfgCSR := pmpcfgCSR(n)
	shift := pmpcfgShift(n)
	mask := uint64(0xff) << shift
	cur := csr.Read(cfgCSR)
	cur &^= mask
	cur |= (uint64(prot) | uint64(mode)) << shift
	csr.Write(cfgCSR, cur)
}

// Disable clears entry n's A field (and hence its R/W/X/L bits),
// leaving the pmpaddr register's contents unspecified.
func Disable(n uint) {
	cfgCSR := pmpcfgCSR(n)
	shift := pmpcfgShift(n)
	mask := uint64(0xff) << shift
	cur := csr.Read(cfgCSR)
	cur &^= mask
	csr.Write(cfgCSR, cur)
}

// Get reads back entry n's protection, base and order.
func Get(n uint) (prot Prot, base uint64, order uint) {
	cfgCSR := pmpcfgCSR(n)
	shift := pmpcfgShift(n)
	cfgByte := uint8(csr.Read(cfgCSR) >> shift)
	mode := cfgByte &^ 0x87 // isolate the A field (bits 4:3), masking R/W/X/L
	base, order = Decode(csr.Read(pmpaddrCSR(n)), mode)
	return Prot(cfgByte & 0x87), base, order
}

// Fence issues the TLB (and, when the H extension is present, guest
// TLB) flush spec.md §4.2 requires after any PMP mutation: on real
// hardware a PMP write can be speculatively cached alongside the
// address translation it guards.
func Fence(flushGuest func(), flushNormal func()) {
	if flushNormal != nil {
		flushNormal()
	}
	if flushGuest != nil {
		flushGuest()
	}
}
