// Package trap implements the M-mode trap and delegation engine of
// spec.md §4.1: classification, instruction emulation dispatch,
// redirection of S-mode-owned traps, the ecall-to-SBI-extension path,
// and the fatal/panic path for anything else.
//
// It plays the role the teacher's kernel/panic.go and
// src/gopheros/kernel/{gate,irq} packages play together: a saved
// register frame type, a dispatch table keyed by cause, and a halt-
// and-dump fallback — generalized from "one x86 IDT vector" to
// "RISC-V mcause classification plus S-mode redirection".
package trap

import (
	"unsafe"

	"github.com/rvcore/coresbi/scratch"
)

// Registers is a saved RISC-V integer register file: all 31 GPRs other
// than x0 (hard-wired zero), indexed by register number 1..31 at
// Regs[gpr-1]. Named accessors exist for the ABI names ecall
// conventions use.
type Registers struct {
	GPR [31]uint64
}

// GPR indices for the x1 (ra) and x2 (sp) ABI names; a0 is x10, so the
// general a-register accessors below index from there directly.
const (
	gprRa = 0
	gprSp = 1
)

// A0..A7 and Ra/Sp read/write the ABI argument/return registers used by
// the ecall calling convention (spec.md §6).
func (r *Registers) A(n int) uint64       { return r.GPR[9+n] }
func (r *Registers) SetA(n int, v uint64) { r.GPR[9+n] = v }
func (r *Registers) Ra() uint64           { return r.GPR[gprRa] }
func (r *Registers) Sp() uint64           { return r.GPR[gprSp] }

// Info is the architectural trap-info record captured at entry:
// mcause, mtval, mtval2 and mtinst (the latter two meaningful only
// with the H extension) and whether the trapping access was made on
// behalf of a guest (GVA, "guest virtual address").
type Info struct {
	Cause uint64
	Tval  uint64
	Tval2 uint64
	Tinst uint64
	GVA   bool
}

// PriorPriv is the privilege mode execution was in when the trap
// occurred, as recovered from mstatus.MPP.
type PriorPriv uint8

const (
	PrivU PriorPriv = iota
	PrivS
	_
	PrivM
)

// Context is one saved trap frame. Contexts form a per-HART stack
// (spec.md §3, "a back-pointer to the previous context on that HART")
// so that a fault taken while emulating another trap (e.g. the
// unprivileged-access helper faulting while fetching a misaligned
// load) unwinds cleanly instead of corrupting the outer trap's state.
type Context struct {
	Regs   Registers
	Mepc   uint64
	Mstatus uint64
	Info   Info
	Prior  PriorPriv

	// VMode records whether the trapped code was executing in a
	// virtualized (H-extension VS/VU) mode, needed to pick the
	// redirect target in Redirect.
	VMode bool

	Prev *Context
}

// Current returns the innermost trap context for a HART, or nil if
// none is active.
func Current(s *scratch.Scratch) *Context {
	if s.TrapContext == 0 {
		return nil
	}
	return (*Context)(unsafe.Pointer(s.TrapContext))
}

// Push installs ctx as the new innermost trap context for s, linking
// it to whatever was previously current.
func Push(s *scratch.Scratch, ctx *Context) {
	ctx.Prev = Current(s)
	s.TrapContext = uintptr(unsafe.Pointer(ctx))
}

// Pop removes the innermost trap context, restoring whatever was
// current before the matching Push. It panics if ctx is not in fact
// the innermost context, which would indicate a push/pop ordering bug
// in the caller.
func Pop(s *scratch.Scratch, ctx *Context) {
	if Current(s) != ctx {
		panic("trap: Pop called out of order")
	}
	if ctx.Prev == nil {
		s.TrapContext = 0
	} else {
		s.TrapContext = uintptr(unsafe.Pointer(ctx.Prev))
	}
}

// Chain returns every context from the innermost outward, for use by
// the fatal path's diagnostic dump.
func Chain(s *scratch.Scratch) []*Context {
	var out []*Context
	for c := Current(s); c != nil; c = c.Prev {
		out = append(out, c)
	}
	return out
}
