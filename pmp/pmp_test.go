package pmp

import (
	"testing"

	"github.com/rvcore/coresbi/csr"
)

func TestEncodeDecodeNA4(t *testing.T) {
	addr, mode := Encode(0x8000_0000, Shift)
	if mode != ANA4 {
		t.Fatalf("mode = %#x, want ANA4", mode)
	}
	base, order := Decode(addr, uint8(mode))
	if base != 0x8000_0000 || order != Shift {
		t.Fatalf("Decode = (%#x, %d), want (0x80000000, %d)", base, order, Shift)
	}
}

func TestEncodeDecodeNAPOT(t *testing.T) {
	const base = 0x8000_0000
	const order = 16 // a 64 KiB region
	addr, mode := Encode(base, order)
	if mode != ANAPOT {
		t.Fatalf("mode = %#x, want ANAPOT", mode)
	}
	gotBase, gotOrder := Decode(addr, uint8(mode))
	if gotBase != base || gotOrder != order {
		t.Fatalf("Decode = (%#x, %d), want (%#x, %d)", gotBase, gotOrder, base, order)
	}
}

func TestEncodeFullRegion(t *testing.T) {
	addr, mode := Encode(0, 64)
	if addr != ^uint64(0) || mode != ANAPOT {
		t.Fatalf("Encode(0, 64) = (%#x, %#x), want (all-ones, ANAPOT)", addr, mode)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	csr.ResetSim()

	Set(3, ProtR|ProtW, 0x1000_0000, 12)
	prot, base, order := Get(3)
	if prot != ProtR|ProtW {
		t.Fatalf("prot = %#x, want R|W", prot)
	}
	if base != 0x1000_0000 || order != 12 {
		t.Fatalf("Get = (%#x, %d), want (0x10000000, 12)", base, order)
	}
}

func TestSetDoesNotDisturbAdjacentEntries(t *testing.T) {
	csr.ResetSim()

	Set(0, ProtR, 0, Shift)
	Set(1, ProtW|ProtX, 0x2000, Shift)

	prot0, _, _ := Get(0)
	prot1, _, _ := Get(1)
	if prot0 != ProtR {
		t.Fatalf("entry 0 prot = %#x, want R (entry 1's write must not have clobbered it)", prot0)
	}
	if prot1 != ProtW|ProtX {
		t.Fatalf("entry 1 prot = %#x, want W|X", prot1)
	}
}

func TestDisableClearsAField(t *testing.T) {
	csr.ResetSim()

	Set(5, ProtR|ProtW|ProtX, 0x4000, Shift)
	Disable(5)

	prot, _, _ := Get(5)
	if prot&(ProtR|ProtW|ProtX) != 0 {
		t.Fatalf("prot after Disable = %#x, want R/W/X cleared", prot)
	}
}
