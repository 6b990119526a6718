// Command coresbi is the firmware's M-mode entrypoint: the Go symbol
// the assembly reset trampoline jumps to once it has set up mscratch
// and a minimal stack, exactly the role the teacher's root boot.go
// and stub.go main() functions play for their rt0 assembly.
//
// Grounded on boot.go / stub.go in the teacher: a single, deliberately
// non-inlined main() that hands off to the real entrypoint, taking
// the boot arguments as package-level variables (mirroring stub.go's
// multibootInfoPtr) so the compiler cannot prove the call is dead and
// strip it.
package main

import (
	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/boot"
	"github.com/rvcore/coresbi/domain"
	"github.com/rvcore/coresbi/ext"
	"github.com/rvcore/coresbi/platform"
	"github.com/rvcore/coresbi/platform/sifiveuart"
	"github.com/rvcore/coresbi/scratch"
)

// hartIDs and coldBootHart describe the boot set this firmware image
// was built for. A real image generates these from a platform
// description (SPEC_FULL.md §B's tools/domaincfg); this trampoline
// hard-codes a single-HART default so the entrypoint is complete and
// linkable on its own.
var (
	hartIDs      = []uint64{0}
	coldBootHart = uint32(0)

	// uartBase, uartInFreq and uartBaseBaud describe the reference
	// console device; a real board overrides these (or wires a
	// different driver package entirely) before Entry runs.
	uartBase    uintptr = 0x10000000
	uartInFreq         = uint32(100000000)
	uartBaseBaud       = uint32(115200)
)

// main is the only symbol the reset trampoline calls. It is never
// expected to return — Entry's cold-boot path ends by transferring
// control to the next boot stage, and its warm-boot path does the
// same after ColdBoot has already run on another HART.
func main() {
	Entry(hartIDs[0], true)
}

// Entry is the Go-level continuation of the assembly reset vector:
// hartID is this HART's mhartid (read by the trampoline before the Go
// stack is usable), coldBoot is whether this HART won the cold-boot
// race (also decided by the trampoline, typically by a CAS on a
// shared flag before Go code runs at all).
func Entry(hartID uint64, coldBoot bool) {
	uart := sifiveuart.New(uartBase, uartInFreq, uartBaseBaud)
	ops := &platform.Ops{
		ConsolePutc: uart.Putc,
		ConsoleGetc: uart.Getc,
	}

	extensions := ext.NewTable()
	_ = extensions.Register(ext.PMUStub{}) // fresh table, id can't collide

	cfg := boot.Config{
		HartIDs:       hartIDs,
		ColdBootHart:  coldBootHart,
		PMPEntryCount: 8,
		Platform:      ops,
		Extension:     extensions,
		Domains: []boot.DomainConfig{
			{
				Domain: &domain.Domain{
					Name: "root",
					Regions: []domain.Region{{
						Base:  0,
						Order: 64,
						Flags: domain.RegionMRead | domain.RegionMWrite | domain.RegionMExec |
							domain.RegionSURead | domain.RegionSUWrite | domain.RegionSUExec,
					}},
				},
				PossibleHarts: allHarts(len(hartIDs)),
				AssignMask:    allHarts(len(hartIDs)),
			},
		},
	}

	if coldBoot {
		boot.ColdBoot(cfg)
		return
	}

	boot.WarmBoot(cfg, scratch.ForHartID(hartID))
}

func allHarts(n int) bitmap.Bitmap64 {
	var m bitmap.Bitmap64
	for i := 0; i < n; i++ {
		m.Set(uint(i))
	}
	return m
}
