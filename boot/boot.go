// Package boot implements spec.md §5's cold/warm boot orchestration:
// the one-time cold-boot sequence that builds the scratch table,
// registers domains, programs PMP, and wires the trap engine, plus
// the warm-boot path every other HART (and a resumed suspended HART)
// takes. It is the Go analogue of the teacher's kernel/kmain.Kmain:
// a short, sequential list of fallible init steps that halts on the
// first failure (fatalf: a message through kfmt to the platform
// console, then a spin loop) rather than returning an error the
// assembly trampoline wouldn't know what to do with.
//
// Grounded on kernel/kmain/kmain.go's init-sequence shape
// (allocator.Init -> vmm.Init -> goruntime.Init, panic on first
// failure) and lib/sbi/sbi_init.c's cold/warm boot split in
// original_source (sbi_init_coldboot does domain/extension
// registration and PMP programming exactly once; sbi_init_warmboot
// repeats only the per-HART CSR/PMP setup).
package boot

import (
	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/domain"
	"github.com/rvcore/coresbi/ext"
	"github.com/rvcore/coresbi/fifo"
	"github.com/rvcore/coresbi/hartprot"
	"github.com/rvcore/coresbi/hsm"
	"github.com/rvcore/coresbi/ipi"
	"github.com/rvcore/coresbi/kfmt"
	"github.com/rvcore/coresbi/platform"
	"github.com/rvcore/coresbi/scratch"
	"github.com/rvcore/coresbi/trap"
)

// Config is everything a platform supplies to build the firmware's
// cold-boot state: the HART id list scratch.Init needs, the domains
// to register (each domain pairs a domain.Domain with the possible/
// assign HART masks domain.Registry.Register wants), whether Smepmp
// PMP programming should be used in place of the legacy encoding, the
// platform hook table, and the collaborators the trap engine and
// extension dispatcher need wired in.
type Config struct {
	HartIDs      []uint64
	ColdBootHart uint32

	Domains []DomainConfig

	UseSmepmp        bool
	PMPEntryCount    uint
	SetMseccfgBits   func(mask uint64)
	ClearMseccfgBits func(mask uint64)

	Platform *platform.Ops

	TrapHooks trap.Hooks
	Extension *ext.Table

	// IPI installs the built-in S-mode-relay/TLB-shootdown IPI events
	// (ipi.RegisterBuiltins); nil skips IPI setup entirely (a
	// platform with no inter-HART fabric).
	IPI *IPIHooks
}

// DomainConfig is one platform-supplied domain registration: the
// domain itself plus the HART masks domain.Registry.Register expects.
type DomainConfig struct {
	Domain        *domain.Domain
	PossibleHarts bitmap.Bitmap64
	AssignMask    bitmap.Bitmap64
}

// IPIHooks carries the three platform callbacks ipi.RegisterBuiltins
// needs: set SSIP on a target HART, halt a HART that's stopping, and
// flush the TLB per a shootdown request.
type IPIHooks struct {
	SetSSIP  func(*scratch.Scratch)
	HaltHart func(*scratch.Scratch)
	Flush    func(*scratch.Scratch, fifo.TlbInfo)
}

// Registry is the process-wide domain registry built by ColdBoot.
// Package-level because every other package (trap's delegation
// decisions, hartprot's PMP programming) needs to reach it from
// collaborators that only have a *scratch.Scratch, not a Config.
var Registry *domain.Registry

// consoleWriter adapts platform.Ops.ConsolePutc into an io.Writer for
// kfmt, the same role the teacher's hal.ActiveTerminal plays for
// kernel/kfmt/early — boot diagnostics go straight through the
// platform hook rather than the legacy console extension (package
// console), which only exists for a guest re-entering putchar/getchar
// after boot.
type consoleWriter struct{ ops *platform.Ops }

func (w consoleWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		w.ops.ConsolePutcOrNil(b)
	}
	return len(p), nil
}

// ColdBoot runs spec.md §5's cold-boot sequence exactly once, on the
// HART the platform designates as cfg.ColdBootHart: scratch table
// construction, domain registration, per-domain PMP programming for
// every HART already assigned at boot, IPI built-in registration, and
// trap-engine/extension-dispatcher wiring. On the first failure it
// writes a message through kfmt and halts in a spin loop, mirroring
// kernel.Panic's dump-then-halt shape,
// since a cold-boot fault leaves this firmware instance with no
// recovery path to return useful failure to.
func ColdBoot(cfg Config) {
	trap.ConsoleWriter = consoleWriter{ops: cfg.Platform}

	scratch.Init(cfg.HartIDs)
	hartState = make([]hsm.HartState, scratch.HartCount())

	Registry = domain.NewRegistry(len(cfg.HartIDs), cfg.ColdBootHart)
	for _, dc := range cfg.Domains {
		if err := Registry.Register(dc.Domain, dc.PossibleHarts, dc.AssignMask); err != nil {
			fatalf(cfg, "boot: domain %s registration failed: %s", dc.Domain.Name, err.Error())
		}
	}

	scratch.Each(func(s *scratch.Scratch) {
		configureHartPMP(cfg, s)
	})

	if cfg.IPI != nil {
		if err := ipi.RegisterBuiltins(cfg.IPI.SetSSIP, cfg.IPI.HaltHart, cfg.IPI.Flush); err != nil {
			fatalf(cfg, "boot: IPI built-in registration failed: %s", err.Error())
		}
	}

	if cfg.Extension != nil {
		cfg.TrapHooks.Ecall = cfg.Extension
	}
	trap.Init(cfg.TrapHooks)

	if err := cfg.Platform.EarlyInitOrNil(true); err != nil {
		fatalf(cfg, "boot: platform early init failed: %s", err.Error())
	}
	if err := cfg.Platform.IrqchipInitOrNil(true); err != nil {
		fatalf(cfg, "boot: platform irqchip init failed: %s", err.Error())
	}
	if err := cfg.Platform.FinalInitOrNil(true); err != nil {
		fatalf(cfg, "boot: platform final init failed: %s", err.Error())
	}
}

// WarmBoot runs the per-HART setup every non-cold-boot HART (and a
// HART resuming from suspend) repeats: PMP reprogramming for whatever
// domain now owns it, and the platform's non-cold-boot init hooks. It
// assumes ColdBoot has already run on some HART and Registry is
// populated; it does not touch the scratch table or domain registry.
func WarmBoot(cfg Config, s *scratch.Scratch) {
	configureHartPMP(cfg, s)

	if err := cfg.Platform.EarlyInitOrNil(false); err != nil {
		fatalf(cfg, "boot: platform early init (warm) failed: %s", err.Error())
	}
	if err := cfg.Platform.IrqchipInitOrNil(false); err != nil {
		fatalf(cfg, "boot: platform irqchip init (warm) failed: %s", err.Error())
	}
	if err := cfg.Platform.FinalInitOrNil(false); err != nil {
		fatalf(cfg, "boot: platform final init (warm) failed: %s", err.Error())
	}
}

func configureHartPMP(cfg Config, s *scratch.Scratch) {
	dom := Registry.OwnerOf(s.HartIndex)
	if dom == nil {
		return
	}
	var err error
	if cfg.UseSmepmp {
		err = hartprot.ConfigureSmepmp(dom, cfg.PMPEntryCount, cfg.SetMseccfgBits, cfg.ClearMseccfgBits)
	} else {
		err = hartprot.ConfigureLegacy(dom, cfg.PMPEntryCount)
	}
	if err != nil {
		fatalf(cfg, "boot: PMP configuration for domain %s failed: %s", dom.Name, err.Error())
	}
}

// hartState, keyed by the same dense HART index scratch uses, backs
// the HSM extension's per-HART state machine. Allocated by ColdBoot
// at the same time as the scratch table it is indexed alongside.
var hartState []hsm.HartState

// HSMState returns the HART-state cell for hartIndex, or nil if
// ColdBoot has not run yet or the index is out of range.
func HSMState(hartIndex uint32) *hsm.HartState {
	if int(hartIndex) >= len(hartState) {
		return nil
	}
	return &hartState[hartIndex]
}

func fatalf(cfg Config, format string, args ...interface{}) {
	w := consoleWriter{ops: cfg.Platform}
	kfmt.Fprintf(w, "\n-----------------------------------\n")
	kfmt.Fprintf(w, format+"\n", args...)
	kfmt.Fprintf(w, "*** boot: unrecoverable error, system halted ***\n")
	kfmt.Fprintf(w, "-----------------------------------\n")
	for {
	}
}
