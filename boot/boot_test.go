package boot

import (
	"testing"

	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/domain"
	"github.com/rvcore/coresbi/platform"
	"github.com/rvcore/coresbi/scratch"
)

func maskOf(bits ...uint) bitmap.Bitmap64 {
	var m bitmap.Bitmap64
	for _, b := range bits {
		m.Set(b)
	}
	return m
}

func oneDomain() DomainConfig {
	return DomainConfig{
		Domain: &domain.Domain{
			Name:    "root",
			Regions: []domain.Region{{Base: 0x80000000, Order: 28, Flags: domain.RegionMRead | domain.RegionMWrite | domain.RegionMExec}},
		},
		PossibleHarts: maskOf(0, 1),
		AssignMask:    maskOf(0, 1),
	}
}

func TestColdBootRegistersDomainsAndConfiguresPMP(t *testing.T) {
	scratch.ResetForTest()

	var consoleBuf []byte
	ops := &platform.Ops{ConsolePutc: func(ch byte) { consoleBuf = append(consoleBuf, ch) }}

	cfg := Config{
		HartIDs:       []uint64{0, 1},
		ColdBootHart:  0,
		Domains:       []DomainConfig{oneDomain()},
		PMPEntryCount: 8,
		Platform:      ops,
	}
	ColdBoot(cfg)

	if Registry == nil {
		t.Fatal("Registry was not built")
	}
	if dom := Registry.OwnerOf(0); dom == nil || dom.Name != "root" {
		t.Fatalf("hart 0's owning domain = %+v, want root", dom)
	}
	if HSMState(0) == nil {
		t.Fatal("HSMState(0) should be non-nil after ColdBoot")
	}
	if HSMState(0).Load() != 0 {
		t.Fatalf("fresh HartState should start Stopped, got %v", HSMState(0).Load())
	}
}

func TestWarmBootReprogramsPMPForOwningDomain(t *testing.T) {
	scratch.ResetForTest()
	ops := &platform.Ops{ConsolePutc: func(byte) {}}
	cfg := Config{
		HartIDs:       []uint64{0, 1},
		ColdBootHart:  0,
		Domains:       []DomainConfig{oneDomain()},
		PMPEntryCount: 8,
		Platform:      ops,
	}
	ColdBoot(cfg)

	s := scratch.ForIndex(1)
	WarmBoot(cfg, s)
}
