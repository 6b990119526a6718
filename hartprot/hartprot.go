// Package hartprot selects between the legacy PMP-only protection
// policy and the Smepmp two-pass policy, and implements the one thing
// a PMP driver alone cannot: the dynamic map_saddr/unmap_saddr slot
// Smepmp's M-mode uses to temporarily reach into S/U-owned shared
// memory. It is the policy layer spec.md §4.2 describes sitting above
// package pmp's mechanism, grounded directly on
// lib/sbi/sbi_hart_pmp.c's sbi_hart_smepmp_configure/map_range/
// unmap_range family.
package hartprot

import (
	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/domain"
	"github.com/rvcore/coresbi/pmp"
	"github.com/rvcore/coresbi/sbierr"
)

// smepmpReservedEntry is the PMP index Smepmp reserves as the dynamic
// shared-memory slot; it is disabled at boot and only briefly
// programmed by MapSaddr.
const smepmpReservedEntry = 0

// Features describes a HART's PMP implementation, discovered once at
// cold boot and stashed in scratch by the boot package.
type Features struct {
	Count     uint
	Log2Gran  uint
	HasSmepmp bool
}

// regionProt derives the R/W/X bits Set needs from the access triple
// forMode extracts from a domain region's flags (mAccess for the
// M-mode triple, suAccess for the S/U-mode one). It never sets the
// lock bit and applies no Smepmp-specific remapping: both policies
// below simply OR together the triples they program.
func regionProt(r domain.Region, forMode func(flags uint64) uint64) pmp.Prot {
	rwx := forMode(r.Flags)
	var p pmp.Prot
	if rwx&domain.RegionMRead != 0 {
		p |= pmp.ProtR
	}
	if rwx&domain.RegionMWrite != 0 {
		p |= pmp.ProtW
	}
	if rwx&domain.RegionMExec != 0 {
		p |= pmp.ProtX
	}
	return p
}

func mAccess(flags uint64) uint64 { return flags & 0x07 }
func suAccess(flags uint64) uint64 {
	return (flags & 0x38) >> 3
}

func isMOnly(r domain.Region) bool {
	return mAccess(r.Flags) != 0 && suAccess(r.Flags) == 0
}

// ConfigureLegacy programs one PMP entry per region of dom, skipping
// no reserved slot (the legacy policy has none). Neither policy calls
// pmp.Fence, and neither does boot's configureHartPMP, their caller:
// no TLB flush follows the PMP programming.
func ConfigureLegacy(dom *domain.Domain, count uint) error {
	if uint(len(dom.Regions)) > count {
		return sbierr.ErrNoSpace
	}
	for i, r := range dom.Regions {
		prot := regionProt(r, mAccess) | regionProt(r, func(f uint64) uint64 { return suAccess(f) << 0 })
		// Legacy PMP has no SU-only bit; a region readable by SU but
		// not M still needs M to be blocked, which plain PMP can't
		// express, so the conservative legacy encoding ORs the two
		// access sets together (SU access implies M access is also
		// granted under the legacy policy, per the original's
		// sbi_hart_oldpmp_configure comment on this limitation).
		pmp.Set(uint(i), prot, r.Base, r.Order)
	}
	return nil
}

// fwSlots tracks, per HART, which PMP indices were used for firmware
// regions under Smepmp so a later domain switch's reconfiguration can
// tell firmware entries apart from the domain's own regions (spec.md
// §4.2: "Firmware regions have their PMP index recorded in a bitmap").
var fwSlots bitmap.Bitmap64

// IsFirmwareSlot reports whether idx was marked as holding a firmware
// region by the most recent ConfigureSmepmp call.
func IsFirmwareSlot(idx uint) bool { return fwSlots.Test(idx) }

// ConfigureSmepmp implements spec.md §4.2's two-pass Smepmp sequence:
// set MSECCFG.RLB, disable the reserved entry, program every M-only
// region, set MML, then program every shared/SU-only region. count is
// the number of implemented PMP entries; idx 0 is always reserved.
func ConfigureSmepmp(dom *domain.Domain, count uint, setMseccfgBits func(mask uint64), clearMseccfgBits func(mask uint64)) error {
	setMseccfgBits(pmp.MseccfgRLB)
	pmp.Disable(smepmpReservedEntry)

	idx := uint(1)
	for _, r := range dom.Regions {
		if !isMOnly(r) {
			continue
		}
		if idx >= count {
			return sbierr.ErrNoSpace
		}
		if r.Flags&domain.RegionFW != 0 {
			fwSlots.Set(idx)
		}
		pmp.Set(idx, regionProt(r, mAccess), r.Base, r.Order)
		idx++
	}

	setMseccfgBits(pmp.MseccfgMML)
	clearMseccfgBits(pmp.MseccfgRLB)

	for _, r := range dom.Regions {
		if isMOnly(r) {
			continue
		}
		if idx >= count {
			return sbierr.ErrNoSpace
		}
		pmp.Set(idx, regionProt(r, mAccess)|regionProt(r, suAccess), r.Base, r.Order)
		idx++
	}

	return nil
}

// MapSaddr temporarily grants M-mode R/W access to [addr, addr+size)
// through the Smepmp reserved entry, per spec.md §4.2: bounded by
// order >= log2(granularity), chosen as the smallest power-of-two
// region naturally aligned to cover the whole range.
func MapSaddr(addr, size uint64, log2Gran uint) error {
	for order := log2Gran; order <= 64; order++ {
		if order == 64 {
			return sbierr.ErrFailed
		}
		base := addr &^ (uint64(1)<<order - 1)
		end := base + uint64(1)<<order
		if base <= addr && addr+size <= end {
			pmp.Set(smepmpReservedEntry, pmp.ProtR|pmp.ProtW, base, order)
			return nil
		}
	}
	return sbierr.ErrFailed
}

// UnmapSaddr releases the dynamic slot MapSaddr granted.
func UnmapSaddr() {
	pmp.Disable(smepmpReservedEntry)
}
