// Package domain implements the domain/region protection layer of
// spec.md §4.2: a domain partitions physical address space into
// flagged memory regions and claims a subset of HARTs; package trap's
// delegation and package hartprot's PMP programming both consult it to
// decide what a given privilege mode may touch. Ported from the
// teacher's kernel/mem region-bookkeeping style (sorted, merge-checked
// region lists) and grounded directly on lib/sbi/sbi_domain.c.
package domain

import (
	"sort"

	"github.com/rvcore/coresbi/bitmap"
	"github.com/rvcore/coresbi/rlock"
	"github.com/rvcore/coresbi/sbierr"
)

// AccessFlags are the bits a caller passes to CheckAddr: what kind of
// access it wants to make, independent of who's making it.
type AccessFlags uint

const (
	AccessRead AccessFlags = 1 << iota
	AccessWrite
	AccessExecute
	AccessMMIO
)

// Region flag bits, matching sbi_domain.h's memregion flags: an
// M-mode and an SU-mode RWX triple, plus MMIO and firmware markers.
const (
	RegionMRead  = 1 << iota // M-mode may read
	RegionMWrite             // M-mode may write
	RegionMExec              // M-mode may execute

	RegionSURead  // S/U-mode may read
	RegionSUWrite // S/U-mode may write
	RegionSUExec  // S/U-mode may execute

	regionAccessMask   = 0x3f
	regionMAccessMask  = 0x07
	regionSUAccessMask = 0x38
	regionSUShift      = 3

	RegionMMIO = 1 << 30
	RegionFW   = 1 << 31
)

// Region describes one [base, base+2^Order) span of physical address
// space and the access it grants.
type Region struct {
	Base  uint64
	Order uint
	Flags uint64
}

func (r Region) end() uint64 {
	if r.Order >= 64 {
		return ^uint64(0)
	}
	return r.Base + (uint64(1)<<r.Order - 1)
}

func (r Region) mOnly() bool {
	return r.Flags&regionMAccessMask != 0 && r.Flags&regionSUAccessMask == 0
}

// isSubset reports whether r is fully contained within other, proper
// or equal containment alike (matching sbi_domain.c's
// is_region_subset — equal ranges count as a subset of each other,
// which is what lets two identically-ranged regions with differing
// flags be flagged as conflicting).
func isSubset(r, other Region) bool {
	return other.Base <= r.Base && r.Base < other.end() &&
		other.Base < r.end() && r.end() <= other.end()
}

// conflicts reports whether a and b conflict per spec.md §4.2: either
// is a subset of the other and their flags differ.
func conflicts(a, b Region) bool {
	if a.Flags == b.Flags {
		return false
	}
	return isSubset(a, b) || isSubset(b, a)
}

// before orders regions per spec.md §4.2: smaller order first, then
// smaller base.
func before(a, b Region) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.Base < b.Base
}

func isValidRegion(r Region) bool {
	if r.Order < 3 || r.Order > 64 {
		return false
	}
	if r.Order == 64 {
		return r.Base == 0
	}
	if r.Base&(uint64(1)<<r.Order-1) != 0 {
		return false
	}
	return true
}

// Domain is one protection domain: a name, a HART membership set, a
// boot HART, and a sorted, conflict-free list of memory regions.
type Domain struct {
	Name     string
	Regions  []Region
	BootHart uint32

	// possibleHarts is the set this domain may ever be assigned to;
	// assignedHarts is the (mutable) current membership.
	possibleHarts bitmap.Bitmap64
	assignedHarts bitmap.Bitmap64
}

// Registry tracks every registered domain and which domain owns each
// HART. It plays the role of the teacher's single global HART table
// generalized with an intervening "who owns this HART" layer.
type Registry struct {
	mu         rlock.Spinlock
	domains    []*Domain
	ownerIndex []int // per-HART-index: which entry of domains owns it, or -1
	coldHart   uint32
}

// NewRegistry builds an empty registry sized for numHarts HARTs, none
// of which belong to any domain yet.
func NewRegistry(numHarts int, coldBootHart uint32) *Registry {
	owner := make([]int, numHarts)
	for i := range owner {
		owner[i] = -1
	}
	return &Registry{ownerIndex: owner, coldHart: coldBootHart}
}

// Register validates and installs dom, assigning it the next free
// domain index and transferring every HART in
// assignMask∩possibleHarts from its previous owner (if any) to dom.
// Per spec.md §4.2: if the cold-boot HART ends up in this domain and
// its current BootHart is not one of the HARTs just assigned, the
// cold-boot HART becomes the domain's boot HART.
func (r *Registry) Register(dom *Domain, possibleHarts, assignMask bitmap.Bitmap64) error {
	if possibleHarts.Load() == 0 {
		return sbierr.ErrInvalidParam
	}
	var badHart bool
	bitmap.Iterate(possibleHarts.Load(), func(bit uint) {
		if int(bit) >= len(r.ownerIndex) {
			badHart = true
		}
	})
	if badHart {
		return sbierr.ErrInvalidParam
	}
	if len(dom.Regions) == 0 {
		return sbierr.ErrInvalidParam
	}
	for _, reg := range dom.Regions {
		if !isValidRegion(reg) {
			return sbierr.ErrInvalidParam
		}
	}
	for i, a := range dom.Regions {
		for _, b := range dom.Regions[i+1:] {
			if conflicts(a, b) {
				return sbierr.ErrInvalidParam
			}
		}
	}

	sort.Slice(dom.Regions, func(i, j int) bool { return before(dom.Regions[i], dom.Regions[j]) })
	dom.possibleHarts = possibleHarts

	r.mu.Acquire()
	defer r.mu.Release()

	idx := len(r.domains)
	r.domains = append(r.domains, dom)

	effective := assignMask.Load() & possibleHarts.Load()
	assignedAny := false
	bitmap.Iterate(effective, func(bit uint) {
		if prev := r.ownerIndex[bit]; prev >= 0 {
			r.domains[prev].assignedHarts.Clear(bit)
		}
		r.ownerIndex[bit] = idx
		dom.assignedHarts.Set(bit)
		assignedAny = true
	})

	if assignedAny && dom.assignedHarts.Test(uint(r.coldHart)) && !dom.assignedHarts.Test(uint(dom.BootHart)) {
		dom.BootHart = r.coldHart
	}

	return nil
}

// OwnerOf returns the domain that owns hartIndex, or nil if
// unassigned.
func (r *Registry) OwnerOf(hartIndex uint32) *Domain {
	r.mu.Acquire()
	defer r.mu.Release()
	if int(hartIndex) >= len(r.ownerIndex) {
		return nil
	}
	idx := r.ownerIndex[hartIndex]
	if idx < 0 {
		return nil
	}
	return r.domains[idx]
}

// findRegion returns the first region containing addr, or nil.
func findRegion(dom *Domain, addr uint64) *Region {
	for i := range dom.Regions {
		r := &dom.Regions[i]
		if r.Base <= addr && addr <= r.end() {
			return r
		}
	}
	return nil
}

// FindNextSubsetRegion returns, among the regions other than reg that
// lie inside reg (an equal range counts) and start after addr, the one
// with the lowest base, preferring the smaller order on a tie. It
// serves CheckRange's "skip into an overlapping finer-grained entry"
// walk (spec.md §4.2).
func FindNextSubsetRegion(dom *Domain, reg *Region, addr uint64) *Region {
	var best *Region
	for i := range dom.Regions {
		cand := &dom.Regions[i]
		if cand == reg || cand.Base <= addr {
			continue
		}
		if !isSubset(*cand, *reg) {
			continue
		}
		if best == nil || cand.Base < best.Base || (cand.Base == best.Base && cand.Order < best.Order) {
			best = cand
		}
	}
	return best
}

// Mode is the privilege level making the access being checked.
type Mode int

const (
	ModeU Mode = iota
	ModeS
	ModeM = Mode(3)
)

// CheckAddr implements spec.md §4.2's check_addr: find the first
// region containing addr; if none, permit only M-mode; otherwise
// permit iff the region's access bits for mode are a superset of
// access and the MMIO-ness of the request matches the region's.
func CheckAddr(dom *Domain, addr uint64, mode Mode, access AccessFlags) bool {
	if dom == nil {
		return false
	}
	reg := findRegion(dom, addr)
	if reg == nil {
		return mode == ModeM
	}

	var rwx uint64
	if mode == ModeM {
		rwx = reg.Flags & regionMAccessMask
	} else {
		rwx = (reg.Flags & regionSUAccessMask) >> regionSUShift
	}

	var want uint64
	if access&AccessRead != 0 {
		want |= RegionMRead
	}
	if access&AccessWrite != 0 {
		want |= RegionMWrite
	}
	if access&AccessExecute != 0 {
		want |= RegionMExec
	}

	isMMIO := reg.Flags&RegionMMIO != 0
	wantsMMIO := access&AccessMMIO != 0
	if isMMIO != wantsMMIO {
		return false
	}

	return rwx&want == want
}

// CheckRange extends CheckAddr across [addr, addr+size), walking into
// overlapping finer-grained subset regions the way spec.md §4.2
// describes, so a range that straddles a coarse region and a carved-
// out exception inside it is validated against both.
func CheckRange(dom *Domain, addr, size uint64, mode Mode, access AccessFlags) bool {
	if size == 0 {
		return CheckAddr(dom, addr, mode, access)
	}
	end := addr + size - 1
	for cur := addr; ; {
		reg := findRegion(dom, cur)
		if !CheckAddr(dom, cur, mode, access) {
			return false
		}
		if reg == nil || reg.end() >= end {
			return true
		}
		next := FindNextSubsetRegion(dom, reg, cur)
		if next == nil {
			cur = reg.end() + 1
		} else {
			cur = next.Base
		}
		if cur > end {
			return true
		}
	}
}
