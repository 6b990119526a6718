package ext

import "github.com/rvcore/coresbi/sbierr"

// pmuExtensionID is the SBI Performance Monitoring Unit extension id
// ("PMU").
const pmuExtensionID = 0x504D55

// PMUStub is a probe-only PMU extension (SPEC_FULL.md §C): it is
// registered so a guest's extension probe for PMU support gets a
// clean, well-formed NOT_SUPPORTED through the normal dispatch path
// rather than falling through Table.Dispatch's own "no such
// extension" branch — useful once a real PMU is wired in later,
// since the registration slot and id already exist. It never claims
// any function id.
type PMUStub struct{}

func (PMUStub) ExtensionID() int64 { return pmuExtensionID }

func (PMUStub) Probe(int64) bool { return false }

func (PMUStub) Handle(int64, [6]uint64) (sbierr.Code, uint64) {
	return sbierr.ErrNotSupported, 0
}
