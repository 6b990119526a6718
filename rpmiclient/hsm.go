package rpmiclient

import (
	"github.com/rvcore/coresbi/rpmi"
)

// HSM adapts spec.md §5's hart state-machine operations onto a remote
// RPMI HSM service group, grounded on fdt_hsm_rpmi.c's rpmi_hsm_start,
// rpmi_hsm_stop and rpmi_hsm_suspend. It serves a platform that
// delegates hart power control to a remote microcontroller instead of
// driving it directly; package hsm itself has no hook table, so the
// platform calls these methods from its own start/stop/suspend code.
type HSM struct {
	Channel *rpmi.Channel
}

// StartHart requests hartID be released from HSM_STOPPED at
// startAddr, with opaque passed through to the woken hart's a1 per
// spec.md §5.
func (h HSM) StartHart(hartID uint32, startAddr, opaque uint64) error {
	_, err := normalRequest(h.Channel, GroupHSM, hsmSrvHartStart,
		[]uint32{hartID, uint32(startAddr), uint32(startAddr >> 32), uint32(opaque), uint32(opaque >> 32)}, 0)
	return err
}

// StopHart requests hartID transition to HSM_STOPPED.
func (h HSM) StopHart(hartID uint32) error {
	_, err := normalRequest(h.Channel, GroupHSM, hsmSrvHartStop, []uint32{hartID}, 0)
	return err
}

// SuspendHart requests hartID enter suspendType, resuming at
// resumeAddr with opaque in a1, mirroring rpmi_hsm_suspend's request
// layout (hart id, suspend type, resume addr lo/hi, opaque lo/hi).
func (h HSM) SuspendHart(hartID uint32, suspendType uint32, resumeAddr, opaque uint64) error {
	_, err := normalRequest(h.Channel, GroupHSM, hsmSrvHartSusp,
		[]uint32{hartID, suspendType, uint32(resumeAddr), uint32(resumeAddr >> 32), uint32(opaque), uint32(opaque >> 32)}, 0)
	return err
}
