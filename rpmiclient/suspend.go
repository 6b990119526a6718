package rpmiclient

import "github.com/rvcore/coresbi/rpmi"

// Suspend adapts the SBI SUSP extension onto RPMI's system-suspend
// service group (rpmi_msgprot.h's RPMI_SRVGRP_SYSTEM_SUSPEND), whose
// three services — enable notification, get attributes, and system
// suspend — mirror rpmi_syssusp_get_attr_req/resp and
// rpmi_syssusp_suspend_req/resp.
type Suspend struct {
	Channel *rpmi.Channel
}

// Attributes describes what the remote suspend service supports,
// decoded from rpmi_syssusp_get_attr_resp's trailing words (status,
// flags, resumeaddr_lo, resumeaddr_hi in the original struct).
type Attributes struct {
	Flags      uint32
	ResumeAddr uint64
}

// EnableNotification arms the suspend-readiness notification RPMI
// will post on the channel's notification queue before a suspend
// request.
func (s Suspend) EnableNotification() error {
	_, err := normalRequest(s.Channel, GroupSystemSuspend, suspSrvEnableNotification, nil, 0)
	return err
}

// GetAttributes reads back what suspend types and resume behavior the
// remote end supports.
func (s Suspend) GetAttributes() (Attributes, error) {
	words, err := normalRequest(s.Channel, GroupSystemSuspend, suspSrvGetAttributes, nil, 3)
	if err != nil {
		return Attributes{}, err
	}
	return Attributes{
		Flags:      words[0],
		ResumeAddr: uint64(words[1]) | uint64(words[2])<<32,
	}, nil
}

// SystemSuspend requests the platform suspend to suspendType, resuming
// execution at resumeAddr with opaque available in a1, per
// rpmi_syssusp_suspend_req's (suspend_type, resumeaddr_lo, resumeaddr_
// hi) request layout generalized with an opaque word the way
// fdt_hsm_rpmi.c's suspend request carries one.
func (s Suspend) SystemSuspend(suspendType uint32, resumeAddr, opaque uint64) error {
	_, err := normalRequest(s.Channel, GroupSystemSuspend, suspSrvSystemSuspend,
		[]uint32{suspendType, uint32(resumeAddr), uint32(resumeAddr >> 32), uint32(opaque), uint32(opaque >> 32)}, 0)
	return err
}
