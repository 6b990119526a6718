package rpmiclient

import (
	"github.com/rvcore/coresbi/rpmi"
)

// CPPC adapts the SBI CPPC extension onto a remote RPMI CPPC service
// group, grounded on fdt_cppc_rpmi.c's rpmi_cppc_probe, rpmi_cppc_read
// and rpmi_cppc_write. Register numbers follow ACPI CPPC's register
// space, passed through unchanged as the request's first word.
type CPPC struct {
	Channel *rpmi.Channel
}

// Probe reports whether register is implemented on the remote end and,
// if so, the hardware offset fdt_cppc_rpmi.c calls the "fast channel
// offset" (non-zero when the register has a doorbell-triggered fast
// path rather than going through a normal RPMI request).
func (c CPPC) Probe(hartID uint32, register uint32) (offset uint32, err error) {
	words, err := normalRequest(c.Channel, GroupCPPC, cppcSrvProbeReg, []uint32{hartID, register}, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// Read returns the 64-bit value of register on hartID.
func (c CPPC) Read(hartID uint32, register uint32) (uint64, error) {
	words, err := normalRequest(c.Channel, GroupCPPC, cppcSrvReadReg, []uint32{hartID, register}, 2)
	if err != nil {
		return 0, err
	}
	return uint64(words[0]) | uint64(words[1])<<32, nil
}

// Write stores value into register on hartID.
func (c CPPC) Write(hartID uint32, register uint32, value uint64) error {
	_, err := normalRequest(c.Channel, GroupCPPC, cppcSrvWriteReg,
		[]uint32{hartID, register, uint32(value), uint32(value >> 32)}, 0)
	return err
}
