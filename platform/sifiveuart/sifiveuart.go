// Package sifiveuart is a minimal MMIO driver for the SiFive UART
// block, wired in as the reference platform.Ops console hook (the
// ipi/timer/reboot hooks every real board must still supply itself —
// this package only grounds the "what does a real ConsolePutc/
// ConsoleGetc hook look like" question SPEC_FULL.md §D's platform
// glue row leaves open).
//
// Grounded on plat/common/serial/sifive-uart.c in original_source:
// the register layout (txfifo/rxfifo/txctrl/rxctrl/ie/ip/div at word
// offsets 0..6), the full-fifo busy-wait in putc, and the
// empty-flag-gated read in getc are all direct ports of that file's
// sifive_uart_putc/sifive_uart_getc.
package sifiveuart

import (
	"sync/atomic"
	"unsafe"
)

// Register offsets, in words, matching UART_REG_* in original_source.
const (
	regTxFIFO = 0
	regRxFIFO = 1
	regTxCtrl = 2
	regRxCtrl = 3
	regIE     = 4
	regDiv    = 6
)

const (
	txFIFOFull  = 1 << 31
	rxFIFOEmpty = 1 << 31
	rxFIFOData  = 0xff
	txCtrlEn    = 0x1
	rxCtrlEn    = 0x1
)

// UART is one SiFive UART instance, addressed by its MMIO base.
// Zero value is not usable; construct with New.
type UART struct {
	base uintptr
}

// New configures the UART at base for in_freq/baudrate and returns a
// ready instance, mirroring sifive_uart_init's sequence: program the
// baud divisor, disable interrupts, then enable TX and RX.
func New(base uintptr, inFreq, baudrate uint32) *UART {
	u := &UART{base: base}
	u.setReg(regDiv, inFreq/baudrate-1)
	u.setReg(regIE, 0)
	u.setReg(regTxCtrl, txCtrlEn)
	u.setReg(regRxCtrl, rxCtrlEn)
	return u
}

func (u *UART) reg(num uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(u.base + num*4))
}

func (u *UART) getReg(num uintptr) uint32 {
	return atomic.LoadUint32(u.reg(num))
}

func (u *UART) setReg(num uintptr, val uint32) {
	atomic.StoreUint32(u.reg(num), val)
}

// Putc blocks until the TX FIFO has room, then writes ch.
func (u *UART) Putc(ch byte) {
	for u.getReg(regTxFIFO)&txFIFOFull != 0 {
	}
	u.setReg(regTxFIFO, uint32(ch))
}

// Getc returns the next received byte and true, or (0, false) if the
// RX FIFO is empty.
func (u *UART) Getc() (byte, bool) {
	v := u.getReg(regRxFIFO)
	if v&rxFIFOEmpty != 0 {
		return 0, false
	}
	return byte(v & rxFIFOData), true
}
