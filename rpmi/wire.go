// Package rpmi implements the shared-memory mailbox transport of
// spec.md §4.4 and §3's "Mailbox channel (RPMI)"/"Shared-memory
// queue" data model: fixed-size ring queues carrying
// servicegroup/service/token-addressed message records, with
// coalesced send/receive retry loops standing in for the 1 ms-tick
// timeout waits a real HART would perform with WFI.
//
// Grounded on include/sbi_utils/mailbox/{mailbox,rpmi_msgprot}.h and
// lib/sbi/sbi_mpxy.c in original_source. There is no host-ecosystem
// wire-format library for this protocol, so the codec is hand-rolled
// the way the teacher hand-rolls its own ELF/ACPI table parsers
// (src/gopheros/device/acpi/table/tables.go) rather than reaching for
// a generic binary-struct package.
package rpmi

import "encoding/binary"

// HeaderSize is the fixed 8-byte message record header preceding a
// slot's payload (spec.md §3).
const HeaderSize = 8

// MinSlotSize is the smallest legal slot_size: a record needs room
// for its header plus at least some payload, and spec.md §4.4 fixes
// the floor at 64 bytes.
const MinSlotSize = 64

// MessageType occupies the low 3 bits of the header's flags byte.
type MessageType uint8

const (
	MessageNormal MessageType = iota
	MessagePosted
	MessageNotification
	MessageAck
)

const messageTypeMask = 0x07

// Header is the 8-byte record header preceding every message slot's
// payload: servicegroup id (LE16), service id (8-bit), flags (8-bit,
// low 3 bits are the message type), payload length (LE16), token
// (LE16).
type Header struct {
	ServiceGroup uint16
	ServiceID    uint8
	Flags        uint8
	PayloadLen   uint16
	Token        uint16
}

// Type extracts the message type from Flags.
func (h Header) Type() MessageType { return MessageType(h.Flags & messageTypeMask) }

func encodeHeader(dst []byte, h Header) {
	binary.LittleEndian.PutUint16(dst[0:2], h.ServiceGroup)
	dst[2] = h.ServiceID
	dst[3] = h.Flags
	binary.LittleEndian.PutUint16(dst[4:6], h.PayloadLen)
	binary.LittleEndian.PutUint16(dst[6:8], h.Token)
}

func decodeHeader(src []byte) Header {
	return Header{
		ServiceGroup: binary.LittleEndian.Uint16(src[0:2]),
		ServiceID:    src[2],
		Flags:        src[3],
		PayloadLen:   binary.LittleEndian.Uint16(src[4:6]),
		Token:        binary.LittleEndian.Uint16(src[6:8]),
	}
}

// DecodeHeader is decodeHeader exported for host tooling (tools/
// rpmidump) that needs to read a captured queue dump's slot headers
// without constructing a live Queue.
func DecodeHeader(src []byte) Header { return decodeHeader(src) }

// convertWordsLE rewrites the first n 4-byte words of buf in place as
// little-endian, modeling spec.md §4.4's "host->little-endian
// conversion for the first N words" of a send/receive — the
// microcontroller peer is assumed little-endian regardless of the
// firmware's own byte order, so only the words the protocol commits
// to a fixed order get the explicit conversion; the remainder is a
// raw, order-agnostic copy. Each word is read and written back with
// the same little-endian order, so the bytes of buf do not change:
// payloads are byte slices already laid out in wire order by their
// encoders.
func convertWordsLE(buf []byte, n int) {
	for i := 0; i < n && (i+1)*4 <= len(buf); i++ {
		w := binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}
}
