package main

import (
	"encoding/binary"
	"fmt"

	"github.com/rvcore/coresbi/rpmi"
)

// SlotRecord is one decoded queue slot, ready for table rendering.
type SlotRecord struct {
	Slot         int
	IsHead       bool
	IsTail       bool
	ServiceGroup uint16
	ServiceID    uint8
	Type         rpmi.MessageType
	Token        uint16
	PayloadLen   uint16
}

// typeName renders a MessageType the way a reader debugging a queue
// dump wants to see it, rather than its raw numeric value.
func typeName(t rpmi.MessageType) string {
	switch t {
	case rpmi.MessageNormal:
		return "normal"
	case rpmi.MessagePosted:
		return "posted"
	case rpmi.MessageNotification:
		return "notification"
	case rpmi.MessageAck:
		return "ack"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// Decode parses a raw queue dump (slot 0 holds head as a little-endian
// u32, slot 1 holds tail, slots [2,slotCount) are message records) per
// spec.md §8's queue layout, returning one SlotRecord per message slot
// plus the head/tail values themselves.
func Decode(buf []byte, slotSize, slotCount int) (head, tail int, records []SlotRecord, err error) {
	if slotSize < rpmi.MinSlotSize {
		return 0, 0, nil, fmt.Errorf("rpmidump: slot size %d is below the minimum %d", slotSize, rpmi.MinSlotSize)
	}
	if len(buf) != slotSize*slotCount {
		return 0, 0, nil, fmt.Errorf("rpmidump: dump is %d bytes, expected %d (slot_size * slot_count)", len(buf), slotSize*slotCount)
	}

	head = int(binary.LittleEndian.Uint32(buf[0:4]))
	tail = int(binary.LittleEndian.Uint32(buf[slotSize : slotSize+4]))

	for i := 2; i < slotCount; i++ {
		slot := buf[i*slotSize : (i+1)*slotSize]
		hdr := rpmi.DecodeHeader(slot[:rpmi.HeaderSize])
		records = append(records, SlotRecord{
			Slot:         i,
			IsHead:       i == head,
			IsTail:       i == tail,
			ServiceGroup: hdr.ServiceGroup,
			ServiceID:    hdr.ServiceID,
			Type:         hdr.Type(),
			Token:        hdr.Token,
			PayloadLen:   hdr.PayloadLen,
		})
	}
	return head, tail, records, nil
}
