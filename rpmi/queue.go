package rpmi

import (
	"encoding/binary"

	"github.com/rvcore/coresbi/rlock"
)

// Doorbell models spec.md §6's "writeable MMIO word (set-mask ∪
// preserve-mask, optionally 8/16/32/64-bit wide)": ringing it reads
// the current register value, keeps the bits under PreserveMask, ORs
// in SetMask, and writes the result back.
type Doorbell struct {
	Read         func() uint64
	Write        func(uint64)
	SetMask      uint64
	PreserveMask uint64
}

func (d Doorbell) ring() {
	if d.Write == nil {
		return
	}
	var cur uint64
	if d.Read != nil {
		cur = d.Read()
	}
	d.Write((cur & d.PreserveMask) | d.SetMask)
}

// Transfer is one message record, decoupled from its wire encoding.
type Transfer struct {
	Group   uint16
	Service uint8
	Type    MessageType
	Token   uint16
	Payload []byte
}

// Queue is one direction of a mailbox channel's shared-memory ring:
// slot 0 holds the head index, slot 1 the tail index (both LE32), and
// slots [2, N) are message records. Per spec.md §8's invariant, head
// and tail are themselves stored as slot indices in [2, N) — not as
// positions relative to the message region — so the queue is empty
// iff head == tail and full iff advancing tail by one slot would
// reach head.
type Queue struct {
	buf      []byte
	slotSize int
	n        int // total slot count, including the two reserved slots
	mu       rlock.Spinlock
	doorbell Doorbell
}

// NewQueue wraps buf (exactly slotSize*slotCount bytes, slotCount a
// power of two counting the two reserved head/tail slots) as a
// shared-memory ring, with head and tail initialized to slot 2 (an
// empty queue). db is optional (zero value rings nothing).
func NewQueue(buf []byte, slotSize, slotCount int, db Doorbell) (*Queue, error) {
	if slotSize < MinSlotSize {
		return nil, ErrPayloadTooLarge
	}
	if slotCount < 4 || slotCount&(slotCount-1) != 0 {
		return nil, ErrFull
	}
	if len(buf) != slotSize*slotCount {
		return nil, ErrFull
	}
	q := &Queue{buf: buf, slotSize: slotSize, n: slotCount, doorbell: db}
	q.setHead(2)
	q.setTail(2)
	return q, nil
}

func (q *Queue) head() int { return int(binary.LittleEndian.Uint32(q.buf[0:4])) }
func (q *Queue) setHead(v int) {
	binary.LittleEndian.PutUint32(q.buf[0:4], uint32(v))
}
func (q *Queue) tail() int { return int(binary.LittleEndian.Uint32(q.buf[q.slotSize : q.slotSize+4])) }
func (q *Queue) setTail(v int) {
	binary.LittleEndian.PutUint32(q.buf[q.slotSize:q.slotSize+4], uint32(v))
}

// next advances a physical slot index, wrapping within the message
// region [2, n).
func (q *Queue) next(idx int) int {
	return 2 + (idx-2+1)%(q.n-2)
}

func (q *Queue) physSlot(idx int) []byte {
	start := idx * q.slotSize
	return q.buf[start : start+q.slotSize]
}

// SendOptions controls a Send call's retry budget.
type SendOptions struct {
	// EndianWords is the count of leading 4-byte payload words given
	// the explicit little-endian conversion (spec.md §4.4).
	EndianWords int
	Retries     int
	Sleep       func()
}

// Send implements smq_tx: spin-lock the queue, reject if full after
// exhausting the retry budget, compose the header, copy the payload
// (little-endian conversion on its first EndianWords words, raw copy
// after), fence, advance the tail, and ring the doorbell.
func (q *Queue) Send(xfer Transfer, opts SendOptions) error {
	if HeaderSize+len(xfer.Payload) > q.slotSize {
		return ErrPayloadTooLarge
	}

	q.mu.Acquire()
	defer q.mu.Release()

	for attempt := 0; ; attempt++ {
		if q.next(q.tail()) != q.head() {
			break
		}
		if attempt >= opts.Retries {
			return ErrTimeout
		}
		if opts.Sleep != nil {
			opts.Sleep()
		}
	}

	t := q.tail()
	slot := q.physSlot(t)
	hdr := Header{
		ServiceGroup: xfer.Group,
		ServiceID:    xfer.Service,
		Flags:        uint8(xfer.Type) & messageTypeMask,
		PayloadLen:   uint16(len(xfer.Payload)),
		Token:        xfer.Token,
	}
	encodeHeader(slot[:HeaderSize], hdr)
	n := copy(slot[HeaderSize:], xfer.Payload)
	convertWordsLE(slot[HeaderSize:HeaderSize+n], opts.EndianWords)

	rlock.ReleaseFence()
	q.setTail(q.next(t))
	q.doorbell.ring()
	return nil
}

// RecvOptions controls a Receive call's retry budget and wire
// decoding.
type RecvOptions struct {
	EndianWords int
	Retries     int
	Sleep       func()
}

// matcher decides, for a candidate header at a scanned position,
// whether it matches (consume it) or is ambiguous (abort the whole
// receive with ErrAmbiguousMatch without consuming anything).
type matcher func(Header) (matched, ambiguous bool)

// receive implements smq_rx: spin-lock the queue, walk from head to
// tail searching for a matching slot; if found at a position other
// than head, swap it with the head slot first, then pop it. The record
// that was at head takes the matched slot's position, so it stays
// ahead of the later records but behind any records that were between
// it and the match. Retries
// (with Sleep between attempts) while the queue is empty or no slot
// matches yet.
func (q *Queue) receive(match matcher, opts RecvOptions) (Transfer, error) {
	q.mu.Acquire()
	defer q.mu.Release()

	for attempt := 0; ; attempt++ {
		t := q.tail()
		for p := q.head(); p != t; p = q.next(p) {
			slot := q.physSlot(p)
			hdr := decodeHeader(slot[:HeaderSize])
			matched, ambiguous := match(hdr)
			if ambiguous {
				return Transfer{}, ErrAmbiguousMatch
			}
			if !matched {
				continue
			}

			h := q.head()
			if p != h {
				headSlot := q.physSlot(h)
				tmp := make([]byte, q.slotSize)
				copy(tmp, headSlot)
				copy(headSlot, slot)
				copy(slot, tmp)
			}
			out := q.physSlot(h)
			outHdr := decodeHeader(out[:HeaderSize])
			payload := make([]byte, outHdr.PayloadLen)
			copy(payload, out[HeaderSize:HeaderSize+int(outHdr.PayloadLen)])
			convertWordsLE(payload, opts.EndianWords)

			q.setHead(q.next(h))
			rlock.AcquireFence()
			return Transfer{
				Group:   outHdr.ServiceGroup,
				Service: outHdr.ServiceID,
				Type:    outHdr.Type(),
				Token:   outHdr.Token,
				Payload: payload,
			}, nil
		}
		if attempt >= opts.Retries {
			return Transfer{}, ErrTimeout
		}
		if opts.Sleep != nil {
			opts.Sleep()
		}
	}
}
