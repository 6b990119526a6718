package rpmi

import "github.com/rvcore/coresbi/rlock"

// Channel is spec.md §3's "Mailbox channel": a protocol-versioned view
// onto a request/acknowledgment queue pair (and, optionally, the
// reverse notification pair), with a doorbell, a per-channel spinlock,
// a next-sequence counter, and cached attributes.
type Channel struct {
	Tx, Rx   *Queue
	NotifyTx *Queue // platform-initiated notifications; may be nil
	Attrs    Attributes

	mu      rlock.Spinlock
	nextSeq uint16

	pendingMu     rlock.Spinlock
	pendingTokens map[uint16]int
}

// Attributes are the channel properties spec.md §4.4 says are "read
// back from the mailbox controller at channel request time": max data
// length, TX/RX timeouts, protocol version, service-group version, and
// implementation id/version.
type Attributes struct {
	MaxDataLen      uint32
	TxTimeoutMillis uint32
	RxTimeoutMillis uint32
	ProtocolVersion uint32
	GroupVersion    uint32
	ImplID          uint32
	ImplVersion     uint32
}

// NextToken hands out the channel's next sequence number, used as a
// message token when the caller wants a tokened reply match.
func (c *Channel) NextToken() uint16 {
	c.mu.Acquire()
	defer c.mu.Release()
	c.nextSeq++
	return c.nextSeq
}

func (c *Channel) markPending(token uint16) {
	c.pendingMu.Acquire()
	defer c.pendingMu.Release()
	if c.pendingTokens == nil {
		c.pendingTokens = map[uint16]int{}
	}
	c.pendingTokens[token]++
}

func (c *Channel) unmarkPending(token uint16) {
	c.pendingMu.Acquire()
	defer c.pendingMu.Release()
	c.pendingTokens[token]--
	if c.pendingTokens[token] <= 0 {
		delete(c.pendingTokens, token)
	}
}

func (c *Channel) isPending(token uint16) bool {
	c.pendingMu.Acquire()
	defer c.pendingMu.Release()
	return c.pendingTokens[token] > 0
}

// Send posts xfer on the request queue (smq_tx).
func (c *Channel) Send(xfer Transfer, opts SendOptions) error {
	return c.Tx.Send(xfer, opts)
}

// ReceiveTokened waits for the reply whose token equals token
// (smq_rx with a token match). It registers token as pending for the
// duration of the wait so a concurrent tokenless receive that would
// otherwise have matched the same slot backs off with
// ErrAmbiguousMatch instead (SPEC_FULL.md §E).
func (c *Channel) ReceiveTokened(token uint16, opts RecvOptions) (Transfer, error) {
	c.markPending(token)
	defer c.unmarkPending(token)

	return c.Rx.receive(func(h Header) (matched, ambiguous bool) {
		return h.Token == token, false
	}, opts)
}

// ReceiveByID waits for a reply identified by (servicegroup, service,
// type) rather than token (smq_rx with tokens suppressed). If the
// first matching slot's token is one a concurrent ReceiveTokened call
// is specifically waiting on, this call loses the race and returns
// ErrAmbiguousMatch without consuming the slot, leaving it for the
// tokened waiter.
func (c *Channel) ReceiveByID(group uint16, service uint8, msgType MessageType, opts RecvOptions) (Transfer, error) {
	return c.Rx.receive(func(h Header) (matched, ambiguous bool) {
		if h.ServiceGroup != group || h.ServiceID != service || h.Type() != msgType {
			return false, false
		}
		if c.isPending(h.Token) {
			return false, true
		}
		return true, false
	}, opts)
}
