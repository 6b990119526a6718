// Package mpxy implements the message-proxy multiplexer of spec.md
// §4.4's "MPXY layer": a table of in-firmware channels, each bound to
// an RPMI service group and a table of allowed services, exposing
// send_message/read-attributes RPCs to S-mode without exposing the
// raw mailbox queues.
//
// Grounded on lib/sbi/sbi_mpxy.c's mpxy_channel_list/
// sbi_mpxy_register_channel/sbi_mpxy_send_message in original_source.
package mpxy

import (
	"github.com/rvcore/coresbi/rlock"
	"github.com/rvcore/coresbi/rpmi"
	"github.com/rvcore/coresbi/sbierr"
)

// ServiceBounds are the per-service size limits a channel enforces on
// send_message (spec.md §4.4: "min_tx, max_tx, min_rx, max_rx").
type ServiceBounds struct {
	MinTx, MaxTx uint32
	MinRx, MaxRx uint32
}

// XferGroupHook lets a service group enforce additional policy before
// a transfer reaches the mailbox (spec.md §4.4's example: "the
// system-MSI group to enforce denied-MSI indices"). Returning an
// error aborts send_message before it touches the channel.
type XferGroupHook func(channelID uint32, serviceID uint8, tx []byte) error

// Channel is one S-mode-visible MPXY channel: an id, the RPMI channel
// it multiplexes onto, the table of services it allows, its cached
// attributes, and an optional group-specific hook.
type Channel struct {
	ID       uint32
	Group    uint16
	Services map[uint8]ServiceBounds
	Hook     XferGroupHook
	Mailbox  *rpmi.Channel
}

// Table is the process-wide (cold-boot-built, read-only-thereafter)
// channel registry, mirroring sbi_mpxy's singly-linked channel list.
type Table struct {
	mu       rlock.Spinlock
	channels map[uint32]*Channel
	order    []uint32
}

// NewTable returns an empty channel table.
func NewTable() *Table {
	return &Table{channels: map[uint32]*Channel{}}
}

// Register installs ch. Duplicate channel ids are a cold-boot
// configuration bug, matching the cold-boot-only registration
// discipline the other tables (domain, ipi) already enforce.
func (t *Table) Register(ch *Channel) error {
	t.mu.Acquire()
	defer t.mu.Release()
	if _, exists := t.channels[ch.ID]; exists {
		return sbierr.ErrAlreadyAvail
	}
	t.channels[ch.ID] = ch
	t.order = append(t.order, ch.ID)
	return nil
}

// Find looks up a channel by id.
func (t *Table) Find(id uint32) (*Channel, bool) {
	t.mu.Acquire()
	defer t.mu.Release()
	ch, ok := t.channels[id]
	return ch, ok
}

// ChannelIDs returns every registered channel id in registration
// order, for the get_channel_ids RPC.
func (t *Table) ChannelIDs() []uint32 {
	t.mu.Acquire()
	defer t.mu.Release()
	out := make([]uint32, len(t.order))
	copy(out, t.order)
	return out
}

// SendMessage implements send_message(channel, id, tx, rx): validates
// the service id against the channel's table, validates tx/rx sizes
// against the per-service bounds, runs the group's XferGroupHook if
// present and, unless it returned an error, submits the transfer to
// the channel's mailbox. Only the mailbox's own Send checks tx against
// the slot size (rpmi.ErrPayloadTooLarge); rxCap is not checked against
// the channel's capacity.
func (t *Table) SendMessage(channelID uint32, serviceID uint8, tx []byte, rxCap uint32, token uint16) (rpmi.Transfer, error) {
	ch, ok := t.Find(channelID)
	if !ok {
		return rpmi.Transfer{}, sbierr.ErrNotFound
	}

	bounds, ok := ch.Services[serviceID]
	if !ok {
		return rpmi.Transfer{}, sbierr.ErrNotSupported
	}
	if uint32(len(tx)) < bounds.MinTx || uint32(len(tx)) > bounds.MaxTx {
		return rpmi.Transfer{}, sbierr.ErrInvalidParam
	}
	if rxCap < bounds.MinRx || rxCap > bounds.MaxRx {
		return rpmi.Transfer{}, sbierr.ErrInvalidParam
	}

	if ch.Hook != nil {
		if err := ch.Hook(channelID, serviceID, tx); err != nil {
			return rpmi.Transfer{}, err
		}
	}

	if ch.Mailbox == nil {
		return rpmi.Transfer{}, sbierr.ErrNoDevice
	}
	if err := ch.Mailbox.Send(rpmi.Transfer{
		Group:   ch.Group,
		Service: serviceID,
		Type:    rpmi.MessageNormal,
		Token:   token,
		Payload: tx,
	}, rpmi.SendOptions{}); err != nil {
		return rpmi.Transfer{}, err
	}

	return ch.Mailbox.ReceiveTokened(token, rpmi.RecvOptions{})
}

// ReadAttributes returns ch's cached attributes, the set spec.md §4.4
// names as "read back from the mailbox controller at channel request
// time": max data length, TX/RX timeouts, protocol version,
// service-group version, implementation id/version.
func (t *Table) ReadAttributes(channelID uint32) (rpmi.Attributes, error) {
	ch, ok := t.Find(channelID)
	if !ok {
		return rpmi.Attributes{}, sbierr.ErrNotFound
	}
	if ch.Mailbox == nil {
		return rpmi.Attributes{}, sbierr.ErrNoDevice
	}
	return ch.Mailbox.Attrs, nil
}

// Probe implements spec.md §8's boundary scenario 4 ("RPMI probe of
// absent group"): a channel request for a service group with no
// registered provider returns (0, 0) rather than constructing a
// channel, so the caller can report NOT_SUPPORTED without a partial
// registration.
func Probe(t *Table, group uint16) (channelID uint32, version uint32, found bool) {
	t.mu.Acquire()
	defer t.mu.Release()
	for _, id := range t.order {
		ch := t.channels[id]
		if ch.Group == group {
			ver := uint32(0)
			if ch.Mailbox != nil {
				ver = ch.Mailbox.Attrs.GroupVersion
			}
			return ch.ID, ver, true
		}
	}
	return 0, 0, false
}
