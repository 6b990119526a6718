package mpxy

import (
	"testing"

	"github.com/rvcore/coresbi/rpmi"
	"github.com/rvcore/coresbi/sbierr"
	"github.com/stretchr/testify/require"
)

func newLoopbackMailbox(t *testing.T, group uint16) *rpmi.Channel {
	t.Helper()
	const slotSize = 64
	const slotCount = 16
	tx := make([]byte, slotSize*slotCount)
	rx := make([]byte, slotSize*slotCount)
	txQ, err := rpmi.NewQueue(tx, slotSize, slotCount, rpmi.Doorbell{})
	require.NoError(t, err)
	rxQ, err := rpmi.NewQueue(rx, slotSize, slotCount, rpmi.Doorbell{})
	require.NoError(t, err)
	return &rpmi.Channel{Tx: txQ, Rx: rxQ, Attrs: rpmi.Attributes{GroupVersion: 1}}
}

func TestRegisterAndFind(t *testing.T) {
	tbl := NewTable()
	ch := &Channel{ID: 1, Group: 0x0A, Services: map[uint8]ServiceBounds{1: {MaxTx: 32, MaxRx: 32}}}
	require.NoError(t, tbl.Register(ch))

	got, ok := tbl.Find(1)
	require.True(t, ok)
	require.Same(t, ch, got)
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(&Channel{ID: 1}))
	err := tbl.Register(&Channel{ID: 1})
	require.ErrorIs(t, err, sbierr.ErrAlreadyAvail)
}

func TestSendMessageRejectsUnknownService(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(&Channel{ID: 1, Services: map[uint8]ServiceBounds{}}))
	_, err := tbl.SendMessage(1, 9, []byte{0x01}, 4, 1)
	require.ErrorIs(t, err, sbierr.ErrNotSupported)
}

func TestSendMessageRejectsOversizeTx(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(&Channel{ID: 1, Services: map[uint8]ServiceBounds{1: {MaxTx: 4, MaxRx: 32}}}))
	_, err := tbl.SendMessage(1, 1, make([]byte, 8), 4, 1)
	require.ErrorIs(t, err, sbierr.ErrInvalidParam)
}

func TestSendMessageHonorsXferGroupHook(t *testing.T) {
	tbl := NewTable()
	hookErr := sbierr.ErrDenied
	ch := &Channel{
		ID:       1,
		Services: map[uint8]ServiceBounds{1: {MaxTx: 32, MaxRx: 32}},
		Hook:     func(uint32, uint8, []byte) error { return hookErr },
	}
	require.NoError(t, tbl.Register(ch))
	_, err := tbl.SendMessage(1, 1, []byte{0x01}, 4, 1)
	require.ErrorIs(t, err, hookErr)
}

func TestSendMessageRoundTripsThroughMailbox(t *testing.T) {
	tbl := NewTable()
	mailbox := newLoopbackMailbox(t, 0x0A)
	ch := &Channel{ID: 1, Group: 0x0A, Services: map[uint8]ServiceBounds{1: {MaxTx: 32, MaxRx: 32}}, Mailbox: mailbox}
	require.NoError(t, tbl.Register(ch))

	require.NoError(t, mailbox.Rx.Send(rpmi.Transfer{Group: 0x0A, Service: 1, Token: 5, Payload: []byte("pong")}, rpmi.SendOptions{}))

	got, err := tbl.SendMessage(1, 1, []byte("ping"), 32, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), got.Payload)
}

func TestProbeReturnsNotFoundForAbsentGroup(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(&Channel{ID: 1, Group: 0x01}))
	_, _, found := Probe(tbl, 0x8000)
	require.False(t, found)
}

func TestProbeFindsRegisteredGroup(t *testing.T) {
	tbl := NewTable()
	mailbox := newLoopbackMailbox(t, 0x0A)
	require.NoError(t, tbl.Register(&Channel{ID: 7, Group: 0x0A, Mailbox: mailbox}))
	id, version, found := Probe(tbl, 0x0A)
	require.True(t, found)
	require.Equal(t, uint32(7), id)
	require.Equal(t, uint32(1), version)
}
