package rpmiclient

import (
	"testing"

	"github.com/rvcore/coresbi/rpmi"
	"github.com/stretchr/testify/require"
)

func newLoopbackChannel(t *testing.T) *rpmi.Channel {
	t.Helper()
	const slotSize = 64
	const slotCount = 16
	tx := make([]byte, slotSize*slotCount)
	rx := make([]byte, slotSize*slotCount)
	txQ, err := rpmi.NewQueue(tx, slotSize, slotCount, rpmi.Doorbell{})
	require.NoError(t, err)
	rxQ, err := rpmi.NewQueue(rx, slotSize, slotCount, rpmi.Doorbell{})
	require.NoError(t, err)
	return &rpmi.Channel{Tx: txQ, Rx: rxQ}
}

// queueReply pushes a response whose payload is status followed by
// respWords onto ch's receive queue, addressed with the first token a
// fresh Channel hands out (NextToken's first call returns 1).
func queueReply(t *testing.T, ch *rpmi.Channel, group uint16, service uint8, status int32, respWords ...uint32) {
	t.Helper()
	words := append([]uint32{uint32(status)}, respWords...)
	require.NoError(t, ch.Rx.Send(rpmi.Transfer{
		Group:   group,
		Service: service,
		Token:   1,
		Payload: encodeWords(words...),
	}, rpmi.SendOptions{}))
}

func TestHSMStartHartRoundTrip(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupHSM, hsmSrvHartStart, 0)
	require.NoError(t, HSM{Channel: ch}.StartHart(3, 0x80000000, 0xcafe))
}

func TestHSMStopHartPropagatesFailureStatus(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupHSM, hsmSrvHartStop, -7) // ErrAlreadyStarted's code
	err := HSM{Channel: ch}.StopHart(3)
	require.Error(t, err)
}

func TestHSMSuspendHartRoundTrip(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupHSM, hsmSrvHartSusp, 0)
	require.NoError(t, HSM{Channel: ch}.SuspendHart(3, 0x80000000, 0x1000, 0))
}

func TestCPPCProbeReturnsOffset(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupCPPC, cppcSrvProbeReg, 0, 0x40)
	offset, err := CPPC{Channel: ch}.Probe(0, 0x20)
	require.NoError(t, err)
	require.Equal(t, uint32(0x40), offset)
}

func TestCPPCReadReturns64BitValue(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupCPPC, cppcSrvReadReg, 0, 0xdeadbeef, 0x00000001)
	v, err := CPPC{Channel: ch}.Read(0, 0x20)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1deadbeef), v)
}

func TestCPPCWriteRoundTrip(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupCPPC, cppcSrvWriteReg, 0)
	require.NoError(t, CPPC{Channel: ch}.Write(0, 0x20, 0x1234567890))
}

func TestSuspendGetAttributesDecodesResumeAddr(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupSystemSuspend, suspSrvGetAttributes, 0, 0x01, 0x80000000, 0x00000000)
	attrs, err := Suspend{Channel: ch}.GetAttributes()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01), attrs.Flags)
	require.Equal(t, uint64(0x80000000), attrs.ResumeAddr)
}

func TestSuspendSystemSuspendRoundTrip(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupSystemSuspend, suspSrvSystemSuspend, 0)
	require.NoError(t, Suspend{Channel: ch}.SystemSuspend(0, 0x80000000, 0))
}

func TestSuspendEnableNotificationRoundTrip(t *testing.T) {
	ch := newLoopbackChannel(t)
	queueReply(t, ch, GroupSystemSuspend, suspSrvEnableNotification, 0)
	require.NoError(t, Suspend{Channel: ch}.EnableNotification())
}
