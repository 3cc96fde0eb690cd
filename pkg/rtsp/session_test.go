package rtsp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutbound() (Outbound, chan OutboundItem) {
	ch := make(chan OutboundItem, 32)
	return Outbound{ch: ch}, ch
}

func TestSessionSetupTCPInterleavedTransitionsToReady(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	sess := NewSession("/cam", src, nil, 0)
	outbound, _ := newTestOutbound()

	value, err := sess.Setup(TransportSpec{Lower: TransportRTPTCP, Cast: TransportUnicast, Interleaved: &Channel{Low: 0, High: 1, Range: true}}, "127.0.0.1", outbound, "127.0.0.1")
	require.NoError(t, err)
	assert.Contains(t, value, "interleaved=0-1")
	assert.Equal(t, "ready", sess.State())
}

func TestSessionSetupTwiceRejected(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	sess := NewSession("/cam", src, nil, 0)
	outbound, _ := newTestOutbound()
	transport := TransportSpec{Lower: TransportRTPTCP, Interleaved: &Channel{Low: 0, High: 1, Range: true}}

	_, err := sess.Setup(transport, "127.0.0.1", outbound, "127.0.0.1")
	require.NoError(t, err)

	_, err = sess.Setup(transport, "127.0.0.1", outbound, "127.0.0.1")
	assert.True(t, IsKind(err, KindProtocol))
}

func TestSessionPlayBeforeSetupRejected(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	sess := NewSession("/cam", src, nil, 0)

	err := sess.Play()
	assert.True(t, IsKind(err, KindProtocol))
}

func TestSessionPlayPauseTeardownLifecycle(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	sess := NewSession("/cam", src, nil, 0)
	outbound, out := newTestOutbound()

	_, err := sess.Setup(TransportSpec{Lower: TransportRTPTCP, Interleaved: &Channel{Low: 0, High: 1, Range: true}}, "127.0.0.1", outbound, "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, sess.Play())
	assert.Equal(t, "playing", sess.State())

	src.Publish(MediaPacket{Kind: KindAudio, Data: []byte("aac-frame")})

	select {
	case item := <-out:
		require.NotNil(t, item.Interleaved)
		assert.Equal(t, uint8(0), item.Interleaved.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected a delivered interleaved frame")
	}

	require.NoError(t, sess.Pause())
	assert.Equal(t, "paused", sess.State())

	require.NoError(t, sess.Play())
	assert.Equal(t, "playing", sess.State())

	sess.Teardown()
	assert.Equal(t, "teardown", sess.State())

	sess.Teardown() // idempotent
	assert.Equal(t, "teardown", sess.State())
}

func TestSessionSetupUDPAllocatesEvenOddPortPair(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	sess := NewSession("/cam", src, nil, 0)
	outbound, _ := newTestOutbound()

	value, err := sess.Setup(TransportSpec{
		Lower:      TransportRTPUDP,
		Cast:       TransportUnicast,
		ClientPort: &Port{Low: 45000, High: 45001, Range: true},
	}, "127.0.0.1", outbound, "127.0.0.1")
	require.NoError(t, err)
	assert.Contains(t, value, "client_port=45000-45001")
	assert.Contains(t, value, "server_port=")

	_, after, found := strings.Cut(value, "server_port=")
	require.True(t, found)
	serverPort, err := parsePort(strings.SplitN(after, ";", 2)[0])
	require.NoError(t, err)
	assert.Zero(t, serverPort.Low%2, "RTP port must be even")
	assert.Equal(t, serverPort.Low+1, serverPort.High, "RTCP port must be RTP port + 1")

	sess.Teardown()
}
