package rtsp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceLateSubscriberReplaysInit(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 8)
	src.SetInit([]MediaPacket{{Kind: KindVideo, Data: []byte("sps")}, {Kind: KindVideo, Data: []byte("pps")}})

	sub := src.Subscribe()
	defer sub.Unsubscribe()

	ev1 := <-sub.Events
	ev2 := <-sub.Events
	require.NotNil(t, ev1.Packet)
	require.NotNil(t, ev2.Packet)
	assert.Equal(t, "sps", string(ev1.Packet.Data))
	assert.Equal(t, "pps", string(ev2.Packet.Data))
}

func TestSourcePublishFanOut(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 8)
	sub1 := src.Subscribe()
	sub2 := src.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	src.Publish(MediaPacket{Kind: KindVideo, Data: []byte("frame")})

	ev1 := <-sub1.Events
	ev2 := <-sub2.Events
	assert.Equal(t, "frame", string(ev1.Packet.Data))
	assert.Equal(t, "frame", string(ev2.Packet.Data))
}

func TestSourceDropsOldestOnOverflowAndSignalsLag(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 2)
	sub := src.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		src.Publish(MediaPacket{Kind: KindVideo, Timestamp: uint32(i)})
	}

	var lastSeen uint32
	var sawLag bool
	draining := true
	for draining {
		select {
		case ev := <-sub.Events:
			if ev.Packet != nil {
				lastSeen = ev.Packet.Timestamp
			}
			if ev.Lagged {
				sawLag = true
			}
		case <-time.After(50 * time.Millisecond):
			draining = false
		}
	}
	assert.True(t, sawLag, "overflowing the bounded queue should mark a delivered event Lagged")
	assert.Equal(t, uint32(4), lastSeen, "the newest packet must survive the drop, not be discarded itself")
}

func TestSourceCloseSignalsEndAndClosesChannel(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	sub := src.Subscribe()

	src.Close()

	ev, ok := <-sub.Events
	require.True(t, ok)
	assert.True(t, ev.End)

	_, ok = <-sub.Events
	assert.False(t, ok, "channel should be closed after End")
}

func TestSourceSubscribeAfterCloseGetsImmediateEnd(t *testing.T) {
	src := NewSource(StreamInfo{Path: "/cam"}, 4)
	src.Close()

	sub := src.Subscribe()
	ev, ok := <-sub.Events
	require.True(t, ok)
	assert.True(t, ev.End)
}
