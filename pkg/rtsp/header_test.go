package rtsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderCaseInsensitiveLookup(t *testing.T) {
	h := NewHeader()
	h.Add("Content-Type", "application/sdp")

	assert.Equal(t, "application/sdp", h.Get("content-type"))
	assert.Equal(t, "application/sdp", h.Get("CONTENT-TYPE"))
	assert.True(t, h.Has("Content-Type"))
}

func TestHeaderPreservesOrderAndDuplicates(t *testing.T) {
	h := NewHeader()
	h.Add("Require", "implicit-play")
	h.Add("CSeq", "1")
	h.Add("Require", "setup.playing.notify")

	var names []string
	var values []string
	h.Each(func(name, value string) {
		names = append(names, name)
		values = append(values, value)
	})

	assert.Equal(t, []string{"Require", "CSeq", "Require"}, names)
	assert.Equal(t, []string{"implicit-play", "1", "setup.playing.notify"}, values)
	assert.Equal(t, []string{"implicit-play", "setup.playing.notify"}, h.Values("require"))
}

func TestHeaderSetReplacesAllPriorValues(t *testing.T) {
	h := NewHeader()
	h.Add("Transport", "RTP/AVP;unicast")
	h.Add("Transport", "RTP/AVP/TCP;unicast")
	h.Set("Transport", "RTP/AVP;unicast;client_port=4588-4589")

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "RTP/AVP;unicast;client_port=4588-4589", h.Get("Transport"))
}

func TestHeaderDel(t *testing.T) {
	h := NewHeader()
	h.Add("Session", "abc")
	h.Del("session")
	assert.False(t, h.Has("Session"))
	assert.Equal(t, 0, h.Len())
}

func TestHeaderClone(t *testing.T) {
	h := NewHeader()
	h.Add("CSeq", "1")
	clone := h.Clone()
	clone.Set("CSeq", "2")

	assert.Equal(t, "1", h.Get("CSeq"))
	assert.Equal(t, "2", clone.Get("CSeq"))
}
