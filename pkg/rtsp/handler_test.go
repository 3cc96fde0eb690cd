package rtsp

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlerAndConn(t *testing.T) (*Handler, *Connection, func()) {
	t.Helper()
	sessions := NewRegistry[SessionId, *Session]()
	sources := NewRegistry[string, *Source]()
	h := NewHandler(sessions, sources, "127.0.0.1", 0, nil)

	client, server := net.Pipe()
	conn := NewConnection(context.Background(), server, h, 0, 0, nil)
	return h, conn, func() { client.Close(); server.Close() }
}

func TestHandlerOptionsListsMethods(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()

	req := NewRequest(MethodOptions, "*")
	resp := h.Handle(req, conn)
	assert.Equal(t, StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(HeaderPublic), MethodSetup)
}

func TestHandlerDescribeUnknownPath(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()

	req := NewRequest(MethodDescribe, "rtsp://host/nope")
	resp := h.Handle(req, conn)
	assert.Equal(t, StatusNotFound, resp.StatusCode)
}

func TestHandlerDescribeKnownPath(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()
	h.Sources.Insert("/cam", NewSource(StreamInfo{Path: "/cam", HasVideo: true, VideoCodec: "H264"}, 4))

	req := NewRequest(MethodDescribe, "rtsp://host/cam")
	resp := h.Handle(req, conn)
	assert.Equal(t, StatusOK, resp.StatusCode)
	assert.Equal(t, "application/sdp", resp.Header.Get(HeaderContentType))
	assert.Contains(t, string(resp.Body), "m=video")
}

func TestHandlerSetupUDPHappyPath(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()
	h.Sources.Insert("/cam", NewSource(StreamInfo{Path: "/cam"}, 4))

	req := NewRequest(MethodSetup, "rtsp://host/cam")
	req.Header.Set(HeaderTransport, "RTP/AVP;unicast;client_port=4000-4001")
	resp := h.Handle(req, conn)

	require.Equal(t, StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderSession))
	assert.Contains(t, resp.Header.Get(HeaderTransport), "server_port=")
}

func TestHandlerSetupTCPInterleavedHappyPath(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()
	h.Sources.Insert("/cam", NewSource(StreamInfo{Path: "/cam"}, 4))

	req := NewRequest(MethodSetup, "rtsp://host/cam")
	req.Header.Set(HeaderTransport, "RTP/AVP/TCP;unicast;interleaved=0-1")
	resp := h.Handle(req, conn)

	require.Equal(t, StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(HeaderTransport), "interleaved=0-1")
}

func TestHandlerSetupUnsupportedTransport(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()
	h.Sources.Insert("/cam", NewSource(StreamInfo{Path: "/cam"}, 4))

	req := NewRequest(MethodSetup, "rtsp://host/cam")
	req.Header.Set(HeaderTransport, "RTP/AVP/SCTP;unicast")
	resp := h.Handle(req, conn)
	assert.Equal(t, StatusUnsupportedTransport, resp.StatusCode)
}

func TestHandlerPlayBeforeSetupIsSessionNotFound(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()

	req := NewRequest(MethodPlay, "rtsp://host/cam")
	req.Header.Set(HeaderSession, "nonexistent")
	resp := h.Handle(req, conn)
	assert.Equal(t, StatusSessionNotFound, resp.StatusCode)
}

func TestHandlerSetupWhilePlayingIsMethodNotValid(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()
	h.Sources.Insert("/cam", NewSource(StreamInfo{Path: "/cam"}, 4))

	setupReq := NewRequest(MethodSetup, "rtsp://host/cam")
	setupReq.Header.Set(HeaderTransport, "RTP/AVP/TCP;unicast;interleaved=0-1")
	setupResp := h.Handle(setupReq, conn)
	require.Equal(t, StatusOK, setupResp.StatusCode)
	sid := setupResp.Header.Get(HeaderSession)
	if idx := strings.IndexByte(sid, ';'); idx >= 0 {
		sid = sid[:idx]
	}

	playReq := NewRequest(MethodPlay, "rtsp://host/cam")
	playReq.Header.Set(HeaderSession, sid)
	require.Equal(t, StatusOK, h.Handle(playReq, conn).StatusCode)

	secondSetup := NewRequest(MethodSetup, "rtsp://host/cam")
	secondSetup.Header.Set(HeaderTransport, "RTP/AVP/TCP;unicast;interleaved=2-3")
	secondSetup.Header.Set(HeaderSession, sid)
	resp := h.Handle(secondSetup, conn)
	assert.Equal(t, StatusMethodNotValidInThisState, resp.StatusCode, "SETUP against an already-playing session must be rejected, not re-negotiated")
}

func TestHandlerFullSetupPlayTeardownFlow(t *testing.T) {
	h, conn, done := newTestHandlerAndConn(t)
	defer done()
	h.Sources.Insert("/cam", NewSource(StreamInfo{Path: "/cam"}, 4))

	setupReq := NewRequest(MethodSetup, "rtsp://host/cam")
	setupReq.Header.Set(HeaderTransport, "RTP/AVP/TCP;unicast;interleaved=0-1")
	setupResp := h.Handle(setupReq, conn)
	require.Equal(t, StatusOK, setupResp.StatusCode)

	sid := setupResp.Header.Get(HeaderSession)
	require.NotEmpty(t, sid)
	// Session header on SETUP's response carries "<id>;timeout=N"; real
	// clients echo only the id back, trimmed the same way here.
	if idx := strings.IndexByte(sid, ';'); idx >= 0 {
		sid = sid[:idx]
	}

	playReq := NewRequest(MethodPlay, "rtsp://host/cam")
	playReq.Header.Set(HeaderSession, sid)
	playResp := h.Handle(playReq, conn)
	assert.Equal(t, StatusOK, playResp.StatusCode)

	teardownReq := NewRequest(MethodTeardown, "rtsp://host/cam")
	teardownReq.Header.Set(HeaderSession, sid)
	teardownResp := h.Handle(teardownReq, conn)
	assert.Equal(t, StatusOK, teardownResp.StatusCode)

	secondTeardown := h.Handle(teardownReq, conn)
	assert.Equal(t, StatusSessionNotFound, secondTeardown.StatusCode, "a second TEARDOWN on the same session must not silently succeed")
}
