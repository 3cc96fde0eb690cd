package rtsp

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// Handler dispatches decoded requests to responses, grounded on the
// teacher's Session.handleRequest switch (pkg/rtsp/session.go),
// generalized to return a *Response instead of writing to the wire
// directly — Connection remains the only writer, preserving the
// single-writer invariant over one TCP socket.
type Handler struct {
	Sessions    *Registry[SessionId, *Session]
	Sources     *Registry[string, *Source]
	BindAddr    string
	TimeoutSecs int
	Log         *slog.Logger
}

func NewHandler(sessions *Registry[SessionId, *Session], sources *Registry[string, *Source], bindAddr string, timeoutSecs int, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Sessions: sessions, Sources: sources, BindAddr: bindAddr, TimeoutSecs: timeoutSecs, Log: log}
}

func (h *Handler) Handle(req *Request, conn *Connection) *Response {
	switch req.Method {
	case MethodOptions:
		return h.handleOptions()
	case MethodDescribe:
		return h.handleDescribe(req)
	case MethodSetup:
		return h.handleSetup(req, conn)
	case MethodPlay:
		return h.handlePlay(req)
	case MethodPause:
		return h.handlePause(req)
	case MethodTeardown:
		return h.handleTeardown(req)
	case MethodGetParam:
		return NewResponse(StatusOK)
	default:
		return NewResponse(StatusNotImplemented)
	}
}

func (h *Handler) handleOptions() *Response {
	resp := NewResponse(StatusOK)
	resp.Header.Set(HeaderPublic, strings.Join([]string{
		MethodOptions, MethodDescribe, MethodSetup, MethodPlay, MethodPause, MethodTeardown, MethodGetParam,
	}, ", "))
	return resp
}

func (h *Handler) handleDescribe(req *Request) *Response {
	source, ok := h.Sources.Get(pathOf(req.URI))
	if !ok {
		return NewResponse(StatusNotFound)
	}
	body := GenerateSDP(source.Info())
	resp := NewResponse(StatusOK)
	resp.Header.Set(HeaderContentType, "application/sdp")
	resp.Header.Set(HeaderContentBase, req.URI+"/")
	resp.Header.Set(HeaderContentLength, strconv.Itoa(len(body)))
	resp.Body = []byte(body)
	return resp
}

func (h *Handler) handleSetup(req *Request, conn *Connection) *Response {
	path := pathOf(req.URI)
	source, ok := h.Sources.Get(path)
	if !ok {
		return NewResponse(StatusNotFound)
	}

	candidates, err := ParseTransportHeader(req.Header.Get(HeaderTransport))
	if err != nil {
		return NewResponse(StatusUnsupportedTransport)
	}
	accepted, err := SelectTransport(candidates, TransportRTPUDP, TransportRTPTCP)
	if err != nil {
		return NewResponse(StatusUnsupportedTransport)
	}

	var sess *Session
	isNewSession := false
	if sid := req.Header.Get(HeaderSession); sid != "" {
		existing, ok := h.Sessions.Get(SessionId(sid))
		if !ok {
			return NewResponse(StatusSessionNotFound)
		}
		sess = existing
		sess.Touch(h.TimeoutSecs)
	} else {
		sess = NewSession(path, source, h.Log, h.TimeoutSecs)
		isNewSession = true
		if !h.Sessions.Insert(sess.ID, sess) {
			return NewResponse(StatusInternalServerError)
		}
	}

	transportValue, err := sess.Setup(accepted, conn.RemoteIP, conn.Handle(), h.BindAddr)
	if err != nil {
		// A failed re-SETUP on an existing session (e.g. while playing)
		// must leave that session in the registry untouched; only a
		// session created for this request should be rolled back.
		if isNewSession {
			h.Sessions.Remove(sess.ID)
		}
		if rerr, ok := err.(*Error); ok {
			switch {
			case rerr.Kind == KindProtocol:
				return NewResponse(StatusMethodNotValidInThisState)
			case rerr.Kind == KindTransport && rerr.Unsupported:
				return NewResponse(StatusUnsupportedTransport)
			case rerr.Kind == KindTransport:
				resp := NewResponse(StatusInternalServerError)
				resp.StatusText = rerr.Msg
				return resp
			}
		}
		return NewResponse(StatusInternalServerError)
	}

	resp := NewResponse(StatusOK)
	resp.Header.Set(HeaderSession, string(sess.ID)+";timeout="+strconv.Itoa(DefaultTimeout))
	resp.Header.Set(HeaderTransport, transportValue)
	return resp
}

func (h *Handler) handlePlay(req *Request) *Response {
	sid := req.Header.Get(HeaderSession)
	sess, ok := h.Sessions.Get(SessionId(sid))
	if !ok {
		return NewResponse(StatusSessionNotFound)
	}
	sess.Touch(h.TimeoutSecs)
	if err := sess.Play(); err != nil {
		return NewResponse(StatusMethodNotValidInThisState)
	}
	resp := NewResponse(StatusOK)
	resp.Header.Set(HeaderSession, sid)
	return resp
}

func (h *Handler) handlePause(req *Request) *Response {
	sid := req.Header.Get(HeaderSession)
	sess, ok := h.Sessions.Get(SessionId(sid))
	if !ok {
		return NewResponse(StatusSessionNotFound)
	}
	sess.Touch(h.TimeoutSecs)
	if err := sess.Pause(); err != nil {
		return NewResponse(StatusMethodNotValidInThisState)
	}
	resp := NewResponse(StatusOK)
	resp.Header.Set(HeaderSession, sid)
	return resp
}

// handleTeardown removes the session from the registry immediately
// rather than deferring cleanup, so a second TEARDOWN on the same id
// correctly reports 454 instead of silently succeeding twice (DESIGN.md).
func (h *Handler) handleTeardown(req *Request) *Response {
	sid := SessionId(req.Header.Get(HeaderSession))
	sess, ok := h.Sessions.Get(sid)
	if !ok {
		return NewResponse(StatusSessionNotFound)
	}
	h.Sessions.Remove(sid)
	sess.Teardown()
	return NewResponse(StatusOK)
}

func pathOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return strings.TrimSuffix(u.Path, "/")
}
