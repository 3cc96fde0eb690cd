package rtsp

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

// ConnectionId uniquely identifies one accepted TCP connection for the
// lifetime of the process. Grounded on the same unguessable-id
// requirement as SessionId (see session.go) — a sequential or
// pointer-derived id is fine here since connection ids are never
// handed to an untrusted peer, but one id scheme (a UUID string) for
// both keeps the registries uniform.
type ConnectionId string

func newConnectionId() ConnectionId { return ConnectionId(uuid.NewString()) }

// outboundBuffer approximates the "unbounded" outbound channel
// oddity-rtsp-server's ResponseSenderTx gives each session (an
// mpsc::unbounded_channel) — Go channels need a fixed capacity, so a
// generously sized buffer stands in; a connection producing more than
// this many queued frames before the writer drains is already in
// trouble for other reasons.
const outboundBuffer = 4096

// Outbound is the capability a Connection hands to sessions instead of
// a back-reference to itself, avoiding the cyclic ownership a
// Session->Connection->Session pointer chain would create. It is a
// channel wrapper, so cloning it by value is cheap and every clone
// feeds the same underlying queue.
type Outbound struct {
	ch chan OutboundItem
}

// Send enqueues item for the connection's writer. It never blocks: a
// full outbound queue means the connection is already being torn down
// or the peer has stopped reading, and the caller (a session's
// delivery loop) should treat a dropped send as a transport error, not
// stall indefinitely for one slow TCP peer.
func (o Outbound) Send(item OutboundItem) bool {
	select {
	case o.ch <- item:
		return true
	default:
		return false
	}
}

// Connection owns one accepted socket: a reader goroutine decoding
// frames (Go can't select on a blocking net.Conn.Read) feeding a
// single dispatch goroutine that selects among {inbound, outbound,
// stop}, mirroring oddity-rtsp-server's net/connection.rs
// Connection::run tokio::select! loop. Requests are handed to a
// Handler which returns a *Response rather than writing directly, so
// the dispatch goroutine remains the connection's only writer.
type Connection struct {
	ID       ConnectionId
	RemoteIP string

	conn     net.Conn
	outbound chan OutboundItem
	handler  *Handler
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	idleTimeout time.Duration
	maxBody     int
}

// NewConnection wraps an accepted socket. idleTimeout <= 0 uses
// ConnectionIdleTimeout; maxBody <= 0 uses DefaultMaxBodyBytes.
func NewConnection(parent context.Context, conn net.Conn, handler *Handler, idleTimeout time.Duration, maxBody int, log *slog.Logger) *Connection {
	ctx, cancel := context.WithCancel(parent)
	if idleTimeout <= 0 {
		idleTimeout = ConnectionIdleTimeout * time.Second
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	return &Connection{
		ID:          newConnectionId(),
		RemoteIP:    host,
		conn:        conn,
		outbound:    make(chan OutboundItem, outboundBuffer),
		handler:     handler,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
		idleTimeout: idleTimeout,
		maxBody:     maxBody,
	}
}

// Handle returns this connection's outbound capability, for sessions
// that deliver media over the TCP interleaved channel.
func (c *Connection) Handle() Outbound { return Outbound{ch: c.outbound} }

// Stop requests the connection's dispatch loop to exit; implements
// Stoppable for the connection registry.
func (c *Connection) Stop() {
	c.cancel()
	c.conn.Close()
}

type inboundFrame struct {
	decoded Decoded
	err     error
}

// Run decodes and dispatches until the connection closes, the context
// is cancelled, or an unrecoverable protocol error occurs. It blocks
// until the connection is done and returns the terminal error, if any.
func (c *Connection) Run() error {
	defer c.Stop()
	inbound := make(chan inboundFrame, 1)
	go c.readLoop(inbound)

	for {
		select {
		case <-c.ctx.Done():
			return errCancelled()

		case frame := <-inbound:
			if frame.err != nil {
				rerr, ok := frame.err.(*Error)
				if ok && (rerr.Kind == KindParse || rerr.Kind == KindProtocol) {
					c.sendError(StatusBadRequest)
					if !rerr.Fatal {
						continue
					}
					// Flush queued writes, ending with that error
					// response, before the connection closes.
					c.conn.SetWriteDeadline(time.Now().Add(c.idleTimeout))
					for len(c.outbound) > 0 {
						if err := Encode(c.conn, <-c.outbound); err != nil {
							break
						}
					}
				}
				return frame.err
			}
			if frame.decoded.Request != nil {
				c.dispatchRequest(frame.decoded.Request)
			}
			// Client->server interleaved frames (e.g. RTCP receiver
			// reports over TCP) are accepted but not routed anywhere
			// yet; see pkg/rtp's UDP RTCP discard path for the parallel
			// decision on the UDP side.

		case item := <-c.outbound:
			c.conn.SetWriteDeadline(time.Now().Add(c.idleTimeout))
			if err := Encode(c.conn, item); err != nil {
				return err
			}
		}
	}
}

func (c *Connection) dispatchRequest(req *Request) {
	resp := c.handler.Handle(req, c)
	resp.SetCSeq(req.CSeq())
	c.enqueueResponse(resp)
}

// sendError enqueues a bare error response for a request the decoder
// could not even parse, so §7's "Parse/Protocol errors ... produce a
// well-formed RTSP error response and do NOT close the connection"
// holds even when no Request was ever recovered to echo a CSeq from.
func (c *Connection) sendError(statusCode int) {
	c.enqueueResponse(NewResponse(statusCode))
}

func (c *Connection) enqueueResponse(resp *Response) {
	resp.Header.Set(HeaderServer, ServerName)
	resp.Header.Set(HeaderDate, time.Now().UTC().Format(dateHeaderLayout))
	select {
	case c.outbound <- OutboundMessage(resp):
	case <-c.ctx.Done():
	}
}

// readLoop decodes frames into inbound until a fatal error or the
// connection is stopped. Non-fatal KindParse errors (see Error.Fatal)
// are forwarded too — Run sends a response for them — but readLoop
// keeps decoding afterward since the stream stays byte-aligned.
func (c *Connection) readLoop(inbound chan<- inboundFrame) {
	dec := NewDecoder(c.conn, AsServer, c.maxBody)
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
		decoded, err := dec.Next()
		select {
		case inbound <- inboundFrame{decoded: decoded, err: err}:
		case <-c.ctx.Done():
			return
		}
		if err == nil {
			continue
		}
		if rerr, ok := err.(*Error); ok && rerr.Kind == KindParse && !rerr.Fatal {
			continue
		}
		return
	}
}
