package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pionrtp "github.com/pion/rtp"
	"golang.org/x/time/rate"

	"sol/pkg/rtp"
)

// SessionId unguessably identifies one SETUP..TEARDOWN lifetime,
// carried in the Session header. Grounded on the teacher's
// fmt.Sprintf("%p", session) pointer-address ids (pkg/rtsp/session.go),
// which are not unguessable and in spirit collide across any id scheme
// derived from memory layout — replaced with a crypto/rand-backed
// UUID (122 bits of randomness) per the spec's explicit requirement.
type SessionId string

func newSessionId() SessionId { return SessionId(uuid.NewString()) }

// sessionState is the tagged-variant interface implemented by each
// state; only the fields valid in that state exist on its type, so an
// operation on a mismatched state is a type assertion failure at the
// call site, not a silently-wrong field read (§9 design notes).
type sessionState interface {
	sessionStateTag() string
}

type initState struct{}

func (initState) sessionStateTag() string { return "init" }

// readyState holds everything SETUP negotiated: exactly one of
// udpPair or interleaved is set, matching the accepted transport.
type readyState struct {
	transport      TransportSpec
	udpPair        *rtp.UDPPair
	clientAddr     *net.UDPAddr
	clientRTCPAddr *net.UDPAddr
	interleaved    *Channel
	outbound       Outbound
	videoMuxer     *rtp.Muxer
	audioMuxer     *rtp.Muxer
}

func (readyState) sessionStateTag() string { return "ready" }

type playingState struct {
	readyState
	stopDelivery context.CancelFunc
}

func (playingState) sessionStateTag() string { return "playing" }

type pausedState struct {
	readyState
}

func (pausedState) sessionStateTag() string { return "paused" }

type teardownState struct{}

func (teardownState) sessionStateTag() string { return "teardown" }

// Session is one client's SETUP..TEARDOWN lifetime against one Source.
type Session struct {
	ID   SessionId
	Path string

	source *Source

	mu     atomicState
	ctx    context.Context
	cancel context.CancelFunc

	consecutiveSendErrors atomic.Int32
	warnLimiter           *rate.Limiter

	keepAlive *time.Timer

	log *slog.Logger
}

// atomicState is a channel-backed mutex guarding the current
// sessionState; kept as its own small type so every access site reads
// as "lock, touch state, unlock" rather than a bare sync.Mutex.
type atomicState struct {
	guard chan struct{}
	state sessionState
}

func newAtomicState(initial sessionState) atomicState {
	g := make(chan struct{}, 1)
	g <- struct{}{}
	return atomicState{guard: g, state: initial}
}

func (a *atomicState) lock()   { <-a.guard }
func (a *atomicState) unlock() { a.guard <- struct{}{} }

// NewSession creates a session in initState against source, not yet
// registered with anything. timeoutSecs <= 0 uses DefaultTimeout (§5's
// 60s RTSP session keep-alive).
func NewSession(path string, source *Source, log *slog.Logger, timeoutSecs int) *Session {
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:          newSessionId(),
		Path:        path,
		source:      source,
		mu:          newAtomicState(initState{}),
		ctx:         ctx,
		cancel:      cancel,
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:         log,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.keepAlive = time.AfterFunc(time.Duration(timeoutSecs)*time.Second, s.expire)
	return s
}

// Touch resets the session's keep-alive timer; called whenever a verb
// arrives for this session's id (§5: "any verb from the owning
// connection resets it").
func (s *Session) Touch(timeoutSecs int) {
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultTimeout
	}
	s.keepAlive.Reset(time.Duration(timeoutSecs) * time.Second)
}

// expire fires when the keep-alive timer elapses with no intervening
// Touch, tearing the session down per §5's "Expiry triggers TEARDOWN."
func (s *Session) expire() {
	s.log.Info("session keep-alive expired, tearing down", "session", s.ID)
	s.Teardown()
}

func (s *Session) State() string {
	s.mu.lock()
	defer s.mu.unlock()
	return s.mu.state.sessionStateTag()
}

// Setup negotiates transport for accepted, allocating a UDP socket
// pair or binding an interleaved channel, and transitions
// init -> ready. It is only valid from initState: this server models
// one transport per session (one SETUP per session lifetime), not
// per-track aggregate control.
func (s *Session) Setup(accepted TransportSpec, clientIP string, outbound Outbound, bindAddr string) (string, error) {
	s.mu.lock()
	defer s.mu.unlock()

	if _, ok := s.mu.state.(initState); !ok {
		return "", newError(KindProtocol, "SETUP not valid in current state", nil)
	}

	ssrc := rand.Uint32()
	startSeq := uint16(rand.Intn(1 << 16))

	switch accepted.Lower {
	case TransportRTPTCP:
		channel := Channel{Low: 0, High: 1, Range: true}
		if accepted.Interleaved != nil {
			channel = *accepted.Interleaved
		}
		s.mu.state = readyState{
			transport:   accepted,
			interleaved: &channel,
			outbound:    outbound,
			videoMuxer:  rtp.NewMuxer(ssrc, rtp.PayloadTypeH264, startSeq),
			audioMuxer:  rtp.NewMuxer(ssrc, rtp.PayloadTypeAAC, startSeq),
		}
		return BuildTransportResponse(accepted, nil, &channel, fmt.Sprintf("%08x", ssrc)), nil

	case TransportRTPUDP:
		if accepted.ClientPort == nil {
			return "", errTransportNotSupported()
		}
		pair, err := rtp.AllocateUDPPair(bindAddr, PortAllocationAttempts)
		if err != nil {
			return "", errPortUnavailable(err)
		}
		clientRTPPort, clientRTCPPort := accepted.ClientPort.Paired()
		clientAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", clientIP, clientRTPPort))
		if err != nil {
			pair.Close()
			return "", newError(KindTransport, "bad client address", err)
		}
		clientRTCPAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", clientIP, clientRTCPPort))
		if err != nil {
			pair.Close()
			return "", newError(KindTransport, "bad client address", err)
		}
		s.mu.state = readyState{
			transport:      accepted,
			udpPair:        pair,
			clientAddr:     clientAddr,
			clientRTCPAddr: clientRTCPAddr,
			videoMuxer:     rtp.NewMuxer(ssrc, rtp.PayloadTypeH264, startSeq),
			audioMuxer:     rtp.NewMuxer(ssrc, rtp.PayloadTypeAAC, startSeq),
		}
		go pair.DiscardRTCP()
		serverPort := Port{Low: uint16(pair.RTPPort), High: uint16(pair.RTCPPort), Range: true}
		return BuildTransportResponse(accepted, &serverPort, nil, fmt.Sprintf("%08x", ssrc)), nil

	default:
		return "", errTransportNotSupported()
	}
}

// Play starts (or resumes, from paused) the delivery loop.
func (s *Session) Play() error {
	s.mu.lock()
	defer s.mu.unlock()

	var ready readyState
	switch st := s.mu.state.(type) {
	case readyState:
		ready = st
	case pausedState:
		ready = st.readyState
	default:
		return newError(KindProtocol, "PLAY not valid in current state", nil)
	}

	deliveryCtx, cancel := context.WithCancel(s.ctx)
	s.mu.state = playingState{readyState: ready, stopDelivery: cancel}
	sub := s.source.Subscribe()
	go s.deliveryLoop(deliveryCtx, ready, sub)
	return nil
}

// Pause stops delivery but keeps the negotiated transport, returning
// to a resumable state.
func (s *Session) Pause() error {
	s.mu.lock()
	defer s.mu.unlock()

	playing, ok := s.mu.state.(playingState)
	if !ok {
		return newError(KindProtocol, "PAUSE not valid in current state", nil)
	}
	playing.stopDelivery()
	s.mu.state = pausedState{readyState: playing.readyState}
	return nil
}

// Teardown releases all resources and moves to the terminal state.
// Calling it more than once is safe and a no-op after the first call.
func (s *Session) Teardown() {
	s.mu.lock()
	defer s.mu.unlock()
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	s.keepAlive.Stop()
	switch st := s.mu.state.(type) {
	case playingState:
		st.stopDelivery()
		closeTransport(st.readyState)
	case pausedState:
		closeTransport(st.readyState)
	case readyState:
		closeTransport(st)
	case teardownState:
		return
	}
	s.mu.state = teardownState{}
	s.cancel()
}

func closeTransport(r readyState) {
	if r.udpPair != nil {
		r.udpPair.Close()
	}
}

// Stop implements Stoppable for the session registry's shutdown path.
func (s *Session) Stop() { s.Teardown() }

func (s *Session) deliveryLoop(ctx context.Context, ready readyState, sub *Subscription) {
	defer sub.Unsubscribe()

	srTicker := time.NewTicker(RTCPSenderReportInterval * time.Second)
	defer srTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-srTicker.C:
			s.sendSenderReports(ready)
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			if ev.End {
				s.log.Info("source ended", "session", s.ID, "path", s.Path)
				s.Teardown()
				return
			}
			if ev.Lagged && s.warnLimiter.Allow() {
				s.log.Warn("session falling behind source, packets dropped", "session", s.ID)
			}
			if ev.Packet != nil {
				s.deliverPacket(ready, *ev.Packet)
			}
		}
	}
}

func (s *Session) deliverPacket(ready readyState, pkt MediaPacket) {
	var packets []*pionrtp.Packet
	var err error
	switch pkt.Kind {
	case KindVideo:
		packets, err = ready.videoMuxer.PacketizeH264(pkt.Timestamp, true, pkt.Data)
	case KindAudio:
		packets, err = ready.audioMuxer.Packetize(pkt.Timestamp, true, pkt.Data)
	}
	if err != nil {
		s.recordSendError()
		return
	}
	for _, p := range packets {
		raw, err := p.Marshal()
		if err != nil {
			s.recordSendError()
			continue
		}
		if s.send(ready, raw) {
			s.consecutiveSendErrors.Store(0)
		} else {
			s.recordSendError()
		}
	}
}

func (s *Session) send(ready readyState, raw []byte) bool {
	if ready.udpPair != nil {
		_, err := ready.udpPair.RTPConn.WriteToUDP(raw, ready.clientAddr)
		return err == nil
	}
	if ready.interleaved != nil {
		return ready.outbound.Send(OutboundInterleaved(ready.interleaved.Low, raw))
	}
	return false
}

// sendSenderReports emits an RTCP SR (§4.5) for each track that has
// sent at least one packet, over the session's RTCP destination: the
// companion UDP socket, or the interleaved channel one above the RTP
// channel.
func (s *Session) sendSenderReports(ready readyState) {
	for _, m := range [...]*rtp.Muxer{ready.videoMuxer, ready.audioMuxer} {
		if m == nil || !m.Sent() {
			continue
		}
		raw, err := m.SenderReport().Marshal()
		if err != nil {
			continue
		}
		s.sendRTCP(ready, raw)
	}
}

func (s *Session) sendRTCP(ready readyState, raw []byte) {
	if ready.udpPair != nil {
		ready.udpPair.RTCPConn.WriteToUDP(raw, ready.clientRTCPAddr)
		return
	}
	if ready.interleaved != nil {
		_, rtcpChannel := ready.interleaved.Paired()
		ready.outbound.Send(OutboundInterleaved(rtcpChannel, raw))
	}
}

func (s *Session) recordSendError() {
	n := s.consecutiveSendErrors.Add(1)
	if n < SendErrorBurstThreshold {
		return
	}
	if s.warnLimiter.Allow() {
		s.log.Warn("session hit send error burst, tearing down", "session", s.ID, "errors", n)
	}
	s.Teardown()
}
