package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// RTSPConfig configures a Server. Extends the teacher's original
// {Port, Timeout} pair (pkg/rtsp/server.go) with the fields the rest
// of this package now needs.
type RTSPConfig struct {
	Port               int
	BindAddress        string
	MaxBodyBytes       int
	SessionTimeoutSecs int
	BroadcastBuffer    int
}

// Server accepts RTSP connections and owns the connection/session/
// source registries, generalizing the teacher's Server (map fields,
// one event channel) into three Registry instances plus a stateless
// Handler (pkg/rtsp/server.go, pkg/rtsp/stream.go).
type Server struct {
	cfg RTSPConfig

	listener    net.Listener
	connections *Registry[ConnectionId, *Connection]
	sessions    *Registry[SessionId, *Session]
	sources     *Registry[string, *Source]
	handler     *Handler

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func NewServer(cfg RTSPConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BindAddress == "" {
		cfg.BindAddress = "0.0.0.0"
	}
	ctx, cancel := context.WithCancel(context.Background())

	sessions := NewRegistry[SessionId, *Session]()
	sources := NewRegistry[string, *Source]()
	return &Server{
		cfg:         cfg,
		connections: NewRegistry[ConnectionId, *Connection](),
		sessions:    sessions,
		sources:     sources,
		handler:     NewHandler(sessions, sources, cfg.BindAddress, cfg.SessionTimeoutSecs, log),
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}
}

// Start binds the listening socket and begins accepting connections
// in the background. It returns once the listener is bound, mirroring
// the teacher's Start() (which also returns before connections start
// flowing, unlike the caller in cmd/main.go expected — fixed there).
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rtsp: listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.log.Info("RTSP server listening", "addr", addr)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.log.Error("rtsp accept failed", "err", err)
				return
			}
		}

		rc := NewConnection(s.ctx, conn, s.handler, ConnectionIdleTimeout*time.Second, s.cfg.MaxBodyBytes, s.log)
		s.connections.Insert(rc.ID, rc)
		s.log.Info("rtsp connection accepted", "id", rc.ID, "remote", rc.RemoteIP)

		go func() {
			err := rc.Run()
			s.connections.Remove(rc.ID)
			if err != nil {
				s.log.Debug("rtsp connection closed", "id", rc.ID, "err", err)
			}
		}()
	}
}

// Stop cancels every connection and session and waits up to
// ConnectionJoinTimeout for them to finish.
func (s *Server) Stop() {
	s.log.Info("RTSP server stopping")
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	stoppedSessions, abandonedSessions := StopAll(s.sessions)
	s.log.Info("rtsp sessions stopped", "stopped", stoppedSessions, "abandoned", abandonedSessions)

	stoppedConns, abandonedConns := StopAll(s.connections)
	s.log.Info("rtsp connections stopped", "stopped", stoppedConns, "abandoned", abandonedConns)
}

// PublishSource registers (or replaces) the fan-out source for path,
// the entry point the RTMP ingest bridge (internal/sol) uses to make a
// publisher's media available to RTSP players.
func (s *Server) PublishSource(path string, info StreamInfo) *Source {
	buffer := s.cfg.BroadcastBuffer
	src := NewSource(info, buffer)
	s.sources.Remove(path)
	s.sources.Insert(path, src)
	return src
}

// RemoveSource closes and unregisters path's source, signalling End to
// every subscribed session.
func (s *Server) RemoveSource(path string) {
	if src, ok := s.sources.Get(path); ok {
		src.Close()
	}
	s.sources.Remove(path)
}
