package rtmp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
)

// Server accepts RTMP publisher connections. It no longer fans
// published media back out to other RTMP players (no GOP cache, no
// per-stream player set): this server's only consumer is the RTSP
// side, reached through Observe/notifyObservers, so there's nothing
// left here to key a streams map on.
type Server struct {
	sessions map[string]*session // sessionId를 키로 사용
	port     int
	channel  chan interface{}
	listener net.Listener       // 리스너 참조 저장
	ctx      context.Context    // 컨텍스트
	cancel   context.CancelFunc // 컨텍스트 취소 함수

	// observers receive every ingest event alongside the server's own
	// handling, letting another transport (RTSP) mirror publish/audio/
	// video events without reaching into session internals.
	observers []chan<- interface{}
}

// Observe registers ch to receive a copy of every event this server
// processes (PublishStarted, AudioData, VideoData, ...). Sends are
// non-blocking: a slow or full observer drops events rather than
// stalling ingest.
func (s *Server) Observe(ch chan<- interface{}) {
	s.observers = append(s.observers, ch)
}

func (s *Server) notifyObservers(event interface{}) {
	for _, ch := range s.observers {
		select {
		case ch <- event:
		default:
		}
	}
}

func NewServer(port int) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		sessions: make(map[string]*session), // sessionId를 키로 사용
		port:     port,
		channel:  make(chan interface{}, 100),
		ctx:      ctx,
		cancel:   cancel,
	}
	return server
}

func (s *Server) Start() error {
	ln, err := s.createListener()
	if err != nil {
		return err
	}
	s.listener = ln // 리스너 참조 저장

	// 이벤트 루프 시작
	go s.eventLoop()

	// 연결 수락 시작
	go s.acceptConnections(ln)

	return nil
}

func (s *Server) Stop() {
	slog.Info("Server stopping...")

	// 1. 컨텍스트 취소 (모든 고루틴에 종료 신호)
	s.cancel()

	// 2. 새로운 연결 차단 (리스너 종료)
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			slog.Error("Error closing listener", "err", err)
		} else {
			slog.Info("Listener closed")
		}
	}

	// 3. 모든 세션 종료
	slog.Info("Closing all sessions", "sessionCount", len(s.sessions))
	for sessionId, session := range s.sessions {
		if session.conn != nil {
			if err := session.conn.Close(); err != nil {
				slog.Error("Error closing session connection", "sessionId", sessionId, "err", err)
			}
		}
	}

	// 4. 맵 청소
	s.sessions = make(map[string]*session)

	// 5. 이벤트 채널 청소 (남은 이벤트 처리)
	for {
		select {
		case <-s.channel:
			// 남은 이벤트 버리기
		default:
			// 채널이 비었으면 종료
			goto cleanup_done
		}
	}

cleanup_done:
	close(s.channel)
	slog.Info("Server stopped successfully")
}

func (s *Server) eventLoop() {
	for {
		select {
		case data := <-s.channel:
			s.channelHandler(data)
		case <-s.ctx.Done():
			slog.Info("Event loop stopping...")
			return
		}
	}
}

// channelHandler mirrors every event to observers and logs it;
// dispatch onto a stream (publish/play fan-out) no longer happens
// here since the RTSP bridge is the only consumer of published media.
func (s *Server) channelHandler(data interface{}) {
	s.notifyObservers(data)
	switch v := data.(type) {
	case Terminated:
		s.TerminatedEventHandler(v.Id)
	case PublishStarted:
		slog.Info("Publish started", "sessionId", v.SessionId, "streamName", v.StreamName, "streamId", v.StreamId)
	case PublishStopped:
		slog.Info("Publish stopped", "sessionId", v.SessionId, "streamName", v.StreamName, "streamId", v.StreamId)
	case PlayStarted:
		slog.Info("Play started", "sessionId", v.SessionId, "streamName", v.StreamName, "streamId", v.StreamId)
	case PlayStopped:
		slog.Info("Play stopped", "sessionId", v.SessionId, "streamName", v.StreamName, "streamId", v.StreamId)
	case AudioData:
		slog.Debug("Audio data received", "sessionId", v.SessionId, "streamName", v.StreamName, "timestamp", v.Timestamp, "dataSize", len(v.Data))
	case VideoData:
		slog.Debug("Video data received", "sessionId", v.SessionId, "streamName", v.StreamName, "timestamp", v.Timestamp, "frameType", v.FrameType, "dataSize", len(v.Data))
	case MetaData:
		slog.Info("Metadata received", "sessionId", v.SessionId, "streamName", v.StreamName, "metadata", v.Metadata)
	default:
		slog.Warn("Unknown event type", "eventType", fmt.Sprintf("%T", v))
	}
}

func (s *Server) TerminatedEventHandler(id string) {
	// 세션을 직접 찾기 (O(1))
	_, exists := s.sessions[id]
	if !exists {
		slog.Warn("Session not found for termination", "sessionId", id)
		return
	}

	// 세션 맵에서 제거
	delete(s.sessions, id)
	slog.Info("Session terminated", "sessionId", id)
}

func (s *Server) createListener() (net.Listener, error) {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Info("Error starting RTMP server", "err", err)
		return nil, err
	}

	return ln, nil
}

func (s *Server) acceptConnections(ln net.Listener) {
	defer closeWithLog(ln)
	for {
		// 컨텍스트 취소 확인
		select {
		case <-s.ctx.Done():
			slog.Info("Accept loop stopping...")
			return
		default:
			// 비블로킹 방식으로 계속 진행
		}

		conn, err := ln.Accept()
		if err != nil {
			// 리스너가 닫혔을 때 정상 종료
			select {
			case <-s.ctx.Done():
				slog.Info("Accept loop stopped (listener closed)")
				return
			default:
				slog.Error("Accept failed", "err", err)
				return
			}
		}

		// 세션 생성 시 서버의 이벤트 채널을 전달
		session := s.newSessionWithChannel(conn)

		// sessionId를 키로 사용해서 세션 저장
		s.sessions[session.sessionId] = session
	}
}

// 채널을 연결한 세션 생성
func (s *Server) newSessionWithChannel(conn net.Conn) *session {
	session := &session{
		reader:          newMessageReader(),
		writer:          newMessageWriter(),
		conn:            conn,
		externalChannel: s.channel, // 서버의 이벤트 채널 연결
		messageChannel:  make(chan *Message, 10),
	}

	// 포인터 주소값을 sessionId로 사용
	session.sessionId = fmt.Sprintf("%p", session)

	go session.handleRead()
	go session.handleEvent()

	return session
}

func closeWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Error("Error closing resource", "err", err)
	}
}
