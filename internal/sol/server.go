package sol

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sol/pkg/rtmp"
	"sol/pkg/rtsp"
)

type Server struct {
	rtmp   *rtmp.Server
	rtsp   *rtsp.Server
	bridge *ingestBridge
	ctx    context.Context    // 루트 컨텍스트
	cancel context.CancelFunc // 컨텍스트 취소 함수
	config *Config            // 설정
}

func NewServer() *Server {
	// 설정 로드 (로거 초기화 전에 먼저)
	config, err := LoadConfig()
	if err != nil {
		// 설정 로드 실패 시 기본 로거로 에러 출력
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	// 설정을 기반으로 로거 초기화
	InitLogger(config)

	// 취소 가능한 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())

	rtmpServer := rtmp.NewServer(config.RTMP.Port)
	rtspServer := rtsp.NewServer(rtsp.RTSPConfig{
		Port:               config.RTSP.Port,
		BindAddress:        config.RTSP.BindAddress,
		MaxBodyBytes:       config.RTSP.MaxBodyBytes,
		SessionTimeoutSecs: config.RTSP.SessionTimeoutSecs,
		BroadcastBuffer:    config.RTSP.BroadcastBuffer,
	}, slog.Default())

	sol := &Server{
		rtmp:   rtmpServer,
		rtsp:   rtspServer,
		bridge: newIngestBridge(rtmpServer, rtspServer, slog.Default()),
		ctx:    ctx,
		cancel: cancel,
		config: config,
	}
	return sol
}

// Start launches the RTMP ingest listener, the RTSP serving listener,
// and the bridge relaying one into the other, returning once both
// listeners are bound.
func (s *Server) Start() error {
	slog.Info("RTMP Server starting...")
	if err := s.rtmp.Start(); err != nil {
		return fmt.Errorf("rtmp: %w", err)
	}
	slog.Info("RTMP Server started", "port", s.config.RTMP.Port)

	if err := s.rtsp.Start(); err != nil {
		return fmt.Errorf("rtsp: %w", err)
	}
	slog.Info("RTSP Server started", "port", s.config.RTSP.Port)

	go s.bridge.run()

	return nil
}

// Stop performs an orderly shutdown of both transports and the bridge.
func (s *Server) Stop() {
	slog.Info("Stopping Sol Server...")

	// 1. 컨텍스트 취소 (모든 고루틴에 종료 신호)
	s.cancel()

	// 2. RTMP, RTSP 서버 종료
	s.rtmp.Stop()
	s.rtsp.Stop()

	// 3. 브릿지 이벤트 채널 종료
	close(s.bridge.events)
	slog.Info("Sol Server stopped successfully")
}
