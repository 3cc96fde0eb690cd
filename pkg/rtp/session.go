package rtp

import (
	"fmt"
	"net"
	"time"

	pionrtcp "github.com/pion/rtcp"
)

// UDPPair is one session's RTP/RTCP socket pair: consecutive even/odd
// ports per RFC 3550 §11. It replaces RTPTransport (a single UDP
// listener shared across all sessions, keyed by SSRC), which couldn't
// express the per-SETUP server_port pairing the protocol requires.
type UDPPair struct {
	RTPConn  *net.UDPConn
	RTCPConn *net.UDPConn
	RTPPort  int
	RTCPPort int
}

// AllocateUDPPair binds a consecutive even/odd UDP port pair on
// bindAddr, retrying up to attempts times (attempts <= 0 uses 16).
// Each attempt lets the OS pick an ephemeral RTP port; if it lands on
// an odd port, or the matching RTCP port is taken, the attempt is
// discarded and retried.
func AllocateUDPPair(bindAddr string, attempts int) (*UDPPair, error) {
	if attempts <= 0 {
		attempts = 16
	}
	ip := net.ParseIP(bindAddr)
	for i := 0; i < attempts; i++ {
		rtpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: 0})
		if err != nil {
			continue
		}
		rtpPort := rtpConn.LocalAddr().(*net.UDPAddr).Port
		if rtpPort%2 != 0 {
			rtpConn.Close()
			continue
		}
		rtcpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: rtpPort + 1})
		if err != nil {
			rtpConn.Close()
			continue
		}
		return &UDPPair{RTPConn: rtpConn, RTCPConn: rtcpConn, RTPPort: rtpPort, RTCPPort: rtpPort + 1}, nil
	}
	return nil, fmt.Errorf("rtp: no even RTP/RTCP port pair available on %s after %d attempts", bindAddr, attempts)
}

func (p *UDPPair) Close() {
	p.RTPConn.Close()
	p.RTCPConn.Close()
}

// DiscardRTCP reads and drops incoming RTCP packets (receiver reports)
// until the connection closes.
// TODO: wire pionrtcp.Unmarshal here to surface receiver reports once
// a consumer for them exists; until then the socket must still be
// drained so the peer's sends don't back up.
func (p *UDPPair) DiscardRTCP() {
	buf := make([]byte, 1500)
	for {
		if _, _, err := p.RTCPConn.ReadFromUDP(buf); err != nil {
			return
		}
	}
}

const ntpEpochOffset = 2208988800 // seconds between 1900-01-01 and 1970-01-01

func toNTP(t time.Time) uint64 {
	sec := uint64(t.Unix()) + ntpEpochOffset
	frac := (uint64(t.Nanosecond()) << 32) / 1e9
	return sec<<32 | frac
}

// SenderReport builds an RTCP SR for a track that has sent
// packetCount packets totalling octetCount payload bytes by the time
// rtpTimestamp was stamped.
func SenderReport(ssrc uint32, rtpTimestamp, packetCount, octetCount uint32) *pionrtcp.SenderReport {
	return &pionrtcp.SenderReport{
		SSRC:        ssrc,
		NTPTime:     toNTP(time.Now()),
		RTPTime:     rtpTimestamp,
		PacketCount: packetCount,
		OctetCount:  octetCount,
	}
}

// Sent reports whether this muxer has packetized anything yet; a
// session skips emitting an SR for a track with nothing to report.
func (m *Muxer) Sent() bool { return m.packetCount > 0 }

// SenderReport builds this muxer's current RTCP SR (§4.5's periodic
// sender reports) from the packet/octet counters Packetize and
// PacketizeH264 accumulate.
func (m *Muxer) SenderReport() *pionrtcp.SenderReport {
	return SenderReport(m.SSRC, m.lastTimestamp, m.packetCount, m.octetCount)
}
