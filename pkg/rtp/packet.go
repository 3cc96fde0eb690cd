// Package rtp packetizes media access units for RTSP delivery: RTP
// framing and H.264 FU-A fragmentation over github.com/pion/rtp, RTCP
// sender reports over github.com/pion/rtcp, and UDP socket-pair
// allocation for SETUP. It replaces the teacher's hand-rolled
// RTPHeader/RTPPacket bit-twiddling marshal/unmarshal with the pion
// wire types, keeping only the sequence-number/SSRC bookkeeping that
// survives as Muxer's per-session state.
package rtp

import (
	"fmt"

	pionrtp "github.com/pion/rtp"
)

// Common dynamic payload types (RFC 3551 leaves 96-127 unassigned).
const (
	PayloadTypeH264 = 96
	PayloadTypeAAC  = 97
)

// MaxRTPPayloadSize bounds a single RTP packet's payload so the
// datagram stays well under typical path MTU; larger H.264 NAL units
// are fragmented with FU-A (RFC 6184 §5.8).
const MaxRTPPayloadSize = 1400

// Muxer packetizes one media track's access units into RTP packets,
// owning the sequence-number counter and SSRC for that track. This is
// the bookkeeping the teacher's RTPSession (pkg/rtp/session.go) kept
// per stream, folded here since the marshal/unmarshal it wrapped is
// now github.com/pion/rtp's job.
type Muxer struct {
	SSRC        uint32
	PayloadType uint8
	seq         uint16

	packetCount   uint32
	octetCount    uint32
	lastTimestamp uint32
}

// NewMuxer creates a muxer with a fresh sequence counter starting at
// startSeq (callers typically randomize this per RFC 3550 §5.1).
func NewMuxer(ssrc uint32, payloadType uint8, startSeq uint16) *Muxer {
	return &Muxer{SSRC: ssrc, PayloadType: payloadType, seq: startSeq}
}

func (m *Muxer) nextSeq() uint16 {
	s := m.seq
	m.seq++
	return s
}

func (m *Muxer) packet(timestamp uint32, marker bool, payload []byte) *pionrtp.Packet {
	m.packetCount++
	m.octetCount += uint32(len(payload))
	m.lastTimestamp = timestamp
	return &pionrtp.Packet{
		Header: pionrtp.Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    m.PayloadType,
			SequenceNumber: m.nextSeq(),
			Timestamp:      timestamp,
			SSRC:           m.SSRC,
		},
		Payload: payload,
	}
}

// Packetize turns one access unit into a single RTP packet. For
// H.264, call PacketizeH264 instead so oversized NALs fragment
// correctly; this entry point is for already-small payloads (e.g. AAC
// frames under the MTU).
func (m *Muxer) Packetize(timestamp uint32, marker bool, payload []byte) ([]*pionrtp.Packet, error) {
	if len(payload) > MaxRTPPayloadSize {
		return nil, fmt.Errorf("rtp: payload of %d bytes exceeds %d without fragmentation support for this codec", len(payload), MaxRTPPayloadSize)
	}
	return []*pionrtp.Packet{m.packet(timestamp, marker, payload)}, nil
}

// PacketizeH264 packetizes one H.264 NAL unit (Annex B start code
// already stripped), fragmenting with FU-A when it exceeds
// MaxRTPPayloadSize (RFC 6184 §5.8). marker should be true on the NAL
// that ends an access unit.
func (m *Muxer) PacketizeH264(timestamp uint32, marker bool, nal []byte) ([]*pionrtp.Packet, error) {
	if len(nal) == 0 {
		return nil, fmt.Errorf("rtp: empty NAL unit")
	}
	if len(nal) <= MaxRTPPayloadSize {
		return []*pionrtp.Packet{m.packet(timestamp, marker, nal)}, nil
	}

	nalHeader := nal[0]
	nri := nalHeader & 0x60
	nalType := nalHeader & 0x1F
	fuIndicator := nri | 28 // FU-A indicator, type 28

	body := nal[1:]
	const chunkSize = MaxRTPPayloadSize - 2 // fu_indicator + fu_header
	var packets []*pionrtp.Packet
	for offset := 0; offset < len(body); offset += chunkSize {
		end := offset + chunkSize
		if end > len(body) {
			end = len(body)
		}
		first := offset == 0
		last := end == len(body)

		var fuHeader byte = nalType
		if first {
			fuHeader |= 0x80
		}
		if last {
			fuHeader |= 0x40
		}

		payload := make([]byte, 2+(end-offset))
		payload[0] = fuIndicator
		payload[1] = fuHeader
		copy(payload[2:], body[offset:end])

		packets = append(packets, m.packet(timestamp, last && marker, payload))
	}
	return packets, nil
}
