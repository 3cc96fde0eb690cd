package rtp

import (
	"bytes"
	"testing"
)

func TestMuxerPacketizeSmallPayload(t *testing.T) {
	m := NewMuxer(0x12345678, PayloadTypeAAC, 1000)
	payload := []byte("an AAC frame")

	packets, err := m.Packetize(98765432, true, payload)
	if err != nil {
		t.Fatalf("Packetize: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(packets))
	}
	p := packets[0]
	if p.SSRC != 0x12345678 {
		t.Errorf("expected SSRC 0x12345678, got 0x%x", p.SSRC)
	}
	if p.SequenceNumber != 1000 {
		t.Errorf("expected seq 1000, got %d", p.SequenceNumber)
	}
	if !p.Marker {
		t.Errorf("expected marker bit set")
	}
	if !bytes.Equal(p.Payload, payload) {
		t.Errorf("payload mismatch: got %q", p.Payload)
	}
}

func TestMuxerPacketizeIncrementsSequence(t *testing.T) {
	m := NewMuxer(1, PayloadTypeAAC, 65534)
	p1, _ := m.Packetize(0, false, []byte("a"))
	p2, _ := m.Packetize(1, false, []byte("b"))

	if p1[0].SequenceNumber != 65534 {
		t.Errorf("expected first seq 65534, got %d", p1[0].SequenceNumber)
	}
	if p2[0].SequenceNumber != 65535 {
		t.Errorf("expected wraparound-adjacent seq 65535, got %d", p2[0].SequenceNumber)
	}
}

func TestMuxerPacketizeOversizedRejected(t *testing.T) {
	m := NewMuxer(1, PayloadTypeAAC, 0)
	big := make([]byte, MaxRTPPayloadSize+1)
	if _, err := m.Packetize(0, false, big); err == nil {
		t.Errorf("expected error for oversized non-fragmenting payload")
	}
}

func TestMuxerPacketizeH264SingleNAL(t *testing.T) {
	m := NewMuxer(1, PayloadTypeH264, 0)
	nal := []byte{0x67, 0x01, 0x02, 0x03} // SPS, small
	packets, err := m.PacketizeH264(100, true, nal)
	if err != nil {
		t.Fatalf("PacketizeH264: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 packet for small NAL, got %d", len(packets))
	}
	if !bytes.Equal(packets[0].Payload, nal) {
		t.Errorf("expected single NAL passed through unchanged")
	}
}

func TestMuxerPacketizeH264FragmentsOversizedNAL(t *testing.T) {
	m := NewMuxer(1, PayloadTypeH264, 0)
	nalHeader := byte(0x65) // nri=3<<5, type=5 (IDR slice)
	body := make([]byte, MaxRTPPayloadSize*2)
	for i := range body {
		body[i] = byte(i)
	}
	nal := append([]byte{nalHeader}, body...)

	packets, err := m.PacketizeH264(100, true, nal)
	if err != nil {
		t.Fatalf("PacketizeH264: %v", err)
	}
	if len(packets) < 2 {
		t.Fatalf("expected fragmentation into >= 2 packets, got %d", len(packets))
	}

	first := packets[0].Payload
	if first[0]&0x1F != 28 {
		t.Errorf("expected FU-A indicator type 28, got %d", first[0]&0x1F)
	}
	if first[1]&0x80 == 0 {
		t.Errorf("expected start bit set on first fragment")
	}
	if packets[0].Marker {
		t.Errorf("marker must only be set on the final fragment")
	}

	last := packets[len(packets)-1]
	if last.Payload[1]&0x40 == 0 {
		t.Errorf("expected end bit set on last fragment")
	}
	if !last.Marker {
		t.Errorf("expected marker bit set on last fragment when requested")
	}

	var reassembled []byte
	for _, p := range packets {
		reassembled = append(reassembled, p.Payload[2:]...)
	}
	if !bytes.Equal(reassembled, body) {
		t.Errorf("reassembled FU-A payload does not match original NAL body")
	}
}
