package rtsp

// Interleaved is a binary-framed RTP/RTCP chunk multiplexed onto the
// RTSP TCP connection per RFC 2326 §10.12: '$' channel length[2] payload.
type Interleaved struct {
	Channel uint8
	Payload []byte
}

// encodeInterleaved writes the wire layout for an interleaved frame.
func encodeInterleaved(f Interleaved) []byte {
	out := make([]byte, 4+len(f.Payload))
	out[0] = interleavedMagic
	out[1] = f.Channel
	out[2] = byte(len(f.Payload) >> 8)
	out[3] = byte(len(f.Payload))
	copy(out[4:], f.Payload)
	return out
}

// OutboundItem is the union written by the connection worker: either a
// Response or an Interleaved frame, enqueued in the order writes must
// occur on the wire (§3, §4.2).
type OutboundItem struct {
	Response    *Response
	Interleaved *Interleaved
}

func OutboundMessage(r *Response) OutboundItem {
	return OutboundItem{Response: r}
}

func OutboundInterleaved(channel uint8, payload []byte) OutboundItem {
	return OutboundItem{Interleaved: &Interleaved{Channel: channel, Payload: payload}}
}

// Bytes renders the item's exact wire bytes.
func (o OutboundItem) Bytes() []byte {
	if o.Interleaved != nil {
		return encodeInterleaved(*o.Interleaved)
	}
	return o.Response.Bytes()
}
