package rtsp

import (
	"fmt"
	"strconv"
	"strings"
)

// Port is either a single port or a low-high pair, as carried by
// client_port=/server_port= transport parameters (§3).
type Port struct {
	Low   uint16
	High  uint16
	Range bool
}

func (p Port) String() string {
	if p.Range {
		return fmt.Sprintf("%d-%d", p.Low, p.High)
	}
	return strconv.Itoa(int(p.Low))
}

// Paired returns the RTP/RTCP port pair, defaulting High to Low+1 when
// only a single port was given on the wire (§3: "If only a is given,
// b = a+1").
func (p Port) Paired() (rtp, rtcp uint16) {
	if p.Range {
		return p.Low, p.High
	}
	return p.Low, p.Low + 1
}

func parsePort(s string) (Port, error) {
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		loN, err1 := strconv.Atoi(lo)
		hiN, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			return Port{}, errMalformedHeader("bad port range: " + s)
		}
		return Port{Low: uint16(loN), High: uint16(hiN), Range: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Port{}, errMalformedHeader("bad port: " + s)
	}
	return Port{Low: uint16(n)}, nil
}

// Channel is either a single interleaved channel or a channel pair
// (RTP channel, RTCP channel), as carried by interleaved= (§3, §6).
type Channel struct {
	Low   uint8
	High  uint8
	Range bool
}

// Paired returns the RTP/RTCP channel pair, defaulting High to Low+1
// when only a single channel was given (§3).
func (c Channel) Paired() (rtp, rtcp uint8) {
	if c.Range {
		return c.Low, c.High
	}
	return c.Low, c.Low + 1
}

func parseChannel(s string) (Channel, error) {
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		loN, err1 := strconv.Atoi(lo)
		hiN, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			return Channel{}, errMalformedHeader("bad channel range: " + s)
		}
		return Channel{Low: uint8(loN), High: uint8(hiN), Range: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Channel{}, errMalformedHeader("bad channel: " + s)
	}
	return Channel{Low: uint8(n)}, nil
}

// TransportSpec is one candidate transport, as offered by a client in
// a SETUP request's Transport header or returned by the server's
// response (§3). Candidates are separated by commas on the wire;
// params within one candidate by semicolons.
type TransportSpec struct {
	Lower       string // TransportRTPUDP or TransportRTPTCP
	Cast        string // TransportUnicast or TransportMulticast
	ClientPort  *Port
	ServerPort  *Port
	Interleaved *Channel
	SSRC        string
	Destination string
	Source      string
	ClientMode  string // "PLAY" (default) or "RECORD"
}

// ParseTransportHeader parses a (possibly multi-candidate) Transport
// header value into ordered candidates, preserving client preference
// order (§3, grounded on oddity-rtsp-server's
// SessionSetup::from_rtsp_candidate_transports).
func ParseTransportHeader(value string) ([]TransportSpec, error) {
	var specs []TransportSpec
	for _, candidate := range strings.Split(value, ",") {
		spec, err := parseTransportCandidate(strings.TrimSpace(candidate))
		if err != nil {
			continue // skip candidates this server can't even parse
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, errTransportNotSupported()
	}
	return specs, nil
}

func parseTransportCandidate(candidate string) (TransportSpec, error) {
	params := strings.Split(candidate, ";")
	if len(params) == 0 {
		return TransportSpec{}, errMalformedHeader("empty transport")
	}
	spec := TransportSpec{
		Lower: params[0],
		Cast:  TransportUnicast,
	}
	for _, p := range params[1:] {
		p = strings.TrimSpace(p)
		key, value, hasValue := strings.Cut(p, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		switch key {
		case "unicast":
			spec.Cast = TransportUnicast
		case "multicast":
			spec.Cast = TransportMulticast
		case "client_port":
			if !hasValue {
				continue
			}
			port, err := parsePort(value)
			if err != nil {
				return TransportSpec{}, err
			}
			spec.ClientPort = &port
		case "server_port":
			if !hasValue {
				continue
			}
			port, err := parsePort(value)
			if err != nil {
				return TransportSpec{}, err
			}
			spec.ServerPort = &port
		case "interleaved":
			if !hasValue {
				continue
			}
			ch, err := parseChannel(value)
			if err != nil {
				return TransportSpec{}, err
			}
			spec.Interleaved = &ch
		case "ssrc":
			spec.SSRC = value
		case "destination":
			spec.Destination = value
		case "source":
			spec.Source = value
		case "mode":
			spec.ClientMode = strings.Trim(strings.ToUpper(value), `"`)
		}
	}
	return spec, nil
}

// SelectTransport picks the first candidate whose Lower this server
// supports and whose mode is PLAY (the default when mode is absent),
// matching the client's stated preference order rather than the
// server's (§3, §4.5, §9 open question resolution). A RECORD candidate
// is never selectable here; this server only serves media, it doesn't
// ingest over RTSP.
func SelectTransport(candidates []TransportSpec, supportedLower ...string) (TransportSpec, error) {
	for _, c := range candidates {
		if c.ClientMode != "" && c.ClientMode != "PLAY" {
			continue
		}
		for _, lower := range supportedLower {
			if c.Lower == lower {
				return c, nil
			}
		}
	}
	return TransportSpec{}, errTransportNotSupported()
}

// BuildTransportResponse renders the server's chosen Transport header
// value for a SETUP 200 response, echoing the accepted candidate with
// server-assigned ports/channels filled in.
func BuildTransportResponse(accepted TransportSpec, serverPort *Port, interleaved *Channel, ssrc string) string {
	parts := []string{accepted.Lower, accepted.Cast}
	if accepted.ClientPort != nil {
		parts = append(parts, "client_port="+accepted.ClientPort.String())
	}
	if serverPort != nil {
		parts = append(parts, "server_port="+serverPort.String())
	}
	if interleaved != nil {
		if interleaved.Range {
			parts = append(parts, fmt.Sprintf("interleaved=%d-%d", interleaved.Low, interleaved.High))
		} else {
			parts = append(parts, fmt.Sprintf("interleaved=%d", interleaved.Low))
		}
	}
	if ssrc != "" {
		parts = append(parts, "ssrc="+ssrc)
	}
	return strings.Join(parts, ";")
}
