package rtsp

import (
	"fmt"
	"strings"
)

// GenerateSDP renders a session description for info as the DESCRIBE
// response body. Hand-built text, mirroring the teacher's existing
// generateDetailedSDP (pkg/rtsp/session.go) rather than routed through
// github.com/pion/sdp/v3's object model — SDP generation is a pure,
// out-of-scope collaborator per the spec, and threading a large
// session-description API surface through here without being able to
// compile-check field names is a worse trade than the teacher's plain
// string building (see DESIGN.md).
func GenerateSDP(info StreamInfo) string {
	var sb strings.Builder
	sb.WriteString("v=0\r\n")
	sb.WriteString("o=- 0 0 IN IP4 0.0.0.0\r\n")
	sb.WriteString(fmt.Sprintf("s=%s\r\n", info.Path))
	sb.WriteString("c=IN IP4 0.0.0.0\r\n")
	sb.WriteString("t=0 0\r\n")

	if info.HasVideo {
		sb.WriteString(fmt.Sprintf("m=video 0 RTP/AVP %d\r\n", PayloadTypeForCodec(info.VideoCodec)))
		sb.WriteString(fmt.Sprintf("a=rtpmap:%d %s/90000\r\n", PayloadTypeForCodec(info.VideoCodec), info.VideoCodec))
		sb.WriteString("a=control:trackID=0\r\n")
	}
	if info.HasAudio {
		sb.WriteString(fmt.Sprintf("m=audio 0 RTP/AVP %d\r\n", PayloadTypeForCodec(info.AudioCodec)))
		sb.WriteString(fmt.Sprintf("a=rtpmap:%d %s/44100\r\n", PayloadTypeForCodec(info.AudioCodec), info.AudioCodec))
		sb.WriteString("a=control:trackID=1\r\n")
	}
	return sb.String()
}

// PayloadTypeForCodec maps the codec names this server knows about to
// their dynamic RTP payload type; unrecognized codecs get 96, the
// first dynamic slot, same as the teacher's fallback.
func PayloadTypeForCodec(codec string) int {
	switch strings.ToUpper(codec) {
	case "H264":
		return 96
	case "AAC", "MPEG4-GENERIC":
		return 97
	default:
		return 96
	}
}
