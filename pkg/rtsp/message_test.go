package rtsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestCSeqMissingIsMinusOne(t *testing.T) {
	req := NewRequest(MethodOptions, "*")
	assert.Equal(t, -1, req.CSeq())
}

func TestRequestCSeqParsed(t *testing.T) {
	req := NewRequest(MethodOptions, "*")
	req.Header.Set(HeaderCSeq, "42")
	assert.Equal(t, 42, req.CSeq())
}

func TestResponseSetCSeqEchoesRequest(t *testing.T) {
	resp := NewResponse(StatusOK)
	resp.SetCSeq(9)
	assert.Equal(t, "9", resp.Header.Get(HeaderCSeq))
}

func TestResponseStringIncludesReasonPhrase(t *testing.T) {
	resp := NewResponse(StatusSessionNotFound)
	assert.Contains(t, resp.String(), "454 Session Not Found")
}

func TestRequestBytesEndsWithBlankLine(t *testing.T) {
	req := NewRequest(MethodOptions, "*")
	req.Header.Set(HeaderCSeq, "1")
	b := req.Bytes()
	assert.Contains(t, string(b), "OPTIONS * RTSP/1.0\r\n")
	assert.Contains(t, string(b), "\r\n\r\n")
}
