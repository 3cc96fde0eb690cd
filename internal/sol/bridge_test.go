package sol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAVCDecoderConfig(sps, pps []byte) []byte {
	buf := make([]byte, 6)
	buf[5] = 0xE1 // 1 SPS (top 3 bits reserved)
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(sps)))
	buf = append(buf, lenBuf...)
	buf = append(buf, sps...)
	buf = append(buf, 1) // 1 PPS
	binary.BigEndian.PutUint16(lenBuf, uint16(len(pps)))
	buf = append(buf, lenBuf...)
	buf = append(buf, pps...)
	return buf
}

func TestParseAVCDecoderConfigExtractsSPSAndPPS(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x1e}
	pps := []byte{0x68, 0xce, 0x3c, 0x80}

	gotSPS, gotPPS, ok := parseAVCDecoderConfig(buildAVCDecoderConfig(sps, pps))
	require.True(t, ok)
	assert.Equal(t, sps, gotSPS)
	assert.Equal(t, pps, gotPPS)
}

func TestParseAVCDecoderConfigRejectsTruncated(t *testing.T) {
	_, _, ok := parseAVCDecoderConfig([]byte{0x01, 0x42})
	assert.False(t, ok)
}

func TestSplitAVCCSplitsMultipleNALUnits(t *testing.T) {
	nal1 := []byte{0x67, 0x01, 0x02}
	nal2 := []byte{0x68, 0x03}

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(nal1)))
	buf = append(buf, nal1...)

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(nal2)))
	buf = append(buf, lenBuf...)
	buf = append(buf, nal2...)

	nals := splitAVCC(buf)
	require.Len(t, nals, 2)
	assert.Equal(t, nal1, nals[0])
	assert.Equal(t, nal2, nals[1])
}

func TestSplitAVCCStopsOnTruncatedLength(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, 100) // claims more bytes than present
	nals := splitAVCC(buf)
	assert.Empty(t, nals)
}

func TestRtspPathPrefixesSlash(t *testing.T) {
	assert.Equal(t, "/live/stream", rtspPath("live/stream"))
	assert.Equal(t, "/live/stream", rtspPath("/live/stream"))
}
