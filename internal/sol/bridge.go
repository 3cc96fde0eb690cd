package sol

import (
	"encoding/binary"
	"log/slog"
	"strings"

	"sol/pkg/rtmp"
	"sol/pkg/rtsp"
)

// ingestBridge observes the RTMP server's event stream and republishes
// each publisher's audio/video as an rtsp.Source, the concrete "RTMP
// ingest bridge" SPEC_FULL.md §1 describes. It speaks
// FLV tag payloads in (what rtmp.Session hands to its event channel,
// pkg/rtmp/session.go's handleAudio/handleVideo) and rtsp.MediaPacket
// out, so the rtsp package itself never has to know RTMP exists.
type ingestBridge struct {
	rtsp   *rtsp.Server
	events chan interface{}
	log    *slog.Logger

	sources map[string]*streamState
}

type streamState struct {
	source    *rtsp.Source
	sps, pps  []byte
	audioInit []byte
}

func newIngestBridge(rtmpServer *rtmp.Server, rtspServer *rtsp.Server, log *slog.Logger) *ingestBridge {
	b := &ingestBridge{
		rtsp:    rtspServer,
		events:  make(chan interface{}, 256),
		log:     log,
		sources: make(map[string]*streamState),
	}
	rtmpServer.Observe(b.events)
	return b
}

func (b *ingestBridge) run() {
	for event := range b.events {
		switch v := event.(type) {
		case rtmp.PublishStarted:
			b.onPublishStarted(v.StreamName)
		case rtmp.PublishStopped:
			b.onPublishStopped(v.StreamName)
		case rtmp.VideoData:
			b.onVideo(v)
		case rtmp.AudioData:
			b.onAudio(v)
		}
	}
}

func rtspPath(streamName string) string {
	return "/" + strings.TrimPrefix(streamName, "/")
}

func (b *ingestBridge) onPublishStarted(streamName string) {
	path := rtspPath(streamName)
	src := b.rtsp.PublishSource(path, rtsp.StreamInfo{Path: path})
	b.sources[streamName] = &streamState{source: src}
	b.log.Info("rtsp source published", "path", path)
}

func (b *ingestBridge) onPublishStopped(streamName string) {
	path := rtspPath(streamName)
	b.rtsp.RemoveSource(path)
	delete(b.sources, streamName)
	b.log.Info("rtsp source removed", "path", path)
}

// onVideo unpacks one FLV VIDEODATA tag (pkg/rtmp/session.go's
// handleVideo already stripped the FLV tag header, leaving the
// AVCVIDEOPACKET: 1 byte frame/codec, 1 byte AVCPacketType, 3 bytes
// composition time, then AVCC-framed NAL units).
func (b *ingestBridge) onVideo(v rtmp.VideoData) {
	st := b.sources[v.StreamName]
	if st == nil || len(v.Data) < 5 {
		return
	}
	firstByte := v.Data[0]
	if firstByte&0x0F != 7 { // not AVC/H.264
		return
	}
	keyFrame := (firstByte>>4)&0x0F == 1
	avcPacketType := v.Data[1]
	payload := v.Data[5:]

	switch avcPacketType {
	case 0: // AVC sequence header (AVCDecoderConfigurationRecord)
		sps, pps, ok := parseAVCDecoderConfig(payload)
		if !ok {
			return
		}
		st.sps, st.pps = sps, pps
		st.source.SetInit([]rtsp.MediaPacket{
			{Kind: rtsp.KindVideo, Data: sps, KeyFrame: true},
			{Kind: rtsp.KindVideo, Data: pps, KeyFrame: true},
		})
		info := st.source.Info()
		info.HasVideo = true
		info.VideoCodec = "H264"
		st.source.SetInfo(info)
	case 1: // one or more AVCC length-prefixed NAL units
		if keyFrame && st.sps != nil {
			st.source.Publish(rtsp.MediaPacket{Kind: rtsp.KindVideo, Timestamp: v.Timestamp, Data: st.sps, KeyFrame: true})
			st.source.Publish(rtsp.MediaPacket{Kind: rtsp.KindVideo, Timestamp: v.Timestamp, Data: st.pps, KeyFrame: true})
		}
		for _, nal := range splitAVCC(payload) {
			st.source.Publish(rtsp.MediaPacket{Kind: rtsp.KindVideo, Timestamp: v.Timestamp, Data: nal, KeyFrame: keyFrame})
		}
	}
}

// onAudio unpacks one FLV AUDIODATA tag: 1 byte format/rate/size/
// channel, then for AAC a 1-byte AACPacketType followed by either an
// AudioSpecificConfig (type 0) or a raw AAC frame (type 1).
func (b *ingestBridge) onAudio(v rtmp.AudioData) {
	st := b.sources[v.StreamName]
	if st == nil || len(v.Data) < 2 {
		return
	}
	if v.Data[0]>>4 != 10 { // not AAC
		return
	}
	aacPacketType := v.Data[1]
	payload := v.Data[2:]
	switch aacPacketType {
	case 0:
		st.audioInit = append([]byte(nil), payload...)
		info := st.source.Info()
		info.HasAudio = true
		info.AudioCodec = "MPEG4-GENERIC"
		st.source.SetInfo(info)
	case 1:
		if len(payload) == 0 {
			return
		}
		st.source.Publish(rtsp.MediaPacket{Kind: rtsp.KindAudio, Timestamp: v.Timestamp, Data: payload})
	}
}

// parseAVCDecoderConfig extracts the first SPS and PPS NAL unit from
// an AVCDecoderConfigurationRecord (ISO 14496-15 §5.2.4.1.1).
func parseAVCDecoderConfig(data []byte) (sps, pps []byte, ok bool) {
	if len(data) < 6 {
		return nil, nil, false
	}
	numSPS := int(data[5] & 0x1F)
	offset := 6
	for i := 0; i < numSPS && offset+2 <= len(data); i++ {
		length := int(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
		if offset+length > len(data) {
			return nil, nil, false
		}
		if i == 0 {
			sps = append([]byte(nil), data[offset:offset+length]...)
		}
		offset += length
	}
	if offset >= len(data) {
		return nil, nil, false
	}
	numPPS := int(data[offset])
	offset++
	for i := 0; i < numPPS && offset+2 <= len(data); i++ {
		length := int(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
		if offset+length > len(data) {
			return nil, nil, false
		}
		if i == 0 {
			pps = append([]byte(nil), data[offset:offset+length]...)
		}
		offset += length
	}
	return sps, pps, sps != nil && pps != nil
}

// splitAVCC splits AVCC-framed (4-byte big-endian length prefixed) NAL
// units, as carried inside an AVC NALU VIDEODATA tag.
func splitAVCC(data []byte) [][]byte {
	var nals [][]byte
	offset := 0
	for offset+4 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset:]))
		offset += 4
		if length <= 0 || offset+length > len(data) {
			break
		}
		nals = append(nals, data[offset:offset+length])
		offset += length
	}
	return nals
}
