package rtsp

import "sync"

// StreamInfo describes one ingest path for DESCRIBE/SDP purposes.
type StreamInfo struct {
	Path       string
	HasVideo   bool
	HasAudio   bool
	VideoCodec string
	AudioCodec string
}

// MediaKind distinguishes the media carried by a MediaPacket.
type MediaKind int

const (
	KindVideo MediaKind = iota
	KindAudio
)

// MediaPacket is one unit of media handed from an ingest path to a
// Source for fan-out to RTSP players (§4.4), the concrete stand-in for
// "a packet from the media source."
type MediaPacket struct {
	Kind      MediaKind
	Timestamp uint32
	Data      []byte
	KeyFrame  bool
}

// SourceEvent is what a subscriber receives: a packet, a lag signal
// (this subscriber fell behind and packets were dropped on its
// behalf), or an end-of-stream signal.
type SourceEvent struct {
	Packet *MediaPacket
	Lagged bool
	End    bool
}

// Source is a single ingest path's bounded multi-consumer fan-out,
// generalizing the teacher's Stream.BroadcastRTPPacket
// (pkg/rtsp/stream.go), which iterated players synchronously and could
// block the producer on one slow player. Each subscriber gets its own
// bounded channel; a subscriber that can't keep up has its oldest
// undelivered packet dropped rather than stalling the producer (§4.4).
type Source struct {
	mu          sync.Mutex
	buffer      int
	info        StreamInfo
	init        []MediaPacket
	subscribers map[uint64]*subscriber
	nextID      uint64
	closed      bool
}

// subscriber pairs one consumer's queue with whether it's already been
// told it's lagging, so a run of drops signals Lagged once instead of
// on every dropped packet (§4.4). The flag clears again once a packet
// is delivered without a drop.
type subscriber struct {
	ch     chan SourceEvent
	lagged bool
}

// NewSource creates a source with the given per-subscriber queue
// depth. buffer <= 0 uses DefaultBroadcastBuffer.
func NewSource(info StreamInfo, buffer int) *Source {
	if buffer <= 0 {
		buffer = DefaultBroadcastBuffer
	}
	return &Source{info: info, buffer: buffer, subscribers: make(map[uint64]*subscriber)}
}

// Info returns the stream description this source was created with.
func (s *Source) Info() StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SetInfo updates the stream description, e.g. once an ingest bridge
// has learned the codec from a sequence header that arrived after the
// source was created empty.
func (s *Source) SetInfo(info StreamInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

// SetInit replaces the cached parameter-set/config packets replayed to
// every new subscriber before live packets (e.g. SPS/PPS for H.264),
// so a player that SETUPs mid-stream can still decode (§4.4).
func (s *Source) SetInit(packets []MediaPacket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init = packets
}

// Subscription is a Source's per-consumer bounded queue handle.
type Subscription struct {
	id     uint64
	source *Source
	Events <-chan SourceEvent
}

// Unsubscribe removes the subscription and closes its channel. Safe to
// call more than once.
func (sub *Subscription) Unsubscribe() {
	sub.source.mu.Lock()
	defer sub.source.mu.Unlock()
	if s, ok := sub.source.subscribers[sub.id]; ok {
		delete(sub.source.subscribers, sub.id)
		close(s.ch)
	}
}

// Subscribe registers a new consumer and returns a Subscription whose
// channel is pre-loaded with the cached init packets.
func (s *Source) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan SourceEvent, s.buffer+len(s.init))
	for i := range s.init {
		ch <- SourceEvent{Packet: &s.init[i]}
	}
	if s.closed {
		ch <- SourceEvent{End: true}
		close(ch)
		return &Subscription{id: id, source: s, Events: ch}
	}
	s.subscribers[id] = &subscriber{ch: ch}
	return &Subscription{id: id, source: s, Events: ch}
}

// Publish fans p out to every current subscriber, dropping the oldest
// queued item (not the new one) for any subscriber whose queue is
// full, and marking the first delivered item after a drop Lagged so
// the consumer can act on it (e.g. request an IDR by tearing down and
// re-SETUP, or just log) — once per run of drops, not on every packet
// while the subscriber stays behind.
func (s *Source) Publish(p MediaPacket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, sub := range s.subscribers {
		deliver(sub, SourceEvent{Packet: &p})
	}
}

func deliver(sub *subscriber, ev SourceEvent) {
	select {
	case sub.ch <- ev:
		sub.lagged = false
		return
	default:
	}
	select {
	case old := <-sub.ch:
		// Carry the lag signal forward if the dropped item held it.
		if old.Lagged {
			ev.Lagged = true
		}
	default:
	}
	if !sub.lagged {
		ev.Lagged = true
		sub.lagged = true
	}
	select {
	case sub.ch <- ev:
	default:
	}
}

// Close marks the source ended, signals every subscriber, and closes
// their channels. Subsequent Publish calls are no-ops.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subscribers {
		select {
		case sub.ch <- SourceEvent{End: true}:
		default:
		}
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

func (s *Source) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
