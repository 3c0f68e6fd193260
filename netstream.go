// Logical stream: attach/play/pause/seek plus FLV audio/video demuxing onto
// the media sink (spec §4.E).

package rtmp

import (
	"context"
	"sync"
	"time"
)

// Default NetStream.Play start/duration sentinels (spec §4.E "Play").
const (
	PlayStartLiveOrRecorded  float64 = -2
	PlayStartLiveOnly        float64 = -1
	PlayDurationEntireStream float64 = -1
)

// NetStream is one server-assigned message stream id: a play/pause/seek
// control surface plus an audio/video demuxer feeding a mediaSink.
type NetStream struct {
	parent           *NetConnection
	cmdChunkStreamID uint32

	mu                   sync.Mutex
	streamID             uint32
	bound                bool
	avcConfig            *AvcDecoderConfigurationRecord
	auFormat             AccessUnitFormat
	prependParameterSets bool
	closed               bool

	sink   *mediaSink
	events broadcaster[StreamEvent]
}

func newNetStream(parent *NetConnection, cfg Config) *NetStream {
	return &NetStream{
		parent:               parent,
		cmdChunkStreamID:     parent.allocateStreamChunkID(),
		sink:                 newMediaSink(cfg.AudioQueueDepth, cfg.VideoQueueDepth),
		prependParameterSets: cfg.PrependParameterSets,
	}
}

// AttachStream creates a new NetStream on conn, sends createStream and
// blocks until the server's stream id has bound, the connection closes, the
// connection's CommandTimeout expires, or ctx is done (spec §4.E "Attach").
func AttachStream(ctx context.Context, conn *NetConnection, cfg Config) (*NetStream, error) {
	stream := newNetStream(conn, cfg)
	sub := stream.events.subscribe(4)

	if err := conn.createStream(stream); err != nil {
		return nil, err
	}

	timer := time.NewTimer(conn.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, &TransportError{Op: "createStream", Err: context.DeadlineExceeded}
	case ev, ok := <-sub:
		if !ok || ev.Kind != StreamAttached {
			return nil, &SessionClosed{}
		}
		return stream, nil
	case <-conn.closeCh:
		return nil, &SessionClosed{}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *NetStream) bind(streamID uint32) {
	s.mu.Lock()
	s.streamID = streamID
	s.bound = true
	s.mu.Unlock()
}

// StreamID returns the server-assigned message stream id, or 0 before
// Attach has completed.
func (s *NetStream) StreamID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// SetAccessUnitFormat selects how video samples rewrite their NALUs
// (length-prefixed, the default, or Annex-B).
func (s *NetStream) SetAccessUnitFormat(f AccessUnitFormat) {
	s.mu.Lock()
	s.auFormat = f
	s.mu.Unlock()
}

// Events returns a channel of this stream's Attached/StatusUpdated/
// AudioReceived/VideoReceived notifications.
func (s *NetStream) Events() <-chan StreamEvent {
	return s.events.subscribe(64)
}

/* Control commands */

func (s *NetStream) Play(name string, start float64, duration float64) error {
	return s.parent.sendRaw(s.cmdChunkStreamID, MessageCommandAmf0, s.StreamID(), buildPlayCommand(name, start, duration))
}

func (s *NetStream) Pause() error {
	return s.parent.sendRaw(s.cmdChunkStreamID, MessageCommandAmf0, s.StreamID(), buildPauseCommand(true, 0))
}

func (s *NetStream) Resume() error {
	return s.parent.sendRaw(s.cmdChunkStreamID, MessageCommandAmf0, s.StreamID(), buildPauseCommand(false, 0))
}

func (s *NetStream) Seek(ms float64) error {
	return s.parent.sendRaw(s.cmdChunkStreamID, MessageCommandAmf0, s.StreamID(), buildSeekCommand(ms))
}

/* Inbound */

func (s *NetStream) handleCommand(cmd *command) {
	if cmd.name != "onStatus" {
		return
	}
	info := cmd.at(1)
	code := info.GetProperty("code").GetString()
	s.events.publish(StreamEvent{
		Kind:   StreamStatusUpdated,
		Status: classifyNetStatusCode(code),
		Code:   code,
	})
}

func (s *NetStream) handleAudio(payload []byte, timestamp uint32) {
	if len(payload) == 0 {
		return
	}
	sample := &AudioSample{Data: payload, Timestamp: timestamp}
	s.sink.pushAudio(sample)
	s.events.publish(StreamEvent{Kind: StreamAudioReceived, Audio: sample})
}

// handleVideo demultiplexes one FLV video tag body: byte 0 is frame-type
// (high nibble) / codec id (low nibble), byte 1 is the AVCPacketType, bytes
// 2-4 are the signed 24-bit composition time offset (spec §4.E "Video").
func (s *NetStream) handleVideo(payload []byte, timestamp uint32) {
	if len(payload) < 5 {
		return
	}

	frameType := (payload[0] >> 4) & 0x0f
	codecID := payload[0] & 0x0f
	if codecID != avcCodecID {
		return
	}

	packetType := payload[1]
	offset := int32(payload[2])<<16 | int32(payload[3])<<8 | int32(payload[4])
	if offset&0x00800000 != 0 {
		offset |= ^int32(0xffffff) // sign-extend the 24-bit field
	}
	body := payload[5:]

	switch packetType {
	case avcPacketTypeSequenceHeader:
		cfg, err := parseAvcDecoderConfigurationRecord(body)
		if err != nil {
			LogError(err)
			return
		}
		s.mu.Lock()
		s.avcConfig = cfg
		s.mu.Unlock()

	case avcPacketTypeNALU:
		s.mu.Lock()
		cfg := s.avcConfig
		format := s.auFormat
		prependParamSets := s.prependParameterSets
		s.mu.Unlock()
		if cfg == nil {
			return
		}

		data, err := rewriteAccessUnit(body, cfg.NaluLengthSize, format)
		if err != nil {
			LogError(err)
			return
		}

		isKeyframe := isKeyframeFrameType(frameType)
		if isKeyframe && prependParamSets {
			prefix := encodeParameterSetNalus(cfg.SPS, cfg.NaluLengthSize, format)
			prefix = append(prefix, encodeParameterSetNalus(cfg.PPS, cfg.NaluLengthSize, format)...)
			data = append(prefix, data...)
		}

		sample := &VideoSample{
			Data:                  data,
			DecodeTimestamp:       timestamp,
			PresentationTimestamp: uint32(int64(timestamp) + int64(offset)),
			IsKeyframe:            isKeyframe,
		}
		s.sink.pushVideo(sample)
		s.events.publish(StreamEvent{Kind: StreamVideoReceived, Video: sample})

	case avcPacketTypeEndOfSequence:
		// observational only
	}
}

// RequestSample pulls the next available sample of kind, blocking until
// one arrives, the stream closes (EndOfStream), or ctx is done.
func (s *NetStream) RequestSample(ctx context.Context, kind SampleKind) (any, error) {
	return s.sink.RequestSample(ctx, kind)
}

func (s *NetStream) closeLocal() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.sink.close()
	s.events.closeAll()
}
