// Session controller: connect handshake, command dispatch, control-message
// policy and the single writer path onto the wire (spec §4.D).

package rtmp

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// NetConnection is one RTMP session: a dialed and handshaken transport plus
// everything needed to correlate commands, apply control-message policy and
// demultiplex audio/video onto attached NetStreams.
type NetConnection struct {
	cfg Config

	t      *transport
	reader *chunkReader
	writer *chunkWriter
	writeMu sync.Mutex // serializes the wire: one writer task, no interleaved chunks

	startTime time.Time

	nextTransactionID uint64 // atomic; allocateTransactionID starts handing out 2
	nextStreamChunkID uint32 // atomic; chunk stream ids handed to new NetStreams start at 4

	mu                  sync.Mutex
	pendingCreateStream map[float64]*NetStream
	pendingCalls        map[float64]chan *command
	boundStreams        map[uint32]*NetStream

	rxWindowSize uint32
	txWindowSize uint32
	rxLimitType  LimitType
	txLimitType  LimitType

	events broadcaster[SessionEvent]

	closed  bool
	closeCh chan struct{}
}

// Connect dials uri, performs the handshake, and sends a connect command
// built from connectObject, which must carry a "type" property equal to
// "connect" (spec §4.D "Connect"). It blocks until the server's connect
// response arrives, fails, or ctx is done.
func Connect(ctx context.Context, uri RtmpUri, connectObject *AMF0Value, cfg Config) (*NetConnection, error) {
	if connectObject.GetProperty("type").GetString() != "connect" {
		return nil, &InvalidArgument{Reason: `connect command object must carry type == "connect"`}
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", uri.Address())
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	t := newTransport(conn, cfg.HandshakeTimeout)
	if err := performHandshake(t); err != nil {
		conn.Close()
		return nil, err
	}
	t.timeout = 0 // the handshake deadline doesn't apply to the steady-state read loop

	nc := &NetConnection{
		cfg:                 cfg,
		t:                   t,
		reader:              newChunkReader(t, cfg.InitialChunkSize),
		writer:              newChunkWriter(cfg.InitialChunkSize),
		startTime:           time.Now(),
		nextTransactionID:   1,
		nextStreamChunkID:   3,
		pendingCreateStream: make(map[float64]*NetStream),
		pendingCalls:        make(map[float64]chan *command),
		boundStreams:        make(map[uint32]*NetStream),
		rxWindowSize:        maxUint32,
		txWindowSize:        maxUint32,
		rxLimitType:         LimitHard,
		txLimitType:         LimitHard,
		closeCh:             make(chan struct{}),
	}

	wireObject := newAMF0Object()
	for k, v := range connectObject.GetObject() {
		if k == "type" {
			continue
		}
		wireObject.objVal[k] = v
	}

	sub := nc.events.subscribe(8)

	if err := nc.sendRaw(ChunkStreamCommand, MessageCommandAmf0, 0, buildConnectCommand(wireObject)); err != nil {
		conn.Close()
		return nil, err
	}

	go nc.readLoop()

	return nc.awaitConnect(ctx, sub)
}

const maxUint32 = ^uint32(0)

func (nc *NetConnection) awaitConnect(ctx context.Context, sub <-chan SessionEvent) (*NetConnection, error) {
	timer := time.NewTimer(nc.cfg.CommandTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return nil, &SessionClosed{}
			}
			if ev.Kind == SessionClosedEvent {
				return nil, &SessionClosed{}
			}
			if ev.Kind != SessionStatusUpdated {
				continue
			}
			switch ev.Status {
			case NetStatusConnectSuccess:
				return nc, nil
			default:
				nc.Close()
				return nil, &CommandRejected{Code: ev.Code}
			}
		case <-timer.C:
			nc.Close()
			return nil, &TransportError{Op: "connect", Err: context.DeadlineExceeded}
		case <-ctx.Done():
			nc.Close()
			return nil, ctx.Err()
		}
	}
}

// Events returns a channel of session status/callback/close notifications.
func (nc *NetConnection) Events() <-chan SessionEvent {
	return nc.events.subscribe(32)
}

// Call issues a command with a freshly allocated transaction id and blocks
// for its response (spec §4.D "Command correlation").
func (nc *NetConnection) Call(ctx context.Context, name string, rest ...*AMF0Value) (*command, error) {
	tid := nc.allocateTransactionID()
	respCh := make(chan *command, 1)

	nc.mu.Lock()
	if nc.closed {
		nc.mu.Unlock()
		return nil, &SessionClosed{}
	}
	nc.pendingCalls[tid] = respCh
	nc.mu.Unlock()

	if err := nc.sendRaw(ChunkStreamCommand, MessageCommandAmf0, 0, encodeCommand(name, tid, rest...)); err != nil {
		nc.mu.Lock()
		delete(nc.pendingCalls, tid)
		nc.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-nc.closeCh:
		return nil, &SessionClosed{}
	case <-time.After(nc.cfg.CommandTimeout):
		nc.mu.Lock()
		delete(nc.pendingCalls, tid)
		nc.mu.Unlock()
		return nil, &TransportError{Op: "call", Err: context.DeadlineExceeded}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// createStream registers stream against a fresh transaction id and sends
// createStream. The caller waits on the stream's own event channel for the
// StreamAttached notification.
func (nc *NetConnection) createStream(stream *NetStream) error {
	tid := nc.allocateTransactionID()

	nc.mu.Lock()
	if nc.closed {
		nc.mu.Unlock()
		return &SessionClosed{}
	}
	nc.pendingCreateStream[tid] = stream
	nc.mu.Unlock()

	return nc.sendRaw(ChunkStreamCommand, MessageCommandAmf0, 0, buildCreateStreamCommand(tid))
}

func (nc *NetConnection) allocateTransactionID() float64 {
	return float64(atomic.AddUint64(&nc.nextTransactionID, 1))
}

// allocateStreamChunkID hands each NetStream its own chunk stream id so its
// play/pause/seek commands never interleave compression state with another
// stream's.
func (nc *NetConnection) allocateStreamChunkID() uint32 {
	return atomic.AddUint32(&nc.nextStreamChunkID, 1)
}

/* Outbound */

// sendRaw serializes one message through the chunk writer and onto the
// wire. All sends share writeMu: the writer must never interleave two
// messages' chunks on the same connection.
func (nc *NetConnection) sendRaw(chunkStreamID uint32, typeID MessageTypeId, streamID uint32, payload []byte) error {
	nc.writeMu.Lock()
	defer nc.writeMu.Unlock()

	ts := uint32(time.Since(nc.startTime).Milliseconds())
	chunked, err := nc.writer.encode(chunkStreamID, typeID, streamID, ts, payload)
	if err != nil {
		return err
	}
	return nc.t.write(chunked)
}

func (nc *NetConnection) sendWindowAckSize(size uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, size)
	return nc.sendRaw(ChunkStreamControl, MessageWindowAcknowledgeSize, 0, b)
}

func (nc *NetConnection) sendUserControl(eventType UserControlEventType, data []byte) error {
	payload := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(payload[0:2], uint16(eventType))
	copy(payload[2:], data)
	return nc.sendRaw(ChunkStreamControl, MessageUserControl, 0, payload)
}

func (nc *NetConnection) sendSetBufferLength(streamID uint32, ms uint32) error {
	payload := make([]byte, 10)
	binary.BigEndian.PutUint16(payload[0:2], uint16(UserControlSetBufferLength))
	binary.BigEndian.PutUint32(payload[2:6], streamID)
	binary.BigEndian.PutUint32(payload[6:10], ms)
	return nc.sendRaw(ChunkStreamControl, MessageUserControl, 0, payload)
}

/* Inbound */

func (nc *NetConnection) readLoop() {
	for {
		msg, err := nc.reader.readMessage()
		if err != nil {
			nc.closeWithError(err)
			return
		}
		nc.dispatch(msg)
	}
}

func (nc *NetConnection) dispatch(msg *message) {
	if msg.chunkStreamID == ChunkStreamControl {
		nc.handleControlMessage(msg)
		return
	}

	switch msg.typeID {
	case MessageCommandAmf0, MessageCommandAmf3:
		nc.handleCommand(msg)
	case MessageDataAmf0, MessageDataAmf3:
		nc.handleDataMessage(msg)
	case MessageAudio:
		nc.routeToStream(msg.streamID, func(s *NetStream) { s.handleAudio(msg.payload, msg.timestamp) })
	case MessageVideo:
		nc.routeToStream(msg.streamID, func(s *NetStream) { s.handleVideo(msg.payload, msg.timestamp) })
	default:
		LogDebug("ignoring unhandled message type")
	}
}

func (nc *NetConnection) routeToStream(streamID uint32, f func(*NetStream)) {
	nc.mu.Lock()
	stream := nc.boundStreams[streamID]
	nc.mu.Unlock()
	if stream != nil {
		f(stream)
	}
}

func (nc *NetConnection) handleControlMessage(msg *message) {
	switch msg.typeID {
	case MessageSetChunkSize:
		if len(msg.payload) < 4 {
			return
		}
		nc.reader.setChunkSize(binary.BigEndian.Uint32(msg.payload[0:4]))
	case MessageWindowAcknowledgeSize:
		if len(msg.payload) < 4 {
			return
		}
		nc.mu.Lock()
		nc.rxWindowSize = binary.BigEndian.Uint32(msg.payload[0:4])
		nc.mu.Unlock()
	case MessageSetPeerBandwidth:
		if len(msg.payload) < 5 {
			return
		}
		window := binary.BigEndian.Uint32(msg.payload[0:4])
		limit := LimitType(msg.payload[4])
		nc.applyPeerBandwidth(window, limit)
	case MessageUserControl:
		nc.handleUserControl(msg.payload)
	case MessageAcknowledgement, MessageAbort:
		// parsed by the chunk reader's framing; no session state to update
	default:
		LogDebug("unhandled control message type")
	}
}

// applyPeerBandwidth implements spec §4.D's hard/soft/dynamic limit-type
// rule and, whenever the update is accepted (even if a soft limit leaves
// the smaller existing window in place), echoes the received window back
// as a WindowAcknowledgementSize.
func (nc *NetConnection) applyPeerBandwidth(window uint32, limit LimitType) {
	nc.mu.Lock()
	accept := false
	switch limit {
	case LimitHard:
		nc.txWindowSize = window
		nc.txLimitType = limit
		accept = true
	case LimitSoft:
		if window < nc.txWindowSize {
			nc.txWindowSize = window
		}
		nc.txLimitType = limit
		accept = true
	case LimitDynamic:
		if nc.txLimitType == LimitHard {
			nc.txWindowSize = window
			nc.txLimitType = limit
			accept = true
		}
	}
	nc.mu.Unlock()

	if accept {
		if err := nc.sendWindowAckSize(window); err != nil {
			LogError(err)
		}
	}
}

func (nc *NetConnection) handleUserControl(payload []byte) {
	if len(payload) < 2 {
		return
	}
	eventType := UserControlEventType(binary.BigEndian.Uint16(payload[0:2]))
	data := payload[2:]

	switch eventType {
	case UserControlStreamBegin:
		if len(data) >= 4 {
			streamID := binary.BigEndian.Uint32(data[0:4])
			if streamID == 0 {
				if err := nc.sendSetBufferLength(streamID, 5000); err != nil {
					LogError(err)
				}
			}
		}
	case UserControlPingRequest:
		if len(data) >= 4 {
			if err := nc.sendUserControl(UserControlPingResponse, data[0:4]); err != nil {
				LogError(err)
			}
		}
	default:
		// StreamEof/StreamDry/StreamIsRecorded/PingResponse: observational only
	}
}

func (nc *NetConnection) handleCommand(msg *message) {
	cmd, err := decodeCommand(msg.payload)
	if err != nil {
		LogError(err)
		return
	}

	if msg.streamID != 0 {
		nc.mu.Lock()
		stream := nc.boundStreams[msg.streamID]
		nc.mu.Unlock()
		if stream != nil {
			stream.handleCommand(cmd)
			return
		}
	}

	if cmd.transactionID == 1 {
		nc.handleConnectResponse(cmd)
		return
	}

	nc.mu.Lock()
	if stream, pending := nc.pendingCreateStream[cmd.transactionID]; pending {
		delete(nc.pendingCreateStream, cmd.transactionID)
		nc.mu.Unlock()
		nc.handleCreateStreamResponse(cmd, stream)
		return
	}
	if ch, pending := nc.pendingCalls[cmd.transactionID]; pending {
		delete(nc.pendingCalls, cmd.transactionID)
		nc.mu.Unlock()
		select {
		case ch <- cmd:
		default:
		}
		return
	}
	nc.mu.Unlock()

	nc.events.publish(SessionEvent{Kind: SessionCallback, Name: cmd.name, Data: cmd.at(1)})
}

func (nc *NetConnection) handleConnectResponse(cmd *command) {
	info := cmd.at(1)
	code := info.GetProperty("code").GetString()
	nc.events.publish(SessionEvent{
		Kind:   SessionStatusUpdated,
		Status: classifyNetStatusCode(code),
		Code:   code,
		Data:   info,
	})
}

func (nc *NetConnection) handleCreateStreamResponse(cmd *command, stream *NetStream) {
	if cmd.name != "_result" {
		nc.events.publish(SessionEvent{Kind: SessionCallback, Name: cmd.name, Data: cmd.at(1)})
		return
	}

	streamID := uint32(cmd.at(1).GetDouble())
	stream.bind(streamID)

	nc.mu.Lock()
	nc.boundStreams[streamID] = stream
	nc.mu.Unlock()

	stream.events.publish(StreamEvent{Kind: StreamAttached})

	if err := nc.sendSetBufferLength(streamID, 5000); err != nil {
		LogError(err)
	}
}

func (nc *NetConnection) handleDataMessage(msg *message) {
	// Data-channel messages (onMetaData and the like) are observational
	// only; nothing in this client consumes them today.
	LogDebug("ignoring data message")
}

/* Close */

func (nc *NetConnection) closeWithError(err error) {
	if err != nil {
		LogError(err)
	}
	nc.Close()
}

// Close tears down the transport, unbinds every attached NetStream and
// releases anything blocked on a Call/Connect/Attach.
func (nc *NetConnection) Close() error {
	nc.mu.Lock()
	if nc.closed {
		nc.mu.Unlock()
		return nil
	}
	nc.closed = true
	streams := make([]*NetStream, 0, len(nc.boundStreams))
	for _, s := range nc.boundStreams {
		streams = append(streams, s)
	}
	nc.boundStreams = nil
	nc.mu.Unlock()

	close(nc.closeCh)
	err := nc.t.close()

	for _, s := range streams {
		s.closeLocal()
	}

	nc.events.publish(SessionEvent{Kind: SessionClosedEvent})
	nc.events.closeAll()

	return err
}
