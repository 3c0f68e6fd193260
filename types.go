// RTMP protocol constants and small tagged types

package rtmp

// Chunk format types (basic header top 2 bits)
const (
	ChunkFormatType0 = 0 // 11 bytes: timestamp(24) + length(24) + type(8) + stream_id(32, LE)
	ChunkFormatType1 = 1 // 7 bytes: delta(24) + length(24) + type(8)
	ChunkFormatType2 = 2 // 3 bytes: delta(24)
	ChunkFormatType3 = 3 // 0 bytes
)

// chunkHeaderSize indexed by format type.
var chunkHeaderSize = [4]uint32{11, 7, 3, 0}

// Well-known chunk-stream ids.
const (
	ChunkStreamControl = 2 // network/protocol control messages
	ChunkStreamCommand = 3 // command/action messages, stream-id 0
)

const (
	extendedTimestampMarker = 0xffffff
	rtmpVersion             = 0x03
	handshakeSigSize        = 1536
)

// MessageTypeId is the RTMP message type catalogue (spec §3).
type MessageTypeId uint8

const (
	MessageSetChunkSize            MessageTypeId = 1
	MessageAbort                   MessageTypeId = 2
	MessageAcknowledgement         MessageTypeId = 3
	MessageUserControl             MessageTypeId = 4
	MessageWindowAcknowledgeSize   MessageTypeId = 5
	MessageSetPeerBandwidth        MessageTypeId = 6
	MessageAudio                   MessageTypeId = 8
	MessageVideo                   MessageTypeId = 9
	MessageDataAmf3                MessageTypeId = 15
	MessageSharedObjectAmf3        MessageTypeId = 16
	MessageCommandAmf3             MessageTypeId = 17
	MessageDataAmf0                MessageTypeId = 18
	MessageSharedObjectAmf0        MessageTypeId = 19
	MessageCommandAmf0             MessageTypeId = 20
	MessageAggregate               MessageTypeId = 22
)

// LimitType is the peer-bandwidth limit behavior.
type LimitType byte

const (
	LimitHard    LimitType = 0
	LimitSoft    LimitType = 1
	LimitDynamic LimitType = 2
)

func (t LimitType) String() string {
	switch t {
	case LimitHard:
		return "hard"
	case LimitSoft:
		return "soft"
	case LimitDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// UserControlEventType identifies a RTMP user control (event type 4) event.
type UserControlEventType uint16

const (
	UserControlStreamBegin      UserControlEventType = 0
	UserControlStreamEof        UserControlEventType = 1
	UserControlStreamDry        UserControlEventType = 2
	UserControlSetBufferLength  UserControlEventType = 3
	UserControlStreamIsRecorded UserControlEventType = 4
	UserControlPingRequest      UserControlEventType = 6
	UserControlPingResponse     UserControlEventType = 7
)

// NetStatusType is the coarse classification of a NetConnection.onStatus /
// NetStream.onStatus "code" string.
type NetStatusType int

const (
	NetStatusUnknown NetStatusType = iota
	NetStatusConnectSuccess
	NetStatusConnectFailed
	NetStatusConnectClosed
	NetStatusConnectRejected
	NetStatusConnectAppShutdown
	NetStatusConnectInvalidApp
	NetStatusStreamPlayStart
	NetStatusStreamPlayReset
	NetStatusStreamPlayStop
	NetStatusStreamPlayFailed
	NetStatusStreamPauseNotify
	NetStatusStreamUnpauseNotify
	NetStatusStreamSeekNotify
)

var netStatusCodes = map[string]NetStatusType{
	"NetConnection.Connect.Success":     NetStatusConnectSuccess,
	"NetConnection.Connect.Failed":      NetStatusConnectFailed,
	"NetConnection.Connect.Closed":      NetStatusConnectClosed,
	"NetConnection.Connect.Rejected":    NetStatusConnectRejected,
	"NetConnection.Connect.AppShutdown": NetStatusConnectAppShutdown,
	"NetConnection.Connect.InvalidApp":  NetStatusConnectInvalidApp,
	"NetStream.Play.Start":              NetStatusStreamPlayStart,
	"NetStream.Play.Reset":              NetStatusStreamPlayReset,
	"NetStream.Play.Stop":               NetStatusStreamPlayStop,
	"NetStream.Play.Failed":             NetStatusStreamPlayFailed,
	"NetStream.Pause.Notify":            NetStatusStreamPauseNotify,
	"NetStream.Unpause.Notify":          NetStatusStreamUnpauseNotify,
	"NetStream.Seek.Notify":             NetStatusStreamSeekNotify,
}

// classifyNetStatusCode maps a raw "code" string to a NetStatusType.
func classifyNetStatusCode(code string) NetStatusType {
	if t, ok := netStatusCodes[code]; ok {
		return t
	}
	return NetStatusUnknown
}

// validateChunkStreamId enforces the [2, 65599] range reserved by spec §3.
func validateChunkStreamId(id uint32) error {
	if id < 2 || id > 65599 {
		return &InvalidArgument{Reason: "chunk stream id out of range"}
	}
	return nil
}
