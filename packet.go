// Chunk-stream message data model shared by the codec (chunkcodec.go) and
// the session controller (netconnection.go).

package rtmp

// message is a fully reassembled RTMP message: the chunk stream has
// finished delivering every chunk that makes up one logical unit (a
// command, a control message, one audio/video frame, ...).
type message struct {
	chunkStreamID uint32
	typeID        MessageTypeId
	streamID      uint32
	timestamp     uint32 // absolute, in milliseconds
	payload       []byte
}

// inboundChunkState is the per-chunk-stream reassembly state the codec
// keeps so that format-1/2/3 chunks (which omit fields carried over from
// the previous chunk on the same chunk stream) can be decompressed.
type inboundChunkState struct {
	hasPrior    bool // a message header has been seen at least once
	typeID      MessageTypeId
	streamID    uint32
	length      uint32 // message length announced by the last fmt0/1 header
	timestamp   uint32 // absolute timestamp of the in-progress/last message
	lastDelta   uint32 // delta applied by the last fmt1/2/3-opened message, for fmt3 reuse
	usesExtTS   bool   // the in-progress message's chunks carry a 4-byte extended timestamp

	payload   []byte // accumulated payload of the in-progress message
	bytesRead uint32
}

// outboundChunkState is the per-chunk-stream compression state the writer
// keeps to decide whether a message can be sent with a compressed
// (fmt1/2/3) header instead of a full fmt0 header.
type outboundChunkState struct {
	hasPrior  bool
	typeID    MessageTypeId
	streamID  uint32
	length    uint32
	timestamp uint32
	lastDelta uint32 // delta of the last chunk sent, for the fmt3 steady-rate test
}
