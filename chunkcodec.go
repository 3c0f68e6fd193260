// Chunk-stream codec: basic header, message header (format types 0-3),
// extended timestamp, and message reassembly/fragmentation bounded by the
// negotiated chunk size (spec §4.C).

package rtmp

import (
	"encoding/binary"
)

// chunkReader reassembles inbound chunks into complete messages, one
// inboundChunkState per chunk stream id.
type chunkReader struct {
	t         *transport
	chunkSize uint32
	states    map[uint32]*inboundChunkState
}

func newChunkReader(t *transport, chunkSize uint32) *chunkReader {
	return &chunkReader{
		t:         t,
		chunkSize: chunkSize,
		states:    make(map[uint32]*inboundChunkState),
	}
}

// setChunkSize applies a SetChunkSize control message (spec §3 / §4.D):
// it takes effect starting with the next chunk read.
func (r *chunkReader) setChunkSize(n uint32) {
	r.chunkSize = n
}

// readMessage blocks until one full message has been reassembled from
// however many chunks it took.
func (r *chunkReader) readMessage() (*message, error) {
	for {
		csid, st, err := r.readChunkHeader()
		if err != nil {
			return nil, err
		}

		remaining := st.length - st.bytesRead
		toRead := r.chunkSize
		if toRead > remaining {
			toRead = remaining
		}

		if toRead > 0 {
			chunk, err := r.t.readFull(int(toRead))
			if err != nil {
				return nil, err
			}
			st.payload = append(st.payload, chunk...)
			st.bytesRead += toRead
		}

		if st.bytesRead >= st.length {
			payload := st.payload
			st.payload = nil
			st.bytesRead = 0

			return &message{
				chunkStreamID: csid,
				typeID:        st.typeID,
				streamID:      st.streamID,
				timestamp:     st.timestamp,
				payload:       payload,
			}, nil
		}
	}
}

// readChunkHeader reads one basic header + message header, decompressing
// against cached state, and returns the chunk stream id and its state
// ready for a payload slice to be appended.
func (r *chunkReader) readChunkHeader() (uint32, *inboundChunkState, error) {
	format, csid, err := r.readBasicHeader()
	if err != nil {
		return 0, nil, err
	}
	if err := validateChunkStreamId(csid); err != nil {
		return 0, nil, err
	}

	st, ok := r.states[csid]
	if !ok {
		st = &inboundChunkState{}
		r.states[csid] = st
	}

	if !st.hasPrior && format != ChunkFormatType0 {
		return 0, nil, &ProtocolViolation{Reason: "first chunk on a chunk stream must use format 0"}
	}

	if st.bytesRead > 0 {
		// Continuation of an in-progress message: must be format 3 and
		// every field is inherited unchanged.
		if format != ChunkFormatType3 {
			return 0, nil, &ProtocolViolation{Reason: "continuation chunk did not use format 3"}
		}
		if st.usesExtTS {
			if _, err := r.t.readFull(4); err != nil {
				return 0, nil, err
			}
		}
		return csid, st, nil
	}

	var delta uint32
	haveDelta := false

	if format != ChunkFormatType3 {
		tsBytes, err := r.t.readFull(3)
		if err != nil {
			return 0, nil, err
		}
		delta = uint32(tsBytes[0])<<16 | uint32(tsBytes[1])<<8 | uint32(tsBytes[2])
		haveDelta = true
	}

	if format == ChunkFormatType0 || format == ChunkFormatType1 {
		lenBytes, err := r.t.readFull(3)
		if err != nil {
			return 0, nil, err
		}
		st.length = uint32(lenBytes[0])<<16 | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])

		typeByte, err := r.t.readFull(1)
		if err != nil {
			return 0, nil, err
		}
		st.typeID = MessageTypeId(typeByte[0])
	}

	if format == ChunkFormatType0 {
		sidBytes, err := r.t.readFull(4)
		if err != nil {
			return 0, nil, err
		}
		st.streamID = binary.LittleEndian.Uint32(sidBytes)
	}

	var usesExtTS bool
	if haveDelta {
		usesExtTS = delta == extendedTimestampMarker
	} else {
		// Format 3 opening a new message inheriting the previous
		// message's header: the extended timestamp is present iff the
		// cached delta required it, and the field itself is reused.
		usesExtTS = st.usesExtTS
		delta = st.lastDelta
	}

	if usesExtTS {
		extBytes, err := r.t.readFull(4)
		if err != nil {
			return 0, nil, err
		}
		if haveDelta {
			delta = binary.BigEndian.Uint32(extBytes)
		}
	}
	st.usesExtTS = usesExtTS

	switch format {
	case ChunkFormatType0:
		st.timestamp = delta
		st.lastDelta = 0
	case ChunkFormatType1, ChunkFormatType2:
		st.timestamp += delta
		st.lastDelta = delta
	case ChunkFormatType3:
		st.timestamp += delta
	}

	st.hasPrior = true
	return csid, st, nil
}

func (r *chunkReader) readBasicHeader() (format uint32, csid uint32, err error) {
	b, err := r.t.readByte()
	if err != nil {
		return 0, 0, err
	}
	format = uint32(b >> 6)
	low := uint32(b & 0x3f)

	switch low {
	case 0:
		ext, err := r.t.readFull(1)
		if err != nil {
			return 0, 0, err
		}
		csid = 64 + uint32(ext[0])
	case 1:
		ext, err := r.t.readFull(2)
		if err != nil {
			return 0, 0, err
		}
		csid = 64 + uint32(binary.BigEndian.Uint16(ext))
	default:
		csid = low
	}

	return format, csid, nil
}

/* Writer */

// chunkWriter serializes outbound messages to chunk-stream bytes, reusing
// compressed (format 1/2/3) headers when the prior message on the same
// chunk stream allows it (spec §4.C "Outbound header compression").
type chunkWriter struct {
	chunkSize uint32
	states    map[uint32]*outboundChunkState
}

func newChunkWriter(chunkSize uint32) *chunkWriter {
	return &chunkWriter{
		chunkSize: chunkSize,
		states:    make(map[uint32]*outboundChunkState),
	}
}

func (w *chunkWriter) setChunkSize(n uint32) {
	w.chunkSize = n
}

// encode serializes one message as a sequence of chunks on chunkStreamID.
func (w *chunkWriter) encode(chunkStreamID uint32, typeID MessageTypeId, streamID uint32, timestamp uint32, payload []byte) ([]byte, error) {
	if err := validateChunkStreamId(chunkStreamID); err != nil {
		return nil, err
	}

	st, ok := w.states[chunkStreamID]
	if !ok {
		st = &outboundChunkState{}
		w.states[chunkStreamID] = st
	}

	format, delta := chooseOutboundFormat(st, streamID, typeID, uint32(len(payload)), timestamp)
	useExtTS := delta >= extendedTimestampMarker

	header := encodeBasicHeader(format, chunkStreamID)
	header = append(header, encodeMessageHeader(format, delta, uint32(len(payload)), typeID, streamID, useExtTS)...)

	newLastDelta := delta
	if format == ChunkFormatType0 {
		newLastDelta = 0
	}
	st.hasPrior = true
	st.typeID = typeID
	st.streamID = streamID
	st.length = uint32(len(payload))
	st.timestamp = timestamp
	st.lastDelta = newLastDelta

	continuationHeader := encodeBasicHeader(ChunkFormatType3, chunkStreamID)

	out := make([]byte, 0, len(header)+len(payload)+len(payload)/int(w.chunkSize)*len(continuationHeader))
	out = append(out, header...)

	offset := 0
	first := true
	for offset < len(payload) || first {
		first = false
		end := offset + int(w.chunkSize)
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, payload[offset:end]...)
		offset = end
		if offset < len(payload) {
			out = append(out, continuationHeader...)
			if useExtTS {
				ext := make([]byte, 4)
				binary.BigEndian.PutUint32(ext, delta)
				out = append(out, ext...)
			}
		}
	}

	return out, nil
}

// chooseOutboundFormat implements spec §4.C's format-selection table and
// returns the chosen format alongside the timestamp/delta field to encode.
func chooseOutboundFormat(st *outboundChunkState, streamID uint32, typeID MessageTypeId, length uint32, timestamp uint32) (uint32, uint32) {
	switch {
	case !st.hasPrior || streamID != st.streamID:
		return ChunkFormatType0, timestamp
	case typeID != st.typeID || length != st.length:
		return ChunkFormatType1, timestamp - st.timestamp
	case timestamp == st.timestamp+2*st.lastDelta:
		return ChunkFormatType3, st.lastDelta
	case timestamp < st.timestamp:
		return ChunkFormatType0, timestamp
	default:
		return ChunkFormatType2, timestamp - st.timestamp
	}
}

func encodeBasicHeader(format uint32, csid uint32) []byte {
	switch {
	case csid < 64:
		return []byte{byte(format<<6) | byte(csid)}
	case csid < 64+256:
		return []byte{byte(format << 6), byte(csid - 64)}
	default:
		b := make([]byte, 3)
		b[0] = byte(format<<6) | 1
		binary.BigEndian.PutUint16(b[1:3], uint16(csid-64))
		return b
	}
}

func encodeMessageHeader(format uint32, delta uint32, length uint32, typeID MessageTypeId, streamID uint32, useExtTS bool) []byte {
	out := make([]byte, 0, 11)

	if format != ChunkFormatType3 {
		ts := delta
		if useExtTS {
			ts = extendedTimestampMarker
		}
		out = append(out, byte(ts>>16), byte(ts>>8), byte(ts))
	}

	if format == ChunkFormatType0 || format == ChunkFormatType1 {
		out = append(out, byte(length>>16), byte(length>>8), byte(length), byte(typeID))
	}

	if format == ChunkFormatType0 {
		sid := make([]byte, 4)
		binary.LittleEndian.PutUint32(sid, streamID)
		out = append(out, sid...)
	}

	if useExtTS {
		ext := make([]byte, 4)
		binary.BigEndian.PutUint32(ext, delta)
		out = append(out, ext...)
	}

	return out
}
