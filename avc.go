// AVC/H.264 demuxing: AVCDecoderConfigurationRecord parsing (ISO/IEC
// 14496-15 §5.2.4.1) and NALU rewriting between length-prefixed and
// Annex-B access-unit forms (spec §4.F).

package rtmp

import "encoding/binary"

// annexBStartCode is the 4-byte Annex-B NALU start code this demuxer
// emits when AccessUnitFormat is set to Annex-B.
var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// AccessUnitFormat selects how NetStream rewrites NALUs before delivering
// a video sample (spec §4.E "Video").
type AccessUnitFormat int

const (
	// AccessUnitLengthPrefixed re-emits each NALU with its
	// nalu_length_size-wide big-endian length prefix (the default).
	AccessUnitLengthPrefixed AccessUnitFormat = iota
	// AccessUnitAnnexB rewrites each NALU with a 4-byte 00 00 00 01 start
	// code instead of a length prefix.
	AccessUnitAnnexB
)

// AvcDecoderConfigurationRecord is the parsed AVCDecoderConfigurationRecord
// carried in a video sequence-header sample (FLV AVCPacketType 0).
type AvcDecoderConfigurationRecord struct {
	ConfigurationVersion byte
	ProfileIndication    byte
	ProfileCompatibility byte
	LevelIndication      byte
	NaluLengthSize       int // 1, 2, or 4
	SPS                  [][]byte
	PPS                  [][]byte

	// Width and Height are decoded from the first SPS's cropping/size
	// fields, best-effort (zero if the SPS could not be parsed).
	Width  uint32
	Height uint32
}

// parseAvcDecoderConfigurationRecord parses an AVCDecoderConfigurationRecord
// per ISO/IEC 14496-15 §5.2.4.1.
func parseAvcDecoderConfigurationRecord(data []byte) (*AvcDecoderConfigurationRecord, error) {
	if len(data) < 7 {
		return nil, &ProtocolViolation{Reason: "avc decoder configuration record too short"}
	}

	rec := &AvcDecoderConfigurationRecord{
		ConfigurationVersion: data[0],
		ProfileIndication:    data[1],
		ProfileCompatibility: data[2],
		LevelIndication:      data[3],
		NaluLengthSize:       int(data[4]&0x03) + 1,
	}

	pos := 5
	numSPS := int(data[pos] & 0x1f)
	pos++

	for i := 0; i < numSPS; i++ {
		if pos+2 > len(data) {
			return nil, &ProtocolViolation{Reason: "avc decoder configuration record truncated sps length"}
		}
		l := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+l > len(data) {
			return nil, &ProtocolViolation{Reason: "avc decoder configuration record truncated sps"}
		}
		sps := make([]byte, l)
		copy(sps, data[pos:pos+l])
		rec.SPS = append(rec.SPS, sps)
		pos += l
	}

	if pos >= len(data) {
		return nil, &ProtocolViolation{Reason: "avc decoder configuration record missing pps count"}
	}
	numPPS := int(data[pos])
	pos++

	for i := 0; i < numPPS; i++ {
		if pos+2 > len(data) {
			return nil, &ProtocolViolation{Reason: "avc decoder configuration record truncated pps length"}
		}
		l := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+l > len(data) {
			return nil, &ProtocolViolation{Reason: "avc decoder configuration record truncated pps"}
		}
		pps := make([]byte, l)
		copy(pps, data[pos:pos+l])
		rec.PPS = append(rec.PPS, pps)
		pos += l
	}

	if len(rec.SPS) > 0 {
		rec.Width, rec.Height = parseSpsResolution(rec.SPS[0])
	}

	return rec, nil
}

// parseSpsResolution extracts pic width/height from a raw (NAL-header
// included) H.264 SPS, best-effort. Returns (0, 0) on any parse failure
// instead of erroring: resolution is informational, not load-bearing.
func parseSpsResolution(sps []byte) (width uint32, height uint32) {
	if len(sps) < 2 {
		return 0, 0
	}

	b := newBitReader(sps[1:]) // skip the NAL header byte
	profileIdc := b.read(8)
	b.read(8) // constraint flags + reserved
	b.read(8) // level idc
	b.readGolomb()

	if profileIdc == 100 || profileIdc == 110 || profileIdc == 122 || profileIdc == 244 ||
		profileIdc == 44 || profileIdc == 83 || profileIdc == 86 || profileIdc == 118 {
		chromaFormat := b.readGolomb()
		if chromaFormat == 3 {
			b.read(1)
		}
		b.readGolomb()
		b.readGolomb()
		b.read(1)
		if b.read(1) != 0 {
			if chromaFormat == 3 {
				b.read(12)
			} else {
				b.read(8)
			}
		}
	}

	b.readGolomb() // log2_max_frame_num_minus4
	picOrderCntType := b.readGolomb()
	switch picOrderCntType {
	case 0:
		b.readGolomb()
	case 1:
		b.read(1)
		b.readGolomb()
		b.readGolomb()
		numRefFrames := b.readGolomb()
		for i := uint32(0); i < numRefFrames; i++ {
			b.readGolomb()
		}
	}

	b.readGolomb() // max_num_ref_frames
	b.read(1)      // gaps_in_frame_num_value_allowed_flag

	picWidthInMbsMinus1 := b.readGolomb()
	picHeightInMapUnitsMinus1 := b.readGolomb()
	frameMbsOnly := b.read(1)
	if frameMbsOnly == 0 {
		b.read(1)
	}
	b.read(1) // direct_8x8_inference_flag

	var cropLeft, cropRight, cropTop, cropBottom uint32
	if b.read(1) != 0 {
		cropLeft = b.readGolomb()
		cropRight = b.readGolomb()
		cropTop = b.readGolomb()
		cropBottom = b.readGolomb()
	}

	if b.bufpos >= b.buflen {
		// ran out of bits before the size fields were complete
		return 0, 0
	}

	width = (picWidthInMbsMinus1+1)*16 - (cropLeft+cropRight)*2
	height = (2-frameMbsOnly)*(picHeightInMapUnitsMinus1+1)*16 - (cropTop+cropBottom)*2
	return width, height
}

// rewriteAccessUnit splits a NALU run (each NALU prefixed with a
// naluLengthSize-byte big-endian length, as carried on the wire) into
// individual NAL units re-framed per format.
func rewriteAccessUnit(data []byte, naluLengthSize int, format AccessUnitFormat) ([]byte, error) {
	var out []byte
	pos := 0

	for pos < len(data) {
		if pos+naluLengthSize > len(data) {
			return nil, &ProtocolViolation{Reason: "nalu length prefix truncated"}
		}

		var length int
		switch naluLengthSize {
		case 1:
			length = int(data[pos])
		case 2:
			length = int(binary.BigEndian.Uint16(data[pos : pos+2]))
		case 4:
			length = int(binary.BigEndian.Uint32(data[pos : pos+4]))
		default:
			return nil, &ProtocolViolation{Reason: "unsupported nalu length size"}
		}
		pos += naluLengthSize

		if pos+length > len(data) {
			return nil, &ProtocolViolation{Reason: "nalu payload truncated"}
		}
		nalu := data[pos : pos+length]
		pos += length

		switch format {
		case AccessUnitAnnexB:
			out = append(out, annexBStartCode...)
			out = append(out, nalu...)
		default:
			prefix := make([]byte, naluLengthSize)
			switch naluLengthSize {
			case 1:
				prefix[0] = byte(length)
			case 2:
				binary.BigEndian.PutUint16(prefix, uint16(length))
			case 4:
				binary.BigEndian.PutUint32(prefix, uint32(length))
			}
			out = append(out, prefix...)
			out = append(out, nalu...)
		}
	}

	return out, nil
}

// encodeParameterSetNalus reframes each of nalus (raw SPS or PPS NAL units,
// as stored on AvcDecoderConfigurationRecord) per format, for prepending
// ahead of a keyframe access unit so a decoder can key in without having
// retained the original sequence header.
func encodeParameterSetNalus(nalus [][]byte, naluLengthSize int, format AccessUnitFormat) []byte {
	var out []byte
	for _, nalu := range nalus {
		switch format {
		case AccessUnitAnnexB:
			out = append(out, annexBStartCode...)
			out = append(out, nalu...)
		default:
			prefix := make([]byte, naluLengthSize)
			switch naluLengthSize {
			case 1:
				prefix[0] = byte(len(nalu))
			case 2:
				binary.BigEndian.PutUint16(prefix, uint16(len(nalu)))
			case 4:
				binary.BigEndian.PutUint32(prefix, uint32(len(nalu)))
			}
			out = append(out, prefix...)
			out = append(out, nalu...)
		}
	}
	return out
}

// isKeyframeFrameType reports whether a FLV video-tag frame-type nibble
// (the high nibble of the tag's first byte) marks a keyframe.
func isKeyframeFrameType(frameType byte) bool {
	return frameType == 1 || frameType == 4
}

// FLV video-tag codec id and AVCPacketType values (spec §4.E "Video").
const (
	avcCodecID = 7

	avcPacketTypeSequenceHeader = 0
	avcPacketTypeNALU           = 1
	avcPacketTypeEndOfSequence  = 2
)
