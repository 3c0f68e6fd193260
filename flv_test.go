package rtmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlvFileHeaderFlags(t *testing.T) {
	h := FlvFileHeader(true, true)
	require.Equal(t, []byte{'F', 'L', 'V'}, h[:3])
	require.Equal(t, byte(0x05), h[4])

	h = FlvFileHeader(false, true)
	require.Equal(t, byte(0x01), h[4])

	h = FlvFileHeader(true, false)
	require.Equal(t, byte(0x04), h[4])
}

func TestEncodeFlvTagRoundTrip(t *testing.T) {
	payload := []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0xde, 0xad, 0xbe, 0xef}
	tag := EncodeFlvTag(FlvTagTypeVideo, payload, 0x01020304)

	require.Equal(t, byte(FlvTagTypeVideo), tag[0])

	dataSize := uint32(tag[1])<<16 | uint32(tag[2])<<8 | uint32(tag[3])
	require.Equal(t, uint32(len(payload)), dataSize)

	ts := uint32(tag[4])<<16 | uint32(tag[5])<<8 | uint32(tag[6]) | uint32(tag[7])<<24
	require.Equal(t, uint32(0x01020304), ts)

	require.Equal(t, payload, tag[11:11+len(payload)])

	tagSize := uint32(11 + len(payload))
	prevSize := uint32(tag[tagSize])<<24 | uint32(tag[tagSize+1])<<16 | uint32(tag[tagSize+2])<<8 | uint32(tag[tagSize+3])
	require.Equal(t, tagSize, prevSize)
	require.Len(t, tag, int(tagSize)+4)
}
