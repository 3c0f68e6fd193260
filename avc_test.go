package rtmp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// sps/pps fixture: a real 352x288 H.264 SPS/PPS pair.
var (
	testSPS = []byte{
		0x67, 0x64, 0x00, 0x0c, 0xac, 0x3b, 0x50, 0xb0,
		0x4b, 0x42, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00,
		0x00, 0x03, 0x00, 0x3d, 0x08,
	}
	testPPS = []byte{0x68, 0xee, 0x3c, 0x80}
)

func buildTestAvcDecoderConfigurationRecord() []byte {
	buf := []byte{0x01, testSPS[1], testSPS[2], testSPS[3], 0xff, 0xe1}

	spsLen := make([]byte, 2)
	binary.BigEndian.PutUint16(spsLen, uint16(len(testSPS)))
	buf = append(buf, spsLen...)
	buf = append(buf, testSPS...)

	buf = append(buf, 0x01)
	ppsLen := make([]byte, 2)
	binary.BigEndian.PutUint16(ppsLen, uint16(len(testPPS)))
	buf = append(buf, ppsLen...)
	buf = append(buf, testPPS...)

	return buf
}

func TestParseAvcDecoderConfigurationRecord(t *testing.T) {
	rec, err := parseAvcDecoderConfigurationRecord(buildTestAvcDecoderConfigurationRecord())
	require.NoError(t, err)

	require.Equal(t, byte(1), rec.ConfigurationVersion)
	require.Equal(t, 4, rec.NaluLengthSize)
	require.Len(t, rec.SPS, 1)
	require.Len(t, rec.PPS, 1)
	require.Equal(t, testSPS, rec.SPS[0])
	require.Equal(t, testPPS, rec.PPS[0])
}

func TestParseAvcDecoderConfigurationRecordTooShort(t *testing.T) {
	_, err := parseAvcDecoderConfigurationRecord([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestRewriteAccessUnitLengthPrefixed(t *testing.T) {
	nalu1 := []byte{0x65, 0xaa, 0xbb}
	nalu2 := []byte{0x41, 0xcc}

	var in []byte
	l1 := make([]byte, 4)
	binary.BigEndian.PutUint32(l1, uint32(len(nalu1)))
	in = append(in, l1...)
	in = append(in, nalu1...)
	l2 := make([]byte, 4)
	binary.BigEndian.PutUint32(l2, uint32(len(nalu2)))
	in = append(in, l2...)
	in = append(in, nalu2...)

	out, err := rewriteAccessUnit(in, 4, AccessUnitLengthPrefixed)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestRewriteAccessUnitAnnexB(t *testing.T) {
	nalu := []byte{0x65, 0xaa, 0xbb}
	in := append([]byte{0x00, 0x00, 0x00, 0x03}, nalu...)

	out, err := rewriteAccessUnit(in, 4, AccessUnitAnnexB)
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, annexBStartCode...), nalu...), out)
}

func TestRewriteAccessUnitTruncated(t *testing.T) {
	_, err := rewriteAccessUnit([]byte{0, 0, 0, 10, 1, 2}, 4, AccessUnitLengthPrefixed)
	require.Error(t, err)
}

func TestEncodeParameterSetNalusLengthPrefixed(t *testing.T) {
	out := encodeParameterSetNalus([][]byte{testSPS, testPPS}, 4, AccessUnitLengthPrefixed)

	spsLen := binary.BigEndian.Uint32(out[0:4])
	require.Equal(t, uint32(len(testSPS)), spsLen)
	require.Equal(t, testSPS, out[4:4+len(testSPS)])

	rest := out[4+len(testSPS):]
	ppsLen := binary.BigEndian.Uint32(rest[0:4])
	require.Equal(t, uint32(len(testPPS)), ppsLen)
	require.Equal(t, testPPS, rest[4:4+len(testPPS)])
}

func TestEncodeParameterSetNalusAnnexB(t *testing.T) {
	out := encodeParameterSetNalus([][]byte{testSPS}, 4, AccessUnitAnnexB)
	require.Equal(t, append(append([]byte{}, annexBStartCode...), testSPS...), out)
}

func TestIsKeyframeFrameType(t *testing.T) {
	require.True(t, isKeyframeFrameType(1))
	require.True(t, isKeyframeFrameType(4))
	require.False(t, isKeyframeFrameType(2))
}
