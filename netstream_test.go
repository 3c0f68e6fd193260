package rtmp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestNetStream(t *testing.T, cfg Config) *NetStream {
	t.Helper()
	nc, _ := newTestNetConnection(t)
	return newNetStream(nc, cfg)
}

func sequenceHeaderPayload(t *testing.T) []byte {
	t.Helper()
	body := buildTestAvcDecoderConfigurationRecord()
	payload := []byte{0x17, avcPacketTypeSequenceHeader, 0, 0, 0}
	return append(payload, body...)
}

func naluPayload(nalu []byte, keyframe bool) []byte {
	frameType := byte(2)
	if keyframe {
		frameType = 1
	}
	payload := []byte{frameType<<4 | avcCodecID, avcPacketTypeNALU, 0, 0, 0}
	length := make([]byte, 4)
	length[3] = byte(len(nalu))
	payload = append(payload, length...)
	return append(payload, nalu...)
}

func TestHandleVideoPrependsParameterSetsOnKeyframe(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrependParameterSets = true
	s := newTestNetStream(t, cfg)

	s.handleVideo(sequenceHeaderPayload(t), 0)

	nalu := []byte{0x65, 0xaa, 0xbb}
	s.handleVideo(naluPayload(nalu, true), 100)

	sample, err := s.RequestSample(context.Background(), SampleVideo)
	require.NoError(t, err)
	v := sample.(*VideoSample)
	require.True(t, v.IsKeyframe)

	expected := encodeParameterSetNalus([][]byte{testSPS}, 4, AccessUnitLengthPrefixed)
	expected = append(expected, encodeParameterSetNalus([][]byte{testPPS}, 4, AccessUnitLengthPrefixed)...)
	expected = append(expected, naluPayload(nalu, true)[5:]...)
	require.Equal(t, expected, v.Data)
}

func TestHandleVideoOmitsParameterSetsOnNonKeyframe(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrependParameterSets = true
	s := newTestNetStream(t, cfg)

	s.handleVideo(sequenceHeaderPayload(t), 0)

	nalu := []byte{0x41, 0xcc}
	s.handleVideo(naluPayload(nalu, false), 100)

	sample, err := s.RequestSample(context.Background(), SampleVideo)
	require.NoError(t, err)
	v := sample.(*VideoSample)
	require.False(t, v.IsKeyframe)
	require.Equal(t, naluPayload(nalu, false)[5:], v.Data)
}

func TestHandleVideoSkipsPrependWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrependParameterSets = false
	s := newTestNetStream(t, cfg)

	s.handleVideo(sequenceHeaderPayload(t), 0)

	nalu := []byte{0x65, 0xaa, 0xbb}
	s.handleVideo(naluPayload(nalu, true), 100)

	sample, err := s.RequestSample(context.Background(), SampleVideo)
	require.NoError(t, err)
	v := sample.(*VideoSample)
	require.Equal(t, naluPayload(nalu, true)[5:], v.Data)
}
