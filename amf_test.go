package rtmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmf0NumberRoundTrip(t *testing.T) {
	encoded := amf0EncodeOne(newAMF0Number(3.5))
	s := &amfDecodeStream{buffer: encoded}
	v, err := s.readOne()
	require.NoError(t, err)
	require.Equal(t, 3.5, v.GetDouble())
}

func TestAmf0StringRoundTrip(t *testing.T) {
	encoded := amf0EncodeOne(newAMF0String("live/stream1"))
	s := &amfDecodeStream{buffer: encoded}
	v, err := s.readOne()
	require.NoError(t, err)
	require.Equal(t, "live/stream1", v.GetString())
}

func TestAmf0ObjectRoundTrip(t *testing.T) {
	obj := newAMF0Object()
	obj.objVal["app"] = newAMF0String("live")
	obj.objVal["tcUrl"] = newAMF0String("rtmp://example.com/live")
	obj.objVal["audioChannels"] = newAMF0Number(2)

	encoded := amf0EncodeOne(obj)
	s := &amfDecodeStream{buffer: encoded}
	v, err := s.readOne()
	require.NoError(t, err)

	require.Equal(t, "live", v.GetProperty("app").GetString())
	require.Equal(t, "rtmp://example.com/live", v.GetProperty("tcUrl").GetString())
	require.Equal(t, float64(2), v.GetProperty("audioChannels").GetDouble())
	require.True(t, v.GetProperty("missing").IsNull() == false) // undefined, not null
}

func TestAmf0NullAndUndefined(t *testing.T) {
	require.True(t, newAMF0Null().IsNull())
	require.False(t, newAMF0Undefined().IsNull())
}

func TestCommandEncodeDecode(t *testing.T) {
	connectObject := newAMF0Object()
	connectObject.objVal["app"] = newAMF0String("live")

	payload := encodeCommand("connect", 1, connectObject)
	cmd, err := decodeCommand(payload)
	require.NoError(t, err)

	require.Equal(t, "connect", cmd.name)
	require.Equal(t, float64(1), cmd.transactionID)
	require.Equal(t, "live", cmd.at(0).GetProperty("app").GetString())
	require.True(t, cmd.at(1).IsNull() == false) // out of range -> undefined, not null
}

func TestBuildCreateStreamCommand(t *testing.T) {
	payload := buildCreateStreamCommand(2)
	cmd, err := decodeCommand(payload)
	require.NoError(t, err)
	require.Equal(t, "createStream", cmd.name)
	require.Equal(t, float64(2), cmd.transactionID)
	require.True(t, cmd.at(0).IsNull())
}

func TestNewConnectObject(t *testing.T) {
	obj := NewConnectObject("live", "rtmp://example.com/live")
	require.Equal(t, "connect", obj.GetProperty("type").GetString())
	require.Equal(t, "live", obj.GetProperty("app").GetString())
	require.Equal(t, "rtmp://example.com/live", obj.GetProperty("tcUrl").GetString())
	require.True(t, obj.GetProperty("flashVer").GetString() != "")
}

func TestBuildPlayCommand(t *testing.T) {
	payload := buildPlayCommand("stream1", PlayStartLiveOrRecorded, PlayDurationEntireStream)
	cmd, err := decodeCommand(payload)
	require.NoError(t, err)
	require.Equal(t, "play", cmd.name)
	require.Equal(t, "stream1", cmd.at(1).GetString())
	require.Equal(t, PlayStartLiveOrRecorded, cmd.at(2).GetDouble())
	require.Equal(t, PlayDurationEntireStream, cmd.at(3).GetDouble())
}
