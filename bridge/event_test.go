package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	rtmp "github.com/mntone/rtmpclient"
)

func TestFormatRedisMessageSessionStatus(t *testing.T) {
	ev := sessionStatusEvent(rtmp.SessionEvent{
		Kind:   rtmp.SessionStatusUpdated,
		Status: rtmp.NetStatusConnectSuccess,
		Code:   "NetConnection.Connect.Success",
	})

	require.Equal(t, "connection-status>code=NetConnection.Connect.Success|status=1", formatRedisMessage(ev))
}

func TestFormatRedisMessageStreamVideoOmitsPayload(t *testing.T) {
	ev := streamVideoEvent(4, &rtmp.VideoSample{
		Data:                  []byte{1, 2, 3, 4, 5, 6, 7, 8},
		DecodeTimestamp:       100,
		PresentationTimestamp: 140,
		IsKeyframe:            true,
	})

	msg := formatRedisMessage(ev)
	require.Contains(t, msg, "stream-video>")
	require.Contains(t, msg, "keyframe=true")
	require.NotContains(t, msg, string([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestRpcParamsRoundTrip(t *testing.T) {
	ev := streamAudioEvent(1, &rtmp.AudioSample{Timestamp: 7, Data: []byte{0xaf}})
	params := rpcParams(ev)
	require.Equal(t, "1", params["stream-id"])
	require.Equal(t, "7", params["timestamp"])
	require.Equal(t, "1", params["bytes"])
}
