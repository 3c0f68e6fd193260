// Event formatting: translates rtmp package events into the two wire
// shapes the bridge relays them as (the Redis "name>k=v|k=v" string and
// the websocket RPC envelope).

package bridge

import (
	"strconv"
	"strings"

	rtmp "github.com/mntone/rtmpclient"
)

// kv is one ordered field of a relayed event. A slice (not a map) keeps
// the wire encoding deterministic.
type kv struct {
	key string
	val string
}

type bridgeEvent struct {
	name   string // lowercase, used as the Redis message's event prefix
	method string // upper-case, used for the websocket RPC method
	fields []kv
}

func sessionStatusEvent(ev rtmp.SessionEvent) bridgeEvent {
	return bridgeEvent{
		name:   "connection-status",
		method: "CONNECTION-STATUS",
		fields: []kv{
			{"code", ev.Code},
			{"status", strconv.Itoa(int(ev.Status))},
		},
	}
}

func sessionCallbackEvent(ev rtmp.SessionEvent) bridgeEvent {
	return bridgeEvent{
		name:   "connection-callback",
		method: "CONNECTION-CALLBACK",
		fields: []kv{
			{"name", ev.Name},
		},
	}
}

func sessionClosedEvent() bridgeEvent {
	return bridgeEvent{
		name:   "connection-closed",
		method: "CONNECTION-CLOSED",
	}
}

func streamAttachedEvent(streamID uint32) bridgeEvent {
	return bridgeEvent{
		name:   "stream-attached",
		method: "STREAM-ATTACHED",
		fields: []kv{
			{"stream-id", strconv.FormatUint(uint64(streamID), 10)},
		},
	}
}

func streamStatusEvent(streamID uint32, ev rtmp.StreamEvent) bridgeEvent {
	return bridgeEvent{
		name:   "stream-status",
		method: "STREAM-STATUS",
		fields: []kv{
			{"stream-id", strconv.FormatUint(uint64(streamID), 10)},
			{"code", ev.Code},
			{"status", strconv.Itoa(int(ev.Status))},
		},
	}
}

func streamAudioEvent(streamID uint32, sample *rtmp.AudioSample) bridgeEvent {
	return bridgeEvent{
		name:   "stream-audio",
		method: "STREAM-AUDIO",
		fields: []kv{
			{"stream-id", strconv.FormatUint(uint64(streamID), 10)},
			{"timestamp", strconv.FormatUint(uint64(sample.Timestamp), 10)},
			{"bytes", strconv.Itoa(len(sample.Data))},
		},
	}
}

// streamVideoEvent forwards video metadata only (codec, keyframe flag,
// timestamp): never the NALU bytes themselves, so the relayed payload
// stays small regardless of how the dashboard is consuming it.
func streamVideoEvent(streamID uint32, sample *rtmp.VideoSample) bridgeEvent {
	return bridgeEvent{
		name:   "stream-video",
		method: "STREAM-VIDEO",
		fields: []kv{
			{"stream-id", strconv.FormatUint(uint64(streamID), 10)},
			{"codec", "avc"},
			{"keyframe", strconv.FormatBool(sample.IsKeyframe)},
			{"dts", strconv.FormatUint(uint64(sample.DecodeTimestamp), 10)},
			{"pts", strconv.FormatUint(uint64(sample.PresentationTimestamp), 10)},
		},
	}
}

// formatRedisMessage renders "<event>>key1=value1|key2=value2", the same
// delimiter scheme used for the command channel, inverted to a publisher.
func formatRedisMessage(ev bridgeEvent) string {
	parts := make([]string, len(ev.fields))
	for i, f := range ev.fields {
		parts[i] = f.key + "=" + f.val
	}
	return ev.name + ">" + strings.Join(parts, "|")
}

func rpcParams(ev bridgeEvent) map[string]string {
	params := make(map[string]string, len(ev.fields))
	for _, f := range ev.fields {
		params[f.key] = f.val
	}
	return params
}
