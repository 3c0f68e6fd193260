// Session configuration

package rtmp

import (
	"os"
	"strconv"
	"time"
)

// Config holds the tunables a NetConnection needs beyond the wire
// protocol's own negotiated state (spec §5 "Timeouts").
type Config struct {
	// HandshakeTimeout bounds the C0/C1/C2 <-> S0/S1/S2 exchange.
	HandshakeTimeout time.Duration

	// CommandTimeout bounds a single call()/connect()/attach() awaitable.
	CommandTimeout time.Duration

	// InitialChunkSize is the tx/rx chunk size before any SetChunkSize
	// message is exchanged.
	InitialChunkSize uint32

	// AudioQueueDepth and VideoQueueDepth bound the media sink adapter's
	// per-kind FIFO queues (component G).
	AudioQueueDepth int
	VideoQueueDepth int

	// PrependParameterSets controls whether the stored SPS/PPS are
	// re-emitted ahead of every keyframe access unit, so a decoder can key
	// in mid-stream without having retained the original sequence header
	// (spec §4.F).
	PrependParameterSets bool
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		CommandTimeout:   30 * time.Second,
		InitialChunkSize: 128,
		AudioQueueDepth:  128,
		VideoQueueDepth:  64,

		PrependParameterSets: true,
	}
}

// LoadConfigFromEnv starts from DefaultConfig and overrides fields from
// RTMP_CLIENT_* environment variables, falling back to the default (with
// a warning) on any malformed value. Call godotenv.Load() before this to
// seed the environment from a .env file.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("RTMP_CLIENT_HANDSHAKE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.HandshakeTimeout = time.Duration(ms) * time.Millisecond
		} else {
			LogWarning("invalid RTMP_CLIENT_HANDSHAKE_TIMEOUT_MS, using default")
		}
	}

	if v := os.Getenv("RTMP_CLIENT_COMMAND_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.CommandTimeout = time.Duration(ms) * time.Millisecond
		} else {
			LogWarning("invalid RTMP_CLIENT_COMMAND_TIMEOUT_MS, using default")
		}
	}

	if v := os.Getenv("RTMP_CLIENT_INITIAL_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InitialChunkSize = uint32(n)
		} else {
			LogWarning("invalid RTMP_CLIENT_INITIAL_CHUNK_SIZE, using default")
		}
	}

	if v := os.Getenv("RTMP_CLIENT_AUDIO_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AudioQueueDepth = n
		} else {
			LogWarning("invalid RTMP_CLIENT_AUDIO_QUEUE_DEPTH, using default")
		}
	}

	if v := os.Getenv("RTMP_CLIENT_VIDEO_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.VideoQueueDepth = n
		} else {
			LogWarning("invalid RTMP_CLIENT_VIDEO_QUEUE_DEPTH, using default")
		}
	}

	if v := os.Getenv("RTMP_CLIENT_PREPEND_PARAMETER_SETS"); v != "" {
		cfg.PrependParameterSets = v != "NO"
	}

	return cfg
}
