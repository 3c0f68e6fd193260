// Event bridge configuration: every field is optional, and a zero-value
// Config disables all outbound/inbound I/O (nothing configured, nothing
// dialed, nothing listened on).

package bridge

import "time"

// Config controls which of the bridge's outputs are active.
type Config struct {
	// RedisAddr, if set, enables publishing lifecycle events to Redis
	// pub/sub (host:port, e.g. "localhost:6379").
	RedisAddr     string
	RedisPassword string
	RedisChannel  string // default "rtmp_client_events"
	RedisTLS      bool

	// WebsocketURL, if set, enables relaying events to a remote control
	// server over a websocket connection.
	WebsocketURL string

	// AuthSecret signs the bearer token sent with the outbound websocket
	// connection's x-control-auth-token header. Empty means no token.
	AuthSecret string

	// MonitorListenAddr, if set, exposes a local websocket endpoint that
	// dashboards can connect to and receive the same relayed events.
	MonitorListenAddr   string
	MonitorAllowedRanges []string // CIDR/range strings; empty means allow all
	MonitorTLSCert       string
	MonitorTLSKey        string
	MonitorTLSReload     time.Duration // cert reload check interval, default 60s
}

func (c Config) redisChannel() string {
	if c.RedisChannel != "" {
		return c.RedisChannel
	}
	return "rtmp_client_events"
}

func (c Config) monitorTLSReload() time.Duration {
	if c.MonitorTLSReload > 0 {
		return c.MonitorTLSReload
	}
	return 60 * time.Second
}
