// Inbound monitor listener: local dashboards connect here over websocket
// and receive the same events relayed to Redis/the remote control server.
// Access is gated by an IP allowlist, mirroring the teacher's CanPlay
// range check (rtmp_session_utils.go).

package bridge

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/netdata/go.d.plugin/pkg/iprange"

	rtmp "github.com/mntone/rtmpclient"
)

type monitorHub struct {
	ranges   []iprange.Range
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	srv *http.Server
	ln  net.Listener
}

func newMonitorHub(cfg Config) (*monitorHub, error) {
	ranges := make([]iprange.Range, 0, len(cfg.MonitorAllowedRanges))
	for _, r := range cfg.MonitorAllowedRanges {
		rang, err := iprange.ParseRange(r)
		if err != nil {
			rtmp.LogError(err)
			continue
		}
		ranges = append(ranges, rang)
	}

	hub := &monitorHub{
		ranges:  ranges,
		clients: make(map[*websocket.Conn]struct{}),
	}

	var ln net.Listener
	var err error

	if cfg.MonitorTLSCert != "" && cfg.MonitorTLSKey != "" {
		loader, lerr := newCertLoader(cfg.MonitorTLSCert, cfg.MonitorTLSKey, cfg.monitorTLSReload())
		if lerr != nil {
			return nil, lerr
		}
		ln, err = tlsListen(cfg.MonitorListenAddr, loader)
	} else {
		ln, err = net.Listen("tcp", cfg.MonitorListenAddr)
	}
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", hub.handle)
	hub.srv = &http.Server{Handler: mux}
	hub.ln = ln

	go hub.srv.Serve(ln)

	return hub, nil
}

func (h *monitorHub) allowed(remoteAddr string) bool {
	if len(h.ranges) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, r := range h.ranges {
		if r.Contains(ip) {
			return true
		}
	}
	return false
}

func (h *monitorHub) handle(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rtmp.LogWarning("[BRIDGE-MONITOR] upgrade failed: " + err.Error())
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain and discard: a monitor connection is read-only from the
	// dashboard's point of view, but the read loop must run to notice a
	// close or error.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

func (h *monitorHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, payload)
	}
}

func (h *monitorHub) close() error {
	h.mu.Lock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = nil
	h.mu.Unlock()

	return h.srv.Shutdown(context.Background())
}
