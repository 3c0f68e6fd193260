// Outbound relay to a remote control server, shaped after the teacher's
// ControlServerConnection: connect, reconnect after 10s, heartbeat every
// 20s, RPC-framed messages.

package bridge

import (
	"net/http"
	"sync"
	"time"

	messages "github.com/AgustinSRG/go-simple-rpc-message"
	"github.com/gorilla/websocket"

	rtmp "github.com/mntone/rtmpclient"
)

type wsRelay struct {
	url       string
	authToken string

	mu      sync.Mutex
	conn    *websocket.Conn
	stopped bool

	stopCh chan struct{}
}

func newWsRelay(cfg Config) *wsRelay {
	r := &wsRelay{
		url:       cfg.WebsocketURL,
		authToken: makeAuthToken(cfg.AuthSecret),
		stopCh:    make(chan struct{}),
	}
	go r.connect()
	go r.runHeartbeatLoop()
	return r
}

func (r *wsRelay) connect() {
	r.mu.Lock()
	if r.stopped || r.conn != nil {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	rtmp.LogInfo("[BRIDGE-WS] Connecting to " + r.url)

	headers := http.Header{}
	if r.authToken != "" {
		headers.Set("x-control-auth-token", r.authToken)
	}

	conn, _, err := websocket.DefaultDialer.Dial(r.url, headers)
	if err != nil {
		rtmp.LogWarning("[BRIDGE-WS] connection error: " + err.Error())
		go r.reconnect()
		return
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	go r.runReaderLoop(conn)
}

func (r *wsRelay) reconnect() {
	select {
	case <-r.stopCh:
		return
	case <-time.After(10 * time.Second):
		r.connect()
	}
}

func (r *wsRelay) onDisconnect(err error) {
	r.mu.Lock()
	r.conn = nil
	stopped := r.stopped
	r.mu.Unlock()

	if err != nil {
		rtmp.LogInfo("[BRIDGE-WS] disconnected: " + err.Error())
	}
	if !stopped {
		go r.reconnect()
	}
}

func (r *wsRelay) runReaderLoop(conn *websocket.Conn) {
	for {
		_, body, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			r.onDisconnect(err)
			return
		}
		msg := messages.ParseRPCMessage(string(body))
		if msg.Method == "ERROR" {
			rtmp.LogWarning("[BRIDGE-WS] remote error: " + msg.GetParam("Error-Message"))
		}
	}
}

func (r *wsRelay) runHeartbeatLoop() {
	for {
		select {
		case <-r.stopCh:
			return
		case <-time.After(20 * time.Second):
			r.send(messages.RPCMessage{Method: "HEARTBEAT"})
		}
	}
}

func (r *wsRelay) send(msg messages.RPCMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return false
	}
	return r.conn.WriteMessage(websocket.TextMessage, []byte(msg.Serialize())) == nil
}

func (r *wsRelay) publish(ev bridgeEvent) {
	r.send(messages.RPCMessage{Method: ev.method, Params: rpcParams(ev)})
}

func (r *wsRelay) close() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	close(r.stopCh)
	if conn != nil {
		conn.Close()
	}
}
