// ControlBridge mirrors a NetConnection/NetStream's event channels to
// Redis, a remote control websocket, and/or a local monitor listener. It
// only ever reads from those channels; it never writes back into the
// session, so a dashboard consumer can never affect playback.

package bridge

import (
	"sync"

	messages "github.com/AgustinSRG/go-simple-rpc-message"

	rtmp "github.com/mntone/rtmpclient"
)

// ControlBridge is the event-forwarding component described above. A
// zero-value Config attaches successfully and performs no I/O.
type ControlBridge struct {
	redis   *redisEventPublisher
	ws      *wsRelay
	monitor *monitorHub

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewControlBridge builds a bridge from cfg. Only the outputs whose
// configuration is present are started.
func NewControlBridge(cfg Config) *ControlBridge {
	b := &ControlBridge{stopCh: make(chan struct{})}

	if cfg.RedisAddr != "" {
		b.redis = newRedisEventPublisher(cfg)
	}
	if cfg.WebsocketURL != "" {
		b.ws = newWsRelay(cfg)
	}
	if cfg.MonitorListenAddr != "" {
		hub, err := newMonitorHub(cfg)
		if err != nil {
			rtmp.LogError(err)
		} else {
			b.monitor = hub
		}
	}

	return b
}

// Attach starts relaying conn's and each stream's events until Close is
// called or the underlying event channel closes.
func (b *ControlBridge) Attach(conn *rtmp.NetConnection, streams ...*rtmp.NetStream) {
	b.wg.Add(1)
	go b.runSession(conn)

	for _, s := range streams {
		b.wg.Add(1)
		go b.runStream(s)
	}
}

func (b *ControlBridge) runSession(conn *rtmp.NetConnection) {
	defer b.wg.Done()
	sub := conn.Events()

	for {
		select {
		case <-b.stopCh:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}

			var be bridgeEvent
			switch ev.Kind {
			case rtmp.SessionStatusUpdated:
				be = sessionStatusEvent(ev)
			case rtmp.SessionCallback:
				be = sessionCallbackEvent(ev)
			case rtmp.SessionClosedEvent:
				be = sessionClosedEvent()
			}
			b.dispatch(be)

			if ev.Kind == rtmp.SessionClosedEvent {
				return
			}
		}
	}
}

func (b *ControlBridge) runStream(s *rtmp.NetStream) {
	defer b.wg.Done()
	sub := s.Events()

	for {
		select {
		case <-b.stopCh:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}

			var be bridgeEvent
			switch ev.Kind {
			case rtmp.StreamAttached:
				be = streamAttachedEvent(s.StreamID())
			case rtmp.StreamStatusUpdated:
				be = streamStatusEvent(s.StreamID(), ev)
			case rtmp.StreamAudioReceived:
				be = streamAudioEvent(s.StreamID(), ev.Audio)
			case rtmp.StreamVideoReceived:
				be = streamVideoEvent(s.StreamID(), ev.Video)
			}
			b.dispatch(be)
		}
	}
}

func (b *ControlBridge) dispatch(ev bridgeEvent) {
	if ev.name == "" {
		return
	}
	if b.redis != nil {
		b.redis.publish(ev)
	}
	if b.ws != nil {
		b.ws.publish(ev)
	}
	if b.monitor != nil {
		payload := messages.RPCMessage{Method: ev.method, Params: rpcParams(ev)}.Serialize()
		b.monitor.broadcast([]byte(payload))
	}
}

// Close stops all relay loops. Idempotent.
func (b *ControlBridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stopCh)
	b.wg.Wait()

	if b.redis != nil {
		b.redis.close()
	}
	if b.ws != nil {
		b.ws.close()
	}
	if b.monitor != nil {
		return b.monitor.close()
	}
	return nil
}
