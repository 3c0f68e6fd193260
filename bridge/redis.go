// Redis event publisher: the inverse of the teacher's command subscriber
// (redis_cmds.go) -- this side PUBLISHes instead of SUBSCRIBEs, using the
// same "name>k=v|k=v" message shape.

package bridge

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	rtmp "github.com/mntone/rtmpclient"
)

// redisEventPublisher publishes formatted event strings to one Redis
// channel, retrying the connection every 10s on failure (matching the
// teacher's setupRedisCommandReceiver retry loop).
type redisEventPublisher struct {
	channel string

	mu     sync.Mutex
	client *redis.Client
	closed bool

	queue chan string
	done  chan struct{}
}

func newRedisEventPublisher(cfg Config) *redisEventPublisher {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{}
	}

	p := &redisEventPublisher{
		channel: cfg.redisChannel(),
		client:  redis.NewClient(opts),
		queue:   make(chan string, 256),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *redisEventPublisher) run() {
	ctx := context.Background()
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.queue:
			p.publishWithRetry(ctx, msg)
		}
	}
}

func (p *redisEventPublisher) publishWithRetry(ctx context.Context, msg string) {
	for {
		p.mu.Lock()
		client := p.client
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return
		}

		if err := client.Publish(ctx, p.channel, msg).Err(); err != nil {
			rtmp.LogWarning("[BRIDGE-REDIS] publish failed, retrying in 10s: " + err.Error())
			select {
			case <-p.done:
				return
			case <-time.After(10 * time.Second):
				continue
			}
		}
		return
	}
}

func (p *redisEventPublisher) publish(ev bridgeEvent) {
	msg := formatRedisMessage(ev)
	select {
	case p.queue <- msg:
	default:
		rtmp.LogWarning("[BRIDGE-REDIS] publish queue full, dropping event " + ev.name)
	}
}

func (p *redisEventPublisher) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	p.client.Close()
}
