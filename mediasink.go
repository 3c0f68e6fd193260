// Media sink adapter: single-producer/single-consumer bounded queues
// feeding pull-based sample requests from a media framework (spec §4.G).

package rtmp

import (
	"context"
	"sync"
)

// mediaQueue is a bounded FIFO with a high-watermark drop policy: video
// drops the oldest non-keyframe first, falling back to the oldest frame
// if every queued frame is a keyframe; audio always drops the oldest.
type mediaQueue struct {
	mu      sync.Mutex
	items   []any
	limit   int
	closed  bool
	isVideo bool
	notify  chan struct{}
}

func newMediaQueue(limit int, isVideo bool) *mediaQueue {
	return &mediaQueue{
		limit:   limit,
		isVideo: isVideo,
		notify:  make(chan struct{}, 1),
	}
}

func (q *mediaQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *mediaQueue) push(item any) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if len(q.items) >= q.limit {
		q.dropOne()
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// dropOne removes one item to make room for an incoming one. Caller
// holds q.mu.
func (q *mediaQueue) dropOne() {
	if q.isVideo {
		for i, it := range q.items {
			if vs, ok := it.(*VideoSample); ok && !vs.IsKeyframe {
				q.items = append(q.items[:i], q.items[i+1:]...)
				return
			}
		}
	}
	q.items = q.items[1:]
}

func (q *mediaQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// pull blocks until an item is available, the queue closes, or ctx is
// done.
func (q *mediaQueue) pull(ctx context.Context) (any, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, &EndOfStream{}
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// SampleKind selects which queue a media pull request reads from.
type SampleKind int

const (
	SampleAudio SampleKind = iota
	SampleVideo
)

// mediaSink owns a stream's audio and video queues (spec §4.G).
type mediaSink struct {
	audio *mediaQueue
	video *mediaQueue
}

func newMediaSink(audioDepth, videoDepth int) *mediaSink {
	return &mediaSink{
		audio: newMediaQueue(audioDepth, false),
		video: newMediaQueue(videoDepth, true),
	}
}

// RequestSample blocks until a sample of the requested kind is available,
// the sink closes (returning EndOfStream), or ctx is cancelled.
func (s *mediaSink) RequestSample(ctx context.Context, kind SampleKind) (any, error) {
	switch kind {
	case SampleAudio:
		return s.audio.pull(ctx)
	case SampleVideo:
		return s.video.pull(ctx)
	default:
		return nil, &InvalidArgument{Reason: "unknown sample kind"}
	}
}

func (s *mediaSink) pushAudio(sample *AudioSample) {
	s.audio.push(sample)
}

func (s *mediaSink) pushVideo(sample *VideoSample) {
	s.video.push(sample)
}

func (s *mediaSink) close() {
	s.audio.close()
	s.video.close()
}
