package rtmp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMediaQueueAudioDropsOldest(t *testing.T) {
	q := newMediaQueue(2, false)
	q.push(&AudioSample{Timestamp: 1})
	q.push(&AudioSample{Timestamp: 2})
	q.push(&AudioSample{Timestamp: 3}) // over the limit: drops timestamp 1

	ctx := context.Background()
	first, err := q.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(2), first.(*AudioSample).Timestamp)

	second, err := q.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(3), second.(*AudioSample).Timestamp)
}

func TestMediaQueueVideoDropsOldestNonKeyframeFirst(t *testing.T) {
	q := newMediaQueue(2, true)
	q.push(&VideoSample{DecodeTimestamp: 1, IsKeyframe: true})
	q.push(&VideoSample{DecodeTimestamp: 2, IsKeyframe: false})
	q.push(&VideoSample{DecodeTimestamp: 3, IsKeyframe: false}) // drops #2, the oldest non-keyframe

	ctx := context.Background()
	first, err := q.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), first.(*VideoSample).DecodeTimestamp)

	second, err := q.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(3), second.(*VideoSample).DecodeTimestamp)
}

func TestMediaQueueVideoDropsOldestWhenAllKeyframes(t *testing.T) {
	q := newMediaQueue(2, true)
	q.push(&VideoSample{DecodeTimestamp: 1, IsKeyframe: true})
	q.push(&VideoSample{DecodeTimestamp: 2, IsKeyframe: true})
	q.push(&VideoSample{DecodeTimestamp: 3, IsKeyframe: true}) // no non-keyframe to drop: falls back to oldest

	first, err := q.pull(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(2), first.(*VideoSample).DecodeTimestamp)
}

func TestMediaQueuePullBlocksThenReceives(t *testing.T) {
	q := newMediaQueue(4, false)

	resultCh := make(chan any, 1)
	go func() {
		v, err := q.pull(context.Background())
		if err == nil {
			resultCh <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.push(&AudioSample{Timestamp: 42})

	select {
	case v := <-resultCh:
		require.Equal(t, uint32(42), v.(*AudioSample).Timestamp)
	case <-time.After(time.Second):
		t.Fatal("pull did not unblock after push")
	}
}

func TestMediaQueuePullCancelledByContext(t *testing.T) {
	q := newMediaQueue(4, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.pull(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMediaQueuePullEndOfStreamAfterClose(t *testing.T) {
	q := newMediaQueue(4, false)
	q.push(&AudioSample{Timestamp: 1})
	q.close()

	v, err := q.pull(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(1), v.(*AudioSample).Timestamp)

	_, err = q.pull(context.Background())
	require.IsType(t, &EndOfStream{}, err)
}

func TestMediaSinkRequestSampleRoutesByKind(t *testing.T) {
	s := newMediaSink(4, 4)
	s.pushAudio(&AudioSample{Timestamp: 7})
	s.pushVideo(&VideoSample{DecodeTimestamp: 9})

	a, err := s.RequestSample(context.Background(), SampleAudio)
	require.NoError(t, err)
	require.Equal(t, uint32(7), a.(*AudioSample).Timestamp)

	v, err := s.RequestSample(context.Background(), SampleVideo)
	require.NoError(t, err)
	require.Equal(t, uint32(9), v.(*VideoSample).DecodeTimestamp)
}
