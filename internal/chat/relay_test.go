package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"backend/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures events in arrival order.
type recordingSink struct {
	events []string
	deltas []string
}

func (s *recordingSink) SendProducts(hits []search.Hit) error {
	s.events = append(s.events, "products")
	return nil
}

func (s *recordingSink) SendDelta(text string) error {
	s.events = append(s.events, "delta")
	s.deltas = append(s.deltas, text)
	return nil
}

func (s *recordingSink) SendError(message string) error {
	s.events = append(s.events, "error")
	return nil
}

func (s *recordingSink) SendDone() error {
	s.events = append(s.events, "done")
	return nil
}

func (s *recordingSink) Ping() error {
	s.events = append(s.events, "ping")
	return nil
}

// scriptedStreamer plays back fixed chunks, or fails before streaming.
type scriptedStreamer struct {
	chunks    []StreamChunk
	preErr    error
	midErr    error
	calls     atomic.Int32
	lastTurns []Turn
}

func (f *scriptedStreamer) Stream(ctx context.Context, turns []Turn) (<-chan StreamChunk, <-chan error) {
	f.calls.Add(1)
	f.lastTurns = turns

	chunkChan := make(chan StreamChunk, len(f.chunks)+1)
	errChan := make(chan error, 1)
	go func() {
		defer close(chunkChan)
		defer close(errChan)
		if f.preErr != nil {
			errChan <- f.preErr
			return
		}
		for _, c := range f.chunks {
			chunkChan <- c
		}
		if f.midErr != nil {
			errChan <- f.midErr
		}
	}()
	return chunkChan, errChan
}

type fakeRecommender struct {
	hits  []search.Hit
	err   error
	calls atomic.Int32
}

func (f *fakeRecommender) Recommend(ctx context.Context, query string) ([]search.Hit, error) {
	f.calls.Add(1)
	return f.hits, f.err
}

func userTurns(content string) []Turn {
	return []Turn{{Role: RoleUser, Content: content}}
}

func sampleHits() []search.Hit {
	return []search.Hit{{ID: "1", Title: "Sekam Padi", Slug: "sekam-padi", Score: 0.9}}
}

func TestServeProductsPrecedeDeltas(t *testing.T) {
	streamer := &scriptedStreamer{chunks: []StreamChunk{
		{Content: "Untuk sapi, "},
		{Content: "coba sekam padi."},
		{Done: true},
	}}
	rec := &fakeRecommender{hits: sampleHits()}
	relay := NewRelay(streamer, rec, time.Minute, "fallback")
	sink := &recordingSink{}

	history := []Turn{
		{Role: RoleSystem, Content: "Kamu asisten marketplace limbah tani."},
		{Role: RoleUser, Content: "halo"},
		{Role: RoleAssistant, Content: "Halo! Ada yang bisa dibantu?"},
		{Role: RoleUser, Content: "rekomendasi pakan sapi"},
	}
	err := relay.Serve(context.Background(), history, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"products", "delta", "delta", "done"}, sink.events)
	assert.Equal(t, []string{"Untuk sapi, ", "coba sekam padi."}, sink.deltas)
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, history, streamer.lastTurns, "full history goes upstream")
}

func TestServeSkipsRetrievalForSmallTalk(t *testing.T) {
	streamer := &scriptedStreamer{chunks: []StreamChunk{{Content: "Halo!"}, {Done: true}}}
	rec := &fakeRecommender{hits: sampleHits()}
	relay := NewRelay(streamer, rec, time.Minute, "fallback")
	sink := &recordingSink{}

	err := relay.Serve(context.Background(), userTurns("halo apa kabar"), sink)
	require.NoError(t, err)

	assert.Zero(t, rec.calls.Load())
	assert.Equal(t, []string{"delta", "done"}, sink.events)
}

func TestServeInvalidTurns(t *testing.T) {
	for name, turns := range map[string][]Turn{
		"empty":          {},
		"blank content":  {{Role: RoleUser, Content: ""}},
		"unknown role":   {{Role: "narrator", Content: "hi"}},
		"assistant last": {{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}},
	} {
		t.Run(name, func(t *testing.T) {
			streamer := &scriptedStreamer{}
			relay := NewRelay(streamer, nil, time.Minute, "fallback")
			sink := &recordingSink{}

			err := relay.Serve(context.Background(), turns, sink)
			require.NoError(t, err)

			assert.Equal(t, []string{"error", "done"}, sink.events)
			assert.Zero(t, streamer.calls.Load(), "upstream must not be contacted")
		})
	}
}

func TestServeRetrievalFailureIsSwallowed(t *testing.T) {
	streamer := &scriptedStreamer{chunks: []StreamChunk{{Content: "Jawaban."}, {Done: true}}}
	rec := &fakeRecommender{err: errors.New("vector store down")}
	relay := NewRelay(streamer, rec, time.Minute, "fallback")
	sink := &recordingSink{}

	err := relay.Serve(context.Background(), userTurns("rekomendasi pakan sapi"), sink)
	require.NoError(t, err)

	// No products event, but the answer still streams.
	assert.Equal(t, []string{"delta", "done"}, sink.events)
}

func TestServeCancelledBeforeUpstream(t *testing.T) {
	streamer := &scriptedStreamer{chunks: []StreamChunk{{Done: true}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	relay := NewRelay(streamer, nil, time.Minute, "fallback")
	sink := &recordingSink{}

	err := relay.Serve(ctx, userTurns("rekomendasi pakan sapi"), sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, streamer.calls.Load(), "no upstream request after disconnect")
	assert.Empty(t, sink.events, "no writes after disconnect")
}

func TestServePreStreamFailureSendsFallback(t *testing.T) {
	streamer := &scriptedStreamer{preErr: errors.New("upstream 500")}
	relay := NewRelay(streamer, nil, time.Minute, "Maaf, asisten sedang tidak dapat menjawab.")
	sink := &recordingSink{}

	err := relay.Serve(context.Background(), userTurns("rekomendasi pakan sapi"), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"delta", "done"}, sink.events)
	assert.Equal(t, []string{"Maaf, asisten sedang tidak dapat menjawab."}, sink.deltas)
}

func TestServeMidStreamFailureStopsWithoutFallback(t *testing.T) {
	streamer := &scriptedStreamer{
		chunks: []StreamChunk{{Content: "Sebagian jawaban"}},
		midErr: errors.New("connection reset"),
	}
	relay := NewRelay(streamer, nil, time.Minute, "fallback")
	sink := &recordingSink{}

	err := relay.Serve(context.Background(), userTurns("rekomendasi pakan sapi"), sink)
	require.NoError(t, err)

	// The partial answer stands; no fallback text gets appended to it.
	assert.Equal(t, []string{"delta", "done"}, sink.events)
	assert.Equal(t, []string{"Sebagian jawaban"}, sink.deltas)
}

func TestServeIgnoresEmptyDeltas(t *testing.T) {
	streamer := &scriptedStreamer{chunks: []StreamChunk{
		{Content: ""},
		{Content: "Isi"},
		{Content: ""},
		{Done: true},
	}}
	relay := NewRelay(streamer, nil, time.Minute, "fallback")
	sink := &recordingSink{}

	err := relay.Serve(context.Background(), userTurns("rekomendasi pakan sapi"), sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"delta", "done"}, sink.events)
}

func TestServeHeartbeatDuringSlowUpstream(t *testing.T) {
	// Streamer that stays silent long enough for two heartbeat ticks.
	slow := &slowStreamer{delay: 120 * time.Millisecond}
	relay := NewRelay(slow, nil, 30*time.Millisecond, "fallback")
	sink := &recordingSink{}

	err := relay.Serve(context.Background(), userTurns("rekomendasi pakan sapi"), sink)
	require.NoError(t, err)

	pings := 0
	for _, e := range sink.events {
		if e == "ping" {
			pings++
		}
	}
	assert.GreaterOrEqual(t, pings, 2)
	assert.Equal(t, "done", sink.events[len(sink.events)-1])
}

type slowStreamer struct {
	delay time.Duration
}

func (s *slowStreamer) Stream(ctx context.Context, turns []Turn) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(chunkChan)
		defer close(errChan)
		select {
		case <-time.After(s.delay):
			chunkChan <- StreamChunk{Done: true}
		case <-ctx.Done():
		}
	}()
	return chunkChan, errChan
}
