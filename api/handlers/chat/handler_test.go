package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend/internal/chat"
	"backend/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStreamer struct {
	chunks []chat.StreamChunk
	delay  time.Duration
}

func (f *fixedStreamer) Stream(ctx context.Context, turns []chat.Turn) (<-chan chat.StreamChunk, <-chan error) {
	chunkChan := make(chan chat.StreamChunk, len(f.chunks)+1)
	errChan := make(chan error, 1)
	go func() {
		defer close(chunkChan)
		defer close(errChan)
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return
			}
		}
		for _, c := range f.chunks {
			chunkChan <- c
		}
	}()
	return chunkChan, errChan
}

type fixedRecommender struct {
	hits []search.Hit
}

func (f *fixedRecommender) Recommend(ctx context.Context, query string) ([]search.Hit, error) {
	return f.hits, nil
}

func serveChat(t *testing.T, relay *chat.Relay, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))

	NewHandler(relay).Stream(c)
	return w
}

func TestStreamWireFormat(t *testing.T) {
	streamer := &fixedStreamer{chunks: []chat.StreamChunk{
		{Content: "Coba sekam padi."},
		{Done: true},
	}}
	rec := &fixedRecommender{hits: []search.Hit{{ID: "1", Title: "Sekam Padi", Slug: "sekam-padi", Score: 0.9}}}
	relay := chat.NewRelay(streamer, rec, time.Minute, "fallback")

	w := serveChat(t, relay, `{"messages":[{"role":"user","content":"rekomendasi pakan sapi"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	body := w.Body.String()
	assert.Contains(t, body, "event:products")
	assert.Contains(t, body, `"slug":"sekam-padi"`)
	assert.Contains(t, body, `data:{"content":"Coba sekam padi."}`)
	assert.True(t, strings.HasSuffix(body, "data:[DONE]\n\n"), "stream must end with the sentinel: %q", body)

	// Products render before the answer starts typing.
	assert.Less(t, strings.Index(body, "event:products"), strings.Index(body, `data:{"content"`))
}

func TestStreamInvalidBodyStaysSSE(t *testing.T) {
	relay := chat.NewRelay(&fixedStreamer{}, nil, time.Minute, "fallback")

	w := serveChat(t, relay, "{not json")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event:error")
	assert.True(t, strings.HasSuffix(body, "data:[DONE]\n\n"))
	assert.NotContains(t, body, `data:{"content"`)
}

func TestStreamHeartbeatComments(t *testing.T) {
	streamer := &fixedStreamer{
		chunks: []chat.StreamChunk{{Done: true}},
		delay:  90 * time.Millisecond,
	}
	relay := chat.NewRelay(streamer, nil, 25*time.Millisecond, "fallback")

	w := serveChat(t, relay, `{"messages":[{"role":"user","content":"halo"}]}`)

	body := w.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, ": ping\n\n"), 2)
	assert.True(t, strings.HasSuffix(body, "data:[DONE]\n\n"))
}
