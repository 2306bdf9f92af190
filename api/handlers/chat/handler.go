package chat

import (
	"io"

	"backend/internal/chat"
	"backend/internal/logger"
	"backend/internal/search"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// doneSentinel terminates every stream, mirroring the upstream provider's
// convention so existing EventSource clients need no special casing.
const doneSentinel = "[DONE]"

// Handler serves the streaming chat endpoint.
type Handler struct {
	relay *chat.Relay
}

// NewHandler creates the chat handler.
func NewHandler(relay *chat.Relay) *Handler {
	return &Handler{relay: relay}
}

type chatRequest struct {
	Messages []chat.Turn `json:"messages"`
}

// Stream handles POST /chat. The response is an SSE stream: an optional named
// "products" event, then unnamed content-delta events, closed by a [DONE]
// sentinel. Malformed request bodies still get an SSE error so EventSource
// clients see a well-formed stream.
func (h *Handler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sink := &sseSink{writer: c.Writer}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = sink.SendError("Permintaan tidak valid.")
		_ = sink.SendDone()
		return
	}

	if err := h.relay.Serve(c.Request.Context(), req.Messages, sink); err != nil {
		// Client went away mid-stream; nothing left to write.
		logger.Debug("chat stream ended", zap.Error(err))
	}
}

// sseSink writes relay events to the HTTP response. Serve calls it from a
// single goroutine, so no locking is needed.
type sseSink struct {
	writer gin.ResponseWriter
}

func (s *sseSink) SendProducts(hits []search.Hit) error {
	return s.send(sse.Event{Event: "products", Data: hits})
}

func (s *sseSink) SendDelta(text string) error {
	return s.send(sse.Event{Data: gin.H{"content": text}})
}

func (s *sseSink) SendError(message string) error {
	return s.send(sse.Event{Event: "error", Data: gin.H{"error": message}})
}

func (s *sseSink) SendDone() error {
	return s.send(sse.Event{Data: doneSentinel})
}

// Ping writes an SSE comment line. Comments are ignored by EventSource but
// keep proxies from idling out the connection.
func (s *sseSink) Ping() error {
	if _, err := io.WriteString(s.writer, ": ping\n\n"); err != nil {
		return err
	}
	s.writer.Flush()
	return nil
}

func (s *sseSink) send(ev sse.Event) error {
	if err := sse.Encode(s.writer, ev); err != nil {
		return err
	}
	s.writer.Flush()
	return nil
}
