package chat

import (
	"context"
	"errors"

	"backend/internal/search"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message of the conversation history the client sends.
type Turn struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ErrInvalidTurns is returned when the history cannot be relayed upstream.
var ErrInvalidTurns = errors.New("invalid chat history")

// ValidateTurns checks the client-supplied history: non-empty, known roles,
// no blank contents, and the last turn must come from the user.
func ValidateTurns(turns []Turn) error {
	if len(turns) == 0 {
		return ErrInvalidTurns
	}
	for _, t := range turns {
		switch t.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return ErrInvalidTurns
		}
		if t.Content == "" {
			return ErrInvalidTurns
		}
	}
	if turns[len(turns)-1].Role != RoleUser {
		return ErrInvalidTurns
	}
	return nil
}

// LastUserMessage returns the content of the most recent user turn.
func LastUserMessage(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Content
		}
	}
	return ""
}

// StreamChunk is one piece of the upstream completion.
type StreamChunk struct {
	Content string
	Done    bool
}

// Streamer produces the assistant's reply as a chunk stream. The channels
// close when the stream ends; at most one error is sent.
type Streamer interface {
	Stream(ctx context.Context, turns []Turn) (<-chan StreamChunk, <-chan error)
}

// Recommender resolves a user message into product hits.
type Recommender interface {
	Recommend(ctx context.Context, query string) ([]search.Hit, error)
}

// Sink receives the relay's output events. The SSE handler implements it;
// tests record calls.
type Sink interface {
	SendProducts(hits []search.Hit) error
	SendDelta(text string) error
	SendError(message string) error
	SendDone() error
	Ping() error
}
