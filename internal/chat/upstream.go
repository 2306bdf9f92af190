package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"backend/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIStreamer streams completions from an OpenAI-compatible endpoint.
type OpenAIStreamer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIStreamer creates the upstream client from config.
func NewOpenAIStreamer(cfg *config.ChatConfig) *OpenAIStreamer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIStreamer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// Stream opens the upstream completion stream and forwards deltas. A
// pre-stream failure surfaces on the error channel before any chunk; io.EOF
// closes the stream with a final Done chunk.
func (s *OpenAIStreamer) Stream(ctx context.Context, turns []Turn) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		messages := make([]openai.ChatCompletionMessage, len(turns))
		for i, t := range turns {
			messages[i] = openai.ChatCompletionMessage{
				Role:    t.Role,
				Content: t.Content,
			}
		}

		req := openai.ChatCompletionRequest{
			Model:       s.model,
			Messages:    messages,
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
			Stream:      true,
		}

		stream, err := s.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			errChan <- fmt.Errorf("open completion stream: %w", err)
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					// A plain send could block forever once the consumer is
					// gone; cancellation must always release the goroutine.
					select {
					case chunkChan <- StreamChunk{Done: true}:
					case <-ctx.Done():
					}
					return
				}
				errChan <- fmt.Errorf("read completion stream: %w", err)
				return
			}

			if len(response.Choices) > 0 {
				select {
				case chunkChan <- StreamChunk{Content: response.Choices[0].Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return chunkChan, errChan
}
