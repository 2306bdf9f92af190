package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"backend/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Kind selects the E5 task prefix applied to the input text.
type Kind string

const (
	// KindQuery marks search-side inputs.
	KindQuery Kind = "query"
	// KindPassage marks document-side inputs.
	KindPassage Kind = "passage"
)

const (
	prefixQuery   = "query: "
	prefixPassage = "passage: "

	// statusErrorBodyLimit caps how much of an upstream error body gets
	// carried in the error.
	statusErrorBodyLimit = 300
)

// ErrEmptyEmbedding is returned when the provider answers 200 but the payload
// holds no usable vector.
var ErrEmptyEmbedding = errors.New("embedding response contained no vector")

// StatusError is a non-retryable (or retry-exhausted) HTTP failure from the
// embedding provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding request failed with status %d: %s", e.Code, e.Body)
}

var embeddingRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "daurtani_embedding_requests_total",
		Help: "Total number of embedding API calls by outcome.",
	},
	[]string{"status"},
)

// Embedder produces L2-normalized sentence vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, kind Kind) ([][]float32, error)
}

// HFEmbedder calls a Hugging Face feature-extraction endpoint. The response
// shape varies by deployment (pooled vector, per-token matrix, or a list of
// per-token matrices for batches), so vectors are pooled and normalized
// client-side.
type HFEmbedder struct {
	endpoint    string
	token       string
	maxChars    int
	maxRetries  int
	backoffBase time.Duration
	client      *http.Client
}

// NewHFEmbedder creates an embedder from config.
func NewHFEmbedder(cfg *config.EmbeddingConfig) *HFEmbedder {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HFEmbedder{
		endpoint:    cfg.Endpoint,
		token:       cfg.Token,
		maxChars:    cfg.MaxChars,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase(),
		client:      &http.Client{Timeout: timeout},
	}
}

// EmbedQuery embeds a search query.
func (e *HFEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, prefixQuery+e.truncate(text))
}

// EmbedPassage embeds a document passage.
func (e *HFEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, prefixPassage+e.truncate(text))
}

// EmbedBatch embeds several texts in one call, preserving input order.
func (e *HFEmbedder) EmbedBatch(ctx context.Context, texts []string, kind Kind) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prefix := prefixPassage
	if kind == KindQuery {
		prefix = prefixQuery
	}
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = prefix + e.truncate(t)
	}

	raw, err := e.post(ctx, map[string]any{"inputs": inputs})
	if err != nil {
		return nil, err
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	var vectors [][]float32
	switch {
	case resp.batch != nil:
		// One per-token matrix per input.
		vectors = make([][]float32, 0, len(resp.batch))
		for _, matrix := range resp.batch {
			vectors = append(vectors, meanPool(matrix))
		}
	case resp.matrix != nil:
		// One pooled vector per input.
		vectors = resp.matrix
	case resp.vector != nil && len(texts) == 1:
		vectors = [][]float32{resp.vector}
	default:
		return nil, ErrEmptyEmbedding
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(vectors))
	}

	for i := range vectors {
		if len(vectors[i]) == 0 {
			return nil, ErrEmptyEmbedding
		}
		vectors[i] = normalize(vectors[i])
	}
	return vectors, nil
}

func (e *HFEmbedder) truncate(text string) string {
	if e.maxChars > 0 && len(text) > e.maxChars {
		return text[:e.maxChars]
	}
	return text
}

func (e *HFEmbedder) embedOne(ctx context.Context, input string) ([]float32, error) {
	raw, err := e.post(ctx, map[string]any{"inputs": input})
	if err != nil {
		return nil, err
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	var vector []float32
	switch {
	case resp.vector != nil:
		vector = resp.vector
	case resp.matrix != nil:
		vector = meanPool(resp.matrix)
	case resp.batch != nil && len(resp.batch) == 1:
		vector = meanPool(resp.batch[0])
	}
	if len(vector) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return normalize(vector), nil
}

// post sends one embedding request, retrying 429 and 5xx responses with a
// doubling backoff.
func (e *HFEmbedder) post(ctx context.Context, payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var lastStatus *StatusError
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.backoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if e.token != "" {
			req.Header.Set("Authorization", "Bearer "+e.token)
		}

		resp, err := e.client.Do(req)
		if err != nil {
			embeddingRequests.WithLabelValues("transport_error").Inc()
			return nil, fmt.Errorf("embedding request: %w", err)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			embeddingRequests.WithLabelValues("read_error").Inc()
			return nil, fmt.Errorf("read embedding response: %w", readErr)
		}

		if resp.StatusCode == http.StatusOK {
			embeddingRequests.WithLabelValues("ok").Inc()
			return data, nil
		}

		statusErr := &StatusError{Code: resp.StatusCode, Body: truncateBody(data)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastStatus = statusErr
			continue
		}
		embeddingRequests.WithLabelValues("error").Inc()
		return nil, statusErr
	}

	embeddingRequests.WithLabelValues("retry_exhausted").Inc()
	return nil, lastStatus
}

func truncateBody(data []byte) string {
	if len(data) > statusErrorBodyLimit {
		return string(data[:statusErrorBodyLimit])
	}
	return string(data)
}

// embeddingResponse is the decoded provider payload: exactly one field is
// set.
type embeddingResponse struct {
	vector []float32
	matrix [][]float32
	batch  [][][]float32
}

// parseResponse probes the three shapes the feature-extraction API can
// answer with. Empty arrays fall through to the next shape so `[]` never
// masquerades as a valid vector.
func parseResponse(data []byte) (*embeddingResponse, error) {
	var vector []float32
	if err := json.Unmarshal(data, &vector); err == nil && len(vector) > 0 {
		return &embeddingResponse{vector: vector}, nil
	}

	var matrix [][]float32
	if err := json.Unmarshal(data, &matrix); err == nil && len(matrix) > 0 && len(matrix[0]) > 0 {
		return &embeddingResponse{matrix: matrix}, nil
	}

	var batch [][][]float32
	if err := json.Unmarshal(data, &batch); err == nil && len(batch) > 0 {
		return &embeddingResponse{batch: batch}, nil
	}

	return nil, ErrEmptyEmbedding
}

// meanPool averages per-token vectors into one sentence vector.
func meanPool(matrix [][]float32) []float32 {
	if len(matrix) == 0 {
		return nil
	}
	dim := len(matrix[0])
	sums := make([]float64, dim)
	for _, row := range matrix {
		for i, v := range row {
			if i < dim {
				sums[i] += float64(v)
			}
		}
	}
	out := make([]float32, dim)
	n := float64(len(matrix))
	for i, s := range sums {
		out[i] = float32(s / n)
	}
	return out
}

// normalize scales the vector to unit length. A zero vector is left as-is
// (the norm is clamped to 1) so downstream cosine math stays finite.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
