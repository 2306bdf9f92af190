package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmbedder(t *testing.T, handler http.HandlerFunc) *HFEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHFEmbedder(&config.EmbeddingConfig{
		Endpoint:      srv.URL,
		Token:         "hf-test-token",
		MaxChars:      8000,
		MaxRetries:    3,
		BackoffBaseMS: 1, // keep retry tests fast
	})
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbedQueryPooledVector(t *testing.T) {
	var gotBody string
	var gotAuth string
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[3.0, 4.0]`)
	})

	vec, err := e.EmbedQuery(context.Background(), "pakan sapi")
	require.NoError(t, err)

	assert.Equal(t, "Bearer hf-test-token", gotAuth)
	assert.JSONEq(t, `{"inputs": "query: pakan sapi"}`, gotBody)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
	assert.InDelta(t, 1.0, vectorNorm(vec), 1e-6)
}

func TestEmbedPassagePerTokenMatrix(t *testing.T) {
	var gotBody string
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		// Two token vectors; mean is [3, 4].
		fmt.Fprint(w, `[[2.0, 2.0], [4.0, 6.0]]`)
	})

	vec, err := e.EmbedPassage(context.Background(), "sekam padi")
	require.NoError(t, err)

	assert.JSONEq(t, `{"inputs": "passage: sekam padi"}`, gotBody)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestEmbedBatchMatrixListShape(t *testing.T) {
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		// One per-token matrix per input.
		fmt.Fprint(w, `[[[1.0, 0.0]], [[0.0, 2.0], [0.0, 4.0]]]`)
	})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"}, KindPassage)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 1.0, vecs[0][0], 1e-6)
	assert.InDelta(t, 1.0, vecs[1][1], 1e-6)
	assert.InDelta(t, 1.0, vectorNorm(vecs[0]), 1e-6)
	assert.InDelta(t, 1.0, vectorNorm(vecs[1]), 1e-6)
}

func TestEmbedBatchPooledMatrixShapeKeepsOrder(t *testing.T) {
	var gotInputs []string
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotInputs = payload.Inputs
		fmt.Fprint(w, `[[1.0, 0.0], [0.0, 1.0]]`)
	})

	vecs, err := e.EmbedBatch(context.Background(), []string{"pertama", "kedua"}, KindQuery)
	require.NoError(t, err)

	assert.Equal(t, []string{"query: pertama", "query: kedua"}, gotInputs)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 1.0, vecs[0][0], 1e-6)
	assert.InDelta(t, 1.0, vecs[1][1], 1e-6)
}

func TestEmbedTruncatesLongInput(t *testing.T) {
	var gotLen int
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Inputs string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotLen = len(payload.Inputs)
		fmt.Fprint(w, `[1.0]`)
	})

	_, err := e.EmbedQuery(context.Background(), strings.Repeat("x", 20000))
	require.NoError(t, err)
	assert.Equal(t, len("query: ")+8000, gotLen)
}

func TestEmbedRetriesOn503(t *testing.T) {
	var calls atomic.Int32
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[1.0, 0.0]`)
	})

	vec, err := e.EmbedQuery(context.Background(), "coba")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.InDelta(t, 1.0, vec[0], 1e-6)
}

func TestEmbedRetryExhaustionReturnsStatusError(t *testing.T) {
	var calls atomic.Int32
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	})

	_, err := e.EmbedQuery(context.Background(), "coba")
	require.Error(t, err)
	// Initial attempt plus three retries.
	assert.Equal(t, int32(4), calls.Load())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, "rate limited", statusErr.Body)
}

func TestEmbedClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, strings.Repeat("e", 500))
	})

	_, err := e.EmbedQuery(context.Background(), "coba")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Len(t, statusErr.Body, 300)
}

func TestEmbedEmptyResponses(t *testing.T) {
	for name, body := range map[string]string{
		"empty array":  `[]`,
		"empty matrix": `[[]]`,
		"object":       `{"error": "loading"}`,
	} {
		t.Run(name, func(t *testing.T) {
			e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})
			_, err := e.EmbedQuery(context.Background(), "coba")
			assert.ErrorIs(t, err, ErrEmptyEmbedding)
		})
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	out := normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, out)
}
