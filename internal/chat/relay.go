package chat

import (
	"context"
	"time"

	"backend/internal/logger"
	"backend/internal/search"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "daurtani_chat_streams_active",
	Help: "Number of chat streams currently open.",
})

// Relay drives one chat request: validate the history, optionally retrieve
// product recommendations, then forward the upstream completion to the sink.
// All sink writes happen on the calling goroutine so the sink never needs to
// be concurrency-safe.
type Relay struct {
	upstream    Streamer
	recommender Recommender
	heartbeat   time.Duration
	fallback    string
}

// NewRelay creates a relay. recommender may be nil to disable retrieval.
func NewRelay(upstream Streamer, recommender Recommender, heartbeat time.Duration, fallback string) *Relay {
	if heartbeat <= 0 {
		heartbeat = 20 * time.Second
	}
	return &Relay{
		upstream:    upstream,
		recommender: recommender,
		heartbeat:   heartbeat,
		fallback:    fallback,
	}
}

// Serve runs the full request lifecycle against the sink. It returns the
// context's error when the client disconnected, nil otherwise; upstream and
// retrieval failures are handled by emitting events, not by failing Serve.
func (r *Relay) Serve(ctx context.Context, turns []Turn, sink Sink) error {
	activeStreams.Inc()
	defer activeStreams.Dec()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	if err := ValidateTurns(turns); err != nil {
		// One terminal error event; the upstream is never contacted.
		_ = sink.SendError("Permintaan tidak valid.")
		_ = sink.SendDone()
		return nil
	}

	hits := r.retrieve(ctx, turns, sink, ticker)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(hits) > 0 {
		// Products go out before the first token so the client can render
		// cards while the answer types.
		if err := sink.SendProducts(hits); err != nil {
			return err
		}
	}

	// Re-check before opening the upstream stream: a client that already
	// hung up must not cost an upstream request.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	chunks, errs := r.upstream.Stream(ctx, turns)
	sentDelta := false

	// Drain chunks first and only consult the error channel once the chunk
	// channel closes. The streamer buffers its single error and closes both
	// channels, so this keeps pending deltas ahead of the failure handling.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sink.Ping(); err != nil {
				return err
			}
		case chunk, ok := <-chunks:
			if !ok {
				return r.finish(ctx, errs, sink, sentDelta)
			}
			if chunk.Done {
				_ = sink.SendDone()
				return nil
			}
			if chunk.Content == "" {
				continue
			}
			if err := sink.SendDelta(chunk.Content); err != nil {
				return err
			}
			sentDelta = true
		}
	}
}

// finish closes out the stream after the chunk channel drained: a trailing
// upstream error turns into the fallback sentence when nothing was said yet,
// and the terminal done event goes out either way.
func (r *Relay) finish(ctx context.Context, errs <-chan error, sink Sink, sentDelta bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-errs:
		if ok && err != nil {
			logger.Warn("chat upstream failed",
				zap.Bool("mid_stream", sentDelta),
				zap.Error(err),
			)
			if !sentDelta && r.fallback != "" {
				_ = sink.SendDelta(r.fallback)
			}
		}
	}
	_ = sink.SendDone()
	return nil
}

// retrieve runs product retrieval concurrently while keeping heartbeats
// flowing. Retrieval failures are logged and swallowed; the chat answer
// must not die because the vector store hiccuped.
func (r *Relay) retrieve(ctx context.Context, turns []Turn, sink Sink, ticker *time.Ticker) []search.Hit {
	if r.recommender == nil {
		return nil
	}
	query := LastUserMessage(turns)
	if !search.WantsRecommendations(query) {
		return nil
	}

	type result struct {
		hits []search.Hit
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		hits, err := r.recommender.Recommend(ctx, query)
		resultCh <- result{hits: hits, err: err}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sink.Ping(); err != nil {
				return nil
			}
		case res := <-resultCh:
			if res.err != nil {
				logger.Warn("product retrieval failed", zap.Error(res.err))
				return nil
			}
			return res.hits
		}
	}
}
