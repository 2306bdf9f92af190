package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/catalog"
	"backend/internal/search"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmbedHandler recomputes waste passage vectors.
type EmbedHandler struct {
	db       *gorm.DB
	embedder search.Embedder
	vectors  *search.PGVectorStore
	logger   *zap.Logger
}

// NewEmbedHandler creates the handler.
func NewEmbedHandler(db *gorm.DB, embedder search.Embedder, vectors *search.PGVectorStore, logger *zap.Logger) *EmbedHandler {
	return &EmbedHandler{db: db, embedder: embedder, vectors: vectors, logger: logger}
}

// HandleEmbedWaste embeds the product's passage basis and upserts the
// vector. A waste deleted between enqueue and execution is not an error.
func (h *EmbedHandler) HandleEmbedWaste(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmbedWastePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal embed payload: %v: %w", err, asynq.SkipRetry)
	}

	var waste catalog.FarmWaste
	err := h.db.WithContext(ctx).Where("id = ?", payload.WasteID).First(&waste).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Info("waste gone before embedding, skipping",
			zap.String("waste_id", payload.WasteID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load waste: %w", err)
	}

	vector, err := h.embedder.EmbedPassage(ctx, waste.PassageBasis())
	if err != nil {
		return fmt.Errorf("embed waste %s: %w", waste.ID, err)
	}

	if err := h.vectors.Upsert(ctx, waste.ID, vector); err != nil {
		return err
	}

	h.logger.Info("waste vector updated",
		zap.String("waste_id", waste.ID),
		zap.String("slug", waste.Slug),
	)
	return nil
}
