package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeEmbedWaste recomputes a product's passage vector.
const TypeEmbedWaste = "waste:embed"

// EmbedWastePayload identifies the product to re-embed.
type EmbedWastePayload struct {
	WasteID string `json:"waste_id"`
}

// NewEmbedWasteTask builds the asynq task for a waste embedding recompute.
func NewEmbedWasteTask(wasteID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmbedWastePayload{WasteID: wasteID})
	if err != nil {
		return nil, fmt.Errorf("marshal embed payload: %w", err)
	}
	return asynq.NewTask(TypeEmbedWaste, payload), nil
}
