package worker

import (
	"context"
	"fmt"

	"backend/internal/config"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks. It implements catalog.EmbedEnqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient creates the task queue client.
func NewClient(cfg *config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// EnqueueWasteEmbed schedules a passage-vector recompute for the waste.
func (c *Client) EnqueueWasteEmbed(ctx context.Context, wasteID string) error {
	task, err := tasks.NewEmbedWasteTask(wasteID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue("embeddings"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("enqueue embed task: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
