package worker

import (
	"context"

	"backend/internal/config"
	"backend/internal/search"
	"backend/internal/worker/handlers"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server runs the background task queue.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewServer wires the asynq server and its handlers.
func NewServer(
	cfg *config.Config,
	db *gorm.DB,
	embedder search.Embedder,
	vectors *search.PGVectorStore,
	logger *zap.Logger,
) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"embeddings": 5,
				"default":    1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()

	embedHandler := handlers.NewEmbedHandler(db, embedder, vectors, logger)
	mux.HandleFunc(tasks.TypeEmbedWaste, embedHandler.HandleEmbedWaste)

	return &Server{server: srv, mux: mux, logger: logger}
}

// Run starts the worker and blocks.
func (s *Server) Run() error {
	s.logger.Info("worker server starting")
	return s.server.Run(s.mux)
}

// Start starts the worker without blocking.
func (s *Server) Start() error {
	s.logger.Info("worker server starting in background")
	return s.server.Start(s.mux)
}

// Shutdown stops the worker gracefully.
func (s *Server) Shutdown() {
	s.logger.Info("worker server stopping")
	s.server.Shutdown()
}
