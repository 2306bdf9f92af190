package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/api"
	authhandler "backend/api/handlers/auth"
	carthandler "backend/api/handlers/cart"
	categoryhandler "backend/api/handlers/category"
	chathandler "backend/api/handlers/chat"
	reviewhandler "backend/api/handlers/review"
	storehandler "backend/api/handlers/store"
	transactionhandler "backend/api/handlers/transaction"
	unitpricehandler "backend/api/handlers/unitprice"
	userhandler "backend/api/handlers/user"
	wastehandler "backend/api/handlers/waste"
	"backend/internal/auth"
	"backend/internal/cart"
	"backend/internal/catalog"
	"backend/internal/chat"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/order"
	"backend/internal/review"
	"backend/internal/search"
	"backend/internal/user"
	"backend/internal/worker"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// .env is optional; APP_* variables override the YAML config either way.
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting daurtani backend",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer infra.CloseDatabase()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(db); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
	}

	rdb, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("init redis", zap.Error(err))
	}
	defer infra.CloseRedis()

	jwtService := auth.NewJWTService(
		cfg.Auth.Secret,
		cfg.Auth.Issuer,
		time.Duration(cfg.Auth.AccessExpiryHours)*time.Hour,
		time.Duration(cfg.Auth.RefreshExpiryHours)*time.Hour,
		rdb,
	)

	// Task queue client doubles as the embed enqueuer for the catalog.
	queueClient := worker.NewClient(&cfg.Redis)
	defer queueClient.Close()

	// Domain services. Cart, review and vector store register their cleanup
	// hooks on the waste service, so construction order matters.
	userService := user.NewService(db, jwtService)
	wasteService := catalog.NewWasteService(db, queueClient)
	storeService := catalog.NewStoreService(db)
	unitPriceService := catalog.NewUnitPriceService(db)
	categoryService := catalog.NewCategoryService(db)
	cartService := cart.NewService(db, wasteService)
	orderService := order.NewService(db)
	reviewService := review.NewService(db, wasteService)

	embedder := search.NewHFEmbedder(&cfg.Embedding)
	vectorStore := search.NewPGVectorStore(db, wasteService)
	searchService := search.NewService(embedder, vectorStore, cfg.Search)

	streamer := chat.NewOpenAIStreamer(&cfg.Chat)
	relay := chat.NewRelay(streamer, searchService, cfg.Chat.Heartbeat(), cfg.Chat.FallbackMessage)

	handlers := &api.Handlers{
		Auth:        authhandler.NewHandler(userService, jwtService),
		User:        userhandler.NewHandler(userService),
		Store:       storehandler.NewHandler(storeService),
		Waste:       wastehandler.NewHandler(wasteService, searchService),
		UnitPrice:   unitpricehandler.NewHandler(unitPriceService),
		Cart:        carthandler.NewHandler(cartService),
		Transaction: transactionhandler.NewHandler(orderService, cartService),
		Review:      reviewhandler.NewHandler(reviewService),
		Category:    categoryhandler.NewHandler(categoryService),
		Chat:        chathandler.NewHandler(relay),
	}

	router := api.NewRouter(cfg, jwtService, db, rdb, handlers)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	workerServer := worker.NewServer(cfg, db, embedder, vectorStore, logger.Get())
	go func() {
		if err := workerServer.Run(); err != nil {
			logger.Fatal("worker server", zap.Error(err))
		}
	}()

	gracefulShutdown(server, workerServer)
}

// runMigrations migrates every persisted model. The vector column requires
// the pgvector extension, created here so fresh databases boot unattended.
func runMigrations(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create pgvector extension: %w", err)
	}

	return infra.AutoMigrate(db,
		&user.User{},
		&catalog.Store{},
		&catalog.FarmWaste{},
		&catalog.UnitPrice{},
		&catalog.CategoryGroup{},
		&catalog.Category{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Transaction{},
		&review.Review{},
		&search.WasteVector{},
	)
}

func gracefulShutdown(server *http.Server, workerServer *worker.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}

	workerServer.Shutdown()

	logger.Info("shutdown complete")
}
