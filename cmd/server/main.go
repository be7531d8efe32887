package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docchat/internal/config"
	"docchat/internal/database"
	"docchat/internal/handlers"
	"docchat/internal/middleware"
	"docchat/internal/repository"
	"docchat/internal/router"
	"docchat/internal/services"
	"docchat/internal/websocket"
	"docchat/internal/worker"
	"docchat/migrations"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting docchat server", zap.String("env", cfg.Env))

	// ──── PostgreSQL ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}
	defer pool.Close()
	logger.Info("postgres connected")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logger.Info("database migrations applied")

	// ──── Redis ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	defer redisClients.Close()
	logger.Info("redis connected")

	// ──── Gemini ────
	gemini, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel, cfg.GeminiConcurrentReqs, logger)
	if err != nil {
		return fmt.Errorf("gemini client initialization failed: %w", err)
	}
	defer gemini.Close()
	logger.Info("gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Repositories and services ────
	documentRepo := repository.NewDocumentRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	coordinator := services.NewRedisCoordinator(redisClients.Queue)

	documentService := services.NewDocumentService(
		documentRepo,
		services.NewFileExtractService(),
		services.NewTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		gemini,
		coordinator,
		coordinator,
		cfg.StoragePath,
		logger,
	)
	qaService := services.NewQAService(
		documentRepo,
		chatRepo,
		gemini,
		gemini,
		services.NewRetriever(cfg.RetrievalK, cfg.RetrievalFetchK, cfg.RetrievalLambda),
		coordinator,
		coordinator,
		cfg.ChatHistoryTurns,
		logger,
	)

	// ──── HTTP ────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := websocket.NewHub(redisClients.PubSub, services.StatusChannel, logger)
	r := router.New(router.Handlers{
		Documents: handlers.NewDocumentHandler(documentService, cfg.MaxUploadMB, logger),
		Chat:      handlers.NewChatHandler(qaService, logger),
		Hub:       hub,
	}, router.DefaultLimits, middleware.NewMetrics(registry), registry)
	defer r.Close()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		// Uploads are processed before the response is written.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	workers := worker.NewPool(coordinator, documentService, cfg.WorkerCount, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		workers.Start(gctx)
		<-gctx.Done()
		workers.Stop()
		return nil
	})

	g.Go(func() error {
		logger.Info("docchat ready", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
