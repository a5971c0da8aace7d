package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/infrastructure/tileserver"
	"github.com/fieldmap-service/internal/pkg/logger"
	"github.com/fieldmap-service/internal/repository/cache"
	redisRepo "github.com/fieldmap-service/internal/repository/redis"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/worker"
	"github.com/fieldmap-service/internal/worker/basemap"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Basemap Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.String("tile_dir", cfg.Basemap.TileDir),
		zap.String("output_dir", cfg.Basemap.OutputDir),
		zap.Int("fetch_workers", cfg.Basemap.Workers))

	// 3. Connect to Redis: кеш статусов и отдельный клиент для стримов
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	streamsClient, err := cache.NewRedisStreams(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis Streams", zap.Error(err))
	}
	defer func() {
		if err := streamsClient.Close(); err != nil {
			log.Error("Failed to close Redis Streams connection", zap.Error(err))
		}
	}()

	// 4. Initialize repositories
	streamRepo := redisRepo.NewStreamRepository(streamsClient, log)
	cacheRepo := cache.NewCacheRepository(redisClient)
	tileClient := tileserver.NewTileClient(&cfg.Basemap, log)

	// 5. Initialize use cases
	basemapUC := usecase.NewBasemapUseCase(tileClient, cfg.Basemap, log)
	jobUC := usecase.NewBasemapJobUseCase(streamRepo, cacheRepo, cfg.Cache.JobStatusTTL, log)

	// 6. Initialize workers
	basemapWorker := basemap.NewBasemapWorker(
		streamRepo,
		basemapUC,
		jobUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.MaxRetries,
		log,
	)

	// 7. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(basemapWorker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 8. Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancel()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
