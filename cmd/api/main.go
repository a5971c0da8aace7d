package main

// @title Fieldmap Service API
// @version 1.0.0
// @description Конвертация полевых анкет в OSM XML / GeoJSON и сборка офлайн подложек.
// @description
// @description Основные возможности:
// @description - Конвертация выгрузок сабмитов (CSV, JSON, XML) по YAML правилам
// @description - Расчет плана тайлов для AOI
// @description - Постановка сборки подложки (MBTiles, SQLiteDB, PMTiles) в очередь

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/fieldmap-service/docs"
	"github.com/fieldmap-service/internal/app"
	"github.com/fieldmap-service/internal/config"
	httpDelivery "github.com/fieldmap-service/internal/delivery/http"
	"github.com/fieldmap-service/internal/delivery/http/handler"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/fieldmap-service/internal/infrastructure/central"
	"github.com/fieldmap-service/internal/infrastructure/tileserver"
	"github.com/fieldmap-service/internal/pkg/logger"
	"github.com/fieldmap-service/internal/repository/cache"
	"github.com/fieldmap-service/internal/repository/postgresosm"
	redisRepo "github.com/fieldmap-service/internal/repository/redis"
	"github.com/fieldmap-service/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Fieldmap Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	checks := make(map[string]handler.HealthCheck)

	// 3. PostGIS с эталонными данными (опционально, нужен только для health и конфляции)
	var osmDB *postgresosm.DB
	if cfg.OSMDB.Host != "" {
		osmDB, err = postgresosm.New(&cfg.OSMDB, log)
		if err != nil {
			log.Fatal("Failed to connect to OSM PostgreSQL", zap.Error(err))
		}
		checks["postgres"] = osmDB.Health
		log.Info("OSM PostgreSQL connected")
	}

	// 4. Redis: статусы задач подложки и sticky поля
	var redisClient *cache.Redis
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		checks["redis"] = redisClient.Health
	}

	// 5. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for name, check := range checks {
		if err := check(ctx); err != nil {
			log.Fatal("Health check failed", zap.String("component", name), zap.Error(err))
		}
	}

	log.Info("All connections healthy", zap.Int("components", len(checks)))

	// 6. Initialize clients
	var survey repository.SurveyRepository
	if cfg.Central.URL != "" {
		survey = central.NewCentralClient(&cfg.Central, log)
	}
	tileClient := tileserver.NewTileClient(&cfg.Basemap, log)

	// 7. Initialize Use Cases
	convertUC, err := app.NewConvertUseCase(cfg, redisClient, survey, log)
	if err != nil {
		log.Fatal("Failed to load tag mapping", zap.Error(err))
	}

	basemapUC := usecase.NewBasemapUseCase(tileClient, cfg.Basemap, log)

	var jobUC *usecase.BasemapJobUseCase
	if redisClient != nil {
		streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)
		cacheRepo := cache.NewCacheRepository(redisClient)
		jobUC = usecase.NewBasemapJobUseCase(streamRepo, cacheRepo, cfg.Cache.JobStatusTTL, log)
	}

	log.Info("Use cases initialized")

	// 8. Initialize HTTP Handlers
	healthHandler := handler.NewHealthHandler(checks, log)
	convertHandler := handler.NewConvertHandler(convertUC, log)
	tileHandler := handler.NewTileHandler(basemapUC, log)

	var basemapHandler *handler.BasemapHandler
	if jobUC != nil {
		basemapHandler = handler.NewBasemapHandler(jobUC, log)
	} else {
		log.Warn("Redis disabled, basemap job routes are not registered")
	}

	// 9. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		healthHandler,
		convertHandler,
		tileHandler,
		basemapHandler,
	)

	// 10. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if osmDB != nil {
		if err := osmDB.Close(); err != nil {
			log.Error("Failed to close OSM database", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}

	log.Info("Server stopped successfully")
}
