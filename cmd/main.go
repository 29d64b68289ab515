package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"neowatch/internal/clients"
	"neowatch/internal/config"
	"neowatch/internal/handlers"
	"neowatch/internal/middleware"
	"neowatch/internal/observability"
	"neowatch/internal/repository"
	"neowatch/internal/service"
	"neowatch/internal/worker"
	"neowatch/pkg/database"
	"neowatch/pkg/logger"
	"neowatch/pkg/redis"
)

func main() {
	// Загрузка .env
	envErr := godotenv.Load()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	logg, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer func() { _ = logg.Sync() }()

	if envErr != nil {
		logg.Info("No .env file found, using environment variables")
	}
	logg.Info("=== NEO Watch Backend Starting ===", zap.String("db_driver", cfg.DB.Driver))

	// Подключение к БД
	db, err := database.Connect(cfg.DB, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// Автомиграция моделей
	if err := database.Migrate(db, logg); err != nil {
		logg.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis нужен только для кэша запросов
	cacheRepo := repository.NewNoopCacheRepository()
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		client, err := redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logg)
		if err != nil {
			logg.Warn("Redis unavailable, query cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			redisClient = client
			cacheRepo = repository.NewCacheRepository(client)
		}
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	// Инициализация репозиториев
	neoRepo := repository.NewNEORepository(db)
	cometRepo := repository.NewCometRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	nasaClient := clients.NewNASAClient(clients.NASAConfig{
		APIKey:    cfg.NASA.APIKey,
		NEOURL:    cfg.NASA.NEOURL,
		CometsURL: cfg.NASA.CometsURL,
		Timeout:   cfg.NASA.Timeout,
	})

	// Инициализация сервисов
	ingestService := service.NewIngestService(
		nasaClient, neoRepo, cometRepo, snapshotRepo, cacheRepo,
		clock, metrics, logg,
		service.IngestConfig{
			WindowDays:        cfg.Sync.WindowDays,
			Workers:           cfg.Sync.Workers,
			SnapshotRetention: cfg.Sync.SnapshotRetention,
		},
	)
	queryService := service.NewQueryService(neoRepo, cometRepo, cacheRepo, cfg.Sync.QueryCacheTTL, metrics, logg)
	reportService := service.NewReportService(neoRepo, cfg.Export.OutputDir, clock, logg)

	// Фоновая синхронизация по расписанию
	scheduler := worker.NewScheduler(logg)
	if cfg.Workers.SyncEnabled {
		syncWorker, err := worker.NewSyncWorker(ingestService, worker.SyncWorkerConfig{
			Schedule:   cfg.Workers.SyncSchedule,
			Timeout:    cfg.Sync.Timeout,
			RunOnStart: true,
		}, logg)
		if err != nil {
			logg.Fatal("Failed to create sync worker", zap.Error(err))
		}
		scheduler.AddWorker(syncWorker)
		logg.Info("Sync worker enabled", zap.String("schedule", cfg.Workers.SyncSchedule))
	}
	scheduler.Start()
	defer scheduler.Stop(10 * time.Second)

	// Инициализация Gin
	var r *gin.Engine
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		r = gin.Default()
		logg.Info("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
		r = gin.New()
		r.Use(gin.Recovery())
	}
	r.Use(middleware.RequestLogger(logg.Named("http"), metrics))

	// CORS для фронтенда
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting (только для продакшена)
	if !cfg.App.Debug {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter, logg))
		logg.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	handlers.RegisterRoutes(r, handlers.Handlers{
		Sync: handlers.NewSyncHandler(ingestService, logg),
		NEO:  handlers.NewNEOHandler(queryService, reportService, logg),
		System: handlers.NewSystemHandler(db, redisClient, queryService, handlers.WorkerInfo{
			SyncEnabled:  cfg.Workers.SyncEnabled,
			SyncSchedule: cfg.Workers.SyncSchedule,
		}, clock, logg),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.Timeout + 15*time.Second, // POST /sync держит соединение весь проход
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("Server starting",
			zap.String("addr", "http://localhost:"+cfg.App.Port),
			zap.String("api", "/api/v1"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	logg.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logg.Error("Server forced to shutdown", zap.Error(err))
	}

	logg.Info("Server exited properly")
}
