package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/classboard-api/api/swagger"
	"github.com/noah-isme/classboard-api/internal/handler"
	"github.com/noah-isme/classboard-api/internal/middleware"
	"github.com/noah-isme/classboard-api/internal/repository"
	"github.com/noah-isme/classboard-api/internal/service"
	"github.com/noah-isme/classboard-api/pkg/cache"
	"github.com/noah-isme/classboard-api/pkg/config"
	"github.com/noah-isme/classboard-api/pkg/database"
	"github.com/noah-isme/classboard-api/pkg/export"
	"github.com/noah-isme/classboard-api/pkg/jobs"
	"github.com/noah-isme/classboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classboard-api/pkg/middleware/requestid"
)

// @title Classboard API
// @version 0.1.0
// @description Per-teacher day queues with cascade scheduling, optimisation and stats
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	snapshotRepo := repository.NewSnapshotRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	eventRepo := repository.NewEventRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Classboard.StatsCacheTTL, logr, redisClient != nil)
	locks := service.NewQueueLocks()

	statsSvc := service.NewStatsService(snapshotRepo, settingsRepo, cacheSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr, cfg.Classboard)

	statsJobs := jobs.NewQueue("classboard-stats", statsSvc.RebuildJobHandler(), jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	statsJobs.Start(context.Background())
	defer statsJobs.Stop()

	boardSvc := service.NewClassboardService(snapshotRepo, settingsRepo, eventRepo, cacheSvc, metricsSvc, statsJobs, locks, nil, logr, cfg.Classboard)
	adjustmentSvc := service.NewAdjustmentService(snapshotRepo, settingsRepo, eventRepo, cacheSvc, metricsSvc, locks, nil, logr, cfg.Classboard)

	boardHandler := handler.NewClassboardHandler(boardSvc)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	schools := api.Group("/schools/:schoolId")
	{
		board := schools.Group("/classboard")
		board.GET("", boardHandler.Board)
		board.GET("/teachers/:teacherId", boardHandler.TeacherQueue)
		board.POST("/teachers/:teacherId/events", boardHandler.InsertEvent)
		board.POST("/teachers/:teacherId/optimise", boardHandler.Optimise)
		board.DELETE("/events/:eventId", boardHandler.RemoveEvent)
		board.PATCH("/events/:eventId", boardHandler.UpdateEvent)
		board.POST("/global-shift", adjustmentHandler.Shift)
		board.PUT("/global-shift/opt-outs/:teacherId", adjustmentHandler.SetOptOut)
		board.GET("/stats", statsHandler.Stats)
		board.GET("/stats/export", statsHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
