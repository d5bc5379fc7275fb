package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	serverMetrics "adserver/app/echo-server/metrics"
	"adserver/app/echo-server/router"
	"adserver/business/dynconfig"
	"adserver/business/prediction"
	"adserver/business/tiercache"
	"adserver/internal/middleware"
	redisRepo "adserver/internal/repository/redis"
	"adserver/internal/rest"
	"adserver/pkg/config"
	redisdb "adserver/pkg/database/redis"
	"adserver/pkg/logger"
	"adserver/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logSinks []io.Writer
	if cfg.App.LogFile != "" {
		f, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logSinks = append(logSinks, f)
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel, logSinks...)
	logger.Info("Starting ad server", "name", cfg.App.Name, "version", cfg.App.Version)

	metrics.Init()
	serverMetrics.Init()

	rdb, err := redisdb.Connect(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer redisdb.Close(rdb)

	logger.Info("Redis connected successfully")

	// Init repo
	store := redisRepo.NewStore(rdb)
	expRepo := redisRepo.NewExperimentRepository(rdb)

	var signals prediction.Signals = prediction.Unsupported{}
	if cfg.Predict.SignalsBackend == "redis" {
		signals = redisRepo.NewSignalsRepository(rdb)
	}

	// Init dynamic config
	dyn := dynconfig.New(store,
		dynconfig.WithFetchTimeout(cfg.DynConfig.FetchTimeout),
		dynconfig.WithFetchAttempts(cfg.DynConfig.FetchAttempts),
	)
	dynconfig.RegisterDefaults(dyn)

	cache := tiercache.New(expRepo, expRepo, tiercache.Options{
		TTL:         cfg.Cache.TTL,
		IdleTTL:     cfg.Cache.IdleTTL,
		CallTimeout: cfg.Predict.SignalCallTimeout,
	})
	defer cache.Close()

	monitor := dynconfig.NewMonitor(dyn, cfg.DynConfig.RefreshInterval)
	flush := func(ctx context.Context) {
		version := prediction.ParseBaseConfig(dyn.GetHash(dynconfig.KeyExpBase), time.Now()).Version
		if err := cache.Flush(ctx, version); err != nil {
			logger.Warn("Failed to persist ad id membership", "version", version, "error", err)
		}
	}
	if err := monitor.AddJob("membership-flush", cfg.Cache.MembershipFlushInterval, flush); err != nil {
		logger.Fatal("Failed to schedule membership flush", "error", err)
	}
	if err := monitor.Start(); err != nil {
		logger.Fatal("Failed to start config monitor", "error", err)
	}

	// Init service
	predictionService := prediction.NewPredictionService(dyn, cache, signals, prediction.Options{
		SignalTimeout: cfg.Predict.SignalCallTimeout,
		Concurrency:   cfg.Predict.Concurrency,
	})

	// Init handler
	predictHandler := rest.NewPredictHandler(predictionService, dyn)
	adminHandler := rest.NewAdminHandler(cache, expRepo)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.Trace())

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	router.SetPredictRoutes(e, predictHandler)
	router.SetAdminRoutes(e, adminHandler, cfg.Admin.JWTSecret)
	router.SetMetricsRoutes(e)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	monitor.Stop()
	flush(ctx)

	logger.Info("Server stopped")
}
