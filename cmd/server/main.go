package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/api"
	"github.com/Harshitk-cp/mindkernel/internal/buildconfig"
	"github.com/Harshitk-cp/mindkernel/internal/config"
	"github.com/Harshitk-cp/mindkernel/internal/kernel"
	"github.com/Harshitk-cp/mindkernel/internal/telemetry"
)

func main() {
	bootLogger, _ := zap.NewProduction()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := kernel.NewLogger(cfg.LogLevel)
	if err != nil {
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	_ = bootLogger.Sync()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, "mindkernel", cfg.OTelEndpoint, buildconfig.Version())
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}
	if cfg.OTelEndpoint != "" {
		logger.Info("tracing enabled", zap.String("endpoint", cfg.OTelEndpoint))
	}

	k, err := kernel.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open kernel", zap.Error(err))
	}
	if cfg.APIToken == "" {
		logger.Warn("API_TOKEN is empty, /v1 is unauthenticated")
	}

	app := api.NewApp(k, cfg, logger)

	// Start background services
	k.Start()

	addr := cfg.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("store_driver", cfg.StoreDriver),
			zap.String("version", buildconfig.Version()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	app.Close()

	// Stop background services after in-flight requests drain.
	if err := k.Close(); err != nil {
		logger.Error("failed to close kernel", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("failed to flush traces", zap.Error(err))
	}

	logger.Info("server stopped")
}
