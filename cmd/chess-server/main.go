package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/app"
	appcfg "github.com/vladiouz/on-chain-chess/internal/config"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/internal/telemetry"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.Init(obslog.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Console: cfg.LogConsole,
		File:    cfg.LogFile,
		Caller:  cfg.LogCaller,
	}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		logger.Fatal("tracing_init_failed", zap.Error(err))
	}

	deps, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("arena_init_failed", zap.Error(err))
	}

	feedSrv := &http.Server{
		Addr:              cfg.FeedAddr,
		Handler:           deps.Hub,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- deps.API.ListenAndServe(cfg.HTTPAddr)
	}()
	go func() {
		logger.Info("feed_listen", zap.String("addr", cfg.FeedAddr))
		if err := feedSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		logger.Error("listener_failed", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.API.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := feedSrv.Shutdown(sctx); err != nil {
		logger.Warn("feed_shutdown_failed", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("deps_close_failed", zap.Error(err))
	}
	if err := shutdownTracing(sctx); err != nil {
		logger.Warn("tracing_shutdown_failed", zap.Error(err))
	}
}
