package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/aviation-history/internal/adapter/aviationweather"
	httpadapter "github.com/couchcryptid/aviation-history/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/aviation-history/internal/adapter/kafka"
	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/harvest"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	live := aviationweather.NewClient(cfg, metrics, logger)
	publisher := kafkaadapter.NewPublisher(cfg, logger)

	harvester := harvest.New(cfg, live, publisher, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewOpsServer(cfg.HTTPAddr, harvester, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := harvester.Start(); err != nil {
		logger.Error("failed to start harvester", "error", err)
		stop()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	harvester.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka publisher close error", "error", err)
	}

	logger.Info("shutdown complete")
}
