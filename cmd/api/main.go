package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/aviation-history/internal/adapter/agron"
	"github.com/couchcryptid/aviation-history/internal/adapter/aviationweather"
	httpadapter "github.com/couchcryptid/aviation-history/internal/adapter/http"
	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/history"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/couchcryptid/aviation-history/internal/station"
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

	archive := agron.NewClient(cfg, metrics, logger)
	live := aviationweather.NewClient(cfg, metrics, logger)
	routes := station.NewResolver()

	fetcher := history.NewFetcher(cfg, archive, live, routes, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, fetcher, fetcher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
