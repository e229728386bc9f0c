// Package harvest periodically sweeps the live feed for configured stations
// and publishes the dated reports it finds, feeding the archive ingest
// pipeline with data the bulk source will not carry until later. The request
// path of the history API persists nothing; harvesting runs as its own
// binary.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/history"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
)

// ReportPublisher delivers harvested reports downstream.
type ReportPublisher interface {
	PublishReports(ctx context.Context, kind domain.ReportKind, station string, reports []domain.DatedReport) error
}

// Harvester runs the scheduled sweep.
type Harvester struct {
	live      history.LiveSource
	publisher ReportPublisher
	stations  []string
	clock     clockwork.Clock
	scheduler *gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Harvester for the configured stations.
func New(cfg *config.Config, live history.LiveSource, publisher ReportPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Harvester {
	return &Harvester{
		live:      live,
		publisher: publisher,
		stations:  cfg.HarvestStations,
		clock:     clock,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  cfg.HarvestInterval,
		timeout:   cfg.FeedTimeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the periodic sweep and runs one immediately.
func (h *Harvester) Start() error {
	if len(h.stations) == 0 {
		return errors.New("no harvest stations configured")
	}
	_, err := h.scheduler.Every(h.interval).Do(func() {
		if err := h.Sweep(context.Background()); err != nil {
			h.logger.Error("harvest sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule harvest sweep: %w", err)
	}
	h.scheduler.StartAsync()
	h.logger.Info("harvester started", "stations", len(h.stations), "interval", h.interval)
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (h *Harvester) Stop() {
	h.scheduler.Stop()
}

// CheckReadiness returns nil once a sweep has published at least one
// station's reports.
func (h *Harvester) CheckReadiness(_ context.Context) error {
	if !h.ready.Load() {
		return errors.New("harvester has not completed a sweep yet")
	}
	return nil
}

// Sweep fetches and publishes recent reports for every configured station
// and both report kinds. Station failures are isolated: one unreachable
// station is counted and skipped without aborting the rest of the sweep.
func (h *Harvester) Sweep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout*time.Duration(len(h.stations)+1))
	defer cancel()

	kinds := []domain.ReportKind{domain.KindMETAR, domain.KindTAF}
	published := 0
	for _, station := range h.stations {
		for _, kind := range kinds {
			n, err := h.sweepStation(ctx, kind, station)
			if err != nil {
				h.metrics.HarvestErrors.Inc()
				h.logger.Warn("station sweep failed", "station", station, "report_type", kind, "error", err)
				continue
			}
			published += n
		}
	}

	if published > 0 {
		h.ready.Store(true)
	}
	h.logger.Info("harvest sweep complete", "reports", published)
	return ctx.Err()
}

func (h *Harvester) sweepStation(ctx context.Context, kind domain.ReportKind, station string) (int, error) {
	raws, err := h.live.Recent(ctx, kind, station)
	if err != nil {
		return 0, err
	}

	now := h.clock.Now().UTC()
	reports := make([]domain.DatedReport, 0, len(raws))
	for _, raw := range raws {
		date, ok := domain.ReportDate(raw, now)
		if !ok {
			continue
		}
		reports = append(reports, domain.DatedReport{Date: date, Raw: raw})
	}
	if len(reports) == 0 {
		return 0, nil
	}

	if err := h.publisher.PublishReports(ctx, kind, station, reports); err != nil {
		return 0, fmt.Errorf("publish %s reports: %w", kind, err)
	}
	h.metrics.ReportsHarvested.Add(float64(len(reports)))
	return len(reports), nil
}
