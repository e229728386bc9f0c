// Package history reconciles the archive and live feeds into deduplicated,
// deterministically ordered report lists for single-station and route
// queries.
//
// Source routing follows recency: dates inside the live feed's scrape window
// are seeded from the live feed, anything older from the archive. When a
// query asks for the N most recent reports, the working set is back-filled
// one day at a time walking backward until it holds more than N distinct
// reports, the first empty day is hit, or the lookback bound runs out.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/couchcryptid/aviation-history/internal/report"
	"github.com/jonboulle/clockwork"
)

// liveWindow is how close to today a requested date must be before the live
// feed is consulted instead of the archive.
const liveWindow = 48 * time.Hour

// ArchiveSource is the bulk historical feed, queried by date.
type ArchiveSource interface {
	ByDate(ctx context.Context, station string, date domain.Date) ([]domain.DatedReport, error)
	DateRange(ctx context.Context, station string, start, end domain.Date) ([]domain.DatedReport, error)
}

// LiveSource is the near-real-time scrape feed. It has no date filter;
// callers date each raw report via its embedded timestamp token.
type LiveSource interface {
	Recent(ctx context.Context, kind domain.ReportKind, station string) ([]string, error)
}

// RouteSource expands flight-route waypoints into an ordered station list.
type RouteSource interface {
	StationsAlongRoute(route []string, distance float64) ([]string, error)
}

// Fetcher manages fetching historic reports across both feeds.
type Fetcher struct {
	archive ArchiveSource
	live    LiveSource
	routes  RouteSource
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	maxLookbackDays  int
	routeConcurrency int
}

// NewFetcher wires a Fetcher from its collaborators.
func NewFetcher(cfg *config.Config, archive ArchiveSource, live LiveSource, routes RouteSource, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		archive:          archive,
		live:             live,
		routes:           routes,
		clock:            clock,
		logger:           logger,
		metrics:          metrics,
		maxLookbackDays:  cfg.MaxLookbackDays,
		routeConcurrency: cfg.RouteConcurrency,
	}
}

// CheckReadiness satisfies the HTTP server's readiness probe. The fetcher
// keeps no state between queries, so it is ready as soon as it exists.
func (f *Fetcher) CheckReadiness(_ context.Context) error { return nil }

// Resolve answers a single-station query: route to the right feed(s),
// deduplicate, order descending by (date, raw), and hand each report to the
// parser or sanitizer. Parser failures propagate; upstream transport
// failures have already been folded into empty results by then.
func (f *Fetcher) Resolve(ctx context.Context, q domain.Query) ([]Result, error) {
	if strings.TrimSpace(q.Station) == "" {
		return nil, fmt.Errorf("%w: station is required", domain.ErrInvalidStation)
	}

	today := domain.DateOf(f.clock.Now())
	date := q.Date
	if date.IsZero() {
		date = today
	}

	var set domain.ReportSet
	mode := "date"
	switch {
	case q.Recent > 0:
		mode = "recent"
		set = f.recent(ctx, q.Kind, q.Station, date, q.Recent)
	case date == today:
		// The archive lags by at least a day; today's reports only exist in
		// the live feed. Near midnight the feed can still return yesterday's
		// tail, so keep only entries dated today.
		set = domain.NewReportSet()
		for _, r := range f.liveDated(ctx, q.Kind, q.Station) {
			if r.Date == today {
				set[r] = struct{}{}
			}
		}
	default:
		set = domain.NewReportSet()
		set.Union(f.archiveByDate(ctx, q.Station, date))
	}
	f.metrics.QueriesServed.WithLabelValues(q.Kind.String(), mode).Inc()

	reports := set.SortedDesc()
	if q.Recent > 0 && len(reports) > q.Recent {
		reports = reports[:q.Recent]
	}
	return f.render(q, reports)
}

// recent accumulates the working set for a recent-N query: seed from the
// feed matching the requested date's recency, then back-fill archive days
// walking backward. A single empty day halts the walk, as does the lookback
// bound, which guarantees termination even if the upstream never returns an
// empty day.
func (f *Fetcher) recent(ctx context.Context, kind domain.ReportKind, stationCode string, date domain.Date, count int) domain.ReportSet {
	today := domain.DateOf(f.clock.Now())
	set := domain.NewReportSet()

	if today.Time().Sub(date.Time()) < liveWindow {
		set.Union(f.liveDated(ctx, kind, stationCode))
	} else {
		set.Union(f.archiveByDate(ctx, stationCode, date))
	}

	days := 0
	cursor := date
	for len(set) <= count && days < f.maxLookbackDays {
		cursor = cursor.AddDays(-1)
		days++
		day := f.archiveByDate(ctx, stationCode, cursor)
		if len(day) == 0 {
			break
		}
		set.Union(day)
	}
	f.metrics.BackfillDays.Observe(float64(days))
	return set
}

// liveDated pulls the live feed and dates each raw report via its timestamp
// token. Reports with no token cannot be dated and are discarded.
func (f *Fetcher) liveDated(ctx context.Context, kind domain.ReportKind, stationCode string) []domain.DatedReport {
	raws, err := f.live.Recent(ctx, kind, stationCode)
	if err != nil {
		f.swallow("live", stationCode, err)
		return nil
	}
	now := f.clock.Now().UTC()
	out := make([]domain.DatedReport, 0, len(raws))
	for _, raw := range raws {
		date, ok := domain.ReportDate(raw, now)
		if !ok {
			continue
		}
		out = append(out, domain.DatedReport{Date: date, Raw: raw})
	}
	return out
}

// archiveByDate fetches one archive day, folding transport failures into an
// empty result per the compatibility contract. The swallow point records the
// distinction the response cannot carry.
func (f *Fetcher) archiveByDate(ctx context.Context, stationCode string, date domain.Date) []domain.DatedReport {
	reports, err := f.archive.ByDate(ctx, stationCode, date)
	if err != nil {
		f.swallow("archive", stationCode, err)
		return nil
	}
	return reports
}

func (f *Fetcher) swallow(feed, stationCode string, err error) {
	f.metrics.FeedFailuresSwallowed.WithLabelValues(feed).Inc()
	f.logger.Warn("feed failure folded into empty result",
		"feed", feed,
		"station", stationCode,
		"error", err,
	)
}

// render maps ordered dated reports to result items per the query's parse
// flag. A parse failure is a correctness signal and propagates.
func (f *Fetcher) render(q domain.Query, reports []domain.DatedReport) ([]Result, error) {
	results := make([]Result, 0, len(reports))
	if q.Parse {
		parser := report.ParserFor(q.Kind)
		for _, r := range reports {
			parsed, err := parser.Parse(r.Raw, r.Date)
			if err != nil {
				return nil, fmt.Errorf("station %s, %s: %w", q.Station, r.Date, err)
			}
			results = append(results, Result{Parsed: parsed})
		}
		return results, nil
	}
	for _, r := range reports {
		results = append(results, Result{Raw: report.Sanitize(r.Raw, q.Kind)})
	}
	return results, nil
}
