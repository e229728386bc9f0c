package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// history service.
type Metrics struct {
	QueriesServed *prometheus.CounterVec // labels: report_type={metar,taf}, mode={date,recent,route}

	// Upstream feed metrics.
	FeedRequests        *prometheus.CounterVec   // labels: feed={archive,live}, outcome={success,error}
	FeedRequestDuration *prometheus.HistogramVec // labels: feed={archive,live}
	// FeedFailuresSwallowed counts transport failures folded into empty
	// results. The caller cannot distinguish "no data" from "upstream down";
	// this counter is the only place the distinction survives.
	FeedFailuresSwallowed *prometheus.CounterVec // labels: feed={archive,live}

	// Reconciliation metrics.
	BackfillDays prometheus.Histogram

	// Route fan-out metrics.
	RouteStations        prometheus.Histogram
	RouteLookupsInFlight prometheus.Gauge

	// Harvest metrics.
	ReportsHarvested prometheus.Counter
	HarvestErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.QueriesServed,
		m.FeedRequests,
		m.FeedRequestDuration,
		m.FeedFailuresSwallowed,
		m.BackfillDays,
		m.RouteStations,
		m.RouteLookupsInFlight,
		m.ReportsHarvested,
		m.HarvestErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		QueriesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "queries_served_total",
			Help:      "History queries served by report type and routing mode.",
		}, []string{"report_type", "mode"}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "feed_requests_total",
			Help:      "Upstream feed requests by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "history",
			Name:      "feed_request_duration_seconds",
			Help:      "Upstream feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"feed"}),
		FeedFailuresSwallowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "feed_failures_swallowed_total",
			Help:      "Upstream transport failures folded into empty results.",
		}, []string{"feed"}),
		BackfillDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "history",
			Name:      "backfill_days",
			Help:      "Days walked backward to satisfy a recent-N query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 7, 14, 30},
		}),
		RouteStations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "history",
			Name:      "route_stations",
			Help:      "Stations resolved per route query.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		RouteLookupsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "history",
			Name:      "route_lookups_in_flight",
			Help:      "Per-station lookups currently in flight for route queries.",
		}),
		ReportsHarvested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "reports_harvested_total",
			Help:      "Dated reports published by the harvest sweep.",
		}),
		HarvestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "harvest_errors_total",
			Help:      "Harvest sweep failures by station.",
		}),
	}
}
