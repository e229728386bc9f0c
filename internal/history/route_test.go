package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/couchcryptid/aviation-history/internal/report"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoute_FailureIsolation(t *testing.T) {
	date := domain.Date{Year: 2023, Month: time.January, Day: 5}
	clock := clockwork.NewFakeClockAt(time.Date(2023, time.January, 10, 12, 0, 0, 0, time.UTC))

	// KBOS fails at the transport level; its siblings must be unaffected.
	archive := &archiveStub{byDate: func(station string, d domain.Date) ([]domain.DatedReport, error) {
		if station == "KBOS" {
			return nil, errors.New("upstream 502")
		}
		return []domain.DatedReport{{Date: d, Raw: station + " 051251Z 28009KT 10SM CLR"}}, nil
	}}
	routes := &routeStub{stations: []string{"KJFK", "KBOS", "KORD"}}
	f := newTestFetcher(archive, &liveStub{}, routes, clock)

	out, err := f.ResolveRoute(context.Background(), domain.RouteQuery{
		Query: domain.Query{Kind: domain.KindMETAR, Date: date},
		Route: []string{"KJFK", "KBOS", "KORD"},
	})
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Contains(t, out, "KJFK")
	assert.Contains(t, out, "KORD")
	assert.NotContains(t, out, "KBOS", "a station whose feeds failed is omitted, not errored")
}

func TestResolveRoute_ConcurrencyBound(t *testing.T) {
	date := domain.Date{Year: 2023, Month: time.January, Day: 5}
	clock := clockwork.NewFakeClockAt(time.Date(2023, time.January, 10, 12, 0, 0, 0, time.UTC))

	var (
		inFlight    int
		maxInFlight int
	)
	archive := &archiveStub{}
	archive.byDate = func(station string, d domain.Date) ([]domain.DatedReport, error) {
		archive.mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		archive.mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		archive.mu.Lock()
		inFlight--
		archive.mu.Unlock()
		return []domain.DatedReport{{Date: d, Raw: station + " 051251Z 28009KT"}}, nil
	}

	stations := []string{"KJFK", "KBOS", "KORD", "KLAX", "KSEA", "KDEN", "KPHX", "KMIA"}
	cfg := &config.Config{MaxLookbackDays: 30, RouteConcurrency: 3}
	f := NewFetcher(cfg, archive, &liveStub{}, &routeStub{stations: stations}, clock,
		discardLogger(), observability.NewMetricsForTesting())

	out, err := f.ResolveRoute(context.Background(), domain.RouteQuery{
		Query: domain.Query{Kind: domain.KindMETAR, Date: date},
		Route: stations,
	})
	require.NoError(t, err)

	assert.Len(t, out, len(stations))
	assert.LessOrEqual(t, maxInFlight, 3, "station lookups beyond the bound must queue")
}

func TestResolveRoute_RouteSourceError(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2023, time.January, 10, 12, 0, 0, 0, time.UTC))
	f := newTestFetcher(&archiveStub{}, &liveStub{}, &routeStub{err: errors.New("bad waypoint")}, clock)

	_, err := f.ResolveRoute(context.Background(), domain.RouteQuery{
		Query: domain.Query{Kind: domain.KindMETAR},
		Route: []string{"???"},
	})
	assert.Error(t, err)
}

func TestResolveRoute_ParseErrorAfterSiblings(t *testing.T) {
	date := domain.Date{Year: 2023, Month: time.January, Day: 5}
	clock := clockwork.NewFakeClockAt(time.Date(2023, time.January, 10, 12, 0, 0, 0, time.UTC))

	archive := &archiveStub{byDate: func(station string, d domain.Date) ([]domain.DatedReport, error) {
		if station == "KBOS" {
			return []domain.DatedReport{{Date: d, Raw: "051251Z 28009KT no station ident"}}, nil
		}
		return []domain.DatedReport{{Date: d, Raw: station + " 051251Z 28009KT"}}, nil
	}}
	routes := &routeStub{stations: []string{"KJFK", "KBOS", "KORD"}}
	f := newTestFetcher(archive, &liveStub{}, routes, clock)

	_, err := f.ResolveRoute(context.Background(), domain.RouteQuery{
		Query: domain.Query{Kind: domain.KindMETAR, Date: date, Parse: true},
		Route: []string{"KJFK", "KBOS", "KORD"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KBOS")
	// All three stations were still attempted.
	assert.Len(t, archive.calls, 3)
}

func TestStationKey(t *testing.T) {
	t.Run("parsed station wins", func(t *testing.T) {
		results := []Result{{Parsed: &report.Report{Station: "KJFK"}}}
		assert.Equal(t, "KJFK", stationKey(results, "ZZZZ"))
	})

	t.Run("raw token fallback", func(t *testing.T) {
		results := []Result{{Raw: "KORD 051251Z 28009KT"}}
		assert.Equal(t, "KORD", stationKey(results, "ZZZZ"))
	})

	t.Run("sub-query code when nothing else identifies the station", func(t *testing.T) {
		results := []Result{{Raw: "051251Z 28009KT"}}
		assert.Equal(t, "KSEA", stationKey(results, "KSEA"))
	})
}
