package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/aviation-history/internal/domain"
)

// ResolveRoute fans a route query out across its resolved stations and
// assembles a per-station result mapping.
//
// At most routeConcurrency station lookups are in flight at once; the rest
// queue until a slot frees. A station whose feeds fail resolves to an empty
// list and is omitted from the mapping without disturbing its siblings.
// Parse failures are collected and returned after every station has
// finished; nothing cancels the others.
func (f *Fetcher) ResolveRoute(ctx context.Context, q domain.RouteQuery) (map[string][]Result, error) {
	stations, err := f.routes.StationsAlongRoute(q.Route, q.Distance)
	if err != nil {
		return nil, fmt.Errorf("resolve route: %w", err)
	}
	f.metrics.RouteStations.Observe(float64(len(stations)))
	f.metrics.QueriesServed.WithLabelValues(q.Kind.String(), "route").Inc()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		out  = make(map[string][]Result, len(stations))
		errs []error
	)
	sem := make(chan struct{}, f.routeConcurrency)

	for _, code := range stations {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			sem <- struct{}{}
			f.metrics.RouteLookupsInFlight.Inc()
			defer func() {
				f.metrics.RouteLookupsInFlight.Dec()
				<-sem
			}()

			results, err := f.Resolve(ctx, q.StationQuery(code))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("station %s: %w", code, err))
				return
			}
			if len(results) == 0 {
				return
			}
			out[stationKey(results, code)] = results
		}(code)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
