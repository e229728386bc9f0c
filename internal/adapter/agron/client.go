// Package agron implements the archive feed against the Iowa Environmental
// Mesonet ASOS request endpoint: bulk historical reports for a station over a
// date range, CSV-shaped.
package agron

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/sony/gobreaker"
)

const feedLabel = "archive"

// Client fetches dated reports from the archive endpoint.
// It implements history.ArchiveSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive feed client.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.FeedTimeout},
		baseURL:    cfg.ArchiveBaseURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "agron",
			Timeout: cfg.FeedTimeout,
		}),
		metrics: metrics,
		logger:  logger,
	}
}

// DateRange returns dated reports filed between start and the exclusive end
// date. Transport and HTTP errors are returned to the caller; the reconciler
// owns the fold-to-empty policy.
func (c *Client) DateRange(ctx context.Context, station string, start, end domain.Date) ([]domain.DatedReport, error) {
	params := url.Values{
		"station": {station},
		"data":    {"metar"},
		"year1":   {strconv.Itoa(start.Year)},
		"month1":  {strconv.Itoa(int(start.Month))},
		"day1":    {strconv.Itoa(start.Day)},
		"year2":   {strconv.Itoa(end.Year)},
		"month2":  {strconv.Itoa(int(end.Month))},
		"day2":    {strconv.Itoa(end.Day)},
		"tz":      {"Etc/UTC"},
		"format":  {"onlycomma"},
		"latlon":  {"no"},
		"missing": {"null"},
		"trace":   {"null"},
		"direct":  {"no"},
	}

	text, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return parseResponse(text), nil
}

// ByDate returns dated reports filed on a single calendar date.
func (c *Client) ByDate(ctx context.Context, station string, date domain.Date) ([]domain.DatedReport, error) {
	return c.DateRange(ctx, station, date, date.AddDays(1))
}

func (c *Client) get(ctx context.Context, fullURL string) (string, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("archive request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("archive endpoint returned status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read archive response: %w", err)
		}
		return string(data), nil
	})
	c.metrics.FeedRequestDuration.WithLabelValues(feedLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues(feedLabel, "error").Inc()
		return "", err
	}
	c.metrics.FeedRequests.WithLabelValues(feedLabel, "success").Inc()
	return body.(string), nil
}

// parseResponse converts the CSV body into deduplicated dated reports.
//
// The first line is a header and is discarded. Each remaining row needs at
// least three comma-separated fields: station, datetime, raw report; extra
// columns are ignored, and a malformed row is skipped without failing the
// fetch. Rows whose report field is empty, the literal "null", or MADISHF
// test traffic are dropped. Within a day, rows sharing a DDHHMMZ timestamp
// token collapse last-write-wins, then the day is flattened ascending by raw
// text. The raw ordering is deliberate: the timestamp token sits near the
// start of each report, so it sorts chronologically anyway.
func parseResponse(text string) []domain.DatedReport {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil
	}

	byDay := make(map[domain.Date]map[string]string)
	for _, line := range lines[1:] {
		cols := strings.Split(line, ",")
		if len(cols) < 3 {
			continue
		}
		stamp := strings.Fields(cols[1])
		if len(stamp) == 0 {
			continue
		}
		date, err := domain.ParseDate(stamp[0])
		if err != nil {
			continue
		}

		// The onlycomma format collapses the report's internal commas into
		// whitespace runs; normalize them back to single spaces.
		raw := strings.Join(strings.Fields(cols[2]), " ")
		if raw == "" || raw == "null" || strings.Contains(raw, "MADISHF") {
			continue
		}
		key, ok := domain.FindTimestamp(raw)
		if !ok {
			continue
		}

		day := byDay[date]
		if day == nil {
			day = make(map[string]string)
			byDay[date] = day
		}
		day[key] = raw
	}

	dates := make([]domain.Date, 0, len(byDay))
	for date := range byDay {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Compare(dates[j]) < 0 })

	var out []domain.DatedReport
	for _, date := range dates {
		reports := make([]string, 0, len(byDay[date]))
		for _, raw := range byDay[date] {
			reports = append(reports, raw)
		}
		sort.Strings(reports)
		for _, raw := range reports {
			out = append(out, domain.DatedReport{Date: date, Raw: raw})
		}
	}
	return out
}
