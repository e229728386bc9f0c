// Package aviationweather implements the live feed against the
// aviationweather.gov data API: currently-available raw reports for a
// station, valid only inside the scrape window (roughly the last 28 hours).
package aviationweather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/sony/gobreaker"
)

const feedLabel = "live"

// Client fetches recent raw reports from the scrape endpoint.
// It implements history.LiveSource.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	lookbackHours int
	breaker       *gobreaker.CircuitBreaker
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates a live feed client.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.FeedTimeout},
		baseURL:       cfg.LiveBaseURL,
		lookbackHours: cfg.LiveLookbackHours,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "aviationweather",
			Timeout: cfg.FeedTimeout,
		}),
		metrics: metrics,
		logger:  logger,
	}
}

// Recent returns the raw reports currently available for a station. The feed
// has no date filter; callers date each report via its DDHHMMZ token.
func (c *Client) Recent(ctx context.Context, kind domain.ReportKind, station string) ([]string, error) {
	params := url.Values{
		"ids":    {station},
		"format": {"raw"},
		"hours":  {strconv.Itoa(c.lookbackHours)},
	}
	if kind == domain.KindTAF {
		params.Set("metars", "off")
	}

	text, err := c.get(ctx, fmt.Sprintf("%s/%s?%s", c.baseURL, kind, params.Encode()))
	if err != nil {
		return nil, err
	}
	return splitReports(text, kind), nil
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
			return nil, fmt.Errorf("live request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("live endpoint returned status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read live response: %w", err)
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

// splitReports breaks the raw response body into one string per report.
// METARs arrive one per line. TAFs span multiple lines, with continuation
// lines indented under the line that opens the forecast.
func splitReports(text string, kind domain.ReportKind) []string {
	lines := strings.Split(text, "\n")
	var reports []string

	if kind == domain.KindMETAR {
		for _, line := range lines {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				reports = append(reports, trimmed)
			}
		}
		return reports
	}

	var current []string
	flush := func() {
		if len(current) > 0 {
			reports = append(reports, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			flush()
		}
		current = append(current, strings.TrimSpace(line))
	}
	flush()
	return reports
}
