package agron

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{
		ArchiveBaseURL: baseURL,
		FeedTimeout:    5 * time.Second,
	}
	return NewClient(cfg, observability.NewMetricsForTesting(), discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_ByDate_QueryContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "KJFK", q.Get("station"))
		assert.Equal(t, "metar", q.Get("data"))
		assert.Equal(t, "2023", q.Get("year1"))
		assert.Equal(t, "1", q.Get("month1"))
		assert.Equal(t, "5", q.Get("day1"))
		// End date is exclusive: one day after the requested date.
		assert.Equal(t, "6", q.Get("day2"))
		assert.Equal(t, "Etc/UTC", q.Get("tz"))
		assert.Equal(t, "onlycomma", q.Get("format"))
		assert.Equal(t, "null", q.Get("missing"))

		io.WriteString(w, "station,valid,metar\n")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ByDate(context.Background(), "KJFK", domain.Date{Year: 2023, Month: time.January, Day: 5})
	require.NoError(t, err)
}

func TestClient_ByDate_FiltersAndDedupes(t *testing.T) {
	// Five rows: two valid, a "null" placeholder, a duplicate-timestamp row
	// that must overwrite the first, and MADISHF test traffic.
	body := "station,valid,metar\n" +
		"KJFK,2023-01-05 00:51,KJFK 050051Z 28009KT 10SM FEW055\n" +
		"KJFK,2023-01-05 18:51,KJFK 051851Z 30012KT 10SM CLR\n" +
		"KJFK,2023-01-05 11:51,null\n" +
		"KJFK,2023-01-05 00:51,KJFK 050051Z 28011KT 10SM FEW055\n" +
		"KJFK,2023-01-05 12:51,KJFK 051251Z MADISHF 30008KT\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body)
	}))
	defer srv.Close()

	date := domain.Date{Year: 2023, Month: time.January, Day: 5}
	reports, err := testClient(srv.URL).ByDate(context.Background(), "KJFK", date)
	require.NoError(t, err)

	want := []domain.DatedReport{
		{Date: date, Raw: "KJFK 050051Z 28011KT 10SM FEW055"},
		{Date: date, Raw: "KJFK 051851Z 30012KT 10SM CLR"},
	}
	if diff := cmp.Diff(want, reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_DateRange_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	_, err := testClient(srv.URL).DateRange(context.Background(), "KJFK",
		domain.Date{Year: 2023, Month: time.January, Day: 4},
		domain.Date{Year: 2023, Month: time.January, Day: 6})
	assert.Error(t, err, "transport failures surface as errors; folding is the reconciler's call")
}

func TestClient_DateRange_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).DateRange(context.Background(), "KJFK",
		domain.Date{Year: 2023, Month: time.January, Day: 4},
		domain.Date{Year: 2023, Month: time.January, Day: 6})
	assert.Error(t, err)
}

func TestParseResponse(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		assert.Empty(t, parseResponse(""))
	})

	t.Run("header only", func(t *testing.T) {
		assert.Empty(t, parseResponse("station,valid,metar\n"))
	})

	t.Run("malformed rows are skipped, not fatal", func(t *testing.T) {
		body := "station,valid,metar\n" +
			"KJFK\n" +
			"KJFK,not-a-date,KJFK 050051Z 28009KT\n" +
			"KJFK,2023-01-05 00:51,KJFK 050051Z 28009KT\n" +
			"KJFK,2023-01-05 01:51,KJFK no timestamp token\n"

		reports := parseResponse(body)
		require.Len(t, reports, 1)
		assert.Equal(t, "KJFK 050051Z 28009KT", reports[0].Raw)
	})

	t.Run("collapses whitespace inside the report field", func(t *testing.T) {
		body := "station,valid,metar\n" +
			"KJFK,2023-01-05 00:51,KJFK 050051Z  28009KT   10SM\n"

		reports := parseResponse(body)
		require.Len(t, reports, 1)
		assert.Equal(t, "KJFK 050051Z 28009KT 10SM", reports[0].Raw)
	})

	t.Run("multi-day ranges come back date-ascending", func(t *testing.T) {
		body := "station,valid,metar\n" +
			"KJFK,2023-01-05 00:51,KJFK 050051Z 28009KT\n" +
			"KJFK,2023-01-04 00:51,KJFK 040051Z 28009KT\n"

		reports := parseResponse(body)
		require.Len(t, reports, 2)
		assert.Equal(t, 4, reports[0].Date.Day)
		assert.Equal(t, 5, reports[1].Date.Day)
	})
}
