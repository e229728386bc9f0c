package history

import (
	"encoding/json"
	"strings"

	"github.com/couchcryptid/aviation-history/internal/report"
	"github.com/couchcryptid/aviation-history/internal/station"
)

// Result is one resolved item: a parsed report when the query asked for
// parsing, otherwise sanitized raw text. It marshals as an object or a plain
// string accordingly.
type Result struct {
	Parsed *report.Report
	Raw    string
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Parsed != nil {
		return json.Marshal(r.Parsed)
	}
	return json.Marshal(r.Raw)
}

// stationKey picks the mapping key for a station's route results: the parsed
// station field when available, otherwise the first raw token the station
// validity check accepts, otherwise the station code the sub-query ran with.
func stationKey(results []Result, fallback string) string {
	for _, r := range results {
		if r.Parsed != nil {
			if r.Parsed.Station != "" {
				return r.Parsed.Station
			}
			continue
		}
		for _, token := range strings.Fields(r.Raw) {
			if station.Valid(token) {
				return token
			}
		}
	}
	return fallback
}
