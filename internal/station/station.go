// Package station implements the station-identity collaborators: a code
// validity check and flight-route expansion. Full ICAO/IATA/GPS resolution
// and geocoding live outside this service; the history core only needs a
// shape check and an ordered station list per route.
package station

import (
	"fmt"
	"regexp"
	"strings"
)

// codePattern matches ICAO (KJFK), IATA (JFK), and GPS (K7F3) identifiers:
// three or four alphanumeric characters starting with a letter.
var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{2,3}$`)

// coordPattern matches a "lat,lon" waypoint such as "29.2,-81.1".
var coordPattern = regexp.MustCompile(`^-?\d{1,2}(\.\d+)?,-?\d{1,3}(\.\d+)?$`)

// Valid reports whether code has the shape of a station identifier.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}

// Normalize uppercases and validates a station code.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !Valid(c) {
		return "", fmt.Errorf("%q is not a valid station code", code)
	}
	return c, nil
}

// Resolver expands flight-route waypoints into an ordered station list.
type Resolver struct{}

// NewResolver creates a route resolver.
func NewResolver() *Resolver { return &Resolver{} }

// StationsAlongRoute returns the ordered, deduplicated station codes for the
// given waypoints. Station-code waypoints pass through; coordinate-pair
// waypoints are accepted syntax but resolve to no station without the
// external corridor search, so distance only bounds that search.
func (r *Resolver) StationsAlongRoute(route []string, distance float64) ([]string, error) {
	if len(route) == 0 {
		return nil, fmt.Errorf("route is empty")
	}
	_ = distance

	seen := make(map[string]struct{}, len(route))
	stations := make([]string, 0, len(route))
	for _, waypoint := range route {
		w := strings.ToUpper(strings.TrimSpace(waypoint))
		if coordPattern.MatchString(w) {
			continue
		}
		if !Valid(w) {
			return nil, fmt.Errorf("%q is not a valid route waypoint", waypoint)
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		stations = append(stations, w)
	}
	return stations, nil
}
