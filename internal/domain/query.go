package domain

// Query describes a single-station history lookup.
//
// Recent routes the lookup: 0 means "exactly the reports filed on Date",
// N > 0 means "the N most recent reports at or before Date", accumulated by
// walking backward one day at a time.
type Query struct {
	Kind    ReportKind
	Station string
	Date    Date
	Recent  int // 0..48
	Parse   bool
}

// RouteQuery describes a lookup along an ordered list of flight-route
// waypoints. Each resolved station yields one sub-Query sharing the same
// kind, date, recent, and parse settings.
type RouteQuery struct {
	Query
	Route    []string
	Distance float64 // statute-mile corridor width from the route center
}

// StationQuery returns the per-station sub-query for a resolved station code.
func (q RouteQuery) StationQuery(station string) Query {
	sub := q.Query
	sub.Station = station
	return sub
}
