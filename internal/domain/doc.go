// Package domain models historic aviation weather reports (METAR observations
// and TAF forecasts) and the queries used to retrieve them.
//
// # Data Sources
//
// Reports come from two disjoint upstreams with different validity windows:
//
//   - The Iowa Environmental Mesonet ASOS archive ("agron"), a bulk CSV
//     endpoint queried by station and date range. Valid for any past date but
//     slow, and known to contain junk rows: empty reports, the literal string
//     "null", and fabricated MADISHF test traffic (see
//     https://mesonet.agron.iastate.edu/onsite/news.phtml?id=1290).
//   - The aviationweather.gov data API, a near-real-time scrape source with a
//     lookback window of roughly 28 hours and no date filter.
//
// # Report Timestamps
//
// A raw report does not carry a full date. The issue time is embedded as a
// Zulu token of the form DDHHMMZ ("262353Z" = day 26, 23:53 UTC); the month
// and year must be inferred from a reference time. [FindTimestamp] extracts
// the token and [ReportDate] resolves it to a calendar date, rolling back to
// the previous month when the day-of-month is ahead of the reference day.
//
// # Deduplication
//
// [DatedReport] equality is structural: two reports are the same entry when
// both the calendar date and the raw text match. That pair is the dedup key
// everywhere reports from multiple days or multiple sources are merged; a
// [ReportSet] holds the working set during reconciliation.
package domain
