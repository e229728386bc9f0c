package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ReportKind selects which report family a query targets.
type ReportKind string

const (
	// KindMETAR is a surface observation.
	KindMETAR ReportKind = "metar"
	// KindTAF is a terminal forecast.
	KindTAF ReportKind = "taf"
)

// ParseReportKind converts a request string into a ReportKind.
func ParseReportKind(s string) (ReportKind, error) {
	switch ReportKind(strings.ToLower(s)) {
	case KindMETAR:
		return KindMETAR, nil
	case KindTAF:
		return KindTAF, nil
	}
	return "", fmt.Errorf("unknown report type %q", s)
}

func (k ReportKind) String() string { return string(k) }

// ErrInvalidStation reports a resolve call made without a usable station code.
// It signals a caller contract violation and is raised before any network call.
var ErrInvalidStation = errors.New("invalid station code")

// Date is a UTC calendar date. It is comparable and safe as a map key, unlike
// time.Time whose == also compares location pointers.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%q is not a valid date with format YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC on the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare orders dates chronologically: -1 if d is before o, +1 if after.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool { return d == Date{} }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// DatedReport pairs a raw report with the calendar date it was filed on.
// The struct is comparable; (Date, Raw) is the dedup key used throughout.
type DatedReport struct {
	Date Date
	Raw  string
}

// ReportSet is a working set of distinct dated reports.
type ReportSet map[DatedReport]struct{}

// NewReportSet builds a set from the given reports, collapsing duplicates.
func NewReportSet(reports ...DatedReport) ReportSet {
	s := make(ReportSet, len(reports))
	s.Union(reports)
	return s
}

// Union folds the given reports into the set.
func (s ReportSet) Union(reports []DatedReport) {
	for _, r := range reports {
		s[r] = struct{}{}
	}
}

// SortedDesc flattens the set ordered by (date, raw) descending: newest date
// first, raw text as tie-break. The raw ordering is coincidentally
// chronological because the DDHHMMZ token sits in a fixed position near the
// start of each report.
func (s ReportSet) SortedDesc() []DatedReport {
	out := make([]DatedReport, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c > 0
		}
		return out[i].Raw > out[j].Raw
	})
	return out
}
