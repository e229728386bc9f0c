package domain

import (
	"strings"
	"time"
)

// FindTimestamp scans whitespace-delimited tokens for the first Zulu
// timestamp (a 7-character token ending in Z whose first six characters are
// digits, format DDHHMM) and returns it without the trailing Z.
func FindTimestamp(report string) (string, bool) {
	for _, item := range strings.Fields(report) {
		if len(item) == 7 && item[6] == 'Z' && isDigits(item[:6]) {
			return item[:6], true
		}
	}
	return "", false
}

// ReportDate resolves a report's embedded DDHHMMZ token to a calendar date,
// taking the month and year from now. A day-of-month ahead of now's day, or
// one that does not exist in the current month, belongs to an earlier month.
// Reports without a timestamp token cannot be dated.
func ReportDate(report string, now time.Time) (Date, bool) {
	stamp, ok := FindTimestamp(report)
	if !ok {
		return Date{}, false
	}
	day := int(stamp[0]-'0')*10 + int(stamp[1]-'0')
	if day < 1 || day > 31 {
		return Date{}, false
	}

	u := now.UTC()
	year, month := u.Year(), u.Month()
	for back := 0; back < 3; back++ {
		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes out-of-range days (Feb 30 becomes Mar 2),
		// which means the day does not exist in that month.
		if candidate.Day() == day && (back > 0 || day <= u.Day()) {
			return DateOf(candidate), true
		}
		month--
		if month == 0 {
			month = time.December
			year--
		}
	}
	return Date{}, false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
