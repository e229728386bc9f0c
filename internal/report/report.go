// Package report implements the parse/sanitize collaborators for raw METAR
// and TAF text. Decoding the full weather semantics (wind groups, visibility,
// cloud layers) is owned by the external parser project; this package extracts
// the identity fields the history service itself needs and normalizes raw
// text for unparsed responses.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/station"
)

// Report is the structured form of a single raw report.
type Report struct {
	Station string    `json:"station"`
	Time    time.Time `json:"time"`
	Kind    string    `json:"report_type"`
	Raw     string    `json:"raw"`
}

// Parser decodes one raw report. The issued date disambiguates the embedded
// DDHHMMZ token, which carries no month or year.
type Parser interface {
	Parse(raw string, issued domain.Date) (*Report, error)
}

// ParserFor returns the parser registered for a report kind. The switch is
// exhaustive over the ReportKind enum.
func ParserFor(kind domain.ReportKind) Parser {
	switch kind {
	case domain.KindMETAR:
		return identityParser{kind: domain.KindMETAR}
	case domain.KindTAF:
		return identityParser{kind: domain.KindTAF}
	default:
		panic(fmt.Sprintf("no parser registered for report kind %q", kind))
	}
}

// Sanitize normalizes raw report text without fully parsing it: collapses
// repeated whitespace, strips the transmission terminator and maintenance
// markers, and removes a leading kind keyword.
func Sanitize(raw string, kind domain.ReportKind) string {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(raw), "="))
	out := make([]string, 0, len(fields))
	for i, f := range fields {
		if i == 0 && isKindKeyword(f) {
			continue
		}
		if f == "$" {
			continue
		}
		out = append(out, strings.ToUpper(f))
	}
	return strings.Join(out, " ")
}

func isKindKeyword(token string) bool {
	switch strings.ToUpper(token) {
	case "METAR", "SPECI", "TAF":
		return true
	}
	return false
}

// identityParser pulls the station code and issue time out of the sanitized
// text and carries the rest through as raw.
type identityParser struct {
	kind domain.ReportKind
}

func (p identityParser) Parse(raw string, issued domain.Date) (*Report, error) {
	clean := Sanitize(raw, p.kind)
	if clean == "" {
		return nil, fmt.Errorf("parse %s: empty report", p.kind)
	}

	code := ""
	for _, token := range strings.Fields(clean) {
		if token == "AMD" || token == "COR" {
			continue
		}
		if station.Valid(token) {
			code = token
		}
		break
	}
	if code == "" {
		return nil, fmt.Errorf("parse %s: no station code in %q", p.kind, clean)
	}

	stamp, ok := domain.FindTimestamp(clean)
	if !ok {
		return nil, fmt.Errorf("parse %s: no timestamp in %q", p.kind, clean)
	}
	hour := int(stamp[2]-'0')*10 + int(stamp[3]-'0')
	minute := int(stamp[4]-'0')*10 + int(stamp[5]-'0')
	if hour > 23 || minute > 59 {
		return nil, fmt.Errorf("parse %s: bad timestamp %sZ", p.kind, stamp)
	}

	issuedAt := issued.Time().Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &Report{
		Station: code,
		Time:    issuedAt,
		Kind:    p.kind.String(),
		Raw:     clean,
	}, nil
}
