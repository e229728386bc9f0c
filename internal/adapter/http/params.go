package http

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/couchcryptid/aviation-history/internal/domain"
	"github.com/couchcryptid/aviation-history/internal/station"
	"github.com/go-playground/validator/v10"
)

// paramHelp explains each request parameter in validation error responses.
var paramHelp = map[string]string{
	"date":        "Date string formatted as YYYY-MM-DD",
	"parse":       "Boolean to parse reports",
	"recent":      "Returns most recent reports from a date (max 48)",
	"report_type": "Weather report type (metar, taf)",
	"station":     "Station code. Ex: KJFK",
	"route":       "Flight route of station codes, navaids, or coordinate pairs. Ex: KLEX;ATL;29.2,-81.1;KMCO",
	"distance":    "Statute miles from the route center",
}

// errorResponse is the 400 body for a rejected parameter.
type errorResponse struct {
	Error string `json:"error"`
	Param string `json:"param"`
	Help  string `json:"help,omitempty"`
}

// datedParams are the fields shared by lookup and route requests.
type datedParams struct {
	ReportType string `param:"report_type" validate:"required,oneof=metar taf"`
	Date       string `param:"date" validate:"omitempty,datetime=2006-01-02"`
	Recent     int    `param:"recent" validate:"gte=0,lte=48"`
	Parse      bool   `param:"parse"`
}

type lookupParams struct {
	datedParams
	Station string `param:"station" validate:"required,alphanum,min=3,max=4"`
}

type alongParams struct {
	datedParams
	Route    string  `param:"route" validate:"required"`
	Distance float64 `param:"distance" validate:"gte=0,lte=100"`
}

func (p lookupParams) query() domain.Query {
	return domain.Query{
		Kind:    domain.ReportKind(p.ReportType),
		Station: p.Station,
		Date:    parsedDate(p.Date),
		Recent:  p.Recent,
		Parse:   p.Parse,
	}
}

func (p alongParams) routeQuery() domain.RouteQuery {
	return domain.RouteQuery{
		Query: domain.Query{
			Kind:   domain.ReportKind(p.ReportType),
			Date:   parsedDate(p.Date),
			Recent: p.Recent,
			Parse:  p.Parse,
		},
		Route:    strings.Split(p.Route, ";"),
		Distance: p.Distance,
	}
}

// parsedDate converts a pre-validated date string; empty means "today",
// which the fetcher fills in from its clock.
func parsedDate(s string) domain.Date {
	if s == "" {
		return domain.Date{}
	}
	d, _ := domain.ParseDate(s)
	return d
}

func (s *Server) lookupParams(r *http.Request) (lookupParams, *errorResponse) {
	dated, errResp := s.datedParams(r)
	if errResp != nil {
		return lookupParams{}, errResp
	}

	code, err := station.Normalize(r.PathValue("station"))
	if err != nil {
		return lookupParams{}, badParam("station", err.Error())
	}

	p := lookupParams{datedParams: dated, Station: code}
	if errResp := s.check(p); errResp != nil {
		return lookupParams{}, errResp
	}
	return p, nil
}

func (s *Server) alongParams(r *http.Request) (alongParams, *errorResponse) {
	dated, errResp := s.datedParams(r)
	if errResp != nil {
		return alongParams{}, errResp
	}

	distance := 0.0
	if v := r.URL.Query().Get("distance"); v != "" {
		var err error
		if distance, err = strconv.ParseFloat(v, 64); err != nil {
			return alongParams{}, badParam("distance", "distance must be a number")
		}
	}

	p := alongParams{
		datedParams: dated,
		Route:       routeValue(r),
		Distance:    distance,
	}
	if errResp := s.check(p); errResp != nil {
		return alongParams{}, errResp
	}
	return p, nil
}

func (s *Server) datedParams(r *http.Request) (datedParams, *errorResponse) {
	query := r.URL.Query()

	recent := 0
	if v := query.Get("recent"); v != "" {
		var err error
		if recent, err = strconv.Atoi(v); err != nil {
			return datedParams{}, badParam("recent", "recent must be an integer")
		}
	}

	parse := true
	if v := query.Get("parse"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return datedParams{}, badParam("parse", "parse must be a boolean")
		}
		parse = b
	}

	return datedParams{
		ReportType: strings.ToLower(r.PathValue("report_type")),
		Date:       query.Get("date"),
		Recent:     recent,
		Parse:      parse,
	}, nil
}

// routeValue pulls the route parameter straight from the raw query string.
// Route waypoints are ";"-separated, and since Go 1.17 url.ParseQuery rejects
// semicolons inside a pair, so the standard accessor would drop the whole
// parameter.
func routeValue(r *http.Request) string {
	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		if v, ok := strings.CutPrefix(pair, "route="); ok {
			if dec, err := url.QueryUnescape(v); err == nil {
				return dec
			}
			return v
		}
	}
	return ""
}

// newValidator builds the request validator, reporting failures under the
// request parameter name carried in the param struct tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("param")
	})
	return v
}

// check runs struct-tag validation and maps the first failure to the
// request parameter it came from.
func (s *Server) check(v any) *errorResponse {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return badParam(fieldErrs[0].Field(), fieldErrs[0].Error())
	}
	return badParam("", err.Error())
}

func badParam(param, msg string) *errorResponse {
	return &errorResponse{Error: msg, Param: param, Help: paramHelp[param]}
}
