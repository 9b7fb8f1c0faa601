// Package http provides HTTP server and handler implementations.
//
// This file implements the parsing and validation of query parameters and
// JSON request bodies shared by the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/salemadams/cash-dash/internal/charting"
	"github.com/salemadams/cash-dash/internal/core"
	"github.com/salemadams/cash-dash/internal/services"
	"github.com/salemadams/cash-dash/internal/store"
)

const (
	maxBodyBytes  = 1 << 20
	defaultMonths = 6
	maxMonths     = 60
)

// ParamError is a malformed query parameter or body; it maps to 400.
type ParamError struct {
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

func badParam(param string, err error) error {
	return &ParamError{Param: param, Err: err}
}

// RequestParser reads query parameters relative to a clock and a chart
// location.
type RequestParser struct {
	loc        *time.Location
	now        func() time.Time
	maxBuckets int
}

// DefaultMaxBuckets caps the labels of one line chart.
const DefaultMaxBuckets = 1000

func NewRequestParser(loc *time.Location, now func() time.Time) *RequestParser {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &RequestParser{loc: loc, now: now, maxBuckets: DefaultMaxBuckets}
}

// WithMaxBuckets sets the largest line chart a query may ask for. Values
// below one keep the default.
func (p *RequestParser) WithMaxBuckets(n int) *RequestParser {
	if n > 0 {
		p.maxBuckets = n
	}
	return p
}

// ParseDate accepts YYYY-MM-DD (midnight in the parser's location), RFC 3339,
// or epoch milliseconds.
func (p *RequestParser) ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).In(p.loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, p.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(p.loc), nil
	}
	return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD, RFC 3339 or epoch milliseconds", s)
}

func (p *RequestParser) today() time.Time {
	now := p.now().In(p.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
}

// ParseRange reads startDate and endDate. Missing bounds default to the six
// months ending today, both at midnight so equal requests share cache keys.
func (p *RequestParser) ParseRange(q url.Values) (services.Range, error) {
	var r services.Range
	end := p.today()
	if v := q.Get("endDate"); v != "" {
		t, err := p.ParseDate(v)
		if err != nil {
			return r, badParam("endDate", err)
		}
		end = t
	}
	start := end.AddDate(0, -defaultMonths, 0)
	if v := q.Get("startDate"); v != "" {
		t, err := p.ParseDate(v)
		if err != nil {
			return r, badParam("startDate", err)
		}
		start = t
	}
	if start.After(end) {
		return r, badParam("startDate", errors.New("must not be after endDate"))
	}
	return services.Range{Start: start, End: end}, nil
}

// ParseInterval defaults to monthly buckets.
func ParseInterval(q url.Values) (charting.Interval, error) {
	v := q.Get("interval")
	if v == "" {
		return charting.Month, nil
	}
	i, err := charting.ParseInterval(v)
	if err != nil {
		return "", badParam("interval", err)
	}
	return i, nil
}

func (p *RequestParser) ParseLineQuery(q url.Values) (services.LineQuery, error) {
	r, err := p.ParseRange(q)
	if err != nil {
		return services.LineQuery{}, err
	}
	interval, err := ParseInterval(q)
	if err != nil {
		return services.LineQuery{}, err
	}
	groupBy, err := charting.ParseGroupBy(q.Get("groupBy"))
	if err != nil {
		return services.LineQuery{}, badParam("groupBy", err)
	}
	if n := charting.BucketCount(r.Start.In(p.loc), r.End.In(p.loc), interval); n > p.maxBuckets {
		return services.LineQuery{}, badParam("endDate", fmt.Errorf("range spans %d %s buckets, max %d", n, interval, p.maxBuckets))
	}
	return services.LineQuery{Range: r, Interval: interval, GroupBy: groupBy}, nil
}

func (p *RequestParser) ParseSummaryQuery(q url.Values) (services.SummaryQuery, error) {
	r, err := p.ParseRange(q)
	if err != nil {
		return services.SummaryQuery{}, err
	}
	t, err := core.ParseTransactionType(q.Get("type"))
	if err != nil {
		return services.SummaryQuery{}, badParam("type", err)
	}
	return services.SummaryQuery{Range: r, Search: sanitizeInput(q.Get("q")), Type: t}, nil
}

// ParseTransactionQuery reads the list filters of /transactions. Without a
// startDate or endDate the range is open on that side.
func (p *RequestParser) ParseTransactionQuery(q url.Values) (store.TransactionQuery, error) {
	var tq store.TransactionQuery
	if v := q.Get("startDate"); v != "" {
		t, err := p.ParseDate(v)
		if err != nil {
			return tq, badParam("startDate", err)
		}
		tq.Start = t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := p.ParseDate(v)
		if err != nil {
			return tq, badParam("endDate", err)
		}
		tq.End = t
	}
	if v := q.Get("interval"); v != "" {
		i, err := charting.ParseInterval(v)
		if err != nil {
			return tq, badParam("interval", err)
		}
		tq.Interval = i.Width()
	}
	if v := q.Get("_limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return tq, badParam("_limit", errors.New("must be a non-negative integer"))
		}
		tq.Limit = n
	}
	return tq, nil
}

// ParseMonth returns the month parameter or "" when absent.
func ParseMonth(q url.Values) (string, error) {
	month := strings.TrimSpace(q.Get("month"))
	if month == "" {
		return "", nil
	}
	if err := core.ValidateMonth(month); err != nil {
		return "", badParam("month", err)
	}
	return month, nil
}

// ParseMonths reads the bar chart span, 1 to 60 months, default 6.
func ParseMonths(q url.Values) (int, error) {
	v := q.Get("months")
	if v == "" {
		return defaultMonths, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxMonths {
		return 0, badParam("months", fmt.Errorf("must be between 1 and %d", maxMonths))
	}
	return n, nil
}

// ParseBudgetID reads the {id} path value.
func ParseBudgetID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, badParam("id", errors.New("must be a positive integer"))
	}
	return id, nil
}

// DecodeJSON reads a size-limited JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badParam("body", errors.New("empty request body"))
		}
		return badParam("body", err)
	}
	if dec.More() {
		return badParam("body", errors.New("trailing data after JSON value"))
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
