// Package charting turns transaction lists into chart-ready series.
//
// Everything here is a pure function over in-memory slices: inputs are never
// modified and every call allocates its own output, so the functions are safe
// to call from concurrent handlers.
package charting

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Interval is the bucket width of a time series.
type Interval string

const (
	Day   Interval = "day"
	Week  Interval = "week"
	Month Interval = "month"
)

const (
	dayWidth   = 24 * time.Hour
	weekWidth  = 7 * dayWidth
	monthWidth = 30 * dayWidth
)

var ErrInvalidInterval = errors.New("invalid interval")

// Width is the fixed look-back window of a bucket. Month labels step by
// calendar month but still look back a fixed 30 days.
func (i Interval) Width() time.Duration {
	switch i {
	case Day:
		return dayWidth
	case Week:
		return weekWidth
	case Month:
		return monthWidth
	}
	return 0
}

func (i Interval) Valid() bool { return i.Width() > 0 }

// ParseInterval accepts a name (day, week, month) or the millisecond width
// of one of them.
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Interval(s) {
	case Day, Week, Month:
		return Interval(s), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", ErrInvalidInterval
	}
	for _, i := range []Interval{Day, Week, Month} {
		if i.Width().Milliseconds() == ms {
			return i, nil
		}
	}
	return "", ErrInvalidInterval
}

// GroupBy selects the key a transaction is bucketed under.
type GroupBy string

const (
	GroupByType     GroupBy = "type"
	GroupByCategory GroupBy = "category"
)

var ErrInvalidGroupBy = errors.New("invalid groupBy")

func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByType, nil
	case GroupByType, GroupByCategory:
		return g, nil
	}
	return "", ErrInvalidGroupBy
}

// Options controls how bucket edges are labelled.
type Options struct {
	// Location is where label days start; defaults to UTC.
	Location *time.Location
	// LabelLayout is a time layout; defaults to "1/2/2006".
	LabelLayout string
}

const DefaultLabelLayout = "1/2/2006"

func DefaultOptions() Options {
	return Options{Location: time.UTC, LabelLayout: DefaultLabelLayout}
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) layout() string {
	if o.LabelLayout == "" {
		return DefaultLabelLayout
	}
	return o.LabelLayout
}
