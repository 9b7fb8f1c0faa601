package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// TxDate is a transaction timestamp that remembers the form it arrived in.
// Dates are stored either as strings (ISO dates, RFC 3339) or as epoch
// milliseconds, and both shapes are written back unchanged.
type TxDate struct {
	raw     string
	numeric bool
	t       time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Date-only strings name a UTC calendar day. Date-times without an offset
// are wall-clock readings in the configured location.
const dateOnlyLayout = "2006-01-02"

var dateLocation atomic.Pointer[time.Location]

// SetDateLocation sets the location used for date-times stored without an
// offset. A nil location resets it to UTC.
func SetDateLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	dateLocation.Store(loc)
}

func currentDateLocation() *time.Location {
	if loc := dateLocation.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// DateFromTime builds a string-form date in RFC 3339.
func DateFromTime(t time.Time) TxDate {
	return TxDate{raw: t.Format(time.RFC3339), t: t}
}

// DateFromMillis builds a numeric-form date.
func DateFromMillis(ms int64) TxDate {
	return TxDate{raw: strconv.FormatInt(ms, 10), numeric: true, t: time.UnixMilli(ms).UTC()}
}

// ParseDate builds a string-form date. Unparseable input keeps its text and
// yields a zero time; callers that need a real timestamp check IsZero.
func ParseDate(s string) TxDate {
	s = strings.TrimSpace(s)
	return TxDate{raw: s, t: parseDateString(s)}
}

func parseDateString(s string) time.Time {
	loc := currentDateLocation()
	for _, layout := range dateLayouts {
		if layout == dateOnlyLayout {
			loc = time.UTC
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// RestoreDate rebuilds a date from its stored text and form flag.
func RestoreDate(raw string, numeric bool) TxDate {
	if numeric {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return TxDate{raw: raw, numeric: true, t: time.UnixMilli(int64(f)).UTC()}
		}
	}
	return ParseDate(raw)
}

func (d TxDate) Time() time.Time { return d.t }

func (d TxDate) IsZero() bool { return d.t.IsZero() }

func (d TxDate) IsNumeric() bool { return d.numeric }

// UnixMilli returns the timestamp in epoch milliseconds.
func (d TxDate) UnixMilli() int64 { return d.t.UnixMilli() }

// String returns the date exactly as stored. For numeric dates this is the
// decimal millisecond count, not a calendar form.
func (d TxDate) String() string { return d.raw }

func (d TxDate) MarshalJSON() ([]byte, error) {
	if d.numeric {
		return []byte(d.raw), nil
	}
	return json.Marshal(d.raw)
}

func (d *TxDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = TxDate{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = ParseDate(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*d = TxDate{raw: n.String(), numeric: true, t: time.UnixMilli(int64(f)).UTC()}
	return nil
}
