// Package datekey maps calendar days to daily-note file names and back.
//
// A Key is a day on the local calendar. It never carries an instant, so
// formatting and arithmetic cannot drift across a UTC boundary: fields are
// taken from a time.Time's own location once, in FromTime, and everything
// after that works on year/month/day integers.
package datekey

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Key is a calendar date truncated to day granularity.
// The zero value means "no date".
type Key struct {
	Year  int
	Month time.Month
	Day   int
}

var dateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// New builds a Key from components without validating them.
func New(year int, month time.Month, day int) Key {
	return Key{Year: year, Month: month, Day: day}
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Key {
	y, m, d := t.Date()
	return Key{Year: y, Month: m, Day: d}
}

// Today returns the current local calendar day.
func Today() Key {
	return FromTime(time.Now())
}

// Parse reads a canonical YYYY-MM-DD string. Like ParseFilename it only
// checks structure; use Valid to reject impossible days.
func Parse(s string) (Key, bool) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return Key{}, false
	}
	return fromMatch(m[1], m[2], m[3])
}

func fromMatch(ys, ms, ds string) (Key, bool) {
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Key{}, false
	}
	mo, err := strconv.Atoi(ms)
	if err != nil {
		return Key{}, false
	}
	d, err := strconv.Atoi(ds)
	if err != nil {
		return Key{}, false
	}
	return Key{Year: y, Month: time.Month(mo), Day: d}, true
}

// String formats the key as YYYY-MM-DD, or "" for the zero key.
func (k Key) String() string {
	if k.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// IsZero reports whether k is the "no date" value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Valid reports whether k names a real calendar day.
func (k Key) Valid() bool {
	if k.Year < 1 || k.Year > 9999 {
		return false
	}
	if k.Month < time.January || k.Month > time.December {
		return false
	}
	return k.Day >= 1 && k.Day <= DaysIn(k.Year, k.Month)
}

// Time returns local midnight of k in loc.
func (k Key) Time(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days after k (n may be negative).
// Month, year and leap-day boundaries roll over.
func (k Key) AddDays(n int) Key {
	// Noon in UTC: pure calendar arithmetic, immune to DST gaps.
	t := time.Date(k.Year, k.Month, k.Day+n, 12, 0, 0, 0, time.UTC)
	return FromTime(t)
}

// Weekday returns the day of week of k.
func (k Key) Weekday() time.Weekday {
	return time.Date(k.Year, k.Month, k.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether k is earlier than o.
func (k Key) Before(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	return k.Day < o.Day
}

// MonthOf returns the month containing k.
func (k Key) MonthOf() Month {
	return Month{Year: k.Year, Month: k.Month}
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string
// decodes to the zero key.
func (k *Key) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = Key{}
		return nil
	}
	parsed, ok := Parse(string(b))
	if !ok {
		return fmt.Errorf("datekey: malformed date %q", string(b))
	}
	*k = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
