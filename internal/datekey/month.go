package datekey

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

var monthRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ParseMonth reads a YYYY-MM string.
func ParseMonth(s string) (Month, bool) {
	m := monthRe.FindStringSubmatch(s)
	if m == nil {
		return Month{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	if mo < 1 || mo > 12 || y < 1 {
		return Month{}, false
	}
	return Month{Year: y, Month: time.Month(mo)}, true
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month.
func (m Month) First() Key {
	return Key{Year: m.Year, Month: m.Month, Day: 1}
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return DaysIn(m.Year, m.Month)
}

// Add returns the month n months after m.
func (m Month) Add(n int) Month {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 12, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following month.
func (m Month) Next() Month { return m.Add(1) }

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.Add(-1) }

// Contains reports whether k falls inside m.
func (m Month) Contains(k Key) bool {
	return k.Year == m.Year && k.Month == m.Month
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(b []byte) error {
	parsed, ok := ParseMonth(string(b))
	if !ok {
		return fmt.Errorf("datekey: malformed month %q", string(b))
	}
	*m = parsed
	return nil
}
