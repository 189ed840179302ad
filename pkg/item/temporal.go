package item

import (
	"fmt"
	"math"
	"time"

	"github.com/sandrolain/gometapath/pkg/types"
)

// Date is a calendar date with an optional timezone. A date without a
// timezone is held in UTC.
type Date struct {
	t  time.Time
	tz bool
}

// NewDate returns the date of t in t's location, truncated to midnight.
func NewDate(t time.Time, hasTZ bool) Date {
	y, m, d := t.Date()
	loc := t.Location()
	if !hasTZ {
		loc = time.UTC
	}
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, loc), tz: hasTZ}
}

// ParseDate parses YYYY-MM-DD with an optional Z or ±hh:mm suffix.
func ParseDate(s string) (Date, error) {
	body, loc, hasTZ, ok := splitTimezone(s)
	if !ok {
		return Date{}, lexicalError(s, types.TypeDate)
	}
	t, err := time.ParseInLocation("2006-01-02", body, loc)
	if err != nil {
		return Date{}, lexicalError(s, types.TypeDate).WithCause(err)
	}
	return Date{t: t, tz: hasTZ}, nil
}

// Time returns the date as midnight in its timezone.
func (d Date) Time() time.Time { return d.t }

// HasTimezone reports whether the date carries an explicit timezone.
func (d Date) HasTimezone() bool { return d.tz }

func (d Date) Type() types.Type { return types.TypeDate }

func (d Date) String() string {
	return d.t.Format("2006-01-02") + timezoneSuffix(d.t, d.tz)
}

// DateTime is an instant with an optional timezone. A date-time without a
// timezone is held in UTC.
type DateTime struct {
	t  time.Time
	tz bool
}

// NewDateTime wraps t.
func NewDateTime(t time.Time, hasTZ bool) DateTime {
	if !hasTZ {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return DateTime{t: t, tz: hasTZ}
}

// ParseDateTime parses YYYY-MM-DDThh:mm:ss(.s+)? with an optional timezone.
func ParseDateTime(s string) (DateTime, error) {
	body, loc, hasTZ, ok := splitTimezone(s)
	if !ok {
		return DateTime{}, lexicalError(s, types.TypeDateTime)
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", body, loc)
	if err != nil {
		return DateTime{}, lexicalError(s, types.TypeDateTime).WithCause(err)
	}
	return DateTime{t: t, tz: hasTZ}, nil
}

// Time returns the instant.
func (d DateTime) Time() time.Time { return d.t }

// HasTimezone reports whether the value carries an explicit timezone.
func (d DateTime) HasTimezone() bool { return d.tz }

func (d DateTime) Type() types.Type { return types.TypeDateTime }

func (d DateTime) String() string {
	return d.t.Format("2006-01-02T15:04:05.999999999") + timezoneSuffix(d.t, d.tz)
}

// splitTimezone separates a trailing Z or ±hh:mm from s.
func splitTimezone(s string) (body string, loc *time.Location, hasTZ bool, ok bool) {
	n := len(s)
	switch {
	case n > 0 && s[n-1] == 'Z':
		return s[:n-1], time.UTC, true, true
	case n >= 6 && (s[n-6] == '+' || s[n-6] == '-') && s[n-3] == ':':
		var hh, mm int
		if _, err := fmt.Sscanf(s[n-5:], "%02d:%02d", &hh, &mm); err != nil || hh > 14 || mm > 59 {
			return "", nil, false, false
		}
		offset := hh*3600 + mm*60
		if s[n-6] == '-' {
			offset = -offset
		}
		return s[:n-6], fixedZone(offset), true, true
	}
	return s, time.UTC, false, true
}

func fixedZone(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

func timezoneSuffix(t time.Time, hasTZ bool) string {
	if !hasTZ {
		return ""
	}
	_, offset := t.Zone()
	if offset == 0 {
		return "Z"
	}
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, offset%3600/60)
}

// AddMonths adds n months to t. The day of month is clamped to the last
// day of the resulting month, so 2021-01-31 plus one month is 2021-02-28.
// Results outside the supported year range are FOAR0002.
func AddMonths(t time.Time, n int64) (time.Time, error) {
	y, m, d := t.Date()
	total, ok := addInt64(int64(m)-1, n)
	if !ok {
		return time.Time{}, dateOverflow()
	}
	year := int64(y) + total/12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	if !inYearRange64(year) {
		return time.Time{}, dateOverflow()
	}
	month := time.Month(total + 1)
	if last := daysIn(int(year), month); d > last {
		d = last
	}
	return time.Date(int(year), month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
}

// Years are limited to the int32 range.
func inYearRange(y int) bool { return inYearRange64(int64(y)) }

func inYearRange64(y int64) bool { return y >= math.MinInt32 && y <= math.MaxInt32 }

func dateOverflow() *types.Error {
	return types.Errorf(types.ErrNumericOverflow, "date arithmetic out of range")
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
