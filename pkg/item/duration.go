package item

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"

	"github.com/sandrolain/gometapath/pkg/types"
)

// YearMonthDuration is a duration counted in months.
type YearMonthDuration int64

// ParseYearMonthDuration parses -?P(nY)?(nM)? with at least one component.
func ParseYearMonthDuration(s string) (YearMonthDuration, error) {
	body, neg, ok := durationBody(s)
	if !ok || strings.ContainsRune(body, 'T') {
		return 0, lexicalError(s, types.TypeYearMonthDuration)
	}
	var months int64
	seen := false
	for _, unit := range []byte{'Y', 'M'} {
		n, rest, found, err := durationComponent(body, unit)
		if err != nil {
			return 0, lexicalError(s, types.TypeYearMonthDuration)
		}
		if found {
			seen = true
			if unit == 'Y' {
				if n, ok = mulInt64(n, 12); !ok {
					return 0, rangeError(s, types.TypeYearMonthDuration)
				}
			}
			if months, ok = addInt64(months, n); !ok {
				return 0, rangeError(s, types.TypeYearMonthDuration)
			}
		}
		body = rest
	}
	if !seen || body != "" {
		return 0, lexicalError(s, types.TypeYearMonthDuration)
	}
	if neg {
		months = -months
	}
	return YearMonthDuration(months), nil
}

// Months returns the total number of months.
func (d YearMonthDuration) Months() int64 { return int64(d) }

// Add returns d + o, or FOAR0002 when the sum does not fit.
func (d YearMonthDuration) Add(o YearMonthDuration) (YearMonthDuration, error) {
	v, ok := addInt64(int64(d), int64(o))
	if !ok {
		return 0, durationOverflow(types.TypeYearMonthDuration)
	}
	return YearMonthDuration(v), nil
}

// Sub returns d - o, or FOAR0002 when the difference does not fit.
func (d YearMonthDuration) Sub(o YearMonthDuration) (YearMonthDuration, error) {
	v, ok := subInt64(int64(d), int64(o))
	if !ok {
		return 0, durationOverflow(types.TypeYearMonthDuration)
	}
	return YearMonthDuration(v), nil
}

// Neg returns -d.
func (d YearMonthDuration) Neg() (YearMonthDuration, error) {
	return YearMonthDuration(0).Sub(d)
}

// AddTo offsets t by d months, clamping the day of month.
func (d YearMonthDuration) AddTo(t time.Time) (time.Time, error) {
	return AddMonths(t, int64(d))
}

func (d YearMonthDuration) Type() types.Type { return types.TypeYearMonthDuration }

func (d YearMonthDuration) String() string {
	if d == 0 {
		return "P0M"
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	m := abs(int64(d))
	if y := m / 12; y > 0 {
		b.WriteString(strconv.FormatInt(y, 10))
		b.WriteByte('Y')
	}
	if m%12 > 0 {
		b.WriteString(strconv.FormatInt(m%12, 10))
		b.WriteByte('M')
	}
	return b.String()
}

// DayTimeDuration is a duration in days, hours, minutes and seconds with
// nanosecond resolution.
type DayTimeDuration time.Duration

const day = 24 * time.Hour

// ParseDayTimeDuration parses -?P(nD)?(T(nH)?(nM)?(n(.n)?S)?)?.
func ParseDayTimeDuration(s string) (DayTimeDuration, error) {
	body, neg, ok := durationBody(s)
	if !ok {
		return 0, lexicalError(s, types.TypeDayTimeDuration)
	}
	var total int64
	seen := false
	accumulate := func(n, mul int64) bool {
		v, ok := mulInt64(n, mul)
		if ok {
			total, ok = addInt64(total, v)
		}
		return ok
	}

	datePart, timePart, hasT := strings.Cut(body, "T")
	n, rest, found, err := durationComponent(datePart, 'D')
	if err != nil || rest != "" {
		return 0, lexicalError(s, types.TypeDayTimeDuration)
	}
	if found {
		seen = true
		if !accumulate(n, int64(day)) {
			return 0, rangeError(s, types.TypeDayTimeDuration)
		}
	}
	if hasT {
		timeSeen := false
		for _, c := range []struct {
			unit byte
			mul  time.Duration
		}{{'H', time.Hour}, {'M', time.Minute}} {
			n, rest, found, err := durationComponent(timePart, c.unit)
			if err != nil {
				return 0, lexicalError(s, types.TypeDayTimeDuration)
			}
			if found {
				timeSeen = true
				if !accumulate(n, int64(c.mul)) {
					return 0, rangeError(s, types.TypeDayTimeDuration)
				}
			}
			timePart = rest
		}
		if strings.HasSuffix(timePart, "S") {
			secs, ok, err := parseSeconds(strings.TrimSuffix(timePart, "S"))
			if err != nil {
				return 0, lexicalError(s, types.TypeDayTimeDuration)
			}
			if !ok || !accumulate(int64(secs), 1) {
				return 0, rangeError(s, types.TypeDayTimeDuration)
			}
			timeSeen = true
			timePart = ""
		}
		if !timeSeen || timePart != "" {
			return 0, lexicalError(s, types.TypeDayTimeDuration)
		}
		seen = true
	}
	if !seen {
		return 0, lexicalError(s, types.TypeDayTimeDuration)
	}
	if neg {
		total = -total
	}
	return DayTimeDuration(total), nil
}

// Duration returns the value as a time.Duration.
func (d DayTimeDuration) Duration() time.Duration { return time.Duration(d) }

// Add returns d + o, or FOAR0002 when the sum does not fit.
func (d DayTimeDuration) Add(o DayTimeDuration) (DayTimeDuration, error) {
	v, ok := addInt64(int64(d), int64(o))
	if !ok {
		return 0, durationOverflow(types.TypeDayTimeDuration)
	}
	return DayTimeDuration(v), nil
}

// Sub returns d - o, or FOAR0002 when the difference does not fit.
func (d DayTimeDuration) Sub(o DayTimeDuration) (DayTimeDuration, error) {
	v, ok := subInt64(int64(d), int64(o))
	if !ok {
		return 0, durationOverflow(types.TypeDayTimeDuration)
	}
	return DayTimeDuration(v), nil
}

// Neg returns -d.
func (d DayTimeDuration) Neg() (DayTimeDuration, error) {
	return DayTimeDuration(0).Sub(d)
}

// AddTo offsets t by d.
func (d DayTimeDuration) AddTo(t time.Time) (time.Time, error) {
	r := t.Add(time.Duration(d))
	if !inYearRange(r.Year()) {
		return time.Time{}, dateOverflow()
	}
	return r, nil
}

// Between returns a - b. The difference must fit a day-time duration,
// roughly 292 years either way.
func Between(a, b time.Time) (DayTimeDuration, error) {
	d := a.Sub(b)
	if !b.Add(d).Equal(a) {
		return 0, durationOverflow(types.TypeDayTimeDuration)
	}
	return DayTimeDuration(d), nil
}

func (d DayTimeDuration) Type() types.Type { return types.TypeDayTimeDuration }

func (d DayTimeDuration) String() string {
	if d == 0 {
		return "PT0S"
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	rem := abs(time.Duration(d))
	if days := rem / day; days > 0 {
		b.WriteString(strconv.FormatInt(int64(days), 10))
		b.WriteByte('D')
		rem -= days * day
	}
	if rem == 0 {
		return b.String()
	}
	b.WriteByte('T')
	if h := rem / time.Hour; h > 0 {
		b.WriteString(strconv.FormatInt(int64(h), 10))
		b.WriteByte('H')
		rem -= h * time.Hour
	}
	if m := rem / time.Minute; m > 0 {
		b.WriteString(strconv.FormatInt(int64(m), 10))
		b.WriteByte('M')
		rem -= m * time.Minute
	}
	if rem > 0 {
		secs := strconv.FormatInt(int64(rem/time.Second), 10)
		if frac := rem % time.Second; frac > 0 {
			secs += strings.TrimRight("."+leftPad(strconv.FormatInt(int64(frac), 10), 9), "0")
		}
		b.WriteString(secs)
		b.WriteByte('S')
	}
	return b.String()
}

// durationBody strips the sign and the leading P.
func durationBody(s string) (body string, neg bool, ok bool) {
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) == 1 {
		return "", false, false
	}
	return s[1:], neg, true
}

// durationComponent reads an optional "<digits><unit>" prefix of s.
func durationComponent(s string, unit byte) (n int64, rest string, found bool, err error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != unit {
		return 0, s, false, nil
	}
	n, err = strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, s, false, err
	}
	return n, s[i+1:], true, nil
}

// parseSeconds reads n(.n)?. ok is false when the value does not fit a
// time.Duration.
func parseSeconds(s string) (d time.Duration, ok bool, err error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || !isIntegerLexical(whole) || whole[0] == '-' || whole[0] == '+' {
		return 0, false, strconv.ErrSyntax
	}
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	ns, ok := mulInt64(secs, int64(time.Second))
	if !ok {
		return 0, false, nil
	}
	d = time.Duration(ns)
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		for _, c := range frac {
			if c < '0' || c > '9' {
				return 0, false, strconv.ErrSyntax
			}
		}
		ns, _ := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		v, ok := addInt64(int64(d), ns)
		if !ok {
			return 0, false, nil
		}
		d = time.Duration(v)
	}
	return d, true, nil
}

func rangeError(s string, t types.Type) *types.Error {
	return types.Errorf(types.ErrInvalidCast, "%q is out of range for %s", s, t)
}

func durationOverflow(t types.Type) *types.Error {
	return types.Errorf(types.ErrNumericOverflow, "%s overflow", t)
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, false
	}
	return c, true
}

func subInt64(a, b int64) (int64, bool) {
	if b == math.MinInt64 {
		if a >= 0 {
			return 0, false
		}
		return a - b, true
	}
	return addInt64(a, -b)
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

func abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
