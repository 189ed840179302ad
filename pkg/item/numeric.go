package item

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/types"
)

// DefaultPrecision is the number of significant digits kept by decimal
// arithmetic when the context carries no apd.Context.
const DefaultPrecision uint32 = 34

// integerPrecision bounds integer arithmetic. Results that do not fit are
// reported as overflow instead of being rounded.
const integerPrecision uint32 = 1000

var (
	defaultDecimalContext = apd.BaseContext.WithPrecision(DefaultPrecision)
	integerContext        = apd.BaseContext.WithPrecision(integerPrecision)
)

type decimalContextKey struct{}

// WithDecimalContext sets the apd.Context used for decimal arithmetic.
//
//	ctx = item.WithDecimalContext(ctx, apd.BaseContext.WithPrecision(10))
func WithDecimalContext(ctx context.Context, c *apd.Context) context.Context {
	return context.WithValue(ctx, decimalContextKey{}, c)
}

// DecimalContext returns the apd.Context for decimal arithmetic.
func DecimalContext(ctx context.Context) *apd.Context {
	if ctx != nil {
		if c, ok := ctx.Value(decimalContextKey{}).(*apd.Context); ok && c != nil {
			return c
		}
	}
	return defaultDecimalContext
}

// IntegerContext returns the apd.Context used for integer arithmetic.
func IntegerContext() *apd.Context {
	return integerContext
}

var zero = apd.New(0, 0)

// Integer is an arbitrary precision integer.
type Integer struct {
	v *apd.Decimal
}

// NewInteger returns the integer i.
func NewInteger(i int64) Integer {
	return Integer{v: apd.New(i, 0)}
}

// IntegerOf wraps d, truncating any fractional part.
func IntegerOf(d *apd.Decimal) Integer {
	if d.Exponent >= 0 {
		return Integer{v: d}
	}
	var integ, frac apd.Decimal
	d.Modf(&integ, &frac)
	return Integer{v: &integ}
}

// ParseInteger parses the lexical form [+-]?[0-9]+.
func ParseInteger(s string) (Integer, error) {
	if !isIntegerLexical(s) {
		return Integer{}, lexicalError(s, types.TypeInteger)
	}
	d, _, err := apd.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return Integer{}, lexicalError(s, types.TypeInteger)
	}
	return Integer{v: d}, nil
}

func (i Integer) dec() *apd.Decimal {
	if i.v == nil {
		return zero
	}
	return i.v
}

// Decimal returns the value as an apd.Decimal. The result must not be modified.
func (i Integer) Decimal() *apd.Decimal { return i.dec() }

// Int64 returns the value as an int64.
func (i Integer) Int64() (int64, error) {
	n, err := i.dec().Int64()
	if err != nil {
		return 0, types.Errorf(types.ErrNumericOverflow, "integer %s out of range", i)
	}
	return n, nil
}

func (i Integer) Type() types.Type { return types.TypeInteger }

func (i Integer) String() string {
	if i.dec().IsZero() {
		return "0"
	}
	return i.dec().Text('f')
}

// Decimal is an arbitrary precision decimal number.
type Decimal struct {
	v *apd.Decimal
}

// NewDecimal wraps d.
func NewDecimal(d *apd.Decimal) Decimal {
	return Decimal{v: d}
}

// ParseDecimal parses a decimal literal. Exponent notation is accepted.
func ParseDecimal(s string) (Decimal, error) {
	if !isDecimalLexical(s) {
		return Decimal{}, lexicalError(s, types.TypeDecimal)
	}
	d, _, err := apd.NewFromString(normalizeDecimal(s))
	if err != nil || d.Form != apd.Finite {
		return Decimal{}, lexicalError(s, types.TypeDecimal)
	}
	return Decimal{v: d}, nil
}

// MustDecimal is like ParseDecimal but panics on error.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(fmt.Sprintf("item: MustDecimal(%q): %v", s, err))
	}
	return d
}

func (d Decimal) dec() *apd.Decimal {
	if d.v == nil {
		return zero
	}
	return d.v
}

// Decimal returns the value as an apd.Decimal. The result must not be modified.
func (d Decimal) Decimal() *apd.Decimal { return d.dec() }

func (d Decimal) Type() types.Type { return types.TypeDecimal }

func (d Decimal) String() string {
	v := d.dec()
	if v.IsZero() {
		return "0"
	}
	var r apd.Decimal
	r.Reduce(v)
	return r.Text('f')
}

// Numeric is implemented by Integer and Decimal.
type Numeric interface {
	Atomic
	Decimal() *apd.Decimal
}

var (
	_ Numeric = Integer{}
	_ Numeric = Decimal{}
)

func isIntegerLexical(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isDecimalLexical(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits := 0
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := i
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		}
		if i == exp {
			return false
		}
	}
	return i == len(s)
}

// normalizeDecimal rewrites forms such as "+.5" and "5." into "0.5" and "5.0".
func normalizeDecimal(s string) string {
	neg := false
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && (i == len(s)-1 || s[i+1] == 'e' || s[i+1] == 'E') {
		s = s[:i+1] + "0" + s[i+1:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
