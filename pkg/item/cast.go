package item

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/types"
)

func lexicalError(s string, t types.Type) *types.Error {
	return types.Errorf(types.ErrInvalidCast, "invalid lexical form %q for %s", s, t)
}

func castError(a Atomic, t types.Type) *types.Error {
	return types.Errorf(types.ErrInvalidCast, "cannot cast %s %q to %s", a.Type(), a.String(), t)
}

// Parse converts the lexical form s into a value of type t. Leading and
// trailing whitespace is ignored for every type except string.
func Parse(s string, t types.Type) (Atomic, error) {
	if t == types.TypeString {
		return String(s), nil
	}
	s = strings.TrimSpace(s)
	switch t {
	case types.TypeUntypedAtomic, types.TypeAnyAtomic:
		return UntypedAtomic(s), nil
	case types.TypeBoolean:
		return ParseBoolean(s)
	case types.TypeInteger:
		return ParseInteger(s)
	case types.TypeDecimal, types.TypeNumeric:
		return ParseDecimal(s)
	case types.TypeDate:
		return ParseDate(s)
	case types.TypeDateTime:
		return ParseDateTime(s)
	case types.TypeYearMonthDuration:
		return ParseYearMonthDuration(s)
	case types.TypeDayTimeDuration:
		return ParseDayTimeDuration(s)
	case types.TypeDuration:
		if d, err := ParseYearMonthDuration(s); err == nil {
			return d, nil
		}
		return ParseDayTimeDuration(s)
	case types.TypeBase64Binary:
		return ParseBase64Binary(s)
	}
	return nil, types.Errorf(types.ErrInvalidCast, "cannot cast to non-atomic type %s", t)
}

// Cast converts a to type t following the casting table:
//
//   - any value casts to string and untyped-atomic through its lexical form
//   - string and untyped-atomic cast to any type by parsing
//   - numeric values cast to each other and to boolean
//   - booleans cast to numeric types as 1 or 0
//   - date and date-time cast to each other
//
// Every other combination fails with a cast error.
func Cast(a Atomic, t types.Type) (Atomic, error) {
	if a.Type() == t || (isAbstract(t) && a.Type().IsSubtypeOf(t)) {
		return a, nil
	}
	switch t {
	case types.TypeString:
		return String(a.String()), nil
	case types.TypeUntypedAtomic:
		return UntypedAtomic(a.String()), nil
	}
	switch v := a.(type) {
	case String:
		return Parse(string(v), t)
	case UntypedAtomic:
		return Parse(string(v), t)
	case Integer:
		switch t {
		case types.TypeDecimal, types.TypeNumeric:
			return Decimal(v), nil
		case types.TypeBoolean:
			return Boolean(!v.dec().IsZero()), nil
		}
	case Decimal:
		switch t {
		case types.TypeInteger:
			return IntegerOf(v.dec()), nil
		case types.TypeNumeric:
			return v, nil
		case types.TypeBoolean:
			return Boolean(!v.dec().IsZero()), nil
		}
	case Boolean:
		n := int64(0)
		if v {
			n = 1
		}
		switch t {
		case types.TypeInteger:
			return NewInteger(n), nil
		case types.TypeDecimal, types.TypeNumeric:
			return Decimal{v: apd.New(n, 0)}, nil
		}
	case Date:
		if t == types.TypeDateTime {
			return DateTime(v), nil
		}
	case DateTime:
		if t == types.TypeDate {
			return NewDate(v.t, v.tz), nil
		}
	}
	return nil, castError(a, t)
}

// isAbstract reports whether t has no direct instances.
func isAbstract(t types.Type) bool {
	switch t {
	case types.TypeNumeric, types.TypeDuration, types.TypeAnyAtomic, types.TypeItem:
		return true
	}
	return false
}

// FromGo converts a decoded document value into an atomic value. Strings
// become untyped-atomic values; numbers become integers when they have no
// fractional part. It reports false for values that are not scalars.
func FromGo(v any) (Atomic, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case Atomic:
		return x, true
	case string:
		return UntypedAtomic(x), true
	case bool:
		return Boolean(x), true
	case json.Number:
		if i, err := ParseInteger(string(x)); err == nil {
			return i, true
		}
		if d, err := ParseDecimal(string(x)); err == nil {
			return d, true
		}
		return UntypedAtomic(x), true
	case int:
		return NewInteger(int64(x)), true
	case int8:
		return NewInteger(int64(x)), true
	case int16:
		return NewInteger(int64(x)), true
	case int32:
		return NewInteger(int64(x)), true
	case int64:
		return NewInteger(x), true
	case uint:
		return integerFromString(fmt.Sprint(x)), true
	case uint8:
		return NewInteger(int64(x)), true
	case uint16:
		return NewInteger(int64(x)), true
	case uint32:
		return NewInteger(int64(x)), true
	case uint64:
		return integerFromString(fmt.Sprint(x)), true
	case *big.Int:
		return integerFromString(x.String()), true
	case float32:
		return decimalFromFloat(float64(x))
	case float64:
		return decimalFromFloat(x)
	case *apd.Decimal:
		return Decimal{v: x}, true
	case time.Time:
		return NewDateTime(x, true), true
	case []byte:
		return Base64Binary(x), true
	case fmt.Stringer:
		return UntypedAtomic(x.String()), true
	}
	return nil, false
}

func integerFromString(s string) Integer {
	i, err := ParseInteger(s)
	if err != nil {
		return Integer{}
	}
	return i
}

func decimalFromFloat(f float64) (Atomic, bool) {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil || d.Form != apd.Finite {
		return UntypedAtomic(fmt.Sprint(f)), true
	}
	return Decimal{v: &d}, true
}
