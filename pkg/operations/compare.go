package operations

import (
	"bytes"
	"strings"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Compare applies a value comparison. The operand kinds select string,
// numeric, boolean, date-time, date, duration or binary comparison; any
// other pairing is a type error naming the value comparison keyword.
func Compare(left, right item.Atomic, op Operator) (bool, error) {
	return compare(left, right, op, op.Keyword())
}

// compare applies op. symbol names the operator in type errors.
func compare(left, right item.Atomic, op Operator, symbol string) (bool, error) {
	c, err := order(left, right, symbol, op != EQ && op != NE)
	if err != nil {
		return false, err
	}
	switch op {
	case EQ:
		return c == 0, nil
	case NE:
		return c != 0, nil
	case LT:
		return c < 0, nil
	case GT:
		return c > 0, nil
	case LE:
		return c <= 0, nil
	case GE:
		return c >= 0, nil
	}
	return false, types.Errorf(types.ErrTypeMismatch, "unknown comparison operator %d", op)
}

// order returns the three-way ordering of left and right. When ordered is
// false only equality is needed, which allows pairings that have no order.
func order(left, right item.Atomic, symbol string, ordered bool) (int, error) {
	switch l := left.(type) {
	case item.String, item.UntypedAtomic:
		if isStringLike(right) {
			return strings.Compare(left.String(), right.String()), nil
		}
	case item.Numeric:
		if r, ok := right.(item.Numeric); ok {
			return l.Decimal().Cmp(r.Decimal()), nil
		}
	case item.Boolean:
		if r, ok := right.(item.Boolean); ok {
			return compareBool(bool(l), bool(r)), nil
		}
	case item.DateTime:
		if r, ok := right.(item.DateTime); ok {
			return l.Time().Compare(r.Time()), nil
		}
	case item.Date:
		if r, ok := right.(item.Date); ok {
			return l.Time().Compare(r.Time()), nil
		}
	case item.YearMonthDuration:
		switch r := right.(type) {
		case item.YearMonthDuration:
			return compareInt(int64(l), int64(r)), nil
		case item.DayTimeDuration:
			if !ordered {
				return mixedDurationEqual(l == 0 && r == 0), nil
			}
		}
	case item.DayTimeDuration:
		switch r := right.(type) {
		case item.DayTimeDuration:
			return compareInt(int64(l), int64(r)), nil
		case item.YearMonthDuration:
			if !ordered {
				return mixedDurationEqual(l == 0 && r == 0), nil
			}
		}
	case item.Base64Binary:
		if r, ok := right.(item.Base64Binary); ok {
			return bytes.Compare(l, r), nil
		}
	}
	return 0, typeMismatch(left, right, symbol)
}

func isStringLike(a item.Atomic) bool {
	switch a.(type) {
	case item.String, item.UntypedAtomic:
		return true
	}
	return false
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func mixedDurationEqual(eq bool) int {
	if eq {
		return 0
	}
	return 1
}

func typeMismatch(left, right item.Atomic, op string) *types.Error {
	return types.Errorf(types.ErrTypeMismatch, "operator %s is not defined for %s and %s", op, left.Type(), right.Type())
}
