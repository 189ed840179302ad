package operations

import (
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// GeneralCompare reports whether any pairing from left × right satisfies op
// after untyped-atomic promotion.
func GeneralCompare(left, right []item.Atomic, op Operator) (bool, error) {
	for _, l := range left {
		for _, r := range right {
			a, b, err := promote(l, r)
			if err != nil {
				return false, err
			}
			ok, err := compare(a, b, op, op.String())
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// promote casts an untyped-atomic operand to the kind of the other one.
// Two untyped-atomic operands are compared as strings.
func promote(l, r item.Atomic) (item.Atomic, item.Atomic, error) {
	lu, ru := isUntyped(l), isUntyped(r)
	switch {
	case lu && ru:
		return item.String(l.String()), item.String(r.String()), nil
	case lu:
		p, err := promoteUntyped(l, r)
		return p, r, err
	case ru:
		p, err := promoteUntyped(r, l)
		return l, p, err
	}
	return l, r, nil
}

func promoteUntyped(u, other item.Atomic) (item.Atomic, error) {
	switch other.(type) {
	case item.Numeric:
		return item.Cast(u, types.TypeDecimal)
	case item.YearMonthDuration:
		return item.Cast(u, types.TypeYearMonthDuration)
	case item.DayTimeDuration:
		return item.Cast(u, types.TypeDayTimeDuration)
	}
	return item.Cast(u, other.Type())
}

func isUntyped(a item.Atomic) bool {
	_, ok := a.(item.UntypedAtomic)
	return ok
}
