package operations

import (
	"context"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Arithmetic applies op to two atomic operands.
//
// Untyped-atomic operands are cast to decimal first. Integer operands keep
// integer results except for div, which always yields a decimal. Dates and
// date-times accept duration offsets, durations may be scaled by numbers,
// and same-category durations may be subtracted or divided. Every other
// pairing is a type error.
func Arithmetic(ctx context.Context, op ArithOp, left, right item.Atomic) (item.Atomic, error) {
	left, err := untypedToDecimal(left)
	if err != nil {
		return nil, err
	}
	right, err = untypedToDecimal(right)
	if err != nil {
		return nil, err
	}

	switch l := left.(type) {
	case item.Numeric:
		switch r := right.(type) {
		case item.Numeric:
			return numeric(ctx, op, l, r)
		case item.YearMonthDuration:
			if op == Multiply {
				return scaleMonths(ctx, r, l, false)
			}
		case item.DayTimeDuration:
			if op == Multiply {
				return scaleTime(ctx, r, l, false)
			}
		}
	case item.Date:
		return dateOffset(op, l, right, false)
	case item.DateTime:
		return dateTimeOffset(op, l, right, false)
	case item.YearMonthDuration:
		switch r := right.(type) {
		case item.YearMonthDuration:
			switch op {
			case Subtract:
				return atomic(l.Sub(r))
			case Divide:
				return durationRatio(ctx, int64(l), int64(r))
			}
		case item.Numeric:
			switch op {
			case Multiply:
				return scaleMonths(ctx, l, r, false)
			case Divide:
				return scaleMonths(ctx, l, r, true)
			}
		case item.Date:
			if op == Add {
				return dateOffset(op, r, l, true)
			}
		case item.DateTime:
			if op == Add {
				return dateTimeOffset(op, r, l, true)
			}
		}
	case item.DayTimeDuration:
		switch r := right.(type) {
		case item.DayTimeDuration:
			switch op {
			case Subtract:
				return atomic(l.Sub(r))
			case Divide:
				return durationRatio(ctx, int64(l), int64(r))
			}
		case item.Numeric:
			switch op {
			case Multiply:
				return scaleTime(ctx, l, r, false)
			case Divide:
				return scaleTime(ctx, l, r, true)
			}
		case item.Date:
			if op == Add {
				return dateOffset(op, r, l, true)
			}
		case item.DateTime:
			if op == Add {
				return dateTimeOffset(op, r, l, true)
			}
		}
	}
	return nil, typeMismatch(left, right, op.String())
}

// Negate returns the arithmetic negation of a numeric operand.
func Negate(a item.Atomic) (item.Atomic, error) {
	a, err := untypedToDecimal(a)
	if err != nil {
		return nil, err
	}
	switch v := a.(type) {
	case item.Integer:
		var d apd.Decimal
		d.Neg(v.Decimal())
		return item.IntegerOf(&d), nil
	case item.Decimal:
		var d apd.Decimal
		d.Neg(v.Decimal())
		return item.NewDecimal(&d), nil
	}
	return nil, types.Errorf(types.ErrTypeMismatch, "unary minus is not defined for %s", a.Type())
}

func untypedToDecimal(a item.Atomic) (item.Atomic, error) {
	if u, ok := a.(item.UntypedAtomic); ok {
		return item.Cast(u, types.TypeDecimal)
	}
	return a, nil
}

// atomic widens a typed result to item.Atomic.
func atomic[T item.Atomic](v T, err error) (item.Atomic, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func divisionByZero() *types.Error {
	return types.Errorf(types.ErrDivisionByZero, "division by zero")
}

func overflow(op ArithOp, err error) *types.Error {
	e := types.Errorf(types.ErrNumericOverflow, "numeric overflow in %s", op)
	if err != nil {
		e = e.WithCause(err)
	}
	return e
}

func numeric(ctx context.Context, op ArithOp, l, r item.Numeric) (item.Atomic, error) {
	_, lInt := l.(item.Integer)
	_, rInt := r.(item.Integer)
	integral := lInt && rInt

	c := item.DecimalContext(ctx)
	if integral {
		c = item.IntegerContext()
	}
	a, b := l.Decimal(), r.Decimal()

	var res apd.Decimal
	var cond apd.Condition
	var err error
	switch op {
	case Add:
		cond, err = c.Add(&res, a, b)
	case Subtract:
		cond, err = c.Sub(&res, a, b)
	case Multiply:
		cond, err = c.Mul(&res, a, b)
	case Divide:
		if b.IsZero() {
			return nil, divisionByZero()
		}
		if _, err = item.DecimalContext(ctx).Quo(&res, a, b); err != nil {
			return nil, overflow(op, err)
		}
		return item.NewDecimal(&res), nil
	case IntegerDivide:
		if b.IsZero() {
			return nil, divisionByZero()
		}
		if _, err = item.IntegerContext().QuoInteger(&res, a, b); err != nil {
			return nil, overflow(op, err)
		}
		return item.IntegerOf(&res), nil
	case Modulo:
		if b.IsZero() {
			return nil, divisionByZero()
		}
		cond, err = c.Rem(&res, a, b)
	default:
		return nil, typeMismatch(l, r, op.String())
	}
	if err != nil || (integral && cond.Inexact()) {
		return nil, overflow(op, err)
	}
	if integral {
		return item.IntegerOf(&res), nil
	}
	return item.NewDecimal(&res), nil
}

// scale multiplies or divides n by f and rounds half up to an integer.
func scale(ctx context.Context, n int64, f item.Numeric, divide bool) (int64, error) {
	c := item.DecimalContext(ctx)
	var res apd.Decimal
	var err error
	if divide {
		if f.Decimal().IsZero() {
			return 0, divisionByZero()
		}
		_, err = c.Quo(&res, apd.New(n, 0), f.Decimal())
	} else {
		_, err = c.Mul(&res, apd.New(n, 0), f.Decimal())
	}
	if err != nil {
		return 0, overflow(Multiply, err)
	}
	rc := *c
	rc.Rounding = apd.RoundHalfUp
	var rounded apd.Decimal
	if _, err := rc.RoundToIntegralValue(&rounded, &res); err != nil {
		return 0, overflow(Multiply, err)
	}
	v, err := rounded.Int64()
	if err != nil {
		return 0, overflow(Multiply, err)
	}
	return v, nil
}

func scaleMonths(ctx context.Context, d item.YearMonthDuration, f item.Numeric, divide bool) (item.Atomic, error) {
	m, err := scale(ctx, int64(d), f, divide)
	if err != nil {
		return nil, err
	}
	return item.YearMonthDuration(m), nil
}

func scaleTime(ctx context.Context, d item.DayTimeDuration, f item.Numeric, divide bool) (item.Atomic, error) {
	ns, err := scale(ctx, int64(d), f, divide)
	if err != nil {
		return nil, err
	}
	return item.DayTimeDuration(ns), nil
}

func durationRatio(ctx context.Context, a, b int64) (item.Atomic, error) {
	if b == 0 {
		return nil, divisionByZero()
	}
	var res apd.Decimal
	if _, err := item.DecimalContext(ctx).Quo(&res, apd.New(a, 0), apd.New(b, 0)); err != nil {
		return nil, overflow(Divide, err)
	}
	return item.NewDecimal(&res), nil
}

// offset applies a duration to t. sign is -1 for subtraction. ok is false
// when dur is not a duration.
func offset(t time.Time, dur item.Atomic, sign int) (_ time.Time, ok bool, err error) {
	switch d := dur.(type) {
	case item.YearMonthDuration:
		if sign < 0 {
			if d, err = d.Neg(); err != nil {
				return time.Time{}, true, err
			}
		}
		t, err = d.AddTo(t)
		return t, true, err
	case item.DayTimeDuration:
		if sign < 0 {
			if d, err = d.Neg(); err != nil {
				return time.Time{}, true, err
			}
		}
		t, err = d.AddTo(t)
		return t, true, err
	}
	return time.Time{}, false, nil
}

// dateOffset handles date ± duration and date - date. swapped marks a
// duration + date call so type errors name the operands in source order.
func dateOffset(op ArithOp, d item.Date, right item.Atomic, swapped bool) (item.Atomic, error) {
	switch op {
	case Add, Subtract:
		if r, ok := right.(item.Date); ok && op == Subtract {
			return atomic(item.Between(d.Time(), r.Time()))
		}
		sign := 1
		if op == Subtract {
			sign = -1
		}
		if t, ok, err := offset(d.Time(), right, sign); ok {
			if err != nil {
				return nil, err
			}
			return item.NewDate(t, d.HasTimezone()), nil
		}
	}
	if swapped {
		return nil, typeMismatch(right, d, op.String())
	}
	return nil, typeMismatch(d, right, op.String())
}

func dateTimeOffset(op ArithOp, d item.DateTime, right item.Atomic, swapped bool) (item.Atomic, error) {
	switch op {
	case Add, Subtract:
		if r, ok := right.(item.DateTime); ok && op == Subtract {
			return atomic(item.Between(d.Time(), r.Time()))
		}
		sign := 1
		if op == Subtract {
			sign = -1
		}
		if t, ok, err := offset(d.Time(), right, sign); ok {
			if err != nil {
				return nil, err
			}
			return item.NewDateTime(t, d.HasTimezone()), nil
		}
	}
	if swapped {
		return nil, typeMismatch(right, d, op.String())
	}
	return nil, typeMismatch(d, right, op.String())
}
