package functions

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func numericFunctions() []*Function {
	return []*Function{
		{Name: "abs", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeNumeric, Impl: fnAbs},
		{Name: "sum", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeAnyAtomic, Impl: fnSum},
	}
}

func fnAbs(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	a, ok, err := AtomicArg(args[0])
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	if u, isUntyped := a.(item.UntypedAtomic); isUntyped {
		if a, err = item.Cast(u, types.TypeDecimal); err != nil {
			return nil, err
		}
	}
	var d apd.Decimal
	switch v := a.(type) {
	case item.Integer:
		d.Abs(v.Decimal())
		return sequence.Of(item.IntegerOf(&d)), nil
	case item.Decimal:
		d.Abs(v.Decimal())
		return sequence.Of(item.NewDecimal(&d)), nil
	}
	return nil, types.Errorf(types.ErrTypeMismatch, "abs is not defined for %s", a.Type())
}

// fnSum adds the atomized items left to right. The sum of the empty
// sequence is the integer 0. Durations of the same category may be summed
// even though the + operator rejects them.
func fnSum(ctx context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	atoms, err := operations.Atomize(args[0])
	if err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return sequence.Of(item.NewInteger(0)), nil
	}
	total := atoms[0]
	if u, ok := total.(item.UntypedAtomic); ok {
		if total, err = item.Cast(u, types.TypeDecimal); err != nil {
			return nil, err
		}
	}
	for _, a := range atoms[1:] {
		if total, err = sumStep(ctx, total, a); err != nil {
			return nil, err
		}
	}
	return sequence.Of(total), nil
}

func sumStep(ctx context.Context, total, a item.Atomic) (item.Atomic, error) {
	switch t := total.(type) {
	case item.YearMonthDuration:
		if d, ok := a.(item.YearMonthDuration); ok {
			sum, err := t.Add(d)
			if err != nil {
				return nil, err
			}
			return sum, nil
		}
	case item.DayTimeDuration:
		if d, ok := a.(item.DayTimeDuration); ok {
			sum, err := t.Add(d)
			if err != nil {
				return nil, err
			}
			return sum, nil
		}
	}
	return operations.Arithmetic(ctx, operations.Add, total, a)
}
