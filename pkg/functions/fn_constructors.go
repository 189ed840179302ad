package functions

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// constructorFunctions returns one cast function per concrete atomic type.
func constructorFunctions() []*Function {
	targets := []struct {
		name string
		typ  types.Type
	}{
		{"date", types.TypeDate},
		{"date-time", types.TypeDateTime},
		{"year-month-duration", types.TypeYearMonthDuration},
		{"day-time-duration", types.TypeDayTimeDuration},
		{"integer", types.TypeInteger},
		{"decimal", types.TypeDecimal},
		{"base64-binary", types.TypeBase64Binary},
		{"untyped-atomic", types.TypeUntypedAtomic},
	}
	out := make([]*Function, 0, len(targets))
	for _, t := range targets {
		out = append(out, &Function{
			Name:       t.name,
			MinArgs:    1,
			MaxArgs:    1,
			ReturnType: t.typ,
			Impl:       castTo(t.typ),
		})
	}
	return out
}

func castTo(t types.Type) Impl {
	return func(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
		a, ok, err := AtomicArg(args[0])
		if err != nil || !ok {
			return sequence.Empty(), err
		}
		v, err := item.Cast(a, t)
		if err != nil {
			return nil, err
		}
		return sequence.Of(v), nil
	}
}
