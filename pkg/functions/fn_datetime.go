package functions

import (
	"context"
	"time"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func datetimeFunctions() []*Function {
	return []*Function{
		{Name: "current-dateTime", MinArgs: 0, MaxArgs: 0, ReturnType: types.TypeDateTime, Impl: fnCurrentDateTime},
		{Name: "current-date", MinArgs: 0, MaxArgs: 0, ReturnType: types.TypeDate, Impl: fnCurrentDate},
		{Name: "implicit-timezone", MinArgs: 0, MaxArgs: 0, ReturnType: types.TypeDayTimeDuration, Impl: fnImplicitTimezone},
	}
}

// now returns the evaluation snapshot in the implicit timezone.
func now(env Env) time.Time {
	t := env.Now()
	if loc := env.ImplicitTimezone(); loc != nil {
		t = t.In(loc)
	}
	return t
}

func fnCurrentDateTime(_ context.Context, env Env, _ []*sequence.Sequence) (*sequence.Sequence, error) {
	return sequence.Of(item.NewDateTime(now(env), true)), nil
}

func fnCurrentDate(_ context.Context, env Env, _ []*sequence.Sequence) (*sequence.Sequence, error) {
	return sequence.Of(item.NewDate(now(env), true)), nil
}

func fnImplicitTimezone(_ context.Context, env Env, _ []*sequence.Sequence) (*sequence.Sequence, error) {
	_, offset := now(env).Zone()
	return sequence.Of(item.DayTimeDuration(time.Duration(offset) * time.Second)), nil
}
