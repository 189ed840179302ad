package functions

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func booleanFunctions() []*Function {
	return []*Function{
		{Name: "true", MinArgs: 0, MaxArgs: 0, ReturnType: types.TypeBoolean, Impl: fnTrue},
		{Name: "false", MinArgs: 0, MaxArgs: 0, ReturnType: types.TypeBoolean, Impl: fnFalse},
		{Name: "not", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeBoolean, Impl: fnNot},
		{Name: "boolean", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeBoolean, Impl: fnBoolean},
	}
}

func fnTrue(context.Context, Env, []*sequence.Sequence) (*sequence.Sequence, error) {
	return sequence.Of(item.Boolean(true)), nil
}

func fnFalse(context.Context, Env, []*sequence.Sequence) (*sequence.Sequence, error) {
	return sequence.Of(item.Boolean(false)), nil
}

func fnNot(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	b, err := operations.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.Boolean(!b)), nil
}

func fnBoolean(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	b, err := operations.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.Boolean(b)), nil
}
