package functions

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func sequenceFunctions() []*Function {
	return []*Function{
		{Name: "count", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeInteger, Impl: fnCount},
		{Name: "empty", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeBoolean, Impl: fnEmpty},
		{Name: "exists", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeBoolean, Impl: fnExists},
		{Name: "data", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeAnyAtomic, Impl: fnData},
	}
}

func fnCount(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	n, err := args[0].Size()
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.NewInteger(int64(n))), nil
}

func fnEmpty(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	empty, err := args[0].IsEmpty()
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.Boolean(empty)), nil
}

func fnExists(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	empty, err := args[0].IsEmpty()
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.Boolean(!empty)), nil
}

func fnData(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	seq, err := argOrFocus(env, args)
	if err != nil {
		return nil, err
	}
	atoms, err := operations.Atomize(seq)
	if err != nil {
		return nil, err
	}
	out := make([]item.Item, len(atoms))
	for i, a := range atoms {
		out[i] = a
	}
	return sequence.FromList(out), nil
}
