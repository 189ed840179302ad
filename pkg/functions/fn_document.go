package functions

import (
	"context"
	"errors"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func documentFunctions() []*Function {
	return []*Function{
		{Name: "doc", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeDocument, Impl: fnDoc},
		{Name: "doc-available", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeBoolean, Impl: fnDocAvailable},
	}
}

func fnDoc(ctx context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	a, ok, err := AtomicArg(args[0])
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	doc, err := env.Document(ctx, a.String())
	if err != nil {
		return nil, err
	}
	return sequence.Of(doc.Node()), nil
}

// fnDocAvailable reports whether doc would succeed. Import cycles are
// still reported as errors.
func fnDocAvailable(ctx context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	a, ok, err := AtomicArg(args[0])
	if err != nil || !ok {
		return sequence.Of(item.Boolean(false)), err
	}
	if _, err := env.Document(ctx, a.String()); err != nil {
		if errors.Is(err, types.ErrCycle) {
			return nil, err
		}
		return sequence.Of(item.Boolean(false)), nil
	}
	return sequence.Of(item.Boolean(true)), nil
}
