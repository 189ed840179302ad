package functions

import (
	"context"
	"net/url"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func nodeFunctions() []*Function {
	return []*Function{
		{Name: "name", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeString, Impl: fnName},
		{Name: "path", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeString, Impl: fnPath},
		{Name: "root", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeNode, Impl: fnRoot},
		{Name: "base-uri", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeString, Impl: fnBaseURI},
	}
}

// nodeOrFocus returns the node argument, or the context node when called
// without arguments.
func nodeOrFocus(env Env, args []*sequence.Sequence) (node.Node, bool, error) {
	if len(args) == 0 {
		n, err := focusNode(env)
		return n, err == nil, err
	}
	return NodeArg(args[0])
}

func fnName(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	n, ok, err := nodeOrFocus(env, args)
	if err != nil {
		return nil, err
	}
	if !ok {
		return sequence.Of(item.String("")), nil
	}
	return sequence.Of(item.String(n.Name())), nil
}

func fnPath(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	n, ok, err := nodeOrFocus(env, args)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	return sequence.Of(item.String(node.Path(n))), nil
}

func fnRoot(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	n, ok, err := nodeOrFocus(env, args)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	return sequence.Of(node.Root(n)), nil
}

// fnBaseURI returns the URI of the document holding the node, resolved
// against the static base URI.
func fnBaseURI(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	n, ok, err := nodeOrFocus(env, args)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	uri := node.BaseURI(n)
	if base := env.BaseURI(); base != "" {
		if b, err := url.Parse(base); err == nil {
			if u, err := b.Parse(uri); err == nil {
				uri = u.String()
			}
		}
	}
	if uri == "" {
		return sequence.Empty(), nil
	}
	return sequence.Of(item.String(uri)), nil
}
