package functions

import (
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// AtomicArg atomizes an argument that allows at most one item. ok is false
// for the empty sequence.
func AtomicArg(seq *sequence.Sequence) (a item.Atomic, ok bool, err error) {
	list, err := seq.List()
	if err != nil {
		return nil, false, err
	}
	switch len(list) {
	case 0:
		return nil, false, nil
	case 1:
		a, err := operations.AtomizeItem(list[0])
		return a, err == nil, err
	}
	return nil, false, types.Errorf(types.ErrNotASingleton, "expected at most one item, got %d", len(list))
}

// StringArg returns the string value of an optional single argument. The
// empty sequence yields "".
func StringArg(seq *sequence.Sequence) (string, error) {
	a, ok, err := AtomicArg(seq)
	if err != nil || !ok {
		return "", err
	}
	return a.String(), nil
}

// NodeArg returns the single node of an argument.
func NodeArg(seq *sequence.Sequence) (node.Node, bool, error) {
	list, err := seq.List()
	if err != nil {
		return nil, false, err
	}
	switch len(list) {
	case 0:
		return nil, false, nil
	case 1:
		n, ok := list[0].(node.Node)
		if !ok {
			return nil, false, types.Errorf(types.ErrNotANode, "expected a node, got %s", list[0].Type())
		}
		return n, true, nil
	}
	return nil, false, types.Errorf(types.ErrNotASingleton, "expected at most one node, got %d", len(list))
}

// focus returns the context item, or a dynamic error when there is none.
func focus(env Env) (item.Item, error) {
	it, ok := env.Focus()
	if !ok {
		return nil, types.Errorf(types.ErrContextAbsent, "context item is absent")
	}
	return it, nil
}

// focusNode returns the context item as a node.
func focusNode(env Env) (node.Node, error) {
	it, err := focus(env)
	if err != nil {
		return nil, err
	}
	n, ok := it.(node.Node)
	if !ok {
		return nil, types.Errorf(types.ErrNotANode, "context item is %s, not a node", it.Type())
	}
	return n, nil
}

// argOrFocus returns args[0], or the context item when the function was
// called without arguments.
func argOrFocus(env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	it, err := focus(env)
	if err != nil {
		return nil, err
	}
	return sequence.Of(it), nil
}

func stringValue(it item.Item) string {
	switch v := it.(type) {
	case item.Atomic:
		return v.String()
	case node.Node:
		if a, ok := v.Value(); ok {
			return a.String()
		}
	}
	return ""
}
