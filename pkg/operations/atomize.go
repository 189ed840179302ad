package operations

import (
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// AtomizeItem returns the atomic value of it. Atomic values are returned
// unchanged and nodes yield their typed value. A node without a value is a
// type error.
func AtomizeItem(it item.Item) (item.Atomic, error) {
	switch v := it.(type) {
	case item.Atomic:
		return v, nil
	case node.Node:
		a, ok := v.Value()
		if !ok {
			return nil, types.Errorf(types.ErrTypeMismatch, "node %s has no atomic value", node.Path(v))
		}
		return a, nil
	}
	return nil, types.Errorf(types.ErrTypeMismatch, "cannot atomize %s", it.Type())
}

// Atomize maps every item of seq to its atomic value.
func Atomize(seq *sequence.Sequence) ([]item.Atomic, error) {
	list, err := seq.List()
	if err != nil {
		return nil, err
	}
	out := make([]item.Atomic, 0, len(list))
	for _, it := range list {
		a, err := AtomizeItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// EffectiveBooleanValue reduces seq to a boolean.
//
// The empty sequence is false and a sequence starting with a node is true.
// A single boolean, string, untyped-atomic or numeric value is true when it
// is true, non-empty or non-zero. Anything else has no effective boolean
// value.
func EffectiveBooleanValue(seq *sequence.Sequence) (bool, error) {
	list, err := seq.List()
	if err != nil {
		return false, err
	}
	if len(list) == 0 {
		return false, nil
	}
	if _, ok := list[0].(node.Node); ok {
		return true, nil
	}
	if len(list) > 1 {
		return false, types.Errorf(types.ErrInvalidEBV, "effective boolean value is not defined for a sequence of %d atomic values", len(list))
	}
	switch v := list[0].(type) {
	case item.Boolean:
		return bool(v), nil
	case item.String:
		return v != "", nil
	case item.UntypedAtomic:
		return v != "", nil
	case item.Numeric:
		return !v.Decimal().IsZero(), nil
	}
	return false, types.Errorf(types.ErrInvalidEBV, "effective boolean value is not defined for %s", list[0].Type())
}
