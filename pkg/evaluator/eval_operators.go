package evaluator

import (
	"strings"

	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Arithmetic yields the empty sequence when either operand is empty.
func (in *interpreter) Arithmetic(e *ast.Arithmetic, focus item.Item) (*sequence.Sequence, error) {
	left, ok, err := in.singleton(e.Left, focus)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	right, ok, err := in.singleton(e.Right, focus)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	r, err := operations.Arithmetic(in.ctx, e.Op, left, right)
	if err != nil {
		return nil, in.fail(e, err)
	}
	return sequence.Of(r), nil
}

func (in *interpreter) Negate(e *ast.Negate, focus item.Item) (*sequence.Sequence, error) {
	v, ok, err := in.singleton(e.Operand, focus)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	r, err := operations.Negate(v)
	if err != nil {
		return nil, in.fail(e, err)
	}
	return sequence.Of(r), nil
}

// ebv evaluates expr and reduces it to its effective boolean value.
func (in *interpreter) ebv(expr ast.Expr, focus item.Item) (bool, error) {
	seq, err := in.eval(expr, focus)
	if err != nil {
		return false, err
	}
	b, err := operations.EffectiveBooleanValue(seq)
	if err != nil {
		return false, in.fail(expr, err)
	}
	return b, nil
}

func (in *interpreter) And(e *ast.And, focus item.Item) (*sequence.Sequence, error) {
	for _, op := range e.Operands {
		b, err := in.ebv(op, focus)
		if err != nil {
			return nil, err
		}
		if !b {
			return sequence.Of(item.Boolean(false)), nil
		}
	}
	return sequence.Of(item.Boolean(true)), nil
}

func (in *interpreter) Or(e *ast.Or, focus item.Item) (*sequence.Sequence, error) {
	for _, op := range e.Operands {
		b, err := in.ebv(op, focus)
		if err != nil {
			return nil, err
		}
		if b {
			return sequence.Of(item.Boolean(true)), nil
		}
	}
	return sequence.Of(item.Boolean(false)), nil
}

// atomized evaluates expr and atomizes every item of the result.
func (in *interpreter) atomized(expr ast.Expr, focus item.Item) ([]item.Atomic, error) {
	seq, err := in.eval(expr, focus)
	if err != nil {
		return nil, err
	}
	atoms, err := operations.Atomize(seq)
	if err != nil {
		return nil, in.fail(expr, err)
	}
	return atoms, nil
}

// GeneralComparison is existential over both operands.
func (in *interpreter) GeneralComparison(e *ast.GeneralComparison, focus item.Item) (*sequence.Sequence, error) {
	left, err := in.atomized(e.Left, focus)
	if err != nil {
		return nil, err
	}
	right, err := in.atomized(e.Right, focus)
	if err != nil {
		return nil, err
	}
	b, err := operations.GeneralCompare(left, right, e.Op)
	if err != nil {
		return nil, in.fail(e, err)
	}
	return sequence.Of(item.Boolean(b)), nil
}

// ValueComparison compares two singletons. An empty operand yields the
// empty sequence.
func (in *interpreter) ValueComparison(e *ast.ValueComparison, focus item.Item) (*sequence.Sequence, error) {
	left, ok, err := in.singleton(e.Left, focus)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	right, ok, err := in.singleton(e.Right, focus)
	if err != nil || !ok {
		return sequence.Empty(), err
	}
	b, err := operations.Compare(left, right, e.Op)
	if err != nil {
		return nil, in.fail(e, err)
	}
	return sequence.Of(item.Boolean(b)), nil
}

// Union merges node sequences, keeping the first occurrence of each node.
func (in *interpreter) Union(e *ast.Union, focus item.Item) (*sequence.Sequence, error) {
	seen := make(map[node.Node]struct{})
	var out []item.Item
	for _, op := range e.Operands {
		items, err := in.list(op, focus)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			n, ok := it.(node.Node)
			if !ok {
				return nil, in.fail(op, types.Errorf(types.ErrTypeMismatch, "union operand contains %s, not a node", it.Type()))
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return sequence.FromList(out), nil
}

// StringConcat joins the string values of its operands. An empty operand
// contributes the empty string.
func (in *interpreter) StringConcat(e *ast.StringConcat, focus item.Item) (*sequence.Sequence, error) {
	var sb strings.Builder
	for _, op := range e.Operands {
		v, ok, err := in.singleton(op, focus)
		if err != nil {
			return nil, err
		}
		if ok {
			sb.WriteString(v.String())
		}
	}
	return sequence.Of(item.String(sb.String())), nil
}
