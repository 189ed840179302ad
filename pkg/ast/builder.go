package ast

import (
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/parser"
	"github.com/sandrolain/gometapath/pkg/types"
)

// BuildOption configures Build and Compile.
type BuildOption func(*buildOptions)

type buildOptions struct {
	registry *functions.Registry
	parse    []parser.CompileOption
}

// WithRegistry resolves function calls against r instead of the default
// registry.
func WithRegistry(r *functions.Registry) BuildOption {
	return func(o *buildOptions) {
		o.registry = r
	}
}

// WithParseOptions passes options to the parser used by Compile.
func WithParseOptions(opts ...parser.CompileOption) BuildOption {
	return func(o *buildOptions) {
		o.parse = append(o.parse, opts...)
	}
}

func newBuildOptions(opts []BuildOption) *buildOptions {
	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = functions.Default()
	}
	return o
}

var generalOperators = map[string]operations.Operator{
	"=":  operations.EQ,
	"!=": operations.NE,
	"<":  operations.LT,
	"<=": operations.LE,
	">":  operations.GT,
	">=": operations.GE,
}

var valueOperators = map[string]operations.Operator{
	parser.KeywordEq: operations.EQ,
	parser.KeywordNe: operations.NE,
	parser.KeywordLt: operations.LT,
	parser.KeywordLe: operations.LE,
	parser.KeywordGt: operations.GT,
	parser.KeywordGe: operations.GE,
}

var arithmeticOperators = map[string]operations.ArithOp{
	"+":                operations.Add,
	"-":                operations.Subtract,
	"*":                operations.Multiply,
	parser.KeywordDiv:  operations.Divide,
	parser.KeywordIdiv: operations.IntegerDivide,
	parser.KeywordMod:  operations.Modulo,
}

// builder maps a concrete syntax tree to expressions.
type builder struct {
	registry *functions.Registry
	source   string
}

// Build converts a parsed tree into an expression. Function calls are
// resolved here; an unknown name or arity is a compile error.
func Build(tree *parser.Tree, opts ...BuildOption) (*Expression, error) {
	o := newBuildOptions(opts)
	b := &builder{registry: o.registry, source: tree.Source}
	root, err := b.build(tree.Root)
	if err != nil {
		return nil, err
	}
	return &Expression{root: root, source: tree.Source}, nil
}

func (b *builder) fail(code types.ErrorCode, pos int, format string, args ...any) *types.Error {
	e := types.Errorf(code, format, args...)
	e.Position = pos
	return e.WithExpr(b.source)
}

func (b *builder) buildAll(nodes []*parser.Node) ([]Expr, error) {
	out := make([]Expr, len(nodes))
	for i, n := range nodes {
		e, err := b.build(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (b *builder) build(n *parser.Node) (Expr, error) {
	switch n.Kind {
	case parser.NodeString:
		return NewStringLiteral(n.Position, n.Value), nil
	case parser.NodeInteger:
		v, err := item.ParseInteger(n.Value)
		if err != nil {
			return nil, b.fail(types.ErrInvalidNumber, n.Position, "invalid integer literal %q", n.Value)
		}
		return NewIntegerLiteral(n.Position, v), nil
	case parser.NodeDecimal:
		v, err := item.ParseDecimal(n.Value)
		if err != nil {
			return nil, b.fail(types.ErrInvalidNumber, n.Position, "invalid decimal literal %q", n.Value)
		}
		return NewDecimalLiteral(n.Position, v), nil
	case parser.NodeContextItem:
		return NewContextItem(n.Position), nil
	case parser.NodeName:
		return NewModelStep(n.Position, NewNameTest(n.Position, n.Value)), nil
	case parser.NodeWildcard:
		return NewModelStep(n.Position, NewWildcard(n.Position)), nil
	case parser.NodeFlag:
		if n.Value == "*" {
			return NewFlagStep(n.Position, NewWildcard(n.Position)), nil
		}
		return NewFlagStep(n.Position, NewNameTest(n.Position, n.Value)), nil
	case parser.NodeVariable:
		return NewVariableRef(n.Position, n.Value), nil
	case parser.NodeEmptySequence:
		return NewSequenceExpr(n.Position), nil
	case parser.NodeParen:
		inner, err := b.build(n.Children[0])
		if err != nil {
			return nil, err
		}
		return NewParenthesized(n.Position, inner), nil
	case parser.NodeSequence:
		items, err := b.buildAll(n.Children)
		if err != nil {
			return nil, err
		}
		return NewSequenceExpr(n.Position, items...), nil
	case parser.NodeBinary:
		return b.binary(n)
	case parser.NodeUnary:
		operand, err := b.build(n.Children[0])
		if err != nil {
			return nil, err
		}
		if n.Value == "+" {
			return operand, nil
		}
		return NewNegate(n.Position, operand), nil
	case parser.NodeFunctionCall:
		return b.call(n)
	case parser.NodeFilter:
		return b.filter(n)
	case parser.NodeRoot:
		return NewRootSlashOnly(n.Position), nil
	case parser.NodeRootPath, parser.NodeRootDescendant:
		right, err := b.build(n.Children[0])
		if err != nil {
			return nil, err
		}
		if n.Kind == parser.NodeRootPath {
			return NewRootSlashPath(n.Position, right), nil
		}
		return NewRootDescendant(n.Position, right), nil
	case parser.NodePath:
		left, right, err := b.pair(n)
		if err != nil {
			return nil, err
		}
		if n.Value == "//" {
			return NewRelativeDescendant(n.Position, left, right), nil
		}
		return NewRelativeChild(n.Position, left, right), nil
	case parser.NodeLet:
		bound, ret, err := b.pair(n)
		if err != nil {
			return nil, err
		}
		return NewLet(n.Position, n.Value, bound, ret), nil
	}
	return nil, b.fail(types.ErrSyntax, n.Position, "unsupported syntax node %s", n.Kind)
}

func (b *builder) pair(n *parser.Node) (Expr, Expr, error) {
	if len(n.Children) != 2 {
		return nil, nil, b.fail(types.ErrSyntax, n.Position, "%s node needs two operands", n.Kind)
	}
	left, err := b.build(n.Children[0])
	if err != nil {
		return nil, nil, err
	}
	right, err := b.build(n.Children[1])
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (b *builder) binary(n *parser.Node) (Expr, error) {
	left, right, err := b.pair(n)
	if err != nil {
		return nil, err
	}
	pos := n.Position
	if op, ok := arithmeticOperators[n.Value]; ok {
		return NewArithmetic(pos, op, left, right), nil
	}
	if op, ok := generalOperators[n.Value]; ok {
		return NewGeneralComparison(pos, op, left, right), nil
	}
	if op, ok := valueOperators[n.Value]; ok {
		return NewValueComparison(pos, op, left, right), nil
	}
	switch n.Value {
	case parser.KeywordAnd:
		if l, ok := left.(*And); ok {
			return NewAnd(l.Pos(), append(l.Operands[:len(l.Operands):len(l.Operands)], right)...), nil
		}
		return NewAnd(pos, left, right), nil
	case parser.KeywordOr:
		if l, ok := left.(*Or); ok {
			return NewOr(l.Pos(), append(l.Operands[:len(l.Operands):len(l.Operands)], right)...), nil
		}
		return NewOr(pos, left, right), nil
	case "|", parser.KeywordUnion:
		if l, ok := left.(*Union); ok {
			return NewUnion(l.Pos(), append(l.Operands[:len(l.Operands):len(l.Operands)], right)...), nil
		}
		return NewUnion(pos, left, right), nil
	case "||":
		if l, ok := left.(*StringConcat); ok {
			return NewStringConcat(l.Pos(), append(l.Operands[:len(l.Operands):len(l.Operands)], right)...), nil
		}
		return NewStringConcat(pos, left, right), nil
	}
	return nil, b.fail(types.ErrSyntax, pos, "unknown operator %q", n.Value).WithToken(n.Value)
}

func (b *builder) call(n *parser.Node) (Expr, error) {
	fn, ok := b.registry.Lookup(n.Value, len(n.Children))
	if !ok {
		return nil, b.fail(types.ErrUnknownFunction, n.Position, "unknown function %s#%d", n.Value, len(n.Children))
	}
	args, err := b.buildAll(n.Children)
	if err != nil {
		return nil, err
	}
	return NewFunctionCall(n.Position, fn, args...), nil
}

// filter attaches a predicate. Axis steps become steps, other expressions
// become predicate applications; consecutive predicates are merged.
func (b *builder) filter(n *parser.Node) (Expr, error) {
	base, pred, err := b.pair(n)
	if err != nil {
		return nil, err
	}
	switch base := base.(type) {
	case *FlagStep, *ModelStep:
		return NewStep(base.Pos(), base, pred), nil
	case *Step:
		return NewStep(base.Pos(), base.Base, append(base.Predicates[:len(base.Predicates):len(base.Predicates)], pred)...), nil
	case *Predicate:
		return NewPredicate(base.Pos(), base.Base, append(base.Predicates[:len(base.Predicates):len(base.Predicates)], pred)...), nil
	}
	return NewPredicate(n.Position, base, pred), nil
}
