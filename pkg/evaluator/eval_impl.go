package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// interpreter evaluates one expression tree. The context argument of every
// method is the focus: the context item, or nil when it is absent.
type interpreter struct {
	ev     *Evaluator
	ctx    context.Context
	dc     *DynamicContext
	source string
	logger *slog.Logger
	depth  int
}

var _ ast.Interpreter[*sequence.Sequence, item.Item] = (*interpreter)(nil)

// eval evaluates expr against focus.
func (in *interpreter) eval(expr ast.Expr, focus item.Item) (*sequence.Sequence, error) {
	// Check context cancellation
	select {
	case <-in.ctx.Done():
		return nil, in.canceled(expr)
	default:
	}

	in.depth++
	defer func() { in.depth-- }()
	if limit := in.ev.opts.MaxDepth; limit > 0 && in.depth > limit {
		return nil, in.fail(expr, types.Errorf(types.ErrResourceLimit, "maximum evaluation depth %d exceeded", limit))
	}

	if in.ev.opts.Debug {
		in.logger.Debug("evaluating node",
			"kind", expr.Kind().String(),
			"pos", expr.Pos(),
			"depth", in.depth)
	}

	return ast.Apply[*sequence.Sequence, item.Item](in, expr, focus)
}

// list evaluates expr and materializes the result.
func (in *interpreter) list(expr ast.Expr, focus item.Item) ([]item.Item, error) {
	seq, err := in.eval(expr, focus)
	if err != nil {
		return nil, err
	}
	return seq.List()
}

func (in *interpreter) canceled(expr ast.Expr) error {
	err := in.ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return in.fail(expr, types.NewError(types.ErrEvaluationTimeout, "evaluation timed out", -1).WithCause(err))
	}
	return err
}

// fail attaches the position of expr and the source text to err. Errors
// are copied, never modified, since some are shared values.
func (in *interpreter) fail(expr ast.Expr, err error) error {
	var te *types.Error
	if !errors.As(err, &te) {
		return err
	}
	if te.Position >= 0 && te.Expr != "" {
		return err
	}
	cp := *te
	if cp.Position < 0 {
		cp.Position = expr.Pos()
	}
	if cp.Expr == "" {
		cp.Expr = in.source
	}
	return &cp
}

// contextItem returns the focus, failing when it is absent.
func (in *interpreter) contextItem(expr ast.Expr, focus item.Item) (item.Item, error) {
	if focus == nil {
		return nil, in.fail(expr, types.NewError(types.ErrContextAbsent, "context item is absent", -1))
	}
	return focus, nil
}

// contextNode returns the focus as a node.
func (in *interpreter) contextNode(expr ast.Expr, focus item.Item) (node.Node, error) {
	it, err := in.contextItem(expr, focus)
	if err != nil {
		return nil, err
	}
	n, ok := it.(node.Node)
	if !ok {
		return nil, in.fail(expr, types.Errorf(types.ErrNotANode, "context item is %s, not a node", it.Type()))
	}
	return n, nil
}

// singleton evaluates expr to at most one atomic value.
func (in *interpreter) singleton(expr ast.Expr, focus item.Item) (item.Atomic, bool, error) {
	items, err := in.list(expr, focus)
	if err != nil {
		return nil, false, err
	}
	switch len(items) {
	case 0:
		return nil, false, nil
	case 1:
		a, err := operations.AtomizeItem(items[0])
		if err != nil {
			return nil, false, in.fail(expr, err)
		}
		return a, true, nil
	}
	return nil, false, in.fail(expr, types.Errorf(types.ErrNotASingleton, "expected at most one item, got %d", len(items)))
}

func (in *interpreter) StringLiteral(e *ast.StringLiteral, _ item.Item) (*sequence.Sequence, error) {
	return sequence.Of(e.Value), nil
}

func (in *interpreter) IntegerLiteral(e *ast.IntegerLiteral, _ item.Item) (*sequence.Sequence, error) {
	return sequence.Of(e.Value), nil
}

func (in *interpreter) DecimalLiteral(e *ast.DecimalLiteral, _ item.Item) (*sequence.Sequence, error) {
	return sequence.Of(e.Value), nil
}

func (in *interpreter) ContextItem(e *ast.ContextItem, focus item.Item) (*sequence.Sequence, error) {
	it, err := in.contextItem(e, focus)
	if err != nil {
		return nil, err
	}
	return sequence.Of(it), nil
}

func (in *interpreter) Parenthesized(e *ast.Parenthesized, focus item.Item) (*sequence.Sequence, error) {
	return in.eval(e.Inner, focus)
}

func (in *interpreter) SequenceExpr(e *ast.SequenceExpr, focus item.Item) (*sequence.Sequence, error) {
	if len(e.Items) == 0 {
		return sequence.Empty(), nil
	}
	var out []item.Item
	for _, sub := range e.Items {
		items, err := in.list(sub, focus)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return sequence.FromList(out), nil
}
