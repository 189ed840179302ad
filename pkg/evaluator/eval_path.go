package evaluator

import (
	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func nodesToItems(nodes []node.Node) []item.Item {
	out := make([]item.Item, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// flagChildren selects the flag children of the focus matching test.
func (in *interpreter) flagChildren(expr ast.Expr, test ast.Test, focus item.Item) (*sequence.Sequence, error) {
	n, err := in.contextNode(expr, focus)
	if err != nil {
		return nil, err
	}
	if t, ok := test.(*ast.NameTest); ok {
		f, found, err := n.Flag(t.Name)
		if err != nil {
			return nil, in.fail(expr, err)
		}
		if !found {
			return sequence.Empty(), nil
		}
		return sequence.Of(f), nil
	}
	flags, err := n.Flags()
	if err != nil {
		return nil, in.fail(expr, err)
	}
	var out []item.Item
	for _, f := range flags {
		if test.Matches(f.Name()) {
			out = append(out, f)
		}
	}
	return sequence.FromList(out), nil
}

// modelChildren selects the model children of the focus matching test, in
// document order.
func (in *interpreter) modelChildren(expr ast.Expr, test ast.Test, focus item.Item) (*sequence.Sequence, error) {
	n, err := in.contextNode(expr, focus)
	if err != nil {
		return nil, err
	}
	if t, ok := test.(*ast.NameTest); ok {
		items, err := n.ModelItemsByName(t.Name)
		if err != nil {
			return nil, in.fail(expr, err)
		}
		return sequence.FromList(nodesToItems(items)), nil
	}
	groups, err := n.ModelItems()
	if err != nil {
		return nil, in.fail(expr, err)
	}
	var out []item.Item
	for _, g := range groups {
		if test.Matches(g.Name) {
			out = append(out, nodesToItems(g.Items)...)
		}
	}
	return sequence.FromList(out), nil
}

// A bare test selects model children, like the implicit child axis.
func (in *interpreter) NameTest(e *ast.NameTest, focus item.Item) (*sequence.Sequence, error) {
	return in.modelChildren(e, e, focus)
}

func (in *interpreter) Wildcard(e *ast.Wildcard, focus item.Item) (*sequence.Sequence, error) {
	return in.modelChildren(e, e, focus)
}

func (in *interpreter) FlagStep(e *ast.FlagStep, focus item.Item) (*sequence.Sequence, error) {
	return in.flagChildren(e, e.Test, focus)
}

func (in *interpreter) ModelStep(e *ast.ModelStep, focus item.Item) (*sequence.Sequence, error) {
	return in.modelChildren(e, e.Test, focus)
}

func (in *interpreter) Step(e *ast.Step, focus item.Item) (*sequence.Sequence, error) {
	return in.filtered(e.Base, e.Predicates, focus)
}

func (in *interpreter) Predicate(e *ast.Predicate, focus item.Item) (*sequence.Sequence, error) {
	return in.filtered(e.Base, e.Predicates, focus)
}

// filtered evaluates base and applies the predicates in order.
func (in *interpreter) filtered(base ast.Expr, preds []ast.Expr, focus item.Item) (*sequence.Sequence, error) {
	items, err := in.list(base, focus)
	if err != nil {
		return nil, err
	}
	for _, p := range preds {
		if items, err = in.filter(items, p); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
	}
	return sequence.FromList(items), nil
}

// filter keeps the candidates selected by pred. An integer literal selects
// by 1-based position; any other predicate is evaluated with the candidate
// as focus and keeps it when its effective boolean value is true.
func (in *interpreter) filter(candidates []item.Item, pred ast.Expr) ([]item.Item, error) {
	if lit, ok := pred.(*ast.IntegerLiteral); ok {
		pos, err := lit.Value.Int64()
		if err != nil || pos < 1 || pos > int64(len(candidates)) {
			return nil, nil
		}
		return candidates[pos-1 : pos], nil
	}

	out := candidates[:0:0]
	for _, c := range candidates {
		r, err := in.eval(pred, c)
		if err != nil {
			return nil, err
		}
		keep, err := operations.EffectiveBooleanValue(r)
		if err != nil {
			return nil, in.fail(pred, err)
		}
		if keep {
			out = append(out, c)
		}
	}
	return out, nil
}

// documentRoot returns the topmost ancestor of the focus node.
func (in *interpreter) documentRoot(expr ast.Expr, focus item.Item) (node.Node, error) {
	n, err := in.contextNode(expr, focus)
	if err != nil {
		return nil, err
	}
	return node.Root(n), nil
}

func (in *interpreter) RootSlashOnly(e *ast.RootSlashOnly, focus item.Item) (*sequence.Sequence, error) {
	root, err := in.documentRoot(e, focus)
	if err != nil {
		return nil, err
	}
	return sequence.Of(root), nil
}

func (in *interpreter) RootSlashPath(e *ast.RootSlashPath, focus item.Item) (*sequence.Sequence, error) {
	root, err := in.documentRoot(e, focus)
	if err != nil {
		return nil, err
	}
	return in.eval(e.Right, root)
}

func (in *interpreter) RootDescendant(e *ast.RootDescendant, focus item.Item) (*sequence.Sequence, error) {
	root, err := in.documentRoot(e, focus)
	if err != nil {
		return nil, err
	}
	return in.descendants(e, e.Right, []item.Item{root})
}

// RelativeChild evaluates the right side once per item of the left side
// and concatenates the results in that order.
func (in *interpreter) RelativeChild(e *ast.RelativeChild, focus item.Item) (*sequence.Sequence, error) {
	left, err := in.list(e.Left, focus)
	if err != nil {
		return nil, err
	}
	var out []item.Item
	for _, it := range left {
		r, err := in.list(e.Right, it)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return sequence.FromList(out), nil
}

func (in *interpreter) RelativeDescendant(e *ast.RelativeDescendant, focus item.Item) (*sequence.Sequence, error) {
	left, err := in.list(e.Left, focus)
	if err != nil {
		return nil, err
	}
	return in.descendants(e, e.Right, left)
}

// descendants searches target from every start node: the node itself
// first, then depth-first through its flag children and then its model
// children. Trees that may cycle are searched with a visited set.
func (in *interpreter) descendants(expr, target ast.Expr, starts []item.Item) (*sequence.Sequence, error) {
	s := &descentSearch{in: in, expr: expr, target: target, limit: in.ev.opts.MaxDescendantNodes}
	for _, it := range starts {
		n, ok := it.(node.Node)
		if !ok {
			return nil, in.fail(expr, types.Errorf(types.ErrNotANode, "descendant search from %s, not a node", it.Type()))
		}
		if s.visited == nil && node.IsCyclic(n) {
			s.visited = make(map[node.Node]struct{})
		}
		if err := s.search(n); err != nil {
			return nil, err
		}
	}
	return sequence.FromList(s.out), nil
}

type descentSearch struct {
	in      *interpreter
	expr    ast.Expr
	target  ast.Expr
	limit   int
	visits  int
	visited map[node.Node]struct{}
	out     []item.Item
}

func (s *descentSearch) search(n node.Node) error {
	if s.visited != nil {
		if _, seen := s.visited[n]; seen {
			return nil
		}
		s.visited[n] = struct{}{}
	}
	s.visits++
	if s.limit > 0 && s.visits > s.limit {
		return s.in.fail(s.expr, types.Errorf(types.ErrResourceLimit, "descendant search visited more than %d nodes", s.limit))
	}
	if s.visits%1024 == 0 {
		if err := s.in.ctx.Err(); err != nil {
			return s.in.canceled(s.expr)
		}
	}

	matches, err := s.in.list(s.target, n)
	if err != nil {
		return err
	}
	s.out = append(s.out, matches...)

	flags, err := n.Flags()
	if err != nil {
		return s.in.fail(s.expr, err)
	}
	for _, f := range flags {
		if err := s.search(f); err != nil {
			return err
		}
	}
	groups, err := n.ModelItems()
	if err != nil {
		return s.in.fail(s.expr, err)
	}
	for _, g := range groups {
		for _, child := range g.Items {
			if err := s.search(child); err != nil {
				return err
			}
		}
	}
	return nil
}
