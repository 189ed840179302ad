package evaluator

import (
	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Let evaluates the bound expression once and makes it visible to the
// return expression only. A shadowed outer binding is restored afterwards.
func (in *interpreter) Let(e *ast.Let, focus item.Item) (*sequence.Sequence, error) {
	bound, err := in.list(e.Bound, focus)
	if err != nil {
		return nil, err
	}
	restore := in.dc.Bind(e.Name, sequence.FromList(bound))
	defer restore()
	return in.eval(e.Return, focus)
}

func (in *interpreter) VariableRef(e *ast.VariableRef, _ item.Item) (*sequence.Sequence, error) {
	v, ok := in.dc.Lookup(e.Name)
	if !ok {
		return nil, in.fail(e, types.Errorf(types.ErrUnboundVariable, "variable $%s is not bound", e.Name))
	}
	// Bound values are materialized, so every reference can read them.
	items, err := v.List()
	if err != nil {
		return nil, in.fail(e, err)
	}
	return sequence.FromList(items), nil
}
