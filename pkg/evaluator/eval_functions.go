package evaluator

import (
	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
)

// callEnv exposes the dynamic context and the caller's focus to function
// bodies.
type callEnv struct {
	*DynamicContext
	focus item.Item
}

var _ functions.Env = callEnv{}

func (c callEnv) Focus() (item.Item, bool) {
	return c.focus, c.focus != nil
}

func (in *interpreter) FunctionCall(e *ast.FunctionCall, focus item.Item) (*sequence.Sequence, error) {
	args := make([]*sequence.Sequence, len(e.Args))
	for i, a := range e.Args {
		items, err := in.list(a, focus)
		if err != nil {
			return nil, err
		}
		args[i] = sequence.FromList(items)
	}

	if in.ev.opts.Debug {
		in.logger.Debug("calling function", "name", e.Function.Name, "arity", len(args))
	}

	r, err := e.Function.Impl(in.ctx, callEnv{DynamicContext: in.dc, focus: focus}, args)
	if err != nil {
		return nil, in.fail(e, err)
	}
	return r, nil
}
