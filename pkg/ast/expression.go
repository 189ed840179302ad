package ast

import (
	"github.com/sandrolain/gometapath/pkg/parser"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Expression is a compiled Metapath expression. It is immutable and safe
// for concurrent use.
type Expression struct {
	root   Expr
	source string
}

// Compile parses src and builds its expression.
func Compile(src string, opts ...BuildOption) (*Expression, error) {
	o := newBuildOptions(opts)
	tree, err := parser.Parse(src, o.parse...)
	if err != nil {
		return nil, err
	}
	return Build(tree, WithRegistry(o.registry))
}

// Root returns the root expression node.
func (e *Expression) Root() Expr { return e.root }

// Source returns the text the expression was compiled from.
func (e *Expression) Source() string { return e.source }

// StaticType returns the static result type of the expression.
func (e *Expression) StaticType() types.Type { return e.root.StaticType() }

// String renders the expression tree.
func (e *Expression) String() string { return Print(e.root) }
