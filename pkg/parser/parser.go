// Package parser implements the Metapath grammar front end.
//
// The parser is a hand-written Pratt parser over a Rob Pike style lexer. It
// produces a concrete syntax tree ([Tree]) that keeps the surface form of
// the expression: operators are recorded by their source text and filters,
// steps and paths are not yet interpreted. Package ast turns the tree into
// the typed expression model.
//
// # Example
//
//	tree, err := parser.Parse("//item[@id = 'x']/price")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tree.Root)
package parser

import (
	"github.com/sandrolain/gometapath/pkg/types"
)

// DefaultMaxDepth bounds the nesting of sub-expressions.
const DefaultMaxDepth = 200

// Parse parses a Metapath expression into a concrete syntax tree.
//
// If parsing fails, it returns a *types.Error carrying the position of the
// offending token and the source text.
func Parse(query string, opts ...CompileOption) (*Tree, error) {
	p := NewParser(query, opts...)
	tree, err := p.Parse()
	if err != nil {
		if e, ok := err.(*types.Error); ok && e.Expr == "" {
			return nil, e.WithExpr(query)
		}
		return nil, err
	}
	return tree, nil
}

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
