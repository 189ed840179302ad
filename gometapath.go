// Package gometapath provides a Go implementation of Metapath, an XPath-like
// expression language for navigating and querying structured documents.
//
// Documents are trees of flags (singly valued, named attributes), fields
// (leaf values) and assemblies (composite nodes). Expressions walk the tree
// with paths and predicates and compute over atomic values with exact
// decimal arithmetic.
//
// # Quick Start
//
//	// Simple evaluation over decoded data
//	result, err := gometapath.Eval("count(//item[@price > 10])", data)
//
//	// Compile once, evaluate many times
//	expr, err := gometapath.Compile("/catalog/item[1]/@sku")
//	r1, _ := gometapath.Evaluate(ctx, expr, doc1.Node())
//	r2, _ := gometapath.Evaluate(ctx, expr, doc2.Node())
//
//	// Reduce a result to a Go value
//	ok, err := gometapath.EvaluateAs(ctx, expr, doc.Node(), gometapath.ResultBoolean)
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/sandrolain/gometapath/pkg/parser
//   - AST and compilation: github.com/sandrolain/gometapath/pkg/ast
//   - Evaluator: github.com/sandrolain/gometapath/pkg/evaluator
//   - Functions: github.com/sandrolain/gometapath/pkg/functions
//   - Documents: github.com/sandrolain/gometapath/pkg/node, github.com/sandrolain/gometapath/pkg/loader
//   - Types and errors: github.com/sandrolain/gometapath/pkg/types
package gometapath

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Version returns the current version of gometapath.
func Version() string {
	return "v0.1.0-dev"
}

var defaultEvaluator = evaluator.New()

// Compile compiles a Metapath expression for repeated evaluation.
//
// The compiled expression can be evaluated multiple times against different
// documents. It is safe for concurrent use.
//
// Example:
//
//	expr, err := gometapath.Compile("//item[@price > 100]")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(query string, opts ...ast.BuildOption) (*ast.Expression, error) {
	return ast.Compile(query, opts...)
}

// MustCompile is like Compile but panics if the expression cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(query string) *ast.Expression {
	expr, err := Compile(query)
	if err != nil {
		panic(fmt.Sprintf("gometapath: Compile(%q): %v", query, err))
	}
	return expr
}

// Evaluate evaluates expr with focus as the context item, using an
// evaluator with default options.
func Evaluate(ctx context.Context, expr *ast.Expression, focus item.Item, opts ...evaluator.DynamicOption) (*sequence.Sequence, error) {
	return defaultEvaluator.Eval(ctx, expr, focus, opts...)
}

// Eval is a convenience function that compiles query and evaluates it
// against decoded data, such as the result of json.Unmarshal. The data is
// wrapped in a document and the document node is the context item.
//
// For repeated evaluations of the same expression, use Compile instead.
func Eval(query string, data any, opts ...evaluator.EvalOption) (*sequence.Sequence, error) {
	return EvalWithContext(context.Background(), query, data, opts...)
}

// EvalWithContext is like Eval with a custom context.
func EvalWithContext(ctx context.Context, query string, data any, opts ...evaluator.EvalOption) (*sequence.Sequence, error) {
	ev := evaluator.New(opts...)
	expr, err := ev.Compile(query)
	if err != nil {
		return nil, err
	}
	doc := node.NewDocument("", data)
	return ev.Eval(ctx, expr, doc.Node())
}

// ResultType selects how EvaluateAs reduces a result.
type ResultType uint8

const (
	// ResultSequence returns the *sequence.Sequence unchanged.
	ResultSequence ResultType = iota
	// ResultBoolean returns the effective boolean value as a bool.
	ResultBoolean
	// ResultString returns the string value of the first item, or "".
	ResultString
	// ResultNumber returns the first item cast to item.Decimal, or nil.
	ResultNumber
	// ResultNode returns the first item as a node.Node, or nil.
	ResultNode
)

var resultTypeNames = map[ResultType]string{
	ResultSequence: "sequence",
	ResultBoolean:  "boolean",
	ResultString:   "string",
	ResultNumber:   "number",
	ResultNode:     "node",
}

func (rt ResultType) String() string {
	if s, ok := resultTypeNames[rt]; ok {
		return s
	}
	return "(unknown)"
}

// ParseResultType returns the result type with the given name.
func ParseResultType(name string) (ResultType, error) {
	for rt, s := range resultTypeNames {
		if strings.EqualFold(s, name) {
			return rt, nil
		}
	}
	return 0, fmt.Errorf("unknown result type %q", name)
}

// EvaluateAs evaluates expr and reduces the result according to rt.
func EvaluateAs(ctx context.Context, expr *ast.Expression, focus item.Item, rt ResultType, opts ...evaluator.DynamicOption) (any, error) {
	seq, err := Evaluate(ctx, expr, focus, opts...)
	if err != nil {
		return nil, err
	}
	return Coerce(seq, rt)
}

// Coerce reduces seq according to rt.
func Coerce(seq *sequence.Sequence, rt ResultType) (any, error) {
	switch rt {
	case ResultSequence:
		return seq, nil
	case ResultBoolean:
		return operations.EffectiveBooleanValue(seq)
	}

	first, ok, err := seq.First()
	if err != nil {
		return nil, err
	}
	switch rt {
	case ResultString:
		if !ok {
			return "", nil
		}
		a, err := operations.AtomizeItem(first)
		if err != nil {
			return nil, err
		}
		return a.String(), nil
	case ResultNumber:
		if !ok {
			return nil, nil
		}
		a, err := operations.AtomizeItem(first)
		if err != nil {
			return nil, err
		}
		return item.Cast(a, types.TypeDecimal)
	case ResultNode:
		if !ok {
			return nil, nil
		}
		n, isNode := first.(node.Node)
		if !isNode {
			return nil, types.Errorf(types.ErrNotANode, "result item is %s, not a node", first.Type())
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown result type %d", rt)
}

// ResultJSON reduces seq according to rt and converts the outcome into a
// value encoding/json can marshal, in the same shapes as ToJSON.
func ResultJSON(seq *sequence.Sequence, rt ResultType) (any, error) {
	if rt == ResultSequence {
		return ToJSON(seq)
	}
	v, err := Coerce(seq, rt)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case item.Decimal:
		return json.Number(x.String()), nil
	case node.Node:
		return itemJSON(x), nil
	}
	return v, nil
}

// ToJSON converts a sequence into values encoding/json can marshal.
// Booleans and numbers keep their JSON types, other atomic values become
// strings and nodes become objects holding their path, kind and value.
func ToJSON(seq *sequence.Sequence) ([]any, error) {
	list, err := seq.List()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(list))
	for i, it := range list {
		out[i] = itemJSON(it)
	}
	return out, nil
}

func itemJSON(it item.Item) any {
	if n, ok := it.(node.Node); ok {
		m := map[string]any{
			"path": node.Path(n),
			"kind": n.Type().String(),
		}
		if n.Name() != "" {
			m["name"] = n.Name()
		}
		if v, ok := n.Value(); ok {
			m["value"] = atomicJSON(v)
		}
		return m
	}
	return atomicJSON(it.(item.Atomic))
}

func atomicJSON(a item.Atomic) any {
	switch v := a.(type) {
	case item.Boolean:
		return bool(v)
	case item.Integer, item.Decimal:
		return json.Number(v.String())
	}
	return a.String()
}
