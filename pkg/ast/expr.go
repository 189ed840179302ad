// Package ast defines the typed Metapath expression model.
//
// The node set is closed: every node kind is one of the types declared in
// this package, and [Apply] dispatches over all of them. Nodes are immutable
// once built. Each composite node computes its static result type at
// construction: the common ancestor of its children's static types when
// that is a subtype of the node's base type, and the base type otherwise.
//
// Two traversal capabilities are provided. [Walk] and [Inspect] visit the
// tree structurally and are used by the printer and other analyses.
// [Interpreter] and [Apply] give exhaustive per-kind dispatch with a result,
// which is how package evaluator runs expressions.
package ast

import (
	"github.com/sandrolain/gometapath/pkg/types"
)

// Kind identifies an expression node kind.
type Kind uint8

const (
	KindStringLiteral Kind = iota + 1
	KindIntegerLiteral
	KindDecimalLiteral
	KindContextItem
	KindNameTest
	KindWildcard
	KindFlagStep
	KindModelStep
	KindStep
	KindRootSlashOnly
	KindRootSlashPath
	KindRootDescendant
	KindRelativeChild
	KindRelativeDescendant
	KindPredicate
	KindAdd
	KindSubtract
	KindMultiply
	KindDivide
	KindIntegerDivide
	KindModulo
	KindAnd
	KindOr
	KindGeneralComparison
	KindValueComparison
	KindUnion
	KindFunctionCall
	KindLet
	KindVariableRef
	KindNegate
	KindStringConcat
	KindParenthesized
	KindSequence
)

var kindNames = [...]string{
	KindStringLiteral:      "string",
	KindIntegerLiteral:     "integer",
	KindDecimalLiteral:     "decimal",
	KindContextItem:        "context-item",
	KindNameTest:           "name-test",
	KindWildcard:           "wildcard",
	KindFlagStep:           "flag",
	KindModelStep:          "model",
	KindStep:               "step",
	KindRootSlashOnly:      "root",
	KindRootSlashPath:      "root-path",
	KindRootDescendant:     "root-descendant",
	KindRelativeChild:      "child",
	KindRelativeDescendant: "descendant",
	KindPredicate:          "predicate",
	KindAdd:                "add",
	KindSubtract:           "subtract",
	KindMultiply:           "multiply",
	KindDivide:             "divide",
	KindIntegerDivide:      "integer-divide",
	KindModulo:             "modulo",
	KindAnd:                "and",
	KindOr:                 "or",
	KindGeneralComparison:  "general-comparison",
	KindValueComparison:    "value-comparison",
	KindUnion:              "union",
	KindFunctionCall:       "call",
	KindLet:                "let",
	KindVariableRef:        "variable",
	KindNegate:             "negate",
	KindStringConcat:       "concat",
	KindParenthesized:      "paren",
	KindSequence:           "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "(unknown)"
}

// Expr is an expression node.
type Expr interface {
	// Kind returns the node kind.
	Kind() Kind
	// Children returns the child expressions in evaluation order. The
	// returned slice must not be modified.
	Children() []Expr
	// BaseType is the widest result type the node kind can produce.
	BaseType() types.Type
	// StaticType is the narrowest result type inferred for this node.
	StaticType() types.Type
	// Pos is the byte offset of the node in the source text, or -1.
	Pos() int

	sealed()
}

// node carries the fields shared by every expression.
type node struct {
	pos    int
	static types.Type
}

func (n *node) Pos() int               { return n.pos }
func (n *node) StaticType() types.Type { return n.static }
func (*node) sealed()                  {}

// leaf is embedded by nodes without children.
type leaf struct{}

func (leaf) Children() []Expr { return nil }

// staticType applies the common-ancestor rule to children.
func staticType(base types.Type, children ...Expr) types.Type {
	if len(children) == 0 {
		return base
	}
	ts := make([]types.Type, len(children))
	for i, c := range children {
		ts[i] = c.StaticType()
	}
	if common := types.CommonAncestor(ts...); common.IsSubtypeOf(base) {
		return common
	}
	return base
}
