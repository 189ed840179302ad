package ast

import (
	"fmt"
)

// Interpreter computes a result of type R for every node kind, given a
// context of type C. Adding a node kind adds a method here, so every
// interpreter must handle it before the module compiles again.
type Interpreter[R, C any] interface {
	StringLiteral(*StringLiteral, C) (R, error)
	IntegerLiteral(*IntegerLiteral, C) (R, error)
	DecimalLiteral(*DecimalLiteral, C) (R, error)
	ContextItem(*ContextItem, C) (R, error)
	NameTest(*NameTest, C) (R, error)
	Wildcard(*Wildcard, C) (R, error)
	FlagStep(*FlagStep, C) (R, error)
	ModelStep(*ModelStep, C) (R, error)
	Step(*Step, C) (R, error)
	RootSlashOnly(*RootSlashOnly, C) (R, error)
	RootSlashPath(*RootSlashPath, C) (R, error)
	RootDescendant(*RootDescendant, C) (R, error)
	RelativeChild(*RelativeChild, C) (R, error)
	RelativeDescendant(*RelativeDescendant, C) (R, error)
	Predicate(*Predicate, C) (R, error)
	Arithmetic(*Arithmetic, C) (R, error)
	And(*And, C) (R, error)
	Or(*Or, C) (R, error)
	GeneralComparison(*GeneralComparison, C) (R, error)
	ValueComparison(*ValueComparison, C) (R, error)
	Union(*Union, C) (R, error)
	FunctionCall(*FunctionCall, C) (R, error)
	Let(*Let, C) (R, error)
	VariableRef(*VariableRef, C) (R, error)
	Negate(*Negate, C) (R, error)
	StringConcat(*StringConcat, C) (R, error)
	Parenthesized(*Parenthesized, C) (R, error)
	SequenceExpr(*SequenceExpr, C) (R, error)
}

// Apply dispatches e to the matching method of i.
func Apply[R, C any](i Interpreter[R, C], e Expr, c C) (R, error) {
	switch e := e.(type) {
	case *StringLiteral:
		return i.StringLiteral(e, c)
	case *IntegerLiteral:
		return i.IntegerLiteral(e, c)
	case *DecimalLiteral:
		return i.DecimalLiteral(e, c)
	case *ContextItem:
		return i.ContextItem(e, c)
	case *NameTest:
		return i.NameTest(e, c)
	case *Wildcard:
		return i.Wildcard(e, c)
	case *FlagStep:
		return i.FlagStep(e, c)
	case *ModelStep:
		return i.ModelStep(e, c)
	case *Step:
		return i.Step(e, c)
	case *RootSlashOnly:
		return i.RootSlashOnly(e, c)
	case *RootSlashPath:
		return i.RootSlashPath(e, c)
	case *RootDescendant:
		return i.RootDescendant(e, c)
	case *RelativeChild:
		return i.RelativeChild(e, c)
	case *RelativeDescendant:
		return i.RelativeDescendant(e, c)
	case *Predicate:
		return i.Predicate(e, c)
	case *Arithmetic:
		return i.Arithmetic(e, c)
	case *And:
		return i.And(e, c)
	case *Or:
		return i.Or(e, c)
	case *GeneralComparison:
		return i.GeneralComparison(e, c)
	case *ValueComparison:
		return i.ValueComparison(e, c)
	case *Union:
		return i.Union(e, c)
	case *FunctionCall:
		return i.FunctionCall(e, c)
	case *Let:
		return i.Let(e, c)
	case *VariableRef:
		return i.VariableRef(e, c)
	case *Negate:
		return i.Negate(e, c)
	case *StringConcat:
		return i.StringConcat(e, c)
	case *Parenthesized:
		return i.Parenthesized(e, c)
	case *SequenceExpr:
		return i.SequenceExpr(e, c)
	}
	// unreachable while Expr stays sealed
	panic(fmt.Sprintf("ast: unhandled expression %T", e))
}
