package ast

import (
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/operations"
	"github.com/sandrolain/gometapath/pkg/types"
)

// StringLiteral is a quoted string.
type StringLiteral struct {
	node
	leaf
	Value item.String
}

func NewStringLiteral(pos int, v string) *StringLiteral {
	return &StringLiteral{node: node{pos, types.TypeString}, Value: item.String(v)}
}

func (*StringLiteral) Kind() Kind           { return KindStringLiteral }
func (*StringLiteral) BaseType() types.Type { return types.TypeString }

// IntegerLiteral is an unsigned integer literal.
type IntegerLiteral struct {
	node
	leaf
	Value item.Integer
}

func NewIntegerLiteral(pos int, v item.Integer) *IntegerLiteral {
	return &IntegerLiteral{node: node{pos, types.TypeInteger}, Value: v}
}

func (*IntegerLiteral) Kind() Kind           { return KindIntegerLiteral }
func (*IntegerLiteral) BaseType() types.Type { return types.TypeInteger }

// DecimalLiteral is a literal with a fraction or an exponent.
type DecimalLiteral struct {
	node
	leaf
	Value item.Decimal
}

func NewDecimalLiteral(pos int, v item.Decimal) *DecimalLiteral {
	return &DecimalLiteral{node: node{pos, types.TypeDecimal}, Value: v}
}

func (*DecimalLiteral) Kind() Kind           { return KindDecimalLiteral }
func (*DecimalLiteral) BaseType() types.Type { return types.TypeDecimal }

// ContextItem is the '.' expression.
type ContextItem struct {
	node
	leaf
}

func NewContextItem(pos int) *ContextItem {
	return &ContextItem{node: node{pos, types.TypeItem}}
}

func (*ContextItem) Kind() Kind           { return KindContextItem }
func (*ContextItem) BaseType() types.Type { return types.TypeItem }

// Test selects children of an axis by name.
type Test interface {
	Expr
	// Matches reports whether a child with the given effective name is
	// selected.
	Matches(name string) bool
}

// NameTest selects children with one name.
type NameTest struct {
	node
	leaf
	Name string
}

func NewNameTest(pos int, name string) *NameTest {
	return &NameTest{node: node{pos, types.TypeNode}, Name: name}
}

func (*NameTest) Kind() Kind                 { return KindNameTest }
func (*NameTest) BaseType() types.Type       { return types.TypeNode }
func (t *NameTest) Matches(name string) bool { return t.Name == name }

// Wildcard selects every child.
type Wildcard struct {
	node
	leaf
}

func NewWildcard(pos int) *Wildcard {
	return &Wildcard{node: node{pos, types.TypeNode}}
}

func (*Wildcard) Kind() Kind           { return KindWildcard }
func (*Wildcard) BaseType() types.Type { return types.TypeNode }
func (*Wildcard) Matches(string) bool  { return true }

// FlagStep selects flag children of the context node.
type FlagStep struct {
	node
	Test Test
}

func NewFlagStep(pos int, test Test) *FlagStep {
	return &FlagStep{node: node{pos, types.TypeFlag}, Test: test}
}

func (*FlagStep) Kind() Kind           { return KindFlagStep }
func (*FlagStep) BaseType() types.Type { return types.TypeFlag }
func (s *FlagStep) Children() []Expr   { return []Expr{s.Test} }

// ModelStep selects model children of the context node.
type ModelStep struct {
	node
	Test Test
}

func NewModelStep(pos int, test Test) *ModelStep {
	return &ModelStep{node: node{pos, types.TypeNode}, Test: test}
}

func (*ModelStep) Kind() Kind           { return KindModelStep }
func (*ModelStep) BaseType() types.Type { return types.TypeNode }
func (s *ModelStep) Children() []Expr   { return []Expr{s.Test} }

// Step is an axis step filtered by predicates, which are applied in order.
type Step struct {
	node
	Base       Expr
	Predicates []Expr
	children   []Expr
}

func NewStep(pos int, base Expr, predicates ...Expr) *Step {
	return &Step{
		node:       node{pos, staticType(types.TypeItem, base)},
		Base:       base,
		Predicates: predicates,
		children:   append([]Expr{base}, predicates...),
	}
}

func (*Step) Kind() Kind           { return KindStep }
func (*Step) BaseType() types.Type { return types.TypeItem }
func (s *Step) Children() []Expr   { return s.children }

// RootSlashOnly is a lone '/', selecting the document node.
type RootSlashOnly struct {
	node
	leaf
}

func NewRootSlashOnly(pos int) *RootSlashOnly {
	return &RootSlashOnly{node: node{pos, types.TypeDocument}}
}

func (*RootSlashOnly) Kind() Kind           { return KindRootSlashOnly }
func (*RootSlashOnly) BaseType() types.Type { return types.TypeDocument }

// RootSlashPath is '/expr', evaluated with the document node as context.
type RootSlashPath struct {
	node
	Right Expr
}

func NewRootSlashPath(pos int, right Expr) *RootSlashPath {
	return &RootSlashPath{node: node{pos, staticType(types.TypeItem, right)}, Right: right}
}

func (*RootSlashPath) Kind() Kind           { return KindRootSlashPath }
func (*RootSlashPath) BaseType() types.Type { return types.TypeItem }
func (p *RootSlashPath) Children() []Expr   { return []Expr{p.Right} }

// RootDescendant is '//expr', searched from the document node.
type RootDescendant struct {
	node
	Right Expr
}

func NewRootDescendant(pos int, right Expr) *RootDescendant {
	return &RootDescendant{node: node{pos, staticType(types.TypeItem, right)}, Right: right}
}

func (*RootDescendant) Kind() Kind           { return KindRootDescendant }
func (*RootDescendant) BaseType() types.Type { return types.TypeItem }
func (p *RootDescendant) Children() []Expr   { return []Expr{p.Right} }

// RelativeChild is 'left/right'.
type RelativeChild struct {
	node
	Left, Right Expr
}

func NewRelativeChild(pos int, left, right Expr) *RelativeChild {
	return &RelativeChild{node: node{pos, staticType(types.TypeItem, right)}, Left: left, Right: right}
}

func (*RelativeChild) Kind() Kind           { return KindRelativeChild }
func (*RelativeChild) BaseType() types.Type { return types.TypeItem }
func (p *RelativeChild) Children() []Expr   { return []Expr{p.Left, p.Right} }

// RelativeDescendant is 'left//right'.
type RelativeDescendant struct {
	node
	Left, Right Expr
}

func NewRelativeDescendant(pos int, left, right Expr) *RelativeDescendant {
	return &RelativeDescendant{node: node{pos, staticType(types.TypeItem, right)}, Left: left, Right: right}
}

func (*RelativeDescendant) Kind() Kind           { return KindRelativeDescendant }
func (*RelativeDescendant) BaseType() types.Type { return types.TypeItem }
func (p *RelativeDescendant) Children() []Expr   { return []Expr{p.Left, p.Right} }

// Predicate filters a non-step expression, as in '(a, b)[1]'.
type Predicate struct {
	node
	Base       Expr
	Predicates []Expr
	children   []Expr
}

func NewPredicate(pos int, base Expr, predicates ...Expr) *Predicate {
	return &Predicate{
		node:       node{pos, staticType(types.TypeItem, base)},
		Base:       base,
		Predicates: predicates,
		children:   append([]Expr{base}, predicates...),
	}
}

func (*Predicate) Kind() Kind           { return KindPredicate }
func (*Predicate) BaseType() types.Type { return types.TypeItem }
func (p *Predicate) Children() []Expr   { return p.children }

// Arithmetic is a binary arithmetic operation. Its Kind depends on Op.
type Arithmetic struct {
	node
	Op          operations.ArithOp
	Left, Right Expr
}

func NewArithmetic(pos int, op operations.ArithOp, left, right Expr) *Arithmetic {
	return &Arithmetic{node: node{pos, arithmeticType(op, left, right)}, Op: op, Left: left, Right: right}
}

var arithmeticKinds = map[operations.ArithOp]Kind{
	operations.Add:           KindAdd,
	operations.Subtract:      KindSubtract,
	operations.Multiply:      KindMultiply,
	operations.Divide:        KindDivide,
	operations.IntegerDivide: KindIntegerDivide,
	operations.Modulo:        KindModulo,
}

func (a *Arithmetic) Kind() Kind         { return arithmeticKinds[a.Op] }
func (*Arithmetic) BaseType() types.Type { return types.TypeAnyAtomic }
func (a *Arithmetic) Children() []Expr   { return []Expr{a.Left, a.Right} }

// arithmeticType narrows numeric operations. Integer division always
// yields an integer and division of integers yields a decimal.
func arithmeticType(op operations.ArithOp, left, right Expr) types.Type {
	if op == operations.IntegerDivide {
		return types.TypeInteger
	}
	common := types.CommonAncestor(left.StaticType(), right.StaticType())
	if !common.IsSubtypeOf(types.TypeNumeric) {
		return types.TypeAnyAtomic
	}
	if op == operations.Divide && common == types.TypeInteger {
		return types.TypeDecimal
	}
	return common
}

// And is a short-circuit conjunction of two or more operands.
type And struct {
	node
	Operands []Expr
}

func NewAnd(pos int, operands ...Expr) *And {
	return &And{node: node{pos, types.TypeBoolean}, Operands: operands}
}

func (*And) Kind() Kind           { return KindAnd }
func (*And) BaseType() types.Type { return types.TypeBoolean }
func (a *And) Children() []Expr   { return a.Operands }

// Or is a short-circuit disjunction of two or more operands.
type Or struct {
	node
	Operands []Expr
}

func NewOr(pos int, operands ...Expr) *Or {
	return &Or{node: node{pos, types.TypeBoolean}, Operands: operands}
}

func (*Or) Kind() Kind           { return KindOr }
func (*Or) BaseType() types.Type { return types.TypeBoolean }
func (o *Or) Children() []Expr   { return o.Operands }

// GeneralComparison compares every pairing of two sequences.
type GeneralComparison struct {
	node
	Op          operations.Operator
	Left, Right Expr
}

func NewGeneralComparison(pos int, op operations.Operator, left, right Expr) *GeneralComparison {
	return &GeneralComparison{node: node{pos, types.TypeBoolean}, Op: op, Left: left, Right: right}
}

func (*GeneralComparison) Kind() Kind           { return KindGeneralComparison }
func (*GeneralComparison) BaseType() types.Type { return types.TypeBoolean }
func (c *GeneralComparison) Children() []Expr   { return []Expr{c.Left, c.Right} }

// ValueComparison compares two singletons.
type ValueComparison struct {
	node
	Op          operations.Operator
	Left, Right Expr
}

func NewValueComparison(pos int, op operations.Operator, left, right Expr) *ValueComparison {
	return &ValueComparison{node: node{pos, types.TypeBoolean}, Op: op, Left: left, Right: right}
}

func (*ValueComparison) Kind() Kind           { return KindValueComparison }
func (*ValueComparison) BaseType() types.Type { return types.TypeBoolean }
func (c *ValueComparison) Children() []Expr   { return []Expr{c.Left, c.Right} }

// Union merges node sequences.
type Union struct {
	node
	Operands []Expr
}

func NewUnion(pos int, operands ...Expr) *Union {
	return &Union{node: node{pos, staticType(types.TypeNode, operands...)}, Operands: operands}
}

func (*Union) Kind() Kind           { return KindUnion }
func (*Union) BaseType() types.Type { return types.TypeNode }
func (u *Union) Children() []Expr   { return u.Operands }

// FunctionCall invokes a function resolved when the expression was built.
type FunctionCall struct {
	node
	Function *functions.Function
	Args     []Expr
}

func NewFunctionCall(pos int, fn *functions.Function, args ...Expr) *FunctionCall {
	return &FunctionCall{node: node{pos, fn.ReturnType}, Function: fn, Args: args}
}

func (*FunctionCall) Kind() Kind             { return KindFunctionCall }
func (c *FunctionCall) BaseType() types.Type { return c.Function.ReturnType }
func (c *FunctionCall) Children() []Expr     { return c.Args }

// Let binds Name to the value of Bound while Return is evaluated.
type Let struct {
	node
	Name          string
	Bound, Return Expr
}

func NewLet(pos int, name string, bound, ret Expr) *Let {
	return &Let{node: node{pos, staticType(types.TypeItem, ret)}, Name: name, Bound: bound, Return: ret}
}

func (*Let) Kind() Kind           { return KindLet }
func (*Let) BaseType() types.Type { return types.TypeItem }
func (l *Let) Children() []Expr   { return []Expr{l.Bound, l.Return} }

// VariableRef is '$name'.
type VariableRef struct {
	node
	leaf
	Name string
}

func NewVariableRef(pos int, name string) *VariableRef {
	return &VariableRef{node: node{pos, types.TypeItem}, Name: name}
}

func (*VariableRef) Kind() Kind           { return KindVariableRef }
func (*VariableRef) BaseType() types.Type { return types.TypeItem }

// Negate is unary minus.
type Negate struct {
	node
	Operand Expr
}

func NewNegate(pos int, operand Expr) *Negate {
	return &Negate{node: node{pos, staticType(types.TypeNumeric, operand)}, Operand: operand}
}

func (*Negate) Kind() Kind           { return KindNegate }
func (*Negate) BaseType() types.Type { return types.TypeNumeric }
func (n *Negate) Children() []Expr   { return []Expr{n.Operand} }

// StringConcat is the '||' operator over two or more operands.
type StringConcat struct {
	node
	Operands []Expr
}

func NewStringConcat(pos int, operands ...Expr) *StringConcat {
	return &StringConcat{node: node{pos, types.TypeString}, Operands: operands}
}

func (*StringConcat) Kind() Kind           { return KindStringConcat }
func (*StringConcat) BaseType() types.Type { return types.TypeString }
func (s *StringConcat) Children() []Expr   { return s.Operands }

// Parenthesized wraps an expression without changing its value.
type Parenthesized struct {
	node
	Inner Expr
}

func NewParenthesized(pos int, inner Expr) *Parenthesized {
	return &Parenthesized{node: node{pos, staticType(types.TypeItem, inner)}, Inner: inner}
}

func (*Parenthesized) Kind() Kind           { return KindParenthesized }
func (*Parenthesized) BaseType() types.Type { return types.TypeItem }
func (p *Parenthesized) Children() []Expr   { return []Expr{p.Inner} }

// SequenceExpr is a comma separated sequence, or '()' when empty.
type SequenceExpr struct {
	node
	Items []Expr
}

func NewSequenceExpr(pos int, items ...Expr) *SequenceExpr {
	return &SequenceExpr{node: node{pos, staticType(types.TypeItem, items...)}, Items: items}
}

func (*SequenceExpr) Kind() Kind           { return KindSequence }
func (*SequenceExpr) BaseType() types.Type { return types.TypeItem }
func (s *SequenceExpr) Children() []Expr   { return s.Items }
