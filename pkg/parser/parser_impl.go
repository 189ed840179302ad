package parser

import (
	"fmt"
	"strings"

	"github.com/sandrolain/gometapath/pkg/types"
)

// Parser implements a recursive descent parser for Metapath expressions.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	arena   *NodeArena
	depth   int
	opts    CompileOptions
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		lexer: NewLexer(input),
		arena: NewNodeArena(),
		opts:  options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire expression and returns the tree.
func (p *Parser) Parse() (*Tree, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrSyntax, "empty expression")
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenEOF {
		return nil, p.unexpected()
	}

	return &Tree{Root: node, Source: p.lexer.input, arena: p.arena}, nil
}

// Binding powers. Higher values bind more tightly.
const (
	precComma      = 5
	precOr         = 10
	precAnd        = 20
	precComparison = 30
	precConcat     = 40
	precAdditive   = 50
	precMultiply   = 60
	precUnion      = 70
	precUnary      = 80
	precPath       = 90
	precFilter     = 95
)

// Operator precedence table for symbol tokens.
var precedence = map[TokenType]int{
	TokenComma:        precComma,
	TokenEqual:        precComparison,
	TokenNotEqual:     precComparison,
	TokenLess:         precComparison,
	TokenLessEqual:    precComparison,
	TokenGreater:      precComparison,
	TokenGreaterEqual: precComparison,
	TokenConcat:       precConcat,
	TokenPlus:         precAdditive,
	TokenMinus:        precAdditive,
	TokenMult:         precMultiply,
	TokenPipe:         precUnion,
	TokenSlash:        precPath,
	TokenDoubleSlash:  precPath,
	TokenBracketOpen:  precFilter,
}

// Operator precedence table for keyword operators.
var keywordPrecedence = map[string]int{
	KeywordOr:    precOr,
	KeywordAnd:   precAnd,
	KeywordEq:    precComparison,
	KeywordNe:    precComparison,
	KeywordLt:    precComparison,
	KeywordLe:    precComparison,
	KeywordGt:    precComparison,
	KeywordGe:    precComparison,
	KeywordDiv:   precMultiply,
	KeywordIdiv:  precMultiply,
	KeywordMod:   precMultiply,
	KeywordUnion: precUnion,
}

// getPrecedence returns the infix binding power of a token.
func (p *Parser) getPrecedence(t Token) int {
	if t.Type == TokenName {
		return keywordPrecedence[t.Value]
	}
	return precedence[t.Type]
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// peek returns the token after the current one without consuming it.
func (p *Parser) peek() Token {
	l := *p.lexer
	return l.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.error(types.ErrSyntax, fmt.Sprintf("expected %s but got %s", tt, p.describe(p.current)))
	}
	p.advance()
	return nil
}

// error creates a parser error at the current token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	if p.current.Type == TokenError {
		if err := p.lexer.Error(); err != nil {
			return err
		}
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

func (p *Parser) unexpected() error {
	return p.error(types.ErrSyntax, "unexpected token "+p.describe(p.current))
}

func (p *Parser) describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of expression"
	case TokenName, TokenInteger, TokenDecimal:
		return fmt.Sprintf("%q", t.Value)
	case TokenVariable:
		return "$" + t.Value
	case TokenString:
		return "string literal"
	}
	return fmt.Sprintf("%q", t.Type.String())
}

func (p *Parser) node(kind NodeKind, value string, pos int, children ...*Node) *Node {
	n := p.arena.Alloc(kind, pos)
	n.Value = value
	if len(children) > 0 {
		n.Children = children
	}
	return n
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrNestingTooDeep, fmt.Sprintf("expression nesting exceeds %d", p.opts.MaxDepth))
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
func (p *Parser) parsePrefix() (*Node, error) {
	token := p.current

	switch token.Type {
	case TokenString:
		return p.parseString()
	case TokenInteger:
		p.advance()
		return p.node(NodeInteger, token.Value, token.Position), nil
	case TokenDecimal:
		p.advance()
		return p.node(NodeDecimal, token.Value, token.Position), nil
	case TokenName:
		if token.Value == KeywordLet && p.peek().Type == TokenVariable {
			return p.parseLet()
		}
		if p.peek().Type == TokenParenOpen {
			return p.parseFunctionCall()
		}
		p.advance()
		return p.node(NodeName, token.Value, token.Position), nil
	case TokenVariable:
		p.advance()
		return p.node(NodeVariable, token.Value, token.Position), nil
	case TokenDot:
		p.advance()
		return p.node(NodeContextItem, "", token.Position), nil
	case TokenMult:
		p.advance()
		return p.node(NodeWildcard, "", token.Position), nil
	case TokenAt:
		return p.parseFlag()
	case TokenMinus, TokenPlus:
		return p.parseUnary()
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenSlash:
		return p.parseRoot()
	case TokenDoubleSlash:
		p.advance()
		rhs, err := p.parseExpression(precPath)
		if err != nil {
			return nil, err
		}
		return p.node(NodeRootDescendant, "//", token.Position, rhs), nil
	default:
		return nil, p.unexpected()
	}
}

// parseInfix parses an infix expression (led - left denotation).
func (p *Parser) parseInfix(left *Node) (*Node, error) {
	token := p.current

	switch token.Type {
	case TokenBracketOpen:
		return p.parseFilter(left)
	case TokenSlash, TokenDoubleSlash:
		p.advance()
		rhs, err := p.parseExpression(precPath)
		if err != nil {
			return nil, err
		}
		return p.node(NodePath, token.Value, token.Position, left, rhs), nil
	case TokenComma:
		return p.parseSequence(left)
	default:
		return p.parseBinaryOp(left)
	}
}

// parseString parses a string literal. Doubled quotes are collapsed.
func (p *Parser) parseString() (*Node, error) {
	t := p.current
	quote := p.lexer.input[t.Position-1 : t.Position]
	p.advance()
	return p.node(NodeString, strings.ReplaceAll(t.Value, quote+quote, quote), t.Position-1), nil
}

func (p *Parser) parseFlag() (*Node, error) {
	at := p.current
	p.advance()
	switch p.current.Type {
	case TokenName:
		name := p.current.Value
		p.advance()
		return p.node(NodeFlag, name, at.Position), nil
	case TokenMult:
		p.advance()
		return p.node(NodeFlag, "*", at.Position), nil
	}
	return nil, p.error(types.ErrSyntax, "expected flag name after @")
}

func (p *Parser) parseUnary() (*Node, error) {
	op := p.current
	p.advance()
	operand, err := p.parseExpression(precUnary)
	if err != nil {
		return nil, err
	}
	return p.node(NodeUnary, op.Value, op.Position, operand), nil
}

// parseGrouping parses () and ( expr ).
func (p *Parser) parseGrouping() (*Node, error) {
	open := p.current
	p.advance()
	if p.current.Type == TokenParenClose {
		p.advance()
		return p.node(NodeEmptySequence, "", open.Position), nil
	}
	inner, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return p.node(NodeParen, "", open.Position, inner), nil
}

// parseRoot parses a leading slash. It is a root path when a step follows
// and the document root on its own otherwise.
func (p *Parser) parseRoot() (*Node, error) {
	slash := p.current
	p.advance()
	if !p.startsStep() {
		return p.node(NodeRoot, "/", slash.Position), nil
	}
	rhs, err := p.parseExpression(precPath)
	if err != nil {
		return nil, err
	}
	return p.node(NodeRootPath, "/", slash.Position, rhs), nil
}

// startsStep reports whether the current token can begin a relative path.
func (p *Parser) startsStep() bool {
	switch p.current.Type {
	case TokenAt, TokenMult, TokenDot:
		return true
	case TokenName:
		_, isOp := keywordPrecedence[p.current.Value]
		return !isOp || p.peek().Type == TokenParenOpen
	}
	return false
}

func (p *Parser) parseFunctionCall() (*Node, error) {
	name := p.current
	p.advance()
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	call := p.node(NodeFunctionCall, name.Value, name.Position)
	if p.current.Type == TokenParenClose {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseExpression(precComma)
		if err != nil {
			return nil, err
		}
		call.Children = append(call.Children, arg)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return call, nil
}

// parseLet parses let $a := e1, $b := e2 return body into nested lets.
func (p *Parser) parseLet() (*Node, error) {
	type binding struct {
		name  Token
		bound *Node
	}
	start := p.current
	p.advance()

	var bindings []binding
	for {
		if p.current.Type != TokenVariable {
			return nil, p.error(types.ErrSyntax, "expected variable in let binding")
		}
		name := p.current
		p.advance()
		if err := p.expect(TokenAssign); err != nil {
			return nil, err
		}
		bound, err := p.parseExpression(precComma)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{name: name, bound: bound})
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}

	if p.current.Type != TokenName || p.current.Value != KeywordReturn {
		return nil, p.error(types.ErrSyntax, "expected return after let bindings")
	}
	p.advance()
	body, err := p.parseExpression(precComma)
	if err != nil {
		return nil, err
	}

	for i := len(bindings) - 1; i >= 0; i-- {
		pos := bindings[i].name.Position
		if i == 0 {
			pos = start.Position
		}
		body = p.node(NodeLet, bindings[i].name.Value, pos, bindings[i].bound, body)
	}
	return body, nil
}

func (p *Parser) parseFilter(left *Node) (*Node, error) {
	open := p.current
	p.advance()
	pred, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return p.node(NodeFilter, "", open.Position, left, pred), nil
}

// parseSequence collects comma separated operands into one sequence node.
func (p *Parser) parseSequence(left *Node) (*Node, error) {
	comma := p.current
	seq := left
	if left.Kind != NodeSequence {
		seq = p.node(NodeSequence, "", comma.Position, left)
	}
	p.advance()
	rhs, err := p.parseExpression(precComma)
	if err != nil {
		return nil, err
	}
	seq.Children = append(seq.Children, rhs)
	return seq, nil
}

func (p *Parser) parseBinaryOp(left *Node) (*Node, error) {
	op := p.current
	prec := p.getPrecedence(op)
	p.advance()

	rhs, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}

	// Comparisons do not associate: a = b = c is a syntax error.
	if prec == precComparison && p.getPrecedence(p.current) == precComparison {
		return nil, p.error(types.ErrSyntax, "comparison operators cannot be chained")
	}

	return p.node(NodeBinary, op.Value, op.Position, left, rhs), nil
}
