package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gometapath/pkg/types"
)

const eof = -1

// Lexer converts a Metapath expression into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	// Check if skipWhitespace encountered an error (e.g., unclosed comment)
	if l.err != nil {
		return Token{Type: TokenError, Position: l.start}
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// A dot followed by a digit starts a decimal literal (.5)
	if ch == '.' && isDigit(l.peek()) {
		l.backup()
		return l.scanNumber()
	}

	// Check for two-character symbols first (e.g., !=, <=, //)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// String literals (single or double quoted)
	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}

	// Number literals
	if isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	// Variables
	if ch == '$' {
		l.ignore()
		if !isNameStart(l.peek()) {
			return l.error(types.ErrSyntax, "expected variable name after $")
		}
		t := l.scanName()
		t.Type = TokenVariable
		return t
	}

	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.error(types.ErrSyntax, "unexpected character "+string(ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed. A doubled quote stands for
// one quote character.
func (l *Lexer) scanString(quote rune) Token {
	for {
		switch l.nextRune() {
		case quote:
			if l.acceptRune(quote) {
				continue
			}
			t := Token{
				Type:     TokenString,
				Value:    l.input[l.start : l.current-1],
				Position: l.start,
			}
			l.width = 0
			l.ignore()
			return t
		case eof:
			return l.error(types.ErrUnterminatedString, "unterminated string literal")
		}
	}
}

// scanNumber reads a numeric literal from the current position.
// Format: [0-9]+ | [0-9]* '.' [0-9]* ([eE][+-]?[0-9]+)?
func (l *Lexer) scanNumber() Token {
	tt := TokenInteger
	l.acceptAll(isDigit)

	// Decimal part
	if l.acceptRune('.') {
		tt = TokenDecimal
		l.acceptAll(isDigit)
	}

	// Exponent part
	if l.acceptRunes2('e', 'E') {
		tt = TokenDecimal
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.error(types.ErrInvalidNumber, "missing exponent digits")
		}
	}

	// 12abc is not a number followed by a name
	if isNameStart(l.peek()) {
		l.nextRune()
		return l.error(types.ErrInvalidNumber, "invalid numeric literal")
	}

	return l.newToken(tt)
}

// scanName reads an NCName or a prefixed QName (fn:count) from the
// current position.
func (l *Lexer) scanName() Token {
	l.acceptAll(isNameChar)
	// A prefix is only taken when a name follows the colon, so that
	// $x:=1 still lexes as a variable and an assignment.
	if l.peek() == ':' {
		save := l.current
		l.nextRune()
		if isNameStart(l.peek()) {
			l.acceptAll(isNameChar)
		} else {
			l.current = save
		}
	}
	return l.newToken(TokenName)
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = &types.Error{
		Code:     code,
		Message:  message,
		Position: t.Position,
		Token:    t.Value,
	}
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peek() rune {
	if l.current >= l.length {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace skips whitespace and (: ... :) comments, which may nest.
func (l *Lexer) skipWhitespace() {
	for {
		if l.err != nil {
			return
		}

		l.acceptAll(isWhitespace)
		l.ignore()

		if !l.hasPrefix("(:") {
			return
		}
		start := l.current
		depth := 0
		for {
			switch {
			case l.hasPrefix("(:"):
				depth++
				l.current += 2
			case l.hasPrefix(":)"):
				depth--
				l.current += 2
			case l.current >= l.length:
				l.err = &types.Error{
					Code:     types.ErrCommentNotClosed,
					Message:  "unclosed comment",
					Position: start,
				}
				l.start = start
				return
			default:
				l.nextRune()
			}
			if depth == 0 {
				break
			}
		}
		l.ignore()
	}
}

func (l *Lexer) hasPrefix(s string) bool {
	return l.current+len(s) <= l.length && l.input[l.current:l.current+len(s)] == s
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 0 && unicode.IsLetter(r))
}

func isNameChar(r rune) bool {
	return isNameStart(r) || isDigit(r) || r == '-' || r == '.' || unicode.Is(unicode.Mn, r)
}
