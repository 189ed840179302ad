package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString   // "hello" or 'hello'
	TokenInteger  // 123
	TokenDecimal  // 3.14, .5, 1e-10
	TokenName     // item, meta:name, and, div
	TokenVariable // $var

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot   // .
	TokenComma // ,
	TokenAt    // @

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *

	// Path operators
	TokenSlash       // /
	TokenDoubleSlash // //

	// Other operators
	TokenPipe   // |
	TokenConcat // ||
	TokenAssign // :=

	// Comparison operators
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenString:
		return "(string)"
	case TokenInteger:
		return "(integer)"
	case TokenDecimal:
		return "(decimal)"
	case TokenName:
		return "(name)"
	case TokenVariable:
		return "(variable)"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenDot:
		return "."
	case TokenComma:
		return ","
	case TokenAt:
		return "@"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenSlash:
		return "/"
	case TokenDoubleSlash:
		return "//"
	case TokenPipe:
		return "|"
	case TokenConcat:
		return "||"
	case TokenAssign:
		return ":="
	case TokenEqual:
		return "="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in a Metapath expression.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	',': TokenComma,
	'@': TokenAt,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenSlash,
	'|': TokenPipe,
	'=': TokenEqual,
	'<': TokenLess,
	'>': TokenGreater,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'/': {{'/', TokenDoubleSlash}},
	'|': {{'|', TokenConcat}},
	':': {{'=', TokenAssign}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// Keyword operators are lexed as names and recognized by the parser in
// infix position, so that the same words remain usable as name tests.
const (
	KeywordAnd    = "and"
	KeywordOr     = "or"
	KeywordDiv    = "div"
	KeywordIdiv   = "idiv"
	KeywordMod    = "mod"
	KeywordEq     = "eq"
	KeywordNe     = "ne"
	KeywordLt     = "lt"
	KeywordLe     = "le"
	KeywordGt     = "gt"
	KeywordGe     = "ge"
	KeywordUnion  = "union"
	KeywordLet    = "let"
	KeywordReturn = "return"
)
