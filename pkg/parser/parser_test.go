package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sandrolain/gometapath/pkg/parser"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Helper functions

func parseExpr(t *testing.T, input string) *parser.Node {
	t.Helper()
	tree, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", input, err)
	}
	return tree.Root
}

func expectCode(t *testing.T, input string, code types.ErrorCode) {
	t.Helper()
	_, err := parser.Parse(input)
	if err == nil {
		t.Fatalf("Expected error parsing %q but got none", input)
	}
	if got := types.CodeOf(err); got != code {
		t.Fatalf("Expected %s parsing %q, got %v", code, input, err)
	}
	if !errors.Is(err, types.ErrCompile) {
		t.Errorf("Expected a compile error, got %v", err)
	}
}

func TestParseTree(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "42", "(integer 42)"},
		{"decimal", "3.14", "(decimal 3.14)"},
		{"leading dot decimal", ".5", "(decimal .5)"},
		{"exponent", "1e3", "(decimal 1e3)"},
		{"string", `"hello"`, "(string hello)"},
		{"doubled quote", `'it''s'`, "(string it's)"},
		{"name", "item", "(name item)"},
		{"dashed name", "line-item", "(name line-item)"},
		{"keyword as name", "and", "(name and)"},
		{"variable", "$x", "(variable x)"},
		{"context item", ".", "(context)"},
		{"wildcard", "*", "(wildcard)"},
		{"flag", "@id", "(flag id)"},
		{"flag wildcard", "@*", "(flag *)"},
		{"empty sequence", "()", "(empty)"},
		{"precedence", "1 + 2 * 3", "(binary + (integer 1) (binary * (integer 2) (integer 3)))"},
		{"left associative", "a div b idiv c mod d", "(binary mod (binary idiv (binary div (name a) (name b)) (name c)) (name d))"},
		{"boolean", "a and b or c", "(binary or (binary and (name a) (name b)) (name c))"},
		{"value comparison", "a eq 1", "(binary eq (name a) (integer 1))"},
		{"general comparison", "a != 1", "(binary != (name a) (integer 1))"},
		{"concat", "a || b", "(binary || (name a) (name b))"},
		{"union", "a | b union c", "(binary union (binary | (name a) (name b)) (name c))"},
		{"unary minus", "-a", "(unary - (name a))"},
		{"unary binds below path", "-a/b", "(unary - (path / (name a) (name b)))"},
		{"path", "a/b", "(path / (name a) (name b))"},
		{"relative descendant", "a//b", "(path // (name a) (name b))"},
		{"context path", "./item", "(path / (context) (name item))"},
		{"filter binds to step", "a/b[1]", "(path / (name a) (filter (name b) (integer 1)))"},
		{"filters chain", "a[1][@id]", "(filter (filter (name a) (integer 1)) (flag id))"},
		{"root", "/", "(root /)"},
		{"root path", "/catalog/@id", "(path / (root-path / (name catalog)) (flag id))"},
		{"root descendant", "//item", "(root-descendant // (name item))"},
		{"function call", "fn:count(a, b)", "(function fn:count (name a) (name b))"},
		{"function no args", "true()", "(function true)"},
		{"let", "let $x := 1 return $x + 1", "(let x (integer 1) (binary + (variable x) (integer 1)))"},
		{"let many", "let $a := 1, $b := 2 return $a", "(let a (integer 1) (let b (integer 2) (variable a)))"},
		{"let as name", "let", "(name let)"},
		{"sequence", "1, 2, 3", "(sequence (integer 1) (integer 2) (integer 3))"},
		{"paren sequence", "(1, 2) = (2, 3)", "(binary = (paren (sequence (integer 1) (integer 2))) (paren (sequence (integer 2) (integer 3))))"},
		{"comments", "1 (: outer (: nested :) :) + 2", "(binary + (integer 1) (integer 2))"},
		{"variable before assign", "let $x:=1 return $x", "(let x (integer 1) (variable x))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExpr(t, tt.input).String()
			if got != tt.want {
				t.Errorf("Parse(%q)\n got: %s\nwant: %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  types.ErrorCode
	}{
		{"empty", "", types.ErrSyntax},
		{"dangling operator", "1 +", types.ErrSyntax},
		{"unclosed paren", "(1", types.ErrSyntax},
		{"unclosed filter", "a[1", types.ErrSyntax},
		{"chained comparison", "a = b = c", types.ErrSyntax},
		{"let without return", "let $x := 1", types.ErrSyntax},
		{"bare dollar", "$", types.ErrSyntax},
		{"bad character", "a ! b", types.ErrSyntax},
		{"trailing token", "a b", types.ErrSyntax},
		{"unterminated string", "'abc", types.ErrUnterminatedString},
		{"unclosed comment", "1 (: x", types.ErrCommentNotClosed},
		{"bad number", "12abc", types.ErrInvalidNumber},
		{"missing exponent", "1e", types.ErrInvalidNumber},
		{"too deep", strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300), types.ErrNestingTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, tt.input, tt.code)
		})
	}
}

func TestParseErrorCarriesSource(t *testing.T) {
	_, err := parser.Parse("a = = b")
	var e *types.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *types.Error, got %T", err)
	}
	if e.Expr != "a = = b" {
		t.Errorf("Expr = %q", e.Expr)
	}
	if e.Position != 4 {
		t.Errorf("Position = %d, want 4", e.Position)
	}
}

func TestWithMaxDepth(t *testing.T) {
	input := "((((1))))"
	if _, err := parser.Parse(input, parser.WithMaxDepth(3)); types.CodeOf(err) != types.ErrNestingTooDeep {
		t.Fatalf("expected nesting error, got %v", err)
	}
	if _, err := parser.Parse(input, parser.WithMaxDepth(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLexerTokens(t *testing.T) {
	l := parser.NewLexer(`a//b != $v:=1 || 'x'`)
	want := []parser.TokenType{
		parser.TokenName, parser.TokenDoubleSlash, parser.TokenName, parser.TokenNotEqual,
		parser.TokenVariable, parser.TokenAssign, parser.TokenInteger, parser.TokenConcat,
		parser.TokenString, parser.TokenEOF,
	}
	for i, tt := range want {
		tok := l.Next()
		if tok.Type != tt {
			t.Fatalf("token %d: got %s (%q), want %s", i, tok.Type, tok.Value, tt)
		}
	}
}

func TestArenaGrows(t *testing.T) {
	a := parser.NewNodeArena()
	for i := 0; i < 130; i++ {
		n := a.Alloc(parser.NodeInteger, i)
		if n.Position != i {
			t.Fatalf("position = %d, want %d", n.Position, i)
		}
	}
	if a.Len() != 130 {
		t.Errorf("Len = %d, want 130", a.Len())
	}
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"1 + 2", "//item[@id = 'x']", "let $x := 1 return $x", "fn:count(a/b)",
		"(: c :) a", "/", "(1, 2) = (2, 3)", "a[1][2]/@*",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		tree, err := parser.Parse(input)
		if err != nil {
			var e *types.Error
			if !errors.As(err, &e) {
				t.Fatalf("non-structured error %T: %v", err, err)
			}
			return
		}
		if tree.Root == nil {
			t.Fatal("nil root without error")
		}
		_ = tree.Root.String()
	})
}
