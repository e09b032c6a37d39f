package lexer

import (
	"testing"

	"github.com/vaisto-lang/vaisto/internal/token"
)

func TestNextTokenBasics(t *testing.T) {
	input := `(defn add [x y] (+ x y))`

	tests := []struct {
		wantType    token.TokenType
		wantLiteral string
	}{
		{token.LPAREN, "("},
		{token.SYMBOL, "defn"},
		{token.SYMBOL, "add"},
		{token.LBRACKET, "["},
		{token.SYMBOL, "x"},
		{token.SYMBOL, "y"},
		{token.RBRACKET, "]"},
		{token.LPAREN, "("},
		{token.SYMBOL, "+"},
		{token.SYMBOL, "x"},
		{token.SYMBOL, "y"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.wantType {
			t.Fatalf("tests[%d] - wrong type. want=%q, got=%q (%q)", i, tt.wantType, tok.Type, tok.Lexeme)
		}
		if tok.Literal != tt.wantLiteral {
			t.Fatalf("tests[%d] - wrong literal. want=%q, got=%q", i, tt.wantLiteral, tok.Literal)
		}
	}
}

func TestNextTokenLiterals(t *testing.T) {
	input := `42 -7 3.14 -0.5 "hi\n" :inc true nil`

	tests := []struct {
		wantType    token.TokenType
		wantLiteral string
	}{
		{token.INT, "42"},
		{token.INT, "-7"},
		{token.FLOAT, "3.14"},
		{token.FLOAT, "-0.5"},
		{token.STRING, "hi\n"},
		{token.KEYWORD, "inc"},
		{token.SYMBOL, "true"},
		{token.SYMBOL, "nil"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.wantType {
			t.Fatalf("tests[%d] - wrong type. want=%q, got=%q", i, tt.wantType, tok.Type)
		}
		if tok.Literal != tt.wantLiteral {
			t.Fatalf("tests[%d] - wrong literal. want=%q, got=%q", i, tt.wantLiteral, tok.Literal)
		}
	}
}

func TestTokenPositions(t *testing.T) {
	input := "(foo\n  bar)"
	l := New(input)

	lparen := l.NextToken()
	if lparen.Line != 1 || lparen.Column != 1 {
		t.Errorf("lparen at %d:%d, want 1:1", lparen.Line, lparen.Column)
	}
	foo := l.NextToken()
	if foo.Line != 1 || foo.Column != 2 {
		t.Errorf("foo at %d:%d, want 1:2", foo.Line, foo.Column)
	}
	bar := l.NextToken()
	if bar.Line != 2 || bar.Column != 3 {
		t.Errorf("bar at %d:%d, want 2:3", bar.Line, bar.Column)
	}
}

func TestConsPattern(t *testing.T) {
	input := `[h | t]`
	l := New(input)

	wants := []token.TokenType{token.LBRACKET, token.SYMBOL, token.PIPE, token.SYMBOL, token.RBRACKET, token.EOF}
	for i, want := range wants {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tok[%d] = %q, want %q", i, tok.Type, want)
		}
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := "; leading comment\n(x) ; trailing"
	l := New(input)

	wants := []token.TokenType{token.LPAREN, token.SYMBOL, token.RPAREN, token.EOF}
	for i, want := range wants {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tok[%d] = %q, want %q", i, tok.Type, want)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL for unterminated string, got %q", tok.Type)
	}
}
