package diagnostics

import (
	"strings"
	"testing"

	"github.com/vaisto-lang/vaisto/internal/token"
)

func TestRenderExcerpt(t *testing.T) {
	source := "(defn f [x]\n  (+ x true))\n"
	tok := token.Token{Type: token.SYMBOL, Lexeme: "true", Line: 2, Column: 8}
	d := NewError(ErrE001, tok, "cannot unify Int with Bool").
		WithTypes("Int", "Bool").
		WithHint("numeric operators accept Int and Float only")

	out := Render(d, "main.va", source)

	for _, want := range []string{
		"error[E001]",
		"--> main.va:2:8",
		"(+ x true))",
		"^^^^",
		"expected: Int",
		"actual: Bool",
		"hint: numeric operators",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCaretPlacement(t *testing.T) {
	source := "(foo bar)\n"
	tok := token.Token{Type: token.SYMBOL, Lexeme: "bar", Line: 1, Column: 6}
	out := Render(NewError(ErrE100, tok, "undefined variable bar"), "x.va", source)

	lines := strings.Split(out, "\n")
	var caretLine string
	for _, l := range lines {
		if strings.Contains(l, "^") {
			caretLine = l
		}
	}
	if caretLine == "" {
		t.Fatalf("no caret line in:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimRight(caretLine, " "), "^^^") {
		t.Errorf("caret length should match span: %q", caretLine)
	}
	if idx := strings.Index(caretLine, "^"); idx < 0 || caretLine[idx-1] != ' ' {
		t.Errorf("caret not preceded by padding: %q", caretLine)
	}
}

func TestWarningSeverity(t *testing.T) {
	d := NewWarning(ErrE021, token.Token{Line: 1, Column: 1, Lexeme: "x"}, "redundant clause")
	if HasErrors([]*DiagnosticError{d}) {
		t.Error("warnings alone should not count as errors")
	}
	out := Render(d, "x.va", "x\n")
	if !strings.Contains(out, "warning[E021]") {
		t.Errorf("expected warning header, got:\n%s", out)
	}
}

func TestJaroWinkler(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"lenght", "length", 0.9, 1.0},
		{"printl", "println", 0.9, 1.0},
		{"abc", "abc", 1.0, 1.0},
		{"abc", "xyz", 0.0, 0.1},
	}
	for _, tc := range cases {
		got := JaroWinkler(tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Errorf("JaroWinkler(%q, %q) = %f, want in [%f, %f]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestSuggest(t *testing.T) {
	lexicon := []string{"println", "length", "reverse", "concat"}

	if got, ok := Suggest("lenght", lexicon); !ok || got != "length" {
		t.Errorf("Suggest(lenght) = %q, %v; want length", got, ok)
	}
	if _, ok := Suggest("zzz", lexicon); ok {
		t.Error("no suggestion expected for zzz")
	}
}
