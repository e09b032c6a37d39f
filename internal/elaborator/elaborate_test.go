package elaborator

import (
	"strings"
	"testing"

	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/parser"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// elabSource lexes, parses and elaborates the input.
func elabSource(t *testing.T, src string) *Result {
	t.Helper()
	mod, perrs := parser.ParseSource(src, "test.va")
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors: %v\ninput: %s", perrs, src)
	}
	return ElaborateModule(mod, nil)
}

// expectOK asserts elaboration succeeds without errors.
func expectOK(t *testing.T, src string) *Result {
	t.Helper()
	r := elabSource(t, src)
	if !r.Ok() {
		var msgs []string
		for _, d := range r.Diagnostics {
			msgs = append(msgs, d.Error())
		}
		t.Fatalf("unexpected errors:\n%s\ninput: %s", strings.Join(msgs, "\n"), src)
	}
	return r
}

// expectElabError asserts that at least one error with the given code
// is produced and returns it.
func expectElabError(t *testing.T, src string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	r := elabSource(t, src)
	for _, d := range r.Diagnostics {
		if d.Code == code && d.Severity == diagnostics.SeverityError {
			return d
		}
	}
	var msgs []string
	for _, d := range r.Diagnostics {
		msgs = append(msgs, d.Error())
	}
	t.Fatalf("expected error %s, got:\n%s\ninput: %s", code, strings.Join(msgs, "\n"), src)
	return nil
}

// exprType returns the type of the last top-level expression.
func exprType(t *testing.T, r *Result) typesystem.Type {
	t.Helper()
	if len(r.Module.Exprs) == 0 {
		t.Fatal("module has no top-level expressions")
	}
	return r.Module.Exprs[len(r.Module.Exprs)-1].Type()
}

func assertType(t *testing.T, got typesystem.Type, want string) {
	t.Helper()
	if typesystem.PrintType(got) != want {
		t.Errorf("type = %s, want %s", typesystem.PrintType(got), want)
	}
}

func TestNumericOperators(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`(+ 1 2)`, "Int"},
		{`(- 7 2)`, "Int"},
		{`(* 3 4)`, "Int"},
		{`(+ 1 2.5)`, "Float"},
		{`(+ 2.5 1)`, "Float"},
		{`(* 1.5 2.0)`, "Float"},
		{`(/ 10 2)`, "Float"},
		{`(/ 1.0 2.0)`, "Float"},
		{`(< 1 2)`, "Bool"},
		{`(>= 2.5 1)`, "Bool"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			assertType(t, exprType(t, expectOK(t, tc.src)), tc.want)
		})
	}
}

func TestNumericWidenIsRecorded(t *testing.T) {
	r := expectOK(t, `(+ 1 2.5)`)
	op, ok := r.Module.Exprs[0].(*tast.NumOp)
	if !ok {
		t.Fatalf("expr is %T, want NumOp", r.Module.Exprs[0])
	}
	if !op.Widen {
		t.Error("mixed Int/Float operands should record widening")
	}
}

func TestInvalidOperand(t *testing.T) {
	expectElabError(t, `(+ 1 "two")`, diagnostics.ErrE006)
	expectElabError(t, `(* true 2)`, diagnostics.ErrE006)
}

func TestIfTyping(t *testing.T) {
	assertType(t, exprType(t, expectOK(t, `(if true 1 0)`)), "Int")
	assertType(t, exprType(t, expectOK(t, `(if true :yes :no)`)), "Atom")
	assertType(t, exprType(t, expectOK(t, `(if false "a" "b")`)), "String")
}

func TestIfErrors(t *testing.T) {
	expectElabError(t, `(if 1 2 3)`, diagnostics.ErrE011)
	expectElabError(t, `(if true 1 "one")`, diagnostics.ErrE003)
}

func TestListLiterals(t *testing.T) {
	assertType(t, exprType(t, expectOK(t, `[1 2 3]`)), "(List Int)")
	assertType(t, exprType(t, expectOK(t, `[:a :b :c]`)), "(List Atom)")
	expectElabError(t, `[1 "two" 3]`, diagnostics.ErrE002)
}

func TestLetGeneralization(t *testing.T) {
	// A let-bound identity must be usable at several types.
	r := expectOK(t, `(let [id (fn [x] x)] (do (id 1) (id "s") (id true)))`)
	assertType(t, exprType(t, r), "Bool")
}

func TestLetShadowing(t *testing.T) {
	r := expectOK(t, `(let [x 1 x "two"] x)`)
	assertType(t, exprType(t, r), "String")
}

func TestDefnPrincipalScheme(t *testing.T) {
	r := expectOK(t, `(defn identity [x] x)`)
	sig, ok := r.Interface.Func("identity")
	if !ok {
		t.Fatal("identity not exported")
	}
	scheme, ok := sig.Scheme.(typesystem.TScheme)
	if !ok {
		t.Fatalf("identity has monotype %s, expected a scheme", sig.Scheme)
	}
	if len(scheme.Bound) != 1 {
		t.Errorf("identity scheme binds %d vars, want 1", len(scheme.Bound))
	}
}

func TestDefnRecursion(t *testing.T) {
	src := `(defn fact [n] (if (< n 2) 1 (* n (fact (- n 1)))))`
	r := expectOK(t, src)
	sig, _ := r.Interface.Func("fact")
	assertType(t, sig.Scheme, "(Fn [Int] Int)")
}

func TestOccursCheckRejectsSelfApplication(t *testing.T) {
	expectElabError(t, `(defn weird [x] (x x))`, diagnostics.ErrE001)
}

func TestUnknownFunctionSuggestion(t *testing.T) {
	d := expectElabError(t, `(printl "hi")`, diagnostics.ErrE101)
	if !strings.Contains(d.Hint, "println") {
		t.Errorf("expected println suggestion, got hint %q", d.Hint)
	}
}

func TestUnknownSymbolIsAtom(t *testing.T) {
	// A bare unbound symbol is an atom literal of universal type.
	r := expectOK(t, `banana`)
	assertType(t, exprType(t, r), "Atom")
}

func TestArityMismatch(t *testing.T) {
	expectElabError(t, `(defn f [x y] (+ x y)) (f 1)`, diagnostics.ErrE005)
}

func TestNotAFunction(t *testing.T) {
	expectElabError(t, `(defn f [x] x) ((f 1) 2)`, diagnostics.ErrE009)
}

func TestHigherOrderArity(t *testing.T) {
	expectElabError(t, `(map (fn [a b] a) [1 2])`, diagnostics.ErrE010)
}

func TestNotAList(t *testing.T) {
	expectElabError(t, `(head 42)`, diagnostics.ErrE008)
}

func TestDoSequencing(t *testing.T) {
	assertType(t, exprType(t, expectOK(t, `(do 1 "two" :three)`)), ":three")
}
