package parser

import (
	"testing"

	"github.com/vaisto-lang/vaisto/internal/ast"
)

func parseOK(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, errs := ParseSource(src, "test.va")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return mod
}

func TestParseDefn(t *testing.T) {
	mod := parseOK(t, `(defn add [x y] (+ x y))`)
	if len(mod.Decls) != 1 {
		t.Fatalf("decls = %d, want 1", len(mod.Decls))
	}
	defn, ok := mod.Decls[0].(*ast.DefnDecl)
	if !ok {
		t.Fatalf("decl is %T, want DefnDecl", mod.Decls[0])
	}
	if defn.Name != "add" || len(defn.Params) != 2 || len(defn.Body) != 1 {
		t.Errorf("defn shape: name=%s params=%d body=%d", defn.Name, len(defn.Params), len(defn.Body))
	}
	call, ok := defn.Body[0].(*ast.Call)
	if !ok {
		t.Fatalf("body is %T, want Call", defn.Body[0])
	}
	if sym, ok := call.Fn.(*ast.Symbol); !ok || sym.Name != "+" {
		t.Errorf("call head = %v", call.Fn)
	}
}

func TestParseNsAndImports(t *testing.T) {
	mod := parseOK(t, "(ns geometry)\n(import shapes :as s)\n(defn f [x] x)")
	if mod.Name != "geometry" {
		t.Errorf("module name = %q, want geometry", mod.Name)
	}
	if len(mod.Imports) != 1 || mod.Imports[0].Module != "shapes" || mod.Imports[0].Alias != "s" {
		t.Errorf("imports = %+v", mod.Imports)
	}
}

func TestParseDeftypeWithDeriving(t *testing.T) {
	mod := parseOK(t, `(deftype Maybe (Just v) (Nothing) deriving [Eq])`)
	d, ok := mod.Decls[0].(*ast.DeftypeDecl)
	if !ok {
		t.Fatalf("decl is %T", mod.Decls[0])
	}
	if d.Name != "Maybe" || len(d.Variants) != 2 {
		t.Fatalf("deftype shape: %s variants=%d", d.Name, len(d.Variants))
	}
	if d.Variants[0].Ctor != "Just" || len(d.Variants[0].Fields) != 1 {
		t.Errorf("Just variant: %+v", d.Variants[0])
	}
	if d.Variants[1].Ctor != "Nothing" || len(d.Variants[1].Fields) != 0 {
		t.Errorf("Nothing variant: %+v", d.Variants[1])
	}
	if len(d.Deriving) != 1 || d.Deriving[0].Class != "Eq" {
		t.Errorf("deriving: %+v", d.Deriving)
	}
}

func TestParseDefrecord(t *testing.T) {
	mod := parseOK(t, `(defrecord Point [x Int] [y Int])`)
	d, ok := mod.Decls[0].(*ast.DefrecordDecl)
	if !ok {
		t.Fatalf("decl is %T", mod.Decls[0])
	}
	if d.Name != "Point" || len(d.Fields) != 2 {
		t.Fatalf("defrecord shape: %s fields=%d", d.Name, len(d.Fields))
	}
	if d.Fields[0].Name != "x" {
		t.Errorf("field 0 = %+v", d.Fields[0])
	}
}

func TestParseDefclassWithDefault(t *testing.T) {
	src := `(defclass Eq [a]
	  (eq [a a] Bool)
	  (neq [a a] Bool (fn [x y] (not (eq x y)))))`
	mod := parseOK(t, src)
	d, ok := mod.Decls[0].(*ast.DefclassDecl)
	if !ok {
		t.Fatalf("decl is %T", mod.Decls[0])
	}
	if d.Name != "Eq" || d.TyVar != "a" || len(d.Methods) != 2 {
		t.Fatalf("defclass shape: %s tyvar=%s methods=%d", d.Name, d.TyVar, len(d.Methods))
	}
	if d.Methods[0].Default != nil {
		t.Error("eq should have no default")
	}
	if d.Methods[1].Default == nil {
		t.Error("neq should have a default")
	}
}

func TestParseConstrainedInstance(t *testing.T) {
	src := `(instance Show (Maybe a) where [(Show a)]
	  (show [x] "?"))`
	mod := parseOK(t, src)
	d, ok := mod.Decls[0].(*ast.InstanceDecl)
	if !ok {
		t.Fatalf("decl is %T", mod.Decls[0])
	}
	if d.Class != "Show" || d.HeadName != "Maybe" {
		t.Errorf("instance head: %s %s", d.Class, d.HeadName)
	}
	if len(d.HeadArgs) != 1 || d.HeadArgs[0] != "a" {
		t.Errorf("head args: %v", d.HeadArgs)
	}
	if len(d.Constraints) != 1 || d.Constraints[0].Class != "Show" || d.Constraints[0].Var != "a" {
		t.Errorf("constraints: %+v", d.Constraints)
	}
	if len(d.Methods) != 1 || d.Methods[0].Name != "show" {
		t.Errorf("methods: %+v", d.Methods)
	}
}

func TestParseProcess(t *testing.T) {
	mod := parseOK(t, `(process counter 0 :inc (+ state 1) :reset 0)`)
	d, ok := mod.Decls[0].(*ast.ProcessDecl)
	if !ok {
		t.Fatalf("decl is %T", mod.Decls[0])
	}
	if d.Name != "counter" || len(d.Handlers) != 2 {
		t.Fatalf("process shape: %s handlers=%d", d.Name, len(d.Handlers))
	}
	if d.Handlers[0].Tag != "inc" || d.Handlers[1].Tag != "reset" {
		t.Errorf("tags: %s %s", d.Handlers[0].Tag, d.Handlers[1].Tag)
	}
}

func TestParseMatchPatterns(t *testing.T) {
	src := `(match xs
	  [[] 0]
	  [[h | t] h]
	  [(Just v) v]
	  [_ -1])`
	mod := parseOK(t, src)
	m, ok := mod.Decls[0].(*ast.ExprDecl).Expr.(*ast.Match)
	if !ok {
		t.Fatalf("expr is not a match")
	}
	if len(m.Clauses) != 4 {
		t.Fatalf("clauses = %d, want 4", len(m.Clauses))
	}
	if _, ok := m.Clauses[0].Pattern.(*ast.PList); !ok {
		t.Errorf("clause 0 pattern is %T", m.Clauses[0].Pattern)
	}
	if _, ok := m.Clauses[1].Pattern.(*ast.PCons); !ok {
		t.Errorf("clause 1 pattern is %T", m.Clauses[1].Pattern)
	}
	if _, ok := m.Clauses[2].Pattern.(*ast.PCtor); !ok {
		t.Errorf("clause 2 pattern is %T", m.Clauses[2].Pattern)
	}
	if _, ok := m.Clauses[3].Pattern.(*ast.PWild); !ok {
		t.Errorf("clause 3 pattern is %T", m.Clauses[3].Pattern)
	}
}

func TestParseFieldAccessAndSends(t *testing.T) {
	mod := parseOK(t, `(defn f [r p] (do (. r :x) (! p :inc) (!! p :anything)))`)
	defn := mod.Decls[0].(*ast.DefnDecl)
	d := defn.Body[0].(*ast.Do)
	if len(d.Exprs) != 3 {
		t.Fatalf("do exprs = %d", len(d.Exprs))
	}
	fa, ok := d.Exprs[0].(*ast.FieldAccess)
	if !ok || fa.Field != "x" {
		t.Errorf("field access: %+v", d.Exprs[0])
	}
	safe, ok := d.Exprs[1].(*ast.Send)
	if !ok || !safe.Safe {
		t.Errorf("safe send: %+v", d.Exprs[1])
	}
	unsafe, ok := d.Exprs[2].(*ast.Send)
	if !ok || unsafe.Safe {
		t.Errorf("unsafe send: %+v", d.Exprs[2])
	}
}

func TestMalformedDefnProducesE200(t *testing.T) {
	_, errs := ParseSource(`(defn broken (+ 1 2))`, "test.va")
	if len(errs) == 0 {
		t.Fatal("expected errors for malformed defn")
	}
	found := false
	for _, e := range errs {
		if e.Code == "E200" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E200, got: %v", errs)
	}
}

func TestParserRecoversAfterBadForm(t *testing.T) {
	src := "(defn broken (+ 1 2))\n(defn ok [x] x)"
	mod, errs := ParseSource(src, "test.va")
	if len(errs) == 0 {
		t.Fatal("expected errors")
	}
	foundOK := false
	for _, d := range mod.Decls {
		if defn, ok := d.(*ast.DefnDecl); ok && defn.Name == "ok" {
			foundOK = true
		}
	}
	if !foundOK {
		t.Error("parser did not recover to parse the second defn")
	}
}
