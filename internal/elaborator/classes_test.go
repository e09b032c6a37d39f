package elaborator

import (
	"strings"
	"testing"

	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
)

func TestCtorTyping(t *testing.T) {
	src := `(deftype Maybe (Just v) (Nothing))
	(Just 42)`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "(Maybe Int)")

	src2 := `(deftype Maybe (Just v) (Nothing))
	(Nothing)`
	r2 := expectOK(t, src2)
	got := exprType(t, r2)
	if !strings.HasPrefix(got.String(), "(Maybe") {
		t.Errorf("Nothing type = %s, want a Maybe instantiation", got)
	}
}

func TestCtorArity(t *testing.T) {
	expectElabError(t, `(deftype Maybe (Just v) (Nothing)) (Just 1 2)`, diagnostics.ErrE005)
}

func TestRecordCtorAndNominality(t *testing.T) {
	src := `(defrecord Point [x Int] [y Int])
	(Point 1 2)`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Point")

	expectElabError(t, `(defrecord Point [x Int] [y Int]) (Point 1 "two")`, diagnostics.ErrE001)
}

func TestDerivedEq(t *testing.T) {
	src := `(deftype Color (Red) (Green) (Blue) deriving [Eq])
	(eq (Red) (Green))`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Bool")
}

func TestDerivedNeqViaDefault(t *testing.T) {
	src := `(deftype Color (Red) (Green) (Blue) deriving [Eq])
	(neq (Red) (Blue))`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Bool")
}

func TestDerivedShowNullaryOnly(t *testing.T) {
	expectOK(t, `(deftype Color (Red) (Green) (Blue) deriving [Show]) (show (Red))`)

	d := expectElabError(t,
		`(deftype Maybe (Just v) (Nothing) deriving [Show])`,
		diagnostics.ErrE030)
	if !strings.Contains(d.Message, "manual instance") {
		t.Errorf("diagnostic should direct to a manual instance: %s", d.Message)
	}

	expectElabError(t,
		`(defrecord Point [x Int] [y Int] deriving [Show])`,
		diagnostics.ErrE030)
}

func TestDerivingUnknownClass(t *testing.T) {
	expectElabError(t, `(deftype Color (Red) deriving [Frobnicate])`, diagnostics.ErrE030)
}

func TestUserClassWithDefault(t *testing.T) {
	src := `(defclass Sized [a]
	  (size [a] Int)
	  (empty-sized? [a] Bool (fn [x] (= (size x) 0))))
	(deftype Box (Full) (Empty))
	(instance Sized Box
	  (size [b] (match b [(Full) 1] [(Empty) 0])))
	(empty-sized? (Empty))`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Bool")
}

func TestInstanceMissingMethod(t *testing.T) {
	src := `(defclass Sized [a] (size [a] Int))
	(deftype Box (Full))
	(instance Sized Box)`
	expectElabError(t, src, diagnostics.ErrE030)
}

func TestDuplicateInstance(t *testing.T) {
	src := `(defclass Sized [a] (size [a] Int))
	(instance Sized Int (size [x] x))
	(instance Sized Int (size [x] x))`
	expectElabError(t, src, diagnostics.ErrE031)
}

func TestNoInstanceForHead(t *testing.T) {
	src := `(defclass Sized [a] (size [a] Int))
	(size "hello")`
	expectElabError(t, src, diagnostics.ErrE030)
}

func TestConstrainedInstanceChain(t *testing.T) {
	src := `(deftype Maybe (Just v) (Nothing))
	(instance Show (Maybe a) where [(Show a)]
	  (show [x] (match x
	    [(Just v) (str "Just(" (show v) ")")]
	    [(Nothing) "Nothing"])))
	(show (Just (Just 42)))`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "String")

	// The class call records its resolved constraint chain for the
	// emitter.
	call, ok := r.Module.Exprs[len(r.Module.Exprs)-1].(*tast.ClassCall)
	if !ok {
		t.Fatalf("expr is %T, want ClassCall", r.Module.Exprs[len(r.Module.Exprs)-1])
	}
	if call.Head != "Maybe" {
		t.Errorf("head = %q, want Maybe", call.Head)
	}
	if len(call.Constraints) != 1 || call.Constraints[0].Head != "Maybe" {
		t.Fatalf("constraints = %+v, want nested Maybe", call.Constraints)
	}
	sub := call.Constraints[0].Sub
	if len(sub) != 1 || sub[0].Head != "Int" {
		t.Errorf("nested constraint = %+v, want Int", sub)
	}
}

func TestConstraintDepthBudget(t *testing.T) {
	// Deep nesting of a constrained instance exceeds the resolver's
	// depth budget with exactly one diagnostic.
	depth := 40
	expr := "42"
	for i := 0; i < depth; i++ {
		expr = "(Just " + expr + ")"
	}
	src := `(deftype Maybe (Just v) (Nothing))
	(instance Show (Maybe a) where [(Show a)]
	  (show [x] "?"))
	(show ` + expr + `)`

	r := elabSource(t, src)
	count := 0
	for _, d := range r.Diagnostics {
		if d.Code == diagnostics.ErrE901 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one %s, got %d", diagnostics.ErrE901, count)
	}
}

func TestMissingConstraintInstance(t *testing.T) {
	src := `(deftype Maybe (Just v) (Nothing))
	(deftype Opaque (Op))
	(instance Show (Maybe a) where [(Show a)]
	  (show [x] "?"))
	(show (Just (Op)))`
	expectElabError(t, src, diagnostics.ErrE030)
}

func TestClassMethodMustBeApplied(t *testing.T) {
	expectElabError(t, `(map show [1 2 3])`, diagnostics.ErrE101)
}

func TestUnresolvedDispatchAtModuleEnd(t *testing.T) {
	// A class call whose dispatch type never becomes concrete cannot
	// be compiled.
	src := `(defn generic-eq [x y] (eq x y))`
	expectElabError(t, src, diagnostics.ErrE030)
}

func TestDerivedEqMatchesManualInstanceShape(t *testing.T) {
	// A manually written structural instance and deriving [Eq] accept
	// the same programs and dispatch on the same head.
	derived := `(deftype Pair (MkPair v w) deriving [Eq])
	(eq (MkPair 1 2) (MkPair 1 2))`
	rd := expectOK(t, derived)
	assertType(t, exprType(t, rd), "Bool")

	manual := `(deftype Pair (MkPair v w))
	(instance Eq (Pair v w) where [(Eq v) (Eq w)]
	  (eq [a b] (match a
	    [(MkPair x y) (match b
	      [(MkPair p q) (if (eq x p) (eq y q) false)])])))
	(eq (MkPair 1 2) (MkPair 1 2))`
	rm := expectOK(t, manual)
	assertType(t, exprType(t, rm), "Bool")

	dCall := rd.Module.Exprs[len(rd.Module.Exprs)-1].(*tast.ClassCall)
	mCall := rm.Module.Exprs[len(rm.Module.Exprs)-1].(*tast.ClassCall)
	if dCall.Head != mCall.Head {
		t.Errorf("derived head %q differs from manual head %q", dCall.Head, mCall.Head)
	}
}
