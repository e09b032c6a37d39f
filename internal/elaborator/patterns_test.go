package elaborator

import (
	"strings"
	"testing"

	"github.com/vaisto-lang/vaisto/internal/diagnostics"
)

func TestMatchExhaustiveSum(t *testing.T) {
	src := `(deftype Color (Red) (Green) (Blue))
	(match (Red) [(Red) 1] [(Green) 2] [(Blue) 3])`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Int")
}

func TestMatchNonExhaustiveNamesWitness(t *testing.T) {
	src := `(deftype Color (Red) (Green) (Blue))
	(match (Red) [(Red) 1] [(Green) 2])`
	d := expectElabError(t, src, diagnostics.ErrE020)
	if !strings.Contains(d.Message, "Blue") {
		t.Errorf("witness should name Blue: %s", d.Message)
	}
}

func TestMatchFreshVariantRegression(t *testing.T) {
	// Property: adding a variant to the ADT makes an existing match
	// non-exhaustive; adding the clause fixes it.
	without := `(deftype Shape (Circle) (Square))
	(match (Circle) [(Circle) 1] [(Square) 2])`
	expectOK(t, without)

	withVariant := `(deftype Shape (Circle) (Square) (Triangle))
	(match (Circle) [(Circle) 1] [(Square) 2])`
	d := expectElabError(t, withVariant, diagnostics.ErrE020)
	if !strings.Contains(d.Message, "Triangle") {
		t.Errorf("witness should name Triangle: %s", d.Message)
	}

	fixed := `(deftype Shape (Circle) (Square) (Triangle))
	(match (Circle) [(Circle) 1] [(Square) 2] [(Triangle) 3])`
	expectOK(t, fixed)
}

func TestMatchWildcardCoversOpenTypes(t *testing.T) {
	expectOK(t, `(match 42 [1 :one] [2 :two] [_ :many])`)
	expectElabError(t, `(match 42 [1 :one] [2 :two])`, diagnostics.ErrE020)
}

func TestMatchBoolCoverage(t *testing.T) {
	expectOK(t, `(match true [true 1] [false 0])`)
	d := expectElabError(t, `(match true [true 1])`, diagnostics.ErrE020)
	if !strings.Contains(d.Message, "false") {
		t.Errorf("witness should name false: %s", d.Message)
	}
}

func TestMatchListCoverage(t *testing.T) {
	expectOK(t, `(match [1 2] [[] 0] [[h | t] h])`)
	expectElabError(t, `(match [1 2] [[h | t] h])`, diagnostics.ErrE020)
}

func TestMatchBindsCtorFields(t *testing.T) {
	src := `(deftype Maybe (Just v) (Nothing))
	(match (Just 41) [(Just v) (+ v 1)] [(Nothing) 0])`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Int")
}

func TestMatchNestedPatternExhaustiveness(t *testing.T) {
	// (Just (Just _)) alone does not cover (Just (Nothing)): a
	// constructor counts as covered only through a clause whose
	// sub-patterns are themselves exhaustive.
	src := `(deftype Maybe (Just v) (Nothing))
	(match (Just (Just 1))
	  [(Just (Just v)) v]
	  [(Nothing) 0])`
	expectElabError(t, src, diagnostics.ErrE020)

	full := `(deftype Maybe (Just v) (Nothing))
	(match (Just (Just 1))
	  [(Just (Just v)) v]
	  [(Just inner) -1]
	  [(Nothing) 0])`
	expectOK(t, full)
}

func TestMatchRedundantClauseWarns(t *testing.T) {
	src := `(match 1 [_ :any] [1 :one])`
	r := elabSource(t, src)
	if !r.Ok() {
		t.Fatalf("redundancy must not be fatal: %v", r.Diagnostics)
	}
	found := false
	for _, d := range r.Diagnostics {
		if d.Code == diagnostics.ErrE021 && d.Severity == diagnostics.SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Error("expected a redundant-clause warning")
	}
}

func TestMatchClauseBodiesMustAgree(t *testing.T) {
	expectElabError(t, `(match 1 [1 "one"] [_ 2])`, diagnostics.ErrE003)
	// Distinct atoms agree at Atom.
	r := expectOK(t, `(match 1 [1 :one] [_ :other])`)
	assertType(t, exprType(t, r), "Atom")
}

func TestConsPatternTyping(t *testing.T) {
	src := `(defn first-or [xs fallback] (match xs [[] fallback] [[h | t] h]))
	(first-or [1 2 3] 0)`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Int")

	expectElabError(t, `(match 42 [[h | t] h] [_ 0])`, diagnostics.ErrE007)
}

func TestTuplePatterns(t *testing.T) {
	src := `(match (tuple 1 "a") [(tuple n s) n])`
	r := expectOK(t, src)
	assertType(t, exprType(t, r), "Int")
}

func TestUnknownCtorInPattern(t *testing.T) {
	expectElabError(t, `(match 1 [(Bogus x) x] [_ 0])`, diagnostics.ErrE102)
}
