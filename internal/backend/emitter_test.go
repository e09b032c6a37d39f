package backend

import (
	"bytes"
	"testing"

	"github.com/vaisto-lang/vaisto/internal/elaborator"
	"github.com/vaisto-lang/vaisto/internal/parser"
)

func emitSource(t *testing.T, src string) []byte {
	t.Helper()
	mod, perrs := parser.ParseSource(src, "test.va")
	if len(perrs) != 0 {
		t.Fatalf("parse errors: %v", perrs)
	}
	r := elaborator.ElaborateModule(mod, nil)
	if !r.Ok() {
		t.Fatalf("elaboration errors: %v", r.Diagnostics)
	}
	return NewEmitter().Emit(r.Module)
}

func TestArtifactMagic(t *testing.T) {
	data := emitSource(t, `(defn add [x y] (+ x y))`)
	if len(data) < 8 {
		t.Fatalf("artifact too small: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		t.Errorf("artifact starts with %q, want FOR1", data[:4])
	}
	if !bytes.Equal(data[8:12], FormType[:]) {
		t.Errorf("form type is %q, want VAST", data[8:12])
	}
}

func TestEmitDeterminism(t *testing.T) {
	src := `(deftype Color (Red) (Green) (Blue) deriving [Eq])
	(defn pick [c] (match c [(Red) 1] [(Green) 2] [(Blue) 3]))
	(process counter 0 :inc (+ state 1))
	(pick (Red))`
	a := emitSource(t, src)
	b := emitSource(t, src)
	if !bytes.Equal(a, b) {
		t.Error("emitting the same module twice produced different artifacts")
	}
}

func TestEmitCoversConstructs(t *testing.T) {
	// The emitter must handle every expression form without panicking
	// and produce at least one code object per function and handler.
	src := `(deftype Maybe (Just v) (Nothing))
	(defrecord Point [x Int] [y Int])
	(defn classify [m] (match m [(Just v) v] [(Nothing) 0]))
	(defn pythag [p] (+ (* (. p :x) (. p :x)) (* (. p :y) (. p :y))))
	(defn choose [b] (if b [1 2] [3]))
	(process echo 0 :ping state)
	(do (classify (Just 1)) (pythag (Point 3 4)) (! (spawn echo 0) :ping))`
	data := emitSource(t, src)
	if len(data) == 0 {
		t.Fatal("empty artifact")
	}
}
