package elaborator

import (
	"strings"
	"testing"

	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

func TestSpawnProducesTypedPid(t *testing.T) {
	src := `(process counter 0 :inc (+ state 1) :reset 0)
	(spawn counter 0)`
	r := expectOK(t, src)
	pid, ok := exprType(t, r).(typesystem.TPid)
	if !ok {
		t.Fatalf("spawn type = %T, want TPid", exprType(t, r))
	}
	if pid.Process != "counter" {
		t.Errorf("pid process = %q", pid.Process)
	}
	if !pid.AcceptsTag("inc") || !pid.AcceptsTag("reset") {
		t.Errorf("pid tags = %v", pid.Tags)
	}
}

func TestSafeSendAcceptsDeclaredTag(t *testing.T) {
	src := `(process counter 0 :inc (+ state 1))
	(! (spawn counter 0) :inc)`
	expectOK(t, src)
}

func TestSafeSendRejectsWrongTag(t *testing.T) {
	src := `(process counter 0 :inc (+ state 1))
	(! (spawn counter 0) :wrong)`
	d := expectElabError(t, src, diagnostics.ErrE300)
	if !strings.Contains(d.Hint, ":inc") {
		t.Errorf("hint should list accepted tags, got %q", d.Hint)
	}
}

func TestSendToNonPid(t *testing.T) {
	expectElabError(t, `(! 42 :inc)`, diagnostics.ErrE301)
	expectElabError(t, `(! "pid" :inc)`, diagnostics.ErrE301)
}

func TestUnsafeSendSkipsTagValidation(t *testing.T) {
	src := `(process counter 0 :inc (+ state 1))
	(!! (spawn counter 0) :whatever)`
	expectOK(t, src)
}

func TestUnsafeSendStillRejectsObviousNonPid(t *testing.T) {
	expectElabError(t, `(!! [1 2] :msg)`, diagnostics.ErrE301)
}

func TestDeferredSendResolvesAgainstRegistry(t *testing.T) {
	// The pid is a parameter: its type stays free, so the tag is
	// checked against the declared processes at module end.
	ok := `(process counter 0 :inc (+ state 1))
	(defn poke [p] (! p :inc))`
	expectOK(t, ok)

	bad := `(process counter 0 :inc (+ state 1))
	(defn poke [p] (! p :boom))`
	expectElabError(t, bad, diagnostics.ErrE300)
}

func TestSpawnInitMustMatchStateType(t *testing.T) {
	src := `(process counter 0 :inc (+ state 1))
	(spawn counter "zero")`
	expectElabError(t, src, diagnostics.ErrE001)
}

func TestHandlerMustReturnStateType(t *testing.T) {
	src := `(process counter 0 :inc "not a count")`
	expectElabError(t, src, diagnostics.ErrE004)
}

func TestUnknownProcess(t *testing.T) {
	expectElabError(t, `(spawn ghost 0)`, diagnostics.ErrE103)
}

func TestProcessStateThreadsThroughHandlers(t *testing.T) {
	src := `(process cell [1 2 3]
	  :clear []
	  :grow (cons 0 state))`
	r := expectOK(t, src)
	if len(r.Module.Processes) != 1 {
		t.Fatalf("processes = %d", len(r.Module.Processes))
	}
	assertType(t, r.Module.Processes[0].StateType, "(List Int)")
}
