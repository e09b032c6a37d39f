package elaborator

import (
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// frame is one scope of the environment stack.
type frame struct {
	vars map[string]typesystem.Type // schemes or monotypes
}

// Env is a stack of frames mapping names to type schemes. The topmost
// frame is writable; lookups walk outward. A locals set tracks which
// names are lambda- or pattern-bound, which the emitter needs to
// distinguish stack slots from global references.
type Env struct {
	frames []*frame
	locals map[string]bool
}

func NewEnv() *Env {
	return &Env{
		frames: []*frame{{vars: make(map[string]typesystem.Type)}},
		locals: make(map[string]bool),
	}
}

func (e *Env) Push() {
	e.frames = append(e.frames, &frame{vars: make(map[string]typesystem.Type)})
}

func (e *Env) Pop() {
	if len(e.frames) > 1 {
		e.frames = e.frames[:len(e.frames)-1]
	}
}

// Extend binds name in the topmost frame. Shadowing outer bindings is
// allowed.
func (e *Env) Extend(name string, scheme typesystem.Type) {
	e.frames[len(e.frames)-1].vars[name] = scheme
}

// Lookup finds the innermost binding for name.
func (e *Env) Lookup(name string) (typesystem.Type, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if t, ok := e.frames[i].vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// MarkLocal records that name is lambda-bound.
func (e *Env) MarkLocal(name string) {
	e.locals[name] = true
}

// IsLocal reports whether name is lambda-bound.
func (e *Env) IsLocal(name string) bool {
	return e.locals[name]
}

// FreeTypeVars collects the free variables of every binding reachable
// from the current scope, after applying the substitution. Generalize
// must not quantify over these.
func (e *Env) FreeTypeVars(s typesystem.Subst) map[typesystem.VarID]bool {
	out := make(map[typesystem.VarID]bool)
	for _, f := range e.frames {
		for _, t := range f.vars {
			for _, id := range s.Apply(t).FreeTypeVars() {
				out[id] = true
			}
		}
	}
	return out
}
