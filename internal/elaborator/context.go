package elaborator

import (
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/token"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// Context holds the state of one module elaboration: the fresh
// variable supply, the growing substitution, the environment stack,
// the class and process tables, deferred constraints and the
// diagnostic accumulator. A Context is owned by a single elaboration;
// parallel module builds each get their own.
type Context struct {
	counter typesystem.VarID
	subst   typesystem.Subst
	env     *Env

	classes   *ClassTable
	instances *InstanceTable
	types     map[string]*TypeDef
	ctors     map[string]string // constructor name -> declaring type
	processes map[string]*ProcessInfo

	// deferred class constraints: re-examined as variables become
	// concrete, finally at module end.
	pending []*pendingConstraint

	// deferred safe sends whose pid type was still free.
	pendingSends []*pendingSend

	diags []*diagnostics.DiagnosticError

	// lexicon for typo suggestions: builtins plus module-level names.
	lexicon []string

	// builtins marks names currently bound to compiler builtins; a
	// module-level defn of the same name removes the mark.
	builtins map[string]bool

	// localInstances lists instances admitted by this module, in
	// admission order, for interface extraction.
	localInstances []*InstanceInfo
}

// pendingConstraint is an unresolved class-method dispatch. The node
// is patched in place once the head type becomes concrete.
type pendingConstraint struct {
	class  string
	method string
	node   *tast.ClassCall
	tok    token.Token
}

// pendingSend is a safe send whose pid type was not yet concrete.
type pendingSend struct {
	pidType typesystem.Type
	tag     string
	tok     token.Token
}

// ProcessInfo is a declared process: its state type and accepted tags.
type ProcessInfo struct {
	Name      string
	StateType typesystem.Type
	Tags      []string
	Tok       token.Token
}

func (p *ProcessInfo) AcceptsTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func NewContext() *Context {
	return &Context{
		subst:     make(typesystem.Subst),
		env:       NewEnv(),
		classes:   NewClassTable(),
		instances: NewInstanceTable(),
		types:     make(map[string]*TypeDef),
		ctors:     make(map[string]string),
		processes: make(map[string]*ProcessInfo),
		builtins:  make(map[string]bool),
	}
}

// Fresh returns a new ordinary type variable.
func (c *Context) Fresh() typesystem.TVar {
	c.counter++
	return typesystem.TVar{ID: c.counter}
}

// FreshRowVar returns a new row variable. Context implements
// typesystem.VarSupply with it.
func (c *Context) FreshRowVar() typesystem.RVar {
	c.counter++
	return typesystem.RVar{ID: c.counter}
}

// Apply applies the current substitution.
func (c *Context) Apply(t typesystem.Type) typesystem.Type {
	return c.subst.Apply(t)
}

// Unify unifies two types under the current substitution, extending it
// on success. On failure it records a diagnostic with the given code
// and returns false; the caller is expected to recover with Any or a
// fresh variable.
func (c *Context) Unify(t1, t2 typesystem.Type, code diagnostics.ErrorCode, tok token.Token) bool {
	a := c.Apply(t1)
	b := c.Apply(t2)
	s, err := typesystem.Unify(a, b, c)
	if err != nil {
		p := typesystem.NewPrinter()
		c.errorf(code, tok, err.Error()).WithTypes(p.Print(a), p.Print(b))
		return false
	}
	c.subst = c.subst.Compose(s)
	return true
}

// UnifySilent is Unify without a diagnostic; used where the caller
// wants to try an alternative on failure.
func (c *Context) UnifySilent(t1, t2 typesystem.Type) bool {
	s, err := typesystem.Unify(c.Apply(t1), c.Apply(t2), c)
	if err != nil {
		return false
	}
	c.subst = c.subst.Compose(s)
	return true
}

// Instantiate replaces the bound variables of a scheme with fresh ones.
// Non-scheme types are returned unchanged.
func (c *Context) Instantiate(t typesystem.Type) typesystem.Type {
	scheme, ok := t.(typesystem.TScheme)
	if !ok {
		return t
	}
	s := make(typesystem.Subst, len(scheme.Bound))
	for _, id := range scheme.Bound {
		s[id] = c.Fresh()
	}
	return scheme.Body.Apply(s)
}

// Generalize quantifies t over its free variables that do not occur in
// the environment. Performed only at let/defn boundaries.
func (c *Context) Generalize(t typesystem.Type) typesystem.Type {
	applied := c.Apply(t)
	envFree := c.env.FreeTypeVars(c.subst)

	var bound []typesystem.VarID
	for _, id := range applied.FreeTypeVars() {
		if !envFree[id] {
			bound = append(bound, id)
		}
	}
	if len(bound) == 0 {
		return applied
	}
	return typesystem.TScheme{Bound: bound, Body: applied}
}

func (c *Context) errorf(code diagnostics.ErrorCode, tok token.Token, msg string) *diagnostics.DiagnosticError {
	d := diagnostics.NewError(code, tok, msg)
	c.diags = append(c.diags, d)
	return d
}

func (c *Context) warnf(code diagnostics.ErrorCode, tok token.Token, msg string) *diagnostics.DiagnosticError {
	d := diagnostics.NewWarning(code, tok, msg)
	c.diags = append(c.diags, d)
	return d
}

// Diagnostics returns everything accumulated so far.
func (c *Context) Diagnostics() []*diagnostics.DiagnosticError {
	return c.diags
}
