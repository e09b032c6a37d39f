package elaborator

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/config"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/token"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// selfVarID marks the class type variable inside stored method
// signatures. The ordinary counter starts at 1, so id 0 is never a
// real inference variable.
const selfVarID typesystem.VarID = 0

// MethodInfo is one class method: its signature with the class tyvar
// encoded as selfVarID, other signature variables scheme-bound, and an
// optional default body kept in surface form for re-elaboration per
// instance head.
type MethodInfo struct {
	Name       string
	Sig        typesystem.TScheme // body is a TFunc mentioning selfVarID
	Default    ast.Expr
	HasDefault bool // true also for imported defaults whose body lives elsewhere
	Tok        token.Token
}

// ClassInfo is one declared class.
type ClassInfo struct {
	Name    string
	TyVar   string
	Methods []*MethodInfo
	Tok     token.Token
}

func (ci *ClassInfo) Method(name string) (*MethodInfo, bool) {
	for _, m := range ci.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ClassTable maps class names to their declarations, and method names
// back to their class for call-site dispatch.
type ClassTable struct {
	classes map[string]*ClassInfo
	methods map[string]string // method name -> class name
}

func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*ClassInfo),
		methods: make(map[string]string),
	}
}

func (t *ClassTable) Add(ci *ClassInfo) {
	t.classes[ci.Name] = ci
	for _, m := range ci.Methods {
		t.methods[m.Name] = ci.Name
	}
}

func (t *ClassTable) Class(name string) (*ClassInfo, bool) {
	ci, ok := t.classes[name]
	return ci, ok
}

// MethodClass resolves a method name to its owning class.
func (t *ClassTable) MethodClass(method string) (*ClassInfo, bool) {
	cls, ok := t.methods[method]
	if !ok {
		return nil, false
	}
	return t.classes[cls], true
}

// Constraint is an instance-level requirement (Class, head type var).
type Constraint struct {
	Class string
	Var   string
}

// InstanceInfo is one admitted instance: its head, constraints and
// method bodies (explicit or synthesized from class defaults),
// elaborated at admission time.
type InstanceInfo struct {
	Class       string
	Head        string
	HeadArgs    []string
	Constraints []Constraint
	Methods     map[string]*tast.Fn // elaborated bodies, including defaults
	Derived     bool
	Tok         token.Token
}

// InstanceTable maps (class, head) to the admitted instance.
type InstanceTable struct {
	instances map[string]map[string]*InstanceInfo
}

func NewInstanceTable() *InstanceTable {
	return &InstanceTable{instances: make(map[string]map[string]*InstanceInfo)}
}

func (t *InstanceTable) Add(inst *InstanceInfo) bool {
	byHead, ok := t.instances[inst.Class]
	if !ok {
		byHead = make(map[string]*InstanceInfo)
		t.instances[inst.Class] = byHead
	}
	if _, dup := byHead[inst.Head]; dup {
		return false
	}
	byHead[inst.Head] = inst
	return true
}

func (t *InstanceTable) Lookup(class, head string) (*InstanceInfo, bool) {
	byHead, ok := t.instances[class]
	if !ok {
		return nil, false
	}
	inst, ok := byHead[head]
	return inst, ok
}

// All returns every instance, for interface extraction.
func (t *InstanceTable) All() []*InstanceInfo {
	var out []*InstanceInfo
	for _, byHead := range t.instances {
		for _, inst := range byHead {
			out = append(out, inst)
		}
	}
	return out
}

// VariantDef is one admitted constructor of a sum type. Field types
// reference the type's parameters through their ParamIDs.
type VariantDef struct {
	Ctor   string
	Fields []typesystem.Type
}

// TypeDef is an admitted sum or record type. Sum parameters are
// represented by the fixed variable ids in ParamIDs; instantiation
// substitutes them with the applied arguments. Keeping the admitted
// form semantic (not surface syntax) lets imported interfaces register
// types the same way local declarations do.
type TypeDef struct {
	Name      string
	Params    []string
	ParamIDs  []typesystem.VarID
	IsSum     bool
	Variants  []VariantDef
	RecFields []typesystem.Field
	Tok       token.Token
}

// HeadOf returns the constructor name that selects an instance for t.
func HeadOf(t typesystem.Type) (string, bool) {
	switch v := t.(type) {
	case typesystem.TCon:
		return v.Name, true
	case typesystem.TAtom:
		return typesystem.AtomType.Name, true
	case typesystem.TSum:
		return v.Name, true
	case typesystem.TRecord:
		return v.Name, true
	case typesystem.TList:
		return "List", true
	case typesystem.TTuple:
		return "Tuple", true
	case typesystem.TFunc:
		return "Fn", true
	case typesystem.TPid:
		return typesystem.PidType.Name, true
	}
	return "", false
}

// headTypeArgs recovers the instance-relevant type arguments of an
// instantiated head: the element type of a list, the field
// instantiations of a parameterized sum, and so on.
func (c *Context) headTypeArgs(t typesystem.Type) []typesystem.Type {
	switch v := t.(type) {
	case typesystem.TList:
		return []typesystem.Type{v.Elem}
	case typesystem.TTuple:
		return v.Elements
	case typesystem.TSum:
		return v.Args
	}
	return nil
}

// resolveClassCall attempts to resolve a class-method call. dicts
// lists the dictionaries available in the surrounding instance body
// (nil elsewhere). It returns false when the dispatch type is still an
// unconstrained variable, or when a constraint argument is a variable
// with no matching dictionary yet: the caller defers. Hard resolution
// failures are reported and count as handled.
func (c *Context) resolveClassCall(call *tast.ClassCall, dicts dictSet) bool {
	ht := c.Apply(call.HeadType)

	if tv, isVar := ht.(typesystem.TVar); isVar {
		// Dispatch on a constraint parameter (or the class variable in
		// a default body) goes through the dictionary.
		if name, ok := c.dictFor(dicts, tv.ID, call.Class); ok {
			call.Dict = name
			call.HeadType = ht
			return true
		}
		return false
	}

	head, ok := HeadOf(ht)
	if !ok {
		c.errorf(diagnostics.ErrE030, call.Tok,
			fmt.Sprintf("cannot dispatch %s.%s on %s", call.Class, call.Method, typesystem.PrintType(ht)))
		return true
	}

	resolved, deferred, errCode, msg := c.resolveConstraint(call.Class, ht, 0, dicts)
	if deferred {
		return false
	}
	if errCode != "" {
		c.errorf(errCode, call.Tok, msg)
		return true
	}

	call.Head = head
	call.HeadType = ht
	call.Constraints = resolved.Sub
	return true
}

// resolveConstraint solves one (class, type) requirement, chasing
// constrained instances recursively. A constraint argument that is
// still a variable resolves through a matching dictionary when one is
// in scope, and otherwise defers the whole call.
func (c *Context) resolveConstraint(class string, t typesystem.Type, depth int, dicts dictSet) (tast.ResolvedConstraint, bool, diagnostics.ErrorCode, string) {
	if depth > config.ConstraintDepthBudget {
		return tast.ResolvedConstraint{}, false, diagnostics.ErrE901,
			fmt.Sprintf("constraint chain for %s exceeds depth budget %d", class, config.ConstraintDepthBudget)
	}

	if tv, isVar := t.(typesystem.TVar); isVar {
		if name, ok := c.dictFor(dicts, tv.ID, class); ok {
			return tast.ResolvedConstraint{Class: class, Dict: name}, false, "", ""
		}
		return tast.ResolvedConstraint{}, true, "", ""
	}

	head, ok := HeadOf(t)
	if !ok {
		return tast.ResolvedConstraint{}, false, diagnostics.ErrE030,
			fmt.Sprintf("no instance of %s for %s", class, typesystem.PrintType(t))
	}

	inst, ok := c.instances.Lookup(class, head)
	if !ok {
		return tast.ResolvedConstraint{}, false, diagnostics.ErrE030,
			fmt.Sprintf("no instance of %s for %s", class, head)
	}

	out := tast.ResolvedConstraint{Class: class, Head: head}
	if len(inst.Constraints) == 0 {
		return out, false, "", ""
	}

	args := c.headTypeArgs(t)
	for _, req := range inst.Constraints {
		argType, ok := c.lookupHeadArg(inst, req.Var, args)
		if !ok {
			return tast.ResolvedConstraint{}, false, diagnostics.ErrE030,
				fmt.Sprintf("instance %s %s constrains unknown parameter %s", class, head, req.Var)
		}
		sub, deferred, code, msg := c.resolveConstraint(req.Class, c.Apply(argType), depth+1, dicts)
		if deferred {
			return tast.ResolvedConstraint{}, true, "", ""
		}
		if code != "" {
			return tast.ResolvedConstraint{}, false, code, msg
		}
		out.Sub = append(out.Sub, sub)
	}
	return out, false, "", ""
}

func (c *Context) lookupHeadArg(inst *InstanceInfo, varName string, args []typesystem.Type) (typesystem.Type, bool) {
	for i, a := range inst.HeadArgs {
		if a == varName && i < len(args) {
			return args[i], true
		}
	}
	return nil, false
}

// flushPending retries every deferred class call. Called at
// generalization boundaries and at module end; final reports leftover
// unresolvable constraints.
func (c *Context) flushPending(final bool) {
	var remaining []*pendingConstraint
	for _, pc := range c.pending {
		if c.resolveClassCall(pc.node, nil) {
			continue
		}
		if final {
			c.errorf(diagnostics.ErrE030, pc.tok,
				fmt.Sprintf("cannot resolve %s.%s: the dispatch type is never determined", pc.class, pc.method))
			continue
		}
		remaining = append(remaining, pc)
	}
	c.pending = remaining
}
