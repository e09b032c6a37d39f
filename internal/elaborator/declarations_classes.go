package elaborator

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// admitClass registers a defclass: its methods become dispatchable
// names, and each default body is checked once against the abstract
// class type variable.
func (c *Context) admitClass(d *ast.DefclassDecl) {
	if _, dup := c.classes.Class(d.Name); dup {
		c.errorf(diagnostics.ErrE030, d.NameTok, "class "+d.Name+" is already declared")
		return
	}
	if d.TyVar == "" {
		c.errorf(diagnostics.ErrE030, d.NameTok, "class "+d.Name+" is missing its type variable")
		return
	}

	ci := &ClassInfo{Name: d.Name, TyVar: d.TyVar, Tok: d.NameTok}
	for _, m := range d.Methods {
		if _, dup := ci.Method(m.Name); dup {
			c.errorf(diagnostics.ErrE030, m.Token, "method "+m.Name+" is declared twice in class "+d.Name)
			continue
		}
		if owner, taken := c.classes.MethodClass(m.Name); taken {
			c.errorf(diagnostics.ErrE030, m.Token,
				fmt.Sprintf("method %s already belongs to class %s", m.Name, owner.Name))
			continue
		}

		sc := newTVScope(true)
		sc.self = d.TyVar
		params := make([]typesystem.Type, len(m.Params))
		for i, p := range m.Params {
			params[i] = c.convertTypeExpr(p, sc)
		}
		var ret typesystem.Type = typesystem.UnitType
		if m.Return != nil {
			ret = c.convertTypeExpr(m.Return, sc)
		}

		var bound []typesystem.VarID
		for _, name := range sc.order {
			if tv, ok := sc.vars[name].(typesystem.TVar); ok {
				bound = append(bound, tv.ID)
			}
		}
		mi := &MethodInfo{
			Name:       m.Name,
			Sig:        typesystem.TScheme{Bound: bound, Body: typesystem.TFunc{Params: params, Return: ret}},
			Default:    m.Default,
			HasDefault: m.Default != nil,
			Tok:        m.Token,
		}
		ci.Methods = append(ci.Methods, mi)
		c.lexicon = append(c.lexicon, m.Name)
	}

	c.classes.Add(ci)

	// Check each default once against the abstract class variable.
	// Method calls that dispatch on the class variable itself (neq
	// implemented via eq) are legitimate there.
	for _, mi := range ci.Methods {
		if mi.Default == nil {
			continue
		}
		c.checkInstanceMethodBody(ci, mi, mi.Default, c.Fresh(), nil)
	}
}

// methodSig instantiates a method signature at the given head type.
func (c *Context) methodSig(mi *MethodInfo, headType typesystem.Type) typesystem.TFunc {
	inst := c.Instantiate(mi.Sig)
	inst = inst.Apply(typesystem.Subst{selfVarID: headType})
	fn, ok := inst.(typesystem.TFunc)
	if !ok {
		return typesystem.TFunc{Return: typesystem.AnyType}
	}
	return fn
}

// instanceHead resolves the head of an instance declaration to its
// selector name and a representative type, with one fresh variable per
// head parameter.
func (c *Context) instanceHead(d *ast.InstanceDecl) (string, typesystem.Type, map[typesystem.VarID]string, bool) {
	paramOf := make(map[typesystem.VarID]string)

	switch d.HeadName {
	case "Int", "Float", "Bool", "String", "Atom", "Unit", "Pid":
		return d.HeadName, typesystem.TCon{Name: d.HeadName}, paramOf, true
	case "List":
		elem := c.Fresh()
		if len(d.HeadArgs) == 1 {
			paramOf[elem.ID] = d.HeadArgs[0]
		}
		return "List", typesystem.TList{Elem: elem}, paramOf, true
	case "Fn":
		c.errorf(diagnostics.ErrE030, d.HeadTok, "function types cannot carry instances")
		return "", nil, nil, false
	}

	def, ok := c.types[d.HeadName]
	if !ok {
		c.errorf(diagnostics.ErrE102, d.HeadTok, "unknown type "+d.HeadName+" in instance head")
		return "", nil, nil, false
	}
	if def.IsSum {
		if len(d.HeadArgs) != len(def.Params) {
			c.errorf(diagnostics.ErrE030, d.HeadTok,
				fmt.Sprintf("instance head %s expects %d parameters, got %d", d.HeadName, len(def.Params), len(d.HeadArgs)))
			return "", nil, nil, false
		}
		args := make([]typesystem.Type, len(d.HeadArgs))
		for i, name := range d.HeadArgs {
			v := c.Fresh()
			paramOf[v.ID] = name
			args[i] = v
		}
		return def.Name, typesystem.TSum{Name: def.Name, Args: args}, paramOf, true
	}
	if len(d.HeadArgs) != 0 {
		c.errorf(diagnostics.ErrE030, d.HeadTok, "record head "+d.HeadName+" takes no parameters")
	}
	return def.Name, c.recordType(def), paramOf, true
}

// admitInstance registers an instance and elaborates its method
// bodies, synthesizing omitted methods from class defaults.
func (c *Context) admitInstance(d *ast.InstanceDecl) {
	ci, ok := c.classes.Class(d.Class)
	if !ok {
		c.errorf(diagnostics.ErrE030, d.ClassTok, "instance of unknown class "+d.Class)
		return
	}

	head, headType, paramOf, ok := c.instanceHead(d)
	if !ok {
		return
	}

	inst := &InstanceInfo{
		Class:    d.Class,
		Head:     head,
		HeadArgs: d.HeadArgs,
		Methods:  make(map[string]*tast.Fn),
		Tok:      d.HeadTok,
	}

	// Validate constraints: each must name a known class and a head
	// parameter.
	for _, cd := range d.Constraints {
		if _, ok := c.classes.Class(cd.Class); !ok {
			c.errorf(diagnostics.ErrE030, cd.Token, "constraint names unknown class "+cd.Class)
			continue
		}
		found := false
		for _, a := range d.HeadArgs {
			if a == cd.Var {
				found = true
				break
			}
		}
		if !found {
			c.errorf(diagnostics.ErrE030, cd.Token,
				fmt.Sprintf("constraint (%s %s) names a variable not bound by the head", cd.Class, cd.Var))
			continue
		}
		inst.Constraints = append(inst.Constraints, Constraint{Class: cd.Class, Var: cd.Var})
	}

	if !c.instances.Add(inst) {
		dup := c.errorf(diagnostics.ErrE031, d.HeadTok, fmt.Sprintf("duplicate instance %s %s", d.Class, head))
		if prev, ok := c.instances.Lookup(d.Class, head); ok {
			dup.WithRelated(prev.Tok, "previous instance is here")
		}
		return
	}
	c.localInstances = append(c.localInstances, inst)

	// Every class method needs a body: explicit, or the class default.
	provided := make(map[string]*ast.InstanceMethod)
	for i := range d.Methods {
		m := &d.Methods[i]
		if _, ok := ci.Method(m.Name); !ok {
			c.errorf(diagnostics.ErrE030, m.Token,
				fmt.Sprintf("class %s has no method %s", d.Class, m.Name))
			continue
		}
		if _, dup := provided[m.Name]; dup {
			c.errorf(diagnostics.ErrE030, m.Token, "method "+m.Name+" implemented twice")
			continue
		}
		provided[m.Name] = m
	}

	dicts := dictSet{}
	for _, con := range inst.Constraints {
		for id, name := range paramOf {
			if name == con.Var {
				dicts.add(id, con.Class, con.Var)
			}
		}
	}

	for _, mi := range ci.Methods {
		if m, ok := provided[mi.Name]; ok {
			sig := c.methodSig(mi, headType)
			if len(m.Params) != len(sig.Params) {
				c.errorf(diagnostics.ErrE005, m.Token,
					fmt.Sprintf("method %s takes %d parameters, got %d", mi.Name, len(sig.Params), len(m.Params)))
				continue
			}
			fn := c.elaborateInstanceMethod(mi, m.Params, m.Body, sig, dicts)
			inst.Methods[mi.Name] = fn
			continue
		}
		if mi.Default != nil {
			fn := c.checkInstanceMethodBody(ci, mi, mi.Default, headType, dicts)
			if fn != nil {
				inst.Methods[mi.Name] = fn
			}
			continue
		}
		if mi.HasDefault {
			// Imported class: the default body lives in the declaring
			// module's artifact.
			continue
		}
		c.errorf(diagnostics.ErrE030, d.HeadTok,
			fmt.Sprintf("instance %s %s is missing method %s", d.Class, head, mi.Name))
	}
}

// dictSet maps a dispatch variable to the classes whose dictionary is
// available for it, with the constraint parameter name.
type dictSet map[typesystem.VarID]map[string]string

func (ds dictSet) add(id typesystem.VarID, class, name string) {
	if ds[id] == nil {
		ds[id] = make(map[string]string)
	}
	ds[id][class] = name
}

// elaborateInstanceMethod type-checks one explicit method body against
// the instantiated signature.
func (c *Context) elaborateInstanceMethod(mi *MethodInfo, params []ast.Param, body []ast.Expr, sig typesystem.TFunc, dicts dictSet) *tast.Fn {
	pendingMark := len(c.pending)

	c.env.Push()
	names := make([]string, len(params))
	for i, p := range params {
		c.env.Extend(p.Name, sig.Params[i])
		c.env.MarkLocal(p.Name)
		names[i] = p.Name
	}

	var nodes []tast.Node
	var last typesystem.Type = typesystem.UnitType
	var lastTok = mi.Tok
	for _, e := range body {
		n, t := c.infer(e)
		if n != nil {
			nodes = append(nodes, n)
			last = t
			lastTok = n.GetToken()
		}
	}
	c.env.Pop()

	c.Unify(last, sig.Return, diagnostics.ErrE004, lastTok)
	c.dischargeDicts(pendingMark, dicts)

	return &tast.Fn{Tok: mi.Tok, Params: names, Body: nodes, Ty: c.Apply(sig)}
}

// checkInstanceMethodBody elaborates a default body (a fn expression)
// at the given head type. When the head is the abstract class variable
// itself, same-class method calls dispatch through it.
func (c *Context) checkInstanceMethodBody(ci *ClassInfo, mi *MethodInfo, def ast.Expr, headType typesystem.Type, dicts dictSet) *tast.Fn {
	fnExpr, ok := def.(*ast.Fn)
	if !ok {
		c.errorf(diagnostics.ErrE030, def.GetToken(), "default for "+mi.Name+" must be a fn expression")
		return nil
	}
	if tv, ok := headType.(typesystem.TVar); ok {
		withSelf := dictSet{}
		for id, classes := range dicts {
			for class, name := range classes {
				withSelf.add(id, class, name)
			}
		}
		withSelf.add(tv.ID, ci.Name, ci.TyVar)
		dicts = withSelf
	}
	sig := c.methodSig(mi, headType)
	if len(fnExpr.Params) != len(sig.Params) {
		c.errorf(diagnostics.ErrE005, fnExpr.Token,
			fmt.Sprintf("default for %s takes %d parameters, got %d", mi.Name, len(sig.Params), len(fnExpr.Params)))
		return nil
	}
	return c.elaborateInstanceMethod(mi, fnExpr.Params, fnExpr.Body, sig, dicts)
}

// dischargeDicts retries class calls deferred during an instance
// method body with the body's dictionaries in scope: calls whose
// dispatch variable (or constraint argument) carries a matching
// dictionary resolve to dictionary dispatch; everything else stays
// pending and surfaces at module end.
func (c *Context) dischargeDicts(mark int, dicts dictSet) {
	if mark > len(c.pending) {
		return
	}
	kept := c.pending[:mark]
	for _, pc := range c.pending[mark:] {
		if c.resolveClassCall(pc.node, dicts) {
			continue
		}
		kept = append(kept, pc)
	}
	c.pending = kept
}

// dictFor finds a dictionary for (id, class), chasing the substitution
// because unification may have renamed the parameter variables since
// the dictionaries were recorded.
func (c *Context) dictFor(dicts dictSet, id typesystem.VarID, class string) (string, bool) {
	if len(dicts) == 0 {
		return "", false
	}
	if name, ok := dicts[id][class]; ok {
		return name, true
	}
	for did, classes := range dicts {
		if tv, ok := c.Apply(typesystem.TVar{ID: did}).(typesystem.TVar); ok && tv.ID == id {
			if name, ok := classes[class]; ok {
				return name, true
			}
		}
	}
	return "", false
}
