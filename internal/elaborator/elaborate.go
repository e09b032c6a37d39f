package elaborator

import (
	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/config"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/iface"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// Result is the outcome of one module elaboration. Module and
// Interface are meaningful only when Diagnostics contains no errors.
type Result struct {
	Module      *tast.Module
	Interface   *iface.Interface
	Diagnostics []*diagnostics.DiagnosticError
}

// Ok reports whether elaboration produced no hard errors.
func (r *Result) Ok() bool {
	return !diagnostics.HasErrors(r.Diagnostics)
}

// ElaborateModule elaborates one parsed module. imports maps module
// names to the interfaces of already-elaborated dependencies.
func ElaborateModule(mod *ast.Module, imports map[string]*iface.Interface) *Result {
	c := NewContext()
	c.lexicon = append(c.lexicon, config.Lexicon...)
	c.installBuiltins()
	c.installBuiltinClasses()
	c.loadImports(mod, imports)

	// Admit all type names first; bodies may reference each other.
	c.admitTypeHeaders(mod.Decls)
	for _, d := range mod.Decls {
		if cd, ok := d.(*ast.DefclassDecl); ok {
			c.admitClass(cd)
		}
	}
	c.admitTypeBodies(mod.Decls)
	for _, d := range mod.Decls {
		if id, ok := d.(*ast.InstanceDecl); ok {
			c.admitInstance(id)
		}
	}
	c.admitProcessHeaders(mod.Decls)

	// Pre-bind function names so bodies can recurse and call forward.
	preBound := make(map[string]typesystem.TVar)
	for _, d := range mod.Decls {
		if fd, ok := d.(*ast.DefnDecl); ok {
			if _, dup := preBound[fd.Name]; dup {
				c.errorf(diagnostics.ErrE200, fd.NameTok, "function "+fd.Name+" is already defined")
				continue
			}
			v := c.Fresh()
			c.env.Extend(fd.Name, v)
			delete(c.builtins, fd.Name)
			preBound[fd.Name] = v
			c.lexicon = append(c.lexicon, fd.Name)
		}
	}

	tmod := &tast.Module{Name: mod.Name}
	for _, d := range mod.Decls {
		switch decl := d.(type) {
		case *ast.DefnDecl:
			pre, ok := preBound[decl.Name]
			if !ok {
				continue
			}
			if fd := c.elaborateDefn(decl, pre); fd != nil {
				tmod.Funcs = append(tmod.Funcs, fd)
			}
		case *ast.ExprDecl:
			if node, _ := c.infer(decl.Expr); node != nil {
				tmod.Exprs = append(tmod.Exprs, node)
			}
			c.flushPending(false)
		}
	}

	c.elaborateProcessBodies(mod.Decls, tmod)

	c.flushPending(true)
	c.resolvePendingSends()

	return &Result{
		Module:      tmod,
		Interface:   c.extractInterface(mod),
		Diagnostics: c.diags,
	}
}

func (c *Context) elaborateDefn(d *ast.DefnDecl, pre typesystem.TVar) *tast.FuncDef {
	if len(d.Body) == 0 {
		return nil
	}
	fnExpr := &ast.Fn{Token: d.Token, Params: d.Params, Body: d.Body}
	node, t := c.inferFn(fnExpr)
	fn, ok := node.(*tast.Fn)
	if !ok {
		return nil
	}

	c.Unify(pre, t, diagnostics.ErrE004, d.NameTok)
	c.flushPending(false)

	// Mask the recursive monotype binding so it does not pin the
	// function's own variables during generalization.
	c.env.Extend(d.Name, typesystem.UnitType)
	scheme := c.Generalize(t)
	c.env.Extend(d.Name, scheme)

	return &tast.FuncDef{
		Name:   d.Name,
		Tok:    d.NameTok,
		Params: fn.Params,
		Body:   fn.Body,
		Scheme: scheme,
	}
}

func (c *Context) admitProcessHeaders(decls []ast.Decl) {
	for _, d := range decls {
		pd, ok := d.(*ast.ProcessDecl)
		if !ok {
			continue
		}
		if _, dup := c.processes[pd.Name]; dup {
			c.errorf(diagnostics.ErrE103, pd.NameTok, "process "+pd.Name+" is already declared")
			continue
		}
		var tags []string
		seen := make(map[string]bool)
		for _, h := range pd.Handlers {
			if seen[h.Tag] {
				c.warnf(diagnostics.ErrE021, h.Token, "duplicate handler for :"+h.Tag)
				continue
			}
			seen[h.Tag] = true
			tags = append(tags, h.Tag)
		}
		c.processes[pd.Name] = &ProcessInfo{
			Name:      pd.Name,
			StateType: c.Fresh(),
			Tags:      tags,
			Tok:       pd.NameTok,
		}
		c.lexicon = append(c.lexicon, pd.Name)
	}
}

// elaborateProcessBodies runs after functions so that initial states
// and handlers can use everything the module defines. Each handler is
// elaborated with `state` in scope and must produce the next state.
func (c *Context) elaborateProcessBodies(decls []ast.Decl, tmod *tast.Module) {
	for _, d := range decls {
		pd, ok := d.(*ast.ProcessDecl)
		if !ok {
			continue
		}
		proc, ok := c.processes[pd.Name]
		if !ok || pd.Init == nil {
			continue
		}

		init, initT := c.infer(pd.Init)
		if init == nil {
			continue
		}
		c.Unify(initT, proc.StateType, diagnostics.ErrE001, init.GetToken())

		def := &tast.ProcessDef{
			Name: pd.Name,
			Tok:  pd.NameTok,
			Init: init,
		}
		seen := make(map[string]bool)
		for _, h := range pd.Handlers {
			if seen[h.Tag] {
				continue
			}
			seen[h.Tag] = true
			c.env.Push()
			c.env.Extend("state", c.Apply(proc.StateType))
			c.env.MarkLocal("state")
			body, bodyT := c.infer(h.Body)
			c.env.Pop()
			if body == nil {
				continue
			}
			// A handler returns the next state.
			c.Unify(bodyT, proc.StateType, diagnostics.ErrE004, body.GetToken())
			def.Handlers = append(def.Handlers, tast.Handler{Tag: h.Tag, Body: body})
		}
		def.StateType = c.Apply(proc.StateType)
		proc.StateType = def.StateType
		tmod.Processes = append(tmod.Processes, def)
		c.flushPending(false)
	}
}

// loadImports re-hydrates the environment from dependency interfaces.
// Imported names are reachable qualified as alias/name.
func (c *Context) loadImports(mod *ast.Module, imports map[string]*iface.Interface) {
	for _, imp := range mod.Imports {
		ifc, ok := imports[imp.Module]
		if !ok || ifc == nil {
			c.errorf(diagnostics.ErrE100, imp.Token, "cannot resolve import "+imp.Module)
			continue
		}
		alias := imp.Alias
		if alias == "" {
			alias = imp.Module
		}

		for _, f := range ifc.Funcs {
			c.env.Extend(alias+"/"+f.Name, f.Scheme)
			c.lexicon = append(c.lexicon, alias+"/"+f.Name)
		}

		for _, t := range ifc.Types {
			if _, dup := c.types[t.Name]; dup {
				continue
			}
			def := &TypeDef{
				Name:     t.Name,
				Params:   t.Params,
				ParamIDs: t.ParamIDs,
				IsSum:    t.IsSum,
				Tok:      imp.Token,
			}
			for _, v := range t.Variants {
				def.Variants = append(def.Variants, VariantDef{Ctor: v.Ctor, Fields: v.Fields})
			}
			def.RecFields = t.Fields
			c.types[t.Name] = def
			c.registerImportedCtors(def)
		}

		for _, cl := range ifc.Classes {
			if _, dup := c.classes.Class(cl.Name); dup {
				continue
			}
			ci := &ClassInfo{Name: cl.Name, TyVar: cl.TyVar, Tok: imp.Token}
			for _, m := range cl.Methods {
				ci.Methods = append(ci.Methods, &MethodInfo{
					Name:       m.Name,
					Sig:        m.Sig,
					HasDefault: m.HasDefault,
					Tok:        imp.Token,
				})
				c.lexicon = append(c.lexicon, m.Name)
			}
			c.classes.Add(ci)
		}

		for _, inst := range ifc.Instances {
			info := &InstanceInfo{
				Class:    inst.Class,
				Head:     inst.Head,
				HeadArgs: inst.HeadArgs,
				Derived:  inst.Derived,
				Tok:      imp.Token,
			}
			for _, con := range inst.Constraints {
				info.Constraints = append(info.Constraints, Constraint{Class: con.Class, Var: con.Var})
			}
			c.instances.Add(info)
		}

		for _, p := range ifc.Processes {
			if _, dup := c.processes[p.Name]; dup {
				continue
			}
			c.processes[p.Name] = &ProcessInfo{
				Name:      p.Name,
				StateType: p.StateType,
				Tags:      p.Tags,
				Tok:       imp.Token,
			}
			c.lexicon = append(c.lexicon, p.Name)
		}
	}
}

func (c *Context) registerImportedCtors(def *TypeDef) {
	if !def.IsSum {
		if _, dup := c.ctors[def.Name]; dup {
			return
		}
		rec, ok := c.recordType(def).(typesystem.TRecord)
		if !ok {
			return
		}
		fields := make([]typesystem.Type, len(rec.Fields))
		for i, f := range rec.Fields {
			fields[i] = f.Type
		}
		c.env.Extend(def.Name, typesystem.TFunc{Params: fields, Return: rec})
		c.ctors[def.Name] = def.Name
		return
	}

	paramVars := make([]typesystem.Type, len(def.ParamIDs))
	for i, id := range def.ParamIDs {
		paramVars[i] = typesystem.TVar{ID: id}
	}
	result := typesystem.TSum{Name: def.Name, Args: paramVars}
	for _, v := range def.Variants {
		if _, dup := c.ctors[v.Ctor]; dup {
			continue
		}
		ctorType := typesystem.TFunc{Params: v.Fields, Return: result}
		var scheme typesystem.Type = ctorType
		if len(def.ParamIDs) > 0 {
			scheme = typesystem.TScheme{Bound: def.ParamIDs, Body: ctorType}
		}
		c.env.Extend(v.Ctor, scheme)
		c.ctors[v.Ctor] = def.Name
		c.lexicon = append(c.lexicon, v.Ctor)
	}
}

// extractInterface collects the module's exported surface.
func (c *Context) extractInterface(mod *ast.Module) *iface.Interface {
	ifc := &iface.Interface{Module: mod.Name}

	seen := make(map[string]bool)
	for _, d := range mod.Decls {
		switch decl := d.(type) {
		case *ast.DefnDecl:
			if seen[decl.Name] {
				continue
			}
			seen[decl.Name] = true
			if scheme, ok := c.env.Lookup(decl.Name); ok {
				ifc.Funcs = append(ifc.Funcs, iface.FuncSig{Name: decl.Name, Scheme: c.Apply(scheme)})
			}
		case *ast.DeftypeDecl:
			if def, ok := c.types[decl.Name]; ok && def.IsSum {
				td := iface.TypeDecl{
					Name:     def.Name,
					Params:   def.Params,
					ParamIDs: def.ParamIDs,
					IsSum:    true,
				}
				for _, v := range def.Variants {
					td.Variants = append(td.Variants, iface.VariantSig{Ctor: v.Ctor, Fields: v.Fields})
				}
				ifc.Types = append(ifc.Types, td)
			}
		case *ast.DefrecordDecl:
			if def, ok := c.types[decl.Name]; ok && !def.IsSum {
				ifc.Types = append(ifc.Types, iface.TypeDecl{
					Name:   def.Name,
					Fields: def.RecFields,
				})
			}
		case *ast.DefclassDecl:
			if ci, ok := c.classes.Class(decl.Name); ok {
				cd := iface.ClassDecl{Name: ci.Name, TyVar: ci.TyVar}
				for _, m := range ci.Methods {
					cd.Methods = append(cd.Methods, iface.MethodSig{
						Name:       m.Name,
						Sig:        m.Sig,
						HasDefault: m.HasDefault,
					})
				}
				ifc.Classes = append(ifc.Classes, cd)
			}
		case *ast.ProcessDecl:
			if proc, ok := c.processes[decl.Name]; ok && proc.Tok == decl.NameTok {
				ifc.Processes = append(ifc.Processes, iface.ProcessDecl{
					Name:      proc.Name,
					StateType: c.Apply(proc.StateType),
					Tags:      proc.Tags,
				})
			}
		}
	}

	for _, inst := range c.localInstances {
		decl := iface.InstanceDecl{
			Class:    inst.Class,
			Head:     inst.Head,
			HeadArgs: inst.HeadArgs,
			Derived:  inst.Derived,
		}
		for _, con := range inst.Constraints {
			decl.Constraints = append(decl.Constraints, iface.ConstraintSig{Class: con.Class, Var: con.Var})
		}
		ifc.Instances = append(ifc.Instances, decl)
	}

	ifc.Normalize()
	return ifc
}
