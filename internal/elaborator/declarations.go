package elaborator

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// tvScope resolves type-variable names while converting surface type
// expressions. self, when non-empty, is the class type variable and
// maps to selfVarID.
type tvScope struct {
	vars     map[string]typesystem.Type
	order    []string // introduction order, for deterministic binder lists
	allowNew bool
	self     string
}

func newTVScope(allowNew bool) *tvScope {
	return &tvScope{vars: make(map[string]typesystem.Type), allowNew: allowNew}
}

func isUpperName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// convertTypeExpr turns a surface type annotation into a type term.
// Unknown names produce E102 and recover with Any.
func (c *Context) convertTypeExpr(te ast.TypeExpr, sc *tvScope) typesystem.Type {
	switch t := te.(type) {
	case *ast.TESym:
		switch t.Name {
		case "Int":
			return typesystem.IntType
		case "Float":
			return typesystem.FloatType
		case "Bool":
			return typesystem.BoolType
		case "String":
			return typesystem.StringType
		case "Atom":
			return typesystem.AtomType
		case "Unit":
			return typesystem.UnitType
		case "Any":
			return typesystem.AnyType
		case "Pid":
			return typesystem.PidType
		}
		if isUpperName(t.Name) {
			def, ok := c.types[t.Name]
			if !ok {
				c.errorf(diagnostics.ErrE102, t.Token, "unknown type "+t.Name)
				return typesystem.AnyType
			}
			if def.IsSum {
				args := make([]typesystem.Type, len(def.Params))
				for i := range def.Params {
					args[i] = c.Fresh()
				}
				return typesystem.TSum{Name: def.Name, Args: args}
			}
			return c.recordType(def)
		}
		// Lowercase: a type variable.
		if sc.self != "" && t.Name == sc.self {
			return typesystem.TVar{ID: selfVarID}
		}
		if v, ok := sc.vars[t.Name]; ok {
			return v
		}
		if sc.allowNew {
			v := c.Fresh()
			sc.vars[t.Name] = v
			sc.order = append(sc.order, t.Name)
			return v
		}
		c.errorf(diagnostics.ErrE102, t.Token, "unknown type variable "+t.Name)
		return typesystem.AnyType

	case *ast.TEList:
		return typesystem.TList{Elem: c.convertTypeExpr(t.Elem, sc)}

	case *ast.TETuple:
		elems := make([]typesystem.Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = c.convertTypeExpr(e, sc)
		}
		return typesystem.TTuple{Elements: elems}

	case *ast.TEFn:
		params := make([]typesystem.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.convertTypeExpr(p, sc)
		}
		return typesystem.TFunc{Params: params, Return: c.convertTypeExpr(t.Return, sc)}

	case *ast.TEPid:
		proc, ok := c.processes[t.Process]
		if !ok {
			c.errorf(diagnostics.ErrE103, t.Token, "unknown process "+t.Process)
			return typesystem.PidType
		}
		return typesystem.TPid{Process: proc.Name, Tags: proc.Tags}

	case *ast.TEApp:
		def, ok := c.types[t.Name]
		if !ok {
			c.errorf(diagnostics.ErrE102, t.Token, "unknown type "+t.Name)
			return typesystem.AnyType
		}
		if !def.IsSum {
			c.errorf(diagnostics.ErrE102, t.Token, "record type "+t.Name+" takes no type arguments")
			return c.recordType(def)
		}
		if len(t.Args) != len(def.Params) {
			c.errorf(diagnostics.ErrE102, t.Token,
				fmt.Sprintf("type %s expects %d arguments, got %d", t.Name, len(def.Params), len(t.Args)))
			return typesystem.AnyType
		}
		args := make([]typesystem.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.convertTypeExpr(a, sc)
		}
		return typesystem.TSum{Name: def.Name, Args: args}
	}
	return typesystem.AnyType
}

// recordType builds the nominal record type of an admitted defrecord.
func (c *Context) recordType(def *TypeDef) typesystem.Type {
	if def.IsSum {
		return typesystem.TSum{Name: def.Name}
	}
	fields := make([]typesystem.Field, len(def.RecFields))
	copy(fields, def.RecFields)
	return typesystem.TRecord{Name: def.Name, Fields: fields}
}

// variantFieldTypes instantiates the field types of one constructor of
// an applied sum type.
func (c *Context) variantFieldTypes(sum typesystem.TSum, ctor string) ([]typesystem.Type, bool) {
	def, ok := c.types[sum.Name]
	if !ok || !def.IsSum {
		return nil, false
	}
	var variant *VariantDef
	for i := range def.Variants {
		if def.Variants[i].Ctor == ctor {
			variant = &def.Variants[i]
			break
		}
	}
	if variant == nil {
		return nil, false
	}
	s := make(typesystem.Subst, len(def.ParamIDs))
	for i, id := range def.ParamIDs {
		if i < len(sum.Args) {
			s[id] = sum.Args[i]
		} else {
			s[id] = c.Fresh()
		}
	}
	out := make([]typesystem.Type, len(variant.Fields))
	for i, f := range variant.Fields {
		out[i] = f.Apply(s)
	}
	return out, true
}

// sumVariants lists the constructors of an admitted sum type.
func (c *Context) sumVariants(name string) []VariantDef {
	def, ok := c.types[name]
	if !ok || !def.IsSum {
		return nil
	}
	return def.Variants
}

// collectSumParams gathers the lowercase type-variable names used by a
// deftype's variants, in first-appearance order.
func collectSumParams(d *ast.DeftypeDecl) []string {
	seen := make(map[string]bool)
	var params []string
	var walk func(te ast.TypeExpr)
	walk = func(te ast.TypeExpr) {
		switch t := te.(type) {
		case *ast.TESym:
			if !isUpperName(t.Name) && !isBuiltinTypeName(t.Name) && !seen[t.Name] {
				seen[t.Name] = true
				params = append(params, t.Name)
			}
		case *ast.TEList:
			walk(t.Elem)
		case *ast.TETuple:
			for _, e := range t.Elems {
				walk(e)
			}
		case *ast.TEFn:
			for _, e := range t.Params {
				walk(e)
			}
			walk(t.Return)
		case *ast.TEApp:
			for _, e := range t.Args {
				walk(e)
			}
		}
	}
	for _, v := range d.Variants {
		for _, f := range v.Fields {
			walk(f)
		}
	}
	return params
}

func isBuiltinTypeName(name string) bool {
	switch name {
	case "Int", "Float", "Bool", "String", "Atom", "Unit", "Any", "Pid":
		return true
	}
	return false
}

// admitTypeHeaders registers every declared type name first, so that
// bodies may reference each other; field checking happens afterwards
// in admitTypeBodies.
func (c *Context) admitTypeHeaders(decls []ast.Decl) {
	for _, d := range decls {
		switch t := d.(type) {
		case *ast.DeftypeDecl:
			if _, dup := c.types[t.Name]; dup {
				c.errorf(diagnostics.ErrE102, t.NameTok, "type "+t.Name+" is already declared")
				continue
			}
			params := collectSumParams(t)
			ids := make([]typesystem.VarID, len(params))
			for i := range params {
				ids[i] = c.Fresh().ID
			}
			c.types[t.Name] = &TypeDef{
				Name:     t.Name,
				Params:   params,
				ParamIDs: ids,
				IsSum:    true,
				Tok:      t.NameTok,
			}
			c.lexicon = append(c.lexicon, t.Name)
		case *ast.DefrecordDecl:
			if _, dup := c.types[t.Name]; dup {
				c.errorf(diagnostics.ErrE102, t.NameTok, "type "+t.Name+" is already declared")
				continue
			}
			c.types[t.Name] = &TypeDef{Name: t.Name, Tok: t.NameTok}
			c.lexicon = append(c.lexicon, t.Name)
		}
	}
}

// admitTypeBodies converts field types (every name is in scope now),
// registers constructors and synthesizes derived instances.
func (c *Context) admitTypeBodies(decls []ast.Decl) {
	for _, d := range decls {
		switch t := d.(type) {
		case *ast.DeftypeDecl:
			def, ok := c.types[t.Name]
			if !ok || !def.IsSum || len(def.Variants) > 0 {
				continue // duplicate declaration, already reported
			}
			c.admitSumBody(def, t)
			for _, ref := range t.Deriving {
				c.deriveInstance(ref, def)
			}
		case *ast.DefrecordDecl:
			def, ok := c.types[t.Name]
			if !ok || def.IsSum || len(def.RecFields) > 0 {
				continue
			}
			c.admitRecordBody(def, t)
			for _, ref := range t.Deriving {
				c.deriveInstance(ref, def)
			}
		}
	}
}

func (c *Context) admitSumBody(def *TypeDef, d *ast.DeftypeDecl) {
	sc := newTVScope(false)
	paramVars := make([]typesystem.Type, len(def.Params))
	for i, p := range def.Params {
		v := typesystem.TVar{ID: def.ParamIDs[i]}
		sc.vars[p] = v
		paramVars[i] = v
	}
	result := typesystem.TSum{Name: def.Name, Args: paramVars}

	for _, variant := range d.Variants {
		if owner, dup := c.ctors[variant.Ctor]; dup {
			c.errorf(diagnostics.ErrE102, variant.Token,
				"constructor "+variant.Ctor+" is already declared by type "+owner)
			continue
		}
		fields := make([]typesystem.Type, len(variant.Fields))
		for i, f := range variant.Fields {
			fields[i] = c.convertTypeExpr(f, sc)
		}
		def.Variants = append(def.Variants, VariantDef{Ctor: variant.Ctor, Fields: fields})

		ctorType := typesystem.TFunc{Params: fields, Return: result}
		var scheme typesystem.Type = ctorType
		if len(def.ParamIDs) > 0 {
			scheme = typesystem.TScheme{Bound: def.ParamIDs, Body: ctorType}
		}
		c.env.Extend(variant.Ctor, scheme)
		c.ctors[variant.Ctor] = def.Name
		c.lexicon = append(c.lexicon, variant.Ctor)
	}
}

func (c *Context) admitRecordBody(def *TypeDef, d *ast.DefrecordDecl) {
	sc := newTVScope(false)
	seen := make(map[string]bool)
	for _, f := range d.Fields {
		if seen[f.Name] {
			c.errorf(diagnostics.ErrE102, f.Token, "record "+def.Name+" declares field "+f.Name+" twice")
			continue
		}
		seen[f.Name] = true
		ft := c.convertTypeExpr(f.Type, sc)
		// A record directly containing itself could never be built.
		if inner, ok := ft.(typesystem.TRecord); ok && inner.Name == def.Name {
			c.errorf(diagnostics.ErrE102, f.Token,
				"record "+def.Name+" cannot contain itself; introduce a sum type for the recursion")
			ft = typesystem.AnyType
		}
		def.RecFields = append(def.RecFields, typesystem.Field{Label: f.Name, Type: ft})
	}

	if _, dup := c.ctors[def.Name]; dup {
		c.errorf(diagnostics.ErrE102, d.NameTok, "constructor "+def.Name+" is already declared")
		return
	}
	rec := c.recordType(def).(typesystem.TRecord)
	fields := make([]typesystem.Type, len(rec.Fields))
	for i, f := range rec.Fields {
		fields[i] = f.Type
	}
	c.env.Extend(def.Name, typesystem.TFunc{Params: fields, Return: rec})
	c.ctors[def.Name] = def.Name
	c.lexicon = append(c.lexicon, def.Name)
}

// deriveInstance synthesizes an instance named in a deriving vector.
// Eq derives structural equality for any ADT; Show derives the variant
// name for all-nullary sums only.
func (c *Context) deriveInstance(ref ast.DerivingRef, def *TypeDef) {
	if _, ok := c.classes.Class(ref.Class); !ok {
		c.errorf(diagnostics.ErrE030, ref.Token, "cannot derive unknown class "+ref.Class)
		return
	}

	switch ref.Class {
	case "Eq":
		// structural equality works for every ADT
	case "Show":
		if !def.IsSum {
			c.errorf(diagnostics.ErrE030, ref.Token,
				"cannot derive Show for record "+def.Name+"; write a manual instance").
				WithHint("(instance Show " + def.Name + " (show [x] ...))")
			return
		}
		for _, v := range def.Variants {
			if len(v.Fields) > 0 {
				c.errorf(diagnostics.ErrE030, ref.Token,
					fmt.Sprintf("cannot derive Show for %s: variant %s has fields; write a manual instance", def.Name, v.Ctor)).
					WithHint("(instance Show " + def.Name + " (show [x] ...))")
				return
			}
		}
	default:
		c.errorf(diagnostics.ErrE030, ref.Token, "class "+ref.Class+" does not support deriving")
		return
	}

	inst := &InstanceInfo{
		Class:    ref.Class,
		Head:     def.Name,
		HeadArgs: def.Params,
		Derived:  true,
		Methods:  make(map[string]*tast.Fn),
		Tok:      ref.Token,
	}
	if ref.Class == "Eq" {
		// A parameterized ADT compares element-wise; its parameters
		// must be comparable too.
		for _, p := range def.Params {
			inst.Constraints = append(inst.Constraints, Constraint{Class: "Eq", Var: p})
		}
	}
	if !c.instances.Add(inst) {
		c.errorf(diagnostics.ErrE031, ref.Token,
			fmt.Sprintf("duplicate instance %s %s", ref.Class, def.Name))
		return
	}
	c.localInstances = append(c.localInstances, inst)
}
