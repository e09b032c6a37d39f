package elaborator

import (
	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/config"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// installBuiltins seeds the module environment with the builtin
// function schemes.
func (c *Context) installBuiltins() {
	bind := func(name string, t typesystem.Type) {
		c.env.Extend(name, t)
		c.builtins[name] = true
	}
	fn := func(params []typesystem.Type, ret typesystem.Type) typesystem.TFunc {
		return typesystem.TFunc{Params: params, Return: ret}
	}
	forall := func(vars []typesystem.TVar, body typesystem.TFunc) typesystem.TScheme {
		bound := make([]typesystem.VarID, len(vars))
		for i, v := range vars {
			bound[i] = v.ID
		}
		return typesystem.TScheme{Bound: bound, Body: body}
	}

	{
		a := c.Fresh()
		bind(config.PrintFuncName, forall([]typesystem.TVar{a}, fn([]typesystem.Type{a}, typesystem.UnitType)))
	}
	bind(config.NotFuncName, fn([]typesystem.Type{typesystem.BoolType}, typesystem.BoolType))
	bind(config.StrFuncName, fn([]typesystem.Type{typesystem.StringType}, typesystem.StringType))
	{
		a := c.Fresh()
		bind(config.LenFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{typesystem.TList{Elem: a}}, typesystem.IntType)))
	}
	{
		a := c.Fresh()
		bind(config.ConsFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{a, typesystem.TList{Elem: a}}, typesystem.TList{Elem: a})))
	}
	{
		a := c.Fresh()
		bind(config.HeadFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{typesystem.TList{Elem: a}}, a)))
	}
	{
		a := c.Fresh()
		bind(config.TailFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{typesystem.TList{Elem: a}}, typesystem.TList{Elem: a})))
	}
	{
		a := c.Fresh()
		bind(config.EmptyqFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{typesystem.TList{Elem: a}}, typesystem.BoolType)))
	}
	{
		a := c.Fresh()
		bind(config.ConcatFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{typesystem.TList{Elem: a}, typesystem.TList{Elem: a}}, typesystem.TList{Elem: a})))
	}
	{
		a := c.Fresh()
		bind(config.ReverseFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{typesystem.TList{Elem: a}}, typesystem.TList{Elem: a})))
	}
	{
		a, b := c.Fresh(), c.Fresh()
		bind(config.MapFuncName, forall([]typesystem.TVar{a, b},
			fn([]typesystem.Type{fn([]typesystem.Type{a}, b), typesystem.TList{Elem: a}}, typesystem.TList{Elem: b})))
	}
	{
		a := c.Fresh()
		bind(config.FilterFuncName, forall([]typesystem.TVar{a},
			fn([]typesystem.Type{fn([]typesystem.Type{a}, typesystem.BoolType), typesystem.TList{Elem: a}}, typesystem.TList{Elem: a})))
	}
	{
		a, b := c.Fresh(), c.Fresh()
		bind(config.FoldFuncName, forall([]typesystem.TVar{a, b},
			fn([]typesystem.Type{fn([]typesystem.Type{b, a}, b), b, typesystem.TList{Elem: a}}, b)))
	}
	bind(config.SelfFuncName, fn(nil, typesystem.PidType))
	{
		a := c.Fresh()
		bind("=", forall([]typesystem.TVar{a}, fn([]typesystem.Type{a, a}, typesystem.BoolType)))
	}
}

// installBuiltinClasses registers the Eq and Show classes and their
// primitive instances. neq carries the canonical default implemented
// through eq, the way every instance inherits it.
func (c *Context) installBuiltinClasses() {
	selfVar := typesystem.TVar{ID: selfVarID}

	neqDefault := &ast.Fn{
		Params: []ast.Param{{Name: "x"}, {Name: "y"}},
		Body: []ast.Expr{
			&ast.Call{
				Fn: &ast.Symbol{Name: config.NotFuncName},
				Args: []ast.Expr{
					&ast.Call{
						Fn:   &ast.Symbol{Name: "eq"},
						Args: []ast.Expr{&ast.Symbol{Name: "x"}, &ast.Symbol{Name: "y"}},
					},
				},
			},
		},
	}

	eq := &ClassInfo{
		Name:  "Eq",
		TyVar: "a",
		Methods: []*MethodInfo{
			{
				Name: "eq",
				Sig: typesystem.TScheme{Body: typesystem.TFunc{
					Params: []typesystem.Type{selfVar, selfVar},
					Return: typesystem.BoolType,
				}},
			},
			{
				Name: "neq",
				Sig: typesystem.TScheme{Body: typesystem.TFunc{
					Params: []typesystem.Type{selfVar, selfVar},
					Return: typesystem.BoolType,
				}},
				Default:    neqDefault,
				HasDefault: true,
			},
		},
	}
	c.classes.Add(eq)
	c.lexicon = append(c.lexicon, "eq", "neq")

	show := &ClassInfo{
		Name:  "Show",
		TyVar: "a",
		Methods: []*MethodInfo{
			{
				Name: "show",
				Sig: typesystem.TScheme{Body: typesystem.TFunc{
					Params: []typesystem.Type{selfVar},
					Return: typesystem.StringType,
				}},
			},
		},
	}
	c.classes.Add(show)
	c.lexicon = append(c.lexicon, "show")

	for _, prim := range []string{"Int", "Float", "Bool", "String", "Atom", "Unit"} {
		c.instances.Add(&InstanceInfo{Class: "Eq", Head: prim, Derived: true})
	}
	for _, prim := range []string{"Int", "Float", "Bool", "String", "Atom"} {
		c.instances.Add(&InstanceInfo{Class: "Show", Head: prim, Derived: true})
	}
}
