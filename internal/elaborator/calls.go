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

func isArithOp(name string) bool {
	switch name {
	case "+", "-", "*", "/":
		return true
	}
	return false
}

func isCompareOp(name string) bool {
	switch name {
	case "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (c *Context) inferCall(n *ast.Call) (tast.Node, typesystem.Type) {
	if sym, ok := n.Fn.(*ast.Symbol); ok {
		switch {
		case isArithOp(sym.Name) || isCompareOp(sym.Name):
			return c.inferNumOp(n, sym)
		case sym.Name == config.StrFuncName:
			return c.inferStr(n, sym)
		}

		if _, bound := c.env.Lookup(sym.Name); !bound {
			if ci, ok := c.classes.MethodClass(sym.Name); ok {
				return c.inferClassCall(n, sym, ci)
			}
		}

		if typeName, isCtor := c.ctors[sym.Name]; isCtor {
			return c.inferCtorCall(n, sym, typeName)
		}

		if scheme, ok := c.env.Lookup(sym.Name); ok {
			return c.applyCallee(n, sym, scheme)
		}

		d := c.errorf(diagnostics.ErrE101, sym.Token, "unknown function "+sym.Name)
		if s, ok := diagnostics.Suggest(sym.Name, c.lexicon); ok {
			d.WithHint("did you mean " + s + "?")
		}
		// Still elaborate the arguments to surface their errors.
		for _, a := range n.Args {
			c.infer(a)
		}
		return c.recoverNode(n.Token)
	}

	// Computed callee.
	fnNode, fnT := c.infer(n.Fn)
	if fnNode == nil {
		return c.recoverNode(n.Token)
	}
	return c.applyComputed(n, fnNode, fnT)
}

// applyCallee applies a named function: instantiate its scheme, check
// arity, unify the arguments.
func (c *Context) applyCallee(n *ast.Call, sym *ast.Symbol, scheme typesystem.Type) (tast.Node, typesystem.Type) {
	t := c.Instantiate(scheme)
	fnNode := &tast.VarRef{Tok: sym.Token, Name: sym.Name, Local: c.env.IsLocal(sym.Name), Ty: t}
	return c.applyComputed(n, fnNode, t)
}

func (c *Context) applyComputed(n *ast.Call, fnNode tast.Node, fnT typesystem.Type) (tast.Node, typesystem.Type) {
	applied := c.Apply(fnT)

	if fn, ok := applied.(typesystem.TFunc); ok {
		if len(fn.Params) != len(n.Args) {
			c.errorf(diagnostics.ErrE005, n.Token,
				fmt.Sprintf("%s expects %d arguments, got %d", calleeName(fnNode), len(fn.Params), len(n.Args)))
			for _, a := range n.Args {
				c.infer(a)
			}
			return c.recoverNode(n.Token)
		}
		args := c.unifyArgs(n, fn.Params)
		result := c.Apply(fn.Return)
		return c.finishCall(n, fnNode, args, result)
	}

	if _, isVar := applied.(typesystem.TVar); isVar {
		// Unify the callee with a fresh function skeleton.
		params := make([]typesystem.Type, len(n.Args))
		for i := range params {
			params[i] = c.Fresh()
		}
		ret := c.Fresh()
		skeleton := typesystem.TFunc{Params: params, Return: ret}
		if !c.Unify(applied, skeleton, diagnostics.ErrE009, tokOf(fnNode, n.Token)) {
			return c.recoverNode(n.Token)
		}
		args := c.unifyArgs(n, params)
		result := c.Apply(ret)
		return c.finishCall(n, fnNode, args, result)
	}

	if !isAnyType(applied) {
		c.errorf(diagnostics.ErrE009, tokOf(fnNode, n.Token),
			typesystem.PrintType(applied)+" is not a function")
	}
	for _, a := range n.Args {
		c.infer(a)
	}
	return c.recoverNode(n.Token)
}

func (c *Context) finishCall(n *ast.Call, fnNode tast.Node, args []tast.Node, result typesystem.Type) (tast.Node, typesystem.Type) {
	if ref, ok := fnNode.(*tast.VarRef); ok && c.builtins[ref.Name] && !c.env.IsLocal(ref.Name) {
		return &tast.BuiltinCall{Tok: n.Token, Name: ref.Name, Args: args, Ty: result}, result
	}
	return &tast.Call{Tok: n.Token, Fn: fnNode, Args: args, Ty: result}, result
}

// unifyArgs infers each argument against its expected parameter type,
// choosing the most specific diagnostic for failures.
func (c *Context) unifyArgs(n *ast.Call, params []typesystem.Type) []tast.Node {
	var args []tast.Node
	for i, a := range n.Args {
		node, t := c.infer(a)
		if node == nil {
			continue
		}
		args = append(args, node)

		expected := c.Apply(params[i])
		actual := c.Apply(t)

		if ef, ok := expected.(typesystem.TFunc); ok {
			if af, ok := actual.(typesystem.TFunc); ok && len(ef.Params) != len(af.Params) {
				c.errorf(diagnostics.ErrE010, node.GetToken(),
					fmt.Sprintf("function argument takes %d parameters, expected %d", len(af.Params), len(ef.Params)))
				continue
			}
		}
		code := diagnostics.ErrE001
		if _, wantList := expected.(typesystem.TList); wantList && !isListLike(actual) {
			code = diagnostics.ErrE008
		}
		c.Unify(t, params[i], code, node.GetToken())
	}
	return args
}

func isListLike(t typesystem.Type) bool {
	switch t.(type) {
	case typesystem.TList, typesystem.TVar:
		return true
	case typesystem.TCon:
		return isAnyType(t)
	}
	return false
}

func calleeName(fn tast.Node) string {
	if ref, ok := fn.(*tast.VarRef); ok {
		return ref.Name
	}
	return "function"
}

func isAnyType(t typesystem.Type) bool {
	con, ok := t.(typesystem.TCon)
	return ok && con.Name == typesystem.AnyType.Name
}

// numericKind classifies an operand of a numeric operator. Free
// variables default to Int; anything non-numeric is an invalid
// operand.
func (c *Context) numericKind(t typesystem.Type, tok token.Token) (isFloat bool) {
	applied := c.Apply(t)
	switch v := applied.(type) {
	case typesystem.TCon:
		switch v.Name {
		case "Int":
			return false
		case "Float":
			return true
		case "Any":
			return false
		}
	case typesystem.TVar:
		c.Unify(applied, typesystem.IntType, diagnostics.ErrE006, tok)
		return false
	}
	c.errorf(diagnostics.ErrE006, tok,
		typesystem.PrintType(applied)+" is not a valid numeric operand")
	return false
}

// inferNumOp handles + - * / and the comparison operators. The single
// implicit coercion of the language happens here: a mixed Int/Float
// operand pair widens to Float.
func (c *Context) inferNumOp(n *ast.Call, sym *ast.Symbol) (tast.Node, typesystem.Type) {
	if len(n.Args) != 2 {
		c.errorf(diagnostics.ErrE005, n.Token,
			fmt.Sprintf("operator %s expects 2 operands, got %d", sym.Name, len(n.Args)))
		for _, a := range n.Args {
			c.infer(a)
		}
		return c.recoverNode(n.Token)
	}

	left, leftT := c.infer(n.Args[0])
	right, rightT := c.infer(n.Args[1])
	if left == nil || right == nil {
		return c.recoverNode(n.Token)
	}

	leftFloat := c.numericKind(leftT, left.GetToken())
	rightFloat := c.numericKind(rightT, right.GetToken())
	widen := leftFloat != rightFloat

	var result typesystem.Type
	switch {
	case isCompareOp(sym.Name):
		result = typesystem.BoolType
	case sym.Name == "/":
		result = typesystem.FloatType
	case leftFloat || rightFloat:
		result = typesystem.FloatType
	default:
		result = typesystem.IntType
	}

	node := &tast.NumOp{Tok: sym.Token, Op: sym.Name, Left: left, Right: right, Widen: widen, Ty: result}
	return node, result
}

// inferStr handles the variadic str builtin: every argument must be a
// String, the result is a String.
func (c *Context) inferStr(n *ast.Call, sym *ast.Symbol) (tast.Node, typesystem.Type) {
	var args []tast.Node
	for _, a := range n.Args {
		node, t := c.infer(a)
		if node == nil {
			continue
		}
		args = append(args, node)
		c.Unify(t, typesystem.StringType, diagnostics.ErrE001, node.GetToken())
	}
	node := &tast.BuiltinCall{Tok: sym.Token, Name: config.StrFuncName, Args: args, Ty: typesystem.StringType}
	return node, typesystem.StringType
}

func (c *Context) inferCtorCall(n *ast.Call, sym *ast.Symbol, typeName string) (tast.Node, typesystem.Type) {
	scheme, ok := c.env.Lookup(sym.Name)
	if !ok {
		return c.recoverNode(n.Token)
	}
	fn, ok := c.Instantiate(scheme).(typesystem.TFunc)
	if !ok {
		return c.recoverNode(n.Token)
	}
	if len(fn.Params) != len(n.Args) {
		c.errorf(diagnostics.ErrE005, n.Token,
			fmt.Sprintf("constructor %s expects %d arguments, got %d", sym.Name, len(fn.Params), len(n.Args)))
		for _, a := range n.Args {
			c.infer(a)
		}
		return c.recoverNode(n.Token)
	}
	args := c.unifyArgs(n, fn.Params)
	result := c.Apply(fn.Return)
	node := &tast.CtorCall{Tok: sym.Token, TypeName: typeName, Ctor: sym.Name, Args: args, Ty: result}
	return node, result
}

// inferClassCall builds a ClassCall node for a class-method
// invocation. The head placeholder is a fresh variable unified with
// the dispatching argument; resolution happens immediately if the head
// is already concrete, otherwise the call is deferred.
func (c *Context) inferClassCall(n *ast.Call, sym *ast.Symbol, ci *ClassInfo) (tast.Node, typesystem.Type) {
	mi, _ := ci.Method(sym.Name)

	headVar := c.Fresh()
	sig := c.methodSig(mi, headVar)

	if len(sig.Params) != len(n.Args) {
		c.errorf(diagnostics.ErrE005, n.Token,
			fmt.Sprintf("method %s expects %d arguments, got %d", sym.Name, len(sig.Params), len(n.Args)))
		for _, a := range n.Args {
			c.infer(a)
		}
		return c.recoverNode(n.Token)
	}

	args := c.unifyArgs(n, sig.Params)
	result := c.Apply(sig.Return)

	call := &tast.ClassCall{
		Tok:      sym.Token,
		Class:    ci.Name,
		Method:   sym.Name,
		HeadType: headVar,
		Args:     args,
		Ty:       result,
	}

	if !c.resolveClassCall(call, nil) {
		c.pending = append(c.pending, &pendingConstraint{
			class:  ci.Name,
			method: sym.Name,
			node:   call,
			tok:    sym.Token,
		})
	}
	return call, result
}
