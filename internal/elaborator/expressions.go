package elaborator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/token"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// infer walks one expression, returning its typed node and type. On
// error it records a diagnostic and recovers with Any or a fresh
// variable so elaboration can continue.
func (c *Context) infer(e ast.Expr) (tast.Node, typesystem.Type) {
	switch n := e.(type) {
	case *ast.IntLit:
		return &tast.Lit{Tok: n.Token, Kind: tast.LitInt, IntVal: n.Value, Ty: typesystem.IntType}, typesystem.IntType
	case *ast.FloatLit:
		return &tast.Lit{Tok: n.Token, Kind: tast.LitFloat, FloatVal: n.Value, Ty: typesystem.FloatType}, typesystem.FloatType
	case *ast.BoolLit:
		return &tast.Lit{Tok: n.Token, Kind: tast.LitBool, BoolVal: n.Value, Ty: typesystem.BoolType}, typesystem.BoolType
	case *ast.StringLit:
		return &tast.Lit{Tok: n.Token, Kind: tast.LitString, StrVal: n.Value, Ty: typesystem.StringType}, typesystem.StringType
	case *ast.AtomLit:
		t := typesystem.TAtom{Sym: n.Sym}
		return &tast.Lit{Tok: n.Token, Kind: tast.LitAtom, Sym: n.Sym, Ty: t}, t
	case *ast.UnitLit:
		return &tast.Lit{Tok: n.Token, Kind: tast.LitUnit, Ty: typesystem.UnitType}, typesystem.UnitType
	case *ast.Symbol:
		return c.inferSymbol(n)
	case *ast.ListLit:
		return c.inferListLit(n)
	case *ast.TupleLit:
		return c.inferTupleLit(n)
	case *ast.If:
		return c.inferIf(n)
	case *ast.Let:
		return c.inferLet(n)
	case *ast.Fn:
		return c.inferFn(n)
	case *ast.Call:
		return c.inferCall(n)
	case *ast.Do:
		return c.inferDo(n)
	case *ast.Match:
		return c.inferMatch(n)
	case *ast.FieldAccess:
		return c.inferFieldAccess(n)
	case *ast.Spawn:
		return c.inferSpawn(n)
	case *ast.Send:
		return c.inferSend(n)
	}
	return nil, typesystem.AnyType
}

// inferSymbol resolves a name: an environment binding instantiates its
// scheme; an unbound bare symbol is an atom literal of the universal
// Atom type.
func (c *Context) inferSymbol(n *ast.Symbol) (tast.Node, typesystem.Type) {
	if scheme, ok := c.env.Lookup(n.Name); ok {
		t := c.Instantiate(scheme)
		return &tast.VarRef{Tok: n.Token, Name: n.Name, Local: c.env.IsLocal(n.Name), Ty: t}, t
	}

	if _, isMethod := c.classes.MethodClass(n.Name); isMethod {
		c.errorf(diagnostics.ErrE101, n.Token, "class method "+n.Name+" must be applied to arguments")
		return c.recoverNode(n.Token)
	}

	// Qualified names must resolve; they never fall back to atoms.
	if strings.ContainsRune(n.Name, '/') {
		d := c.errorf(diagnostics.ErrE100, n.Token, "undefined variable "+n.Name)
		if s, ok := diagnostics.Suggest(n.Name, c.lexicon); ok {
			d.WithHint("did you mean " + s + "?")
		}
		return c.recoverNode(n.Token)
	}

	return &tast.Lit{Tok: n.Token, Kind: tast.LitAtom, Sym: n.Name, Ty: typesystem.AtomType}, typesystem.AtomType
}

func (c *Context) recoverNode(tok token.Token) (tast.Node, typesystem.Type) {
	return &tast.Lit{Tok: tok, Kind: tast.LitUnit, Ty: typesystem.AnyType}, typesystem.AnyType
}

func (c *Context) inferListLit(n *ast.ListLit) (tast.Node, typesystem.Type) {
	elem := typesystem.Type(c.Fresh())
	var elems []tast.Node
	for _, e := range n.Elems {
		node, t := c.infer(e)
		if node == nil {
			continue
		}
		elems = append(elems, node)
		if c.UnifySilent(t, elem) {
			continue
		}
		// Lists of distinct atoms widen to (List Atom).
		if typesystem.AtomLike(c.Apply(t)) && typesystem.AtomLike(c.Apply(elem)) {
			elem = typesystem.AtomType
			continue
		}
		p := typesystem.NewPrinter()
		c.errorf(diagnostics.ErrE002, node.GetToken(), "list elements must share one type").
			WithTypes(p.Print(c.Apply(elem)), p.Print(c.Apply(t)))
	}
	ty := typesystem.TList{Elem: c.Apply(elem)}
	return &tast.ListLit{Tok: n.Token, Elems: elems, Ty: ty}, ty
}

func (c *Context) inferTupleLit(n *ast.TupleLit) (tast.Node, typesystem.Type) {
	var elems []tast.Node
	var types []typesystem.Type
	for _, e := range n.Elems {
		node, t := c.infer(e)
		if node == nil {
			continue
		}
		elems = append(elems, node)
		types = append(types, t)
	}
	ty := typesystem.TTuple{Elements: types}
	return &tast.TupleLit{Tok: n.Token, Elems: elems, Ty: ty}, ty
}

func (c *Context) inferIf(n *ast.If) (tast.Node, typesystem.Type) {
	cond, condT := c.infer(n.Cond)
	c.Unify(condT, typesystem.BoolType, diagnostics.ErrE011, tokOf(cond, n.Token))

	thenNode, thenT := c.infer(n.Then)
	elseNode, elseT := c.infer(n.Else)

	result := c.joinBranches(thenT, elseT, diagnostics.ErrE003, tokOf(elseNode, n.Token))
	node := &tast.If{Tok: n.Token, Cond: cond, Then: thenNode, Else: elseNode, Ty: result}
	return node, result
}

// joinBranches unifies two branch types; branches carrying different
// specific atoms join at the universal Atom instead of failing.
func (c *Context) joinBranches(t1, t2 typesystem.Type, code diagnostics.ErrorCode, tok token.Token) typesystem.Type {
	if c.UnifySilent(t1, t2) {
		return c.Apply(t1)
	}
	a, b := c.Apply(t1), c.Apply(t2)
	if typesystem.AtomLike(a) && typesystem.AtomLike(b) {
		return typesystem.AtomType
	}
	p := typesystem.NewPrinter()
	c.errorf(code, tok, "branches produce different types").
		WithTypes(p.Print(a), p.Print(b))
	return typesystem.AnyType
}

func (c *Context) inferLet(n *ast.Let) (tast.Node, typesystem.Type) {
	c.env.Push()
	defer c.env.Pop()

	var bindings []tast.LetBinding
	for _, b := range n.Bindings {
		value, t := c.infer(b.Value)
		scheme := c.Generalize(t)
		c.env.Extend(b.Name, scheme)
		bindings = append(bindings, tast.LetBinding{Name: b.Name, Value: value, Scheme: scheme})
	}

	var body []tast.Node
	var result typesystem.Type = typesystem.UnitType
	for _, e := range n.Body {
		node, t := c.infer(e)
		if node != nil {
			body = append(body, node)
			result = t
		}
	}
	result = c.Apply(result)
	return &tast.Let{Tok: n.Token, Bindings: bindings, Body: body, Ty: result}, result
}

func (c *Context) inferFn(n *ast.Fn) (tast.Node, typesystem.Type) {
	c.env.Push()
	defer c.env.Pop()

	params := make([]typesystem.Type, len(n.Params))
	names := make([]string, len(n.Params))
	for i, p := range n.Params {
		v := c.Fresh()
		params[i] = v
		names[i] = p.Name
		c.env.Extend(p.Name, v)
		c.env.MarkLocal(p.Name)
	}

	var body []tast.Node
	var ret typesystem.Type = typesystem.UnitType
	for _, e := range n.Body {
		node, t := c.infer(e)
		if node != nil {
			body = append(body, node)
			ret = t
		}
	}

	ty := c.Apply(typesystem.TFunc{Params: params, Return: ret})
	return &tast.Fn{Tok: n.Token, Params: names, Body: body, Ty: ty}, ty
}

func (c *Context) inferDo(n *ast.Do) (tast.Node, typesystem.Type) {
	var exprs []tast.Node
	var result typesystem.Type = typesystem.UnitType
	for _, e := range n.Exprs {
		node, t := c.infer(e)
		if node != nil {
			exprs = append(exprs, node)
			result = t
		}
	}
	result = c.Apply(result)
	return &tast.Do{Tok: n.Token, Exprs: exprs, Ty: result}, result
}

func (c *Context) inferFieldAccess(n *ast.FieldAccess) (tast.Node, typesystem.Type) {
	target, targetT := c.infer(n.Target)
	if target == nil {
		return c.recoverNode(n.Token)
	}

	// The field variable is derived from the record variable so that
	// repeated accesses of the same field share one type. The raw
	// (un-applied) variable identifies the record even after earlier
	// accesses bound it to a row.
	var fieldVar typesystem.TVar
	if tv, ok := targetT.(typesystem.TVar); ok {
		fieldVar = typesystem.TVar{ID: typesystem.FieldVarID(tv.ID, n.Field)}
	} else if tv, ok := c.Apply(targetT).(typesystem.TVar); ok {
		fieldVar = typesystem.TVar{ID: typesystem.FieldVarID(tv.ID, n.Field)}
	} else {
		fieldVar = c.Fresh()
	}
	tail := c.FreshRowVar()

	want := typesystem.TRow{
		Fields: []typesystem.Field{{Label: n.Field, Type: fieldVar}},
		Tail:   tail,
	}
	if !c.Unify(targetT, want, diagnostics.ErrE001, tokOf(target, n.Token)) {
		return c.recoverNode(n.Token)
	}

	result := c.Apply(fieldVar)
	node := &tast.FieldAccess{
		Tok:      n.Token,
		Target:   target,
		Field:    n.Field,
		FieldVar: fieldVar.ID,
		RowVar:   tail.ID,
		Ty:       result,
	}
	return node, result
}

func (c *Context) inferSpawn(n *ast.Spawn) (tast.Node, typesystem.Type) {
	proc, ok := c.processes[n.Process]
	if !ok {
		d := c.errorf(diagnostics.ErrE103, n.ProcessTok, "unknown process "+n.Process)
		if s, ok := diagnostics.Suggest(n.Process, c.processNames()); ok {
			d.WithHint("did you mean " + s + "?")
		}
		return c.recoverNode(n.Token)
	}

	init, initT := c.infer(n.Init)
	c.Unify(initT, proc.StateType, diagnostics.ErrE001, tokOf(init, n.Token))

	ty := typesystem.TPid{Process: proc.Name, Tags: proc.Tags}
	return &tast.Spawn{Tok: n.Token, Process: n.Process, Init: init, Ty: ty}, ty
}

func (c *Context) processNames() []string {
	out := make([]string, 0, len(c.processes))
	for name := range c.processes {
		out = append(out, name)
	}
	return out
}

// staticTag extracts the statically known message tag: an atom
// literal, or a tuple whose first element is an atom literal.
func staticTag(msg tast.Node) string {
	switch m := msg.(type) {
	case *tast.Lit:
		if m.Kind == tast.LitAtom {
			return m.Sym
		}
	case *tast.TupleLit:
		if len(m.Elems) > 0 {
			if lit, ok := m.Elems[0].(*tast.Lit); ok && lit.Kind == tast.LitAtom {
				return lit.Sym
			}
		}
	}
	return ""
}

func (c *Context) inferSend(n *ast.Send) (tast.Node, typesystem.Type) {
	pid, pidT := c.infer(n.Pid)
	msg, _ := c.infer(n.Msg)
	if pid == nil || msg == nil {
		return c.recoverNode(n.Token)
	}
	tag := staticTag(msg)

	applied := c.Apply(pidT)
	if n.Safe {
		c.checkSafeSend(applied, tag, tokOf(pid, n.Token), tokOf(msg, n.Token))
	} else {
		if obviouslyNotPid(applied) {
			c.errorf(diagnostics.ErrE301, tokOf(pid, n.Token),
				"cannot send to a value of type "+typesystem.PrintType(applied))
		}
	}

	node := &tast.Send{Tok: n.Token, Safe: n.Safe, Pid: pid, Msg: msg, Tag: tag, Ty: typesystem.UnitType}
	return node, typesystem.UnitType
}

func (c *Context) checkSafeSend(pidT typesystem.Type, tag string, pidTok, msgTok token.Token) {
	switch t := pidT.(type) {
	case typesystem.TPid:
		if tag == "" {
			c.errorf(diagnostics.ErrE300, msgTok,
				"message tag cannot be determined statically; use an atom or a (tuple :tag ...) message")
			return
		}
		if !t.AcceptsTag(tag) {
			c.invalidMessage(msgTok, tag, t.Process, t.Tags)
		}
	case typesystem.TVar:
		c.deferSend(pidT, tag, msgTok)
	case typesystem.TCon:
		if t.Name == typesystem.AnyType.Name || t.Name == typesystem.PidType.Name {
			c.deferSend(pidT, tag, msgTok)
			return
		}
		c.errorf(diagnostics.ErrE301, pidTok, "cannot send to a value of type "+t.Name)
	default:
		c.errorf(diagnostics.ErrE301, pidTok, "cannot send to a value of type "+typesystem.PrintType(pidT))
	}
}

func (c *Context) deferSend(pidT typesystem.Type, tag string, msgTok token.Token) {
	if tag == "" {
		c.errorf(diagnostics.ErrE300, msgTok,
			"message tag cannot be determined statically; use an atom or a (tuple :tag ...) message")
		return
	}
	c.pendingSends = append(c.pendingSends, &pendingSend{pidType: pidT, tag: tag, tok: msgTok})
}

func (c *Context) invalidMessage(tok token.Token, tag, process string, accepted []string) {
	c.errorf(diagnostics.ErrE300, tok,
		fmt.Sprintf("process %s does not accept message :%s", process, tag)).
		WithHint("accepted tags: " + formatTags(accepted))
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "(none)"
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = ":" + t
	}
	return strings.Join(parts, ", ")
}

// resolvePendingSends re-checks sends whose pid type was free when
// first seen. A pid that became concrete is checked against its
// process; one still free requires the tag to belong to some declared
// process.
func (c *Context) resolvePendingSends() {
	for _, ps := range c.pendingSends {
		t := c.Apply(ps.pidType)
		if pid, ok := t.(typesystem.TPid); ok {
			if !pid.AcceptsTag(ps.tag) {
				c.invalidMessage(ps.tok, ps.tag, pid.Process, pid.Tags)
			}
			continue
		}
		accepted := false
		var all []string
		for _, proc := range c.processes {
			all = append(all, proc.Tags...)
			if proc.AcceptsTag(ps.tag) {
				accepted = true
			}
		}
		sort.Strings(all)
		if !accepted {
			c.errorf(diagnostics.ErrE300, ps.tok,
				fmt.Sprintf("no declared process accepts message :%s", ps.tag)).
				WithHint("accepted tags: " + formatTags(all))
		}
	}
	c.pendingSends = nil
}

func obviouslyNotPid(t typesystem.Type) bool {
	switch v := t.(type) {
	case typesystem.TCon:
		switch v.Name {
		case "Int", "Float", "Bool", "String", "Unit", "Atom":
			return true
		}
	case typesystem.TAtom, typesystem.TList, typesystem.TTuple,
		typesystem.TRecord, typesystem.TSum, typesystem.TFunc:
		return true
	}
	return false
}

func tokOf(n tast.Node, fallback token.Token) token.Token {
	if n == nil {
		return fallback
	}
	return n.GetToken()
}

func (c *Context) inferMatch(n *ast.Match) (tast.Node, typesystem.Type) {
	scrut, scrutT := c.infer(n.Scrutinee)
	if scrut == nil {
		return c.recoverNode(n.Token)
	}

	var clauses []tast.MatchClause
	var result typesystem.Type
	for _, clause := range n.Clauses {
		c.env.Push()
		bindings := c.elaboratePattern(clause.Pattern, scrutT)
		body, bodyT := c.infer(clause.Body)
		c.env.Pop()
		if body == nil {
			continue
		}
		if result == nil {
			result = bodyT
		} else {
			result = c.joinBranches(result, bodyT, diagnostics.ErrE003, body.GetToken())
		}
		clauses = append(clauses, tast.MatchClause{Pattern: clause.Pattern, Bindings: bindings, Body: body})
	}
	if result == nil {
		result = typesystem.AnyType
	}

	c.checkExhaustiveness(n, c.Apply(scrutT))

	result = c.Apply(result)
	return &tast.Match{Tok: n.Token, Scrut: scrut, Clauses: clauses, Ty: result}, result
}
