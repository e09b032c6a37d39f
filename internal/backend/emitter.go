package backend

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/tast"
)

// Emitter lowers a typed module to an Artifact. The typed AST carries
// everything dispatch needs: class calls come with their resolved
// heads, sends with their static tags, field accesses with their
// labels.
type Emitter struct {
	artifact *Artifact

	// locals maps names to slots within the current code object.
	locals map[string]uint32
	code   *Code
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

// Emit lowers the module.
func (e *Emitter) Emit(mod *tast.Module) []byte {
	e.artifact = NewArtifact(mod.Name)

	for _, fn := range mod.Funcs {
		e.artifact.Funcs = append(e.artifact.Funcs, e.emitFunc(fn.Name, fn.Params, fn.Body))
	}
	for _, proc := range mod.Processes {
		for _, h := range proc.Handlers {
			code := e.beginCode(proc.Name+"/:"+h.Tag, []string{"state"})
			e.expr(h.Body)
			e.op(OpReturn, 0, 0)
			e.endCode()
			e.artifact.Handlers = append(e.artifact.Handlers, code)
		}
	}
	if len(mod.Exprs) > 0 {
		code := e.beginCode("main", nil)
		for i, expr := range mod.Exprs {
			e.expr(expr)
			if i < len(mod.Exprs)-1 {
				e.op(OpPop, 0, 0)
			}
		}
		e.op(OpReturn, 0, 0)
		e.endCode()
		e.artifact.Entry = code
	}

	return e.artifact.Build()
}

func (e *Emitter) emitFunc(name string, params []string, body []tast.Node) *Code {
	code := e.beginCode(name, params)
	for i, expr := range body {
		e.expr(expr)
		if i < len(body)-1 {
			e.op(OpPop, 0, 0)
		}
	}
	e.op(OpReturn, 0, 0)
	e.endCode()
	return code
}

func (e *Emitter) beginCode(name string, params []string) *Code {
	e.code = &Code{Name: name, Arity: uint32(len(params))}
	e.locals = make(map[string]uint32)
	for i, p := range params {
		e.locals[p] = uint32(i)
	}
	return e.code
}

func (e *Emitter) endCode() {
	e.code = nil
	e.locals = nil
}

func (e *Emitter) op(op Op, a, b uint32) int {
	e.code.Instrs = append(e.code.Instrs, Instr{Op: op, A: a, B: b})
	return len(e.code.Instrs) - 1
}

func (e *Emitter) patch(at int, target uint32) {
	e.code.Instrs[at].A = target
}

func (e *Emitter) here() uint32 {
	return uint32(len(e.code.Instrs))
}

func (e *Emitter) slot(name string) uint32 {
	if s, ok := e.locals[name]; ok {
		return s
	}
	s := uint32(len(e.locals))
	e.locals[name] = s
	return s
}

func (e *Emitter) expr(n tast.Node) {
	switch v := n.(type) {
	case *tast.Lit:
		switch v.Kind {
		case tast.LitInt:
			e.op(OpConstInt, e.artifact.Int(v.IntVal), 0)
		case tast.LitFloat:
			e.op(OpConstFloat, e.artifact.Float(v.FloatVal), 0)
		case tast.LitBool:
			b := uint32(0)
			if v.BoolVal {
				b = 1
			}
			e.op(OpConstBool, b, 0)
		case tast.LitString:
			e.op(OpConstStr, e.artifact.Str(v.StrVal), 0)
		case tast.LitAtom:
			e.op(OpConstAtom, e.artifact.Atom(v.Sym), 0)
		case tast.LitUnit:
			e.op(OpConstUnit, 0, 0)
		}

	case *tast.VarRef:
		if v.Local {
			e.op(OpLoadLocal, e.slot(v.Name), 0)
		} else {
			e.op(OpLoadGlobal, e.artifact.Atom(v.Name), 0)
		}

	case *tast.ListLit:
		for _, el := range v.Elems {
			e.expr(el)
		}
		e.op(OpMakeList, uint32(len(v.Elems)), 0)

	case *tast.TupleLit:
		for _, el := range v.Elems {
			e.expr(el)
		}
		e.op(OpMakeTuple, uint32(len(v.Elems)), 0)

	case *tast.If:
		e.expr(v.Cond)
		jmpElse := e.op(OpJumpIfFalse, 0, 0)
		e.expr(v.Then)
		jmpEnd := e.op(OpJump, 0, 0)
		e.patch(jmpElse, e.here())
		e.expr(v.Else)
		e.patch(jmpEnd, e.here())

	case *tast.Let:
		for _, b := range v.Bindings {
			e.expr(b.Value)
			e.op(OpStoreLocal, e.slot(b.Name), 0)
		}
		for i, body := range v.Body {
			e.expr(body)
			if i < len(v.Body)-1 {
				e.op(OpPop, 0, 0)
			}
		}

	case *tast.Fn:
		// Lambdas lift into the function table and load as globals.
		name := fmt.Sprintf("%s$lambda%d", e.code.Name, len(e.artifact.Funcs))
		saved, savedLocals := e.code, e.locals
		lifted := e.emitFunc(name, v.Params, v.Body)
		e.code, e.locals = saved, savedLocals
		e.artifact.Funcs = append(e.artifact.Funcs, lifted)
		e.op(OpLoadGlobal, e.artifact.Atom(name), 0)

	case *tast.Call:
		e.expr(v.Fn)
		for _, a := range v.Args {
			e.expr(a)
		}
		e.op(OpCall, uint32(len(v.Args)), 0)

	case *tast.BuiltinCall:
		for _, a := range v.Args {
			e.expr(a)
		}
		e.op(OpCallBuiltin, e.artifact.Atom(v.Name), uint32(len(v.Args)))

	case *tast.NumOp:
		e.expr(v.Left)
		e.expr(v.Right)
		widen := uint32(0)
		if v.Widen {
			widen = 1
		}
		e.op(OpNumOp, e.artifact.Atom(v.Op), widen)

	case *tast.Do:
		for i, ex := range v.Exprs {
			e.expr(ex)
			if i < len(v.Exprs)-1 {
				e.op(OpPop, 0, 0)
			}
		}

	case *tast.Match:
		e.emitMatch(v)

	case *tast.FieldAccess:
		e.expr(v.Target)
		e.op(OpField, e.artifact.Atom(v.Field), 0)

	case *tast.CtorCall:
		for _, a := range v.Args {
			e.expr(a)
		}
		e.op(OpMakeCtor, e.artifact.Atom(v.Ctor), uint32(len(v.Args)))

	case *tast.Spawn:
		e.expr(v.Init)
		e.op(OpSpawn, e.artifact.Atom(v.Process), 0)

	case *tast.Send:
		e.expr(v.Pid)
		e.expr(v.Msg)
		if v.Safe {
			e.op(OpSend, 0, 0)
		} else {
			e.op(OpSendUnsafe, 0, 0)
		}

	case *tast.ClassCall:
		for _, a := range v.Args {
			e.expr(a)
		}
		// Dispatch: static head when resolved, dictionary parameter
		// otherwise.
		head := v.Head
		if head == "" {
			head = "$dict:" + v.Dict
		}
		e.op(OpClassCall, e.artifact.Atom(v.Class+"."+v.Method+"@"+head), uint32(len(v.Args)))
	}
}

// emitMatch compiles a match to a chain of test-and-jump clauses. Each
// clause tests the scrutinee (kept in a local slot), binds pattern
// variables, and runs its body.
func (e *Emitter) emitMatch(m *tast.Match) {
	e.expr(m.Scrut)
	scrutSlot := e.slot(fmt.Sprintf("$match%d", len(e.code.Instrs)))
	e.op(OpStoreLocal, scrutSlot, 0)

	var endJumps []int
	for _, clause := range m.Clauses {
		failJumps := e.emitPatternTest(clause.Pattern, scrutSlot)
		e.expr(clause.Body)
		endJumps = append(endJumps, e.op(OpJump, 0, 0))
		for _, fj := range failJumps {
			e.patch(fj, e.here())
		}
	}
	// No clause matched: non-exhaustiveness was rejected statically,
	// so this point is unreachable; produce Unit for safety.
	e.op(OpConstUnit, 0, 0)
	for _, j := range endJumps {
		e.patch(j, e.here())
	}
}

// emitPatternTest emits code testing the value in slot against the
// pattern, binding variables on the way. It returns the jump indices
// to patch to the clause-failure target.
func (e *Emitter) emitPatternTest(p ast.Pattern, slot uint32) []int {
	var fails []int
	switch pat := p.(type) {
	case *ast.PWild:
	case *ast.PVar:
		e.op(OpLoadLocal, slot, 0)
		e.op(OpBindLocal, e.slot(pat.Name), 0)
	case *ast.PLit:
		e.op(OpLoadLocal, slot, 0)
		e.emitLitPattern(pat)
		fails = append(fails, e.op(OpMatchLit, 0, 0))
	case *ast.PCtor:
		e.op(OpLoadLocal, slot, 0)
		fails = append(fails, e.op(OpMatchCtor, 0, e.artifact.Atom(pat.Name)))
		for i, sub := range pat.Args {
			e.op(OpLoadLocal, slot, 0)
			e.op(OpField, e.artifact.Atom(fmt.Sprintf("$%d", i)), 0)
			subSlot := e.slot(fmt.Sprintf("$f%d_%d", slot, i))
			e.op(OpStoreLocal, subSlot, 0)
			fails = append(fails, e.emitPatternTest(sub, subSlot)...)
		}
	case *ast.PList:
		e.op(OpLoadLocal, slot, 0)
		fails = append(fails, e.op(OpMatchList, 0, uint32(len(pat.Elems))))
		for i, sub := range pat.Elems {
			e.op(OpLoadLocal, slot, 0)
			e.op(OpField, e.artifact.Atom(fmt.Sprintf("$%d", i)), 0)
			subSlot := e.slot(fmt.Sprintf("$l%d_%d", slot, i))
			e.op(OpStoreLocal, subSlot, 0)
			fails = append(fails, e.emitPatternTest(sub, subSlot)...)
		}
	case *ast.PCons:
		e.op(OpLoadLocal, slot, 0)
		fails = append(fails, e.op(OpMatchCons, 0, 0))
		e.op(OpLoadLocal, slot, 0)
		e.op(OpField, e.artifact.Atom("$head"), 0)
		headSlot := e.slot(fmt.Sprintf("$h%d", slot))
		e.op(OpStoreLocal, headSlot, 0)
		fails = append(fails, e.emitPatternTest(pat.Head, headSlot)...)
		e.op(OpLoadLocal, slot, 0)
		e.op(OpField, e.artifact.Atom("$tail"), 0)
		tailSlot := e.slot(fmt.Sprintf("$t%d", slot))
		e.op(OpStoreLocal, tailSlot, 0)
		fails = append(fails, e.emitPatternTest(pat.Tail, tailSlot)...)
	case *ast.PTuple:
		e.op(OpLoadLocal, slot, 0)
		fails = append(fails, e.op(OpMatchTuple, 0, uint32(len(pat.Elems))))
		for i, sub := range pat.Elems {
			e.op(OpLoadLocal, slot, 0)
			e.op(OpField, e.artifact.Atom(fmt.Sprintf("$%d", i)), 0)
			subSlot := e.slot(fmt.Sprintf("$e%d_%d", slot, i))
			e.op(OpStoreLocal, subSlot, 0)
			fails = append(fails, e.emitPatternTest(sub, subSlot)...)
		}
	}
	return fails
}

func (e *Emitter) emitLitPattern(pat *ast.PLit) {
	switch lit := pat.Value.(type) {
	case *ast.IntLit:
		e.op(OpConstInt, e.artifact.Int(lit.Value), 0)
	case *ast.FloatLit:
		e.op(OpConstFloat, e.artifact.Float(lit.Value), 0)
	case *ast.BoolLit:
		b := uint32(0)
		if lit.Value {
			b = 1
		}
		e.op(OpConstBool, b, 0)
	case *ast.StringLit:
		e.op(OpConstStr, e.artifact.Str(lit.Value), 0)
	case *ast.AtomLit:
		e.op(OpConstAtom, e.artifact.Atom(lit.Sym), 0)
	}
}
