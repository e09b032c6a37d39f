// Package tast defines the typed AST produced by the elaborator. Every
// node carries its final type; class-method calls carry their resolved
// instance head and constraint chain so the emitter never re-runs the
// resolver.
package tast

import (
	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/token"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// Node is a typed expression.
type Node interface {
	Type() typesystem.Type
	GetToken() token.Token
}

// LitKind discriminates literal nodes.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitString
	LitAtom
	LitUnit
)

// Lit is a literal of fixed type.
type Lit struct {
	Tok      token.Token
	Kind     LitKind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   string
	Sym      string // atom symbol
	Ty       typesystem.Type
}

func (n *Lit) Type() typesystem.Type { return n.Ty }
func (n *Lit) GetToken() token.Token { return n.Tok }

// VarRef is a resolved variable reference.
type VarRef struct {
	Tok   token.Token
	Name  string
	Local bool // lambda- or pattern-bound, relevant for emission
	Ty    typesystem.Type
}

func (n *VarRef) Type() typesystem.Type { return n.Ty }
func (n *VarRef) GetToken() token.Token { return n.Tok }

// ListLit is a typed list literal.
type ListLit struct {
	Tok   token.Token
	Elems []Node
	Ty    typesystem.Type
}

func (n *ListLit) Type() typesystem.Type { return n.Ty }
func (n *ListLit) GetToken() token.Token { return n.Tok }

// TupleLit is a typed tuple literal.
type TupleLit struct {
	Tok   token.Token
	Elems []Node
	Ty    typesystem.Type
}

func (n *TupleLit) Type() typesystem.Type { return n.Ty }
func (n *TupleLit) GetToken() token.Token { return n.Tok }

// If is a typed conditional.
type If struct {
	Tok  token.Token
	Cond Node
	Then Node
	Else Node
	Ty   typesystem.Type
}

func (n *If) Type() typesystem.Type { return n.Ty }
func (n *If) GetToken() token.Token { return n.Tok }

// LetBinding is one generalized let binding.
type LetBinding struct {
	Name   string
	Value  Node
	Scheme typesystem.Type // TScheme or monotype
}

// Let is a typed sequential let.
type Let struct {
	Tok      token.Token
	Bindings []LetBinding
	Body     []Node
	Ty       typesystem.Type
}

func (n *Let) Type() typesystem.Type { return n.Ty }
func (n *Let) GetToken() token.Token { return n.Tok }

// Fn is a typed function literal.
type Fn struct {
	Tok    token.Token
	Params []string
	Body   []Node
	Ty     typesystem.Type // always a TFunc after substitution
}

func (n *Fn) Type() typesystem.Type { return n.Ty }
func (n *Fn) GetToken() token.Token { return n.Tok }

// Call is a typed application of a non-builtin function.
type Call struct {
	Tok  token.Token
	Fn   Node
	Args []Node
	Ty   typesystem.Type
}

func (n *Call) Type() typesystem.Type { return n.Ty }
func (n *Call) GetToken() token.Token { return n.Tok }

// BuiltinCall is a call to a compiler builtin such as str or cons.
type BuiltinCall struct {
	Tok  token.Token
	Name string
	Args []Node
	Ty   typesystem.Type
}

func (n *BuiltinCall) Type() typesystem.Type { return n.Ty }
func (n *BuiltinCall) GetToken() token.Token { return n.Tok }

// NumOp is a numeric operator application. Widen records that an Int
// operand is promoted to Float at this site.
type NumOp struct {
	Tok   token.Token
	Op    string
	Left  Node
	Right Node
	Widen bool
	Ty    typesystem.Type
}

func (n *NumOp) Type() typesystem.Type { return n.Ty }
func (n *NumOp) GetToken() token.Token { return n.Tok }

// Do is a typed sequence; its type is the type of the last expression.
type Do struct {
	Tok   token.Token
	Exprs []Node
	Ty    typesystem.Type
}

func (n *Do) Type() typesystem.Type { return n.Ty }
func (n *Do) GetToken() token.Token { return n.Tok }

// PatternBinding is a name introduced by a pattern, with its type.
type PatternBinding struct {
	Name string
	Ty   typesystem.Type
}

// MatchClause pairs an elaborated pattern with its typed body.
type MatchClause struct {
	Pattern  ast.Pattern
	Bindings []PatternBinding
	Body     Node
}

// Match is a typed match expression.
type Match struct {
	Tok     token.Token
	Scrut   Node
	Clauses []MatchClause
	Ty      typesystem.Type
}

func (n *Match) Type() typesystem.Type { return n.Ty }
func (n *Match) GetToken() token.Token { return n.Tok }

// FieldAccess is a typed row-polymorphic field access. FieldVar is the
// derived variable standing for the field type; RowVar is the fresh
// tail introduced by this access. Later unification against the same
// record closes or extends the row through these ids.
type FieldAccess struct {
	Tok      token.Token
	Target   Node
	Field    string
	FieldVar typesystem.VarID
	RowVar   typesystem.VarID
	Ty       typesystem.Type
}

func (n *FieldAccess) Type() typesystem.Type { return n.Ty }
func (n *FieldAccess) GetToken() token.Token { return n.Tok }

// CtorCall constructs a sum-type variant or a record.
type CtorCall struct {
	Tok      token.Token
	TypeName string
	Ctor     string
	Args     []Node
	Ty       typesystem.Type
}

func (n *CtorCall) Type() typesystem.Type { return n.Ty }
func (n *CtorCall) GetToken() token.Token { return n.Tok }

// Spawn is a typed process spawn; its type is a TPid.
type Spawn struct {
	Tok     token.Token
	Process string
	Init    Node
	Ty      typesystem.Type
}

func (n *Spawn) Type() typesystem.Type { return n.Ty }
func (n *Spawn) GetToken() token.Token { return n.Tok }

// Send is a typed message send. Tag is the statically determined
// message tag; empty when the send is unsafe and the tag is dynamic.
type Send struct {
	Tok  token.Token
	Safe bool
	Pid  Node
	Msg  Node
	Tag  string
	Ty   typesystem.Type
}

func (n *Send) Type() typesystem.Type { return n.Ty }
func (n *Send) GetToken() token.Token { return n.Tok }

// ResolvedConstraint records one solved instance constraint. Sub holds
// the chain for nested constrained instances so the emitter can thread
// dictionaries without re-running the resolver. Inside a constrained
// instance body a link may resolve to a dictionary parameter instead
// of a static head; Dict names it.
type ResolvedConstraint struct {
	Class string
	Head  string
	Dict  string
	Sub   []ResolvedConstraint
}

// ClassCall is a class-method invocation dispatched on Head. Inside a
// constrained instance body, a call dispatched on a constraint
// parameter has no static head: Dict names the parameter whose
// dictionary the emitter threads through instead.
type ClassCall struct {
	Tok         token.Token
	Class       string
	Method      string
	Head        string // instance head; empty while unresolved or dictionary-passed
	Dict        string // constraint parameter name, for dictionary dispatch
	HeadType    typesystem.Type
	Args        []Node
	Constraints []ResolvedConstraint
	Ty          typesystem.Type
}

func (n *ClassCall) Type() typesystem.Type { return n.Ty }
func (n *ClassCall) GetToken() token.Token { return n.Tok }

// --- module level ---

// FuncDef is an elaborated top-level function.
type FuncDef struct {
	Name   string
	Tok    token.Token
	Params []string
	Body   []Node
	Scheme typesystem.Type
}

// Handler is one elaborated message handler of a process.
type Handler struct {
	Tag  string
	Body Node
}

// ProcessDef is an elaborated process declaration.
type ProcessDef struct {
	Name      string
	Tok       token.Token
	StateType typesystem.Type
	Init      Node
	Handlers  []Handler
}

// Module is a fully elaborated module.
type Module struct {
	Name      string
	Funcs     []*FuncDef
	Processes []*ProcessDef
	Exprs     []Node // top-level expressions (eval mode)
}
