package ast

import (
	"github.com/vaisto-lang/vaisto/internal/token"
)

// Node is the base interface for all AST nodes. Every node can report
// its primary token for error spans.
type Node interface {
	GetToken() token.Token
}

// Expr is a Node that represents an expression.
type Expr interface {
	Node
	exprNode()
}

// Decl is a top-level declaration form.
type Decl interface {
	Node
	declNode()
}

// Module is the root produced by parsing one source file.
type Module struct {
	File    string // source file path
	Name    string // from (ns M); defaults to the file stem
	NameTok token.Token
	Imports []*ImportDecl
	Decls   []Decl
}

// ImportDecl represents (import M [:as A]).
type ImportDecl struct {
	Token  token.Token
	Module string
	Alias  string
}

func (d *ImportDecl) GetToken() token.Token { return d.Token }

// --- Expressions ---

// IntLit is an integer literal.
type IntLit struct {
	Token token.Token
	Value int64
}

func (e *IntLit) exprNode()             {}
func (e *IntLit) GetToken() token.Token { return e.Token }

// FloatLit is a floating point literal.
type FloatLit struct {
	Token token.Token
	Value float64
}

func (e *FloatLit) exprNode()             {}
func (e *FloatLit) GetToken() token.Token { return e.Token }

// BoolLit is true or false.
type BoolLit struct {
	Token token.Token
	Value bool
}

func (e *BoolLit) exprNode()             {}
func (e *BoolLit) GetToken() token.Token { return e.Token }

// StringLit is a string literal.
type StringLit struct {
	Token token.Token
	Value string
}

func (e *StringLit) exprNode()             {}
func (e *StringLit) GetToken() token.Token { return e.Token }

// AtomLit is a keyword literal such as :inc.
type AtomLit struct {
	Token token.Token
	Sym   string
}

func (e *AtomLit) exprNode()             {}
func (e *AtomLit) GetToken() token.Token { return e.Token }

// UnitLit is the empty form ().
type UnitLit struct {
	Token token.Token
}

func (e *UnitLit) exprNode()             {}
func (e *UnitLit) GetToken() token.Token { return e.Token }

// Symbol is a name reference. Whether it resolves to a binding or
// falls back to a bare atom is decided during elaboration.
type Symbol struct {
	Token token.Token
	Name  string
}

func (e *Symbol) exprNode()             {}
func (e *Symbol) GetToken() token.Token { return e.Token }

// ListLit is [e1 e2 ...].
type ListLit struct {
	Token token.Token
	Elems []Expr
}

func (e *ListLit) exprNode()             {}
func (e *ListLit) GetToken() token.Token { return e.Token }

// TupleLit is (tuple e1 e2 ...).
type TupleLit struct {
	Token token.Token
	Elems []Expr
}

func (e *TupleLit) exprNode()             {}
func (e *TupleLit) GetToken() token.Token { return e.Token }

// If is (if cond then else).
type If struct {
	Token token.Token
	Cond  Expr
	Then  Expr
	Else  Expr
}

func (e *If) exprNode()             {}
func (e *If) GetToken() token.Token { return e.Token }

// LetBinding is one name/value pair in a let vector.
type LetBinding struct {
	Token token.Token
	Name  string
	Value Expr
}

// Let is (let [x e1 y e2 ...] body...).
type Let struct {
	Token    token.Token
	Bindings []LetBinding
	Body     []Expr
}

func (e *Let) exprNode()             {}
func (e *Let) GetToken() token.Token { return e.Token }

// Param is a function parameter.
type Param struct {
	Token token.Token
	Name  string
}

// Fn is (fn [params] body...).
type Fn struct {
	Token  token.Token
	Params []Param
	Body   []Expr
}

func (e *Fn) exprNode()             {}
func (e *Fn) GetToken() token.Token { return e.Token }

// Call is a function application (f args...). Constructor applications
// and class-method calls are also parsed as calls and resolved during
// elaboration.
type Call struct {
	Token token.Token
	Fn    Expr
	Args  []Expr
}

func (e *Call) exprNode()             {}
func (e *Call) GetToken() token.Token { return e.Token }

// Do is (do e1 e2 ...).
type Do struct {
	Token token.Token
	Exprs []Expr
}

func (e *Do) exprNode()             {}
func (e *Do) GetToken() token.Token { return e.Token }

// MatchClause is one [pattern body] pair.
type MatchClause struct {
	Token   token.Token
	Pattern Pattern
	Body    Expr
}

// Match is (match scrutinee [pat body]...).
type Match struct {
	Token     token.Token
	Scrutinee Expr
	Clauses   []MatchClause
}

func (e *Match) exprNode()             {}
func (e *Match) GetToken() token.Token { return e.Token }

// FieldAccess is (. record :field).
type FieldAccess struct {
	Token    token.Token
	Target   Expr
	Field    string
	FieldTok token.Token
}

func (e *FieldAccess) exprNode()             {}
func (e *FieldAccess) GetToken() token.Token { return e.Token }

// Spawn is (spawn process-name init).
type Spawn struct {
	Token      token.Token
	Process    string
	ProcessTok token.Token
	Init       Expr
}

func (e *Spawn) exprNode()             {}
func (e *Spawn) GetToken() token.Token { return e.Token }

// Send is (! pid msg) when Safe, (!! pid msg) otherwise.
type Send struct {
	Token token.Token
	Safe  bool
	Pid   Expr
	Msg   Expr
}

func (e *Send) exprNode()             {}
func (e *Send) GetToken() token.Token { return e.Token }
