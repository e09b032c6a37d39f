package ast

import "github.com/vaisto-lang/vaisto/internal/token"

// TypeExpr is a surface-syntax type annotation.
type TypeExpr interface {
	Node
	typeExprNode()
}

// TESym is a named type: Int, Bool, Color, or a lowercase type variable.
type TESym struct {
	Token token.Token
	Name  string
}

func (t *TESym) typeExprNode()         {}
func (t *TESym) GetToken() token.Token { return t.Token }

// TEList is (List T).
type TEList struct {
	Token token.Token
	Elem  TypeExpr
}

func (t *TEList) typeExprNode()         {}
func (t *TEList) GetToken() token.Token { return t.Token }

// TETuple is (Tuple T...).
type TETuple struct {
	Token token.Token
	Elems []TypeExpr
}

func (t *TETuple) typeExprNode()         {}
func (t *TETuple) GetToken() token.Token { return t.Token }

// TEFn is (Fn [T...] R).
type TEFn struct {
	Token  token.Token
	Params []TypeExpr
	Return TypeExpr
}

func (t *TEFn) typeExprNode()         {}
func (t *TEFn) GetToken() token.Token { return t.Token }

// TEPid is (Pid process-name).
type TEPid struct {
	Token   token.Token
	Process string
}

func (t *TEPid) typeExprNode()         {}
func (t *TEPid) GetToken() token.Token { return t.Token }

// TEApp is an applied named type: (Maybe Int).
type TEApp struct {
	Token token.Token
	Name  string
	Args  []TypeExpr
}

func (t *TEApp) typeExprNode()         {}
func (t *TEApp) GetToken() token.Token { return t.Token }

// --- Declarations ---

// DefnDecl is (defn name [params] body...).
type DefnDecl struct {
	Token   token.Token
	Name    string
	NameTok token.Token
	Params  []Param
	Body    []Expr
}

func (d *DefnDecl) declNode()             {}
func (d *DefnDecl) GetToken() token.Token { return d.Token }

// ExprDecl is a bare top-level expression, permitted in eval mode.
type ExprDecl struct {
	Expr Expr
}

func (d *ExprDecl) declNode()             {}
func (d *ExprDecl) GetToken() token.Token { return d.Expr.GetToken() }

// VariantDecl is one constructor of a sum type.
type VariantDecl struct {
	Token  token.Token
	Ctor   string
	Fields []TypeExpr
}

// DeftypeDecl is (deftype Name (Ctor T...)... [deriving [C...]]).
type DeftypeDecl struct {
	Token    token.Token
	Name     string
	NameTok  token.Token
	Variants []VariantDecl
	Deriving []DerivingRef
}

func (d *DeftypeDecl) declNode()             {}
func (d *DeftypeDecl) GetToken() token.Token { return d.Token }

// DerivingRef names a class in a deriving vector.
type DerivingRef struct {
	Token token.Token
	Class string
}

// FieldDecl is one [name Type] pair of a record declaration.
type FieldDecl struct {
	Token token.Token
	Name  string
	Type  TypeExpr
}

// DefrecordDecl is (defrecord Name [field Type]... [deriving [C...]]).
type DefrecordDecl struct {
	Token    token.Token
	Name     string
	NameTok  token.Token
	Fields   []FieldDecl
	Deriving []DerivingRef
}

func (d *DefrecordDecl) declNode()             {}
func (d *DefrecordDecl) GetToken() token.Token { return d.Token }

// MethodDecl is one method signature of a class declaration, with an
// optional default body.
type MethodDecl struct {
	Token   token.Token
	Name    string
	Params  []TypeExpr
	Return  TypeExpr
	Default Expr // nil when the method has no default
}

// DefclassDecl is (defclass C [a] (m [sig...] ret [default])...).
type DefclassDecl struct {
	Token   token.Token
	Name    string
	NameTok token.Token
	TyVar   string
	Methods []MethodDecl
}

func (d *DefclassDecl) declNode()             {}
func (d *DefclassDecl) GetToken() token.Token { return d.Token }

// ConstraintDecl is one (Class var) requirement in a where vector.
type ConstraintDecl struct {
	Token token.Token
	Class string
	Var   string
}

// InstanceMethod is one method implementation inside an instance.
type InstanceMethod struct {
	Token  token.Token
	Name   string
	Params []Param
	Body   []Expr
}

// InstanceDecl is (instance C head methods...) or
// (instance C (H a...) where [(C1 a)...] methods...).
type InstanceDecl struct {
	Token       token.Token
	Class       string
	ClassTok    token.Token
	HeadName    string
	HeadTok     token.Token
	HeadArgs    []string // type variables of a parameterized head
	Constraints []ConstraintDecl
	Methods     []InstanceMethod
}

func (d *InstanceDecl) declNode()             {}
func (d *InstanceDecl) GetToken() token.Token { return d.Token }

// MsgHandler is one :tag body pair of a process declaration.
type MsgHandler struct {
	Token token.Token
	Tag   string
	Body  Expr
}

// ProcessDecl is (process name init-expr :tag body ...).
type ProcessDecl struct {
	Token    token.Token
	Name     string
	NameTok  token.Token
	Init     Expr
	Handlers []MsgHandler
}

func (d *ProcessDecl) declNode()             {}
func (d *ProcessDecl) GetToken() token.Token { return d.Token }
