package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/lexer"
	"github.com/vaisto-lang/vaisto/internal/token"
)

// Parser turns a token stream into an ast.Module. Parse errors are
// accumulated; the parser synchronizes at the next top-level form so a
// single malformed declaration does not hide the rest of the file.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	file   string
	errors []*diagnostics.DiagnosticError
}

func New(l *lexer.Lexer, file string) *Parser {
	p := &Parser{l: l, file: file}
	p.nextToken()
	p.nextToken()
	return p
}

// ParseSource is a convenience wrapper lexing and parsing source text.
func ParseSource(source, file string) (*ast.Module, []*diagnostics.DiagnosticError) {
	p := New(lexer.New(source), file)
	mod := p.ParseModule()
	return mod, p.Errors()
}

func (p *Parser) Errors() []*diagnostics.DiagnosticError {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, msg string) {
	p.errors = append(p.errors, diagnostics.NewError(code, tok, msg))
}

// ParseModule parses an entire source file.
func (p *Parser) ParseModule() *ast.Module {
	mod := &ast.Module{File: p.file, Name: moduleStem(p.file)}

	for p.curToken.Type != token.EOF {
		if p.curToken.Type == token.ILLEGAL {
			p.addError(diagnostics.ErrE201, p.curToken, "unexpected input: "+p.curToken.Literal)
			p.nextToken()
			continue
		}
		p.parseTopLevel(mod)
	}
	return mod
}

func (p *Parser) parseTopLevel(mod *ast.Module) {
	if p.curToken.Type != token.LPAREN {
		// A bare literal expression (eval mode).
		if expr := p.parseExpr(); expr != nil {
			mod.Decls = append(mod.Decls, &ast.ExprDecl{Expr: expr})
		}
		return
	}

	if p.peekToken.Type == token.SYMBOL {
		switch p.peekToken.Literal {
		case "ns":
			p.parseNs(mod)
			return
		case "import":
			if imp := p.parseImport(); imp != nil {
				mod.Imports = append(mod.Imports, imp)
			}
			return
		case "defn":
			if d := p.parseDefn(); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
			return
		case "deftype":
			if d := p.parseDeftype(); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
			return
		case "defrecord":
			if d := p.parseDefrecord(); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
			return
		case "defclass":
			if d := p.parseDefclass(); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
			return
		case "instance":
			if d := p.parseInstance(); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
			return
		case "process":
			if d := p.parseProcess(); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
			return
		}
	}

	if expr := p.parseExpr(); expr != nil {
		mod.Decls = append(mod.Decls, &ast.ExprDecl{Expr: expr})
	}
}

// synchronize skips tokens until the current parenthesized form is
// balanced, so parsing can resume at the next top-level form.
func (p *Parser) synchronize(depth int) {
	for p.curToken.Type != token.EOF {
		switch p.curToken.Type {
		case token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
			if depth <= 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

func (p *Parser) expect(t token.TokenType) bool {
	if p.curToken.Type == t {
		return true
	}
	p.addError(diagnostics.ErrE201, p.curToken,
		fmt.Sprintf("expected %s, found %q", t, p.curToken.Lexeme))
	return false
}

func (p *Parser) expectSymbol() (token.Token, bool) {
	if p.curToken.Type != token.SYMBOL {
		p.addError(diagnostics.ErrE201, p.curToken,
			fmt.Sprintf("expected a symbol, found %q", p.curToken.Lexeme))
		return p.curToken, false
	}
	tok := p.curToken
	p.nextToken()
	return tok, true
}

func (p *Parser) consumeRParen(open token.Token) bool {
	if p.curToken.Type == token.RPAREN {
		p.nextToken()
		return true
	}
	p.addError(diagnostics.ErrE201, p.curToken,
		fmt.Sprintf("expected ) to close form opened at %d:%d", open.Line, open.Column))
	p.synchronize(1)
	return false
}

// --- top-level forms ---

func (p *Parser) parseNs(mod *ast.Module) {
	open := p.curToken
	p.nextToken() // (
	p.nextToken() // ns
	if name, ok := p.expectSymbol(); ok {
		mod.Name = name.Literal
		mod.NameTok = name
	}
	p.consumeRParen(open)
}

func (p *Parser) parseImport() *ast.ImportDecl {
	open := p.curToken
	p.nextToken() // (
	impTok := p.curToken
	p.nextToken() // import

	name, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}
	imp := &ast.ImportDecl{Token: impTok, Module: name.Literal}

	if p.curToken.Type == token.KEYWORD && p.curToken.Literal == "as" {
		p.nextToken()
		if alias, ok := p.expectSymbol(); ok {
			imp.Alias = alias.Literal
		}
	}
	p.consumeRParen(open)
	return imp
}

func (p *Parser) parseDefn() ast.Decl {
	open := p.curToken
	p.nextToken() // (
	defnTok := p.curToken
	p.nextToken() // defn

	name, ok := p.expectSymbol()
	if !ok {
		p.addError(diagnostics.ErrE200, defnTok, "malformed defn: missing function name")
		p.synchronize(1)
		return nil
	}

	if p.curToken.Type != token.LBRACKET {
		p.addError(diagnostics.ErrE200, p.curToken,
			fmt.Sprintf("malformed defn %s: expected parameter vector, found %q", name.Literal, p.curToken.Lexeme))
		p.synchronize(1)
		return nil
	}
	params := p.parseParamVector()

	var body []ast.Expr
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if expr := p.parseExpr(); expr != nil {
			body = append(body, expr)
		}
	}
	if len(body) == 0 {
		p.addError(diagnostics.ErrE200, defnTok, "malformed defn "+name.Literal+": missing body")
	}
	p.consumeRParen(open)

	return &ast.DefnDecl{Token: defnTok, Name: name.Literal, NameTok: name, Params: params, Body: body}
}

func (p *Parser) parseParamVector() []ast.Param {
	var params []ast.Param
	p.nextToken() // [
	for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
		if tok, ok := p.expectSymbol(); ok {
			params = append(params, ast.Param{Token: tok, Name: tok.Literal})
		} else {
			p.nextToken()
		}
	}
	if p.curToken.Type == token.RBRACKET {
		p.nextToken()
	}
	return params
}

func (p *Parser) parseDeriving() []ast.DerivingRef {
	// deriving [C ...]
	p.nextToken() // deriving
	if !p.expect(token.LBRACKET) {
		return nil
	}
	p.nextToken() // [
	var refs []ast.DerivingRef
	for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
		if tok, ok := p.expectSymbol(); ok {
			refs = append(refs, ast.DerivingRef{Token: tok, Class: tok.Literal})
		} else {
			p.nextToken()
		}
	}
	if p.curToken.Type == token.RBRACKET {
		p.nextToken()
	}
	return refs
}

func (p *Parser) parseDeftype() ast.Decl {
	open := p.curToken
	p.nextToken() // (
	typeTok := p.curToken
	p.nextToken() // deftype

	name, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}
	d := &ast.DeftypeDecl{Token: typeTok, Name: name.Literal, NameTok: name}

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type == token.SYMBOL && p.curToken.Literal == "deriving" {
			d.Deriving = p.parseDeriving()
			continue
		}
		if p.curToken.Type != token.LPAREN {
			p.addError(diagnostics.ErrE201, p.curToken,
				fmt.Sprintf("expected a variant form in deftype %s, found %q", d.Name, p.curToken.Lexeme))
			p.synchronize(1)
			return d
		}
		variantOpen := p.curToken
		p.nextToken() // (
		ctor, ok := p.expectSymbol()
		if !ok {
			p.synchronize(1)
			continue
		}
		variant := ast.VariantDecl{Token: ctor, Ctor: ctor.Literal}
		for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
			if te := p.parseTypeExpr(); te != nil {
				variant.Fields = append(variant.Fields, te)
			}
		}
		p.consumeRParen(variantOpen)
		d.Variants = append(d.Variants, variant)
	}
	if len(d.Variants) == 0 {
		p.addError(diagnostics.ErrE201, typeTok, "deftype "+d.Name+" declares no variants")
	}
	p.consumeRParen(open)
	return d
}

func (p *Parser) parseDefrecord() ast.Decl {
	open := p.curToken
	p.nextToken() // (
	recTok := p.curToken
	p.nextToken() // defrecord

	name, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}
	d := &ast.DefrecordDecl{Token: recTok, Name: name.Literal, NameTok: name}

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type == token.SYMBOL && p.curToken.Literal == "deriving" {
			d.Deriving = p.parseDeriving()
			continue
		}
		if p.curToken.Type != token.LBRACKET {
			p.addError(diagnostics.ErrE201, p.curToken,
				fmt.Sprintf("expected a [field Type] vector in defrecord %s, found %q", d.Name, p.curToken.Lexeme))
			p.synchronize(1)
			return d
		}
		p.nextToken() // [
		fieldName, ok := p.expectSymbol()
		if !ok {
			p.synchronize(1)
			continue
		}
		fieldType := p.parseTypeExpr()
		if p.curToken.Type == token.RBRACKET {
			p.nextToken()
		} else {
			p.addError(diagnostics.ErrE201, p.curToken, "expected ] after record field")
		}
		d.Fields = append(d.Fields, ast.FieldDecl{Token: fieldName, Name: fieldName.Literal, Type: fieldType})
	}
	if len(d.Fields) == 0 {
		p.addError(diagnostics.ErrE201, recTok, "defrecord "+d.Name+" declares no fields")
	}
	p.consumeRParen(open)
	return d
}

func (p *Parser) parseDefclass() ast.Decl {
	open := p.curToken
	p.nextToken() // (
	classTok := p.curToken
	p.nextToken() // defclass

	name, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}
	d := &ast.DefclassDecl{Token: classTok, Name: name.Literal, NameTok: name}

	if p.curToken.Type != token.LBRACKET {
		p.addError(diagnostics.ErrE201, p.curToken, "defclass "+d.Name+": expected [tyvar]")
		p.synchronize(1)
		return d
	}
	p.nextToken() // [
	if tv, ok := p.expectSymbol(); ok {
		d.TyVar = tv.Literal
	}
	if p.curToken.Type == token.RBRACKET {
		p.nextToken()
	}

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.LPAREN {
			p.addError(diagnostics.ErrE201, p.curToken, "expected a method signature in defclass "+d.Name)
			p.synchronize(1)
			return d
		}
		methodOpen := p.curToken
		p.nextToken() // (
		mname, ok := p.expectSymbol()
		if !ok {
			p.synchronize(1)
			continue
		}
		method := ast.MethodDecl{Token: mname, Name: mname.Literal}

		if p.curToken.Type != token.LBRACKET {
			p.addError(diagnostics.ErrE201, p.curToken, "method "+method.Name+": expected argument type vector")
			p.synchronize(1)
			continue
		}
		p.nextToken() // [
		for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
			if te := p.parseTypeExpr(); te != nil {
				method.Params = append(method.Params, te)
			}
		}
		if p.curToken.Type == token.RBRACKET {
			p.nextToken()
		}

		method.Return = p.parseTypeExpr()

		if p.curToken.Type != token.RPAREN {
			method.Default = p.parseExpr()
		}
		p.consumeRParen(methodOpen)
		d.Methods = append(d.Methods, method)
	}
	p.consumeRParen(open)
	return d
}

func (p *Parser) parseInstance() ast.Decl {
	open := p.curToken
	p.nextToken() // (
	instTok := p.curToken
	p.nextToken() // instance

	class, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}
	d := &ast.InstanceDecl{Token: instTok, Class: class.Literal, ClassTok: class}

	// Head: a plain symbol (Int, Color) or a parameterized form (Maybe a).
	switch p.curToken.Type {
	case token.SYMBOL:
		d.HeadName = p.curToken.Literal
		d.HeadTok = p.curToken
		p.nextToken()
	case token.LPAREN:
		headOpen := p.curToken
		p.nextToken()
		head, ok := p.expectSymbol()
		if !ok {
			p.synchronize(1)
			return d
		}
		d.HeadName = head.Literal
		d.HeadTok = head
		for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
			if arg, ok := p.expectSymbol(); ok {
				d.HeadArgs = append(d.HeadArgs, arg.Literal)
			} else {
				p.nextToken()
			}
		}
		p.consumeRParen(headOpen)
	default:
		p.addError(diagnostics.ErrE201, p.curToken, "instance "+d.Class+": expected a type head")
		p.synchronize(1)
		return d
	}

	// Optional: where [(C1 a) ...]
	if p.curToken.Type == token.SYMBOL && p.curToken.Literal == "where" {
		p.nextToken()
		if p.expect(token.LBRACKET) {
			p.nextToken() // [
			for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
				if p.curToken.Type != token.LPAREN {
					p.addError(diagnostics.ErrE201, p.curToken, "expected (Class var) constraint")
					p.synchronize(1)
					return d
				}
				cOpen := p.curToken
				p.nextToken()
				cls, okC := p.expectSymbol()
				v, okV := p.expectSymbol()
				if okC && okV {
					d.Constraints = append(d.Constraints, ast.ConstraintDecl{Token: cls, Class: cls.Literal, Var: v.Literal})
				}
				p.consumeRParen(cOpen)
			}
			if p.curToken.Type == token.RBRACKET {
				p.nextToken()
			}
		}
	}

	// Methods: (name [params] body...)
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.LPAREN {
			p.addError(diagnostics.ErrE201, p.curToken, "expected a method implementation in instance "+d.Class)
			p.synchronize(1)
			return d
		}
		mOpen := p.curToken
		p.nextToken()
		mname, ok := p.expectSymbol()
		if !ok {
			p.synchronize(1)
			continue
		}
		m := ast.InstanceMethod{Token: mname, Name: mname.Literal}
		if p.curToken.Type != token.LBRACKET {
			p.addError(diagnostics.ErrE201, p.curToken, "method "+m.Name+": expected parameter vector")
			p.synchronize(1)
			continue
		}
		m.Params = p.parseParamVector()
		for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
			if expr := p.parseExpr(); expr != nil {
				m.Body = append(m.Body, expr)
			}
		}
		p.consumeRParen(mOpen)
		d.Methods = append(d.Methods, m)
	}
	p.consumeRParen(open)
	return d
}

func (p *Parser) parseProcess() ast.Decl {
	open := p.curToken
	p.nextToken() // (
	procTok := p.curToken
	p.nextToken() // process

	name, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}
	d := &ast.ProcessDecl{Token: procTok, Name: name.Literal, NameTok: name}

	d.Init = p.parseExpr()
	if d.Init == nil {
		p.addError(diagnostics.ErrE201, procTok, "process "+d.Name+": missing initial state")
		p.synchronize(1)
		return d
	}

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.KEYWORD {
			p.addError(diagnostics.ErrE201, p.curToken,
				fmt.Sprintf("process %s: expected a :tag, found %q", d.Name, p.curToken.Lexeme))
			p.synchronize(1)
			return d
		}
		tagTok := p.curToken
		p.nextToken()
		body := p.parseExpr()
		if body == nil {
			p.addError(diagnostics.ErrE201, tagTok, "process "+d.Name+": missing handler body for :"+tagTok.Literal)
			break
		}
		d.Handlers = append(d.Handlers, ast.MsgHandler{Token: tagTok, Tag: tagTok.Literal, Body: body})
	}
	p.consumeRParen(open)
	return d
}

func moduleStem(file string) string {
	base := file
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return "main"
	}
	return base
}

func parseIntLit(tok token.Token) (int64, error) {
	return strconv.ParseInt(tok.Literal, 10, 64)
}

func parseFloatLit(tok token.Token) (float64, error) {
	return strconv.ParseFloat(tok.Literal, 64)
}
