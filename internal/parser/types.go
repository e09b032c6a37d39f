package parser

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/token"
)

// parseTypeExpr parses a surface type annotation: a named type, a type
// variable, or one of the (List T), (Tuple T...), (Fn [T...] R),
// (Pid name), (Name T...) forms.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	switch p.curToken.Type {
	case token.SYMBOL:
		tok := p.curToken
		p.nextToken()
		return &ast.TESym{Token: tok, Name: tok.Literal}

	case token.LPAREN:
		open := p.curToken
		p.nextToken() // (
		head, ok := p.expectSymbol()
		if !ok {
			p.synchronize(1)
			return nil
		}

		switch head.Literal {
		case "List":
			elem := p.parseTypeExpr()
			p.consumeRParen(open)
			if elem == nil {
				p.addError(diagnostics.ErrE201, head, "List needs an element type")
				return nil
			}
			return &ast.TEList{Token: head, Elem: elem}

		case "Tuple":
			te := &ast.TETuple{Token: head}
			for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
				if e := p.parseTypeExpr(); e != nil {
					te.Elems = append(te.Elems, e)
				}
			}
			p.consumeRParen(open)
			return te

		case "Fn":
			te := &ast.TEFn{Token: head}
			if p.curToken.Type != token.LBRACKET {
				p.addError(diagnostics.ErrE201, p.curToken, "Fn type needs a [params] vector")
				p.synchronize(1)
				return nil
			}
			p.nextToken() // [
			for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
				if e := p.parseTypeExpr(); e != nil {
					te.Params = append(te.Params, e)
				}
			}
			if p.curToken.Type == token.RBRACKET {
				p.nextToken()
			}
			te.Return = p.parseTypeExpr()
			p.consumeRParen(open)
			if te.Return == nil {
				p.addError(diagnostics.ErrE201, head, "Fn type needs a return type")
				return nil
			}
			return te

		case "Pid":
			proc, ok := p.expectSymbol()
			p.consumeRParen(open)
			if !ok {
				return nil
			}
			return &ast.TEPid{Token: head, Process: proc.Literal}

		default:
			te := &ast.TEApp{Token: head, Name: head.Literal}
			for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
				if e := p.parseTypeExpr(); e != nil {
					te.Args = append(te.Args, e)
				}
			}
			p.consumeRParen(open)
			return te
		}

	default:
		p.addError(diagnostics.ErrE201, p.curToken,
			fmt.Sprintf("unexpected token %q in type", p.curToken.Lexeme))
		p.nextToken()
		return nil
	}
}
