package parser

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/token"
)

func (p *Parser) parsePattern() ast.Pattern {
	switch p.curToken.Type {
	case token.INT:
		tok := p.curToken
		v, _ := parseIntLit(tok)
		p.nextToken()
		return &ast.PLit{Token: tok, Value: &ast.IntLit{Token: tok, Value: v}}

	case token.FLOAT:
		tok := p.curToken
		v, _ := parseFloatLit(tok)
		p.nextToken()
		return &ast.PLit{Token: tok, Value: &ast.FloatLit{Token: tok, Value: v}}

	case token.STRING:
		tok := p.curToken
		p.nextToken()
		return &ast.PLit{Token: tok, Value: &ast.StringLit{Token: tok, Value: tok.Literal}}

	case token.KEYWORD:
		tok := p.curToken
		p.nextToken()
		return &ast.PLit{Token: tok, Value: &ast.AtomLit{Token: tok, Sym: tok.Literal}}

	case token.SYMBOL:
		tok := p.curToken
		p.nextToken()
		switch tok.Literal {
		case "_":
			return &ast.PWild{Token: tok}
		case "true":
			return &ast.PLit{Token: tok, Value: &ast.BoolLit{Token: tok, Value: true}}
		case "false":
			return &ast.PLit{Token: tok, Value: &ast.BoolLit{Token: tok, Value: false}}
		}
		return &ast.PVar{Token: tok, Name: tok.Literal}

	case token.LBRACKET:
		return p.parseListPattern()

	case token.LPAREN:
		return p.parseCtorPattern()

	default:
		p.addError(diagnostics.ErrE201, p.curToken,
			fmt.Sprintf("unexpected token %q in pattern", p.curToken.Lexeme))
		p.nextToken()
		return nil
	}
}

// parseListPattern handles [], [a b c] and [h | t].
func (p *Parser) parseListPattern() ast.Pattern {
	open := p.curToken
	p.nextToken() // [

	var elems []ast.Pattern
	for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
		if p.curToken.Type == token.PIPE {
			p.nextToken() // |
			tail := p.parsePattern()
			if p.curToken.Type == token.RBRACKET {
				p.nextToken()
			} else {
				p.addError(diagnostics.ErrE201, open, "expected ] after cons tail")
			}
			if len(elems) != 1 || tail == nil {
				p.addError(diagnostics.ErrE201, open, "cons pattern must be [head | tail]")
				return &ast.PList{Token: open, Elems: elems}
			}
			return &ast.PCons{Token: open, Head: elems[0], Tail: tail}
		}
		if e := p.parsePattern(); e != nil {
			elems = append(elems, e)
		}
	}
	if p.curToken.Type == token.RBRACKET {
		p.nextToken()
	} else {
		p.addError(diagnostics.ErrE201, open, "unterminated list pattern")
	}
	return &ast.PList{Token: open, Elems: elems}
}

// parseCtorPattern handles (Ctor p...) and (tuple p...).
func (p *Parser) parseCtorPattern() ast.Pattern {
	open := p.curToken
	p.nextToken() // (

	head, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return nil
	}

	var args []ast.Pattern
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if e := p.parsePattern(); e != nil {
			args = append(args, e)
		}
	}
	p.consumeRParen(open)

	if head.Literal == "tuple" {
		return &ast.PTuple{Token: head, Elems: args}
	}
	return &ast.PCtor{Token: head, Name: head.Literal, Args: args}
}
