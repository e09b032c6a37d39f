package parser

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/token"
)

func (p *Parser) parseExpr() ast.Expr {
	switch p.curToken.Type {
	case token.INT:
		tok := p.curToken
		v, err := parseIntLit(tok)
		if err != nil {
			p.addError(diagnostics.ErrE201, tok, "invalid integer literal "+tok.Lexeme)
		}
		p.nextToken()
		return &ast.IntLit{Token: tok, Value: v}

	case token.FLOAT:
		tok := p.curToken
		v, err := parseFloatLit(tok)
		if err != nil {
			p.addError(diagnostics.ErrE201, tok, "invalid float literal "+tok.Lexeme)
		}
		p.nextToken()
		return &ast.FloatLit{Token: tok, Value: v}

	case token.STRING:
		tok := p.curToken
		p.nextToken()
		return &ast.StringLit{Token: tok, Value: tok.Literal}

	case token.KEYWORD:
		tok := p.curToken
		p.nextToken()
		return &ast.AtomLit{Token: tok, Sym: tok.Literal}

	case token.SYMBOL:
		tok := p.curToken
		p.nextToken()
		switch tok.Literal {
		case "true":
			return &ast.BoolLit{Token: tok, Value: true}
		case "false":
			return &ast.BoolLit{Token: tok, Value: false}
		}
		return &ast.Symbol{Token: tok, Name: tok.Literal}

	case token.LBRACKET:
		return p.parseListLit()

	case token.LPAREN:
		return p.parseForm()

	default:
		p.addError(diagnostics.ErrE201, p.curToken,
			fmt.Sprintf("unexpected token %q in expression", p.curToken.Lexeme))
		p.nextToken()
		return nil
	}
}

func (p *Parser) parseListLit() ast.Expr {
	open := p.curToken
	p.nextToken() // [
	lit := &ast.ListLit{Token: open}
	for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
		if e := p.parseExpr(); e != nil {
			lit.Elems = append(lit.Elems, e)
		}
	}
	if p.curToken.Type == token.RBRACKET {
		p.nextToken()
	} else {
		p.addError(diagnostics.ErrE201, open, "unterminated list literal")
	}
	return lit
}

func (p *Parser) parseForm() ast.Expr {
	open := p.curToken
	p.nextToken() // (

	if p.curToken.Type == token.RPAREN {
		p.nextToken()
		return &ast.UnitLit{Token: open}
	}

	if p.curToken.Type == token.SYMBOL {
		switch p.curToken.Literal {
		case "if":
			return p.parseIf(open)
		case "let":
			return p.parseLet(open)
		case "fn":
			return p.parseFn(open)
		case "do":
			return p.parseDo(open)
		case "match":
			return p.parseMatch(open)
		case ".":
			return p.parseFieldAccess(open)
		case "spawn":
			return p.parseSpawn(open)
		case "!":
			return p.parseSend(open, true)
		case "!!":
			return p.parseSend(open, false)
		case "tuple":
			return p.parseTupleLit(open)
		}
	}

	// General application.
	fn := p.parseExpr()
	call := &ast.Call{Token: open, Fn: fn}
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if e := p.parseExpr(); e != nil {
			call.Args = append(call.Args, e)
		}
	}
	p.consumeRParen(open)
	return call
}

func (p *Parser) parseIf(open token.Token) ast.Expr {
	ifTok := p.curToken
	p.nextToken() // if
	cond := p.parseExpr()
	then := p.parseExpr()
	els := p.parseExpr()
	if cond == nil || then == nil || els == nil {
		p.addError(diagnostics.ErrE201, ifTok, "if requires a condition and two branches")
	}
	p.consumeRParen(open)
	return &ast.If{Token: ifTok, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseLet(open token.Token) ast.Expr {
	letTok := p.curToken
	p.nextToken() // let

	let := &ast.Let{Token: letTok}
	if p.curToken.Type != token.LBRACKET {
		p.addError(diagnostics.ErrE201, p.curToken, "let: expected a binding vector")
		p.synchronize(1)
		return let
	}
	p.nextToken() // [
	for p.curToken.Type != token.RBRACKET && p.curToken.Type != token.EOF {
		nameTok, ok := p.expectSymbol()
		if !ok {
			p.nextToken()
			continue
		}
		value := p.parseExpr()
		if value == nil {
			p.addError(diagnostics.ErrE201, nameTok, "let binding "+nameTok.Literal+" has no value")
			break
		}
		let.Bindings = append(let.Bindings, ast.LetBinding{Token: nameTok, Name: nameTok.Literal, Value: value})
	}
	if p.curToken.Type == token.RBRACKET {
		p.nextToken()
	}

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if e := p.parseExpr(); e != nil {
			let.Body = append(let.Body, e)
		}
	}
	if len(let.Body) == 0 {
		p.addError(diagnostics.ErrE201, letTok, "let has no body")
	}
	p.consumeRParen(open)
	return let
}

func (p *Parser) parseFn(open token.Token) ast.Expr {
	fnTok := p.curToken
	p.nextToken() // fn

	fn := &ast.Fn{Token: fnTok}
	if p.curToken.Type != token.LBRACKET {
		p.addError(diagnostics.ErrE201, p.curToken, "fn: expected a parameter vector")
		p.synchronize(1)
		return fn
	}
	fn.Params = p.parseParamVector()

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if e := p.parseExpr(); e != nil {
			fn.Body = append(fn.Body, e)
		}
	}
	if len(fn.Body) == 0 {
		p.addError(diagnostics.ErrE201, fnTok, "fn has no body")
	}
	p.consumeRParen(open)
	return fn
}

func (p *Parser) parseDo(open token.Token) ast.Expr {
	doTok := p.curToken
	p.nextToken() // do
	d := &ast.Do{Token: doTok}
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if e := p.parseExpr(); e != nil {
			d.Exprs = append(d.Exprs, e)
		}
	}
	if len(d.Exprs) == 0 {
		p.addError(diagnostics.ErrE201, doTok, "do has no expressions")
	}
	p.consumeRParen(open)
	return d
}

func (p *Parser) parseMatch(open token.Token) ast.Expr {
	matchTok := p.curToken
	p.nextToken() // match

	m := &ast.Match{Token: matchTok}
	m.Scrutinee = p.parseExpr()
	if m.Scrutinee == nil {
		p.addError(diagnostics.ErrE201, matchTok, "match has no scrutinee")
		p.synchronize(1)
		return m
	}

	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if p.curToken.Type != token.LBRACKET {
			p.addError(diagnostics.ErrE201, p.curToken, "match: expected a [pattern body] clause")
			p.synchronize(1)
			return m
		}
		clauseTok := p.curToken
		p.nextToken() // [
		pat := p.parsePattern()
		body := p.parseExpr()
		if pat == nil || body == nil {
			p.addError(diagnostics.ErrE201, clauseTok, "match clause needs a pattern and a body")
			p.synchronize(1)
			return m
		}
		if p.curToken.Type == token.RBRACKET {
			p.nextToken()
		} else {
			p.addError(diagnostics.ErrE201, p.curToken, "expected ] to close match clause")
		}
		m.Clauses = append(m.Clauses, ast.MatchClause{Token: clauseTok, Pattern: pat, Body: body})
	}
	if len(m.Clauses) == 0 {
		p.addError(diagnostics.ErrE201, matchTok, "match has no clauses")
	}
	p.consumeRParen(open)
	return m
}

func (p *Parser) parseFieldAccess(open token.Token) ast.Expr {
	dotTok := p.curToken
	p.nextToken() // .
	target := p.parseExpr()
	if p.curToken.Type != token.KEYWORD {
		p.addError(diagnostics.ErrE201, p.curToken, "field access: expected a :field keyword")
		p.synchronize(1)
		return &ast.FieldAccess{Token: dotTok, Target: target}
	}
	fieldTok := p.curToken
	p.nextToken()
	p.consumeRParen(open)
	return &ast.FieldAccess{Token: dotTok, Target: target, Field: fieldTok.Literal, FieldTok: fieldTok}
}

func (p *Parser) parseSpawn(open token.Token) ast.Expr {
	spawnTok := p.curToken
	p.nextToken() // spawn
	nameTok, ok := p.expectSymbol()
	if !ok {
		p.synchronize(1)
		return &ast.Spawn{Token: spawnTok}
	}
	init := p.parseExpr()
	if init == nil {
		p.addError(diagnostics.ErrE201, spawnTok, "spawn requires an initial state expression")
	}
	p.consumeRParen(open)
	return &ast.Spawn{Token: spawnTok, Process: nameTok.Literal, ProcessTok: nameTok, Init: init}
}

func (p *Parser) parseSend(open token.Token, safe bool) ast.Expr {
	sendTok := p.curToken
	p.nextToken() // ! or !!
	pid := p.parseExpr()
	msg := p.parseExpr()
	if pid == nil || msg == nil {
		p.addError(diagnostics.ErrE201, sendTok, "send requires a pid and a message")
	}
	p.consumeRParen(open)
	return &ast.Send{Token: sendTok, Safe: safe, Pid: pid, Msg: msg}
}

func (p *Parser) parseTupleLit(open token.Token) ast.Expr {
	tupTok := p.curToken
	p.nextToken() // tuple
	lit := &ast.TupleLit{Token: tupTok}
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		if e := p.parseExpr(); e != nil {
			lit.Elems = append(lit.Elems, e)
		}
	}
	p.consumeRParen(open)
	return lit
}
