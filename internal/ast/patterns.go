package ast

import "github.com/vaisto-lang/vaisto/internal/token"

// Pattern is a match pattern.
type Pattern interface {
	Node
	patternNode()
}

// PLit matches a literal value: integers, floats, strings, booleans
// and atoms.
type PLit struct {
	Token token.Token
	Value Expr // one of the literal expression nodes
}

func (p *PLit) patternNode()          {}
func (p *PLit) GetToken() token.Token { return p.Token }

// PVar binds the scrutinee (or a component of it) to a name.
type PVar struct {
	Token token.Token
	Name  string
}

func (p *PVar) patternNode()          {}
func (p *PVar) GetToken() token.Token { return p.Token }

// PWild is the wildcard pattern _.
type PWild struct {
	Token token.Token
}

func (p *PWild) patternNode()          {}
func (p *PWild) GetToken() token.Token { return p.Token }

// PCtor matches a sum-type constructor or a record: (Just x), (Red),
// (Point px py).
type PCtor struct {
	Token token.Token
	Name  string
	Args  []Pattern
}

func (p *PCtor) patternNode()          {}
func (p *PCtor) GetToken() token.Token { return p.Token }

// PList matches a list of exactly the given elements; [] matches the
// empty list.
type PList struct {
	Token token.Token
	Elems []Pattern
}

func (p *PList) patternNode()          {}
func (p *PList) GetToken() token.Token { return p.Token }

// PCons matches a non-empty list: [h | t].
type PCons struct {
	Token token.Token
	Head  Pattern
	Tail  Pattern
}

func (p *PCons) patternNode()          {}
func (p *PCons) GetToken() token.Token { return p.Token }

// PTuple matches a tuple: (tuple p1 p2 ...).
type PTuple struct {
	Token token.Token
	Elems []Pattern
}

func (p *PTuple) patternNode()          {}
func (p *PTuple) GetToken() token.Token { return p.Token }
