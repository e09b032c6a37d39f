package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// Printer renders types for diagnostics with human-friendly variable
// names: ordinary variables become a, b, c, ... in order of first
// appearance, field-access variables become ..a, ..b, ... and row tails
// keep a | marker. One Printer is used per diagnostic so that related
// types share a naming.
type Printer struct {
	names     map[VarID]string
	nextPlain VarID
	nextField VarID
}

func NewPrinter() *Printer {
	return &Printer{names: make(map[VarID]string)}
}

func (p *Printer) name(id VarID) string {
	if n, ok := p.names[id]; ok {
		return n
	}
	var n string
	if IsFieldVar(id) {
		n = ".." + varName(p.nextField)
		p.nextField++
	} else {
		n = varName(p.nextPlain)
		p.nextPlain++
	}
	p.names[id] = n
	return n
}

func (p *Printer) Print(t Type) string {
	switch v := t.(type) {
	case TVar:
		return p.name(v.ID)
	case RVar:
		return p.name(v.ID)
	case TCon:
		return v.Name
	case TAtom:
		return ":" + v.Sym
	case TList:
		return fmt.Sprintf("(List %s)", p.Print(v.Elem))
	case TTuple:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			parts[i] = p.Print(e)
		}
		return fmt.Sprintf("(Tuple %s)", strings.Join(parts, " "))
	case TRecord:
		return v.Name
	case TSum:
		if len(v.Args) == 0 {
			return v.Name
		}
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = p.Print(a)
		}
		return fmt.Sprintf("(%s %s)", v.Name, strings.Join(parts, " "))
	case TRow:
		fields := make([]Field, len(v.Fields))
		copy(fields, v.Fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Label < fields[j].Label })
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Label, p.Print(f.Type))
		}
		if v.Tail != nil {
			return fmt.Sprintf("{%s | %s}", strings.Join(parts, ", "), p.Print(v.Tail))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case TFunc:
		parts := make([]string, len(v.Params))
		for i, q := range v.Params {
			parts[i] = p.Print(q)
		}
		return fmt.Sprintf("(Fn [%s] %s)", strings.Join(parts, " "), p.Print(v.Return))
	case TPid:
		return fmt.Sprintf("(Pid %s)", v.Process)
	case TScheme:
		return p.Print(v.Body)
	}
	return t.String()
}

// PrintType renders a single type with fresh naming.
func PrintType(t Type) string {
	return NewPrinter().Print(t)
}
