package elaborator

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/tast"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// elaboratePattern checks a pattern against the scrutinee type,
// extending the current environment frame with its bindings.
func (c *Context) elaboratePattern(p ast.Pattern, scrutT typesystem.Type) []tast.PatternBinding {
	switch pat := p.(type) {
	case *ast.PWild:
		return nil

	case *ast.PVar:
		t := c.Apply(scrutT)
		c.env.Extend(pat.Name, t)
		c.env.MarkLocal(pat.Name)
		return []tast.PatternBinding{{Name: pat.Name, Ty: t}}

	case *ast.PLit:
		_, litT := c.infer(pat.Value)
		c.Unify(litT, scrutT, diagnostics.ErrE001, pat.Token)
		return nil

	case *ast.PCtor:
		return c.elaborateCtorPattern(pat, scrutT)

	case *ast.PList:
		elem := c.Fresh()
		if !c.Unify(scrutT, typesystem.TList{Elem: elem}, diagnostics.ErrE008, pat.Token) {
			return nil
		}
		var bindings []tast.PatternBinding
		for _, sub := range pat.Elems {
			bindings = append(bindings, c.elaboratePattern(sub, elem)...)
		}
		return bindings

	case *ast.PCons:
		elem := c.Fresh()
		if !c.Unify(scrutT, typesystem.TList{Elem: elem}, diagnostics.ErrE007, pat.Token) {
			return nil
		}
		bindings := c.elaboratePattern(pat.Head, elem)
		bindings = append(bindings, c.elaboratePattern(pat.Tail, typesystem.TList{Elem: elem})...)
		return bindings

	case *ast.PTuple:
		elems := make([]typesystem.Type, len(pat.Elems))
		for i := range elems {
			elems[i] = c.Fresh()
		}
		if !c.Unify(scrutT, typesystem.TTuple{Elements: elems}, diagnostics.ErrE001, pat.Token) {
			return nil
		}
		var bindings []tast.PatternBinding
		for i, sub := range pat.Elems {
			bindings = append(bindings, c.elaboratePattern(sub, elems[i])...)
		}
		return bindings
	}
	return nil
}

func (c *Context) elaborateCtorPattern(pat *ast.PCtor, scrutT typesystem.Type) []tast.PatternBinding {
	typeName, ok := c.ctors[pat.Name]
	if !ok {
		d := c.errorf(diagnostics.ErrE102, pat.Token, "unknown constructor "+pat.Name)
		if s, ok := diagnostics.Suggest(pat.Name, c.lexicon); ok {
			d.WithHint("did you mean " + s + "?")
		}
		return nil
	}

	def := c.types[typeName]
	if def == nil {
		return nil
	}

	if !def.IsSum {
		// Record pattern: (Point px py) binds fields positionally.
		rec, ok := c.recordType(def).(typesystem.TRecord)
		if !ok {
			return nil
		}
		if !c.Unify(scrutT, rec, diagnostics.ErrE001, pat.Token) {
			return nil
		}
		if len(pat.Args) != len(rec.Fields) {
			c.errorf(diagnostics.ErrE005, pat.Token,
				fmt.Sprintf("record %s has %d fields, pattern names %d", def.Name, len(rec.Fields), len(pat.Args)))
			return nil
		}
		var bindings []tast.PatternBinding
		for i, sub := range pat.Args {
			bindings = append(bindings, c.elaboratePattern(sub, rec.Fields[i].Type)...)
		}
		return bindings
	}

	args := make([]typesystem.Type, len(def.Params))
	for i := range args {
		args[i] = c.Fresh()
	}
	sum := typesystem.TSum{Name: def.Name, Args: args}
	if !c.Unify(scrutT, sum, diagnostics.ErrE001, pat.Token) {
		return nil
	}

	fields, ok := c.variantFieldTypes(applySum(c, sum), pat.Name)
	if !ok {
		c.errorf(diagnostics.ErrE102, pat.Token,
			fmt.Sprintf("type %s has no constructor %s", def.Name, pat.Name))
		return nil
	}
	if len(pat.Args) != len(fields) {
		c.errorf(diagnostics.ErrE005, pat.Token,
			fmt.Sprintf("constructor %s takes %d arguments, pattern has %d", pat.Name, len(fields), len(pat.Args)))
		return nil
	}
	var bindings []tast.PatternBinding
	for i, sub := range pat.Args {
		bindings = append(bindings, c.elaboratePattern(sub, fields[i])...)
	}
	return bindings
}

func applySum(c *Context, sum typesystem.TSum) typesystem.TSum {
	applied, ok := c.Apply(sum).(typesystem.TSum)
	if !ok {
		return sum
	}
	return applied
}

// --- exhaustiveness ---

// checkExhaustiveness runs the usefulness analysis over the clause
// patterns of a match. Non-exhaustive matches name a missing witness;
// clauses after an irrefutable pattern are flagged as redundant
// warnings.
func (c *Context) checkExhaustiveness(m *ast.Match, scrutT typesystem.Type) {
	pats := make([]ast.Pattern, len(m.Clauses))
	for i, cl := range m.Clauses {
		pats[i] = cl.Pattern
	}
	if len(pats) == 0 {
		return
	}

	for i := 0; i < len(pats)-1; i++ {
		if c.patternIrrefutable(pats[i], scrutT) {
			c.warnf(diagnostics.ErrE021, m.Clauses[i+1].Token,
				"clause is unreachable; an earlier pattern already matches everything")
			break
		}
	}

	if witness, ok := c.coverageWitness(scrutT, pats); !ok {
		c.errorf(diagnostics.ErrE020, m.Token,
			"match is not exhaustive; "+witness+" is not covered")
	}
}

// patternIrrefutable reports whether p matches every value of type t.
func (c *Context) patternIrrefutable(p ast.Pattern, t typesystem.Type) bool {
	switch pat := p.(type) {
	case *ast.PWild, *ast.PVar:
		return true
	case *ast.PTuple:
		tup, ok := c.Apply(t).(typesystem.TTuple)
		if !ok || len(tup.Elements) != len(pat.Elems) {
			return false
		}
		for i, sub := range pat.Elems {
			if !c.patternIrrefutable(sub, tup.Elements[i]) {
				return false
			}
		}
		return true
	case *ast.PCtor:
		sum, ok := c.Apply(t).(typesystem.TSum)
		if !ok {
			return false
		}
		variants := c.sumVariants(sum.Name)
		if len(variants) != 1 || variants[0].Ctor != pat.Name {
			return false
		}
		fields, ok := c.variantFieldTypes(sum, pat.Name)
		if !ok || len(fields) != len(pat.Args) {
			return false
		}
		for i, sub := range pat.Args {
			if !c.patternIrrefutable(sub, fields[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// coverageWitness reports whether the pattern set covers every value
// of type t; if not, it describes a missing witness.
func (c *Context) coverageWitness(t typesystem.Type, pats []ast.Pattern) (string, bool) {
	for _, p := range pats {
		if c.patternIrrefutable(p, t) {
			return "", true
		}
	}

	switch v := c.Apply(t).(type) {
	case typesystem.TSum:
		variants := c.sumVariants(v.Name)
		for _, variant := range variants {
			if !c.variantCovered(v, variant, pats) {
				return "(" + variant.Ctor + witnessArgs(len(variant.Fields)) + ")", false
			}
		}
		return "", true

	case typesystem.TCon:
		if v.Name == "Bool" {
			sawTrue, sawFalse := false, false
			for _, p := range pats {
				if lit, ok := p.(*ast.PLit); ok {
					if b, ok := lit.Value.(*ast.BoolLit); ok {
						if b.Value {
							sawTrue = true
						} else {
							sawFalse = true
						}
					}
				}
			}
			if sawTrue && sawFalse {
				return "", true
			}
			if sawTrue {
				return "false", false
			}
			return "true", false
		}
		// Open types (Int, String, Atom, ...) need a catch-all.
		return "_", false

	case typesystem.TList:
		sawEmpty, sawCons := false, false
		for _, p := range pats {
			switch pl := p.(type) {
			case *ast.PList:
				if len(pl.Elems) == 0 {
					sawEmpty = true
				}
			case *ast.PCons:
				if c.patternIrrefutable(pl.Head, v.Elem) && c.patternIrrefutable(pl.Tail, typesystem.TList{Elem: v.Elem}) {
					sawCons = true
				}
			}
		}
		if sawEmpty && sawCons {
			return "", true
		}
		if sawEmpty {
			return "[x | rest]", false
		}
		return "[]", false

	case typesystem.TTuple:
		// A tuple is covered when some tuple pattern covers each slot.
		for _, p := range pats {
			if pt, ok := p.(*ast.PTuple); ok && len(pt.Elems) == len(v.Elements) {
				all := true
				for i, sub := range pt.Elems {
					if _, covered := c.coverageWitness(v.Elements[i], []ast.Pattern{sub}); !covered {
						all = false
						break
					}
				}
				if all {
					return "", true
				}
			}
		}
		return "(tuple ...)", false
	}

	return "_", false
}

// variantCovered reports whether some clause covers the variant: a
// constructor pattern whose sub-patterns are each exhaustive on their
// own.
func (c *Context) variantCovered(sum typesystem.TSum, variant VariantDef, pats []ast.Pattern) bool {
	fields, ok := c.variantFieldTypes(sum, variant.Ctor)
	if !ok {
		return false
	}
	for _, p := range pats {
		ctor, ok := p.(*ast.PCtor)
		if !ok || ctor.Name != variant.Ctor || len(ctor.Args) != len(fields) {
			continue
		}
		all := true
		for i, sub := range ctor.Args {
			if _, covered := c.coverageWitness(fields[i], []ast.Pattern{sub}); !covered {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func witnessArgs(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += " _"
	}
	return out
}
