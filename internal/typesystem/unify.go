package typesystem

import (
	"fmt"
)

// VarSupply provides fresh row variables during unification. Row
// unification needs one when both rows carry fields the other side
// lacks and a shared leftover tail must be invented.
type VarSupply interface {
	FreshRowVar() RVar
}

// Unify attempts to find a substitution that makes t1 and t2 equal.
// The caller is expected to apply its current substitution to both
// sides first; Unify only accumulates new bindings.
func Unify(t1, t2 Type, supply VarSupply) (Subst, error) {
	return unify(t1, t2, supply)
}

func unify(t1, t2 Type, supply VarSupply) (Subst, error) {
	// Any is the recovery type: it absorbs everything so one error does
	// not cascade through the rest of the module.
	if isAny(t1) || isAny(t2) {
		return Subst{}, nil
	}

	if tv, ok := t1.(TVar); ok {
		return bindVar(tv, t2)
	}
	if tv, ok := t2.(TVar); ok {
		return bindVar(tv, t1)
	}

	switch a := t1.(type) {
	case TCon:
		switch b := t2.(type) {
		case TCon:
			if a.Name == b.Name {
				return Subst{}, nil
			}
			return nil, errUnify(t1, t2)
		case TAtom:
			// A singleton atom is an Atom.
			if a.Name == AtomType.Name {
				return Subst{}, nil
			}
			return nil, errUnify(t1, t2)
		case TPid:
			// A typed pid is a Pid.
			if a.Name == PidType.Name {
				return Subst{}, nil
			}
			return nil, errUnify(t1, t2)
		}
		return nil, errUnify(t1, t2)

	case TAtom:
		switch b := t2.(type) {
		case TAtom:
			if a.Sym == b.Sym {
				return Subst{}, nil
			}
			return nil, errUnify(t1, t2)
		case TCon:
			if b.Name == AtomType.Name {
				return Subst{}, nil
			}
		}
		return nil, errUnify(t1, t2)

	case TPid:
		switch b := t2.(type) {
		case TPid:
			if a.Process == b.Process {
				return Subst{}, nil
			}
			return nil, errUnify(t1, t2)
		case TCon:
			if b.Name == PidType.Name {
				return Subst{}, nil
			}
		}
		return nil, errUnify(t1, t2)

	case TList:
		if b, ok := t2.(TList); ok {
			return unify(a.Elem, b.Elem, supply)
		}
		return nil, errUnify(t1, t2)

	case TTuple:
		b, ok := t2.(TTuple)
		if !ok {
			return nil, errUnify(t1, t2)
		}
		if len(a.Elements) != len(b.Elements) {
			return nil, fmt.Errorf("tuple arity mismatch: %d vs %d", len(a.Elements), len(b.Elements))
		}
		return unifyAll(a.Elements, b.Elements, supply)

	case TFunc:
		b, ok := t2.(TFunc)
		if !ok {
			return nil, errUnify(t1, t2)
		}
		if len(a.Params) != len(b.Params) {
			return nil, fmt.Errorf("function arity mismatch: %d vs %d parameters", len(a.Params), len(b.Params))
		}
		s, err := unifyAll(a.Params, b.Params, supply)
		if err != nil {
			return nil, err
		}
		s2, err := unify(a.Return.Apply(s), b.Return.Apply(s), supply)
		if err != nil {
			return nil, err
		}
		return s.Compose(s2), nil

	case TRecord:
		switch b := t2.(type) {
		case TRecord:
			return unifyRecords(a, b, supply)
		case TRow:
			// A record is a closed row with exactly its fields.
			return unifyRows(recordAsRow(a), b, supply)
		case RVar:
			return bindRowVar(b, a)
		}
		return nil, errUnify(t1, t2)

	case TSum:
		b, ok := t2.(TSum)
		if !ok {
			return nil, errUnify(t1, t2)
		}
		if a.Name != b.Name || len(a.Args) != len(b.Args) {
			return nil, errUnify(t1, t2)
		}
		return unifyAll(a.Args, b.Args, supply)

	case TRow:
		switch b := t2.(type) {
		case TRow:
			return unifyRows(a, b, supply)
		case TRecord:
			return unifyRows(a, recordAsRow(b), supply)
		case RVar:
			return bindRowVar(b, a)
		}
		return nil, errUnify(t1, t2)

	case RVar:
		return bindRowVar(a, t2)

	case TScheme:
		return nil, fmt.Errorf("cannot unify polymorphic type %s; instantiate it first", t1)
	}

	if rv, ok := t2.(RVar); ok {
		return bindRowVar(rv, t1)
	}
	return nil, errUnify(t1, t2)
}

func unifyAll(ts1, ts2 []Type, supply VarSupply) (Subst, error) {
	s := Subst{}
	for i := range ts1 {
		s2, err := unify(ts1[i].Apply(s), ts2[i].Apply(s), supply)
		if err != nil {
			return nil, err
		}
		s = s.Compose(s2)
	}
	return s, nil
}

func unifyRecords(a, b TRecord, supply VarSupply) (Subst, error) {
	if a.Name != b.Name {
		return nil, errUnify(a, b)
	}
	s := Subst{}
	for _, fa := range a.Fields {
		fb, ok := b.FieldType(fa.Label)
		if !ok {
			return nil, fmt.Errorf("record %s is missing field %s", b.Name, fa.Label)
		}
		s2, err := unify(fa.Type.Apply(s), fb.Apply(s), supply)
		if err != nil {
			return nil, fmt.Errorf("in field %s: %w", fa.Label, err)
		}
		s = s.Compose(s2)
	}
	for _, fb := range b.Fields {
		if _, ok := a.FieldType(fb.Label); !ok {
			return nil, fmt.Errorf("record %s has extra field %s", b.Name, fb.Label)
		}
	}
	return s, nil
}

func recordAsRow(r TRecord) TRow {
	fields := make([]Field, len(r.Fields))
	copy(fields, r.Fields)
	return TRow{Fields: fields}
}

// unifyRows unifies two structural rows. Labels are partitioned into
// common, left-only and right-only; a side's leftover fields must be
// absorbed by the other side's tail.
func unifyRows(a, b TRow, supply VarSupply) (Subst, error) {
	s := Subst{}

	var onlyA, onlyB []Field
	for _, fa := range a.Fields {
		if tb, ok := b.FieldType(fa.Label); ok {
			s2, err := unify(fa.Type.Apply(s), tb.Apply(s), supply)
			if err != nil {
				return nil, fmt.Errorf("in field %s: %w", fa.Label, err)
			}
			s = s.Compose(s2)
		} else {
			onlyA = append(onlyA, fa)
		}
	}
	for _, fb := range b.Fields {
		if _, ok := a.FieldType(fb.Label); !ok {
			onlyB = append(onlyB, fb)
		}
	}

	tailA := applyTail(a.Tail, s)
	tailB := applyTail(b.Tail, s)

	switch {
	case len(onlyA) == 0 && len(onlyB) == 0:
		s2, err := unifyTails(tailA, tailB)
		if err != nil {
			return nil, err
		}
		return s.Compose(s2), nil

	case len(onlyA) > 0 && len(onlyB) == 0:
		// b's tail must absorb a's extra fields.
		rv, ok := tailB.(RVar)
		if !ok {
			return nil, fmt.Errorf("row is missing fields %s", fieldLabels(onlyA))
		}
		if rowTailContains(tailA, rv.ID) {
			return nil, fmt.Errorf("infinite row detected for %s", rv)
		}
		s.Bind(rv.ID, TRow{Fields: applyFields(onlyA, s), Tail: tailA})
		return s, nil

	case len(onlyB) > 0 && len(onlyA) == 0:
		rv, ok := tailA.(RVar)
		if !ok {
			return nil, fmt.Errorf("row is missing fields %s", fieldLabels(onlyB))
		}
		if rowTailContains(tailB, rv.ID) {
			return nil, fmt.Errorf("infinite row detected for %s", rv)
		}
		s.Bind(rv.ID, TRow{Fields: applyFields(onlyB, s), Tail: tailB})
		return s, nil

	default:
		// Both sides have leftover fields: both tails must be open, and
		// they share a fresh common tail.
		rva, okA := tailA.(RVar)
		rvb, okB := tailB.(RVar)
		if !okA {
			return nil, fmt.Errorf("row is missing fields %s", fieldLabels(onlyB))
		}
		if !okB {
			return nil, fmt.Errorf("row is missing fields %s", fieldLabels(onlyA))
		}
		if supply == nil {
			return nil, fmt.Errorf("cannot extend rows without a variable supply")
		}
		shared := supply.FreshRowVar()
		s.Bind(rva.ID, TRow{Fields: applyFields(onlyB, s), Tail: shared})
		s.Bind(rvb.ID, TRow{Fields: applyFields(onlyA, s), Tail: shared})
		return s, nil
	}
}

func unifyTails(ta, tb Type) (Subst, error) {
	switch {
	case ta == nil && tb == nil:
		return Subst{}, nil
	case ta == nil:
		// Binding a row variable to Closed closes the row.
		rv, ok := tb.(RVar)
		if !ok {
			return nil, fmt.Errorf("cannot close row tail %s", tb)
		}
		return Subst{rv.ID: TRow{}}, nil
	case tb == nil:
		rv, ok := ta.(RVar)
		if !ok {
			return nil, fmt.Errorf("cannot close row tail %s", ta)
		}
		return Subst{rv.ID: TRow{}}, nil
	default:
		rva, okA := ta.(RVar)
		rvb, okB := tb.(RVar)
		if !okA || !okB {
			return unify(ta, tb, nil)
		}
		if rva.ID == rvb.ID {
			return Subst{}, nil
		}
		return Subst{rva.ID: rvb}, nil
	}
}

func applyTail(tail Type, s Subst) Type {
	if tail == nil {
		return nil
	}
	applied := tail.Apply(s)
	if row, ok := applied.(TRow); ok && len(row.Fields) == 0 {
		return row.Tail
	}
	return applied
}

func applyFields(fields []Field, s Subst) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Label: f.Label, Type: f.Type.Apply(s)}
	}
	return out
}

func rowTailContains(tail Type, id VarID) bool {
	if tail == nil {
		return false
	}
	for _, v := range tail.FreeTypeVars() {
		if v == id {
			return true
		}
	}
	return false
}

func fieldLabels(fields []Field) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f.Label
	}
	return out
}

// bindVar binds a type variable to a type, performing the occurs check.
func bindVar(tv TVar, t Type) (Subst, error) {
	if other, ok := t.(TVar); ok && other.ID == tv.ID {
		return Subst{}, nil
	}
	if OccursCheck(tv.ID, t) {
		return nil, fmt.Errorf("infinite type detected: %s occurs in %s", tv, t)
	}
	return Subst{tv.ID: t}, nil
}

func bindRowVar(rv RVar, t Type) (Subst, error) {
	switch t.(type) {
	case RVar, TRow, TRecord:
	default:
		return nil, fmt.Errorf("cannot bind row variable %s to %s", rv, t)
	}
	if other, ok := t.(RVar); ok && other.ID == rv.ID {
		return Subst{}, nil
	}
	if OccursCheck(rv.ID, t) {
		return nil, fmt.Errorf("infinite row detected: %s occurs in %s", rv, t)
	}
	if rec, ok := t.(TRecord); ok {
		t = recordAsRow(rec)
	}
	return Subst{rv.ID: t}, nil
}

// OccursCheck reports whether id appears free in t.
func OccursCheck(id VarID, t Type) bool {
	for _, v := range t.FreeTypeVars() {
		if v == id {
			return true
		}
	}
	return false
}

func isAny(t Type) bool {
	c, ok := t.(TCon)
	return ok && c.Name == AnyType.Name
}

// AtomLike reports whether t is a specific or universal atom type.
// Branches carrying different specific atoms join at the universal Atom.
func AtomLike(t Type) bool {
	switch v := t.(type) {
	case TAtom:
		return true
	case TCon:
		return v.Name == AtomType.Name
	}
	return false
}

func errUnify(t1, t2 Type) error {
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}
