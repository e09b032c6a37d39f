package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// VarID identifies a type or row variable. Ordinary inference variables
// live in the low half of the id space; variables introduced by field
// access live at FieldVarBase and above so that they can be recognized
// and printed differently.
type VarID uint32

const FieldVarBase VarID = 1 << 27

// IsFieldVar reports whether id was introduced by a field access.
func IsFieldVar(id VarID) bool { return id >= FieldVarBase }

// Type is the interface for all types in the system.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVars() []VarID
}

// TCon represents a primitive type constant: Int, Float, Bool, String,
// Atom (the universal atom type), Unit, Any, Pid.
type TCon struct {
	Name string
}

var (
	IntType    = TCon{Name: "Int"}
	FloatType  = TCon{Name: "Float"}
	BoolType   = TCon{Name: "Bool"}
	StringType = TCon{Name: "String"}
	AtomType   = TCon{Name: "Atom"}
	UnitType   = TCon{Name: "Unit"}
	AnyType    = TCon{Name: "Any"}
	PidType    = TCon{Name: "Pid"}
)

func (t TCon) String() string        { return t.Name }
func (t TCon) Apply(s Subst) Type    { return t }
func (t TCon) FreeTypeVars() []VarID { return nil }

// TAtom is a singleton atom type, e.g. the type of the literal :inc.
type TAtom struct {
	Sym string
}

func (t TAtom) String() string        { return ":" + t.Sym }
func (t TAtom) Apply(s Subst) Type    { return t }
func (t TAtom) FreeTypeVars() []VarID { return nil }

// TVar represents a type variable.
type TVar struct {
	ID VarID
}

func (t TVar) String() string {
	if IsFieldVar(t.ID) {
		return fmt.Sprintf("..%s", varName(t.ID-FieldVarBase))
	}
	return fmt.Sprintf("t%d", t.ID)
}

func (t TVar) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t TVar) FreeTypeVars() []VarID { return []VarID{t.ID} }

// RVar represents a row variable: the unknown tail of an open row.
type RVar struct {
	ID VarID
}

func (t RVar) String() string        { return fmt.Sprintf("r%d", t.ID) }
func (t RVar) Apply(s Subst) Type    { return applyWithCycleCheck(t, s, nil) }
func (t RVar) FreeTypeVars() []VarID { return []VarID{t.ID} }

// TList represents a homogeneous list type.
type TList struct {
	Elem Type
}

func (t TList) String() string     { return fmt.Sprintf("(List %s)", t.Elem) }
func (t TList) Apply(s Subst) Type { return applyWithCycleCheck(t, s, nil) }
func (t TList) FreeTypeVars() []VarID {
	return t.Elem.FreeTypeVars()
}

// TTuple represents a tuple type.
type TTuple struct {
	Elements []Type
}

func (t TTuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(Tuple %s)", strings.Join(parts, " "))
}

func (t TTuple) Apply(s Subst) Type { return applyWithCycleCheck(t, s, nil) }

func (t TTuple) FreeTypeVars() []VarID {
	var vars []VarID
	for _, e := range t.Elements {
		vars = append(vars, e.FreeTypeVars()...)
	}
	return uniqueVarIDs(vars)
}

// Field is a labelled component of a record or row.
type Field struct {
	Label string
	Type  Type
}

// TRecord is a nominal product type with labelled fields.
type TRecord struct {
	Name   string
	Fields []Field
}

func (t TRecord) String() string { return t.Name }

func (t TRecord) Apply(s Subst) Type { return applyWithCycleCheck(t, s, nil) }

func (t TRecord) FreeTypeVars() []VarID {
	var vars []VarID
	for _, f := range t.Fields {
		vars = append(vars, f.Type.FreeTypeVars()...)
	}
	return uniqueVarIDs(vars)
}

// FieldType returns the type of the named field.
func (t TRecord) FieldType(label string) (Type, bool) {
	for _, f := range t.Fields {
		if f.Label == label {
			return f.Type, true
		}
	}
	return nil, false
}

// TSum is a nominal sum type reference, possibly applied to type
// arguments: Color, (Maybe Int). Variant shapes live in the declaring
// module's type table; keeping them out of the type term lets sum
// declarations be recursive.
type TSum struct {
	Name string
	Args []Type
}

func (t TSum) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", t.Name, strings.Join(parts, " "))
}

func (t TSum) Apply(s Subst) Type { return applyWithCycleCheck(t, s, nil) }

func (t TSum) FreeTypeVars() []VarID {
	var vars []VarID
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVars()...)
	}
	return uniqueVarIDs(vars)
}

// TRow is a structural record type used only during inference. A nil
// Tail means the row is closed; otherwise Tail is an RVar (or, after
// substitution chasing, another TRow).
type TRow struct {
	Fields []Field
	Tail   Type
}

func (t TRow) String() string {
	fields := make([]Field, len(t.Fields))
	copy(fields, t.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Label < fields[j].Label })

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Label, f.Type)
	}
	if t.Tail != nil {
		return fmt.Sprintf("{%s | %s}", strings.Join(parts, ", "), t.Tail)
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

func (t TRow) Apply(s Subst) Type { return applyWithCycleCheck(t, s, nil) }

func (t TRow) FreeTypeVars() []VarID {
	var vars []VarID
	for _, f := range t.Fields {
		vars = append(vars, f.Type.FreeTypeVars()...)
	}
	if t.Tail != nil {
		vars = append(vars, t.Tail.FreeTypeVars()...)
	}
	return uniqueVarIDs(vars)
}

// FieldType returns the type of the named explicit field.
func (t TRow) FieldType(label string) (Type, bool) {
	for _, f := range t.Fields {
		if f.Label == label {
			return f.Type, true
		}
	}
	return nil, false
}

// TFunc represents a function type.
type TFunc struct {
	Params []Type
	Return Type
}

func (t TFunc) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(Fn [%s] %s)", strings.Join(parts, " "), t.Return)
}

func (t TFunc) Apply(s Subst) Type { return applyWithCycleCheck(t, s, nil) }

func (t TFunc) FreeTypeVars() []VarID {
	var vars []VarID
	for _, p := range t.Params {
		vars = append(vars, p.FreeTypeVars()...)
	}
	vars = append(vars, t.Return.FreeTypeVars()...)
	return uniqueVarIDs(vars)
}

// TPid is a typed process identifier: a pid whose target process accepts
// exactly the listed message tags.
type TPid struct {
	Process string
	Tags    []string
}

func (t TPid) String() string {
	return fmt.Sprintf("(Pid %s)", t.Process)
}

func (t TPid) Apply(s Subst) Type    { return t }
func (t TPid) FreeTypeVars() []VarID { return nil }

// AcceptsTag reports whether the target process accepts the tag.
func (t TPid) AcceptsTag(tag string) bool {
	for _, m := range t.Tags {
		if m == tag {
			return true
		}
	}
	return false
}

// TScheme is a polymorphic type scheme. Quantifiers appear nowhere else
// (prenex form); schemes live only in the environment.
type TScheme struct {
	Bound []VarID
	Body  Type
}

func (t TScheme) String() string {
	if len(t.Bound) == 0 {
		return t.Body.String()
	}
	parts := make([]string, len(t.Bound))
	for i, id := range t.Bound {
		parts[i] = TVar{ID: id}.String()
	}
	return fmt.Sprintf("(forall [%s] %s)", strings.Join(parts, " "), t.Body)
}

func (t TScheme) Apply(s Subst) Type {
	// Quantified variables shadow the substitution.
	filtered := make(Subst, len(s))
	bound := make(map[VarID]bool, len(t.Bound))
	for _, id := range t.Bound {
		bound[id] = true
	}
	for k, v := range s {
		if !bound[k] {
			filtered[k] = v
		}
	}
	return TScheme{Bound: t.Bound, Body: t.Body.Apply(filtered)}
}

func (t TScheme) FreeTypeVars() []VarID {
	bound := make(map[VarID]bool, len(t.Bound))
	for _, id := range t.Bound {
		bound[id] = true
	}
	var free []VarID
	for _, id := range t.Body.FreeTypeVars() {
		if !bound[id] {
			free = append(free, id)
		}
	}
	return uniqueVarIDs(free)
}

// varName renders a variable index as a, b, ..., z, a1, b1, ...
func varName(i VarID) string {
	letter := rune('a' + i%26)
	if n := i / 26; n > 0 {
		return fmt.Sprintf("%c%d", letter, n)
	}
	return string(letter)
}

func uniqueVarIDs(vars []VarID) []VarID {
	if len(vars) < 2 {
		return vars
	}
	seen := make(map[VarID]bool, len(vars))
	out := vars[:0]
	for _, v := range vars {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
