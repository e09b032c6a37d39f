// Package iface persists module interfaces: the exported signatures,
// type declarations, classes, instance heads and process declarations
// of an elaborated module. Loading an interface re-hydrates the
// importer's environment without re-elaborating the module. The format
// is deterministic: identical source yields byte-identical output.
package iface

import (
	"errors"
	"sort"

	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// FormatVersion is bumped on incompatible layout changes; a version
// mismatch forces re-elaboration.
const FormatVersion uint16 = 3

var magic = [4]byte{'V', 'A', 'I', 'F'}

// ErrVersionMismatch is returned when an interface file was written by
// an incompatible compiler version.
var ErrVersionMismatch = errors.New("interface format version mismatch")

// ErrCorrupt is returned for files that are not valid interfaces.
var ErrCorrupt = errors.New("corrupt interface file")

// FuncSig is one exported function scheme.
type FuncSig struct {
	Name   string
	Scheme typesystem.Type
}

// VariantSig is one sum constructor.
type VariantSig struct {
	Ctor   string
	Fields []typesystem.Type
}

// TypeDecl is one exported sum or record declaration.
type TypeDecl struct {
	Name     string
	Params   []string
	ParamIDs []typesystem.VarID
	IsSum    bool
	Variants []VariantSig
	Fields   []typesystem.Field
}

// MethodSig is one class method: its signature and whether a default
// body exists in the declaring module.
type MethodSig struct {
	Name       string
	Sig        typesystem.TScheme
	HasDefault bool
}

// ClassDecl is one exported class declaration.
type ClassDecl struct {
	Name    string
	TyVar   string
	Methods []MethodSig
}

// ConstraintSig is one resolved instance constraint.
type ConstraintSig struct {
	Class string
	Var   string
}

// InstanceDecl is one exported instance head.
type InstanceDecl struct {
	Class       string
	Head        string
	HeadArgs    []string
	Constraints []ConstraintSig
	Derived     bool
}

// ProcessDecl is one exported process declaration.
type ProcessDecl struct {
	Name      string
	StateType typesystem.Type
	Tags      []string
}

// Interface is the persisted signature of one module.
type Interface struct {
	Module    string
	Funcs     []FuncSig
	Types     []TypeDecl
	Classes   []ClassDecl
	Instances []InstanceDecl
	Processes []ProcessDecl
}

// Normalize sorts every section so encoding is deterministic.
func (ifc *Interface) Normalize() {
	sort.Slice(ifc.Funcs, func(i, j int) bool { return ifc.Funcs[i].Name < ifc.Funcs[j].Name })
	sort.Slice(ifc.Types, func(i, j int) bool { return ifc.Types[i].Name < ifc.Types[j].Name })
	sort.Slice(ifc.Classes, func(i, j int) bool { return ifc.Classes[i].Name < ifc.Classes[j].Name })
	sort.Slice(ifc.Instances, func(i, j int) bool {
		a, b := ifc.Instances[i], ifc.Instances[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Head < b.Head
	})
	sort.Slice(ifc.Processes, func(i, j int) bool { return ifc.Processes[i].Name < ifc.Processes[j].Name })
}

// Func looks up an exported function by name.
func (ifc *Interface) Func(name string) (FuncSig, bool) {
	for _, f := range ifc.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return FuncSig{}, false
}
