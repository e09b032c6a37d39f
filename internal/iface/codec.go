package iface

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// Type tags of the serialized form.
const (
	tagCon byte = iota
	tagAtom
	tagVar
	tagRVar
	tagList
	tagTuple
	tagRecord
	tagSum
	tagRow
	tagFunc
	tagPid
	tagScheme
	tagNil // a nil type (closed row tail)
)

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u16(v uint16) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) u32(v uint32) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) byte(v byte)  { w.buf.WriteByte(v) }

func (w *writer) bool(v bool) {
	if v {
		w.byte(1)
	} else {
		w.byte(0)
	}
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) strs(ss []string) {
	w.u32(uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *writer) typ(t typesystem.Type) {
	if t == nil {
		w.byte(tagNil)
		return
	}
	switch v := t.(type) {
	case typesystem.TCon:
		w.byte(tagCon)
		w.str(v.Name)
	case typesystem.TAtom:
		w.byte(tagAtom)
		w.str(v.Sym)
	case typesystem.TVar:
		w.byte(tagVar)
		w.u32(uint32(v.ID))
	case typesystem.RVar:
		w.byte(tagRVar)
		w.u32(uint32(v.ID))
	case typesystem.TList:
		w.byte(tagList)
		w.typ(v.Elem)
	case typesystem.TTuple:
		w.byte(tagTuple)
		w.u32(uint32(len(v.Elements)))
		for _, e := range v.Elements {
			w.typ(e)
		}
	case typesystem.TRecord:
		w.byte(tagRecord)
		w.str(v.Name)
		w.u32(uint32(len(v.Fields)))
		for _, f := range v.Fields {
			w.str(f.Label)
			w.typ(f.Type)
		}
	case typesystem.TSum:
		w.byte(tagSum)
		w.str(v.Name)
		w.u32(uint32(len(v.Args)))
		for _, a := range v.Args {
			w.typ(a)
		}
	case typesystem.TRow:
		w.byte(tagRow)
		w.u32(uint32(len(v.Fields)))
		for _, f := range v.Fields {
			w.str(f.Label)
			w.typ(f.Type)
		}
		w.typ(v.Tail)
	case typesystem.TFunc:
		w.byte(tagFunc)
		w.u32(uint32(len(v.Params)))
		for _, p := range v.Params {
			w.typ(p)
		}
		w.typ(v.Return)
	case typesystem.TPid:
		w.byte(tagPid)
		w.str(v.Process)
		w.strs(v.Tags)
	case typesystem.TScheme:
		w.byte(tagScheme)
		w.u32(uint32(len(v.Bound)))
		for _, id := range v.Bound {
			w.u32(uint32(id))
		}
		w.typ(v.Body)
	}
}

// Encode serializes the interface. The caller should Normalize first;
// Encode does it again to guarantee determinism.
func Encode(ifc *Interface) []byte {
	ifc.Normalize()

	w := &writer{}
	w.buf.Write(magic[:])
	w.u16(FormatVersion)
	w.str(ifc.Module)

	w.u32(uint32(len(ifc.Funcs)))
	for _, f := range ifc.Funcs {
		w.str(f.Name)
		w.typ(f.Scheme)
	}

	w.u32(uint32(len(ifc.Types)))
	for _, t := range ifc.Types {
		w.str(t.Name)
		w.strs(t.Params)
		w.u32(uint32(len(t.ParamIDs)))
		for _, id := range t.ParamIDs {
			w.u32(uint32(id))
		}
		w.bool(t.IsSum)
		w.u32(uint32(len(t.Variants)))
		for _, v := range t.Variants {
			w.str(v.Ctor)
			w.u32(uint32(len(v.Fields)))
			for _, f := range v.Fields {
				w.typ(f)
			}
		}
		w.u32(uint32(len(t.Fields)))
		for _, f := range t.Fields {
			w.str(f.Label)
			w.typ(f.Type)
		}
	}

	w.u32(uint32(len(ifc.Classes)))
	for _, cl := range ifc.Classes {
		w.str(cl.Name)
		w.str(cl.TyVar)
		w.u32(uint32(len(cl.Methods)))
		for _, m := range cl.Methods {
			w.str(m.Name)
			w.typ(m.Sig)
			w.bool(m.HasDefault)
		}
	}

	w.u32(uint32(len(ifc.Instances)))
	for _, inst := range ifc.Instances {
		w.str(inst.Class)
		w.str(inst.Head)
		w.strs(inst.HeadArgs)
		w.u32(uint32(len(inst.Constraints)))
		for _, con := range inst.Constraints {
			w.str(con.Class)
			w.str(con.Var)
		}
		w.bool(inst.Derived)
	}

	w.u32(uint32(len(ifc.Processes)))
	for _, p := range ifc.Processes {
		w.str(p.Name)
		w.typ(p.StateType)
		w.strs(p.Tags)
	}

	return w.buf.Bytes()
}

type reader struct {
	r *bytes.Reader
}

func (r *reader) u16() (uint16, error) {
	var v uint16
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}

func (r *reader) u32() (uint32, error) {
	var v uint32
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}

func (r *reader) byte() (byte, error) {
	return r.r.ReadByte()
}

func (r *reader) bool() (bool, error) {
	b, err := r.r.ReadByte()
	return b != 0, err
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if int(n) > r.r.Len() {
		return "", ErrCorrupt
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *reader) strs() ([]string, error) {
	n, err := r.u32()
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *reader) typ() (typesystem.Type, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNil:
		return nil, nil
	case tagCon:
		name, err := r.str()
		return typesystem.TCon{Name: name}, err
	case tagAtom:
		sym, err := r.str()
		return typesystem.TAtom{Sym: sym}, err
	case tagVar:
		id, err := r.u32()
		return typesystem.TVar{ID: typesystem.VarID(id)}, err
	case tagRVar:
		id, err := r.u32()
		return typesystem.RVar{ID: typesystem.VarID(id)}, err
	case tagList:
		elem, err := r.typ()
		return typesystem.TList{Elem: elem}, err
	case tagTuple:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		elems := make([]typesystem.Type, n)
		for i := range elems {
			if elems[i], err = r.typ(); err != nil {
				return nil, err
			}
		}
		return typesystem.TTuple{Elements: elems}, nil
	case tagRecord:
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		fields, err := r.fields()
		return typesystem.TRecord{Name: name, Fields: fields}, err
	case tagSum:
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		args := make([]typesystem.Type, n)
		for i := range args {
			if args[i], err = r.typ(); err != nil {
				return nil, err
			}
		}
		return typesystem.TSum{Name: name, Args: args}, nil
	case tagRow:
		fields, err := r.fields()
		if err != nil {
			return nil, err
		}
		tail, err := r.typ()
		return typesystem.TRow{Fields: fields, Tail: tail}, err
	case tagFunc:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		var params []typesystem.Type
		if n > 0 {
			params = make([]typesystem.Type, n)
		}
		for i := range params {
			if params[i], err = r.typ(); err != nil {
				return nil, err
			}
		}
		ret, err := r.typ()
		return typesystem.TFunc{Params: params, Return: ret}, err
	case tagPid:
		proc, err := r.str()
		if err != nil {
			return nil, err
		}
		tags, err := r.strs()
		return typesystem.TPid{Process: proc, Tags: tags}, err
	case tagScheme:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		var bound []typesystem.VarID
		if n > 0 {
			bound = make([]typesystem.VarID, n)
		}
		for i := range bound {
			id, err := r.u32()
			if err != nil {
				return nil, err
			}
			bound[i] = typesystem.VarID(id)
		}
		body, err := r.typ()
		return typesystem.TScheme{Bound: bound, Body: body}, err
	}
	return nil, fmt.Errorf("%w: unknown type tag %d", ErrCorrupt, tag)
}

func (r *reader) fields() ([]typesystem.Field, error) {
	n, err := r.u32()
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]typesystem.Field, 0, n)
	for i := uint32(0); i < n; i++ {
		label, err := r.str()
		if err != nil {
			return nil, err
		}
		t, err := r.typ()
		if err != nil {
			return nil, err
		}
		out = append(out, typesystem.Field{Label: label, Type: t})
	}
	return out, nil
}

// Decode parses a serialized interface.
func Decode(data []byte) (*Interface, error) {
	if len(data) < 6 || !bytes.Equal(data[:4], magic[:]) {
		return nil, ErrCorrupt
	}
	r := &reader{r: bytes.NewReader(data[4:])}

	version, err := r.u16()
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, ErrVersionMismatch
	}

	ifc := &Interface{}
	if ifc.Module, err = r.str(); err != nil {
		return nil, err
	}

	nFuncs, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nFuncs; i++ {
		var f FuncSig
		if f.Name, err = r.str(); err != nil {
			return nil, err
		}
		if f.Scheme, err = r.typ(); err != nil {
			return nil, err
		}
		ifc.Funcs = append(ifc.Funcs, f)
	}

	nTypes, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nTypes; i++ {
		var t TypeDecl
		if t.Name, err = r.str(); err != nil {
			return nil, err
		}
		if t.Params, err = r.strs(); err != nil {
			return nil, err
		}
		nIDs, err := r.u32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < nIDs; j++ {
			id, err := r.u32()
			if err != nil {
				return nil, err
			}
			t.ParamIDs = append(t.ParamIDs, typesystem.VarID(id))
		}
		if t.IsSum, err = r.bool(); err != nil {
			return nil, err
		}
		nVariants, err := r.u32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < nVariants; j++ {
			var v VariantSig
			if v.Ctor, err = r.str(); err != nil {
				return nil, err
			}
			nFields, err := r.u32()
			if err != nil {
				return nil, err
			}
			for k := uint32(0); k < nFields; k++ {
				f, err := r.typ()
				if err != nil {
					return nil, err
				}
				v.Fields = append(v.Fields, f)
			}
			t.Variants = append(t.Variants, v)
		}
		if t.Fields, err = r.fields(); err != nil {
			return nil, err
		}
		ifc.Types = append(ifc.Types, t)
	}

	nClasses, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nClasses; i++ {
		var cl ClassDecl
		if cl.Name, err = r.str(); err != nil {
			return nil, err
		}
		if cl.TyVar, err = r.str(); err != nil {
			return nil, err
		}
		nMethods, err := r.u32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < nMethods; j++ {
			var m MethodSig
			if m.Name, err = r.str(); err != nil {
				return nil, err
			}
			sig, err := r.typ()
			if err != nil {
				return nil, err
			}
			if scheme, ok := sig.(typesystem.TScheme); ok {
				m.Sig = scheme
			} else {
				m.Sig = typesystem.TScheme{Body: sig}
			}
			if m.HasDefault, err = r.bool(); err != nil {
				return nil, err
			}
			cl.Methods = append(cl.Methods, m)
		}
		ifc.Classes = append(ifc.Classes, cl)
	}

	nInstances, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nInstances; i++ {
		var inst InstanceDecl
		if inst.Class, err = r.str(); err != nil {
			return nil, err
		}
		if inst.Head, err = r.str(); err != nil {
			return nil, err
		}
		if inst.HeadArgs, err = r.strs(); err != nil {
			return nil, err
		}
		nCons, err := r.u32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < nCons; j++ {
			var con ConstraintSig
			if con.Class, err = r.str(); err != nil {
				return nil, err
			}
			if con.Var, err = r.str(); err != nil {
				return nil, err
			}
			inst.Constraints = append(inst.Constraints, con)
		}
		if inst.Derived, err = r.bool(); err != nil {
			return nil, err
		}
		ifc.Instances = append(ifc.Instances, inst)
	}

	nProcs, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nProcs; i++ {
		var p ProcessDecl
		if p.Name, err = r.str(); err != nil {
			return nil, err
		}
		if p.StateType, err = r.typ(); err != nil {
			return nil, err
		}
		if p.Tags, err = r.strs(); err != nil {
			return nil, err
		}
		ifc.Processes = append(ifc.Processes, p)
	}

	return ifc, nil
}
