// Package backend lowers the typed AST to a bytecode container. The
// artifact starts with the fixed FOR1 magic and carries chunked
// sections: an atom table, a string table, a numeric literal table,
// one section holding every function, one holding every process
// handler, and the module entry code.
package backend

import (
	"bytes"
	"encoding/binary"
)

// Magic is the 4-byte artifact header.
var Magic = [4]byte{'F', 'O', 'R', '1'}

// FormType identifies the container's payload.
var FormType = [4]byte{'V', 'A', 'S', 'T'}

// Op is one bytecode operation.
type Op byte

const (
	OpConstInt Op = iota
	OpConstFloat
	OpConstStr
	OpConstAtom
	OpConstBool
	OpConstUnit
	OpLoadLocal
	OpLoadGlobal
	OpStoreLocal
	OpPop
	OpMakeList
	OpMakeTuple
	OpMakeCtor
	OpField
	OpCall
	OpCallBuiltin
	OpClassCall
	OpNumOp
	OpJump
	OpJumpIfFalse
	OpMatchLit
	OpMatchCtor
	OpMatchList
	OpMatchCons
	OpMatchTuple
	OpBindLocal
	OpSpawn
	OpSend
	OpSendUnsafe
	OpReturn
)

// Instr is one encoded instruction: an op and up to two operands.
// Operand meaning depends on the op (table index, local slot, jump
// target, argument count).
type Instr struct {
	Op Op
	A  uint32
	B  uint32
}

// Code is one compiled code object.
type Code struct {
	Name   string
	Arity  uint32
	Instrs []Instr
}

// Artifact is a fully lowered module ready for serialization.
type Artifact struct {
	Module   string
	Atoms    []string
	Strings  []string
	Ints     []int64
	Floats   []float64
	Funcs    []*Code
	Handlers []*Code // process handlers, named process/:tag
	Entry    *Code   // top-level expressions

	atomIdx  map[string]uint32
	strIdx   map[string]uint32
	intIdx   map[int64]uint32
	floatIdx map[float64]uint32
}

func NewArtifact(module string) *Artifact {
	return &Artifact{
		Module:   module,
		atomIdx:  make(map[string]uint32),
		strIdx:   make(map[string]uint32),
		intIdx:   make(map[int64]uint32),
		floatIdx: make(map[float64]uint32),
	}
}

func (a *Artifact) Atom(s string) uint32 {
	if i, ok := a.atomIdx[s]; ok {
		return i
	}
	i := uint32(len(a.Atoms))
	a.atomIdx[s] = i
	a.Atoms = append(a.Atoms, s)
	return i
}

func (a *Artifact) Str(s string) uint32 {
	if i, ok := a.strIdx[s]; ok {
		return i
	}
	i := uint32(len(a.Strings))
	a.strIdx[s] = i
	a.Strings = append(a.Strings, s)
	return i
}

func (a *Artifact) Int(v int64) uint32 {
	if i, ok := a.intIdx[v]; ok {
		return i
	}
	i := uint32(len(a.Ints))
	a.intIdx[v] = i
	a.Ints = append(a.Ints, v)
	return i
}

func (a *Artifact) Float(v float64) uint32 {
	if i, ok := a.floatIdx[v]; ok {
		return i
	}
	i := uint32(len(a.Floats))
	a.floatIdx[v] = i
	a.Floats = append(a.Floats, v)
	return i
}

// Build serializes the artifact into the FOR1 container.
func (a *Artifact) Build() []byte {
	var body bytes.Buffer
	body.Write(FormType[:])

	writeChunk(&body, "Atom", func(w *bytes.Buffer) {
		writeU32(w, uint32(len(a.Atoms)))
		for _, s := range a.Atoms {
			writeStr(w, s)
		}
	})
	writeChunk(&body, "StrT", func(w *bytes.Buffer) {
		writeU32(w, uint32(len(a.Strings)))
		for _, s := range a.Strings {
			writeStr(w, s)
		}
	})
	writeChunk(&body, "LitT", func(w *bytes.Buffer) {
		writeU32(w, uint32(len(a.Ints)))
		for _, v := range a.Ints {
			binary.Write(w, binary.LittleEndian, v)
		}
		writeU32(w, uint32(len(a.Floats)))
		for _, v := range a.Floats {
			binary.Write(w, binary.LittleEndian, v)
		}
	})
	writeChunk(&body, "FunT", func(w *bytes.Buffer) {
		writeU32(w, uint32(len(a.Funcs)))
		for _, f := range a.Funcs {
			writeCode(w, f)
		}
	})
	writeChunk(&body, "PrcT", func(w *bytes.Buffer) {
		writeU32(w, uint32(len(a.Handlers)))
		for _, h := range a.Handlers {
			writeCode(w, h)
		}
	})
	if a.Entry != nil {
		writeChunk(&body, "Code", func(w *bytes.Buffer) {
			writeCode(w, a.Entry)
		})
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	writeU32(&out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeChunk(w *bytes.Buffer, name string, fill func(*bytes.Buffer)) {
	var payload bytes.Buffer
	fill(&payload)
	w.WriteString(name)
	writeU32(w, uint32(payload.Len()))
	w.Write(payload.Bytes())
	// chunks are 4-byte aligned, as in IFF containers
	for payload.Len()%4 != 0 {
		w.WriteByte(0)
		payload.WriteByte(0)
	}
}

func writeCode(w *bytes.Buffer, c *Code) {
	writeStr(w, c.Name)
	writeU32(w, c.Arity)
	writeU32(w, uint32(len(c.Instrs)))
	for _, in := range c.Instrs {
		w.WriteByte(byte(in.Op))
		writeU32(w, in.A)
		writeU32(w, in.B)
	}
}

func writeU32(w *bytes.Buffer, v uint32) {
	binary.Write(w, binary.LittleEndian, v)
}

func writeStr(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}
