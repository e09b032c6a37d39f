package typesystem

import "hash/fnv"

// FieldVarID derives the id of the type variable standing for field
// `label` of the record variable `recordVar`. The derivation is a pure
// function of its inputs, so repeated accesses of the same field on the
// same record variable share one variable without a lookup table. The
// result always lands in the reserved field-var half of the id space.
func FieldVarID(recordVar VarID, label string) VarID {
	h := fnv.New32a()
	var buf [4]byte
	buf[0] = byte(recordVar)
	buf[1] = byte(recordVar >> 8)
	buf[2] = byte(recordVar >> 16)
	buf[3] = byte(recordVar >> 24)
	h.Write(buf[:])
	h.Write([]byte(label))
	return VarID(h.Sum32())%FieldVarBase + FieldVarBase
}
