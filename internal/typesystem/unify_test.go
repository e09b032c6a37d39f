package typesystem

import (
	"reflect"
	"testing"
)

type testSupply struct {
	next VarID
}

func (s *testSupply) FreshRowVar() RVar {
	s.next++
	return RVar{ID: s.next + 1000}
}

func TestUnifySoundness(t *testing.T) {
	// If unify succeeds, applying the result makes both sides equal.
	cases := []struct {
		name string
		t1   Type
		t2   Type
	}{
		{"var with con", TVar{ID: 1}, IntType},
		{"var with list", TVar{ID: 1}, TList{Elem: BoolType}},
		{"fn args", TFunc{Params: []Type{TVar{ID: 1}, IntType}, Return: TVar{ID: 2}},
			TFunc{Params: []Type{FloatType, TVar{ID: 3}}, Return: StringType}},
		{"tuple", TTuple{Elements: []Type{TVar{ID: 1}, TVar{ID: 1}}},
			TTuple{Elements: []Type{TVar{ID: 2}, IntType}}},
		{"nested list", TList{Elem: TList{Elem: TVar{ID: 5}}}, TList{Elem: TVar{ID: 6}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Unify(tc.t1, tc.t2, &testSupply{})
			if err != nil {
				t.Fatalf("unify failed: %v", err)
			}
			a := s.Apply(tc.t1)
			b := s.Apply(tc.t2)
			if !reflect.DeepEqual(a, b) {
				t.Errorf("apply(S, t1) = %s, apply(S, t2) = %s", a, b)
			}
		})
	}
}

func TestUnifyFailures(t *testing.T) {
	cases := []struct {
		name string
		t1   Type
		t2   Type
	}{
		{"int vs bool", IntType, BoolType},
		{"int vs float", IntType, FloatType}, // widening is operator-local, not unification
		{"list vs tuple", TList{Elem: IntType}, TTuple{Elements: []Type{IntType}}},
		{"fn arity", TFunc{Params: []Type{IntType}, Return: IntType},
			TFunc{Params: []Type{IntType, IntType}, Return: IntType}},
		{"different atoms", TAtom{Sym: "yes"}, TAtom{Sym: "no"}},
		{"different pids", TPid{Process: "a"}, TPid{Process: "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Unify(tc.t1, tc.t2, &testSupply{}); err == nil {
				t.Errorf("expected unify(%s, %s) to fail", tc.t1, tc.t2)
			}
		})
	}
}

func TestOccursCheck(t *testing.T) {
	v := TVar{ID: 1}
	inf := TList{Elem: TVar{ID: 1}}
	if _, err := Unify(v, inf, nil); err == nil {
		t.Fatal("expected occurs check failure for a ~ List a")
	}

	fn := TFunc{Params: []Type{TVar{ID: 1}}, Return: IntType}
	if _, err := Unify(v, fn, nil); err == nil {
		t.Fatal("expected occurs check failure for a ~ (Fn [a] Int)")
	}
}

func TestUnifyAtomWidening(t *testing.T) {
	// A singleton atom unifies with the universal Atom type.
	if _, err := Unify(TAtom{Sym: "yes"}, AtomType, nil); err != nil {
		t.Errorf("singleton ~ Atom failed: %v", err)
	}
	if _, err := Unify(AtomType, TAtom{Sym: "no"}, nil); err != nil {
		t.Errorf("Atom ~ singleton failed: %v", err)
	}
}

func TestUnifyRecordsByLabel(t *testing.T) {
	point := func(x, y Type) TRecord {
		return TRecord{Name: "Point", Fields: []Field{{Label: "x", Type: x}, {Label: "y", Type: y}}}
	}
	s, err := Unify(point(IntType, TVar{ID: 1}), point(TVar{ID: 2}, FloatType), nil)
	if err != nil {
		t.Fatalf("unify failed: %v", err)
	}
	if got := s.Apply(TVar{ID: 1}); !reflect.DeepEqual(got, FloatType) {
		t.Errorf("t1 = %s, want Float", got)
	}
	if got := s.Apply(TVar{ID: 2}); !reflect.DeepEqual(got, IntType) {
		t.Errorf("t2 = %s, want Int", got)
	}

	// Different nominal names never unify, even with equal fields.
	other := TRecord{Name: "Vec", Fields: []Field{{Label: "x", Type: IntType}, {Label: "y", Type: FloatType}}}
	if _, err := Unify(point(IntType, FloatType), other, nil); err == nil {
		t.Error("expected nominal mismatch")
	}
}

func TestUnifyRowAbsorption(t *testing.T) {
	// {x: Int | r1} ~ {x: Int, y: Bool} closes r1 over {y: Bool}.
	open := TRow{Fields: []Field{{Label: "x", Type: IntType}}, Tail: RVar{ID: 9}}
	closed := TRow{Fields: []Field{{Label: "x", Type: IntType}, {Label: "y", Type: BoolType}}}

	s, err := Unify(open, closed, &testSupply{})
	if err != nil {
		t.Fatalf("unify failed: %v", err)
	}
	bound := s.Apply(RVar{ID: 9})
	row, ok := bound.(TRow)
	if !ok {
		t.Fatalf("r9 bound to %T, want TRow", bound)
	}
	if ty, ok := row.FieldType("y"); !ok || !reflect.DeepEqual(ty, BoolType) {
		t.Errorf("r9 = %s, want {y: Bool}", row)
	}
	if row.Tail != nil {
		t.Errorf("r9 tail = %s, want closed", row.Tail)
	}
}

func TestUnifyRowMissingFieldFails(t *testing.T) {
	// A closed row cannot absorb extra fields.
	open := TRow{Fields: []Field{{Label: "x", Type: IntType}, {Label: "z", Type: IntType}}}
	closed := TRow{Fields: []Field{{Label: "x", Type: IntType}}}
	if _, err := Unify(open, closed, &testSupply{}); err == nil {
		t.Error("expected missing-field error")
	}
}

func TestUnifyRowsBothOpen(t *testing.T) {
	// {x: Int | r1} ~ {y: Bool | r2}: both absorb, sharing a fresh tail.
	a := TRow{Fields: []Field{{Label: "x", Type: IntType}}, Tail: RVar{ID: 1}}
	b := TRow{Fields: []Field{{Label: "y", Type: BoolType}}, Tail: RVar{ID: 2}}

	supply := &testSupply{}
	s, err := Unify(a, b, supply)
	if err != nil {
		t.Fatalf("unify failed: %v", err)
	}

	ra := s.Apply(a)
	rb := s.Apply(b)
	rowA, okA := ra.(TRow)
	rowB, okB := rb.(TRow)
	if !okA || !okB {
		t.Fatalf("applied rows: %T %T", ra, rb)
	}
	for _, row := range []TRow{rowA, rowB} {
		if _, ok := row.FieldType("x"); !ok {
			t.Errorf("row %s missing x", row)
		}
		if _, ok := row.FieldType("y"); !ok {
			t.Errorf("row %s missing y", row)
		}
	}
	if !reflect.DeepEqual(rowA.Tail, rowB.Tail) {
		t.Errorf("tails differ: %v vs %v", rowA.Tail, rowB.Tail)
	}
}

func TestUnifyRowWithRecord(t *testing.T) {
	rec := TRecord{Name: "User", Fields: []Field{
		{Label: "name", Type: StringType},
		{Label: "age", Type: IntType},
	}}
	open := TRow{Fields: []Field{{Label: "age", Type: TVar{ID: 3}}}, Tail: RVar{ID: 4}}

	s, err := Unify(open, rec, &testSupply{})
	if err != nil {
		t.Fatalf("unify failed: %v", err)
	}
	if got := s.Apply(TVar{ID: 3}); !reflect.DeepEqual(got, IntType) {
		t.Errorf("field type = %s, want Int", got)
	}

	// Accessing a field the record lacks must fail.
	bad := TRow{Fields: []Field{{Label: "email", Type: TVar{ID: 5}}}, Tail: RVar{ID: 6}}
	if _, err := Unify(bad, rec, &testSupply{}); err == nil {
		t.Error("expected missing-field error for email")
	}
}

func TestUnifyAnyAbsorbs(t *testing.T) {
	for _, other := range []Type{IntType, TList{Elem: BoolType}, TVar{ID: 7}} {
		if _, err := Unify(AnyType, other, nil); err != nil {
			t.Errorf("Any ~ %s failed: %v", other, err)
		}
		if _, err := Unify(other, AnyType, nil); err != nil {
			t.Errorf("%s ~ Any failed: %v", other, err)
		}
	}
}

func TestComposeOrder(t *testing.T) {
	// apply(Compose(s1, s2), T) == apply(s2, apply(s1, T))
	s1 := Subst{1: TVar{ID: 2}}
	s2 := Subst{2: IntType}
	composed := s1.Compose(s2)

	target := TList{Elem: TVar{ID: 1}}
	direct := composed.Apply(target)
	staged := s2.Apply(s1.Apply(target))
	if !reflect.DeepEqual(direct, staged) {
		t.Errorf("compose mismatch: %s vs %s", direct, staged)
	}
	if !reflect.DeepEqual(direct, TList{Elem: IntType}) {
		t.Errorf("composed apply = %s, want (List Int)", direct)
	}
}

func TestFieldVarIDDeterministicAndPartitioned(t *testing.T) {
	a := FieldVarID(12, "x")
	b := FieldVarID(12, "x")
	if a != b {
		t.Errorf("same inputs produced different ids: %d vs %d", a, b)
	}
	if !IsFieldVar(a) {
		t.Errorf("field var id %d not in reserved half", a)
	}
	if FieldVarID(12, "y") == a {
		t.Error("different labels should produce different ids")
	}
	if FieldVarID(13, "x") == a {
		t.Error("different record vars should produce different ids")
	}
}

func TestSchemeApplyRespectsBinders(t *testing.T) {
	scheme := TScheme{Bound: []VarID{1}, Body: TFunc{Params: []Type{TVar{ID: 1}}, Return: TVar{ID: 2}}}
	s := Subst{1: IntType, 2: BoolType}
	applied := scheme.Apply(s).(TScheme)
	fn := applied.Body.(TFunc)
	if !reflect.DeepEqual(fn.Params[0], TVar{ID: 1}) {
		t.Errorf("bound var was substituted: %s", fn.Params[0])
	}
	if !reflect.DeepEqual(fn.Return, BoolType) {
		t.Errorf("free var not substituted: %s", fn.Return)
	}
}
