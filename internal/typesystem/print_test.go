package typesystem

import "testing"

func TestPrinterNamesVariables(t *testing.T) {
	p := NewPrinter()
	fn := TFunc{
		Params: []Type{TVar{ID: 12}, TVar{ID: 99}, TVar{ID: 12}},
		Return: TVar{ID: 99},
	}
	if got := p.Print(fn); got != "(Fn [a b a] b)" {
		t.Errorf("printed %q, want (Fn [a b a] b)", got)
	}
}

func TestPrinterFieldVars(t *testing.T) {
	p := NewPrinter()
	fv := TVar{ID: FieldVarID(7, "x")}
	if got := p.Print(fv); got != "..a" {
		t.Errorf("field var printed %q, want ..a", got)
	}
	// A second field var gets the next dotted name; ordinary vars keep
	// their own sequence.
	fv2 := TVar{ID: FieldVarID(7, "y")}
	if got := p.Print(fv2); got != "..b" {
		t.Errorf("second field var printed %q, want ..b", got)
	}
	if got := p.Print(TVar{ID: 3}); got != "a" {
		t.Errorf("ordinary var printed %q, want a", got)
	}
}

func TestPrintRowWithTail(t *testing.T) {
	row := TRow{
		Fields: []Field{{Label: "x", Type: IntType}},
		Tail:   RVar{ID: 5},
	}
	if got := PrintType(row); got != "{x: Int | a}" {
		t.Errorf("row printed %q", got)
	}
}

func TestPrintAppliedSum(t *testing.T) {
	sum := TSum{Name: "Maybe", Args: []Type{IntType}}
	if got := PrintType(sum); got != "(Maybe Int)" {
		t.Errorf("sum printed %q", got)
	}
}
