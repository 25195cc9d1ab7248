package lane

import "testing"

func TestFloor(t *testing.T) {
	got := Float4{-1.5, -0.0, 0.25, 2}.Floor()
	want := Float4{-2, 0, 0, 2}
	if got != want {
		t.Fatalf("Floor() = %v, want %v", got, want)
	}
}

func TestIntTruncates(t *testing.T) {
	got := Float4{-1.75, -0.5, 0.5, 3.9}.Int()
	want := Int4{-1, 0, 0, 3}
	if got != want {
		t.Fatalf("Int() = %v, want %v", got, want)
	}
}

func TestSelect(t *testing.T) {
	m := Bool4{true, false, true, false}
	if got := Select(Splat(1), Splat(2), m); got != (Float4{2, 1, 2, 1}) {
		t.Fatalf("Select() = %v", got)
	}
	if got := SelectInt(SplatInt(1), SplatInt(2), m.Not()); got != (Int4{1, 2, 1, 2}) {
		t.Fatalf("SelectInt() = %v", got)
	}
	if got := SelectUint(Uint4{}, Uint4{7, 7, 7, 7}, m); got != (Uint4{7, 0, 7, 0}) {
		t.Fatalf("SelectUint() = %v", got)
	}
}

func TestLessAndMasks(t *testing.T) {
	a := Float4{0, 1, 2, 3}
	b := Splat(1.5)
	lt := a.Less(b)
	if lt != (Bool4{true, true, false, false}) {
		t.Fatalf("Less() = %v", lt)
	}
	ge := b.Less(a)
	if lt.Or(ge) != (Bool4{true, true, true, true}) {
		t.Fatalf("Or() = %v", lt.Or(ge))
	}
	if lt.And(ge) != (Bool4{}) {
		t.Fatalf("And() = %v", lt.And(ge))
	}
}

func TestArithmetic(t *testing.T) {
	a := Float4{1, 2, 3, 4}
	if got := a.Add(a).Sub(a).Mul(Splat(2)).Div(Splat(4)); got != (Float4{0.5, 1, 1.5, 2}) {
		t.Fatalf("chained arithmetic = %v", got)
	}
	if got := (Float4{-1, 1, -2, 0}).Abs(); got != (Float4{1, 1, 2, 0}) {
		t.Fatalf("Abs() = %v", got)
	}
}

func TestScalarHelpers(t *testing.T) {
	if Abs(-0.5) != 0.5 || Sign(-3) != -1 || Sign(0) != 1 {
		t.Fatal("Abs/Sign mismatch")
	}
	if Sqrt(9) != 3 || Rsqrt(4) != 0.5 {
		t.Fatal("Sqrt/Rsqrt mismatch")
	}
	if Log(Exp(0)) != 0 {
		t.Fatal("Exp/Log mismatch")
	}
	if (Int4{1, 2, 3, 4}).Offset(-1).Float() != (Float4{0, 1, 2, 3}) {
		t.Fatal("Offset/Float mismatch")
	}
}
