package ir

import (
	"strings"
	"testing"
)

// buildEmptyFunc builds "@0 f() => () { {0} ret }".
func buildEmptyFunc() *Program {
	prog := NewProgram()
	fn := NewFunction(0)
	fn.Name = "f"
	prog.AddFunc(fn)
	prog.SetEntryFunc(0)

	b0 := NewBlock(0)
	fn.AddBlock(b0)
	fn.SetEntryBlock(0)
	b0.Append(&Return{})

	return prog
}

func TestEmptyFunctionPrints(t *testing.T) {
	prog := buildEmptyFunc()
	out := Print(prog)
	if !strings.Contains(out, "@0 f() => () {") {
		t.Fatalf("missing function header, got:\n%s", out)
	}
	if !strings.Contains(out, "{0}") {
		t.Fatalf("missing entry block, got:\n%s", out)
	}
	if !strings.Contains(out, "ret") {
		t.Fatalf("missing terminator, got:\n%s", out)
	}
}

// buildLoopSum builds the §8 scenario 3 loop-sum function:
//
//	@0 () => (i64) { {0} jmp {1}
//	{1} %0 = phi #0:i64{0}, %3{2}
//	     %1 = phi #0:i64{0}, %4{2}
//	     %2:b = ilss %0, #10:i64
//	     jcc %2, {2}, {3}
//	{2} %3:i64 = iadd %0, #1:i64
//	     %4:i64 = iadd %1, %3
//	     jmp {1}
//	{3} ret %1 }
func buildLoopSum() *Program {
	prog := NewProgram()
	fn := NewFunction(0)
	fn.ResultTypes = []Type{I64}
	prog.AddFunc(fn)
	prog.SetEntryFunc(0)

	b0 := NewBlock(0)
	b1 := NewBlock(1)
	b2 := NewBlock(2)
	b3 := NewBlock(3)
	fn.AddBlock(b0)
	fn.AddBlock(b1)
	fn.AddBlock(b2)
	fn.AddBlock(b3)
	fn.SetEntryBlock(0)

	fn.AddEdge(0, 1)
	fn.AddEdge(1, 2)
	fn.AddEdge(1, 3)
	fn.AddEdge(2, 1)

	b0.Append(&Jump{Dest: 1})

	v0 := fn.NewComputed(I64)
	v1 := fn.NewComputed(I64)
	v2 := fn.NewComputed(Bool)
	v3 := fn.NewComputed(I64)
	v4 := fn.NewComputed(I64)

	b1.Append(&Phi{Result: v0, Args: []PhiArg{
		{Value: NewIntConstant(0, I64), Origin: 0},
		{Value: v3, Origin: 2},
	}})
	b1.Append(&Phi{Result: v1, Args: []PhiArg{
		{Value: NewIntConstant(0, I64), Origin: 0},
		{Value: v4, Origin: 2},
	}})
	b1.Append(&IntCompare{Op: IntLss, Result: v2, A: v0, B: NewIntConstant(10, I64)})
	b1.Append(&JumpCond{Cond: v2, TrueDest: 2, FalseDest: 3})

	b2.Append(&IntBinary{Op: IntAdd, Result: v3, A: v0, B: NewIntConstant(1, I64)})
	b2.Append(&IntBinary{Op: IntAdd, Result: v4, A: v1, B: v3})
	b2.Append(&Jump{Dest: 1})

	b3.Append(&Return{Args: []Value{v1}})

	return prog
}

func TestLoopSumStructure(t *testing.T) {
	prog := buildLoopSum()
	fn := prog.MustFunc(0)

	b1 := fn.MustBlock(1)
	if got := b1.Parents(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("block 1 parents = %v, want [0 2]", got)
	}
	if got := len(b1.Phis()); got != 2 {
		t.Fatalf("block 1 phi count = %d, want 2", got)
	}

	term := b1.Terminator()
	if term == nil {
		t.Fatal("block 1 has no terminator")
	}
	if got := term.Successors(); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("block 1 successors = %v, want [2 3]", got)
	}

	if fn.ValueCount() != 5 {
		t.Fatalf("value count = %d, want 5", fn.ValueCount())
	}
}

func TestLoopSumPrints(t *testing.T) {
	prog := buildLoopSum()
	out := Print(prog)
	for _, want := range []string{
		"@0 () => (i64) {",
		"{0}",
		"jmp {1}",
		"{1}",
		"%0:i64 = phi #0:i64{0}, %3{2}",
		"%1:i64 = phi #0:i64{0}, %4{2}",
		"%2:b = ilss %0, #10:i64",
		"jcc %2, {2}, {3}",
		"{2}",
		"%3:i64 = iadd %0, #1:i64",
		"%4:i64 = iadd %1, %3",
		"{3}",
		"ret %1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printed output missing %q, got:\n%s", want, out)
		}
	}
}

func TestTypesEqual(t *testing.T) {
	a := &ArrayType{Elem: I32, Len: 4}
	b := &ArrayType{Elem: I32, Len: 4}
	if a == Type(b) {
		t.Fatal("distinct instances should not be ==")
	}
	if !TypesEqual(a, b) {
		t.Fatal("structurally identical array types should be TypesEqual")
	}

	tt := NewTypeTable()
	ia := tt.Intern(a)
	ib := tt.Intern(b)
	if ia != ib {
		t.Fatal("type table should intern structurally equal composite types to one instance")
	}
}

func TestAsComputed(t *testing.T) {
	c := &Computed{Number: 3, Typ: I32}
	inh := &InheritedValue{Value: c, Origin: 1}
	got, ok := AsComputed(inh)
	if !ok || got != c {
		t.Fatalf("AsComputed(inherited) = %v, %v; want %v, true", got, ok, c)
	}
	if _, ok := AsComputed(NewIntConstant(1, I32)); ok {
		t.Fatal("AsComputed(constant) should return false")
	}
}
