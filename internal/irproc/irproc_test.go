package irproc

import (
	"testing"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irchecker"
	"github.com/arneph/katara-ir/internal/irparse"
)

func mustParse(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, errs := irparse.Parse([]byte(src))
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return prog
}

func TestResolvePhisStraightLine(t *testing.T) {
	src := `@0 (%0:b) => (i64) {
{0}
  jcc %0, {1}, {2}
{1}
  %1:i64 = mov #1:i64
  jmp {3}
{2}
  %2:i64 = mov #2:i64
  jmp {3}
{3}
  %3:i64 = phi %1{1}, %2{2}
  ret %3
}
`
	prog := mustParse(t, src)
	fn := prog.MustFunc(0)
	ResolvePhisInFunc(fn)

	// Phi elimination intentionally breaks pure SSA form (the phi's
	// destination ends up defined once per predecessor block, only one of
	// which ever actually runs), so the well-formedness checker no longer
	// applies here; check the expected shape directly instead.
	if len(fn.MustBlock(3).Phis()) != 0 {
		t.Fatal("expected no phis left in block 3")
	}
	b1 := fn.MustBlock(1).Instrs()
	if mov, ok := b1[len(b1)-2].(*ir.Mov); !ok || mov.Result.Number != 3 {
		t.Fatalf("expected block 1 to end with a mov into %%3 before its jump, got %v", b1)
	}
	b2 := fn.MustBlock(2).Instrs()
	if mov, ok := b2[len(b2)-2].(*ir.Mov); !ok || mov.Result.Number != 3 {
		t.Fatalf("expected block 2 to end with a mov into %%3 before its jump, got %v", b2)
	}
}

func TestResolvePhisBreaksSwapCycle(t *testing.T) {
	// Loop header phis %0/%1 swap on each iteration: %0 next comes from
	// %1, %1 next comes from %0. A naive sequential insertion of
	// "%0 <- %1; %1 <- %0" in block {1} would make both values equal to
	// the old %0. This must be resolved with a temporary.
	src := `@0 () => (i64) {
{0}
  jmp {1}
{1}
  %0:i64 = phi #0:i64{0}, %1{2}
  %1:i64 = phi #1:i64{0}, %0{2}
  %2:b = ilss %0, #10:i64
  jcc %2, {2}, {3}
{2}
  jmp {1}
{3}
  ret %0
}
`
	prog := mustParse(t, src)
	fn := prog.MustFunc(0)
	ResolvePhisInFunc(fn)

	if len(fn.MustBlock(1).Phis()) != 0 {
		t.Fatal("expected no phis left in block 1")
	}

	// Block {2}'s inserted movs must use a temporary rather than feed the
	// overwritten value of %0 into %1 (or vice versa): the mov set that
	// writes into %0 must read something other than %0's own moved-from
	// value for %1, so we simply check that a third value number
	// (the temporary) was allocated to break the cycle.
	if fn.ValueCount() < 4 {
		t.Fatalf("expected cycle-breaking to allocate a temporary, value count = %d", fn.ValueCount())
	}
}

func TestColorInterferenceGraphLoopSum(t *testing.T) {
	src := `@0 () => (i64) {
{0}
  jmp {1}
{1}
  %0:i64 = phi #0:i64{0}, %3{2}
  %1:i64 = phi #0:i64{0}, %4{2}
  %2:b = ilss %0, #10:i64
  jcc %2, {2}, {3}
{2}
  %3:i64 = iadd %0, #1:i64
  %4:i64 = iadd %1, %3
  jmp {1}
{3}
  ret %1
}
`
	prog := mustParse(t, src)
	fn := prog.MustFunc(0)
	colors := ColorFunc(fn)

	if colors.Color(0) == colors.Color(1) {
		t.Fatalf("expected %%0 and %%1 (simultaneously live) to get distinct colors, both got %d",
			colors.Color(0))
	}
}

func TestConvertSharedToUniqueWhenNeverCopied(t *testing.T) {
	src := `@0 () => () {
{0}
  %0:shared<i64,strong> = mkshared #1:i64
  delshared %0
  ret
}
`
	prog := mustParse(t, src)
	changed := ConvertSharedToUniquePointersInProgram(prog)
	if !changed {
		t.Fatal("expected the shared pointer to be converted")
	}

	fn := prog.MustFunc(0)
	instrs := fn.MustBlock(0).Instrs()
	if _, ok := instrs[0].(*ir.MakeUnique); !ok {
		t.Fatalf("expected mkshared to become mkunique, got %T", instrs[0])
	}
	if _, ok := instrs[1].(*ir.DeleteUnique); !ok {
		t.Fatalf("expected delshared to become delunique, got %T", instrs[1])
	}
	if _, ok := instrs[0].(*ir.MakeUnique).Result.Typ.(*ir.UniquePointerType); !ok {
		t.Fatalf("expected result type to become a unique pointer type")
	}
}

func TestConvertSharedToUniqueSkipsCopied(t *testing.T) {
	src := `@0 () => () {
{0}
  %0:shared<i64,strong> = mkshared #1:i64
  %1:shared<i64,strong> = cpshared %0, #0:i64
  delshared %0
  delshared %1
  ret
}
`
	prog := mustParse(t, src)
	if ConvertSharedToUniquePointersInProgram(prog) {
		t.Fatal("expected no conversion: the pointer is copied")
	}
}

func TestConvertUniquePointerToLocalValueStraightLine(t *testing.T) {
	src := `@0 () => (i64) {
{0}
  %0:unique<i64> = mkunique #1:i64
  store %0, #5:i64
  %1:i64 = load %0
  delunique %0
  ret %1
}
`
	prog := mustParse(t, src)
	changed := ConvertUniquePointersToLocalValuesInProgram(prog)
	if !changed {
		t.Fatal("expected the unique pointer to be converted to a local value")
	}

	fn := prog.MustFunc(0)
	for _, instr := range fn.MustBlock(0).Instrs() {
		switch instr.(type) {
		case *ir.MakeUnique, *ir.DeleteUnique, *ir.Load, *ir.Store:
			t.Fatalf("expected no pointer instructions left, found %T", instr)
		}
	}
	if issues := irchecker.Check(prog); len(issues) != 0 {
		t.Fatalf("unexpected issues after local value conversion: %v", issues)
	}
}

func TestConvertUniquePointerToLocalValueAcrossBranch(t *testing.T) {
	// The pointer is stored once before a branch and loaded after the
	// branches rejoin; resolving the load requires a phi since the
	// two predecessor blocks reach the join independently.
	src := `@0 (%0:b) => (i64) {
{0}
  %1:unique<i64> = mkunique #1:i64
  jcc %0, {1}, {2}
{1}
  store %1, #1:i64
  jmp {3}
{2}
  store %1, #2:i64
  jmp {3}
{3}
  %2:i64 = load %1
  delunique %1
  ret %2
}
`
	prog := mustParse(t, src)
	changed := ConvertUniquePointersToLocalValuesInProgram(prog)
	if !changed {
		t.Fatal("expected the unique pointer to be converted to a local value")
	}

	fn := prog.MustFunc(0)
	if len(fn.MustBlock(3).Phis()) == 0 {
		t.Fatal("expected a phi to be introduced at the join block")
	}
	if issues := irchecker.Check(prog); len(issues) != 0 {
		t.Fatalf("unexpected issues after local value conversion: %v", issues)
	}
}
