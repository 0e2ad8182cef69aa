package irchecker

import (
	"testing"

	"github.com/arneph/katara-ir/internal/ir"
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

func TestCheckEmptyFunctionOkay(t *testing.T) {
	prog := mustParse(t, "@0 f() => () { {0} ret }\n")
	if issues := Check(prog); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckPhiMissingParentIsReported(t *testing.T) {
	src := `@0 () => () {
{0}
  jcc #t, {1}, {2}
{1}
  jmp {2}
{2}
  %0:i64 = phi #0:i64{0}
  ret
}
`
	prog := mustParse(t, src)
	issues := Check(prog)
	found := false
	for _, iss := range issues {
		if iss.Kind == PhiMissingArgumentForParent {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a PhiMissingArgumentForParent issue, got: %v", issues)
	}
}

func TestCheckJumpCondDuplicateDestinationIsReported(t *testing.T) {
	src := `@0 (%0:b) => () {
{0}
  jcc %0, {0}, {0}
}
`
	prog := mustParse(t, src)
	issues := Check(prog)
	found := false
	for _, iss := range issues {
		if iss.Kind == JumpCondDuplicateDestinations {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a JumpCondDuplicateDestinations issue, got: %v", issues)
	}
}

func TestCheckLoopSumOkay(t *testing.T) {
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
	if issues := Check(prog); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckCrossBranchUseIsNotDominatedIsReported(t *testing.T) {
	// %1 is defined in block {1} and used directly (no phi) in sibling
	// block {2}; {1} does not dominate {2}, so the definition does not
	// dominate the use.
	src := `@0 (%0:b) => () {
{0}
  jcc %0, {1}, {2}
{1}
  %1:i64 = mov #1:i64
  jmp {3}
{2}
  %2:i64 = iadd %1, #1:i64
  jmp {3}
{3}
  ret
}
`
	prog := mustParse(t, src)
	issues := Check(prog)
	found := false
	for _, iss := range issues {
		if iss.Kind == ComputedValueDefinitionDoesNotDominateUse {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a ComputedValueDefinitionDoesNotDominateUse issue, got: %v", issues)
	}
}

func TestCheckReturnArityMismatchIsReported(t *testing.T) {
	src := `@0 () => (i64) {
{0}
  ret
}
`
	prog := mustParse(t, src)
	issues := Check(prog)
	found := false
	for _, iss := range issues {
		if iss.Kind == ReturnDoesNotMatchFuncSignature {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a ReturnDoesNotMatchFuncSignature issue, got: %v", issues)
	}
}
