package interp

import (
	"testing"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irparse"
	"github.com/stretchr/testify/require"
)

const loopSumSrc = `@0 () => (i64) {
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

func mustParse(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, errs := irparse.Parse([]byte(src))
	require.Empty(t, errs)
	return prog
}

func TestInterpreterRunsLoopSum(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	fn := prog.MustFunc(0)

	in := NewInterpreter(prog)
	results := in.Run(fn, nil)

	require.Len(t, results, 1)
	require.Equal(t, int64(55), results[0].Int)
}

func TestInterpreterPanicInstructionStopsExecution(t *testing.T) {
	src := `@0 () => () {
{0}
  panic "boom"
}
`
	prog := mustParse(t, src)
	fn := prog.MustFunc(0)
	in := NewInterpreter(prog)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		pe, ok := r.(*PanicError)
		require.True(t, ok)
		require.Equal(t, "boom", pe.Reason)
	}()
	in.Run(fn, nil)
}

func TestInterpreterMallocStoreLoad(t *testing.T) {
	src := `@0 () => (i64) {
{0}
  %0:ptr = malloc #8:i64
  store %0, #42:i64
  %1:i64 = load %0
  free %0
  ret %1
}
`
	prog := mustParse(t, src)
	fn := prog.MustFunc(0)
	in := NewInterpreter(prog)

	results := in.Run(fn, nil)
	require.Len(t, results, 1)
	require.Equal(t, int64(42), results[0].Int)
}

func TestInterpreterBeforeInstrHookCountsSteps(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	fn := prog.MustFunc(0)
	in := NewInterpreter(prog)

	steps := 0
	in.SetBeforeInstrHook(func(frame *StackFrame) {
		steps++
	})
	in.Run(fn, nil)

	require.Greater(t, steps, 0)
}
