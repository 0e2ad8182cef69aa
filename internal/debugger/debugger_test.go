package debugger

import (
	"testing"
	"time"

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

func TestDebuggerStartsPaused(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	dbg := NewDebugger(prog)
	require.Equal(t, StatePaused, dbg.State())
}

func TestDebuggerRunsToCompletion(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	fn := prog.MustFunc(0)
	dbg := NewDebugger(prog)

	dbg.Start(fn, nil)
	require.NoError(t, dbg.Run())

	require.Eventually(t, func() bool {
		return dbg.State() == StateTerminated
	}, time.Second, time.Millisecond)

	results, done := dbg.Results()
	require.True(t, done)
	require.Len(t, results, 1)
	require.Equal(t, int64(55), results[0].Int)
}

func TestDebuggerStepInPausesAtNextInstruction(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	fn := prog.MustFunc(0)
	dbg := NewDebugger(prog)

	dbg.Start(fn, nil)
	require.NoError(t, dbg.StepIn())

	require.Eventually(t, func() bool {
		return dbg.State() == StatePaused
	}, time.Second, time.Millisecond)
}

func TestDebuggerBreakpointBookkeeping(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	dbg := NewDebugger(prog)

	id1 := dbg.AddBreakpoint(0, 1)
	id2 := dbg.AddBreakpoint(0, 3)

	bps := dbg.Breakpoints()
	require.Len(t, bps, 2)
	require.Equal(t, id1, bps[0].ID)
	require.Equal(t, id2, bps[1].ID)

	require.True(t, dbg.RemoveBreakpoint(id1))
	require.False(t, dbg.RemoveBreakpoint(id1))
	require.Len(t, dbg.Breakpoints(), 1)
}

func TestDebuggerBreakpointPausesExecution(t *testing.T) {
	prog := mustParse(t, loopSumSrc)
	fn := prog.MustFunc(0)
	dbg := NewDebugger(prog)
	dbg.AddBreakpoint(0, 3)

	dbg.Start(fn, nil)
	require.NoError(t, dbg.Run())

	require.Eventually(t, func() bool {
		return dbg.State() == StatePaused
	}, time.Second, time.Millisecond)

	bps := dbg.Breakpoints()
	require.Equal(t, 1, bps[0].HitCount)

	require.NoError(t, dbg.Run())
	require.Eventually(t, func() bool {
		return dbg.State() == StateTerminated
	}, time.Second, time.Millisecond)
}
