package x86

import (
	"testing"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorAndSizeToOperandRoundTrips(t *testing.T) {
	for color := 0; color < 20; color++ {
		op := ColorAndSizeToOperand(color, Size64)
		got := OperandToColor(op)
		assert.Equalf(t, color, got, "color %d round-tripped to %d via %v", color, got, op)
	}
}

func TestColorAndSizeToOperandPanicsOnNoColor(t *testing.T) {
	assert.Panics(t, func() {
		ColorAndSizeToOperand(irinfo.NoColor, Size64)
	})
}

func TestColorAndSizeToOperandSkipsReservedRegisters(t *testing.T) {
	for color := 0; color <= 13; color++ {
		reg, ok := ColorAndSizeToOperand(color, Size32).(Reg)
		require.True(t, ok, "color %d should map to a register", color)
		assert.NotEqual(t, int8(4), reg.Num, "color %d must not land on rsp", color)
		assert.NotEqual(t, int8(5), reg.Num, "color %d must not land on rbp", color)
	}
}

func TestColorAndSizeToOperandSpillsToStack(t *testing.T) {
	mem, ok := ColorAndSizeToOperand(14, Size64).(Mem)
	require.True(t, ok)
	assert.Equal(t, int32(-8), mem.Disp)

	mem, ok = ColorAndSizeToOperand(15, Size64).(Mem)
	require.True(t, ok)
	assert.Equal(t, int32(-16), mem.Disp)
}

func TestSavingBehaviourForReg(t *testing.T) {
	assert.Equal(t, SavedByCallee, SavingBehaviourForReg(Reg{Num: 3}))  // rbx
	assert.Equal(t, SavedByCallee, SavingBehaviourForReg(Reg{Num: 12})) // r12
	assert.Equal(t, SavedByCaller, SavingBehaviourForReg(Reg{Num: 0}))  // rax
	assert.Equal(t, SavedByCaller, SavingBehaviourForReg(Reg{Num: 7}))  // rdi
}

func TestOperandForArgPanicsBeyondSixArgs(t *testing.T) {
	assert.NotPanics(t, func() { OperandForArg(5, Size64) })
	assert.Panics(t, func() { OperandForArg(6, Size64) })
}

func TestOperandForResultPanicsBeyondTwoResults(t *testing.T) {
	assert.NotPanics(t, func() { OperandForResult(1, Size64) })
	assert.Panics(t, func() { OperandForResult(2, Size64) })
}

func TestSizeForType(t *testing.T) {
	assert.Equal(t, Size8, SizeForType(ir.Bool))
	assert.Equal(t, Size8, SizeForType(ir.I8))
	assert.Equal(t, Size64, SizeForType(ir.I64))
	assert.Equal(t, Size64, SizeForType(ir.Ptr))
}
