// Package x86 maps register-coloring results (internal/irproc, §4.8) onto
// x86-64 storage operands: the first 14 colors to general-purpose
// registers (skipping rsp/rbp), any color beyond that to a stack slot
// below the frame's base pointer. It stops there — no instruction
// selection or emission, per spec.md §1's target-lowering non-goal.
//
// Grounded verbatim on
// original_source/src/x86_64/ir_translator/register_allocator.cc.
package x86

import (
	"fmt"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irinfo"
)

// Size is an operand width in bytes, mirroring x86_64::Size.
type Size int

const (
	Size8  Size = 1
	Size16 Size = 2
	Size32 Size = 4
	Size64 Size = 8
)

// SizeForType returns the natural x86-64 operand width for an IR type.
func SizeForType(t ir.Type) Size {
	switch t.Kind() {
	case ir.TypeBool, ir.TypeI8, ir.TypeU8:
		return Size8
	case ir.TypeI16, ir.TypeU16:
		return Size16
	case ir.TypeI32, ir.TypeU32:
		return Size32
	default:
		return Size64
	}
}

// Reg is a physical general-purpose register, numbered per the x86-64
// encoding (0=rax, 1=rcx, 2=rdx, 3=rbx, 4=rsp, 5=rbp, 6=rsi, 7=rdi,
// 8-15=r8-r15).
type Reg struct {
	Size Size
	Num  int8
}

func (r Reg) String() string { return fmt.Sprintf("%%r%d(%d)", r.Num, r.Size) }
func (r Reg) isOperand()     {}

// Mem is a base-pointer-relative memory operand (a spill slot).
type Mem struct {
	Size Size
	Disp int32
}

func (m Mem) String() string { return fmt.Sprintf("[rbp%+d]", m.Disp) }
func (m Mem) isOperand()     {}

// Operand is a storage location a color maps to: a register or a
// base-pointer-relative memory slot.
type Operand interface {
	fmt.Stringer
	isOperand()
}

// RegSavingBehaviour says who must preserve a register's value across a
// call, per the System V AMD64 ABI.
type RegSavingBehaviour int

const (
	SavedByCaller RegSavingBehaviour = iota
	SavedByCallee
)

// SavingBehaviourForReg reports the ABI's save discipline for reg.
func SavingBehaviourForReg(reg Reg) RegSavingBehaviour {
	switch reg.Num {
	case 3, 4, 5, 12, 13, 14, 15: // rbx, rsp, rbp, r12-r15
		return SavedByCallee
	default:
		return SavedByCaller
	}
}

// argRegs and resultRegs are the System V AMD64 argument/return register
// sequences; argument passing beyond six registers and return values
// beyond two are out of scope (no calling-convention spill support).
var argRegs = [...]int8{7, 6, 2, 1, 8, 9} // rdi, rsi, rdx, rcx, r8, r9
var resultRegs = [...]int8{0, 2}          // rax, rdx

// OperandForArg returns the physical argument register for the
// argIndex-th parameter (0-based).
func OperandForArg(argIndex int, size Size) Reg {
	if argIndex < 0 || argIndex >= len(argRegs) {
		panic("x86: can not handle functions with more than six arguments")
	}
	return Reg{Size: size, Num: argRegs[argIndex]}
}

// OperandForResult returns the physical result register for the
// resultIndex-th return value (0-based).
func OperandForResult(resultIndex int, size Size) Reg {
	if resultIndex < 0 || resultIndex >= len(resultRegs) {
		panic("x86: can not handle functions with more than two return values")
	}
	return Reg{Size: size, Num: resultRegs[resultIndex]}
}

// ColorAndSizeToOperand maps a register-allocator color to the physical
// operand it denotes: colors 0-3 are rax/rcx/rdx/rbx, colors 4-13 are
// r8-r15 plus rsi/rdi (skipping the reserved rsp/rbp slots at encodings
// 4 and 5), and any color at or beyond 14 is a stack slot 8*(color-13)
// bytes below the frame base pointer.
func ColorAndSizeToOperand(color int, size Size) Operand {
	switch {
	case color == irinfo.NoColor:
		panic("x86: attempted to convert no-color to an operand")
	case color >= 0 && color <= 3:
		return Reg{Size: size, Num: int8(color)}
	case color >= 4 && color <= 13:
		return Reg{Size: size, Num: int8(color + 2)}
	default:
		return Mem{Size: size, Disp: int32(-8 * (color - 13))}
	}
}

// OperandToColor is ColorAndSizeToOperand's inverse, used to seed
// preferred colors from the ABI's fixed argument/result registers.
func OperandToColor(op Operand) int {
	switch o := op.(type) {
	case Reg:
		switch {
		case o.Num >= 0 && o.Num <= 3:
			return int(o.Num)
		case o.Num >= 6 && o.Num <= 15:
			return int(o.Num) - 2
		default:
			panic("x86: attempted to convert a reserved register to a color")
		}
	case Mem:
		return int(o.Disp/-8) + 13
	default:
		panic("x86: unknown operand kind")
	}
}

// AddPreferredColorsForFuncArgs seeds preferred, from fn's argument
// list, with the color that corresponds to each argument's fixed
// physical register under the System V ABI.
func AddPreferredColorsForFuncArgs(fn *ir.Function, preferred *irinfo.Colors) {
	for i, arg := range fn.Args {
		operand := OperandForArg(i, SizeForType(arg.Type()))
		preferred.SetColor(arg.Number, OperandToColor(operand))
	}
}

// AddPreferredColorsForFuncResults seeds preferred with the colors that
// correspond to the fixed return registers, for every computed value
// reaching a return instruction's argument list directly.
func AddPreferredColorsForFuncResults(fn *ir.Function, preferred *irinfo.Colors) {
	for _, b := range fn.Blocks() {
		ret, ok := b.Terminator().(*ir.Return)
		if !ok {
			continue
		}
		for i, arg := range ret.Args {
			computed, ok := ir.AsComputed(arg)
			if !ok {
				continue
			}
			operand := OperandForResult(i, SizeForType(computed.Type()))
			preferred.SetColor(computed.Number, OperandToColor(operand))
		}
	}
}

// AllocateRegistersInFunc colors fn's interference graph, seeding
// preferred colors from the ABI's argument and return registers before
// running the greedy allocator of internal/irproc.
func AllocateRegistersInFunc(fn *ir.Function, graph *irinfo.InterferenceGraph, colorFunc func(*irinfo.InterferenceGraph, *irinfo.Colors) *irinfo.Colors) *irinfo.Colors {
	preferred := irinfo.NewColors()
	AddPreferredColorsForFuncArgs(fn, preferred)
	AddPreferredColorsForFuncResults(fn, preferred)
	return colorFunc(graph, preferred)
}

// AllocateRegisters colors every function in prog, returning one color
// assignment per function number.
func AllocateRegisters(prog *ir.Program, colorFunc func(*irinfo.InterferenceGraph, *irinfo.Colors) *irinfo.Colors) map[int64]*irinfo.Colors {
	out := make(map[int64]*irinfo.Colors, len(prog.Funcs()))
	for _, fn := range prog.Funcs() {
		analyzer := irinfo.NewLiveRangeAnalyzer(fn)
		out[fn.Number] = AllocateRegistersInFunc(fn, analyzer.InterferenceGraph(), colorFunc)
	}
	return out
}
