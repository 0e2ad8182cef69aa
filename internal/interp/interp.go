package interp

import (
	"fmt"

	"github.com/arneph/katara-ir/internal/ir"
)

// PanicError is raised (as a Go panic) by an executed `panic` instruction
// and is the only kind of panic interp.Interpreter.Run expects a caller
// to recover from; any other panic is a programmer error (malformed or
// unchecked program, §4.10).
type PanicError struct{ Reason string }

func (e *PanicError) Error() string { return fmt.Sprintf("program panicked: %s", e.Reason) }

// SyscallFunc implements one syscall number for `syscall` instructions.
// The interpreter has no kernel underneath it, so every syscall an
// interpreted program uses must be registered explicitly.
type SyscallFunc func(args []int64) int64

// StepHook is called immediately before each instruction executes, with
// the frame it is about to execute in. internal/debugger uses this to
// implement pausing, stepping, and breakpoints without the interpreter
// itself knowing about any of that.
type StepHook func(frame *StackFrame)

// Interpreter executes a checked *ir.Program function by function,
// single-threaded, maintaining a real call stack (internal/interp.Stack)
// across nested `call` instructions and a simulated heap
// (internal/interp.Heap) for malloc/load/store/free and the shared/
// unique pointer extension instructions.
type Interpreter struct {
	prog        *ir.Program
	heap        *Heap
	stack       *Stack
	syscalls    map[int64]SyscallFunc
	beforeInstr StepHook
}

// NewInterpreter returns an interpreter over prog with an empty heap and
// stack.
func NewInterpreter(prog *ir.Program) *Interpreter {
	return &Interpreter{
		prog:     prog,
		heap:     NewHeap(),
		stack:    &Stack{},
		syscalls: make(map[int64]SyscallFunc),
	}
}

// Program returns the interpreted program.
func (in *Interpreter) Program() *ir.Program { return in.prog }

// Heap returns the interpreter's simulated heap.
func (in *Interpreter) Heap() *Heap { return in.heap }

// Stack returns the interpreter's call stack.
func (in *Interpreter) Stack() *Stack { return in.stack }

// RegisterSyscall installs fn as the handler for syscall number num.
func (in *Interpreter) RegisterSyscall(num int64, fn SyscallFunc) {
	in.syscalls[num] = fn
}

// SetBeforeInstrHook installs hook to be called before every instruction.
func (in *Interpreter) SetBeforeInstrHook(hook StepHook) {
	in.beforeInstr = hook
}

// Run executes fn to completion with the given argument values and
// returns its results. Run pushes one interp.StackFrame per call,
// including fn itself, so the stack reflects the call in progress for
// the duration of Run (observable by a debugger paused inside a nested
// call). Panics with *PanicError if the program executes a `panic`
// instruction.
func (in *Interpreter) Run(fn *ir.Function, args []*ir.Constant) []*ir.Constant {
	frame := in.stack.PushFrame(fn)
	defer in.stack.PopCurrentFrame()
	for i, arg := range fn.Args {
		frame.computedValues[arg.Number] = args[i]
	}
	for !frame.execPoint.IsAtFuncExit() {
		in.execStep(frame)
	}
	return frame.execPoint.Results()
}

// execStep executes the single instruction at frame's execution point
// and advances it.
func (in *Interpreter) execStep(frame *StackFrame) {
	if in.beforeInstr != nil {
		in.beforeInstr(frame)
	}

	ep := frame.execPoint
	instr := ep.NextInstr()
	if instr == nil {
		panic("interp: execution point past block end without reaching a terminator")
	}

	switch v := instr.(type) {
	case *ir.Phi:
		prev := ep.PreviousBlock()
		if prev == nil {
			panic("interp: phi reached with no previous block")
		}
		arg, ok := v.ArgForParent(prev.Number)
		if !ok {
			panic(fmt.Sprintf("interp: phi has no argument for parent block {%d}", prev.Number))
		}
		frame.computedValues[v.Result.Number] = in.eval(frame, arg.Value)
		ep.AdvanceToNextInstr()

	case *ir.Mov:
		frame.computedValues[v.Result.Number] = in.eval(frame, v.Origin)
		ep.AdvanceToNextInstr()

	case *ir.Conversion:
		frame.computedValues[v.Result.Number] = in.evalConversion(frame, v)
		ep.AdvanceToNextInstr()

	case *ir.BoolNot:
		operand := in.eval(frame, v.Operand)
		frame.computedValues[v.Result.Number] = ir.NewBoolConstant(!operand.Bool)
		ep.AdvanceToNextInstr()

	case *ir.BoolBinary:
		a, b := in.eval(frame, v.A), in.eval(frame, v.B)
		var result bool
		if v.Op == ir.BoolAnd {
			result = a.Bool && b.Bool
		} else {
			result = a.Bool || b.Bool
		}
		frame.computedValues[v.Result.Number] = ir.NewBoolConstant(result)
		ep.AdvanceToNextInstr()

	case *ir.IntUnary:
		operand := in.eval(frame, v.Operand)
		frame.computedValues[v.Result.Number] = ir.NewIntConstant(intUnary(v.Op, operand.Int, v.Result.Type()), v.Result.Type())
		ep.AdvanceToNextInstr()

	case *ir.IntCompare:
		a, b := in.eval(frame, v.A), in.eval(frame, v.B)
		frame.computedValues[v.Result.Number] = ir.NewBoolConstant(intCompare(v.Op, a.Int, b.Int, a.Type()))
		ep.AdvanceToNextInstr()

	case *ir.IntBinary:
		a, b := in.eval(frame, v.A), in.eval(frame, v.B)
		frame.computedValues[v.Result.Number] = ir.NewIntConstant(intBinary(v.Op, a.Int, b.Int, v.Result.Type()), v.Result.Type())
		ep.AdvanceToNextInstr()

	case *ir.IntShift:
		shifted, offset := in.eval(frame, v.Shifted), in.eval(frame, v.Offset)
		frame.computedValues[v.Result.Number] = ir.NewIntConstant(intShift(v.Op, shifted.Int, offset.Int, v.Result.Type()), v.Result.Type())
		ep.AdvanceToNextInstr()

	case *ir.PointerOffset:
		ptr, offset := in.eval(frame, v.Pointer), in.eval(frame, v.Offset)
		frame.computedValues[v.Result.Number] = ir.NewPointerConstant(ptr.Pointer + uint64(offset.Int))
		ep.AdvanceToNextInstr()

	case *ir.NilTest:
		tested := in.eval(frame, v.Tested)
		var isNil bool
		if tested.Which == ir.ConstFunc {
			isNil = tested.Func == 0
		} else {
			isNil = tested.Pointer == 0
		}
		frame.computedValues[v.Result.Number] = ir.NewBoolConstant(isNil)
		ep.AdvanceToNextInstr()

	case *ir.Malloc:
		size := in.eval(frame, v.Size)
		addr := in.heap.Alloc(size.Int)
		frame.computedValues[v.Result.Number] = ir.NewPointerConstant(addr)
		ep.AdvanceToNextInstr()

	case *ir.Load:
		addr := in.eval(frame, v.Address)
		val, ok := in.heap.Load(addr.Pointer)
		if !ok {
			panic(fmt.Sprintf("interp: load from uninitialized address 0x%x", addr.Pointer))
		}
		frame.computedValues[v.Result.Number] = val
		ep.AdvanceToNextInstr()

	case *ir.Store:
		addr, val := in.eval(frame, v.Address), in.eval(frame, v.Value)
		in.heap.Store(addr.Pointer, val)
		ep.AdvanceToNextInstr()

	case *ir.Free:
		addr := in.eval(frame, v.Address)
		in.heap.Free(addr.Pointer)
		ep.AdvanceToNextInstr()

	case *ir.MakeShared:
		size := in.eval(frame, v.Size)
		addr := in.heap.AllocShared(size.Int)
		frame.computedValues[v.Result.Number] = ir.NewPointerConstant(addr)
		ep.AdvanceToNextInstr()

	case *ir.CopyShared:
		copied, offset := in.eval(frame, v.Copied), in.eval(frame, v.Offset)
		addr := copied.Pointer + uint64(offset.Int)
		result, _ := v.Result.Type().(*ir.SharedPointerType)
		if result != nil && result.Ownership == ir.OwnershipStrong {
			in.heap.Retain(copied.Pointer)
		}
		frame.computedValues[v.Result.Number] = ir.NewPointerConstant(addr)
		ep.AdvanceToNextInstr()

	case *ir.DeleteShared:
		addr := in.eval(frame, v.Argument)
		in.heap.Release(addr.Pointer)
		ep.AdvanceToNextInstr()

	case *ir.MakeUnique:
		size := in.eval(frame, v.Size)
		addr := in.heap.Alloc(size.Int)
		frame.computedValues[v.Result.Number] = ir.NewPointerConstant(addr)
		ep.AdvanceToNextInstr()

	case *ir.DeleteUnique:
		addr := in.eval(frame, v.Argument)
		in.heap.Free(addr.Pointer)
		ep.AdvanceToNextInstr()

	case *ir.StringIndex:
		str, idx := in.eval(frame, v.Str), in.eval(frame, v.Index)
		if idx.Int < 0 || int(idx.Int) >= len(str.Str) {
			panic(fmt.Sprintf("interp: string index %d out of range (len %d)", idx.Int, len(str.Str)))
		}
		frame.computedValues[v.Result.Number] = ir.NewIntConstant(int64(str.Str[idx.Int]), ir.I8)
		ep.AdvanceToNextInstr()

	case *ir.StringConcat:
		var out []byte
		for _, part := range v.Parts {
			out = append(out, in.eval(frame, part).Str...)
		}
		frame.computedValues[v.Result.Number] = ir.NewStringConstant(out)
		ep.AdvanceToNextInstr()

	case *ir.Panic:
		reason := in.eval(frame, v.Reason)
		panic(&PanicError{Reason: string(reason.Str)})

	case *ir.Syscall:
		number := in.eval(frame, v.Number)
		fn, ok := in.syscalls[number.Int]
		if !ok {
			panic(fmt.Sprintf("interp: unimplemented syscall %d", number.Int))
		}
		args := make([]int64, len(v.Args))
		for i, a := range v.Args {
			args[i] = in.eval(frame, a).Int
		}
		frame.computedValues[v.Result.Number] = ir.NewIntConstant(fn(args), ir.I64)
		ep.AdvanceToNextInstr()

	case *ir.Call:
		calleeNum, ok := v.StaticCallee()
		if !ok {
			panic("interp: call to a dynamically-computed function pointer is not supported")
		}
		callee := in.prog.MustFunc(calleeNum)
		args := make([]*ir.Constant, len(v.Args))
		for i, a := range v.Args {
			args[i] = in.eval(frame, a)
		}
		results := in.Run(callee, args)
		for i, r := range v.ResultVals {
			frame.computedValues[r.Number] = results[i]
		}
		ep.AdvanceToNextInstr()

	case *ir.Jump:
		ep.AdvanceToNextBlock(frame.fn.MustBlock(v.Dest))

	case *ir.JumpCond:
		cond := in.eval(frame, v.Cond)
		if cond.Bool {
			ep.AdvanceToNextBlock(frame.fn.MustBlock(v.TrueDest))
		} else {
			ep.AdvanceToNextBlock(frame.fn.MustBlock(v.FalseDest))
		}

	case *ir.Return:
		results := make([]*ir.Constant, len(v.Args))
		for i, a := range v.Args {
			results[i] = in.eval(frame, a)
		}
		ep.AdvanceToFuncExit(results)

	default:
		panic(fmt.Sprintf("interp: unhandled instruction kind %T", instr))
	}

	frame.SetExecPoint(ep)
}

// eval resolves v to its current runtime constant within frame.
// InheritedValue only ever appears as a phi operand, which execStep
// unwraps itself, so eval never needs the originating block.
func (in *Interpreter) eval(frame *StackFrame, v ir.Value) *ir.Constant {
	switch vv := v.(type) {
	case *ir.Constant:
		return vv
	case *ir.Computed:
		val, ok := frame.computedValues[vv.Number]
		if !ok {
			panic(fmt.Sprintf("interp: %%%d read before being defined", vv.Number))
		}
		return val
	case *ir.InheritedValue:
		return in.eval(frame, vv.Value)
	default:
		panic(fmt.Sprintf("interp: unknown value kind %T", v))
	}
}

// evalConversion interprets a `conv` instruction between bool, int, ptr,
// and func operands (§3's conversion row).
func (in *Interpreter) evalConversion(frame *StackFrame, c *ir.Conversion) *ir.Constant {
	operand := in.eval(frame, c.Operand)
	result := c.Result.Type()

	switch {
	case result.Kind() == ir.TypeBool:
		switch operand.Which {
		case ir.ConstBool:
			return ir.NewBoolConstant(operand.Bool)
		case ir.ConstInt:
			return ir.NewBoolConstant(operand.Int != 0)
		default:
			panic("interp: unsupported conversion to bool")
		}
	case ir.IsInt(result):
		var raw int64
		switch operand.Which {
		case ir.ConstBool:
			if operand.Bool {
				raw = 1
			}
		case ir.ConstInt:
			raw = operand.Int
		case ir.ConstPointer:
			raw = int64(operand.Pointer)
		default:
			panic("interp: unsupported conversion to int")
		}
		return ir.NewIntConstant(maskInt(raw, result), result)
	case result.Kind() == ir.TypePointer:
		switch operand.Which {
		case ir.ConstInt:
			return ir.NewPointerConstant(uint64(operand.Int))
		case ir.ConstPointer:
			return ir.NewPointerConstant(operand.Pointer)
		default:
			panic("interp: unsupported conversion to ptr")
		}
	case result.Kind() == ir.TypeFunc:
		if operand.Which == ir.ConstFunc {
			return ir.NewFuncConstant(operand.Func)
		}
		panic("interp: unsupported conversion to func")
	default:
		panic("interp: unsupported conversion target type")
	}
}

func widthMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// maskInt truncates v to t's bit width, sign-extending if t is signed.
func maskInt(v int64, t ir.Type) int64 {
	width := uint(ir.IntWidth(t))
	if width >= 64 {
		return v
	}
	mask := widthMask(width)
	u := uint64(v) & mask
	if ir.IsSignedInt(t) {
		signBit := uint64(1) << (width - 1)
		if u&signBit != 0 {
			u |= ^mask
		}
	}
	return int64(u)
}

func intUnary(op ir.IntUnaryOp, a int64, t ir.Type) int64 {
	switch op {
	case ir.IntNeg:
		return maskInt(-a, t)
	case ir.IntNot:
		return maskInt(^a, t)
	default:
		panic("interp: unknown int-unary operator")
	}
}

func intBinary(op ir.IntBinaryOp, a, b int64, t ir.Type) int64 {
	signed := ir.IsSignedInt(t)
	var res int64
	switch op {
	case ir.IntAdd:
		if signed {
			res = a + b
		} else {
			res = int64(uint64(a) + uint64(b))
		}
	case ir.IntSub:
		if signed {
			res = a - b
		} else {
			res = int64(uint64(a) - uint64(b))
		}
	case ir.IntMul:
		if signed {
			res = a * b
		} else {
			res = int64(uint64(a) * uint64(b))
		}
	case ir.IntQuo:
		if signed {
			res = a / b
		} else {
			res = int64(uint64(a) / uint64(b))
		}
	case ir.IntRem:
		if signed {
			res = a % b
		} else {
			res = int64(uint64(a) % uint64(b))
		}
	case ir.IntAnd:
		res = a & b
	case ir.IntOr:
		res = a | b
	case ir.IntXor:
		res = a ^ b
	case ir.IntAndNot:
		res = a &^ b
	default:
		panic("interp: unknown int-binary operator")
	}
	return maskInt(res, t)
}

func intShift(op ir.IntShiftOp, shifted, offset int64, t ir.Type) int64 {
	width := uint(ir.IntWidth(t))
	amount := uint(offset) % width
	if op == ir.ShiftLeft {
		return maskInt(shifted<<amount, t)
	}
	if ir.IsSignedInt(t) {
		return maskInt(shifted>>amount, t)
	}
	u := uint64(shifted) & widthMask(width)
	return maskInt(int64(u>>amount), t)
}

func intCompare(op ir.IntCompareOp, a, b int64, t ir.Type) bool {
	signed := ir.IsSignedInt(t)
	switch op {
	case ir.IntEq:
		return a == b
	case ir.IntNeq:
		return a != b
	case ir.IntLss:
		if signed {
			return a < b
		}
		return uint64(a) < uint64(b)
	case ir.IntLeq:
		if signed {
			return a <= b
		}
		return uint64(a) <= uint64(b)
	case ir.IntGtr:
		if signed {
			return a > b
		}
		return uint64(a) > uint64(b)
	case ir.IntGeq:
		if signed {
			return a >= b
		}
		return uint64(a) >= uint64(b)
	default:
		panic("interp: unknown int-compare operator")
	}
}
