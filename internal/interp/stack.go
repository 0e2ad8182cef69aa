package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arneph/katara-ir/internal/ir"
)

// StackFrame is one activation record: the function being executed, its
// execution point, and every computed value bound so far. Grounded on
// original_source/src/ir/interpreter/stack.h's StackFrame.
type StackFrame struct {
	parent         *StackFrame
	fn             *ir.Function
	execPoint      ExecutionPoint
	computedValues map[int64]*ir.Constant
}

// Parent returns the caller's frame, or nil for the outermost call.
func (f *StackFrame) Parent() *StackFrame { return f.parent }

// Func returns the function this frame is executing.
func (f *StackFrame) Func() *ir.Function { return f.fn }

// ExecPoint returns the frame's current execution point.
func (f *StackFrame) ExecPoint() ExecutionPoint { return f.execPoint }

// SetExecPoint updates the frame's execution point.
func (f *StackFrame) SetExecPoint(ep ExecutionPoint) { f.execPoint = ep }

// ComputedValues returns the frame's value-number -> constant bindings.
// Callers must not mutate the map directly outside of the interpreter.
func (f *StackFrame) ComputedValues() map[int64]*ir.Constant { return f.computedValues }

// Value looks up a computed value by number in this frame.
func (f *StackFrame) Value(num int64) (*ir.Constant, bool) {
	v, ok := f.computedValues[num]
	return v, ok
}

// ToDebuggerString renders the frame's bindings, one per line, for the
// debugger's `print stackframe`/`print <n>` commands.
func (f *StackFrame) ToDebuggerString() string {
	var b strings.Builder
	name := fmt.Sprintf("@%d", f.fn.Number)
	if f.fn.Name != "" {
		name += " " + f.fn.Name
	}
	blockNum := int64(-1)
	if cur := f.execPoint.CurrentBlock(); cur != nil {
		blockNum = cur.Number
	}
	fmt.Fprintf(&b, "%s at {%d}#%d\n", name, blockNum, f.execPoint.NextInstrIndex())

	nums := make([]int64, 0, len(f.computedValues))
	for n := range f.computedValues {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for _, n := range nums {
		fmt.Fprintf(&b, "  %%%d = %s\n", n, f.computedValues[n])
	}
	return b.String()
}

// Stack is the interpreter's call stack: one StackFrame per nested
// `call` instruction still in flight. Grounded on
// original_source/src/ir/interpreter/stack.h's Stack.
type Stack struct {
	frames []*StackFrame
}

// Depth returns the number of frames currently on the stack.
func (s *Stack) Depth() int { return len(s.frames) }

// Frames returns every frame, outermost first.
func (s *Stack) Frames() []*StackFrame { return s.frames }

// CurrentFrame returns the innermost frame, or nil if the stack is
// empty.
func (s *Stack) CurrentFrame() *StackFrame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// PushFrame starts a new activation of fn, parented to the current
// frame (if any), and returns it.
func (s *Stack) PushFrame(fn *ir.Function) *StackFrame {
	frame := &StackFrame{
		fn:             fn,
		execPoint:      AtFuncEntry(fn),
		computedValues: make(map[int64]*ir.Constant),
	}
	if cur := s.CurrentFrame(); cur != nil {
		frame.parent = cur
	}
	s.frames = append(s.frames, frame)
	return frame
}

// PopCurrentFrame discards the innermost frame.
func (s *Stack) PopCurrentFrame() {
	s.frames = s.frames[:len(s.frames)-1]
}

// ToDebuggerString renders the whole call stack, innermost frame first,
// for the debugger's `print stack` command.
func (s *Stack) ToDebuggerString() string {
	var b strings.Builder
	for i := len(s.frames) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "#%d %s", len(s.frames)-1-i, s.frames[i].ToDebuggerString())
	}
	return b.String()
}
