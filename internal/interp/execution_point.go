// Package interp is a tree-walking interpreter over checked *ir.Program
// values. It is not part of THE CORE (spec.md §2) but is named as an
// external collaborator whose correctness is directly testable (spec.md
// §8 scenario 3: "Interpreter returns 55"), and is supplemented per
// SPEC_FULL.md §12 with a real call stack across nested `call`
// instructions, grounded on
// original_source/src/ir/interpreter/{stack.h,execution_point.h}.
package interp

import "github.com/arneph/katara-ir/internal/ir"

// ExecutionPoint names exactly where a stack frame is paused: the block
// it came from (nil at function entry), the block it is currently in
// (nil once the function has returned), and the index of the next
// instruction to execute within that block. Grounded on
// original_source/src/ir/interpreter/execution_point.h.
type ExecutionPoint struct {
	previousBlock *ir.Block
	currentBlock  *ir.Block
	nextInstrIdx  int
	results       []*ir.Constant
}

// AtFuncEntry returns the execution point at the very start of fn: its
// entry block, before any instruction.
func AtFuncEntry(fn *ir.Function) ExecutionPoint {
	entry, _ := fn.EntryBlock()
	return ExecutionPoint{currentBlock: entry}
}

// IsAtBlockEntry reports whether the point is positioned before the
// first instruction of its current block.
func (e ExecutionPoint) IsAtBlockEntry() bool { return e.nextInstrIdx == 0 }

// IsAtFuncExit reports whether the owning frame's function has
// returned.
func (e ExecutionPoint) IsAtFuncExit() bool { return e.currentBlock == nil }

// PreviousBlock returns the block execution most recently jumped from,
// used to resolve which phi operand applies (§4.2's phi dominance rule
// keys off this, not the phi's own block).
func (e ExecutionPoint) PreviousBlock() *ir.Block { return e.previousBlock }

// CurrentBlock returns the block execution is currently in, or nil past
// function exit.
func (e ExecutionPoint) CurrentBlock() *ir.Block { return e.currentBlock }

// NextInstrIndex returns the index of the next instruction to execute.
func (e ExecutionPoint) NextInstrIndex() int { return e.nextInstrIdx }

// NextInstr returns the next instruction to execute, or nil at function
// exit.
func (e ExecutionPoint) NextInstr() ir.Instruction {
	if e.currentBlock == nil {
		return nil
	}
	instrs := e.currentBlock.Instrs()
	if e.nextInstrIdx >= len(instrs) {
		return nil
	}
	return instrs[e.nextInstrIdx]
}

// Results returns the function's return values, valid only once
// IsAtFuncExit is true.
func (e ExecutionPoint) Results() []*ir.Constant { return e.results }

// AdvanceToNextInstr moves past the current instruction within the same
// block.
func (e *ExecutionPoint) AdvanceToNextInstr() { e.nextInstrIdx++ }

// AdvanceToNextBlock moves execution to the start of next, recording the
// block just left as the new previous block (for phi resolution).
func (e *ExecutionPoint) AdvanceToNextBlock(next *ir.Block) {
	e.previousBlock = e.currentBlock
	e.currentBlock = next
	e.nextInstrIdx = 0
}

// AdvanceToFuncExit marks the frame as having returned with the given
// results.
func (e *ExecutionPoint) AdvanceToFuncExit(results []*ir.Constant) {
	e.previousBlock = e.currentBlock
	e.currentBlock = nil
	e.nextInstrIdx = 0
	e.results = results
}
