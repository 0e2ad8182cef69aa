package ir

import "sort"

// Block is a function-unique sequence of instructions (I-B1: non-empty,
// I-B2: terminator-tailed). Parents and children are block-number sets —
// cross-references never hold raw pointers (§9), so the CFG survives
// block removal/reinsertion without dangling references.
type Block struct {
	Number int64
	Name   string

	fn       *Function
	instrs   []Instruction
	parents  map[int64]struct{}
	children map[int64]struct{}
}

// NewBlock returns an empty, detached block with the given number.
func NewBlock(number int64) *Block {
	return &Block{
		Number:   number,
		parents:  make(map[int64]struct{}),
		children: make(map[int64]struct{}),
	}
}

// Function returns the function this block belongs to, or nil if detached.
func (b *Block) Function() *Function { return b.fn }

// Instrs returns the block's instructions in order. Callers must not
// mutate the returned slice directly; use Append/InsertBefore/RemoveAt.
func (b *Block) Instrs() []Instruction { return b.instrs }

// Append adds instr to the end of the block and assigns it an instruction
// number and block back-pointer (via the owning function's counter, if
// attached).
func (b *Block) Append(instr Instruction) {
	b.attach(instr)
	b.instrs = append(b.instrs, instr)
	b.fn.invalidateDomTree()
}

// InsertBefore inserts instr immediately before the instruction at index
// idx (used by phi elimination to place movs before a terminator).
func (b *Block) InsertBefore(idx int, instr Instruction) {
	b.attach(instr)
	b.instrs = append(b.instrs, nil)
	copy(b.instrs[idx+1:], b.instrs[idx:])
	b.instrs[idx] = instr
}

// RemovePhi drops the phi instruction at index idx. Panics if the
// instruction at idx is not a Phi (programmer error).
func (b *Block) RemovePhi(idx int) {
	if !IsPhi(b.instrs[idx]) {
		panic("ir: RemovePhi called on non-phi instruction")
	}
	b.instrs = append(b.instrs[:idx], b.instrs[idx+1:]...)
}

// RemoveAt drops the instruction at index idx, shifting later
// instructions left. Used by passes that eliminate an instruction
// in place, such as pointer ownership lowering.
func (b *Block) RemoveAt(idx int) {
	b.instrs = append(b.instrs[:idx], b.instrs[idx+1:]...)
}

// ReplaceAt swaps the instruction at index idx for instr, keeping instr
// at the same position and carrying over the original's instruction
// number (this is a retyping of an existing instruction slot, not the
// insertion of a new one, so it does not consume a fresh number).
func (b *Block) ReplaceAt(idx int, instr Instruction) {
	old := b.instrs[idx]
	retypeInPlace(instr, b, old.Num())
	b.instrs[idx] = instr
	b.fn.invalidateDomTree()
}

func (b *Block) attach(instr Instruction) {
	switch v := instr.(type) {
	case *Mov:
		v.blk = b
	case *Phi:
		v.blk = b
	case *Conversion:
		v.blk = b
	case *BoolNot:
		v.blk = b
	case *BoolBinary:
		v.blk = b
	case *IntUnary:
		v.blk = b
	case *IntCompare:
		v.blk = b
	case *IntBinary:
		v.blk = b
	case *IntShift:
		v.blk = b
	case *PointerOffset:
		v.blk = b
	case *NilTest:
		v.blk = b
	case *Malloc:
		v.blk = b
	case *Load:
		v.blk = b
	case *Store:
		v.blk = b
	case *Free:
		v.blk = b
	case *Jump:
		v.blk = b
	case *JumpCond:
		v.blk = b
	case *Syscall:
		v.blk = b
	case *Call:
		v.blk = b
	case *Return:
		v.blk = b
	case *MakeShared:
		v.blk = b
	case *CopyShared:
		v.blk = b
	case *DeleteShared:
		v.blk = b
	case *MakeUnique:
		v.blk = b
	case *DeleteUnique:
		v.blk = b
	case *StringIndex:
		v.blk = b
	case *StringConcat:
		v.blk = b
	case *Panic:
		v.blk = b
	default:
		panic("ir: unknown instruction variant")
	}
	if b.fn != nil {
		b.fn.numberInstr(instr)
	}
}

// retypeInPlace sets instr's block back-pointer and reuses num instead of
// allocating a fresh instruction number, for ReplaceAt's in-place retype.
func retypeInPlace(instr Instruction, b *Block, num int64) {
	switch v := instr.(type) {
	case *Mov:
		v.blk, v.num = b, num
	case *Phi:
		v.blk, v.num = b, num
	case *Conversion:
		v.blk, v.num = b, num
	case *BoolNot:
		v.blk, v.num = b, num
	case *BoolBinary:
		v.blk, v.num = b, num
	case *IntUnary:
		v.blk, v.num = b, num
	case *IntCompare:
		v.blk, v.num = b, num
	case *IntBinary:
		v.blk, v.num = b, num
	case *IntShift:
		v.blk, v.num = b, num
	case *PointerOffset:
		v.blk, v.num = b, num
	case *NilTest:
		v.blk, v.num = b, num
	case *Malloc:
		v.blk, v.num = b, num
	case *Load:
		v.blk, v.num = b, num
	case *Store:
		v.blk, v.num = b, num
	case *Free:
		v.blk, v.num = b, num
	case *Jump:
		v.blk, v.num = b, num
	case *JumpCond:
		v.blk, v.num = b, num
	case *Syscall:
		v.blk, v.num = b, num
	case *Call:
		v.blk, v.num = b, num
	case *Return:
		v.blk, v.num = b, num
	case *MakeShared:
		v.blk, v.num = b, num
	case *CopyShared:
		v.blk, v.num = b, num
	case *DeleteShared:
		v.blk, v.num = b, num
	case *MakeUnique:
		v.blk, v.num = b, num
	case *DeleteUnique:
		v.blk, v.num = b, num
	case *StringIndex:
		v.blk, v.num = b, num
	case *StringConcat:
		v.blk, v.num = b, num
	case *Panic:
		v.blk, v.num = b, num
	default:
		panic("ir: unknown instruction variant")
	}
}

// Terminator returns the block's last instruction as a Terminator, or nil
// if the block is empty or its last instruction isn't one (a malformed
// block the checker will flag; callers on the happy path only call this
// after Check succeeds).
func (b *Block) Terminator() Terminator {
	if len(b.instrs) == 0 {
		return nil
	}
	t, ok := b.instrs[len(b.instrs)-1].(Terminator)
	if !ok {
		return nil
	}
	return t
}

// Phis returns the block's leading phi instructions, in order.
func (b *Block) Phis() []*Phi {
	var out []*Phi
	for _, instr := range b.instrs {
		p, ok := instr.(*Phi)
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// NonPhis returns the block's instructions following the phi prefix.
func (b *Block) NonPhis() []Instruction {
	i := 0
	for i < len(b.instrs) && IsPhi(b.instrs[i]) {
		i++
	}
	return b.instrs[i:]
}

// AddParent records parent as a predecessor block number.
func (b *Block) AddParent(parent int64) {
	b.parents[parent] = struct{}{}
	b.fn.invalidateDomTree()
}

// AddChild records child as a successor block number.
func (b *Block) AddChild(child int64) {
	b.children[child] = struct{}{}
	b.fn.invalidateDomTree()
}

// RemoveParent drops parent from the predecessor set.
func (b *Block) RemoveParent(parent int64) {
	delete(b.parents, parent)
	b.fn.invalidateDomTree()
}

// RemoveChild drops child from the successor set.
func (b *Block) RemoveChild(child int64) {
	delete(b.children, child)
	b.fn.invalidateDomTree()
}

// HasParent reports whether parent is a recorded predecessor.
func (b *Block) HasParent(parent int64) bool {
	_, ok := b.parents[parent]
	return ok
}

// Parents returns the block's predecessor numbers, sorted ascending.
func (b *Block) Parents() []int64 { return sortedKeys(b.parents) }

// Children returns the block's successor numbers, sorted ascending.
func (b *Block) Children() []int64 { return sortedKeys(b.children) }

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
