package ir

import "sort"

// Function is identified by a program-unique number and owns its blocks,
// its value-numbering counter, and the CFG formed by their parent/child
// sets (§3). The dominator tree itself is computed and cached by
// internal/irinfo, which respects the staleness flag exposed here
// (invalidateDomTree/DomTreeStale/MarkDomTreeFresh) — keeping the actual
// tree out of this package avoids an irinfo->ir->irinfo import cycle
// while still giving Function the "lazily-maintained dominator tree"
// shape §4.3 describes.
type Function struct {
	Number      int64
	Name        string
	Args        []*Computed
	ResultTypes []Type

	prog *Program

	blocks    map[int64]*Block
	blockNums []int64 // insertion order, for stable iteration fallback
	entry     int64
	hasEntry  bool

	valueCounter int64
	instrCounter int64

	domDirty bool
}

// NewFunction returns an empty function with the given program-unique
// number.
func NewFunction(number int64) *Function {
	return &Function{
		Number:   number,
		blocks:   make(map[int64]*Block),
		domDirty: true,
	}
}

// Program returns the owning program, or nil if detached.
func (f *Function) Program() *Program { return f.prog }

// AddBlock adds b to the function, assigning its back-pointer. Panics if
// a block with the same number already exists (programmer error).
func (f *Function) AddBlock(b *Block) {
	if _, exists := f.blocks[b.Number]; exists {
		panic("ir: duplicate block number in function")
	}
	b.fn = f
	f.blocks[b.Number] = b
	f.blockNums = append(f.blockNums, b.Number)
	f.domDirty = true
}

// Block returns the block with the given number, if any.
func (f *Function) Block(number int64) (*Block, bool) {
	b, ok := f.blocks[number]
	return b, ok
}

// MustBlock returns the block with the given number, panicking if absent.
func (f *Function) MustBlock(number int64) *Block {
	b, ok := f.blocks[number]
	if !ok {
		panic("ir: reference to nonexistent block")
	}
	return b
}

// Blocks returns every block in the function, sorted by number.
func (f *Function) Blocks() []*Block {
	nums := make([]int64, 0, len(f.blocks))
	for n := range f.blocks {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	out := make([]*Block, len(nums))
	for i, n := range nums {
		out[i] = f.blocks[n]
	}
	return out
}

// SetEntryBlock designates the entry block by number.
func (f *Function) SetEntryBlock(number int64) {
	f.entry = number
	f.hasEntry = true
	f.domDirty = true
}

// EntryBlock returns the entry block and whether one has been set.
func (f *Function) EntryBlock() (*Block, bool) {
	if !f.hasEntry {
		return nil, false
	}
	b, ok := f.blocks[f.entry]
	return b, ok
}

// EntryBlockNum returns the entry block number and whether one was set.
func (f *Function) EntryBlockNum() (int64, bool) { return f.entry, f.hasEntry }

// AddEdge records a CFG edge: to becomes a child of from, from a parent
// of to.
func (f *Function) AddEdge(from, to int64) {
	f.MustBlock(from).AddChild(to)
	f.MustBlock(to).AddParent(from)
}

// RemoveEdge removes a previously recorded CFG edge.
func (f *Function) RemoveEdge(from, to int64) {
	f.MustBlock(from).RemoveChild(to)
	f.MustBlock(to).RemoveParent(from)
}

// NextValueNumber allocates and returns a fresh, function-unique value
// number, bumping the internal counter past it (I-F2).
func (f *Function) NextValueNumber() int64 {
	n := f.valueCounter
	f.valueCounter++
	return n
}

// ReserveValueNumber bumps the counter so that it strictly exceeds n,
// used by the parser when ingesting an explicit value number (e.g. `%7`)
// that may exceed anything allocated so far.
func (f *Function) ReserveValueNumber(n int64) {
	if n >= f.valueCounter {
		f.valueCounter = n + 1
	}
}

// NewComputed allocates a fresh computed value of type t.
func (f *Function) NewComputed(t Type) *Computed {
	return &Computed{Number: f.NextValueNumber(), Typ: t}
}

// ValueCount returns the current value-numbering counter (I-F2: strictly
// greater than every value number in use).
func (f *Function) ValueCount() int64 { return f.valueCounter }

func (f *Function) numberInstr(instr Instruction) {
	switch v := instr.(type) {
	case *Mov:
		f.setInstrNum(&v.InstrBase)
	case *Phi:
		f.setInstrNum(&v.InstrBase)
	case *Conversion:
		f.setInstrNum(&v.InstrBase)
	case *BoolNot:
		f.setInstrNum(&v.InstrBase)
	case *BoolBinary:
		f.setInstrNum(&v.InstrBase)
	case *IntUnary:
		f.setInstrNum(&v.InstrBase)
	case *IntCompare:
		f.setInstrNum(&v.InstrBase)
	case *IntBinary:
		f.setInstrNum(&v.InstrBase)
	case *IntShift:
		f.setInstrNum(&v.InstrBase)
	case *PointerOffset:
		f.setInstrNum(&v.InstrBase)
	case *NilTest:
		f.setInstrNum(&v.InstrBase)
	case *Malloc:
		f.setInstrNum(&v.InstrBase)
	case *Load:
		f.setInstrNum(&v.InstrBase)
	case *Store:
		f.setInstrNum(&v.InstrBase)
	case *Free:
		f.setInstrNum(&v.InstrBase)
	case *Jump:
		f.setInstrNum(&v.InstrBase)
	case *JumpCond:
		f.setInstrNum(&v.InstrBase)
	case *Syscall:
		f.setInstrNum(&v.InstrBase)
	case *Call:
		f.setInstrNum(&v.InstrBase)
	case *Return:
		f.setInstrNum(&v.InstrBase)
	case *MakeShared:
		f.setInstrNum(&v.InstrBase)
	case *CopyShared:
		f.setInstrNum(&v.InstrBase)
	case *DeleteShared:
		f.setInstrNum(&v.InstrBase)
	case *MakeUnique:
		f.setInstrNum(&v.InstrBase)
	case *DeleteUnique:
		f.setInstrNum(&v.InstrBase)
	case *StringIndex:
		f.setInstrNum(&v.InstrBase)
	case *StringConcat:
		f.setInstrNum(&v.InstrBase)
	case *Panic:
		f.setInstrNum(&v.InstrBase)
	}
}

func (f *Function) setInstrNum(b *InstrBase) {
	b.num = f.instrCounter
	f.instrCounter++
}

func (f *Function) invalidateDomTree() {
	if f != nil {
		f.domDirty = true
	}
}

// DomTreeStale reports whether the function's dominator tree cache (held
// by internal/irinfo) needs recomputation.
func (f *Function) DomTreeStale() bool { return f.domDirty }

// MarkDomTreeFresh clears the staleness flag; called by internal/irinfo
// immediately after recomputing the dominator tree.
func (f *Function) MarkDomTreeFresh() { f.domDirty = false }
