package irinfo

import (
	"sort"

	"github.com/arneph/katara-ir/internal/ir"
)

// BlockLiveRangeInfo records, for one block, which values are live on
// entry, live on exit, and defined within the block.
type BlockLiveRangeInfo struct {
	entrySet    map[int64]struct{}
	exitSet     map[int64]struct{}
	definitions map[int64]struct{}
}

func newBlockLiveRangeInfo() *BlockLiveRangeInfo {
	return &BlockLiveRangeInfo{
		entrySet:    map[int64]struct{}{},
		exitSet:     map[int64]struct{}{},
		definitions: map[int64]struct{}{},
	}
}

func sortedInt64(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EntrySet returns the values live on entry to the block, ascending.
func (info *BlockLiveRangeInfo) EntrySet() []int64 { return sortedInt64(info.entrySet) }

// ExitSet returns the values live on exit from the block, ascending.
func (info *BlockLiveRangeInfo) ExitSet() []int64 { return sortedInt64(info.exitSet) }

// Definitions returns the values the block defines, ascending.
func (info *BlockLiveRangeInfo) Definitions() []int64 { return sortedInt64(info.definitions) }

func (info *BlockLiveRangeInfo) isLiveAtEntry(v int64) bool {
	_, ok := info.entrySet[v]
	return ok
}
func (info *BlockLiveRangeInfo) isLiveAtExit(v int64) bool {
	_, ok := info.exitSet[v]
	return ok
}
func (info *BlockLiveRangeInfo) isDefined(v int64) bool {
	_, ok := info.definitions[v]
	return ok
}

// FuncLiveRangeInfo is the per-block live range info for a whole function.
type FuncLiveRangeInfo struct {
	blocks map[int64]*BlockLiveRangeInfo
}

// BlockInfo returns the live range info for block b, allocating an empty
// one if needed.
func (f *FuncLiveRangeInfo) BlockInfo(b int64) *BlockLiveRangeInfo {
	info, ok := f.blocks[b]
	if !ok {
		info = newBlockLiveRangeInfo()
		f.blocks[b] = info
	}
	return info
}

// LiveRangeAnalyzer computes live ranges and the interference graph for a
// function, caching both the first time they're requested.
type LiveRangeAnalyzer struct {
	fn             *ir.Function
	funcInfo       *FuncLiveRangeInfo
	funcInfoOK     bool
	interference   *InterferenceGraph
	interferenceOK bool
}

// NewLiveRangeAnalyzer returns an analyzer for fn.
func NewLiveRangeAnalyzer(fn *ir.Function) *LiveRangeAnalyzer {
	return &LiveRangeAnalyzer{fn: fn}
}

// FuncInfo returns the function's live range info, computing it on first
// use.
func (a *LiveRangeAnalyzer) FuncInfo() *FuncLiveRangeInfo {
	a.findLiveRanges()
	return a.funcInfo
}

// InterferenceGraph returns the function's interference graph, computing
// live ranges first if necessary.
func (a *LiveRangeAnalyzer) InterferenceGraph() *InterferenceGraph {
	a.findLiveRanges()
	a.buildInterferenceGraph()
	return a.interference
}

// findLiveRanges runs the two-phase liveness computation: a local
// backward pass per block to seed entry/exit sets, followed by a
// worklist fixed point that propagates entry sets into parents' exit
// sets across block boundaries.
func (a *LiveRangeAnalyzer) findLiveRanges() {
	if a.funcInfoOK {
		return
	}
	a.funcInfoOK = true
	a.funcInfo = &FuncLiveRangeInfo{blocks: map[int64]*BlockLiveRangeInfo{}}

	queue := map[int64]struct{}{}
	for _, b := range a.fn.Blocks() {
		info := a.funcInfo.BlockInfo(b.Number)
		a.backtraceBlock(b, info)
		if len(info.entrySet) > 0 {
			queue[b.Number] = struct{}{}
		}
	}

	for len(queue) > 0 {
		var cur int64
		for b := range queue {
			cur = b
			break
		}
		delete(queue, cur)

		info := a.funcInfo.BlockInfo(cur)
		blk := a.fn.MustBlock(cur)

		for _, parentNum := range blk.Parents() {
			parentInfo := a.funcInfo.BlockInfo(parentNum)
			expanded := false

			for _, value := range info.EntrySet() {
				if parentInfo.isLiveAtExit(value) {
					continue
				}
				parentInfo.exitSet[value] = struct{}{}

				if !parentInfo.isDefined(value) {
					parentInfo.entrySet[value] = struct{}{}
					expanded = true
				}
			}

			if expanded {
				queue[parentNum] = struct{}{}
			}
		}
	}
}

// backtraceBlock seeds a single block's local definitions, entry set, and
// the portion of its exit set driven by its own phi-carrying children.
func (a *LiveRangeAnalyzer) backtraceBlock(b *ir.Block, info *BlockLiveRangeInfo) {
	for _, instr := range b.Instrs() {
		for _, r := range instr.Results() {
			info.definitions[r.Number] = struct{}{}
		}
	}

	for _, childNum := range b.Children() {
		child, ok := a.fn.Block(childNum)
		if !ok {
			continue
		}
		for _, phi := range child.Phis() {
			arg, ok := phi.ArgForParent(b.Number)
			if !ok {
				continue
			}
			computed, ok := ir.AsComputed(arg.Value)
			if !ok {
				continue
			}
			info.exitSet[computed.Number] = struct{}{}
			if !info.isDefined(computed.Number) {
				info.entrySet[computed.Number] = struct{}{}
			}
		}
	}

	for _, instr := range b.NonPhis() {
		for _, operand := range instr.Operands() {
			computed, ok := ir.AsComputed(operand)
			if !ok {
				continue
			}
			if !info.isDefined(computed.Number) {
				info.entrySet[computed.Number] = struct{}{}
			}
		}
	}
}

func (a *LiveRangeAnalyzer) buildInterferenceGraph() {
	if a.interferenceOK {
		return
	}
	a.interferenceOK = true
	a.findLiveRanges()
	a.interference = NewInterferenceGraph()

	for _, b := range a.fn.Blocks() {
		info := a.funcInfo.BlockInfo(b.Number)
		a.buildInterferenceGraphForBlock(b, info)
	}
}

func (a *LiveRangeAnalyzer) buildInterferenceGraphForBlock(b *ir.Block, info *BlockLiveRangeInfo) {
	live := map[int64]struct{}{}
	for v := range info.exitSet {
		live[v] = struct{}{}
	}
	a.interference.AddEdgesIn(live)

	instrs := b.Instrs()
	for i := len(instrs) - 1; i >= 0; i-- {
		instr := instrs[i]
		_, isPhi := instr.(*ir.Phi)

		for _, r := range instr.Results() {
			if _, ok := live[r.Number]; ok {
				delete(live, r.Number)
			} else {
				a.interference.AddEdgesBetween(live, r.Number)
			}
		}

		for _, operand := range instr.Operands() {
			computed, ok := ir.AsComputed(operand)
			if !ok {
				continue
			}
			if _, ok := live[computed.Number]; !ok {
				a.interference.AddEdgesBetween(live, computed.Number)
				if !isPhi {
					live[computed.Number] = struct{}{}
				}
			}
		}
	}
}
