package irproc

import (
	"sort"

	"github.com/arneph/katara-ir/internal/ir"
)

// ResolvePhisInFunc removes every phi instruction from fn, replacing it
// with movs inserted into the predecessor blocks immediately before their
// terminators. Where a predecessor feeds more than one phi of the same
// child block, the required movs are sequenced as a parallel copy: a
// naive one-at-a-time insertion can clobber a value another of the movs
// still needs to read (e.g. a loop header phi pair that swaps two
// values), so cycles in the copy graph are broken with one extra
// temporary per cycle.
func ResolvePhisInFunc(fn *ir.Function) {
	for _, b := range fn.Blocks() {
		resolvePhisInBlock(fn, b)
	}
}

type phiCopy struct {
	dest   *ir.Computed
	source ir.Value
}

func resolvePhisInBlock(fn *ir.Function, block *ir.Block) {
	phis := block.Phis()
	if len(phis) == 0 {
		return
	}

	copiesByParent := map[int64][]phiCopy{}
	var parentOrder []int64
	seenParent := map[int64]bool{}
	for _, phi := range phis {
		for _, arg := range phi.Args {
			if !seenParent[arg.Origin] {
				seenParent[arg.Origin] = true
				parentOrder = append(parentOrder, arg.Origin)
			}
			copiesByParent[arg.Origin] = append(copiesByParent[arg.Origin], phiCopy{
				dest:   phi.Result,
				source: arg.Value,
			})
		}
	}

	sort.Slice(parentOrder, func(i, j int) bool { return parentOrder[i] < parentOrder[j] })
	for _, parentNum := range parentOrder {
		parent := fn.MustBlock(parentNum)
		insertParallelCopy(fn, parent, copiesByParent[parentNum])
	}

	for range phis {
		block.RemovePhi(0)
	}
}

// insertParallelCopy inserts movs implementing copies (a set of
// dest<-source assignments that must behave as if executed
// simultaneously) into parent, immediately before its terminator.
func insertParallelCopy(fn *ir.Function, parent *ir.Block, copies []phiCopy) {
	dest := map[int64]*ir.Computed{}
	source := map[int64]ir.Value{}
	blockedBy := map[int64]int{}

	for _, cp := range copies {
		if c, ok := ir.AsComputed(cp.source); ok && c.Number == cp.dest.Number {
			continue // value feeds back into itself unchanged; no copy needed
		}
		dest[cp.dest.Number] = cp.dest
		source[cp.dest.Number] = cp.source
	}
	for _, srcVal := range source {
		if c, ok := ir.AsComputed(srcVal); ok {
			blockedBy[c.Number]++
		}
	}

	pending := map[int64]bool{}
	for d := range dest {
		pending[d] = true
	}

	var ready []int64
	for d := range dest {
		if blockedBy[d] == 0 {
			ready = append(ready, d)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	loc := map[int64]ir.Value{} // original value number -> value currently holding it

	insertIdx := len(parent.Instrs()) - 1
	emit := func(d *ir.Computed, src ir.Value) {
		parent.InsertBefore(insertIdx, &ir.Mov{Result: d, Origin: src})
		insertIdx++
	}
	currentValueOf := func(v ir.Value) ir.Value {
		if c, ok := ir.AsComputed(v); ok {
			if cur, ok := loc[c.Number]; ok {
				return cur
			}
		}
		return v
	}

	for len(pending) > 0 {
		for len(ready) > 0 {
			b := ready[len(ready)-1]
			ready = ready[:len(ready)-1]
			if !pending[b] {
				continue
			}
			srcVal := currentValueOf(source[b])
			emit(dest[b], srcVal)
			delete(pending, b)

			if c, ok := ir.AsComputed(source[b]); ok {
				blockedBy[c.Number]--
				if blockedBy[c.Number] == 0 && pending[c.Number] {
					ready = append(ready, c.Number)
				}
			}
		}
		if len(pending) == 0 {
			break
		}

		// Every remaining destination is blocked by another pending
		// destination: a cycle. Break it by saving one value to a fresh
		// temporary, which frees its original slot for writing.
		var victims []int64
		for d := range pending {
			victims = append(victims, d)
		}
		sort.Slice(victims, func(i, j int) bool { return victims[i] < victims[j] })
		victim := victims[0]

		origCV := dest[victim]
		temp := fn.NewComputed(origCV.Typ)
		emit(temp, currentValueOf(origCV))
		loc[victim] = temp
		ready = append(ready, victim)
	}
}

// PhiEliminationPass wraps ResolvePhisInFunc as a Pass.
type PhiEliminationPass struct{}

func (PhiEliminationPass) Name() string { return "Phi Elimination" }
func (PhiEliminationPass) Description() string {
	return "replaces phis with parallel-copy movs in predecessor blocks"
}
func (PhiEliminationPass) Apply(prog *ir.Program) bool {
	changed := false
	for _, fn := range prog.Funcs() {
		for _, b := range fn.Blocks() {
			if len(b.Phis()) > 0 {
				changed = true
			}
		}
		ResolvePhisInFunc(fn)
	}
	return changed
}
