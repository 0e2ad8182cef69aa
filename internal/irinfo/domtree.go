// Package irinfo computes the SSA analyses that sit on top of a checked
// (or merely parsed) program: the dominator tree, the value use/def
// index, live ranges, and the interference graph.
package irinfo

import (
	"sort"

	"github.com/arneph/katara-ir/internal/ir"
)

// DomTree is the forward dominator tree of a function's CFG, rooted at
// its entry block. Built with the standard iterative Cooper/Harvey/Kennedy
// algorithm (A Simple, Fast Dominance Algorithm).
type DomTree struct {
	entry    int64
	idom     map[int64]int64
	children map[int64][]int64
	order    []int64 // entry first; every block precedes its dominees
}

var cache = map[*ir.Function]*DomTree{}

// DomTreeOf returns the function's dominator tree, recomputing it if the
// function's CFG has changed since the last computation (the staleness
// flag Function exposes for exactly this purpose).
func DomTreeOf(fn *ir.Function) *DomTree {
	if t, ok := cache[fn]; ok && !fn.DomTreeStale() {
		return t
	}
	t := computeDomTree(fn)
	cache[fn] = t
	fn.MarkDomTreeFresh()
	return t
}

// ImmediateDominator returns b's immediate dominator and true, or
// (0, false) for the entry block (which has none).
func (t *DomTree) ImmediateDominator(b int64) (int64, bool) {
	if b == t.entry {
		return 0, false
	}
	idom, ok := t.idom[b]
	return idom, ok
}

// Dominees returns the block numbers immediately dominated by b, sorted
// ascending.
func (t *DomTree) Dominees(b int64) []int64 {
	out := append([]int64(nil), t.children[b]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Order returns an iteration order consistent with dominance: the entry
// block first, every block before its dominees.
func (t *DomTree) Order() []int64 { return t.order }

// Dominates reports whether a dominates b (reflexively: a dominates
// itself).
func (t *DomTree) Dominates(a, b int64) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		idom, ok := t.idom[cur]
		if !ok {
			return cur == a
		}
		if idom == cur {
			return cur == a
		}
		cur = idom
	}
}

func computeDomTree(fn *ir.Function) *DomTree {
	entry, ok := fn.EntryBlockNum()
	t := &DomTree{entry: entry, idom: map[int64]int64{}, children: map[int64][]int64{}}
	if !ok {
		return t
	}

	postorder, index := postorderFrom(fn, entry)
	// Process in reverse postorder, excluding the entry block.
	rpo := make([]int64, len(postorder))
	for i, b := range postorder {
		rpo[len(postorder)-1-i] = b
	}

	t.idom[entry] = entry
	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			blk := fn.MustBlock(b)
			var newIdom int64
			first := true
			for _, p := range blk.Parents() {
				if _, known := t.idom[p]; !known {
					continue
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(newIdom, p, index, t.idom)
			}
			if first {
				continue // no processed predecessor yet
			}
			if prev, ok := t.idom[b]; !ok || prev != newIdom {
				t.idom[b] = newIdom
				changed = true
			}
		}
	}

	for b, d := range t.idom {
		if b == entry {
			continue
		}
		t.children[d] = append(t.children[d], b)
	}
	t.order = domOrder(entry, t.children)
	return t
}

// postorderFrom returns blocks reachable from entry in DFS postorder,
// plus a block-number -> postorder-index map (used by intersect).
func postorderFrom(fn *ir.Function, entry int64) ([]int64, map[int64]int) {
	visited := map[int64]bool{}
	var order []int64
	var visit func(b int64)
	visit = func(b int64) {
		if visited[b] {
			return
		}
		visited[b] = true
		blk, ok := fn.Block(b)
		if !ok {
			return
		}
		for _, c := range blk.Children() {
			visit(c)
		}
		order = append(order, b)
	}
	visit(entry)
	index := make(map[int64]int, len(order))
	for i, b := range order {
		index[b] = i
	}
	return order, index
}

func intersect(a, b int64, index map[int64]int, idom map[int64]int64) int64 {
	for a != b {
		for index[a] < index[b] {
			a = idom[a]
		}
		for index[b] < index[a] {
			b = idom[b]
		}
	}
	return a
}

func domOrder(entry int64, children map[int64][]int64) []int64 {
	var order []int64
	var visit func(b int64)
	visit = func(b int64) {
		order = append(order, b)
		kids := append([]int64(nil), children[b]...)
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
		for _, c := range kids {
			visit(c)
		}
	}
	visit(entry)
	return order
}
