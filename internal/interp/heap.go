package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arneph/katara-ir/internal/ir"
)

// Heap is a minimal simulated heap backing malloc/load/store/free and
// the shared/unique pointer extension instructions (§9). It models
// addresses as opaque uint64 handles mapped to the last value stored at
// them — enough to give the interpreter observable memory semantics
// without implementing the runtime's heap sanitizer, which spec.md §1
// excludes as an explicit non-goal.
type Heap struct {
	next      uint64
	slots     map[uint64]*ir.Constant
	sizes     map[uint64]int64
	refcounts map[uint64]int
}

// NewHeap returns an empty heap. Addresses start at 0x1000 so that the
// zero address is never a valid allocation, matching nil-test's use of
// address 0 as the null pointer.
func NewHeap() *Heap {
	return &Heap{
		next:      0x1000,
		slots:     make(map[uint64]*ir.Constant),
		sizes:     make(map[uint64]int64),
		refcounts: make(map[uint64]int),
	}
}

// Alloc reserves size bytes and returns the new allocation's address.
func (h *Heap) Alloc(size int64) uint64 {
	addr := h.next
	if size < 8 {
		size = 8
	}
	h.next += uint64(size)
	h.sizes[addr] = size
	return addr
}

// AllocShared reserves a reference-counted allocation with an initial
// strong refcount of 1, per make-shared's semantics (§9).
func (h *Heap) AllocShared(size int64) uint64 {
	addr := h.Alloc(size)
	h.refcounts[addr] = 1
	return addr
}

// Retain increments addr's refcount (copy-shared, strong destination).
func (h *Heap) Retain(addr uint64) { h.refcounts[addr]++ }

// Release decrements addr's refcount, freeing the allocation once it
// reaches zero (delete-shared).
func (h *Heap) Release(addr uint64) {
	h.refcounts[addr]--
	if h.refcounts[addr] <= 0 {
		h.Free(addr)
		delete(h.refcounts, addr)
	}
}

// Free releases addr's allocation immediately (free, delete-unique).
func (h *Heap) Free(addr uint64) {
	delete(h.slots, addr)
	delete(h.sizes, addr)
}

// Load returns the value last stored at addr.
func (h *Heap) Load(addr uint64) (*ir.Constant, bool) {
	v, ok := h.slots[addr]
	return v, ok
}

// Store records v as the current value at addr.
func (h *Heap) Store(addr uint64, v *ir.Constant) {
	h.slots[addr] = v
}

// Size returns the allocation size recorded for addr, and whether addr
// is a live allocation.
func (h *Heap) Size(addr uint64) (int64, bool) {
	s, ok := h.sizes[addr]
	return s, ok
}

// ToDebuggerStringAt renders the single allocation at addr, for the
// debugger's `print 0x<addr>` command.
func (h *Heap) ToDebuggerStringAt(addr uint64) string {
	size, ok := h.sizes[addr]
	if !ok {
		return fmt.Sprintf("0x%x is not a live allocation\n", addr)
	}
	content := "<uninitialized>"
	if v, ok := h.slots[addr]; ok {
		content = v.String()
	}
	return fmt.Sprintf("0x%x (%d bytes) = %s\n", addr, size, content)
}

// ToDebuggerString renders every live allocation, for the debugger's
// `print heap` command.
func (h *Heap) ToDebuggerString() string {
	addrs := make([]uint64, 0, len(h.sizes))
	for a := range h.sizes {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var b strings.Builder
	for _, a := range addrs {
		v, ok := h.slots[a]
		content := "<uninitialized>"
		if ok {
			content = v.String()
		}
		fmt.Fprintf(&b, "0x%x (%d bytes) = %s\n", a, h.sizes[a], content)
	}
	return b.String()
}
