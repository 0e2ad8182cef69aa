package ir

import "sort"

// Program owns a type table and every function, identified by a
// program-unique number; one function number may be designated entry
// (§3).
type Program struct {
	Types *TypeTable

	funcs    map[int64]*Function
	entry    int64
	hasEntry bool
}

// NewProgram returns an empty program with a fresh type table.
func NewProgram() *Program {
	return &Program{
		Types: NewTypeTable(),
		funcs: make(map[int64]*Function),
	}
}

// AddFunc adds fn to the program. Panics if a function with the same
// number already exists.
func (p *Program) AddFunc(fn *Function) {
	if _, exists := p.funcs[fn.Number]; exists {
		panic("ir: duplicate function number in program")
	}
	fn.prog = p
	p.funcs[fn.Number] = fn
}

// Func returns the function with the given number, if any.
func (p *Program) Func(number int64) (*Function, bool) {
	fn, ok := p.funcs[number]
	return fn, ok
}

// MustFunc returns the function with the given number, panicking if
// absent.
func (p *Program) MustFunc(number int64) *Function {
	fn, ok := p.funcs[number]
	if !ok {
		panic("ir: reference to nonexistent function")
	}
	return fn
}

// Funcs returns every function in the program, sorted by number.
func (p *Program) Funcs() []*Function {
	nums := make([]int64, 0, len(p.funcs))
	for n := range p.funcs {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	out := make([]*Function, len(nums))
	for i, n := range nums {
		out[i] = p.funcs[n]
	}
	return out
}

// SetEntryFunc designates the entry function by number.
func (p *Program) SetEntryFunc(number int64) {
	p.entry = number
	p.hasEntry = true
}

// EntryFunc returns the entry function and whether one has been set.
func (p *Program) EntryFunc() (*Function, bool) {
	if !p.hasEntry {
		return nil, false
	}
	fn, ok := p.funcs[p.entry]
	return fn, ok
}
