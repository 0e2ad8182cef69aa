package irinfo

import "github.com/arneph/katara-ir/internal/ir"

// UseDefInfo indexes every computed value in a function: where it is
// defined and everywhere it is used. Built once per function and queried
// repeatedly by the checker's dominance rule and by live-range analysis.
type UseDefInfo struct {
	values   map[int64]struct{}
	defining map[int64]ir.Instruction
	using    map[int64][]ir.Instruction
}

// BuildUseDefInfo walks fn's arguments and every instruction, recording
// each computed value's defining instruction (if any — arguments have
// none) and every instruction that uses it.
func BuildUseDefInfo(fn *ir.Function) *UseDefInfo {
	info := &UseDefInfo{
		values:   map[int64]struct{}{},
		defining: map[int64]ir.Instruction{},
		using:    map[int64][]ir.Instruction{},
	}
	for _, arg := range fn.Args {
		info.values[arg.Number] = struct{}{}
	}
	for _, b := range fn.Blocks() {
		for _, instr := range b.Instrs() {
			for _, r := range instr.Results() {
				info.values[r.Number] = struct{}{}
				info.defining[r.Number] = instr
			}
			for _, operand := range instr.Operands() {
				c, ok := ir.AsComputed(operand)
				if !ok {
					continue
				}
				info.using[c.Number] = append(info.using[c.Number], instr)
			}
		}
	}
	return info
}

// Values returns every computed value number tracked in fn (arguments
// plus every instruction result).
func (info *UseDefInfo) Values() []int64 {
	out := make([]int64, 0, len(info.values))
	for v := range info.values {
		out = append(out, v)
	}
	return out
}

// DefiningInstr returns the instruction that defines value, or nil if
// value is a function argument (defined by the function itself, not an
// instruction).
func (info *UseDefInfo) DefiningInstr(value int64) ir.Instruction {
	return info.defining[value]
}

// UsingInstrs returns every instruction that uses value as an operand.
func (info *UseDefInfo) UsingInstrs(value int64) []ir.Instruction {
	return info.using[value]
}
