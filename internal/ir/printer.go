package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Program in the canonical textual form of §4.1. Every
// successful parse/print/parse round-trip is an identity on the logical
// IR, so Printer never reorders blocks/instructions and always emits a
// value's type at its unique definition site, never at a use site.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter returns an empty printer.
func NewPrinter() *Printer {
	return &Printer{}
}

// Print renders prog in canonical form.
func Print(prog *Program) string {
	p := NewPrinter()
	p.printProgram(prog)
	return p.output.String()
}

// PrintFunc renders a single function in canonical form (used by the
// debugger's `print @<func>` command).
func PrintFunc(fn *Function) string {
	p := NewPrinter()
	p.printFunc(fn)
	return p.output.String()
}

// PrintInstr renders a single instruction in canonical form, with no
// indentation or trailing block context (used by VCG export to label
// nodes with their block's contents).
func PrintInstr(instr Instruction) string {
	p := NewPrinter()
	p.printInstr(instr)
	return strings.TrimSuffix(p.output.String(), "\n")
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}

func (p *Printer) printProgram(prog *Program) {
	for i, fn := range prog.Funcs() {
		if i > 0 {
			p.output.WriteString("\n")
		}
		p.printFunc(fn)
	}
}

func (p *Printer) printFunc(fn *Function) {
	p.write("@%d ", fn.Number)
	if fn.Name != "" {
		p.write("%s", fn.Name)
	}
	p.write("(")
	for i, arg := range fn.Args {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s:%s", arg, arg.Type())
	}
	p.write(") => (")
	for i, t := range fn.ResultTypes {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s", t)
	}
	p.write(") {\n")
	p.indent++
	for _, b := range fn.Blocks() {
		p.printBlock(b)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlock(b *Block) {
	p.writeIndent()
	p.write("{%d}", b.Number)
	if b.Name != "" {
		p.write(" %s", b.Name)
	}
	p.write("\n")
	p.indent++
	for _, instr := range b.Instrs() {
		p.printInstr(instr)
	}
	p.indent--
}

func (p *Printer) printInstr(instr Instruction) {
	results := instr.Results()
	var resultStrs []string
	for _, r := range results {
		resultStrs = append(resultStrs, fmt.Sprintf("%s:%s", r, r.Type()))
	}

	mnemonic, operandStrs := p.formatInstr(instr)

	p.writeIndent()
	if len(resultStrs) > 0 {
		p.write("%s = ", strings.Join(resultStrs, ", "))
	}
	p.write("%s", mnemonic)
	if len(operandStrs) > 0 {
		p.write(" %s", strings.Join(operandStrs, ", "))
	}
	p.write("\n")
}

// valueRef formats a use-site reference to v: a definition's type is
// printed once, at the definition, so use sites print bare.
func valueRef(v Value) string {
	switch vv := v.(type) {
	case *Constant:
		return vv.String()
	case *Computed:
		return fmt.Sprintf("%%%d", vv.Number)
	case *InheritedValue:
		return fmt.Sprintf("%s{%d}", valueRef(vv.Value), vv.Origin)
	default:
		return "<bad-value>"
	}
}

func valueRefs(vs []Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = valueRef(v)
	}
	return out
}

// formatInstr returns the opcode mnemonic and operand strings for instr.
func (p *Printer) formatInstr(instr Instruction) (string, []string) {
	switch v := instr.(type) {
	case *Mov:
		return "mov", []string{valueRef(v.Origin)}
	case *Phi:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = fmt.Sprintf("%s{%d}", valueRef(a.Value), a.Origin)
		}
		return "phi", args
	case *Conversion:
		return "conv", []string{valueRef(v.Operand)}
	case *BoolNot:
		return "bnot", []string{valueRef(v.Operand)}
	case *BoolBinary:
		return v.Op.String(), []string{valueRef(v.A), valueRef(v.B)}
	case *IntUnary:
		return v.Op.String(), []string{valueRef(v.Operand)}
	case *IntCompare:
		return v.Op.String(), []string{valueRef(v.A), valueRef(v.B)}
	case *IntBinary:
		return v.Op.String(), []string{valueRef(v.A), valueRef(v.B)}
	case *IntShift:
		return v.Op.String(), []string{valueRef(v.Shifted), valueRef(v.Offset)}
	case *PointerOffset:
		return "poff", []string{valueRef(v.Pointer), valueRef(v.Offset)}
	case *NilTest:
		return "niltest", []string{valueRef(v.Tested)}
	case *Malloc:
		return "malloc", []string{valueRef(v.Size)}
	case *Load:
		return "load", []string{valueRef(v.Address)}
	case *Store:
		return "store", []string{valueRef(v.Address), valueRef(v.Value)}
	case *Free:
		return "free", []string{valueRef(v.Address)}
	case *Jump:
		return "jmp", []string{fmt.Sprintf("{%d}", v.Dest)}
	case *JumpCond:
		return "jcc", []string{valueRef(v.Cond), fmt.Sprintf("{%d}", v.TrueDest), fmt.Sprintf("{%d}", v.FalseDest)}
	case *Syscall:
		return "syscall", valueRefs(append([]Value{v.Number}, v.Args...))
	case *Call:
		return "call", valueRefs(append([]Value{v.Callee}, v.Args...))
	case *Return:
		return "ret", valueRefs(v.Args)
	case *MakeShared:
		return "mkshared", []string{valueRef(v.Size)}
	case *CopyShared:
		return "cpshared", []string{valueRef(v.Copied), valueRef(v.Offset)}
	case *DeleteShared:
		return "delshared", []string{valueRef(v.Argument)}
	case *MakeUnique:
		return "mkunique", []string{valueRef(v.Size)}
	case *DeleteUnique:
		return "delunique", []string{valueRef(v.Argument)}
	case *StringIndex:
		return "sidx", []string{valueRef(v.Str), valueRef(v.Index)}
	case *StringConcat:
		return "sconcat", valueRefs(v.Parts)
	case *Panic:
		return "panic", []string{valueRef(v.Reason)}
	default:
		return "<bad-instr>", nil
	}
}
