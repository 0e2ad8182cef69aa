package irparse

import (
	"fmt"

	"github.com/arneph/katara-ir/internal/ir"
)

// ParseError reports a syntactic failure at a position, together with
// what the parser expected there.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// abort is an internal sentinel used to unwind a single func/block parse
// after recording a ParseError; it never escapes Parse.
type abort struct{ err *ParseError }

func (a abort) Error() string { return a.err.Error() }

// Parse parses src (the canonical textual form of §4.1) into a Program.
// On any scan or parse error, parsing of the enclosing function aborts
// and resumes at the next '@'; instruction-level errors instead resync
// at the next newline and parsing continues within the same block,
// mirroring the "skip to next newline" partial recovery spec.md
// describes. All errors encountered are returned; a non-empty error
// slice means prog is incomplete and must not be checked or run.
func Parse(src []byte) (prog *ir.Program, errs []ParseError) {
	p := &parser{sc: NewScanner(src)}
	p.prog = ir.NewProgram()
	p.next()
	p.parseProgram()
	if sErr := p.sc.Err(); sErr != nil {
		p.errs = append(p.errs, ParseError{Pos: sErr.Pos, Msg: sErr.Msg})
	}
	return p.prog, p.errs
}

type parser struct {
	sc   *Scanner
	tok  Token
	errs []ParseError

	prog   *ir.Program
	fn     *ir.Function
	values map[int64]*ir.Computed // current function's value table
}

func (p *parser) next() { p.tok = p.sc.Next() }

func (p *parser) fail(format string, args ...interface{}) abort {
	e := &ParseError{Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)}
	p.errs = append(p.errs, *e)
	return abort{e}
}

func (p *parser) expect(k TokenKind) {
	if p.tok.Kind != k {
		panic(p.fail("expected %s, got %s", k, p.tok.Kind))
	}
	p.next()
}

// Program ::= { NL | Func }
func (p *parser) parseProgram() {
	for {
		switch p.tok.Kind {
		case TokNewline:
			p.next()
		case TokAt:
			p.parseFuncResync()
		case TokEOF:
			return
		default:
			p.recordAndResyncTo(TokAt)
		}
	}
}

// parseFuncResync parses one function, recovering to the next '@' (i.e.
// the next function) if anything inside fails.
func (p *parser) parseFuncResync() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abort); !ok {
				panic(r)
			}
			p.resyncTo(TokAt)
		}
	}()
	p.parseFunc()
}

func (p *parser) recordAndResyncTo(k TokenKind) {
	p.fail("unexpected %s", p.tok.Kind)
	p.resyncTo(k)
}

func (p *parser) resyncTo(k TokenKind) {
	for p.tok.Kind != k && p.tok.Kind != TokEOF {
		p.next()
	}
}

// Func ::= '@' Number [Ident] '(' [Computed {',' Computed}] ')' '=>'
//          '(' [Type {',' Type}] ')' FuncBody
func (p *parser) parseFunc() {
	p.expect(TokAt)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected function number"))
	}
	num := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()

	fn := ir.NewFunction(num)
	p.fn = fn
	p.values = make(map[int64]*ir.Computed)

	if p.tok.Kind == TokIdent {
		fn.Name = p.tok.Ident
		p.next()
	}

	p.expect(TokLParen)
	if p.tok.Kind != TokRParen {
		for {
			arg := p.parseComputedDecl(nil)
			fn.Args = append(fn.Args, arg)
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(TokRParen)
	p.expect(TokArrow)

	p.expect(TokLParen)
	if p.tok.Kind != TokRParen {
		for {
			fn.ResultTypes = append(fn.ResultTypes, p.parseType())
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(TokRParen)

	p.parseFuncBody(fn)
	p.prog.AddFunc(fn)
	if _, ok := p.prog.EntryFunc(); !ok {
		p.prog.SetEntryFunc(num)
	}
}

// FuncBody ::= '{' NL { NL | Block } '}' NL
func (p *parser) parseFuncBody(fn *ir.Function) {
	p.expect(TokLBrace)
	p.expect(TokNewline)
	first := true
	for {
		if p.tok.Kind == TokRBrace {
			p.next()
			break
		} else if p.tok.Kind == TokNewline {
			p.next()
		} else {
			p.parseBlock(fn, first)
			first = false
		}
	}
	p.connectBlocks(fn)
}

func (p *parser) connectBlocks(fn *ir.Function) {
	for _, b := range fn.Blocks() {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, succ := range term.Successors() {
			fn.AddEdge(b.Number, succ)
		}
	}
}

// Block ::= '{' Number '}' [Ident] NL { Instr }
func (p *parser) parseBlock(fn *ir.Function, isFirst bool) {
	p.expect(TokLBrace)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected block number"))
	}
	num := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()
	p.expect(TokRBrace)

	b := ir.NewBlock(num)
	fn.AddBlock(b)
	if isFirst {
		fn.SetEntryBlock(num)
	}

	if p.tok.Kind == TokIdent {
		b.Name = p.tok.Ident
		p.next()
	}
	p.expect(TokNewline)

	for p.tok.Kind != TokLBrace && p.tok.Kind != TokRBrace && p.tok.Kind != TokEOF {
		p.parseInstrResync(b)
	}
}

// parseInstrResync parses one instruction, recovering to the next
// newline on failure so the remaining instructions in the block still
// get parsed (spec.md's "skipping to the next newline" allowance).
func (p *parser) parseInstrResync(b *ir.Block) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abort); !ok {
				panic(r)
			}
			p.resyncTo(TokNewline)
			if p.tok.Kind == TokNewline {
				p.next()
			}
		}
	}()
	instr := p.parseInstr()
	if instr != nil {
		b.Append(instr)
	}
}

// Instr ::= [Computed { ',' Computed } '='] Ident [Operands] NL
func (p *parser) parseInstr() ir.Instruction {
	var results []*ir.Computed
	if p.tok.Kind == TokPercent {
		for {
			results = append(results, p.parseComputedDecl(nil))
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
		p.expect(TokEquals)
	}

	if p.tok.Kind != TokIdent {
		panic(p.fail("expected instruction mnemonic"))
	}
	name := p.tok.Ident
	p.next()

	instr := p.dispatchInstr(name, results)
	p.expect(TokNewline)
	return instr
}

func oneResult(results []*ir.Computed, mnemonic string, p *parser) *ir.Computed {
	if len(results) != 1 {
		panic(p.fail("expected exactly one result for %s", mnemonic))
	}
	return results[0]
}

func noResults(results []*ir.Computed, mnemonic string, p *parser) {
	if len(results) != 0 {
		panic(p.fail("did not expect results for %s", mnemonic))
	}
}

func (p *parser) dispatchInstr(name string, results []*ir.Computed) ir.Instruction {
	switch name {
	case "mov":
		r := oneResult(results, name, p)
		return &ir.Mov{Result: r, Origin: p.parseValue(r.Type())}
	case "phi":
		r := oneResult(results, name, p)
		return p.parsePhi(r)
	case "conv":
		r := oneResult(results, name, p)
		return &ir.Conversion{Result: r, Operand: p.parseValue(nil)}
	case "bnot":
		r := oneResult(results, name, p)
		return &ir.BoolNot{Result: r, Operand: p.parseValue(ir.Bool)}
	case "band", "bor":
		r := oneResult(results, name, p)
		op := ir.BoolAnd
		if name == "bor" {
			op = ir.BoolOr
		}
		a := p.parseValue(ir.Bool)
		p.expect(TokComma)
		b := p.parseValue(ir.Bool)
		return &ir.BoolBinary{Op: op, Result: r, A: a, B: b}
	case "ineg", "inot":
		r := oneResult(results, name, p)
		op := ir.IntNeg
		if name == "inot" {
			op = ir.IntNot
		}
		return &ir.IntUnary{Op: op, Result: r, Operand: p.parseValue(r.Type())}
	case "ieq", "ineq", "ilss", "ileq", "igtr", "igeq":
		r := oneResult(results, name, p)
		op := map[string]ir.IntCompareOp{
			"ieq": ir.IntEq, "ineq": ir.IntNeq, "ilss": ir.IntLss,
			"ileq": ir.IntLeq, "igtr": ir.IntGtr, "igeq": ir.IntGeq,
		}[name]
		a := p.parseValue(nil)
		p.expect(TokComma)
		b := p.parseValue(a.Type())
		return &ir.IntCompare{Op: op, Result: r, A: a, B: b}
	case "iadd", "isub", "imul", "iquo", "irem", "iand", "ior", "ixor", "iandnot":
		r := oneResult(results, name, p)
		op := map[string]ir.IntBinaryOp{
			"iadd": ir.IntAdd, "isub": ir.IntSub, "imul": ir.IntMul, "iquo": ir.IntQuo,
			"irem": ir.IntRem, "iand": ir.IntAnd, "ior": ir.IntOr, "ixor": ir.IntXor,
			"iandnot": ir.IntAndNot,
		}[name]
		a := p.parseValue(r.Type())
		p.expect(TokComma)
		b := p.parseValue(r.Type())
		return &ir.IntBinary{Op: op, Result: r, A: a, B: b}
	case "shl", "shr":
		r := oneResult(results, name, p)
		op := ir.ShiftLeft
		if name == "shr" {
			op = ir.ShiftRight
		}
		shifted := p.parseValue(r.Type())
		p.expect(TokComma)
		offset := p.parseValue(nil)
		return &ir.IntShift{Op: op, Result: r, Shifted: shifted, Offset: offset}
	case "poff":
		r := oneResult(results, name, p)
		ptr := p.parseValue(nil)
		p.expect(TokComma)
		off := p.parseValue(ir.I64)
		return &ir.PointerOffset{Result: r, Pointer: ptr, Offset: off}
	case "niltest":
		r := oneResult(results, name, p)
		return &ir.NilTest{Result: r, Tested: p.parseValue(nil)}
	case "malloc":
		r := oneResult(results, name, p)
		return &ir.Malloc{Result: r, Size: p.parseValue(ir.I64)}
	case "load":
		r := oneResult(results, name, p)
		return &ir.Load{Result: r, Address: p.parseValue(nil)}
	case "store":
		noResults(results, name, p)
		addr := p.parseValue(nil)
		p.expect(TokComma)
		val := p.parseValue(nil)
		return &ir.Store{Address: addr, Value: val}
	case "free":
		noResults(results, name, p)
		return &ir.Free{Address: p.parseValue(ir.Ptr)}
	case "jmp":
		noResults(results, name, p)
		return &ir.Jump{Dest: p.parseBlockValue()}
	case "jcc":
		noResults(results, name, p)
		cond := p.parseValue(ir.Bool)
		p.expect(TokComma)
		t := p.parseBlockValue()
		p.expect(TokComma)
		f := p.parseBlockValue()
		return &ir.JumpCond{Cond: cond, TrueDest: t, FalseDest: f}
	case "syscall":
		r := oneResult(results, name, p)
		num := p.parseValue(ir.I64)
		var args []ir.Value
		for p.tok.Kind == TokComma {
			p.next()
			args = append(args, p.parseValue(ir.I64))
		}
		return &ir.Syscall{Result: r, Number: num, Args: args}
	case "call":
		callee := p.parseValue(ir.Func)
		var args []ir.Value
		for p.tok.Kind == TokComma {
			p.next()
			args = append(args, p.parseValue(nil))
		}
		return &ir.Call{ResultVals: results, Callee: callee, Args: args}
	case "ret":
		noResults(results, name, p)
		var args []ir.Value
		if p.tok.Kind != TokNewline {
			for {
				args = append(args, p.parseValue(nil))
				if p.tok.Kind == TokComma {
					p.next()
					continue
				}
				break
			}
		}
		return &ir.Return{Args: args}
	case "mkshared":
		r := oneResult(results, name, p)
		return &ir.MakeShared{Result: r, Size: p.parseValue(ir.I64)}
	case "cpshared":
		r := oneResult(results, name, p)
		copied := p.parseValue(nil)
		p.expect(TokComma)
		off := p.parseValue(ir.I64)
		return &ir.CopyShared{Result: r, Copied: copied, Offset: off}
	case "delshared":
		noResults(results, name, p)
		return &ir.DeleteShared{Argument: p.parseValue(nil)}
	case "mkunique":
		r := oneResult(results, name, p)
		return &ir.MakeUnique{Result: r, Size: p.parseValue(ir.I64)}
	case "delunique":
		noResults(results, name, p)
		return &ir.DeleteUnique{Argument: p.parseValue(nil)}
	case "sidx":
		r := oneResult(results, name, p)
		s := p.parseValue(ir.Str)
		p.expect(TokComma)
		idx := p.parseValue(ir.I64)
		return &ir.StringIndex{Result: r, Str: s, Index: idx}
	case "sconcat":
		r := oneResult(results, name, p)
		var parts []ir.Value
		for {
			parts = append(parts, p.parseValue(ir.Str))
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
		return &ir.StringConcat{Result: r, Parts: parts}
	case "panic":
		noResults(results, name, p)
		return &ir.Panic{Reason: p.parseValue(ir.Str)}
	default:
		panic(p.fail("unknown instruction mnemonic %q", name))
	}
}

// PhiInstr ::= Computed 'phi' InheritedValue { ',' InheritedValue }
func (p *parser) parsePhi(result *ir.Computed) *ir.Phi {
	var args []ir.PhiArg
	args = append(args, p.parsePhiArg(result.Type()))
	for p.tok.Kind == TokComma {
		p.next()
		args = append(args, p.parsePhiArg(result.Type()))
	}
	// A phi with too few arguments for its block's actual parent count is
	// a well-formedness violation (I-B5), not a syntax error — irchecker
	// reports it, so the parser accepts any nonempty argument list here.
	return &ir.Phi{Result: result, Args: args}
}

func (p *parser) parsePhiArg(expected ir.Type) ir.PhiArg {
	v := p.parseValue(expected)
	origin := p.parseBlockValue()
	return ir.PhiArg{Value: v, Origin: origin}
}

func (p *parser) parseBlockValue() int64 {
	p.expect(TokLBrace)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected block number"))
	}
	n := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()
	p.expect(TokRBrace)
	return n
}

func (p *parser) parseFuncRef() int64 {
	p.expect(TokAt)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected function number"))
	}
	n := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()
	return n
}

// Value ::= Constant | Computed
func (p *parser) parseValue(expected ir.Type) ir.Value {
	switch p.tok.Kind {
	case TokAt, TokHash:
		return p.parseConstant(expected)
	case TokPercent:
		return p.parseComputedUse(expected)
	case TokHex:
		addr := p.tok.Hex
		p.next()
		return ir.NewPointerConstant(addr)
	case TokString:
		s := p.tok.Str
		p.next()
		return ir.NewStringConstant(s)
	default:
		panic(p.fail("expected '#', '%%', '@', '0x', or a string"))
	}
}

func (p *parser) parseConstant(expected ir.Type) *ir.Constant {
	if p.tok.Kind == TokAt {
		n := p.parseFuncRef()
		return ir.NewFuncConstant(n)
	}
	p.expect(TokHash)
	if p.tok.Kind == TokIdent {
		switch p.tok.Ident {
		case "t":
			p.next()
			return ir.NewBoolConstant(true)
		case "f":
			p.next()
			return ir.NewBoolConstant(false)
		default:
			panic(p.fail("expected number, 't', or 'f'"))
		}
	}
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected number, 't', or 'f'"))
	}
	sign := sign1(p.tok.Sign)
	mag := p.tok.Int
	p.next()

	var typ ir.Type
	if p.tok.Kind == TokColon {
		p.next()
		typ = p.parseType()
		if !ir.IsInt(typ) {
			panic(p.fail("expected int type"))
		}
		if expected != nil && !ir.TypesEqual(expected, typ) {
			panic(p.fail("expected %s, got %s", expected, typ))
		}
	} else {
		if expected == nil {
			panic(p.fail("expected ':'"))
		}
		if !ir.IsInt(expected) {
			panic(p.fail("expected %s", expected))
		}
		typ = expected
	}
	return ir.NewIntConstant(int64(sign)*mag, typ)
}

// parseComputedDecl parses a computed value at a binding site (function
// arg, instruction result): `%N [: Type]`. If a use earlier in the text
// (a phi operand naming a value defined further down) already entered
// %N into the function's value table, that same *ir.Computed is reused;
// otherwise a fresh one enters the table.
func (p *parser) parseComputedDecl(expected ir.Type) *ir.Computed {
	p.expect(TokPercent)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected value number"))
	}
	num := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()

	var typ ir.Type
	if p.tok.Kind == TokColon {
		p.next()
		typ = p.parseType()
		if expected != nil && !ir.TypesEqual(expected, typ) {
			panic(p.fail("expected %s, got %s", expected, typ))
		}
	} else if expected != nil {
		typ = expected
	} else {
		panic(p.fail("expected ':'"))
	}

	if existing, ok := p.values[num]; ok {
		if !ir.TypesEqual(existing.Type(), typ) {
			panic(p.fail("value %%%d redeclared with different type", num))
		}
		return existing
	}
	c := &ir.Computed{Number: num, Typ: typ}
	p.values[num] = c
	p.fn.ReserveValueNumber(num)
	return c
}

// parseComputedUse parses a computed value at a use site: `%N [: Type]`,
// resolving against the function's value table (I-F1: one definition).
func (p *parser) parseComputedUse(expected ir.Type) *ir.Computed {
	p.expect(TokPercent)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected value number"))
	}
	num := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()

	var typ ir.Type
	hasType := false
	if p.tok.Kind == TokColon {
		p.next()
		typ = p.parseType()
		hasType = true
		if expected != nil && !ir.TypesEqual(expected, typ) {
			panic(p.fail("expected %s, got %s", expected, typ))
		}
	} else if expected != nil {
		typ = expected
	} else if existing, ok := p.values[num]; ok {
		typ = existing.Type()
	} else {
		panic(p.fail("expected ':'"))
	}

	if existing, ok := p.values[num]; ok {
		if hasType && !ir.TypesEqual(existing.Type(), typ) {
			panic(p.fail("value %%%d redeclared with different type", num))
		}
		return existing
	}
	c := &ir.Computed{Number: num, Typ: typ}
	p.values[num] = c
	p.fn.ReserveValueNumber(num)
	return c
}

// Type ::= atomic identifier | CompositeType
func (p *parser) parseType() ir.Type {
	if p.tok.Kind == TokLBracket {
		return p.parseArrayType()
	}
	if p.tok.Kind != TokIdent {
		panic(p.fail("expected type"))
	}
	name := p.tok.Ident

	if atomic := ir.LookupAtomic(name); atomic != nil {
		p.next()
		return atomic
	}

	switch name {
	case "shared":
		p.next()
		p.expect(TokLAngle)
		elem := p.parseType()
		p.expect(TokComma)
		if p.tok.Kind != TokIdent {
			panic(p.fail("expected 'strong' or 'weak'"))
		}
		var ownership ir.PointerOwnership
		switch p.tok.Ident {
		case "strong":
			ownership = ir.OwnershipStrong
		case "weak":
			ownership = ir.OwnershipWeak
		default:
			panic(p.fail("expected 'strong' or 'weak'"))
		}
		p.next()
		p.expect(TokRAngle)
		return p.prog.Types.Intern(&ir.SharedPointerType{Elem: elem, Ownership: ownership})
	case "unique":
		p.next()
		p.expect(TokLAngle)
		elem := p.parseType()
		p.expect(TokRAngle)
		return p.prog.Types.Intern(&ir.UniquePointerType{Elem: elem})
	case "struct":
		p.next()
		return p.parseStructType()
	case "interface":
		p.next()
		return p.parseInterfaceType()
	default:
		panic(p.fail("unknown type %q", name))
	}
}

func (p *parser) parseArrayType() ir.Type {
	p.expect(TokLBracket)
	if p.tok.Kind != TokNumber {
		panic(p.fail("expected array length"))
	}
	length := p.tok.Int * int64(sign1(p.tok.Sign))
	p.next()
	p.expect(TokRBracket)
	elem := p.parseType()
	return p.prog.Types.Intern(&ir.ArrayType{Elem: elem, Len: length})
}

func (p *parser) parseStructType() ir.Type {
	if p.tok.Kind != TokIdent {
		panic(p.fail("expected struct name"))
	}
	name := p.tok.Ident
	p.next()
	p.expect(TokLBrace)
	var fields []ir.StructField
	if p.tok.Kind != TokRBrace {
		for {
			if p.tok.Kind != TokIdent {
				panic(p.fail("expected field name"))
			}
			fname := p.tok.Ident
			p.next()
			p.expect(TokColon)
			ftype := p.parseType()
			fields = append(fields, ir.StructField{Name: fname, Type: ftype})
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(TokRBrace)
	return p.prog.Types.Intern(&ir.StructType{Name: name, Fields: fields})
}

func (p *parser) parseInterfaceType() ir.Type {
	if p.tok.Kind != TokIdent {
		panic(p.fail("expected interface name"))
	}
	name := p.tok.Ident
	p.next()
	p.expect(TokLBrace)
	var methods []ir.InterfaceMethod
	if p.tok.Kind != TokRBrace {
		for {
			if p.tok.Kind != TokIdent {
				panic(p.fail("expected method name"))
			}
			mname := p.tok.Ident
			p.next()
			params := p.parseTypeList()
			var results []ir.Type
			if p.tok.Kind == TokLParen {
				results = p.parseTypeList()
			}
			methods = append(methods, ir.InterfaceMethod{Name: mname, Params: params, Results: results})
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(TokRBrace)
	return p.prog.Types.Intern(&ir.InterfaceType{Name: name, Methods: methods})
}

func (p *parser) parseTypeList() []ir.Type {
	p.expect(TokLParen)
	var out []ir.Type
	if p.tok.Kind != TokRParen {
		for {
			out = append(out, p.parseType())
			if p.tok.Kind == TokComma {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(TokRParen)
	return out
}

func sign1(s int) int {
	if s == -1 {
		return -1
	}
	return 1
}
