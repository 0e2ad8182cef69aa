package irchecker

import (
	"fmt"
	"strings"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irinfo"
)

// Check validates every function in prog and returns every well-formedness
// violation found. It never stops at the first issue.
func Check(prog *ir.Program) []Issue {
	c := &checker{}
	c.checkProgram(prog)
	return c.issues
}

// MustCheck panics if prog fails Check, listing every issue found. Intended
// for call sites (the CLI's `run` and `debug` subcommands) that treat a
// malformed program as a programmer error rather than user input.
func MustCheck(prog *ir.Program) {
	issues := Check(prog)
	if len(issues) == 0 {
		return
	}
	var b strings.Builder
	for _, iss := range issues {
		fmt.Fprintf(&b, "- %s\n", iss)
	}
	panic(fmt.Sprintf("ir: program failed well-formedness check:\n%s", b.String()))
}

type checker struct {
	issues []Issue
}

func (c *checker) add(kind Kind, scope interface{}, involved ...interface{}) {
	c.issues = append(c.issues, newIssue(kind, scope, involved...))
}

func (c *checker) checkProgram(prog *ir.Program) {
	owner := map[*ir.Computed]*ir.Function{}
	for _, fn := range prog.Funcs() {
		c.checkFunc(prog, fn, owner)
	}
}

func (c *checker) checkFunc(prog *ir.Program, fn *ir.Function, owner map[*ir.Computed]*ir.Function) {
	for _, arg := range fn.Args {
		if arg == nil {
			c.add(FuncHasNilArg, fn)
			continue
		}
		c.registerOwner(fn, arg, owner)
	}
	for _, rt := range fn.ResultTypes {
		if rt == nil {
			c.add(FuncHasNilResultType, fn)
		}
	}
	if _, ok := fn.EntryBlock(); !ok {
		c.add(FuncHasNoEntryBlock, fn)
	}

	argSet := map[*ir.Computed]bool{}
	for _, arg := range fn.Args {
		argSet[arg] = true
	}
	byNumber := map[int64][]*ir.Computed{}
	definedBy := map[*ir.Computed]ir.Instruction{}
	for _, arg := range fn.Args {
		if arg != nil {
			byNumber[arg.Number] = appendDistinct(byNumber[arg.Number], arg)
		}
	}

	for _, b := range fn.Blocks() {
		c.checkBlock(fn, b)
		for _, instr := range b.Instrs() {
			c.checkValuesNonNil(instr)
			c.checkInstrType(fn, b, instr)
			for _, r := range instr.Results() {
				if r == nil {
					continue
				}
				c.registerOwner(fn, r, owner)
				byNumber[r.Number] = appendDistinct(byNumber[r.Number], r)
				if prev, ok := definedBy[r]; ok && prev != instr {
					c.add(ComputedValueHasMultipleDefinitions, r, prev, instr)
				} else {
					definedBy[r] = instr
				}
			}
		}
	}

	for num, vs := range byNumber {
		if len(vs) > 1 {
			c.add(ComputedValueNumberUsedMultipleTimes, fn, num)
		}
	}

	for _, b := range fn.Blocks() {
		for _, instr := range b.Instrs() {
			for _, operand := range instr.Operands() {
				computed, ok := ir.AsComputed(operand)
				if !ok {
					continue
				}
				if _, defined := definedBy[computed]; defined {
					continue
				}
				if argSet[computed] {
					continue
				}
				c.add(ComputedValueHasNoDefinition, instr, computed)
			}
		}
	}

	c.checkDominance(fn, definedBy, argSet)
}

func (c *checker) registerOwner(fn *ir.Function, v *ir.Computed, owner map[*ir.Computed]*ir.Function) {
	if prev, ok := owner[v]; ok && prev != fn {
		c.add(ComputedValueUsedInMultipleFunctions, v, prev, fn)
		return
	}
	owner[v] = fn
}

func appendDistinct(vs []*ir.Computed, v *ir.Computed) []*ir.Computed {
	for _, existing := range vs {
		if existing == v {
			return vs
		}
	}
	return append(vs, v)
}

func (c *checker) checkValuesNonNil(instr ir.Instruction) {
	for _, r := range instr.Results() {
		if r == nil {
			c.add(InstrDefinesNilValue, instr)
		} else if r.Type() == nil {
			c.add(ValueHasNoType, r)
		}
	}
	_, isPhi := instr.(*ir.Phi)
	for _, operand := range instr.Operands() {
		if operand == nil {
			c.add(InstrUsesNilValue, instr)
			continue
		}
		if operand.Type() == nil {
			c.add(ValueHasNoType, operand)
		}
		if _, ok := operand.(*ir.InheritedValue); ok && !isPhi {
			c.add(NonPhiInstrUsesInheritedValue, instr)
		}
	}
}

func (c *checker) checkBlock(fn *ir.Function, b *ir.Block) {
	instrs := b.Instrs()
	if len(instrs) == 0 {
		c.add(BlockEmpty, b)
		return
	}

	entryNum, hasEntry := fn.EntryBlockNum()
	isEntry := hasEntry && b.Number == entryNum
	parents := b.Parents()
	if isEntry && len(parents) > 0 {
		c.add(EntryBlockHasParents, b)
	}
	if !isEntry && len(parents) == 0 {
		c.add(NonEntryBlockHasNoParents, b)
	}

	seenNonPhi := false
	for idx, instr := range instrs {
		if ir.IsPhi(instr) {
			if seenNonPhi {
				c.add(PhiAfterNonPhi, instr)
			}
			if len(parents) <= 1 {
				c.add(PhiInBlockWithoutMultipleParents, instr)
			}
		} else {
			seenNonPhi = true
		}
		if instr.IsTerminator() && idx != len(instrs)-1 {
			c.add(ControlFlowBeforeEnd, instr)
		}
	}

	last := instrs[len(instrs)-1]
	term, ok := last.(ir.Terminator)
	if !ok {
		c.add(ControlFlowMissingAtEnd, b)
		return
	}

	children := b.Children()
	succs := term.Successors()
	succSet := map[int64]bool{}
	for _, s := range succs {
		succSet[s] = true
		if !containsInt64(children, s) {
			c.add(ControlFlowMismatchedWithGraph, term, s)
		}
	}
	if len(succSet) != len(children) {
		c.add(ControlFlowMismatchedWithGraph, term)
	}
}

func containsInt64(xs []int64, x int64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (c *checker) checkPhiParents(b *ir.Block, phi *ir.Phi) {
	parents := b.Parents()
	counts := map[int64]int{}
	for _, a := range phi.Args {
		counts[a.Origin]++
		if !containsInt64(parents, a.Origin) {
			c.add(PhiArgumentForNonParent, phi, a.Origin)
		}
	}
	for _, p := range parents {
		switch counts[p] {
		case 0:
			c.add(PhiMissingArgumentForParent, phi, p)
		case 1:
		default:
			c.add(PhiDuplicateArgumentForParent, phi, p)
		}
	}
}

func isConvertible(t ir.Type) bool {
	switch t.Kind() {
	case ir.TypeBool, ir.TypeI8, ir.TypeI16, ir.TypeI32, ir.TypeI64,
		ir.TypeU8, ir.TypeU16, ir.TypeU32, ir.TypeU64, ir.TypePointer, ir.TypeFunc:
		return true
	default:
		return false
	}
}

func (c *checker) checkInstrType(fn *ir.Function, b *ir.Block, instr ir.Instruction) {
	switch v := instr.(type) {
	case *ir.Mov:
		if !ir.TypesEqual(v.Result.Type(), v.Origin.Type()) {
			c.add(MovOriginResultTypeMismatch, v)
		}
	case *ir.Phi:
		for _, a := range v.Args {
			if !ir.TypesEqual(a.Value.Type(), v.Result.Type()) {
				c.add(PhiArgResultTypeMismatch, v, a.Origin)
			}
		}
		c.checkPhiParents(b, v)
	case *ir.Conversion:
		if !isConvertible(v.Operand.Type()) {
			c.add(ConversionOperandUnsupportedType, v)
		}
		if !isConvertible(v.Result.Type()) {
			c.add(ConversionResultUnsupportedType, v)
		}
	case *ir.BoolNot:
		if v.Operand.Type() != ir.Bool {
			c.add(BoolNotOperandNotBool, v)
		}
		if v.Result.Type() != ir.Bool {
			c.add(BoolNotResultNotBool, v)
		}
	case *ir.BoolBinary:
		if v.A.Type() != ir.Bool || v.B.Type() != ir.Bool {
			c.add(BoolBinaryOperandNotBool, v)
		}
		if v.Result.Type() != ir.Bool {
			c.add(BoolBinaryResultNotBool, v)
		}
	case *ir.IntUnary:
		if !ir.IsInt(v.Operand.Type()) {
			c.add(IntUnaryOperandNotInt, v)
		}
		if !ir.IsInt(v.Result.Type()) {
			c.add(IntUnaryResultNotInt, v)
		} else if !ir.TypesEqual(v.Result.Type(), v.Operand.Type()) {
			c.add(IntUnaryResultOperandMismatch, v)
		}
	case *ir.IntCompare:
		if !ir.IsInt(v.A.Type()) || !ir.IsInt(v.B.Type()) {
			c.add(IntCompareOperandNotInt, v)
		} else if !ir.TypesEqual(v.A.Type(), v.B.Type()) {
			c.add(IntCompareOperandsMismatch, v)
		}
		if v.Result.Type() != ir.Bool {
			c.add(IntCompareResultNotBool, v)
		}
	case *ir.IntBinary:
		if !ir.IsInt(v.A.Type()) || !ir.IsInt(v.B.Type()) {
			c.add(IntBinaryOperandNotInt, v)
		}
		if !ir.IsInt(v.Result.Type()) {
			c.add(IntBinaryResultNotInt, v)
		} else if !ir.TypesEqual(v.A.Type(), v.Result.Type()) || !ir.TypesEqual(v.B.Type(), v.Result.Type()) {
			c.add(IntBinaryOperandsResultMismatch, v)
		}
	case *ir.IntShift:
		if !ir.IsInt(v.Shifted.Type()) {
			c.add(IntShiftOperandNotInt, v)
		}
		if v.Offset.Type() != ir.I64 {
			c.add(IntShiftOperandNotInt, v)
		}
		if !ir.IsInt(v.Result.Type()) {
			c.add(IntShiftResultNotInt, v)
		} else if !ir.TypesEqual(v.Shifted.Type(), v.Result.Type()) {
			c.add(IntShiftShiftedResultMismatch, v)
		}
	case *ir.PointerOffset:
		if !ir.IsPointerLike(v.Pointer.Type()) {
			c.add(PointerOffsetPointerNotPointer, v)
		}
		if v.Offset.Type() != ir.I64 {
			c.add(PointerOffsetOffsetNotI64, v)
		}
		if !ir.IsPointerLike(v.Result.Type()) {
			c.add(PointerOffsetResultNotPointer, v)
		}
	case *ir.NilTest:
		t := v.Tested.Type()
		if !ir.IsPointerLike(t) && t.Kind() != ir.TypeFunc {
			c.add(NilTestTestedNotPointerOrFunc, v)
		}
		if v.Result.Type() != ir.Bool {
			c.add(NilTestResultNotBool, v)
		}
	case *ir.Malloc:
		if v.Size.Type() != ir.I64 {
			c.add(MallocSizeNotI64, v)
		}
		if v.Result.Type() != ir.Ptr {
			c.add(MallocResultNotPointer, v)
		}
	case *ir.Load:
		if !ir.IsPointerLike(v.Address.Type()) {
			c.add(LoadAddressNotPointerLike, v)
		}
	case *ir.Store:
		if !ir.IsPointerLike(v.Address.Type()) {
			c.add(StoreAddressNotPointerLike, v)
		}
	case *ir.Free:
		if v.Address.Type() != ir.Ptr {
			c.add(FreeAddressNotPointer, v)
		}
	case *ir.Jump:
		if !containsInt64(b.Children(), v.Dest) {
			c.add(JumpDestinationNotChild, v)
		}
	case *ir.JumpCond:
		if v.Cond.Type() != ir.Bool {
			c.add(JumpCondConditionNotBool, v)
		}
		if v.TrueDest == v.FalseDest {
			c.add(JumpCondDuplicateDestinations, v)
		}
		children := b.Children()
		if !containsInt64(children, v.TrueDest) || !containsInt64(children, v.FalseDest) {
			c.add(JumpCondDestinationNotChild, v)
		}
	case *ir.Syscall:
		if v.Result.Type() != ir.I64 {
			c.add(SyscallResultNotI64, v)
		}
		if v.Number.Type() != ir.I64 {
			c.add(SyscallNumberNotI64, v)
		}
		for _, a := range v.Args {
			if a.Type() != ir.I64 {
				c.add(SyscallArgNotI64, v)
			}
		}
	case *ir.Call:
		c.checkCall(fn, v)
	case *ir.Return:
		if len(v.Args) != len(fn.ResultTypes) {
			c.add(ReturnDoesNotMatchFuncSignature, v)
		} else {
			for i, a := range v.Args {
				if !ir.TypesEqual(a.Type(), fn.ResultTypes[i]) {
					c.add(ReturnDoesNotMatchFuncSignature, v)
					break
				}
			}
		}
	case *ir.MakeShared:
		if v.Size.Type() != ir.I64 {
			c.add(MakeSharedSizeNotI64, v)
		}
		if v.Result.Type().Kind() != ir.TypeSharedPointer {
			c.add(MakeSharedResultNotSharedPointer, v)
		}
	case *ir.CopyShared:
		copiedType, copiedOk := v.Copied.Type().(*ir.SharedPointerType)
		if !copiedOk {
			c.add(CopySharedCopiedNotSharedPointer, v)
		}
		if v.Offset.Type() != ir.I64 {
			c.add(CopySharedOffsetNotI64, v)
		}
		resultType, resultOk := v.Result.Type().(*ir.SharedPointerType)
		if !resultOk {
			c.add(CopySharedResultNotSharedPointer, v)
		} else if copiedOk && copiedType.Ownership == ir.OwnershipWeak && resultType.Ownership == ir.OwnershipStrong {
			c.add(CopySharedWeakToStrongDisallowed, v)
		}
	case *ir.DeleteShared:
		if _, ok := v.Argument.Type().(*ir.SharedPointerType); !ok {
			c.add(DeleteSharedArgumentNotSharedPointer, v)
		}
	case *ir.MakeUnique:
		if v.Size.Type() != ir.I64 {
			c.add(MakeUniqueSizeNotI64, v)
		}
		if _, ok := v.Result.Type().(*ir.UniquePointerType); !ok {
			c.add(MakeUniqueResultNotUniquePointer, v)
		}
	case *ir.DeleteUnique:
		if _, ok := v.Argument.Type().(*ir.UniquePointerType); !ok {
			c.add(DeleteUniqueArgumentNotUniquePointer, v)
		}
	case *ir.StringIndex:
		if v.Str.Type() != ir.Str {
			c.add(StringIndexStrNotString, v)
		}
		if v.Index.Type() != ir.I64 {
			c.add(StringIndexIndexNotI64, v)
		}
		if v.Result.Type() != ir.I8 {
			c.add(StringIndexResultNotI8, v)
		}
	case *ir.StringConcat:
		if len(v.Parts) < 1 {
			c.add(StringConcatTooFewParts, v)
		}
		for _, p := range v.Parts {
			if p.Type() != ir.Str {
				c.add(StringConcatPartNotString, v)
			}
		}
		if v.Result.Type() != ir.Str {
			c.add(StringConcatResultNotString, v)
		}
	case *ir.Panic:
		if v.Reason.Type() != ir.Str {
			c.add(PanicReasonNotString, v)
		}
	}
}

func (c *checker) checkCall(fn *ir.Function, v *ir.Call) {
	if v.Callee.Type().Kind() != ir.TypeFunc {
		c.add(CallCalleeNotFuncType, v)
		return
	}
	num, ok := v.StaticCallee()
	if !ok {
		return // dynamic callee: signature can't be checked statically
	}
	callee, exists := fn.Program().Func(num)
	if !exists {
		c.add(CallStaticCalleeDoesNotExist, v)
		return
	}
	if len(v.Args) != len(callee.Args) || len(v.ResultVals) != len(callee.ResultTypes) {
		c.add(CallDoesNotMatchStaticCalleeSignature, v)
		return
	}
	for i, a := range v.Args {
		if !ir.TypesEqual(a.Type(), callee.Args[i].Type()) {
			c.add(CallDoesNotMatchStaticCalleeSignature, v)
			return
		}
	}
	for i, r := range v.ResultVals {
		if !ir.TypesEqual(r.Type(), callee.ResultTypes[i]) {
			c.add(CallDoesNotMatchStaticCalleeSignature, v)
			return
		}
	}
}

// checkDominance verifies that every computed value's definition
// dominates each of its uses: for an ordinary operand, the defining
// block must dominate (or equal, with the definition preceding it) the
// using instruction; for a phi operand, the definition need only
// dominate the tagged predecessor block, since the value is read at that
// block's end.
func (c *checker) checkDominance(fn *ir.Function, definedBy map[*ir.Computed]ir.Instruction, argSet map[*ir.Computed]bool) {
	if _, ok := fn.EntryBlock(); !ok {
		return
	}
	domTree := irinfo.DomTreeOf(fn)
	entryNum, _ := fn.EntryBlockNum()

	// Same-block order is the instruction's position in its block, not its
	// number: passes that insert instructions give them fresh, larger
	// numbers regardless of where they land.
	position := map[ir.Instruction]int64{}
	for _, b := range fn.Blocks() {
		for i, instr := range b.Instrs() {
			position[instr] = int64(i)
		}
	}

	checkUse := func(scope ir.Instruction, computed *ir.Computed, useBlock int64, useOrder int64) {
		defInstr, hasDefInstr := definedBy[computed]
		var defBlock int64
		var defOrder int64
		if hasDefInstr {
			defBlock = defInstr.Block().Number
			defOrder = position[defInstr]
		} else if argSet[computed] {
			defBlock = entryNum
			defOrder = -1
		} else {
			return // no-definition already reported
		}
		if defBlock == useBlock {
			if useOrder >= 0 && defOrder >= useOrder {
				c.add(ComputedValueDefinitionDoesNotDominateUse, scope, computed)
			}
			return
		}
		if !domTree.Dominates(defBlock, useBlock) {
			c.add(ComputedValueDefinitionDoesNotDominateUse, scope, computed)
		}
	}

	for _, b := range fn.Blocks() {
		for _, instr := range b.Instrs() {
			if phi, ok := instr.(*ir.Phi); ok {
				for _, a := range phi.Args {
					computed, ok := ir.AsComputed(a.Value)
					if !ok {
						continue
					}
					checkUse(phi, computed, a.Origin, -1)
				}
				continue
			}
			for _, operand := range instr.Operands() {
				computed, ok := ir.AsComputed(operand)
				if !ok {
					continue
				}
				checkUse(instr, computed, b.Number, position[instr])
			}
		}
	}
}
