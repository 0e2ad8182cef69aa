package irproc

import (
	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irinfo"
)

// ConvertSharedToUniquePointersInProgram downgrades every shared pointer
// that is never copied, never passed through a phi, and never crosses a
// call or return boundary into a unique pointer: a single owner never
// needs reference counting. A value only qualifies if every one of its
// uses is ordinary (load, store, free, offset, nil test, ...); any
// CopyShared, Phi, Call, or Return use disqualifies it, since those are
// exactly the ways a shared pointer's ownership can become non-unique
// without this function being able to see it.
func ConvertSharedToUniquePointersInProgram(prog *ir.Program) bool {
	changed := false
	for _, fn := range prog.Funcs() {
		if convertSharedToUniqueInFunc(fn) {
			changed = true
		}
	}
	return changed
}

func convertSharedToUniqueInFunc(fn *ir.Function) bool {
	info := irinfo.BuildUseDefInfo(fn)
	changed := false

	for _, valueNum := range info.Values() {
		makeShared, ok := info.DefiningInstr(valueNum).(*ir.MakeShared)
		if !ok || makeShared.Result.Number != valueNum {
			continue
		}
		if !canConvertSharedToUnique(valueNum, info) {
			continue
		}
		convertSharedToUnique(fn, valueNum, makeShared)
		changed = true
	}
	return changed
}

func canConvertSharedToUnique(valueNum int64, info *irinfo.UseDefInfo) bool {
	for _, using := range info.UsingInstrs(valueNum) {
		switch using.(type) {
		case *ir.CopyShared, *ir.Phi, *ir.Call, *ir.Return:
			return false
		}
	}
	return true
}

func convertSharedToUnique(fn *ir.Function, valueNum int64, makeShared *ir.MakeShared) {
	sharedType, ok := makeShared.Result.Typ.(*ir.SharedPointerType)
	if !ok {
		return
	}
	uniqueType := fn.Program().Types.Intern(&ir.UniquePointerType{Elem: sharedType.Elem})
	makeShared.Result.Typ = uniqueType

	for _, b := range fn.Blocks() {
		instrs := b.Instrs()
		for idx := 0; idx < len(instrs); idx++ {
			switch v := instrs[idx].(type) {
			case *ir.MakeShared:
				if v == makeShared {
					b.ReplaceAt(idx, &ir.MakeUnique{Result: v.Result, Size: v.Size})
				}
			case *ir.DeleteShared:
				if c, ok := ir.AsComputed(v.Argument); ok && c.Number == valueNum {
					b.ReplaceAt(idx, &ir.DeleteUnique{Argument: v.Argument})
				}
			}
			instrs = b.Instrs()
		}
	}
}

// ConvertUniquePointersToLocalValuesInProgram replaces single-element
// unique pointers (malloc'd purely to hold one local value, never
// touched through a phi, call, or return) with the value they hold
// directly: make/delete disappear, loads/stores become movs, and a phi
// is introduced only where a load needs a value merged from more than
// one predecessor path.
func ConvertUniquePointersToLocalValuesInProgram(prog *ir.Program) bool {
	changed := false
	for _, fn := range prog.Funcs() {
		if convertUniqueToLocalInFunc(fn) {
			changed = true
		}
	}
	return changed
}

func convertUniqueToLocalInFunc(fn *ir.Function) bool {
	info := irinfo.BuildUseDefInfo(fn)
	changed := false

	for _, valueNum := range info.Values() {
		makeUnique, ok := info.DefiningInstr(valueNum).(*ir.MakeUnique)
		if !ok || makeUnique.Result.Number != valueNum {
			continue
		}
		if !canConvertUniqueToLocal(valueNum, makeUnique, info) {
			continue
		}
		convertUniqueToLocal(fn, valueNum, info)
		changed = true
	}
	return changed
}

func canConvertUniqueToLocal(valueNum int64, makeUnique *ir.MakeUnique, info *irinfo.UseDefInfo) bool {
	size, ok := makeUnique.Size.(*ir.Constant)
	if !ok || size.Which != ir.ConstInt || size.Int != 1 {
		return false
	}
	for _, using := range info.UsingInstrs(valueNum) {
		switch using.(type) {
		case *ir.Phi, *ir.Call, *ir.Return:
			return false
		}
	}
	return true
}

// convertUniqueToLocal performs the actual mem2reg-style rewrite for one
// pointer value, visiting blocks in dominance order so that a block
// processed after its single-predecessor chain can reuse the value
// flowing out of it without needing a phi.
func convertUniqueToLocal(fn *ir.Function, valueNum int64, info *irinfo.UseDefInfo) {
	domTree := irinfo.DomTreeOf(fn)

	elementValueAtExit := map[int64]ir.Value{}
	phiResultFor := map[int64]*ir.Computed{}
	var blocksNeedingPhi []int64

	for _, blockNum := range domTree.Order() {
		block := fn.MustBlock(blockNum)

		var elementValue ir.Value
		if parents := block.Parents(); len(parents) == 1 {
			cur := parents[0]
			for {
				if ev, ok := elementValueAtExit[cur]; ok && ev != nil {
					elementValue = ev
					break
				}
				parent := fn.MustBlock(cur)
				if len(parent.Parents()) != 1 {
					break
				}
				cur = parent.Parents()[0]
			}
		}

		instrs := block.Instrs()
		for idx := 0; idx < len(instrs); idx++ {
			switch v := instrs[idx].(type) {
			case *ir.MakeUnique:
				if v.Result.Number != valueNum {
					continue
				}
				block.RemoveAt(idx)
				idx--
			case *ir.DeleteUnique:
				c, ok := ir.AsComputed(v.Argument)
				if !ok || c.Number != valueNum {
					continue
				}
				block.RemoveAt(idx)
				idx--
			case *ir.Load:
				c, ok := ir.AsComputed(v.Address)
				if !ok || c.Number != valueNum {
					continue
				}
				if elementValue == nil {
					elementValue = v.Result
					phiResultFor[blockNum] = v.Result
					blocksNeedingPhi = append(blocksNeedingPhi, blockNum)
					block.RemoveAt(idx)
					idx--
				} else {
					block.ReplaceAt(idx, &ir.Mov{Result: v.Result, Origin: elementValue})
				}
			case *ir.Store:
				c, ok := ir.AsComputed(v.Address)
				if !ok || c.Number != valueNum {
					continue
				}
				elementValue = v.Value
				block.RemoveAt(idx)
				idx--
			}
			instrs = block.Instrs()
		}

		elementValueAtExit[blockNum] = elementValue
	}

	for _, blockNum := range blocksNeedingPhi {
		block := fn.MustBlock(blockNum)
		phiResult := phiResultFor[blockNum]

		var args []ir.PhiArg
		for _, parentNum := range block.Parents() {
			parentValue, ok := elementValueAtExit[parentNum]
			if !ok || parentValue == nil {
				continue
			}
			args = append(args, ir.PhiArg{Value: parentValue, Origin: parentNum})
		}
		block.InsertBefore(0, &ir.Phi{Result: phiResult, Args: args})
	}
}

// SharedToUniquePointerPass wraps ConvertSharedToUniquePointersInProgram.
type SharedToUniquePointerPass struct{}

func (SharedToUniquePointerPass) Name() string { return "Shared-to-Unique Pointer Lowering" }
func (SharedToUniquePointerPass) Description() string {
	return "downgrades never-copied shared pointers to unique pointers"
}
func (SharedToUniquePointerPass) Apply(prog *ir.Program) bool {
	return ConvertSharedToUniquePointersInProgram(prog)
}

// UniquePointerToLocalValuePass wraps
// ConvertUniquePointersToLocalValuesInProgram.
type UniquePointerToLocalValuePass struct{}

func (UniquePointerToLocalValuePass) Name() string { return "Unique Pointer to Local Value Lowering" }
func (UniquePointerToLocalValuePass) Description() string {
	return "replaces single-element unique pointers with the value they hold"
}
func (UniquePointerToLocalValuePass) Apply(prog *ir.Program) bool {
	return ConvertUniquePointersToLocalValuesInProgram(prog)
}
