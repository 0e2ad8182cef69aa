// Package irchecker validates well-formedness of an *ir.Program without
// assuming any transformation has run, accumulating every violation it
// finds rather than aborting on the first.
package irchecker

import "fmt"

// Kind is a closed enumeration of every well-formedness violation the
// checker knows how to report.
type Kind int

const (
	// Value issues.
	ValueHasNoType Kind = iota

	// Instruction issues.
	InstrDefinesNilValue
	InstrUsesNilValue
	NonPhiInstrUsesInheritedValue
	MovOriginResultTypeMismatch
	PhiArgResultTypeMismatch
	PhiMissingArgumentForParent
	PhiDuplicateArgumentForParent
	PhiArgumentForNonParent
	ConversionOperandUnsupportedType
	ConversionResultUnsupportedType
	BoolNotOperandNotBool
	BoolNotResultNotBool
	BoolBinaryOperandNotBool
	BoolBinaryResultNotBool
	IntUnaryOperandNotInt
	IntUnaryResultNotInt
	IntUnaryResultOperandMismatch
	IntCompareOperandNotInt
	IntCompareOperandsMismatch
	IntCompareResultNotBool
	IntBinaryOperandNotInt
	IntBinaryResultNotInt
	IntBinaryOperandsResultMismatch
	IntShiftOperandNotInt
	IntShiftResultNotInt
	IntShiftShiftedResultMismatch
	PointerOffsetPointerNotPointer
	PointerOffsetOffsetNotI64
	PointerOffsetResultNotPointer
	NilTestTestedNotPointerOrFunc
	NilTestResultNotBool
	MallocSizeNotI64
	MallocResultNotPointer
	LoadAddressNotPointerLike
	StoreAddressNotPointerLike
	FreeAddressNotPointer
	JumpDestinationNotChild
	JumpCondConditionNotBool
	JumpCondDuplicateDestinations
	JumpCondDestinationNotChild
	SyscallResultNotI64
	SyscallNumberNotI64
	SyscallArgNotI64
	CallCalleeNotFuncType
	CallStaticCalleeDoesNotExist
	CallDoesNotMatchStaticCalleeSignature
	ReturnDoesNotMatchFuncSignature
	MakeSharedSizeNotI64
	MakeSharedResultNotSharedPointer
	CopySharedCopiedNotSharedPointer
	CopySharedOffsetNotI64
	CopySharedResultNotSharedPointer
	CopySharedWeakToStrongDisallowed
	DeleteSharedArgumentNotSharedPointer
	MakeUniqueSizeNotI64
	MakeUniqueResultNotUniquePointer
	DeleteUniqueArgumentNotUniquePointer
	StringIndexStrNotString
	StringIndexIndexNotI64
	StringIndexResultNotI8
	StringConcatTooFewParts
	StringConcatPartNotString
	StringConcatResultNotString
	PanicReasonNotString

	// Block issues.
	EntryBlockHasParents
	NonEntryBlockHasNoParents
	BlockEmpty
	PhiInBlockWithoutMultipleParents
	PhiAfterNonPhi
	ControlFlowBeforeEnd
	ControlFlowMissingAtEnd
	ControlFlowMismatchedWithGraph

	// Function issues.
	FuncHasNilArg
	FuncHasNilResultType
	FuncHasNoEntryBlock

	// Program-wide issues.
	ComputedValueUsedInMultipleFunctions
	ComputedValueNumberUsedMultipleTimes
	ComputedValueHasNoDefinition
	ComputedValueHasMultipleDefinitions
	ComputedValueDefinitionDoesNotDominateUse
)

var kindNames = map[Kind]string{
	ValueHasNoType:                        "value has no type",
	InstrDefinesNilValue:                  "instruction defines a nil value",
	InstrUsesNilValue:                     "instruction uses a nil value",
	NonPhiInstrUsesInheritedValue:         "non-phi instruction uses an inherited value",
	MovOriginResultTypeMismatch:           "mov origin and result have mismatched types",
	PhiArgResultTypeMismatch:              "phi argument and result have mismatched types",
	PhiMissingArgumentForParent:           "phi has no argument for parent block",
	PhiDuplicateArgumentForParent:         "phi has multiple arguments for the same parent block",
	PhiArgumentForNonParent:               "phi has an argument tagging a non-parent block",
	ConversionOperandUnsupportedType:      "conversion operand has unsupported type",
	ConversionResultUnsupportedType:       "conversion result has unsupported type",
	BoolNotOperandNotBool:                 "bool-not operand does not have bool type",
	BoolNotResultNotBool:                  "bool-not result does not have bool type",
	BoolBinaryOperandNotBool:              "bool-binary operand does not have bool type",
	BoolBinaryResultNotBool:               "bool-binary result does not have bool type",
	IntUnaryOperandNotInt:                 "int-unary operand does not have int type",
	IntUnaryResultNotInt:                  "int-unary result does not have int type",
	IntUnaryResultOperandMismatch:         "int-unary result and operand have different types",
	IntCompareOperandNotInt:               "int-compare operand does not have int type",
	IntCompareOperandsMismatch:            "int-compare operands have different types",
	IntCompareResultNotBool:               "int-compare result does not have bool type",
	IntBinaryOperandNotInt:                "int-binary operand does not have int type",
	IntBinaryResultNotInt:                 "int-binary result does not have int type",
	IntBinaryOperandsResultMismatch:       "int-binary operands and result have different types",
	IntShiftOperandNotInt:                 "int-shift operand does not have int type",
	IntShiftResultNotInt:                  "int-shift result does not have int type",
	IntShiftShiftedResultMismatch:         "int-shift shifted value and result have different types",
	PointerOffsetPointerNotPointer:        "pointer-offset pointer does not have pointer type",
	PointerOffsetOffsetNotI64:             "pointer-offset offset does not have i64 type",
	PointerOffsetResultNotPointer:         "pointer-offset result does not have pointer type",
	NilTestTestedNotPointerOrFunc:         "nil-test tested value is not a pointer or func",
	NilTestResultNotBool:                  "nil-test result does not have bool type",
	MallocSizeNotI64:                      "malloc size does not have i64 type",
	MallocResultNotPointer:                "malloc result does not have pointer type",
	LoadAddressNotPointerLike:             "load address is not pointer-like",
	StoreAddressNotPointerLike:            "store address is not pointer-like",
	FreeAddressNotPointer:                 "free address does not have pointer type",
	JumpDestinationNotChild:               "jump destination is not a recorded child block",
	JumpCondConditionNotBool:              "jump-cond condition does not have bool type",
	JumpCondDuplicateDestinations:         "jump-cond has duplicate destinations",
	JumpCondDestinationNotChild:           "jump-cond destination is not a recorded child block",
	SyscallResultNotI64:                   "syscall result does not have i64 type",
	SyscallNumberNotI64:                   "syscall number does not have i64 type",
	SyscallArgNotI64:                      "syscall argument does not have i64 type",
	CallCalleeNotFuncType:                 "call callee does not have func type",
	CallStaticCalleeDoesNotExist:          "call's static callee does not exist",
	CallDoesNotMatchStaticCalleeSignature: "call does not match its static callee's signature",
	ReturnDoesNotMatchFuncSignature:       "return does not match function result signature",
	MakeSharedSizeNotI64:                  "make-shared size does not have i64 type",
	MakeSharedResultNotSharedPointer:      "make-shared result does not have shared-pointer type",
	CopySharedCopiedNotSharedPointer:      "copy-shared copied value does not have shared-pointer type",
	CopySharedOffsetNotI64:                "copy-shared offset does not have i64 type",
	CopySharedResultNotSharedPointer:      "copy-shared result does not have shared-pointer type",
	CopySharedWeakToStrongDisallowed:      "copy-shared may not promote weak to strong",
	DeleteSharedArgumentNotSharedPointer:  "delete-shared argument does not have shared-pointer type",
	MakeUniqueSizeNotI64:                  "make-unique size does not have i64 type",
	MakeUniqueResultNotUniquePointer:      "make-unique result does not have unique-pointer type",
	DeleteUniqueArgumentNotUniquePointer:  "delete-unique argument does not have unique-pointer type",
	StringIndexStrNotString:               "string-index string operand does not have string type",
	StringIndexIndexNotI64:                "string-index index does not have i64 type",
	StringIndexResultNotI8:                "string-index result does not have i8 type",
	StringConcatTooFewParts:               "string-concat has fewer than one operand",
	StringConcatPartNotString:             "string-concat operand does not have string type",
	StringConcatResultNotString:           "string-concat result does not have string type",
	PanicReasonNotString:                  "panic reason does not have string type",
	EntryBlockHasParents:                  "entry block has parents",
	NonEntryBlockHasNoParents:             "non-entry block has no parents",
	BlockEmpty:                            "block contains no instructions",
	PhiInBlockWithoutMultipleParents:      "phi in block without multiple parents",
	PhiAfterNonPhi:                        "phi follows a non-phi instruction in its block",
	ControlFlowBeforeEnd:                  "control-flow instruction before end of block",
	ControlFlowMissingAtEnd:               "block does not end in a control-flow instruction",
	ControlFlowMismatchedWithGraph:        "terminator destinations disagree with the block graph",
	FuncHasNilArg:                         "function has a nil argument",
	FuncHasNilResultType:                  "function has a nil result type",
	FuncHasNoEntryBlock:                   "function has no entry block",
	ComputedValueUsedInMultipleFunctions:  "computed value used in more than one function",
	ComputedValueNumberUsedMultipleTimes:  "computed value number used multiple times within a function",
	ComputedValueHasNoDefinition:          "computed value has no definition",
	ComputedValueHasMultipleDefinitions:   "computed value has multiple definitions",
	ComputedValueDefinitionDoesNotDominateUse: "computed value's definition does not dominate its use",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown issue"
}

// Issue is one well-formedness violation. Scope names the entity the
// rule applies to (an *ir.Function, *ir.Block, ir.Instruction, or
// *ir.Computed); Involved lists further objects useful for diagnosis
// (e.g. the offending parent block in a phi violation).
type Issue struct {
	Kind     Kind
	Scope    interface{}
	Involved []interface{}
	Message  string
}

func (i Issue) String() string {
	if i.Message != "" {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	return i.Kind.String()
}

func newIssue(kind Kind, scope interface{}, involved ...interface{}) Issue {
	return Issue{Kind: kind, Scope: scope, Involved: involved, Message: kind.String()}
}
