package ir

import "fmt"

// ValueKind tags the concrete variant behind a Value.
type ValueKind int

const (
	ValueConstant ValueKind = iota
	ValueComputed
	ValueInherited
)

// Value is implemented by every IR value: constants, computed (SSA)
// values, and inherited values (phi-operand only). Mirrors
// original_source/src/ir/representation/values.h's three-variant model.
type Value interface {
	ValueKind() ValueKind
	Type() Type
	String() string
}

// ConstantKind tags which literal form a Constant carries.
type ConstantKind int

const (
	ConstBool ConstantKind = iota
	ConstInt
	ConstPointer
	ConstFunc
	ConstString
)

// Constant is a typed compile-time literal. Exactly one of the payload
// fields is meaningful, selected by Which.
type Constant struct {
	Typ     Type
	Which   ConstantKind
	Bool    bool
	Int     int64
	Pointer uint64
	Func    int64 // function number
	Str     []byte
}

func (c *Constant) ValueKind() ValueKind { return ValueConstant }
func (c *Constant) Type() Type           { return c.Typ }

func (c *Constant) String() string {
	switch c.Which {
	case ConstBool:
		if c.Bool {
			return "#t"
		}
		return "#f"
	case ConstInt:
		return fmt.Sprintf("#%d:%s", c.Int, c.Typ)
	case ConstPointer:
		return fmt.Sprintf("0x%x", c.Pointer)
	case ConstFunc:
		return fmt.Sprintf("@%d", c.Func)
	case ConstString:
		return fmt.Sprintf("%q", string(c.Str))
	default:
		return "<bad-const>"
	}
}

// NewBoolConstant builds a bool literal.
func NewBoolConstant(v bool) *Constant {
	return &Constant{Typ: Bool, Which: ConstBool, Bool: v}
}

// NewIntConstant builds a typed integer literal.
func NewIntConstant(v int64, t Type) *Constant {
	return &Constant{Typ: t, Which: ConstInt, Int: v}
}

// NewPointerConstant builds a raw-address pointer literal.
func NewPointerConstant(addr uint64) *Constant {
	return &Constant{Typ: Ptr, Which: ConstPointer, Pointer: addr}
}

// NewFuncConstant builds a function-reference literal.
func NewFuncConstant(fn int64) *Constant {
	return &Constant{Typ: Func, Which: ConstFunc, Func: fn}
}

// NewStringConstant builds a string literal.
func NewStringConstant(s []byte) *Constant {
	return &Constant{Typ: Str, Which: ConstString, Str: s}
}

// Computed is a type-tagged, function-unique SSA value identified by its
// value number (I-F1/I-F2).
type Computed struct {
	Number int64
	Typ    Type
}

func (c *Computed) ValueKind() ValueKind { return ValueComputed }
func (c *Computed) Type() Type           { return c.Typ }
func (c *Computed) String() string       { return fmt.Sprintf("%%%d", c.Number) }

// InheritedValue pairs a value with the block number it is inherited from;
// usable only inside phi operand lists (§3).
type InheritedValue struct {
	Value  Value
	Origin int64 // originating block number
}

func (v *InheritedValue) ValueKind() ValueKind { return ValueInherited }
func (v *InheritedValue) Type() Type           { return v.Value.Type() }
func (v *InheritedValue) String() string {
	return fmt.Sprintf("%s{%d}", v.Value, v.Origin)
}

// AsComputed type-asserts v to *Computed, unwrapping an InheritedValue
// first if necessary. Returns nil, false if v is a Constant.
func AsComputed(v Value) (*Computed, bool) {
	switch vv := v.(type) {
	case *Computed:
		return vv, true
	case *InheritedValue:
		return AsComputed(vv.Value)
	default:
		return nil, false
	}
}
