// Package value defines Monty's tagged runtime value and the heap arena
// that backs every reference-counted object a compiled program can touch.
package value

import "fmt"

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindRange
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindRange:
		return "range"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// HeapId is an opaque, never-reused identifier into a Heap arena.
type HeapId uint64

// Value is Monty's small tagged sum: None | Bool | Int | Float | Range | Ref.
// Primitives are value-copy; Ref denotes a shared, refcounted heap handle.
type Value struct {
	kind Kind
	i    int64
	f    float64
	id   HeapId
}

// None is the singleton absence-of-value.
var None = Value{kind: KindNone}

// NewBool builds a Bool value.
func NewBool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool, i: 0}
}

// NewInt builds an Int value.
func NewInt(i int64) Value { return Value{kind: KindInt, i: i} }

// NewFloat builds a Float value.
func NewFloat(f float64) Value { return Value{kind: KindFloat, f: f} }

// NewRange builds a Range value of the given size (number of elements,
// always starting at zero; the accepted subset's range() is single-arg).
func NewRange(size int64) Value { return Value{kind: KindRange, i: size} }

// NewRef builds a Ref value pointing at a heap slot. The caller is
// responsible for having already incremented the slot's refcount to
// account for this new handle.
func NewRef(id HeapId) Value { return Value{kind: KindRef, id: id} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNone() bool   { return v.kind == KindNone }
func (v Value) IsRef() bool    { return v.kind == KindRef }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Bool() bool     { return v.i != 0 }
func (v Value) RangeSize() int64 { return v.i }
func (v Value) HeapId() HeapId { return v.id }

// AsFloat returns v promoted to float64 for numerics (Bool/Int/Float).
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindBool, KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether v is Bool, Int, or Float.
func (v Value) IsNumeric() bool {
	return v.kind == KindBool || v.kind == KindInt || v.kind == KindFloat
}

func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		return fmt.Sprintf("%t", v.i != 0)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindRange:
		return fmt.Sprintf("range(0, %d)", v.i)
	case KindRef:
		return fmt.Sprintf("<ref %d>", v.id)
	default:
		return "<invalid>"
	}
}
