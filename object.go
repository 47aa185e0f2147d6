// Package monty is Monty's public embedding surface: compile
// source into a Run, execute it to completion or suspend it into a
// RunProgress a host can persist and resume. Everything under internal/
// is plumbing; this file and its siblings are the only contract an
// embedder sees.
package monty

import (
	"fmt"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/types"
	"github.com/RayVR/monty/internal/value"
)

// ObjectKind discriminates the variants of MontyObject.
type ObjectKind uint8

const (
	KindNone ObjectKind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindList
	KindTuple
	KindDict
	KindRange
	KindOpaque // a heap type with no host-facing shape (Function, Frame, Iterator, Class, Instance)
)

// MontyObject is the host-facing mirror of an internal value.Value: a
// deep, heap-independent snapshot a caller can hold, compare, and pass
// back into Resume without retaining a HeapId into a Run it doesn't own.
type MontyObject struct {
	kind  ObjectKind
	b     bool
	i     int64
	f     float64
	s     string
	bytes []byte
	items []MontyObject
	dict  []DictEntry
}

// DictEntry is one key/value pair of a MontyObject dict, in insertion order.
type DictEntry struct {
	Key   MontyObject
	Value MontyObject
}

// None is the host-facing absence-of-value object.
var None = MontyObject{kind: KindNone}

func NewBool(b bool) MontyObject    { return MontyObject{kind: KindBool, b: b} }
func NewInt(i int64) MontyObject    { return MontyObject{kind: KindInt, i: i} }
func NewFloat(f float64) MontyObject { return MontyObject{kind: KindFloat, f: f} }
func NewStr(s string) MontyObject   { return MontyObject{kind: KindStr, s: s} }
func NewBytes(b []byte) MontyObject {
	cp := make([]byte, len(b))
	copy(cp, b)
	return MontyObject{kind: KindBytes, bytes: cp}
}
func NewRange(size int64) MontyObject { return MontyObject{kind: KindRange, i: size} }

func NewList(items []MontyObject) MontyObject {
	return MontyObject{kind: KindList, items: append([]MontyObject(nil), items...)}
}

func NewTuple(items []MontyObject) MontyObject {
	return MontyObject{kind: KindTuple, items: append([]MontyObject(nil), items...)}
}

func NewDict(entries []DictEntry) MontyObject {
	return MontyObject{kind: KindDict, dict: append([]DictEntry(nil), entries...)}
}

func (o MontyObject) Kind() ObjectKind   { return o.kind }
func (o MontyObject) Bool() bool         { return o.b }
func (o MontyObject) Int() int64         { return o.i }
func (o MontyObject) Float() float64     { return o.f }
func (o MontyObject) Str() string        { return o.s }
func (o MontyObject) Bytes() []byte      { return o.bytes }
func (o MontyObject) Items() []MontyObject { return o.items }
func (o MontyObject) DictEntries() []DictEntry { return o.dict }

func (o MontyObject) String() string {
	switch o.kind {
	case KindNone:
		return "None"
	case KindBool:
		return fmt.Sprintf("%t", o.b)
	case KindInt:
		return fmt.Sprintf("%d", o.i)
	case KindFloat:
		return fmt.Sprintf("%g", o.f)
	case KindStr:
		return o.s
	case KindBytes:
		return fmt.Sprintf("b%q", o.bytes)
	case KindRange:
		return fmt.Sprintf("range(0, %d)", o.i)
	case KindList:
		return joinItems("[", "]", o.items)
	case KindTuple:
		return joinItems("(", ")", o.items)
	case KindDict:
		s := "{"
		for i, e := range o.dict {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s: %s", e.Key, e.Value)
		}
		return s + "}"
	default:
		return "<opaque>"
	}
}

func joinItems(open, shut string, items []MontyObject) string {
	s := open
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += it.String()
	}
	return s + shut
}

// toValue allocates o onto h, returning a value.Value owning whatever heap
// references it needed. Used to push host-supplied arguments and Resume
// replies into a Run's heap.
func toValue(h *value.Heap, o MontyObject) (value.Value, error) {
	switch o.kind {
	case KindNone:
		return value.None, nil
	case KindBool:
		return value.NewBool(o.b), nil
	case KindInt:
		return value.NewInt(o.i), nil
	case KindFloat:
		return value.NewFloat(o.f), nil
	case KindRange:
		return value.NewRange(o.i), nil
	case KindStr:
		return allocRef(h, types.NewStr(o.s))
	case KindBytes:
		return allocRef(h, types.NewBytes(o.bytes))
	case KindList:
		items, err := toValues(h, o.items)
		if err != nil {
			return value.None, err
		}
		return allocRef(h, types.NewList(items))
	case KindTuple:
		items, err := toValues(h, o.items)
		if err != nil {
			return value.None, err
		}
		return allocRef(h, types.NewTuple(items))
	case KindDict:
		d := types.NewDict()
		for _, e := range o.dict {
			k, err := toValue(h, e.Key)
			if err != nil {
				return value.None, err
			}
			v, err := toValue(h, e.Value)
			if err != nil {
				h.DropValue(k)
				return value.None, err
			}
			if err := d.SetItem(h, k, v); err != nil {
				h.DropValue(k)
				return value.None, err
			}
			h.DropValue(k)
		}
		return allocRef(h, d)
	}
	return value.None, excno.Newf(excno.TypeError, "cannot pass an opaque object into a run")
}

func toValues(h *value.Heap, objs []MontyObject) ([]value.Value, error) {
	vs := make([]value.Value, 0, len(objs))
	for _, o := range objs {
		v, err := toValue(h, o)
		if err != nil {
			for _, done := range vs {
				h.DropValue(done)
			}
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func allocRef(h *value.Heap, data value.HeapData) (value.Value, error) {
	id, err := h.Allocate(data)
	if err != nil {
		return value.None, err
	}
	return value.NewRef(id), nil
}

// fromValue reads v (and, transitively, everything it references) off h
// into a heap-independent MontyObject. Cyclic structures are cut short
// with an opaque marker rather than recursing forever, mirroring
// value.ReprValue's visited-set cycle guard.
func fromValue(h *value.Heap, v value.Value) (MontyObject, error) {
	return fromValueVisited(h, v, map[value.HeapId]bool{})
}

func fromValueVisited(h *value.Heap, v value.Value, visited map[value.HeapId]bool) (MontyObject, error) {
	switch v.Kind() {
	case value.KindNone:
		return None, nil
	case value.KindBool:
		return NewBool(v.Bool()), nil
	case value.KindInt:
		return NewInt(v.Int()), nil
	case value.KindFloat:
		return NewFloat(v.Float()), nil
	case value.KindRange:
		return NewRange(v.RangeSize()), nil
	case value.KindRef:
		if visited[v.HeapId()] {
			return MontyObject{kind: KindOpaque}, nil
		}
		data, err := h.Get(v.HeapId())
		if err != nil {
			return MontyObject{}, err
		}
		visited[v.HeapId()] = true
		defer delete(visited, v.HeapId())
		return fromHeapData(h, data, visited)
	}
	return MontyObject{}, excno.Newf(excno.TypeError, "unrepresentable value kind")
}

func fromHeapData(h *value.Heap, data value.HeapData, visited map[value.HeapId]bool) (MontyObject, error) {
	switch d := data.(type) {
	case *types.Str:
		return NewStr(d.Value()), nil
	case *types.Bytes:
		return NewBytes(d.Value()), nil
	case *types.List:
		items, err := fromValueSlice(h, d.Items(), visited)
		if err != nil {
			return MontyObject{}, err
		}
		return NewList(items), nil
	case *types.Tuple:
		items, err := fromValueSlice(h, d.Items(), visited)
		if err != nil {
			return MontyObject{}, err
		}
		return NewTuple(items), nil
	case *types.Dict:
		entries := d.Entries()
		out := make([]DictEntry, 0, len(entries))
		for _, e := range entries {
			k, err := fromValueVisited(h, e.Key, visited)
			if err != nil {
				return MontyObject{}, err
			}
			val, err := fromValueVisited(h, e.Val, visited)
			if err != nil {
				return MontyObject{}, err
			}
			out = append(out, DictEntry{Key: k, Value: val})
		}
		return NewDict(out), nil
	case *excno.Exception:
		return NewStr(d.Error()), nil
	default:
		return MontyObject{kind: KindOpaque}, nil
	}
}

func fromValueSlice(h *value.Heap, vs []value.Value, visited map[value.HeapId]bool) ([]MontyObject, error) {
	out := make([]MontyObject, 0, len(vs))
	for _, v := range vs {
		o, err := fromValueVisited(h, v, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
