package types

import (
	"fmt"
	"unicode/utf8"

	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/value"
)

// Str is Monty's immutable string type, indexed by rune position rather
// than byte offset.
type Str struct {
	runes []rune
}

// NewStr builds a Str from a Go string.
func NewStr(s string) *Str { return &Str{runes: []rune(s)} }

// Value returns the underlying Go string.
func (s *Str) Value() string { return string(s.runes) }

func (s *Str) Type() value.TypeTag   { return value.TypeStr }
func (s *Str) EstimateSize() uintptr { return uintptr(16 + len(s.runes)*utf8.UTFMax) }
func (s *Str) Len() (int, bool)      { return len(s.runes), true }

func (s *Str) GetItem(h *value.Heap, key value.Value) (value.Value, error) {
	idx, err := normalizeIndex(key, len(s.runes), "string")
	if err != nil {
		return value.None, err
	}
	id, err := h.Allocate(NewStr(string(s.runes[idx])))
	if err != nil {
		return value.None, err
	}
	return value.NewRef(id), nil
}

func (s *Str) SetItem(h *value.Heap, key, val value.Value) error {
	return excno.Newf(excno.TypeError, "'str' object does not support item assignment")
}

func (s *Str) DelItem(h *value.Heap, key value.Value) error {
	return excno.Newf(excno.TypeError, "'str' object doesn't support item deletion")
}

// strIterator walks a Str's runes one at a time.
type strIterator struct {
	runes []rune
	pos   int
}

func (it *strIterator) Next(h *value.Heap) (value.Value, bool, error) {
	if it.pos >= len(it.runes) {
		return value.None, false, nil
	}
	r := it.runes[it.pos]
	it.pos++
	id, err := h.Allocate(NewStr(string(r)))
	if err != nil {
		return value.None, false, err
	}
	return value.NewRef(id), true, nil
}

func (s *Str) Iter(h *value.Heap) (value.Iterator, error) {
	return &strIterator{runes: s.runes}, nil
}

func (s *Str) Eq(h *value.Heap, other value.HeapData, pending *[]value.ValuePair) bool {
	os, ok := other.(*Str)
	return ok && s.Value() == os.Value()
}

func (s *Str) Bool(h *value.Heap) bool { return len(s.runes) > 0 }

func (s *Str) ReprParts(h *value.Heap) []value.ReprPart {
	return []value.ReprPart{value.LitPart(fmt.Sprintf("%q", s.Value()))}
}

func (s *Str) CallAttr(h *value.Heap, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "upper":
		id, err := h.Allocate(NewStr(upperASCIIAware(s.runes)))
		if err != nil {
			return value.None, err
		}
		return value.NewRef(id), nil
	case "lower":
		id, err := h.Allocate(NewStr(lowerASCIIAware(s.runes)))
		if err != nil {
			return value.None, err
		}
		return value.NewRef(id), nil
	default:
		return value.None, excno.Newf(excno.AttributeError, "'str' object has no attribute '%s'", name)
	}
}

func (s *Str) DecRefChildren(stack *[]value.HeapId) {}
func (s *Str) ContainsRefs() bool                   { return false }

func upperASCIIAware(runes []rune) string {
	out := make([]rune, len(runes))
	for i, r := range runes {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out[i] = r
	}
	return string(out)
}

func lowerASCIIAware(runes []rune) string {
	out := make([]rune, len(runes))
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out[i] = r
	}
	return string(out)
}

// Concat returns a new Str containing s followed by other's runes.
func (s *Str) Concat(other *Str) *Str {
	combined := make([]rune, 0, len(s.runes)+len(other.runes))
	combined = append(combined, s.runes...)
	combined = append(combined, other.runes...)
	return &Str{runes: combined}
}

// Repeat returns a new Str containing s repeated n times (n<=0 yields "").
func (s *Str) Repeat(n int64) *Str {
	if n <= 0 {
		return &Str{}
	}
	out := make([]rune, 0, int64(len(s.runes))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, s.runes...)
	}
	return &Str{runes: out}
}
