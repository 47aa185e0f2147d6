// Package intern provides the per-run interned string table used for
// attribute names, dict string keys, and free-variable lookups. Locals are
// never interned; the compiler resolves those to dense namespace indices.
package intern

// StringId is a dense index into a Table's string slice.
type StringId uint32

// Table is a bidirectional string<->StringId map. It is part of a run's
// snapshot payload, since a resumed run must resolve the same names to the
// same ids it used before suspension.
type Table struct {
	strings []string
	ids     map[string]StringId
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{ids: map[string]StringId{}}
}

// Intern returns the StringId for s, assigning a fresh one if s is new.
func (t *Table) Intern(s string) StringId {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := StringId(len(t.strings))
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id
}

// Lookup returns the string for id, or ok=false if id is out of range.
func (t *Table) Lookup(id StringId) (string, bool) {
	if int(id) < 0 || int(id) >= len(t.strings) {
		return "", false
	}
	return t.strings[id], true
}

// Len returns the number of interned strings.
func (t *Table) Len() int { return len(t.strings) }

// All returns the interned strings in id order, for snapshot encoding.
func (t *Table) All() []string {
	out := make([]string, len(t.strings))
	copy(out, t.strings)
	return out
}

// FromStrings rebuilds a Table from an ordered string list, as decoded from
// a snapshot; ids are assigned by position.
func FromStrings(strs []string) *Table {
	t := NewTable()
	for _, s := range strs {
		t.Intern(s)
	}
	return t
}
