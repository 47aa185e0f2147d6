package intern

import "testing"

func TestInternDedupes(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("upper")
	b := tab.Intern("lower")
	if a == b {
		t.Fatalf("distinct strings got the same id %d", a)
	}
	if got := tab.Intern("upper"); got != a {
		t.Fatalf("re-interning = %d, want the original id %d", got, a)
	}
	if tab.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tab.Len())
	}
}

func TestLookupOutOfRange(t *testing.T) {
	tab := NewTable()
	tab.Intern("x")
	if _, ok := tab.Lookup(StringId(5)); ok {
		t.Fatal("out-of-range id must report ok=false")
	}
	s, ok := tab.Lookup(StringId(0))
	if !ok || s != "x" {
		t.Fatalf("Lookup(0) = %q, %t, want \"x\", true", s, ok)
	}
}

// A table rebuilt from a snapshot's string list assigns the same ids by
// position.
func TestFromStringsRoundTrip(t *testing.T) {
	tab := NewTable()
	tab.Intern("a")
	tab.Intern("b")
	tab.Intern("c")

	restored := FromStrings(tab.All())
	if restored.Len() != tab.Len() {
		t.Fatalf("restored Len() = %d, want %d", restored.Len(), tab.Len())
	}
	for id := StringId(0); int(id) < tab.Len(); id++ {
		want, _ := tab.Lookup(id)
		got, ok := restored.Lookup(id)
		if !ok || got != want {
			t.Fatalf("restored Lookup(%d) = %q, want %q", id, got, want)
		}
	}
	if got := restored.Intern("b"); got != 1 {
		t.Fatalf("restored Intern(\"b\") = %d, want 1", got)
	}
}

func TestAllReturnsACopy(t *testing.T) {
	tab := NewTable()
	tab.Intern("a")
	all := tab.All()
	all[0] = "mutated"
	if s, _ := tab.Lookup(0); s != "a" {
		t.Fatal("mutating All()'s result must not affect the table")
	}
}
