package compile

import (
	"testing"

	"github.com/RayVR/monty/internal/ast"
)

// Resolve must populate Program.Interns and assign every EAttr node's
// AttrID against it, so a method call's receiver name round-trips through
// the interned table instead of only ever existing as a bare string.
func TestResolveInternsAttributeNames(t *testing.T) {
	prog, err := ParseProgram(`"hi".upper()`, "t.mt", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if prog.Interns == nil {
		t.Fatal("Program.Interns is nil after Resolve")
	}
	if prog.Interns.Len() == 0 {
		t.Fatal("expected at least one interned name")
	}

	if len(prog.Top) == 0 || prog.Top[0].Expr == nil {
		t.Fatal("expected a top-level expression statement")
	}
	call := prog.Top[0].Expr
	if call.Kind != ast.ECall || call.Callee.Kind != ast.EAttr {
		t.Fatalf("got expr kind %v/%v, want ECall over EAttr", call.Kind, call.Callee.Kind)
	}
	name, ok := prog.Interns.Lookup(call.Callee.AttrID)
	if !ok {
		t.Fatal("Callee.AttrID does not resolve in Program.Interns")
	}
	if name != "upper" {
		t.Fatalf("got %q, want %q", name, "upper")
	}
}

// An attribute assignment target is interned the same way a read-side
// EAttr is, via TargetAttr/TargetAttrID on the NAssign node.
func TestResolveInternsAssignmentTargetAttribute(t *testing.T) {
	prog, err := ParseProgram("x=1\nx.field = 2", "t2.mt", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var found *ast.Node
	for i := range prog.Top {
		if prog.Top[i].Kind == ast.NAssign && prog.Top[i].TargetAttr == "field" {
			found = &prog.Top[i]
		}
	}
	if found == nil {
		t.Fatal("expected an NAssign node targeting attribute 'field'")
	}
	name, ok := prog.Interns.Lookup(found.TargetAttrID)
	if !ok || name != "field" {
		t.Fatalf("TargetAttrID = %v (resolved %q, ok=%v), want it to resolve to %q", found.TargetAttrID, name, ok, "field")
	}
}

// Two occurrences of the same attribute name share one interned id rather
// than each allocating a fresh one.
func TestResolveInternsDeduplicateRepeatedAttribute(t *testing.T) {
	prog, err := ParseProgram(`"a".upper()
"b".upper()`, "t3.mt", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	first := prog.Top[0].Expr.Callee.AttrID
	second := prog.Top[1].Expr.Callee.AttrID
	if first != second {
		t.Fatalf("got distinct ids %v and %v for the same attribute name, want equal", first, second)
	}
}
