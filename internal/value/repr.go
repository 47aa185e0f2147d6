package value

import (
	"fmt"
	"io"
	"strings"
)

// ReprPart is one fragment of an object's repr: either a literal byte
// sequence or a child Value whose own repr is spliced in at that point.
// HeapData.ReprParts returns a flat part list instead of writing children
// itself, so rendering never recurses on the host stack.
type ReprPart struct {
	Lit     string
	Child   Value
	IsChild bool
}

// LitPart builds a literal fragment.
func LitPart(s string) ReprPart { return ReprPart{Lit: s} }

// ChildPart builds a fragment rendered by splicing in v's own repr.
func ChildPart(v Value) ReprPart { return ReprPart{Child: v, IsChild: true} }

const (
	taskChild uint8 = iota
	taskLit
	taskUnmark
)

// reprTask is one unit of rendering work on ReprValue's explicit stack:
// emit a literal, render a child value, or unmark a finished container in
// the visited set.
type reprTask struct {
	kind   uint8
	lit    string
	child  Value
	unmark HeapId
}

// ReprValue writes v's repr to w, resolving Refs through h and breaking
// cycles via visited: a structure already on the rendering path prints as
// an ellipsis marker instead of recursing forever. The whole walk runs on
// an explicit heap-allocated work stack, like Heap.DecRef, so an
// adversarially deep object graph cannot overflow the host stack.
func ReprValue(w io.Writer, h *Heap, v Value, visited map[HeapId]bool) error {
	stack := []reprTask{{kind: taskChild, child: v}}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t.kind {
		case taskLit:
			if _, err := io.WriteString(w, t.lit); err != nil {
				return err
			}
		case taskUnmark:
			delete(visited, t.unmark)
		default: // taskChild
			c := t.child
			if c.kind != KindRef {
				if _, err := io.WriteString(w, c.String()); err != nil {
					return err
				}
				continue
			}
			if visited[c.id] {
				if _, err := io.WriteString(w, "..."); err != nil {
					return err
				}
				continue
			}
			data, err := h.Get(c.id)
			if err != nil {
				if _, werr := fmt.Fprintf(w, "<invalid ref %d>", c.id); werr != nil {
					return werr
				}
				continue
			}
			visited[c.id] = true
			parts := data.ReprParts(h)
			// LIFO: the unmark pops after every part of this container.
			stack = append(stack, reprTask{kind: taskUnmark, unmark: c.id})
			for i := len(parts) - 1; i >= 0; i-- {
				p := parts[i]
				if p.IsChild {
					stack = append(stack, reprTask{kind: taskChild, child: p.Child})
				} else {
					stack = append(stack, reprTask{kind: taskLit, lit: p.Lit})
				}
			}
		}
	}
	return nil
}

// Repr returns v's repr as a string.
func Repr(h *Heap, v Value) string {
	var b strings.Builder
	_ = ReprValue(&b, h, v, map[HeapId]bool{})
	return b.String()
}
