package monty

import (
	"fmt"
	"io"
	"os"
)

// PrintSink is the capability the host supplies for `print(...)` output.
// The sink receives strings in the order the program produces them.
type PrintSink interface {
	Print(s string)
}

// StdPrint writes each call to an io.Writer (os.Stdout by default),
// appending a trailing newline the way a `print` statement's line-oriented
// output is conventionally displayed.
type StdPrint struct {
	W io.Writer
}

// NewStdPrint builds a StdPrint writing to os.Stdout.
func NewStdPrint() *StdPrint { return &StdPrint{W: os.Stdout} }

func (p *StdPrint) Print(s string) {
	w := p.W
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, s)
}

// DiscardPrint silently drops every print call, for a host (or test)
// that doesn't care about a program's stdout.
type DiscardPrint struct{}

func (DiscardPrint) Print(string) {}

// CollectPrint accumulates each print call's string in order, useful for
// tests asserting on a program's output.
type CollectPrint struct {
	Lines []string
}

func (c *CollectPrint) Print(s string) { c.Lines = append(c.Lines, s) }
