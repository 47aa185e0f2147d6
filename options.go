package monty

import (
	"io"
	"os"

	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/compile"
)

// Options configures compilation beyond New's positional parameters. The
// zero value is valid.
type Options struct {
	// ExternalNames lists the identifiers that, when called, suspend the
	// run with a FunctionCall exit instead of raising NameError.
	ExternalNames []string

	// DebugAST, when non-nil, receives an outline of the compiled node
	// tree after a successful compile. When nil, setting the
	// MONTY_AST_DEBUG environment variable routes the same outline to
	// stderr.
	DebugAST io.Writer
}

// NewWithOptions is New with the full option set.
func NewWithOptions(source, filename string, opts Options) (*Run, *CompileError) {
	prog, err := compile.ParseProgram(source, filename, opts.ExternalNames)
	if err != nil {
		return nil, newCompileError(filename, err)
	}
	if w := astDebugWriter(opts); w != nil {
		ast.Fprint(w, prog)
	}
	return &Run{prog: prog, source: source, filename: filename, externalNames: opts.ExternalNames}, nil
}

func astDebugWriter(opts Options) io.Writer {
	if opts.DebugAST != nil {
		return opts.DebugAST
	}
	if os.Getenv("MONTY_AST_DEBUG") != "" {
		return os.Stderr
	}
	return nil
}
