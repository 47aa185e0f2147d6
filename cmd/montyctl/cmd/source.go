package cmd

import (
	"io"
	"os"
)

// readSource loads a script's text and reports the filename to embed in
// compile errors and tracebacks; "-" reads from stdin.
func readSource(path string) (source, filename string, err error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}
		return string(b), "<stdin>", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(b), path, nil
}
