// Command montyctl compiles and runs Monty scripts against the sandboxed
// interpreter, with an optional live TUI for
// watching a suspended run's frame, heap, and budget.
package main

import "github.com/RayVR/monty/cmd/montyctl/cmd"

func main() {
	cmd.Execute()
}
