package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "montyctl",
	Short: "Run and inspect Monty programs",
	Long: `montyctl compiles Monty source and executes it against the sandboxed
interpreter: "run" executes a script to completion, "watch" drives it
through a live terminal view of its frame, heap, and resource budget, and
"inspect" loads a snapshot a previous "run --dump" wrote and resumes it.`,
}

// Execute runs the root command, exiting the process with status 1 on a
// CLI-level error (flag parsing, missing file, and the like; a Monty
// program's own exit code is set explicitly by each subcommand).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetRootCmd exposes the root command for shell-completion generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}
