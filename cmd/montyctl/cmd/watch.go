package cmd

import (
	"fmt"
	"os"

	"github.com/RayVR/monty"
	"github.com/RayVR/monty/internal/tui"
	"github.com/spf13/cobra"
)

var watchExternal []string

var watchCmd = &cobra.Command{
	Use:   "watch (FILE|-)",
	Short: "Run a Monty script in a live terminal view",
	Long: `watch starts a script and drives it to completion through a
bubbletea view of its current frame, heap, and resource budget, auto-
answering every external/OS call or yield with None. It is an
observability demo, not a general embedding harness: a real host
implements its own Resume loop against Run.Start (see the monty package).`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		source, filename, err := readSource(args[0])
		if err != nil {
			return err
		}

		run, cerr := monty.New(source, filename, watchExternal)
		if cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
			os.Exit(monty.ExitCompileError)
		}

		prints := &monty.CollectPrint{}
		prog, exc := run.Start(nil, trackerFromFlags(), prints)
		if exc != nil {
			fmt.Fprintln(os.Stderr, exc)
			os.Exit(monty.ExitUncaughtException)
		}

		return tui.Watch(prog, prints)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addLimitFlags(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchExternal, "external", nil, "names that suspend with a FunctionCall instead of raising NameError")
}
