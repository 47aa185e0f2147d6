package cmd

import (
	"fmt"
	"os"

	"github.com/RayVR/monty"
	"github.com/spf13/cobra"
)

var (
	runExternal []string
	runDumpPath string
)

var runCmd = &cobra.Command{
	Use:   "run (FILE|-)",
	Short: "Execute a Monty script to completion",
	Long: `run compiles and executes a script against a fresh heap with no
suspension support: a program that reaches an external/OS call or a
module-level yield fails rather than pausing. With --dump, a suspended
run is instead serialized to the given path for a later "inspect". Use
"watch" for a script whose suspensions should be answered live.`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		source, filename, err := readSource(args[0])
		if err != nil {
			return err
		}

		run, cerr := monty.New(source, filename, runExternal)
		if cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
			os.Exit(monty.ExitCompileError)
		}

		if runDumpPath != "" {
			return runWithDump(run)
		}

		result, exc := run.Run(nil, trackerFromFlags(), monty.NewStdPrint())
		if exc != nil {
			fmt.Fprintln(os.Stderr, exc)
			if exc.Traceback != "" {
				fmt.Fprintln(os.Stderr, exc.Traceback)
			}
			if monty.IsResourceExhausted(exc) {
				os.Exit(monty.ExitResourceExhausted)
			}
			os.Exit(monty.ExitUncaughtException)
		}

		fmt.Println(result)
		os.Exit(monty.ExitOK)
		return nil
	},
}

// runWithDump starts the script in suspendable mode: a completed run prints
// its result as usual, a suspended one is serialized to --dump's path so
// "inspect" can pick it up later.
func runWithDump(run *monty.Run) error {
	prog, exc := run.Start(nil, trackerFromFlags(), monty.NewStdPrint())
	if exc != nil {
		fmt.Fprintln(os.Stderr, exc)
		if exc.Traceback != "" {
			fmt.Fprintln(os.Stderr, exc.Traceback)
		}
		if monty.IsResourceExhausted(exc) {
			os.Exit(monty.ExitResourceExhausted)
		}
		os.Exit(monty.ExitUncaughtException)
	}
	if prog.Done() {
		result, _ := prog.Result()
		fmt.Println(result)
		os.Exit(monty.ExitOK)
	}

	b, err := prog.Dump()
	if err != nil {
		return err
	}
	if err := os.WriteFile(runDumpPath, b, 0o644); err != nil {
		return err
	}
	name, _, _, callID, _ := prog.Pending()
	fmt.Fprintf(os.Stderr, "suspended on %s (call id %d); snapshot written to %s\n", name, callID, runDumpPath)
	os.Exit(monty.ExitOK)
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	addLimitFlags(runCmd)
	runCmd.Flags().StringSliceVar(&runExternal, "external", nil, "names that suspend with a FunctionCall instead of raising NameError")
	runCmd.Flags().StringVar(&runDumpPath, "dump", "", "write a suspended run's snapshot to this path instead of failing")
}
