package cmd

import (
	"fmt"
	"os"

	"github.com/RayVR/monty"
	"github.com/RayVR/monty/internal/tui"
	"github.com/spf13/cobra"
)

var inspectSummary bool

var inspectCmd = &cobra.Command{
	Use:   "inspect SNAPSHOT",
	Short: "Load a dumped run and resume it in a live terminal view",
	Long: `inspect loads a snapshot written by "run --dump" and resumes it
through the same live view "watch" uses, auto-answering every pending
external/OS call or yield with None. With --summary it instead prints the
pending suspension and resource counters and exits without resuming.`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		prints := &monty.CollectPrint{}
		prog, err := monty.LoadProgressWithPrint(b, prints)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(monty.ExitUncaughtException)
		}

		if inspectSummary {
			printSummary(prog)
			os.Exit(monty.ExitOK)
		}
		return tui.Watch(prog, prints)
	},
}

func printSummary(prog *monty.RunProgress) {
	name, callArgs, kwargs, callID, ok := prog.Pending()
	if ok {
		fmt.Printf("pending: %s (kind %s, call id %d)\n", name, prog.ExitKind(), callID)
		for i, a := range callArgs {
			fmt.Printf("  arg[%d] = %s\n", i, a)
		}
		for _, kw := range kwargs {
			fmt.Printf("  %s = %s\n", kw.Name, kw.Value)
		}
	}
	st := prog.Stats()
	fmt.Printf("frame: %s\n", prog.FrameName())
	fmt.Printf("heap: %d live objects, refcount sum %d\n", st.HeapLive, st.HeapRefSum)
	zero := monty.ResourceLimits{}
	if st.Limits != zero {
		fmt.Printf("budget: %d bytes, %d allocations, %d instructions, depth %d\n",
			st.Memory, st.Allocations, st.Instructions, st.FrameDepth)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectSummary, "summary", false, "print the pending suspension and counters instead of resuming")
}
