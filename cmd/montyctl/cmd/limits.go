package cmd

import (
	"github.com/RayVR/monty"
	"github.com/spf13/cobra"
)

var (
	maxMemory       uint64
	maxAllocations  uint64
	maxInstructions uint64
	maxFrames       int
)

// addLimitFlags registers the --max-* resource-budget flags shared by run
// and watch, one per ResourceLimits dimension.
func addLimitFlags(c *cobra.Command) {
	c.Flags().Uint64Var(&maxMemory, "max-memory", 0, "maximum heap bytes (0 = unbounded)")
	c.Flags().Uint64Var(&maxAllocations, "max-allocations", 0, "maximum allocation count (0 = unbounded)")
	c.Flags().Uint64Var(&maxInstructions, "max-instructions", 0, "maximum instruction budget (0 = unbounded)")
	c.Flags().IntVar(&maxFrames, "max-frames", 0, "maximum recursion depth (0 = unbounded)")
}

func trackerFromFlags() monty.Tracker {
	if maxMemory == 0 && maxAllocations == 0 && maxInstructions == 0 && maxFrames == 0 {
		return monty.Unlimited()
	}
	return monty.Limited(monty.ResourceLimits{
		MaxMemory:       uintptr(maxMemory),
		MaxAllocations:  maxAllocations,
		MaxInstructions: maxInstructions,
		MaxFrames:       maxFrames,
	})
}
