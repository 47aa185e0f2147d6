package monty

import "github.com/RayVR/monty/internal/limits"

// Tracker is the pluggable resource-accounting sink charged for every
// memory allocation, heap allocation, dispatched instruction, and call
// frame a run consumes. Aliased from internal/limits so a
// host embedding this module never needs to import an internal package
// itself.
type Tracker = limits.Tracker

// ResourceLimits bounds a Limited tracker; a zero field means "unbounded"
// for that dimension.
type ResourceLimits = limits.ResourceLimits

// Unlimited never rejects a charge.
func Unlimited() Tracker { return limits.Unlimited{} }

// Limited enforces rl against running totals, returning the typed
// MemoryError/AllocationError/RecursionError exception (or the internal
// RuntimeError diagnostic for an exhausted instruction budget) the moment
// any dimension would be exceeded.
func Limited(rl ResourceLimits) Tracker { return limits.NewLimited(rl) }
