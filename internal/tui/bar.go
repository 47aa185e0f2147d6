package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Constants for the horizontal budget gauges.
const (
	gaugeLabelWidth = 12
	gaugeAreaWidth  = 24
	filledChar      = "█"
	emptyChar       = "▱"
)

// gauge is a single resource-budget bar: value/limit when limit is bounded,
// a raw counter display otherwise.
type gauge struct {
	Label string
	Value uint64
	Limit uint64 // 0 means unbounded
}

func renderGauge(g gauge) string {
	if g.Limit == 0 {
		return fmt.Sprintf("%-*s %d (unbounded)", gaugeLabelWidth, g.Label, g.Value)
	}
	frac := float64(g.Value) / float64(g.Limit)
	if frac > 1 {
		frac = 1
	}
	filledWidth := int(frac * float64(gaugeAreaWidth))
	if filledWidth < 0 {
		filledWidth = 0
	}
	emptyWidth := gaugeAreaWidth - filledWidth
	bar := strings.Repeat(filledChar, filledWidth) + strings.Repeat(emptyChar, emptyWidth)
	styled := gaugeStyle(frac).Render(bar)
	return fmt.Sprintf("%-*s │%s│ %d/%d (%4.1f%%)",
		gaugeLabelWidth, g.Label, styled, g.Value, g.Limit, frac*100)
}

func renderGauges(gs []gauge) string {
	lines := make([]string, len(gs))
	for i, g := range gs {
		lines[i] = renderGauge(g)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
