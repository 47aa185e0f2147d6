package tui

import (
	"fmt"

	"github.com/RayVR/monty"
	tea "github.com/charmbracelet/bubbletea"
)

// Watch drives prog to completion (auto-answering suspensions, see Drive)
// while rendering its progress live.
func Watch(prog *monty.RunProgress, prints *monty.CollectPrint) error {
	snapshots := make(chan Snapshot)
	go Drive(prog, prints, snapshots)

	p := tea.NewProgram(NewModel(snapshots), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("montyctl watch: %w", err)
	}
	return nil
}
