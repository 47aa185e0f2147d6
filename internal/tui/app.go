package tui

import (
	"fmt"
	"strings"

	"github.com/RayVR/monty"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxPrintLines = 8

type snapshotMsg Snapshot

// Model is montyctl watch's bubbletea model.
type Model struct {
	snapshots <-chan Snapshot
	current   Snapshot
	keys      KeyMap
	help      help.Model

	width, height int
	paused        bool
	quitting      bool
}

// NewModel builds a Model that reads driven Snapshots off snapshots (see
// Drive).
func NewModel(snapshots <-chan Snapshot) *Model {
	return &Model{
		snapshots: snapshots,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
}

func (m *Model) Init() tea.Cmd {
	return waitForSnapshot(m.snapshots)
}

func waitForSnapshot(ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return snapshotMsg{Done: true}
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		}

	case snapshotMsg:
		m.current = Snapshot(msg)
		if m.current.Done {
			return m, tea.Quit
		}
		return m, waitForSnapshot(m.snapshots)
	}
	return m, nil
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	header := TitleStyle.Render(fmt.Sprintf("montyctl watch | step %d", m.current.Step))
	frameLine := TextStyle.Render("frame: ") + InfoStyle.Render(m.current.Frame)

	var body strings.Builder
	body.WriteString(header + "\n")
	body.WriteString(frameLine + "\n\n")

	if m.current.Done {
		if m.current.Err != "" {
			body.WriteString(CriticalStyle.Render("exception: "+m.current.Err) + "\n")
		} else {
			body.WriteString(GoodStyle.Render("result: "+m.current.Result) + "\n")
		}
	} else if m.current.Pending != "" {
		body.WriteString(WarningStyle.Render("suspended: "+m.current.Pending) + "\n")
	}
	body.WriteString("\n")

	body.WriteString(TitleStyle.Render("budget") + "\n")
	body.WriteString(renderGauges(statsToGauges(m.current.Stats)) + "\n\n")

	body.WriteString(TitleStyle.Render("output") + "\n")
	body.WriteString(renderPrintTail(m.current.Prints) + "\n")

	box := BoxStyle.Width(max(40, m.width-4)).Render(body.String())
	helpView := HelpBarStyle.Render(m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, box, helpView)
}

func statsToGauges(s monty.Stats) []gauge {
	return []gauge{
		{Label: "memory", Value: uint64(s.Memory), Limit: uint64(s.Limits.MaxMemory)},
		{Label: "allocations", Value: s.Allocations, Limit: s.Limits.MaxAllocations},
		{Label: "instructions", Value: s.Instructions, Limit: s.Limits.MaxInstructions},
		{Label: "frame depth", Value: uint64(s.FrameDepth), Limit: uint64(s.Limits.MaxFrames)},
		{Label: "heap live", Value: uint64(s.HeapLive), Limit: 0},
	}
}

func renderPrintTail(lines []string) string {
	if len(lines) == 0 {
		return MutedStyle.Render("(no output yet)")
	}
	start := 0
	if len(lines) > maxPrintLines {
		start = len(lines) - maxPrintLines
	}
	return TextStyle.Render(strings.Join(lines[start:], "\n"))
}
