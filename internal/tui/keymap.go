package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines montyctl watch's key bindings.
type KeyMap struct {
	Quit  key.Binding
	Help  key.Binding
	Pause key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Help, k.Quit},
	}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Pause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
	}
}
