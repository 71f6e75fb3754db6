package ui

import (
	"appupdater/internal/update"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keyboard shortcuts of the update screen.
type KeyMap struct {
	Download key.Binding
	Install  key.Binding
	Copy     key.Binding
	Recheck  key.Binding
	Reset    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Install: key.NewBinding(
			key.WithKeys("i", "enter"),
			key.WithHelp("i", "install"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		Recheck: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "check"),
		),
		Reset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// available returns the bindings that act in state kind k while no
// operation is running.
func (km KeyMap) available(k update.Kind, busy bool) []key.Binding {
	if busy {
		return []key.Binding{km.Quit}
	}
	var out []key.Binding
	switch k {
	case update.KindUpdateAvailable:
		out = append(out, km.Download, km.Copy)
	case update.KindReadyToInstall:
		out = append(out, km.Install, km.Copy)
	}
	out = append(out, km.Recheck)
	if k != update.KindIdle {
		out = append(out, km.Reset)
	}
	return append(out, km.Quit)
}
