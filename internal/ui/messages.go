package ui

import (
	"time"

	"appupdater/internal/update"

	tea "github.com/charmbracelet/bubbletea"
)

// toastDuration is how long copy and error toasts stay visible.
const toastDuration = 3 * time.Second

// stateMsg carries one value from the updater's state stream. ok is false
// once the stream has closed.
type stateMsg struct {
	state update.State
	ok    bool
}

// opDoneMsg reports that a blocking updater call returned.
type opDoneMsg struct {
	op      operation
	release *update.Release
	path    string
	ok      bool
}

type toastTickMsg struct{}

func scheduleToastTick() tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

func waitForState(ch <-chan update.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		return stateMsg{state: s, ok: ok}
	}
}
