// Package ui renders an Updater's lifecycle as an interactive terminal
// screen. The screen never computes state itself: it subscribes to the
// updater and re-renders on every published value.
package ui

import (
	"context"
	"fmt"
	"time"

	"appupdater/internal/debug"
	"appupdater/internal/update"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

var logf = debug.For("ui")

const (
	defaultWidth     = 80
	maxProgressWidth = 60
)

type operation int

const (
	opCheck operation = iota
	opDownload
	opInstall
)

func (o operation) String() string {
	switch o {
	case opCheck:
		return "check"
	case opDownload:
		return "download"
	case opInstall:
		return "install"
	default:
		return "unknown"
	}
}

// Updater is the part of *update.Updater the screen drives.
type Updater interface {
	CurrentVersion() string
	State() update.State
	Subscribe() (<-chan update.State, func())
	Check(ctx context.Context) *update.Release
	Download(ctx context.Context) (string, bool)
	Install(path string) bool
	Reset()
}

// Model is the bubbletea model of the update screen.
type Model struct {
	updater Updater
	keys    KeyMap

	ctx       context.Context
	cancelOps context.CancelFunc
	states    <-chan update.State
	unsub     func()

	spinner  spinner.Model
	progress progress.Model

	state     update.State
	available update.UpdateAvailable // last offered update, kept through the download
	busy      bool
	channel   string

	checkOnStart   bool
	markdownFormat string
	renderMarkdown func(string) string
	copy           func(string) error
	onCheck        func(update.State)
	onDownload     func(update.UpdateAvailable, string)

	toast      string
	toastErr   bool
	toastStart time.Time
	now        func() time.Time

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithContext bounds every updater call started from the screen.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithCheckOnStart starts a check as soon as the program runs.
func WithCheckOnStart(enabled bool) Option {
	return func(m *Model) { m.checkOnStart = enabled }
}

// WithChannel sets the "owner/repo" label shown in the header.
func WithChannel(label string) Option {
	return func(m *Model) { m.channel = label }
}

// WithMarkdownStyle selects the changelog style: auto, dark, light, or plain.
func WithMarkdownStyle(format string) Option {
	return func(m *Model) { m.markdownFormat = format }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copy = write
		}
	}
}

// WithOnCheck registers a callback run with the final state of every check.
func WithOnCheck(fn func(update.State)) Option {
	return func(m *Model) { m.onCheck = fn }
}

// WithOnDownload registers a callback run after every successful download.
func WithOnDownload(fn func(update.UpdateAvailable, string)) Option {
	return func(m *Model) { m.onDownload = fn }
}

// WithKeyMap overrides the default key bindings.
func WithKeyMap(km KeyMap) Option {
	return func(m *Model) { m.keys = km }
}

// New creates the screen for u and subscribes to its state stream. Call
// Close when the program has exited.
func New(u Updater, opts ...Option) *Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = styleSpinner

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(maxProgressWidth),
	)

	m := &Model{
		updater:        u,
		keys:           DefaultKeyMap(),
		ctx:            context.Background(),
		spinner:        s,
		progress:       p,
		markdownFormat: "auto",
		copy:           clipboard.WriteAll,
		now:            time.Now,
		width:          defaultWidth,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancelOps = context.WithCancel(m.ctx)
	m.states, m.unsub = u.Subscribe()
	m.state = u.State()
	m.resize(m.width, m.height)
	return m
}

// Close cancels in-flight operations and ends the subscription.
func (m *Model) Close() {
	m.cancelOps()
	m.unsub()
}

// State returns the last state the screen rendered.
func (m *Model) State() update.State { return m.state }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForState(m.states)}
	if m.checkOnStart {
		cmds = append(cmds, m.run(opCheck))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case stateMsg:
		if !msg.ok {
			return m, nil
		}
		m.state = msg.state
		if avail, ok := msg.state.(update.UpdateAvailable); ok {
			m.available = avail
		}
		return m, waitForState(m.states)

	case opDoneMsg:
		return m, m.finish(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastTickMsg:
		if m.toast != "" && m.now().Sub(m.toastStart) >= toastDuration {
			m.toast = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	kind := m.state.Kind()
	switch {
	case key.Matches(msg, m.keys.Download) && kind == update.KindUpdateAvailable:
		return m, m.run(opDownload)
	case key.Matches(msg, m.keys.Install) && kind == update.KindReadyToInstall:
		return m, m.run(opInstall)
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyTarget()
	case key.Matches(msg, m.keys.Recheck):
		return m, m.run(opCheck)
	case key.Matches(msg, m.keys.Reset) && kind != update.KindIdle:
		m.updater.Reset()
		m.available = update.UpdateAvailable{}
	}
	return m, nil
}

// run starts op on the updater off the UI goroutine. State changes arrive
// through the subscription; the returned message only clears busy.
func (m *Model) run(op operation) tea.Cmd {
	m.busy = true
	u, ctx := m.updater, m.ctx
	logf("start %s", op)
	switch op {
	case opCheck:
		return func() tea.Msg {
			r := u.Check(ctx)
			return opDoneMsg{op: op, release: r, ok: r != nil}
		}
	case opDownload:
		return func() tea.Msg {
			path, ok := u.Download(ctx)
			return opDoneMsg{op: op, path: path, ok: ok}
		}
	case opInstall:
		return func() tea.Msg {
			return opDoneMsg{op: op, ok: u.Install("")}
		}
	}
	m.busy = false
	return nil
}

func (m *Model) finish(msg opDoneMsg) tea.Cmd {
	m.busy = false
	logf("%s done ok=%v", msg.op, msg.ok)
	switch msg.op {
	case opCheck:
		if m.onCheck != nil {
			m.onCheck(m.updater.State())
		}
	case opDownload:
		if msg.ok && m.onDownload != nil {
			m.onDownload(m.available, msg.path)
		}
	case opInstall:
		if msg.ok {
			return m.showToast("Installer launched.", false)
		}
	}
	return nil
}

// copyTarget copies the download URL of an offered update, or the local
// path of a downloaded one.
func (m *Model) copyTarget() tea.Cmd {
	var text string
	switch s := m.state.(type) {
	case update.UpdateAvailable:
		text = s.Asset.DownloadURL
	case update.ReadyToInstall:
		text = s.Path
	default:
		return nil
	}
	if err := m.copy(text); err != nil {
		return m.showToast(fmt.Sprintf("Copy failed: %v", err), true)
	}
	return m.showToast(fmt.Sprintf("Copied '%s' to clipboard.", text), false)
}

func (m *Model) showToast(text string, isErr bool) tea.Cmd {
	m.toast = text
	m.toastErr = isErr
	m.toastStart = m.now()
	return scheduleToastTick()
}

func (m *Model) resize(width, height int) {
	if width <= 0 {
		width = defaultWidth
	}
	m.width, m.height = width, height
	m.progress.Width = min(max(width-8, 10), maxProgressWidth)
	m.renderMarkdown = buildMarkdownRenderer(m.markdownFormat, max(m.contentWidth()-4, 20))
}

func (m *Model) contentWidth() int {
	return max(m.width-4, 20)
}
