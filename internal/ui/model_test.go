package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"appupdater/internal/update"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// fakeUpdater publishes scripted states through a real StateCell.
type fakeUpdater struct {
	cell *update.StateCell

	mu        sync.Mutex
	checks    int
	downloads int
	installs  int
	resets    int

	checkResult    update.State
	downloadPath   string
	installSucceed bool
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{cell: update.NewStateCell(update.Idle{}), installSucceed: true}
}

func (f *fakeUpdater) CurrentVersion() string { return "0.2.0" }
func (f *fakeUpdater) State() update.State    { return f.cell.Current() }
func (f *fakeUpdater) Subscribe() (<-chan update.State, func()) {
	return f.cell.Subscribe()
}

func (f *fakeUpdater) Check(context.Context) *update.Release {
	f.mu.Lock()
	f.checks++
	f.mu.Unlock()
	f.cell.Set(update.Checking{})
	result := f.checkResult
	if result == nil {
		result = update.UpToDate{}
	}
	f.cell.Set(result)
	if avail, ok := result.(update.UpdateAvailable); ok {
		return &avail.Release
	}
	return nil
}

func (f *fakeUpdater) Download(context.Context) (string, bool) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	f.cell.Set(update.ReadyToInstall{Path: f.downloadPath})
	return f.downloadPath, true
}

func (f *fakeUpdater) Install(string) bool {
	f.mu.Lock()
	f.installs++
	f.mu.Unlock()
	return f.installSucceed
}

func (f *fakeUpdater) Reset() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
	f.cell.Set(update.Idle{})
}

func sampleAvailable() update.UpdateAvailable {
	return update.UpdateAvailable{
		Release: update.Release{
			Tag:         "v0.3.1",
			Version:     "0.3.1",
			Changelog:   "Tap the floating overlay button",
			PublishedAt: "2026-02-18T10:00:00Z",
		},
		Asset: update.ReleaseAsset{
			Name:        "app-debug.apk",
			DownloadURL: "https://github.com/test/repo/releases/download/v0.3.1/app-debug.apk",
			Size:        20971520,
		},
	}
}

func newTestModel(t *testing.T, f *fakeUpdater, opts ...Option) *Model {
	t.Helper()
	opts = append([]Option{WithMarkdownStyle("plain")}, opts...)
	m := New(f, opts...)
	t.Cleanup(m.Close)
	return m
}

// setState feeds s to the model the way the subscription would.
func setState(m *Model, s update.State) {
	_, _ = m.Update(stateMsg{state: s, ok: true})
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// runCmd executes cmd and feeds its message back into the model.
func runCmd(t *testing.T, m *Model, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	_, _ = m.Update(msg)
	return msg
}

func TestNewStartsFromUpdaterState(t *testing.T) {
	f := newFakeUpdater()
	f.cell.Set(update.UpToDate{})
	m := newTestModel(t, f)

	if m.State().Kind() != update.KindUpToDate {
		t.Errorf("State() = %s, want up-to-date", m.State().Kind())
	}
	if f.cell.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", f.cell.Subscribers())
	}
}

func TestViewRendersEachState(t *testing.T) {
	tests := []struct {
		name  string
		state update.State
		want  []string
	}{
		{"idle", update.Idle{}, []string{"Press r to check", "current v0.2.0"}},
		{"checking", update.Checking{}, []string{"Checking for updates"}},
		{"up to date", update.UpToDate{}, []string{"up to date", "v0.2.0"}},
		{"available", sampleAvailable(), []string{"Update available: v0.3.1", "app-debug.apk", "20 MiB", "Tap the floating overlay button"}},
		{"downloading", update.Downloading{Progress: 0.5, BytesDone: 10485760, BytesTotal: 20971520}, []string{"Downloading", "10 MiB / 20 MiB"}},
		{"downloading unknown total", update.Downloading{BytesDone: 2048}, []string{"2.0 KiB received"}},
		{"ready", update.ReadyToInstall{Path: "/tmp/app-debug.apk"}, []string{"Download complete", "/tmp/app-debug.apk", "Press i to install"}},
		{"failure", update.Failure{Message: "Failed to check for updates: network request failed"}, []string{"Update failed", "network request failed", "try again"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, newFakeUpdater(), WithChannel("test/repo"))
			_, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
			setState(m, tt.state)

			view := m.View()
			for _, want := range tt.want {
				if !strings.Contains(view, want) {
					t.Errorf("view missing %q:\n%s", want, view)
				}
			}
			if !strings.Contains(view, "test/repo") {
				t.Error("header should show the channel")
			}
		})
	}
}

func TestFooterShowsAvailableKeys(t *testing.T) {
	m := newTestModel(t, newFakeUpdater())

	if footer := m.footerView(); strings.Contains(footer, "download") || strings.Contains(footer, "reset") {
		t.Errorf("idle footer = %q, should offer neither download nor reset", footer)
	}

	setState(m, sampleAvailable())
	footer := m.footerView()
	for _, want := range []string{"download", "copy", "check", "reset", "quit"} {
		if !strings.Contains(footer, want) {
			t.Errorf("footer missing %q: %q", want, footer)
		}
	}
}

func TestCheckKeyRunsCheckAndHook(t *testing.T) {
	f := newFakeUpdater()
	f.checkResult = sampleAvailable()

	var hooked update.State
	m := newTestModel(t, f, WithOnCheck(func(s update.State) { hooked = s }))

	_, cmd := m.Update(keyPress('r'))
	if !m.busy {
		t.Error("model should be busy while checking")
	}
	msg := runCmd(t, m, cmd)

	done, ok := msg.(opDoneMsg)
	if !ok || done.op != opCheck || !done.ok || done.release == nil {
		t.Fatalf("msg = %#v", msg)
	}
	if m.busy {
		t.Error("busy should clear when the check returns")
	}
	if f.checks != 1 {
		t.Errorf("checks = %d, want 1", f.checks)
	}
	if hooked == nil || hooked.Kind() != update.KindUpdateAvailable {
		t.Errorf("onCheck got %v, want update-available", hooked)
	}
}

func TestCheckOnStart(t *testing.T) {
	m := newTestModel(t, newFakeUpdater(), WithCheckOnStart(true))
	if m.Init() == nil {
		t.Fatal("Init() returned nil")
	}
	if !m.busy {
		t.Error("check should be started by Init")
	}
}

func TestDownloadKeyOnlyWhenAvailable(t *testing.T) {
	f := newFakeUpdater()
	f.downloadPath = "/tmp/app-debug.apk"

	var gotPath string
	var gotAvail update.UpdateAvailable
	m := newTestModel(t, f, WithOnDownload(func(a update.UpdateAvailable, p string) {
		gotAvail, gotPath = a, p
	}))

	if _, cmd := m.Update(keyPress('d')); cmd != nil {
		t.Fatal("download should be ignored outside update-available")
	}

	setState(m, sampleAvailable())
	_, cmd := m.Update(keyPress('d'))
	runCmd(t, m, cmd)

	if f.downloads != 1 {
		t.Errorf("downloads = %d, want 1", f.downloads)
	}
	if gotPath != "/tmp/app-debug.apk" || gotAvail.Release.Version != "0.3.1" {
		t.Errorf("onDownload got %q, %+v", gotPath, gotAvail.Release)
	}
}

func TestInstallKey(t *testing.T) {
	f := newFakeUpdater()
	m := newTestModel(t, f)

	if _, cmd := m.Update(keyPress('i')); cmd != nil {
		t.Fatal("install should be ignored outside ready-to-install")
	}

	setState(m, update.ReadyToInstall{Path: "/tmp/a.msi"})
	_, cmd := m.Update(keyPress('i'))
	runCmd(t, m, cmd)

	if f.installs != 1 {
		t.Errorf("installs = %d, want 1", f.installs)
	}
	if !strings.Contains(m.toast, "Installer launched") {
		t.Errorf("toast = %q", m.toast)
	}
}

func TestBusyIgnoresActions(t *testing.T) {
	f := newFakeUpdater()
	m := newTestModel(t, f)
	setState(m, sampleAvailable())

	_, _ = m.Update(keyPress('d'))
	if _, cmd := m.Update(keyPress('r')); cmd != nil {
		t.Error("re-check should be ignored while a download runs")
	}
	if f.checks != 0 {
		t.Errorf("checks = %d, want 0", f.checks)
	}
}

func TestCopyKey(t *testing.T) {
	var copied []string
	m := newTestModel(t, newFakeUpdater(), WithClipboard(func(s string) error {
		copied = append(copied, s)
		return nil
	}))

	if _, cmd := m.Update(keyPress('c')); cmd != nil {
		t.Error("nothing to copy while idle")
	}

	avail := sampleAvailable()
	setState(m, avail)
	_, _ = m.Update(keyPress('c'))

	setState(m, update.ReadyToInstall{Path: "/tmp/app-debug.apk"})
	_, _ = m.Update(keyPress('c'))

	want := []string{avail.Asset.DownloadURL, "/tmp/app-debug.apk"}
	if len(copied) != 2 || copied[0] != want[0] || copied[1] != want[1] {
		t.Errorf("copied = %v, want %v", copied, want)
	}
	if !strings.Contains(m.View(), "Copied") {
		t.Error("copy toast should be visible")
	}
}

func TestCopyFailureShowsErrorToast(t *testing.T) {
	m := newTestModel(t, newFakeUpdater(), WithClipboard(func(string) error {
		return errors.New("no clipboard utility")
	}))
	setState(m, sampleAvailable())
	_, _ = m.Update(keyPress('c'))

	if !m.toastErr || !strings.Contains(m.toast, "no clipboard utility") {
		t.Errorf("toast = %q (err=%v)", m.toast, m.toastErr)
	}
}

func TestToastExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := newTestModel(t, newFakeUpdater(), WithClipboard(func(string) error { return nil }))
	m.now = func() time.Time { return now }

	setState(m, sampleAvailable())
	_, _ = m.Update(keyPress('c'))

	_, _ = m.Update(toastTickMsg{})
	if m.toast == "" {
		t.Fatal("toast cleared too early")
	}

	now = now.Add(toastDuration)
	_, _ = m.Update(toastTickMsg{})
	if m.toast != "" {
		t.Errorf("toast = %q, want cleared", m.toast)
	}
}

func TestResetKey(t *testing.T) {
	f := newFakeUpdater()
	m := newTestModel(t, f)

	_, _ = m.Update(keyPress('x'))
	if f.resets != 0 {
		t.Error("reset should be ignored while idle")
	}

	setState(m, update.UpToDate{})
	_, _ = m.Update(keyPress('x'))
	if f.resets != 1 {
		t.Errorf("resets = %d, want 1", f.resets)
	}
}

func TestQuitEndsSubscription(t *testing.T) {
	f := newFakeUpdater()
	m := New(f, WithMarkdownStyle("plain"))

	_, cmd := m.Update(keyPress('q'))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if f.cell.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after quit", f.cell.Subscribers())
	}
	if m.ctx.Err() == nil {
		t.Error("in-flight operations should be cancelled on quit")
	}
}

func TestSubscriptionFeedsModel(t *testing.T) {
	f := newFakeUpdater()
	m := newTestModel(t, f)

	// The first value replayed is the current state.
	msg := waitForState(m.states)().(stateMsg)
	if !msg.ok || msg.state.Kind() != update.KindIdle {
		t.Fatalf("first msg = %+v", msg)
	}

	f.cell.Set(update.Checking{})
	_, cmd := m.Update(waitForState(m.states)())
	if m.State().Kind() != update.KindChecking {
		t.Errorf("State() = %s, want checking", m.State().Kind())
	}
	if cmd == nil {
		t.Error("model should keep listening")
	}

	m.Close()
	for {
		msg := waitForState(m.states)().(stateMsg)
		if !msg.ok {
			break
		}
	}
	if _, cmd := m.Update(stateMsg{ok: false}); cmd != nil {
		t.Error("closed stream should stop listening")
	}
}

func TestResolveMarkdownStyle(t *testing.T) {
	tests := map[string]string{
		"plain": "plain",
		"rich":  "dark",
		"Light": "light",
		" dark": "dark",
	}
	for in, want := range tests {
		if got := resolveMarkdownStyle(in); got != want {
			t.Errorf("resolveMarkdownStyle(%q) = %q, want %q", in, got, want)
		}
	}
	if got := resolveMarkdownStyle("auto"); got != "dark" && got != "light" {
		t.Errorf("auto resolved to %q", got)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatSize(0); got != "unknown size" {
		t.Errorf("formatSize(0) = %q", got)
	}
	if got := formatSize(1536); got != "1.5 KiB" {
		t.Errorf("formatSize(1536) = %q", got)
	}
	if got := displayVersion("1.0.0"); got != "v1.0.0" {
		t.Errorf("displayVersion = %q", got)
	}
	if got := displayVersion("v1.0.0"); got != "v1.0.0" {
		t.Errorf("displayVersion kept prefix = %q", got)
	}
	if got := formatPublished("not a date"); got != "not a date" {
		t.Errorf("formatPublished passthrough = %q", got)
	}
	if clampUnit(1.5) != 1 || clampUnit(-1) != 0 || clampUnit(0.25) != 0.25 {
		t.Error("clampUnit out of range")
	}
}

func TestFieldTruncatesLongValues(t *testing.T) {
	m := newTestModel(t, newFakeUpdater())
	_, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})

	long := "https://example.com/" + strings.Repeat("a", 200)
	got := m.field("URL", long)
	if !strings.Contains(got, "…") {
		t.Errorf("field should truncate long values: %q", got)
	}
}

func TestCustomKeyMap(t *testing.T) {
	f := newFakeUpdater()
	km := DefaultKeyMap()
	km.Recheck = key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "check"))
	m := newTestModel(t, f, WithKeyMap(km))

	if _, cmd := m.Update(keyPress('r')); cmd != nil {
		t.Fatal("default check key should be unbound")
	}
	_, cmd := m.Update(keyPress('u'))
	runCmd(t, m, cmd)

	f.mu.Lock()
	checks := f.checks
	f.mu.Unlock()
	if checks != 1 {
		t.Fatalf("checks = %d, want 1", checks)
	}
}
