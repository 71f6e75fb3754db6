package ui

import (
	"fmt"
	"strings"
	"time"

	"appupdater/internal/update"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.bodyView())
	b.WriteString("\n")

	if m.toast != "" {
		b.WriteString("\n")
		b.WriteString(m.toastView())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footerView())

	return stylePane.Render(b.String())
}

func (m *Model) headerView() string {
	title := styleAppHeader.Render("appupdater")
	meta := "current " + displayVersion(m.updater.CurrentVersion())
	if m.channel != "" {
		meta = m.channel + " · " + meta
	}
	return title + " " + styleHeaderDim.Render(meta)
}

func (m *Model) bodyView() string {
	switch s := m.state.(type) {
	case update.Idle:
		return styleDim.Render("Press r to check for updates.")

	case update.Checking:
		return m.spinner.View() + " Checking for updates..."

	case update.UpToDate:
		return styleSuccess.Render("✓ You're up to date") + " " +
			styleDim.Render("("+displayVersion(m.updater.CurrentVersion())+")")

	case update.UpdateAvailable:
		return m.availableView(s)

	case update.Downloading:
		return m.downloadingView(s)

	case update.ReadyToInstall:
		return strings.Join([]string{
			styleSuccess.Render("✓ Download complete"),
			"",
			m.field("Saved to", s.Path),
			"",
			styleDim.Render("Press i to install."),
		}, "\n")

	case update.Failure:
		return m.failureView(s)
	}
	return ""
}

func (m *Model) availableView(s update.UpdateAvailable) string {
	r := s.Release
	heading := "Update available: " + displayVersion(r.Version)
	if r.Name != "" && r.Name != r.Tag && r.Name != r.Version {
		heading += " · " + r.Name
	}
	if r.Prerelease {
		heading += " (pre-release)"
	}

	lines := []string{
		styleTitle.Render(heading),
		"",
		m.field("Asset", s.Asset.Name),
		m.field("Size", formatSize(s.Asset.Size)),
	}
	if published := formatPublished(r.PublishedAt); published != "" {
		lines = append(lines, m.field("Published", published))
	}
	lines = append(lines, m.field("URL", s.Asset.DownloadURL))

	if changelog := strings.TrimSpace(r.Changelog); changelog != "" {
		lines = append(lines, "", styleChangelog.Render(m.renderMarkdown(changelog)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) downloadingView(s update.Downloading) string {
	name := m.available.Asset.Name
	if name == "" {
		name = "update"
	}
	header := m.spinner.View() + " Downloading " + name

	if s.BytesTotal <= 0 {
		return header + "\n\n" + styleDim.Render(humanize.IBytes(uint64(max(s.BytesDone, 0)))+" received")
	}
	counts := fmt.Sprintf("%s / %s", humanize.IBytes(uint64(max(s.BytesDone, 0))), formatSize(s.BytesTotal))
	return strings.Join([]string{
		header,
		"",
		m.progress.ViewAs(clampUnit(s.Progress)),
		styleDim.Render(counts),
	}, "\n")
}

func (m *Model) failureView(s update.Failure) string {
	width := m.contentWidth() - 4
	body := styleErrorIndicator.Render("⚠ Update failed") + "\n" + wordwrap.String(s.Message, width)
	return styleErrorToast.Render(body) + "\n\n" + styleDim.Render("Press r to try again.")
}

func (m *Model) toastView() string {
	text := wordwrap.String(m.toast, m.contentWidth()-4)
	if m.toastErr {
		return styleErrorToast.Render(text)
	}
	return styleSuccessToast.Render(text)
}

func (m *Model) footerView() string {
	bindings := m.keys.available(m.state.Kind(), m.busy)
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, renderKey(b))
	}
	return strings.Join(parts, "  ")
}

func renderKey(b key.Binding) string {
	h := b.Help()
	return styleKeyPill.Render(h.Key) + " " + styleKeyDesc.Render(h.Desc)
}

// field renders a label/value row, truncating the value to the pane width.
func (m *Model) field(label, value string) string {
	avail := m.contentWidth() - lipgloss.Width(styleField.Render(label)) - 1
	return styleField.Render(label) + " " + styleVal.Render(ansi.Truncate(value, max(avail, 10), "…"))
}

func displayVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func formatSize(n int64) string {
	if n <= 0 {
		return "unknown size"
	}
	return humanize.IBytes(uint64(n))
}

// formatPublished renders an ISO-8601 timestamp as a relative time, or
// returns the input unchanged when it does not parse.
func formatPublished(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func clampUnit(f float64) float64 {
	return min(max(f, 0), 1)
}
