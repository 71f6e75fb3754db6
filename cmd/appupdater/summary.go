package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"appupdater/internal/history"
	"appupdater/internal/update"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	dimColor     = lipgloss.Color("#6272A4")
	textColor    = lipgloss.Color("#F8F8F2")
	successColor = lipgloss.Color("#50FA7B")
	errorColor   = lipgloss.Color("#FF5555")

	styleApp     = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	styleDim     = lipgloss.NewStyle().Foreground(dimColor)
	styleText    = lipgloss.NewStyle().Foreground(textColor)
	styleSuccess = lipgloss.NewStyle().Foreground(successColor)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
)

// printRelease describes an available update.
func printRelease(w io.Writer, current string, avail update.UpdateAvailable) {
	r := avail.Release
	_, _ = fmt.Fprintf(w, "%s %s %s\n",
		styleApp.Render("Update available:"),
		styleText.Render(r.Tag),
		styleDim.Render("(current "+current+")"))

	size := "unknown size"
	if avail.Asset.Size > 0 {
		size = humanize.IBytes(uint64(avail.Asset.Size))
	}
	_, _ = fmt.Fprintf(w, "  Asset: %s (%s)\n", avail.Asset.Name, size)
	if t, err := time.Parse(time.RFC3339, r.PublishedAt); err == nil {
		_, _ = fmt.Fprintf(w, "  Published: %s\n", humanize.Time(t))
	}
	_, _ = fmt.Fprintf(w, "  URL: %s\n", avail.Asset.DownloadURL)

	if changelog := strings.TrimSpace(r.Changelog); changelog != "" {
		_, _ = fmt.Fprintln(w)
		for _, line := range strings.Split(changelog, "\n") {
			_, _ = fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
}

// printUpToDate reports that no newer release exists.
func printUpToDate(w io.Writer, current string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", styleSuccess.Render("Up to date"), styleDim.Render("(current "+current+")"))
}

// printSkipped reports a check suppressed by check.interval.
func printSkipped(w io.Writer, last history.Check, now time.Time) {
	ago := formatDuration(now.Sub(last.CheckedAt))
	_, _ = fmt.Fprintf(w, "Last checked %s ago (%s). Use --force to check again.\n", ago, last.Result)
}

// printHistory lists past downloads, newest first.
func printHistory(w io.Writer, downloads []history.Download) {
	if len(downloads) == 0 {
		_, _ = fmt.Fprintln(w, styleDim.Render("No downloads recorded."))
		return
	}
	_, _ = fmt.Fprintln(w, styleApp.Render("Downloads"))
	for _, d := range downloads {
		size := "-"
		if d.Size > 0 {
			size = humanize.IBytes(uint64(d.Size))
		}
		_, _ = fmt.Fprintf(w, "  %-12s %-10s %-10s %s/%s  %s\n",
			humanize.Time(d.DownloadedAt), d.Version, size, d.Owner, d.Repo, d.Path)
	}
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
