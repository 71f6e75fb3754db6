package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

var (
	cPurple     = lipgloss.Color("99")
	cCyan       = lipgloss.Color("39")
	cNeonGreen  = lipgloss.Color("118")
	cRed        = lipgloss.Color("203")
	cGold       = lipgloss.Color("220")
	cGray       = lipgloss.Color("240")
	cBrightGray = lipgloss.Color("246")
	cWhite      = lipgloss.Color("255")
	cField      = lipgloss.Color("63")

	styleAppHeader = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cPurple).
			Bold(true).
			Padding(0, 1)

	styleHeaderDim = lipgloss.NewStyle().
			Foreground(cBrightGray)

	styleTitle = lipgloss.NewStyle().
			Foreground(cGold).
			Bold(true)

	styleField = lipgloss.NewStyle().
			Foreground(cField).
			Bold(true).
			Width(10)

	styleVal = lipgloss.NewStyle().Foreground(cWhite)

	styleDim = lipgloss.NewStyle().Foreground(cBrightGray)

	styleSuccess = lipgloss.NewStyle().
			Foreground(cNeonGreen).
			Bold(true)

	styleSpinner = lipgloss.NewStyle().Foreground(cCyan)

	styleChangelog = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(cGray).
			Padding(0, 1)

	styleErrorToast = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cRed).
			Foreground(cWhite).
			Padding(0, 1)

	styleErrorIndicator = lipgloss.NewStyle().
				Foreground(cRed).
				Bold(true)

	styleSuccessToast = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#00FF00")).
				Foreground(cWhite).
				Padding(0, 1)

	// Footer bar styles
	styleKeyPill = lipgloss.NewStyle().
			Background(cPurple).
			Foreground(cWhite).
			Bold(true).
			Padding(0, 1)

	styleKeyDesc = lipgloss.NewStyle().
			Foreground(cBrightGray)

	stylePane = lipgloss.NewStyle().Padding(1, 2)
)

// resolveMarkdownStyle maps a configured format to a glamour standard style.
// "auto" (or empty) asks the terminal for its background colour.
func resolveMarkdownStyle(format string) string {
	style := strings.ToLower(strings.TrimSpace(format))
	switch style {
	case "", "auto":
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	case "rich":
		return "dark"
	}
	return style
}

func buildMarkdownRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := resolveMarkdownStyle(format)
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
