package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left and a
// status message on the right. A warning status is drawn in orange.
func RenderStatusBar(width int, hints, status string, warn bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	left := " " + hints
	right := ""
	if status != "" {
		color := t.TextMuted
		if warn {
			color = t.Orange
		}
		right = lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(status + " ")
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	gap := lipgloss.NewStyle().Background(t.Surface).Width(padding).Render("")

	return style.Render(left + gap + right)
}
