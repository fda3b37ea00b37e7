package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

// ColorForPct returns green/yellow/orange/red based on how much of the budget
// is spent.
func ColorForPct(pct float64) string {
	return string(theme.Active.Budget(pct))
}

// BudgetBar renders spent against limit as a bar followed by the percentage.
// width is the total rendered width.
func BudgetBar(spent, limit float64, width int) string {
	t := theme.Active

	pct := 0.0
	if limit > 0 {
		pct = spent / limit
	}
	if pct < 0 {
		pct = 0
	}
	color := ColorForPct(pct)

	pctStr := fmt.Sprintf("%4.0f%%", pct*100)
	barW := width - lipgloss.Width(pctStr) - 1
	if barW < 4 {
		barW = 4
	}

	bar := progress.New(
		progress.WithSolidFill(color),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	fill := pct
	if fill > 1 {
		fill = 1
	}

	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(fill) + spaceStyle.Render(" ") + pctStyle.Render(pctStr)
}
