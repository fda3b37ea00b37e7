package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/tui/components"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

type catState struct {
	cursor int
}

func (a App) updateCategoryKeys(key string) (tea.Model, tea.Cmd, bool) {
	cats := a.engine.Snapshot().UserCategories()

	switch key {
	case "j", "down":
		a.cats.cursor++
	case "k", "up":
		a.cats.cursor--
	case " ", "enter":
		if len(cats) == 0 {
			return a, nil, true
		}
		c := cats[clamp(a.cats.cursor, len(cats))]
		if err := a.engine.ToggleCategory(c.ID); err != nil {
			a.setStatus(err.Error(), true)
		}
	case "u":
		a.engine.ClearFilter()
		a.setStatus("Showing every category", false)
	default:
		return a, nil, false
	}

	a.clampCursors()
	return a, nil, true
}

func (a App) renderCategoriesTab(cw, h int) string {
	t := theme.Active
	cats := a.engine.Snapshot().UserCategories()

	onStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	offStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)

	if len(cats) == 0 {
		return components.ContentCard("Categories", countStyle.Render("The catalog has no categories."), cw)
	}

	visible := h - 4
	if visible < 1 {
		visible = 1
	}
	cursor := clamp(a.cats.cursor, len(cats))
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}

	var body strings.Builder
	for i := start; i < len(cats) && i < start+visible; i++ {
		c := cats[i]
		mark := "[ ]"
		style := offStyle
		if a.engine.FilterActive(c.ID) {
			mark = "[x]"
			style = onStyle
		}
		if i == cursor {
			style = selStyle
		}
		body.WriteString(style.Render(fmt.Sprintf("%s %s", mark, c.Title)))
		body.WriteString(countStyle.Render(fmt.Sprintf("  %s products", cli.FormatNumber(int64(len(c.Products))))))
		if i < len(cats)-1 {
			body.WriteString("\n")
		}
	}

	title := "Categories"
	if n := len(a.engine.Filter()); n > 0 {
		title = fmt.Sprintf("Categories (%d selected)", n)
	}
	return components.ContentCard(title, body.String(), cw)
}
