package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/tui/components"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

// Tab indices, matching components.Tabs.
const (
	tabPlan = iota
	tabAvailable
	tabCategories
	tabSettings
)

// planState tracks the focused day and the focused product inside it.
type planState struct {
	day  int
	item int
}

// confirmState is an open remove-day confirmation. Pointers keep the answer
// shared across model copies.
type confirmState struct {
	form   *huh.Form
	day    int
	prompt string
	yes    *bool
}

func (a App) updatePlanKeys(key string) (tea.Model, tea.Cmd, bool) {
	days := a.engine.Days()

	switch key {
	case "j", "down":
		a.plan.item++
	case "k", "up":
		a.plan.item--
	case "l":
		a.plan.day++
		a.plan.item = 0
	case "h":
		a.plan.day--
		a.plan.item = 0
	case "g":
		a.plan.day, a.plan.item = 0, 0
	case "G":
		a.plan.day, a.plan.item = len(days)-1, 0
	case "n":
		a.engine.AddDay()
		a.plan.day, a.plan.item = len(a.engine.Days())-1, 0
		a.setStatus("Added "+cli.FormatDay(a.plan.day), false)
	case "D":
		return a.removeDay()
	case "enter", "backspace":
		if len(days) == 0 || a.plan.item >= len(days[a.plan.day]) {
			return a, nil, true
		}
		p := days[a.plan.day][a.plan.item]
		if a.engine.UnselectProduct(p) {
			a.setStatus("Removed "+p.Name, false)
		}
	default:
		return a, nil, false
	}

	a.clampCursors()
	return a, nil, true
}

// removeDay removes the focused day, asking for confirmation when it still
// holds products.
func (a App) removeDay() (tea.Model, tea.Cmd, bool) {
	if len(a.engine.Days()) == 0 {
		return a, nil, true
	}

	var prompt string
	removed, err := a.engine.RemoveDay(a.plan.day, func(p string) bool {
		prompt = p
		return false
	})
	if err != nil {
		a.setStatus(err.Error(), true)
		return a, nil, true
	}
	if removed {
		a.setStatus("Removed "+cli.FormatDay(a.plan.day), false)
		a.clampCursors()
		return a, nil, true
	}

	yes := false
	a.confirm = &confirmState{
		form:   newConfirmForm(prompt, &yes),
		day:    a.plan.day,
		prompt: prompt,
		yes:    &yes,
	}
	if a.width > 0 {
		a.confirm.form = a.confirm.form.WithWidth(confirmWidth(a.width))
	}
	return a, a.confirm.form.Init(), true
}

func newConfirmForm(prompt string, yes *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt+"?").
				Description("The day still has products selected.").
				Affirmative("Remove").
				Negative("Keep").
				Value(yes),
		),
	).WithShowHelp(false)
}

func confirmWidth(w int) int {
	if w > 50 {
		return 50
	}
	return w
}

func (a App) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.confirm.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.confirm.form = f
	}

	switch a.confirm.form.State {
	case huh.StateCompleted:
		return a.resolveConfirm(), nil
	case huh.StateAborted:
		a.confirm = nil
		return a, nil
	}
	return a, cmd
}

// resolveConfirm closes the confirmation and removes the day when the user
// agreed.
func (a App) resolveConfirm() App {
	c := a.confirm
	a.confirm = nil
	if c == nil || !*c.yes {
		return a
	}

	removed, err := a.engine.RemoveDay(c.day, func(string) bool { return true })
	switch {
	case err != nil:
		a.setStatus(err.Error(), true)
	case removed:
		a.setStatus("Removed "+cli.FormatDay(c.day), false)
	}
	a.clampCursors()
	return a
}

func (a App) viewConfirm() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Orange).
		Padding(1, 2)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		cardStyle.Render(a.confirm.form.View()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderPlanTab(cw, h int) string {
	t := theme.Active
	views := a.engine.DayViews()
	summary := a.engine.Summary()
	limit := a.engine.DayLimit()

	remaining := limit - a.engine.CurrentDayPrice()
	metrics := []components.Metric{
		{Label: "Days", Value: cli.FormatNumber(int64(len(views)))},
		{Label: "Products", Value: cli.FormatNumber(int64(summary.Count))},
		{Label: "Total", Value: cli.FormatPrice(summary.Price),
			Note: fmt.Sprintf("%s · %s", cli.FormatWeight(summary.Weight), cli.FormatCalories(summary.Calories))},
		{Label: "Left today", Value: cli.FormatPrice(remaining)},
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	if len(views) == 0 {
		dim := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		b.WriteString(components.ContentCard("No days planned",
			dim.Render("Press n to add a day, or pick a product on the Available tab."), cw))
		return b.String()
	}

	cols := 3
	switch {
	case cw < 90:
		cols = 1
	case cw < 130:
		cols = 2
	}

	// Show the row holding the focused day first so it stays visible.
	firstRow := (a.plan.day / cols) * cols
	used := lipgloss.Height(b.String())
	widths := components.LayoutRow(cw, cols)
	for start := firstRow; start < len(views) && used < h; start += cols {
		var cards []string
		for i := 0; i < cols && start+i < len(views); i++ {
			idx := start + i
			focused := idx == a.plan.day
			cursor := -1
			if focused {
				cursor = a.plan.item
			}
			cards = append(cards, components.DayCard(views[idx], limit, cursor, focused, widths[i]))
		}
		row := components.CardRow(cards)
		b.WriteString(row)
		b.WriteString("\n")
		used += lipgloss.Height(row)
	}
	return b.String()
}
