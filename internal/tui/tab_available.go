package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/tui/components"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

// availState tracks the available-products list and its search input.
type availState struct {
	cursor    int
	offset    int
	searching bool
	input     textinput.Model
}

func newAvailState() availState {
	return availState{input: newSearchInput()}
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "name or note"
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 40
	return ti
}

func (a App) updateAvailableKeys(key string) (tea.Model, tea.Cmd, bool) {
	products := a.engine.AvailableProducts()

	switch key {
	case "j", "down":
		a.avail.cursor++
	case "k", "up":
		a.avail.cursor--
	case "g":
		a.avail.cursor = 0
	case "G":
		a.avail.cursor = len(products) - 1
	case "/":
		a.avail.searching = true
		a.avail.input.SetValue(a.engine.Search())
		a.avail.input.CursorEnd()
		focus := a.avail.input.Focus()
		return a, tea.Batch(focus, textinput.Blink), true
	case "esc":
		a.engine.SetSearch("")
		a.avail.cursor = 0
	case "[":
		a.stepMaxPrice(-1)
	case "]":
		a.stepMaxPrice(1)
	case "enter", " ":
		if len(products) == 0 {
			return a, nil, true
		}
		p := products[clamp(a.avail.cursor, len(products))]
		if _, err := a.engine.SelectByID(p.ID); err != nil {
			msg := err.Error()
			if errors.Is(err, planner.ErrNotAvailable) {
				msg = p.Name + " is not available"
			}
			a.setStatus(msg, true)
			break
		}
		a.setStatus(fmt.Sprintf("Added %s to %s", p.Name, cli.FormatDay(len(a.engine.Days())-1)), false)
	default:
		return a, nil, false
	}

	a.clampCursors()
	return a, nil, true
}

// stepMaxPrice moves the max-price bound by one price step.
func (a *App) stepMaxPrice(dir float64) {
	step := a.engine.PriceStep()
	if step <= 0 {
		step = 1
	}
	a.engine.SetMaxPrice(a.engine.MaxPrice() + dir*step)
}

// updateSearch handles key events while the search input is focused.
func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.avail.searching = false
		a.avail.input.Blur()
		return a, nil
	case "esc":
		a.avail.searching = false
		a.avail.input.Blur()
		a.avail.input.SetValue("")
		a.engine.SetSearch("")
		a.clampCursors()
		return a, nil
	}

	// Search applies as the user types.
	var cmd tea.Cmd
	a.avail.input, cmd = a.avail.input.Update(msg)
	a.engine.SetSearch(strings.TrimSpace(a.avail.input.Value()))
	a.avail.cursor = 0
	a.avail.offset = 0
	return a, cmd
}

func (a App) renderAvailableTab(cw, h int) string {
	t := theme.Active
	products := a.engine.AvailableProducts()
	inner := components.CardInnerWidth(cw)

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	noteStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	priceStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var body strings.Builder
	if a.avail.searching {
		body.WriteString(a.avail.input.View())
		body.WriteString("\n")
	}

	r := a.engine.PriceRange()
	body.WriteString(mutedStyle.Render(fmt.Sprintf("price %s–%s  step %s  max %s",
		cli.FormatPrice(r[0]), cli.FormatPrice(r[1]),
		cli.FormatPrice(a.engine.PriceStep()), cli.FormatPrice(a.engine.MaxPrice()))))
	body.WriteString("\n\n")

	if len(products) == 0 {
		body.WriteString(mutedStyle.Render("Nothing fits the current day budget and filters."))
		return components.ContentCard("Available", body.String(), cw)
	}

	// Rows visible inside the card: content height minus border, title and
	// the two header lines above.
	visible := h - 6
	if a.avail.searching {
		visible--
	}
	if visible < 1 {
		visible = 1
	}
	cursor := clamp(a.avail.cursor, len(products))
	offset := a.avail.offset
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}

	priceW := 8
	nameW := inner/2 - 2
	noteW := inner - nameW - priceW - 4
	end := offset + visible
	if end > len(products) {
		end = len(products)
	}
	for i := offset; i < end; i++ {
		p := products[i]
		name := fmt.Sprintf("%-*s", nameW, cli.Truncate(p.Name, nameW))
		note := fmt.Sprintf("%-*s", noteW, cli.Truncate(p.Note, noteW))
		price := fmt.Sprintf("%*s", priceW, cli.FormatPrice(p.Price))

		if i == cursor {
			body.WriteString(selStyle.Render("▸ " + name))
		} else {
			body.WriteString(nameStyle.Render("  " + name))
		}
		body.WriteString(noteStyle.Render(" " + note + " "))
		body.WriteString(priceStyle.Render(price))
		if i < end-1 {
			body.WriteString("\n")
		}
	}

	title := fmt.Sprintf("Available (%s)", cli.FormatNumber(int64(len(products))))
	return components.ContentCard(title, body.String(), cw)
}
