package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/tui/components"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

const (
	settingsFieldDayLimit = iota
	settingsFieldDefaultLimit
	settingsFieldCatalogURL
	settingsFieldUseCache
	settingsFieldTheme
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) updateSettingsKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		a.settings.cursor++
		a.clampCursors()
	case "k", "up":
		a.settings.cursor--
		a.clampCursors()
	case "enter":
		return a.settingsStartEdit()
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd, bool) {
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldDayLimit:
		ti.Placeholder = "370"
		ti.SetValue(strconv.FormatFloat(a.engine.DayLimit(), 'f', -1, 64))
	case settingsFieldDefaultLimit:
		ti.Placeholder = "370"
		ti.SetValue(strconv.FormatFloat(a.cfg.General.DefaultDayLimit, 'f', -1, 64))
	case settingsFieldCatalogURL:
		ti.Placeholder = config.DefaultConfig().Catalog.BaseURL
		ti.SetValue(a.cfg.Catalog.BaseURL)
	case settingsFieldUseCache:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.cfg.Catalog.UseCache))
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(a.cfg.Appearance.Theme)
	}
	ti.CursorEnd()

	focus := ti.Focus()
	a.settings.input = ti
	return a, tea.Batch(focus, textinput.Blink), true
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave applies the edited field. The plan's day limit goes to the
// store; everything else goes to the config file.
func (a *App) settingsSave() {
	val := strings.TrimSpace(a.settings.input.Value())

	if a.settings.cursor == settingsFieldDayLimit {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("day limit %q is not a number", val)
			return
		}
		a.settings.saveErr = a.engine.SetDayLimit(v)
		a.clampCursors()
		return
	}

	cfg := a.cfg
	switch a.settings.cursor {
	case settingsFieldDefaultLimit:
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("default day limit %q is not a number", val)
			return
		}
		cfg.General.DefaultDayLimit = v
	case settingsFieldCatalogURL:
		cfg.Catalog.BaseURL = val
	case settingsFieldUseCache:
		b, err := strconv.ParseBool(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("use cache %q is not true or false", val)
			return
		}
		cfg.Catalog.UseCache = b
	case settingsFieldTheme:
		cfg.Appearance.Theme = val
	}

	if err := config.Save(cfg); err != nil {
		a.settings.saveErr = err
		return
	}
	a.cfg = cfg
	theme.SetActive(cfg.Appearance.Theme)
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	fields := []struct{ label, value string }{
		{"Day limit", cli.FormatPrice(a.engine.DayLimit())},
		{"Default day limit", cli.FormatPrice(a.cfg.General.DefaultDayLimit)},
		{"Catalog URL", a.cfg.Catalog.BaseURL},
		{"Offline cache", strconv.FormatBool(a.cfg.Catalog.UseCache)},
		{"Theme", a.cfg.Appearance.Theme},
	}

	innerW := components.CardInnerWidth(cw)
	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-20s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-20s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker + label + value)
			if padLen := innerW - lipgloss.Width(marker+label+value); padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-20s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	source := "live"
	if a.fromCache {
		source = "offline cache"
	}
	info := [][2]string{
		{"Config file:", config.ConfigPath()},
		{"Plan store:", a.storePath},
		{"Catalog:", fmt.Sprintf("%s products (%s)", cli.FormatNumber(int64(a.engine.Snapshot().Len())), source)},
		{"Load time:", fmt.Sprintf("%.1fs", a.loadTime.Seconds())},
	}
	if a.loadErr != nil {
		info = append(info, [2]string{"Last error:", a.loadErr.Error()})
	}
	var infoBody strings.Builder
	for i, kv := range info {
		infoBody.WriteString(labelStyle.Render(fmt.Sprintf("%-14s", kv[0])))
		infoBody.WriteString(valueStyle.Render(cli.Truncate(kv[1], innerW-14)))
		if i < len(info)-1 {
			infoBody.WriteString("\n")
		}
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))
	return b.String()
}
