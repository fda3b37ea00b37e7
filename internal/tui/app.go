// Package tui provides the interactive Bubble Tea meal planner.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/pipeline"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/store"
	"github.com/theirongolddev/mealplan/internal/tui/components"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

// CatalogLoader loads the catalog the planner hydrates from.
type CatalogLoader func(ctx context.Context) (*pipeline.LoadResult, error)

// Options configures NewApp.
type Options struct {
	Engine *planner.Engine
	Load   CatalogLoader
	// Changes delivers store changes, usually from Engine.Subscribe.
	Changes   <-chan store.Change
	Config    config.Config
	StorePath string
	NeedSetup bool
	Log       logrus.FieldLogger
}

// CatalogLoadedMsg is sent when a catalog load finishes.
type CatalogLoadedMsg struct {
	Result   *pipeline.LoadResult
	Err      error
	LoadTime time.Duration
}

// StoreChangeMsg carries a change to a watched store key.
type StoreChangeMsg struct {
	Change store.Change
}

type storeClosedMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	engine    *planner.Engine
	load      CatalogLoader
	changes   <-chan store.Change
	cfg       config.Config
	storePath string
	log       logrus.FieldLogger

	// Catalog state
	loaded    bool
	loading   bool
	loadTime  time.Duration
	fromCache bool
	loadErr   error
	loadedAt  time.Time

	// UI state
	width      int
	height     int
	activeTab  int
	showHelp   bool
	status     string
	statusWarn bool

	// Per-tab state
	plan     planState
	avail    availState
	cats     catState
	settings settingsState

	// Remove-day confirmation (huh form)
	confirm *confirmState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 160

	minContentHeight = 5
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return App{
		engine:    opts.Engine,
		load:      opts.Load,
		changes:   opts.Changes,
		cfg:       opts.Config,
		storePath: opts.StorePath,
		log:       log,
		needSetup: opts.NeedSetup,
		loading:   true,
		avail:     newAvailState(),
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		loadCatalogCmd(a.load),
		waitForChange(a.changes),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		if a.confirm != nil {
			a.confirm.form = a.confirm.form.WithWidth(confirmWidth(msg.Width))
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil || a.confirm != nil {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case CatalogLoadedMsg:
		return a.catalogLoaded(msg)

	case StoreChangeMsg:
		if a.engine.ApplyChange(msg.Change) {
			a.clampCursors()
			a.setStatus("Plan updated in another window", false)
		}
		return a, waitForChange(a.changes)

	case storeClosedMsg:
		return a, nil

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to open forms (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.confirm != nil {
		return a.updateConfirm(msg)
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if !a.loaded {
		return a, nil
	}

	// Open forms intercept all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.confirm != nil {
		return a.updateConfirm(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}
	if a.activeTab == tabAvailable && a.avail.searching {
		return a.updateSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	var (
		model   tea.Model
		cmd     tea.Cmd
		handled bool
	)
	switch a.activeTab {
	case tabPlan:
		model, cmd, handled = a.updatePlanKeys(key)
	case tabAvailable:
		model, cmd, handled = a.updateAvailableKeys(key)
	case tabCategories:
		model, cmd, handled = a.updateCategoryKeys(key)
	case tabSettings:
		model, cmd, handled = a.updateSettingsKeys(key)
	}
	if handled {
		return model, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.loading {
			a.loading = true
			a.setStatus("Reloading catalog...", false)
			return a, tea.Batch(a.spinner.Tick, loadCatalogCmd(a.load))
		}
		return a, nil
	case "tab", "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab", "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.moveCursor(-1)
	case tea.MouseButtonWheelDown:
		a.moveCursor(1)
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case tabPlan:
		a.plan.item += delta
	case tabAvailable:
		a.avail.cursor += delta
	case tabCategories:
		a.cats.cursor += delta
	case tabSettings:
		a.settings.cursor += delta
	}
	a.clampCursors()
}

func (a App) catalogLoaded(msg CatalogLoadedMsg) (tea.Model, tea.Cmd) {
	a.loading = false
	a.loaded = true
	a.loadTime = msg.LoadTime

	if msg.Err != nil {
		a.loadErr = msg.Err
		a.log.WithError(msg.Err).Warn("catalog load failed")
		if a.engine.Hydrated() {
			a.setStatus("Catalog refresh failed, keeping current catalog", true)
		} else {
			a.setStatus("Catalog unavailable, press r to retry", true)
		}
	} else {
		a.loadErr = nil
		a.fromCache = msg.Result.FromCache
		a.loadedAt = time.Now()
		a.engine.Hydrate(msg.Result.Snapshot)
		a.clampCursors()
		switch {
		case msg.Result.FetchErr != nil:
			a.setStatus("Offline, showing cached catalog", true)
		default:
			a.setStatus(fmt.Sprintf("Loaded %s products", cli.FormatNumber(int64(msg.Result.Snapshot.Len()))), false)
		}
		if msg.Result.CacheErr != nil {
			a.log.WithError(msg.Result.CacheErr).Warn("caching catalog")
		}
	}

	if a.needSetup && a.setupForm == nil {
		a.setupVals = NewSetupValues(a.cfg, a.engine.DayLimit())
		a.setupForm = NewSetupForm(a.setupVals)
		if a.width > 0 {
			a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
		}
		return a, a.setupForm.Init()
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.applySetup()
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a *App) applySetup() {
	cfg, err := a.setupVals.Apply(a.cfg)
	if err != nil {
		a.setStatus("Setup: "+err.Error(), true)
		return
	}
	theme.SetActive(cfg.Appearance.Theme)
	if err := config.Save(cfg); err != nil {
		a.setStatus("Could not save config: "+err.Error(), true)
		return
	}
	a.cfg = cfg
	if a.engine.Hydrated() && a.setupVals.DayLimit != a.engine.DayLimit() {
		if err := a.engine.SetDayLimit(a.setupVals.DayLimit); err != nil {
			a.setStatus(err.Error(), true)
			return
		}
	}
	a.setStatus("Saved to "+config.ConfigPath(), false)
}

func (a *App) setStatus(s string, warn bool) {
	a.status = s
	a.statusWarn = warn
}

// clampCursors keeps every cursor inside its list after the plan or the
// catalog changed.
func (a *App) clampCursors() {
	days := a.engine.Days()
	a.plan.day = clamp(a.plan.day, len(days))
	items := 0
	if len(days) > 0 {
		items = len(days[a.plan.day])
	}
	a.plan.item = clamp(a.plan.item, items)
	a.avail.cursor = clamp(a.avail.cursor, len(a.engine.AvailableProducts()))
	a.cats.cursor = clamp(a.cats.cursor, len(a.engine.Snapshot().UserCategories()))
	a.settings.cursor = clamp(a.settings.cursor, settingsFieldCount)
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.setupForm != nil {
		return a.setupForm.View()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	if a.confirm != nil {
		return a.viewConfirm()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  mealplan needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ mealplan"))
	b.WriteString(subtitleStyle.Render(" · Daily meal budget planner"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(" Loading catalog..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"p a c x", "Jump to tab"},
			{"tab ← →", "Previous / Next tab"},
			{"j k", "Move in lists"},
			{"h l", "Previous / Next day"},
		}},
		{"Plan", [][2]string{
			{"n", "Add a day"},
			{"D", "Remove the focused day"},
			{"Enter", "Unselect the focused product"},
		}},
		{"Available", [][2]string{
			{"Enter", "Add product to the current day"},
			{"/", "Search name and note"},
			{"[ ]", "Lower / raise max price"},
			{"Esc", "Clear search"},
		}},
		{"Categories", [][2]string{
			{"Space", "Toggle category filter"},
			{"u", "Clear filter"},
		}},
		{"General", [][2]string{
			{"r", "Reload catalog"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-8s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.renderFilterRow(w)
	statusBar := components.RenderStatusBar(w, a.hints(), a.statusLine(), a.statusWarn)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabPlan:
		content = a.renderPlanTab(cw, contentH)
	case tabAvailable:
		content = a.renderAvailableTab(cw, contentH)
	case tabCategories:
		content = a.renderCategoriesTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderFilterRow shows the day limit, the current day spend and the active
// search and category filters.
func (a App) renderFilterRow(w int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	row := dim.Render(" limit ") + accent.Render(cli.FormatPrice(a.engine.DayLimit())) +
		dim.Render(" │ today ") + accent.Render(cli.FormatPrice(a.engine.CurrentDayPrice())) +
		dim.Render(" │ max ") + accent.Render(cli.FormatPrice(a.engine.MaxPrice()))
	if s := a.engine.Search(); s != "" {
		row += dim.Render(" │ search ") + accent.Render(s)
	}
	if f := a.engine.Filter(); len(f) > 0 {
		names := make([]string, 0, len(f))
		for _, id := range f {
			if c, ok := a.engine.Snapshot().Category(id); ok {
				names = append(names, c.Title)
			}
		}
		row += dim.Render(" │ ") + accent.Render(strings.Join(names, ", "))
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(row)
}

func (a App) hints() string {
	switch a.activeTab {
	case tabPlan:
		return "[n]ew day  [D]elete day  [enter] unselect  [?]help  [q]uit"
	case tabAvailable:
		return "[enter] add  [/]search  [ ] price  [?]help  [q]uit"
	case tabCategories:
		return "[space] toggle  [u] clear  [?]help  [q]uit"
	default:
		return "[enter] edit  [?]help  [q]uit"
	}
}

func (a App) statusLine() string {
	if a.status != "" {
		return a.status
	}
	if a.loadedAt.IsZero() {
		return ""
	}
	src := "live"
	if a.fromCache {
		src = "cached"
	}
	return fmt.Sprintf("%s catalog · %s", src, cli.FormatAge(a.loadedAt))
}

// ─── Commands ───────────────────────────────────────────────────

// loadCatalogCmd loads the catalog in the background.
func loadCatalogCmd(load CatalogLoader) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		res, err := load(ctx)
		return CatalogLoadedMsg{Result: res, Err: err, LoadTime: time.Since(start)}
	}
}

// waitForChange blocks until the next store change arrives.
func waitForChange(changes <-chan store.Change) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-changes
		if !ok {
			return storeClosedMsg{}
		}
		return StoreChangeMsg{Change: c}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
