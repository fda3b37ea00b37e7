package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

// SetupValues holds the answers of the setup form.
type SetupValues struct {
	CatalogURL string
	DayLimit   float64
	Theme      string
	UseCache   bool

	dayLimitText string
}

// NewSetupValues seeds the form from cfg and the current day limit.
func NewSetupValues(cfg config.Config, dayLimit float64) *SetupValues {
	if dayLimit <= 0 {
		dayLimit = cfg.General.DefaultDayLimit
	}
	return &SetupValues{
		CatalogURL:   cfg.Catalog.BaseURL,
		DayLimit:     dayLimit,
		Theme:        cfg.Appearance.Theme,
		UseCache:     cfg.Catalog.UseCache,
		dayLimitText: strconv.FormatFloat(dayLimit, 'f', -1, 64),
	}
}

// NewSetupForm builds the first-run setup form writing into vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themes = append(themes, huh.NewOption(t.Label, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to mealplan").
				Description("Plan daily meals from a product catalog within a per-day budget.\nA few settings first."),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Catalog service URL").
				Description("Base URL serving /products and /categories.").
				Value(&vals.CatalogURL).
				Validate(validateURL),
			huh.NewConfirm().
				Title("Keep an offline copy of the catalog?").
				Value(&vals.UseCache),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Daily spending limit").
				Description("A day is closed once it cannot fit the cheapest product.").
				Value(&vals.dayLimitText).
				Validate(validateLimit),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&vals.Theme),
		),
	)
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a full URL such as %s", config.DefaultConfig().Catalog.BaseURL)
	}
	return nil
}

func validateLimit(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive amount, e.g. %s", cli.FormatPrice(config.DefaultConfig().General.DefaultDayLimit))
	}
	return nil
}

// Apply copies the answers into cfg and validates the result.
func (v *SetupValues) Apply(cfg config.Config) (config.Config, error) {
	if v.dayLimitText != "" {
		limit, err := strconv.ParseFloat(strings.TrimSpace(v.dayLimitText), 64)
		if err != nil {
			return cfg, fmt.Errorf("day limit %q: %w", v.dayLimitText, err)
		}
		v.DayLimit = limit
	}

	cfg.Catalog.BaseURL = strings.TrimSpace(v.CatalogURL)
	cfg.Catalog.UseCache = v.UseCache
	cfg.General.DefaultDayLimit = v.DayLimit
	cfg.Appearance.Theme = v.Theme

	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
