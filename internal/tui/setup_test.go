package tui

import (
	"testing"

	"github.com/theirongolddev/mealplan/internal/config"
)

func TestSetupValuesApply(t *testing.T) {
	vals := NewSetupValues(config.DefaultConfig(), 400)
	if vals.dayLimitText != "400" {
		t.Fatalf("dayLimitText = %q, want 400", vals.dayLimitText)
	}

	vals.CatalogURL = " http://catalog.test/api/v1 "
	vals.dayLimitText = "450"
	vals.Theme = "blueberry"
	vals.UseCache = false

	cfg, err := vals.Apply(config.DefaultConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Catalog.BaseURL != "http://catalog.test/api/v1" {
		t.Errorf("BaseURL = %q", cfg.Catalog.BaseURL)
	}
	if cfg.General.DefaultDayLimit != 450 || vals.DayLimit != 450 {
		t.Errorf("DefaultDayLimit = %v, DayLimit = %v, want 450", cfg.General.DefaultDayLimit, vals.DayLimit)
	}
	if cfg.Appearance.Theme != "blueberry" {
		t.Errorf("Theme = %q", cfg.Appearance.Theme)
	}
	if cfg.Catalog.UseCache {
		t.Error("UseCache = true, want false")
	}
}

func TestSetupValuesApplyRejectsInvalid(t *testing.T) {
	vals := NewSetupValues(config.DefaultConfig(), 0)
	if vals.DayLimit != 370 {
		t.Errorf("DayLimit = %v, want the configured default 370", vals.DayLimit)
	}

	vals.Theme = "neon"
	if _, err := vals.Apply(config.DefaultConfig()); err == nil {
		t.Error("Apply with an unknown theme should fail")
	}

	vals.Theme = "terminal"
	vals.dayLimitText = "lots"
	if _, err := vals.Apply(config.DefaultConfig()); err == nil {
		t.Error("Apply with a non-numeric limit should fail")
	}
}

func TestSetupValidators(t *testing.T) {
	if err := validateURL("localhost"); err == nil {
		t.Error("validateURL(localhost) should fail")
	}
	if err := validateURL("http://localhost:3001/api/v1"); err != nil {
		t.Errorf("validateURL: %v", err)
	}
	if err := validateLimit("-5"); err == nil {
		t.Error("validateLimit(-5) should fail")
	}
	if err := validateLimit("370"); err != nil {
		t.Errorf("validateLimit: %v", err)
	}
	if form := NewSetupForm(NewSetupValues(config.DefaultConfig(), 370)); form == nil {
		t.Error("NewSetupForm returned nil")
	}
}
