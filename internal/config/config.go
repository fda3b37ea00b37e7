// Package config loads and saves the mealplan TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Environment overrides.
const (
	EnvCatalogURL = "MEALPLAN_CATALOG_URL"
	EnvStorePath  = "MEALPLAN_STORE"
)

// Config holds all mealplan configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Store      StoreConfig      `toml:"store"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
	Log        LogConfig        `toml:"log"`
}

// GeneralConfig holds planning preferences.
type GeneralConfig struct {
	DefaultDayLimit float64 `toml:"default_day_limit" validate:"gt=0"`
}

// CatalogConfig holds catalog service settings.
type CatalogConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=1,lte=300"`
	UseCache       bool   `toml:"use_cache"`
}

// StoreConfig holds plan store settings.
type StoreConfig struct {
	Path string `toml:"path,omitempty"`
}

// DaemonConfig holds background daemon settings.
type DaemonConfig struct {
	Addr            string `toml:"addr" validate:"required,hostname_port"`
	WatchIntervalMs int    `toml:"watch_interval_ms" validate:"gte=50,lte=60000"`
	EventsBuffer    int    `toml:"events_buffer" validate:"gte=1,lte=10000"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme" validate:"oneof=pantry herb-garden blueberry terminal"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDayLimit: 370,
		},
		Catalog: CatalogConfig{
			BaseURL:        "http://localhost:3001/api/v1",
			TimeoutSeconds: 10,
			UseCache:       true,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			WatchIntervalMs: 500,
			EventsBuffer:    200,
		},
		Appearance: AppearanceConfig{
			Theme: "pantry",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mealplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mealplan")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied after the file and the result is
// validated.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvCatalogURL)); v != "" {
		cfg.Catalog.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
}

// Save validates the config and writes it to disk.
func Save(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// CatalogTimeout returns the catalog request timeout.
func (c Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

// WatchInterval returns the store watch polling interval.
func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.Daemon.WatchIntervalMs) * time.Millisecond
}

// StorePath returns the configured store path, or empty for the default.
func (c Config) StorePath() string {
	return c.Store.Path
}

var validate = validator.New()

// FieldError describes one invalid setting.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid setting in a config.
type ValidationError struct {
	Fields []FieldError
}

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate checks the config against its field constraints.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	out := ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   tomlPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// tomlPath converts "Config.Catalog.BaseURL" into "catalog.base_url".
func tomlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("%q is not a URL", fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%q is not a host:port address", fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s (got %v)", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s (got %v)", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
