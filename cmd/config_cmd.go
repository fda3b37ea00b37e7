package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/pipeline"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default day limit: %s\n", cli.FormatPrice(cfg.General.DefaultDayLimit))
	fmt.Println()

	fmt.Println("  [Catalog]")
	fmt.Printf("    Base URL:  %s\n", cfg.Catalog.BaseURL)
	fmt.Printf("    Timeout:   %s\n", cfg.CatalogTimeout())
	fmt.Printf("    Use cache: %v\n", cfg.Catalog.UseCache)
	fmt.Println()

	fmt.Println("  [Store]")
	fmt.Printf("    Path: %s\n", storePath(cfg))
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:        %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Watch interval: %s\n", cfg.WatchInterval())
	fmt.Printf("    Events buffer:  %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s\n", cfg.Log.Level)
	fmt.Printf("    File:  %s\n", pipeline.LogPath())
	fmt.Println()

	fmt.Println("  Run `mealplan setup` to reconfigure.")
	return nil
}
