package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/store"
	"github.com/theirongolddev/mealplan/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// A broken config file is replaced, so start from defaults.
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("  %s\n", cli.RenderWarning(err.Error()))
		cfg = config.DefaultConfig()
	}

	db, err := store.Open(storePath(cfg))
	if err != nil {
		return fmt.Errorf("opening plan store: %w", err)
	}
	defer func() { _ = db.Close() }()

	limit := cfg.General.DefaultDayLimit
	var stored float64
	if ok, err := db.Load(planner.KeyDayLimit, &stored); err == nil && ok && stored > 0 {
		limit = stored
	}

	vals := tui.NewSetupValues(cfg, limit)
	if err := tui.NewSetupForm(vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	next, err := vals.Apply(cfg)
	if err != nil {
		return err
	}
	if err := config.Save(next); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if vals.DayLimit != limit {
		engine := planner.New(db, planner.WithDefaultDayLimit(next.General.DefaultDayLimit))
		if err := engine.SetDayLimit(vals.DayLimit); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `mealplan setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
