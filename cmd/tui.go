package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/tui"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive planner",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	theme.SetActive(s.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sub := s.engine.Subscribe()
	defer sub.Close()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := s.db.Watch(ctx, s.cfg.WatchInterval()); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Warn("plan store watcher stopped")
		}
	}()

	app := tui.NewApp(tui.Options{
		Engine:    s.engine,
		Load:      tui.CatalogLoader(catalogLoader(s.cfg, s.db)),
		Changes:   sub.Changes,
		Config:    s.cfg,
		StorePath: s.db.Path(),
		NeedSetup: !config.Exists(),
		Log:       fieldLogger(s.log, "tui"),
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	_, runErr := p.Run()
	cancel()
	<-watchDone

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
