package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow plan changes made by other windows",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sub := s.engine.Subscribe()
	defer sub.Close()

	watchErr := make(chan error, 1)
	go func() { watchErr <- s.db.Watch(ctx, s.cfg.WatchInterval()) }()

	fmt.Printf("  Watching %s (Ctrl+C to stop)\n", s.db.Path())
	for {
		select {
		case <-ctx.Done():
			<-watchErr
			return nil
		case err := <-watchErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case c, ok := <-sub.Changes:
			if !ok {
				return nil
			}
			if s.engine.ApplyChange(c) {
				fmt.Println(describeChange(s.engine, c))
			}
		}
	}
}

func describeChange(e *planner.Engine, c store.Change) string {
	at := c.At.Local().Format("15:04:05")
	switch c.Key {
	case planner.KeyDayLimit:
		return fmt.Sprintf("  %s  limit %s", at, cli.FormatPrice(e.DayLimit()))
	default:
		sum := e.Summary()
		return fmt.Sprintf("  %s  %d days, %d products, %s (today %s of %s)", at,
			len(e.Days()), sum.Count, cli.FormatPrice(sum.Price),
			cli.FormatPrice(e.CurrentDayPrice()), cli.FormatPrice(e.DayLimit()))
	}
}
