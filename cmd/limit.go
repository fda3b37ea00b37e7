package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
)

var limitCmd = &cobra.Command{
	Use:   "limit [VALUE]",
	Short: "Show or set the daily spending limit",
	Long: "Without an argument, print the daily limit. With one, store it; every day\n" +
		"is re-planned against the new limit in every open window.",
	Args: cobra.MaximumNArgs(1),
	RunE: runLimit,
}

func init() {
	rootCmd.AddCommand(limitCmd)
}

func runLimit(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.Close()

		limit := s.engine.DayLimit()
		var stored float64
		ok, err := s.db.Load(planner.KeyDayLimit, &stored)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("reading stored day limit")
		case ok && stored > 0:
			limit = stored
		}
		fmt.Printf("  Day limit: %s\n", cli.FormatPrice(limit))
		return nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return fmt.Errorf("limit %q is not a number", args[0])
	}

	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.engine.SetDayLimit(v); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Printf("  Day limit set to %s\n", cli.FormatPrice(s.engine.DayLimit()))
	}
	return nil
}
