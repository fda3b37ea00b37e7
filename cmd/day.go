package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
)

var flagDayYes bool

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Add or remove planned days",
}

var dayAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append an empty day",
	Args:  cobra.NoArgs,
	RunE:  runDayAdd,
}

var dayRmCmd = &cobra.Command{
	Use:   "rm N",
	Short: "Remove day N (1-based)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDayRm,
}

func init() {
	dayRmCmd.Flags().BoolVarP(&flagDayYes, "yes", "y", false, "Remove a non-empty day without asking")
	dayCmd.AddCommand(dayAddCmd)
	dayCmd.AddCommand(dayRmCmd)
	rootCmd.AddCommand(dayCmd)
}

func runDayAdd(cmd *cobra.Command, _ []string) error {
	return mutate(cmd.Context(), func(e *planner.Engine) error {
		e.AddDay()
		return nil
	})
}

func runDayRm(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("day %q is not a number", args[0])
	}

	return mutate(cmd.Context(), func(e *planner.Engine) error {
		removed, err := e.RemoveDay(n-1, confirmPrompt)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(os.Stderr, "  Kept %s\n", cli.FormatDay(n-1))
		}
		return nil
	})
}

// confirmPrompt asks on the terminal unless --yes was given. A prompt that
// cannot be shown counts as declined.
func confirmPrompt(prompt string) bool {
	if flagDayYes {
		return true
	}

	ok := false
	err := huh.NewConfirm().
		Title(prompt + "?").
		Description("The day still has products selected.").
		Affirmative("Remove").
		Negative("Keep").
		Value(&ok).
		Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s (use --yes to skip the prompt)\n", cli.RenderWarning(err.Error()))
		return false
	}
	return ok
}
