package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
)

var addCmd = &cobra.Command{
	Use:   "add ID...",
	Short: "Add products to the current day",
	Long: "Add products to the current day in order. A day that can no longer afford\n" +
		"the cheapest product is closed and the next product starts a new day.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var rmCmd = &cobra.Command{
	Use:   "rm ID...",
	Short: "Remove products from the plan",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	return mutate(cmd.Context(), func(e *planner.Engine) error {
		var failed []string
		for _, id := range args {
			p, err := e.SelectByID(id)
			switch {
			case err == nil:
				if !flagQuiet {
					fmt.Fprintf(os.Stderr, "  + %s  %s\n", p.Name, cli.FormatPrice(p.Price))
				}
			case errors.Is(err, planner.ErrNotAvailable):
				fmt.Fprintf(os.Stderr, "  %s\n", cli.RenderWarning(
					fmt.Sprintf("%s (%s) is selected, filtered out or over %s", p.Name, cli.FormatPrice(p.Price), cli.FormatPrice(e.MaxPrice()))))
				failed = append(failed, id)
			default:
				fmt.Fprintf(os.Stderr, "  %s\n", cli.RenderWarning(err.Error()))
				failed = append(failed, id)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("could not add %s", joinIDs(failed))
		}
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return mutate(cmd.Context(), func(e *planner.Engine) error {
		var missing []string
		for _, id := range args {
			if !e.UnselectByID(id) {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("not in the plan: %s", joinIDs(missing))
		}
		return nil
	})
}
