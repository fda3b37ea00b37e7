package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
)

var flagPlanDetail bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the planned days and their budgets",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVarP(&flagPlanDetail, "detail", "d", false, "List every product of every day")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	printPlan(s.engine, flagPlanDetail)
	return nil
}

// printPlan renders the overview shared by plan and the mutating commands.
func printPlan(e *planner.Engine, detail bool) {
	views := e.DayViews()
	limit := e.DayLimit()

	fmt.Println()
	fmt.Println(cli.RenderTitle("MEAL PLAN"))
	fmt.Println()

	if len(views) == 0 {
		fmt.Println(cli.RenderMuted("  No days planned yet. Add products with `mealplan add ID`."))
		fmt.Println()
		return
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			cli.FormatDay(v.Index),
			strconv.Itoa(v.Totals.Count),
			cli.FormatPrice(v.Totals.Price),
			cli.FormatWeight(v.Totals.Weight),
			cli.FormatCalories(v.Totals.Calories),
			cli.RenderBudgetBar(v.Totals.Price, limit, 16),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Days (limit %s)", cli.FormatPrice(limit)),
		Headers: []string{"Day", "Items", "Price", "Weight", "Calories", "Budget"},
		Rows:    rows,
	}))

	if detail {
		for _, v := range views {
			if len(v.Products) == 0 {
				continue
			}
			prows := make([][]string, 0, len(v.Products))
			for _, p := range v.Products {
				prows = append(prows, []string{p.ID, cli.Truncate(p.Name, 32), cli.FormatPrice(p.Price)})
			}
			fmt.Print(cli.RenderTable(cli.Table{
				Title:     cli.FormatDay(v.Index),
				Headers:   []string{"ID", "Product", "Price"},
				Rows:      prows,
				LabelCols: 2,
			}))
		}
	}

	sum := e.Summary()
	fmt.Println(cli.RenderKV([][2]string{
		{"Products", strconv.Itoa(sum.Count)},
		{"Total", cli.FormatPrice(sum.Price)},
		{"Today", fmt.Sprintf("%s of %s", cli.FormatPrice(e.CurrentDayPrice()), cli.FormatPrice(limit))},
		{"Max price", cli.FormatPrice(e.MaxPrice())},
	}))
	fmt.Println()
}

// mutate opens a hydrated session, applies fn and prints the resulting plan.
func mutate(ctx context.Context, fn func(*planner.Engine) error) error {
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s.engine); err != nil {
		return err
	}
	if !flagQuiet {
		printPlan(s.engine, false)
	}
	return nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
