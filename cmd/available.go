package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
	"github.com/theirongolddev/mealplan/internal/planner"
)

var (
	flagAvailCategories []string
	flagAvailSearch     string
	flagAvailMaxPrice   float64
	flagAvailLimit      int
)

var availableCmd = &cobra.Command{
	Use:   "available",
	Short: "List products that fit the current day",
	Args:  cobra.NoArgs,
	RunE:  runAvailable,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List catalog categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	availableCmd.Flags().StringSliceVarP(&flagAvailCategories, "category", "c", nil, "Only these category IDs (repeatable)")
	availableCmd.Flags().StringVarP(&flagAvailSearch, "search", "s", "", "Match product name or note")
	availableCmd.Flags().Float64Var(&flagAvailMaxPrice, "max-price", 0, "Upper price bound, below the remaining budget")
	availableCmd.Flags().IntVarP(&flagAvailLimit, "limit", "n", 0, "Show at most N products")
	rootCmd.AddCommand(availableCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runAvailable(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Query(planner.Query{
		Categories: flagAvailCategories,
		Search:     flagAvailSearch,
		MaxPrice:   flagAvailMaxPrice,
	})
	if err != nil {
		return err
	}

	products := res.Products
	if flagAvailLimit > 0 && len(products) > flagAvailLimit {
		products = products[:flagAvailLimit]
	}

	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.ID,
			cli.Truncate(p.Name, 32),
			cli.Truncate(p.Note, 28),
			cli.FormatPrice(p.Price),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Available up to %s", cli.FormatPrice(res.MaxPrice)),
		Headers:   []string{"ID", "Product", "Note", "Price"},
		Rows:      rows,
		LabelCols: 3,
	}))
	fmt.Println(cli.RenderKV([][2]string{
		{"Shown", fmt.Sprintf("%d of %d", len(products), len(res.Products))},
		{"Price range", fmt.Sprintf("%s – %s", cli.FormatPrice(res.PriceRange[0]), cli.FormatPrice(res.PriceRange[1]))},
		{"Step", cli.FormatPrice(res.PriceStep)},
	}))
	fmt.Println()
	return nil
}

func runCategories(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	cats := s.engine.Snapshot().UserCategories()
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{c.ID, c.Title, strconv.Itoa(len(c.Products))})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     "Categories",
		Headers:   []string{"ID", "Title", "Products"},
		Rows:      rows,
		LabelCols: 2,
	}))
	fmt.Println()
	return nil
}
