package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/cli"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the plan store",
	Args:  cobra.NoArgs,
	RunE:  runStoreList,
}

var storeRmCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Delete a stored key",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreRm,
}

var storeClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop the cached catalog",
	Args:  cobra.NoArgs,
	RunE:  runStoreClearCache,
}

func init() {
	storeCmd.AddCommand(storeRmCmd)
	storeCmd.AddCommand(storeClearCacheCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStoreList(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.db.Keys()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Key,
			cli.FormatBytes(int64(e.Size)),
			strconv.FormatInt(e.Rev, 10),
			cli.FormatAge(e.UpdatedAt),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderKV([][2]string{
		{"Path", s.db.Path()},
		{"Origin", s.db.Origin()},
	}))
	fmt.Println()
	if len(rows) == 0 {
		fmt.Println(cli.RenderMuted("  The store is empty."))
		fmt.Println()
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     "Keys",
		Headers:   []string{"Key", "Size", "Rev", "Updated"},
		Rows:      rows,
		LabelCols: 1,
	}))
	fmt.Println()
	return nil
}

func runStoreRm(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.Delete(args[0]); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Printf("  Deleted %s\n", args[0])
	}
	return nil
}

func runStoreClearCache(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.ClearCatalog(); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Println("  Cached catalog cleared")
	}
	return nil
}
