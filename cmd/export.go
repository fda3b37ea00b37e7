package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/mealplan/internal/planner"
)

var (
	flagExportFormat string
	flagExportIDs    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the plan to stdout as JSON or YAML",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", "json", "Output format: json or yaml")
	exportCmd.Flags().BoolVar(&flagExportIDs, "ids", false, "Only product IDs per day, as stored")
	rootCmd.AddCommand(exportCmd)
}

type exportProduct struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Price    float64 `json:"price" yaml:"price"`
	Category string  `json:"category_id" yaml:"category_id"`
}

type exportDay struct {
	Day      int             `json:"day" yaml:"day"`
	Price    float64         `json:"price" yaml:"price"`
	Weight   float64         `json:"weight,omitempty" yaml:"weight,omitempty"`
	Calories float64         `json:"calories,omitempty" yaml:"calories,omitempty"`
	Products []exportProduct `json:"products" yaml:"products"`
}

type exportDoc struct {
	ExportedAt time.Time   `json:"exported_at" yaml:"exported_at"`
	DayLimit   float64     `json:"day_limit" yaml:"day_limit"`
	Total      float64     `json:"total" yaml:"total"`
	Days       []exportDay `json:"days" yaml:"days"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	if flagExportFormat != "json" && flagExportFormat != "yaml" {
		return fmt.Errorf("unknown format %q (json or yaml)", flagExportFormat)
	}

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	var doc any = buildExport(s.engine, time.Now())
	if flagExportIDs {
		doc = s.engine.Export()
	}
	return writeExport(doc, flagExportFormat)
}

func buildExport(e *planner.Engine, now time.Time) exportDoc {
	doc := exportDoc{
		ExportedAt: now.UTC(),
		DayLimit:   e.DayLimit(),
		Total:      e.Summary().Price,
	}
	for _, v := range e.DayViews() {
		day := exportDay{
			Day:      v.Index + 1,
			Price:    v.Totals.Price,
			Weight:   v.Totals.Weight,
			Calories: v.Totals.Calories,
			Products: make([]exportProduct, 0, len(v.Products)),
		}
		for _, p := range v.Products {
			day.Products = append(day.Products, exportProduct{
				ID:       p.ID,
				Name:     p.Name,
				Price:    p.Price,
				Category: p.CategoryID,
			})
		}
		doc.Days = append(doc.Days, day)
	}
	return doc
}

func writeExport(doc any, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
