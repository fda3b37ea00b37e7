package pipeline

import (
	"strconv"
	"strings"

	"github.com/theirongolddev/mealplan/internal/model"
)

// Summarize computes totals over a set of products. Weight and calories come
// from product metadata; values that do not parse count as zero.
func Summarize(products []*model.Product) model.Totals {
	var t model.Totals
	for _, p := range products {
		t.Count++
		t.Price += p.Price
		t.Weight += metaNumber(p, model.MetaWeight)
		t.Calories += metaNumber(p, model.MetaCalories)
	}
	return t
}

// SummarizeDays renders each basket with its totals.
func SummarizeDays(days []model.DayBasket) []model.DayView {
	views := make([]model.DayView, 0, len(days))
	for i, d := range days {
		views = append(views, model.DayView{
			Index:    i,
			Products: d,
			Totals:   Summarize(d),
		})
	}
	return views
}

func metaNumber(p *model.Product, key string) float64 {
	raw, ok := p.Metadata[key]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// FilterBySearch keeps products whose name or note contains text, ignoring
// case. An empty text keeps everything.
func FilterBySearch(products []*model.Product, text string) []*model.Product {
	needle := strings.ToLower(text)
	out := make([]*model.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Note), needle) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByMaxPrice keeps products priced at or below limit.
func FilterByMaxPrice(products []*model.Product, limit float64) []*model.Product {
	out := make([]*model.Product, 0, len(products))
	for _, p := range products {
		if p.Price <= limit {
			out = append(out, p)
		}
	}
	return out
}

// Exclude drops products whose ID is in the given set.
func Exclude(products []*model.Product, ids map[string]struct{}) []*model.Product {
	out := make([]*model.Product, 0, len(products))
	for _, p := range products {
		if _, skip := ids[p.ID]; !skip {
			out = append(out, p)
		}
	}
	return out
}

// Prices extracts the price of each product.
func Prices(products []*model.Product) []float64 {
	out := make([]float64, len(products))
	for i, p := range products {
		out[i] = p.Price
	}
	return out
}
