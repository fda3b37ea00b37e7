package planner

import (
	"fmt"
	"math"

	"github.com/theirongolddev/mealplan/internal/catalog"
	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/numeric"
	"github.com/theirongolddev/mealplan/internal/pipeline"
)

// Snapshot returns the catalog the engine currently resolves against.
func (e *Engine) Snapshot() *catalog.Snapshot {
	return e.snap
}

// Hydrated reports whether the stored plan has been loaded.
func (e *Engine) Hydrated() bool {
	return e.hydrated
}

// Days returns a copy of the day baskets.
func (e *Engine) Days() []model.DayBasket {
	out := make([]model.DayBasket, len(e.days))
	for i, d := range e.days {
		out[i] = append(model.DayBasket{}, d...)
	}
	return out
}

// DayViews returns every day with its totals.
func (e *Engine) DayViews() []model.DayView {
	return pipeline.SummarizeDays(e.Days())
}

// DayLimit returns the per-day spending limit.
func (e *Engine) DayLimit() float64 {
	return e.dayLimit
}

// Search returns the current search text.
func (e *Engine) Search() string {
	return e.search
}

// Filter returns the active category filter IDs in toggle order.
func (e *Engine) Filter() []string {
	return append([]string(nil), e.filter...)
}

// FilterActive reports whether the category is in the filter set.
func (e *Engine) FilterActive(id string) bool {
	for _, f := range e.filter {
		if f == id {
			return true
		}
	}
	return false
}

// SelectableProducts returns the products of the filtered categories, or of
// every user-facing category when no filter is active.
func (e *Engine) SelectableProducts() []*model.Product {
	return e.selectableFor(e.filter)
}

func (e *Engine) selectableFor(filter []string) []*model.Product {
	if len(filter) == 0 {
		return e.snap.AllProducts()
	}
	cats := make([]*model.Category, 0, len(filter))
	for _, id := range filter {
		if c, ok := e.snap.Category(id); ok {
			cats = append(cats, c)
		}
	}
	return catalog.Flatten(cats)
}

// PriceRange returns the inclusive price bounds of the selectable products.
func (e *Engine) PriceRange() [2]float64 {
	return numeric.Range(pipeline.Prices(e.SelectableProducts()))
}

// PriceStep returns the slider granularity for the price range. Zero means
// no stepping.
func (e *Engine) PriceStep() float64 {
	return numeric.Step(e.PriceRange())
}

// CurrentDayPrice sums the last day.
func (e *Engine) CurrentDayPrice() float64 {
	if len(e.days) == 0 {
		return 0
	}
	return e.days[len(e.days)-1].Price()
}

// MaxPrice returns the current upper bound for available products.
func (e *Engine) MaxPrice() float64 {
	return e.maxPrice
}

// SelectedProducts flattens every day in order.
func (e *Engine) SelectedProducts() []*model.Product {
	var out []*model.Product
	for _, d := range e.days {
		out = append(out, d...)
	}
	return out
}

// Summary totals every selected product.
func (e *Engine) Summary() model.Totals {
	return pipeline.Summarize(e.SelectedProducts())
}

// AvailableProducts returns the selectable products that are not selected,
// fit under MaxPrice and match the search text.
func (e *Engine) AvailableProducts() []*model.Product {
	return e.available(e.SelectableProducts(), e.maxPrice, e.search)
}

func (e *Engine) available(selectable []*model.Product, maxPrice float64, search string) []*model.Product {
	selected := make(map[string]struct{})
	for _, p := range e.SelectedProducts() {
		selected[p.ID] = struct{}{}
	}
	out := pipeline.Exclude(selectable, selected)
	out = pipeline.FilterByMaxPrice(out, maxPrice)
	return pipeline.FilterBySearch(out, search)
}

// Query describes a one-off available-products lookup with its own filters.
// It does not change the engine's filter, search or max price.
type Query struct {
	Categories []string
	Search     string
	// MaxPrice lowers the budget bound when positive.
	MaxPrice float64
}

// QueryResult is the outcome of a Query.
type QueryResult struct {
	Products   []*model.Product
	PriceRange [2]float64
	PriceStep  float64
	MaxPrice   float64
}

// Query evaluates the available view for q against the current plan.
func (e *Engine) Query(q Query) (QueryResult, error) {
	for _, id := range q.Categories {
		c, ok := e.snap.Category(id)
		if !ok || c.IsSentinel() {
			return QueryResult{}, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
		}
	}

	selectable := e.selectableFor(q.Categories)
	r := numeric.Range(pipeline.Prices(selectable))
	bound, _ := e.budgetBound(r)
	if q.MaxPrice > 0 && q.MaxPrice < bound {
		bound = math.Max(r[0], q.MaxPrice)
	}

	return QueryResult{
		Products:   e.available(selectable, bound, q.Search),
		PriceRange: r,
		PriceStep:  numeric.Step(r),
		MaxPrice:   bound,
	}, nil
}
