// Package planner implements the plan-allocation engine: per-day baskets, the
// rolling day budget with automatic rollover, filtered product views and
// synchronization with the persistent store.
//
// An Engine is not safe for concurrent use. Its owner serializes calls.
package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/mealplan/internal/catalog"
	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/store"
)

// Store keys.
const (
	KeyPlan     = "productsByDay"
	KeyDayLimit = "dayLimit"
)

// DefaultDayLimit applies when no day limit has been stored.
const DefaultDayLimit = 370.0

var (
	// ErrDayOutOfRange is returned for a day index outside the plan.
	ErrDayOutOfRange = errors.New("planner: day index out of range")
	// ErrUnknownProduct is returned for an ID the catalog does not contain.
	ErrUnknownProduct = errors.New("planner: unknown product")
	// ErrNotAvailable is returned when a product exists but is not in the
	// available view (already selected, filtered out or over the max price).
	ErrNotAvailable = errors.New("planner: product not available")
	// ErrUnknownCategory is returned when toggling a category that cannot be
	// used as a filter.
	ErrUnknownCategory = errors.New("planner: unknown category")
	// ErrInvalidDayLimit is returned for a non-positive or non-finite limit.
	ErrInvalidDayLimit = errors.New("planner: day limit must be positive and finite")
)

// Store is the persistence the engine needs.
type Store interface {
	Load(key string, dst any) (bool, error)
	Save(key string, v any) (bool, error)
	Subscribe(keys ...string) store.Subscription
	Origin() string
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) bool

// Engine owns the plan state.
type Engine struct {
	store        Store
	log          logrus.FieldLogger
	defaultLimit float64

	snap     *catalog.Snapshot
	hydrated bool

	days     []model.DayBasket
	dayLimit float64
	maxPrice float64
	search   string
	filter   []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for swallowed persistence failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDefaultDayLimit overrides the limit written when none is stored.
func WithDefaultDayLimit(v float64) Option {
	return func(e *Engine) {
		if validLimit(v) {
			e.defaultLimit = v
		}
	}
}

// New creates an empty engine. Call Hydrate once the catalog is available.
func New(s Store, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		log:          logrus.StandardLogger(),
		defaultLimit: DefaultDayLimit,
		snap:         catalog.Empty(),
		maxPrice:     math.Inf(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dayLimit = e.defaultLimit
	return e
}

func validLimit(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// AddDay appends an empty day.
func (e *Engine) AddDay() {
	e.addDay()
	e.export()
	e.recompute()
}

func (e *Engine) addDay() {
	e.days = append(e.days, model.DayBasket{})
}

// RemoveDay removes the day at index. Removing a non-empty day requires
// confirm to approve the prompt "Remove day N"; a nil confirm declines. It
// reports whether the day was removed.
func (e *Engine) RemoveDay(index int, confirm ConfirmFunc) (bool, error) {
	if index < 0 || index >= len(e.days) {
		return false, fmt.Errorf("%w: %d (have %d)", ErrDayOutOfRange, index+1, len(e.days))
	}
	if len(e.days[index]) > 0 {
		if confirm == nil || !confirm(fmt.Sprintf("Remove day %d", index+1)) {
			return false, nil
		}
	}

	days := make([]model.DayBasket, 0, len(e.days)-1)
	days = append(days, e.days[:index]...)
	days = append(days, e.days[index+1:]...)
	e.days = days

	e.export()
	e.recompute()
	return true, nil
}

// SelectProduct appends p to the last day, creating the first day when the
// plan is empty. Callers pick p from AvailableProducts; duplicates are not
// re-checked here.
func (e *Engine) SelectProduct(p *model.Product) {
	if len(e.days) == 0 {
		e.addDay()
	}
	last := len(e.days) - 1
	e.days[last] = append(e.days[last], p)

	e.export()
	e.recompute()
}

// SelectByID selects the available product with the given ID.
func (e *Engine) SelectByID(id string) (*model.Product, error) {
	p, ok := e.snap.Product(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	for _, a := range e.AvailableProducts() {
		if a.ID == id {
			e.SelectProduct(a)
			return a, nil
		}
	}
	return p, fmt.Errorf("%w: %s", ErrNotAvailable, id)
}

// UnselectProduct removes p from the first day holding it. It reports
// whether anything was removed.
func (e *Engine) UnselectProduct(p *model.Product) bool {
	if p == nil {
		return false
	}
	return e.UnselectByID(p.ID)
}

// UnselectByID removes the product with the given ID from the first day
// holding it.
func (e *Engine) UnselectByID(id string) bool {
	removed := false
	for i, day := range e.days {
		for j, p := range day {
			if p.ID != id {
				continue
			}
			next := make(model.DayBasket, 0, len(day)-1)
			next = append(next, day[:j]...)
			next = append(next, day[j+1:]...)
			e.days[i] = next
			removed = true
			break
		}
		if removed {
			break
		}
	}

	e.export()
	e.recompute()
	return removed
}

// ToggleCategory adds the category to the filter set, or removes it when
// already present.
func (e *Engine) ToggleCategory(id string) error {
	for i, f := range e.filter {
		if f == id {
			e.filter = append(e.filter[:i:i], e.filter[i+1:]...)
			e.recompute()
			return nil
		}
	}

	c, ok := e.snap.Category(id)
	if !ok || c.IsSentinel() {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	e.filter = append(e.filter, id)
	e.recompute()
	return nil
}

// ClearFilter drops every category filter.
func (e *Engine) ClearFilter() {
	e.filter = nil
	e.recompute()
}

// SetSearch sets the search text matched against product name and note.
func (e *Engine) SetSearch(text string) {
	e.search = text
}

// SetDayLimit sets and persists the per-day spending limit.
func (e *Engine) SetDayLimit(v float64) error {
	if !validLimit(v) {
		return fmt.Errorf("%w: %v", ErrInvalidDayLimit, v)
	}
	e.dayLimit = v
	e.save(KeyDayLimit, v)
	e.recompute()
	return nil
}

// SetMaxPrice moves the max-price bound within the current price range.
func (e *Engine) SetMaxPrice(v float64) {
	if math.IsNaN(v) {
		return
	}
	r := e.PriceRange()
	e.maxPrice = math.Max(r[0], math.Min(r[1], v))
}

// recompute applies the rollover rule: the max price follows the remaining
// budget of the current day, and a day that can no longer afford the
// cheapest selectable product is closed by appending a fresh one.
func (e *Engine) recompute() {
	bound, exhausted := e.budgetBound(e.PriceRange())
	e.maxPrice = bound
	if !exhausted {
		return
	}

	if n := len(e.days); n > 0 && len(e.days[n-1]) > 0 {
		e.addDay()
		e.export()
		e.recompute()
	}
}

// budgetBound returns the max price allowed by the current day's remaining
// budget within r, and whether the day can no longer afford r's cheapest item.
func (e *Engine) budgetBound(r [2]float64) (float64, bool) {
	remaining := e.dayLimit - e.CurrentDayPrice()
	if remaining >= r[0] {
		return math.Min(r[1], remaining), false
	}
	return r[1], true
}
