package daemon

import (
	"math"
	"time"

	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/planner"
)

// Event types.
const (
	EventSnapshot = "snapshot"
	EventCatalog  = "catalog_loaded"
	EventPlan     = "plan_changed"
	EventLimit    = "limit_changed"
)

// PlanState is the plan payload served by /v1/plan and carried by events.
type PlanState struct {
	Hydrated        bool            `json:"hydrated"`
	DayLimit        float64         `json:"day_limit"`
	CurrentDayPrice float64         `json:"current_day_price"`
	MaxPrice        float64         `json:"max_price"`
	PriceRange      [2]float64      `json:"price_range"`
	PriceStep       float64         `json:"price_step"`
	Days            []model.DayView `json:"days"`
	Totals          model.Totals    `json:"totals"`
}

// Event is emitted whenever the plan, the day limit or the catalog changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin,omitempty"`
	Rev       int64     `json:"rev,omitempty"`
	// External is set when the change was written by another process.
	External bool      `json:"external"`
	Plan     PlanState `json:"plan"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt        time.Time    `json:"started_at"`
	LastRefreshAt    time.Time    `json:"last_refresh_at"`
	RefreshCount     int64        `json:"refresh_count"`
	CatalogURL       string       `json:"catalog_url,omitempty"`
	CatalogProducts  int          `json:"catalog_products"`
	CatalogFromCache bool         `json:"catalog_from_cache"`
	StorePath        string       `json:"store_path,omitempty"`
	Origin           string       `json:"origin"`
	Hydrated         bool         `json:"hydrated"`
	Days             int          `json:"days"`
	Totals           model.Totals `json:"totals"`
	LastError        string       `json:"last_error,omitempty"`
	WatchError       string       `json:"watch_error,omitempty"`
	EventCount       int          `json:"event_count"`
	SubscriberCount  int          `json:"subscriber_count"`
}

// CategoryInfo is one entry of /v1/categories.
type CategoryInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Products int    `json:"products"`
}

// AvailableResponse is served at /v1/available.
type AvailableResponse struct {
	MaxPrice   float64          `json:"max_price"`
	PriceRange [2]float64       `json:"price_range"`
	PriceStep  float64          `json:"price_step"`
	Products   []*model.Product `json:"products"`
}

// LimitRequest is the body of PUT /v1/limit.
type LimitRequest struct {
	DayLimit float64 `json:"day_limit"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func planStateLocked(e *planner.Engine) PlanState {
	days := e.DayViews()
	for i := range days {
		if days[i].Products == nil {
			days[i].Products = []*model.Product{}
		}
	}
	return PlanState{
		Hydrated:        e.Hydrated(),
		DayLimit:        e.DayLimit(),
		CurrentDayPrice: e.CurrentDayPrice(),
		MaxPrice:        finite(e.MaxPrice()),
		PriceRange:      e.PriceRange(),
		PriceStep:       e.PriceStep(),
		Days:            days,
		Totals:          e.Summary(),
	}
}

// finite maps the unbounded pre-hydration max price to 0 so it encodes as JSON.
func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
