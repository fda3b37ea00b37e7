package planner

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/mealplan/internal/catalog"
	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/store"
)

// Hydrate installs the catalog snapshot. The first call also loads the day
// limit and plan from the store; later calls only swap the snapshot and
// rebind the existing days to it.
func (e *Engine) Hydrate(snap *catalog.Snapshot) {
	if snap == nil {
		snap = catalog.Empty()
	}
	e.snap = snap
	e.pruneFilter()

	if e.hydrated {
		e.rebind()
		e.recompute()
		return
	}
	e.hydrated = true

	e.loadDayLimit()
	if e.loadPlan() {
		e.export()
	}
	e.recompute()
}

func (e *Engine) loadDayLimit() {
	var v float64
	ok, err := e.store.Load(KeyDayLimit, &v)
	switch {
	case err != nil:
		e.log.WithError(err).WithField("key", KeyDayLimit).Warn("ignoring stored day limit")
	case !ok:
		e.save(KeyDayLimit, e.dayLimit)
	case !validLimit(v):
		e.log.WithFields(logrus.Fields{"key": KeyDayLimit, "value": v}).Warn("ignoring invalid stored day limit")
	default:
		e.dayLimit = v
	}
}

// loadPlan restores the stored days. It reports false when the stored value
// could not be read, in which case it must stay untouched until the next
// mutation.
func (e *Engine) loadPlan() bool {
	var ids [][]string
	ok, err := e.store.Load(KeyPlan, &ids)
	if err != nil {
		e.log.WithError(err).WithField("key", KeyPlan).Warn("ignoring stored plan")
		return false
	}
	if ok {
		e.days = e.resolve(ids)
	}
	return true
}

// resolve maps stored IDs back to catalog products, keeping stored order and
// dropping unknown or repeated IDs.
func (e *Engine) resolve(ids [][]string) []model.DayBasket {
	known := make(map[string]*model.Product)
	for _, p := range e.snap.AllProducts() {
		known[p.ID] = p
	}

	seen := make(map[string]struct{})
	days := make([]model.DayBasket, 0, len(ids))
	for _, dayIDs := range ids {
		day := model.DayBasket{}
		for _, id := range dayIDs {
			p, ok := known[id]
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			day = append(day, p)
		}
		days = append(days, day)
	}
	return days
}

// rebind points the existing days at the current snapshot's products.
// Products missing from the snapshot keep their previous record.
func (e *Engine) rebind() {
	for i, day := range e.days {
		for j, p := range day {
			if np, ok := e.snap.Product(p.ID); ok {
				e.days[i][j] = np
			}
		}
	}
}

func (e *Engine) pruneFilter() {
	kept := e.filter[:0]
	for _, id := range e.filter {
		if c, ok := e.snap.Category(id); ok && !c.IsSentinel() {
			kept = append(kept, id)
		}
	}
	e.filter = kept
}

// Export returns the persisted form of the plan: product IDs per day.
func (e *Engine) Export() [][]string {
	out := make([][]string, 0, len(e.days))
	for _, d := range e.days {
		out = append(out, d.IDs())
	}
	return out
}

// export persists the plan. Nothing is written before hydration so the
// empty startup state never overwrites a stored plan.
func (e *Engine) export() {
	if !e.hydrated {
		return
	}
	e.save(KeyPlan, e.Export())
}

func (e *Engine) save(key string, v any) {
	if _, err := e.store.Save(key, v); err != nil {
		e.log.WithError(err).WithField("key", key).Warn("persisting plan state")
	}
}

// Subscribe registers for store changes to the plan and day limit. The owner
// passes each received change to ApplyChange and closes the subscription
// when done.
func (e *Engine) Subscribe() store.Subscription {
	return e.store.Subscribe(KeyPlan, KeyDayLimit)
}

// ApplyChange replaces local state with a change written elsewhere. Changes
// made through this engine's own store handle are ignored. It reports whether
// state changed.
func (e *Engine) ApplyChange(c store.Change) bool {
	if c.Origin != "" && c.Origin == e.store.Origin() {
		return false
	}
	if !e.hydrated {
		return false
	}

	switch c.Key {
	case KeyPlan:
		var ids [][]string
		if len(c.New) > 0 {
			if err := json.Unmarshal(c.New, &ids); err != nil {
				e.log.WithError(err).WithField("key", c.Key).Warn("ignoring malformed plan change")
				return false
			}
		}
		e.days = e.resolve(ids)
	case KeyDayLimit:
		if len(c.New) == 0 {
			return false
		}
		var v float64
		if err := json.Unmarshal(c.New, &v); err != nil || !validLimit(v) {
			e.log.WithField("key", c.Key).Warn("ignoring malformed day limit change")
			return false
		}
		e.dayLimit = v
	default:
		return false
	}

	e.recompute()
	return true
}
