package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/planner"
)

var (
	errNotHydrated     = errors.New("catalog not loaded yet")
	errBadRequest      = errors.New("bad request")
	errConfirmRequired = errors.New("confirmation required")
	errNotSelected     = errors.New("product not selected")
)

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handlePlan(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	state := planStateLocked(s.engine)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, state)
}

func (s *Service) handleAvailable(w http.ResponseWriter, r *http.Request) {
	q := planner.Query{
		Categories: r.URL.Query()["category"],
		Search:     r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			s.writeError(w, fmt.Errorf("%w: max_price %q", errBadRequest, raw))
			return
		}
		q.MaxPrice = v
	}

	s.mu.RLock()
	res, err := s.engine.Query(q)
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}

	products := res.Products
	if products == nil {
		products = []*model.Product{}
	}
	writeJSON(w, http.StatusOK, AvailableResponse{
		MaxPrice:   finite(res.MaxPrice),
		PriceRange: res.PriceRange,
		PriceStep:  res.PriceStep,
		Products:   products,
	})
}

func (s *Service) handleCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	cats := s.engine.Snapshot().UserCategories()
	s.mu.RUnlock()

	out := make([]CategoryInfo, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryInfo{ID: c.ID, Title: c.Title, Products: len(c.Products)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleAddDay(w http.ResponseWriter, _ *http.Request) {
	s.mutate(w, http.StatusCreated, func(e *planner.Engine) error {
		e.AddDay()
		return nil
	})
}

func (s *Service) handleRemoveDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	day, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: day %q", errBadRequest, raw))
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"

	s.mutate(w, http.StatusOK, func(e *planner.Engine) error {
		var prompt string
		removed, err := e.RemoveDay(day-1, func(p string) bool {
			prompt = p
			return confirmed
		})
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: %s", errConfirmRequired, prompt)
		}
		return nil
	})
}

func (s *Service) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutate(w, http.StatusCreated, func(e *planner.Engine) error {
		_, err := e.SelectByID(id)
		return err
	})
}

func (s *Service) handleUnselect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutate(w, http.StatusOK, func(e *planner.Engine) error {
		if !e.UnselectByID(id) {
			return fmt.Errorf("%w: %s", errNotSelected, id)
		}
		return nil
	})
}

func (s *Service) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var req LimitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.mutate(w, http.StatusOK, func(e *planner.Engine) error {
		return e.SetDayLimit(req.DayLimit)
	})
}

// mutate runs fn against a hydrated engine and replies with the new plan.
func (s *Service) mutate(w http.ResponseWriter, status int, fn func(*planner.Engine) error) {
	s.mu.Lock()
	if !s.engine.Hydrated() {
		s.mu.Unlock()
		s.writeError(w, errNotHydrated)
		return
	}
	err := fn(s.engine)
	state := planStateLocked(s.engine)
	s.mu.Unlock()

	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, state)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current plan immediately.
	s.mu.RLock()
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Plan:      planStateLocked(s.engine),
	}
	s.mu.RUnlock()
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine and request errors to HTTP replies.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, planner.ErrInvalidDayLimit):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, planner.ErrUnknownCategory):
		status, code = http.StatusBadRequest, "unknown_category"
	case errors.Is(err, planner.ErrDayOutOfRange):
		status, code = http.StatusNotFound, "day_not_found"
	case errors.Is(err, planner.ErrUnknownProduct):
		status, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, errNotSelected):
		status, code = http.StatusNotFound, "not_selected"
	case errors.Is(err, planner.ErrNotAvailable):
		status, code = http.StatusConflict, "not_available"
	case errors.Is(err, errConfirmRequired):
		status, code = http.StatusConflict, "confirmation_required"
	case errors.Is(err, errNotHydrated):
		status, code = http.StatusServiceUnavailable, "catalog_unavailable"
	}

	if status >= 500 {
		s.log.WithError(err).Error("request error")
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}
