// Package daemon provides the long-running planner service with an HTTP API
// and a server-sent event stream of plan changes.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/mealplan/internal/pipeline"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr            string
	CatalogURL      string
	StorePath       string
	WatchInterval   time.Duration
	RefreshInterval time.Duration // 0 disables periodic catalog refresh
	EventsBuffer    int
}

// CatalogLoader loads the catalog for hydration and refreshes.
type CatalogLoader func(ctx context.Context) (*pipeline.LoadResult, error)

// Service provides the daemon runtime and HTTP API. The engine is only
// touched with mu held.
type Service struct {
	cfg    Config
	db     *store.DB
	engine *planner.Engine
	load   CatalogLoader
	log    logrus.FieldLogger

	mu               sync.RWMutex
	startedAt        time.Time
	lastRefreshAt    time.Time
	refreshCount     int64
	lastError        string
	catalogFromCache bool
	nextEventID      int64
	events           []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service.
func New(cfg Config, db *store.DB, engine *planner.Engine, load CatalogLoader, log logrus.FieldLogger) *Service {
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = 500 * time.Millisecond
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		cfg:       cfg,
		db:        db,
		engine:    engine,
		load:      load,
		log:       log,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/plan", s.handlePlan)
		r.Get("/available", s.handleAvailable)
		r.Get("/categories", s.handleCategories)
		r.Post("/days", s.handleAddDay)
		r.Delete("/days/{index}", s.handleRemoveDay)
		r.Post("/selection/{id}", s.handleSelect)
		r.Delete("/selection/{id}", s.handleUnselect)
		r.Put("/limit", s.handleSetLimit)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// Run starts the HTTP API, the store watcher and catalog refreshes until ctx
// is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("daemon http server: %w", err)
		}
	}()

	sub := s.engine.Subscribe()
	defer sub.Close()

	go func() {
		if err := s.db.Watch(ctx, s.cfg.WatchInterval); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("store watch: %w", err)
		}
	}()

	// Hydrate before serving plan data.
	s.refreshCatalog(ctx)

	var refresh <-chan time.Time
	if s.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		refresh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-refresh:
			s.refreshCatalog(ctx)
		case c, ok := <-sub.Changes:
			if !ok {
				return errors.New("store subscription closed")
			}
			s.handleChange(c)
		case err := <-errCh:
			return err
		}
	}
}

// refreshCatalog loads the catalog and hydrates the engine with it. A failed
// load leaves the previous snapshot in place.
func (s *Service) refreshCatalog(ctx context.Context) {
	res, err := s.load(ctx)
	now := time.Now()

	s.mu.Lock()
	s.lastRefreshAt = now
	s.refreshCount++
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		s.log.WithError(err).Warn("catalog refresh failed")
		return
	}

	s.lastError = ""
	if res.FetchErr != nil {
		s.lastError = res.FetchErr.Error()
	}
	s.catalogFromCache = res.FromCache
	s.engine.Hydrate(res.Snapshot)
	ev := s.newEventLocked(EventCatalog, now, nil)
	s.mu.Unlock()

	if res.CacheErr != nil {
		s.log.WithError(res.CacheErr).Warn("caching catalog")
	}
	s.log.WithFields(logrus.Fields{
		"products":   res.Snapshot.Len(),
		"from_cache": res.FromCache,
	}).Info("catalog loaded")
	s.publishEvent(ev)
}

// handleChange applies a store change written by another process and
// publishes it. Changes made through this daemon are published without
// being re-applied.
func (s *Service) handleChange(c store.Change) {
	s.mu.Lock()
	external := s.engine.ApplyChange(c)
	typ := EventPlan
	if c.Key == planner.KeyDayLimit {
		typ = EventLimit
	}
	ev := s.newEventLocked(typ, c.At, &c)
	ev.External = external
	s.mu.Unlock()

	s.publishEvent(ev)
}

func (s *Service) newEventLocked(typ string, at time.Time, c *store.Change) Event {
	if at.IsZero() {
		at = time.Now()
	}
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: at,
		Plan:      planStateLocked(s.engine),
	}
	if c != nil {
		ev.Origin = c.Origin
		ev.Rev = c.Rev
	}
	return ev
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.engine.Snapshot()
	st := Status{
		StartedAt:        s.startedAt,
		LastRefreshAt:    s.lastRefreshAt,
		RefreshCount:     s.refreshCount,
		CatalogURL:       s.cfg.CatalogURL,
		CatalogProducts:  snap.Len(),
		CatalogFromCache: s.catalogFromCache,
		StorePath:        s.cfg.StorePath,
		Origin:           s.db.Origin(),
		Hydrated:         s.engine.Hydrated(),
		Days:             len(s.engine.Days()),
		Totals:           s.engine.Summary(),
		LastError:        s.lastError,
		EventCount:       len(s.events),
		SubscriberCount:  len(s.subs),
	}
	if err := s.db.WatchErr(); err != nil {
		st.WatchError = err.Error()
	}
	return st
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		entry := s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"uri":        r.RequestURI,
			"status":     ww.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case ww.Status() >= 500:
			entry.Error("request failed")
		case ww.Status() >= 400:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	})
}
