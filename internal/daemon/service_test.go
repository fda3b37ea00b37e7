package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/mealplan/internal/catalog"
	"github.com/theirongolddev/mealplan/internal/pipeline"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/store"
)

func testPayload() *catalog.Payload {
	mk := func(id, cat, name string, price float64) catalog.Product {
		return catalog.Product{ID: id, Name: name, Price: catalog.Price(price), Category: catalog.CategoryRef{ID: cat}}
	}
	soup := mk("1", "10", "Borscht", 250)
	tea := mk("2", "20", "Tea", 20)
	cake := mk("3", "20", "Cake", 150)
	return &catalog.Payload{
		Categories: []catalog.Category{
			{CategoryRef: catalog.CategoryRef{ID: "0", Title: "All"}, Products: []catalog.Product{soup, tea, cake}},
			{CategoryRef: catalog.CategoryRef{ID: "10", Title: "Soups"}, Products: []catalog.Product{soup}},
			{CategoryRef: catalog.CategoryRef{ID: "20", Title: "Drinks"}, Products: []catalog.Product{tea, cake}},
		},
	}
}

type fixture struct {
	svc *Service
	db  *store.DB
	srv *httptest.Server
}

func newFixture(t *testing.T, loadErr error) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger, _ := logtest.NewNullLogger()
	engine := planner.New(db, planner.WithLogger(logger))
	load := func(context.Context) (*pipeline.LoadResult, error) {
		if loadErr != nil {
			return &pipeline.LoadResult{Snapshot: catalog.Empty()}, loadErr
		}
		return &pipeline.LoadResult{Snapshot: testPayload().Snapshot(time.Now())}, nil
	}

	svc := New(Config{StorePath: path, EventsBuffer: 50}, db, engine, load, logger)
	svc.refreshCatalog(context.Background())

	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return &fixture{svc: svc, db: db, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodePlan(t *testing.T, body []byte) PlanState {
	t.Helper()
	var state PlanState
	require.NoError(t, json.Unmarshal(body, &state))
	return state
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestPlanLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/v1/plan", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodePlan(t, body)
	assert.True(t, state.Hydrated)
	assert.Equal(t, planner.DefaultDayLimit, state.DayLimit)
	assert.Equal(t, [2]float64{20, 250}, state.PriceRange)
	assert.Empty(t, state.Days)

	resp, body = f.do(t, http.MethodPost, "/v1/selection/1", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	state = decodePlan(t, body)
	require.Len(t, state.Days, 1)
	assert.Equal(t, "1", state.Days[0].Products[0].ID)
	assert.Equal(t, 250.0, state.CurrentDayPrice)
	assert.Equal(t, 120.0, state.MaxPrice)

	resp, body = f.do(t, http.MethodPost, "/v1/selection/1", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_available", decodeError(t, body).Code)

	resp, body = f.do(t, http.MethodPost, "/v1/selection/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "product_not_found", decodeError(t, body).Code)

	resp, body = f.do(t, http.MethodDelete, "/v1/days/1", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "confirmation_required", e.Code)
	assert.Contains(t, e.Message, "Remove day 1")

	resp, body = f.do(t, http.MethodDelete, "/v1/days/1?confirm=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodePlan(t, body).Days)

	resp, body = f.do(t, http.MethodDelete, "/v1/days/3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "day_not_found", decodeError(t, body).Code)

	resp, _ = f.do(t, http.MethodDelete, "/v1/days/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/v1/days", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, decodePlan(t, body).Days, 1)
}

func TestUnselect(t *testing.T) {
	f := newFixture(t, nil)

	resp, _ := f.do(t, http.MethodPost, "/v1/selection/2", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodDelete, "/v1/selection/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodePlan(t, body)
	require.Len(t, state.Days, 1)
	assert.Empty(t, state.Days[0].Products)

	resp, body = f.do(t, http.MethodDelete, "/v1/selection/2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_selected", decodeError(t, body).Code)
}

func TestSetLimit(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodPut, "/v1/limit", `{"day_limit": 500}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 500.0, decodePlan(t, body).DayLimit)

	var stored float64
	ok, err := f.db.Load(planner.KeyDayLimit, &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 500.0, stored)

	resp, body = f.do(t, http.MethodPut, "/v1/limit", `{"day_limit": -1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decodeError(t, body).Code)

	resp, _ = f.do(t, http.MethodPut, "/v1/limit", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAvailableAndCategories(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/v1/available?category=20&search=TEA", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var avail AvailableResponse
	require.NoError(t, json.Unmarshal(body, &avail))
	require.Len(t, avail.Products, 1)
	assert.Equal(t, "2", avail.Products[0].ID)
	assert.Equal(t, [2]float64{20, 150}, avail.PriceRange)
	assert.Equal(t, 10.0, avail.PriceStep)

	resp, body = f.do(t, http.MethodGet, "/v1/available?max_price=100", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &avail))
	assert.Equal(t, 100.0, avail.MaxPrice)
	require.Len(t, avail.Products, 1)

	resp, body = f.do(t, http.MethodGet, "/v1/available?category=0", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_category", decodeError(t, body).Code)

	resp, _ = f.do(t, http.MethodGet, "/v1/available?max_price=cheap", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/v1/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cats []CategoryInfo
	require.NoError(t, json.Unmarshal(body, &cats))
	assert.Equal(t, []CategoryInfo{{ID: "10", Title: "Soups", Products: 1}, {ID: "20", Title: "Drinks", Products: 2}}, cats)
}

func TestMutationsRejectedUntilCatalogLoads(t *testing.T) {
	f := newFixture(t, catalog.ErrUnavailable)

	resp, body := f.do(t, http.MethodPost, "/v1/days", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "catalog_unavailable", decodeError(t, body).Code)

	resp, body = f.do(t, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.False(t, st.Hydrated)
	assert.Contains(t, st.LastError, "unavailable")
	assert.Equal(t, int64(1), st.RefreshCount)
}

func TestHandleChangePublishesEvents(t *testing.T) {
	f := newFixture(t, nil)

	other, err := store.Open(f.svc.cfg.StorePath)
	require.NoError(t, err)
	defer func() { _ = other.Close() }()

	sub := f.svc.engine.Subscribe()
	defer sub.Close()

	_, err = other.Save(planner.KeyPlan, [][]string{{"2", "3"}})
	require.NoError(t, err)
	_, err = f.db.Poll(context.Background())
	require.NoError(t, err)

	select {
	case c := <-sub.Changes:
		f.svc.handleChange(c)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	resp, body := f.do(t, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []Event
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 2)
	assert.Equal(t, EventCatalog, events[0].Type)
	last := events[1]
	assert.Equal(t, EventPlan, last.Type)
	assert.True(t, last.External)
	assert.Equal(t, other.Origin(), last.Origin)
	require.Len(t, last.Plan.Days, 1)
	assert.Equal(t, 2, last.Plan.Totals.Count)
}

func TestPublishEventRingBuffer(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.cfg.EventsBuffer = 2

	f.svc.publishEvent(Event{ID: 101})
	f.svc.publishEvent(Event{ID: 102})
	f.svc.publishEvent(Event{ID: 103})

	f.svc.mu.RLock()
	defer f.svc.mu.RUnlock()

	require.Len(t, f.svc.events, 2)
	assert.Equal(t, int64(102), f.svc.events[0].ID)
	assert.Equal(t, int64(103), f.svc.events[1].ID)
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", prefix)
				}
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	assert.Equal(t, "event: snapshot", waitFor("event: "))
	waitFor("data: ")

	require.Eventually(t, func() bool {
		return f.svc.snapshotStatus().SubscriberCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.svc.publishEvent(Event{ID: 7, Type: EventLimit})
	assert.Equal(t, "id: 7", waitFor("id: "))
	assert.Equal(t, "event: limit_changed", waitFor("event: "))
}

func TestRunServesAndStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	logger, _ := logtest.NewNullLogger()
	engine := planner.New(db, planner.WithLogger(logger))
	load := func(context.Context) (*pipeline.LoadResult, error) {
		return &pipeline.LoadResult{Snapshot: testPayload().Snapshot(time.Now())}, nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	svc := New(Config{Addr: addr, WatchInterval: 20 * time.Millisecond}, db, engine, load, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/v1/status")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		var st Status
		return json.NewDecoder(resp.Body).Decode(&st) == nil && st.Hydrated
	}, 3*time.Second, 20*time.Millisecond)

	// A write from another handle reaches the daemon through the watcher.
	other, err := store.Open(path)
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	_, err = other.Save(planner.KeyDayLimit, 444)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		svc.mu.RLock()
		defer svc.mu.RUnlock()
		return svc.engine.DayLimit() == 444
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
