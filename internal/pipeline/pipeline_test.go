package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/mealplan/internal/catalog"
	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/store"
)

type stubFetcher struct {
	payload *catalog.Payload
	err     error
	calls   int
}

func (s *stubFetcher) Fetch(_ context.Context) (*catalog.Payload, error) {
	s.calls++
	return s.payload, s.err
}

func samplePayload() *catalog.Payload {
	soup := catalog.Product{ID: "1", Name: "Borscht", Price: 250, Category: catalog.CategoryRef{ID: "10"}}
	return &catalog.Payload{
		Products: []catalog.Product{soup},
		Categories: []catalog.Category{
			{CategoryRef: catalog.CategoryRef{ID: "10", Title: "Soups"}, Products: []catalog.Product{soup}},
		},
	}
}

func openCache(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "plan.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadCatalogLiveRefreshesCache(t *testing.T) {
	cache := openCache(t)
	f := &stubFetcher{payload: samplePayload()}

	res, err := LoadCatalog(context.Background(), f, cache, true)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if res.FromCache {
		t.Error("FromCache = true for a live fetch")
	}
	if res.Snapshot.Len() != 1 {
		t.Errorf("Len = %d, want 1", res.Snapshot.Len())
	}
	if _, _, ok, _ := cache.LoadCatalog(); !ok {
		t.Error("cache not populated after live fetch")
	}
}

func TestLoadCatalogFallsBackToCache(t *testing.T) {
	cache := openCache(t)
	if _, err := LoadCatalog(context.Background(), &stubFetcher{payload: samplePayload()}, cache, true); err != nil {
		t.Fatalf("priming: %v", err)
	}

	down := &stubFetcher{err: catalog.ErrUnavailable}
	res, err := LoadCatalog(context.Background(), down, cache, true)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if !res.FromCache {
		t.Error("FromCache = false, want true")
	}
	if !errors.Is(res.FetchErr, catalog.ErrUnavailable) {
		t.Errorf("FetchErr = %v, want ErrUnavailable", res.FetchErr)
	}
	p, ok := res.Snapshot.Product("1")
	if !ok || p.Price != 250 {
		t.Errorf("cached product = %+v, %v", p, ok)
	}
}

func TestLoadCatalogNoCacheDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name     string
		useCache bool
	}{
		{"cache disabled", false},
		{"cache empty", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := openCache(t)
			res, err := LoadCatalog(context.Background(), &stubFetcher{err: catalog.ErrRateLimited}, cache, tt.useCache)
			if !errors.Is(err, catalog.ErrRateLimited) {
				t.Errorf("err = %v, want ErrRateLimited", err)
			}
			if res == nil || res.Snapshot == nil {
				t.Fatal("nil snapshot on failure")
			}
			if res.Snapshot.Len() != 0 || len(res.Snapshot.AllProducts()) != 0 {
				t.Error("snapshot not empty")
			}
		})
	}
}

func product(id, name, note string, price float64, meta map[string]string) *model.Product {
	return &model.Product{ID: id, Name: name, Note: note, Price: price, Metadata: meta}
}

func TestSummarize(t *testing.T) {
	products := []*model.Product{
		product("1", "a", "", 250, map[string]string{"weight": "300", "calories__portion": "180.5"}),
		product("2", "b", "", 120, map[string]string{"weight": "n/a"}),
		product("3", "c", "", 0, nil),
	}
	got := Summarize(products)
	want := model.Totals{Count: 3, Price: 370, Weight: 300, Calories: 180.5}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
	if empty := Summarize(nil); empty != (model.Totals{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", empty)
	}
}

func TestSummarizeDays(t *testing.T) {
	days := []model.DayBasket{
		{product("1", "a", "", 100, nil)},
		{},
	}
	views := SummarizeDays(days)
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2", len(views))
	}
	if views[0].Totals.Price != 100 || views[1].Index != 1 || views[1].Totals.Count != 0 {
		t.Errorf("views = %+v", views)
	}
}

func TestFilterBySearch(t *testing.T) {
	products := []*model.Product{
		product("1", "Borscht", "Beet soup", 250, nil),
		product("2", "Pancakes", "with HONEY", 120, nil),
	}
	tests := []struct {
		text string
		want []string
	}{
		{"", []string{"1", "2"}},
		{"BORSCHT", []string{"1"}},
		{"honey", []string{"2"}},
		{"soup", []string{"1"}},
		{"pizza", nil},
	}
	for _, tt := range tests {
		got := ids(FilterBySearch(products, tt.text))
		if !equal(got, tt.want) {
			t.Errorf("FilterBySearch(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestFilterByMaxPriceAndExclude(t *testing.T) {
	products := []*model.Product{
		product("1", "a", "", 250, nil),
		product("2", "b", "", 120, nil),
		product("3", "c", "", 121, nil),
	}
	if got := ids(FilterByMaxPrice(products, 120)); !equal(got, []string{"2"}) {
		t.Errorf("FilterByMaxPrice(120) = %v, want [2]", got)
	}
	got := ids(Exclude(products, map[string]struct{}{"1": {}, "3": {}}))
	if !equal(got, []string{"2"}) {
		t.Errorf("Exclude = %v, want [2]", got)
	}
}

func TestCacheDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	if got := CacheDir(); got != "/tmp/xdg-cache/mealplan" {
		t.Errorf("CacheDir = %q", got)
	}
	if got := LogPath(); got != "/tmp/xdg-cache/mealplan/mealplan.log" {
		t.Errorf("LogPath = %q", got)
	}
}

func ids(products []*model.Product) []string {
	var out []string
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

