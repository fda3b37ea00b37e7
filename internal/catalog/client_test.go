package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const productsJSON = `[
	{"id": "1", "name": "Borscht", "note": "with sour cream", "price": "250",
	 "category": {"id": "10", "name": "soups", "title": "Soups"},
	 "meta": {"weight": "300", "calories__portion": "180"}},
	{"id": "2", "name": "Pancakes", "note": "", "price": 120.5,
	 "category": {"id": "20", "name": "breakfast", "title": "Breakfast"}}
]`

const categoriesJSON = `[
	{"id": "0", "name": "all", "title": "All", "products": [
		{"id": "1", "name": "Borscht", "price": "250", "category": {"id": "10"}}
	]},
	{"id": "10", "name": "soups", "title": "Soups", "products": [
		{"id": "1", "name": "Borscht (stale copy)", "price": "999", "category": {"id": "10"}},
		{"id": "3", "name": "Shchi", "price": "200", "category": {"id": ""}}
	]},
	{"id": "20", "name": "breakfast", "title": "", "products": [
		{"id": "2", "name": "Pancakes", "price": 120.5, "category": {"id": "20"}},
		{"id": "2", "name": "Pancakes", "price": 120.5, "category": {"id": "20"}}
	]}
]`

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(productsJSON))
	})
	mux.HandleFunc("/api/v1/categories", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(categoriesJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPriceUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		err  bool
	}{
		{`250`, 250, false},
		{`120.5`, 120.5, false},
		{`"250"`, 250, false},
		{`" 99.9 "`, 99.9, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"free"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		var p Price
		err := json.Unmarshal([]byte(tt.raw), &p)
		if tt.err {
			if err == nil {
				t.Errorf("Unmarshal(%s) = %v, want error", tt.raw, float64(p))
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.raw, err)
			continue
		}
		if float64(p) != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.raw, float64(p), tt.want)
		}
	}
}

func TestPriceMarshalsAsNumber(t *testing.T) {
	out, err := json.Marshal(struct {
		P Price `json:"p"`
	}{P: 250})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"p":250}` {
		t.Errorf("Marshal = %s, want {\"p\":250}", out)
	}
}

func TestFetchSnapshot(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(srv.URL + "/api/v1/")

	snap, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}

	if snap.Len() != 3 {
		t.Errorf("Len = %d, want 3", snap.Len())
	}

	borscht, ok := snap.Product("1")
	if !ok {
		t.Fatal("product 1 missing")
	}
	if borscht.Price != 250 || borscht.Name != "Borscht" {
		t.Errorf("product 1 = %+v, want product-list copy", borscht)
	}
	if borscht.Metadata["weight"] != "300" {
		t.Errorf("weight = %q, want 300", borscht.Metadata["weight"])
	}

	soups, ok := snap.Category("10")
	if !ok {
		t.Fatal("category 10 missing")
	}
	if soups.Products[0] != borscht {
		t.Error("category product is not the canonical pointer")
	}
	if shchi := soups.Products[1]; shchi.CategoryID != "10" {
		t.Errorf("Shchi CategoryID = %q, want fallback 10", shchi.CategoryID)
	}

	breakfast, _ := snap.Category("20")
	if breakfast.Title != "breakfast" {
		t.Errorf("Title = %q, want name fallback", breakfast.Title)
	}
	if len(breakfast.Products) != 1 {
		t.Errorf("breakfast products = %d, want 1 after dedupe", len(breakfast.Products))
	}

	if got := len(snap.UserCategories()); got != 2 {
		t.Errorf("UserCategories = %d, want 2", got)
	}
	all := snap.AllProducts()
	if len(all) != 3 {
		t.Fatalf("AllProducts = %d, want 3", len(all))
	}
	if all[0].ID != "1" || all[1].ID != "3" || all[2].ID != "2" {
		t.Errorf("AllProducts order = %s,%s,%s, want 1,3,2", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewClient(srv.URL).Fetch(context.Background())
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchProducts(context.Background())
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited) {
		t.Errorf("404 mapped to sentinel: %v", err)
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).Fetch(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	if got := NewClient("").BaseURL(); got != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", got, DefaultBaseURL)
	}
	if got := NewClient(" http://x/api/ ").BaseURL(); got != "http://x/api" {
		t.Errorf("BaseURL = %q, want trimmed", got)
	}
}
