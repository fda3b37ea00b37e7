package catalog

import (
	"time"

	"github.com/theirongolddev/mealplan/internal/model"
)

// Snapshot is an immutable, resolved view of the catalog. Each product ID maps
// to exactly one *model.Product, so pointer equality and ID equality agree
// within a snapshot.
type Snapshot struct {
	FetchedAt  time.Time
	categories []*model.Category
	byID       map[string]*model.Product
	order      []*model.Product
}

// Empty returns a snapshot with no products or categories.
func Empty() *Snapshot {
	return &Snapshot{byID: map[string]*model.Product{}}
}

// Snapshot resolves the payload into domain types. Entries from the product
// list win over the copies embedded in categories.
func (p *Payload) Snapshot(fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		FetchedAt: fetchedAt,
		byID:      make(map[string]*model.Product, len(p.Products)),
	}

	for _, raw := range p.Products {
		s.intern(raw, raw.Category.ID)
	}

	for _, rc := range p.Categories {
		cat := &model.Category{ID: rc.ID, Title: rc.Title}
		if cat.Title == "" {
			cat.Title = rc.Name
		}
		seen := make(map[string]struct{}, len(rc.Products))
		for _, raw := range rc.Products {
			if _, dup := seen[raw.ID]; dup {
				continue
			}
			seen[raw.ID] = struct{}{}
			cat.Products = append(cat.Products, s.intern(raw, rc.ID))
		}
		s.categories = append(s.categories, cat)
	}

	return s
}

func (s *Snapshot) intern(raw Product, fallbackCategory string) *model.Product {
	if p, ok := s.byID[raw.ID]; ok {
		return p
	}
	categoryID := raw.Category.ID
	if categoryID == "" {
		categoryID = fallbackCategory
	}
	p := &model.Product{
		ID:         raw.ID,
		Name:       raw.Name,
		Note:       raw.Note,
		Price:      float64(raw.Price),
		CategoryID: categoryID,
		ImageURL:   raw.ImageURL,
		Metadata:   raw.Meta,
	}
	s.byID[raw.ID] = p
	s.order = append(s.order, p)
	return p
}

// Categories returns every category in service order, including the
// uncategorized sentinel.
func (s *Snapshot) Categories() []*model.Category {
	return s.categories
}

// UserCategories returns the categories offered for filtering.
func (s *Snapshot) UserCategories() []*model.Category {
	out := make([]*model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if !c.IsSentinel() {
			out = append(out, c)
		}
	}
	return out
}

// Category looks up a category by ID.
func (s *Snapshot) Category(id string) (*model.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Product looks up any product by ID.
func (s *Snapshot) Product(id string) (*model.Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// AllProducts returns the products of every user-facing category, each once,
// in category order.
func (s *Snapshot) AllProducts() []*model.Product {
	return Flatten(s.UserCategories())
}

// Len returns the number of distinct products known to the snapshot.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Flatten joins the products of the given categories, dropping repeats.
func Flatten(categories []*model.Category) []*model.Product {
	var out []*model.Product
	seen := make(map[string]struct{})
	for _, c := range categories {
		for _, p := range c.Products {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
