// Package model defines domain types for mealplan catalogs and plans.
package model

// UncategorizedID is the catalog's sentinel category. It is never offered as a
// filter and its products are not selectable through category views.
const UncategorizedID = "0"

// Metadata keys read by Summarize-style aggregations.
const (
	MetaWeight   = "weight"
	MetaCalories = "calories__portion"
)

// Product is one purchasable catalog item. Products are shared by pointer
// within a single catalog snapshot and must not be mutated after loading.
type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Note       string            `json:"note,omitempty"`
	Price      float64           `json:"price"`
	CategoryID string            `json:"category_id"`
	ImageURL   string            `json:"image_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Category groups products for filtering.
type Category struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Products []*Product `json:"-"`
}

// IsSentinel reports whether c is the uncategorized bucket.
func (c Category) IsSentinel() bool {
	return c.ID == UncategorizedID
}
