package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CategoryRef is the category summary embedded in each product.
type CategoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title"`
}

// Product is the raw product record returned by the catalog service.
type Product struct {
	Category   CategoryRef       `json:"category"`
	Meta       map[string]string `json:"meta,omitempty"`
	ID         string            `json:"id"`
	SellerID   string            `json:"sellerId,omitempty"`
	Priority   string            `json:"priority,omitempty"`
	Heatable   string            `json:"heatable,omitempty"`
	NewProduct string            `json:"newProduct,omitempty"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	Name       string            `json:"name"`
	Note       string            `json:"note"`
	Price      Price             `json:"price"`
}

// Category is a raw category record together with its products.
type Category struct {
	CategoryRef
	Products []Product `json:"products"`
}

// Payload is the combined response of both catalog endpoints. It is also the
// form persisted in the catalog cache.
type Payload struct {
	Products   []Product  `json:"products"`
	Categories []Category `json:"categories"`
}

// Price is a numeric price that the service may encode as a JSON number or a
// numeric string.
type Price float64

// UnmarshalJSON accepts 250, 250.5, "250" and " 250 ". An empty string or
// null decodes as 0.
func (p *Price) UnmarshalJSON(raw []byte) error {
	v, err := parsePrice(raw)
	if err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// MarshalJSON always writes a JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(p))
}

func parsePrice(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	// Try number first (covers both int and float JSON)
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, &PriceError{Raw: string(raw)}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &PriceError{Raw: string(raw)}
	}
	return v, nil
}

// PriceError reports a price field that is neither a number nor a numeric string.
type PriceError struct {
	Raw string
}

func (e *PriceError) Error() string {
	return "catalog: invalid price " + e.Raw
}
