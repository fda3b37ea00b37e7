package model

// DayBasket is one day's selections in insertion order.
type DayBasket []*Product

// Price sums the basket's product prices.
func (d DayBasket) Price() float64 {
	var total float64
	for _, p := range d {
		total += p.Price
	}
	return total
}

// IDs returns the product IDs of the basket in order.
func (d DayBasket) IDs() []string {
	ids := make([]string, 0, len(d))
	for _, p := range d {
		ids = append(ids, p.ID)
	}
	return ids
}

// Totals aggregates a set of products for summary display.
type Totals struct {
	Count    int     `json:"count"`
	Price    float64 `json:"price"`
	Weight   float64 `json:"weight"` // grams
	Calories float64 `json:"calories"`
}

// DayView is a read-only rendering of one basket with its totals.
type DayView struct {
	Index    int        `json:"index"`
	Products []*Product `json:"products"`
	Totals   Totals     `json:"totals"`
}
