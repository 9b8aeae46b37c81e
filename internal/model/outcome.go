// Package model defines the shared data types for price comparison results.
package model

// PriceOutcome is the result of one retailer lookup: either a populated
// price record or an error description. Exactly one is produced per
// retailer per comparison request.
type PriceOutcome struct {
	Retailer          string         `json:"retailer"`
	ProductName       string         `json:"product_name,omitempty"`
	Price             *float64       `json:"price"`
	Currency          string         `json:"currency,omitempty"`
	ProductURL        string         `json:"product_url,omitempty"`
	RawPriceText      string         `json:"raw_price_text,omitempty"`
	OriginalPrice     *float64       `json:"original_price,omitempty"`
	OriginalPriceText string         `json:"original_price_text,omitempty"`
	Error             string         `json:"error,omitempty"`
	Debug             map[string]any `json:"debug,omitempty"`
}

// IsSuccessful reports whether a price was retrieved without errors.
func (o PriceOutcome) IsSuccessful() bool {
	return o.Error == "" && o.Price != nil
}

// Comparison is the ordered result of one query across all retailers:
// successful outcomes sorted ascending by price, then failures in
// completion order. Cheapest points at the first successful outcome.
type Comparison struct {
	Query    string         `json:"query"`
	Results  []PriceOutcome `json:"results"`
	Cheapest *PriceOutcome  `json:"cheapest"`
}

// Float returns a pointer to v. Convenience for optional price fields.
func Float(v float64) *float64 { return &v }
