// Package retailer implements per-retailer price lookup adapters. Each
// adapter fetches the retailer's search page and tries extraction
// strategies in priority order: structured data, embedded JSON state,
// heuristic selectors.
package retailer

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ucuzla/pricescan/internal/extract"
	"github.com/ucuzla/pricescan/internal/model"
	"github.com/ucuzla/pricescan/internal/priceparse"
)

// priceEpsilon is the tolerance below which two prices are considered
// equal. An original price must exceed the current price by more than this
// to count as a genuine discount.
const priceEpsilon = 0.01

// Adapter looks up the price of a product at one retailer. Search always
// returns an outcome; failures are carried in the outcome's Error field.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string) model.PriceOutcome
}

// structuredOutcome runs the structured-data stage: the first JSON-LD
// product whose price resolves to a usable number wins.
func structuredOutcome(retailer, baseURL, html string, debug map[string]any) (model.PriceOutcome, bool) {
	for _, p := range extract.StructuredProducts(html) {
		price := p.Price
		if price == nil {
			if v, ok := priceparse.ParsePrice(p.RawPriceText); ok {
				price = &v
			}
		}
		if price == nil {
			continue
		}

		currency := p.Currency
		if currency == "" {
			currency = "TRY"
		}

		return model.PriceOutcome{
			Retailer:     retailer,
			ProductName:  p.Name,
			Price:        price,
			Currency:     currency,
			ProductURL:   resolveURL(baseURL, p.URL),
			RawPriceText: p.RawPriceText,
			Debug:        debug,
		}, true
	}
	return model.PriceOutcome{}, false
}

// resolveURL resolves ref against base, retailer pages link products with
// relative paths. Empty ref stays empty.
func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// stringField returns the first non-empty string among the given keys.
func stringField(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := rec[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// toFloat converts a decoded JSON value to a float, accepting numbers and
// plain numeric strings with either decimal separator.
func toFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", "."), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// positive reports whether v holds a strictly positive price.
func positive(v *float64) bool {
	return v != nil && *v > 0
}

// firstPositive returns the first strictly positive value, or nil.
func firstPositive(values ...*float64) *float64 {
	for _, v := range values {
		if positive(v) {
			return v
		}
	}
	return nil
}

// clearedOriginal validates a discount pair: the original price is kept
// only when it is strictly positive and exceeds price by more than the
// epsilon, otherwise it is cleared.
func clearedOriginal(original *float64, price float64) *float64 {
	if original == nil || *original <= 0 || *original <= price+priceEpsilon {
		return nil
	}
	return original
}
