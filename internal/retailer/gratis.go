package retailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ucuzla/pricescan/internal/extract"
	"github.com/ucuzla/pricescan/internal/fetcher"
	"github.com/ucuzla/pricescan/internal/model"
	"github.com/ucuzla/pricescan/internal/priceparse"
)

const (
	gratisName       = "Gratis"
	gratisBaseURL    = "https://www.gratis.com"
	gratisSearchPath = "/search"

	// gratisMarker precedes the product array inside the escaped Next.js
	// flight payload embedded in the search page.
	gratisMarker = `products\":[`
)

// gratisSelectors are ordered most to least specific against the current
// Gratis markup.
var gratisSelectors = []string{
	"span.text-primary-900",
	"[class*='text-primary-900']",
	"[class*='font-semibold']",
	"[class*='price']",
	"[data-test='price']",
	".product-list__price",
	".product-card [class*='Price']",
	"[class*='Price']",
	".price",
	"[data-price]",
	".product-price",
	".price-value",
	".amount",
	"[class*='amount']",
	"[class*='cost']",
	".cost",
	".value",
	"[class*='value']",
}

// gratisNameSelectors locate a product name near a matched price element
// when the inferred name is site chrome.
var gratisNameSelectors = []string{
	".product-name",
	".product-title",
	"[class*='name']",
	"[class*='title']",
}

// Gratis looks up prices on gratis.com.
type Gratis struct {
	fetcher fetcher.PageFetcher
	baseURL string
}

// NewGratis creates a Gratis adapter using the given page fetcher.
func NewGratis(f fetcher.PageFetcher) *Gratis {
	return &Gratis{fetcher: f, baseURL: gratisBaseURL}
}

// WithBaseURL overrides the retailer base URL, for tests and mirrors.
func (g *Gratis) WithBaseURL(u string) *Gratis {
	g.baseURL = strings.TrimSuffix(u, "/")
	return g
}

func (g *Gratis) Name() string { return gratisName }

// Search returns pricing information for the first product match on Gratis.
func (g *Gratis) Search(ctx context.Context, query string) model.PriceOutcome {
	html, finalURL, err := g.fetcher.FetchPage(ctx, g.baseURL+gratisSearchPath, fetcher.PageOptions{
		Query:                 url.Values{"q": {query}},
		IncludeDefaultHeaders: true,
		AllowInsecureFallback: true,
	})
	if err != nil {
		return model.PriceOutcome{
			Retailer: gratisName,
			Error:    fmt.Sprintf("Gratis isteği başarısız: %v", err),
		}
	}

	if out, ok := structuredOutcome(gratisName, g.baseURL, html, debugInfo(finalURL, "json-ld")); ok {
		return out
	}
	if out, ok := g.embeddedOutcome(html, finalURL); ok {
		return out
	}
	if out, ok := g.selectorOutcome(html, finalURL); ok {
		return out
	}

	return model.PriceOutcome{
		Retailer: gratisName,
		Error:    "Gratis sitesinde sonuç bulunamadı",
		Debug:    debugInfo(finalURL, "html-selectors"),
	}
}

// embeddedOutcome resolves prices from the escaped product array embedded
// in the page. Field priority: discounted > promotional > normal, with a
// label parse fallback when no numeric field is present.
func (g *Gratis) embeddedOutcome(html, finalURL string) (model.PriceOutcome, bool) {
	payload, ok := extract.ArrayAfterMarker(html, gratisMarker)
	if !ok {
		return model.PriceOutcome{}, false
	}

	records, err := extract.DecodeEscapedArray(payload)
	if err != nil {
		zap.L().Debug("gratis: embedded payload decoding failed", zap.Error(err))
		return model.PriceOutcome{}, false
	}

	for _, rec := range records {
		prices, _ := rec["prices"].(map[string]any)
		rawPriceText := stringField(prices,
			"discountedPriceLabel", "promotionPriceLabel", "normalPriceLabel")

		discounted := gratisPrice(prices["discountedPrice"])
		promotional := gratisPrice(prices["promotionPrice"])
		normal := gratisPrice(prices["normalPrice"])

		price := firstPresent(discounted, promotional, normal)
		if price == nil && rawPriceText != "" {
			if v, ok := priceparse.ParsePrice(rawPriceText); ok {
				price = &v
			}
		}
		if price == nil {
			continue
		}

		attributes, _ := rec["attributes"].(map[string]any)
		name := stringField(attributes, "displayName")
		if name == "" {
			analytics, _ := rec["analytics"].(map[string]any)
			name = stringField(analytics, "name")
		}
		if name == "" {
			continue
		}

		currency := stringField(prices, "currency")
		if currency == "" {
			currency = "TRY"
		}

		original := clearedOriginal(normal, *price)
		originalText := ""
		if original != nil {
			originalText = stringField(prices, "normalPriceLabel")
			if originalText == "" {
				originalText = priceparse.FormatPrice(*original)
			}
		}

		if rawPriceText == "" {
			rawPriceText = priceparse.FormatPrice(*price)
		}

		debug := debugInfo(finalURL, "embedded-json")
		debug["product_id"] = rec["id"]

		return model.PriceOutcome{
			Retailer:          gratisName,
			ProductName:       name,
			Price:             price,
			Currency:          currency,
			ProductURL:        resolveURL(g.baseURL, stringField(rec, "shareLink", "url")),
			RawPriceText:      rawPriceText,
			OriginalPrice:     original,
			OriginalPriceText: originalText,
			Debug:             debug,
		}, true
	}
	return model.PriceOutcome{}, false
}

// selectorOutcome is the last-resort stage over the raw markup. Generic
// inferred names are replaced by searching nearby elements with the
// secondary name selectors.
func (g *Gratis) selectorOutcome(html, finalURL string) (model.PriceOutcome, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("gratis: selector stage html parse failed", zap.Error(err))
		return model.PriceOutcome{}, false
	}

	for _, c := range extract.FindPriceCandidates(doc, gratisSelectors) {
		price, ok := priceparse.ParsePrice(c.PriceText)
		if !ok {
			continue
		}

		name := c.Name
		if extract.IsGenericName(name) {
			if refined, ok := extract.RefineName(doc, c.PriceText, gratisNameSelectors); ok {
				name = refined
			}
		}
		if extract.IsGenericName(name) {
			name = "Gratis Ürünü"
		}

		return model.PriceOutcome{
			Retailer:     gratisName,
			ProductName:  name,
			Price:        &price,
			Currency:     "TRY",
			ProductURL:   resolveURL(g.baseURL, c.URL),
			RawPriceText: c.PriceText,
			Debug:        debugInfo(finalURL, "html-selectors"),
		}, true
	}
	return model.PriceOutcome{}, false
}

// gratisPrice normalizes a Gratis price field. Numeric values at or above
// 1000 are taken to be minor units (kuruş) and divided by 100; this is a
// magnitude heuristic, not a documented contract of the retailer payload.
func gratisPrice(v any) *float64 {
	switch n := v.(type) {
	case float64:
		if n >= 1000 {
			n = n / 100.0
		}
		return &n
	case string:
		if f, ok := priceparse.ParsePrice(n); ok {
			return &f
		}
	}
	return nil
}

// firstPresent returns the first non-nil value.
func firstPresent(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func debugInfo(sourceURL, strategy string) map[string]any {
	return map[string]any{
		"source_url": sourceURL,
		"strategy":   strategy,
	}
}
