package retailer

import (
	"context"
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
	rossmannName    = "Rossmann"
	rossmannBaseURL = "https://www.rossmann.com.tr"

	// rossmannMarker precedes the product array assigned to the search
	// page's inline state object.
	rossmannMarker = "initialProducts:"
)

// Rossmann serves full markup only to plain clients; the browser header
// set gets the request blocked.
var rossmannHeaders = map[string]string{
	"User-Agent":      "pricescan/1.0",
	"Accept":          "*/*",
	"Accept-Encoding": "gzip, deflate",
	"Connection":      "keep-alive",
}

var rossmannSelectors = []string{
	"[class*='price']",
	"[data-test='price']",
	".product-box__prices",
	".product-card [class*='Price']",
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
	".price-box",
	"[class*='price-box']",
	".price-container",
	"[class*='price-container']",
	".product-item-price",
	"[class*='product-item-price']",
}

// Rossmann looks up prices on rossmann.com.tr.
type Rossmann struct {
	fetcher fetcher.PageFetcher
	baseURL string
}

// NewRossmann creates a Rossmann adapter using the given page fetcher.
func NewRossmann(f fetcher.PageFetcher) *Rossmann {
	return &Rossmann{fetcher: f, baseURL: rossmannBaseURL}
}

// WithBaseURL overrides the retailer base URL, for tests and mirrors.
func (r *Rossmann) WithBaseURL(u string) *Rossmann {
	r.baseURL = strings.TrimSuffix(u, "/")
	return r
}

func (r *Rossmann) Name() string { return rossmannName }

// Search returns pricing information for the first product match on
// Rossmann. The search endpoint moved between catalog versions, so several
// candidate URLs are tried in order; the first non-empty response wins.
func (r *Rossmann) Search(ctx context.Context, query string) model.PriceOutcome {
	searchURLs := []string{
		r.baseURL + "/catalogsearch/result/",
		r.baseURL + "/catalogsearch/result",
		r.baseURL + "/search/",
	}

	var html, finalURL string
	for _, searchURL := range searchURLs {
		body, fu, err := r.fetcher.FetchPage(ctx, searchURL, fetcher.PageOptions{
			Query:   url.Values{"q": {query}},
			Headers: rossmannHeaders,
		})
		if err != nil {
			zap.L().Debug("rossmann: search url failed, trying next",
				zap.String("url", searchURL),
				zap.Error(err),
			)
			continue
		}
		if body != "" {
			html, finalURL = body, fu
			break
		}
	}
	if html == "" {
		return model.PriceOutcome{
			Retailer: rossmannName,
			Error:    "Rossmann sitesine erişilemiyor",
		}
	}

	if out, ok := structuredOutcome(rossmannName, r.baseURL, html, debugInfo(finalURL, "json-ld")); ok {
		return out
	}
	if out, ok := r.embeddedOutcome(html, finalURL); ok {
		return out
	}
	if out, ok := r.selectorOutcome(html, finalURL); ok {
		return out
	}

	return model.PriceOutcome{
		Retailer: rossmannName,
		Error:    "Rossmann sitesinde sonuç bulunamadı",
		Debug:    debugInfo(finalURL, "html-selectors"),
	}
}

// embeddedOutcome resolves prices from the inline product index records.
// Each record nests the catalog document under _source with several
// competing price fields: a special (sale) price, the base list price, a
// loyalty-card price under two alternate names, and tiered campaign prices.
func (r *Rossmann) embeddedOutcome(html, finalURL string) (model.PriceOutcome, bool) {
	payload, ok := extract.ArrayAfterMarker(html, rossmannMarker)
	if !ok {
		return model.PriceOutcome{}, false
	}

	records, err := extract.DecodeArray(payload)
	if err != nil {
		zap.L().Debug("rossmann: embedded payload decoding failed", zap.Error(err))
		return model.PriceOutcome{}, false
	}

	for _, rec := range records {
		source, _ := rec["_source"].(map[string]any)
		if source == nil {
			continue
		}

		special := toFloat(source["special_price"])
		base := toFloat(source["price"])
		loyalty := firstPositive(
			toFloat(source["ross_60_price"]),
			toFloat(source["ross_60_price_web"]),
		)
		alternates := []*float64{
			toFloat(source["crm_price"]),
			toFloat(source["cmp_100_price"]),
			toFloat(source["cmp_50_price"]),
			toFloat(source["cmp_20_price"]),
		}

		var price, original *float64
		switch {
		case positive(loyalty) && positive(special) && *loyalty < *special-priceEpsilon:
			price = loyalty
			original = firstPositive(special, base)
		case positive(special) && positive(base) && *special < *base-priceEpsilon:
			price = special
			original = base
		default:
			// First present field wins even when it holds 0; the
			// positivity check below then drops the whole record.
			candidates := append([]*float64{special, base, loyalty}, alternates...)
			price = firstPresent(candidates...)
			if price == nil {
				continue
			}
			for _, candidate := range []*float64{base, special} {
				if candidate != nil && *candidate > *price+priceEpsilon {
					original = candidate
					break
				}
			}
		}

		if !positive(price) {
			continue
		}
		original = clearedOriginal(original, *price)

		name := stringField(source, "name", "name1", "name2")
		if name == "" {
			continue
		}

		productURL := ""
		if key := stringField(source, "url_key", "url_path"); key != "" {
			productURL = resolveURL(r.baseURL+"/", key)
		}

		originalText := ""
		if original != nil {
			originalText = priceparse.FormatPrice(*original)
		}

		debug := debugInfo(finalURL, "embedded-json")
		debug["product_id"] = source["id"]

		return model.PriceOutcome{
			Retailer:          rossmannName,
			ProductName:       name,
			Price:             price,
			Currency:          "TRY",
			ProductURL:        productURL,
			RawPriceText:      priceparse.FormatPrice(*price),
			OriginalPrice:     original,
			OriginalPriceText: originalText,
			Debug:             debug,
		}, true
	}
	return model.PriceOutcome{}, false
}

func (r *Rossmann) selectorOutcome(html, finalURL string) (model.PriceOutcome, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("rossmann: selector stage html parse failed", zap.Error(err))
		return model.PriceOutcome{}, false
	}

	for _, c := range extract.FindPriceCandidates(doc, rossmannSelectors) {
		price, ok := priceparse.ParsePrice(c.PriceText)
		if !ok {
			continue
		}
		return model.PriceOutcome{
			Retailer:     rossmannName,
			ProductName:  c.Name,
			Price:        &price,
			Currency:     "TRY",
			ProductURL:   resolveURL(r.baseURL, c.URL),
			RawPriceText: c.PriceText,
			Debug:        debugInfo(finalURL, "html-selectors"),
		}, true
	}
	return model.PriceOutcome{}, false
}
