// Package extract recovers product price records from retailer HTML using
// structured data, embedded JSON state, and heuristic selectors.
package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ucuzla/pricescan/internal/priceparse"
)

// Product is a candidate extracted from schema.org structured data.
type Product struct {
	Name         string
	Price        *float64
	Currency     string
	URL          string
	RawPriceText string
}

// StructuredProducts scans JSON-LD blocks in the page and returns every
// product node found, in document order. Nodes typed (case-insensitively)
// as "Product" are matched whether @type is a single value or an array.
func StructuredProducts(html string) []Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("extract: html parse failed", zap.Error(err))
		return nil
	}

	var products []Product
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			zap.L().Debug("extract: json-ld block is not valid JSON", zap.Error(err))
			return
		}
		walkJSON(data, func(node map[string]any) {
			if p, ok := productFromNode(node); ok {
				products = append(products, p)
			}
		})
	})
	return products
}

// walkJSON visits every object in arbitrarily nested JSON data.
func walkJSON(data any, visit func(map[string]any)) {
	switch v := data.(type) {
	case map[string]any:
		visit(v)
		for _, child := range v {
			walkJSON(child, visit)
		}
	case []any:
		for _, child := range v {
			walkJSON(child, visit)
		}
	}
}

func productFromNode(node map[string]any) (Product, bool) {
	if !isProductType(node["@type"]) {
		return Product{}, false
	}

	priceVal, currency := offerPrice(node["offers"])

	var p Product
	switch pv := priceVal.(type) {
	case float64:
		p.Price = &pv
		p.RawPriceText = strconv.FormatFloat(pv, 'f', -1, 64)
	case string:
		p.RawPriceText = pv
		if v, ok := priceparse.ParsePrice(pv); ok {
			p.Price = &v
		}
	}

	// A node with neither a numeric price nor raw price text is useless.
	if p.Price == nil && p.RawPriceText == "" {
		return Product{}, false
	}

	p.Currency = currency
	if name, ok := node["name"].(string); ok {
		p.Name = name
	}
	if u, ok := node["url"].(string); ok {
		p.URL = u
	}
	return p, true
}

func isProductType(typeField any) bool {
	switch t := typeField.(type) {
	case string:
		return strings.EqualFold(t, "product")
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, "product") {
				return true
			}
		}
	}
	return false
}

// offerPrice derives (price, currency) from an offers value, which may be a
// single offer object or a list. The first entry carrying a price wins.
// Price may live directly on the offer or under priceSpecification.
func offerPrice(offers any) (any, string) {
	switch o := offers.(type) {
	case map[string]any:
		return priceFromOffer(o)
	case []any:
		for _, entry := range o {
			offer, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if offer["price"] == nil && offer["priceSpecification"] == nil {
				continue
			}
			return priceFromOffer(offer)
		}
	}
	return nil, ""
}

func priceFromOffer(offer map[string]any) (any, string) {
	price := offer["price"]
	currency, _ := offer["priceCurrency"].(string)

	if spec, ok := offer["priceSpecification"].(map[string]any); ok {
		if price == nil {
			price = spec["price"]
		}
		if currency == "" {
			currency, _ = spec["priceCurrency"].(string)
		}
	}
	return price, currency
}
