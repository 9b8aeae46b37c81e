package retailer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rossmannPage(source string) string {
	return fmt.Sprintf(`<html><body><script>
	window.catalogConfig = Object.assign({}, {
		initialProducts: [{"_id": "r-1", "_source": %s}],
		pageSize: 20
	});
	</script></body></html>`, source)
}

func TestRossmann_LoyaltyPriceWins(t *testing.T) {
	page := rossmannPage(`{
		"id": 101, "name": "Saç Bakım Yağı",
		"price": 99.9, "special_price": 89.9, "ross_60_price": 79.9,
		"url_key": "sac-bakim-yagi"
	}`)
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "saç yağı")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	assert.Equal(t, "Rossmann", out.Retailer)
	require.NotNil(t, out.Price)
	assert.InDelta(t, 79.9, *out.Price, 0.001)
	require.NotNil(t, out.OriginalPrice)
	assert.InDelta(t, 89.9, *out.OriginalPrice, 0.001)
	assert.Equal(t, "Saç Bakım Yağı", out.ProductName)
	assert.Equal(t, "https://rossmann.test/sac-bakim-yagi", out.ProductURL)
	assert.Equal(t, "embedded-json", out.Debug["strategy"])
}

func TestRossmann_SpecialPriceBeatsBase(t *testing.T) {
	page := rossmannPage(`{
		"id": 102, "name": "Duş Jeli",
		"price": "59.90", "special_price": "44.90"
	}`)
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "duş jeli")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	assert.InDelta(t, 44.90, *out.Price, 0.001)
	require.NotNil(t, out.OriginalPrice)
	assert.InDelta(t, 59.90, *out.OriginalPrice, 0.001)
	assert.Equal(t, "44,90 TL", out.RawPriceText)
	assert.Equal(t, "59,90 TL", out.OriginalPriceText)
}

func TestRossmann_FallbackBasePrice(t *testing.T) {
	// No discount relation holds; the first present field wins and the
	// base price is not reported as an original when it does not exceed it.
	page := rossmannPage(`{
		"id": 103, "name2": "El Kremi",
		"price": 24.9
	}`)
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "el kremi")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	assert.InDelta(t, 24.9, *out.Price, 0.001)
	assert.Nil(t, out.OriginalPrice)
	assert.Equal(t, "El Kremi", out.ProductName)
}

func TestRossmann_CampaignPriceWithBaseAsOriginal(t *testing.T) {
	page := rossmannPage(`{
		"id": 104, "name": "Parfüm",
		"price": 199.9, "cmp_50_price": 149.9
	}`)
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "parfüm")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	// Base is present, so the ladder stops there; campaign prices only
	// apply when the base is absent.
	assert.InDelta(t, 199.9, *out.Price, 0.001)
	assert.Nil(t, out.OriginalPrice)
}

func TestRossmann_ZeroSpecialPriceRejectsRecord(t *testing.T) {
	// The fallback takes the first field that is present, even when it
	// holds 0, and a chosen price of 0 drops the whole record rather than
	// resolving to the next positive field.
	page := rossmannPage(`{
		"id": 106, "name": "Stok Dışı Ürün",
		"special_price": 0, "price": 50.0
	}`)
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "stok dışı")

	assert.False(t, out.IsSuccessful())
	assert.Equal(t, "Rossmann sitesinde sonuç bulunamadı", out.Error)
}

func TestRossmann_SkipsNonPositiveAndNameless(t *testing.T) {
	page := `<html><script>initialProducts: [
		{"_source": {"id": 1, "name": "Sıfır Fiyat", "price": 0}},
		{"_source": {"id": 2, "price": 9.9}},
		{"_source": {"id": 3, "name": "Geçerli Ürün", "price": 9.9}}
	]</script></html>`
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "x")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	assert.Equal(t, "Geçerli Ürün", out.ProductName)
	assert.EqualValues(t, 3, out.Debug["product_id"])
}

func TestRossmann_TriesAlternateSearchURLs(t *testing.T) {
	page := rossmannPage(`{"id": 105, "name": "Islak Mendil", "price": 19.9}`)
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test/search/": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "mendil")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	require.Len(t, f.calls, 3)
	assert.Equal(t, "https://rossmann.test/catalogsearch/result/", f.calls[0])
	assert.Equal(t, "https://rossmann.test/search/", f.calls[2])
}

func TestRossmann_AllSearchURLsFail(t *testing.T) {
	f := &stubFetcher{err: errors.New("connection refused")}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "x")

	assert.False(t, out.IsSuccessful())
	assert.Equal(t, "Rossmann sitesine erişilemiyor", out.Error)
	assert.Len(t, f.calls, 3)
}

func TestRossmann_SelectorFallback(t *testing.T) {
	page := `<div>
		<a href="/urun/123">Tıraş Köpüğü</a>
		<span class="product-price">34,90 TL</span>
	</div>`
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": page}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "köpük")

	require.True(t, out.IsSuccessful(), "outcome error: %s", out.Error)
	assert.Equal(t, "html-selectors", out.Debug["strategy"])
	assert.Equal(t, "Tıraş Köpüğü", out.ProductName)
	assert.Equal(t, "https://rossmann.test/urun/123", out.ProductURL)
}

func TestRossmann_NotFound(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"https://rossmann.test": "<html><body>boş</body></html>"}}

	out := NewRossmann(f).WithBaseURL("https://rossmann.test").Search(context.Background(), "yok")

	assert.False(t, out.IsSuccessful())
	assert.Equal(t, "Rossmann sitesinde sonuç bulunamadı", out.Error)
}
