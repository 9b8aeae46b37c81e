package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFindPriceCandidates_NameFromEnclosingLink(t *testing.T) {
	doc := mustDoc(t, `
	<div class="product-card">
		<a href="/p/krem-123">Nemlendirici Krem
			<span class="price">129,90 TL</span>
		</a>
	</div>`)

	candidates := FindPriceCandidates(doc, []string{".price"})
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Name, "Nemlendirici Krem")
	assert.Equal(t, "129,90 TL", candidates[0].PriceText)
	assert.Equal(t, "/p/krem-123", candidates[0].URL)
}

func TestFindPriceCandidates_NameFromPrecedingLink(t *testing.T) {
	doc := mustDoc(t, `
	<div>
		<a href="/p/sampuan">Şampuan 400ml</a>
		<span class="price">89,90 TL</span>
	</div>`)

	candidates := FindPriceCandidates(doc, []string{".price"})
	require.Len(t, candidates, 1)
	assert.Equal(t, "Şampuan 400ml", candidates[0].Name)
	assert.Equal(t, "/p/sampuan", candidates[0].URL)
}

func TestFindPriceCandidates_NameFromTitleClass(t *testing.T) {
	doc := mustDoc(t, `
	<div>
		<h3 class="product-title">Diş Macunu 75ml</h3>
		<span class="price">45,50 TL</span>
	</div>`)

	candidates := FindPriceCandidates(doc, []string{".price"})
	require.Len(t, candidates, 1)
	assert.Equal(t, "Diş Macunu 75ml", candidates[0].Name)
	assert.Empty(t, candidates[0].URL)
}

func TestFindPriceCandidates_Placeholder(t *testing.T) {
	doc := mustDoc(t, `<span class="price">19,90 TL</span>`)

	candidates := FindPriceCandidates(doc, []string{".price"})
	require.Len(t, candidates, 1)
	assert.Equal(t, PlaceholderName, candidates[0].Name)
}

func TestFindPriceCandidates_SkipsUnparsableText(t *testing.T) {
	doc := mustDoc(t, `
	<span class="price">Fiyat gör</span>
	<span class="price">59,90 TL</span>`)

	candidates := FindPriceCandidates(doc, []string{".price"})
	require.Len(t, candidates, 1)
	assert.Equal(t, "59,90 TL", candidates[0].PriceText)
}

func TestFindPriceCandidates_SelectorOrderAndAllMatches(t *testing.T) {
	doc := mustDoc(t, `
	<span class="amount">10,00 TL</span>
	<span class="special-price">20,00 TL</span>`)

	// The more specific selector comes first, so its match leads even
	// though it appears later in the document.
	candidates := FindPriceCandidates(doc, []string{".special-price", ".amount"})
	require.Len(t, candidates, 2)
	assert.Equal(t, "20,00 TL", candidates[0].PriceText)
	assert.Equal(t, "10,00 TL", candidates[1].PriceText)
}

func TestIsGenericName(t *testing.T) {
	assert.True(t, IsGenericName("Anasayfa"))
	assert.True(t, IsGenericName("Ürün"))
	assert.True(t, IsGenericName("Product"))
	assert.True(t, IsGenericName("ab"))
	assert.False(t, IsGenericName("Nemlendirici Krem"))
}

func TestRefineName(t *testing.T) {
	doc := mustDoc(t, `
	<div class="card">
		<h4 class="product-name">Güneş Kremi SPF50</h4>
		<div class="pricing"><span>249,90 TL</span></div>
	</div>`)

	name, ok := RefineName(doc, "249,90 TL", []string{".product-name"})
	require.True(t, ok)
	assert.Equal(t, "Güneş Kremi SPF50", name)
}

func TestRefineName_NothingBetter(t *testing.T) {
	doc := mustDoc(t, `<div><span>249,90 TL</span></div>`)

	_, ok := RefineName(doc, "249,90 TL", []string{".product-name"})
	assert.False(t, ok)
}
