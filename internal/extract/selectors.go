package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ucuzla/pricescan/internal/priceparse"
)

// PlaceholderName substitutes for products whose name could not be
// inferred from nearby markup.
const PlaceholderName = "Ürün"

// genericNames are site chrome strings that selector matching sometimes
// picks up instead of a product name.
var genericNames = map[string]struct{}{
	"Anasayfa":      {},
	PlaceholderName: {},
	"Product":       {},
}

var nameClassRe = regexp.MustCompile(`(?i)name|title`)

// Candidate is a potential product found by heuristic selector matching.
type Candidate struct {
	Name      string
	PriceText string
	URL       string
}

// FindPriceCandidates applies an ordered selector list to the document and
// returns every element whose text parses as a price, in selector-then-
// document order. Product names are inferred from the enclosing or nearest
// preceding link, falling back to the nearest preceding element with a
// name- or title-like class, then to a placeholder.
func FindPriceCandidates(doc *goquery.Document, selectors []string) []Candidate {
	order := documentOrder(doc)
	anchors := nodeIndexes(doc.Find("a"), order)
	named := nodeIndexes(doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return nameClassRe.MatchString(class)
	}), order)

	var candidates []Candidate
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			priceText := collapseText(s)
			if priceText == "" {
				return
			}
			if _, ok := priceparse.ParsePrice(priceText); !ok {
				return
			}

			var name, href string
			if link := s.Closest("a"); link.Length() > 0 {
				name = collapseText(link)
				href, _ = link.Attr("href")
			} else if link := precedingSelection(doc, anchors, order[firstNode(s)]); link != nil {
				name = collapseText(link)
				href, _ = link.Attr("href")
			}

			if name == "" {
				if titleEl := precedingSelection(doc, named, order[firstNode(s)]); titleEl != nil {
					name = collapseText(titleEl)
				}
			}
			if name == "" {
				name = PlaceholderName
			}

			candidates = append(candidates, Candidate{
				Name:      name,
				PriceText: priceText,
				URL:       href,
			})
		})
	}
	return candidates
}

// IsGenericName reports whether an inferred name is site chrome or too
// short to identify a product.
func IsGenericName(name string) bool {
	if _, ok := genericNames[name]; ok {
		return true
	}
	return utf8.RuneCountInString(name) < 3
}

// RefineName searches near the element carrying priceText for a more
// specific product name, using a fixed secondary selector list. Returns
// false when nothing better is found.
func RefineName(doc *goquery.Document, priceText string, selectors []string) (string, bool) {
	holder := doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Children().Length() == 0 && strings.Contains(collapseText(s), priceText)
	}).Last()
	if holder.Length() == 0 {
		return "", false
	}

	parent := holder.Parent()
	for parent.Length() > 0 {
		for _, selector := range selectors {
			if el := parent.Find(selector).First(); el.Length() > 0 {
				if name := collapseText(el); name != "" && !IsGenericName(name) {
					return name, true
				}
			}
		}
		// Walk at most a couple of levels above the price element.
		if parentIsRoot(parent) {
			break
		}
		parent = parent.Parent()
	}
	return "", false
}

func parentIsRoot(s *goquery.Selection) bool {
	node := firstNode(s)
	return node == nil || node.Data == "body" || node.Data == "html"
}

// documentOrder assigns each node its position in a depth-first traversal.
func documentOrder(doc *goquery.Document) map[*html.Node]int {
	order := make(map[*html.Node]int)
	i := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		order[n] = i
		i++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return order
}

type indexedNode struct {
	node  *html.Node
	index int
}

func nodeIndexes(sel *goquery.Selection, order map[*html.Node]int) []indexedNode {
	out := make([]indexedNode, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, indexedNode{node: n, index: order[n]})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].index < out[b].index })
	return out
}

// precedingSelection returns the last node in candidates that appears
// before position in document order, or nil.
func precedingSelection(doc *goquery.Document, candidates []indexedNode, position int) *goquery.Selection {
	var best *html.Node
	for _, c := range candidates {
		if c.index >= position {
			break
		}
		best = c.node
	}
	if best == nil {
		return nil
	}
	return doc.FindNodes(best)
}

func firstNode(s *goquery.Selection) *html.Node {
	if len(s.Nodes) == 0 {
		return nil
	}
	return s.Nodes[0]
}

// collapseText returns the selection's text with whitespace runs collapsed
// to single spaces.
func collapseText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
