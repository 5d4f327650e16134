// internal/scraper/strategies.go
//
// Ordered fallback extraction. Each target field owns a chain of
// strategies; the chain evaluates them in order and keeps the first
// non-empty result. Source markup is uncontrolled, so a chain degrades to
// partial data instead of failing outright.
package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfmark/shelfmark/internal/pipeline"
)

// Strategy attempts to extract one field's raw value from the document
// and source URL. It returns "" when it has no match. Strategies are pure:
// no logging, no shared state.
type Strategy struct {
	Name    string
	Extract func(doc *Document, sourceURL string) string
}

// Chain is an ordered list of strategies for a single field.
type Chain []Strategy

// Resolve evaluates the chain in order, returning the first non-empty
// value together with the name of the strategy that produced it.
func (c Chain) Resolve(doc *Document, sourceURL string) (value, strategy string) {
	for _, s := range c {
		if v := strings.TrimSpace(s.Extract(doc, sourceURL)); v != "" {
			return v, s.Name
		}
	}
	return "", ""
}

// titleChain builds the raw-title chain. The raw value may still carry a
// " by <author>" suffix; the normalizer strips it afterwards.
func titleChain(norm *pipeline.Normalizer) Chain {
	return Chain{
		{Name: "heading", Extract: func(doc *Document, _ string) string {
			return doc.Text("h1")
		}},
		{Name: "og:title", Extract: func(doc *Document, _ string) string {
			return doc.Attr(`meta[property="og:title"]`, "content")
		}},
		{Name: "document-title", Extract: func(doc *Document, _ string) string {
			return doc.Text("title")
		}},
		{Name: "product-class", Extract: func(doc *Document, _ string) string {
			return doc.Text(`.product-title, .product__title, [class*="product-name"]`)
		}},
		{Name: "url-slug", Extract: func(_ *Document, sourceURL string) string {
			return norm.TitleFromSlug(lastPathSegment(sourceURL))
		}},
	}
}

// authorChain builds the author chain. The raw heading text from the
// title chain is an input: the "by <author>" fallback parses it rather
// than re-querying the document.
func authorChain(norm *pipeline.Normalizer, rawHeading string) Chain {
	return Chain{
		{Name: "heading-link", Extract: func(doc *Document, _ string) string {
			return doc.Text("h1 a")
		}},
		{Name: "by-pattern", Extract: func(_ *Document, _ string) string {
			return norm.AuthorFromHeading(rawHeading)
		}},
		{Name: "meta-author", Extract: func(doc *Document, _ string) string {
			return doc.Attr(`meta[name="author"]`, "content")
		}},
	}
}

// priceText scans price-suggestive elements (class containing "price", or
// bare spans) for the first text carrying the site currency symbol.
func priceText(doc *Document, norm *pipeline.Normalizer) string {
	var found string
	doc.Find(`[class*="price"], .price, span`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if norm.PriceText(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

// imageSelectors is ordered from product-media containers down to generic
// image fallbacks.
var imageSelectors = []string{
	".product__media img",
	".product-image img",
	`[class*="product"] img`,
	"main img",
	`img[src*="product"]`,
}

// imageURL resolves the product image, preferring src over the lazy-load
// attribute, and upgrades protocol-relative URLs to https.
func imageURL(doc *Document) string {
	for _, selector := range imageSelectors {
		img := doc.Find(selector).First()
		if img.Length() == 0 {
			continue
		}
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = img.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		return src
	}
	return ""
}

// descriptionSelectors is ordered from the most specific description
// container to the most generic.
var descriptionSelectors = []string{
	".product__description",
	`[class*="description"]`,
	".description",
}

func descriptionText(doc *Document) string {
	for _, selector := range descriptionSelectors {
		if text := doc.Text(selector); text != "" {
			return text
		}
	}
	return ""
}

// availabilityText reads the first stock-related element, or "" when the
// page has none.
func availabilityText(doc *Document) string {
	return doc.Text(`[class*="availability"], .stock, [class*="stock"]`)
}

// lastPathSegment returns the final non-empty path segment of the URL,
// or "" when the URL has no usable path.
func lastPathSegment(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.IsAbs() {
		path = u.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
