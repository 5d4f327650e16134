// internal/scraper/parser.go
package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document wraps a parsed HTML tree. goquery uses the net/html tokenizer,
// which applies browser recovery rules, so structurally invalid markup
// still yields a best-effort tree rather than an error.
type Document struct {
	doc *goquery.Document
}

// ParseDocument parses raw HTML into a traversable document.
func ParseDocument(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Find returns all nodes matching the CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Text returns the trimmed text content of the first node matching the
// selector, or "" when nothing matches.
func (d *Document) Text(selector string) string {
	return strings.TrimSpace(d.doc.Find(selector).First().Text())
}

// Attr returns the named attribute of the first node matching the
// selector, or "" when the node or attribute is absent.
func (d *Document) Attr(selector, attribute string) string {
	value, _ := d.doc.Find(selector).First().Attr(attribute)
	return strings.TrimSpace(value)
}

// BodyText returns the concatenated text of the whole body. Used for the
// regex-based detail mining.
func (d *Document) BodyText() string {
	return d.doc.Find("body").Text()
}
