// internal/scraper/extractor.go
package scraper

import (
	"regexp"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/pipeline"
)

// Labeled patterns mined from the whole-body text. The source pages list
// detail attributes as "Label: value" lines anywhere in the markup.
var (
	isbnRe      = regexp.MustCompile(`(?i)ISBN[:\s]*([0-9\-Xx]+)`)
	publisherRe = regexp.MustCompile(`(?i)Publisher[:\s]*([^\n]+)`)
	pubDateRe   = regexp.MustCompile(`(?i)Publication Date[:\s]*([^\n]+)`)
	formatRe    = regexp.MustCompile(`(?i)Format[:\s]*([^\n]+)`)
	pagesRe     = regexp.MustCompile(`(?i)Pages?[:\s]*(\d+)`)
	languageRe  = regexp.MustCompile(`(?i)Language[:\s]*([A-Za-z]+)`)
)

// defaultAvailability is assumed when the page exposes no stock element.
const defaultAvailability = "In Stock"

// unknownSourceID is used when the URL carries no path segments.
const unknownSourceID = "unknown"

// ProductExtractor turns a parsed document plus its source URL into a
// catalog candidate. Every field degrades independently: a chain with no
// match yields a null field, never an error.
type ProductExtractor struct {
	norm   *pipeline.Normalizer
	titles Chain
}

// NewProductExtractor creates an extractor using the given normalizer.
func NewProductExtractor(norm *pipeline.Normalizer) *ProductExtractor {
	return &ProductExtractor{
		norm:   norm,
		titles: titleChain(norm),
	}
}

// Extract produces a candidate from the document. Details are always
// populated, possibly sparse.
func (e *ProductExtractor) Extract(doc *Document, sourceURL string) catalog.Candidate {
	rawTitle, _ := e.titles.Resolve(doc, sourceURL)
	title := e.norm.CleanTitle(rawTitle)

	author, _ := authorChain(e.norm, rawTitle).Resolve(doc, sourceURL)
	price := e.norm.ParsePrice(priceText(doc, e.norm))

	sourceID := lastPathSegment(sourceURL)
	if sourceID == "" {
		sourceID = unknownSourceID
	}

	return catalog.Candidate{
		SourceID: sourceID,
		Title:    title,
		Author:   pipeline.StringOrNil(author),
		Price:    price,
		ImageURL: pipeline.StringOrNil(imageURL(doc)),
		Details:  e.extractDetails(doc),
	}
}

// extractDetails mines the enrichment attributes from the body text and
// stock elements.
func (e *ProductExtractor) extractDetails(doc *Document) *catalog.Details {
	body := doc.BodyText()

	availability := availabilityText(doc)
	if availability == "" {
		availability = defaultAvailability
	}

	d := &catalog.Details{
		Description:     pipeline.StringOrNil(pipeline.Truncate(descriptionText(doc), pipeline.MaxDescriptionLen)),
		ISBN:            matchGroup(isbnRe, body, 0),
		Publisher:       matchGroup(publisherRe, body, pipeline.MaxPublisherLen),
		PublicationDate: matchGroup(pubDateRe, body, pipeline.MaxDateLen),
		Format:          matchGroup(formatRe, body, pipeline.MaxFormatLen),
		Language:        matchGroup(languageRe, body, 0),
		Availability:    &availability,
	}

	if m := pagesRe.FindStringSubmatch(body); m != nil {
		d.Pages = pipeline.ParseInt(m[1])
	}

	return d
}

// matchGroup returns the first capture group of the pattern, trimmed and
// optionally capped, or nil when the pattern has no match.
func matchGroup(re *regexp.Regexp, body string, max int) *string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	value := m[1]
	if max > 0 {
		value = pipeline.Truncate(value, max)
	}
	return pipeline.StringOrNil(value)
}
