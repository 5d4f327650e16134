// Package pipeline shapes raw extracted strings into the canonical
// product schema: trimming, length caps, locale-aware numeric parsing and
// nullability rules all live here.
package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Field length caps applied before persistence.
const (
	MaxDescriptionLen = 1000
	MaxPublisherLen   = 100
	MaxDateLen        = 50
	MaxFormatLen      = 50
)

var (
	byPattern     = regexp.MustCompile(`(?i)\s+by\s+`)
	spacesPattern = regexp.MustCompile(`\s+`)
)

// Normalizer coerces raw extracted values into canonical form. It is
// configured per source site: the currency symbol drives price parsing and
// the brand suffix is stripped from titles.
type Normalizer struct {
	priceRe *regexp.Regexp
	brandRe *regexp.Regexp
}

// NewNormalizer builds a normalizer for the given site conventions.
func NewNormalizer(currencySymbol, brandSuffix string) *Normalizer {
	return &Normalizer{
		priceRe: regexp.MustCompile(regexp.QuoteMeta(currencySymbol) + `([\d,.]+)`),
		brandRe: regexp.MustCompile(`(?i)\s*[-|]\s*` + regexp.QuoteMeta(brandSuffix) + `.*$`),
	}
}

// CleanTitle reduces a raw heading to the bare title: the portion before
// " by <author>" when present, otherwise the first line, with any
// trailing site-brand suffix removed.
func (n *Normalizer) CleanTitle(raw string) string {
	title := raw
	if loc := byPattern.FindStringIndex(raw); loc != nil {
		title = raw[:loc[0]]
	} else if i := strings.IndexByte(raw, '\n'); i >= 0 {
		title = raw[:i]
	}
	title = n.brandRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// AuthorFromHeading extracts the author from a "<title> by <author>" raw
// heading. Returns "" when the pattern is absent.
func (n *Normalizer) AuthorFromHeading(raw string) string {
	parts := byPattern.Split(raw, 2)
	if len(parts) < 2 {
		return ""
	}
	author := parts[1]
	if i := strings.IndexByte(author, '\n'); i >= 0 {
		author = author[:i]
	}
	if i := strings.IndexByte(author, '|'); i >= 0 {
		author = author[:i]
	}
	return strings.TrimSpace(author)
}

// PriceText reports whether the text carries the site currency symbol.
func (n *Normalizer) PriceText(text string) bool {
	return n.priceRe.MatchString(text)
}

// ParsePrice extracts the first currency-prefixed amount from the text.
// Thousands separators are stripped before parsing. Returns nil when no
// parseable amount is present; parsing never errors out.
func (n *Normalizer) ParsePrice(text string) *float64 {
	m := n.priceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	cleaned := strings.ReplaceAll(m[1], ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

// TitleFromSlug derives a human-readable title from a URL slug: tokens
// are split on hyphens, purely numeric tokens and the literal "book" are
// dropped, a trailing identifier-looking fragment is dropped, and the
// remainder is title-cased.
func (n *Normalizer) TitleFromSlug(slug string) string {
	tokens := strings.Split(slug, "-")

	// A trailing token carrying digits is an identifier (ISBN or SKU).
	if len(tokens) > 1 && strings.ContainsAny(tokens[len(tokens)-1], "0123456789") {
		tokens = tokens[:len(tokens)-1]
	}

	kept := tokens[:0]
	for _, tok := range tokens {
		if tok == "" || isNumeric(tok) || strings.EqualFold(tok, "book") {
			continue
		}
		kept = append(kept, tok)
	}

	// Casers are stateful; one per call keeps this safe for concurrent use.
	return cases.Title(language.English).String(strings.Join(kept, " "))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Truncate trims the string and caps it at max characters. The cap
// counts runes, so a multibyte character is never split.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// CollapseSpaces trims and folds runs of whitespace into single spaces.
func CollapseSpaces(s string) string {
	return spacesPattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParseInt parses an integer leniently: thousands separators are removed
// and a failed parse yields nil rather than an error.
func ParseInt(s string) *int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &value
}

// ParseFloat parses a float leniently, mirroring ParseInt.
func ParseFloat(s string) *float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

// StringOrNil returns nil for empty (after trimming) strings, a pointer
// otherwise. The canonical schema represents absent values as null, never
// as empty strings.
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
