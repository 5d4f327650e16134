// Package scraper retrieves product pages and extracts structured
// attributes from their markup.
package scraper

import (
	"context"
	"fmt"
)

// RawDocument is the result of a successful page retrieval.
type RawDocument struct {
	URL        string
	StatusCode int
	Body       string
}

// Fetcher retrieves a page. Implemented by the plain HTTP client and the
// headless-browser client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*RawDocument, error)
}

// FetchError reports a failed retrieval: network failure, timeout, or a
// non-success transport response. A FetchError always means no usable
// document was produced.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
