// Package catalog persists scraped products and answers filtered,
// sorted, paginated and aggregate queries over them.
package catalog

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups and deletes for an unknown product id.
var ErrNotFound = errors.New("product not found")

// StoreError wraps a failing store operation with the operation name.
// The underlying cause is preserved for errors.Is/As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Candidate is the canonical product produced by a single extraction run.
// It is transient: created fresh per scrape and discarded after merge.
// Nil pointer fields mean the value could not be extracted.
type Candidate struct {
	SourceID string   `json:"sourceId"`
	Title    string   `json:"title"`
	Author   *string  `json:"author"`
	Price    *float64 `json:"price"`
	ImageURL *string  `json:"imageUrl"`
	Details  *Details `json:"details,omitempty"`
}

// Details holds enrichment attributes mined from the page body. It is
// always populated by the extractor, possibly sparse.
type Details struct {
	Description     *string  `json:"description"`
	ISBN            *string  `json:"isbn"`
	Publisher       *string  `json:"publisher"`
	PublicationDate *string  `json:"publicationDate"`
	Format          *string  `json:"format"`
	Pages           *int     `json:"pages"`
	Language        *string  `json:"language"`
	Dimensions      *string  `json:"dimensions"`
	Rating          *float64 `json:"rating"`
	ReviewCount     *int     `json:"reviewCount"`
	Availability    *string  `json:"availability"`
}

// Product is a persisted catalog record. ID is assigned once at creation
// and never changes; SourceURL is the natural key for idempotent merges.
type Product struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"sourceId"`
	SourceURL string    `json:"sourceUrl"`
	Title     string    `json:"title"`
	Author    *string   `json:"author"`
	Price     *float64  `json:"price"`
	ImageURL  *string   `json:"imageUrl"`
	Details   *Details  `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sortable fields accepted by FilterSpec.SortBy.
const (
	SortByCreatedAt = "createdAt"
	SortByPrice     = "price"
	SortByTitle     = "title"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultPage  = 1
	DefaultLimit = 20
)

// FilterSpec describes a catalog query. Zero values mean "no constraint";
// the active predicates combine with AND semantics.
type FilterSpec struct {
	Search    string
	MinPrice  *float64
	MaxPrice  *float64
	Author    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// normalized returns a copy with defaults applied and unknown sort
// parameters replaced by the defaults.
func (f FilterSpec) normalized() FilterSpec {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	switch f.SortBy {
	case SortByCreatedAt, SortByPrice, SortByTitle:
	default:
		f.SortBy = SortByCreatedAt
	}
	switch f.SortOrder {
	case SortAsc, SortDesc:
	default:
		f.SortOrder = SortDesc
	}
	return f
}

// Pagination describes the page window of a list result. Total counts all
// rows matching the filter, independent of the window.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Stats summarises the catalog. Price aggregates default to 0 on an
// empty catalog.
type Stats struct {
	TotalProducts int     `json:"totalProducts"`
	AvgPrice      float64 `json:"avgPrice"`
	MinPrice      float64 `json:"minPrice"`
	MaxPrice      float64 `json:"maxPrice"`
	TotalAuthors  int     `json:"totalAuthors"`
}
