// Package ingest composes the scraping pipeline: fetch, parse, extract,
// normalize, merge.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/monitoring"
	"github.com/shelfmark/shelfmark/internal/scraper"
	"github.com/shelfmark/shelfmark/internal/utils"
)

// Pipeline stages reported by ScrapeError.
const (
	StageFetch   = "fetch"
	StageParse   = "parse"
	StagePersist = "persist"
)

// ScrapeError reports which pipeline stage failed. Extraction gaps are
// not errors; only fetch, parse and persistence failures abort a run.
type ScrapeError struct {
	Stage string
	URL   string
	Err   error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scraping failed at %s for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Service runs ingestions and delegates catalog queries. Each call is an
// independent sequential pipeline; the store is the only shared state.
type Service struct {
	fetcher   scraper.Fetcher
	extractor *scraper.ProductExtractor
	store     *catalog.Store
	logger    utils.Logger
	metrics   *monitoring.Metrics
}

// NewService wires the pipeline components together. logger and metrics
// may be nil.
func NewService(fetcher scraper.Fetcher, extractor *scraper.ProductExtractor, store *catalog.Store, logger utils.Logger, metrics *monitoring.Metrics) *Service {
	if logger == nil {
		logger = utils.NopLogger{}
	}
	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		logger:    logger,
		metrics:   metrics,
	}
}

// ScrapeProduct ingests one URL and returns the merged, persisted
// product. A fetch or parse failure aborts the run with no catalog write;
// missing optional fields degrade to null.
func (s *Service) ScrapeProduct(ctx context.Context, url string) (*catalog.Product, error) {
	log := s.logger.WithField("url", url)
	log.Info("starting scrape")

	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx, url)
	s.metrics.ObserveFetch(time.Since(start), err)
	if err != nil {
		s.metrics.ObserveScrape(err)
		log.Errorf("fetch failed: %v", err)
		return nil, &ScrapeError{Stage: StageFetch, URL: url, Err: err}
	}
	log.WithField("status", raw.StatusCode).Debug("page fetched")

	doc, err := scraper.ParseDocument(raw.Body)
	if err != nil {
		s.metrics.ObserveScrape(err)
		return nil, &ScrapeError{Stage: StageParse, URL: url, Err: err}
	}

	candidate := s.extractor.Extract(doc, url)
	extracted, missing := fieldCompleteness(candidate)
	s.metrics.ObserveFields(extracted, missing)
	log.WithFields(map[string]interface{}{
		"title":  candidate.Title,
		"fields": extracted,
	}).Debug("extraction complete")

	product, err := s.store.Merge(ctx, url, candidate)
	if err != nil {
		s.metrics.ObserveScrape(err)
		log.Errorf("merge failed: %v", err)
		return nil, &ScrapeError{Stage: StagePersist, URL: url, Err: err}
	}

	s.metrics.ObserveMerge(product.CreatedAt.Equal(product.UpdatedAt))
	s.metrics.ObserveScrape(nil)
	log.WithField("id", product.ID).Info("scrape complete")
	return product, nil
}

// ListProducts runs a filtered catalog query.
func (s *Service) ListProducts(ctx context.Context, filter catalog.FilterSpec) ([]catalog.Product, catalog.Pagination, error) {
	return s.store.List(ctx, filter)
}

// GetProduct looks a product up by id, including details.
func (s *Service) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return s.store.GetByID(ctx, id)
}

// DeleteProduct removes a product and its details permanently.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Stats aggregates the catalog.
func (s *Service) Stats(ctx context.Context) (*catalog.Stats, error) {
	return s.store.Stats(ctx)
}

// fieldCompleteness counts extracted versus missing optional fields, for
// metrics only.
func fieldCompleteness(c catalog.Candidate) (extracted, missing int) {
	count := func(present bool) {
		if present {
			extracted++
		} else {
			missing++
		}
	}

	count(c.Title != "")
	count(c.Author != nil)
	count(c.Price != nil)
	count(c.ImageURL != nil)

	if d := c.Details; d != nil {
		count(d.Description != nil)
		count(d.ISBN != nil)
		count(d.Publisher != nil)
		count(d.PublicationDate != nil)
		count(d.Format != nil)
		count(d.Pages != nil)
		count(d.Language != nil)
	}
	return extracted, missing
}
