// Package monitoring exposes Prometheus metrics for the ingestion
// pipeline and catalog.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects pipeline counters. A nil *Metrics is valid and records
// nothing, so components can take metrics optionally.
type Metrics struct {
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	scrapesTotal    *prometheus.CounterVec
	mergesTotal     *prometheus.CounterVec
	fieldsExtracted prometheus.Counter
	fieldsMissing   prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics set registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "shelfmark"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Page fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		scrapesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		mergesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Catalog merges by result (created or updated).",
		}, []string{"result"}),
		fieldsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_extracted_total",
			Help:      "Non-null fields produced by extraction.",
		}),
		fieldsMissing: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_missing_total",
			Help:      "Fields whose strategy chains produced no value.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.fetchesTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

// ObserveScrape records one full ingestion run.
func (m *Metrics) ObserveScrape(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.scrapesTotal.WithLabelValues(outcome).Inc()
}

// ObserveMerge records whether a merge created or updated a product.
func (m *Metrics) ObserveMerge(created bool) {
	if m == nil {
		return
	}
	result := "updated"
	if created {
		result = "created"
	}
	m.mergesTotal.WithLabelValues(result).Inc()
}

// ObserveFields records extraction completeness for one run.
func (m *Metrics) ObserveFields(extracted, missing int) {
	if m == nil {
		return
	}
	m.fieldsExtracted.Add(float64(extracted))
	m.fieldsMissing.Add(float64(missing))
}
