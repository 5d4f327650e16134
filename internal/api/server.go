// Package api exposes the ingestion and catalog operations over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shelfmark/shelfmark/internal/ingest"
	"github.com/shelfmark/shelfmark/internal/monitoring"
	"github.com/shelfmark/shelfmark/internal/utils"
)

// Server routes HTTP requests to the ingest service.
type Server struct {
	service *ingest.Service
	logger  utils.Logger
	metrics *monitoring.Metrics
	router  *mux.Router
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer builds the router. logger and metrics may be nil.
func NewServer(service *ingest.Service, logger utils.Logger, metrics *monitoring.Metrics) *Server {
	if logger == nil {
		logger = utils.NopLogger{}
	}
	s := &Server{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodPost)
	api.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.handleDeleteProduct).Methods(http.MethodDelete)

	r.Use(s.loggingMiddleware)
	return r
}

// Handler returns the root handler, for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until it fails.
func (s *Server) ListenAndServe(cfg ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	s.logger.Infof("listening on %s", cfg.Address)
	return srv.ListenAndServe()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	})
}
