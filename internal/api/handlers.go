// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/ingest"
)

type scrapeRequest struct {
	URL string `json:"url"`
}

type listResponse struct {
	Products   []catalog.Product  `json:"products"`
	Pagination catalog.Pagination `json:"pagination"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a non-empty url")
		return
	}

	product, err := s.service.ScrapeProduct(r.Context(), req.URL)
	if err != nil {
		s.logger.Errorf("scrape failed: %v", err)
		writeError(w, scrapeStatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// scrapeStatusCode maps the failing pipeline stage to an HTTP status:
// upstream fetch problems are a bad gateway, everything else is internal.
func scrapeStatusCode(err error) int {
	var scrapeErr *ingest.ScrapeError
	if errors.As(err, &scrapeErr) && scrapeErr.Stage == ingest.StageFetch {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, pagination, err := s.service.ListProducts(r.Context(), filter)
	if err != nil {
		s.logger.Errorf("list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to query products")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Products: products, Pagination: pagination})
}

func filterFromQuery(r *http.Request) (catalog.FilterSpec, error) {
	q := r.URL.Query()
	filter := catalog.FilterSpec{
		Search:    q.Get("search"),
		Author:    q.Get("author"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	var err error
	if filter.MinPrice, err = parseFloatParam(q.Get("minPrice")); err != nil {
		return filter, errors.New("minPrice must be a number")
	}
	if filter.MaxPrice, err = parseFloatParam(q.Get("maxPrice")); err != nil {
		return filter, errors.New("maxPrice must be a number")
	}
	if filter.Page, err = parseIntParam(q.Get("page")); err != nil {
		return filter, errors.New("page must be an integer")
	}
	if filter.Limit, err = parseIntParam(q.Get("limit")); err != nil {
		return filter, errors.New("limit must be an integer")
	}
	return filter, nil
}

func parseFloatParam(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseIntParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	product, err := s.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		s.logger.Errorf("get failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		s.logger.Errorf("delete failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.logger.Errorf("stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
