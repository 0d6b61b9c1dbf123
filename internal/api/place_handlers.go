package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/placelens/placelens/internal/extract"
	"github.com/placelens/placelens/internal/report"
	"github.com/placelens/placelens/internal/search"
)

const (
	defaultMoreClicks = 5
	maxMoreClicks     = 100
)

// searchStores proxies the OpenAPI local search. 503 when no application
// credentials are configured.
func (s *Server) searchStores(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "store search is not configured")
		return
	}
	q := search.Query{
		Keyword: r.URL.Query().Get("keyword"),
		Sort:    r.URL.Query().Get("sort"),
	}
	if q.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		q.Size, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		q.Page, _ = strconv.Atoi(raw)
	}
	items, err := s.searcher.Local(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadGateway, "store search failed")
		s.logger.Error("local search", zap.String("keyword", q.Keyword), zap.Error(err))
		return
	}
	writeData(w, http.StatusOK, items)
}

// resolvePlace runs the place resolution stage synchronously: search page
// fetch plus id extraction, under the request timeout.
func (s *Server) resolvePlace(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	html, err := s.fetcher.Place(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, "place fetch failed")
		s.logger.Error("resolve place", zap.String("query", query), zap.Error(err))
		return
	}
	placeID, err := extract.PlaceID(html)
	if errors.Is(err, report.ErrPlaceNotFound) {
		writeError(w, http.StatusNotFound, "no place matches the query")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "place extraction failed")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"place_id": placeID})
}

// getReviews fetches and extracts a place's visitor reviews without
// persisting anything.
func (s *Server) getReviews(w http.ResponseWriter, r *http.Request) {
	placeID := r.URL.Query().Get("place_id")
	if placeID == "" {
		writeError(w, http.StatusBadRequest, "place_id is required")
		return
	}
	more := defaultMoreClicks
	if raw := r.URL.Query().Get("more"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxMoreClicks {
			writeError(w, http.StatusBadRequest, "more must be between 0 and 100")
			return
		}
		more = parsed
	}
	html, err := s.fetcher.Reviews(r.Context(), placeID, more)
	if err != nil {
		writeError(w, http.StatusBadGateway, "review fetch failed")
		s.logger.Error("fetch reviews", zap.String("place_id", placeID), zap.Error(err))
		return
	}
	reviews, err := extract.Reviews(html)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "review extraction failed")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"count":   len(reviews),
		"reviews": reviews,
	})
}
