// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/cache"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/validation"
)

// BulkSearchRequest is the body of POST /place-finder/bulk-search.
type BulkSearchRequest struct {
	Queries []string `json:"queries" validate:"required,min=1,dive,min=3"`
}

// BulkSearchResult is one entry of the bulk search response.
type BulkSearchResult struct {
	SearchHit
	Error string `json:"error,omitempty"`
}

// lookup returns the first hit for query, using the search cache.
func (h *Handler) lookup(ctx context.Context, query string) (SearchHit, error) {
	key := cache.NormalizeKey(query)
	if h.searchCache != nil {
		if hit, ok := h.searchCache.Get(key); ok {
			hit.Query = query
			return hit, nil
		}
	}

	resp, err := h.deps.Places.SearchPlace(ctx, query)
	if err != nil {
		return SearchHit{}, err
	}
	hit := SearchHit{Query: query}
	if len(resp.Places) > 0 {
		first := resp.Places[0]
		hit.PlaceID = first.ID
		hit.Name = first.Name()
		hit.Address = first.FormattedAddress
	}
	if h.searchCache != nil {
		h.searchCache.Set(key, hit)
	}
	return hit, nil
}

// Search returns the first search hit for ?q=.
//
// @Summary Single place search
// @Tags PlaceFinder
// @Produce json
// @Security ApiKeyAuth
// @Param q query string true "Search text"
// @Success 200 {object} api.SearchHit
// @Failure 400 {object} models.Problem
// @Failure 502 {object} models.Problem
// @Router /place-finder/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, r, http.StatusBadRequest, "q parameter required", nil)
		return
	}
	hit, err := h.lookup(r.Context(), q)
	if err != nil {
		respondProviderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hit)
}

// BulkSearch looks up every query in order. A failed lookup yields
// {query, error: "Not found"} and does not stop the batch.
//
// @Summary Bulk place search
// @Tags PlaceFinder
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body api.BulkSearchRequest true "Queries"
// @Success 200 {array} api.BulkSearchResult
// @Failure 400 {object} models.Problem
// @Router /place-finder/bulk-search [post]
func (h *Handler) BulkSearch(w http.ResponseWriter, r *http.Request) {
	var req BulkSearchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	ctx := r.Context()
	results := make([]BulkSearchResult, 0, len(req.Queries))
	for i, q := range req.Queries {
		if i > 0 && h.bulkDelay > 0 {
			select {
			case <-ctx.Done():
				respondError(w, r, http.StatusServiceUnavailable, "request cancelled", ctx.Err())
				return
			case <-time.After(h.bulkDelay):
			}
		}

		hit, err := h.lookup(ctx, q)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("query", sanitizeLogValue(q)).Msg("Bulk search lookup failed")
			results = append(results, BulkSearchResult{SearchHit: SearchHit{Query: q}, Error: "Not found"})
			continue
		}
		results = append(results, BulkSearchResult{SearchHit: hit})
	}
	respondJSON(w, http.StatusOK, results)
}

// Details returns place details by ?placeId=, or searches ?name= first and
// annotates the details with _searchInfo.
//
// @Summary Place details
// @Tags PlaceFinder
// @Produce json
// @Security ApiKeyAuth
// @Param placeId query string false "Provider place id"
// @Param name query string false "Place name"
// @Success 200 {object} object
// @Failure 400 {object} models.Problem
// @Failure 404 {object} models.Problem
// @Router /place-finder/details [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	placeID := strings.TrimSpace(r.URL.Query().Get("placeId"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	if placeID != "" {
		d, err := h.deps.Places.GetDetails(ctx, placeID)
		if err != nil {
			respondProviderError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, d)
		return
	}

	if name == "" {
		respondError(w, r, http.StatusBadRequest,
			"placeId or name parameter required (e.g. /place-finder/details?placeId=ChIJ... or ?name=Galata Tower)", nil)
		return
	}

	hit, err := h.lookup(ctx, name)
	if err != nil {
		respondProviderError(w, r, err)
		return
	}
	if hit.PlaceID == "" {
		respondError(w, r, http.StatusNotFound, "No place found with provided name", nil)
		return
	}

	d, err := h.deps.Places.GetDetails(ctx, hit.PlaceID)
	if err != nil {
		respondProviderError(w, r, err)
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to encode details", err)
		return
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		respondError(w, r, http.StatusBadGateway, "upstream details are not an object", err)
		return
	}
	info, _ := json.Marshal(map[string]string{"searchedName": name, "foundPlaceId": hit.PlaceID})
	doc["_searchInfo"] = info
	respondJSON(w, http.StatusOK, doc)
}

// DebugSearch returns the upstream search body unchanged.
func (h *Handler) DebugSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, r, http.StatusBadRequest, "q parameter required", nil)
		return
	}
	raw, err := h.deps.Places.RawSearch(r.Context(), q)
	if err != nil {
		respondProviderError(w, r, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// DebugDetails returns the upstream details body unchanged.
func (h *Handler) DebugDetails(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimSpace(r.URL.Query().Get("placeId"))
	if placeID == "" {
		respondError(w, r, http.StatusBadRequest, "placeId parameter required", nil)
		return
	}
	raw, err := h.deps.Places.RawDetails(r.Context(), placeID)
	if err != nil {
		respondProviderError(w, r, err)
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

type endpointInfo struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	Description string      `json:"description"`
	Example     string      `json:"example,omitempty"`
	Body        interface{} `json:"body,omitempty"`
}

// Info describes the service and its place-finder endpoints.
func (h *Handler) Info(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Placegate Place Finder API",
		"version": Version,
		"endpoints": map[string]map[string]endpointInfo{
			"production": {
				"search": {
					Method:      http.MethodGet,
					URL:         "/place-finder/search?q={query}",
					Description: "Single place search (filtered first result)",
					Example:     "/place-finder/search?q=Galata Tower",
				},
				"bulkSearch": {
					Method:      http.MethodPost,
					URL:         "/place-finder/bulk-search",
					Description: "Bulk place search",
					Body:        BulkSearchRequest{Queries: []string{"Place 1", "Place 2"}},
				},
				"details": {
					Method:      http.MethodGet,
					URL:         "/place-finder/details?placeId={id} or ?name={name}",
					Description: "Place details by id or by name",
					Example:     "/place-finder/details?name=Galata Tower",
				},
			},
			"debug": {
				"debugSearch": {
					Method:      http.MethodGet,
					URL:         "/place-finder/debug/search?q={query}",
					Description: "Raw upstream search result",
				},
				"debugDetails": {
					Method:      http.MethodGet,
					URL:         "/place-finder/debug/details?placeId={id}",
					Description: "Raw upstream details result",
				},
			},
			"utility": {
				"info": {
					Method:      http.MethodGet,
					URL:         "/place-finder/info",
					Description: "Service information and endpoint catalog",
				},
			},
		},
	})
}
