// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/placegate/internal/store"
	"github.com/tomtom215/placegate/internal/validation"
)

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Subject string   `json:"subject" validate:"required,max=128"`
	Roles   []string `json:"roles" validate:"required,min=1,dive,oneof=user admin"`
}

// TokenResponse carries a minted JWT.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken mints a catalog JWT.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	token, expires, err := h.deps.Tokens.GenerateToken(req.Subject, req.Roles)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to issue token", err)
		return
	}
	respondJSON(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires.UTC()})
}

// ListPlacesRequest holds the query of GET /places.
type ListPlacesRequest struct {
	Limit  int    `query:"limit" validate:"min=1,max=500"`
	Offset int    `query:"offset" validate:"min=0"`
	Type   string `query:"type" validate:"omitempty,max=64"`
}

// PlacePage is one page of the stored catalog.
type PlacePage struct {
	Items  []store.PlaceSummary `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListPlaces pages through the stored catalog.
//
// @Summary List stored places
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size" minimum(1) maximum(500) default(50)
// @Param offset query int false "Offset" minimum(0)
// @Param type query string false "Category filter"
// @Success 200 {object} api.PlacePage
// @Failure 401 {object} models.Problem
// @Failure 403 {object} models.Problem
// @Router /places [get]
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	limit, err := getIntParam(r, "limit", store.DefaultListLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	offset, err := getIntParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	req := ListPlacesRequest{Limit: limit, Offset: offset, Type: r.URL.Query().Get("type")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	items, total, err := h.deps.Catalog.List(r.Context(), store.ListQuery{Limit: req.Limit, Offset: req.Offset, Type: req.Type})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to list places", err)
		return
	}
	if items == nil {
		items = []store.PlaceSummary{}
	}
	respondJSON(w, http.StatusOK, PlacePage{Items: items, Total: total, Limit: req.Limit, Offset: req.Offset})
}

// NearbyRequest holds the query of GET /places/nearby.
type NearbyRequest struct {
	Latitude   *float64 `query:"latitude" validate:"required,min=-90,max=90"`
	Longitude  *float64 `query:"longitude" validate:"required,min=-180,max=180"`
	Radius     *float64 `query:"radius" validate:"required,min=100,max=50000"`
	MaxResults int      `query:"maxResults" validate:"min=1,max=100"`
}

// NearbyPlaces returns stored places within radius metres of a point,
// nearest first.
func (h *Handler) NearbyPlaces(w http.ResponseWriter, r *http.Request) {
	var req NearbyRequest
	var err error
	for key, dst := range map[string]**float64{"latitude": &req.Latitude, "longitude": &req.Longitude, "radius": &req.Radius} {
		if *dst, err = getFloatParam(r, key); err != nil {
			respondError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	if req.MaxResults, err = getIntParam(r, "maxResults", 100); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	items, err := h.deps.Catalog.Nearby(r.Context(), store.NearbyQuery{
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		RadiusMeters: *req.Radius,
		Limit:        req.MaxResults,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to search nearby places", err)
		return
	}
	if items == nil {
		items = []store.PlaceSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items, "count": len(items)})
}

// GetPlace returns one stored place document.
//
// @Summary Stored place document
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Place id"
// @Success 200 {object} object
// @Failure 404 {object} models.Problem
// @Router /places/{id} [get]
func (h *Handler) GetPlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.deps.Catalog.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "place not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load place", err)
		return
	}
	respondRaw(w, http.StatusOK, doc)
}
