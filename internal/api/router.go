// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/placegate/docs" // registers the Swagger document
	"github.com/tomtom215/placegate/internal/auth"
	"github.com/tomtom215/placegate/internal/middleware"
)

// Router wires handlers and guards onto a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	apiKey        *auth.APIKeyGuard
	bearer        *auth.Middleware
	kv            middleware.KeyStore
	idemTTL       time.Duration
}

// NewRouter returns a router. bearer is nil when JWT is disabled, in which
// case the /places catalog routes are not mounted.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, apiKey *auth.APIKeyGuard, bearer *auth.Middleware, kv middleware.KeyStore, idemTTL time.Duration) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		apiKey:        apiKey,
		bearer:        bearer,
		kv:            kv,
		idemTTL:       idemTTL,
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Compress(5, "application/json", "application/problem+json"))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	// ========================
	// Health, metrics and docs
	// ========================
	r.Get("/live", router.handler.HealthLive)
	r.Get("/ready", router.handler.HealthReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	idempotent := middleware.Idempotency(router.kv, router.idemTTL)

	// ========================
	// Place finder (API key)
	// ========================
	r.Route("/place-finder", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.apiKey.Require)

		r.Get("/search", router.handler.Search)
		r.With(idempotent).Post("/bulk-search", router.handler.BulkSearch)
		r.Get("/details", router.handler.Details)
		r.Get("/debug/search", router.handler.DebugSearch)
		r.Get("/debug/details", router.handler.DebugDetails)
		r.Get("/info", router.handler.Info)
	})

	// ========================
	// Admin (API key)
	// ========================
	r.Route("/admin", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.apiKey.Require)

		r.With(idempotent).Post("/sync-places", router.handler.SyncPlaces)
		r.Get("/sync-places/{jobId}", router.handler.SyncStatus)
	})

	if router.bearer == nil {
		return r
	}

	// ========================
	// Token issuance (API key)
	// ========================
	r.Route("/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.apiKey.Require)
		r.Post("/token", router.handler.IssueToken)
	})

	// ========================
	// Stored catalog (JWT)
	// ========================
	r.Route("/places", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.bearer.RequireRole(auth.RoleUser))

		r.Get("/", router.handler.ListPlaces)
		r.Get("/nearby", router.handler.NearbyPlaces)
		r.Get("/{id}", router.handler.GetPlace)
	})

	return r
}
