// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/placegate/internal/api"
	"github.com/tomtom215/placegate/internal/auth"
	"github.com/tomtom215/placegate/internal/cache"
	"github.com/tomtom215/placegate/internal/config"
	"github.com/tomtom215/placegate/internal/jobs"
	"github.com/tomtom215/placegate/internal/kvstore"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/places"
	"github.com/tomtom215/placegate/internal/store"
	"github.com/tomtom215/placegate/internal/supervisor"
	"github.com/tomtom215/placegate/internal/supervisor/services"
	placesync "github.com/tomtom215/placegate/internal/sync"
)

// app holds every long-lived component. Fields are set in dependency order by
// newApp and released in reverse order by close.
type app struct {
	cfg *config.Config

	store   *store.Store
	kv      *kvstore.Store
	backend *jobs.Backend

	searchCache *cache.Cache[api.SearchHit]
	jobRouter   *jobs.Router
	scheduler   *jobs.Scheduler
	server      *http.Server

	tree *supervisor.SupervisorTree
}

// newApp opens the stores, builds the pipeline and job queue, and assembles
// the supervisor tree. Anything opened before a failure is closed again.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) (err error) {
	cfg := a.cfg

	// Storage
	if a.store, err = store.Open(ctx, &cfg.Database); err != nil {
		return fmt.Errorf("open places store: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Places store initialized")

	if a.kv, err = kvstore.Open(&cfg.KV); err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}
	logging.Info().Str("path", cfg.KV.Path).Bool("in_memory", cfg.KV.InMemory).Msg("KV store initialized")

	// Upstream provider and sync pipeline
	provider, err := newProvider(&cfg.Places)
	if err != nil {
		return err
	}
	syncService, err := placesync.NewService(provider, a.store, placesync.Options{
		RegionDelay: cfg.Sync.RegionDelay,
		PageDelay:   cfg.Sync.PageDelay,
	})
	if err != nil {
		return fmt.Errorf("build sync service: %w", err)
	}

	// Job queue
	wmLogger := jobs.NewLogger()
	if a.backend, err = jobs.NewBackend(cfg, wmLogger); err != nil {
		return fmt.Errorf("build job backend: %w", err)
	}
	status := jobs.NewStatusStore(a.kv, cfg.Jobs.StatusTTL)
	dispatcher := jobs.NewDispatcher(a.backend.Publisher, status)
	consumer := jobs.NewConsumer(syncService, status, cfg.Sync.RunTimeout)
	a.jobRouter = jobs.NewRouter(jobs.RouterConfigFrom(&cfg.Jobs), a.backend, consumer, wmLogger)
	logging.Info().Str("backend", a.backend.Name).Msg("Job queue initialized")

	if cfg.Sync.Schedule != "" {
		if a.scheduler, err = jobs.NewScheduler(dispatcher, cfg.Sync.Schedule, cfg.Sync.DefaultMaxResults); err != nil {
			return fmt.Errorf("build sync scheduler: %w", err)
		}
		logging.Info().Str("schedule", cfg.Sync.Schedule).Msg("Scheduled sync enabled")
	}

	// HTTP gateway
	a.searchCache = api.NewSearchCache(cfg.PlaceFinder.CacheTTL)
	handler, err := a.newHTTPHandler(provider, dispatcher, status)
	if err != nil {
		return err
	}
	a.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	a.tree, err = a.newTree()
	return err
}

// newProvider builds the Places client, behind a circuit breaker unless
// PLACES_BREAKER_ENABLED=false.
func newProvider(cfg *config.PlacesConfig) (places.API, error) {
	client, err := places.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.BreakerEnabled {
		logging.Warn().Msg("Places circuit breaker disabled")
		return client, nil
	}
	return places.NewCircuitBreakerClient(client, places.DefaultBreakerSettings()), nil
}

func (a *app) newHTTPHandler(provider places.API, dispatcher *jobs.Dispatcher, status *jobs.StatusStore) (http.Handler, error) {
	sec := &a.cfg.Security

	apiKey, err := auth.NewAPIKeyGuard(sec)
	if err != nil {
		return nil, err
	}

	deps := api.Deps{
		Places:   provider,
		Catalog:  a.store,
		Enqueuer: dispatcher,
		Jobs:     status,
		Checks: []api.ReadinessCheck{
			{Name: "store", Check: a.store.Ping},
			{Name: "kv", Check: a.kv.Ping},
			{Name: "jobs", Check: a.jobsReady},
		},
	}

	var bearer *auth.Middleware
	if sec.JWTEnabled() {
		jwtManager, err := auth.NewJWTManager(sec)
		if err != nil {
			return nil, err
		}
		authorizer, err := auth.NewAuthorizer()
		if err != nil {
			return nil, fmt.Errorf("load authorization policy: %w", err)
		}
		bearer = auth.NewMiddleware(jwtManager, authorizer)
		deps.Tokens = jwtManager
	} else {
		logging.Warn().Msg("JWT_SECRET not set, /auth and /places routes are disabled")
	}

	handler := api.NewHandler(a.cfg, deps, a.searchCache)
	router := api.NewRouter(handler, api.NewChiMiddleware(chiMiddlewareConfig(sec)), apiKey, bearer, a.kv, sec.IdempotencyTTL())
	return router.Setup(), nil
}

func (a *app) jobsReady(context.Context) error {
	if !a.jobRouter.IsRunning() {
		return errors.New("job router not running")
	}
	if !a.backend.Healthy() {
		return errors.New("job backend unhealthy")
	}
	return nil
}

// chiMiddlewareConfig maps security settings onto the chi middleware config.
func chiMiddlewareConfig(sec *config.SecurityConfig) *api.ChiMiddlewareConfig {
	c := api.DefaultChiMiddlewareConfig()
	c.CORSAllowedOrigins = sec.CORSOrigins
	if sec.RateLimitReqs > 0 {
		c.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		c.RateLimitWindow = sec.RateLimitWindow
	}
	c.RateLimitDisabled = sec.RateLimitDisabled
	return c
}

func (a *app) newTree() (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(kvstore.NewGCService(a.kv, a.cfg.KV.GCInterval))
	tree.AddDataService(a.searchCache)

	tree.AddMessagingService(a.jobRouter)
	if a.scheduler != nil {
		tree.AddMessagingService(a.scheduler)
	}

	tree.AddAPIService(services.NewHTTPServerService(a.server, a.server.Addr, a.cfg.Server.ShutdownTimeout))
	return tree, nil
}

// run serves the tree until ctx is canceled.
func (a *app) run(ctx context.Context) error {
	err := a.tree.Serve(ctx)
	if report, rerr := a.tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within shutdown timeout")
		}
	}
	return err
}

// close releases resources in reverse order of creation.
func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing job backend")
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing kv store")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing places store")
		}
	}
}
