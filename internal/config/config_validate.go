// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sync target bounds accepted by the admin endpoint and the scheduler.
const (
	MinSyncResults = 10
	MaxSyncResults = 1000
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePlaces(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

var validEnvironments = map[string]bool{
	"development": true,
	"production":  true,
	"test":        true,
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvironments[strings.ToLower(c.Server.Environment)] {
		return fmt.Errorf("NODE_ENV must be one of: development, production, test")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func (c *Config) validatePlaces() error {
	if strings.TrimSpace(c.Places.APIKey) == "" {
		return fmt.Errorf("GOOGLE_PLACES_API_KEY is required")
	}
	if err := validateHTTPURL(c.Places.BaseURL); err != nil {
		return fmt.Errorf("GOOGLE_PLACES_BASE_URL is invalid: %w", err)
	}
	if c.Places.RequestsPerSecond <= 0 {
		return fmt.Errorf("PLACES_REQUESTS_PER_SECOND must be positive")
	}
	if c.Places.MaxRetries < 0 {
		return fmt.Errorf("PLACES_MAX_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.DefaultMaxResults < MinSyncResults || c.Sync.DefaultMaxResults > MaxSyncResults {
		return fmt.Errorf("SYNC_DEFAULT_MAX_RESULTS must be between %d and %d", MinSyncResults, MaxSyncResults)
	}
	if c.Sync.RegionDelay < 0 || c.Sync.PageDelay < 0 {
		return fmt.Errorf("sync delays must not be negative")
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("SYNC_SCHEDULE is not a valid cron expression: %w", err)
		}
	}
	return nil
}

func (c *Config) validateJobs() error {
	switch c.Jobs.Backend {
	case "memory":
		return nil
	case "nats":
		if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when JOBS_BACKEND=nats without an embedded server")
		}
		if c.NATS.SubscribersCount < 1 {
			return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
		}
		return nil
	default:
		return fmt.Errorf("JOBS_BACKEND must be one of: memory, nats")
	}
}

func (c *Config) validateSecurity() error {
	if c.Security.InternalAPIKey == "" && c.Security.InternalAPIKeyHash == "" {
		return fmt.Errorf("INTERNAL_API_KEY is required")
	}
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed when NODE_ENV=production")
	}
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.IdempotencyTTLSecs < 1 {
		return fmt.Errorf("IDEMPOTENCY_KEY_TTL_SECONDS must be positive")
	}
	return c.validateRateLimits()
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty")
	}
	return nil
}
