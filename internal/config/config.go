// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package config loads and validates Placegate configuration.
//
// Configuration is layered with Koanf v2:
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/placegate/config.yaml)
//  3. Environment variables (highest priority)
//
// Load fails when a required secret is absent: GOOGLE_PLACES_API_KEY,
// INTERNAL_API_KEY (or INTERNAL_API_KEY_HASH) and CORS_ORIGINS. The process must
// not start without them.
package config

import "time"

// Config holds all application configuration.
// It is immutable after Load and safe for concurrent reads.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Places      PlacesConfig      `koanf:"places"`
	Sync        SyncConfig        `koanf:"sync"`
	PlaceFinder PlaceFinderConfig `koanf:"place_finder"`
	Database    DatabaseConfig    `koanf:"database"`
	KV          KVConfig          `koanf:"kv"`
	Jobs        JobsConfig        `koanf:"jobs"`
	NATS        NATSConfig        `koanf:"nats"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Environment     string        `koanf:"environment"` // development, production, test
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// PlacesConfig configures the upstream Google Places client.
type PlacesConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	MaxRetries        int           `koanf:"max_retries"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay"`
	BreakerEnabled    bool          `koanf:"breaker_enabled"`
}

// SyncConfig configures the hybrid discovery and sync job.
type SyncConfig struct {
	DefaultMaxResults int           `koanf:"default_max_results"`
	RegionDelay       time.Duration `koanf:"region_delay"`
	PageDelay         time.Duration `koanf:"page_delay"`
	RunTimeout        time.Duration `koanf:"run_timeout"`
	// Schedule is a standard 5-field cron expression. Empty disables scheduled runs.
	Schedule string `koanf:"schedule"`
}

// PlaceFinderConfig configures the pass-through search endpoints.
type PlaceFinderConfig struct {
	BulkDelay time.Duration `koanf:"bulk_delay"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// DatabaseConfig configures the DuckDB places catalog.
type DatabaseConfig struct {
	Path      string `koanf:"path"` // empty means in-memory
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 lets DuckDB decide
}

// KVConfig configures the Badger store used for idempotency keys and job status.
type KVConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
	GCRatio    float64       `koanf:"gc_ratio"`
}

// JobsConfig configures the background job queue.
type JobsConfig struct {
	Backend       string        `koanf:"backend"` // memory or nats
	StatusTTL     time.Duration `koanf:"status_ttl"`
	RetryCount    int           `koanf:"retry_count"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	PoisonTopic   string        `koanf:"poison_topic"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
}

// NATSConfig configures the JetStream job backend.
type NATSConfig struct {
	URL              string        `koanf:"url"`
	EmbeddedServer   bool          `koanf:"embedded_server"`
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port"`
	StoreDir         string        `koanf:"store_dir"`
	MaxMemory        int64         `koanf:"max_memory"`
	MaxStore         int64         `koanf:"max_store"`
	SubscribersCount int           `koanf:"subscribers_count"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	AckWait          time.Duration `koanf:"ack_wait"`
}

// SecurityConfig holds API key, JWT, CORS, rate limit and idempotency settings.
type SecurityConfig struct {
	InternalAPIKey     string        `koanf:"internal_api_key"`
	InternalAPIKeyHash string        `koanf:"internal_api_key_hash"` // bcrypt hash, takes precedence
	JWTSecret          string        `koanf:"jwt_secret"`
	JWTIssuer          string        `koanf:"jwt_issuer"`
	JWTAudience        string        `koanf:"jwt_audience"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	CORSOrigins        []string      `koanf:"cors_origins"`
	RateLimitReqs      int           `koanf:"rate_limit_reqs"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled  bool          `koanf:"rate_limit_disabled"`
	IdempotencyTTLSecs int           `koanf:"idempotency_ttl_seconds"`
}

// IdempotencyTTL returns the idempotency key lifetime.
func (s SecurityConfig) IdempotencyTTL() time.Duration {
	return time.Duration(s.IdempotencyTTLSecs) * time.Second
}

// JWTEnabled reports whether bearer-token routes are active.
func (s SecurityConfig) JWTEnabled() bool {
	return s.JWTSecret != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
