// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/placegate/config.yaml",
	"/etc/placegate/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			Host:            "0.0.0.0",
			Environment:     "development",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute, // bulk-search can run long
			ShutdownTimeout: 30 * time.Second,
		},
		Places: PlacesConfig{
			BaseURL:           "https://places.googleapis.com/v1",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             10,
			MaxRetries:        5,
			RetryBaseDelay:    time.Second,
			BreakerEnabled:    true,
		},
		Sync: SyncConfig{
			DefaultMaxResults: 1000,
			RegionDelay:       time.Second,
			PageDelay:         2 * time.Second,
			RunTimeout:        2 * time.Hour,
		},
		PlaceFinder: PlaceFinderConfig{
			BulkDelay: 200 * time.Millisecond,
			CacheTTL:  10 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/placegate.duckdb",
			MaxMemory: "1GB",
		},
		KV: KVConfig{
			Path:       "/data/kv",
			GCInterval: 10 * time.Minute,
			GCRatio:    0.5,
		},
		Jobs: JobsConfig{
			Backend:       "memory",
			StatusTTL:     7 * 24 * time.Hour,
			RetryCount:    0,
			RetryInterval: 5 * time.Second,
			PoisonTopic:   "syncQueue-failed",
			CloseTimeout:  30 * time.Second,
		},
		NATS: NATSConfig{
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			Host:             "127.0.0.1",
			Port:             4222,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        256 << 20,
			MaxStore:         1 << 30,
			SubscribersCount: 1,
			DurableName:      "placegate-sync",
			QueueGroup:       "placegate-workers",
			AckWait:          3 * time.Hour,
		},
		Security: SecurityConfig{
			JWTIssuer:          "placegate",
			JWTAudience:        "placegate-api",
			TokenTTL:           time.Hour,
			CORSOrigins:        []string{},
			RateLimitReqs:      100,
			RateLimitWindow:    time.Minute,
			IdempotencyTTLSecs: 86400,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with precedence ENV > file > defaults,
// then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Server
	"port":               "server.port",
	"http_port":          "server.port",
	"http_host":          "server.host",
	"node_env":           "server.environment",
	"environment":        "server.environment",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",

	// Google Places
	"google_places_api_key":      "places.api_key",
	"google_places_base_url":     "places.base_url",
	"places_timeout":             "places.timeout",
	"places_requests_per_second": "places.requests_per_second",
	"places_burst":               "places.burst",
	"places_max_retries":         "places.max_retries",
	"places_retry_base_delay":    "places.retry_base_delay",
	"places_breaker_enabled":     "places.breaker_enabled",

	// Sync
	"sync_default_max_results":   "sync.default_max_results",
	"sync_delay_between_regions": "sync.region_delay",
	"sync_delay_between_pages":   "sync.page_delay",
	"sync_run_timeout":           "sync.run_timeout",
	"sync_schedule":              "sync.schedule",

	// Place finder
	"place_finder_bulk_delay": "place_finder.bulk_delay",
	"place_finder_cache_ttl":  "place_finder.cache_ttl",

	// Storage
	"database_path":     "database.path",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"kv_path":           "kv.path",
	"kv_in_memory":      "kv.in_memory",
	"kv_gc_interval":    "kv.gc_interval",

	// Jobs
	"jobs_backend":        "jobs.backend",
	"job_status_ttl":      "jobs.status_ttl",
	"jobs_retry_count":    "jobs.retry_count",
	"jobs_retry_interval": "jobs.retry_interval",
	"jobs_poison_topic":   "jobs.poison_topic",
	"jobs_close_timeout":  "jobs.close_timeout",

	// NATS
	"nats_url":          "nats.url",
	"nats_embedded":     "nats.embedded_server",
	"nats_host":         "nats.host",
	"nats_port":         "nats.port",
	"nats_store_dir":    "nats.store_dir",
	"nats_max_memory":   "nats.max_memory",
	"nats_max_store":    "nats.max_store",
	"nats_subscribers":  "nats.subscribers_count",
	"nats_durable_name": "nats.durable_name",
	"nats_queue_group":  "nats.queue_group",
	"nats_ack_wait":     "nats.ack_wait",

	// Security
	"internal_api_key":            "security.internal_api_key",
	"internal_api_key_hash":       "security.internal_api_key_hash",
	"jwt_secret":                  "security.jwt_secret",
	"jwt_issuer":                  "security.jwt_issuer",
	"jwt_audience":                "security.jwt_audience",
	"jwt_token_ttl":               "security.token_ttl",
	"cors_origins":                "security.cors_origins",
	"rate_limit_requests":         "security.rate_limit_reqs",
	"rate_limit_window":           "security.rate_limit_window",
	"disable_rate_limit":          "security.rate_limit_disabled",
	"idempotency_key_ttl_seconds": "security.idempotency_ttl_seconds",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
