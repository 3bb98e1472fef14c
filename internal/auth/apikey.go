// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/placegate/internal/config"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/models"
)

// APIKeyHeader carries the internal API key.
const APIKeyHeader = "x-api-key"

// APIKeyGuard validates the internal API key.
type APIKeyGuard struct {
	key  []byte
	hash []byte
}

// NewAPIKeyGuard builds a guard from the security config. A bcrypt hash
// takes precedence over the plain key.
func NewAPIKeyGuard(cfg *config.SecurityConfig) (*APIKeyGuard, error) {
	switch {
	case cfg.InternalAPIKeyHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.InternalAPIKeyHash)); err != nil {
			return nil, errors.New("INTERNAL_API_KEY_HASH is not a valid bcrypt hash")
		}
		return &APIKeyGuard{hash: []byte(cfg.InternalAPIKeyHash)}, nil
	case cfg.InternalAPIKey != "":
		return &APIKeyGuard{key: []byte(cfg.InternalAPIKey)}, nil
	default:
		return nil, errors.New("INTERNAL_API_KEY is required")
	}
}

// Valid reports whether presented matches the configured key.
func (g *APIKeyGuard) Valid(presented string) bool {
	if presented == "" {
		return false
	}
	if g.hash != nil {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(presented), g.key) == 1
}

// Require rejects requests without a valid x-api-key with 401.
func (g *APIKeyGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Valid(r.Header.Get(APIKeyHeader)) {
			logging.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Rejected request with missing or invalid API key")
			models.RespondProblem(w, r, http.StatusUnauthorized, "Unauthorized: Missing or invalid API Key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
