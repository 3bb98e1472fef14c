// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/models"
)

type contextKey string

const claimsContextKey contextKey = "claims"

var errMissingBearer = errors.New("missing bearer token")

// Middleware authenticates bearer tokens and authorizes them with Casbin.
type Middleware struct {
	jwt   *JWTManager
	authz *Authorizer
}

// NewMiddleware returns bearer-token middleware.
func NewMiddleware(jwtManager *JWTManager, authorizer *Authorizer) *Middleware {
	return &Middleware{jwt: jwtManager, authz: authorizer}
}

// ClaimsFromContext returns the claims stored by RequireRole.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok
}

// RequireRole validates the bearer token, requires role and then lets the
// policy decide on the request path and method. A missing or invalid token
// is 401; a valid token without permission is 403.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="placegate"`)
				models.RespondProblem(w, r, http.StatusUnauthorized, "Unauthorized: "+err.Error())
				return
			}

			claims, err := m.jwt.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Bearer token rejected")
				w.Header().Set("WWW-Authenticate", `Bearer realm="placegate", error="invalid_token"`)
				models.RespondProblem(w, r, http.StatusUnauthorized, "Unauthorized: invalid or expired token")
				return
			}

			// Both the path policy and the route role must pass.
			allowed, err := m.authz.Allowed(claims.Roles, r.URL.Path, r.Method)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization check failed")
				models.RespondProblem(w, r, http.StatusInternalServerError, "authorization check failed")
				return
			}
			if !allowed || !m.authz.Implies(claims.Roles, role) {
				models.RespondProblem(w, r, http.StatusForbidden, "Forbidden: insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingBearer
	}
	return strings.TrimSpace(token), nil
}
