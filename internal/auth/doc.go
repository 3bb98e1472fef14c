// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package auth guards the HTTP gateway.
//
// Two mechanisms are used:
//
//   - APIKeyGuard protects the place-finder and admin routes with the shared
//     internal key sent in the x-api-key header. The key is compared in
//     constant time, or against a bcrypt hash when INTERNAL_API_KEY_HASH is set.
//   - JWTManager and Authorizer protect the stored catalog. Tokens are HS256
//     JWTs carrying a subject and a list of roles; Casbin RBAC decides whether
//     one of those roles may perform (path, method).
//
// The Casbin model and policy are embedded:
//
//	p, user, /places, GET
//	p, user, /places/*, GET
//	p, admin, /*, *
//	g, admin, user
//
// Rejected requests receive an RFC 7807 problem document.
package auth
