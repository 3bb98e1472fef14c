// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package cache provides the in-memory TTL cache used by the place-finder
// endpoints to avoid repeating identical upstream searches.
package cache
