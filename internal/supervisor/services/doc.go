// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package services adapts components with a blocking start/stop lifecycle to
// suture's Serve(ctx) pattern. Components that already implement Serve, such
// as the job router, are added to the tree directly.
package services
