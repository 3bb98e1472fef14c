// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

// Filter returns, in discovery order, the ids of candidates tagged with any of
// categories, stopping at target ids.
func Filter(snapshot CandidateSnapshot, categories []string, target int) []string {
	ids := make([]string, 0, min(len(snapshot), max(target, 0)))
	for _, c := range snapshot {
		if len(ids) >= target {
			break
		}
		if c.HasAny(categories) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
