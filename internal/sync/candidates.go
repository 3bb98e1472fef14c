// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Candidate is a discovered place id and the union of every tag seen for it.
type Candidate struct {
	ID   string
	Tags map[string]struct{}
}

// HasAny reports whether the candidate carries at least one of categories.
func (c Candidate) HasAny(categories []string) bool {
	for _, cat := range categories {
		if _, ok := c.Tags[cat]; ok {
			return true
		}
	}
	return false
}

// CandidateMap is the insertion-ordered set of candidates built during
// discovery. It is not safe for concurrent use.
type CandidateMap struct {
	m *orderedmap.OrderedMap[string, *Candidate]
}

// NewCandidateMap returns an empty map.
func NewCandidateMap() *CandidateMap {
	return &CandidateMap{m: orderedmap.New[string, *Candidate]()}
}

// Merge inserts id with tags, or unions tags into the existing entry.
// It reports whether id was new. Empty ids are ignored.
func (c *CandidateMap) Merge(id string, tags []string) bool {
	if id == "" {
		return false
	}
	if existing, ok := c.m.Get(id); ok {
		for _, t := range tags {
			existing.Tags[t] = struct{}{}
		}
		return false
	}

	cand := &Candidate{ID: id, Tags: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		cand.Tags[t] = struct{}{}
	}
	c.m.Set(id, cand)
	return true
}

// Len returns the number of unique candidates.
func (c *CandidateMap) Len() int {
	return c.m.Len()
}

// Snapshot copies the candidates in insertion order.
func (c *CandidateMap) Snapshot() CandidateSnapshot {
	out := make(CandidateSnapshot, 0, c.m.Len())
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		tags := make(map[string]struct{}, len(pair.Value.Tags))
		for t := range pair.Value.Tags {
			tags[t] = struct{}{}
		}
		out = append(out, Candidate{ID: pair.Key, Tags: tags})
	}
	return out
}

// CandidateSnapshot is a read-only, insertion-ordered copy of a CandidateMap.
type CandidateSnapshot []Candidate
