// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/placegate/internal/places"
)

func newTestDiscoverer(p Provider, regions []Region, queries []DiscoveryQuery) *Discoverer {
	return &Discoverer{
		provider:   p,
		regions:    regions,
		queries:    queries,
		categories: TargetCategories,
	}
}

func manyPlaces(prefix string, n int, types ...string) []places.Place {
	out := make([]places.Place, n)
	for i := range out {
		out[i] = place(fmt.Sprintf("%s%03d", prefix, i), types...)
	}
	return out
}

func TestDiscover_RegionCapCheckedBeforeEachCategory(t *testing.T) {
	var calls int
	provider := &mockProvider{
		nearby: func(req places.NearbyRequest) (*places.SearchResponse, error) {
			calls++
			// 25 new ids per call: after the first call the region holds 25 (<30),
			// so a second category runs and overshoots to 50.
			return &places.SearchResponse{Places: manyPlaces(fmt.Sprintf("c%d-", calls), 25, req.IncludedTypes[0])}, nil
		},
	}
	d := newTestDiscoverer(provider, DefaultRegions[:1], nil)

	candidates, stats, err := d.Discover(context.Background(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if provider.nearbyCalls != 2 {
		t.Errorf("nearby calls = %d, want 2", provider.nearbyCalls)
	}
	if candidates.Len() != 50 || stats.NearbyRaw != 50 {
		t.Errorf("unique = %d, nearbyRaw = %d, want 50 (overshoot kept)", candidates.Len(), stats.NearbyRaw)
	}
}

func TestDiscover_EveryRegionVisited(t *testing.T) {
	provider := &mockProvider{
		nearby: func(req places.NearbyRequest) (*places.SearchResponse, error) {
			return &places.SearchResponse{Places: manyPlaces("same", places.MaxResultCount, "museum")}, nil
		},
	}
	d := newTestDiscoverer(provider, DefaultRegions, nil)

	if _, _, err := d.Discover(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	// Region 1 finds 20 new ids and runs all three categories; later regions
	// only see duplicates and also run all three.
	if want := len(DefaultRegions) * len(TargetCategories); provider.nearbyCalls != want {
		t.Errorf("nearby calls = %d, want %d", provider.nearbyCalls, want)
	}
}

func TestDiscover_NearbyRequestShape(t *testing.T) {
	var got []places.NearbyRequest
	provider := &mockProvider{
		nearby: func(req places.NearbyRequest) (*places.SearchResponse, error) {
			got = append(got, req)
			return &places.SearchResponse{}, nil
		},
	}
	region := Region{Name: "r", Latitude: 41.1, Longitude: 29.1, RadiusMeters: 1234}
	d := newTestDiscoverer(provider, []Region{region}, nil)
	if _, _, err := d.Discover(context.Background(), 10); err != nil {
		t.Fatal(err)
	}

	if len(got) != 3 {
		t.Fatalf("calls = %d", len(got))
	}
	for i, req := range got {
		if req.MaxResultCount != 20 || len(req.IncludedTypes) != 1 || req.IncludedTypes[0] != TargetCategories[i] {
			t.Errorf("call %d = %+v", i, req)
		}
		if req.Area.Radius != 1234 || req.Area.Center.Latitude != 41.1 {
			t.Errorf("call %d area = %+v", i, req.Area)
		}
	}
}

func TestDiscover_MergeCountsFirstSightingOnly(t *testing.T) {
	provider := &mockProvider{
		nearby: func(places.NearbyRequest) (*places.SearchResponse, error) {
			return &places.SearchResponse{Places: []places.Place{place("x", "museum"), place("", "museum")}}, nil
		},
		textPages: []textPage{page("", place("x", "historical_landmark"), place("y", "museum"))},
	}
	d := newTestDiscoverer(provider, DefaultRegions[:2], []DiscoveryQuery{{Text: "q"}})

	candidates, stats, err := d.Discover(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.NearbyRaw != 1 || stats.TextSearchRaw != 1 || candidates.Len() != 2 {
		t.Errorf("stats = %+v, unique = %d", stats, candidates.Len())
	}

	snap := candidates.Snapshot()
	if snap[0].ID != "x" || len(snap[0].Tags) != 2 {
		t.Errorf("tags not merged: %+v", snap[0])
	}
}

func TestDiscover_TextPagination(t *testing.T) {
	tests := []struct {
		name      string
		pages     []textPage
		queries   int
		wantCalls int
		wantRaw   int
		wantErrs  int
	}{
		{
			name:      "follows tokens until the last page",
			pages:     []textPage{page("t2", place("a")), page("t3", place("b")), page("", place("c"))},
			queries:   1,
			wantCalls: 3,
			wantRaw:   3,
		},
		{
			name:      "error stops this query only",
			pages:     []textPage{page("t2", place("a")), {err: places.ErrUnavailable}, page("", place("b"))},
			queries:   2,
			wantCalls: 3,
			wantRaw:   2,
			wantErrs:  1,
		},
		{
			name:      "invalid page token is an empty terminal page",
			pages:     []textPage{page("stale", place("a")), page(""), page("", place("b"))},
			queries:   2,
			wantCalls: 3,
			wantRaw:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{textPages: tt.pages}
			queries := make([]DiscoveryQuery, tt.queries)
			for i := range queries {
				queries[i] = DiscoveryQuery{Text: fmt.Sprintf("q%d", i)}
			}
			d := newTestDiscoverer(provider, nil, queries)

			_, stats, err := d.Discover(context.Background(), 1000)
			if err != nil {
				t.Fatal(err)
			}
			if len(provider.textRequests) != tt.wantCalls {
				t.Errorf("text calls = %d, want %d", len(provider.textRequests), tt.wantCalls)
			}
			if stats.TextSearchRaw != tt.wantRaw || stats.Errors != tt.wantErrs {
				t.Errorf("stats = %+v", stats)
			}
		})
	}
}

func TestDiscover_PageCeiling(t *testing.T) {
	pages := make([]textPage, 0, MaxTextPages+5)
	for i := 0; i < MaxTextPages+5; i++ {
		pages = append(pages, page("more", place(fmt.Sprintf("p%d", i))))
	}
	provider := &mockProvider{textPages: pages}
	d := newTestDiscoverer(provider, nil, []DiscoveryQuery{{Text: "endless"}})

	if _, _, err := d.Discover(context.Background(), 1000); err != nil {
		t.Fatal(err)
	}
	if len(provider.textRequests) != MaxTextPages {
		t.Errorf("text calls = %d, want %d", len(provider.textRequests), MaxTextPages)
	}
}

func TestDiscover_TextCapStopsQueriesAndPages(t *testing.T) {
	// Target 10 caps the map at 15 candidates.
	provider := &mockProvider{textPages: []textPage{
		page("t2", manyPlaces("a", 10)...),
		page("t3", manyPlaces("b", 10)...),
		page("", manyPlaces("c", 10)...),
	}}
	d := newTestDiscoverer(provider, nil, []DiscoveryQuery{{Text: "q1"}, {Text: "q2"}})

	candidates, _, err := d.Discover(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(provider.textRequests) != 2 {
		t.Errorf("text calls = %d, want 2", len(provider.textRequests))
	}
	if candidates.Len() != 20 {
		t.Errorf("unique = %d, want 20", candidates.Len())
	}
}

func TestDiscover_TextBiasAndToken(t *testing.T) {
	provider := &mockProvider{textPages: []textPage{page("next", place("a")), page("", place("b"))}}
	d := newTestDiscoverer(provider, nil, []DiscoveryQuery{{Text: "museums", Bias: &MetroBias}})

	if _, _, err := d.Discover(context.Background(), 1000); err != nil {
		t.Fatal(err)
	}
	first, second := provider.textRequests[0], provider.textRequests[1]
	if first.PageToken != "" || second.PageToken != "next" {
		t.Errorf("tokens = %q, %q", first.PageToken, second.PageToken)
	}
	if first.Bias == nil || first.Bias.Radius != 50000 || first.Query != "museums" || first.MaxResultCount != 20 {
		t.Errorf("request = %+v", first)
	}
}

func TestDiscover_DelaysOnlyBetweenRegionsAndPages(t *testing.T) {
	provider := &mockProvider{textPages: []textPage{page("next", place("a")), page("", place("b"))}}
	d := newTestDiscoverer(provider, DefaultRegions[:2], []DiscoveryQuery{{Text: "q"}})
	d.regionDelay = 40 * time.Millisecond
	d.pageDelay = 40 * time.Millisecond

	start := time.Now()
	if _, _, err := d.Discover(context.Background(), 1000); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)
	// One pause between the two regions and one between the two pages.
	if elapsed < 80*time.Millisecond {
		t.Errorf("elapsed = %v, expected both delays", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("elapsed = %v, delays applied too often", elapsed)
	}
}

func TestDiscover_CancelDuringDelay(t *testing.T) {
	provider := &mockProvider{}
	d := newTestDiscoverer(provider, DefaultRegions[:3], nil)
	d.regionDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := d.Discover(ctx, 10)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if provider.nearbyCalls != 3 {
		t.Errorf("nearby calls = %d, want only the first region", provider.nearbyCalls)
	}
}
