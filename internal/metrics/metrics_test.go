// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func histogramCount(t *testing.T, w interface{ Write(*dto.Metric) error }) uint64 {
	t.Helper()
	var m dto.Metric
	if err := w.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/live", "200"))
	RecordAPIRequest("GET", "/live", "200", 3*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/live", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - start; got != 1 {
		t.Errorf("active delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordPlacesCall(t *testing.T) {
	c := PlacesRequestsTotal.WithLabelValues("details", "not_found")
	before := testutil.ToFloat64(c)
	RecordPlacesCall("details", "not_found", 20*time.Millisecond)
	if testutil.ToFloat64(c)-before != 1 {
		t.Error("places_api_requests_total not incremented")
	}
}

func TestRecordSyncRun(t *testing.T) {
	before := histogramCount(t, SyncDuration)
	RecordSyncRun("completed", 2*time.Second, SyncCounters{
		NearbyRaw: 2, TextSearchRaw: 3, TotalUniqueRaw: 5, Filtered: 4, Enriched: 4, Saved: 4,
	})

	if got := testutil.ToFloat64(SyncLastSummary.WithLabelValues("total_unique_raw")); got != 5 {
		t.Errorf("total_unique_raw = %v, want 5", got)
	}
	if got := testutil.ToFloat64(SyncLastSummary.WithLabelValues("saved")); got != 4 {
		t.Errorf("saved = %v, want 4", got)
	}
	if testutil.ToFloat64(SyncLastSuccess) == 0 {
		t.Error("last success timestamp not set")
	}
	if got := histogramCount(t, SyncDuration) - before; got != 1 {
		t.Errorf("sync duration samples delta = %d, want 1", got)
	}
}

func TestRecordUpsert(t *testing.T) {
	ins := StoreUpsertedDocuments.WithLabelValues("inserted")
	before := testutil.ToFloat64(ins)
	errBefore := testutil.ToFloat64(StoreUpsertErrors)

	RecordUpsert(3, 1, nil)
	RecordUpsert(0, 0, errors.New("disk full"))

	if testutil.ToFloat64(ins)-before != 3 {
		t.Error("inserted counter delta should be 3")
	}
	if testutil.ToFloat64(StoreUpsertErrors)-errBefore != 1 {
		t.Error("error counter delta should be 1")
	}
}
