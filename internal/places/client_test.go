// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package places

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&config.PlacesConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func writeAPIError(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"status":%q,"message":%q}}`, code, status, message)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(&config.PlacesConfig{APIKey: "  "}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestSearchNearby_RequestShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/places:searchNearby" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("X-Goog-Api-Key = %q", got)
		}
		if got := r.Header.Get("X-Goog-FieldMask"); got != DiscoveryFieldMask {
			t.Errorf("X-Goog-FieldMask = %q", got)
		}

		var body nearbyBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.MaxResultCount != 20 {
			t.Errorf("maxResultCount = %d, want 20", body.MaxResultCount)
		}
		if len(body.IncludedTypes) != 1 || body.IncludedTypes[0] != "museum" {
			t.Errorf("includedTypes = %v", body.IncludedTypes)
		}
		if body.LocationRestriction.Circle.Radius != 5000 {
			t.Errorf("radius = %v", body.LocationRestriction.Circle.Radius)
		}

		_, _ = io.WriteString(w, `{"places":[{"id":"p1","types":["museum","point_of_interest"]},{"id":"p2","types":["museum"]}]}`)
	})

	resp, err := c.SearchNearby(context.Background(), NearbyRequest{
		IncludedTypes: []string{"museum"},
		Area:          Circle{Center: LatLng{Latitude: 41.0, Longitude: 28.9}, Radius: 5000},
	})
	if err != nil {
		t.Fatalf("SearchNearby() error = %v", err)
	}
	if len(resp.Places) != 2 || resp.Places[0].ID != "p1" || len(resp.Places[0].Types) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSearchText_Pagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Goog-FieldMask"); !strings.Contains(got, "nextPageToken") {
			t.Errorf("field mask %q does not request nextPageToken", got)
		}
		var body textBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.LocationBias == nil || body.LocationBias.Circle.Radius != 50000 {
			t.Errorf("missing location bias: %+v", body)
		}
		switch body.PageToken {
		case "":
			_, _ = io.WriteString(w, `{"places":[{"id":"t1","types":["museum"]}],"nextPageToken":"tok2"}`)
		case "tok2":
			_, _ = io.WriteString(w, `{"places":[{"id":"t2","types":["museum"]}]}`)
		default:
			t.Errorf("unexpected page token %q", body.PageToken)
		}
	})

	bias := &Circle{Center: LatLng{Latitude: 41, Longitude: 29}, Radius: 50000}
	first, err := c.SearchText(context.Background(), TextRequest{Query: "museums", Bias: bias})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if first.NextPageToken != "tok2" {
		t.Fatalf("NextPageToken = %q", first.NextPageToken)
	}
	second, err := c.SearchText(context.Background(), TextRequest{Query: "museums", Bias: bias, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if second.NextPageToken != "" || len(second.Places) != 1 {
		t.Errorf("unexpected page 2 %+v", second)
	}
}

func TestSearchText_InvalidPageTokenIsTerminalPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid page token.")
	})

	resp, err := c.SearchText(context.Background(), TextRequest{Query: "q", PageToken: "stale"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Places) != 0 || resp.NextPageToken != "" {
		t.Errorf("expected empty terminal page, got %+v", resp)
	}

	// Without a page token the same answer is a real error.
	_, err = c.SearchText(context.Background(), TextRequest{Query: "q"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetDetails_KeepsRawDocument(t *testing.T) {
	const doc = `{"id":"abc","displayName":{"text":"Topkapi Palace","languageCode":"en"},"rating":4.6,"types":["museum"],"reviews":[{"rating":5}]}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/places/abc" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Goog-FieldMask"); got != DetailsFieldMask {
			t.Errorf("X-Goog-FieldMask = %q", got)
		}
		_, _ = io.WriteString(w, doc)
	})

	d, err := c.GetDetails(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetDetails() error = %v", err)
	}
	if d.ID != "abc" || d.DisplayName.Text != "Topkapi Palace" || d.Rating != 4.6 {
		t.Errorf("unexpected details %+v", d)
	}
	if string(d.Raw) != doc {
		t.Errorf("Raw = %s", d.Raw)
	}
	out, err := json.Marshal(d)
	if err != nil || string(out) != doc {
		t.Errorf("MarshalJSON = %s, %v", out, err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "UNAUTHENTICATED", ErrAuth},
		{"forbidden", http.StatusForbidden, "PERMISSION_DENIED", ErrAuth},
		{"bad request other", http.StatusBadRequest, "FAILED_PRECONDITION", ErrAuth},
		{"invalid argument", http.StatusBadRequest, "INVALID_ARGUMENT", ErrInvalidArgument},
		{"not found", http.StatusNotFound, "NOT_FOUND", ErrNotFound},
		{"server error", http.StatusInternalServerError, "INTERNAL", ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, "", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.code, tt.status, "boom")
			})
			_, err := c.GetDetails(context.Background(), "x")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want kind of %v", err, tt.want)
			}
			var pe *Error
			if !errors.As(err, &pe) || pe.StatusCode != tt.code || pe.Op != "details" {
				t.Errorf("unexpected error detail %+v", pe)
			}
		})
	}
}

func TestRateLimitRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"places":[]}`)
	})

	if _, err := c.SearchPlace(context.Background(), "Galata Tower"); err != nil {
		t.Fatalf("SearchPlace() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "quota")
	})

	_, err := c.SearchNearby(context.Background(), NearbyRequest{IncludedTypes: []string{"museum"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", got)
	}
}

func TestRateLimitBackoffHonoursCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetDetails(ctx, "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff ignored context cancellation")
	}
}

func TestRawPassthrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"places":[{"id":"raw1","extra":true}]}`)
	})
	raw, err := c.RawSearch(context.Background(), "q")
	if err != nil {
		t.Fatalf("RawSearch() error = %v", err)
	}
	if !strings.Contains(string(raw), `"extra":true`) {
		t.Errorf("raw body altered: %s", raw)
	}
}

func TestReadBodyForError(t *testing.T) {
	big := strings.Repeat("x", maxErrorBodySize+10)
	got := readBodyForError(strings.NewReader(big))
	if !strings.HasSuffix(string(got), "... (truncated)") {
		t.Error("large body should be truncated")
	}
	small := readBodyForError(strings.NewReader("short"))
	if string(small) != "short" {
		t.Errorf("small body = %q", small)
	}
}
