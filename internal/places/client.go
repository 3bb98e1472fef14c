// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package places is the HTTP client for the Google Places API (v1).
//
// Every call is rate limited on the way out, retried with exponential backoff
// on HTTP 429, and classified into a *Error on failure. CircuitBreakerClient
// adds a gobreaker circuit in front of a Client.
package places

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/placegate/internal/config"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
)

// maxErrorBodySize caps how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// API is the set of Places operations used by the gateway and the sync job.
type API interface {
	SearchNearby(ctx context.Context, req NearbyRequest) (*SearchResponse, error)
	SearchText(ctx context.Context, req TextRequest) (*SearchResponse, error)
	GetDetails(ctx context.Context, placeID string) (*Details, error)
	SearchPlace(ctx context.Context, query string) (*SearchResponse, error)
	RawSearch(ctx context.Context, query string) (json.RawMessage, error)
	RawDetails(ctx context.Context, placeID string) (json.RawMessage, error)
}

var _ API = (*Client)(nil)

// Client talks to places.googleapis.com.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a client. It fails when no API key is configured.
func NewClient(cfg *config.PlacesConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("places: GOOGLE_PLACES_API_KEY is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}, nil
}

// SearchNearby runs one searchNearby call with the discovery field mask.
func (c *Client) SearchNearby(ctx context.Context, req NearbyRequest) (*SearchResponse, error) {
	body := nearbyBody{
		IncludedTypes:  req.IncludedTypes,
		MaxResultCount: clampResultCount(req.MaxResultCount),
	}
	body.LocationRestriction.Circle = req.Area

	var resp SearchResponse
	if err := c.doJSON(ctx, "search_nearby", http.MethodPost, "/places:searchNearby", DiscoveryFieldMask, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchText runs one page of searchText with the discovery field mask.
// An expired or unknown page token yields an empty final page instead of an error.
func (c *Client) SearchText(ctx context.Context, req TextRequest) (*SearchResponse, error) {
	body := textBody{
		TextQuery:      req.Query,
		MaxResultCount: clampResultCount(req.MaxResultCount),
		PageToken:      req.PageToken,
	}
	if req.Bias != nil {
		body.LocationBias = &locationBias{Circle: *req.Bias}
	}

	var resp SearchResponse
	err := c.doJSON(ctx, "search_text", http.MethodPost, "/places:searchText", discoveryTextFieldMask, body, &resp)
	if err != nil {
		if req.PageToken != "" && isInvalidPageToken(err) {
			logging.Ctx(ctx).Debug().Str("query", req.Query).Msg("Page token rejected, treating as last page")
			return &SearchResponse{}, nil
		}
		return nil, err
	}
	return &resp, nil
}

// GetDetails fetches the full document of one place.
func (c *Client) GetDetails(ctx context.Context, placeID string) (*Details, error) {
	var d Details
	if err := c.doJSON(ctx, "details", http.MethodGet, detailsPath(placeID), DetailsFieldMask, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SearchPlace runs a free-text search returning id, name and address.
func (c *Client) SearchPlace(ctx context.Context, query string) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.doJSON(ctx, "search_place", http.MethodPost, "/places:searchText", SearchFieldMask, textBody{TextQuery: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RawSearch returns the untouched searchText response body.
func (c *Client) RawSearch(ctx context.Context, query string) (json.RawMessage, error) {
	return c.do(ctx, "raw_search", http.MethodPost, "/places:searchText", debugSearchFieldMask, textBody{TextQuery: query})
}

// RawDetails returns the untouched details response body.
func (c *Client) RawDetails(ctx context.Context, placeID string) (json.RawMessage, error) {
	return c.do(ctx, "raw_details", http.MethodGet, detailsPath(placeID), DetailsFieldMask, nil)
}

func detailsPath(placeID string) string {
	return "/places/" + url.PathEscape(placeID)
}

func clampResultCount(n int) int {
	if n <= 0 || n > MaxResultCount {
		return MaxResultCount
	}
	return n
}

func (c *Client) doJSON(ctx context.Context, op, method, path, fieldMask string, in, out interface{}) error {
	raw, err := c.do(ctx, op, method, path, fieldMask, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Message: "decode response", Err: err}
	}
	return nil
}

// do performs one logical call, including 429 retries, and records metrics.
func (c *Client) do(ctx context.Context, op, method, path, fieldMask string, in interface{}) (json.RawMessage, error) {
	start := time.Now()
	body, err := c.execute(ctx, op, method, path, fieldMask, in)

	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	metrics.RecordPlacesCall(op, result, time.Since(start))
	return body, err
}

func (c *Client) execute(ctx context.Context, op, method, path, fieldMask string, in interface{}) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, &Error{Kind: KindUnavailable, Op: op, Message: "encode request", Err: err}
		}
	}

	resp, err := c.doRequestWithRateLimit(ctx, op, func() (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", fieldMask)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classify(op, resp.StatusCode, readBodyForError(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Message: "read response", Err: err}
	}
	return data, nil
}

// doRequestWithRateLimit waits for the outbound limiter, sends the request and
// retries HTTP 429 with exponential backoff (base, 2x base, 4x base, ...),
// honouring Retry-After when present. newReq is called once per attempt.
func (c *Client) doRequestWithRateLimit(ctx context.Context, op string, newReq func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindUnavailable, Op: op, Message: "rate limiter wait", Err: err}
		}

		req, err := newReq()
		if err != nil {
			return nil, &Error{Kind: KindUnavailable, Op: op, Message: "build request", Err: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &Error{Kind: KindUnavailable, Op: op, Message: "execute request", Err: err}
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}

		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()

		retryDelay := c.retryBaseDelay * (1 << attempt)
		if retryAfter != "" {
			if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
				retryDelay = d
			}
		}
		metrics.PlacesRateLimitRetries.WithLabelValues(op).Inc()
		logging.Ctx(ctx).Warn().
			Str("operation", op).
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Places API rate limited (HTTP 429), retrying")

		select {
		case <-ctx.Done():
			return nil, &Error{Kind: KindUnavailable, Op: op, Message: "cancelled during backoff", Err: ctx.Err()}
		case <-time.After(retryDelay):
		}
	}
}

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("places-client(%s)", c.baseURL)
}
