// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package places

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Kind classifies a failed Places API call.
type Kind int

const (
	// KindUnavailable covers transport failures, 5xx and any status not listed below.
	KindUnavailable Kind = iota
	// KindAuth means the API key was rejected (401, 403, or a 400 that is not INVALID_ARGUMENT).
	KindAuth
	// KindRateLimited means 429 persisted after all retries.
	KindRateLimited
	// KindInvalidArgument is a 400 with status INVALID_ARGUMENT.
	KindInvalidArgument
	// KindNotFound is a 404 for an unknown place id.
	KindNotFound
)

// String returns the metrics label for k.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// Error is returned by every Client operation that fails.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Status     string // upstream error.status, e.g. INVALID_ARGUMENT
	Message    string
	Err        error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrAuth            = &Error{Kind: KindAuth}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("places")
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	b.WriteString(": " + e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d", e.StatusCode)
		if e.Status != "" {
			b.WriteString(" " + e.Status)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.StatusCode == 0 && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindUnavailable when err is not a *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// apiErrorBody is the error envelope returned by places.googleapis.com.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classify maps a non-2xx response onto an *Error.
func classify(op string, statusCode int, body []byte) *Error {
	var env apiErrorBody
	_ = json.Unmarshal(body, &env)

	e := &Error{
		Op:         op,
		StatusCode: statusCode,
		Status:     env.Error.Status,
		Message:    env.Error.Message,
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		e.Kind = KindAuth
	case statusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case statusCode == http.StatusBadRequest && env.Error.Status == "INVALID_ARGUMENT":
		e.Kind = KindInvalidArgument
	case statusCode == http.StatusBadRequest:
		e.Kind = KindAuth
	case statusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	default:
		e.Kind = KindUnavailable
	}
	return e
}

// isInvalidPageToken reports whether err is the upstream answer to an expired
// or unknown pagination token.
func isInvalidPageToken(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != KindInvalidArgument {
		return false
	}
	return strings.Contains(strings.ToLower(pe.Message), "page token")
}
