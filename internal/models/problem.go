// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package models holds wire types shared across HTTP packages.
package models

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/logging"
)

// ProblemContentType is the media type of RFC 7807 error bodies.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 problem document. Every error response of the
// gateway uses this shape.
//
//	{
//	  "type": "https://httpstatuses.com/404",
//	  "title": "Not Found",
//	  "status": 404,
//	  "detail": "place not found",
//	  "instance": "/places/abc"
//	}
type Problem struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Instance string   `json:"instance,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewProblem builds a problem for status with the standard type URI and title.
func NewProblem(status int, detail, instance string) *Problem {
	return &Problem{
		Type:     "https://httpstatuses.com/" + strconv.Itoa(status),
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// WriteProblem writes p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p *Problem) {
	data, err := json.Marshal(p)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal problem response")
		w.WriteHeader(p.Status)
		return
	}
	w.Header().Set("Content-Type", ProblemContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write problem response")
	}
}

// RespondProblem writes a problem for status whose instance is the request path.
func RespondProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	WriteProblem(w, NewProblem(status, detail, r.URL.Path))
}
