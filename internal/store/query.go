// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	earthRadiusMeters = 6371000.0
)

// PlaceSummary is the indexed view of a stored place.
type PlaceSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	FormattedAddress string    `json:"formattedAddress,omitempty"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	UserRatingCount  int       `json:"userRatingCount,omitempty"`
	Types            []string  `json:"types"`
	BusinessStatus   string    `json:"businessStatus,omitempty"`
	DistanceMeters   *float64  `json:"distanceMeters,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ListQuery pages through the catalog ordered by name, then id.
type ListQuery struct {
	Limit  int
	Offset int
	Type   string // optional exact type match
}

// NearbyQuery selects places within RadiusMeters of a point, nearest first.
type NearbyQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Limit        int
}

// Count returns the number of stored places.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&n); err != nil {
		return 0, fmt.Errorf("count places: %w", err)
	}
	return n, nil
}

// Get returns the stored document for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, "SELECT data FROM places WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	return json.RawMessage(data), nil
}

// List returns one page of summaries and the total matching count.
func (s *Store) List(ctx context.Context, q ListQuery) ([]PlaceSummary, int64, error) {
	limit := clampLimit(q.Limit)
	offset := max(q.Offset, 0)

	where := ""
	var args []interface{}
	if t := strings.TrimSpace(q.Type); t != "" {
		where = " WHERE types LIKE ?"
		args = append(args, "%,"+t+",%")
	}

	var total int64
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM places"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count places: %w", err)
	}

	query := `SELECT id, name, formatted_address, latitude, longitude, rating, user_rating_count,
		types, business_status, updated_at
		FROM places` + where + ` ORDER BY name NULLS LAST, id LIMIT ? OFFSET ?`
	rows, err := s.conn.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	out, err := scanSummaries(rows, false)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Nearby returns places within the radius of the query point, nearest first.
// A bounding box prefilter narrows the rows before the haversine distance is
// computed.
func (s *Store) Nearby(ctx context.Context, q NearbyQuery) ([]PlaceSummary, error) {
	if q.RadiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive")
	}
	limit := clampLimit(q.Limit)

	latDelta := q.RadiusMeters / earthRadiusMeters * 180 / math.Pi
	lngDelta := 180.0
	if c := math.Cos(q.Latitude * math.Pi / 180); c > 1e-6 {
		lngDelta = math.Min(180, latDelta/c)
	}

	query := `SELECT * FROM (
		SELECT id, name, formatted_address, latitude, longitude, rating, user_rating_count,
			types, business_status, updated_at,
			2 * ? * asin(sqrt(
				pow(sin(radians(latitude - ?) / 2), 2) +
				cos(radians(?)) * cos(radians(latitude)) * pow(sin(radians(longitude - ?) / 2), 2)
			)) AS distance
		FROM places
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
	) WHERE distance <= ? ORDER BY distance, id LIMIT ?`

	rows, err := s.conn.QueryContext(ctx, query,
		earthRadiusMeters, q.Latitude, q.Latitude, q.Longitude,
		q.Latitude-latDelta, q.Latitude+latDelta, q.Longitude-lngDelta, q.Longitude+lngDelta,
		q.RadiusMeters, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("nearby places: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows, true)
}

func scanSummaries(rows *sql.Rows, withDistance bool) ([]PlaceSummary, error) {
	out := make([]PlaceSummary, 0)
	for rows.Next() {
		var (
			p        PlaceSummary
			name     sql.NullString
			address  sql.NullString
			lat, lng sql.NullFloat64
			rating   sql.NullFloat64
			ratings  sql.NullInt64
			types    sql.NullString
			status   sql.NullString
			distance float64
		)
		scanInto := []interface{}{&p.ID, &name, &address, &lat, &lng, &rating, &ratings, &types, &status, &p.UpdatedAt}
		if withDistance {
			scanInto = append(scanInto, &distance)
		}
		if err := rows.Scan(scanInto...); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}

		p.Name = name.String
		p.FormattedAddress = address.String
		if lat.Valid && lng.Valid {
			p.Latitude, p.Longitude = &lat.Float64, &lng.Float64
		}
		p.Rating = rating.Float64
		p.UserRatingCount = int(ratings.Int64)
		p.Types = decodeTypes(types.String)
		if p.Types == nil {
			p.Types = []string{}
		}
		p.BusinessStatus = status.String
		if withDistance {
			d := math.Round(distance*10) / 10
			p.DistanceMeters = &d
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return out, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
