// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
)

// Document is one place to upsert. ID is the upsert key; Body is stored verbatim.
type Document struct {
	ID   string
	Body json.RawMessage
}

// UpsertResult reports how a bulk write matched existing rows.
// Every matched row counts as modified, whether or not its content changed.
type UpsertResult struct {
	Inserted int
	Modified int
}

// Saved is Inserted + Modified.
func (r UpsertResult) Saved() int {
	return r.Inserted + r.Modified
}

// indexed holds the document fields copied into columns.
type indexed struct {
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating          float64  `json:"rating"`
	UserRatingCount int      `json:"userRatingCount"`
	Types           []string `json:"types"`
	BusinessStatus  string   `json:"businessStatus"`
}

const upsertSQL = `
INSERT INTO places (
	id, name, formatted_address, latitude, longitude, rating, user_rating_count,
	types, business_status, data, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	formatted_address = EXCLUDED.formatted_address,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	rating = EXCLUDED.rating,
	user_rating_count = EXCLUDED.user_rating_count,
	types = EXCLUDED.types,
	business_status = EXCLUDED.business_status,
	data = EXCLUDED.data,
	updated_at = EXCLUDED.updated_at`

// existsChunk bounds the IN list of the pre-select.
const existsChunk = 500

// BulkUpsert writes docs in one transaction, inserting new ids and replacing
// existing ones. Any failure rolls the whole batch back and returns an error
// wrapping ErrStoreWrite.
func (s *Store) BulkUpsert(ctx context.Context, docs []Document) (UpsertResult, error) {
	if len(docs) == 0 {
		return UpsertResult{}, nil
	}

	res, err := s.bulkUpsert(ctx, docs)
	metrics.RecordUpsert(res.Inserted, res.Modified, err)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	logging.Ctx(ctx).Debug().Int("inserted", res.Inserted).Int("modified", res.Modified).Msg("Bulk upsert committed")
	return res, nil
}

func (s *Store) bulkUpsert(ctx context.Context, docs []Document) (res UpsertResult, err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ids := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return res, fmt.Errorf("document %d has an empty id", i)
		}
		ids[i] = d.ID
	}
	seen, err := existingIDs(ctx, tx, ids)
	if err != nil {
		return res, err
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return res, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, d := range docs {
		var f indexed
		if err = json.Unmarshal(d.Body, &f); err != nil {
			return UpsertResult{}, fmt.Errorf("document %s is not valid JSON: %w", d.ID, err)
		}

		var name sql.NullString
		if f.DisplayName != nil {
			name = sql.NullString{String: f.DisplayName.Text, Valid: true}
		}
		var lat, lng sql.NullFloat64
		if f.Location != nil {
			lat = sql.NullFloat64{Float64: f.Location.Latitude, Valid: true}
			lng = sql.NullFloat64{Float64: f.Location.Longitude, Valid: true}
		}

		if _, err = stmt.ExecContext(ctx,
			d.ID, name, f.FormattedAddress, lat, lng, f.Rating, f.UserRatingCount,
			encodeTypes(f.Types), f.BusinessStatus, string(d.Body), now, now,
		); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert %s: %w", d.ID, err)
		}

		if seen[d.ID] {
			res.Modified++
		} else {
			res.Inserted++
			seen[d.ID] = true
		}
	}

	if err = tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func existingIDs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(ids))
	for start := 0; start < len(ids); start += existsChunk {
		end := min(start+existsChunk, len(ids))
		chunk := ids[start:end]

		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := "SELECT id FROM places WHERE id IN (?" + strings.Repeat(", ?", len(chunk)-1) + ")"

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("select existing ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan existing id: %w", err)
			}
			seen[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate existing ids: %w", err)
		}
	}
	return seen, nil
}

// encodeTypes stores types as ",a,b," so that a single type can be matched
// with LIKE '%,a,%'.
func encodeTypes(types []string) string {
	if len(types) == 0 {
		return ""
	}
	return "," + strings.Join(types, ",") + ","
}

func decodeTypes(s string) []string {
	s = strings.Trim(s, ",")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
