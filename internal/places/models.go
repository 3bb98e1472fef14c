// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package places

import (
	"github.com/goccy/go-json"
)

// DetailsFieldMask selects every field stored in the catalog.
const DetailsFieldMask = "id,displayName,formattedAddress,addressComponents,location,rating," +
	"userRatingCount,types,regularOpeningHours,currentOpeningHours,photos,websiteUri," +
	"nationalPhoneNumber,businessStatus,googleMapsUri,reviews,editorialSummary,priceLevel," +
	"accessibilityOptions"

// Search field masks. nextPageToken is top-level and must be requested explicitly.
const (
	SearchFieldMask        = "places.id,places.displayName,places.formattedAddress"
	DiscoveryFieldMask     = "places.id,places.types"
	discoveryTextFieldMask = DiscoveryFieldMask + ",nextPageToken"
	debugSearchFieldMask   = "places.id,places.displayName,places.formattedAddress,places.types,places.location,nextPageToken"
)

// MaxResultCount is the largest page the Places API returns.
const MaxResultCount = 20

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Circle is a search area.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LocalizedText is the Places API display string.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Place is a search result. Only the fields named in the field mask are set.
type Place struct {
	ID               string         `json:"id"`
	Types            []string       `json:"types,omitempty"`
	DisplayName      *LocalizedText `json:"displayName,omitempty"`
	FormattedAddress string         `json:"formattedAddress,omitempty"`
}

// Name returns the display name text or "".
func (p Place) Name() string {
	if p.DisplayName == nil {
		return ""
	}
	return p.DisplayName.Text
}

// SearchResponse is the body of searchNearby and searchText.
type SearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// NearbyRequest describes one searchNearby call.
type NearbyRequest struct {
	IncludedTypes  []string
	MaxResultCount int
	Area           Circle
}

// TextRequest describes one searchText call.
type TextRequest struct {
	Query          string
	MaxResultCount int
	Bias           *Circle
	PageToken      string
}

// Details is the full place document. Raw keeps the upstream bytes so that
// the stored document is exactly what the API returned.
type Details struct {
	ID               string         `json:"id"`
	DisplayName      *LocalizedText `json:"displayName,omitempty"`
	FormattedAddress string         `json:"formattedAddress,omitempty"`
	Location         *LatLng        `json:"location,omitempty"`
	Rating           float64        `json:"rating,omitempty"`
	UserRatingCount  int            `json:"userRatingCount,omitempty"`
	Types            []string       `json:"types,omitempty"`
	BusinessStatus   string         `json:"businessStatus,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type detailsAlias Details

// UnmarshalJSON decodes the typed fields and keeps a copy of data.
func (d *Details) UnmarshalJSON(data []byte) error {
	var a detailsAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Details(a)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the upstream document when present.
func (d Details) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	return json.Marshal(detailsAlias(d))
}

type nearbyBody struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle Circle `json:"circle"`
	} `json:"locationRestriction"`
}

type locationBias struct {
	Circle Circle `json:"circle"`
}

type textBody struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
	PageToken      string        `json:"pageToken,omitempty"`
}
