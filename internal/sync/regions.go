// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import "github.com/tomtom215/placegate/internal/places"

const (
	// PerRegionCap stops the category loop of a region once this many new
	// ids were found there. It is checked before each category only, so a
	// single response can overshoot it.
	PerRegionCap = 30

	// MaxTextPages bounds pagination of a single text query.
	MaxTextPages = 20

	// TextSweepFactor stops the text sweep once the candidate map holds
	// this multiple of the target.
	TextSweepFactor = 1.5

	MinTarget     = 10
	MaxTarget     = 1000
	DefaultTarget = 1000
)

// Region is one circle of the region sweep.
type Region struct {
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// DiscoveryQuery is one free-text query of the text sweep.
type DiscoveryQuery struct {
	Text string
	Bias *places.Circle
}

// TargetCategories are the place types a candidate must carry to be enriched.
var TargetCategories = []string{"tourist_attraction", "museum", "historical_landmark"}

// MetroBias is the location bias shared by all default text queries.
var MetroBias = places.Circle{
	Center: places.LatLng{Latitude: 41.0082, Longitude: 28.9784},
	Radius: 50000,
}

// DefaultRegions covers the Istanbul metropolitan area.
var DefaultRegions = []Region{
	{Name: "Sultanahmet", Latitude: 41.0054, Longitude: 28.9768, RadiusMeters: 1500},
	{Name: "Eminonu", Latitude: 41.0171, Longitude: 28.9704, RadiusMeters: 1500},
	{Name: "Beyoglu", Latitude: 41.0369, Longitude: 28.9850, RadiusMeters: 2000},
	{Name: "Galata", Latitude: 41.0256, Longitude: 28.9742, RadiusMeters: 1000},
	{Name: "Besiktas", Latitude: 41.0422, Longitude: 29.0083, RadiusMeters: 2500},
	{Name: "Ortakoy", Latitude: 41.0473, Longitude: 29.0270, RadiusMeters: 1500},
	{Name: "Sisli", Latitude: 41.0602, Longitude: 28.9877, RadiusMeters: 3000},
	{Name: "Fatih", Latitude: 41.0186, Longitude: 28.9497, RadiusMeters: 3000},
	{Name: "Eyup", Latitude: 41.0478, Longitude: 28.9336, RadiusMeters: 2500},
	{Name: "Balat", Latitude: 41.0296, Longitude: 28.9480, RadiusMeters: 1200},
	{Name: "Uskudar", Latitude: 41.0235, Longitude: 29.0155, RadiusMeters: 3000},
	{Name: "Kadikoy", Latitude: 40.9909, Longitude: 29.0303, RadiusMeters: 3000},
	{Name: "Moda", Latitude: 40.9826, Longitude: 29.0253, RadiusMeters: 1200},
	{Name: "Bebek", Latitude: 41.0776, Longitude: 29.0434, RadiusMeters: 1500},
	{Name: "Sariyer", Latitude: 41.1686, Longitude: 29.0573, RadiusMeters: 5000},
	{Name: "Beykoz", Latitude: 41.1337, Longitude: 29.0947, RadiusMeters: 5000},
	{Name: "Bakirkoy", Latitude: 40.9819, Longitude: 28.8772, RadiusMeters: 3000},
	{Name: "Yedikule", Latitude: 40.9935, Longitude: 28.9227, RadiusMeters: 1500},
	{Name: "Buyukada", Latitude: 40.8583, Longitude: 29.1206, RadiusMeters: 3000},
	{Name: "Kucukcekmece", Latitude: 41.0022, Longitude: 28.7788, RadiusMeters: 5000},
}

// DefaultQueries are the text-sweep queries, all biased toward MetroBias.
var DefaultQueries = []DiscoveryQuery{
	{Text: "top tourist attractions in Istanbul", Bias: &MetroBias},
	{Text: "museums in Istanbul", Bias: &MetroBias},
	{Text: "historical landmarks in Istanbul", Bias: &MetroBias},
	{Text: "Ottoman mosques Istanbul", Bias: &MetroBias},
	{Text: "Byzantine churches and cisterns Istanbul", Bias: &MetroBias},
	{Text: "palaces in Istanbul", Bias: &MetroBias},
	{Text: "art galleries Istanbul", Bias: &MetroBias},
	{Text: "historic bazaars Istanbul", Bias: &MetroBias},
	{Text: "Bosphorus viewpoints", Bias: &MetroBias},
	{Text: "fortresses and city walls Istanbul", Bias: &MetroBias},
}
