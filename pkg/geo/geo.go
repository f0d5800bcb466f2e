// Package geo provides geographic utility functions for fleet dispatch.
//
// All distance calculations use the Haversine formula on WGS-84 coordinates,
// scaled by a constant road factor to approximate driving distance. Travel
// time is estimated using a constant average speed — suitable for planning
// purposes. In production, swap with OSRM or a live traffic API.
package geo

import (
	"log"
	"math"

	"homebound/internal/model"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0

	// AverageSpeedKmph is the assumed average city driving speed.
	// Used for time estimation when a routing engine is not available.
	AverageSpeedKmph = 30.0

	// RoadFactor scales great-circle distance up to approximate the road
	// network. City streets are not straight lines.
	RoadFactor = 1.3
)

// ─── Distance ───────────────────────────────────────────────

// HaversineKm returns the great-circle distance between two points in kilometers.
//
// Complexity: O(1)
func HaversineKm(a, b model.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// RoadKm returns the estimated road distance between two points in kilometers:
// Haversine × RoadFactor, rounded to two decimals. Every planning distance in
// the engine goes through here so costs stay reproducible across runs.
//
// A non-finite result (NaN/Inf coordinates in the input data) degrades to 0.0
// rather than poisoning downstream accumulators.
func RoadKm(a, b model.Location) float64 {
	km := HaversineKm(a, b) * RoadFactor
	if math.IsNaN(km) || math.IsInf(km, 0) {
		log.Printf("[geo] WARNING: non-finite distance between (%.4f,%.4f) and (%.4f,%.4f) — using 0.0",
			a.Lat, a.Lon, b.Lat, b.Lon)
		return 0.0
	}
	return math.Round(km*100) / 100
}

// ─── Time ───────────────────────────────────────────────────

// TravelTimeMinutes returns the estimated driving time for a distance in
// kilometers, assuming AverageSpeedKmph.
//
// Complexity: O(1)
func TravelTimeMinutes(km float64) float64 {
	return (km / AverageSpeedKmph) * 60.0
}

// ─── Helpers ────────────────────────────────────────────────

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
