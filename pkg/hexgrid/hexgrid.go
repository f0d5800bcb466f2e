// Package hexgrid wraps the H3 hexagonal grid for spatial candidate search.
//
// Vehicles and bookings are indexed by their H3 cell at a fixed resolution;
// the assigner searches outward ring by ring until it finds candidates. Every
// H3 failure degrades to a defined fallback instead of aborting planning:
// indexing failures yield an empty cell id (callers switch to a linear scan)
// and distance failures yield a conservative sentinel.
package hexgrid

import (
	"fmt"
	"log"
	"math"

	h3 "github.com/uber/h3-go/v4"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// Resolution is the H3 resolution for all cells. Resolution 9 hexagons
	// average ~0.1 km² — fine-grained enough to separate city neighbourhoods.
	Resolution = 9

	// MeanEdgeKm is the mean hexagon edge length at Resolution, used to
	// convert grid-step counts into kilometres.
	MeanEdgeKm = 0.174375668

	// FallbackStepKm is the distance sentinel returned when H3 cannot
	// compute a grid distance between two valid-looking cells.
	FallbackStepKm = 5.0
)

// ─── Cell indexing ──────────────────────────────────────────

// CellID returns the H3 cell id for a coordinate at the package resolution.
// Returns "" when H3 rejects the coordinate; callers treat an empty id as
// "no spatial index" and fall back to linear scans.
func CellID(lat, lon float64) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), Resolution)
	if err != nil {
		log.Printf("[hexgrid] WARNING: cell indexing failed for (%.4f, %.4f): %v", lat, lon, err)
		return ""
	}
	return cell.String()
}

// Rings returns the cells at each grid distance 0..maxK around the origin
// cell, grouped by distance: index k holds exactly the ring at k steps.
// The error propagates so callers can switch to approximate membership.
func Rings(origin string, maxK int) ([]map[string]struct{}, error) {
	cell, err := parseCell(origin)
	if err != nil {
		return nil, err
	}

	disks, err := h3.GridDiskDistances(cell, maxK)
	if err != nil {
		return nil, fmt.Errorf("hexgrid: grid disk around %s: %w", origin, err)
	}

	rings := make([]map[string]struct{}, len(disks))
	for k, cells := range disks {
		ring := make(map[string]struct{}, len(cells))
		for _, c := range cells {
			ring[c.String()] = struct{}{}
		}
		rings[k] = ring
	}
	return rings, nil
}

// ─── Grid distance ──────────────────────────────────────────

// StepsKm approximates the driving distance between two cells as
// grid steps × MeanEdgeKm.
//
// Degradation ladder:
//   - either id empty → +Inf (unindexed vehicles are never near anything)
//   - equal ids       → 0.0 even when unparseable
//   - H3 failure      → FallbackStepKm
func StepsKm(a, b string) float64 {
	if a == "" || b == "" {
		return math.Inf(1)
	}
	if a == b {
		return 0.0
	}

	ca, errA := parseCell(a)
	cb, errB := parseCell(b)
	if errA != nil || errB != nil {
		return FallbackStepKm
	}

	steps, err := h3.GridDistance(ca, cb)
	if err != nil {
		return FallbackStepKm
	}
	return float64(steps) * MeanEdgeKm
}

// ─── Helpers ────────────────────────────────────────────────

func parseCell(s string) (h3.Cell, error) {
	cell := h3.Cell(h3.IndexFromString(s))
	if !cell.IsValid() {
		return 0, fmt.Errorf("hexgrid: invalid cell id %q", s)
	}
	return cell, nil
}
