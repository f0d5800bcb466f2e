package service

import (
	"math"

	"homebound/internal/model"
	"homebound/pkg/geo"
)

// ─── Route Costing ──────────────────────────────────────────
//
// Routes are flat waypoint lists alternating pickup/drop:
//
//	W[0]=P1, W[1]=D1, W[2]=P2, W[3]=D2, ...
//
// Dead kilometres are the empty legs a driver runs between jobs; active
// kilometres are the on-trip legs. The planner scores a candidate route by
// dead minus active: the less repositioning per carried kilometre the better.

// coordTolerance is the absolute per-coordinate tolerance used to match a
// waypoint pair back to the booking it came from.
const coordTolerance = 1e-6

// OpenDeadKm returns the dead kilometres of a route that is still open (the
// driver has not turned home yet): the leg from home to the first pickup,
// plus each drop→next-pickup hop. Legs whose endpoints are exactly equal are
// skipped.
func OpenDeadKm(route []model.Location, home model.Location) float64 {
	if len(route) == 0 {
		return 0.0
	}

	total := 0.0
	if route[0] != home {
		total += geo.RoadKm(home, route[0])
	}
	for i := 1; i+1 < len(route); i += 2 {
		if route[i] != route[i+1] {
			total += geo.RoadKm(route[i], route[i+1])
		}
	}
	return total
}

// ClosedDeadKm returns the dead kilometres of a route closed back to home:
// OpenDeadKm plus the final leg from the last drop to home.
func ClosedDeadKm(route []model.Location, home model.Location) float64 {
	if len(route) == 0 {
		return 0.0
	}

	total := OpenDeadKm(route, home)
	if last := route[len(route)-1]; last != home {
		total += geo.RoadKm(last, home)
	}
	return total
}

// RouteActiveKm returns the active kilometres of a route by summing its
// pickup/drop pairs. Each pair is matched back to the booking table first —
// the booking's own distance_km is authoritative when found — and falls back
// to the road distance of the pair otherwise.
//
// Complexity: O(P × B) where P = pairs and B = bookings. Routes carry at most
// a dozen pairs, so the scan stays cheap.
func RouteActiveKm(route []model.Location, bookings []*model.Booking) float64 {
	total := 0.0
	for i := 0; i+1 < len(route); i += 2 {
		total += pairActiveKm(route[i], route[i+1], bookings)
	}
	return total
}

func pairActiveKm(pickup, drop model.Location, bookings []*model.Booking) float64 {
	for _, b := range bookings {
		if near(b.Pickup, pickup) && near(b.Drop, drop) {
			return b.DistanceKm
		}
	}
	return geo.RoadKm(pickup, drop)
}

func near(a, b model.Location) bool {
	return math.Abs(a.Lat-b.Lat) < coordTolerance && math.Abs(a.Lon-b.Lon) < coordTolerance
}
