package service

import (
	"log"
	"math"
	"sort"

	"homebound/internal/model"
	"homebound/pkg/geo"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EndingStrictKm bounds how far an ending booking's drop may sit from
	// the vehicle's home in the strict acceptance phase.
	EndingStrictKm = 5.0

	// EndingExcellentKm short-circuits the strict phase: a drop this close
	// to home is taken immediately.
	EndingExcellentKm = 3.0

	// EndingFallbackKm is the relaxed bound when the strict phase finds
	// nothing.
	EndingFallbackKm = 15.0

	// EndingMinGapMinutes keeps the ending's pickup far enough after the
	// vehicle's availability to leave room for middle bookings.
	EndingMinGapMinutes = 180.0

	// MaxMiddleBookings caps insertion rounds between fresh and ending.
	MaxMiddleBookings = 10

	// MinEfficiency is the acceptance threshold for a completed route:
	// active over total kilometres including the final home leg.
	MinEfficiency = 0.55

	// MaxFinalLegKm rejects routes that strand the driver far from home.
	MaxFinalLegKm = 20.0
)

// classCompatible reports whether a vehicle may carry a booking when filling
// out a route: the booking's own class, or one class above it.
func classCompatible(vehicle, booking model.VehicleClass) bool {
	vn, bn := vehicle.Number(), booking.Number()
	return vn == bn || vn == bn+1
}

// freshFinish is the moment a vehicle is free again after serving only the
// fresh booking: scheduled pickup, trip, service buffer.
func freshFinish(b *model.Booking) float64 {
	return b.PickupMinute + b.TravelTime + ServiceBufferMinutes
}

// routeEfficiency is active over total kilometres, 0 for a vehicle that has
// not moved.
func routeEfficiency(activeKm, deadKm float64) float64 {
	total := activeKm + deadKm
	if total == 0 {
		return 0
	}
	return activeKm / total
}

// ─── Route Completion ───────────────────────────────────────

// CompleteRoute tries to extend a vehicle that just received its fresh
// booking into a full day that ends near the vehicle's home.
//
// Algorithm:
//  1. Snapshot the vehicle for rollback.
//  2. Find an ending booking whose drop lands near home. Without one the
//     completion is abandoned: the vehicle keeps the fresh booking, stays
//     unrouted, and its clock moves to the fresh trip's finish.
//  3. Greedily pick middle bookings between fresh and ending, best
//     dead-minus-active score each round.
//  4. Commit the middles in chosen order, then the ending.
//  5. Efficiency gate: when the closed route would run below 55% efficiency
//     or leave a final home leg over 20 km, restore the snapshot — the
//     vehicle keeps only the fresh booking.
//
// Returns the ids of the extra bookings committed (middles + ending); empty
// on abandon or rejection. The fresh booking itself is never rolled back.
func (a *Assigner) CompleteRoute(v *model.Vehicle, fresh *model.Booking) []int {
	snap := v.Snapshot()

	ending := a.findEndingBooking(v)
	if ending == nil {
		v.AvailableTime = freshFinish(fresh)
		log.Printf("[route] vehicle %d: no ending found near home — keeping single booking %d", v.ID, fresh.ID)
		return nil
	}

	middles := a.findMiddleBookings(v, ending)

	added := make([]int, 0, len(middles)+1)
	for _, m := range middles {
		a.Assign(m, v, model.PositionMiddle)
		added = append(added, m.ID)
	}
	a.Assign(ending, v, model.PositionEnding)
	added = append(added, ending.ID)

	finalLeg := geo.RoadKm(v.Current, v.Home)
	efficiency := routeEfficiency(v.ActiveKm, v.DeadKm+finalLeg)

	if efficiency < MinEfficiency || finalLeg > MaxFinalLegKm {
		log.Printf("[route] WARNING: vehicle %d rejected (efficiency %.1f%%, final leg %.2f km) — rolling back %d extra booking(s)",
			v.ID, efficiency*100, finalLeg, len(added))
		v.Restore(snap)
		a.unassign(added)
		v.AvailableTime = freshFinish(fresh)
		v.IsRouted = false
		return nil
	}

	v.DeadKm += finalLeg
	v.DriverPay += finalLeg * a.rates.DeadPay(v.Class)
	v.IsRouted = true
	log.Printf("[route] ✓ vehicle %d routed: %d booking(s), efficiency %.1f%%, final leg %.2f km",
		v.ID, len(v.AssignedBookings), efficiency*100, finalLeg)
	return added
}

// ─── Ending search ──────────────────────────────────────────

// findEndingBooking scans unassigned bookings descending by pickup time for
// one whose drop lands near the vehicle's home.
//
// Two-phase acceptance:
//   - strict: drops within 5 km of home, keeping the closest; a drop within
//     3 km is taken immediately without scanning further.
//   - fallback: when strict yields nothing, retry at 15 km, keeping the
//     closest.
//
// Candidates must be class-compatible, reachable within the arrival slack,
// and pick up at least EndingMinGapMinutes after the vehicle's availability.
func (a *Assigner) findEndingBooking(v *model.Vehicle) *model.Booking {
	pool := a.unassignedBookings()
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].PickupMinute > pool[j].PickupMinute
	})

	if b := a.scanEndings(v, pool, EndingStrictKm, true); b != nil {
		return b
	}
	return a.scanEndings(v, pool, EndingFallbackKm, false)
}

// scanEndings runs one acceptance phase over the descending pool.
func (a *Assigner) scanEndings(v *model.Vehicle, pool []*model.Booking, limitKm float64, earlyExit bool) *model.Booking {
	var best *model.Booking
	bestDist := math.Inf(1)

	for _, b := range pool {
		if !classCompatible(v.Class, b.Class) {
			continue
		}
		dropHome := geo.RoadKm(b.Drop, v.Home)
		if dropHome > limitKm {
			continue
		}
		if !a.canServe(v, b) {
			continue
		}
		if b.PickupMinute < v.AvailableTime+EndingMinGapMinutes {
			continue
		}
		if dropHome < bestDist {
			best, bestDist = b, dropHome
		}
		if earlyExit && dropHome <= EndingExcellentKm {
			break
		}
	}
	return best
}

// ─── Middle selection ───────────────────────────────────────

// findMiddleBookings greedily fills the gap between the vehicle's current
// state and the chosen ending. Nothing is committed here: a rolling cursor
// simulates the vehicle so each round scores candidates against the route as
// it would stand.
//
// A candidate qualifies in a round when it is class-compatible, its pickup
// falls strictly between the rolling clock and the ending's pickup, the
// cursor can reach it within the arrival slack, and serving it still leaves
// the ending reachable. Qualifying candidates are scored on the hypothetical
// closed route (cursor route ∥ candidate ∥ ending): candidates whose dead
// kilometres exceed their active kilometres are rejected outright, and the
// lowest dead-minus-active score wins the round.
//
// Complexity: O(R × B × L) for R rounds, B candidates, route length L.
func (a *Assigner) findMiddleBookings(v *model.Vehicle, ending *model.Booking) []*model.Booking {
	curTime := v.AvailableTime
	curLoc := v.Current
	route := append([]model.Location(nil), v.Route...)

	pool := make([]*model.Booking, 0)
	for _, b := range a.unassignedBookings() {
		if b.ID == ending.ID || !classCompatible(v.Class, b.Class) {
			continue
		}
		pool = append(pool, b)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].PickupMinute < pool[j].PickupMinute
	})

	var middles []*model.Booking
	for round := 0; round < MaxMiddleBookings; round++ {
		var best *model.Booking
		var bestEnd float64
		bestScore := math.Inf(1)

		for _, b := range pool {
			if b.PickupMinute <= curTime || b.PickupMinute >= ending.PickupMinute {
				continue
			}
			arrival := curTime + geo.TravelTimeMinutes(geo.RoadKm(curLoc, b.Pickup))
			if arrival > b.PickupMinute+ArrivalSlackMinutes {
				continue
			}
			bookingEnd := math.Max(arrival, b.PickupMinute) + b.TravelTime + ServiceBufferMinutes
			toEnding := geo.TravelTimeMinutes(geo.RoadKm(b.Drop, ending.Pickup))
			if bookingEnd+toEnding > ending.PickupMinute+ArrivalSlackMinutes {
				continue
			}

			test := make([]model.Location, 0, len(route)+4)
			test = append(test, route...)
			test = append(test, b.Pickup, b.Drop, ending.Pickup, ending.Drop)

			dead := ClosedDeadKm(test, v.Home)
			active := RouteActiveKm(test, a.bookings)
			if dead > active {
				continue
			}
			if score := dead - active; score < bestScore {
				best, bestScore, bestEnd = b, score, bookingEnd
			}
		}

		if best == nil {
			break
		}

		middles = append(middles, best)
		pool = removeBooking(pool, best.ID)
		curTime = bestEnd
		curLoc = best.Drop
		route = append(route, best.Pickup, best.Drop)
	}
	return middles
}

func removeBooking(pool []*model.Booking, id int) []*model.Booking {
	out := pool[:0]
	for _, b := range pool {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}
