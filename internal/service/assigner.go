// Package service contains the planning engine for home-oriented dispatch:
// rate tables, route costing, the fleet assigner, route completion, the
// batch planner, and the real-time simulator.
package service

import (
	"errors"
	"log"
	"math"

	"homebound/internal/model"
	"homebound/pkg/geo"
	"homebound/pkg/hexgrid"
)

// ─── Errors ─────────────────────────────────────────────────

var (
	// ErrNoVehicle is returned by PlanSingle when no vehicle can serve the
	// booking at its own class or one class above.
	ErrNoVehicle = errors.New("no suitable vehicle for booking")
)

// ─── Constants ──────────────────────────────────────────────

const (
	// DayStartMinute is when the fleet goes on shift (06:00). Every planning
	// pass resets each vehicle to its home at this minute.
	DayStartMinute = 360.0

	// ServiceBufferMinutes pads every completed trip — handover, cleanup,
	// driver break — before the vehicle is available again.
	ServiceBufferMinutes = 30.0

	// ArrivalSlackMinutes is how far past the scheduled pickup an approach
	// may arrive and still count as feasible.
	ArrivalSlackMinutes = 60.0

	// BatchSearchRadius caps the hex-ring expansion for batch planning.
	BatchSearchRadius = 20

	// SingleSearchRadius caps the hex-ring expansion for one-shot planning,
	// a little wider since there is no later booking to fall back on.
	SingleSearchRadius = 25
)

// ─── Assigner ───────────────────────────────────────────────

// Assigner owns one planning pass over a fixed booking table and a fleet.
//
// Construction resets every vehicle to its day-start state; after that the
// only mutation path is Assign, so a vehicle's accumulators always agree
// with its waypoint route. Vehicle slice order doubles as the deterministic
// tie-break order everywhere candidates are compared.
type Assigner struct {
	vehicles []*model.Vehicle
	bookings []*model.Booking // the active booking table (route costing, candidate pools)
	byID     map[int]*model.Booking
	rates    RateTable

	assignedTo map[int]int                 // booking id → vehicle id
	positions  map[int]model.RoutePosition // booking id → role in its route
}

// NewAssigner creates an assigner over the given fleet and booking table and
// resets all vehicles to the day start: parked at home, clock at 06:00,
// empty route, zero accumulators.
func NewAssigner(vehicles []*model.Vehicle, bookings []*model.Booking, rates RateTable) *Assigner {
	a := &Assigner{
		vehicles:   vehicles,
		bookings:   bookings,
		byID:       make(map[int]*model.Booking, len(bookings)),
		rates:      rates,
		assignedTo: make(map[int]int),
		positions:  make(map[int]model.RoutePosition),
	}

	for _, v := range vehicles {
		v.Current = v.Home
		v.AvailableTime = DayStartMinute
		v.Route = nil
		v.AssignedBookings = nil
		v.ActiveKm = 0
		v.DeadKm = 0
		v.DriverPay = 0
		v.HexID = hexgrid.CellID(v.Home.Lat, v.Home.Lon)
		v.IsRouted = false
	}
	for _, b := range bookings {
		a.byID[b.ID] = b
	}
	return a
}

// Vehicles returns the fleet in input order.
func (a *Assigner) Vehicles() []*model.Vehicle { return a.vehicles }

// Bookings returns the active booking table in input order.
func (a *Assigner) Bookings() []*model.Booking { return a.bookings }

// Rates returns the rate table the pass prices with.
func (a *Assigner) Rates() RateTable { return a.rates }

// AssignedVehicle returns the vehicle a booking was committed to.
func (a *Assigner) AssignedVehicle(bookingID int) (int, bool) {
	vid, ok := a.assignedTo[bookingID]
	return vid, ok
}

// Position returns the role a committed booking plays in its route.
func (a *Assigner) Position(bookingID int) (model.RoutePosition, bool) {
	pos, ok := a.positions[bookingID]
	return pos, ok
}

func (a *Assigner) isAssigned(bookingID int) bool {
	_, ok := a.assignedTo[bookingID]
	return ok
}

// unassignedBookings returns the bookings not yet committed, in table order.
func (a *Assigner) unassignedBookings() []*model.Booking {
	out := make([]*model.Booking, 0, len(a.bookings))
	for _, b := range a.bookings {
		if !a.isAssigned(b.ID) {
			out = append(out, b)
		}
	}
	return out
}

// ─── Feasibility ────────────────────────────────────────────

// canServe reports whether the vehicle can reach the booking's pickup no
// later than ArrivalSlackMinutes past the scheduled pickup time.
func (a *Assigner) canServe(v *model.Vehicle, b *model.Booking) bool {
	approach := geo.RoadKm(v.Current, b.Pickup)
	arrival := v.AvailableTime + geo.TravelTimeMinutes(approach)
	return arrival <= b.PickupMinute+ArrivalSlackMinutes
}

// ─── Candidate search ───────────────────────────────────────

// suitableVehicles finds candidate vehicles for a booking by expanding hex
// rings around its pickup.
//
// Algorithm:
//  1. Index the pickup into its H3 cell. When indexing fails, fall back to
//     a linear scan over the whole fleet.
//  2. Grow k = 0..maxRadius. k=0 demands exact cell equality; k>0 tests
//     membership in the ring at distance k. When ring generation failed,
//     membership is approximated from the hex-grid distance (one ring step
//     spans roughly 0.5 km).
//  3. The first non-empty ring wins. Vehicles are tested in fleet order, so
//     equally-near candidates keep a stable order.
//
// Every candidate must match the requested class, still be in the pool, and
// reach the pickup within the arrival slack.
//
// Complexity: O(K × V) over K rings and V vehicles.
func (a *Assigner) suitableVehicles(b *model.Booking, class model.VehicleClass, maxRadius int) []*model.Vehicle {
	eligible := func(v *model.Vehicle) bool {
		return !v.IsRouted && v.Class == class && a.canServe(v, b)
	}

	pickupHex := hexgrid.CellID(b.Pickup.Lat, b.Pickup.Lon)
	if pickupHex == "" {
		var out []*model.Vehicle
		for _, v := range a.vehicles {
			if eligible(v) {
				out = append(out, v)
			}
		}
		log.Printf("[search] booking %d: no pickup hex — linear scan found %d candidates", b.ID, len(out))
		return out
	}

	rings, err := hexgrid.Rings(pickupHex, maxRadius)
	if err != nil {
		log.Printf("[search] WARNING: ring generation failed for booking %d: %v — approximating by grid distance", b.ID, err)
		rings = nil
	}

	for k := 0; k <= maxRadius; k++ {
		var out []*model.Vehicle
		for _, v := range a.vehicles {
			if !eligible(v) {
				continue
			}
			if !inRing(rings, pickupHex, v.HexID, k) {
				continue
			}
			out = append(out, v)
		}
		if len(out) > 0 {
			log.Printf("[search] booking %d: %d candidate(s) at ring %d", b.ID, len(out), k)
			return out
		}
	}
	return nil
}

// inRing tests whether a vehicle cell belongs to ring k around the pickup
// cell, using real rings when available and grid-distance otherwise.
func inRing(rings []map[string]struct{}, pickupHex, vehicleHex string, k int) bool {
	if rings != nil {
		if k >= len(rings) {
			return false
		}
		_, ok := rings[k][vehicleHex]
		return ok
	}
	if k == 0 {
		return vehicleHex == pickupHex
	}
	return hexgrid.StepsKm(pickupHex, vehicleHex)/0.5 <= float64(k)
}

// ─── Commit ─────────────────────────────────────────────────

// Assign commits a booking to a vehicle. This is the only mutator of vehicle
// planning state — every other routine either reads state or speculates on
// copies and then calls Assign.
//
// Effects, in order:
//  1. the approach leg is measured from the vehicle's pre-move position;
//  2. pickup and drop join the waypoint route, the booking id joins the
//     assignment list, and the vehicle moves to the drop;
//  3. the clock advances: arrive (waiting for the scheduled pickup when
//     early), drive the trip, then the service buffer;
//  4. active km grows by the booking's trip distance, dead km is recomputed
//     open-form from the route, driver pay grows for both leg kinds;
//  5. the vehicle's hex is refreshed at its new position.
func (a *Assigner) Assign(b *model.Booking, v *model.Vehicle, pos model.RoutePosition) {
	approach := geo.RoadKm(v.Current, b.Pickup)

	v.Route = append(v.Route, b.Pickup, b.Drop)
	v.AssignedBookings = append(v.AssignedBookings, b.ID)
	v.Current = b.Drop

	arrival := v.AvailableTime + geo.TravelTimeMinutes(approach)
	v.AvailableTime = math.Max(arrival, b.PickupMinute) + b.TravelTime + ServiceBufferMinutes

	v.ActiveKm += b.DistanceKm
	v.DeadKm = OpenDeadKm(v.Route, v.Home)
	v.DriverPay += b.DistanceKm*a.rates.ActivePay(v.Class) + approach*a.rates.DeadPay(v.Class)
	v.HexID = hexgrid.CellID(v.Current.Lat, v.Current.Lon)

	a.assignedTo[b.ID] = v.ID
	a.positions[b.ID] = pos

	log.Printf("[assign] booking %d → vehicle %d (%s, %s, approach %.2f km)",
		b.ID, v.ID, v.Class, pos, approach)
}

// unassign removes bookings from the assignment maps, used when a
// speculative route completion is rolled back.
func (a *Assigner) unassign(bookingIDs []int) {
	for _, id := range bookingIDs {
		delete(a.assignedTo, id)
		delete(a.positions, id)
	}
}
