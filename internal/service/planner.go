package service

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/samber/lo"

	"homebound/internal/model"
	"homebound/pkg/geo"
)

// ─── Plan Result ────────────────────────────────────────────

// PlanResult is the outcome of one planning pass. Maps are shared with the
// assigner that produced them; a new pass always starts from a new assigner.
type PlanResult struct {
	Vehicles   []*model.Vehicle
	Bookings   []*model.Booking // the full active table
	AssignedTo map[int]int
	Positions  map[int]model.RoutePosition
	Unassigned []*model.Booking
	Rates      RateTable
}

// ─── Batch Planner ──────────────────────────────────────────

// Plan assigns the whole booking table to the fleet.
//
// Algorithm:
//  1. Visit bookings ascending by pickup time, skipping ids committed before
//     the pass began (replayed locked bookings arrive pre-committed).
//  2. Collect candidate vehicles by expanding hex rings around the pickup.
//  3. Score each candidate on its hypothetical post-insert closed route,
//     dead minus active kilometres; the first strict minimum wins.
//  4. Commit the winner, then attempt the home-oriented completion.
//  5. When no candidate serves the booking's own class, retry one class up —
//     the search widens, the booking keeps its own class and price.
//  6. Finalize: every vehicle holding assignments without a closed route
//     gets its final home leg added, exactly once.
//
// Bookings no pass could place are recorded unassigned, in input order.
func (a *Assigner) Plan() *PlanResult {
	ordered := append([]*model.Booking(nil), a.bookings...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PickupMinute < ordered[j].PickupMinute
	})

	log.Printf("[plan] planning %d booking(s) across %d vehicle(s)", len(ordered), len(a.vehicles))

	for _, b := range ordered {
		if a.isAssigned(b.ID) {
			continue
		}
		if !a.planBooking(b, BatchSearchRadius) {
			log.Printf("[plan] WARNING: booking %d (%s, pickup %s) left unassigned",
				b.ID, b.Class, b.PickupTime)
		}
	}

	a.Finalize()
	return a.result()
}

// PlanSingle places one booking outside a batch pass, searching a slightly
// wider radius and skipping the home-oriented completion. The caller owns
// finalisation. Returns the chosen vehicle id or ErrNoVehicle.
func (a *Assigner) PlanSingle(b *model.Booking) (int, error) {
	if vid, ok := a.AssignedVehicle(b.ID); ok {
		return vid, nil
	}

	v := a.bestCandidate(b, b.Class, SingleSearchRadius)
	if v == nil {
		if upper, ok := b.Class.Upgrade(); ok {
			v = a.bestCandidate(b, upper, SingleSearchRadius)
			if v != nil {
				log.Printf("[plan] booking %d: class upgraded to %s for vehicle search", b.ID, upper)
			}
		}
	}
	if v == nil {
		return 0, fmt.Errorf("plan booking %d: %w", b.ID, ErrNoVehicle)
	}

	a.Assign(b, v, model.PositionFresh)
	return v.ID, nil
}

// planBooking places one booking as a fresh assignment: own class first,
// one class up when nothing serves it, completion after either.
func (a *Assigner) planBooking(b *model.Booking, maxRadius int) bool {
	v := a.bestCandidate(b, b.Class, maxRadius)
	if v == nil {
		upper, ok := b.Class.Upgrade()
		if !ok {
			return false
		}
		v = a.bestCandidate(b, upper, maxRadius)
		if v == nil {
			return false
		}
		log.Printf("[plan] booking %d: class upgraded to %s for vehicle search", b.ID, upper)
	}

	a.Assign(b, v, model.PositionFresh)
	a.CompleteRoute(v, b)
	return true
}

// bestCandidate scores each candidate vehicle on its hypothetical
// post-insert closed route and keeps the strict minimum, so the first of
// equally good vehicles (fleet order) wins.
func (a *Assigner) bestCandidate(b *model.Booking, class model.VehicleClass, maxRadius int) *model.Vehicle {
	candidates := a.suitableVehicles(b, class, maxRadius)
	if len(candidates) == 0 {
		return nil
	}

	var best *model.Vehicle
	bestScore := math.Inf(1)

	for _, v := range candidates {
		test := make([]model.Location, 0, len(v.Route)+2)
		test = append(test, v.Route...)
		test = append(test, b.Pickup, b.Drop)

		score := ClosedDeadKm(test, v.Home) - RouteActiveKm(test, a.bookings)
		log.Printf("[plan]   vehicle %d: score %.2f (best %.2f)", v.ID, score, bestScore)

		if score < bestScore {
			best, bestScore = v, score
		}
	}
	return best
}

// Finalize closes out every vehicle that holds assignments but never
// completed a home-oriented route: the final home leg joins its dead
// kilometres and dead pay exactly once, and the vehicle leaves the pool.
func (a *Assigner) Finalize() {
	for _, v := range a.vehicles {
		if v.IsRouted || len(v.AssignedBookings) == 0 {
			continue
		}
		finalLeg := geo.RoadKm(v.Current, v.Home)
		v.DeadKm += finalLeg
		v.DriverPay += finalLeg * a.rates.DeadPay(v.Class)
		v.IsRouted = true
		log.Printf("[plan] vehicle %d finalized with %.2f km home leg", v.ID, finalLeg)
	}
}

func (a *Assigner) result() *PlanResult {
	unassigned := lo.Filter(a.bookings, func(b *model.Booking, _ int) bool {
		return !a.isAssigned(b.ID)
	})

	log.Printf("[plan] ✓ done: %d assigned, %d unassigned",
		len(a.bookings)-len(unassigned), len(unassigned))

	return &PlanResult{
		Vehicles:   a.vehicles,
		Bookings:   a.bookings,
		AssignedTo: a.assignedTo,
		Positions:  a.positions,
		Unassigned: unassigned,
		Rates:      a.rates,
	}
}
