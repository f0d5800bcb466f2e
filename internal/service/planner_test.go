package service

import (
	"errors"
	"testing"

	"homebound/internal/model"
)

func TestPlan_SingleBookingEndToEnd(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	res := a.Plan()

	if vid, ok := res.AssignedTo[10]; !ok || vid != 1 {
		t.Fatalf("AssignedTo[10] = %v,%v, want 1,true", vid, ok)
	}
	if len(res.Unassigned) != 0 {
		t.Errorf("Unassigned = %v, want empty", res.Unassigned)
	}
	if v.ActiveKm != 2.0 {
		t.Errorf("ActiveKm = %v, want 2.0", v.ActiveKm)
	}
	// Only dead leg is the finalized return home (~2 km road).
	if v.DeadKm < 1.5 || v.DeadKm > 2.5 {
		t.Errorf("DeadKm = %v, want the ~2 km return leg", v.DeadKm)
	}
	if !v.IsRouted {
		t.Errorf("IsRouted = false, want true after finalisation")
	}
}

func TestPlan_NoDoubleBooking(t *testing.T) {
	v1 := newTestVehicle(1, model.Class1, testHome)
	v2 := newTestVehicle(2, model.Class1, testHome)
	b1 := newTestBooking(10, model.Class1, testHome, pointB, 420, 5.0, 30)
	b2 := newTestBooking(11, model.Class1, testHome, pointB, 480, 5.0, 30)
	a := NewAssigner([]*model.Vehicle{v1, v2}, []*model.Booking{b1, b2}, DefaultRateTable())

	res := a.Plan()

	if len(res.Unassigned) != 0 {
		t.Fatalf("Unassigned = %v, want both bookings placed", res.Unassigned)
	}
	// The earlier booking takes the first vehicle; by its 08:00 sibling the
	// first vehicle has left the pickup cell, so the ring search finds the
	// second vehicle first.
	if vid := res.AssignedTo[10]; vid != 1 {
		t.Errorf("AssignedTo[10] = %d, want 1", vid)
	}
	if vid := res.AssignedTo[11]; vid != 2 {
		t.Errorf("AssignedTo[11] = %d, want 2", vid)
	}

	seen := make(map[int]bool)
	for _, v := range res.Vehicles {
		for _, bid := range v.AssignedBookings {
			if seen[bid] {
				t.Fatalf("booking %d appears on more than one vehicle", bid)
			}
			seen[bid] = true
		}
	}
}

func TestPlan_UpgradesClassWhenOwnClassUnserved(t *testing.T) {
	v := newTestVehicle(1, model.Class2, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	res := a.Plan()

	if vid, ok := res.AssignedTo[10]; !ok || vid != 1 {
		t.Fatalf("AssignedTo[10] = %v,%v, want the class2 vehicle", vid, ok)
	}
	// The booking keeps its own class — only the search was widened.
	if b.Class != model.Class1 {
		t.Errorf("booking class mutated to %s", b.Class)
	}
}

func TestPlan_RecordsUnassigned(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	// 06:00 pickup ~64 road km away: unreachable within the slack.
	hopeless := newTestBooking(10, model.Class1,
		model.Location{Lat: 13.3000, Lon: 77.9000}, pointA, 360, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{hopeless}, DefaultRateTable())

	res := a.Plan()

	if len(res.Unassigned) != 1 || res.Unassigned[0].ID != 10 {
		t.Fatalf("Unassigned = %v, want [10]", res.Unassigned)
	}
	if _, ok := res.AssignedTo[10]; ok {
		t.Errorf("hopeless booking marked assigned")
	}
	if len(v.AssignedBookings) != 0 {
		t.Errorf("vehicle carries %v, want nothing", v.AssignedBookings)
	}
}

func TestFinalize_AddsHomeLegExactlyOnce(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	a.Plan()
	deadAfterPlan := v.DeadKm

	a.Finalize() // second call must be a no-op on routed vehicles
	if v.DeadKm != deadAfterPlan {
		t.Errorf("DeadKm changed on repeat finalize: %v → %v", deadAfterPlan, v.DeadKm)
	}
}

func TestPlanSingle_AssignsAndIsIdempotent(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	vid, err := a.PlanSingle(b)
	if err != nil || vid != 1 {
		t.Fatalf("PlanSingle = %v,%v, want 1,nil", vid, err)
	}

	again, err := a.PlanSingle(b)
	if err != nil || again != 1 {
		t.Fatalf("repeat PlanSingle = %v,%v, want 1,nil", again, err)
	}
	if len(v.AssignedBookings) != 1 {
		t.Errorf("repeat PlanSingle duplicated the assignment: %v", v.AssignedBookings)
	}
}

func TestPlanSingle_NoVehicle(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b := newTestBooking(10, model.Class5, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	if _, err := a.PlanSingle(b); !errors.Is(err, ErrNoVehicle) {
		t.Fatalf("PlanSingle error = %v, want ErrNoVehicle", err)
	}
}
