package service

import (
	"math"
	"testing"

	"homebound/internal/model"
	"homebound/pkg/geo"
	"homebound/pkg/hexgrid"
)

// Shared scenario helpers. Coordinates are Bangalore-area, matching the
// production input files.

func newTestVehicle(id int, class model.VehicleClass, home model.Location) *model.Vehicle {
	return &model.Vehicle{ID: id, Class: class, Home: home}
}

func newTestBooking(id int, class model.VehicleClass, pickup, drop model.Location, minute, km, travel float64) *model.Booking {
	return &model.Booking{
		ID:           id,
		Class:        class,
		Pickup:       pickup,
		Drop:         drop,
		PickupMinute: minute,
		DistanceKm:   km,
		TravelTime:   travel,
		Origin:       model.OriginScheduled,
	}
}

func TestNewAssigner_ResetsVehicles(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	v.Current = pointB
	v.AvailableTime = 999
	v.Route = []model.Location{pointA, pointB}
	v.AssignedBookings = []int{7}
	v.ActiveKm, v.DeadKm, v.DriverPay = 10, 5, 400
	v.IsRouted = true

	NewAssigner([]*model.Vehicle{v}, nil, DefaultRateTable())

	if v.Current != testHome {
		t.Errorf("Current = %v, want home %v", v.Current, testHome)
	}
	if v.AvailableTime != DayStartMinute {
		t.Errorf("AvailableTime = %v, want %v", v.AvailableTime, DayStartMinute)
	}
	if len(v.Route) != 0 || len(v.AssignedBookings) != 0 {
		t.Errorf("route/assignments not cleared: %v, %v", v.Route, v.AssignedBookings)
	}
	if v.ActiveKm != 0 || v.DeadKm != 0 || v.DriverPay != 0 || v.IsRouted {
		t.Errorf("accumulators not reset: %+v", v)
	}
	if v.HexID != hexgrid.CellID(testHome.Lat, testHome.Lon) {
		t.Errorf("HexID = %q, want home cell", v.HexID)
	}
}

func TestAssign_UpdatesVehicleState(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	a.Assign(b, v, model.PositionFresh)

	if len(v.Route) != 2 || v.Route[0] != b.Pickup || v.Route[1] != b.Drop {
		t.Errorf("route = %v, want [pickup drop]", v.Route)
	}
	if len(v.AssignedBookings) != 1 || v.AssignedBookings[0] != 10 {
		t.Errorf("assigned = %v, want [10]", v.AssignedBookings)
	}
	if v.Current != pointA {
		t.Errorf("Current = %v, want drop %v", v.Current, pointA)
	}
	// Approach is zero (pickup at home), so the clock waits for the
	// scheduled 07:00 pickup: 420 + 10 trip + 30 buffer.
	if v.AvailableTime != 460 {
		t.Errorf("AvailableTime = %v, want 460", v.AvailableTime)
	}
	if v.ActiveKm != 2.0 {
		t.Errorf("ActiveKm = %v, want 2.0", v.ActiveKm)
	}
	// Pickup equals home, single booking: no dead legs yet.
	if v.DeadKm != 0 {
		t.Errorf("DeadKm = %v, want 0", v.DeadKm)
	}
	// 2 active km × ₹16, no approach.
	if math.Abs(v.DriverPay-32) > 1e-9 {
		t.Errorf("DriverPay = %v, want 32", v.DriverPay)
	}
	if v.HexID != hexgrid.CellID(pointA.Lat, pointA.Lon) {
		t.Errorf("HexID = %q, want drop cell", v.HexID)
	}
	if vid, ok := a.AssignedVehicle(10); !ok || vid != 1 {
		t.Errorf("AssignedVehicle(10) = %v,%v, want 1,true", vid, ok)
	}
	if pos, _ := a.Position(10); pos != model.PositionFresh {
		t.Errorf("Position(10) = %v, want fresh", pos)
	}
}

func TestAssign_LateAvailabilityExtendsClock(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b}, DefaultRateTable())

	v.AvailableTime = 450 // already past the 07:00 pickup

	a.Assign(b, v, model.PositionFresh)

	// Arrival 450 beats the scheduled 420: 450 + 10 + 30.
	if v.AvailableTime != 490 {
		t.Errorf("AvailableTime = %v, want 490", v.AvailableTime)
	}
}

func TestAssign_SecondBookingAccumulatesDeadKm(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	b1 := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	b2 := newTestBooking(11, model.Class1, pointB, pointC, 600, 3.0, 15)
	a := NewAssigner([]*model.Vehicle{v}, []*model.Booking{b1, b2}, DefaultRateTable())

	a.Assign(b1, v, model.PositionFresh)
	a.Assign(b2, v, model.PositionMiddle)

	wantDead := geo.RoadKm(pointA, pointB) // drop of b1 → pickup of b2
	if math.Abs(v.DeadKm-wantDead) > 1e-9 {
		t.Errorf("DeadKm = %v, want %v", v.DeadKm, wantDead)
	}
	if v.ActiveKm != 5.0 {
		t.Errorf("ActiveKm = %v, want 5.0", v.ActiveKm)
	}
	if len(v.Route) != 4 {
		t.Errorf("route length = %d, want 4", len(v.Route))
	}
}

func TestCanServe_SlackBoundary(t *testing.T) {
	v := newTestVehicle(1, model.Class1, testHome)
	a := NewAssigner([]*model.Vehicle{v}, nil, DefaultRateTable())

	// Pickup at the vehicle's position: approach is zero, so feasibility
	// reduces to AvailableTime ≤ pickup + 60.
	onTheEdge := newTestBooking(1, model.Class1, testHome, pointA, 300, 2, 10)
	if !a.canServe(v, onTheEdge) {
		t.Errorf("canServe at exactly pickup+60 = false, want true")
	}

	justPast := newTestBooking(2, model.Class1, testHome, pointA, 299, 2, 10)
	if a.canServe(v, justPast) {
		t.Errorf("canServe past the slack = true, want false")
	}
}

func TestSuitableVehicles_SameCellWinsFirstRing(t *testing.T) {
	near := newTestVehicle(1, model.Class1, testHome)
	far := newTestVehicle(2, model.Class1, model.Location{Lat: 13.1986, Lon: 77.7066})
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{near, far}, []*model.Booking{b}, DefaultRateTable())

	got := a.suitableVehicles(b, model.Class1, BatchSearchRadius)
	if len(got) != 1 || got[0].ID != 1 {
		ids := make([]int, 0, len(got))
		for _, v := range got {
			ids = append(ids, v.ID)
		}
		t.Errorf("suitableVehicles = %v, want just the co-located vehicle 1", ids)
	}
}

func TestSuitableVehicles_FiltersClassAndRouted(t *testing.T) {
	wrongClass := newTestVehicle(1, model.Class2, testHome)
	routed := newTestVehicle(2, model.Class1, testHome)
	open := newTestVehicle(3, model.Class1, testHome)
	b := newTestBooking(10, model.Class1, testHome, pointA, 420, 2.0, 10)
	a := NewAssigner([]*model.Vehicle{wrongClass, routed, open}, []*model.Booking{b}, DefaultRateTable())

	routed.IsRouted = true

	got := a.suitableVehicles(b, model.Class1, BatchSearchRadius)
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("suitableVehicles returned %d vehicle(s), want just the open class1 vehicle 3", len(got))
	}
}
