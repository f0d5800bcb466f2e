// Package model contains domain models for the home-oriented dispatch engine.
//
// Conventions: times of day are minutes from midnight (06:00 = 360.0),
// distances are kilometres, money is rupees.
package model

import (
	"strconv"
	"strings"
	"time"
)

// ─── Enums ──────────────────────────────────────────────────

// VehicleClass identifies one of the nine service tiers, "class1" (economy)
// through "class9" (top luxury).
type VehicleClass string

const (
	Class1 VehicleClass = "class1"
	Class2 VehicleClass = "class2"
	Class3 VehicleClass = "class3"
	Class4 VehicleClass = "class4"
	Class5 VehicleClass = "class5"
	Class6 VehicleClass = "class6"
	Class7 VehicleClass = "class7"
	Class8 VehicleClass = "class8"
	Class9 VehicleClass = "class9"
)

// Number returns the numeric tier (1–9), or 0 for a malformed class string.
func (c VehicleClass) Number() int {
	n, err := strconv.Atoi(strings.TrimPrefix(string(c), "class"))
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}

// Upgrade returns the next tier up and true, or the class unchanged and
// false when the class is already class9 or malformed.
func (c VehicleClass) Upgrade() (VehicleClass, bool) {
	n := c.Number()
	if n == 0 || n >= 9 {
		return c, false
	}
	return VehicleClass("class" + strconv.Itoa(n+1)), true
}

// BookingOrigin distinguishes pre-scheduled bookings from instant ones that
// surface mid-day.
type BookingOrigin string

const (
	OriginScheduled BookingOrigin = "scheduled"
	OriginInstant   BookingOrigin = "instant"
)

// RoutePosition records the role a booking plays inside its vehicle's route.
type RoutePosition string

const (
	PositionFresh  RoutePosition = "fresh"
	PositionMiddle RoutePosition = "middle"
	PositionEnding RoutePosition = "ending"
)

// ─── Location ───────────────────────────────────────────────

// Location represents a WGS-84 geographic point (EPSG:4326).
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ─── Domain Models ──────────────────────────────────────────

// Booking is one customer trip to be served.
type Booking struct {
	ID           int           `json:"booking_id"`
	Class        VehicleClass  `json:"vehicle_type"`
	Pickup       Location      `json:"pickup"`
	Drop         Location      `json:"drop"`
	PickupTime   string        `json:"pickup_time"`   // "YYYY-MM-DD HH:MM:SS", kept for display
	PickupMinute float64       `json:"pickup_minute"` // parsed once at load
	DistanceKm   float64       `json:"distance_km"`   // pickup→drop trip distance
	TravelTime   float64       `json:"travel_time"`   // on-trip minutes, defaulted to 30 at load
	Origin       BookingOrigin `json:"origin"`
	LoadTime     float64       `json:"load_time,omitempty"` // instants only: when the booking surfaces
}

// Vehicle is one fleet car plus its mutable planning state. A planning pass
// resets the state to the day start; only the assigner mutates it after that.
type Vehicle struct {
	ID    int          `json:"vehicle_id"`
	Class VehicleClass `json:"vehicle_type"`
	Home  Location     `json:"home"`

	Current          Location   `json:"current"`           // starts at Home
	AvailableTime    float64    `json:"available_time"`    // minutes from midnight
	Route            []Location `json:"route"`             // alternating pickup/drop waypoints
	AssignedBookings []int      `json:"assigned_bookings"` // booking ids in commit order
	ActiveKm         float64    `json:"active_km"`
	DeadKm           float64    `json:"dead_km"`
	DriverPay        float64    `json:"driver_pay"`
	HexID            string     `json:"hex_id"`    // H3 cell of Current; "" when indexing failed
	IsRouted         bool       `json:"is_routed"` // route closed back home, out of the pool
}

// VehicleState is a point-in-time copy of a vehicle's planning state, taken
// before speculative route completion so a rejected route can be undone.
type VehicleState struct {
	Current          Location
	AvailableTime    float64
	Route            []Location
	AssignedBookings []int
	ActiveKm         float64
	DeadKm           float64
	DriverPay        float64
	HexID            string
	IsRouted         bool
}

// Snapshot copies the vehicle's planning state. Route and booking slices are
// copied so later commits cannot leak into the snapshot.
func (v *Vehicle) Snapshot() VehicleState {
	return VehicleState{
		Current:          v.Current,
		AvailableTime:    v.AvailableTime,
		Route:            append([]Location(nil), v.Route...),
		AssignedBookings: append([]int(nil), v.AssignedBookings...),
		ActiveKm:         v.ActiveKm,
		DeadKm:           v.DeadKm,
		DriverPay:        v.DriverPay,
		HexID:            v.HexID,
		IsRouted:         v.IsRouted,
	}
}

// Restore rewinds the vehicle to a previously taken snapshot.
func (v *Vehicle) Restore(s VehicleState) {
	v.Current = s.Current
	v.AvailableTime = s.AvailableTime
	v.Route = s.Route
	v.AssignedBookings = s.AssignedBookings
	v.ActiveKm = s.ActiveKm
	v.DeadKm = s.DeadKm
	v.DriverPay = s.DriverPay
	v.HexID = s.HexID
	v.IsRouted = s.IsRouted
}

// ─── Fleet snapshot DTOs ────────────────────────────────────
//
// FleetSnapshot is the denormalized view of one finished planning pass. It is
// what the monitor API serves, the Redis cache publishes, and the Postgres
// archive persists — one shape for every read-side consumer.

// VehicleStatus summarizes one vehicle after planning.
type VehicleStatus struct {
	ID            int          `json:"vehicle_id"`
	Class         VehicleClass `json:"vehicle_type"`
	BookingIDs    []int        `json:"booking_ids"`
	Bookings      int          `json:"bookings"`
	ActiveKm      float64      `json:"active_km"`
	DeadKm        float64      `json:"dead_km"`
	Fare          float64      `json:"fare"`
	DriverPay     float64      `json:"driver_pay"`
	Profit        float64      `json:"profit"`
	Efficiency    float64      `json:"efficiency"` // active / (active + dead), 0 when idle
	IsRouted      bool         `json:"is_routed"`
	AvailableTime float64      `json:"available_time"`
	Current       Location     `json:"current"`
	HexID         string       `json:"hex_id"`
}

// BookingStatus summarizes one booking's assignment outcome.
type BookingStatus struct {
	ID           int           `json:"booking_id"`
	Class        VehicleClass  `json:"vehicle_type"`
	DistanceKm   float64       `json:"distance_km"`
	PickupTime   string        `json:"pickup_time"`
	PickupMinute float64       `json:"pickup_minute"`
	VehicleID    *int          `json:"vehicle_id,omitempty"` // nil when unassigned
	VehicleClass VehicleClass  `json:"assigned_class,omitempty"`
	Position     RoutePosition `json:"position,omitempty"`
	Locked       bool          `json:"locked"`
	Origin       BookingOrigin `json:"origin"`
}

// FleetTotals aggregates the whole fleet.
type FleetTotals struct {
	VehiclesUsed       int     `json:"vehicles_used"`
	BookingsAssigned   int     `json:"bookings_assigned"`
	BookingsUnassigned int     `json:"bookings_unassigned"`
	ActiveKm           float64 `json:"active_km"`
	DeadKm             float64 `json:"dead_km"`
	Fare               float64 `json:"fare"`
	DriverPay          float64 `json:"driver_pay"`
	Profit             float64 `json:"profit"`
	Efficiency         float64 `json:"efficiency"`
}

// FleetSnapshot is the full read-side view of one planning pass.
type FleetSnapshot struct {
	RunID       string          `json:"run_id"`
	Mode        string          `json:"mode"` // "batch" or "simulator"
	Tick        int             `json:"tick"`
	SimMinute   float64         `json:"sim_minute"`
	GeneratedAt time.Time       `json:"generated_at"`
	Vehicles    []VehicleStatus `json:"vehicles"`
	Bookings    []BookingStatus `json:"bookings"`
	Totals      FleetTotals     `json:"totals"`
}
