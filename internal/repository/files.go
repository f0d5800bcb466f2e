// Package repository handles the engine's I/O boundaries: JSON input
// loading, the optional Postgres plan archive, and the optional Redis
// fleet cache.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"homebound/internal/model"
)

// ─── Errors ─────────────────────────────────────────────────

var (
	// ErrNoSnapshot is returned when no fleet snapshot has been published yet.
	ErrNoSnapshot = errors.New("no fleet snapshot available")
)

// defaultTravelTimeMinutes fills in a booking's on-trip duration when the
// input omits it.
const defaultTravelTimeMinutes = 30.0

// pickupTimeLayout is the timestamp format of the input files.
const pickupTimeLayout = "2006-01-02 15:04:05"

// ─── Input records ──────────────────────────────────────────
//
// The wire shapes mirror the input files exactly; the exported loaders
// normalize them into domain models. The booking files spell longitude two
// ways ("pickup_lon" in newer exports, "pickup_lng" in older ones) — both
// are accepted, the *_lon spelling wins when both appear.

type vehicleRecord struct {
	VehicleID   int     `json:"vehicle_id"`
	VehicleType string  `json:"vehicle_type"`
	HomeLat     float64 `json:"home_lat"`
	HomeLng     float64 `json:"home_lng"`
}

type bookingRecord struct {
	BookingID   int      `json:"booking_id"`
	VehicleType string   `json:"vehicle_type"`
	PickupLat   float64  `json:"pickup_lat"`
	PickupLon   *float64 `json:"pickup_lon"`
	PickupLng   *float64 `json:"pickup_lng"`
	DropLat     float64  `json:"drop_lat"`
	DropLon     *float64 `json:"drop_lon"`
	DropLng     *float64 `json:"drop_lng"`
	PickupTime  string   `json:"pickup_time"`
	DistanceKm  float64  `json:"distance_km"`
	TravelTime  *float64 `json:"travel_time"`
}

func (r *bookingRecord) pickup() model.Location {
	return model.Location{Lat: r.PickupLat, Lon: coalesce(r.PickupLon, r.PickupLng)}
}

func (r *bookingRecord) drop() model.Location {
	return model.Location{Lat: r.DropLat, Lon: coalesce(r.DropLon, r.DropLng)}
}

func coalesce(a, b *float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return 0
}

// ─── Loaders ────────────────────────────────────────────────

// LoadVehicles reads the fleet file into domain vehicles. Planning state
// (position, clock, route) is left zero; the assigner resets it anyway.
func LoadVehicles(path string) ([]*model.Vehicle, error) {
	var records []vehicleRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	vehicles := make([]*model.Vehicle, 0, len(records))
	for _, r := range records {
		vehicles = append(vehicles, &model.Vehicle{
			ID:    r.VehicleID,
			Class: model.VehicleClass(r.VehicleType),
			Home:  model.Location{Lat: r.HomeLat, Lon: r.HomeLng},
		})
	}

	log.Printf("[load] ✓ %d vehicle(s) from %s", len(vehicles), path)
	return vehicles, nil
}

// LoadBookings reads a booking file into domain bookings, tagged with the
// given origin. Normalization happens once, here: longitude aliases are
// resolved, a missing travel_time becomes the 30-minute default, and the
// pickup timestamp is reduced to minutes from midnight (an unparseable
// timestamp degrades to the current wall-clock minute with a warning).
func LoadBookings(path string, origin model.BookingOrigin) ([]*model.Booking, error) {
	var records []bookingRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	bookings := make([]*model.Booking, 0, len(records))
	for _, r := range records {
		travel := defaultTravelTimeMinutes
		if r.TravelTime != nil {
			travel = *r.TravelTime
		}
		bookings = append(bookings, &model.Booking{
			ID:           r.BookingID,
			Class:        model.VehicleClass(r.VehicleType),
			Pickup:       r.pickup(),
			Drop:         r.drop(),
			PickupTime:   r.PickupTime,
			PickupMinute: parsePickupMinute(r.BookingID, r.PickupTime),
			DistanceKm:   r.DistanceKm,
			TravelTime:   travel,
			Origin:       origin,
		})
	}

	log.Printf("[load] ✓ %d %s booking(s) from %s", len(bookings), origin, path)
	return bookings, nil
}

// parsePickupMinute reduces a "YYYY-MM-DD HH:MM:SS" timestamp to minutes
// from midnight. Scheduling only ever compares times within one day, so the
// date part is dropped.
func parsePickupMinute(bookingID int, s string) float64 {
	t, err := time.Parse(pickupTimeLayout, s)
	if err != nil {
		now := time.Now()
		log.Printf("[load] WARNING: booking %d: unparseable pickup_time %q — using current time: %v",
			bookingID, s, err)
		return float64(now.Hour()*60 + now.Minute())
	}
	return float64(t.Hour()*60 + t.Minute())
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
