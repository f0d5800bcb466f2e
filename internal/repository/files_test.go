package repository

import (
	"os"
	"path/filepath"
	"testing"

	"homebound/internal/model"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadVehicles(t *testing.T) {
	path := writeTemp(t, "vehicles.json", `[
		{"vehicle_id": 1, "vehicle_type": "class1", "home_lat": 12.9716, "home_lng": 77.5946},
		{"vehicle_id": 2, "vehicle_type": "class3", "home_lat": 13.0000, "home_lng": 77.6100}
	]`)

	vehicles, err := LoadVehicles(path)
	if err != nil {
		t.Fatalf("LoadVehicles: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(vehicles))
	}
	if vehicles[0].ID != 1 || vehicles[0].Class != model.Class1 {
		t.Errorf("vehicle 0 = %+v", vehicles[0])
	}
	if vehicles[1].Home.Lon != 77.6100 {
		t.Errorf("vehicle 1 home lon = %v, want 77.61", vehicles[1].Home.Lon)
	}
}

func TestLoadBookings_LonAliasesAndDefaults(t *testing.T) {
	path := writeTemp(t, "bookings.json", `[
		{"booking_id": 10, "vehicle_type": "class1",
		 "pickup_lat": 12.9716, "pickup_lon": 77.5946,
		 "drop_lat": 12.9850, "drop_lon": 77.6000,
		 "pickup_time": "2025-01-15 07:00:00", "distance_km": 2.0, "travel_time": 10},
		{"booking_id": 11, "vehicle_type": "class2",
		 "pickup_lat": 13.0000, "pickup_lng": 77.6100,
		 "drop_lat": 12.9500, "drop_lng": 77.5800,
		 "pickup_time": "2025-01-15 08:30:00", "distance_km": 5.0}
	]`)

	bookings, err := LoadBookings(path, model.OriginScheduled)
	if err != nil {
		t.Fatalf("LoadBookings: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("got %d bookings, want 2", len(bookings))
	}

	// Canonical *_lon keys.
	if bookings[0].Pickup.Lon != 77.5946 || bookings[0].Drop.Lon != 77.6000 {
		t.Errorf("booking 10 coordinates = %+v", bookings[0])
	}
	// Legacy *_lng keys are accepted too.
	if bookings[1].Pickup.Lon != 77.6100 || bookings[1].Drop.Lon != 77.5800 {
		t.Errorf("booking 11 coordinates = %+v", bookings[1])
	}

	// 07:00 → 420 minutes from midnight.
	if bookings[0].PickupMinute != 420 {
		t.Errorf("booking 10 pickup minute = %v, want 420", bookings[0].PickupMinute)
	}
	if bookings[1].PickupMinute != 510 {
		t.Errorf("booking 11 pickup minute = %v, want 510", bookings[1].PickupMinute)
	}

	// Missing travel_time takes the 30-minute default.
	if bookings[0].TravelTime != 10 {
		t.Errorf("booking 10 travel time = %v, want 10", bookings[0].TravelTime)
	}
	if bookings[1].TravelTime != 30 {
		t.Errorf("booking 11 travel time = %v, want default 30", bookings[1].TravelTime)
	}

	for _, b := range bookings {
		if b.Origin != model.OriginScheduled {
			t.Errorf("booking %d origin = %s, want scheduled", b.ID, b.Origin)
		}
	}
}

func TestLoadBookings_InstantOriginTag(t *testing.T) {
	path := writeTemp(t, "instant_bookings.json", `[
		{"booking_id": 20, "vehicle_type": "class1",
		 "pickup_lat": 12.9716, "pickup_lon": 77.5946,
		 "drop_lat": 12.9850, "drop_lon": 77.6000,
		 "pickup_time": "2025-01-15 10:00:00", "distance_km": 2.0, "travel_time": 10}
	]`)

	bookings, err := LoadBookings(path, model.OriginInstant)
	if err != nil {
		t.Fatalf("LoadBookings: %v", err)
	}
	if bookings[0].Origin != model.OriginInstant {
		t.Errorf("origin = %s, want instant", bookings[0].Origin)
	}
}

func TestLoadBookings_MissingFile(t *testing.T) {
	if _, err := LoadBookings(filepath.Join(t.TempDir(), "absent.json"), model.OriginScheduled); err == nil {
		t.Fatalf("LoadBookings(missing file) = nil error, want error")
	}
}

func TestLoadVehicles_MalformedJSON(t *testing.T) {
	path := writeTemp(t, "vehicles.json", `{"not": "an array"`)
	if _, err := LoadVehicles(path); err == nil {
		t.Fatalf("LoadVehicles(malformed) = nil error, want error")
	}
}
