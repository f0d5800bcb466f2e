package report

import (
	"bytes"
	"strings"
	"testing"

	"homebound/internal/model"
	"homebound/internal/service"
)

var home = model.Location{Lat: 12.9716, Lon: 77.5946}

func planFixture() (*service.PlanResult, model.FleetSnapshot) {
	v := &model.Vehicle{ID: 1, Class: model.Class1, Home: home}
	assigned := &model.Booking{
		ID: 10, Class: model.Class1,
		Pickup: home, Drop: model.Location{Lat: 12.9850, Lon: 77.6000},
		PickupTime: "2025-01-15 07:00:00", PickupMinute: 420,
		DistanceKm: 2.0, TravelTime: 10, Origin: model.OriginScheduled,
	}
	stranded := &model.Booking{
		ID: 11, Class: model.Class1,
		Pickup: model.Location{Lat: 13.3000, Lon: 77.9000}, Drop: home,
		PickupTime: "2025-01-15 06:00:00", PickupMinute: 360,
		DistanceKm: 3.0, TravelTime: 15, Origin: model.OriginScheduled,
	}

	a := service.NewAssigner([]*model.Vehicle{v}, []*model.Booking{assigned, stranded}, service.DefaultRateTable())
	res := a.Plan()
	snap := service.BuildSnapshot(res, "test-run", "batch", 0, 360, nil)
	return res, snap
}

func TestWriteVehicleSummary(t *testing.T) {
	_, snap := planFixture()

	var buf bytes.Buffer
	WriteVehicleSummary(&buf, snap)
	out := buf.String()

	for _, want := range []string{"Vehicle summary", "class1", "ROUTED", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("vehicle summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteBookingAssignments(t *testing.T) {
	_, snap := planFixture()

	var buf bytes.Buffer
	WriteBookingAssignments(&buf, snap)
	out := buf.String()

	if !strings.Contains(out, "07:00") {
		t.Errorf("assignments missing the pickup time:\n%s", out)
	}
	// The stranded booking renders a dash and a warning line.
	if !strings.Contains(out, "—") {
		t.Errorf("assignments missing the unassigned dash:\n%s", out)
	}
	if !strings.Contains(out, "1 booking(s) unassigned") {
		t.Errorf("assignments missing the unassigned warning:\n%s", out)
	}
}

func TestWriteRouteNarrative(t *testing.T) {
	res, _ := planFixture()

	var buf bytes.Buffer
	WriteRouteNarrative(&buf, res)
	out := buf.String()

	if !strings.Contains(out, "vehicle 1 (class1):") {
		t.Errorf("narrative missing the vehicle header:\n%s", out)
	}
	if !strings.Contains(out, "booking 10") {
		t.Errorf("narrative missing the booking leg:\n%s", out)
	}
	if !strings.Contains(out, "→ home") {
		t.Errorf("narrative missing the return leg:\n%s", out)
	}
}

func TestWriteStepSummary(t *testing.T) {
	_, snap := planFixture()
	snap.Tick = 3
	snap.SimMinute = 450

	var buf bytes.Buffer
	WriteStepSummary(&buf, snap)
	out := buf.String()

	for _, want := range []string{"tick 3", "07:30", "assigned 1", "unassigned 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("step summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteFull(t *testing.T) {
	res, snap := planFixture()

	var buf bytes.Buffer
	WriteFull(&buf, res, snap)
	out := buf.String()

	if !strings.Contains(out, "run test-run") {
		t.Errorf("report header missing the run id:\n%s", out)
	}
	for _, section := range []string{"Vehicle summary", "Booking assignments", "Route narratives"} {
		if !strings.Contains(out, section) {
			t.Errorf("full report missing section %q", section)
		}
	}
}
