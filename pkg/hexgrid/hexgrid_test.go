package hexgrid

import (
	"math"
	"testing"
)

func TestCellID_StableAndNonEmpty(t *testing.T) {
	first := CellID(12.9716, 77.5946)
	if first == "" {
		t.Fatalf("CellID returned empty id for a valid coordinate")
	}
	second := CellID(12.9716, 77.5946)
	if first != second {
		t.Errorf("CellID not stable: %q vs %q", first, second)
	}
}

func TestCellID_SeparatesDistantPoints(t *testing.T) {
	city := CellID(12.9716, 77.5946)
	airport := CellID(13.1986, 77.7066)
	if city == airport {
		t.Errorf("CellID gave the same cell to points ~28 km apart: %q", city)
	}
}

func TestRings_GroupsByDistance(t *testing.T) {
	origin := CellID(12.9716, 77.5946)

	rings, err := Rings(origin, 2)
	if err != nil {
		t.Fatalf("Rings: %v", err)
	}
	if len(rings) != 3 {
		t.Fatalf("Rings(k=2): got %d groups, want 3", len(rings))
	}
	if _, ok := rings[0][origin]; !ok || len(rings[0]) != 1 {
		t.Errorf("ring 0 = %v, want exactly the origin", rings[0])
	}
	// A hexagon has six neighbours.
	if len(rings[1]) != 6 {
		t.Errorf("ring 1 has %d cells, want 6", len(rings[1]))
	}
}

func TestRings_InvalidOrigin(t *testing.T) {
	if _, err := Rings("not-a-cell", 1); err == nil {
		t.Errorf("Rings(invalid origin) = nil error, want error")
	}
}

func TestStepsKm_Sentinels(t *testing.T) {
	cell := CellID(12.9716, 77.5946)

	if got := StepsKm("", cell); !math.IsInf(got, 1) {
		t.Errorf("StepsKm(empty, cell) = %v, want +Inf", got)
	}
	if got := StepsKm(cell, cell); got != 0 {
		t.Errorf("StepsKm(same cell) = %v, want 0", got)
	}
	if got := StepsKm("junk", "other-junk"); got != FallbackStepKm {
		t.Errorf("StepsKm(unparseable) = %v, want %v", got, FallbackStepKm)
	}
}

func TestStepsKm_NeighbourIsOneEdge(t *testing.T) {
	origin := CellID(12.9716, 77.5946)
	rings, err := Rings(origin, 1)
	if err != nil {
		t.Fatalf("Rings: %v", err)
	}

	for neighbour := range rings[1] {
		got := StepsKm(origin, neighbour)
		if math.Abs(got-MeanEdgeKm) > 1e-9 {
			t.Errorf("StepsKm(origin, neighbour) = %v, want %v", got, MeanEdgeKm)
		}
		break
	}
}
