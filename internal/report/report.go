// Package report renders human-readable tables from a finished planning
// pass. Everything here is a pure function of the plan and its snapshot —
// the engine runs headless without it.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/lo"

	"homebound/internal/model"
	"homebound/internal/service"
	"homebound/pkg/geo"
)

// WriteFull renders the complete end-of-run report: header, vehicle
// summary, booking assignments, and the per-vehicle route narrative.
func WriteFull(w io.Writer, res *service.PlanResult, snap model.FleetSnapshot) {
	fmt.Fprintf(w, "\n═══ Dispatch report — run %s (%s) ═══\n", snap.RunID, snap.Mode)
	WriteVehicleSummary(w, snap)
	WriteBookingAssignments(w, snap)
	WriteRouteNarrative(w, res)
}

// WriteVehicleSummary renders one row per vehicle that received work, plus
// a fleet totals row.
func WriteVehicleSummary(w io.Writer, snap model.FleetSnapshot) {
	fmt.Fprintln(w, "\n── Vehicle summary ──")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VEHICLE\tCLASS\tBOOKINGS\tACTIVE KM\tDEAD KM\tFARE ₹\tPAY ₹\tPROFIT ₹\tEFFICIENCY\tSTATUS")

	used := lo.Filter(snap.Vehicles, func(v model.VehicleStatus, _ int) bool {
		return v.Bookings > 0
	})
	for _, v := range used {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f%%\t%s\n",
			v.ID, v.Class, v.Bookings, v.ActiveKm, v.DeadKm,
			v.Fare, v.DriverPay, v.Profit, v.Efficiency*100, vehicleStatus(v))
	}

	t := snap.Totals
	fmt.Fprintf(tw, "TOTAL\t\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f%%\t%d/%d vehicles\n",
		t.BookingsAssigned, t.ActiveKm, t.DeadKm, t.Fare, t.DriverPay, t.Profit,
		t.Efficiency*100, t.VehiclesUsed, len(snap.Vehicles))
	tw.Flush()
}

func vehicleStatus(v model.VehicleStatus) string {
	if v.IsRouted {
		return "ROUTED"
	}
	return "OPEN"
}

// WriteBookingAssignments renders one row per booking with its outcome.
// Unassigned bookings show a dash in the vehicle column.
func WriteBookingAssignments(w io.Writer, snap model.FleetSnapshot) {
	fmt.Fprintln(w, "\n── Booking assignments ──")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BOOKING\tCLASS\tKM\tPICKUP\tVEHICLE\tPOSITION\tORIGIN\tLOCKED")

	for _, b := range snap.Bookings {
		vehicle, position := "—", "—"
		if b.VehicleID != nil {
			vehicle = fmt.Sprintf("%d (%s)", *b.VehicleID, b.VehicleClass)
			position = string(b.Position)
		}
		locked := ""
		if b.Locked {
			locked = "🔒"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Class, b.DistanceKm, service.ClockTime(b.PickupMinute),
			vehicle, position, b.Origin, locked)
	}
	tw.Flush()

	if unassigned := lo.CountBy(snap.Bookings, func(b model.BookingStatus) bool {
		return b.VehicleID == nil
	}); unassigned > 0 {
		fmt.Fprintf(w, "WARNING: %d booking(s) unassigned\n", unassigned)
	}
}

// WriteRouteNarrative renders each routed vehicle's day leg by leg:
// home → pickups and drops in order → home, with per-leg kilometres.
// Approach and return legs are dead; on-trip legs carry the booking id.
func WriteRouteNarrative(w io.Writer, res *service.PlanResult) {
	fmt.Fprintln(w, "\n── Route narratives ──")

	for _, v := range res.Vehicles {
		if len(v.AssignedBookings) == 0 {
			continue
		}
		fmt.Fprintf(w, "vehicle %d (%s):\n", v.ID, v.Class)

		prev := v.Home
		for i, bid := range v.AssignedBookings {
			pickup, drop := v.Route[2*i], v.Route[2*i+1]
			if approach := geo.RoadKm(prev, pickup); approach > 0 {
				fmt.Fprintf(w, "  dead   %.2f km → pickup of booking %d\n", approach, bid)
			}
			fmt.Fprintf(w, "  active %.2f km   booking %d\n", tripKm(res, bid, pickup, drop), bid)
			prev = drop
		}
		fmt.Fprintf(w, "  dead   %.2f km → home\n", geo.RoadKm(prev, v.Home))
	}
}

// tripKm prefers the booking's advertised distance, like the planner does.
func tripKm(res *service.PlanResult, bookingID int, pickup, drop model.Location) float64 {
	for _, b := range res.Bookings {
		if b.ID == bookingID {
			return b.DistanceKm
		}
	}
	return geo.RoadKm(pickup, drop)
}

// WriteStepSummary renders the one-line-per-tick simulator digest.
func WriteStepSummary(w io.Writer, snap model.FleetSnapshot) {
	active := len(snap.Bookings)
	locked := lo.CountBy(snap.Bookings, func(b model.BookingStatus) bool { return b.Locked })
	t := snap.Totals

	fmt.Fprintf(w, "[report] tick %d %s — active %d, locked %d, assigned %d, unassigned %d | fare ₹%.2f, pay ₹%.2f, profit ₹%.2f, efficiency %.1f%%\n",
		snap.Tick, service.ClockTime(snap.SimMinute), active, locked,
		t.BookingsAssigned, t.BookingsUnassigned, t.Fare, t.DriverPay, t.Profit, t.Efficiency*100)
}
