package service

import (
	"time"

	"github.com/samber/lo"

	"homebound/internal/model"
)

// BuildSnapshot denormalizes a finished planning pass into the read-side
// fleet view served by the monitor API, published to the Redis cache, and
// archived to Postgres. The locked set may be nil (batch mode).
func BuildSnapshot(res *PlanResult, runID, mode string, tick int, simMinute float64, locked map[int]bool) model.FleetSnapshot {
	vehicles := make([]model.VehicleStatus, 0, len(res.Vehicles))
	for _, v := range res.Vehicles {
		fare := 0.0
		for _, bid := range v.AssignedBookings {
			if b := bookingByID(res.Bookings, bid); b != nil {
				fare += res.Rates.BookingFare(v.Class, b.DistanceKm)
			}
		}
		vehicles = append(vehicles, model.VehicleStatus{
			ID:            v.ID,
			Class:         v.Class,
			BookingIDs:    append([]int(nil), v.AssignedBookings...),
			Bookings:      len(v.AssignedBookings),
			ActiveKm:      v.ActiveKm,
			DeadKm:        v.DeadKm,
			Fare:          fare,
			DriverPay:     v.DriverPay,
			Profit:        fare - v.DriverPay,
			Efficiency:    routeEfficiency(v.ActiveKm, v.DeadKm),
			IsRouted:      v.IsRouted,
			AvailableTime: v.AvailableTime,
			Current:       v.Current,
			HexID:         v.HexID,
		})
	}

	classByID := lo.SliceToMap(res.Vehicles, func(v *model.Vehicle) (int, model.VehicleClass) {
		return v.ID, v.Class
	})

	bookings := make([]model.BookingStatus, 0, len(res.Bookings))
	for _, b := range res.Bookings {
		status := model.BookingStatus{
			ID:           b.ID,
			Class:        b.Class,
			DistanceKm:   b.DistanceKm,
			PickupTime:   b.PickupTime,
			PickupMinute: b.PickupMinute,
			Locked:       locked[b.ID],
			Origin:       b.Origin,
		}
		if vid, ok := res.AssignedTo[b.ID]; ok {
			vid := vid
			status.VehicleID = &vid
			status.VehicleClass = classByID[vid]
			status.Position = res.Positions[b.ID]
		}
		bookings = append(bookings, status)
	}

	used := lo.CountBy(vehicles, func(v model.VehicleStatus) bool { return v.Bookings > 0 })
	activeKm := lo.SumBy(vehicles, func(v model.VehicleStatus) float64 { return v.ActiveKm })
	deadKm := lo.SumBy(vehicles, func(v model.VehicleStatus) float64 { return v.DeadKm })
	fare := lo.SumBy(vehicles, func(v model.VehicleStatus) float64 { return v.Fare })
	pay := lo.SumBy(vehicles, func(v model.VehicleStatus) float64 { return v.DriverPay })

	return model.FleetSnapshot{
		RunID:       runID,
		Mode:        mode,
		Tick:        tick,
		SimMinute:   simMinute,
		GeneratedAt: time.Now(),
		Vehicles:    vehicles,
		Bookings:    bookings,
		Totals: model.FleetTotals{
			VehiclesUsed:       used,
			BookingsAssigned:   len(res.Bookings) - len(res.Unassigned),
			BookingsUnassigned: len(res.Unassigned),
			ActiveKm:           activeKm,
			DeadKm:             deadKm,
			Fare:               fare,
			DriverPay:          pay,
			Profit:             fare - pay,
			Efficiency:         routeEfficiency(activeKm, deadKm),
		},
	}
}

func bookingByID(bookings []*model.Booking, id int) *model.Booking {
	for _, b := range bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}
