package service

import (
	"homebound/internal/model"
)

// ─── Rate Tables ────────────────────────────────────────────

// RateTable holds the per-class economics of the fleet.
//
// Driver pay distinguishes active kilometres (customer on board) from dead
// kilometres (repositioning). Customer price is flat per active kilometre,
// plus a class-dependent markup that folds an allowance for repositioning
// into the fare.
type RateTable struct {
	ActivePayPerKm map[model.VehicleClass]float64 // ₹/km with a customer on board
	DeadPayPerKm   map[model.VehicleClass]float64 // ₹/km repositioning
	PricePerKm     map[model.VehicleClass]float64 // customer ₹/km
	DeadKmMarkup   map[model.VehicleClass]float64 // fare markup fraction
}

// DefaultRateTable returns the standard nine-class rates.
//
// Markup tiers: economy classes carry 40% (short trips, long approaches),
// mid classes 30%, luxury 25% (long trips amortize the approach).
func DefaultRateTable() RateTable {
	return RateTable{
		ActivePayPerKm: map[model.VehicleClass]float64{
			model.Class1: 16, model.Class2: 20, model.Class3: 22,
			model.Class4: 26, model.Class5: 32, model.Class6: 40,
			model.Class7: 50, model.Class8: 60, model.Class9: 70,
		},
		DeadPayPerKm: map[model.VehicleClass]float64{
			model.Class1: 10, model.Class2: 15, model.Class3: 18,
			model.Class4: 22, model.Class5: 28, model.Class6: 32,
			model.Class7: 40, model.Class8: 50, model.Class9: 60,
		},
		PricePerKm: map[model.VehicleClass]float64{
			model.Class1: 20, model.Class2: 24, model.Class3: 28,
			model.Class4: 32, model.Class5: 40, model.Class6: 50,
			model.Class7: 60, model.Class8: 70, model.Class9: 80,
		},
		DeadKmMarkup: map[model.VehicleClass]float64{
			model.Class1: 0.40, model.Class2: 0.40, model.Class3: 0.40,
			model.Class4: 0.40, model.Class5: 0.40, model.Class6: 0.30,
			model.Class7: 0.30, model.Class8: 0.25, model.Class9: 0.25,
		},
	}
}

// fallbackClass prices vehicles whose class is missing from the table.
const fallbackClass = model.Class1

// ActivePay returns the driver's ₹/km with a customer on board.
func (r RateTable) ActivePay(class model.VehicleClass) float64 {
	if v, ok := r.ActivePayPerKm[class]; ok {
		return v
	}
	return r.ActivePayPerKm[fallbackClass]
}

// DeadPay returns the driver's ₹/km while repositioning.
func (r RateTable) DeadPay(class model.VehicleClass) float64 {
	if v, ok := r.DeadPayPerKm[class]; ok {
		return v
	}
	return r.DeadPayPerKm[fallbackClass]
}

// Price returns the customer ₹/km.
func (r RateTable) Price(class model.VehicleClass) float64 {
	if v, ok := r.PricePerKm[class]; ok {
		return v
	}
	return r.PricePerKm[fallbackClass]
}

// Markup returns the dead-km fare markup fraction.
func (r RateTable) Markup(class model.VehicleClass) float64 {
	if v, ok := r.DeadKmMarkup[class]; ok {
		return v
	}
	return r.DeadKmMarkup[fallbackClass]
}

// ─── Fare ───────────────────────────────────────────────────

// BookingFare prices one booking served by a vehicle of the given class:
//
//	fare = (activeKm + activeKm × markup) × pricePerKm
//
// The class is always the serving VEHICLE's class — a class2 booking picked
// up by a class3 car pays class3 rates.
func (r RateTable) BookingFare(class model.VehicleClass, activeKm float64) float64 {
	return (activeKm + activeKm*r.Markup(class)) * r.Price(class)
}
