package service

import (
	"math"
	"testing"

	"homebound/internal/model"
)

func TestDefaultRateTable_SpotValues(t *testing.T) {
	r := DefaultRateTable()

	if got := r.ActivePay(model.Class1); got != 16 {
		t.Errorf("ActivePay(class1) = %v, want 16", got)
	}
	if got := r.DeadPay(model.Class5); got != 28 {
		t.Errorf("DeadPay(class5) = %v, want 28", got)
	}
	if got := r.Price(model.Class9); got != 80 {
		t.Errorf("Price(class9) = %v, want 80", got)
	}
	if got := r.Markup(model.Class7); got != 0.30 {
		t.Errorf("Markup(class7) = %v, want 0.30", got)
	}
}

func TestRateTable_UnknownClassFallsBackToClass1(t *testing.T) {
	r := DefaultRateTable()
	unknown := model.VehicleClass("class42")

	if got := r.ActivePay(unknown); got != r.ActivePay(model.Class1) {
		t.Errorf("ActivePay(unknown) = %v, want class1 rate %v", got, r.ActivePay(model.Class1))
	}
	if got := r.Markup(unknown); got != r.Markup(model.Class1) {
		t.Errorf("Markup(unknown) = %v, want class1 markup %v", got, r.Markup(model.Class1))
	}
}

func TestBookingFare_MarkupTiers(t *testing.T) {
	r := DefaultRateTable()

	// class1, 10 km: (10 + 10×0.40) × 20 = 280
	if got := r.BookingFare(model.Class1, 10); math.Abs(got-280) > 1e-9 {
		t.Errorf("BookingFare(class1, 10) = %v, want 280", got)
	}
	// class6, 10 km: (10 + 10×0.30) × 50 = 650
	if got := r.BookingFare(model.Class6, 10); math.Abs(got-650) > 1e-9 {
		t.Errorf("BookingFare(class6, 10) = %v, want 650", got)
	}
	// class8, 10 km: (10 + 10×0.25) × 70 = 875
	if got := r.BookingFare(model.Class8, 10); math.Abs(got-875) > 1e-9 {
		t.Errorf("BookingFare(class8, 10) = %v, want 875", got)
	}
}
