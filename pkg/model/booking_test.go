package model

import (
	"testing"
	"time"
)

func sampleBooking() *Booking {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &Booking{
		ID:            "b1",
		BookingStatus: BookingActive,
		Services: []*BookingService{
			{ID: "s1", Status: ServiceCompleted, Tariff: 100, FacilityShare: 60, VendorShare: 40, CompletedAt: &now},
			{ID: "s2", Status: ServiceCancelled, Tariff: 50, FacilityShare: 25, VendorShare: 25},
			{ID: "s3", Status: ServiceNotStarted, Tariff: 30, FacilityShare: 10, VendorShare: 20},
		},
	}
}

func TestBooking_NextOpen(t *testing.T) {
	b := sampleBooking()
	if got := b.NextOpen(0); got != 2 {
		t.Errorf("NextOpen(0) = %d, want 2", got)
	}
	if got := b.NextOpen(3); got != NoCursor {
		t.Errorf("NextOpen(3) = %d, want NoCursor", got)
	}
	b.Services[2].Status = ServiceCompleted
	if got := b.NextOpen(0); got != NoCursor {
		t.Errorf("NextOpen on finished booking = %d, want NoCursor", got)
	}
}

func TestBooking_Service(t *testing.T) {
	b := sampleBooking()
	s, idx := b.Service("s3")
	if s == nil || idx != 2 {
		t.Fatalf("Service(s3) = %v, %d", s, idx)
	}
	if s, idx := b.Service("missing"); s != nil || idx != NoCursor {
		t.Errorf("Service(missing) = %v, %d", s, idx)
	}
}

func TestBooking_TariffTotalSkipsCancelled(t *testing.T) {
	tariff, facility, vendor := sampleBooking().TariffTotal()
	if tariff != 130 || facility != 70 || vendor != 60 {
		t.Errorf("TariffTotal() = %v, %v, %v", tariff, facility, vendor)
	}
}

func TestBooking_CloneIsDeep(t *testing.T) {
	b := sampleBooking()
	c := b.Clone()
	c.Services[0].Status = ServiceCancelled
	*c.Services[0].CompletedAt = time.Time{}
	c.BookingStatus = BookingCancelled

	if b.Services[0].Status != ServiceCompleted {
		t.Error("clone shares service structs with original")
	}
	if b.Services[0].CompletedAt.IsZero() {
		t.Error("clone shares time pointers with original")
	}
	if b.BookingStatus != BookingActive {
		t.Error("clone shares booking status with original")
	}
}

func TestSubjects(t *testing.T) {
	if got := ConsentSubject("b1"); got != "booking:b1" {
		t.Errorf("ConsentSubject = %s", got)
	}
	if got := ServiceSubject("b1", "s1"); got != "booking:b1:service:s1" {
		t.Errorf("ServiceSubject = %s", got)
	}
}
