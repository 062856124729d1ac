package model

import (
	"time"
)

type Booking struct {
	ID                string            `json:"id" bson:"_id"`
	BookingNumber     string            `json:"booking_number" bson:"booking_number"`
	PatientRef        string            `json:"patient_ref" bson:"patient_ref"`
	FacilityRef       string            `json:"facility_ref" bson:"facility_ref"`
	PaymentMode       PaymentMode       `json:"payment_mode" bson:"payment_mode"`
	BookingStatus     BookingStatus     `json:"booking_status" bson:"booking_status"`
	ApprovalStatus    ApprovalStatus    `json:"approval_status" bson:"approval_status"`
	ApprovalNote      string            `json:"approval_note,omitempty" bson:"approval_note,omitempty"`
	Services          []*BookingService `json:"services" bson:"services"`
	Cursor            int               `json:"cursor" bson:"cursor"`
	CancelReason      string            `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedByRef      string            `json:"created_by_ref" bson:"created_by_ref"`
	CreatedAt         time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" bson:"updated_at"`
	ConsentVerifiedAt *time.Time        `json:"consent_verified_at,omitempty" bson:"consent_verified_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	Version           int64             `json:"version" bson:"version"`
}

type BookingService struct {
	ID              string        `json:"id" bson:"id"`
	BookingID       string        `json:"booking_id" bson:"booking_id"`
	ServiceRef      string        `json:"service_ref" bson:"service_ref"`
	ServiceName     string        `json:"service_name" bson:"service_name"`
	ServiceCode     string        `json:"service_code" bson:"service_code"`
	EquipmentRef    string        `json:"equipment_ref,omitempty" bson:"equipment_ref,omitempty"`
	PractitionerRef string        `json:"practitioner_ref,omitempty" bson:"practitioner_ref,omitempty"`
	ScheduledDate   time.Time     `json:"scheduled_date" bson:"scheduled_date"`
	Status          ServiceStatus `json:"status" bson:"status"`
	Tariff          float64       `json:"tariff" bson:"tariff"`
	FacilityShare   float64       `json:"facility_share" bson:"facility_share"`
	VendorShare     float64       `json:"vendor_share" bson:"vendor_share"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// NoCursor marks a booking with no service awaiting completion.
const NoCursor = -1

// Service returns the service with the given id and its position.
func (b *Booking) Service(serviceID string) (*BookingService, int) {
	for i, s := range b.Services {
		if s.ID == serviceID {
			return s, i
		}
	}
	return nil, NoCursor
}

// NextOpen returns the index of the first service at or after from that
// still awaits completion, or NoCursor.
func (b *Booking) NextOpen(from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(b.Services); i++ {
		if b.Services[i].Status.Open() {
			return i
		}
	}
	return NoCursor
}

// CursorService returns the service at the cursor, or nil.
func (b *Booking) CursorService() *BookingService {
	if b.Cursor < 0 || b.Cursor >= len(b.Services) {
		return nil
	}
	return b.Services[b.Cursor]
}

// TariffTotal sums tariffs of services that were not cancelled.
func (b *Booking) TariffTotal() (tariff, facility, vendor float64) {
	for _, s := range b.Services {
		if s.Status == ServiceCancelled {
			continue
		}
		tariff += s.Tariff
		facility += s.FacilityShare
		vendor += s.VendorShare
	}
	return tariff, facility, vendor
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.ConsentVerifiedAt = cloneTime(b.ConsentVerifiedAt)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.Services = make([]*BookingService, len(b.Services))
	for i, s := range b.Services {
		sc := *s
		sc.CompletedAt = cloneTime(s.CompletedAt)
		c.Services[i] = &sc
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type CreateBookingRequest struct {
	PatientRef   string                 `json:"patient_ref" validate:"required,min=1,max=64"`
	FacilityRef  string                 `json:"facility_ref" validate:"required,min=1,max=64"`
	PaymentMode  PaymentMode            `json:"payment_mode" validate:"required,payment_mode"`
	CreatedByRef string                 `json:"created_by_ref" validate:"required,min=1,max=64"`
	Services     []CreateServiceRequest `json:"services" validate:"required,min=1,max=20,dive"`
}

type CreateServiceRequest struct {
	ServiceRef      string    `json:"service_ref" validate:"required,min=1,max=64"`
	EquipmentRef    string    `json:"equipment_ref,omitempty" validate:"omitempty,max=64"`
	PractitionerRef string    `json:"practitioner_ref,omitempty" validate:"omitempty,max=64"`
	ScheduledDate   time.Time `json:"scheduled_date" validate:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ApprovalRequest struct {
	Decision ApprovalStatus `json:"decision" validate:"required,oneof=approved rejected"`
	Note     string         `json:"note" validate:"omitempty,max=500"`
}

type VerifyRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
	Code      string `json:"code" validate:"required,numeric,min=4,max=10"`
}
