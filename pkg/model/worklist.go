package model

import "time"

type WorklistFilter struct {
	Search   string
	Status   BookingStatus
	Assignee string
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

type WorklistResult struct {
	Rows       []WorklistRow   `json:"rows"`
	Summary    WorklistSummary `json:"summary"`
	Groups     []AssigneeGroup `json:"groups"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
}

type WorklistRow struct {
	BookingID      string               `json:"booking_id"`
	BookingNumber  string               `json:"booking_number"`
	Patient        PatientSummary       `json:"patient"`
	FacilityRef    string               `json:"facility_ref"`
	PaymentMode    PaymentMode          `json:"payment_mode"`
	BookingStatus  BookingStatus        `json:"booking_status"`
	ApprovalStatus ApprovalStatus       `json:"approval_status"`
	Cursor         int                  `json:"cursor"`
	Services       []WorklistServiceRow `json:"services"`
	TariffTotal    float64              `json:"tariff_total"`
	FacilityTotal  float64              `json:"facility_share_total"`
	VendorTotal    float64              `json:"vendor_share_total"`
	CreatedAt      time.Time            `json:"created_at"`
}

type PatientSummary struct {
	Ref   string `json:"ref"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type WorklistServiceRow struct {
	ServiceID       string        `json:"service_id"`
	ServiceName     string        `json:"service_name"`
	PractitionerRef string        `json:"practitioner_ref,omitempty"`
	ScheduledDate   time.Time     `json:"scheduled_date"`
	Status          ServiceStatus `json:"status"`
}

type WorklistSummary struct {
	TotalBookings  int                   `json:"total_bookings"`
	UniquePatients int                   `json:"unique_patients"`
	DueToday       int                   `json:"due_today"`
	TariffSum      float64               `json:"tariff_sum"`
	StatusCounts   map[BookingStatus]int `json:"status_counts"`
}

type AssigneeGroup struct {
	Assignee string `json:"assignee"`
	Bookings int    `json:"bookings"`
	Services int    `json:"services"`
	Pending  int    `json:"pending_services"`
}
