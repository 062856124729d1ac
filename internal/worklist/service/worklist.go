package service

import (
	"context"
	"sort"
	"time"

	"medibook/internal/bookings/repository"
	"medibook/internal/directory"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/logger"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// Unassigned groups services with no practitioner.
	Unassigned = "unassigned"
)

// BookingSearcher is the read side of the booking repository.
type BookingSearcher interface {
	Search(ctx context.Context, filter repository.SearchFilter) ([]*model.Booking, error)
}

type WorklistService interface {
	Query(ctx context.Context, filter model.WorklistFilter) (*model.WorklistResult, error)
}

type worklistService struct {
	bookings  BookingSearcher
	directory directory.Directory
	now       func() time.Time
	log       *logger.Logger
}

func NewWorklistService(bookings BookingSearcher, dir directory.Directory, now func() time.Time, log *logger.Logger) WorklistService {
	if now == nil {
		now = time.Now
	}
	return &worklistService{
		bookings:  bookings,
		directory: dir,
		now:       now,
		log:       log,
	}
}

// Query returns one page of rows plus a summary computed over every booking
// that matches the filter.
func (s *worklistService) Query(ctx context.Context, filter model.WorklistFilter) (*model.WorklistResult, error) {
	filter = normalize(filter)
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.InvalidInput("unknown booking status: " + string(filter.Status))
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, apperrors.InvalidInput("from must not be after to")
	}

	bookings, err := s.bookings.Search(ctx, repository.SearchFilter{
		Search:   filter.Search,
		Status:   filter.Status,
		Assignee: filter.Assignee,
		From:     filter.From,
		To:       filter.To,
	})
	if err != nil {
		s.log.Error("Failed to search bookings for worklist", "search", filter.Search, "status", filter.Status, "error", err)
		return nil, apperrors.Internal("Failed to load worklist", err)
	}

	result := &model.WorklistResult{
		Rows:       []model.WorklistRow{},
		Summary:    summarize(bookings, s.now().UTC()),
		Groups:     groupByAssignee(bookings),
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: (len(bookings) + filter.PerPage - 1) / filter.PerPage,
	}

	start := (filter.Page - 1) * filter.PerPage
	if start >= len(bookings) {
		return result, nil
	}
	end := min(start+filter.PerPage, len(bookings))

	patients := make(map[string]model.PatientSummary)
	for _, b := range bookings[start:end] {
		p, ok := patients[b.PatientRef]
		if !ok {
			p = s.patientSummary(ctx, b.PatientRef)
			patients[b.PatientRef] = p
		}
		result.Rows = append(result.Rows, row(b, p))
	}
	return result, nil
}

func normalize(f model.WorklistFilter) model.WorklistFilter {
	f.Search = sanitizer.SanitizeSearch(f.Search)
	f.Assignee = sanitizer.SanitizeRef(f.Assignee)
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage <= 0:
		f.PerPage = DefaultPerPage
	case f.PerPage > MaxPerPage:
		f.PerPage = MaxPerPage
	}
	if f.From != nil {
		from := startOfDay(*f.From)
		f.From = &from
	}
	// to names the last included day.
	if f.To != nil {
		to := startOfDay(*f.To).Add(24 * time.Hour)
		f.To = &to
	}
	return f
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// patientSummary never fails the page: a directory outage leaves the name
// blank.
func (s *worklistService) patientSummary(ctx context.Context, ref string) model.PatientSummary {
	summary := model.PatientSummary{Ref: ref}
	patient, err := s.directory.Patient(ctx, ref)
	if err != nil {
		s.log.Warn("Worklist patient lookup failed", "patient_ref", ref, "error", err)
		return summary
	}
	summary.Name = patient.Name
	summary.Phone = sanitizer.MaskPhone(patient.Phone)
	return summary
}

func row(b *model.Booking, patient model.PatientSummary) model.WorklistRow {
	tariff, facility, vendor := b.TariffTotal()
	r := model.WorklistRow{
		BookingID:      b.ID,
		BookingNumber:  b.BookingNumber,
		Patient:        patient,
		FacilityRef:    b.FacilityRef,
		PaymentMode:    b.PaymentMode,
		BookingStatus:  b.BookingStatus,
		ApprovalStatus: b.ApprovalStatus,
		Cursor:         b.Cursor,
		Services:       make([]model.WorklistServiceRow, 0, len(b.Services)),
		TariffTotal:    tariff,
		FacilityTotal:  facility,
		VendorTotal:    vendor,
		CreatedAt:      b.CreatedAt,
	}
	for _, svc := range b.Services {
		r.Services = append(r.Services, model.WorklistServiceRow{
			ServiceID:       svc.ID,
			ServiceName:     svc.ServiceName,
			PractitionerRef: svc.PractitionerRef,
			ScheduledDate:   svc.ScheduledDate,
			Status:          svc.Status,
		})
	}
	return r
}

func summarize(bookings []*model.Booking, now time.Time) model.WorklistSummary {
	summary := model.WorklistSummary{
		TotalBookings: len(bookings),
		StatusCounts:  make(map[model.BookingStatus]int, len(model.BookingStatuses)),
	}
	for _, st := range model.BookingStatuses {
		summary.StatusCounts[st] = 0
	}

	today := startOfDay(now)
	patients := make(map[string]struct{})
	for _, b := range bookings {
		summary.StatusCounts[b.BookingStatus]++
		patients[b.PatientRef] = struct{}{}
		tariff, _, _ := b.TariffTotal()
		summary.TariffSum += tariff
		if dueOn(b, today) {
			summary.DueToday++
		}
	}
	summary.UniquePatients = len(patients)
	return summary
}

func dueOn(b *model.Booking, day time.Time) bool {
	for _, svc := range b.Services {
		if svc.Status != model.ServiceCancelled && startOfDay(svc.ScheduledDate).Equal(day) {
			return true
		}
	}
	return false
}

func groupByAssignee(bookings []*model.Booking) []model.AssigneeGroup {
	groups := make(map[string]*model.AssigneeGroup)
	for _, b := range bookings {
		seen := make(map[string]bool)
		for _, svc := range b.Services {
			assignee := svc.PractitionerRef
			if assignee == "" {
				assignee = Unassigned
			}
			g, ok := groups[assignee]
			if !ok {
				g = &model.AssigneeGroup{Assignee: assignee}
				groups[assignee] = g
			}
			if !seen[assignee] {
				seen[assignee] = true
				g.Bookings++
			}
			g.Services++
			if svc.Status.Open() {
				g.Pending++
			}
		}
	}

	out := make([]model.AssigneeGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Assignee < out[j].Assignee
	})
	return out
}
