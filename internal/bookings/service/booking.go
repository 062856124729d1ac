package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	bookingserrors "medibook/internal/bookings/errors"
	"medibook/internal/bookings/repository"
	"medibook/internal/bookings/validator"
	"medibook/internal/directory"
	otpservice "medibook/internal/otp/service"
	"medibook/pkg/config"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/lock"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"

	"github.com/google/uuid"
)

type BookingService interface {
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error)
	CancelService(ctx context.Context, id, serviceID string) (*model.Booking, error)
	SetApproval(ctx context.Context, id string, req *model.ApprovalRequest) (*model.Booking, error)

	RequestConsentOTP(ctx context.Context, id string) (*otpservice.Issued, error)
	ResendConsentOTP(ctx context.Context, id string) (*otpservice.Issued, error)
	VerifyConsent(ctx context.Context, id string, req *model.VerifyRequest) (*model.Booking, error)

	RequestServiceOTP(ctx context.Context, id, serviceID string) (*otpservice.Issued, error)
	ResendServiceOTP(ctx context.Context, id, serviceID string) (*otpservice.Issued, error)
	VerifyService(ctx context.Context, id, serviceID string, req *model.VerifyRequest) (*model.Booking, error)
}

// ChallengeManager is the part of the OTP manager the booking flows use.
type ChallengeManager interface {
	Issue(ctx context.Context, req otpservice.IssueRequest) (*otpservice.Issued, error)
	Resend(ctx context.Context, req otpservice.IssueRequest) (*otpservice.Issued, error)
	Lookup(ctx context.Context, sessionID, subject string, purpose model.OTPPurpose) (*model.OTPChallenge, error)
	Check(ctx context.Context, challenge *model.OTPChallenge, code string) error
	Consume(ctx context.Context, challenge *model.OTPChallenge) error
	SupersedeBooking(ctx context.Context, bookingID string) (int64, error)
	SupersedeSubject(ctx context.Context, subject string, purpose model.OTPPurpose) (int64, error)
	Now() time.Time
}

type bookingService struct {
	repo      repository.BookingRepository
	otp       ChallengeManager
	directory directory.Directory
	locker    lock.Locker
	phones    *sanitizer.PhoneNormalizer
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	otp ChallengeManager,
	dir directory.Directory,
	locker lock.Locker,
	bookingValidator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		otp:       otp,
		directory: dir,
		locker:    locker,
		phones:    sanitizer.NewPhoneNormalizer(cfg.PhoneRegions),
		validator: bookingValidator,
		cfg:       cfg,
	}
}

const maxNumberAttempts = 3

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	s.sanitizeCreate(req)

	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"patient_ref", req.PatientRef,
			"facility_ref", req.FacilityRef,
			"error", err,
		)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if _, err := s.directory.Patient(ctx, req.PatientRef); err != nil {
		return nil, s.directoryError("patient_ref", req.PatientRef, err)
	}
	if _, err := s.directory.Facility(ctx, req.FacilityRef); err != nil {
		return nil, s.directoryError("facility_ref", req.FacilityRef, err)
	}

	now := s.otp.Now()
	booking := &model.Booking{
		ID:             uuid.New().String(),
		PatientRef:     req.PatientRef,
		FacilityRef:    req.FacilityRef,
		PaymentMode:    req.PaymentMode,
		BookingStatus:  model.BookingPendingOTP,
		ApprovalStatus: model.ApprovalPending,
		Cursor:         0,
		CreatedByRef:   req.CreatedByRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, sr := range req.Services {
		catalog, err := s.directory.CatalogService(ctx, sr.ServiceRef)
		if err != nil {
			return nil, s.directoryError("service_ref", sr.ServiceRef, err)
		}
		if sr.PractitionerRef != "" {
			if _, err := s.directory.Practitioner(ctx, sr.PractitionerRef); err != nil {
				return nil, s.directoryError("practitioner_ref", sr.PractitionerRef, err)
			}
		}
		booking.Services = append(booking.Services, &model.BookingService{
			ID:              uuid.New().String(),
			BookingID:       booking.ID,
			ServiceRef:      catalog.Ref,
			ServiceName:     catalog.Name,
			ServiceCode:     catalog.Code,
			EquipmentRef:    sr.EquipmentRef,
			PractitionerRef: sr.PractitionerRef,
			ScheduledDate:   sr.ScheduledDate.UTC(),
			Status:          model.ServiceNotStarted,
			Tariff:          catalog.Tariff,
			FacilityShare:   catalog.FacilityShare,
			VendorShare:     catalog.VendorShare,
		})
	}

	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		booking.BookingNumber, err = newBookingNumber(now)
		if err != nil {
			return nil, apperrors.Internal("Failed to create booking", err)
		}
		err = s.repo.Create(ctx, booking)
		if !errors.Is(err, bookingserrors.ErrDuplicateNumber) {
			break
		}
	}
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"patient_ref", booking.PatientRef,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.ID,
		"booking_number", booking.BookingNumber,
		"services", len(booking.Services),
		"payment_mode", booking.PaymentMode,
	)

	return booking, nil
}

func (s *bookingService) sanitizeCreate(req *model.CreateBookingRequest) {
	req.PatientRef = sanitizer.SanitizeRef(req.PatientRef)
	req.FacilityRef = sanitizer.SanitizeRef(req.FacilityRef)
	req.CreatedByRef = sanitizer.SanitizeRef(req.CreatedByRef)
	for i := range req.Services {
		req.Services[i].ServiceRef = sanitizer.SanitizeRef(req.Services[i].ServiceRef)
		req.Services[i].EquipmentRef = sanitizer.SanitizeRef(req.Services[i].EquipmentRef)
		req.Services[i].PractitionerRef = sanitizer.SanitizeRef(req.Services[i].PractitionerRef)
	}
}

func (s *bookingService) directoryError(field, ref string, err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return apperrors.Validation("Unknown directory reference", map[string]any{
			"field": field,
			"ref":   ref,
		})
	}
	s.cfg.Log.Error("Directory lookup failed",
		"field", field,
		"ref", ref,
		"error", err,
	)
	appErr := apperrors.Unavailable("Directory service")
	appErr.Err = err
	return appErr
}

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newBookingNumber returns BK-YYYYMMDD-XXXXXX.
func newBookingNumber(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("BK-%s-%s", now.Format("20060102"), suffix), nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.load(ctx, id)
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "limit", limit, "offset", offset, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, count, nil
}

// Cancel is allowed before completion. Open services are cancelled with the
// booking and outstanding codes are superseded in the same transaction.
func (s *bookingService) Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
	req.Reason = sanitizer.SanitizeText(req.Reason)
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Cancel request validation failed", map[string]any{"error": err.Error()})
	}

	var booking *model.Booking
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if b.BookingStatus.Terminal() {
			return apperrors.InvalidTransition(
				fmt.Sprintf("Booking is %s and cannot be cancelled", b.BookingStatus),
				bookingserrors.ErrInvalidTransition,
			)
		}

		err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.otp.SupersedeBooking(ctx, b.ID); err != nil {
				return err
			}
			s.cancelBooking(b, req.Reason)
			return s.save(ctx, b)
		})
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.logFailure("Failed to cancel booking", id, err)
	}

	s.cfg.Log.Info("Booking cancelled", "booking_id", id, "reason", req.Reason)
	return booking, nil
}

func (s *bookingService) cancelBooking(b *model.Booking, reason string) {
	now := s.otp.Now()
	for _, svc := range b.Services {
		if svc.Status.Open() {
			svc.Status = model.ServiceCancelled
		}
	}
	b.BookingStatus = model.BookingCancelled
	b.CancelReason = reason
	b.CancelledAt = &now
	b.Cursor = model.NoCursor
	b.UpdatedAt = now
}

// CancelService drops one open service. The cursor moves past it; a booking
// left with no live service is cancelled, and an active booking whose other
// services are all done is completed.
func (s *bookingService) CancelService(ctx context.Context, id, serviceID string) (*model.Booking, error) {
	var booking *model.Booking
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if b.BookingStatus.Terminal() {
			return apperrors.InvalidTransition(
				fmt.Sprintf("Booking is %s; its services cannot be cancelled", b.BookingStatus),
				bookingserrors.ErrInvalidTransition,
			)
		}
		svc, _ := b.Service(serviceID)
		if svc == nil {
			return serviceNotFound(id, serviceID)
		}
		if !svc.Status.Open() {
			return apperrors.InvalidTransition(
				fmt.Sprintf("Service is %s and cannot be cancelled", svc.Status),
				bookingserrors.ErrInvalidTransition,
			)
		}

		err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.otp.SupersedeSubject(ctx, model.ServiceSubject(b.ID, svc.ID), model.PurposeServiceCompletion); err != nil {
				return err
			}
			now := s.otp.Now()
			svc.Status = model.ServiceCancelled
			b.UpdatedAt = now

			if !hasLiveService(b) {
				if _, err := s.otp.SupersedeBooking(ctx, b.ID); err != nil {
					return err
				}
				s.cancelBooking(b, "all services cancelled")
			} else if b.BookingStatus == model.BookingActive {
				b.Cursor = b.NextOpen(0)
				if b.Cursor == model.NoCursor {
					b.BookingStatus = model.BookingCompleted
					b.CompletedAt = &now
				}
			}
			return s.save(ctx, b)
		})
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.logFailure("Failed to cancel booking service", id, err)
	}

	s.cfg.Log.Info("Booking service cancelled",
		"booking_id", id,
		"service_id", serviceID,
		"booking_status", booking.BookingStatus,
		"cursor", booking.Cursor,
	)
	return booking, nil
}

func hasLiveService(b *model.Booking) bool {
	for _, svc := range b.Services {
		if svc.Status != model.ServiceCancelled {
			return true
		}
	}
	return false
}

// SetApproval records the finance decision. It is independent of consent and
// completion and can be made once.
func (s *bookingService) SetApproval(ctx context.Context, id string, req *model.ApprovalRequest) (*model.Booking, error) {
	req.Note = sanitizer.SanitizeText(req.Note)
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Approval request validation failed", map[string]any{"error": err.Error()})
	}

	var booking *model.Booking
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if b.ApprovalStatus != model.ApprovalPending {
			return apperrors.InvalidTransition(
				fmt.Sprintf("Booking approval is already %s", b.ApprovalStatus),
				bookingserrors.ErrInvalidTransition,
			)
		}
		b.ApprovalStatus = req.Decision
		b.ApprovalNote = req.Note
		b.UpdatedAt = s.otp.Now()
		if err := s.save(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.logFailure("Failed to set booking approval", id, err)
	}

	s.cfg.Log.Info("Booking approval recorded", "booking_id", id, "approval_status", booking.ApprovalStatus)
	return booking, nil
}
