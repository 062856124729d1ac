package service

import (
	"context"
	"fmt"

	bookingserrors "medibook/internal/bookings/errors"
	otpservice "medibook/internal/otp/service"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
)

// cursorTarget returns the service that may be worked on now. Services are
// completed strictly in booking order.
func cursorTarget(b *model.Booking, serviceID string) (*model.BookingService, int, error) {
	if b.BookingStatus != model.BookingActive {
		return nil, 0, invalidTransition(fmt.Sprintf("Services can only be completed on an active booking, booking is %s", b.BookingStatus))
	}
	svc, idx := b.Service(serviceID)
	if svc == nil {
		return nil, 0, serviceNotFound(b.ID, serviceID)
	}
	if !svc.Status.Open() {
		return nil, 0, invalidTransition(fmt.Sprintf("Service is already %s", svc.Status))
	}
	if idx != b.Cursor {
		next := b.CursorService()
		appErr := apperrors.OutOfSequence("Services must be completed in order", bookingserrors.ErrOutOfSequence)
		if next != nil {
			appErr.WithDetails(map[string]any{"next_service_id": next.ID})
		}
		return nil, 0, appErr
	}
	return svc, idx, nil
}

func (s *bookingService) RequestServiceOTP(ctx context.Context, id, serviceID string) (*otpservice.Issued, error) {
	return s.issueService(ctx, id, serviceID, false)
}

func (s *bookingService) ResendServiceOTP(ctx context.Context, id, serviceID string) (*otpservice.Issued, error) {
	return s.issueService(ctx, id, serviceID, true)
}

func (s *bookingService) issueService(ctx context.Context, id, serviceID string, resend bool) (*otpservice.Issued, error) {
	var issued *otpservice.Issued
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		svc, _, err := cursorTarget(b, serviceID)
		if err != nil {
			return err
		}
		phone, err := s.patientPhone(ctx, b)
		if err != nil {
			return err
		}

		// in_progress is stored before any code is sent.
		if svc.Status == model.ServiceNotStarted {
			svc.Status = model.ServiceInProgress
			b.UpdatedAt = s.otp.Now()
			if err := s.save(ctx, b); err != nil {
				return err
			}
		}

		req := otpservice.IssueRequest{
			BookingID: b.ID,
			ServiceID: svc.ID,
			Purpose:   model.PurposeServiceCompletion,
			Phone:     phone,
			Reference: b.BookingNumber,
		}
		if resend {
			issued, err = s.otp.Resend(ctx, req)
		} else {
			issued, err = s.otp.Issue(ctx, req)
		}
		return err
	})
	if err != nil {
		return nil, s.logFailure("Failed to issue service completion code", id, err)
	}
	return issued, nil
}

// VerifyService completes the service at the cursor. On success the cursor
// moves to the next open service, and the booking completes when none is left.
func (s *bookingService) VerifyService(ctx context.Context, id, serviceID string, req *model.VerifyRequest) (*model.Booking, error) {
	if err := s.validateVerify(req); err != nil {
		return nil, err
	}

	var booking *model.Booking
	var completed bool
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}

		var svc *model.BookingService
		var idx int
		subject := model.ServiceSubject(b.ID, serviceID)
		challenge, err := s.resolveChallenge(ctx, req.SessionID, subject, model.PurposeServiceCompletion, func() error {
			var gateErr error
			svc, idx, gateErr = cursorTarget(b, serviceID)
			return gateErr
		})
		if err != nil {
			return err
		}

		if err := s.otp.Check(ctx, challenge, req.Code); err != nil {
			return err
		}

		err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			if err := s.otp.Consume(ctx, challenge); err != nil {
				return err
			}
			now := s.otp.Now()
			svc.Status = model.ServiceCompleted
			svc.CompletedAt = &now
			b.Cursor = b.NextOpen(idx + 1)
			if b.Cursor == model.NoCursor {
				b.BookingStatus = model.BookingCompleted
				b.CompletedAt = &now
			}
			b.UpdatedAt = now
			return s.save(ctx, b)
		})
		if err != nil {
			return err
		}
		booking = b
		completed = b.BookingStatus == model.BookingCompleted
		return nil
	})
	if err != nil {
		return nil, s.logFailure("Service completion verification failed", id, err)
	}

	s.cfg.Log.Info("Service completion verified",
		"booking_id", booking.ID,
		"service_id", serviceID,
		"cursor", booking.Cursor,
		"booking_completed", completed,
	)
	return booking, nil
}
