package service

import (
	"context"
	"fmt"

	otpservice "medibook/internal/otp/service"
	"medibook/pkg/model"
)

func (s *bookingService) RequestConsentOTP(ctx context.Context, id string) (*otpservice.Issued, error) {
	return s.issueConsent(ctx, id, false)
}

func (s *bookingService) ResendConsentOTP(ctx context.Context, id string) (*otpservice.Issued, error) {
	return s.issueConsent(ctx, id, true)
}

func (s *bookingService) issueConsent(ctx context.Context, id string, resend bool) (*otpservice.Issued, error) {
	var issued *otpservice.Issued
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if b.BookingStatus != model.BookingPendingOTP {
			return invalidTransition(fmt.Sprintf("Consent can only be requested for a booking awaiting consent, booking is %s", b.BookingStatus))
		}
		phone, err := s.patientPhone(ctx, b)
		if err != nil {
			return err
		}

		req := otpservice.IssueRequest{
			BookingID: b.ID,
			Purpose:   model.PurposeConsent,
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
		return nil, s.logFailure("Failed to issue consent code", id, err)
	}
	return issued, nil
}

// VerifyConsent moves a booking from pending_otp to active. The challenge is
// consumed in the same transaction as the status change.
func (s *bookingService) VerifyConsent(ctx context.Context, id string, req *model.VerifyRequest) (*model.Booking, error) {
	if err := s.validateVerify(req); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		b, err := s.load(ctx, id)
		if err != nil {
			return err
		}

		challenge, err := s.resolveChallenge(ctx, req.SessionID, model.ConsentSubject(b.ID), model.PurposeConsent, func() error {
			if b.BookingStatus != model.BookingPendingOTP {
				return invalidTransition(fmt.Sprintf("Booking is %s and no longer awaits consent", b.BookingStatus))
			}
			return nil
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
			b.BookingStatus = model.BookingActive
			b.ConsentVerifiedAt = &now
			b.Cursor = b.NextOpen(0)
			b.UpdatedAt = now
			return s.save(ctx, b)
		})
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.logFailure("Consent verification failed", id, err)
	}

	s.cfg.Log.Info("Booking consent verified",
		"booking_id", booking.ID,
		"booking_number", booking.BookingNumber,
		"cursor", booking.Cursor,
	)
	return booking, nil
}
