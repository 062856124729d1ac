package service

import (
	"context"
	"errors"

	bookingserrors "medibook/internal/bookings/errors"
	"medibook/internal/directory"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/lock"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

func lockKey(bookingID string) string {
	return "booking:" + bookingID
}

// withLock runs fn while holding the booking's lock. Every mutation of a
// booking and every code issued or checked for it goes through here.
func (s *bookingService) withLock(ctx context.Context, bookingID string, fn func(ctx context.Context) error) error {
	if bookingID == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}
	release, err := s.locker.Acquire(ctx, lockKey(bookingID))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return apperrors.Conflict("Booking is being updated by another request, try again")
		}
		return apperrors.Internal("Failed to lock booking", err)
	}
	defer release()
	return fn(ctx)
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return b, nil
}

func (s *bookingService) save(ctx context.Context, b *model.Booking) error {
	if err := s.repo.Update(ctx, b); err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrVersionConflict):
			return apperrors.Conflict("Booking was modified by another request, reload and try again")
		case errors.Is(err, bookingserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Booking", b.ID)
		default:
			return apperrors.Internal("Failed to save booking", err)
		}
	}
	return nil
}

// logFailure logs err at a level matching its cause and returns it as an
// AppError. Caller mistakes are warnings; anything internal is an error.
func (s *bookingService) logFailure(msg, bookingID string, err error) error {
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() >= 500 {
		s.cfg.Log.Error(msg, "booking_id", bookingID, "error", err)
	} else {
		s.cfg.Log.Warn(msg, "booking_id", bookingID, "code", appErr.Code, "error", appErr.Message)
	}
	return appErr
}

func serviceNotFound(bookingID, serviceID string) error {
	appErr := apperrors.NotFoundWithID("Booking service", serviceID)
	appErr.Err = bookingserrors.ErrServiceNotFound
	return appErr.WithDetails(map[string]any{"booking_id": bookingID})
}

func invalidTransition(msg string) error {
	return apperrors.InvalidTransition(msg, bookingserrors.ErrInvalidTransition)
}

// patientPhone resolves the number a code is delivered to.
func (s *bookingService) patientPhone(ctx context.Context, b *model.Booking) (string, error) {
	patient, err := s.directory.Patient(ctx, b.PatientRef)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return "", apperrors.Validation("Patient no longer exists in the directory", map[string]any{
				"patient_ref": b.PatientRef,
			})
		}
		return "", s.directoryError("patient_ref", b.PatientRef, err)
	}
	phone, err := s.phones.Normalize(patient.Phone)
	if err != nil {
		return "", apperrors.Validation("Patient phone number cannot receive codes", map[string]any{
			"patient_ref": b.PatientRef,
			"phone":       sanitizer.MaskPhone(patient.Phone),
		})
	}
	return phone, nil
}

func (s *bookingService) validateVerify(req *model.VerifyRequest) error {
	req.SessionID = sanitizer.SanitizeRef(req.SessionID)
	req.Code = sanitizer.SanitizeCode(req.Code)
	if err := s.validator.Validate(req); err != nil {
		return apperrors.Validation("Verify request validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// resolveChallenge applies the checks shared by both gates in order: a
// consumed code reports AlreadyValidated, then the booking state is checked by
// gate, and only then does a missing challenge surface.
func (s *bookingService) resolveChallenge(
	ctx context.Context,
	sessionID, subject string,
	purpose model.OTPPurpose,
	gate func() error,
) (*model.OTPChallenge, error) {
	challenge, lookupErr := s.otp.Lookup(ctx, sessionID, subject, purpose)
	if lookupErr == nil && challenge.Status == model.ChallengeValidated {
		return nil, apperrors.AlreadyValidated(nil)
	}
	if err := gate(); err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	return challenge, nil
}
