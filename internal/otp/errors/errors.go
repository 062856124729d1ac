package errors

import "errors"

var (
	ErrNotFound = errors.New("otp challenge not found")

	ErrNotPending = errors.New("otp challenge is no longer pending")

	ErrPendingExists = errors.New("a pending otp challenge already exists for this subject")

	ErrExpired = errors.New("otp challenge expired")

	ErrMismatch = errors.New("otp code does not match")

	ErrAlreadyValidated = errors.New("otp challenge already validated")

	ErrSuperseded = errors.New("otp challenge superseded by a newer one")

	ErrDeliveryFailed = errors.New("otp delivery failed")

	ErrSubjectMismatch = errors.New("otp challenge belongs to a different subject")

	ErrInvalidPurpose = errors.New("otp purpose does not match subject")
)
