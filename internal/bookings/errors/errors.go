package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrServiceNotFound = errors.New("booking service not found")

	ErrVersionConflict = errors.New("booking was modified concurrently")

	ErrDuplicateNumber = errors.New("booking number already exists")

	ErrOutOfSequence = errors.New("service is not the next one awaiting completion")

	ErrInvalidTransition = errors.New("booking status does not allow this operation")
)
