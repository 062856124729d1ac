package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeMediaType    = "UNSUPPORTED_MEDIA_TYPE"
	CodeTooLarge     = "REQUEST_TOO_LARGE"

	CodeExpired           = "OTP_EXPIRED"
	CodeMismatch          = "OTP_MISMATCH"
	CodeAlreadyValidated  = "OTP_ALREADY_VALIDATED"
	CodeOutOfSequence     = "OUT_OF_SEQUENCE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeDeliveryFailed    = "DELIVERY_FAILED"
)

// Caller hints attached to OTP failures under Details["action"].
const (
	ActionRetry  = "retry"
	ActionResend = "resend"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func UnsupportedMediaType(message string) *AppError {
	return &AppError{
		Code:       CodeMediaType,
		Message:    message,
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
}

func TooLarge(limit int64) *AppError {
	return &AppError{
		Code:       CodeTooLarge,
		Message:    fmt.Sprintf("Request body exceeds %d bytes", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

// Expired reports a one-time code used at or after its expiry. The code can
// never succeed again, so the caller is pointed at resend.
func Expired(cause error) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    "This code has expired. Request a new code and try again.",
		HTTPStatus: http.StatusGone,
		Details:    map[string]any{"action": ActionResend},
		Err:        cause,
	}
}

// Mismatch reports a wrong code. The challenge stays open until expiry.
func Mismatch(cause error) *AppError {
	return &AppError{
		Code:       CodeMismatch,
		Message:    "The code you entered is incorrect. Check it and try again.",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"action": ActionRetry},
		Err:        cause,
	}
}

func AlreadyValidated(cause error) *AppError {
	return &AppError{
		Code:       CodeAlreadyValidated,
		Message:    "This code has already been used",
		HTTPStatus: http.StatusConflict,
		Err:        cause,
	}
}

func OutOfSequence(message string, cause error) *AppError {
	return &AppError{
		Code:       CodeOutOfSequence,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Err:        cause,
	}
}

func InvalidTransition(message string, cause error) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Err:        cause,
	}
}

func DeliveryFailed(cause error) *AppError {
	return &AppError{
		Code:       CodeDeliveryFailed,
		Message:    "The code could not be delivered to the patient's phone. Request a new code.",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"action": ActionResend},
		Err:        cause,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
