package model

import "fmt"

// BookingStatus is the overall lifecycle axis of a booking.
type BookingStatus string

const (
	BookingPendingOTP BookingStatus = "pending_otp"
	BookingActive     BookingStatus = "active"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// BookingStatuses lists every booking status in lifecycle order.
var BookingStatuses = []BookingStatus{BookingPendingOTP, BookingActive, BookingCompleted, BookingCancelled}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPendingOTP, BookingActive, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

func (s *BookingStatus) UnmarshalText(text []byte) error {
	v, err := ParseBookingStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	v := BookingStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return v, nil
}

// ApprovalStatus is the finance review axis, independent of consent and completion.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

func (s *ApprovalStatus) UnmarshalText(text []byte) error {
	v, err := ParseApprovalStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	v := ApprovalStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown approval status %q", s)
	}
	return v, nil
}

type ServiceStatus string

const (
	ServiceNotStarted ServiceStatus = "not_started"
	ServiceInProgress ServiceStatus = "in_progress"
	ServiceCompleted  ServiceStatus = "completed"
	ServiceCancelled  ServiceStatus = "cancelled"
)

func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceNotStarted, ServiceInProgress, ServiceCompleted, ServiceCancelled:
		return true
	}
	return false
}

// Open reports whether the service still awaits completion.
func (s ServiceStatus) Open() bool {
	return s == ServiceNotStarted || s == ServiceInProgress
}

func (s *ServiceStatus) UnmarshalText(text []byte) error {
	v, err := ParseServiceStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseServiceStatus(s string) (ServiceStatus, error) {
	v := ServiceStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown service status %q", s)
	}
	return v, nil
}

type PaymentMode string

const (
	PaymentCash      PaymentMode = "cash"
	PaymentInsurance PaymentMode = "insurance"
	PaymentSHA       PaymentMode = "sha"
	PaymentOther     PaymentMode = "other"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentInsurance, PaymentSHA, PaymentOther:
		return true
	}
	return false
}

func (m *PaymentMode) UnmarshalText(text []byte) error {
	v, err := ParsePaymentMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func ParsePaymentMode(s string) (PaymentMode, error) {
	v := PaymentMode(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown payment mode %q", s)
	}
	return v, nil
}

type OTPPurpose string

const (
	PurposeConsent           OTPPurpose = "consent"
	PurposeServiceCompletion OTPPurpose = "service_completion"
)

func (p OTPPurpose) Valid() bool {
	return p == PurposeConsent || p == PurposeServiceCompletion
}

func (p *OTPPurpose) UnmarshalText(text []byte) error {
	v, err := ParseOTPPurpose(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func ParseOTPPurpose(s string) (OTPPurpose, error) {
	v := OTPPurpose(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown otp purpose %q", s)
	}
	return v, nil
}

type ChallengeStatus string

const (
	ChallengePending    ChallengeStatus = "pending"
	ChallengeValidated  ChallengeStatus = "validated"
	ChallengeExpired    ChallengeStatus = "expired"
	ChallengeSuperseded ChallengeStatus = "superseded"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengePending, ChallengeValidated, ChallengeExpired, ChallengeSuperseded:
		return true
	}
	return false
}

func (s *ChallengeStatus) UnmarshalText(text []byte) error {
	v := ChallengeStatus(text)
	if !v.Valid() {
		return fmt.Errorf("unknown challenge status %q", string(text))
	}
	*s = v
	return nil
}

// DeliveryStatus tracks the outbound SMS for a challenge.
type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "queued"
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryQueued, DeliverySent, DeliveryFailed:
		return true
	}
	return false
}

func (s *DeliveryStatus) UnmarshalText(text []byte) error {
	v := DeliveryStatus(text)
	if !v.Valid() {
		return fmt.Errorf("unknown delivery status %q", string(text))
	}
	*s = v
	return nil
}
