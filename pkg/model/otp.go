package model

import "time"

type OTPChallenge struct {
	ID             string          `json:"session_id" bson:"_id"`
	BookingID      string          `json:"booking_id" bson:"booking_id"`
	ServiceID      string          `json:"service_id,omitempty" bson:"service_id,omitempty"`
	SubjectRef     string          `json:"subject_ref" bson:"subject_ref"`
	Purpose        OTPPurpose      `json:"purpose" bson:"purpose"`
	CodeHash       string          `json:"-" bson:"code_hash"`
	Status         ChallengeStatus `json:"status" bson:"status"`
	Attempts       int             `json:"attempts" bson:"attempts"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status" bson:"delivery_status"`
	DeliveryError  string          `json:"delivery_error,omitempty" bson:"delivery_error,omitempty"`
	IssuedAt       time.Time       `json:"issued_at" bson:"issued_at"`
	ExpiresAt      time.Time       `json:"expires_at" bson:"expires_at"`
	ValidatedAt    *time.Time      `json:"validated_at,omitempty" bson:"validated_at,omitempty"`
	SupersededAt   *time.Time      `json:"superseded_at,omitempty" bson:"superseded_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updated_at"`
}

// ConsentSubject is the subject a consent challenge protects.
func ConsentSubject(bookingID string) string {
	return "booking:" + bookingID
}

// ServiceSubject is the subject a completion challenge protects.
func ServiceSubject(bookingID, serviceID string) string {
	return "booking:" + bookingID + ":service:" + serviceID
}

func (c *OTPChallenge) Clone() *OTPChallenge {
	if c == nil {
		return nil
	}
	v := *c
	v.ValidatedAt = cloneTime(c.ValidatedAt)
	v.SupersededAt = cloneTime(c.SupersededAt)
	return &v
}
