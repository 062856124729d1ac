package model

import (
	"encoding/json"
	"testing"
)

func TestParseBookingStatus(t *testing.T) {
	for _, s := range BookingStatuses {
		got, err := ParseBookingStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseBookingStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseBookingStatus("confirmed"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestEnumJSONRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  any
		wantErr bool
	}{
		{"payment mode ok", `"sha"`, new(PaymentMode), false},
		{"payment mode unknown", `"card"`, new(PaymentMode), true},
		{"approval ok", `"approved"`, new(ApprovalStatus), false},
		{"approval unknown", `"maybe"`, new(ApprovalStatus), true},
		{"service status ok", `"in_progress"`, new(ServiceStatus), false},
		{"service status unknown", `"done"`, new(ServiceStatus), true},
		{"purpose ok", `"service_completion"`, new(OTPPurpose), false},
		{"purpose unknown", `"login"`, new(OTPPurpose), true},
		{"challenge status unknown", `"used"`, new(ChallengeStatus), true},
		{"delivery status ok", `"failed"`, new(DeliveryStatus), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := json.Unmarshal([]byte(tt.payload), tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	if !BookingCancelled.Terminal() || !BookingCompleted.Terminal() {
		t.Error("completed and cancelled must be terminal")
	}
	if BookingActive.Terminal() || BookingPendingOTP.Terminal() {
		t.Error("pending_otp and active must not be terminal")
	}
	if !ServiceNotStarted.Open() || !ServiceInProgress.Open() {
		t.Error("not_started and in_progress must be open")
	}
	if ServiceCompleted.Open() || ServiceCancelled.Open() {
		t.Error("completed and cancelled must not be open")
	}
}
