package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "medibook/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantAction any
	}{
		{"not found", apperrors.NotFound("Booking"), http.StatusNotFound, apperrors.CodeNotFound, nil},
		{"expired", apperrors.Expired(nil), http.StatusGone, apperrors.CodeExpired, apperrors.ActionResend},
		{"mismatch", apperrors.Mismatch(nil), http.StatusUnprocessableEntity, apperrors.CodeMismatch, apperrors.ActionRetry},
		{"out of sequence", apperrors.OutOfSequence("not next", nil), http.StatusConflict, apperrors.CodeOutOfSequence, nil},
		{"delivery failed", apperrors.DeliveryFailed(nil), http.StatusBadGateway, apperrors.CodeDeliveryFailed, apperrors.ActionResend},
		{"plain error", errors.New("mongo exploded"), http.StatusInternalServerError, apperrors.CodeInternal, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if body.Details["action"] != tt.wantAction {
				t.Errorf("action = %v, want %v", body.Details["action"], tt.wantAction)
			}
			if tt.wantCode == apperrors.CodeInternal && body.Message == "mongo exploded" {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestQueryDate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=bad", nil)

	from, err := QueryDate(r, "from")
	if err != nil || from == nil || from.Day() != 1 {
		t.Errorf("QueryDate(from) = %v, %v", from, err)
	}
	if _, err := QueryDate(r, "to"); err == nil {
		t.Error("expected error for malformed date")
	}
	if missing, err := QueryDate(r, "missing"); err != nil || missing != nil {
		t.Errorf("missing param = %v, %v", missing, err)
	}
}
