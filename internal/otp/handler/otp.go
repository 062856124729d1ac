package handler

import (
	"context"
	"net/http"

	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ChallengeReader interface {
	Get(ctx context.Context, sessionID string) (*model.OTPChallenge, error)
}

type OTPHandler struct {
	service ChallengeReader
	log     *logger.Logger
}

func NewOTPHandler(service ChallengeReader, log *logger.Logger) *OTPHandler {
	return &OTPHandler{
		service: service,
		log:     log,
	}
}

// GetBySessionID lets callers poll status, expiry and delivery of a code.
func (h *OTPHandler) GetBySessionID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	challenge, err := h.service.Get(r.Context(), ps.ByName("session_id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetBySessionID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, challenge); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBySessionID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OTPHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/otp/:session_id", h.GetBySessionID)
}
