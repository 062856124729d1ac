package handler

import (
	"encoding/json"
	"net/http"

	"medibook/internal/bookings/service"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// decode reads a JSON body into v. An empty body is accepted when optional is
// set, for endpoints whose fields all have defaults.
func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, handler string, v any, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if writeErr := httputil.WriteBadRequest(w, "Invalid request body"); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteBadRequest", "error", writeErr)
		}
		return false
	}
	return true
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeCreated(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteCreated(w, data); err != nil {
		h.log.Error("failed to write created response", "handler", handler, "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if !h.decode(w, r, "Create", &req, false) {
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	h.writeCreated(w, "Create", booking)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", booking)
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelRequest
	if !h.decode(w, r, "Cancel", &req, true) {
		return
	}

	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", booking)
}

func (h *BookingHandler) SetApproval(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ApprovalRequest
	if !h.decode(w, r, "SetApproval", &req, false) {
		return
	}

	booking, err := h.service.SetApproval(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "SetApproval", err)
		return
	}

	h.writeSuccess(w, "SetApproval", booking)
}

func (h *BookingHandler) RequestConsentOTP(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	issued, err := h.service.RequestConsentOTP(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "RequestConsentOTP", err)
		return
	}

	h.writeCreated(w, "RequestConsentOTP", issued)
}

func (h *BookingHandler) ResendConsentOTP(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	issued, err := h.service.ResendConsentOTP(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ResendConsentOTP", err)
		return
	}

	h.writeCreated(w, "ResendConsentOTP", issued)
}

func (h *BookingHandler) VerifyConsent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.VerifyRequest
	if !h.decode(w, r, "VerifyConsent", &req, false) {
		return
	}

	booking, err := h.service.VerifyConsent(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "VerifyConsent", err)
		return
	}

	h.writeSuccess(w, "VerifyConsent", booking)
}

func (h *BookingHandler) RequestServiceOTP(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	issued, err := h.service.RequestServiceOTP(r.Context(), ps.ByName("id"), ps.ByName("service_id"))
	if err != nil {
		h.writeError(w, "RequestServiceOTP", err)
		return
	}

	h.writeCreated(w, "RequestServiceOTP", issued)
}

func (h *BookingHandler) ResendServiceOTP(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	issued, err := h.service.ResendServiceOTP(r.Context(), ps.ByName("id"), ps.ByName("service_id"))
	if err != nil {
		h.writeError(w, "ResendServiceOTP", err)
		return
	}

	h.writeCreated(w, "ResendServiceOTP", issued)
}

func (h *BookingHandler) VerifyService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.VerifyRequest
	if !h.decode(w, r, "VerifyService", &req, false) {
		return
	}

	booking, err := h.service.VerifyService(r.Context(), ps.ByName("id"), ps.ByName("service_id"), &req)
	if err != nil {
		h.writeError(w, "VerifyService", err)
		return
	}

	h.writeSuccess(w, "VerifyService", booking)
}

func (h *BookingHandler) CancelService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.CancelService(r.Context(), ps.ByName("id"), ps.ByName("service_id"))
	if err != nil {
		h.writeError(w, "CancelService", err)
		return
	}

	h.writeSuccess(w, "CancelService", booking)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.PATCH("/api/v1/bookings/id/:id/approval", h.SetApproval)

	router.POST("/api/v1/bookings/id/:id/consent/otp", h.RequestConsentOTP)
	router.POST("/api/v1/bookings/id/:id/consent/otp/resend", h.ResendConsentOTP)
	router.POST("/api/v1/bookings/id/:id/consent/verify", h.VerifyConsent)

	router.POST("/api/v1/bookings/id/:id/services/:service_id/otp", h.RequestServiceOTP)
	router.POST("/api/v1/bookings/id/:id/services/:service_id/otp/resend", h.ResendServiceOTP)
	router.POST("/api/v1/bookings/id/:id/services/:service_id/verify", h.VerifyService)
	router.POST("/api/v1/bookings/id/:id/services/:service_id/cancel", h.CancelService)
}
