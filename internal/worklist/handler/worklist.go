package handler

import (
	"net/http"

	"medibook/internal/worklist/service"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type WorklistHandler struct {
	service service.WorklistService
	log     *logger.Logger
}

func NewWorklistHandler(service service.WorklistService, log *logger.Logger) *WorklistHandler {
	return &WorklistHandler{
		service: service,
		log:     log,
	}
}

func (h *WorklistHandler) Query(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := parseFilter(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Query", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.Query(r.Context(), filter)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Query", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Query", "operation", "WriteSuccess", "error", err)
	}
}

func parseFilter(r *http.Request) (model.WorklistFilter, error) {
	query := r.URL.Query()
	filter := model.WorklistFilter{
		Search:   query.Get("search"),
		Status:   model.BookingStatus(query.Get("status")),
		Assignee: query.Get("assignee"),
	}

	var err error
	if filter.From, err = httputil.QueryDate(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = httputil.QueryDate(r, "to"); err != nil {
		return filter, err
	}
	if filter.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		return filter, err
	}
	if filter.PerPage, err = httputil.QueryInt(r, "per_page", service.DefaultPerPage); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *WorklistHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/worklist", h.Query)
}
