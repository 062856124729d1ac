package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "medibook/pkg/errors"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type recordingService struct {
	got model.WorklistFilter
}

func (s *recordingService) Query(_ context.Context, filter model.WorklistFilter) (*model.WorklistResult, error) {
	s.got = filter
	if filter.Status == "bogus" {
		return nil, apperrors.InvalidInput("unknown booking status: bogus")
	}
	return &model.WorklistResult{Rows: []model.WorklistRow{}, Page: filter.Page, PerPage: filter.PerPage}, nil
}

func TestQuery_ParsesFilter(t *testing.T) {
	svc := &recordingService{}
	router := httprouter.New()
	NewWorklistHandler(svc, logger.Discard()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/worklist?search=BK-2025&status=active&assignee=doc-1&from=2025-03-01&to=2025-03-31T00:00:00Z&page=2&per_page=50", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := svc.got
	if got.Search != "BK-2025" || got.Status != model.BookingActive || got.Assignee != "doc-1" {
		t.Errorf("unexpected filter: %+v", got)
	}
	if got.Page != 2 || got.PerPage != 50 {
		t.Errorf("page = %d per_page = %d", got.Page, got.PerPage)
	}
	if got.From == nil || !got.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", got.From)
	}
	if got.To == nil || got.To.Day() != 31 {
		t.Errorf("to = %v", got.To)
	}
}

func TestQuery_BadParameters(t *testing.T) {
	router := httprouter.New()
	NewWorklistHandler(&recordingService{}, logger.Discard()).RegisterRoutes(router)

	tests := []struct {
		name  string
		query string
	}{
		{"bad date", "?from=03/01/2025"},
		{"bad page", "?page=two"},
		{"bad per_page", "?per_page=ten"},
		{"unknown status", "?status=bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/worklist"+tt.query, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
