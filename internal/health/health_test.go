package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medibook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		redisErr   error
		wantStatus int
		wantRedis  string
	}{
		{"all backends up", nil, http.StatusOK, "ok"},
		{"redis down", errors.New("connection refused"), http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(logger.Discard()).
				With("mongo", func(context.Context) error { return nil }).
				With("redis", func(context.Context) error { return tt.redisErr }).
				RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Checks["mongo"] != "ok" || body.Checks["redis"] != tt.wantRedis {
				t.Errorf("checks = %v", body.Checks)
			}
		})
	}
}

func TestHealth_NoChecks(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(logger.Discard()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
