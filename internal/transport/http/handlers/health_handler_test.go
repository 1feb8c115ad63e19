package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivankudzin/giftexchange/internal/transport/http/dto"
)

func TestHealthHandlerWithoutChecks(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler().Handle(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	var payload dto.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" || len(payload.Checks) != 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHealthHandlerReportsFailingCheck(t *testing.T) {
	h := NewHealthHandler()
	h.Register("postgres", func(context.Context) error { return nil })
	h.Register("redis", func(context.Context) error { return errors.New("dial tcp: connection refused") })
	h.Register("ignored", nil)

	rr := httptest.NewRecorder()
	h.Handle(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var payload dto.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "degraded" {
		t.Fatalf("unexpected status field %q", payload.Status)
	}
	if payload.Checks["postgres"] != "ok" {
		t.Fatalf("unexpected postgres check %q", payload.Checks["postgres"])
	}
	if payload.Checks["redis"] != "dial tcp: connection refused" {
		t.Fatalf("unexpected redis check %q", payload.Checks["redis"])
	}
	if _, ok := payload.Checks["ignored"]; ok {
		t.Fatalf("nil checks must not be registered")
	}
}
