package handlers_test

import (
	"net/http"
	"testing"
)

func TestHealthReportsDatabaseAndCache(t *testing.T) {
	app := setupTestApp(t)

	status, payload := app.do(t, http.MethodGet, "/api/health", nil, "")
	if status != http.StatusOK || payload["db"] != "up" {
		t.Fatalf("unexpected health response %d: %v", status, payload)
	}
	if payload["popularAgeSeconds"] != nil {
		t.Fatalf("expected empty cache age before any listing, got %v", payload["popularAgeSeconds"])
	}

	app.do(t, http.MethodGet, "/api/home", nil, "")
	_, payload = app.do(t, http.MethodGet, "/health", nil, "")
	if _, ok := payload["popularAgeSeconds"].(float64); !ok {
		t.Fatalf("expected numeric cache age after listing, got %v", payload["popularAgeSeconds"])
	}
}
