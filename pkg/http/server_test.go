package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func getStatus(s *Server, target string) int {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec.Code
}

func TestServerMountsMetricsByDefault(t *testing.T) {
	s := NewServer(nil)

	if code := getStatus(s, "/metrics"); code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", code)
	}
}

func TestServerMetricsEndpointDisabled(t *testing.T) {
	s := NewServer(nil, WithMetricsEndpoint(false, "/metrics"))

	if code := getStatus(s, "/metrics"); code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", code)
	}
}

func TestServerMetricsEndpointCustomPath(t *testing.T) {
	s := NewServer(nil, WithMetricsEndpoint(true, "/internal/metrics"))

	if code := getStatus(s, "/internal/metrics"); code != http.StatusOK {
		t.Errorf("GET /internal/metrics = %d, want 200", code)
	}
	if code := getStatus(s, "/metrics"); code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", code)
	}
}
