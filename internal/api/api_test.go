package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"collarwatch/internal/auth"
	"collarwatch/internal/realtime"
	"collarwatch/internal/scoring"
)

// testServer wires the handler with no database. Only routes that never
// touch the store are exercised here; the store-backed handlers are covered
// through the pipeline and store tests.
func testServer() http.Handler {
	s := NewServer(nil, nil, scoring.NewClassifier(nil, nil), nil, realtime.NewHub(), auth.NewManager("test-secret"))
	return s.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	testServer().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`"status":"healthy"`, `"model_ready":false`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/dogs"},
		{http.MethodPost, "/api/v1/dogs"},
		{http.MethodGet, "/api/v1/collars"},
		{http.MethodGet, "/api/v1/sensor-data/dog-1"},
		{http.MethodGet, "/api/v1/interventions"},
		{http.MethodGet, "/api/v1/analytics/dashboard"},
	}
	h := testServer()
	for _, p := range paths {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(p.method, p.path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401 without a token", p.method, p.path, rr.Code)
		}
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	h := testServer()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sensor-data", strings.NewReader("{not json")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d, want 400", rr.Code)
	}

	// Structurally valid JSON that fails domain validation never reaches the
	// pipeline, which is nil here and would panic if it did.
	rr = httptest.NewRecorder()
	payload := `{"dog_id":"dog-1","collar_id":"collar-1","heart_rate_bpm":500,"body_temperature":38.5}`
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sensor-data", strings.NewReader(payload)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range heart rate: status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "heart_rate_bpm") {
		t.Errorf("error body %s does not name the offending field", rr.Body.String())
	}
}

func TestWebsocketRouteRejectsPlainHTTP(t *testing.T) {
	rr := httptest.NewRecorder()
	testServer().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/observer-1", nil))
	// Upgrade fails without the websocket handshake headers.
	if rr.Code == http.StatusOK {
		t.Fatalf("status = %d, plain GET must not succeed", rr.Code)
	}
}
