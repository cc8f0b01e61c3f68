package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr, response := env.do(t, http.MethodGet, "/api/health", "", nil)
	expectStatus(t, rr, http.StatusOK)

	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)

	rr, response := env.do(t, http.MethodGet, "/api/ready", "", nil)
	expectStatus(t, rr, http.StatusOK)

	if status, exists := response["status"]; !exists || status != "ready" {
		t.Errorf("expected status=ready, got %v", status)
	}
	checks, exists := response["checks"].(map[string]any)
	if !exists {
		t.Fatalf("expected checks object, got %v", response["checks"])
	}
	storeCheck, exists := checks["store"].(map[string]any)
	if !exists {
		t.Fatalf("expected store check, got %v", checks["store"])
	}
	if storeStatus := storeCheck["status"]; storeStatus != "ok" {
		t.Errorf("expected store status=ok, got %v", storeStatus)
	}
}

func TestReadyEndpoint_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.server.service.store = &pingStore{Service: env.kb, pingFn: func(context.Context) error {
		return errors.New("connection refused")
	}}

	rr, response := env.do(t, http.MethodGet, "/api/ready", "", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)

	if ok := response["ok"]; ok != false {
		t.Errorf("expected ok=false, got %v", ok)
	}
	if status := response["status"]; status != "not_ready" {
		t.Errorf("expected status=not_ready, got %v", status)
	}
	checks, _ := response["checks"].(map[string]any)
	storeCheck, _ := checks["store"].(map[string]any)
	if storeCheck["status"] != "error" {
		t.Errorf("expected store status=error, got %v", storeCheck["status"])
	}
	if storeCheck["error"] != "connection refused" {
		t.Errorf("expected store error='connection refused', got %v", storeCheck["error"])
	}
}

func TestHealthEndpoint_OptionsRequest(t *testing.T) {
	env := newTestEnv(t)

	rr, _ := env.do(t, http.MethodOptions, "/api/health", "", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", rr.Code)
	}
}

func TestHealthEndpoint_CORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://kb.example.com")
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin=*, got %v", origin)
	}
	if cache := rr.Header().Get("Cache-Control"); cache != "no-store" {
		t.Errorf("expected Cache-Control=no-store, got %v", cache)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/articles", nil)
	req.Header.Set("Origin", "https://kb.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin=*, got %v", origin)
	}
}

func TestPingMethod(t *testing.T) {
	tests := []struct {
		name      string
		pingError error
		wantError bool
	}{
		{
			name:      "healthy store",
			pingError: nil,
			wantError: false,
		},
		{
			name:      "unhealthy store",
			pingError: errors.New("connection failed"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			svc := env.server.service
			svc.store = &pingStore{Service: env.kb, pingFn: func(context.Context) error {
				return tt.pingError
			}}

			err := svc.Ping(context.Background())
			if (err != nil) != tt.wantError {
				t.Errorf("Ping() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
