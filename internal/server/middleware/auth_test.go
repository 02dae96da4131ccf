package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// TestAuth tests the Auth middleware with various scenarios.
func TestAuth(t *testing.T) {
	logger := zerolog.Nop()
	keyed := AuthConfig{APIKey: "secret-key", HeaderName: "X-API-Key", PublicPaths: []string{"/health"}}

	tests := []struct {
		name           string
		config         AuthConfig
		path           string
		headers        map[string]string
		expectedStatus int
	}{
		{
			name:           "no key configured",
			config:         AuthConfig{HeaderName: "X-API-Key"},
			path:           "/api/v1/imports",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "public path",
			config:         keyed,
			path:           "/health",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "custom header",
			config:         keyed,
			path:           "/api/v1/imports",
			headers:        map[string]string{"X-API-Key": "secret-key"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bearer token",
			config:         keyed,
			path:           "/api/v1/imports",
			headers:        map[string]string{"Authorization": "Bearer secret-key"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "raw authorization",
			config:         keyed,
			path:           "/api/v1/imports",
			headers:        map[string]string{"Authorization": "secret-key"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong key",
			config:         keyed,
			path:           "/api/v1/imports",
			headers:        map[string]string{"X-API-Key": "guess"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing key",
			config:         keyed,
			path:           "/api/v1/imports",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(tt.config, &logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// TestDefaultAuthConfig tests that metrics and health stay public.
func TestDefaultAuthConfig(t *testing.T) {
	config := DefaultAuthConfig()
	if config.APIKey != "" {
		t.Error("expected no default key")
	}
	for _, p := range []string{"/health", "/metrics"} {
		if !isPublicPath(p, config.PublicPaths) {
			t.Errorf("expected %s to be public", p)
		}
	}
}
