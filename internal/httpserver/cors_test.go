package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/plateplan/internal/config"
)

func TestCORS_Preflight(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		credentials bool
		origin      string
		wantAllow   string
	}{
		{name: "allowed origin", origins: []string{"https://app.example.com"}, origin: "https://app.example.com", wantAllow: "https://app.example.com"},
		{name: "trailing slash in config", origins: []string{"https://app.example.com/"}, origin: "https://app.example.com", wantAllow: "https://app.example.com"},
		{name: "disallowed origin", origins: []string{"https://app.example.com"}, origin: "https://evil.com", wantAllow: ""},
		{name: "wildcard", origins: []string{"*"}, origin: "https://anything.dev", wantAllow: "*"},
		{name: "wildcard ignored with credentials", origins: []string{"*"}, credentials: true, origin: "https://anything.dev", wantAllow: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{CORSAllowedOrigins: tt.origins, CORSAllowCredentials: tt.credentials}
			handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called for preflight")
			}))

			req := httptest.NewRequest(http.MethodOptions, "/v1/shopping-lists", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusNoContent {
				t.Errorf("expected 204, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			methods := rr.Header().Get("Access-Control-Allow-Methods")
			if tt.wantAllow != "" && (!strings.Contains(methods, "PUT") || !strings.Contains(methods, "DELETE")) {
				t.Errorf("expected Allow-Methods to include PUT and DELETE, got %q", methods)
			}
			if tt.wantAllow == "" && methods != "" {
				t.Errorf("expected no Allow-Methods for rejected origin, got %q", methods)
			}
		})
	}
}

func TestCORS_NormalRequest(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:   []string{"https://app.example.com"},
		CORSAllowCredentials: true,
	}

	innerCalled := 0
	handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerCalled++
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("expected Allow-Origin, got %q", got)
		}
		if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("expected Allow-Credentials=true, got %q", got)
		}
		if got := rr.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition" {
			t.Errorf("expected Content-Disposition to be exposed, got %q", got)
		}
	})

	t.Run("disallowed origin still served", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		req.Header.Set("Origin", "https://evil.com")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no Allow-Origin header, got %q", got)
		}
	})

	t.Run("no origin header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no Allow-Origin header, got %q", got)
		}
	})

	if innerCalled != 3 {
		t.Errorf("expected inner handler on every non-OPTIONS request, got %d calls", innerCalled)
	}
}
