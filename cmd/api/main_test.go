package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestRequireMethod(t *testing.T) {
	called := false
	h := requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/v1/quote", nil))
	if !called {
		t.Error("expected handler to run for matching method")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestRequireMethod_WrongMethod(t *testing.T) {
	h := requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for wrong method")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/v1/quote", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not the error envelope: %v", err)
	}
	if body.Error.Code != "bad_request" {
		t.Errorf("expected bad_request code, got %q", body.Error.Code)
	}
	if body.Error.Message == "" {
		t.Error("expected a message in the error envelope")
	}
}

func TestCORSConfigFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want []string
	}{
		{name: "unset disables CORS", env: "", want: nil},
		{name: "single origin", env: "https://studio.atelierforma.com", want: []string{"https://studio.atelierforma.com"}},
		{
			name: "comma list with whitespace",
			env:  " http://localhost:5173 , https://studio.atelierforma.com ,",
			want: []string{"http://localhost:5173", "https://studio.atelierforma.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CORS_ALLOWED_ORIGINS", tt.env)
			cfg := corsConfigFromEnv()
			if !reflect.DeepEqual(cfg.AllowedOrigins, tt.want) {
				t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, tt.want)
			}
		})
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	cfg := corsConfigFromEnv()
	if !cfg.AllowCredentials {
		t.Error("expected credentials to be allowed")
	}
	if cfg.MaxAge != 600 {
		t.Errorf("expected preflight max age 600, got %d", cfg.MaxAge)
	}
	wantHeaders := []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	if !reflect.DeepEqual(cfg.AllowedHeaders, wantHeaders) {
		t.Errorf("AllowedHeaders = %v, want %v", cfg.AllowedHeaders, wantHeaders)
	}
}

// redisChecker must return a nil interface, not a typed nil, so the
// readiness probe's nil check actually skips the Redis probe.
func TestRedisCheckerNilClient(t *testing.T) {
	if c := redisChecker(nil); c != nil {
		t.Errorf("expected nil checker without a Redis client, got %T", c)
	}
}
