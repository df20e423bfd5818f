package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	mw := CORSMiddleware(CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	})

	req := httptest.NewRequest("OPTIONS", "/api/v1/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("max-age = %q", got)
	}
}

func TestCORSMiddlewareDisallowedOrigin(t *testing.T) {
	mw := CORSMiddleware(CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest("GET", "/api/v1/search", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (request still served)", w.Code, http.StatusOK)
	}
}

func TestCORSMiddlewareNoOriginsConfigured(t *testing.T) {
	mw := CORSMiddleware(CORSConfig{})

	req := httptest.NewRequest("GET", "/api/v1/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty with CORS disabled", got)
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third immediate request should be limited")
	}

	// A different key has its own budget.
	if !rl.Allow("b") {
		t.Error("separate key should not share the limit")
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	mw := RateLimitMiddleware(NewRateLimiter(1, 1))
	handler := mw(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/search", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want \"1\"", got)
	}
}
