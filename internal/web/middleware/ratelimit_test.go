package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doLimited(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	h := limitedHandler(rl)

	for i := 0; i < 2; i++ {
		if rec := doLimited(h, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := doLimited(h, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if !strings.Contains(rec.Body.String(), "RATE_LIMITED") {
		t.Errorf("body = %q, want RATE_LIMITED code", rec.Body.String())
	}
}

func TestRateLimiter_TracksIPsSeparately(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	h := limitedHandler(rl)

	if rec := doLimited(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first ip: status = %d, want 200", rec.Code)
	}
	if rec := doLimited(h, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("second ip: status = %d, want 200", rec.Code)
	}
	if rec := doLimited(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first ip again: status = %d, want 429", rec.Code)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()

	// Limiting still works after Stop; only the background pruning ends.
	h := limitedHandler(rl)
	if rec := doLimited(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
