package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(0.001, 3)
	defer rl.Close()

	// First 3 requests should be allowed
	for i := 0; i < 3; i++ {
		remaining, allowed := rl.Allow("1.2.3.4")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if remaining != 2-i {
			t.Fatalf("request %d: expected remaining=%d, got=%d", i+1, 2-i, remaining)
		}
	}

	// 4th request should be blocked
	remaining, allowed := rl.Allow("1.2.3.4")
	if allowed {
		t.Fatal("4th request should be blocked")
	}
	if remaining != 0 {
		t.Fatalf("expected remaining=0, got=%d", remaining)
	}
	if rl.RetryAfter("1.2.3.4") <= 0 {
		t.Fatal("expected a positive retry delay once the bucket is empty")
	}

	// Different IP should still be allowed
	remaining, allowed = rl.Allow("5.6.7.8")
	if !allowed {
		t.Fatal("different IP should be allowed")
	}
	if remaining != 2 {
		t.Fatalf("expected remaining=2, got=%d", remaining)
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(50, 1)
	defer rl.Close()

	rl.Allow("1.2.3.4")
	_, allowed := rl.Allow("1.2.3.4")
	if allowed {
		t.Fatal("should be blocked after burst")
	}

	// 50 rps refills one token every 20ms
	time.Sleep(60 * time.Millisecond)

	_, allowed = rl.Allow("1.2.3.4")
	if !allowed {
		t.Fatal("should be allowed after refill")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()

	rl.Allow("1.2.3.4")
	rl.cleanup(time.Now())
	if len(rl.visitors) != 1 {
		t.Fatalf("recent visitor should survive cleanup, have %d", len(rl.visitors))
	}
	rl.cleanup(time.Now().Add(visitorIdle + time.Second))
	if len(rl.visitors) != 0 {
		t.Fatalf("idle visitor should be removed, have %d", len(rl.visitors))
	}
}

func TestRateLimiterCloseIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Close()
	rl.Close()
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Close()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	wrapped := RateLimitMiddleware(rl, handler)

	// Health endpoint should bypass rate limiting
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("health request %d should not be rate limited", i+1)
		}
	}

	// Root path should bypass rate limiting
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("root request %d should not be rate limited", i+1)
		}
	}

	// API endpoint should be rate limited (use fresh IP)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/key/generate", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("API request %d should be allowed, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatal("missing X-RateLimit-Limit header")
		}
	}

	// 3rd API request should be blocked
	req := httptest.NewRequest("GET", "/api/key/generate", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	var body map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "rate limit exceeded" {
		t.Fatalf("expected rate limit error, got: %v", body)
	}
}

func TestRateLimitMiddlewareXForwardedFor(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Close()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RateLimitMiddleware(rl, handler)

	// First request with X-Forwarded-For
	req := httptest.NewRequest("GET", "/api/key/generate", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatal("first request should be allowed")
	}

	// Second request from same forwarded IP should be blocked
	req = httptest.NewRequest("GET", "/api/key/generate", nil)
	req.RemoteAddr = "10.0.0.2:5678"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote, xff, want string
	}{
		{"1.2.3.4:5678", "", "1.2.3.4"},
		{"[::1]:80", "", "::1"},
		{"1.2.3.4", "", "1.2.3.4"},
		{"10.0.0.1:1", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q, %q) = %q, want %q", tt.remote, tt.xff, got, tt.want)
		}
	}
}
