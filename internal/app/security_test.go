package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request in the window should be blocked")
	}
	if !l.Allow("b") {
		t.Fatalf("limits are per key")
	}
}

func TestIPRateLimiterWindowReset(t *testing.T) {
	l := NewIPRateLimiter(1, 10*time.Millisecond)

	if !l.Allow("a") {
		t.Fatalf("first request should pass")
	}
	if l.Allow("a") {
		t.Fatalf("second request should be blocked")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("request after window reset should pass")
	}
}

func TestRateLimitMiddlewareBlocks(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := RateLimitMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
}

func TestCSRFMiddlewareDisabled(t *testing.T) {
	h := CSRFMiddleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers/1/submit", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when csrf is disabled, got %d", w.Code)
	}
}

func TestCSRFMiddlewareEnforced(t *testing.T) {
	h := CSRFMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("GET passes without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exams", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("POST without cookie is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/answers/1/submit", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("POST with mismatched header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/answers/1/submit", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok-1"})
		req.Header.Set(csrfHeaderName, "tok-2")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("POST with matching token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/answers/1/submit", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok-1"})
		req.Header.Set(csrfHeaderName, "tok-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}
