package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "/"},
		{in: "/api/v1/exams", want: "/api/v1/exams"},
		{in: "/api/v1/exams/17", want: "/api/v1/exams/{id}"},
		{in: "/api/v1/exams/17/answers/3", want: "/api/v1/exams/{id}/answers/{id}"},
		{in: "/api/v1/answers/5/submit", want: "/api/v1/answers/{id}/submit"},
	}

	for _, tc := range tests {
		if got := normalizedPath(tc.in); got != tc.want {
			t.Fatalf("normalizedPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractAnswerID(t *testing.T) {
	if got := extractAnswerID("/api/v1/answers/42/submit"); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := extractAnswerID("/api/v1/exams/7/answers/me"); got != 0 {
		t.Fatalf("non-numeric segment should yield 0, got %d", got)
	}
	if got := extractAnswerID("/api/v1/exams/7"); got != 0 {
		t.Fatalf("path without answers should yield 0, got %d", got)
	}
}

func TestCollectorMetricsOutput(t *testing.T) {
	c := NewCollector(nil)

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exams/9", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	w := httptest.NewRecorder()
	c.MetricsHandler(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "examdesk_uptime_seconds") {
		t.Fatalf("missing uptime metric:\n%s", body)
	}
	want := `examdesk_http_requests_total{method="GET",path="/api/v1/exams/{id}",status="204"} 3`
	if !strings.Contains(body, want) {
		t.Fatalf("missing request counter %q:\n%s", want, body)
	}
}
