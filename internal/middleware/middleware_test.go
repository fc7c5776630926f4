package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"pizza-dashboard/internal/config"
	"pizza-dashboard/internal/observability"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestChain_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls = append(calls, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !slices.Equal(calls, []string{"a", "b", "c", "handler"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get("X-Request-ID") != seen {
		t.Errorf("generated id %q, header %q", seen, w.Header().Get("X-Request-ID"))
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "upstream-1")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "upstream-1" {
		t.Errorf("upstream id not kept: %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(quietLogger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestTracing_StatusAndFlush(t *testing.T) {
	var flushed bool
	h := Tracing(quietLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.GetSpan(r.Context()) == nil {
			t.Error("span missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
			flushed = true
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse/dashboard", nil))
	if w.Code != http.StatusTeapot || !flushed || !w.Flushed {
		t.Errorf("code = %d, flushed = %v/%v", w.Code, flushed, w.Flushed)
	}
}

func TestTrustedProxy(t *testing.T) {
	var xff string
	h := TrustedProxy(config.SecurityConfig{TrustedProxies: []string{"10.0.0.1"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xff = r.Header.Get("X-Forwarded-For")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if xff != "" {
		t.Errorf("untrusted X-Forwarded-For kept: %q", xff)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if xff != "1.2.3.4" {
		t.Errorf("trusted X-Forwarded-For dropped: %q", xff)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(config.SecurityConfig{EnableRateLimit: false, RateLimitRPS: 1, RateLimitBurst: 1})
	for range 5 {
		if !rl.Allow("192.0.2.1") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 2})

	for i, want := range []bool{true, true, false} {
		if got := rl.Allow("192.0.2.1"); got != want {
			t.Errorf("request %d: Allow() = %v, want %v", i, got, want)
		}
	}
	if !rl.Allow("192.0.2.2") {
		t.Error("second client shares the first client's bucket")
	}
	if got := rl.Clients(); got != 2 {
		t.Errorf("Clients() = %d, want 2", got)
	}
}

func TestIsTrustedProxy(t *testing.T) {
	trusted := []string{"127.0.0.1", "10.0.0.1"}
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8080", true},
		{"10.0.0.1", true},
		{"10.0.0.2:80", false},
	}
	for _, tt := range tests {
		if got := isTrustedProxy(tt.addr, trusted); got != tt.want {
			t.Errorf("isTrustedProxy(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
