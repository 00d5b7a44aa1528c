package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, generalBurst, writeBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		WriteRate:       0.5,
		WriteBurst:      writeBurst,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func requestFrom(method, ip string) *http.Request {
	req := httptest.NewRequest(method, "/project", nil)
	req.RemoteAddr = ip + ":54321"
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := newTestLimiter(t, 5, 5)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(http.MethodGet, "10.0.0.1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_Returns429WithRetryAfter(t *testing.T) {
	rl := newTestLimiter(t, 2, 10)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "10.0.0.2"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "10.0.0.2"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry < 1 {
		t.Errorf("Retry-After = %q, want a positive number of seconds", w.Header().Get("Retry-After"))
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Errorf("error = %v", body["error"])
	}
}

// TestRateLimiter_PerClient はクライアントIPごとに独立して制限されることを検証する。
func TestRateLimiter_PerClient(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	handler := rl.Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "10.0.0.3"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "10.0.0.4"))
	if w.Code != http.StatusOK {
		t.Errorf("another client: status = %d, want %d", w.Code, http.StatusOK)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

// TestRateLimiter_WriteBucket は更新系メソッドにのみ追加の制限がかかることを検証する。
func TestRateLimiter_WriteBucket(t *testing.T) {
	rl := newTestLimiter(t, 100, 1)
	handler := rl.Middleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodPost, "10.0.0.5"))
	if w.Code != http.StatusOK {
		t.Fatalf("first POST: status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodPut, "10.0.0.5"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second write: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "10.0.0.5"))
	if w.Code != http.StatusOK {
		t.Errorf("GET after write limit: status = %d, want %d", w.Code, http.StatusOK)
	}

	if got := rl.WriteLimiterCount(); got != 1 {
		t.Errorf("WriteLimiterCount = %d, want 1", got)
	}
}

func TestRateLimiter_PreflightNotLimited(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(http.MethodOptions, "10.0.0.6"))
		if w.Code != http.StatusOK {
			t.Errorf("OPTIONS %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newTestLimiter(t, 5, 5)
	handler := rl.Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodPost, "10.0.0.7"))
	if rl.GeneralLimiterCount() != 1 || rl.WriteLimiterCount() != 1 {
		t.Fatalf("expected one entry in each bucket")
	}

	rl.cleanup(time.Now().Add(time.Hour))

	if rl.GeneralLimiterCount() != 0 || rl.WriteLimiterCount() != 0 {
		t.Errorf("stale entries should be evicted, got general=%d write=%d",
			rl.GeneralLimiterCount(), rl.WriteLimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 30)
	if cfg.GeneralRate != 2 || cfg.GeneralBurst != 120 {
		t.Errorf("general = (%v, %d), want (2, 120)", cfg.GeneralRate, cfg.GeneralBurst)
	}
	if cfg.WriteRate != 0.5 || cfg.WriteBurst != 30 {
		t.Errorf("write = (%v, %d), want (0.5, 30)", cfg.WriteRate, cfg.WriteBurst)
	}
}
