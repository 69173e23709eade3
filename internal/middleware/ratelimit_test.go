package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(generalBurst, bookingBurst int) *RateLimiter {
	// テストではトークン補充をほぼゼロにして、バースト消費のみを検証する
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.0001),
		GeneralBurst:    generalBurst,
		BookingRate:     rate.Limit(0.0001),
		BookingBurst:    bookingBurst,
		CleanupInterval: time.Hour,
	})
}

func rateLimitedRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(3, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if w := rateLimitedRequest(handler, "u1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_Returns429OverBurst(t *testing.T) {
	rl := newTestRateLimiter(2, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rateLimitedRequest(handler, "u1")
	rateLimitedRequest(handler, "u1")
	w := rateLimitedRequest(handler, "u1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should include Retry-After header")
	}
}

func TestGeneralMiddleware_LimitsPerUser(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rateLimitedRequest(handler, "u1")
	if w := rateLimitedRequest(handler, "u1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("u1 second request: status = %d, want 429", w.Code)
	}
	if w := rateLimitedRequest(handler, "u2"); w.Code != http.StatusOK {
		t.Errorf("u2 should have its own budget: status = %d, want 200", w.Code)
	}
}

func TestBookingCreationMiddleware_IndependentOfGeneral(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	booking := rl.BookingCreationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 一般バーストを使い切っても予約作成の予算は残る
	rateLimitedRequest(general, "u1")
	if w := rateLimitedRequest(booking, "u1"); w.Code != http.StatusOK {
		t.Errorf("booking budget should be independent: status = %d, want 200", w.Code)
	}
}

func TestMiddleware_WithoutUserIDReturns401(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLimiterPool_CleanupRemovesStaleEntries(t *testing.T) {
	pool := newLimiterPool(rate.Limit(1), 1)

	pool.getOrCreate("u1")
	pool.getOrCreate("u2")
	if pool.count() != 2 {
		t.Fatalf("count = %d, want 2", pool.count())
	}

	time.Sleep(time.Millisecond)
	pool.cleanup(0)

	if pool.count() != 0 {
		t.Errorf("count after cleanup = %d, want 0", pool.count())
	}
}

func TestNewRateLimiterConfig_ConvertsPerMinute(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 10)

	if cfg.GeneralRate != rate.Limit(2.0) {
		t.Errorf("GeneralRate = %v, want 2 req/sec", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.BookingBurst != 10 {
		t.Errorf("BookingBurst = %d, want 10", cfg.BookingBurst)
	}
}
