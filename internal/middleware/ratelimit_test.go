package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(generalBurst, aiBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		AIRate:          rate.Limit(1.0 / 60.0),
		AIBurst:         aiBurst,
		CleanupInterval: time.Minute,
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/videos", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(3, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		w := doRequest(handler, "user-1")
		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, w.Result().StatusCode, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_RejectsOverBurst(t *testing.T) {
	rl := newTestRateLimiter(2, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	doRequest(handler, "user-1")
	doRequest(handler, "user-1")

	w := doRequest(handler, "user-1")
	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

func TestGeneralMiddleware_PerUserIsolation(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// user-1がバーストを使い切ってもuser-2は影響を受けない
	doRequest(handler, "user-1")
	if w := doRequest(handler, "user-1"); w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want 429", w.Result().StatusCode)
	}
	if w := doRequest(handler, "user-2"); w.Result().StatusCode != http.StatusOK {
		t.Errorf("user-2 first request: status = %d, want 200", w.Result().StatusCode)
	}
}

func TestGeneralMiddleware_NoUserID_Returns401(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	w := doRequest(handler, "")
	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAIMiddleware_IndependentFromGeneral(t *testing.T) {
	rl := newTestRateLimiter(1, 2)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	ai := rl.AIMiddleware()(okHandler())

	// API全般のバーストを使い切る
	doRequest(general, "user-1")
	if w := doRequest(general, "user-1"); w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("general: status = %d, want 429", w.Result().StatusCode)
	}

	// AIエンドポイントは独立したバーストを持つ
	if w := doRequest(ai, "user-1"); w.Result().StatusCode != http.StatusOK {
		t.Errorf("ai first request: status = %d, want 200", w.Result().StatusCode)
	}
	if w := doRequest(ai, "user-1"); w.Result().StatusCode != http.StatusOK {
		t.Errorf("ai second request: status = %d, want 200", w.Result().StatusCode)
	}
	if w := doRequest(ai, "user-1"); w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("ai third request: status = %d, want 429", w.Result().StatusCode)
	}
}

func TestRateLimiter_LimiterCounts(t *testing.T) {
	rl := newTestRateLimiter(5, 5)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	ai := rl.AIMiddleware()(okHandler())

	doRequest(general, "user-1")
	doRequest(general, "user-2")
	doRequest(ai, "user-1")

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
	if got := rl.AILimiterCount(); got != 1 {
		t.Errorf("AILimiterCount() = %d, want 1", got)
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		AIRate:          rate.Limit(1),
		AIBurst:         1,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	doRequest(handler, "user-1")

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Fatalf("GeneralLimiterCount() = %d, want 1", got)
	}

	// CleanupInterval * 2 のTTL経過後にクリーンアップされる
	deadline := time.Now().Add(time.Second)
	for rl.GeneralLimiterCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("GeneralLimiterCount() after cleanup = %d, want 0", got)
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	if config.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", config.GeneralBurst)
	}
	if config.AIBurst != 20 {
		t.Errorf("AIBurst = %d, want 20", config.AIBurst)
	}
	if config.GeneralRate != rate.Limit(120.0/60.0) {
		t.Errorf("GeneralRate = %v, want 2", config.GeneralRate)
	}
	if config.AIRate != rate.Limit(20.0/60.0) {
		t.Errorf("AIRate = %v, want ~0.333", config.AIRate)
	}
}
