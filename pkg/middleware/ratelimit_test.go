package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

func newTestLimiter(maxAttempts int) (*AuthRateLimiter, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewAuthRateLimiter(config.AuthRateLimitConfig{
		Enabled:        true,
		MaxAttempts:    maxAttempts,
		WindowSeconds:  60,
		LockoutSeconds: 300,
	}, zap.NewNop())
	rl.now = func() time.Time { return now }
	rl.lastCleanup = now
	return rl, &now
}

func TestAuthRateLimiter_BurstThenLockout(t *testing.T) {
	rl, now := newTestLimiter(6)

	// burst is half of MaxAttempts
	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("attempt beyond burst should be refused")
	}

	*now = now.Add(time.Minute)
	if rl.Allow("1.2.3.4") {
		t.Error("identifier should still be locked out")
	}

	*now = now.Add(5 * time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("lockout should have expired")
	}
}

func TestAuthRateLimiter_IdentifiersAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(2)

	if !rl.Allow("a") {
		t.Fatal("first attempt for a should pass")
	}
	if rl.Allow("a") {
		t.Fatal("a should be limited")
	}
	if !rl.Allow("b") {
		t.Error("b must not be affected by a")
	}
}

func TestAuthRateLimiter_RecordFailure(t *testing.T) {
	rl, _ := newTestLimiter(6)

	if !rl.Allow("ip") {
		t.Fatal("first attempt should pass")
	}
	rl.RecordFailure("ip")

	if rl.Allow("ip") {
		t.Error("a recorded failure should consume the remaining burst")
	}
}

func TestAuthRateLimiter_Disabled(t *testing.T) {
	rl := NewAuthRateLimiter(config.AuthRateLimitConfig{Enabled: false, MaxAttempts: 1}, zap.NewNop())
	for i := 0; i < 10; i++ {
		rl.RecordFailure("ip")
		if !rl.Allow("ip") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestAuthRateLimiter_CleanupDropsIdleEntries(t *testing.T) {
	rl, now := newTestLimiter(6)
	rl.Allow("idle")

	*now = now.Add(time.Hour)
	rl.Allow("fresh")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["idle"]; ok {
		t.Error("idle limiter should have been cleaned up")
	}
	if _, ok := rl.limiters["fresh"]; !ok {
		t.Error("fresh limiter should exist")
	}
}

func TestAuthRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(2)

	r := gin.New()
	r.POST("/login", AuthRateLimitMiddleware(rl), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}
