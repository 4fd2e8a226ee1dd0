package middleware

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// AuthRateLimiter throttles login attempts per identifier and locks the
// identifier out once its token bucket runs dry.
type AuthRateLimiter struct {
	config config.AuthRateLimitConfig
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*authLimiter

	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

type authLimiter struct {
	limiter    *rate.Limiter
	lastSeen   time.Time
	lockoutEnd time.Time
}

// NewAuthRateLimiter creates a new rate limiter for auth endpoints
func NewAuthRateLimiter(cfg config.AuthRateLimitConfig, logger *zap.Logger) *AuthRateLimiter {
	cfg.SetDefaults()
	return &AuthRateLimiter{
		config:          cfg,
		logger:          logger.Named("auth-ratelimit"),
		limiters:        make(map[string]*authLimiter),
		cleanupInterval: 10 * time.Minute,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

// getLimiter must be called with r.mu held
func (r *AuthRateLimiter) getLimiter(identifier string) *authLimiter {
	now := r.now()
	if now.Sub(r.lastCleanup) > r.cleanupInterval {
		r.cleanup(now)
	}

	if l, ok := r.limiters[identifier]; ok {
		l.lastSeen = now
		return l
	}

	// MaxAttempts per WindowSeconds, half of them available as a burst
	limit := rate.Limit(float64(r.config.MaxAttempts) / float64(r.config.WindowSeconds))
	burst := int(math.Ceil(float64(r.config.MaxAttempts) / 2.0))
	if burst < 1 {
		burst = 1
	}

	l := &authLimiter{
		limiter:  rate.NewLimiter(limit, burst),
		lastSeen: now,
	}
	r.limiters[identifier] = l
	return l
}

func (r *AuthRateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-30 * time.Minute)
	for key, l := range r.limiters {
		if l.lastSeen.Before(cutoff) && now.After(l.lockoutEnd) {
			delete(r.limiters, key)
		}
	}
	r.lastCleanup = now
}

// Allow reports whether a request for identifier may proceed
func (r *AuthRateLimiter) Allow(identifier string) bool {
	if !r.config.Enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.getLimiter(identifier)
	now := r.now()
	if now.Before(l.lockoutEnd) {
		return false
	}

	if !l.limiter.AllowN(now, 1) {
		lockout := time.Duration(r.config.LockoutSeconds) * time.Second
		l.lockoutEnd = now.Add(lockout)
		r.logger.Warn("Auth rate limit exceeded, applying lockout",
			zap.String("identifier", identifier),
			zap.Duration("lockout_duration", lockout),
		)
		return false
	}
	return true
}

// RecordFailure makes a failed attempt cost two extra tokens
func (r *AuthRateLimiter) RecordFailure(identifier string) {
	if !r.config.Enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.getLimiter(identifier)
	l.limiter.AllowN(r.now(), 2)
}

// AuthRateLimitMiddleware limits requests per client IP
func AuthRateLimitMiddleware(rl *AuthRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many authentication attempts. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
